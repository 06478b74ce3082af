package handlers

import (
	"net/http"
	"runtime"
	"time"

	"transcode-server/internal/startup"
)

// MemoryStats is the memory section of the health response.
type MemoryStats struct {
	HeapAllocBytes uint64 `json:"heapAllocBytes"`
	HeapSysBytes   uint64 `json:"heapSysBytes"`
	SysBytes       uint64 `json:"sysBytes"`
	NumGC          uint32 `json:"numGC"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Uptime    float64     `json:"uptime"`
	Memory    MemoryStats `json:"memory"`
	Version   string      `json:"version"`
}

// Health reports service liveness with uptime and memory figures.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)

	writeJSONStatusCode(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startTime).Seconds(),
		Memory: MemoryStats{
			HeapAllocBytes: stats.HeapAlloc,
			HeapSysBytes:   stats.HeapSys,
			SysBytes:       stats.Sys,
			NumGC:          stats.NumGC,
		},
		Version: startup.Version,
	})
}
