package pipeline

import (
	"math"

	"transcode-server/internal/mediatypes"
)

// Strategy names for the Path field of a Result.
const (
	StrategyJPEGPassthrough = "jpeg_passthrough"
	StrategyWebPLocal       = "webp_local"
	StrategyWebMServer      = "webm_server"
)

// Output is one produced media artifact.
type Output struct {
	Name string `json:"name"`
	MIME string `json:"mime"`
	Data []byte `json:"-"`
}

// Metrics carries timing and compression figures attached to every
// outcome, success or failure.
type Metrics struct {
	ProcessingTimeMs        int64 `json:"processingTimeMs"`
	OriginalSizeBytes       int64 `json:"originalSizeBytes"`
	OutputSizeBytes         int64 `json:"outputSizeBytes"`
	CompressionRatioPercent int   `json:"compressionRatioPercent"`
}

// Result is the uniform outcome contract shared by the bounded processor
// and the server transcoder.
type Result struct {
	Success bool   `json:"success"`
	Path    string `json:"path,omitempty"` // strategy that produced the result

	Output  *Output `json:"output,omitempty"`
	Metrics Metrics `json:"metrics"`

	// Quality is the accepted ladder rung (0-1 scale), zero for
	// passthrough results.
	Quality float64 `json:"quality,omitempty"`

	// Attempted lists the quality values tried, in descending order.
	Attempted []float64 `json:"attempted,omitempty"`

	Dimensions mediatypes.Dimensions `json:"dimensions"`

	// ErrorKind is set only when Success is false.
	ErrorKind Kind   `json:"errorKind,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CompressionRatio computes round((1 - output/original) * 100). The
// result may be negative when the rendition is larger than the source;
// negative ratios are surfaced, never clamped.
func CompressionRatio(originalSize, outputSize int64) int {
	if originalSize <= 0 {
		return 0
	}
	return int(math.Round((1 - float64(outputSize)/float64(originalSize)) * 100))
}
