package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"transcode-server/internal/logging"
)

// DefaultMemoryRatio is the share of the container memory limit given to
// the Go heap. The remainder is reserved for FFmpeg and libvips, which
// allocate outside the Go runtime.
const DefaultMemoryRatio = 0.8

// ConfigureFromEnv sets GOMEMLIMIT from the container memory limit.
// Call this early in main() before significant allocations.
//
// Environment variables:
//   - GOMEMLIMIT: if set, takes precedence (standard Go env var)
//   - MEMORY_LIMIT: container memory limit in bytes
//   - MEMORY_RATIO: share of memory for the Go heap (default 0.8)
//
// Returns the effective GOMEMLIMIT in bytes, or 0 if none was configured.
func ConfigureFromEnv() int64 {
	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if limit := debug.SetMemoryLimit(-1); limit > 0 && limit < math.MaxInt64 {
			logging.Info("GOMEMLIMIT set via environment: %s", env)
			return limit
		}
		return 0
	}

	memLimitStr := os.Getenv("MEMORY_LIMIT")
	if memLimitStr == "" {
		logging.Debug("MEMORY_LIMIT not set, GOMEMLIMIT will not be configured automatically")
		return 0
	}

	memLimit, err := strconv.ParseInt(memLimitStr, 10, 64)
	if err != nil || memLimit <= 0 {
		logging.Warn("Failed to parse MEMORY_LIMIT %q: %v", memLimitStr, err)
		return 0
	}

	ratio := DefaultMemoryRatio
	if ratioStr := os.Getenv("MEMORY_RATIO"); ratioStr != "" {
		if parsed, err := strconv.ParseFloat(ratioStr, 64); err == nil && parsed > 0 && parsed <= 1.0 {
			ratio = parsed
		} else {
			logging.Warn("Invalid MEMORY_RATIO %q, using default %.2f", ratioStr, DefaultMemoryRatio)
		}
	}

	goMemLimit := int64(float64(memLimit) * ratio)
	debug.SetMemoryLimit(goMemLimit)

	logging.Info("Configured GOMEMLIMIT: %d bytes (%.0f%% of %d byte container limit)",
		goMemLimit, ratio*100, memLimit)

	return goMemLimit
}
