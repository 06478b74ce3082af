package memory

import (
	"errors"
	"fmt"

	"transcode-server/internal/mediatypes"
)

const (
	// BytesPerPixel is the decoded cost of one pixel (RGBA).
	BytesPerPixel = 4

	// DefaultCeilingBytes is the hard decoded-memory ceiling for a single
	// job (150 MB).
	DefaultCeilingBytes = 150 * 1024 * 1024
)

// ErrBudgetExceeded is returned by Gate when the estimated decoded size of
// an image exceeds the configured ceiling. Callers must not attempt any
// decode or encode after receiving it.
var ErrBudgetExceeded = errors.New("estimated decoded size exceeds memory budget")

// EstimateDecoded returns the approximate peak decoded footprint in bytes
// for an image of the given dimensions.
func EstimateDecoded(d mediatypes.Dimensions) int64 {
	if d.IsZero() {
		return 0
	}
	return d.Pixels() * BytesPerPixel
}

// Gate checks the estimated decoded size of d against ceiling (bytes).
// A ceiling of zero or less means DefaultCeilingBytes. Returns
// ErrBudgetExceeded (wrapped with the sizes involved) when the estimate
// is over the ceiling.
func Gate(d mediatypes.Dimensions, ceiling int64) error {
	if ceiling <= 0 {
		ceiling = DefaultCeilingBytes
	}
	estimate := EstimateDecoded(d)
	if estimate > ceiling {
		return fmt.Errorf("%w: %s needs ~%d bytes, ceiling %d", ErrBudgetExceeded, d, estimate, ceiling)
	}
	return nil
}
