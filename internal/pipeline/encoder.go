package pipeline

import (
	"bytes"
	"image"
	"time"

	// Image format decoders for header-only dimension probing
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"  // BMP format support
	_ "golang.org/x/image/webp" // WebP format support

	"transcode-server/internal/mediatypes"
)

// EncodedImage is the artifact produced by one encode attempt.
type EncodedImage struct {
	Data []byte
	Dims mediatypes.Dimensions
}

// Encoder turns source bytes into a WebP rendition no larger than target,
// at the given quality (0-1 scale). Implementations raise typed *Error
// values so the caller never has to guess at failure causes.
type Encoder interface {
	Encode(src []byte, target mediatypes.Dimensions, quality float64) (*EncodedImage, error)
}

// DimensionProber is optionally implemented by encoders that can read
// dimensions from formats the standard decoders cannot (e.g. HEIC).
type DimensionProber interface {
	ProbeDimensions(src []byte) (mediatypes.Dimensions, error)
}

// DefaultProbeBudget bounds how long a dimension probe may take before
// the processor falls back to assumed dimensions.
const DefaultProbeBudget = 250 * time.Millisecond

// AssumedDimensions is the conservative default used when true dimensions
// cannot be determined within the probe budget.
var AssumedDimensions = mediatypes.Dimensions{Width: 2000, Height: 2000}

// probeDimensions attempts a header-only dimension read, consulting the
// encoder's prober for formats the registered decoders cannot parse. It
// never blocks past budget: on overrun the probe keeps running in the
// background but the caller proceeds with assumed dimensions.
func probeDimensions(src []byte, enc Encoder, budget time.Duration) (mediatypes.Dimensions, bool) {
	if budget <= 0 {
		budget = DefaultProbeBudget
	}

	type probeResult struct {
		dims mediatypes.Dimensions
		ok   bool
	}
	done := make(chan probeResult, 1)

	go func() {
		if cfg, _, err := image.DecodeConfig(bytes.NewReader(src)); err == nil {
			done <- probeResult{mediatypes.Dimensions{Width: cfg.Width, Height: cfg.Height}, true}
			return
		}
		if prober, ok := enc.(DimensionProber); ok {
			if dims, err := prober.ProbeDimensions(src); err == nil && !dims.IsZero() {
				done <- probeResult{dims, true}
				return
			}
		}
		done <- probeResult{}
	}()

	timer := time.NewTimer(budget)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.ok {
			return res.dims, true
		}
	case <-timer.C:
	}
	return AssumedDimensions, false
}
