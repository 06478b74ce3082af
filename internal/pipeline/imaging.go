package pipeline

import (
	"bytes"
	"image"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"

	"transcode-server/internal/mediatypes"
)

// ImagingEncoder is the pure-Go encoder backend: disintegration/imaging
// for decode/resize and chai2010/webp for encoding. It handles the
// formats the registered stdlib and x/image decoders cover; HEIC needs
// the vips backend.
type ImagingEncoder struct{}

// NewImagingEncoder returns the pure-Go backend.
func NewImagingEncoder() *ImagingEncoder {
	return &ImagingEncoder{}
}

// Encode decodes src, downscales it to fit target, and encodes WebP at
// the given quality (0-1 scale).
func (e *ImagingEncoder) Encode(src []byte, target mediatypes.Dimensions, quality float64) (*EncodedImage, error) {
	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, classifyDecodeError(err)
	}

	img = fitImage(img, target)

	var buf bytes.Buffer
	opts := &webp.Options{Quality: float32(quality * 100)}
	if err := webp.Encode(&buf, img, opts); err != nil {
		return nil, WrapError(KindUnknown, "webp encode failed", err)
	}

	bounds := img.Bounds()
	return &EncodedImage{
		Data: buf.Bytes(),
		Dims: mediatypes.Dimensions{Width: bounds.Dx(), Height: bounds.Dy()},
	}, nil
}

// fitImage downscales img so it fits within target, never upscaling.
func fitImage(img image.Image, target mediatypes.Dimensions) image.Image {
	if target.IsZero() {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() <= target.Width && bounds.Dy() <= target.Height {
		return img
	}
	return imaging.Fit(img, target.Width, target.Height, imaging.Lanczos)
}

// classifyDecodeError assigns a taxonomy kind to a decoder error at the
// throw site.
func classifyDecodeError(err error) *Error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unknown format"):
		return WrapError(KindDecodeUnsupported, "image format not supported", err)
	case strings.Contains(msg, "unexpected eof"), strings.Contains(msg, "truncated"):
		return WrapError(KindContainerCorrupt, "image payload is corrupt", err)
	default:
		return WrapError(KindDecodeFailure, "image decode failed", err)
	}
}
