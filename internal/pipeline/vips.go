package pipeline

import (
	"strings"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"

	"transcode-server/internal/logging"
	"transcode-server/internal/mediatypes"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
)

// InitVips initializes libvips. Call once at startup; idempotent.
// libvips is what gives the pipeline HEIC decode support and decode-time
// shrinking, which is far more memory efficient than decoding the full
// image and resizing after.
func InitVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return
	}

	// Route vips log output through our logger, suppressing chatter
	// below warning unless debug logging is on.
	minLevel := vips.LogLevelWarning
	if logging.IsDebugEnabled() {
		minLevel = vips.LogLevelInfo
	}
	vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
		switch {
		case level <= vips.LogLevelError:
			logging.Error("[%s] %s", domain, msg)
		case level == vips.LogLevelWarning:
			logging.Warn("[%s] %s", domain, msg)
		default:
			logging.Debug("[%s] %s", domain, msg)
		}
	}, minLevel)

	// Conservative memory settings: one image at a time, small op cache.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
}

// ShutdownVips releases libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		logging.Info("libvips shutdown complete")
	}
}

// VipsEncoder is the libvips encoder backend. It decodes everything vips
// was built with (notably HEIC/HEIF) and shrinks during decode.
type VipsEncoder struct{}

// NewVipsEncoder returns the vips backend. InitVips must have been
// called first.
func NewVipsEncoder() *VipsEncoder {
	return &VipsEncoder{}
}

// Encode loads src with vips, thumbnails it to fit target, and exports
// WebP at the given quality (0-1 scale).
func (e *VipsEncoder) Encode(src []byte, target mediatypes.Dimensions, quality float64) (*EncodedImage, error) {
	ref, err := vips.LoadImageFromBuffer(src, vips.NewImportParams())
	if err != nil {
		return nil, classifyVipsError("vips load failed", err)
	}
	defer ref.Close()

	if !target.IsZero() && (ref.Width() > target.Width || ref.Height() > target.Height) {
		if err := ref.Thumbnail(target.Width, target.Height, vips.InterestingNone); err != nil {
			return nil, classifyVipsError("vips resize failed", err)
		}
	}

	params := vips.NewWebpExportParams()
	params.Quality = int(quality * 100)
	params.StripMetadata = true

	data, _, err := ref.ExportWebp(params)
	if err != nil {
		return nil, classifyVipsError("vips webp export failed", err)
	}

	return &EncodedImage{
		Data: data,
		Dims: mediatypes.Dimensions{Width: ref.Width(), Height: ref.Height()},
	}, nil
}

// ProbeDimensions reads dimensions without a full decode; vips loads
// lazily so this only parses the header.
func (e *VipsEncoder) ProbeDimensions(src []byte) (mediatypes.Dimensions, error) {
	ref, err := vips.LoadImageFromBuffer(src, vips.NewImportParams())
	if err != nil {
		return mediatypes.Dimensions{}, classifyVipsError("vips probe failed", err)
	}
	defer ref.Close()
	return mediatypes.Dimensions{Width: ref.Width(), Height: ref.Height()}, nil
}

// classifyVipsError assigns a taxonomy kind to a libvips error at the
// throw site. vips reports allocation failures and corrupt containers
// with recognizable messages.
func classifyVipsError(msg string, err error) *Error {
	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "memory"), strings.Contains(lower, "calloc"):
		return WrapError(KindOOM, msg, err)
	case strings.Contains(lower, "unsupported"), strings.Contains(lower, "not a known file format"):
		return WrapError(KindDecodeUnsupported, msg, err)
	case strings.Contains(lower, "corrupt"), strings.Contains(lower, "truncated"), strings.Contains(lower, "premature end"):
		return WrapError(KindContainerCorrupt, msg, err)
	default:
		return WrapError(KindDecodeFailure, msg, err)
	}
}
