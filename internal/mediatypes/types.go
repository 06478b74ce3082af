package mediatypes

import (
	"bytes"
	"strings"
)

// Kind is the classification of a media payload derived from byte
// inspection, never from the declared MIME type alone.
type Kind string

const (
	// KindVideo is a decodable video container.
	KindVideo Kind = "video"
	// KindImage is a still image, including genuine HEIC/HEIF.
	KindImage Kind = "image"
	// KindJPEGInHEIF is a JPEG payload wrapped in a HEIF container.
	// Such files can be relabeled and served as JPEG with zero
	// transcoding cost.
	KindJPEGInHEIF Kind = "jpeg-in-heif-container"
	// KindUnknown is returned when no signature matches and the declared
	// MIME type is unrecognized.
	KindUnknown Kind = "unknown"
)

// SniffWindow is how many leading bytes Sniff inspects for the embedded
// JPEG start-of-image marker.
const SniffWindow = 1024

// jpegSOI is the JPEG start-of-image marker.
var jpegSOI = []byte{0xFF, 0xD8}

// heifBrands are the ftyp major brands that mark a HEIF family container.
var heifBrands = map[string]bool{
	"heic": true,
	"heix": true,
	"hevc": true,
	"hevx": true,
	"heif": true,
	"mif1": true,
	"msf1": true,
}

// mp4Brands are ftyp major brands for ISO BMFF video containers.
var mp4Brands = map[string]bool{
	"isom": true,
	"iso2": true,
	"iso4": true,
	"iso5": true,
	"iso6": true,
	"mp41": true,
	"mp42": true,
	"avc1": true,
	"dash": true,
	"M4V ": true,
	"qt  ": true,
}

// Sniff classifies a payload from its leading bytes (up to SniffWindow)
// and the caller-supplied MIME type. The byte check always runs first;
// this is the cheapest possible early exit and is never skipped.
func Sniff(head []byte, declaredMIME string) Kind {
	if isHEIF(head) {
		// A HEIF container whose early bytes contain a JPEG SOI marker is
		// a mislabeled JPEG, not a real HEIC.
		window := head
		if len(window) > SniffWindow {
			window = window[:SniffWindow]
		}
		if bytes.Contains(window, jpegSOI) {
			return KindJPEGInHEIF
		}
		return KindImage
	}

	if isImageSignature(head) {
		return KindImage
	}
	if isVideoSignature(head) {
		return KindVideo
	}

	// No signature matched; fall back on the declared MIME type.
	switch {
	case strings.HasPrefix(declaredMIME, "image/"):
		return KindImage
	case strings.HasPrefix(declaredMIME, "video/"):
		return KindVideo
	}
	return KindUnknown
}

// isHEIF reports whether head starts with an ISO BMFF ftyp box carrying a
// HEIF family brand.
func isHEIF(head []byte) bool {
	if len(head) < 12 {
		return false
	}
	if string(head[4:8]) != "ftyp" {
		return false
	}
	return heifBrands[string(head[8:12])]
}

func isImageSignature(head []byte) bool {
	switch {
	case len(head) >= 2 && head[0] == 0xFF && head[1] == 0xD8:
		return true // JPEG
	case len(head) >= 8 && bytes.Equal(head[:8], []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}):
		return true // PNG
	case len(head) >= 6 && (bytes.Equal(head[:6], []byte("GIF87a")) || bytes.Equal(head[:6], []byte("GIF89a"))):
		return true // GIF
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("WEBP")):
		return true // WebP
	case len(head) >= 2 && head[0] == 'B' && head[1] == 'M':
		return true // BMP
	}
	return false
}

func isVideoSignature(head []byte) bool {
	switch {
	case len(head) >= 12 && string(head[4:8]) == "ftyp" && mp4Brands[string(head[8:12])]:
		return true // MP4/MOV family
	case len(head) >= 4 && bytes.Equal(head[:4], []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return true // WebM / Matroska (EBML)
	case len(head) >= 12 && bytes.Equal(head[:4], []byte("RIFF")) && bytes.Equal(head[8:12], []byte("AVI ")):
		return true // AVI
	}
	return false
}

// MimeForExtension maps a lowercase file extension (with leading dot) to
// its MIME type. Unknown extensions map to application/octet-stream.
func MimeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic", ".heif":
		return "image/heic"
	case ".bmp":
		return "image/bmp"
	case ".webm":
		return "video/webm"
	case ".mp4":
		return "video/mp4"
	case ".mov":
		return "video/quicktime"
	case ".avi":
		return "video/x-msvideo"
	case ".mkv":
		return "video/x-matroska"
	default:
		return "application/octet-stream"
	}
}
