// Package transcoder implements the server-side transcode path: download
// a source object, probe it, encode a VP9/Opus WebM rendition plus a JPEG
// poster frame with FFmpeg, upload both, and record the outcome on the
// persisted media record.
//
// Unlike the bounded pipeline, the server path has no internal wall-clock
// deadline: it encodes once at the supplied quality instead of iterating
// a ladder, and its runtime is bounded by the hosting platform's request
// timeout (and context cancellation). FFmpeg and ffprobe must be
// installed and available in PATH.
package transcoder
