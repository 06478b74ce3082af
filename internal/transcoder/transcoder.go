package transcoder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"transcode-server/internal/database"
	"transcode-server/internal/logging"
	"transcode-server/internal/mediatypes"
	"transcode-server/internal/metrics"
	"transcode-server/internal/pipeline"
	"transcode-server/internal/storage"
)

const (
	// LongEdgeCap bounds the long edge of server renditions.
	LongEdgeCap = 1920

	// DefaultCRF is the VP9 quality used when a job does not specify one.
	DefaultCRF = 30

	// PosterOffset is where the poster frame is taken from the source.
	PosterOffset = 1 * time.Second
)

// Job identifies one transcode request.
type Job struct {
	Bucket  string
	Path    string
	MediaID string
	CRF     int

	// MaxDimension overrides the image pipeline's long-edge cap when
	// positive. The video path ignores it.
	MaxDimension int
}

// JobResult describes a finished video rendition.
type JobResult struct {
	WebMPath         string  `json:"webmPath"`
	PosterPath       string  `json:"posterPath"`
	CompressionRatio int     `json:"compressionRatio"`
	OriginalSize     int64   `json:"originalSize"`
	WebMSize         int64   `json:"webmSize"`
	Dimensions       string  `json:"dimensions"`
	Duration         float64 `json:"duration"`
}

// Transcoder orchestrates the server transcode path.
type Transcoder struct {
	engine     Engine
	store      storage.ObjectStore
	db         *database.Store
	defaultCRF int
}

// New creates a Transcoder. defaultCRF applies to jobs that omit a CRF;
// non-positive means DefaultCRF.
func New(engine Engine, store storage.ObjectStore, db *database.Store, defaultCRF int) *Transcoder {
	if defaultCRF <= 0 {
		defaultCRF = DefaultCRF
	}
	return &Transcoder{engine: engine, store: store, db: db, defaultCRF: defaultCRF}
}

// ProcessJob runs one job end to end: mark processing, download, probe,
// encode, poster, upload, mark terminal. The persisted record always ends
// in processed or failed; the temp directory is removed on every exit
// path. The job owns its record row exclusively for the duration of the
// run, so both record updates are simple point-writes.
//
// There is no internal deadline here; runtime is bounded by ctx and the
// hosting platform's request timeout.
func (t *Transcoder) ProcessJob(ctx context.Context, job Job) (*JobResult, error) {
	start := time.Now()
	crf := job.CRF
	if crf <= 0 {
		crf = t.defaultCRF
	}

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()
	defer func() {
		metrics.JobDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	}()

	if err := t.db.Ensure(ctx, job.MediaID, job.Path); err != nil {
		return nil, t.fail(ctx, job, err)
	}
	if err := t.db.MarkProcessing(ctx, job.MediaID); err != nil {
		return nil, t.fail(ctx, job, err)
	}

	// The scoped working directory is the one place a disk leak is
	// structurally possible; removal is guaranteed on every exit path.
	tmpDir, err := os.MkdirTemp("", "transcode-"+job.MediaID+"-*")
	if err != nil {
		return nil, t.fail(ctx, job, fmt.Errorf("failed to create working directory: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			logging.Warn("failed to remove working directory %s: %v", tmpDir, err)
		}
	}()

	result, err := t.run(ctx, job, crf, tmpDir)
	if err != nil {
		return nil, t.fail(ctx, job, err)
	}

	metrics.JobsTotal.WithLabelValues("video", "success").Inc()
	metrics.CompressionRatio.WithLabelValues("video").Observe(float64(result.CompressionRatio))
	logging.Info("transcoded %s in %s: %s -> %s (%d%%)",
		job.MediaID, time.Since(start).Round(time.Millisecond),
		job.Path, result.WebMPath, result.CompressionRatio)
	return result, nil
}

func (t *Transcoder) run(ctx context.Context, job Job, crf int, tmpDir string) (*JobResult, error) {
	srcBytes, _, err := t.store.Download(ctx, job.Path)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}
	metrics.BytesDownloaded.Add(float64(len(srcBytes)))

	srcFile := filepath.Join(tmpDir, "source"+filepath.Ext(job.Path))
	if err := os.WriteFile(srcFile, srcBytes, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write source file: %w", err)
	}

	info, err := t.engine.Probe(ctx, srcFile)
	if err != nil {
		return nil, fmt.Errorf("probe failed: %w", err)
	}

	target := mediatypes.Fit(info.Dimensions, LongEdgeCap)

	webmFile := filepath.Join(tmpDir, "output.webm")
	if err := t.engine.EncodeWebM(ctx, srcFile, webmFile, crf, target); err != nil {
		return nil, fmt.Errorf("encode failed: %w", err)
	}

	posterFile := filepath.Join(tmpDir, "poster.jpg")
	if err := t.engine.ExtractPoster(ctx, srcFile, posterFile, PosterOffset); err != nil {
		return nil, fmt.Errorf("poster extraction failed: %w", err)
	}

	webmBytes, err := os.ReadFile(webmFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendition: %w", err)
	}
	posterBytes, err := os.ReadFile(posterFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read poster: %w", err)
	}

	webmKey := ProcessedKey(job.Path, ".webm")
	posterKey := ProcessedKey(job.Path, ".jpg")

	if err := t.store.Upload(ctx, webmKey, "video/webm", webmBytes); err != nil {
		return nil, fmt.Errorf("rendition upload failed: %w", err)
	}
	if err := t.store.Upload(ctx, posterKey, "image/jpeg", posterBytes); err != nil {
		return nil, fmt.Errorf("poster upload failed: %w", err)
	}
	metrics.BytesUploaded.Add(float64(len(webmBytes) + len(posterBytes)))

	if err := t.db.MarkProcessed(ctx, job.MediaID, database.ProcessedResult{
		ProcessedPath:      webmKey,
		ThumbnailPath:      posterKey,
		Width:              target.Width,
		Height:             target.Height,
		DurationSeconds:    info.Duration,
		OptimizedSizeBytes: int64(len(webmBytes)),
	}); err != nil {
		return nil, fmt.Errorf("failed to record result: %w", err)
	}

	return &JobResult{
		WebMPath:         webmKey,
		PosterPath:       posterKey,
		CompressionRatio: pipeline.CompressionRatio(int64(len(srcBytes)), int64(len(webmBytes))),
		OriginalSize:     int64(len(srcBytes)),
		WebMSize:         int64(len(webmBytes)),
		Dimensions:       target.String(),
		Duration:         info.Duration,
	}, nil
}

// fail records the terminal failure on the media record. A secondary
// failure while recording is logged but never masks the original error.
func (t *Transcoder) fail(ctx context.Context, job Job, cause error) error {
	metrics.JobsTotal.WithLabelValues("video", "failure").Inc()
	logging.Error("transcode of %s failed: %v", job.MediaID, cause)

	if err := t.db.MarkFailed(ctx, job.MediaID, cause.Error()); err != nil {
		logging.Error("failed to record failure for %s: %v", job.MediaID, err)
	}
	return cause
}

// ProcessedKey derives the destination key for a rendition from the
// source key: the raw/ path segment becomes processed/ and the extension
// is swapped for newExt. Only a whole segment counts; keys without one
// are prefixed with processed/.
func ProcessedKey(sourceKey, newExt string) string {
	key := sourceKey
	switch idx := strings.Index("/"+key, "/raw/"); {
	case idx == 0:
		key = "processed/" + key[len("raw/"):]
	case idx > 0:
		key = key[:idx] + "processed/" + key[idx+len("raw/"):]
	default:
		key = "processed/" + key
	}
	if ext := filepath.Ext(key); ext != "" {
		key = key[:len(key)-len(ext)]
	}
	return key + newExt
}
