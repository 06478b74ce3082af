package transcoder

import (
	"context"
	"fmt"
	"path"
	"time"

	"transcode-server/internal/database"
	"transcode-server/internal/logging"
	"transcode-server/internal/metrics"
	"transcode-server/internal/pipeline"
	"transcode-server/internal/storage"
)

// ImageOrchestrator gives the bounded pipeline a server home: it moves
// bytes between object storage and the processor and keeps the media
// record in step, mirroring the video path.
type ImageOrchestrator struct {
	proc  *pipeline.Processor
	store storage.ObjectStore
	db    *database.Store
}

// NewImageOrchestrator wires a bounded processor to storage and records.
func NewImageOrchestrator(proc *pipeline.Processor, store storage.ObjectStore, db *database.Store) *ImageOrchestrator {
	return &ImageOrchestrator{proc: proc, store: store, db: db}
}

// ProcessJob downloads the source image, runs the bounded pipeline on
// it, uploads the accepted rendition, and records the outcome. The
// pipeline's own budgets apply unchanged; this wrapper only adds the
// storage and persistence glue.
func (o *ImageOrchestrator) ProcessJob(ctx context.Context, job Job) (pipeline.Result, error) {
	start := time.Now()

	metrics.JobsInFlight.Inc()
	defer metrics.JobsInFlight.Dec()
	defer func() {
		metrics.JobDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	}()

	if err := o.db.Ensure(ctx, job.MediaID, job.Path); err != nil {
		return pipeline.Result{}, o.fail(ctx, job, err)
	}
	if err := o.db.MarkProcessing(ctx, job.MediaID); err != nil {
		return pipeline.Result{}, o.fail(ctx, job, err)
	}

	srcBytes, contentType, err := o.store.Download(ctx, job.Path)
	if err != nil {
		return pipeline.Result{}, o.fail(ctx, job, fmt.Errorf("download failed: %w", err))
	}
	metrics.BytesDownloaded.Add(float64(len(srcBytes)))

	result := o.proc.WithLongEdgeCap(job.MaxDimension).Process(pipeline.Request{
		Filename:     path.Base(job.Path),
		DeclaredMIME: contentType,
		Data:         srcBytes,
	})
	if !result.Success {
		return result, o.fail(ctx, job,
			fmt.Errorf("pipeline failed (%s): %s", result.ErrorKind, result.Error))
	}

	destKey := ProcessedKey(job.Path, path.Ext(result.Output.Name))
	if err := o.store.Upload(ctx, destKey, result.Output.MIME, result.Output.Data); err != nil {
		return pipeline.Result{}, o.fail(ctx, job, fmt.Errorf("rendition upload failed: %w", err))
	}
	metrics.BytesUploaded.Add(float64(len(result.Output.Data)))

	if err := o.db.MarkProcessed(ctx, job.MediaID, database.ProcessedResult{
		ProcessedPath:      destKey,
		Width:              result.Dimensions.Width,
		Height:             result.Dimensions.Height,
		OptimizedSizeBytes: result.Metrics.OutputSizeBytes,
	}); err != nil {
		return pipeline.Result{}, o.fail(ctx, job, fmt.Errorf("failed to record result: %w", err))
	}

	metrics.JobsTotal.WithLabelValues("image", "success").Inc()
	metrics.CompressionRatio.WithLabelValues("image").Observe(float64(result.Metrics.CompressionRatioPercent))
	return result, nil
}

func (o *ImageOrchestrator) fail(ctx context.Context, job Job, cause error) error {
	metrics.JobsTotal.WithLabelValues("image", "failure").Inc()

	logging.Error("image job %s failed: %v", job.MediaID, cause)
	if err := o.db.MarkFailed(ctx, job.MediaID, cause.Error()); err != nil {
		logging.Error("failed to record failure for %s: %v", job.MediaID, err)
	}
	return cause
}
