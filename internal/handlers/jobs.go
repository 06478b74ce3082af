package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"transcode-server/internal/logging"
	"transcode-server/internal/transcoder"
)

const missingParamsError = "Missing required parameters: bucket, path, mediaId"

// transcodeRequest is the body of POST /jobs/transcode and
// POST /jobs/image.
type transcodeRequest struct {
	Bucket  string `json:"bucket"`
	Path    string `json:"path"`
	MediaID string `json:"mediaId"`
	CRF     *int   `json:"crf,omitempty"`

	// MaxDimension optionally overrides the image pipeline's long-edge
	// cap. Ignored by the video path.
	MaxDimension int `json:"maxDimension,omitempty"`
}

func (req *transcodeRequest) valid() bool {
	return req.Bucket != "" && req.Path != "" && req.MediaID != ""
}

func (h *Handlers) decodeJobRequest(w http.ResponseWriter, r *http.Request) (*transcodeRequest, bool) {
	var req transcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !req.valid() {
		writeJSONStatusCode(w, http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": missingParamsError,
		})
		return nil, false
	}

	// The service reads and writes exactly one configured bucket.
	// Accepting any other name would silently touch the wrong objects.
	if h.bucket != "" && req.Bucket != h.bucket {
		writeJSONStatusCode(w, http.StatusBadRequest, map[string]interface{}{
			"ok":    false,
			"error": fmt.Sprintf("Unknown bucket: %s", req.Bucket),
		})
		return nil, false
	}
	return &req, true
}

// TranscodeJob handles POST /jobs/transcode: one synchronous VP9/Opus
// encode of the referenced source object.
func (h *Handlers) TranscodeJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeJobRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()

	if err := h.acquire(r.Context()); err != nil {
		h.jobFailure(w, req.MediaID, start, err)
		return
	}
	defer h.release()

	job := transcoder.Job{
		Bucket:  req.Bucket,
		Path:    req.Path,
		MediaID: req.MediaID,
	}
	if req.CRF != nil {
		job.CRF = *req.CRF
	}

	result, err := h.video.ProcessJob(r.Context(), job)
	if err != nil {
		h.jobFailure(w, req.MediaID, start, err)
		return
	}

	writeJSONStatusCode(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"mediaId":        req.MediaID,
		"processingTime": time.Since(start).Milliseconds(),
		"result":         result,
	})
}

// ImageJob handles POST /jobs/image: the bounded pipeline applied to a
// stored source image. The response mirrors the worker message contract:
// an id plus the uniform result shape.
func (h *Handlers) ImageJob(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeJobRequest(w, r)
	if !ok {
		return
	}

	start := time.Now()

	if err := h.acquire(r.Context()); err != nil {
		h.jobFailure(w, req.MediaID, start, err)
		return
	}
	defer h.release()

	result, err := h.image.ProcessJob(r.Context(), transcoder.Job{
		Bucket:       req.Bucket,
		Path:         req.Path,
		MediaID:      req.MediaID,
		MaxDimension: req.MaxDimension,
	})
	if err != nil {
		writeJSONStatusCode(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":             false,
			"id":             uuid.NewString(),
			"mediaId":        req.MediaID,
			"processingTime": time.Since(start).Milliseconds(),
			"errorKind":      result.ErrorKind,
			"error":          err.Error(),
		})
		return
	}

	writeJSONStatusCode(w, http.StatusOK, map[string]interface{}{
		"ok":               true,
		"id":               uuid.NewString(),
		"mediaId":          req.MediaID,
		"processingTime":   time.Since(start).Milliseconds(),
		"path":             result.Path,
		"file":             result.Output.Name,
		"reductionPercent": result.Metrics.CompressionRatioPercent,
		"quality":          result.Quality,
	})
}

func (h *Handlers) jobFailure(w http.ResponseWriter, mediaID string, start time.Time, err error) {
	logging.Error("job for %s failed: %v", mediaID, err)
	writeJSONStatusCode(w, http.StatusInternalServerError, map[string]interface{}{
		"ok":             false,
		"mediaId":        mediaID,
		"processingTime": time.Since(start).Milliseconds(),
		"error":          err.Error(),
	})
}
