package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"transcode-server/internal/cache"
	"transcode-server/internal/database"
	"transcode-server/internal/storage"
	"transcode-server/internal/transcoder"
	"transcode-server/internal/workers"
)

// Handlers holds the dependencies for all HTTP handlers.
type Handlers struct {
	db        *database.Store
	store     storage.ObjectStore
	bucket    string
	video     *transcoder.Transcoder
	image     *transcoder.ImageOrchestrator
	urlCache  *cache.TTL
	signedTTL time.Duration
	startTime time.Time

	// sem caps concurrent encodes across requests.
	sem chan struct{}
}

// New creates the handler set. bucket is the single bucket the service
// is bound to; jobs naming any other bucket are rejected (empty accepts
// all, for local development). maxConcurrent caps simultaneous encode
// jobs; 0 sizes the cap from available CPU.
func New(db *database.Store, store storage.ObjectStore, bucket string,
	video *transcoder.Transcoder, image *transcoder.ImageOrchestrator,
	urlCache *cache.TTL, signedTTL time.Duration, maxConcurrent int) *Handlers {
	if maxConcurrent <= 0 {
		maxConcurrent = workers.ForCPU(0)
	}
	return &Handlers{
		db:        db,
		store:     store,
		bucket:    bucket,
		video:     video,
		image:     image,
		urlCache:  urlCache,
		signedTTL: signedTTL,
		startTime: time.Now(),
		sem:       make(chan struct{}, maxConcurrent),
	}
}

// Router builds the service router. Unknown routes get the fixed
// 404 body.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/jobs/transcode", h.TranscodeJob).Methods("POST")
	r.HandleFunc("/jobs/image", h.ImageJob).Methods("POST")
	r.HandleFunc("/media/{mediaId}", h.GetMedia).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(h.NotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(h.NotFound)

	return r
}

// NotFound writes the fixed unknown-route body.
func (h *Handlers) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeJSONStatusCode(w, http.StatusNotFound, map[string]interface{}{
		"ok":    false,
		"error": "Route not found",
	})
}

// acquire blocks until an encode slot is free or ctx is done.
func (h *Handlers) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handlers) release() {
	<-h.sem
}
