package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"transcode-server/internal/cache"
	"transcode-server/internal/database"
	"transcode-server/internal/mediatypes"
	"transcode-server/internal/pipeline"
	"transcode-server/internal/storage"
	"transcode-server/internal/transcoder"
)

// stubEngine writes canned artifacts so the video path runs without
// FFmpeg.
type stubEngine struct {
	crfSeen int
}

func (s *stubEngine) Probe(context.Context, string) (*transcoder.MediaInfo, error) {
	return &transcoder.MediaInfo{
		Dimensions: mediatypes.Dimensions{Width: 1920, Height: 1080},
		Duration:   10,
		VideoCodec: "h264",
	}, nil
}

func (s *stubEngine) EncodeWebM(_ context.Context, _, dst string, crf int, _ mediatypes.Dimensions) error {
	s.crfSeen = crf
	return os.WriteFile(dst, make([]byte, 2500), 0o600)
}

func (s *stubEngine) ExtractPoster(_ context.Context, _, dst string, _ time.Duration) error {
	return os.WriteFile(dst, []byte("poster"), 0o600)
}

// passthroughEncoder keeps the image path deterministic in tests.
type passthroughEncoder struct{}

func (passthroughEncoder) Encode(src []byte, target mediatypes.Dimensions, _ float64) (*pipeline.EncodedImage, error) {
	return &pipeline.EncodedImage{Data: make([]byte, len(src)/2), Dims: target}, nil
}

type testEnv struct {
	h      *Handlers
	router http.Handler
	store  *storage.MemoryStore
	db     *database.Store
	engine *stubEngine
	cache  *cache.TTL
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.New(context.Background(), filepath.Join(t.TempDir(), "media.db"))
	if err != nil {
		t.Fatalf("database.New() error: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Close() error: %v", err)
		}
	})

	store := storage.NewMemoryStore()
	engine := &stubEngine{}
	video := transcoder.New(engine, store, db, 0)
	proc := pipeline.NewProcessor(passthroughEncoder{}, pipeline.DefaultOptions())
	image := transcoder.NewImageOrchestrator(proc, store, db)

	urlCache := cache.NewTTL(5*time.Minute, time.Minute)
	t.Cleanup(urlCache.Stop)

	h := New(db, store, "media", video, image, urlCache, 5*time.Minute, 2)
	return &testEnv{h: h, router: h.Router(), store: store, db: db, engine: engine, cache: urlCache}
}

func (e *testEnv) request(t *testing.T, method, path string, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	var decoded map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("response %q is not JSON: %v", rr.Body.String(), err)
	}
	return rr, decoded
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rr, body := env.request(t, "GET", "/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if _, ok := body["memory"].(map[string]interface{}); !ok {
		t.Errorf("memory section missing: %v", body)
	}
	if _, ok := body["uptime"].(float64); !ok {
		t.Errorf("uptime missing: %v", body)
	}
	if rr.Header().Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", rr.Header().Get("Content-Type"))
	}
}

func TestUnknownRoute(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/nope", "/jobs", "/jobs/other"} {
		rr, body := env.request(t, "GET", path, "")
		if rr.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rr.Code)
		}
		if body["ok"] != false || body["error"] != "Route not found" {
			t.Errorf("GET %s body = %v, want fixed 404 body", path, body)
		}
	}

	// Wrong method gets the same body as an unknown path.
	rr, body := env.request(t, "GET", "/jobs/transcode", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET /jobs/transcode status = %d, want 404", rr.Code)
	}
	if body["error"] != "Route not found" {
		t.Errorf("body = %v, want fixed 404 body", body)
	}
}

func TestTranscodeJobValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		body string
	}{
		{"Empty body", ""},
		{"Malformed JSON", "{nope"},
		{"Empty object", "{}"},
		{"Missing mediaId", `{"bucket":"media","path":"raw/v.mp4"}`},
		{"Missing path", `{"bucket":"media","mediaId":"m1"}`},
		{"Missing bucket", `{"path":"raw/v.mp4","mediaId":"m1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr, body := env.request(t, "POST", "/jobs/transcode", tt.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rr.Code)
			}
			if body["error"] != "Missing required parameters: bucket, path, mediaId" {
				t.Errorf("error = %v, want the fixed validation message", body["error"])
			}
			if body["ok"] != false {
				t.Errorf("ok = %v, want false", body["ok"])
			}
		})
	}
}

func TestJobRejectsUnknownBucket(t *testing.T) {
	env := newTestEnv(t)

	if err := env.store.Upload(context.Background(), "raw/v.mp4", "video/mp4", []byte("data")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	// The handlers are bound to one bucket; a job naming any other must be
	// rejected before it touches storage or the database.
	for _, route := range []string{"/jobs/transcode", "/jobs/image"} {
		rr, body := env.request(t, "POST", route,
			`{"bucket":"other","path":"raw/v.mp4","mediaId":"m-other"}`)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("POST %s status = %d, want 400", route, rr.Code)
		}
		if body["ok"] != false {
			t.Errorf("POST %s ok = %v, want false", route, body["ok"])
		}
		if body["error"] != "Unknown bucket: other" {
			t.Errorf("POST %s error = %v, want Unknown bucket: other", route, body["error"])
		}
	}

	if env.engine.crfSeen != 0 {
		t.Errorf("engine ran (crf %d) for a rejected bucket", env.engine.crfSeen)
	}
	if _, err := env.db.Get(context.Background(), "m-other"); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound for a rejected job", err)
	}
}

func TestTranscodeJobSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.store.Upload(ctx, "raw/videos/v1.mp4", "video/mp4", make([]byte, 10_000)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	rr, body := env.request(t, "POST", "/jobs/transcode",
		`{"bucket":"media","path":"raw/videos/v1.mp4","mediaId":"m1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", rr.Code, body)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	if body["mediaId"] != "m1" {
		t.Errorf("mediaId = %v, want m1", body["mediaId"])
	}
	if _, ok := body["processingTime"].(float64); !ok {
		t.Errorf("processingTime missing: %v", body)
	}

	result, ok := body["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("result missing: %v", body)
	}
	if result["webmPath"] != "processed/videos/v1.webm" {
		t.Errorf("webmPath = %v, want processed/videos/v1.webm", result["webmPath"])
	}
	if result["posterPath"] != "processed/videos/v1.jpg" {
		t.Errorf("posterPath = %v, want processed/videos/v1.jpg", result["posterPath"])
	}
	if result["compressionRatio"] != float64(75) {
		t.Errorf("compressionRatio = %v, want 75", result["compressionRatio"])
	}
	if result["dimensions"] != "1920x1080" {
		t.Errorf("dimensions = %v, want 1920x1080", result["dimensions"])
	}

	// The CRF default applies when the request omits it.
	if env.engine.crfSeen != transcoder.DefaultCRF {
		t.Errorf("crf = %d, want %d", env.engine.crfSeen, transcoder.DefaultCRF)
	}
}

func TestTranscodeJobExplicitCRF(t *testing.T) {
	env := newTestEnv(t)

	if err := env.store.Upload(context.Background(), "raw/v.mp4", "video/mp4", []byte("data")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	rr, _ := env.request(t, "POST", "/jobs/transcode",
		`{"bucket":"media","path":"raw/v.mp4","mediaId":"m2","crf":24}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if env.engine.crfSeen != 24 {
		t.Errorf("crf = %d, want 24", env.engine.crfSeen)
	}
}

func TestTranscodeJobFailure(t *testing.T) {
	env := newTestEnv(t)

	rr, body := env.request(t, "POST", "/jobs/transcode",
		`{"bucket":"media","path":"raw/missing.mp4","mediaId":"m3"}`)
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if body["ok"] != false {
		t.Errorf("ok = %v, want false", body["ok"])
	}
	if body["mediaId"] != "m3" {
		t.Errorf("mediaId = %v, want m3", body["mediaId"])
	}
	errMsg, _ := body["error"].(string)
	if !strings.Contains(errMsg, "download failed") {
		t.Errorf("error = %q, want download failure message", errMsg)
	}

	// The failure must also be recorded.
	rec, err := env.db.Get(context.Background(), "m3")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if rec.ProcessingStatus != database.StatusFailed {
		t.Errorf("ProcessingStatus = %q, want %q", rec.ProcessingStatus, database.StatusFailed)
	}
}

func TestImageJobSuccess(t *testing.T) {
	env := newTestEnv(t)

	// Fake-HEIC payload takes the zero-cost passthrough route.
	payload := []byte{0x00, 0x00, 0x00, 0x18}
	payload = append(payload, []byte("ftypheicmif1heic")...)
	payload = append(payload, 0xFF, 0xD8, 0xFF, 0xE0)
	if err := env.store.Upload(context.Background(), "raw/images/shot.heic", "image/heic", payload); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	rr, body := env.request(t, "POST", "/jobs/image",
		`{"bucket":"media","path":"raw/images/shot.heic","mediaId":"img1"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %v)", rr.Code, body)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	if body["path"] != pipeline.StrategyJPEGPassthrough {
		t.Errorf("path = %v, want %q", body["path"], pipeline.StrategyJPEGPassthrough)
	}
	if body["file"] != "shot.jpg" {
		t.Errorf("file = %v, want shot.jpg", body["file"])
	}
	if id, _ := body["id"].(string); id == "" {
		t.Errorf("id missing: %v", body)
	}
	if !env.store.Has("processed/images/shot.jpg") {
		t.Error("relabeled artifact not uploaded")
	}
}

func TestGetMedia(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rr, _ := env.request(t, "GET", "/media/ghost", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d for unknown media, want 404", rr.Code)
	}

	// Run a full job so the record has artifact paths.
	if err := env.store.Upload(ctx, "raw/videos/v1.mp4", "video/mp4", make([]byte, 10_000)); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if rr, body := env.request(t, "POST", "/jobs/transcode",
		`{"bucket":"media","path":"raw/videos/v1.mp4","mediaId":"m1"}`); rr.Code != http.StatusOK {
		t.Fatalf("transcode status = %d (body %v)", rr.Code, body)
	}

	rr, body := env.request(t, "GET", "/media/m1", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body["ok"] != true {
		t.Errorf("ok = %v, want true", body["ok"])
	}
	record, ok := body["record"].(map[string]interface{})
	if !ok {
		t.Fatalf("record missing: %v", body)
	}
	if record["processingStatus"] != database.StatusProcessed {
		t.Errorf("processingStatus = %v, want %q", record["processingStatus"], database.StatusProcessed)
	}
	processedURL, _ := body["processedUrl"].(string)
	if !strings.HasPrefix(processedURL, "memory://processed/videos/v1.webm") {
		t.Errorf("processedUrl = %q, want signed URL for the rendition", processedURL)
	}
	thumbnailURL, _ := body["thumbnailUrl"].(string)
	if !strings.HasPrefix(thumbnailURL, "memory://processed/videos/v1.jpg") {
		t.Errorf("thumbnailUrl = %q, want signed URL for the poster", thumbnailURL)
	}

	// The signed URLs land in the cache and are reused on the next lookup.
	if _, ok := env.cache.Get("processed/videos/v1.webm"); !ok {
		t.Error("signed URL not cached")
	}
	if _, again := env.request(t, "GET", "/media/m1", ""); again["processedUrl"] != processedURL {
		t.Errorf("processedUrl changed across lookups: %v vs %v", again["processedUrl"], processedURL)
	}
}
