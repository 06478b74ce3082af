package handlers

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"transcode-server/internal/database"
	"transcode-server/internal/logging"
)

// mediaResponse is the body of GET /media/{mediaId}.
type mediaResponse struct {
	OK           bool                  `json:"ok"`
	Record       *database.MediaRecord `json:"record"`
	ProcessedURL string                `json:"processedUrl,omitempty"`
	ThumbnailURL string                `json:"thumbnailUrl,omitempty"`
}

// GetMedia returns the persisted record for a media id together with
// short-lived signed URLs for any processed artifacts. Signed URLs are
// served from the injected TTL cache; misses hit the object store once.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	mediaID := mux.Vars(r)["mediaId"]

	rec, err := h.db.Get(r.Context(), mediaID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.NotFound(w, r)
			return
		}
		writeJSONStatusCode(w, http.StatusInternalServerError, map[string]interface{}{
			"ok":    false,
			"error": err.Error(),
		})
		return
	}

	resp := mediaResponse{OK: true, Record: rec}
	if rec.ProcessedPath != "" {
		resp.ProcessedURL = h.signedURL(r, rec.ProcessedPath)
	}
	if rec.ThumbnailPath != "" {
		resp.ThumbnailURL = h.signedURL(r, rec.ThumbnailPath)
	}

	writeJSONStatusCode(w, http.StatusOK, resp)
}

// signedURL returns a presigned URL for key, consulting the cache first.
// A signing failure degrades to an empty URL rather than failing the
// record lookup.
func (h *Handlers) signedURL(r *http.Request, key string) string {
	if url, ok := h.urlCache.Get(key); ok {
		return url
	}
	url, err := h.store.SignedURL(r.Context(), key, h.signedTTL)
	if err != nil {
		logging.Warn("failed to sign URL for %s: %v", key, err)
		return ""
	}
	h.urlCache.Set(key, url)
	return url
}
