package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	payload := []byte("source bytes")
	if err := store.Upload(ctx, "raw/videos/v1.mp4", "video/mp4", payload); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}

	data, contentType, err := store.Download(ctx, "raw/videos/v1.mp4")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(data) != "source bytes" {
		t.Errorf("Download() data = %q, want %q", data, payload)
	}
	if contentType != "video/mp4" {
		t.Errorf("Download() contentType = %q, want video/mp4", contentType)
	}

	// Mutating the returned slice must not corrupt the stored object.
	data[0] = 'X'
	again, _, err := store.Download(ctx, "raw/videos/v1.mp4")
	if err != nil {
		t.Fatalf("Download() error: %v", err)
	}
	if string(again) != "source bytes" {
		t.Error("Download() shares backing storage with callers")
	}
}

func TestMemoryStoreDownloadMissing(t *testing.T) {
	store := NewMemoryStore()

	_, _, err := store.Download(context.Background(), "raw/missing.mp4")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Download() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreSignedURL(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.SignedURL(ctx, "nope", time.Minute); !errors.Is(err, ErrNotFound) {
		t.Errorf("SignedURL() error = %v for missing key, want ErrNotFound", err)
	}

	if err := store.Upload(ctx, "processed/p.webm", "video/webm", []byte("x")); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	url, err := store.SignedURL(ctx, "processed/p.webm", 5*time.Minute)
	if err != nil {
		t.Fatalf("SignedURL() error: %v", err)
	}
	if !strings.HasPrefix(url, "memory://processed/p.webm") {
		t.Errorf("SignedURL() = %q, want memory:// URL for the key", url)
	}
	if !strings.Contains(url, "expires=300s") {
		t.Errorf("SignedURL() = %q, want TTL in seconds", url)
	}
}

func TestMemoryStoreHas(t *testing.T) {
	store := NewMemoryStore()
	if store.Has("k") {
		t.Error("Has() true for missing key")
	}
	if err := store.Upload(context.Background(), "k", "text/plain", nil); err != nil {
		t.Fatalf("Upload() error: %v", err)
	}
	if !store.Has("k") {
		t.Error("Has() false for stored key")
	}
}
