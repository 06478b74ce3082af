package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	rr := httptest.NewRecorder()
	rw := newResponseWriter(rr)

	rw.WriteHeader(http.StatusTeapot)
	rw.WriteHeader(http.StatusOK) // second call must be ignored
	if _, err := rw.Write([]byte("hello")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if _, err := rw.Write([]byte(" world")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	if rw.statusCode != http.StatusTeapot {
		t.Errorf("statusCode = %d, want %d", rw.statusCode, http.StatusTeapot)
	}
	if rr.Code != http.StatusTeapot {
		t.Errorf("recorded code = %d, want %d", rr.Code, http.StatusTeapot)
	}
	if rw.bytesWritten != 11 {
		t.Errorf("bytesWritten = %d, want 11", rw.bytesWritten)
	}
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	rw := newResponseWriter(httptest.NewRecorder())
	if _, err := rw.Write([]byte("implicit 200")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if rw.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rw.statusCode)
	}
}

func TestLoggerPassesRequestThrough(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusCreated)
	})

	handler := Logger(DefaultLoggingConfig())(next)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("POST", "/jobs/transcode", nil))

	if !called {
		t.Fatal("next handler not invoked")
	}
	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d, want 201", rr.Code)
	}
}

func TestLoggerSkipsHealthChecks(t *testing.T) {
	// Health probes bypass the wrapping writer entirely.
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := w.(*responseWriter); ok {
			t.Error("health request was wrapped for logging")
		}
	})
	handler := Logger(DefaultLoggingConfig())(next)
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))
}

func TestSanitizeLogField(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"/media/abc", "/media/abc"},
		{"/media/a\nb", "/media/ab"},
		{"/media/a\r\nINJECTED", "/media/aINJECTED"},
		{"/media/a\x1b[31m", "/media/a[31m"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := sanitizeLogField(tt.in); got != tt.want {
			t.Errorf("sanitizeLogField(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
