package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'",
	} {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestMaxBodySizeRejectsDeclaredOversize(t *testing.T) {
	req := httptest.NewRequest("PUT", "/rooms/abc1234/code", strings.NewReader(strings.Repeat("a", 100)))
	req.ContentLength = 100

	rec := httptest.NewRecorder()
	MaxBodySize(50)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status %d, want 413", rec.Code)
	}
}

func TestMaxBodySizeAllowsSmallBody(t *testing.T) {
	req := httptest.NewRequest("PUT", "/rooms/abc1234/code", strings.NewReader("ok"))

	rec := httptest.NewRecorder()
	MaxBodySize(50)(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}
}

func TestValidateRequestContentType(t *testing.T) {
	req := httptest.NewRequest("POST", "/rooms/abc1234/images", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "text/plain")

	rec := httptest.NewRecorder()
	ValidateRequest(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("status %d, want 415", rec.Code)
	}

	req = httptest.NewRequest("POST", "/rooms/abc1234/images", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	ValidateRequest(okHandler()).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status %d, want 200", rec.Code)
	}
}

func TestValidateRequestBlocksSuspiciousPaths(t *testing.T) {
	for _, path := range []string{
		"/rooms/../etc/passwd",
		"/rooms//abc",
		"/rooms/%3Cscript%3E",
	} {
		req := httptest.NewRequest("GET", "http://example.com"+path, nil)
		rec := httptest.NewRecorder()
		ValidateRequest(okHandler()).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("path %q: status %d, want 400", path, rec.Code)
		}
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/health", "/health"},
		{"/rooms", "/rooms"},
		{"/rooms/abc1234", "/rooms/:id"},
		{"/rooms/abc1234/code", "/rooms/:id/code"},
		{"/rooms/abc1234/images", "/rooms/:id/images"},
		{"/rooms/abc1234/images/01HXYZ", "/rooms/:id/images/:imageId"},
	}
	for _, tt := range tests {
		if got := normalizePath(tt.in); got != tt.want {
			t.Errorf("normalizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
