package health

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

type checker bool

func (c checker) Ready() bool { return bool(c) }

func TestHealthz(t *testing.T) {
	w := httptest.NewRecorder()
	Healthz(w, httptest.NewRequest("GET", "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok\n" {
		t.Errorf("Healthz = %d %q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name   string
		ready  bool
		status int
		body   string
	}{
		{"before first tick", false, http.StatusServiceUnavailable, "not ready\n"},
		{"ticking", true, http.StatusOK, "ready\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Readyz(checker(tt.ready))(w, httptest.NewRequest("GET", "/readyz", nil))
			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if w.Body.String() != tt.body {
				t.Errorf("body = %q, want %q", w.Body.String(), tt.body)
			}
		})
	}
}
