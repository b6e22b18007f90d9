package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		xff        string
		xri        string
		remoteAddr string
		want       string
	}{
		{name: "remote addr with port", remoteAddr: "192.168.1.1:12345", want: "192.168.1.1"},
		{name: "ipv6 remote addr", remoteAddr: "[::1]:12345", want: "::1"},
		{name: "remote addr without port", remoteAddr: "192.168.1.1", want: "192.168.1.1"},
		{name: "headers ignored when untrusted", xff: "1.2.3.4", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "XFF single IP", trustProxy: true, xff: "1.2.3.4", remoteAddr: "10.0.0.1:1234", want: "1.2.3.4"},
		{name: "XFF takes first", trustProxy: true, xff: "1.2.3.4, 10.0.0.1, 10.0.0.2", remoteAddr: "10.0.0.3:1234", want: "1.2.3.4"},
		{name: "XFF over X-Real-IP", trustProxy: true, xff: "1.2.3.4", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "1.2.3.4"},
		{name: "X-Real-IP fallback", trustProxy: true, xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "5.6.7.8"},
		{name: "X-Real-IP with port", trustProxy: true, xri: "5.6.7.8:443", remoteAddr: "10.0.0.1:1234", want: "5.6.7.8"},
		{name: "garbage XFF skipped", trustProxy: true, xff: "unknown", xri: "5.6.7.8", remoteAddr: "10.0.0.1:1234", want: "5.6.7.8"},
		{name: "garbage headers fall back", trustProxy: true, xff: "nope", xri: "also-nope", remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
		{name: "no headers", trustProxy: true, remoteAddr: "10.0.0.1:1234", want: "10.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &http.Request{RemoteAddr: tt.remoteAddr, Header: http.Header{}}
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				r.Header.Set("X-Real-IP", tt.xri)
			}
			if got := ClientIP(r, tt.trustProxy); got != tt.want {
				t.Errorf("ClientIP(trustProxy=%v) = %q, want %q", tt.trustProxy, got, tt.want)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, http.StatusNotFound, "unknown body")

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["error"] != "unknown body" {
		t.Errorf("error = %q", resp["error"])
	}
}
