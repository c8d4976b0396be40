package security

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHeadersMiddleware(t *testing.T) {
	h := NewHeadersMiddleware(DefaultHeadersConfig()).Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := rr.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q", got)
	}
	if rr.Header().Get("Content-Security-Policy") == "" {
		t.Error("missing CSP")
	}
	if _, ok := rr.Header()["Cross-Origin-Embedder-Policy"]; ok {
		t.Error("empty policies should not be sent")
	}
	if rr.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must only be sent over TLS")
	}

	rr = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.TLS = &tls.ConnectionState{}
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("HSTS = %q", got)
	}
}

func TestNoStore(t *testing.T) {
	rr := httptest.NewRecorder()
	NoStore(http.NotFoundHandler()).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if got := rr.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Cache-Control = %q", got)
	}
}

func TestDetector_Inspect(t *testing.T) {
	d := NewDetector(nil, nil)

	tests := []struct {
		name   string
		method string
		target string
		ua     string
		want   string
	}{
		{"plain form post", http.MethodPost, "/analyze", "Mozilla/5.0", ""},
		{"path traversal", http.MethodGet, "/static/../.env", "Mozilla/5.0", "pattern"},
		{"encoded spaces are not decoded", http.MethodGet, "/?q=1+union+select", "Mozilla/5.0", ""},
		{"script in query", http.MethodGet, "/?q=<script>", "Mozilla/5.0", "pattern"},
		{"scanner agent", http.MethodGet, "/", "sqlmap/1.7", "user_agent"},
		{"trace method", "TRACE", "/", "Mozilla/5.0", "method"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			req.Header.Set("User-Agent", tt.ua)
			if got := d.Inspect(req); got != tt.want {
				t.Errorf("Inspect() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetector_MiddlewareCounts(t *testing.T) {
	var reasons []string
	d := NewDetector(nil, func(reason string) { reasons = append(reasons, reason) })
	served := false
	h := d.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { served = true }))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/wp-admin", nil))

	if !served {
		t.Fatal("suspicious requests are still served")
	}
	if d.SuspiciousRequests() != 1 || len(reasons) != 1 || reasons[0] != "pattern" {
		t.Fatalf("count = %d, reasons = %v", d.SuspiciousRequests(), reasons)
	}
}

func TestDetector_ExtractClientIP(t *testing.T) {
	d := NewDetector(nil, nil)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		want       string
	}{
		{"direct", "203.0.113.5:4000", "", "", "203.0.113.5"},
		{"untrusted proxy headers ignored", "203.0.113.5:4000", "198.51.100.1", "", "203.0.113.5"},
		{"trusted proxy xff", "10.0.0.2:4000", "198.51.100.1, 10.0.0.2", "", "198.51.100.1"},
		{"trusted proxy x-real-ip", "127.0.0.1:4000", "", "198.51.100.7", "198.51.100.7"},
		{"trusted proxy garbage header", "192.168.1.1:4000", "not-an-ip", "", "192.168.1.1"},
		{"no port", "203.0.113.5", "", "", "203.0.113.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}
			if got := d.ExtractClientIP(req); got != tt.want {
				t.Errorf("ExtractClientIP() = %q, want %q", got, tt.want)
			}
		})
	}

	if err := d.AddTrustedProxy("bogus"); err == nil {
		t.Error("expected error for invalid CIDR")
	}
}
