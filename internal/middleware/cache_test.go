package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/sportfield/reservation/internal/config"
)

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{}
	hdr.Set("Content-Type", "application/json")
	body := []byte(`{"ok":true}`)

	encoded, err := encodePayload(http.StatusCreated, hdr, body)
	if err != nil {
		t.Fatalf("encodePayload: %v", err)
	}
	status, gotHdr, gotBody, ok := decodePayload(encoded)
	if !ok {
		t.Fatal("decodePayload rejected its own encoding")
	}
	if status != http.StatusCreated {
		t.Errorf("status = %d, want 201", status)
	}
	if gotHdr.Get("Content-Type") != "application/json" {
		t.Errorf("header lost in round trip: %v", gotHdr)
	}
	if string(gotBody) != string(body) {
		t.Errorf("body = %q, want %q", gotBody, body)
	}
}

func TestDecodePayloadRejectsGarbage(t *testing.T) {
	if _, _, _, ok := decodePayload([]byte("short")); ok {
		t.Error("short input accepted")
	}
	// Header length pointing past the buffer.
	bad := []byte{0, 0, 0, 200, 0, 0, 255, 255, 1, 2, 3}
	if _, _, _, ok := decodePayload(bad); ok {
		t.Error("oversized header length accepted")
	}
}

func TestCacheKeyStrategies(t *testing.T) {
	cfg := config.CacheConfig{Prefix: "cache", KeyStrategy: "route_query"}
	e := echo.New()

	ctxFor := func(target string) echo.Context {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetPath("/v1/rents")
		return c
	}

	a := cacheKeyFrom(cfg, ctxFor("/v1/rents?status=pending"))
	b := cacheKeyFrom(cfg, ctxFor("/v1/rents?status=pending"))
	if a != b {
		t.Errorf("same request produced different keys: %q vs %q", a, b)
	}
	c := cacheKeyFrom(cfg, ctxFor("/v1/rents?status=confirmed"))
	if a == c {
		t.Errorf("different queries collided under route_query strategy")
	}

	// The route strategy ignores the query string.
	cfg.KeyStrategy = "route"
	d := cacheKeyFrom(cfg, ctxFor("/v1/rents?status=pending"))
	f := cacheKeyFrom(cfg, ctxFor("/v1/rents?status=confirmed"))
	if d != f {
		t.Errorf("route strategy should ignore the query string")
	}
}

func TestCacheableSkipsOversizedAndFailedResponses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		size   int64
		limit  int64
		want   bool
	}{
		{"ok within limit", http.StatusOK, 100, 1024, true},
		{"ok at limit", http.StatusOK, 1024, 1024, true},
		{"oversized body never cached truncated", http.StatusOK, 2048, 1024, false},
		{"no limit", http.StatusOK, 1 << 30, 0, true},
		{"non-200", http.StatusNotFound, 10, 1024, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := cacheable(tc.status, tc.size, tc.limit); got != tc.want {
				t.Errorf("cacheable(%d, %d, %d) = %v, want %v", tc.status, tc.size, tc.limit, got, tc.want)
			}
		})
	}
}

func TestCaptureWriterHonorsLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}

	if _, err := cw.Write([]byte("abcdef")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got := cw.buf.String(); got != "abcd" {
		t.Errorf("captured %q, want %q", got, "abcd")
	}
	// The client still receives the full body.
	if rec.Body.String() != "abcdef" {
		t.Errorf("forwarded body = %q", rec.Body.String())
	}
}
