package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-recommender/internal/config"
	"github.com/iliyamo/cinema-recommender/internal/utils"
)

func serve(t *testing.T, mw []echo.MiddlewareFunc, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/ping", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"subject": c.Get(CtxSubject), "role": c.Get(CtxRole)})
	}, mw...)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func bearer(t *testing.T, secret, role string, ttl time.Duration) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, "operator", role, ttl)
	if err != nil {
		t.Fatalf("NewAccessToken() error = %v", err)
	}
	return "Bearer " + tok.Token
}

func TestJWTAuthAndRole(t *testing.T) {
	chain := []echo.MiddlewareFunc{JWTAuth("s3cret"), RequireRole(utils.RoleOperator)}
	tests := []struct {
		name   string
		auth   string
		status int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"bad signature", bearer(t, "other", utils.RoleOperator, time.Minute), http.StatusUnauthorized},
		{"expired", bearer(t, "s3cret", utils.RoleOperator, -time.Minute), http.StatusUnauthorized},
		{"wrong role", bearer(t, "s3cret", "GUEST", time.Minute), http.StatusForbidden},
		{"operator", bearer(t, "s3cret", utils.RoleOperator, time.Minute), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.auth != "" {
				req.Header.Set("Authorization", tt.auth)
			}
			rec := serve(t, chain, req)
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

type fakeChecker struct {
	ok  bool
	err error
}

func (f fakeChecker) Initialized(context.Context) (bool, error) { return f.ok, f.err }

func TestRequireInitialized(t *testing.T) {
	tests := []struct {
		name    string
		checker fakeChecker
		status  int
	}{
		{"initialized", fakeChecker{ok: true}, http.StatusOK},
		{"not initialized", fakeChecker{}, http.StatusServiceUnavailable},
		{"check failed", fakeChecker{err: errors.New("boom")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, []echo.MiddlewareFunc{RequireInitialized(tt.checker)}, httptest.NewRequest(http.MethodGet, "/ping", nil))
			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			if tt.status == http.StatusServiceUnavailable && !strings.Contains(rec.Body.String(), "initialization is required") {
				t.Errorf("body = %s", rec.Body)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	chain := []echo.MiddlewareFunc{RequestID(), RequestLogger()}

	rec := serve(t, chain, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if got := rec.Header().Get(HeaderRequestID); len(got) != 36 {
		t.Errorf("generated id = %q, want a UUID", got)
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	rec = serve(t, chain, req)
	if got := rec.Header().Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("echoed id = %q, want abc-123", got)
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/movies", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/v1/movies")

	tests := []struct {
		strategy string
		want     string
	}{
		{"ip", "rl:ip:10.0.0.1"},
		{"ip_route", "rl:ip:10.0.0.1:route:GET /v1/movies"},
		{"user", "rl:user:anon"},
		{"nonsense", "rl:ip:10.0.0.1:user:anon:route:GET /v1/movies"},
	}
	for _, tt := range tests {
		got := rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: tt.strategy}, c)
		if got != tt.want {
			t.Errorf("rateKey(%q) = %q, want %q", tt.strategy, got, tt.want)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	for ms, want := range map[int64]int{0: 0, 1: 1, 1000: 1, 1001: 2, -5: 0} {
		if got := retryAfterSeconds(ms); got != want {
			t.Errorf("retryAfterSeconds(%d) = %d, want %d", ms, got, want)
		}
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"text/plain; charset=UTF-8"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte("---\nid\n---\n"))
	if err != nil {
		t.Fatalf("encodePayload() error = %v", err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || string(body) != "---\nid\n---\n" {
		t.Fatalf("decodePayload() = %d, %q, %v", status, body, ok)
	}
	if got.Get("Content-Type") != "text/plain; charset=UTF-8" {
		t.Errorf("header = %v", got)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Error("decodePayload(short) ok = true")
	}
}

func TestCacheKey_DistinguishesFormatAndParams(t *testing.T) {
	e := echo.New()
	key := func(target string, id string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/users/:id/movies")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKey(config.CacheConfig{Prefix: "p", KeyStrategy: "route_query"}, c)
	}
	a := key("/v1/users/1/movies", "1")
	if b := key("/v1/users/2/movies", "2"); a == b {
		t.Error("different ids share a key")
	}
	if b := key("/v1/users/1/movies?format=table", "1"); a == b {
		t.Error("different formats share a key")
	}
	if !strings.HasPrefix(a, "p:") {
		t.Errorf("key %q lacks prefix", a)
	}
}

func TestResponseCache_DisabledPassesThrough(t *testing.T) {
	rc := NewResponseCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}}, nil)
	rec := serve(t, []echo.MiddlewareFunc{rc.Middleware()}, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("X-Cache") != "" {
		t.Errorf("status = %d, X-Cache = %q", rec.Code, rec.Header().Get("X-Cache"))
	}
	if err := rc.Purge(context.Background()); err != nil {
		t.Errorf("Purge() error = %v", err)
	}
}
