package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/quizgen/internal/auth"
	"github.com/iliyamo/quizgen/internal/clock"
	"github.com/iliyamo/quizgen/internal/config"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

// asUser pretends JWTAuth already ran for uid.
func asUser(uid string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid != "" {
				c.Set(userIDKey, uid)
			}
			return next(c)
		}
	}
}

func do(e *echo.Echo, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	t.Parallel()

	clk := clock.NewFake(time.Now())
	issuer := auth.NewIssuer("secret", "", time.Minute, time.Hour, clk)
	pair, err := issuer.Issue(auth.Subject{Username: "alice", UserID: 42})
	if err != nil {
		t.Fatal(err)
	}

	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return c.String(http.StatusInternalServerError, "no claims")
		}
		return c.String(http.StatusOK, claims.RegisteredClaims.Subject+":"+currentUserID(c))
	}, JWTAuth(issuer))

	tests := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{name: "valid", header: "Bearer " + pair.Access.Value, status: http.StatusOK, body: "alice:42"},
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Token " + pair.Access.Value, status: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + pair.Refresh.Value, status: http.StatusUnauthorized},
		{name: "garbage", header: "Bearer abc.def.ghi", status: http.StatusUnauthorized},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			rec := do(e, http.MethodGet, "/me", http.Header{"Authorization": {test.header}})
			if rec.Code != test.status {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, test.status, rec.Body)
			}
			if test.body != "" && rec.Body.String() != test.body {
				t.Errorf("body = %q, want %q", rec.Body, test.body)
			}
		})
	}
}

func TestTokenBucket(t *testing.T) {
	t.Parallel()

	rdb := newRedis(t)
	cfg := config.RateLimitConfig{
		Enabled:        true,
		Capacity:       2,
		RefillTokens:   1,
		RefillInterval: time.Hour,
		TTL:            2 * time.Hour,
		KeyStrategy:    "user_route",
		Prefix:         "rl",
	}
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.POST("/gen", ok, asUser("1"), NewTokenBucket(cfg, rdb, nil))
	e.POST("/gen2", ok, asUser("2"), NewTokenBucket(cfg, rdb, nil))

	for i := range 2 {
		if rec := do(e, http.MethodPost, "/gen", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("request %d: status %d", i, rec.Code)
		}
	}
	rec := do(e, http.MethodPost, "/gen", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("third request status = %d, want 429", rec.Code)
	}
	if secs, _ := strconv.Atoi(rec.Header().Get("Retry-After")); secs <= 0 || secs > 3600 {
		t.Errorf("Retry-After = %q", rec.Header().Get("Retry-After"))
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == nil {
		t.Errorf("body = %s", rec.Body)
	}

	if rec := do(e, http.MethodPost, "/gen2", nil); rec.Code != http.StatusNoContent {
		t.Errorf("other user throttled: %d", rec.Code)
	}
}

func TestTokenBucketFailsOpen(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	e := echo.New()
	e.POST("/gen", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) },
		NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Hour, TTL: time.Hour}, rdb, nil))
	for range 3 {
		if rec := do(e, http.MethodPost, "/gen", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d with redis down, want pass-through", rec.Code)
		}
	}
}

func TestBuildRateKey(t *testing.T) {
	t.Parallel()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/generate-quiz", nil)
	req.Header.Set("X-Real-IP", "10.0.0.1")
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/generate-quiz")
	c.Set(userIDKey, "9")

	tests := map[string]string{
		"ip":         "rl:ip:10.0.0.1",
		"user":       "rl:user:9",
		"user_route": "rl:user:9:route:POST /api/generate-quiz",
		"":           "rl:ip:10.0.0.1:user:9:route:POST /api/generate-quiz",
	}
	for strategy, want := range tests {
		if got := buildRateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: strategy}, c); got != want {
			t.Errorf("strategy %q: key = %q, want %q", strategy, got, want)
		}
	}
}

func newCachedServer(t *testing.T, rdb *redis.Client) (*echo.Echo, *ResponseCache, *atomic.Int32) {
	t.Helper()
	cache := NewResponseCache(config.CacheConfig{
		Enabled:     true,
		Methods:     map[string]bool{"GET": true},
		TTL:         time.Minute,
		KeyStrategy: "route_query",
		Prefix:      "cache",
	}, rdb, nil)

	var calls atomic.Int32
	e := echo.New()
	handler := func(c echo.Context) error {
		n := calls.Add(1)
		return c.JSON(http.StatusOK, echo.Map{"user": currentUserID(c), "call": n})
	}
	userFromHeader := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if uid := c.Request().Header.Get("X-User"); uid != "" {
				c.Set(userIDKey, uid)
			}
			return next(c)
		}
	}
	e.GET("/history", handler, userFromHeader, cache.Middleware())
	return e, cache, &calls
}

func TestResponseCache(t *testing.T) {
	t.Parallel()

	e, cache, calls := newCachedServer(t, newRedis(t))
	alice := http.Header{"X-User": {"7"}}

	first := do(e, http.MethodGet, "/history", alice)
	if first.Header().Get("X-Cache") != "MISS" {
		t.Fatalf("first X-Cache = %q", first.Header().Get("X-Cache"))
	}
	second := do(e, http.MethodGet, "/history", alice)
	if second.Header().Get("X-Cache") != "HIT" || second.Body.String() != first.Body.String() {
		t.Fatalf("second = %q %s, want cached copy of %s", second.Header().Get("X-Cache"), second.Body, first.Body)
	}
	if ct := second.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("cached content type = %q", ct)
	}

	bob := do(e, http.MethodGet, "/history", http.Header{"X-User": {"8"}})
	if bob.Header().Get("X-Cache") != "MISS" || !bytes.Contains(bob.Body.Bytes(), []byte(`"user":"8"`)) {
		t.Errorf("bob got %q %s", bob.Header().Get("X-Cache"), bob.Body)
	}

	if err := cache.Invalidate(context.Background(), 7); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if rec := do(e, http.MethodGet, "/history", alice); rec.Header().Get("X-Cache") != "MISS" {
		t.Errorf("after invalidate X-Cache = %q, want MISS", rec.Header().Get("X-Cache"))
	}
	if rec := do(e, http.MethodGet, "/history", http.Header{"X-User": {"8"}}); rec.Header().Get("X-Cache") != "HIT" {
		t.Errorf("bob's entry dropped by alice's invalidation")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("handler calls = %d, want 3", got)
	}
}

func TestResponseCacheSkipsAnonymous(t *testing.T) {
	t.Parallel()

	e, _, calls := newCachedServer(t, newRedis(t))
	do(e, http.MethodGet, "/history", nil)
	do(e, http.MethodGet, "/history", nil)
	if calls.Load() != 2 {
		t.Errorf("anonymous responses were cached")
	}
}

func TestResponseCacheDisabled(t *testing.T) {
	t.Parallel()

	cache := NewResponseCache(config.CacheConfig{Enabled: true}, nil, nil)
	if err := cache.Invalidate(context.Background(), 1); err != nil {
		t.Errorf("Invalidate without redis: %v", err)
	}
}

func TestPayloadRoundTrip(t *testing.T) {
	t.Parallel()

	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"a":1}`))
	if err != nil {
		t.Fatal(err)
	}
	status, got, body, ok := decodePayload(bs)
	if !ok || status != http.StatusOK || got.Get("Content-Type") != "application/json" || string(body) != `{"a":1}` {
		t.Errorf("decoded %d %v %q %v", status, got, body, ok)
	}
	if _, _, _, ok := decodePayload(bs[:5]); ok {
		t.Error("truncated payload decoded")
	}
}

func TestRequestLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))
	e := echo.New()
	e.Use(RequestLogger(log))
	e.GET("/boom", func(c echo.Context) error {
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream"})
	}, asUser("5"))

	do(e, http.MethodGet, "/boom?x=1", nil)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line not JSON: %v (%s)", err, buf.String())
	}
	if line["level"] != "ERROR" || line["uri"] != "/boom?x=1" || line["status"] != float64(502) || line["user_id"] != "5" {
		t.Errorf("log line = %v", line)
	}
}
