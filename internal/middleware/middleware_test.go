package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-reservation/internal/config"
	"github.com/iliyamo/parking-reservation/internal/utils"
)

const testSecret = "test-secret"

func bearer(t *testing.T, id uint64, email, role string) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, utils.Claims{UserID: id, Email: email, Role: role}, 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthSetsIdentity(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{
			"id":    c.Get(KeyUserID),
			"email": c.Get(KeyEmail),
			"role":  c.Get(KeyRole),
			"ident": identity(c),
		})
	}, JWTAuth(testSecret))

	rec := serve(e, http.MethodGet, "/me", bearer(t, 7, "alice@example.com", "user"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":7,"email":"alice@example.com","role":"user","ident":"7"}`, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, JWTAuth(testSecret))

	rec := serve(e, http.MethodGet, "/me", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing bearer token")

	rec = serve(e, http.MethodGet, "/me", "Bearer nonsense")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid token")
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }
	e.GET("/admin", ok, JWTAuth(testSecret), RequireRole("admin"))
	e.GET("/any", ok, JWTAuth(testSecret), RequireRole("user", "admin"))

	user := bearer(t, 1, "u@example.com", "user")
	admin := bearer(t, 2, "a@example.com", "admin")

	assert.Equal(t, http.StatusForbidden, serve(e, http.MethodGet, "/admin", user).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/admin", admin).Code)
	assert.Equal(t, http.StatusNoContent, serve(e, http.MethodGet, "/any", user).Code)
}

func TestIdentityAnonymous(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Equal(t, "anon", identity(c))
	c.Set(KeyUserID, uint64(0))
	assert.Equal(t, "anon", identity(c))
}

func TestPayloadRoundTrip(t *testing.T) {
	hdr := http.Header{"Content-Type": {"application/json"}}
	bs, err := encodePayload(http.StatusOK, hdr, []byte(`{"ok":true}`))
	require.NoError(t, err)

	status, got, body, ok := decodePayload(bs)
	require.True(t, ok)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "application/json", got.Get("Content-Type"))
	assert.Equal(t, `{"ok":true}`, string(body))

	_, _, _, ok = decodePayload(bs[:5])
	assert.False(t, ok)
	_, _, _, ok = decodePayload(append([]byte{0, 0, 0, 200, 0, 0, 1, 0}, 'x'))
	assert.False(t, ok)
}

func TestCacheKeyIncludesParamsAndQuery(t *testing.T) {
	e := echo.New()
	cfg := config.CacheConfig{Prefix: "parking:cache", KeyStrategy: "route_query"}
	key := func(id, query string) string {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/lots/"+id+"/spots"+query, nil), httptest.NewRecorder())
		c.SetPath("/v1/lots/:id/spots")
		c.SetParamNames("id")
		c.SetParamValues(id)
		return cacheKeyFrom(cfg, c)
	}
	assert.Equal(t, key("1", "?status=AVAILABLE"), key("1", "?status=AVAILABLE"))
	assert.NotEqual(t, key("1", ""), key("2", ""))
	assert.NotEqual(t, key("1", ""), key("1", "?status=OCCUPIED"))
	assert.Regexp(t, `^parking:cache:[0-9a-f]{40}$`, key("1", ""))
}

func TestCaptureWriterLimit(t *testing.T) {
	rec := httptest.NewRecorder()
	cw := &captureWriter{ResponseWriter: rec, status: http.StatusOK, limit: 4}
	_, err := cw.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = cw.Write([]byte("defg"))
	require.NoError(t, err)

	assert.Equal(t, "abcd", cw.buf.String())
	assert.Equal(t, int64(7), cw.size)
	assert.Equal(t, "abcdefg", rec.Body.String())
}

func TestDisabledMiddlewarePassesThrough(t *testing.T) {
	e := echo.New()
	ok := func(c echo.Context) error { return c.String(http.StatusOK, "ok") }
	e.GET("/a", ok,
		NewTokenBucket(config.RateLimitConfig{Enabled: false}, nil),
		NewRedisCache(config.CacheConfig{Enabled: true}, nil),
		PurgeCache(config.CacheConfig{Enabled: true}, nil),
	)
	rec := serve(e, http.MethodGet, "/a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
	assert.Empty(t, rec.Header().Get("X-Cache"))
}

func TestRedisFailuresFailOpen(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer rdb.Close()

	e := echo.New()
	e.GET("/a", func(c echo.Context) error { return c.String(http.StatusOK, "ok") },
		NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		NewRedisCache(config.CacheConfig{Enabled: true, Methods: map[string]bool{"GET": true}, Prefix: "t", TTL: time.Second}, rdb),
	)
	rec := serve(e, http.MethodGet, "/a", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
}

func TestErrorHandler(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler
	e.GET("/boom", func(c echo.Context) error { return errors.New("db exploded") })
	e.GET("/teapot", func(c echo.Context) error { return echo.NewHTTPError(http.StatusTeapot, "short and stout") })

	rec := serve(e, http.MethodGet, "/boom", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/teapot", "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.JSONEq(t, `{"error":"short and stout"}`, rec.Body.String())

	rec = serve(e, http.MethodGet, "/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsMiddleware(t *testing.T) {
	mw, err := Metrics()
	require.NoError(t, err)

	e := echo.New()
	e.GET("/a", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) }, mw)
	assert.Equal(t, http.StatusAccepted, serve(e, http.MethodGet, "/a", "").Code)
}
