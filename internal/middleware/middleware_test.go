package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"gatekeeper/internal/redis"
	"gatekeeper/internal/services"
	"gatekeeper/internal/session"
	"gatekeeper/internal/transport/httpdto"
	"gatekeeper/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpdto.Response[any] {
	t.Helper()
	var body httpdto.Response[any]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestRequestIDMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", func(c *gin.Context) {
		id, _ := c.Request.Context().Value(logger.RequestIdKey).(string)
		c.String(http.StatusOK, id)
	})

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		assert.Len(t, id, 32)
		assert.Equal(t, id, rec.Body.String())
	})

	t.Run("keeps caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc123")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, "abc123", rec.Header().Get(RequestIDHeader))
		assert.Equal(t, "abc123", rec.Body.String())
	})
}

func TestErrorHandler(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	l := &logger.Logger{Logger: zap.New(core)}

	r := gin.New()
	r.Use(ErrorHandler(l))
	r.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("db exploded"))
	})
	r.GET("/written", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
		_ = c.Error(errors.New("late"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeEnvelope(t, rec)
	assert.False(t, body.Success)
	assert.Equal(t, "INTERNAL_ERROR", body.Code)
	assert.NotContains(t, rec.Body.String(), "db exploded")
	assert.Equal(t, 1, logs.FilterMessage("request error").Len())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}

func TestLoggingMiddleware(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := &logger.Logger{Logger: zap.New(core)}

	r := gin.New()
	r.Use(RequestIDMiddleware(), LoggingMiddleware(l))
	r.GET("/teapot", func(c *gin.Context) { c.Status(http.StatusTeapot) })

	req := httptest.NewRequest(http.MethodGet, "/teapot", nil)
	req.Header.Set(RequestIDHeader, "rid-1")
	r.ServeHTTP(httptest.NewRecorder(), req)

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "/teapot", fields["path"])
	assert.Equal(t, int64(http.StatusTeapot), fields["status"])
	assert.Equal(t, "rid-1", fields["request_id"])
}

func TestAuthRateLimitMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(redis.Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := redis.NewRateLimiter(client, redis.RateLimitConfig{AuthLimit: 2, AuthWindow: time.Minute})

	r := gin.New()
	r.POST("/auth/login", AuthRateLimitMiddleware(limiter, logger.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/auth/login", nil))
		return rec
	}

	rec := post()
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusNoContent, post().Code)

	rec = post()
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "RATE_LIMITED", decodeEnvelope(t, rec).Code)

	mr.Close()
	rec = post()
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestAuthRateLimitStatusMiddleware(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(redis.Config{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := redis.NewRateLimiter(client, redis.RateLimitConfig{AuthLimit: 3, AuthWindow: time.Minute})

	r := gin.New()
	r.GET("/auth/login", AuthRateLimitStatusMiddleware(limiter, logger.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.POST("/auth/login", AuthRateLimitMiddleware(limiter, logger.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	get := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		return rec
	}

	rec := get()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "3", rec.Header().Get("X-RateLimit-Remaining"))

	// reading the status never consumes attempts
	assert.Equal(t, "3", get().Header().Get("X-RateLimit-Remaining"))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/auth/login", nil))
	assert.Equal(t, "2", get().Header().Get("X-RateLimit-Remaining"))

	mr.Close()
	rec = get()
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Remaining"))
}

func TestRequireLogin(t *testing.T) {
	store, err := session.NewStore(session.StoreOptions{Backend: "cookie", Secret: []byte("secret")})
	require.NoError(t, err)

	r := gin.New()
	r.Use(session.Middleware(store))
	r.POST("/login", func(c *gin.Context) {
		s := session.FromContext(c)
		s.SetUserID(42)
		require.NoError(t, s.Save())
		c.Status(http.StatusNoContent)
	})
	r.GET("/private", RequireLogin(), func(c *gin.Context) {
		id, ok := services.UserIDFromContext(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"id": id, "ok": ok})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/private", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "UNAUTHORIZED", decodeEnvelope(t, rec).Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":42,"ok":true}`, rec.Body.String())
}

func TestCORSMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(CORSMiddleware([]string{"http://localhost:5173"}))
	r.POST("/auth/login", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/auth/login", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := preflight("http://localhost:5173")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	rec = preflight("http://evil.example")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
