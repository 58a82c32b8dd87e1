package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
)

const testSID = "6f1c2a4e-9d7b-4c1a-8e2f-3b5d7a9c1e20"

func newLimitedRouter(h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(ErrorHandler())
	r.POST("/v1/sessions/:sid/copilot", h, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/v1/jobs/sync", h, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func expectCount(mock redismock.ClientMock, key string, window time.Duration, count int64) {
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetVal(count)
	mock.ExpectExpire(key, window).SetVal(true)
	mock.ExpectTxPipelineExec()
}

func TestSessionRateLimiter_UnderLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	window := time.Minute
	expectCount(mock, "ratelimit:copilot:"+testSID, window, 2)

	r := newLimitedRouter(SessionRateLimiter(db, "copilot", 5, window))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+testSID+"/copilot", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "5", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "3", w.Header().Get("X-RateLimit-Remaining"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRateLimiter_OverLimit(t *testing.T) {
	db, mock := redismock.NewClientMock()
	window := time.Minute
	key := "ratelimit:copilot:" + testSID
	expectCount(mock, key, window, 6)
	mock.ExpectTTL(key).SetVal(42 * time.Second)

	r := newLimitedRouter(SessionRateLimiter(db, "copilot", 5, window))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+testSID+"/copilot", nil))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "42", w.Header().Get("Retry-After"))
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRateLimiter_KeysByIPWithoutSession(t *testing.T) {
	db, mock := redismock.NewClientMock()
	window := time.Minute
	expectCount(mock, "ratelimit:sync:10.0.0.7", window, 1)

	r := newLimitedRouter(SessionRateLimiter(db, "sync", 3, window))
	req := httptest.NewRequest(http.MethodPost, "/v1/jobs/sync", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.7, 172.16.0.1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRateLimiter_RedisFailureAllows(t *testing.T) {
	db, mock := redismock.NewClientMock()
	key := "ratelimit:copilot:" + testSID
	mock.ExpectTxPipeline()
	mock.ExpectIncr(key).SetErr(errors.New("connection refused"))
	mock.ExpectExpire(key, time.Minute).SetVal(true)
	mock.ExpectTxPipelineExec()

	r := newLimitedRouter(SessionRateLimiter(db, "copilot", 5, time.Minute))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+testSID+"/copilot", nil))

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionRateLimiter_NilClientPassesThrough(t *testing.T) {
	r := newLimitedRouter(SessionRateLimiter(nil, "copilot", 5, time.Minute))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions/"+testSID+"/copilot", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
}
