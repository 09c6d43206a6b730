package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/flexprice/invoicing/internal/cache"
	"github.com/flexprice/invoicing/internal/config"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/logger"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIdempotentRouter(handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	c := cache.NewInMemoryCache(config.GetDefaultConfig(), logger.NewNopLogger())

	r := gin.New()
	r.Use(ErrorHandler(logger.NewNopLogger()))
	r.POST("/things", IdempotencyMiddleware(c, time.Minute), handler)
	return r
}

func postThing(r *gin.Engine, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/things", nil)
	req.Header.Set(types.HeaderIdempotencyKey, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdempotencyMiddleware_ConcurrentSameKey(t *testing.T) {
	var calls atomic.Int32
	entered := make(chan struct{})
	release := make(chan struct{})

	r := newIdempotentRouter(func(c *gin.Context) {
		n := calls.Add(1)
		if n == 1 {
			close(entered)
			<-release
		}
		c.JSON(http.StatusCreated, gin.H{"call": n})
	})

	firstDone := make(chan *httptest.ResponseRecorder)
	go func() { firstDone <- postThing(r, "k1") }()
	<-entered

	second := postThing(r, "k1")
	assert.Equal(t, http.StatusConflict, second.Code, second.Body.String())
	assert.Contains(t, second.Body.String(), "still being processed")

	close(release)
	first := <-firstDone
	require.Equal(t, http.StatusCreated, first.Code)

	replay := postThing(r, "k1")
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "true", replay.Header().Get(HeaderIdempotentReplay))
	assert.JSONEq(t, first.Body.String(), replay.Body.String())

	assert.Equal(t, int32(1), calls.Load())
}

func TestIdempotencyMiddleware_FailureReleasesKey(t *testing.T) {
	var calls atomic.Int32

	r := newIdempotentRouter(func(c *gin.Context) {
		if calls.Add(1) == 1 {
			_ = c.Error(ierr.NewError("store down").
				WithHint("Service temporarily unavailable").
				Mark(ierr.ErrUnavailable))
			return
		}
		c.JSON(http.StatusCreated, gin.H{"ok": true})
	})

	failed := postThing(r, "k2")
	assert.Equal(t, http.StatusServiceUnavailable, failed.Code)

	retried := postThing(r, "k2")
	assert.Equal(t, http.StatusCreated, retried.Code)
	assert.Empty(t, retried.Header().Get(HeaderIdempotentReplay))
	assert.Equal(t, int32(2), calls.Load())
}

func TestIdempotencyMiddleware_NoKey(t *testing.T) {
	var calls atomic.Int32
	r := newIdempotentRouter(func(c *gin.Context) {
		calls.Add(1)
		c.Status(http.StatusCreated)
	})

	assert.Equal(t, http.StatusCreated, postThing(r, "").Code)
	assert.Equal(t, http.StatusCreated, postThing(r, "").Code)
	assert.Equal(t, int32(2), calls.Load())
}
