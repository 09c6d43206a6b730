package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/flexprice/invoicing/internal/cache"
	ierr "github.com/flexprice/invoicing/internal/errors"
	"github.com/flexprice/invoicing/internal/types"
	"github.com/gin-gonic/gin"
)

// HeaderIdempotentReplay marks a response served from the idempotency cache
const HeaderIdempotentReplay = "Idempotent-Replayed"

type cachedResponse struct {
	Status      int
	ContentType string
	Body        []byte
}

// bodyRecorder tees the response body so it can be cached
type bodyRecorder struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// inFlight reserves a key while the first request carrying it is running
type inFlight struct{}

// IdempotencyMiddleware replays the first successful response of a request
// carrying an Idempotency-Key header. Keys are scoped by method and route.
// A key is reserved while its first request runs; a concurrent request with
// the same key gets 409. Failed responses release the key so the client may
// retry with it.
func IdempotencyMiddleware(c cache.Cache, ttl time.Duration) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		key := ctx.GetHeader(types.HeaderIdempotencyKey)
		if key == "" || c == nil {
			ctx.Next()
			return
		}

		reqCtx := context.WithValue(ctx.Request.Context(), types.CtxIdempotencyKey, key)
		ctx.Request = ctx.Request.WithContext(reqCtx)

		cacheKey := cache.GenerateKey(cache.PrefixIdempotency, ctx.Request.Method, ctx.FullPath(), key)
		if !c.Add(reqCtx, cacheKey, inFlight{}, ttl) {
			if v, ok := c.Get(reqCtx, cacheKey); ok {
				if resp, ok := v.(cachedResponse); ok {
					ctx.Header(HeaderIdempotentReplay, "true")
					ctx.Data(resp.Status, resp.ContentType, resp.Body)
					ctx.Abort()
					return
				}
			}
			_ = ctx.Error(ierr.NewErrorf("idempotency key %q is in flight", key).
				WithHint("A request with this Idempotency-Key is still being processed").
				WithReportableDetails(map[string]any{"idempotencyKey": key}).
				Mark(ierr.ErrAlreadyExists))
			ctx.Abort()
			return
		}

		stored := false
		defer func() {
			if !stored {
				c.Delete(reqCtx, cacheKey)
			}
		}()

		recorder := &bodyRecorder{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = recorder

		ctx.Next()

		status := recorder.Status()
		if status < http.StatusOK || status >= http.StatusMultipleChoices || len(ctx.Errors) > 0 {
			return
		}

		c.Set(reqCtx, cacheKey, cachedResponse{
			Status:      status,
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		}, ttl)
		stored = true
	}
}
