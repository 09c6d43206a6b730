package types

import (
	"context"
)

// ContextKey is a type for the keys of values stored in the context
type ContextKey string

const (
	CtxRequestID      ContextKey = "ctx_request_id"
	CtxIdempotencyKey ContextKey = "ctx_idempotency_key"
)

const (
	HeaderRequestID      = "X-Request-ID"
	HeaderIdempotencyKey = "Idempotency-Key"
)

func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(CtxRequestID).(string); ok {
		return requestID
	}
	return ""
}

func GetIdempotencyKey(ctx context.Context) string {
	if key, ok := ctx.Value(CtxIdempotencyKey).(string); ok {
		return key
	}
	return ""
}
