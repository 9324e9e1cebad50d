package logging

import (
	"context"

	"github.com/google/uuid"
)

// GetRequestIDFromCtx returns the request id attached to ctx, or "" when
// none is set.
func GetRequestIDFromCtx(ctx context.Context) string {
	id, ok := ctx.Value(reqKey).(string)
	if !ok {
		return ""
	}
	return id
}

// MakeContextWithRequestID attaches requestID to ctx. Loggers obtained from
// the resulting context carry it as the request_id attribute.
func MakeContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, reqKey, requestID)
}

// MakeContextWithNewRequestID attaches a freshly generated request id.
func MakeContextWithNewRequestID(ctx context.Context) context.Context {
	return MakeContextWithRequestID(ctx, uuid.NewString())
}
