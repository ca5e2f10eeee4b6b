package observability

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey    contextKey = "request_id"
	RequestIDHeader            = "X-Request-ID"
)

func NewRequestID() string {
	return uuid.New().String()
}

// RequestIDFor returns the id an upstream proxy put in X-Request-ID when it
// is a well-formed UUID, and a fresh id otherwise.
func RequestIDFor(r *http.Request) string {
	id := r.Header.Get(RequestIDHeader)
	if parsed, err := uuid.Parse(id); err == nil {
		return parsed.String()
	}
	return NewRequestID()
}

func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
