package observability

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

func TestNewRequestIDReturnsUUID(t *testing.T) {
	id := NewRequestID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected valid UUID, got %q: %v", id, err)
	}
}

func TestRequestIDForHonoursUpstreamHeader(t *testing.T) {
	upstream := uuid.New().String()

	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{name: "valid upstream id", header: upstream, keep: true},
		{name: "missing", header: ""},
		{name: "not a uuid", header: "abc-123"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/calculator/evaluate", nil)
			if tc.header != "" {
				req.Header.Set(RequestIDHeader, tc.header)
			}

			got := RequestIDFor(req)
			if tc.keep && got != tc.header {
				t.Fatalf("expected upstream id %q, got %q", tc.header, got)
			}
			if !tc.keep && got == tc.header {
				t.Fatalf("expected a fresh id, got %q", got)
			}
			if _, err := uuid.Parse(got); err != nil {
				t.Fatalf("expected valid UUID, got %q: %v", got, err)
			}
		})
	}
}

func TestRequestIDContextRoundTrip(t *testing.T) {
	ctx := ContextWithRequestID(context.Background(), "abc-123")

	if got := RequestIDFromContext(ctx); got != "abc-123" {
		t.Fatalf("expected %q, got %q", "abc-123", got)
	}
}

func TestRequestIDFromContextWhenMissingOrWrongType(t *testing.T) {
	if got := RequestIDFromContext(context.Background()); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}

	ctx := context.WithValue(context.Background(), RequestIDKey, 42)
	if got := RequestIDFromContext(ctx); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
}
