package requestid

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	RequestIDKey contextKey = "request_id"

	// Header is the header carrying the request id to the backend.
	Header = "X-Request-ID"
)

// Generate creates a new unique request ID
func Generate() string {
	return uuid.New().String()
}

// ToContext adds a request ID to the context
func ToContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// FromContext extracts the request ID from the context.
// Returns empty string if request ID is not found.
func FromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// Stamp sets the request id header on req, reusing the id carried by the
// request context when there is one.
func Stamp(req *http.Request) string {
	id := FromContext(req.Context())
	if id == "" {
		id = Generate()
	}
	req.Header.Set(Header, id)
	return id
}
