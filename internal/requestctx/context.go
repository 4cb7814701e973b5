package requestctx

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const fiberLocalsKey = "requestctx"

// Key is the typed context key used for storing the request Context.
var Key contextKey = "feedback-assistant/requestctx"

// Context carries per-request identity through the pipeline.
type Context struct {
	RequestID      string
	ClientIP       string
	IdempotencyKey string
}

// WithContext embeds the request context into the parent context.
func WithContext(parent context.Context, rc *Context) context.Context {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithValue(parent, Key, rc)
}

// FromContext retrieves the request context if present.
func FromContext(ctx context.Context) (*Context, bool) {
	if ctx == nil {
		return nil, false
	}
	rc, ok := ctx.Value(Key).(*Context)
	return rc, ok
}

// RequestID returns the id stored in ctx, or "".
func RequestID(ctx context.Context) string {
	if rc, ok := FromContext(ctx); ok && rc != nil {
		return rc.RequestID
	}
	return ""
}

// NewRequestID returns a fresh id.
func NewRequestID() string {
	return uuid.NewString()
}

// NormalizeRequestID keeps a caller supplied id when it is short and
// printable, and generates one otherwise.
func NormalizeRequestID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || len(id) > 128 {
		return NewRequestID()
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return NewRequestID()
		}
	}
	return id
}

// FiberLocalsKey returns the key used in fiber.Locals for request context storage.
func FiberLocalsKey() string {
	return fiberLocalsKey
}
