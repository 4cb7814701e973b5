package public

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/feedback_assistant/internal/requestctx"
)

// HeaderIdempotencyKey names the client supplied replay key.
const HeaderIdempotencyKey = "Idempotency-Key"

// requestIDLocalsKey matches the fiber requestid middleware default.
const requestIDLocalsKey = "requestid"

// requestContext attaches request id, client ip and idempotency key to the
// user context so the pipeline and logs can see them.
func requestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := c.Locals(requestctx.FiberLocalsKey()).(*requestctx.Context); ok {
			return c.Next()
		}
		raw, _ := c.Locals(requestIDLocalsKey).(string)
		id := requestctx.NormalizeRequestID(raw)
		if id != raw {
			c.Set(fiber.HeaderXRequestID, id)
		}
		rc := &requestctx.Context{
			RequestID:      id,
			ClientIP:       c.IP(),
			IdempotencyKey: strings.TrimSpace(c.Get(HeaderIdempotencyKey)),
		}
		c.Locals(requestctx.FiberLocalsKey(), rc)
		c.SetUserContext(requestctx.WithContext(userContext(c), rc))
		return c.Next()
	}
}

func requestCtx(c *fiber.Ctx) *requestctx.Context {
	if rc, ok := c.Locals(requestctx.FiberLocalsKey()).(*requestctx.Context); ok && rc != nil {
		return rc
	}
	return &requestctx.Context{RequestID: requestctx.NewRequestID(), ClientIP: c.IP()}
}

func userContext(c *fiber.Ctx) context.Context {
	if c == nil {
		return context.Background()
	}
	if uc := c.UserContext(); uc != nil {
		return uc
	}
	return context.Background()
}
