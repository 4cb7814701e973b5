package httputil

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes {"error": msg}, falling back to the status text.
func WriteError(c *fiber.Ctx, status int, msg string) error {
	if msg == "" {
		msg = http.StatusText(status)
		if msg == "" {
			msg = "unknown error"
		}
	}
	return c.Status(status).JSON(ErrorResponse{Error: msg})
}

// WriteTooManyRequests writes a 429 with a whole-second Retry-After hint.
func WriteTooManyRequests(c *fiber.Ctx, retryAfter time.Duration, msg string) error {
	if retryAfter > 0 {
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
	}
	return WriteError(c, fiber.StatusTooManyRequests, msg)
}
