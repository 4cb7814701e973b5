package httputil

import (
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
		want   string
	}{
		{name: "explicit message", status: fiber.StatusBadRequest, msg: "No text provided", want: "No text provided"},
		{name: "status text fallback", status: fiber.StatusNotFound, want: "Not Found"},
		{name: "unknown status", status: 599, want: "unknown error"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			app.Get("/", func(c *fiber.Ctx) error { return WriteError(c, tt.status, tt.msg) })

			resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
			require.NoError(t, err)
			require.Equal(t, tt.status, resp.StatusCode)

			var body ErrorResponse
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			require.Equal(t, tt.want, body.Error)
		})
	}
}

func TestWriteTooManyRequestsRoundsRetryAfterUp(t *testing.T) {
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		return WriteTooManyRequests(c, 1500*time.Millisecond, "rate limit exceeded")
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	require.Equal(t, "2", resp.Header.Get(fiber.HeaderRetryAfter))
}
