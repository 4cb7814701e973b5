package public

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/feedback_assistant/internal/history"
	"github.com/ncecere/feedback_assistant/internal/httpserver/httputil"
	"github.com/ncecere/feedback_assistant/internal/timeutil"
)

func (h *analyzeHandler) listAnalyses(c *fiber.Ctx) error {
	if h.container.History == nil {
		return httputil.WriteError(c, fiber.StatusNotFound, "analysis history disabled")
	}
	opts := history.ListOptions{
		Limit: history.ClampLimit(c.QueryInt("limit", history.DefaultListLimit)),
	}
	resp := fiber.Map{"object": "list", "limit": opts.Limit}

	if period := strings.TrimSpace(c.Query("period")); period != "" {
		window, err := timeutil.NewWindow(period, time.Now())
		if err != nil {
			return httputil.WriteError(c, fiber.StatusBadRequest, "invalid period")
		}
		opts.Since = window.Start()
		resp["period"] = window.Period()
		resp["since"] = window.Start().Format(time.RFC3339)
	}

	entries, err := h.container.History.List(userContext(c), opts)
	if err != nil {
		h.container.Logger.Error("list analyses failed", "error", err)
		return httputil.WriteError(c, fiber.StatusInternalServerError, "failed to list analyses")
	}
	resp["data"] = entries
	return c.JSON(resp)
}
