package httpserver

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/feedback_assistant/internal/app"
	"github.com/ncecere/feedback_assistant/internal/health"
)

const healthzTimeout = 2 * time.Second

type dependencyCheck struct {
	Status    string `json:"status"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type healthzResponse struct {
	Status   string                     `json:"status"`
	Checks   map[string]dependencyCheck `json:"checks"`
	Backends []health.CheckStatus       `json:"backends"`
}

// registerHealthRoutes mounts /healthz. It always answers 200; callers read
// the status field. Postgres and Redis are pinged live, backends come from
// the monitor's last sweep.
func registerHealthRoutes(router fiber.Router, container *app.Container) {
	router.Get("/healthz", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), healthzTimeout)
		defer cancel()

		resp := healthzResponse{Status: health.StatusOK, Checks: map[string]dependencyCheck{}}
		record := func(name string, ping func(context.Context) error) {
			start := time.Now()
			err := ping(ctx)
			resp.Checks[name] = newDependencyCheck(err, time.Since(start))
			if err != nil {
				container.Logger.Warn("healthz dependency check failed", "check", name, "error", err)
				resp.Status = health.StatusDegraded
			}
		}

		if container.DBPool != nil {
			record("postgres", container.DBPool.Ping)
		}
		if container.Redis != nil {
			record("redis", func(ctx context.Context) error { return container.Redis.Ping(ctx).Err() })
		}

		backends := container.HealthMon.Snapshot()
		if backends.Status != health.StatusOK {
			resp.Status = health.StatusDegraded
		}
		resp.Backends = backends.Checks
		return c.Status(fiber.StatusOK).JSON(resp)
	})
}

func newDependencyCheck(err error, latency time.Duration) dependencyCheck {
	check := dependencyCheck{Status: health.StatusOK, LatencyMS: latency.Milliseconds()}
	if err != nil {
		check.Status = "error"
		check.Error = health.Reason(err)
	}
	return check
}
