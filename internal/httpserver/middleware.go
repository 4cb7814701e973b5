package httpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ncecere/feedback_assistant/internal/observability"
)

const tracerName = "feedback-assistant/http"

// observe records request metrics and, when tracing is on, wraps the request
// in a server span whose context flows into the handlers.
func observe(provider *observability.Provider) fiber.Handler {
	var tracer trace.Tracer
	if tp := provider.TracerProvider(); tp != nil {
		tracer = tp.Tracer(tracerName)
	}

	return func(c *fiber.Ctx) error {
		start := time.Now()
		var span trace.Span
		if tracer != nil {
			var ctx context.Context
			ctx, span = tracer.Start(c.UserContext(), c.Method()+" "+c.Path(), trace.WithSpanKind(trace.SpanKindServer))
			c.SetUserContext(ctx)
		}

		err := c.Next()

		route := routeLabel(c)
		status := c.Response().StatusCode()
		provider.RecordHTTPRequest(c.UserContext(), c.Method(), route, status, time.Since(start))
		if span != nil {
			finishSpan(span, c.Method(), route, status, err)
		}
		return err
	}
}

// routeLabel prefers the matched route pattern so /audio/:filename stays one series.
func routeLabel(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" {
		return r.Path
	}
	return c.Path()
}

func finishSpan(span trace.Span, method, route string, status int, err error) {
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	case status >= fiber.StatusInternalServerError:
		span.SetStatus(codes.Error, fmt.Sprintf("status %d", status))
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
