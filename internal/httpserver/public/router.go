package public

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/feedback_assistant/internal/app"
)

// Register wires up the feedback analysis routes. /analyze is kept at the
// root for the bundled form; /v1 carries the versioned API.
func Register(router fiber.Router, container *app.Container) {
	handler := &analyzeHandler{container: container}
	rc := requestContext()

	router.Post("/analyze", rc, handler.analyze)
	router.Get("/audio/:filename", rc, handler.audio)

	v1 := router.Group("/v1", rc)
	v1.Post("/analyze", handler.analyze)
	v1.Get("/analyses", handler.listAnalyses)
}
