package httpserver

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	fiberfs "github.com/gofiber/fiber/v2/middleware/filesystem"
)

// uiAssets holds the single-page feedback form.
//
//go:embed ui
var uiAssets embed.FS

const uiRoot = "ui"

func embeddedUI() (fs.FS, error) {
	return fs.Sub(uiAssets, uiRoot)
}

func mountEmbeddedUI(app *fiber.App, logger *slog.Logger) {
	dist, err := embeddedUI()
	if err != nil {
		logger.Warn("ui assets not embedded", "error", err)
		return
	}

	app.Use("/", fiberfs.New(fiberfs.Config{
		Root:   http.FS(dist),
		Index:  "index.html",
		Browse: false,
	}))
}
