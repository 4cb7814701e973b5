package public

import (
	"errors"
	"io"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/feedback_assistant/internal/httpserver/httputil"
	"github.com/ncecere/feedback_assistant/internal/models"
	"github.com/ncecere/feedback_assistant/internal/speech"
	"github.com/ncecere/feedback_assistant/internal/storage/blob"
)

func (h *analyzeHandler) audio(c *fiber.Ctx) error {
	name := c.Params("filename")
	if !speech.ValidFilename(name) {
		return httputil.WriteError(c, fiber.StatusBadRequest, "invalid filename")
	}
	if h.container.Synthesizer == nil || h.container.Audio == nil {
		return httputil.WriteError(c, fiber.StatusNotFound, "audio not found")
	}

	reader, info, err := h.container.Audio.Get(userContext(c), h.container.Synthesizer.Key(name))
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return httputil.WriteError(c, fiber.StatusNotFound, "audio not found")
		}
		h.container.Logger.Error("read audio failed", "filename", name, "error", err)
		return httputil.WriteError(c, fiber.StatusInternalServerError, "audio unavailable")
	}
	defer reader.Close()

	c.Set(fiber.HeaderContentType, models.MediaTypeWAV)
	if info.Size > 0 {
		c.Set(fiber.HeaderContentLength, strconv.FormatInt(info.Size, 10))
	}
	c.Set(fiber.HeaderCacheControl, "public, max-age=86400, immutable")
	_, err = io.Copy(c, reader)
	return err
}
