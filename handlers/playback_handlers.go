package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"

	"scribeview/sync-engine/utils"
)

// TickPayload is the body for playback time updates.
type TickPayload struct {
	Time float64 `json:"time" validate:"gte=0"`
}

// PlaybackTick reports the player's current time; the engine replies with
// the segment to highlight. POST /api/v1/playback/tick
func (h *ApplicationHandler) PlaybackTick(c *fiber.Ctx) error {
	payload := new(TickPayload)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	h.Engine.Tick(payload.Time)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"active_segment_id": h.Engine.Playback().ActiveSegment(),
	})
}

// SeekPayload is the body for transcript-click seeks.
type SeekPayload struct {
	Time float64 `json:"time" validate:"gte=0"`
}

// PlaybackSeek moves the player half a second before the requested time.
// POST /api/v1/playback/seek
func (h *ApplicationHandler) PlaybackSeek(c *fiber.Ctx) error {
	payload := new(SeekPayload)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	h.Engine.Playback().SeekToTime(payload.Time)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"requested": payload.Time})
}

// GetCaptionTrack serves a live caption track by its handle URL.
// GET /tracks/:name
func (h *ApplicationHandler) GetCaptionTrack(c *fiber.Ctx) error {
	name := c.Params("name")
	if !strings.HasSuffix(name, ".vtt") {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Unknown track")
	}
	handle, ok := h.Engine.Tracks().Lookup("/tracks/" + name)
	if !ok {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Track expired or never existed")
	}
	content, ok := handle.Content()
	if !ok {
		return utils.RespondWithError(c, fiber.StatusGone, "Track handle revoked")
	}
	c.Set(fiber.HeaderContentType, "text/vtt")
	return c.SendString(content)
}
