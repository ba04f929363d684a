package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"scribeview/sync-engine/internal/apiclient"
	"scribeview/sync-engine/models"
	"scribeview/sync-engine/utils"
)

var validate = validator.New()

// OpenFile makes the file the engine's current subject and starts the full
// fetch. POST /api/v1/files/:fileId/open
func (h *ApplicationHandler) OpenFile(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	if fileID == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Missing file ID")
	}
	h.Engine.OpenFile(fileID)
	return utils.RespondWithJSON(c, fiber.StatusAccepted, h.Engine.SnapshotFor(fileID))
}

// CloseFile drops the current subject. POST /api/v1/session/close
func (h *ApplicationHandler) CloseFile(c *fiber.Ctx) error {
	h.Engine.CloseFile()
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"closed": true})
}

// GetFileState returns the engine's current view of a file.
// GET /api/v1/files/:fileId
func (h *ApplicationHandler) GetFileState(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	snap := h.Engine.SnapshotFor(fileID)
	return utils.RespondWithJSON(c, fiber.StatusOK, snap)
}

// ReprocessFile restarts the backend pipeline for the file.
// POST /api/v1/files/:fileId/reprocess
func (h *ApplicationHandler) ReprocessFile(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	h.Logger.WithField("file_id", fileID).Info("reprocess requested")
	h.Engine.Reprocess(fileID)
	return utils.RespondWithJSON(c, fiber.StatusAccepted, h.Engine.SnapshotFor(fileID))
}

// SummarizeFile asks the backend for a fresh summary.
// POST /api/v1/files/:fileId/summarize
func (h *ApplicationHandler) SummarizeFile(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	h.Engine.Summarize(fileID)
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{"file_id": fileID})
}

// ClearFileCache drops the backend's cached artifacts for the file.
// DELETE /api/v1/files/:fileId/cache
func (h *ApplicationHandler) ClearFileCache(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	if err := h.Engine.ClearCache(fileID); err != nil {
		return respondBackendError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"file_id": fileID})
}

// UpdateSegmentPayload is the body for segment text edits.
type UpdateSegmentPayload struct {
	Text string `json:"text" validate:"required"`
}

// UpdateSegment edits one transcript segment's text.
// PATCH /api/v1/files/:fileId/segments/:segmentId
func (h *ApplicationHandler) UpdateSegment(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	segmentID := c.Params("segmentId")

	payload := new(UpdateSegmentPayload)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	h.Engine.EditSegmentText(fileID, segmentID, payload.Text)
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"file_id":    fileID,
		"segment_id": segmentID,
	})
}

// RenameSpeakerPayload is the body for speaker display-name changes.
type RenameSpeakerPayload struct {
	Name        string `json:"name" validate:"required"`
	DisplayName string `json:"display_name"`
}

// RenameSpeaker sets a speaker's display name; captions and exports pick the
// new name up through the recomputed name map.
// PATCH /api/v1/files/:fileId/speakers
func (h *ApplicationHandler) RenameSpeaker(c *fiber.Ctx) error {
	fileID := c.Params("fileId")

	payload := new(RenameSpeakerPayload)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	h.Engine.RenameSpeaker(fileID, payload.Name, payload.DisplayName)
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{"file_id": fileID})
}

// AddCommentPayload is the body for posting a comment.
type AddCommentPayload struct {
	Timestamp float64 `json:"timestamp" validate:"gte=0"`
	Text      string  `json:"text" validate:"required"`
	User      string  `json:"user" validate:"required"`
}

// AddComment records a time-anchored annotation.
// POST /api/v1/files/:fileId/comments
func (h *ApplicationHandler) AddComment(c *fiber.Ctx) error {
	fileID := c.Params("fileId")

	payload := new(AddCommentPayload)
	if err := c.BodyParser(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid request body: %v", err))
	}
	if err := validate.Struct(payload); err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest,
			fmt.Sprintf("Validation failed: %v", utils.FormatValidationErrors(err)))
	}

	comment := models.Comment{
		ID:        uuid.New(),
		Timestamp: payload.Timestamp,
		Text:      payload.Text,
		User:      payload.User,
	}
	h.Engine.AddComment(fileID, comment)
	return utils.RespondWithJSON(c, fiber.StatusCreated, comment)
}

// GetSummary proxies the backend's summary for the file.
// GET /api/v1/files/:fileId/summary
func (h *ApplicationHandler) GetSummary(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	summary, err := h.API.GetSummary(context.Background(), fileID)
	if err != nil {
		return respondBackendError(c, err)
	}
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"summary": summary})
}

// respondBackendError maps a backend failure onto the local response: the
// backend's own status code when it answered, 502 when it was unreachable.
func respondBackendError(c *fiber.Ctx, err error) error {
	var apiErr *apiclient.APIError
	if errors.As(err, &apiErr) {
		return utils.RespondWithError(c, apiErr.StatusCode, apiErr.Message)
	}
	return utils.RespondWithError(c, fiber.StatusBadGateway, err.Error())
}
