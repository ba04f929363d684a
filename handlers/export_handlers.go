package handlers

import (
	"fmt"
	"path/filepath"

	"github.com/gofiber/fiber/v2"

	"scribeview/sync-engine/internal/export"
	"scribeview/sync-engine/internal/jobs"
	"scribeview/sync-engine/utils"
)

// DownloadExport renders one encoding synchronously and returns it as a
// download. GET /api/v1/files/:fileId/export/:format
func (h *ApplicationHandler) DownloadExport(c *fiber.Ctx) error {
	fileID := c.Params("fileId")
	format, err := export.ParseFormat(c.Params("format"))
	if err != nil {
		return utils.RespondWithError(c, fiber.StatusBadRequest, err.Error())
	}

	segments, comments, names := h.Engine.ExportEntries(fileID)
	if len(segments) == 0 && len(comments) == 0 {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Nothing to export for this file")
	}

	data, err := export.Render(format, export.Merge(segments, comments), names)
	if err != nil {
		h.Logger.WithError(err).WithField("file_id", fileID).Error("export rendering failed")
		return utils.RespondWithError(c, fiber.StatusInternalServerError, "Could not render export")
	}

	filename := fmt.Sprintf("%s.%s", fileID, format)
	c.Set(fiber.HeaderContentType, format.ContentType())
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Send(data)
}

// ExportAll queues background rendering of every encoding into the export
// directory. POST /api/v1/files/:fileId/exports
func (h *ApplicationHandler) ExportAll(c *fiber.Ctx) error {
	fileID := c.Params("fileId")

	segments, comments, names := h.Engine.ExportEntries(fileID)
	if len(segments) == 0 && len(comments) == 0 {
		return utils.RespondWithError(c, fiber.StatusNotFound, "Nothing to export for this file")
	}
	entries := export.Merge(segments, comments)

	var queued []string
	for _, format := range export.Formats {
		job := &jobs.RenderExportJob{
			JobID:      fmt.Sprintf("export-%s-%s", fileID, format),
			Format:     format,
			Entries:    entries,
			Names:      names,
			OutputPath: filepath.Join(h.ExportDir, fileID, fmt.Sprintf("%s.%s", fileID, format)),
		}
		if !h.Exports.Submit(job) {
			return utils.RespondWithError(c, fiber.StatusServiceUnavailable, "Export queue is full, try again shortly")
		}
		queued = append(queued, string(format))
	}

	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{
		"file_id": fileID,
		"queued":  queued,
	})
}
