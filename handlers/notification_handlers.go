package handlers

import (
	"github.com/gofiber/fiber/v2"

	"scribeview/sync-engine/utils"
)

// ListNotifications returns the full notification history plus the unread
// count. GET /api/v1/notifications
func (h *ApplicationHandler) ListNotifications(c *fiber.Ctx) error {
	reducer := h.Engine.Notifications()
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{
		"notifications": reducer.History(),
		"unread":        reducer.UnreadCount(),
	})
}

// MarkNotificationRead flags one notification as seen.
// POST /api/v1/notifications/:id/read
func (h *ApplicationHandler) MarkNotificationRead(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return utils.RespondWithError(c, fiber.StatusBadRequest, "Missing notification ID")
	}
	reducer := h.Engine.Notifications()
	reducer.MarkRead(id)
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"unread": reducer.UnreadCount()})
}

// GetConnection reports the push channel state.
// GET /api/v1/connection
func (h *ApplicationHandler) GetConnection(c *fiber.Ctx) error {
	return utils.RespondWithJSON(c, fiber.StatusOK, fiber.Map{"state": h.Push.State()})
}

// Reconnect re-opens the push channel. This is the only way out of the
// terminal failed state; the client never retries past its budget on its
// own. POST /api/v1/connection/reconnect
func (h *ApplicationHandler) Reconnect(c *fiber.Ctx) error {
	h.Logger.Info("manual push channel reconnect requested")
	if err := h.Push.Connect(h.PushURL, h.PushToken); err != nil {
		return utils.RespondWithError(c, fiber.StatusConflict, err.Error())
	}
	return utils.RespondWithJSON(c, fiber.StatusAccepted, fiber.Map{"state": h.Push.State()})
}
