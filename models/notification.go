package models

import (
	"encoding/json"
	"fmt"
)

// NotificationType discriminates push messages by the pipeline stage that
// produced them.
type NotificationType string

const (
	NotificationTranscription NotificationType = "transcription_status"
	NotificationSummarization NotificationType = "summarization_status"
)

// NotificationData carries the subject of a push message.
type NotificationData struct {
	FileID string `json:"file_id"`
}

// Notification represents one push message about a long-running backend job.
// Notifications are append-only history: they may arrive out of order or be
// superseded, and the engine never deletes them, only computes the latest
// relevant one per file.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Status      string           `json:"status"`
	Progress    *float64         `json:"progress,omitempty"`
	CurrentStep string           `json:"currentStep,omitempty"`
	Message     *string          `json:"message,omitempty"`
	Timestamp   int64            `json:"timestamp"`
	LastUpdated *int64           `json:"lastUpdated,omitempty"`
	Data        NotificationData `json:"data"`
}

// ParseNotification decodes and validates a raw push payload. A payload with
// an unknown type or without a subject file ID is rejected here, so malformed
// messages never reach the reducer as half-filled structs.
func ParseNotification(raw []byte) (*Notification, error) {
	var n Notification
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("decode notification: %w", err)
	}
	switch n.Type {
	case NotificationTranscription, NotificationSummarization:
	default:
		return nil, fmt.Errorf("unknown notification type %q", n.Type)
	}
	if n.Data.FileID == "" {
		return nil, fmt.Errorf("notification %q has no file_id", n.ID)
	}
	return &n, nil
}

// EffectiveTime is the ordering key for "latest relevant" selection:
// lastUpdated when the backend set it, otherwise the original timestamp.
func (n *Notification) EffectiveTime() int64 {
	if n.LastUpdated != nil {
		return *n.LastUpdated
	}
	return n.Timestamp
}

// Signature derives the change-detection key for this notification. It is
// compared against the last signature processed for the same file; identical
// signatures collapse to a single downstream action. Never persisted.
func (n *Notification) Signature() string {
	progress := "nil"
	if n.Progress != nil {
		progress = fmt.Sprintf("%g", *n.Progress)
	}
	return fmt.Sprintf("%s_%s_%s_%s_%d", n.ID, n.Status, progress, n.CurrentStep, n.Timestamp)
}
