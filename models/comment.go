package models

import (
	"time"

	"github.com/google/uuid"
)

// Comment represents a time-anchored annotation on a media file. Comments
// live in their own stream and only meet the transcript at export time.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Timestamp float64   `json:"timestamp"` // seconds into the media
	Text      string    `json:"text"`
	User      string    `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}
