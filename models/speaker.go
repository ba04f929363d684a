package models

import "github.com/google/uuid"

// Speaker represents a diarized voice in a media file. Name is the stable
// backend identifier (e.g. "SPEAKER_00"); DisplayName is user-editable and
// may be empty.
type Speaker struct {
	UUID        uuid.UUID `json:"uuid"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name,omitempty"`
}

// SpeakerNameMap builds the name → display name map used for caption and
// export rendering. It is recomputed whenever the speaker list changes and is
// the single source of truth for resolving labels; speakers without a display
// name are left out so callers fall back to the raw label.
func SpeakerNameMap(speakers []Speaker) map[string]string {
	names := make(map[string]string, len(speakers))
	for _, sp := range speakers {
		if sp.DisplayName != "" {
			names[sp.Name] = sp.DisplayName
		}
	}
	return names
}
