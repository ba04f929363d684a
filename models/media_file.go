package models

import (
	"sort"
	"time"
)

// FileStatus is the backend-reported processing state of a media file.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusProcessing FileStatus = "processing"
	FileStatusCompleted  FileStatus = "completed"
	FileStatusError      FileStatus = "error"
)

// MediaFile represents a single uploaded recording and everything the backend
// has derived from it so far. The engine replaces it wholesale on a full fetch
// and patches it incrementally while notifications stream in.
type MediaFile struct {
	ID        string              `json:"id"`
	Filename  string              `json:"filename,omitempty"`
	Status    FileStatus          `json:"status"`
	Progress  float64             `json:"progress"`
	Segments  []TranscriptSegment `json:"segments"`
	Summary   *string             `json:"summary,omitempty"`
	Speakers  []Speaker           `json:"speakers,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// SortSegments orders the file's segments by start time. Segments still
// missing a start time (partial data during live transcription) sort last.
// The sort is stable so equal start times keep their fetch order.
func (f *MediaFile) SortSegments() {
	sort.SliceStable(f.Segments, func(i, j int) bool {
		a, b := f.Segments[i].StartTime, f.Segments[j].StartTime
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a < *b
		}
	})
}
