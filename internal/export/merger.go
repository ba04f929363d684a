// Package export renders a media file's transcript and comment streams into
// downloadable artifacts. Everything here is pure: identical inputs always
// produce byte-identical output, independent of call order or prior state.
package export

import (
	"scribeview/sync-engine/models"
)

// commentDuration is the synthetic cue length given to comments in
// time-coded formats, which have no natural end time for them.
const commentDuration = 2.0

// Entry is one element of the merged export sequence: either a transcript
// segment or a comment, never both.
type Entry struct {
	Segment *models.TranscriptSegment
	Comment *models.Comment
}

// Time returns the entry's position on the media timeline.
func (e Entry) Time() float64 {
	if e.Segment != nil && e.Segment.StartTime != nil {
		return *e.Segment.StartTime
	}
	if e.Comment != nil {
		return e.Comment.Timestamp
	}
	return 0
}

// Merge interleaves transcript segments and comments chronologically with a
// two-pointer stable merge. Both inputs are assumed sorted by time. Ties
// resolve with the transcript segment first; this tie-break is part of the
// export contract.
func Merge(segments []models.TranscriptSegment, comments []models.Comment) []Entry {
	merged := make([]Entry, 0, len(segments)+len(comments))
	i, j := 0, 0
	for i < len(segments) && j < len(comments) {
		if segTime(&segments[i]) <= comments[j].Timestamp {
			merged = append(merged, Entry{Segment: &segments[i]})
			i++
		} else {
			merged = append(merged, Entry{Comment: &comments[j]})
			j++
		}
	}
	for ; i < len(segments); i++ {
		merged = append(merged, Entry{Segment: &segments[i]})
	}
	for ; j < len(comments); j++ {
		merged = append(merged, Entry{Comment: &comments[j]})
	}
	return merged
}

func segTime(s *models.TranscriptSegment) float64 {
	if s.StartTime != nil {
		return *s.StartTime
	}
	return 0
}

func segEnd(s *models.TranscriptSegment) float64 {
	if s.EndTime != nil {
		return *s.EndTime
	}
	return segTime(s)
}
