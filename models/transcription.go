package models

// TranscriptData represents the transcript-only payload returned by the
// backend's transcript endpoints.
type TranscriptData struct {
	Text     string              `json:"text,omitempty"`
	Segments []TranscriptSegment `json:"segments"`
}

// TranscriptSegment represents a single timed span of transcribed speech.
// StartTime and EndTime are pointers because the backend streams segments
// incrementally while transcription is still running; a segment may exist
// before its timing does.
type TranscriptSegment struct {
	ID           string   `json:"id"`
	Text         string   `json:"text"`
	StartTime    *float64 `json:"start_time,omitempty"` // Nullable FLOAT, seconds
	EndTime      *float64 `json:"end_time,omitempty"`   // Nullable FLOAT, seconds
	SpeakerLabel string   `json:"speaker_label,omitempty"`
	Speaker      *Speaker `json:"speaker,omitempty"`
}

// HasValidTiming reports whether the segment carries a usable time range.
// Zero-duration and reversed ranges are skipped by consumers, not errored on.
func (s *TranscriptSegment) HasValidTiming() bool {
	return s.StartTime != nil && s.EndTime != nil && *s.StartTime < *s.EndTime
}

// DisplayName resolves the name to render for this segment's speaker:
// the file-level name map wins, then the segment's own resolved speaker,
// then the raw backend label.
func (s *TranscriptSegment) DisplayName(names map[string]string) string {
	if name, ok := names[s.SpeakerLabel]; ok && name != "" {
		return name
	}
	if s.Speaker != nil && s.Speaker.DisplayName != "" {
		return s.Speaker.DisplayName
	}
	return s.SpeakerLabel
}
