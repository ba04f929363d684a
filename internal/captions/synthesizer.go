package captions

import (
	"fmt"
	"strings"

	"scribeview/sync-engine/models"
)

// Synthesize renders transcript segments into a WebVTT caption track. It is a
// pure function of the segments and the speaker name map: identical inputs
// produce identical output. Segments without a valid time range are skipped
// silently; partial data during live transcription is expected, not an error.
func Synthesize(segments []models.TranscriptSegment, names map[string]string) string {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")

	for i := range segments {
		seg := &segments[i]
		if !seg.HasValidTiming() {
			continue
		}
		b.WriteString(FormatTimestamp(*seg.StartTime))
		b.WriteString(" --> ")
		b.WriteString(FormatTimestamp(*seg.EndTime))
		b.WriteByte('\n')
		name := seg.DisplayName(names)
		if name != "" {
			b.WriteString(name)
			b.WriteString(": ")
		}
		b.WriteString(seg.Text)
		b.WriteString("\n\n")
	}
	return b.String()
}

// FormatTimestamp renders seconds as a zero-padded WebVTT timestamp,
// HH:MM:SS.mmm, omitting the hour field when it is zero.
func FormatTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d.%03d", h, m, s, ms)
	}
	return fmt.Sprintf("%02d:%02d.%03d", m, s, ms)
}
