package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"scribeview/sync-engine/internal/captions"
)

// Format identifies one of the supported export encodings.
type Format string

const (
	FormatText Format = "txt"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
)

// Formats lists every supported encoding in the order they are offered.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatSRT, FormatVTT}

// ParseFormat maps a file extension (with or without the dot) to a Format.
func ParseFormat(ext string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(ext), "."))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unsupported export format %q", ext)
}

// ContentType returns the MIME type to serve the encoding under.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv"
	case FormatVTT:
		return "text/vtt"
	default:
		return "text/plain; charset=utf-8"
	}
}

// Render encodes the merged entry sequence in the requested format.
// Speaker labels are resolved through names the same way captions are.
func Render(format Format, entries []Entry, names map[string]string) ([]byte, error) {
	switch format {
	case FormatText:
		return renderText(entries, names), nil
	case FormatJSON:
		return renderJSON(entries, names)
	case FormatCSV:
		return renderCSV(entries, names)
	case FormatSRT:
		return renderSRT(entries, names), nil
	case FormatVTT:
		return renderVTT(entries, names), nil
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}

func renderText(entries []Entry, names map[string]string) []byte {
	var b strings.Builder
	for _, e := range entries {
		if e.Segment != nil {
			b.WriteString("[")
			b.WriteString(captions.FormatTimestamp(segTime(e.Segment)))
			b.WriteString("] ")
			if name := e.Segment.DisplayName(names); name != "" {
				b.WriteString(name)
				b.WriteString(": ")
			}
			b.WriteString(e.Segment.Text)
			b.WriteByte('\n')
			continue
		}
		b.WriteString("[")
		b.WriteString(captions.FormatTimestamp(e.Comment.Timestamp))
		b.WriteString("] [comment] ")
		b.WriteString(e.Comment.User)
		b.WriteString(": ")
		b.WriteString(e.Comment.Text)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

type jsonEntry struct {
	Type      string   `json:"type"`
	StartTime *float64 `json:"start_time,omitempty"`
	EndTime   *float64 `json:"end_time,omitempty"`
	Timestamp *float64 `json:"timestamp,omitempty"`
	Speaker   string   `json:"speaker,omitempty"`
	User      string   `json:"user,omitempty"`
	Text      string   `json:"text"`
}

func renderJSON(entries []Entry, names map[string]string) ([]byte, error) {
	out := make([]jsonEntry, 0, len(entries))
	for _, e := range entries {
		if e.Segment != nil {
			out = append(out, jsonEntry{
				Type:      "segment",
				StartTime: e.Segment.StartTime,
				EndTime:   e.Segment.EndTime,
				Speaker:   e.Segment.DisplayName(names),
				Text:      e.Segment.Text,
			})
			continue
		}
		ts := e.Comment.Timestamp
		out = append(out, jsonEntry{
			Type:      "comment",
			Timestamp: &ts,
			User:      e.Comment.User,
			Text:      e.Comment.Text,
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export json: %w", err)
	}
	return append(data, '\n'), nil
}

func renderCSV(entries []Entry, names map[string]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"type", "start_time", "end_time", "speaker", "text"}); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		var record []string
		if e.Segment != nil {
			record = []string{
				"segment",
				csvTime(e.Segment.StartTime),
				csvTime(e.Segment.EndTime),
				e.Segment.DisplayName(names),
				e.Segment.Text,
			}
		} else {
			ts := e.Comment.Timestamp
			record = []string{"comment", csvTime(&ts), "", e.Comment.User, e.Comment.Text}
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("write csv record: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

func csvTime(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 3, 64)
}

// renderSRT numbers cues from 1 and uses the comma millisecond separator the
// format requires. Segments without a valid time range cannot be time-coded
// and are skipped, as are captions.
func renderSRT(entries []Entry, names map[string]string) []byte {
	var b strings.Builder
	index := 1
	for _, e := range entries {
		start, end, text, ok := cue(e, names)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", index, srtTimestamp(start), srtTimestamp(end), text)
		index++
	}
	return []byte(b.String())
}

func renderVTT(entries []Entry, names map[string]string) []byte {
	var b strings.Builder
	b.WriteString("WEBVTT\n\n")
	for _, e := range entries {
		start, end, text, ok := cue(e, names)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%s --> %s\n%s\n\n", captions.FormatTimestamp(start), captions.FormatTimestamp(end), text)
	}
	return []byte(b.String())
}

// cue flattens an entry into the pieces a time-coded cue needs. Comments get
// a synthetic fixed duration.
func cue(e Entry, names map[string]string) (start, end float64, text string, ok bool) {
	if e.Segment != nil {
		if !e.Segment.HasValidTiming() {
			return 0, 0, "", false
		}
		text = e.Segment.Text
		if name := e.Segment.DisplayName(names); name != "" {
			text = name + ": " + text
		}
		return *e.Segment.StartTime, *e.Segment.EndTime, text, true
	}
	start = e.Comment.Timestamp
	return start, start + commentDuration, fmt.Sprintf("[comment] %s: %s", e.Comment.User, e.Comment.Text), true
}

func srtTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	millis := int64(seconds*1000 + 0.5)
	h := millis / 3600000
	m := (millis % 3600000) / 60000
	s := (millis % 60000) / 1000
	ms := millis % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}
