package captions

import (
	"strings"
	"testing"

	"scribeview/sync-engine/models"
)

func f(v float64) *float64 { return &v }

func TestSynthesizeTwoSpeakers(t *testing.T) {
	segments := []models.TranscriptSegment{
		{Text: "hi", StartTime: f(0), EndTime: f(5), SpeakerLabel: "A"},
		{Text: "bye", StartTime: f(5), EndTime: f(10), SpeakerLabel: "B"},
	}
	names := map[string]string{"A": "Alice", "B": "Bob"}

	got := Synthesize(segments, names)
	want := "WEBVTT\n\n" +
		"00:00.000 --> 00:05.000\nAlice: hi\n\n" +
		"00:05.000 --> 00:10.000\nBob: bye\n\n"
	if got != want {
		t.Errorf("Synthesize() = %q, want %q", got, want)
	}

	// Pure function: the same inputs must yield byte-identical output.
	if again := Synthesize(segments, names); again != got {
		t.Errorf("Synthesize() not deterministic: %q vs %q", again, got)
	}
}

func TestSynthesizeSkipsInvalidSegments(t *testing.T) {
	tests := []struct {
		name string
		seg  models.TranscriptSegment
	}{
		{"zero duration", models.TranscriptSegment{Text: "x", StartTime: f(5), EndTime: f(5)}},
		{"missing end", models.TranscriptSegment{Text: "x", StartTime: f(5)}},
		{"missing start", models.TranscriptSegment{Text: "x", EndTime: f(5)}},
		{"reversed", models.TranscriptSegment{Text: "x", StartTime: f(9), EndTime: f(3)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := []models.TranscriptSegment{
				tt.seg,
				{Text: "ok", StartTime: f(1), EndTime: f(2), SpeakerLabel: "A"},
			}
			got := Synthesize(segments, nil)
			if strings.Contains(got, "x") {
				t.Errorf("invalid segment was rendered: %q", got)
			}
			// The valid sibling must be unaffected.
			if !strings.Contains(got, "A: ok") {
				t.Errorf("valid sibling missing from output: %q", got)
			}
			if n := strings.Count(got, "-->"); n != 1 {
				t.Errorf("cue count = %d, want 1", n)
			}
		})
	}
}

func TestSynthesizeNameFallback(t *testing.T) {
	disp := models.Speaker{Name: "B", DisplayName: "Bonnie"}
	segments := []models.TranscriptSegment{
		{Text: "mapped", StartTime: f(0), EndTime: f(1), SpeakerLabel: "A"},
		{Text: "resolved", StartTime: f(1), EndTime: f(2), SpeakerLabel: "B", Speaker: &disp},
		{Text: "raw", StartTime: f(2), EndTime: f(3), SpeakerLabel: "C"},
	}
	got := Synthesize(segments, map[string]string{"A": "Alice"})
	for _, want := range []string{"Alice: mapped", "Bonnie: resolved", "C: raw"} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "00:00.000"},
		{5, "00:05.000"},
		{65.25, "01:05.250"},
		{3599.999, "59:59.999"},
		{3600, "01:00:00.000"},
		{3723.042, "01:02:03.042"},
		{-1, "00:00.000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.seconds); got != tt.want {
			t.Errorf("FormatTimestamp(%v) = %q, want %q", tt.seconds, got, tt.want)
		}
	}
}

func TestRegistryKeepsOneLiveHandle(t *testing.T) {
	r := NewRegistry()

	var handles []*TrackHandle
	for i := 0; i < 10; i++ {
		handles = append(handles, r.Install("file-1", "WEBVTT\n\n"))
	}

	for i, h := range handles[:len(handles)-1] {
		if !h.Revoked() {
			t.Errorf("handle %d still live after regeneration", i)
		}
	}
	last := handles[len(handles)-1]
	if last.Revoked() {
		t.Fatal("newest handle was revoked")
	}
	live, ok := r.Live("file-1")
	if !ok || live != last {
		t.Fatal("registry does not report the newest handle as live")
	}
}

func TestRegistryLookupResolvesRetiredHandles(t *testing.T) {
	r := NewRegistry()
	old := r.Install("file-1", "WEBVTT\n\nold")
	current := r.Install("file-1", "WEBVTT\n\nnew")

	h, ok := r.Lookup(old.URL())
	if !ok {
		t.Fatal("retired URL no longer resolves")
	}
	if _, live := h.Content(); live {
		t.Error("retired handle still serves content")
	}

	h, ok = r.Lookup(current.URL())
	if !ok {
		t.Fatal("current URL does not resolve")
	}
	if content, live := h.Content(); !live || content != "WEBVTT\n\nnew" {
		t.Errorf("current handle content = %q, %v", content, live)
	}

	if _, ok := r.Lookup("/tracks/never-minted.vtt"); ok {
		t.Error("unknown URL resolved")
	}

	r.Close()
	if _, ok := r.Lookup(old.URL()); ok {
		t.Error("retired URL still resolves after Close")
	}
}

func TestRegistryCloseRevokesEverything(t *testing.T) {
	r := NewRegistry()
	a := r.Install("file-1", "a")
	b := r.Install("file-2", "b")
	r.Close()
	if !a.Revoked() || !b.Revoked() {
		t.Error("Close() left a live handle behind")
	}
	if _, ok := r.Live("file-1"); ok {
		t.Error("Live() found a handle after Close()")
	}
}
