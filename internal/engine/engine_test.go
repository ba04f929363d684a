package engine

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/internal/jobstate"
	"scribeview/sync-engine/models"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func f(v float64) *float64 { return &v }

type fakeBackend struct {
	mu                sync.Mutex
	file              models.MediaFile
	fileFetches       int
	transcriptFetches int
	reprocessCalls    int
	segmentEdits      []string
}

func (b *fakeBackend) GetFile(ctx context.Context, fileID string) (*models.MediaFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fileFetches++
	copied := b.file
	return &copied, nil
}

func (b *fakeBackend) GetTranscript(ctx context.Context, fileID string) (*models.TranscriptData, []models.Speaker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.transcriptFetches++
	return &models.TranscriptData{Segments: b.file.Segments}, b.file.Speakers, nil
}

func (b *fakeBackend) UpdateSegment(ctx context.Context, fileID, segmentID, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.segmentEdits = append(b.segmentEdits, segmentID+"="+text)
	return nil
}

func (b *fakeBackend) Reprocess(ctx context.Context, fileID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reprocessCalls++
	return nil
}

func (b *fakeBackend) Summarize(ctx context.Context, fileID string) error { return nil }
func (b *fakeBackend) ClearCache(ctx context.Context, fileID string) error { return nil }

func (b *fakeBackend) counts() (files, transcripts int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fileFetches, b.transcriptFetches
}

func demoFile() models.MediaFile {
	return models.MediaFile{
		ID:     "f1",
		Status: models.FileStatusProcessing,
		Segments: []models.TranscriptSegment{
			{ID: "s1", Text: "hi", StartTime: f(0), EndTime: f(5), SpeakerLabel: "A"},
			{ID: "s2", Text: "bye", StartTime: f(5), EndTime: f(10), SpeakerLabel: "B"},
		},
		Speakers: []models.Speaker{{Name: "A", DisplayName: "Alice"}},
	}
}

func notif(id, status string, progress float64, timestamp int64) *models.Notification {
	return &models.Notification{
		ID:        id,
		Type:      models.NotificationTranscription,
		Status:    status,
		Progress:  &progress,
		Timestamp: timestamp,
		Data:      models.NotificationData{FileID: "f1"},
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newTestEngine(t *testing.T, backend *fakeBackend) *Engine {
	t.Helper()
	e := New(backend, testLogger(), Options{LLMConfigured: false})
	t.Cleanup(e.Close)
	e.OpenFile("f1")
	waitFor(t, "initial file fetch", func() bool {
		return e.SnapshotFor("f1").File != nil
	})
	return e
}

func TestDuplicateNotificationIsOneTransition(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	var mu sync.Mutex
	transitions := 0
	e.OnChange(func(string) {
		mu.Lock()
		transitions++
		mu.Unlock()
	})

	n := notif("n1", "processing", 20, 5)
	e.HandleNotification(n)
	waitFor(t, "first transition", func() bool {
		mu.Lock()
		defer mu.Unlock()
		return transitions == 1
	})

	e.HandleNotification(n)
	e.HandleNotification(n)

	// Let the loop drain, then confirm nothing further happened.
	e.SnapshotFor("f1")
	mu.Lock()
	defer mu.Unlock()
	if transitions != 1 {
		t.Errorf("transitions = %d, want exactly 1 for duplicated notifications", transitions)
	}
}

func TestOutOfOrderNotificationsResolveToNewest(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	e.HandleNotification(notif("n2", "processing", 40, 10))
	e.HandleNotification(notif("n1", "processing", 20, 5))

	waitFor(t, "progress from the newest notification", func() bool {
		return e.SnapshotFor("f1").Job.Progress == 40
	})
}

func TestCompletionRefetchesTranscriptOnly(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)
	filesBefore, _ := backend.counts()

	e.HandleNotification(notif("n1", "completed", 100, 5))

	waitFor(t, "transcript refetch", func() bool {
		_, transcripts := backend.counts()
		return transcripts == 1
	})
	files, _ := backend.counts()
	if files != filesBefore {
		t.Errorf("full-file fetches went %d -> %d; completion must refetch transcript only", filesBefore, files)
	}
	snap := e.SnapshotFor("f1")
	if snap.Job.Transcription != jobstate.TranscriptionCompleted || snap.Job.Progress != 100 {
		t.Errorf("job = %+v, want completed at 100", snap.Job)
	}
}

func TestErrorRefetchesFullFile(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)
	filesBefore, _ := backend.counts()

	e.HandleNotification(notif("n1", "error", 0, 5))

	waitFor(t, "full file refetch", func() bool {
		files, _ := backend.counts()
		return files == filesBefore+1
	})
}

func TestForeignFileNotificationIgnored(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	other := notif("n9", "processing", 70, 5)
	other.Data.FileID = "f2"
	e.HandleNotification(other)

	snap := e.SnapshotFor("f1")
	if snap.Job.Progress != 0 {
		t.Errorf("foreign notification leaked into subject state: %+v", snap.Job)
	}
}

func TestEditRegeneratesCaptionsAndPersists(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	before := e.SnapshotFor("f1").CaptionURL
	if before == "" {
		t.Fatal("expected a caption track after the initial fetch")
	}

	e.EditSegmentText("f1", "s1", "hello edited")

	waitFor(t, "caption regeneration", func() bool {
		return e.SnapshotFor("f1").CaptionURL != before
	})
	waitFor(t, "backend edit call", func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return len(backend.segmentEdits) == 1 && backend.segmentEdits[0] == "s1=hello edited"
	})

	handle, ok := e.Tracks().Live("f1")
	if !ok {
		t.Fatal("no live track after edit")
	}
	content, ok := handle.Content()
	if !ok {
		t.Fatal("live track is revoked")
	}
	wantLine := "Alice: hello edited"
	if !containsLine(content, wantLine) {
		t.Errorf("track content missing %q:\n%s", wantLine, content)
	}
}

func TestRenameSpeakerRegeneratesCaptions(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	e.RenameSpeaker("f1", "B", "Bob")

	waitFor(t, "renamed speaker in captions", func() bool {
		handle, ok := e.Tracks().Live("f1")
		if !ok {
			return false
		}
		content, ok := handle.Content()
		return ok && containsLine(content, "Bob: bye")
	})
}

func TestReprocessSetsFlagAndCallsBackend(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	e.Reprocess("f1")

	waitFor(t, "reprocess call", func() bool {
		backend.mu.Lock()
		defer backend.mu.Unlock()
		return backend.reprocessCalls == 1
	})
	snap := e.SnapshotFor("f1")
	if !snap.Job.Reprocessing || snap.Job.Transcription != jobstate.TranscriptionPending {
		t.Errorf("job after reprocess = %+v", snap.Job)
	}
}

func TestExportEntriesMergeComments(t *testing.T) {
	backend := &fakeBackend{file: demoFile()}
	e := newTestEngine(t, backend)

	e.AddComment("f1", models.Comment{Timestamp: 7, Text: "note", User: "dana"})
	e.AddComment("f1", models.Comment{Timestamp: 2, Text: "earlier", User: "dana"})

	segments, comments, names := e.ExportEntries("f1")
	if len(segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(segments))
	}
	if len(comments) != 2 || comments[0].Text != "earlier" {
		t.Fatalf("comments not sorted by timestamp: %+v", comments)
	}
	if names["A"] != "Alice" {
		t.Errorf("name map = %v", names)
	}
}

func containsLine(content, line string) bool {
	return strings.Contains(content, line)
}
