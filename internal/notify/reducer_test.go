package notify

import (
	"testing"

	"scribeview/sync-engine/models"
)

func notif(id, fileID, status string, progress float64, timestamp int64) models.Notification {
	return models.Notification{
		ID:        id,
		Type:      models.NotificationTranscription,
		Status:    status,
		Progress:  &progress,
		Timestamp: timestamp,
		Data:      models.NotificationData{FileID: fileID},
	}
}

func TestReduceIdempotent(t *testing.T) {
	r := NewReducer()
	n := notif("n1", "file-1", "processing", 20, 5)

	r.Append(n)
	if _, ok := r.Reduce("file-1"); !ok {
		t.Fatal("first reduce must forward the notification")
	}
	if _, ok := r.Reduce("file-1"); ok {
		t.Fatal("identical state must reduce to a no-op")
	}

	// A duplicated delivery resolves to the same signature and stays collapsed.
	r.Append(n)
	if _, ok := r.Reduce("file-1"); ok {
		t.Fatal("duplicate delivery must not produce a second action")
	}
}

func TestReduceOrderingIndependence(t *testing.T) {
	early := notif("n1", "file-1", "processing", 20, 5)
	late := notif("n2", "file-1", "processing", 40, 10)

	for name, order := range map[string][]models.Notification{
		"in order":     {early, late},
		"out of order": {late, early},
	} {
		r := NewReducer()
		for _, n := range order {
			r.Append(n)
		}
		got, ok := r.Reduce("file-1")
		if !ok {
			t.Fatalf("%s: expected a reduced notification", name)
		}
		if got.ID != "n2" {
			t.Errorf("%s: reduced to %s, want n2 (newest effective time)", name, got.ID)
		}
	}
}

func TestReducePrefersLastUpdated(t *testing.T) {
	r := NewReducer()
	stale := notif("n1", "file-1", "processing", 50, 100)
	fresh := notif("n2", "file-1", "processing", 30, 10)
	updated := int64(200)
	fresh.LastUpdated = &updated

	r.Append(stale)
	r.Append(fresh)

	got, ok := r.Reduce("file-1")
	if !ok || got.ID != "n2" {
		t.Fatalf("lastUpdated must override timestamp for ordering, got %+v", got)
	}
}

func TestReduceIgnoresOtherFiles(t *testing.T) {
	r := NewReducer()
	r.Append(notif("n1", "file-2", "processing", 10, 5))

	if _, ok := r.Reduce("file-1"); ok {
		t.Fatal("notification for another file must be ignored")
	}

	// After a subject switch the straggler is picked up for its own file only.
	if got, ok := r.Reduce("file-2"); !ok || got.ID != "n1" {
		t.Fatalf("Reduce(file-2) = %+v, %v", got, ok)
	}
}

func TestReduceForwardsChangedState(t *testing.T) {
	r := NewReducer()
	r.Append(notif("n1", "file-1", "processing", 20, 5))
	if _, ok := r.Reduce("file-1"); !ok {
		t.Fatal("expected first action")
	}

	r.Append(notif("n1", "file-1", "processing", 40, 6))
	got, ok := r.Reduce("file-1")
	if !ok {
		t.Fatal("progress change must produce a new action")
	}
	if got.Progress == nil || *got.Progress != 40 {
		t.Errorf("reduced progress = %v, want 40", got.Progress)
	}
}

func TestUnreadCountSelector(t *testing.T) {
	r := NewReducer()
	r.Append(notif("n1", "file-1", "processing", 10, 1))
	r.Append(notif("n1", "file-1", "processing", 20, 2)) // same id, superseded
	r.Append(notif("n2", "file-1", "completed", 100, 3))

	if got := r.UnreadCount(); got != 2 {
		t.Errorf("UnreadCount() = %d, want 2 distinct unread ids", got)
	}
	r.MarkRead("n1")
	if got := r.UnreadCount(); got != 1 {
		t.Errorf("UnreadCount() after MarkRead = %d, want 1", got)
	}
}
