// Package notify turns the append-only push notification history into the
// single "latest relevant" notification per file, collapsing duplicates and
// out-of-order deliveries.
package notify

import (
	"sort"
	"sync"

	"scribeview/sync-engine/models"
)

// Reducer holds the full notification history and the last signature it
// forwarded for each file. History is never pruned; the reducer only decides
// which notification to act on next.
type Reducer struct {
	mu      sync.Mutex
	history []models.Notification
	lastSig map[string]string
	read    map[string]bool
}

func NewReducer() *Reducer {
	return &Reducer{
		lastSig: make(map[string]string),
		read:    make(map[string]bool),
	}
}

// Append records a notification. Nothing is forwarded from here; callers
// follow up with Reduce for the file they currently care about.
func (r *Reducer) Append(n models.Notification) {
	r.mu.Lock()
	r.history = append(r.history, n)
	r.mu.Unlock()
}

// Reduce selects the notification to act on for the given file: filter the
// history to that file, order by effective time descending, take the head,
// and forward it only if its signature differs from the last one processed.
// Reprocessing an identical state is a no-op, which makes delivery of
// duplicated or reordered pushes safe.
func (r *Reducer) Reduce(fileID string) (*models.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	latest := r.latestLocked(fileID)
	if latest == nil {
		return nil, false
	}
	sig := latest.Signature()
	if r.lastSig[fileID] == sig {
		return nil, false
	}
	r.lastSig[fileID] = sig
	return latest, true
}

// Latest returns the newest notification for a file without touching the
// signature gate. Used by read-only views.
func (r *Reducer) Latest(fileID string) (*models.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.latestLocked(fileID)
	if n == nil {
		return nil, false
	}
	return n, true
}

func (r *Reducer) latestLocked(fileID string) *models.Notification {
	var matches []models.Notification
	for _, n := range r.history {
		if n.Data.FileID == fileID {
			matches = append(matches, n)
		}
	}
	if len(matches) == 0 {
		return nil
	}
	// Stable: among equal effective times the earlier arrival keeps the front.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].EffectiveTime() > matches[j].EffectiveTime()
	})
	return &matches[0]
}

// History returns a copy of the full notification history, newest last.
func (r *Reducer) History() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.history))
	copy(out, r.history)
	return out
}

// MarkRead flags a notification as seen by the user.
func (r *Reducer) MarkRead(id string) {
	r.mu.Lock()
	r.read[id] = true
	r.mu.Unlock()
}

// UnreadCount is an explicit selector over the history; it is recomputed on
// demand rather than kept as a mutable counter.
func (r *Reducer) UnreadCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	count := 0
	for _, n := range r.history {
		if seen[n.ID] || r.read[n.ID] {
			continue
		}
		seen[n.ID] = true
		count++
	}
	return count
}
