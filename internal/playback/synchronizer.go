// Package playback keeps media playback position and the transcript view in
// sync: playback ticks drive segment highlighting, and transcript clicks
// drive seeks.
package playback

import (
	"sync"

	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/models"
)

// seekLookback is subtracted from every requested seek position so the
// listener gets a little context before the clicked segment starts.
const seekLookback = 0.5

// Player is the minimal surface the synchronizer needs from a media player.
type Player interface {
	Seek(seconds float64)
}

// Synchronizer tracks the active transcript segment for the current playback
// time and forwards seek requests to the attached player. It is safe for use
// from the engine loop and HTTP handlers concurrently.
type Synchronizer struct {
	log *logrus.Logger

	mu       sync.Mutex
	segments []models.TranscriptSegment
	activeID string
	player   Player
	seekSubs []func(seconds float64)
}

func NewSynchronizer(log *logrus.Logger) *Synchronizer {
	return &Synchronizer{log: log}
}

// AttachPlayer connects a player. Until one is attached, seeks are no-ops.
func (s *Synchronizer) AttachPlayer(p Player) {
	s.mu.Lock()
	s.player = p
	s.mu.Unlock()
}

// SetSegments replaces the segment list the highlighter works from.
// Segments are expected sorted by start time; the file model re-sorts on
// every fetch before handing them over.
func (s *Synchronizer) SetSegments(segments []models.TranscriptSegment) {
	s.mu.Lock()
	s.segments = segments
	s.activeID = ""
	s.mu.Unlock()
}

// Tick processes one playback time update. It marks the first segment whose
// range contains t as active and reports whether the active segment changed.
// Calling it repeatedly with the same time is a no-op after the first call.
func (s *Synchronizer) Tick(t float64) (activeID string, changed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := ""
	for i := range s.segments {
		seg := &s.segments[i]
		if !seg.HasValidTiming() {
			continue
		}
		if *seg.StartTime <= t && t <= *seg.EndTime {
			id = seg.ID
			break
		}
	}
	if id == s.activeID {
		return id, false
	}
	s.activeID = id
	return id, true
}

// ActiveSegment returns the currently highlighted segment ID, if any.
func (s *Synchronizer) ActiveSegment() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// SeekToTime moves the player to half a second before the requested time,
// clamped at zero, and notifies subscribers of the position actually set.
// Without an attached player the call only logs a warning.
func (s *Synchronizer) SeekToTime(t float64) {
	target := t - seekLookback
	if target < 0 {
		target = 0
	}

	s.mu.Lock()
	player := s.player
	subs := make([]func(float64), len(s.seekSubs))
	copy(subs, s.seekSubs)
	s.mu.Unlock()

	if player == nil {
		s.log.WithField("seconds", t).Warn("seek requested before player attached")
		return
	}
	player.Seek(target)
	for _, fn := range subs {
		fn(target)
	}
}

// SubscribeSeek registers a callback invoked with the clamped position after
// every successful seek.
func (s *Synchronizer) SubscribeSeek(fn func(seconds float64)) {
	s.mu.Lock()
	s.seekSubs = append(s.seekSubs, fn)
	s.mu.Unlock()
}
