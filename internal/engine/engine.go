// Package engine owns the session state for the sync daemon. Every socket
// message, REST completion, playback tick, and user action is applied by a
// single loop goroutine, so each callback performs one atomic update to
// shared state before yielding.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"scribeview/sync-engine/internal/captions"
	"scribeview/sync-engine/internal/jobstate"
	"scribeview/sync-engine/internal/notify"
	"scribeview/sync-engine/internal/playback"
	"scribeview/sync-engine/internal/ws"
	"scribeview/sync-engine/models"
)

// BackendAPI is what the engine needs from the backend REST client. Declared
// here so tests can stand in a fake backend.
type BackendAPI interface {
	GetFile(ctx context.Context, fileID string) (*models.MediaFile, error)
	GetTranscript(ctx context.Context, fileID string) (*models.TranscriptData, []models.Speaker, error)
	UpdateSegment(ctx context.Context, fileID, segmentID, text string) error
	Reprocess(ctx context.Context, fileID string) error
	Summarize(ctx context.Context, fileID string) error
	ClearCache(ctx context.Context, fileID string) error
}

// Options configures an Engine.
type Options struct {
	// LLMConfigured tells the job state machines whether summarization
	// follows transcription at all.
	LLMConfigured bool
}

// Snapshot is a read-only view of one file's engine state, what a UI client
// renders from.
type Snapshot struct {
	FileID          string            `json:"file_id"`
	File            *models.MediaFile `json:"file,omitempty"`
	Job             jobstate.Status   `json:"job"`
	Connection      ws.State          `json:"connection"`
	CaptionURL      string            `json:"caption_url,omitempty"`
	ActiveSegmentID string            `json:"active_segment_id,omitempty"`
	Unread          int               `json:"unread_notifications"`
}

// Engine is the per-session coordinator.
type Engine struct {
	log  *logrus.Logger
	api  BackendAPI
	opts Options

	reducer  *notify.Reducer
	tracks   *captions.Registry
	playback *playback.Synchronizer

	events chan func()
	done   chan struct{}
	once   sync.Once

	// Everything below is owned by the loop goroutine.
	subject    string
	connection ws.State
	files      map[string]*models.MediaFile
	machines   map[string]*jobstate.Machine
	comments   map[string][]models.Comment
	stepTimers map[string]*time.Timer
	changeSubs []func(fileID string)
}

func New(api BackendAPI, log *logrus.Logger, opts Options) *Engine {
	e := &Engine{
		log:        log,
		api:        api,
		opts:       opts,
		reducer:    notify.NewReducer(),
		tracks:     captions.NewRegistry(),
		playback:   playback.NewSynchronizer(log),
		events:     make(chan func(), 256),
		done:       make(chan struct{}),
		connection: ws.StateDisconnected,
		files:      make(map[string]*models.MediaFile),
		machines:   make(map[string]*jobstate.Machine),
		comments:   make(map[string][]models.Comment),
		stepTimers: make(map[string]*time.Timer),
	}
	go e.run()
	return e
}

// Playback returns the playback synchronizer so the player wiring can attach
// to it directly.
func (e *Engine) Playback() *playback.Synchronizer { return e.playback }

// Tracks returns the caption track registry, used to serve live tracks.
func (e *Engine) Tracks() *captions.Registry { return e.tracks }

// Notifications exposes the reducer's read-only views.
func (e *Engine) Notifications() *notify.Reducer { return e.reducer }

func (e *Engine) run() {
	for {
		select {
		case fn := <-e.events:
			fn()
		case <-e.done:
			return
		}
	}
}

// dispatch hands a mutation to the loop goroutine. After Close it is a
// silent drop; teardown has already released the resources.
func (e *Engine) dispatch(fn func()) {
	select {
	case e.events <- fn:
	case <-e.done:
	}
}

// dispatchWait runs fn on the loop and blocks until it finished. Never call
// from inside the loop.
func (e *Engine) dispatchWait(fn func()) {
	ran := make(chan struct{})
	e.dispatch(func() {
		defer close(ran)
		fn()
	})
	select {
	case <-ran:
	case <-e.done:
	}
}

// Close tears the engine down deterministically: pending step-clear timers
// are stopped and every live caption handle is revoked.
func (e *Engine) Close() {
	e.once.Do(func() {
		e.dispatchWait(func() {
			for fileID, timer := range e.stepTimers {
				timer.Stop()
				delete(e.stepTimers, fileID)
			}
		})
		close(e.done)
		e.tracks.Close()
	})
}

// OnChange registers an observer invoked with the file ID after every state
// mutation. Callbacks run on the loop goroutine and must not block.
func (e *Engine) OnChange(fn func(fileID string)) {
	e.dispatch(func() { e.changeSubs = append(e.changeSubs, fn) })
}

func (e *Engine) notifyChange(fileID string) {
	for _, fn := range e.changeSubs {
		fn(fileID)
	}
}

// OpenFile makes fileID the current subject and kicks off a full fetch.
// Notifications for other files keep accumulating but are not acted on.
func (e *Engine) OpenFile(fileID string) {
	e.dispatch(func() {
		e.subject = fileID
		if _, ok := e.machines[fileID]; !ok {
			e.machines[fileID] = jobstate.NewMachine(fileID, e.opts.LLMConfigured)
		}
		e.fetchFile(fileID)
	})
}

// CloseFile drops the subject; stragglers for it are ignored from here on.
func (e *Engine) CloseFile() {
	e.dispatch(func() { e.subject = "" })
}

// HandleNotification is wired to the socket client. The notification joins
// the history unconditionally; it is acted on only if it reduces to a new
// state for the current subject.
func (e *Engine) HandleNotification(n *models.Notification) {
	e.dispatch(func() {
		e.reducer.Append(*n)
		if e.subject == "" || n.Data.FileID != e.subject {
			return
		}
		reduced, ok := e.reducer.Reduce(e.subject)
		if !ok {
			return
		}
		machine := e.machines[e.subject]
		if machine == nil {
			machine = jobstate.NewMachine(e.subject, e.opts.LLMConfigured)
			e.machines[e.subject] = machine
		}
		effects := machine.Apply(reduced)
		e.runEffects(effects)
		e.notifyChange(e.subject)
	})
}

// HandleConnectionState is wired to the socket client.
func (e *Engine) HandleConnectionState(s ws.State) {
	e.dispatch(func() {
		e.connection = s
		e.notifyChange(e.subject)
	})
}

func (e *Engine) runEffects(effects []jobstate.Effect) {
	for _, effect := range effects {
		switch effect.Kind {
		case jobstate.EffectRefetchTranscript:
			e.fetchTranscript(effect.FileID)
		case jobstate.EffectRefetchFile:
			e.fetchFile(effect.FileID)
		case jobstate.EffectClearStepAfter:
			e.scheduleStepClear(effect.FileID, effect.Delay)
		}
	}
}

func (e *Engine) scheduleStepClear(fileID string, delay time.Duration) {
	if prev, ok := e.stepTimers[fileID]; ok {
		prev.Stop()
	}
	e.stepTimers[fileID] = time.AfterFunc(delay, func() {
		e.dispatch(func() {
			delete(e.stepTimers, fileID)
			if m := e.machines[fileID]; m != nil {
				m.ClearStep()
				e.notifyChange(fileID)
			}
		})
	})
}

// fetchFile reloads full file state. The request is not cancelled if another
// fetch supersedes it; whichever response lands last wins.
func (e *Engine) fetchFile(fileID string) {
	go func() {
		file, err := e.api.GetFile(context.Background(), fileID)
		if err != nil {
			e.log.WithError(err).WithField("file_id", fileID).Warn("file fetch failed")
			return
		}
		e.dispatch(func() {
			e.files[fileID] = file
			e.refreshDerived(fileID)
			e.notifyChange(fileID)
		})
	}()
}

// fetchTranscript reloads transcript and speaker data only, leaving other
// locally held file fields untouched so in-progress edits survive.
func (e *Engine) fetchTranscript(fileID string) {
	go func() {
		data, speakers, err := e.api.GetTranscript(context.Background(), fileID)
		if err != nil {
			e.log.WithError(err).WithField("file_id", fileID).Warn("transcript fetch failed")
			return
		}
		e.dispatch(func() {
			file := e.files[fileID]
			if file == nil {
				file = &models.MediaFile{ID: fileID}
				e.files[fileID] = file
			}
			file.Segments = data.Segments
			file.Speakers = speakers
			file.SortSegments()
			e.refreshDerived(fileID)
			e.notifyChange(fileID)
		})
	}()
}

// refreshDerived recomputes everything downstream of transcript or speaker
// data: the caption track and the playback highlighter's segment list.
func (e *Engine) refreshDerived(fileID string) {
	file := e.files[fileID]
	if file == nil {
		return
	}
	if len(file.Segments) > 0 {
		names := models.SpeakerNameMap(file.Speakers)
		e.tracks.Install(fileID, captions.Synthesize(file.Segments, names))
	}
	if fileID == e.subject {
		e.playback.SetSegments(file.Segments)
	}
}

// EditSegmentText applies a transcript edit locally, regenerates the caption
// track, and pushes the edit to the backend without blocking the caller.
func (e *Engine) EditSegmentText(fileID, segmentID, text string) {
	e.dispatch(func() {
		file := e.files[fileID]
		if file == nil {
			e.log.WithField("file_id", fileID).Warn("segment edit for unknown file dropped")
			return
		}
		for i := range file.Segments {
			if file.Segments[i].ID == segmentID {
				file.Segments[i].Text = text
				break
			}
		}
		e.refreshDerived(fileID)
		e.notifyChange(fileID)

		go func() {
			if err := e.api.UpdateSegment(context.Background(), fileID, segmentID, text); err != nil {
				e.log.WithError(err).WithFields(logrus.Fields{
					"file_id": fileID, "segment_id": segmentID,
				}).Warn("segment update failed")
			}
		}()
	})
}

// RenameSpeaker sets a speaker's display name and regenerates everything the
// name map feeds.
func (e *Engine) RenameSpeaker(fileID, name, displayName string) {
	e.dispatch(func() {
		file := e.files[fileID]
		if file == nil {
			return
		}
		for i := range file.Speakers {
			if file.Speakers[i].Name == name {
				file.Speakers[i].DisplayName = displayName
			}
		}
		e.refreshDerived(fileID)
		e.notifyChange(fileID)
	})
}

// AddComment records a time-anchored annotation, kept sorted by timestamp so
// export merges stay two-pointer cheap.
func (e *Engine) AddComment(fileID string, comment models.Comment) {
	e.dispatch(func() {
		list := e.comments[fileID]
		pos := len(list)
		for i, c := range list {
			if comment.Timestamp < c.Timestamp {
				pos = i
				break
			}
		}
		list = append(list, models.Comment{})
		copy(list[pos+1:], list[pos:])
		list[pos] = comment
		e.comments[fileID] = list
		e.notifyChange(fileID)
	})
}

// Comments returns a copy of the file's comment stream, sorted by timestamp.
func (e *Engine) Comments(fileID string) []models.Comment {
	var out []models.Comment
	e.dispatchWait(func() {
		out = append(out, e.comments[fileID]...)
	})
	return out
}

// Reprocess re-enters the pending state and asks the backend to restart the
// pipeline. This is the only recovery path from an error state.
func (e *Engine) Reprocess(fileID string) {
	e.dispatch(func() {
		machine := e.machines[fileID]
		if machine == nil {
			machine = jobstate.NewMachine(fileID, e.opts.LLMConfigured)
			e.machines[fileID] = machine
		}
		machine.Reprocess()
		e.notifyChange(fileID)

		go func() {
			if err := e.api.Reprocess(context.Background(), fileID); err != nil {
				e.log.WithError(err).WithField("file_id", fileID).Warn("reprocess request failed")
			}
		}()
	})
}

// Summarize asks the backend for a fresh summary.
func (e *Engine) Summarize(fileID string) {
	go func() {
		if err := e.api.Summarize(context.Background(), fileID); err != nil {
			e.log.WithError(err).WithField("file_id", fileID).Warn("summarize request failed")
		}
	}()
}

// ClearCache drops the backend's cached artifacts for the file.
func (e *Engine) ClearCache(fileID string) error {
	return e.api.ClearCache(context.Background(), fileID)
}

// Tick forwards a playback time update for the subject file.
func (e *Engine) Tick(t float64) {
	if _, changed := e.playback.Tick(t); changed {
		e.dispatch(func() { e.notifyChange(e.subject) })
	}
}

// SnapshotFor assembles the current view of a file.
func (e *Engine) SnapshotFor(fileID string) Snapshot {
	var snap Snapshot
	e.dispatchWait(func() {
		snap = Snapshot{
			FileID:     fileID,
			Connection: e.connection,
			Unread:     e.reducer.UnreadCount(),
		}
		if file := e.files[fileID]; file != nil {
			copied := *file
			snap.File = &copied
		}
		if machine := e.machines[fileID]; machine != nil {
			snap.Job = machine.Status()
		}
		if handle, ok := e.tracks.Live(fileID); ok {
			snap.CaptionURL = handle.URL()
		}
		if fileID == e.subject {
			snap.ActiveSegmentID = e.playback.ActiveSegment()
		}
	})
	return snap
}

// ExportEntries returns the merged transcript + comment sequence and the
// speaker name map for rendering, both copied out of loop-owned state.
func (e *Engine) ExportEntries(fileID string) (segments []models.TranscriptSegment, comments []models.Comment, names map[string]string) {
	e.dispatchWait(func() {
		if file := e.files[fileID]; file != nil {
			segments = append(segments, file.Segments...)
			names = models.SpeakerNameMap(file.Speakers)
		}
		comments = append(comments, e.comments[fileID]...)
	})
	return segments, comments, names
}
