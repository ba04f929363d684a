// Package jobstate interprets reduced push notifications into the per-file
// processing and summarization state the UI renders. There are no automatic
// retries anywhere in this machine: every error state is terminal until the
// user explicitly triggers reprocessing.
package jobstate

import (
	"strings"
	"sync"
	"time"

	"scribeview/sync-engine/models"
)

// TranscriptionPhase is the state of the transcription sub-machine.
type TranscriptionPhase string

const (
	TranscriptionPending    TranscriptionPhase = "pending"
	TranscriptionProcessing TranscriptionPhase = "processing"
	TranscriptionCompleted  TranscriptionPhase = "completed"
	TranscriptionError      TranscriptionPhase = "error"
)

// SummaryPhase is the state of the summarization sub-machine.
type SummaryPhase string

const (
	SummaryNone       SummaryPhase = "none"
	SummaryQueued     SummaryPhase = "queued"
	SummaryProcessing SummaryPhase = "processing"
	SummaryGenerating SummaryPhase = "generating"
	SummaryCompleted  SummaryPhase = "completed"
	SummaryFailed     SummaryPhase = "failed"
)

// stepClearDelay is how long a finished pipeline keeps showing its last step
// before the label is cleared.
const stepClearDelay = 2 * time.Second

// EffectKind identifies a side effect the machine asks its owner to perform.
// The machine itself never does I/O, which keeps its transitions testable.
type EffectKind int

const (
	// EffectRefetchTranscript reloads transcript data only, so in-progress
	// UI edits to other file fields are not clobbered.
	EffectRefetchTranscript EffectKind = iota
	// EffectRefetchFile reloads the full file state.
	EffectRefetchFile
	// EffectClearStepAfter schedules ClearStep after Delay.
	EffectClearStepAfter
)

// Effect is one deferred side effect produced by a transition.
type Effect struct {
	Kind   EffectKind
	FileID string
	Delay  time.Duration
}

// Status is a read-only snapshot of the machine.
type Status struct {
	FileID        string             `json:"file_id"`
	Transcription TranscriptionPhase `json:"transcription"`
	Progress      float64            `json:"progress"`
	CurrentStep   string             `json:"current_step,omitempty"`
	Summary       SummaryPhase       `json:"summary"`
	SummaryError  string             `json:"summary_error,omitempty"`
	LastError     string             `json:"last_error,omitempty"`
	Reprocessing  bool               `json:"reprocessing"`
}

// Machine is the coupled transcription + summarization state machine for one
// file.
type Machine struct {
	fileID        string
	llmConfigured bool

	mu            sync.Mutex
	transcription TranscriptionPhase
	progress      float64
	step          string
	summary       SummaryPhase
	summaryError  string
	lastError     string
	reprocessing  bool
}

// NewMachine starts a machine in the pending state. llmConfigured decides
// whether summarization is entered at all once transcription completes.
func NewMachine(fileID string, llmConfigured bool) *Machine {
	return &Machine{
		fileID:        fileID,
		llmConfigured: llmConfigured,
		transcription: TranscriptionPending,
		summary:       SummaryNone,
	}
}

// Apply feeds one reduced notification into the machine and returns the side
// effects the owner must carry out. Notifications for other files are the
// caller's bug; the reducer filters them before they get here.
func (m *Machine) Apply(n *models.Notification) []Effect {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch n.Type {
	case models.NotificationTranscription:
		return m.applyTranscription(n)
	case models.NotificationSummarization:
		m.applySummarization(n)
		return nil
	}
	return nil
}

func (m *Machine) applyTranscription(n *models.Notification) []Effect {
	switch n.Status {
	case "pending", "queued":
		m.transcription = TranscriptionPending

	case "processing":
		m.transcription = TranscriptionProcessing
		// Progress is taken as reported. The backend is expected to send
		// non-decreasing values but nothing enforces it; a lower value will
		// regress the bar (open question, kept as-is).
		if n.Progress != nil {
			m.progress = *n.Progress
		}
		m.step = n.CurrentStep

	case "completed":
		m.transcription = TranscriptionCompleted
		m.progress = 100
		m.lastError = ""
		effects := []Effect{
			{Kind: EffectClearStepAfter, FileID: m.fileID, Delay: stepClearDelay},
			{Kind: EffectRefetchTranscript, FileID: m.fileID},
		}
		if m.llmConfigured {
			m.summary = SummaryQueued
		} else {
			// No summarization will follow; release the reprocess guard now.
			m.reprocessing = false
		}
		return effects

	case "error":
		m.transcription = TranscriptionError
		m.step = ""
		if n.Message != nil {
			m.lastError = *n.Message
		}
		return []Effect{{Kind: EffectRefetchFile, FileID: m.fileID}}
	}
	return nil
}

func (m *Machine) applySummarization(n *models.Notification) {
	switch n.Status {
	case "queued":
		m.summary = SummaryQueued
	case "processing":
		m.summary = SummaryProcessing
	case "generating":
		m.summary = SummaryGenerating

	case "completed":
		m.summary = SummaryCompleted
		m.summaryError = ""
		m.reprocessing = false

	case "failed", "error":
		m.summary = SummaryFailed
		m.reprocessing = false
		if n.Message != nil && !isProviderUnconfigured(*n.Message) {
			m.summaryError = *n.Message
		} else {
			// Failing because no LLM provider is configured is expected,
			// not a user-facing error.
			m.summaryError = ""
		}
	}
}

// ClearStep wipes the pipeline step label. Scheduled by the owner when a
// transition asked for EffectClearStepAfter.
func (m *Machine) ClearStep() {
	m.mu.Lock()
	m.step = ""
	m.mu.Unlock()
}

// Reprocess re-enters the pending state on user request. The reprocessing
// flag stays true across both sub-machines and is only released when
// summarization reaches a terminal state (or at transcription completion
// when no LLM is configured), so the UI cannot re-enable reprocess controls
// mid-pipeline.
func (m *Machine) Reprocess() {
	m.mu.Lock()
	m.transcription = TranscriptionPending
	m.progress = 0
	m.step = ""
	m.summary = SummaryNone
	m.summaryError = ""
	m.lastError = ""
	m.reprocessing = true
	m.mu.Unlock()
}

// Status returns a copy of the machine's current state.
func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		FileID:        m.fileID,
		Transcription: m.transcription,
		Progress:      m.progress,
		CurrentStep:   m.step,
		Summary:       m.summary,
		SummaryError:  m.summaryError,
		LastError:     m.lastError,
		Reprocessing:  m.reprocessing,
	}
}

// isProviderUnconfigured matches backend failure messages that only mean "no
// LLM provider is configured", which the UI suppresses.
func isProviderUnconfigured(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{
		"no llm provider",
		"no provider configured",
		"provider not configured",
		"llm not configured",
	} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
