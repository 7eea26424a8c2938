package session

import (
	"encoding/json"
	"sync"

	"github.com/AppleLamps/x-wrapped/internal/stream"

	"github.com/google/uuid"
)

// Phase tracks where a session is in its lifecycle.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseSucceeded Phase = "succeeded"
	PhaseFailed    Phase = "failed"
)

// UnexpectedEndMessage is the failure recorded when the stream closes before
// a terminal event arrives.
const UnexpectedEndMessage = "stream ended unexpectedly, please try again"

// Progress mirrors the latest progress event.
type Progress struct {
	Step    int    `json:"step"`
	Total   int    `json:"total"`
	Message string `json:"message"`
	Month   string `json:"month,omitempty"`
}

// State is the client-held view of one streaming session. It is rebuilt on
// every Begin and never persisted.
type State struct {
	Phase    Phase           `json:"phase"`
	Progress Progress        `json:"progress"`
	Log      []string        `json:"log,omitempty"`
	Report   json.RawMessage `json:"report,omitempty"`
	Failure  string          `json:"failure,omitempty"`
}

// Handle identifies one generation of session state. Events applied through
// a superseded handle are discarded, so a stale reader goroutine cannot
// write into the state of a newer session.
type Handle struct {
	id  string
	gen uint64
}

// ID returns the session identifier, used for log correlation.
func (h Handle) ID() string { return h.id }

// Reconciler owns session state and folds stream events into it in arrival
// order. Safe for concurrent use.
type Reconciler struct {
	mu    sync.Mutex
	gen   uint64
	state State
}

// NewReconciler starts in the idle phase.
func NewReconciler() *Reconciler {
	return &Reconciler{state: State{Phase: PhaseIdle, Progress: defaultProgress()}}
}

func defaultProgress() Progress {
	return Progress{Step: 0, Total: 3}
}

// Begin abandons any in-flight session and resets state for a new run.
func (r *Reconciler) Begin() Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gen++
	r.state = State{Phase: PhaseRunning, Progress: defaultProgress()}
	return Handle{id: uuid.NewString(), gen: r.gen}
}

// Apply folds one event into the state. It reports whether the event was
// accepted: events from a superseded handle, events after a terminal phase,
// and nil events are ignored.
func (r *Reconciler) Apply(h Handle, ev stream.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.gen != r.gen || r.terminalLocked() {
		return false
	}
	switch v := ev.(type) {
	case stream.Progress:
		r.state.Progress = Progress{Step: v.Step, Total: v.Total, Message: v.Message, Month: v.Month}
	case stream.AnalysisChunk:
		r.state.Log = append(r.state.Log, v.Content)
	case stream.Complete:
		r.state.Report = v.Data
		r.state.Phase = PhaseSucceeded
	case stream.Error:
		r.state.Failure = v.Message
		r.state.Phase = PhaseFailed
	default:
		return false
	}
	return true
}

// End marks stream exhaustion for the handle's session. A session still
// running fails with the generic truncation message; a session already in a
// terminal phase is left alone.
func (r *Reconciler) End(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h.gen != r.gen || r.terminalLocked() {
		return
	}
	r.state.Phase = PhaseFailed
	r.state.Failure = UnexpectedEndMessage
}

// State returns a copy of the current session state.
func (r *Reconciler) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.state
	out.Log = append([]string(nil), r.state.Log...)
	out.Report = append(json.RawMessage(nil), r.state.Report...)
	return out
}

func (r *Reconciler) terminalLocked() bool {
	return r.state.Phase == PhaseSucceeded || r.state.Phase == PhaseFailed
}
