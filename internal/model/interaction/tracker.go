// Package interaction tracks in-flight multi-step inputs per user. The
// only flow today is bill capture: /addbill, then a photo, then a label.
// State lives in memory only; a restart simply abandons open flows.
package interaction

import "sync"

type Step int

const (
	StepNone Step = iota
	StepAwaitingPhoto
	StepAwaitingLabel
)

// State is the single slot a user can occupy. FileID is set once a
// photo has been captured and the label is pending.
type State struct {
	Step   Step
	FileID string
}

type Tracker struct {
	mu sync.Mutex
	m  map[int64]State
}

func NewTracker() *Tracker {
	return &Tracker{m: make(map[int64]State)}
}

// Get returns the user's active state, if any.
func (t *Tracker) Get(userID int64) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.m[userID]
	return st, ok
}

// StartCapture opens (or restarts) a bill-capture flow. A flow already
// in progress is discarded, photo included.
func (t *Tracker) StartCapture(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.m[userID] = State{Step: StepAwaitingPhoto}
}

// PhotoCaptured advances an awaiting-photo flow to awaiting-label.
func (t *Tracker) PhotoCaptured(userID int64, fileID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.m[userID] = State{Step: StepAwaitingLabel, FileID: fileID}
}

// Clear closes the user's flow.
func (t *Tracker) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.m, userID)
}
