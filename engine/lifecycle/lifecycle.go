// Package lifecycle owns the user-visible status of the single in-flight
// operation. Exactly one record is live at a time; each new operation
// overwrites it, and an explicit reset is the only path back to the idle
// state.
package lifecycle

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is the lifecycle position of the current record.
type State string

const (
	StateIdle      State = "idle"
	StatePending   State = "pending"
	StateSubmitted State = "submitted"
	StateFinalized State = "finalized"
	StateError     State = "error"
)

// Terminal reports whether the state admits no further transitions except
// reset.
func (s State) Terminal() bool {
	return s == StateFinalized || s == StateError
}

// Action is the operation kind a record describes.
type Action string

const (
	ActionDeposit     Action = "deposit"
	ActionWithdraw    Action = "withdraw"
	ActionWithdrawAll Action = "withdraw-all"
)

// Record is the in-memory trace of one operation. It is never persisted.
type Record struct {
	ID           string    `json:"id,omitempty"`
	State        State     `json:"state"`
	Action       Action    `json:"action,omitempty"`
	Amount       string    `json:"amount,omitempty"`
	SubmissionID string    `json:"submissionId,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ErrBusy reports that an operation is already in flight.
var ErrBusy = errors.New("lifecycle: operation already in flight")

// Machine guards the single live record. Transitions follow
// Idle→Pending→Submitted→{Finalized|Error}, plus the synchronous
// Idle→Error rejection path for pre-flight failures; nothing else is
// reachable.
type Machine struct {
	mu  sync.Mutex
	rec Record
}

// NewMachine starts in the idle state.
func NewMachine() *Machine {
	return &Machine{rec: Record{State: StateIdle, UpdatedAt: time.Now()}}
}

// Snapshot returns a copy of the live record.
func (m *Machine) Snapshot() Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rec
}

// Begin starts a new operation, overwriting the previous record. Only the
// idle state admits a new operation; anything else returns ErrBusy.
func (m *Machine) Begin(action Action, amount string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.State != StateIdle {
		return m.rec, ErrBusy
	}
	m.rec = Record{
		ID:        uuid.NewString(),
		State:     StatePending,
		Action:    action,
		Amount:    amount,
		UpdatedAt: time.Now(),
	}
	return m.rec, nil
}

// Reject records a synchronous pre-flight failure: the direct Idle→Error
// path that never reaches pending.
func (m *Machine) Reject(action Action, amount, detail string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.State != StateIdle {
		return m.rec, ErrBusy
	}
	m.rec = Record{
		ID:        uuid.NewString(),
		State:     StateError,
		Action:    action,
		Amount:    amount,
		Detail:    detail,
		UpdatedAt: time.Now(),
	}
	return m.rec, nil
}

// Submit records the submission identifier returned by the signer.
func (m *Machine) Submit(submissionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.State != StatePending {
		return m.transitionError(StateSubmitted)
	}
	m.rec.State = StateSubmitted
	m.rec.SubmissionID = submissionID
	m.rec.UpdatedAt = time.Now()
	return nil
}

// Finalize marks the submitted operation as successfully executed.
func (m *Machine) Finalize() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.State != StateSubmitted {
		return m.transitionError(StateFinalized)
	}
	m.rec.State = StateFinalized
	m.rec.UpdatedAt = time.Now()
	return nil
}

// Fail moves a pending or submitted operation to the error state with a
// human-readable detail.
func (m *Machine) Fail(detail string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec.State != StatePending && m.rec.State != StateSubmitted {
		return m.transitionError(StateError)
	}
	m.rec.State = StateError
	m.rec.Detail = detail
	m.rec.UpdatedAt = time.Now()
	return nil
}

// Reset clears a terminal record back to idle and reports whether it did.
// From any non-terminal state it is a no-op: dismissing the display of an
// in-flight operation must not abandon its record.
func (m *Machine) Reset() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.rec.State.Terminal() {
		return false
	}
	m.rec = Record{State: StateIdle, UpdatedAt: time.Now()}
	return true
}

func (m *Machine) transitionError(to State) error {
	return fmt.Errorf("lifecycle: illegal transition %s -> %s", m.rec.State, to)
}
