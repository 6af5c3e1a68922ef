package lifecycle

import (
	"errors"
	"testing"
)

// driveTo walks a fresh machine into the requested state.
func driveTo(t *testing.T, state State) *Machine {
	t.Helper()
	m := NewMachine()
	switch state {
	case StateIdle:
	case StatePending:
		mustBegin(t, m)
	case StateSubmitted:
		mustBegin(t, m)
		if err := m.Submit("sub-1"); err != nil {
			t.Fatalf("submit: %v", err)
		}
	case StateFinalized:
		mustBegin(t, m)
		if err := m.Submit("sub-1"); err != nil {
			t.Fatalf("submit: %v", err)
		}
		if err := m.Finalize(); err != nil {
			t.Fatalf("finalize: %v", err)
		}
	case StateError:
		mustBegin(t, m)
		if err := m.Fail("boom"); err != nil {
			t.Fatalf("fail: %v", err)
		}
	default:
		t.Fatalf("unknown state %s", state)
	}
	if got := m.Snapshot().State; got != state {
		t.Fatalf("drove to %s, got %s", state, got)
	}
	return m
}

func mustBegin(t *testing.T, m *Machine) {
	t.Helper()
	if _, err := m.Begin(ActionDeposit, "1 sui"); err != nil {
		t.Fatalf("begin: %v", err)
	}
}

func TestTransitionTable(t *testing.T) {
	states := []State{StateIdle, StatePending, StateSubmitted, StateFinalized, StateError}

	type event struct {
		name  string
		apply func(*Machine) error
		next  State
	}
	events := []event{
		{"begin", func(m *Machine) error { _, err := m.Begin(ActionDeposit, "1 sui"); return err }, StatePending},
		{"reject", func(m *Machine) error { _, err := m.Reject(ActionDeposit, "1 sui", "nope"); return err }, StateError},
		{"submit", func(m *Machine) error { return m.Submit("sub-2") }, StateSubmitted},
		{"finalize", func(m *Machine) error { return m.Finalize() }, StateFinalized},
		{"fail", func(m *Machine) error { return m.Fail("boom") }, StateError},
	}

	legal := map[State]map[string]bool{
		StateIdle:      {"begin": true, "reject": true},
		StatePending:   {"submit": true, "fail": true},
		StateSubmitted: {"finalize": true, "fail": true},
		StateFinalized: {},
		StateError:     {},
	}

	for _, from := range states {
		for _, ev := range events {
			m := driveTo(t, from)
			err := ev.apply(m)
			got := m.Snapshot().State
			if legal[from][ev.name] {
				if err != nil {
					t.Fatalf("%s/%s: expected legal transition, got %v", from, ev.name, err)
				}
				if got != ev.next {
					t.Fatalf("%s/%s: expected %s, got %s", from, ev.name, ev.next, got)
				}
				continue
			}
			if err == nil {
				t.Fatalf("%s/%s: expected rejection", from, ev.name)
			}
			if got != from {
				t.Fatalf("%s/%s: illegal event mutated state to %s", from, ev.name, got)
			}
		}
	}
}

func TestBeginWhileBusyReturnsErrBusy(t *testing.T) {
	m := driveTo(t, StatePending)
	if _, err := m.Begin(ActionWithdraw, "2 sui"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
}

func TestResetOnlyFromTerminalStates(t *testing.T) {
	for _, state := range []State{StateIdle, StatePending, StateSubmitted} {
		m := driveTo(t, state)
		if m.Reset() {
			t.Fatalf("reset from %s must be a no-op", state)
		}
		if got := m.Snapshot().State; got != state {
			t.Fatalf("reset from %s mutated state to %s", state, got)
		}
	}
	for _, state := range []State{StateFinalized, StateError} {
		m := driveTo(t, state)
		if !m.Reset() {
			t.Fatalf("reset from %s must succeed", state)
		}
		if got := m.Snapshot().State; got != StateIdle {
			t.Fatalf("reset from %s landed in %s", state, got)
		}
	}
}

func TestRecordOverwrittenPerOperation(t *testing.T) {
	m := driveTo(t, StateError)
	first := m.Snapshot()
	if !m.Reset() {
		t.Fatalf("reset failed")
	}
	rec, err := m.Begin(ActionWithdrawAll, "all usdc")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if rec.ID == first.ID {
		t.Fatalf("new operation must get a fresh record id")
	}
	if rec.Detail != "" || rec.SubmissionID != "" {
		t.Fatalf("record must start clean, got %+v", rec)
	}
}

func TestRejectCarriesDetail(t *testing.T) {
	m := NewMachine()
	rec, err := m.Reject(ActionDeposit, "5 usdc", "insufficient gas")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rec.State != StateError || rec.Detail != "insufficient gas" {
		t.Fatalf("unexpected record %+v", rec)
	}
}
