package vm

import (
	"testing"

	"github.com/simonw/micro-javascript-sub000/value"
)

func TestPollLimitStepBudget(t *testing.T) {
	m := New(NewRealm())
	m.MaxSteps = 3
	for i := 0; i < 3; i++ {
		if err := m.pollLimit(); err != nil {
			t.Fatalf("unexpected breach on step %d: %v", i, err)
		}
	}
	err := m.pollLimit()
	if err == nil {
		t.Fatal("expected a step-budget breach on the 4th poll")
	}
	le, ok := err.(*LimitError)
	if !ok {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	if le.Kind != "step" {
		t.Errorf("Kind = %q, want %q", le.Kind, "step")
	}
}

func TestPollLimitMemoryBudget(t *testing.T) {
	m := New(NewRealm())
	m.MaxMemoryBytes = 150
	m.stack = append(m.stack, value.Undefined)
	if err := m.pollLimit(); err != nil {
		t.Fatalf("unexpected breach at 1 stack slot (100 bytes): %v", err)
	}
	m.stack = append(m.stack, value.Undefined)
	err := m.pollLimit()
	if err == nil {
		t.Fatal("expected a memory-budget breach at 2 stack slots (200 bytes)")
	}
	le, ok := err.(*LimitError)
	if !ok {
		t.Fatalf("expected *LimitError, got %T", err)
	}
	if le.Kind != "memory" {
		t.Errorf("Kind = %q, want %q", le.Kind, "memory")
	}
}

func TestPollLimitTimeCallbackFiresOnCadence(t *testing.T) {
	m := New(NewRealm())
	m.PollEvery = 2
	calls := 0
	m.PollCB = func() error {
		calls++
		return nil
	}
	for i := 0; i < 5; i++ {
		if err := m.pollLimit(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 2 {
		t.Errorf("PollCB invoked %d times over 5 steps at cadence 2, want 2", calls)
	}
}

func TestPollLimitTimeBreachWrapsAsLimitError(t *testing.T) {
	m := New(NewRealm())
	m.PollEvery = 1
	m.PollCB = func() error { return errBudget }
	err := m.pollLimit()
	le, ok := err.(*LimitError)
	if !ok {
		t.Fatalf("expected *LimitError, got %T (%v)", err, err)
	}
	if le.Kind != "time" {
		t.Errorf("Kind = %q, want %q", le.Kind, "time")
	}
}

var errBudget = &testError{"exceeded time limit"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
