package tick

import (
	"testing"

	"github.com/openrisc/or1ksim-go/internal/scheduler"
)

func TestRestartOnMatchFiresAndReschedules(t *testing.T) {
	q := &scheduler.Queue{}
	tm := New(q)
	fired := 0
	tm.Raise = func() { fired++ }

	tm.SetTTMR(uint32(RestartOnMatch)<<30 | 1<<29 | 10)
	q.Advance(10)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	if tm.TTCR != 0 {
		t.Fatalf("TTCR = %d, want 0 after restart", tm.TTCR)
	}

	q.Advance(10)
	if fired != 2 {
		t.Fatalf("fired = %d, want 2 after second period", fired)
	}
}

func TestStopOnMatchFiresOnce(t *testing.T) {
	q := &scheduler.Queue{}
	tm := New(q)
	fired := 0
	tm.Raise = func() { fired++ }

	tm.SetTTMR(uint32(StopOnMatch)<<30 | 1<<29 | 5)
	q.Advance(5)
	if fired != 1 {
		t.Fatalf("fired = %d, want 1", fired)
	}
	q.Advance(1000)
	if fired != 1 {
		t.Fatalf("fired = %d after stop, want still 1", fired)
	}
}

func TestDisabledNeverFires(t *testing.T) {
	q := &scheduler.Queue{}
	tm := New(q)
	fired := 0
	tm.Raise = func() { fired++ }
	tm.SetTTMR(0)
	tm.Advance(1_000_000)
	q.Advance(1_000_000)
	if fired != 0 {
		t.Fatalf("fired = %d, want 0 while disabled", fired)
	}
}

func TestAdvanceKeepsTTCRInStepBetweenEvents(t *testing.T) {
	q := &scheduler.Queue{}
	tm := New(q)
	tm.SetTTMR(uint32(ContinueOnMatch)<<30 | 100)
	tm.Advance(7)
	if tm.TTCR != 7 {
		t.Fatalf("TTCR = %d, want 7", tm.TTCR)
	}
}
