// Package tick implements the cycle-counted tick timer (TTMR/TTCR),
// which self-reposts onto the scheduler the same way the teacher's
// wall-clock timer reposts onto its ticker in emu/timer/timer.go —
// except this timer's notion of time is the simulated cycle count,
// not wall time.
package tick

import (
	"log/slog"

	"github.com/openrisc/or1ksim-go/internal/logutil"
	"github.com/openrisc/or1ksim-go/internal/scheduler"
)

var tickLog = logutil.ForModule(slog.Default(), "tick")

// Mode selects one of the four TTMR operating modes.
type Mode uint8

const (
	Disabled Mode = iota
	RestartOnMatch
	StopOnMatch
	ContinueOnMatch
)

const periodMask = 0x0fffffff

// Timer is the tick-timer unit. Raise is called when TTCR reaches the
// value configured in TTMR's period field.
type Timer struct {
	TTMR  uint32
	TTCR  uint32
	Raise func()

	sched *scheduler.Queue
	key   struct{}
}

// New builds a tick timer that schedules its own compare events on q.
func New(q *scheduler.Queue) *Timer {
	return &Timer{sched: q}
}

func (t *Timer) mode() Mode {
	return Mode((t.TTMR >> 30) & 0x3)
}

func (t *Timer) interruptEnabled() bool {
	return t.TTMR&(1<<29) != 0
}

func (t *Timer) period() uint32 {
	return t.TTMR & periodMask
}

// SetTTMR updates the mode register and reschedules the compare
// event from the current TTCR value.
func (t *Timer) SetTTMR(v uint32) {
	t.TTMR = v
	t.reschedule()
}

func (t *Timer) reschedule() {
	t.sched.Cancel(&t.key)
	if t.mode() == Disabled {
		return
	}
	period := t.period()
	if t.TTCR >= period {
		return
	}
	remaining := int(period - t.TTCR)
	t.sched.Add(&t.key, func(any) { t.fire() }, remaining, nil)
}

func (t *Timer) fire() {
	t.TTCR = t.period()
	switch t.mode() {
	case RestartOnMatch:
		t.TTCR = 0
		t.reschedule()
	case StopOnMatch:
		// TTCR holds at the period value; mode effectively disables.
	case ContinueOnMatch:
		t.reschedule()
	}
	if t.interruptEnabled() {
		tickLog.Debug("interrupt raised")
		if t.Raise != nil {
			t.Raise()
		}
	}
}

// Advance is called once per retired instruction with its cycle cost;
// it keeps TTCR in step even between compare events (so reads of
// TTCR outside the handler are accurate) without needing its own
// scheduler slot for every single cycle.
func (t *Timer) Advance(cycles int) {
	if t.mode() == Disabled {
		return
	}
	t.TTCR += uint32(cycles)
}
