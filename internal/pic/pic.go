// Package pic implements the programmable interrupt controller: a
// 32-line status/mask register pair plus two non-maskable lines.
//
// Report hands delivery to the scheduler as a zero-delay job, and the
// scheduler runs zero-delay jobs at once, so Deliver is called before
// Report returns; delivery is not held back to an instruction
// boundary. The CPU separately checks Pending at the top of each Step,
// the way the teacher consumes IrqPending at the top of CycleCPU.
package pic

import "github.com/openrisc/or1ksim-go/internal/scheduler"

const nmiLines = 2

// PIC aggregates interrupt lines and reports whether any enabled,
// asserted line should currently interrupt the core.
type PIC struct {
	Status uint32 // PICSR: line N set -> asserted
	Mask   uint32 // PICMR: line N set -> enabled (ignored for NMI lines)

	sched   *scheduler.Queue
	Deliver func()
}

// New builds a PIC that defers delivery onto q.
func New(q *scheduler.Queue) *PIC {
	return &PIC{sched: q}
}

// Report asserts interrupt line n (0..31). Lines 0 and 1 are
// non-maskable and always deliver; the rest are gated by Mask.
func (p *PIC) Report(n int) {
	if n < 0 || n > 31 {
		return
	}
	p.Status |= 1 << uint(n)
	if n < nmiLines || p.Mask&(1<<uint(n)) != 0 {
		p.sched.Add(nil, func(any) {
			if p.Deliver != nil {
				p.Deliver()
			}
		}, 0, nil)
	}
}

// Clear deasserts line n, acknowledging it from the guest side.
func (p *PIC) Clear(n int) {
	if n < 0 || n > 31 {
		return
	}
	p.Status &^= 1 << uint(n)
}

// Pending reports whether any currently asserted, enabled line (or
// either NMI line) is still outstanding.
func (p *PIC) Pending() bool {
	enabled := p.Mask | (1<<nmiLines - 1)
	return p.Status&enabled != 0
}
