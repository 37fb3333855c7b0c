package pic

import (
	"testing"

	"github.com/openrisc/or1ksim-go/internal/scheduler"
)

func TestMaskedLineDoesNotDeliver(t *testing.T) {
	q := &scheduler.Queue{}
	p := New(q)
	delivered := 0
	p.Deliver = func() { delivered++ }

	p.Report(5) // line 5 not in Mask
	q.Advance(0)
	if delivered != 0 {
		t.Fatalf("delivered = %d, want 0 for masked line", delivered)
	}
	if p.Pending() {
		// Status is set even though delivery was suppressed; Pending()
		// only reports enabled lines, so this should be false.
		t.Fatalf("Pending() reported true for a masked, unreported line")
	}
}

func TestEnabledLineDelivers(t *testing.T) {
	q := &scheduler.Queue{}
	p := New(q)
	delivered := 0
	p.Deliver = func() { delivered++ }

	p.Mask = 1 << 5
	p.Report(5)
	q.Advance(0)
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1", delivered)
	}
	if !p.Pending() {
		t.Fatalf("Pending() = false, want true while line 5 is asserted and enabled")
	}
}

func TestNMILineAlwaysDelivers(t *testing.T) {
	q := &scheduler.Queue{}
	p := New(q)
	delivered := 0
	p.Deliver = func() { delivered++ }

	p.Report(0)
	q.Advance(0)
	if delivered != 1 {
		t.Fatalf("delivered = %d, want 1 for NMI line", delivered)
	}
}

func TestClearDeassertsLine(t *testing.T) {
	q := &scheduler.Queue{}
	p := New(q)
	p.Mask = 1 << 3
	p.Report(3)
	p.Clear(3)
	if p.Pending() {
		t.Fatalf("Pending() = true after Clear")
	}
}
