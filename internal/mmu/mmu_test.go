package mmu

import (
	"testing"

	"github.com/openrisc/or1ksim-go/internal/except"
)

func TestDisabledIsIdentity(t *testing.T) {
	m := New(Data, 4, 16)
	phys, _, cls := m.Translate(0x1234, Supervisor, Read)
	if cls != except.None || phys != 0x1234 {
		t.Fatalf("got %#x/%v, want identity/none", phys, cls)
	}
}

func TestMissRaisesTLBFault(t *testing.T) {
	m := New(Data, 4, 16)
	m.Enabled = true
	_, _, cls := m.Translate(0x1234, Supervisor, Read)
	if cls != except.DTLBMiss {
		t.Fatalf("got %v, want dtlb-miss", cls)
	}
}

func TestInstallThenTranslateRoundTrips(t *testing.T) {
	m := New(Data, 4, 16)
	m.Enabled = true
	vpn := uint32(0x1234) / pageSize
	set := m.setOf(vpn)
	m.Install(set, 0, Entry{Valid: true, VPN: vpn, PPN: 0x10, SupervisorAcc: 0x7})

	phys, _, cls := m.Translate(0x1234, Supervisor, Read)
	if cls != except.None {
		t.Fatalf("translate failed: %v", cls)
	}
	want := 0x10*uint32(pageSize) + (0x1234 % pageSize)
	if phys != want {
		t.Fatalf("got %#x, want %#x", phys, want)
	}
}

func TestPermissionDenied(t *testing.T) {
	m := New(Instruction, 4, 16)
	m.Enabled = true
	vpn := uint32(0x2000) / pageSize
	set := m.setOf(vpn)
	m.Install(set, 0, Entry{Valid: true, VPN: vpn, PPN: 1, SupervisorAcc: 0x3, UserAcc: 0})

	_, _, cls := m.Translate(0x2000, User, Execute)
	if cls != except.InsnPageFault {
		t.Fatalf("got %v, want insn-page-fault on a TLB hit denied by permissions", cls)
	}
}

func TestFlushClearsEntries(t *testing.T) {
	m := New(Data, 4, 16)
	m.Enabled = true
	vpn := uint32(0x1234) / pageSize
	set := m.setOf(vpn)
	m.Install(set, 0, Entry{Valid: true, VPN: vpn, PPN: 0x10, SupervisorAcc: 0x7})
	m.Flush()
	_, _, cls := m.Translate(0x1234, Supervisor, Read)
	if cls != except.DTLBMiss {
		t.Fatal("expected miss after flush")
	}
}
