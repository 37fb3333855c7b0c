package memory

import (
	"testing"

	"github.com/openrisc/or1ksim-go/internal/except"
)

func TestRegisterAndReadWrite(t *testing.T) {
	var m Map
	if err := m.RegisterRegion(NewRAM("ram", 0, 0x1000)); err != nil {
		t.Fatal(err)
	}

	if cls, _ := m.WriteWord(0x100, 0xdeadbeef); cls != except.None {
		t.Fatalf("write: %v", cls)
	}
	v, cls, delay := m.ReadWord(0x100)
	if cls != except.None || v != 0xdeadbeef {
		t.Fatalf("got %#x/%v, want 0xdeadbeef/none", v, cls)
	}
	if delay != defaultDelay {
		t.Fatalf("delay = %d, want default %d for an unconfigured region", delay, defaultDelay)
	}
}

func TestConfiguredRegionDelayIsReported(t *testing.T) {
	var m Map
	r := NewRAM("ram", 0, 0x1000)
	r.Delay.Read = 4
	r.Delay.Write = 7
	if err := m.RegisterRegion(r); err != nil {
		t.Fatal(err)
	}
	if _, delay := m.WriteWord(0x10, 1); delay != 7 {
		t.Fatalf("write delay = %d, want 7", delay)
	}
	if _, _, delay := m.ReadWord(0x10); delay != 4 {
		t.Fatalf("read delay = %d, want 4", delay)
	}
}

func TestOverlapRejected(t *testing.T) {
	var m Map
	if err := m.RegisterRegion(NewRAM("a", 0, 0x1000)); err != nil {
		t.Fatal(err)
	}
	if err := m.RegisterRegion(NewRAM("b", 0x800, 0x1000)); err == nil {
		t.Fatal("expected overlap error")
	}
}

func TestUnmappedIsBusError(t *testing.T) {
	var m Map
	_, cls, _ := m.ReadWord(0xff00_0000)
	if cls != except.BusError {
		t.Fatalf("got %v, want bus-error", cls)
	}
}

func TestSizeRoundedToPowerOfTwo(t *testing.T) {
	var m Map
	r := NewRAM("ram", 0, 0x1000)
	r.Size = 0x1001
	if err := m.RegisterRegion(r); err != nil {
		t.Fatal(err)
	}
	if r.Size != 0x2000 {
		t.Fatalf("got size %#x, want 0x2000", r.Size)
	}
}

func TestDirectBypassesNothingButStillChecksBounds(t *testing.T) {
	var m Map
	if err := m.RegisterRegion(NewRAM("ram", 0, 0x10)); err != nil {
		t.Fatal(err)
	}
	if ok := m.WriteDirect(4, 0x42); !ok {
		t.Fatal("expected direct write to succeed")
	}
	v, ok := m.ReadDirect(4)
	if !ok || v != 0x42 {
		t.Fatalf("got %#x/%v, want 0x42/true", v, ok)
	}
	if _, ok := m.ReadDirect(0x1000); ok {
		t.Fatal("expected direct read outside any region to fail")
	}
}
