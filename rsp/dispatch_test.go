package rsp

import (
	"testing"
)

type fakeTarget struct {
	regs       [33]uint32
	mem        map[uint32]byte
	continued  bool
	stepped    bool
	stopped    bool
	breakpoint uint32
	hasBreak   bool
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{mem: map[uint32]byte{}}
}

func (f *fakeTarget) ReadReg(n int) uint32     { return f.regs[n] }
func (f *fakeTarget) WriteReg(n int, v uint32) { f.regs[n] = v }

func (f *fakeTarget) ReadMem(addr uint32, n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := range out {
		out[i] = f.mem[addr+uint32(i)]
	}
	return out, true
}

func (f *fakeTarget) WriteMem(addr uint32, data []byte) bool {
	for i, b := range data {
		f.mem[addr+uint32(i)] = b
	}
	return true
}

func (f *fakeTarget) Continue()  { f.continued = true }
func (f *fakeTarget) Step()      { f.stepped = true }
func (f *fakeTarget) Stop()      { f.stopped = true }
func (f *fakeTarget) LastSignal() int { return 5 }

func (f *fakeTarget) SetBreakpoint(addr uint32) error {
	f.breakpoint = addr
	f.hasBreak = true
	return nil
}

func (f *fakeTarget) ClearBreakpoint(addr uint32) error {
	f.hasBreak = false
	return nil
}

func TestDispatchRegisterReadWrite(t *testing.T) {
	f := newFakeTarget()
	f.regs[3] = 0xdeadbeef

	if got := dispatch(f, "p3"); got != "deadbeef" {
		t.Fatalf("p3 = %q, want deadbeef", got)
	}

	if got := dispatch(f, "P5=cafebabe"); got != "OK" {
		t.Fatalf("P5 = %q, want OK", got)
	}
	if f.regs[5] != 0xcafebabe {
		t.Fatalf("regs[5] = %#x, want 0xcafebabe", f.regs[5])
	}
}

func TestDispatchMemoryReadWrite(t *testing.T) {
	f := newFakeTarget()
	if got := dispatch(f, "M1000,4:01020304"); got != "OK" {
		t.Fatalf("M = %q, want OK", got)
	}
	if got := dispatch(f, "m1000,4"); got != "01020304" {
		t.Fatalf("m = %q, want 01020304", got)
	}
}

func TestDispatchRunControl(t *testing.T) {
	f := newFakeTarget()
	dispatch(f, "c")
	if !f.continued {
		t.Fatalf("Continue not invoked")
	}
	dispatch(f, "s")
	if !f.stepped {
		t.Fatalf("Step not invoked")
	}
	dispatch(f, "k")
	if !f.stopped {
		t.Fatalf("Stop not invoked")
	}
}

func TestDispatchBreakpoints(t *testing.T) {
	f := newFakeTarget()
	if got := dispatch(f, "Z0,2000,4"); got != "OK" {
		t.Fatalf("Z = %q, want OK", got)
	}
	if !f.hasBreak || f.breakpoint != 0x2000 {
		t.Fatalf("breakpoint not set: hasBreak=%v addr=%#x", f.hasBreak, f.breakpoint)
	}
	if got := dispatch(f, "z0,2000,4"); got != "OK" {
		t.Fatalf("z = %q, want OK", got)
	}
	if f.hasBreak {
		t.Fatalf("breakpoint still set after clear")
	}
}

func TestDispatchUnknownPacketIgnored(t *testing.T) {
	f := newFakeTarget()
	if got := dispatch(f, "qSupported"); got != "" {
		t.Fatalf("unknown packet = %q, want empty", got)
	}
}
