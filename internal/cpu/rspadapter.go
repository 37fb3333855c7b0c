package cpu

import "github.com/openrisc/or1ksim-go/internal/debug"

// RSPAdapter exposes CPU as rsp.Target without giving the RSP server a
// direct dependency on internal/cpu's full surface. GDB's register
// map places PC at index 32, one past the 32 GPRs.
type RSPAdapter struct {
	C *CPU
}

func (a RSPAdapter) ReadReg(n int) uint32 {
	if n == 32 {
		return a.C.PC
	}
	if n < 0 || n > 31 {
		return 0
	}
	return a.C.Reg(uint8(n))
}

func (a RSPAdapter) WriteReg(n int, v uint32) {
	if n == 32 {
		a.C.PC = v
		a.C.NPC = v + 4
		return
	}
	if n < 0 || n > 31 {
		return
	}
	a.C.SetReg(uint8(n), v)
}

func (a RSPAdapter) ReadMem(addr uint32, n int) ([]byte, bool) {
	out := make([]byte, n)
	for i := range out {
		b, ok := a.C.Mem.ReadDirect(addr + uint32(i))
		if !ok {
			return nil, false
		}
		out[i] = b
	}
	return out, true
}

func (a RSPAdapter) WriteMem(addr uint32, data []byte) bool {
	for i, b := range data {
		if !a.C.Mem.WriteDirect(addr+uint32(i), b) {
			return false
		}
	}
	return true
}

func (a RSPAdapter) Continue() {
	for !a.C.Halted && !a.C.Stalled {
		a.C.Step()
		if a.C.Debug.Evaluate(a.C.PC) {
			break
		}
	}
}

func (a RSPAdapter) Step() {
	a.C.Step()
}

func (a RSPAdapter) Stop() {
	a.C.Halted = true
}

// SetBreakpoint installs addr into the first free matchpoint
// comparator.
func (a RSPAdapter) SetBreakpoint(addr uint32) error {
	for i := range a.C.Debug.Points {
		if !a.C.Debug.Points[i].Enabled {
			a.C.Debug.Points[i] = debug.Matchpoint{
				Enabled: true, Op: debug.CompareEQ, Value: addr, Generates: true,
			}
			return nil
		}
	}
	return errNoFreeMatchpoint
}

// ClearBreakpoint removes the matchpoint watching addr, if any.
func (a RSPAdapter) ClearBreakpoint(addr uint32) error {
	for i := range a.C.Debug.Points {
		if a.C.Debug.Points[i].Enabled && a.C.Debug.Points[i].Value == addr {
			a.C.Debug.Points[i] = debug.Matchpoint{}
			return nil
		}
	}
	return nil
}

// LastSignal maps simulator state to a Unix-style signal number, the
// vocabulary GDB's RSP "?"/"S" replies use. Halted reports as
// SIGTRAP, matching a guest executing l.nop NOP_EXIT; anything else
// currently running also reports SIGTRAP since stop reasons beyond
// halt aren't yet tracked per-event.
func (a RSPAdapter) LastSignal() int {
	const sigtrap = 5
	return sigtrap
}

type noFreeMatchpoint struct{}

func (noFreeMatchpoint) Error() string { return "cpu: no free matchpoint comparators" }

var errNoFreeMatchpoint = noFreeMatchpoint{}
