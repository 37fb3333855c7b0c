package cpu

import (
	"github.com/openrisc/or1ksim-go/internal/decode"
	"github.com/openrisc/or1ksim-go/internal/except"
	"github.com/openrisc/or1ksim-go/internal/mmu"
)

// handler is one opcode's execution routine. It returns the cycle
// cost of the instruction. Table is built once in init(), the same
// "precompute once, index at dispatch time" idiom as the teacher's
// cpu.table[step.opcode] dense dispatch array, adapted from an array
// indexed by a single opcode byte to a map indexed by decode.Op since
// OR1K's Op space is not contiguous the way S/370's is.
type handler func(c *CPU, ins decode.Instruction) int

var handlers map[decode.Op]handler

func init() {
	handlers = map[decode.Op]handler{
		decode.LWZ: load(4, false), decode.LWS: load(4, true),
		decode.LBZ: load(1, false), decode.LBS: load(1, true),
		decode.LHZ: load(2, false), decode.LHS: load(2, true),
		decode.SW: store(4), decode.SB: store(1), decode.SH: store(2),

		decode.ADD:  aluAdd(decode.ADD),
		decode.ADDC: aluAdd(decode.ADDC),
		decode.SUB:  aluAdd(decode.SUB),
		decode.AND:  aluR(func(a, b uint32) uint32 { return a & b }),
		decode.OR:   aluR(func(a, b uint32) uint32 { return a | b }),
		decode.XOR:  aluR(func(a, b uint32) uint32 { return a ^ b }),
		decode.MUL:  aluR(func(a, b uint32) uint32 { return a * b }),
		decode.DIV:  aluRFault(func(a, b uint32) (uint32, bool) {
			if b == 0 {
				return 0, false
			}
			return uint32(int32(a) / int32(b)), true
		}),
		decode.DIVU: aluRFault(func(a, b uint32) (uint32, bool) {
			if b == 0 {
				return 0, false
			}
			return a / b, true
		}),

		decode.ADDI:  aluAddImm(false),
		decode.ADDIC: aluAddImm(true),
		decode.ANDI:  aluIU(func(a, imm uint32) uint32 { return a & imm }),
		decode.ORI:   aluIU(func(a, imm uint32) uint32 { return a | imm }),
		decode.XORI:  aluI(func(a uint32, imm int32) uint32 { return a ^ uint32(imm) }),
		decode.MULI:  aluI(func(a uint32, imm int32) uint32 { return a * uint32(imm) }),

		decode.SLL:  shiftOp(func(a, n uint32) uint32 { return a << (n & 0x1f) }),
		decode.SLLI: shiftOp(func(a, n uint32) uint32 { return a << (n & 0x1f) }),
		decode.SRL:  shiftOp(func(a, n uint32) uint32 { return a >> (n & 0x1f) }),
		decode.SRLI: shiftOp(func(a, n uint32) uint32 { return a >> (n & 0x1f) }),
		decode.SRA:  shiftOp(func(a, n uint32) uint32 { return uint32(int32(a) >> (n & 0x1f)) }),
		decode.SRAI: shiftOp(func(a, n uint32) uint32 { return uint32(int32(a) >> (n & 0x1f)) }),
		decode.ROR:  shiftOp(rotateRight),
		decode.RORI: shiftOp(rotateRight),

		decode.MOVHI: func(c *CPU, ins decode.Instruction) int {
			c.SetReg(ins.D, uint32(ins.Imm)<<16)
			return 1
		},

		decode.EXTBS: func(c *CPU, ins decode.Instruction) int { c.SetReg(ins.D, uint32(int8(c.Reg(ins.A)))); return 1 },
		decode.EXTBZ: func(c *CPU, ins decode.Instruction) int { c.SetReg(ins.D, uint32(uint8(c.Reg(ins.A)))); return 1 },
		decode.EXTHS: func(c *CPU, ins decode.Instruction) int { c.SetReg(ins.D, uint32(int16(c.Reg(ins.A)))); return 1 },
		decode.EXTHZ: func(c *CPU, ins decode.Instruction) int { c.SetReg(ins.D, uint32(uint16(c.Reg(ins.A)))); return 1 },

		decode.SFEQ:  setFlag(func(a, b uint32) bool { return a == b }),
		decode.SFNE:  setFlag(func(a, b uint32) bool { return a != b }),
		decode.SFGTU: setFlag(func(a, b uint32) bool { return a > b }),
		decode.SFGEU: setFlag(func(a, b uint32) bool { return a >= b }),
		decode.SFLTU: setFlag(func(a, b uint32) bool { return a < b }),
		decode.SFLEU: setFlag(func(a, b uint32) bool { return a <= b }),
		decode.SFGTS: setFlag(func(a, b uint32) bool { return int32(a) > int32(b) }),
		decode.SFGES: setFlag(func(a, b uint32) bool { return int32(a) >= int32(b) }),
		decode.SFLTS: setFlag(func(a, b uint32) bool { return int32(a) < int32(b) }),
		decode.SFLES: setFlag(func(a, b uint32) bool { return int32(a) <= int32(b) }),

		decode.J:   func(c *CPU, ins decode.Instruction) int { return branch(c, uint32(int32(c.PC)+ins.Target), true) },
		decode.JAL: func(c *CPU, ins decode.Instruction) int {
			c.SetReg(9, c.PC+8)
			return branch(c, uint32(int32(c.PC)+ins.Target), true)
		},
		decode.JR:   func(c *CPU, ins decode.Instruction) int { return branch(c, c.Reg(ins.B), true) },
		decode.JALR: func(c *CPU, ins decode.Instruction) int {
			c.SetReg(9, c.PC+8)
			return branch(c, c.Reg(ins.B), true)
		},
		decode.BF: func(c *CPU, ins decode.Instruction) int {
			taken := c.flag()
			c.updatePredictor(c.PC, taken)
			return branch(c, uint32(int32(c.PC)+ins.Target), taken)
		},
		decode.BNF: func(c *CPU, ins decode.Instruction) int {
			taken := !c.flag()
			c.updatePredictor(c.PC, taken)
			return branch(c, uint32(int32(c.PC)+ins.Target), taken)
		},

		decode.NOP: func(c *CPU, ins decode.Instruction) int {
			// l.nop with an unrecognized immediate is architecturally
			// a no-op; only the host-call codes this simulator
			// understands have an effect. See DESIGN.md for the
			// resolution of the corresponding Open Question.
			c.execNop(ins)
			c.PC = c.NPC
			c.NPC += 4
			return 1
		},

		decode.RFE: func(c *CPU, ins decode.Instruction) int {
			c.Return()
			return 2
		},

		decode.SYS:  func(c *CPU, ins decode.Instruction) int { c.raise(except.SystemCall, 0); return 1 },
		decode.TRAP: func(c *CPU, ins decode.Instruction) int { c.raise(except.Trap, 0); return 1 },

		decode.MFSPR: func(c *CPU, ins decode.Instruction) int {
			c.SetReg(ins.D, c.SPR(uint16(int32(c.Reg(ins.A))+ins.Imm)))
			c.PC = c.NPC
			c.NPC += 4
			return 1
		},
		decode.MTSPR: func(c *CPU, ins decode.Instruction) int {
			c.SetSPR(uint16(int32(c.Reg(ins.A))+ins.Imm), c.Reg(ins.B))
			c.PC = c.NPC
			c.NPC += 4
			return 1
		},
	}
}

func (c *CPU) execute(ins decode.Instruction) int {
	if ins.Op == decode.Invalid {
		c.raise(except.IllegalInsn, 0)
		return 1
	}
	h, ok := handlers[ins.Op]
	if !ok {
		c.raise(except.IllegalInsn, 0)
		return 1
	}
	return h(c, ins)
}

// flagBit is where the single condition flag used by l.sf*/l.bf/l.bnf
// lives; OR1K keeps it in SR.
const flagBit = 1 << 7

func (c *CPU) flag() bool { return c.SR&flagBit != 0 }
func (c *CPU) setFlagBit(v bool) {
	if v {
		c.SR |= flagBit
	} else {
		c.SR &^= flagBit
	}
}

func setFlag(cmp func(a, b uint32) bool) handler {
	return func(c *CPU, ins decode.Instruction) int {
		c.setFlagBit(cmp(c.Reg(ins.A), c.Reg(ins.B)))
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

func aluR(op func(a, b uint32) uint32) handler {
	return func(c *CPU, ins decode.Instruction) int {
		c.SetReg(ins.D, op(c.Reg(ins.A), c.Reg(ins.B)))
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

// carryIn returns the current SR.CY value as 0 or 1, the carry ADDC
// chains into a multi-word add.
func (c *CPU) carryIn() uint32 {
	if c.SR&SRCY != 0 {
		return 1
	}
	return 0
}

// setArithFlags updates SR.CY/SR.OV from an add's inputs and 33-bit
// result, per spec.md §4.10 step 5. a and b are the operands actually
// summed (l.sub passes ^b so the same same-sign/different-result-sign
// rule applies to subtraction too). When SR.OVE is set and the
// operation overflowed, it raises a Range exception and reports that
// back to the caller so the handler can skip its own retire step.
func (c *CPU) setArithFlags(a, b, result uint32, carryOut bool) bool {
	if carryOut {
		c.SR |= SRCY
	} else {
		c.SR &^= SRCY
	}
	overflow := (a^b)&0x8000_0000 == 0 && (a^result)&0x8000_0000 != 0
	if !overflow {
		c.SR &^= SROV
		return false
	}
	c.SR |= SROV
	if c.SR&SROVE != 0 {
		c.raise(except.Range, 0)
		return true
	}
	return false
}

// aluAdd builds the l.add/l.addc/l.sub handler: all three are the
// same 33-bit addition with a different carry-in, computed in uint64
// so the carry-out and two's-complement overflow can be read off the
// wide result.
func aluAdd(op decode.Op) handler {
	return func(c *CPU, ins decode.Instruction) int {
		a := c.Reg(ins.A)
		b := c.Reg(ins.B)
		operand := b
		carryIn := uint32(0)
		switch op {
		case decode.ADDC:
			carryIn = c.carryIn()
		case decode.SUB:
			operand = ^b
			carryIn = 1
		}
		sum64 := uint64(a) + uint64(operand) + uint64(carryIn)
		result := uint32(sum64)
		if c.setArithFlags(a, operand, result, sum64 > 0xffffffff) {
			return 1
		}
		c.SetReg(ins.D, result)
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

// aluAddImm builds l.addi/l.addic: the same 33-bit addition against a
// sign-extended immediate instead of a second register.
func aluAddImm(withCarryIn bool) handler {
	return func(c *CPU, ins decode.Instruction) int {
		a := c.Reg(ins.A)
		b := uint32(ins.Imm)
		carryIn := uint32(0)
		if withCarryIn {
			carryIn = c.carryIn()
		}
		sum64 := uint64(a) + uint64(b) + uint64(carryIn)
		result := uint32(sum64)
		if c.setArithFlags(a, b, result, sum64 > 0xffffffff) {
			return 1
		}
		c.SetReg(ins.D, result)
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

func aluRFault(op func(a, b uint32) (uint32, bool)) handler {
	return func(c *CPU, ins decode.Instruction) int {
		v, ok := op(c.Reg(ins.A), c.Reg(ins.B))
		if !ok {
			c.raise(except.Range, 0)
			return 1
		}
		c.SetReg(ins.D, v)
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

func aluI(op func(a uint32, imm int32) uint32) handler {
	return func(c *CPU, ins decode.Instruction) int {
		c.SetReg(ins.D, op(c.Reg(ins.A), ins.Imm))
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

func aluIU(op func(a, imm uint32) uint32) handler {
	return func(c *CPU, ins decode.Instruction) int {
		c.SetReg(ins.D, op(c.Reg(ins.A), uint32(uint16(ins.Imm))))
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

func shiftOp(op func(a, n uint32) uint32) handler {
	return func(c *CPU, ins decode.Instruction) int {
		c.SetReg(ins.D, op(c.Reg(ins.A), uint32(ins.Imm)))
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
}

func rotateRight(a, n uint32) uint32 {
	n &= 0x1f
	if n == 0 {
		return a
	}
	return a>>n | a<<(32-n)
}

// branch implements the shared delay-slot machinery for every control
// transfer: the instruction immediately after a branch always
// executes (the delay slot), and only then does control reach
// target, if taken.
func branch(c *CPU, target uint32, taken bool) int {
	if !taken {
		c.PC = c.NPC
		c.NPC += 4
		return 1
	}
	// The instruction at NPC is the delay slot: it always executes
	// before control reaches target. inDelaySlot stays set through
	// that one instruction so a fault there reports EPCR as the
	// branch's own PC, not the delay slot's; Step clears it once the
	// delay-slot instruction has retired.
	delaySlotPC := c.NPC
	c.inDelaySlot = true
	c.delayTarget = c.PC
	c.PC = delaySlotPC
	c.NPC = target
	c.Counters.Branches++
	return 2
}

// load and store return the cycle cost of the actual access: the
// region's configured delay for a cache-inhibited or cache-disabled
// reference, or the D-cache's hit/miss delay otherwise, per spec.md
// §4.1/§4.2's per-region and per-cache cycle accounting.
func load(size int, signed bool) handler {
	return func(c *CPU, ins decode.Instruction) int {
		virt := c.Reg(ins.A) + uint32(ins.Imm)
		phys, ci, cls := c.DMMU.Translate(virt, c.mode(), mmu.Read)
		if cls != except.None {
			c.raise(cls, virt)
			return 1
		}
		var raw uint32
		var delay int
		if ci || c.SR&SRDCE == 0 {
			var mcls except.Class
			raw, mcls, delay = memRead(c, phys, size)
			if mcls != except.None {
				c.raise(mcls, virt)
				return 1
			}
		} else {
			var hit bool
			raw, hit, delay = c.DCache.Read(phys, size)
			if hit {
				c.Counters.DCacheHits++
			} else {
				c.Counters.DCacheMisses++
			}
		}
		if signed {
			raw = signExtend(raw, size)
		}
		c.SetReg(ins.D, raw)
		c.Counters.Loads++
		c.PC = c.NPC
		c.NPC += 4
		return delay
	}
}

func store(size int) handler {
	return func(c *CPU, ins decode.Instruction) int {
		virt := c.Reg(ins.A) + uint32(ins.Imm)
		phys, ci, cls := c.DMMU.Translate(virt, c.mode(), mmu.Write)
		if cls != except.None {
			c.raise(cls, virt)
			return 1
		}
		v := c.Reg(ins.B)
		var delay int
		if ci || c.SR&SRDCE == 0 {
			var mcls except.Class
			if mcls, delay = memWrite(c, phys, size, v); mcls != except.None {
				c.raise(except.BusError, virt)
				return 1
			}
		} else {
			_, delay = c.DCache.Write(phys, size, v)
		}
		c.Counters.Stores++
		c.PC = c.NPC
		c.NPC += 4
		return delay
	}
}

func memRead(c *CPU, phys uint32, size int) (uint32, except.Class, int) {
	switch size {
	case 1:
		v, cls, delay := c.Mem.ReadByte(phys)
		return uint32(v), cls, delay
	case 2:
		v, cls, delay := c.Mem.ReadHalf(phys)
		return uint32(v), cls, delay
	default:
		return c.Mem.ReadWord(phys)
	}
}

func memWrite(c *CPU, phys uint32, size int, v uint32) (except.Class, int) {
	switch size {
	case 1:
		return c.Mem.WriteByte(phys, uint8(v))
	case 2:
		return c.Mem.WriteHalf(phys, uint16(v))
	default:
		return c.Mem.WriteWord(phys, v)
	}
}

func signExtend(v uint32, size int) uint32 {
	switch size {
	case 1:
		return uint32(int32(int8(v)))
	case 2:
		return uint32(int32(int16(v)))
	default:
		return v
	}
}

// execNop implements the l.nop host-call hatch: a small set of
// recognized immediates let guest code request simulator services
// (exit, character output, instruction-count query) without a real device,
// grounded on the teacher's opDIAG handler, S/370's own escape hatch
// for simulator-level operations.
func (c *CPU) execNop(ins decode.Instruction) {
	const (
		nopNOP     = 0x0000
		nopExit    = 0x0001
		nopReport  = 0x0002
		nopPutc    = 0x0004
		nopCycles  = 0x0008
	)
	switch ins.Imm {
	case nopNOP:
	case nopExit:
		c.Halted = true
	case nopReport:
		c.Log.Info("l.nop report", "r3", c.Reg(3))
	case nopPutc:
		// Host console output; wired by the caller via Log, since
		// this package has no direct stdout dependency.
		c.Log.Debug("l.nop putc", "char", byte(c.Reg(3)))
	case nopCycles:
		// r11 receives the retired-instruction count; the CPU keeps no
		// separate total of elapsed cycles.
		c.SetReg(11, uint32(c.Counters.Retired))
	default:
		// Unrecognized l.nop immediates are silently ignored, per the
		// Open Question resolved in DESIGN.md.
	}
}
