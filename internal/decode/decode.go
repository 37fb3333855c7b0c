// Package decode implements the OR1K instruction decoder: a set of
// opcode matchers compiled once at init() time into a bit-testing
// decision tree, generalizing the teacher's dense [256]func(*stepInfo)uint16
// dispatch array (emu/cpu/cpu.go:createTable) from a single
// contiguous opcode byte to OR1K's irregular, multi-field bit
// patterns.
package decode

import "fmt"

// Op names every instruction this decoder recognizes.
type Op int

const (
	Invalid Op = iota
	LWZ
	LWS
	LBZ
	LBS
	LHZ
	LHS
	SW
	SB
	SH
	ADD
	ADDC
	ADDI
	ADDIC
	SUB
	AND
	ANDI
	OR
	ORI
	XOR
	XORI
	MUL
	MULI
	DIV
	DIVU
	SLL
	SLLI
	SRL
	SRLI
	SRA
	SRAI
	ROR
	RORI
	MOVHI
	J
	JAL
	JR
	JALR
	BNF
	BF
	NOP
	RFE
	SYS
	TRAP
	MFSPR
	MTSPR
	EXTBS
	EXTBZ
	EXTHS
	EXTHZ
	SFEQ
	SFNE
	SFGTS
	SFGES
	SFLTS
	SFLES
	SFGTU
	SFGEU
	SFLTU
	SFLEU
)

// Field identifies one piece of a decoded instruction's bit layout.
type Field int

const (
	FieldD Field = iota // destination register (rD)
	FieldA              // source register A (rA)
	FieldB              // source register B (rB)
	FieldImm16
	FieldImm26 // jump/call target
	FieldShift
)

// Instruction is a fully decoded OR1K instruction.
type Instruction struct {
	Op   Op
	Raw  uint32
	D, A, B uint8
	Imm  int32
	Target int32
}

type matcher struct {
	mask, pattern uint32
	op            Op
	decode        func(raw uint32) Instruction
}

var table []matcher

// decodeNode is one state of the compiled decision tree: an internal
// node tests one bit of the instruction word and branches to a child
// per spec.md §4.9's "deterministic finite automaton"; a leaf
// (bit == -1) carries the single opcode the walk converged on, or nil
// for a raw word no registered opcode matches.
type decodeNode struct {
	bit       int
	zero, one *decodeNode
	leaf      *matcher
}

var decodeRoot *decodeNode

// buildDecodeTree compiles the flat mask/pattern table into a bit-
// testing trie. At each step it picks the highest-order bit not yet
// tested on this path that at least one remaining candidate's mask
// actually constrains, and splits candidates by their pattern bit
// there; a matcher whose mask doesn't care about the chosen bit is
// carried into both branches. Once a single candidate remains the
// recursion stops without necessarily having examined every bit of
// its mask — Decode re-checks the full mask/pattern at the leaf, so
// an early stop never admits a false match, just an extra branch a
// fully bit-exhaustive tree wouldn't need.
func buildDecodeTree(cands []matcher, tried uint32) *decodeNode {
	if len(cands) == 0 {
		return &decodeNode{bit: -1}
	}
	if len(cands) == 1 {
		m := cands[0]
		return &decodeNode{bit: -1, leaf: &m}
	}

	bit := -1
	for b := 31; b >= 0; b-- {
		if tried&(1<<uint(b)) != 0 {
			continue
		}
		for _, m := range cands {
			if m.mask&(1<<uint(b)) != 0 {
				bit = b
				break
			}
		}
		if bit >= 0 {
			break
		}
	}
	if bit < 0 {
		// No untested bit distinguishes the remaining candidates;
		// this table is built from non-overlapping opcode encodings
		// so it shouldn't occur, but keep the first registered entry
		// as the same tie-break a linear scan would have given.
		m := cands[0]
		return &decodeNode{bit: -1, leaf: &m}
	}

	nextTried := tried | (1 << uint(bit))
	var zero, one []matcher
	for _, m := range cands {
		if m.mask&(1<<uint(bit)) == 0 {
			zero = append(zero, m)
			one = append(one, m)
			continue
		}
		if m.pattern&(1<<uint(bit)) != 0 {
			one = append(one, m)
		} else {
			zero = append(zero, m)
		}
	}
	return &decodeNode{
		bit:  bit,
		zero: buildDecodeTree(zero, nextTried),
		one:  buildDecodeTree(one, nextTried),
	}
}

func reg(raw uint32, shift uint) uint8 {
	return uint8((raw >> shift) & 0x1f)
}

func signExt16(v uint32) int32 {
	return int32(int16(v))
}

func signExt26(v uint32) int32 {
	v &= 0x03ff_ffff
	if v&0x0200_0000 != 0 {
		return int32(v | 0xfc00_0000)
	}
	return int32(v)
}

func add(mask, pattern uint32, op Op, fn func(raw uint32) Instruction) {
	table = append(table, matcher{mask, pattern, op, fn})
}

func init() {
	rType := func(op Op) func(raw uint32) Instruction {
		return func(raw uint32) Instruction {
			return Instruction{Op: op, Raw: raw, D: reg(raw, 21), A: reg(raw, 16), B: reg(raw, 11)}
		}
	}
	iType := func(op Op) func(raw uint32) Instruction {
		return func(raw uint32) Instruction {
			return Instruction{Op: op, Raw: raw, D: reg(raw, 21), A: reg(raw, 16), Imm: signExt16(raw)}
		}
	}
	shiftType := func(op Op) func(raw uint32) Instruction {
		return func(raw uint32) Instruction {
			return Instruction{Op: op, Raw: raw, D: reg(raw, 21), A: reg(raw, 16), Imm: int32(raw & 0x3f)}
		}
	}
	jType := func(op Op) func(raw uint32) Instruction {
		return func(raw uint32) Instruction {
			return Instruction{Op: op, Raw: raw, Target: signExt26(raw)}
		}
	}

	// Opcode field occupies bits 26..31.
	add(0xfc00_0000, 0x8400_0000, LWZ, iType(LWZ))
	add(0xfc00_0000, 0x8800_0000, LWS, iType(LWS))
	add(0xfc00_0000, 0x8c00_0000, LBZ, iType(LBZ))
	add(0xfc00_0000, 0x9000_0000, LBS, iType(LBS))
	add(0xfc00_0000, 0x9400_0000, LHZ, iType(LHZ))
	add(0xfc00_0000, 0x9800_0000, LHS, iType(LHS))
	add(0xfc00_0000, 0xd400_0000, SW, func(raw uint32) Instruction {
		return Instruction{Op: SW, Raw: raw, A: reg(raw, 16), B: reg(raw, 11), Imm: storeImm(raw)}
	})
	add(0xfc00_0000, 0xd800_0000, SB, func(raw uint32) Instruction {
		return Instruction{Op: SB, Raw: raw, A: reg(raw, 16), B: reg(raw, 11), Imm: storeImm(raw)}
	})
	add(0xfc00_0000, 0xdc00_0000, SH, func(raw uint32) Instruction {
		return Instruction{Op: SH, Raw: raw, A: reg(raw, 16), B: reg(raw, 11), Imm: storeImm(raw)}
	})

	add(0xfc00_0000, 0x9c00_0000, ADDI, iType(ADDI))
	add(0xfc00_0000, 0xa000_0000, ADDIC, iType(ADDIC))
	add(0xfc00_0000, 0xa400_0000, ANDI, iType(ANDI))
	add(0xfc00_0000, 0xa800_0000, ORI, iType(ORI))
	add(0xfc00_0000, 0xac00_0000, XORI, iType(XORI))
	add(0xfc00_0000, 0xb000_0000, MULI, iType(MULI))
	add(0xfc00_0000, 0x1800_0000, MOVHI, func(raw uint32) Instruction {
		return Instruction{Op: MOVHI, Raw: raw, D: reg(raw, 21), Imm: int32(raw & 0xffff)}
	})

	add(0xfc00_0000, 0x0000_0000, J, jType(J))
	add(0xfc00_0000, 0x0400_0000, JAL, jType(JAL))
	add(0xfc00_0000, 0x1000_0000, JR, func(raw uint32) Instruction {
		return Instruction{Op: JR, Raw: raw, B: reg(raw, 11)}
	})
	add(0xff00_0000, 0x1400_0000, JALR, func(raw uint32) Instruction {
		return Instruction{Op: JALR, Raw: raw, B: reg(raw, 11)}
	})
	add(0xfc00_0000, 0x0c00_0000, BNF, jType(BNF))
	add(0xfc00_0000, 0x0800_0000, BF, jType(BF))

	add(0xff00_0000, 0x1500_0000, NOP,func(raw uint32) Instruction { return Instruction{Op: NOP, Raw: raw, Imm: int32(raw & 0xffff)} })
	add(0xffff_ffff, 0x2000_0000, RFE, func(raw uint32) Instruction { return Instruction{Op: RFE, Raw: raw} })
	add(0xfc00_ffc0, 0x2000_0001, SYS, func(raw uint32) Instruction { return Instruction{Op: SYS, Raw: raw, Imm: int32(raw & 0xffff)} })
	add(0xfc00_ffc0, 0x2100_0001, TRAP, func(raw uint32) Instruction { return Instruction{Op: TRAP, Raw: raw, Imm: int32(raw & 0xffff)} })

	add(0xfc00_0000, 0xb800_0000, MFSPR, func(raw uint32) Instruction {
		return Instruction{Op: MFSPR, Raw: raw, D: reg(raw, 21), A: reg(raw, 16), Imm: signExt16(raw)}
	})
	add(0xfc00_0000, 0xc000_0000, MTSPR, func(raw uint32) Instruction {
		return Instruction{Op: MTSPR, Raw: raw, A: reg(raw, 16), B: reg(raw, 11), Imm: storeImm(raw)}
	})

	// Set-flag comparisons use opcode 0x39, with bits 21..25 selecting
	// the comparison; their low 11 bits are zero, which keeps them apart
	// from the extend forms that share that opcode.
	sf := func(sub uint32, op Op) {
		add(0xffe0_07ff, 0xe400_0000|sub<<21, op, rType(op))
	}
	sf(0x0, SFEQ)
	sf(0x1, SFNE)
	sf(0x2, SFGTU)
	sf(0x3, SFGEU)
	sf(0x4, SFLTU)
	sf(0x5, SFLEU)
	sf(0xc, SFGTS)
	sf(0xd, SFGES)
	sf(0xe, SFLTS)
	sf(0xf, SFLES)

	// Arithmetic/logical register-register forms share opcode 0x38,
	// distinguished by a function field in bits 0..9.
	alu := func(fn uint32, op Op) {
		add(0xfc00_03ff, 0xe000_0000|fn, op, rType(op))
	}
	alu(0x0000, ADD)
	alu(0x0001, ADDC)
	alu(0x0002, SUB)
	alu(0x0003, AND)
	alu(0x0004, OR)
	alu(0x0005, XOR)
	alu(0x0006, MUL)
	alu(0x0007, DIV)
	alu(0x0008, DIVU)

	shift := func(fn uint32, op Op) {
		add(0xfc00_07c0, 0xe000_0000|fn, op, shiftType(op))
	}
	shift(0x0040, SLL)
	shift(0x0048, SRL)
	shift(0x0050, SRA)
	shift(0x0058, ROR)

	shifti := func(fn uint32, op Op) {
		add(0xfc00_0fc0, 0xcc00_0000|fn, op, shiftType(op))
	}
	shifti(0x0000, SLLI)
	shifti(0x0040, SRLI)
	shifti(0x0080, SRAI)
	shifti(0x00c0, RORI)

	ext := func(fn uint32, op Op) {
		add(0xfc00_07ff, 0xe400_0000|fn, op, func(raw uint32) Instruction {
			return Instruction{Op: op, Raw: raw, D: reg(raw, 21), A: reg(raw, 16)}
		})
	}
	ext(0x0003, EXTHS)
	ext(0x0004, EXTBS)
	ext(0x0007, EXTHZ)
	ext(0x0008, EXTBZ)

	decodeRoot = buildDecodeTree(table, 0)
}

// storeImm reassembles a store instruction's split 16-bit immediate
// (bits 25..21 high, bits 10..0 low), the same "immediate split across
// the encoding to make room for two register fields" shape OR1K uses
// for every store form.
func storeImm(raw uint32) int32 {
	hi := (raw >> 21) & 0x1f
	lo := raw & 0x7ff
	return signExt16(hi<<11 | lo)
}

// Decode walks the compiled bit-testing decision tree, one bit test
// per state, and returns the matched instruction, or Invalid if
// nothing matches — the caller raises IllegalInsn in that case. There
// is no scan over the opcode table at runtime: the tree was already
// compiled from it at init() time.
func Decode(raw uint32) Instruction {
	n := decodeRoot
	for n.bit >= 0 {
		if raw&(1<<uint(n.bit)) != 0 {
			n = n.one
		} else {
			n = n.zero
		}
	}
	if n.leaf == nil || raw&n.leaf.mask != n.leaf.pattern {
		return Instruction{Op: Invalid, Raw: raw}
	}
	return n.leaf.decode(raw)
}

func (i Instruction) String() string {
	return fmt.Sprintf("%v r%d,r%d,r%d,%#x", i.Op, i.D, i.A, i.B, i.Imm)
}

func (o Op) String() string {
	names := map[Op]string{
		Invalid: "invalid", LWZ: "l.lwz", LWS: "l.lws", LBZ: "l.lbz", LBS: "l.lbs",
		LHZ: "l.lhz", LHS: "l.lhs", SW: "l.sw", SB: "l.sb", SH: "l.sh",
		ADD: "l.add", ADDC: "l.addc", ADDI: "l.addi", ADDIC: "l.addic", SUB: "l.sub",
		AND: "l.and", ANDI: "l.andi", OR: "l.or", ORI: "l.ori", XOR: "l.xor", XORI: "l.xori",
		MUL: "l.mul", MULI: "l.muli", DIV: "l.div", DIVU: "l.divu",
		SLL: "l.sll", SLLI: "l.slli", SRL: "l.srl", SRLI: "l.srli", SRA: "l.sra", SRAI: "l.srai",
		ROR: "l.ror", RORI: "l.rori", MOVHI: "l.movhi", J: "l.j", JAL: "l.jal", JR: "l.jr", JALR: "l.jalr",
		BNF: "l.bnf", BF: "l.bf", NOP: "l.nop", RFE: "l.rfe", SYS: "l.sys", TRAP: "l.trap",
		MFSPR: "l.mfspr", MTSPR: "l.mtspr", EXTBS: "l.extbs", EXTBZ: "l.extbz", EXTHS: "l.exths", EXTHZ: "l.exthz",
		SFEQ: "l.sfeq", SFNE: "l.sfne", SFGTS: "l.sfgts", SFGES: "l.sfges", SFLTS: "l.sflts", SFLES: "l.sfles",
		SFGTU: "l.sfgtu", SFGEU: "l.sfgeu", SFLTU: "l.sfltu", SFLEU: "l.sfleu",
	}
	if n, ok := names[o]; ok {
		return n
	}
	return "unknown"
}
