package decode

import "testing"

func TestDecodeAddi(t *testing.T) {
	// l.addi r3, r4, -1
	raw := uint32(0x9c00_0000) | uint32(3)<<21 | uint32(4)<<16 | 0xffff
	ins := Decode(raw)
	if ins.Op != ADDI {
		t.Fatalf("got %v, want l.addi", ins.Op)
	}
	if ins.D != 3 || ins.A != 4 || ins.Imm != -1 {
		t.Fatalf("got D=%d A=%d Imm=%d", ins.D, ins.A, ins.Imm)
	}
}

func TestDecodeAdd(t *testing.T) {
	// l.add r1, r2, r3
	raw := uint32(0xe000_0000) | uint32(1)<<21 | uint32(2)<<16 | uint32(3)<<11
	ins := Decode(raw)
	if ins.Op != ADD {
		t.Fatalf("got %v, want l.add", ins.Op)
	}
	if ins.D != 1 || ins.A != 2 || ins.B != 3 {
		t.Fatalf("got D=%d A=%d B=%d", ins.D, ins.A, ins.B)
	}
}

func TestDecodeNop(t *testing.T) {
	ins := Decode(0x1500_0000)
	if ins.Op != NOP {
		t.Fatalf("got %v, want l.nop", ins.Op)
	}
}

func TestDecodeInvalid(t *testing.T) {
	ins := Decode(0xffff_ffff) // deliberately unmapped pattern
	if ins.Op != Invalid {
		t.Fatalf("got %v, want invalid", ins.Op)
	}
}

func TestDecodeSubAndAddcShareOpcodeWithAdd(t *testing.T) {
	// l.sub and l.addc sit one function-field bit apart from l.add
	// (same 0xe000_0000 opcode, fn 0x0002 and 0x0001); the tree must
	// route them to distinct leaves rather than collapsing to l.add.
	sub := Decode(uint32(0xe000_0000) | uint32(1)<<21 | uint32(2)<<16 | uint32(3)<<11 | 0x0002)
	if sub.Op != SUB {
		t.Fatalf("got %v, want l.sub", sub.Op)
	}
	addc := Decode(uint32(0xe000_0000) | uint32(1)<<21 | uint32(2)<<16 | uint32(3)<<11 | 0x0001)
	if addc.Op != ADDC {
		t.Fatalf("got %v, want l.addc", addc.Op)
	}
}

func TestDecodeTreeIsBitTestingNotLinearScan(t *testing.T) {
	if decodeRoot == nil || decodeRoot.bit < 0 {
		t.Fatal("decodeRoot must be an internal node testing a bit, not a bare leaf")
	}
	// Walk every path from the root and check that none tests more
	// bits than an instruction word has.
	var walk func(n *decodeNode, depth int)
	walk = func(n *decodeNode, depth int) {
		if depth > 32 {
			t.Fatal("decode tree recursion exceeds the instruction word's bit width")
		}
		if n.bit < 0 {
			return
		}
		walk(n.zero, depth+1)
		walk(n.one, depth+1)
	}
	walk(decodeRoot, 0)
}

func TestDecodeJumpSignExtendsTarget(t *testing.T) {
	raw := uint32(0x0000_0000) | 0x03ff_ffff // l.j with all-ones offset (negative)
	ins := Decode(raw)
	if ins.Op != J {
		t.Fatalf("got %v, want l.j", ins.Op)
	}
	if ins.Target != -1 {
		t.Fatalf("got target %d, want -1", ins.Target)
	}
}
