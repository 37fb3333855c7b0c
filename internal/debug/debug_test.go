package debug

import "testing"

func TestIndependentPairORMatches(t *testing.T) {
	u := &Unit{}
	u.Points[0] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x100, Generates: true}
	u.Points[1] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x200, Generates: true}

	if !u.Evaluate(0x100) {
		t.Fatalf("Evaluate(0x100) = false, want true (OR match on pair 0)")
	}
	if u.Evaluate(0x300) {
		t.Fatalf("Evaluate(0x300) = true, want false")
	}
}

func TestIndependentPairANDRequiresBothOnSameValue(t *testing.T) {
	u := &Unit{}
	u.Chain[0] = ChainAND
	u.Points[0] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x100, Generates: true}
	u.Points[1] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x100, Generates: true}

	if !u.Evaluate(0x100) {
		t.Fatalf("Evaluate(0x100) = false, want true when both comparators agree")
	}
	u.Points[1].Value = 0x200
	if u.Evaluate(0x100) {
		t.Fatalf("Evaluate(0x100) = true, want false when AND-chained comparators disagree")
	}
}

func TestDisabledMatchpointNeverFires(t *testing.T) {
	u := &Unit{}
	u.Points[0] = Matchpoint{Enabled: false, Op: CompareEQ, Value: 0x100, Generates: true}
	if u.Evaluate(0x100) {
		t.Fatalf("Evaluate fired on a disabled matchpoint")
	}
}

func TestGeneratesFalseNeverStalls(t *testing.T) {
	u := &Unit{}
	u.Points[0] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x100, Generates: false}
	if u.Evaluate(0x100) {
		t.Fatalf("Evaluate stalled for a counting-only (Generates=false) matchpoint")
	}
}

func TestVerilogChainingRequiresAllEnabledToAgree(t *testing.T) {
	u := &Unit{VerilogChaining: true}
	u.Chain[0] = ChainAND
	u.Points[0] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x100, Generates: true}
	u.Points[1] = Matchpoint{Enabled: true, Op: CompareEQ, Value: 0x100, Generates: true}

	if !u.Evaluate(0x100) {
		t.Fatalf("Evaluate(0x100) = false under VerilogChaining with matching comparators")
	}
}

func TestIncrCounter(t *testing.T) {
	u := &Unit{}
	u.IncrCounter(0)
	u.IncrCounter(0)
	u.IncrCounter(1)
	if u.Counters[0] != 2 || u.Counters[1] != 1 {
		t.Fatalf("Counters = %v, want [2 1]", u.Counters)
	}
}
