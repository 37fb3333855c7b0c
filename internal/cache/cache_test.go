package cache

import (
	"testing"

	"github.com/openrisc/or1ksim-go/internal/memory"
)

func newTestMem(t *testing.T) *memory.Map {
	t.Helper()
	var m memory.Map
	if err := m.RegisterRegion(memory.NewRAM("ram", 0, 0x10000)); err != nil {
		t.Fatal(err)
	}
	return &m
}

func TestConfiguredDelaysOverrideDefaults(t *testing.T) {
	mem := newTestMem(t)
	mem.WriteWord(0x400, 0xaa)
	c := New(Data, Config{Ways: 2, Sets: 4, LineSize: 16, HitDelay: 3, MissDelay: 20}, mem)

	if _, _, delay := c.Read(0x400, 4); delay != 20 {
		t.Fatalf("miss delay = %d, want configured 20", delay)
	}
	if _, _, delay := c.Read(0x400, 4); delay != 3 {
		t.Fatalf("hit delay = %d, want configured 3", delay)
	}
}

func TestMissThenHit(t *testing.T) {
	mem := newTestMem(t)
	mem.WriteWord(0x100, 0x11223344)
	c := New(Data, Config{Ways: 2, Sets: 4, LineSize: 16}, mem)

	v, hit, delay := c.Read(0x100, 4)
	if hit || v != 0x11223344 {
		t.Fatalf("first read: got %#x/%v, want 0x11223344/miss", v, hit)
	}
	if delay != defaultMissDelay {
		t.Fatalf("first read delay = %d, want miss delay %d", delay, defaultMissDelay)
	}
	v, hit, delay = c.Read(0x100, 4)
	if !hit || v != 0x11223344 {
		t.Fatalf("second read: got %#x/%v, want 0x11223344/hit", v, hit)
	}
	if delay != defaultHitDelay {
		t.Fatalf("second read delay = %d, want hit delay %d", delay, defaultHitDelay)
	}
}

func TestInvalidateForcesMiss(t *testing.T) {
	mem := newTestMem(t)
	mem.WriteWord(0x200, 0xaabbccdd)
	c := New(Data, Config{Ways: 2, Sets: 4, LineSize: 16}, mem)

	c.Read(0x200, 4)
	c.Invalidate(0x200)
	_, hit, _ := c.Read(0x200, 4)
	if hit {
		t.Fatal("expected miss after invalidate")
	}
}

func TestLRUEviction(t *testing.T) {
	mem := newTestMem(t)
	c := New(Data, Config{Ways: 2, Sets: 1, LineSize: 16}, mem)

	// Two lines fill both ways of the single set.
	c.Read(0x0000, 4)
	c.Read(0x0010, 4)
	// Touch the first again so the second becomes LRU.
	c.Read(0x0000, 4)
	// A third distinct line must evict 0x0010, not 0x0000.
	c.Read(0x0020, 4)

	if _, hit, _ := c.Read(0x0000, 4); !hit {
		t.Fatal("0x0000 should still be resident")
	}
	if _, hit, _ := c.Read(0x0010, 4); hit {
		t.Fatal("0x0010 should have been evicted")
	}
}

func TestWriteThroughNoAllocate(t *testing.T) {
	mem := newTestMem(t)
	c := New(Data, Config{Ways: 2, Sets: 4, LineSize: 16}, mem)

	if hit, delay := c.Write(0x300, 4, 0xcafef00d); hit || delay != defaultMissDelay {
		t.Fatalf("write to a cold line: hit=%v delay=%d, want miss/%d", hit, delay, defaultMissDelay)
	}
	v, cls, _ := mem.ReadWord(0x300)
	_ = cls
	if v != 0xcafef00d {
		t.Fatalf("memory got %#x, want 0xcafef00d", v)
	}
	if _, hit, _ := c.Read(0x300, 4); hit {
		t.Fatal("line should still be cold after a write-miss")
	}
}
