// Package cache implements the set-associative, LRU-replaced
// instruction and data caches that sit in front of the physical
// memory map.
//
// Caches are physically indexed and physically tagged. The data
// cache is write-through, no-allocate-on-write-miss: a store that
// misses goes straight to memory without pulling the line in (see
// DESIGN.md for why this reading of the Open Question was chosen).
package cache

import (
	"log/slog"

	"github.com/openrisc/or1ksim-go/internal/logutil"
	"github.com/openrisc/or1ksim-go/internal/memory"
)

// Kind distinguishes the instruction and data caches for logging.
type Kind int

const (
	Instruction Kind = iota
	Data
)

func (k Kind) String() string {
	if k == Instruction {
		return "icache"
	}
	return "dcache"
}

// Config describes a cache's geometry. Ways, Sets and LineSize must
// all be powers of two; Ways up to 32, Sets up to 1024, LineSize 16
// or 32. HitDelay and MissDelay are the cycle costs Read/Write report
// back to the caller for a hit and a fill, respectively; a zero value
// in either picks the package default rather than charging zero
// cycles for a real access.
type Config struct {
	Ways     int
	Sets     int
	LineSize int

	HitDelay  int
	MissDelay int
}

// Default hit/miss cycle costs, used whenever a Config leaves either
// delay field unset. Miss costs more than hit so spec.md §8 Scenario
// C's "first read records one miss, second records one hit" can tell
// the two apart just by comparing the reported delay.
const (
	defaultHitDelay  = 1
	defaultMissDelay = 8
)

func (c Config) valid() bool {
	pow2 := func(n int) bool { return n > 0 && n&(n-1) == 0 }
	return pow2(c.Ways) && c.Ways <= 32 &&
		pow2(c.Sets) && c.Sets <= 1024 &&
		(c.LineSize == 16 || c.LineSize == 32)
}

type line struct {
	valid bool
	tag   uint32
	data  []byte
}

// Cache is one instruction or data cache instance.
type Cache struct {
	kind Kind
	cfg  Config
	mem  *memory.Map
	sets [][]line
	// lru[set] lists way indices from most- to least-recently used.
	lru [][]int

	Hits, Misses int
}

// New builds a cache of the given kind backed by mem. An invalid
// config is logged and replaced with a minimal working default
// (1 way, 1 set, 16-byte line) rather than panicking, mirroring the
// rest of the module's "log and degrade" handling of bad runtime
// configuration.
func New(kind Kind, cfg Config, mem *memory.Map) *Cache {
	if !cfg.valid() {
		logutil.ForModule(slog.Default(), kind.String()).Warn("invalid configuration, using minimal default", "ways", cfg.Ways, "sets", cfg.Sets, "line", cfg.LineSize)
		cfg = Config{Ways: 1, Sets: 1, LineSize: 16}
	}
	if cfg.HitDelay <= 0 {
		cfg.HitDelay = defaultHitDelay
	}
	if cfg.MissDelay <= 0 {
		cfg.MissDelay = defaultMissDelay
	}
	c := &Cache{kind: kind, cfg: cfg, mem: mem}
	c.sets = make([][]line, cfg.Sets)
	c.lru = make([][]int, cfg.Sets)
	for s := range c.sets {
		c.sets[s] = make([]line, cfg.Ways)
		order := make([]int, cfg.Ways)
		for i := range order {
			order[i] = i
		}
		c.lru[s] = order
	}
	return c
}

func (c *Cache) indexOf(addr uint32) (set uint32, tag uint32, off uint32) {
	lineBits := bitsFor(uint32(c.cfg.LineSize))
	setBits := bitsFor(uint32(c.cfg.Sets))
	off = addr & (uint32(c.cfg.LineSize) - 1)
	set = (addr >> lineBits) & (uint32(c.cfg.Sets) - 1)
	tag = addr >> (lineBits + setBits)
	return
}

func bitsFor(n uint32) uint32 {
	var bits uint32
	for (uint32(1) << bits) < n {
		bits++
	}
	return bits
}

func (c *Cache) findWay(set, tag uint32) int {
	for way, ln := range c.sets[set] {
		if ln.valid && ln.tag == tag {
			return way
		}
	}
	return -1
}

func (c *Cache) promote(set uint32, way int) {
	order := c.lru[set]
	for i, w := range order {
		if w == way {
			copy(order[1:i+1], order[:i])
			order[0] = way
			return
		}
	}
}

func (c *Cache) victim(set uint32) int {
	order := c.lru[set]
	return order[len(order)-1]
}

func (c *Cache) fill(set, tag uint32, addr uint32) int {
	way := -1
	for w, ln := range c.sets[set] {
		if !ln.valid {
			way = w
			break
		}
	}
	if way == -1 {
		way = c.victim(set)
	}
	base := addr &^ (uint32(c.cfg.LineSize) - 1)
	data := make([]byte, c.cfg.LineSize)
	for i := range data {
		b, _ := c.mem.ReadDirect(base + uint32(i))
		data[i] = b
	}
	c.sets[set][way] = line{valid: true, tag: tag, data: data}
	c.promote(set, way)
	return way
}

// Read services a load of size bytes (1, 2, or 4) through the cache,
// returning the value, whether it was a cache hit, and the cycle cost
// that hit or miss charges (cfg.HitDelay / cfg.MissDelay).
func (c *Cache) Read(phys uint32, size int) (value uint32, hit bool, delay int) {
	set, tag, off := c.indexOf(phys)
	way := c.findWay(set, tag)
	if way >= 0 {
		c.promote(set, way)
		c.Hits++
		hit = true
		delay = c.cfg.HitDelay
	} else {
		way = c.fill(set, tag, phys)
		c.Misses++
		delay = c.cfg.MissDelay
	}
	data := c.sets[set][way].data
	for i := 0; i < size; i++ {
		value = value<<8 | uint32(data[int(off)+i])
	}
	return value, hit, delay
}

// Write services a store of size bytes. Per the write-through,
// no-write-allocate policy, the line is only updated in-cache when it
// is already resident; the backing memory is always written. The
// returned delay is cfg.MissDelay on a write-miss (cfg.HitDelay is not
// applicable since nothing is installed) and cfg.HitDelay otherwise.
func (c *Cache) Write(phys uint32, size int, value uint32) (hit bool, delay int) {
	bytes := make([]byte, size)
	v := value
	for i := size - 1; i >= 0; i-- {
		bytes[i] = byte(v)
		v >>= 8
	}
	for i, b := range bytes {
		c.mem.WriteDirect(phys+uint32(i), b)
	}

	set, tag, off := c.indexOf(phys)
	way := c.findWay(set, tag)
	if way < 0 {
		c.Misses++
		return false, c.cfg.MissDelay
	}
	c.Hits++
	hit = true
	data := c.sets[set][way].data
	copy(data[off:int(off)+size], bytes)
	c.promote(set, way)
	return hit, c.cfg.HitDelay
}

// Invalidate drops the line containing addr, if resident, forcing the
// next access to it to miss.
func (c *Cache) Invalidate(addr uint32) {
	set, tag, _ := c.indexOf(addr)
	if way := c.findWay(set, tag); way >= 0 {
		c.sets[set][way] = line{}
	}
}

// InvalidateAll drops every resident line.
func (c *Cache) InvalidateAll() {
	for s := range c.sets {
		for w := range c.sets[s] {
			c.sets[s][w] = line{}
		}
	}
}
