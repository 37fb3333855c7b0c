// Package mmu implements the software-filled TLB pair (IMMU/DMMU)
// that sits between virtual addresses and the physical memory map.
//
// Refill is never done in hardware: a TLB miss raises the
// corresponding TLB-miss exception class and lets the guest
// exception handler install a translation with Install before the
// faulting instruction is retried, mirroring the teacher's
// transAddr miss-then-retry shape in emu/cpu/cpu.go.
package mmu

import "github.com/openrisc/or1ksim-go/internal/except"

// Kind distinguishes the instruction and data MMUs.
type Kind int

const (
	Instruction Kind = iota
	Data
)

// Mode selects supervisor or user translation.
type Mode int

const (
	Supervisor Mode = iota
	User
)

// Access describes the kind of access being translated.
type Access int

const (
	Read Access = iota
	Write
	Execute
)

const pageSize = 0x2000 // 8 KiB pages

// Entry is one TLB slot: a virtual page match register plus a
// physical translate register and its permission bits.
type Entry struct {
	Valid         bool
	VPN           uint32
	PPN           uint32
	CacheInhibit  bool
	SupervisorAcc uint8 // bit0=read bit1=write bit2=execute
	UserAcc       uint8
}

func (e Entry) allows(mode Mode, access Access) bool {
	perm := e.SupervisorAcc
	if mode == User {
		perm = e.UserAcc
	}
	switch access {
	case Read:
		return perm&0x1 != 0
	case Write:
		return perm&0x2 != 0
	case Execute:
		return perm&0x4 != 0
	}
	return false
}

// MMU is one way/set TLB array.
type MMU struct {
	kind Kind
	Ways int
	Sets int
	tlb  [][]Entry
	lru  [][]int

	Enabled bool
	Hits, Misses int
}

// New builds an MMU with the given way/set geometry.
func New(kind Kind, ways, sets int) *MMU {
	m := &MMU{kind: kind, Ways: ways, Sets: sets}
	m.tlb = make([][]Entry, sets)
	m.lru = make([][]int, sets)
	for s := range m.tlb {
		m.tlb[s] = make([]Entry, ways)
		order := make([]int, ways)
		for i := range order {
			order[i] = i
		}
		m.lru[s] = order
	}
	return m
}

func (m *MMU) setOf(vpn uint32) int {
	return int(vpn) % m.Sets
}

func (m *MMU) find(set int, vpn uint32) int {
	for way, e := range m.tlb[set] {
		if e.Valid && e.VPN == vpn {
			return way
		}
	}
	return -1
}

func (m *MMU) promote(set, way int) {
	order := m.lru[set]
	for i, w := range order {
		if w == way {
			copy(order[1:i+1], order[:i])
			order[0] = way
			return
		}
	}
}

// Translate converts a virtual address to a physical one. If
// translation is disabled, it is the identity function. A TLB miss
// raises the TLB-miss class appropriate to this MMU's kind, which the
// guest's refill handler services by installing a translation and
// retrying. A TLB hit that lacks the requested permission is an
// architecturally distinct condition: it raises a page fault for the
// faulting virtual address instead, since the translation exists and
// is simply not permitted for this access.
func (m *MMU) Translate(virt uint32, mode Mode, access Access) (phys uint32, cacheInhibit bool, class except.Class) {
	if !m.Enabled {
		return virt, false, except.None
	}
	vpn := virt / pageSize
	off := virt % pageSize
	set := m.setOf(vpn)
	way := m.find(set, vpn)
	if way < 0 {
		m.Misses++
		return 0, false, m.missClass()
	}
	m.Hits++
	e := m.tlb[set][way]
	if !e.allows(mode, access) {
		return 0, false, m.pageFaultClass()
	}
	m.promote(set, way)
	return e.PPN*pageSize + off, e.CacheInhibit, except.None
}

func (m *MMU) missClass() except.Class {
	if m.kind == Instruction {
		return except.ITLBMiss
	}
	return except.DTLBMiss
}

func (m *MMU) pageFaultClass() except.Class {
	if m.kind == Instruction {
		return except.InsnPageFault
	}
	return except.DataPageFault
}

// Peek translates without affecting LRU state or hit/miss counters,
// resolving an address without perturbing the simulation, the same "side-effect-free variant of a
// stateful lookup" shape the teacher uses for probing channel status.
func (m *MMU) Peek(virt uint32) (phys uint32, ok bool) {
	if !m.Enabled {
		return virt, true
	}
	vpn := virt / pageSize
	off := virt % pageSize
	set := m.setOf(vpn)
	way := m.find(set, vpn)
	if way < 0 {
		return 0, false
	}
	e := m.tlb[set][way]
	return e.PPN*pageSize + off, true
}

// Install writes a translation into the TLB at the given way/set,
// replacing whatever the slot held. l.mtspr writes to the TLB register
// range do not reach this structure; the CPU stores them in its plain
// SPR map.
func (m *MMU) Install(set, way int, e Entry) {
	if set < 0 || set >= m.Sets || way < 0 || way >= m.Ways {
		return
	}
	m.tlb[set][way] = e
	m.promote(set, way)
}

// Entry returns the raw TLB slot at (set, way), or false when either
// index is out of range.
func (m *MMU) Entry(set, way int) (Entry, bool) {
	if set < 0 || set >= m.Sets || way < 0 || way >= m.Ways {
		return Entry{}, false
	}
	return m.tlb[set][way], true
}

// Flush invalidates every entry; the CPU calls it on reset.
func (m *MMU) Flush() {
	for s := range m.tlb {
		for w := range m.tlb[s] {
			m.tlb[s][w] = Entry{}
		}
	}
}
