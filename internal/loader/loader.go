// Package loader reads an ELF32 big-endian OR1K executable and copies
// its loadable segments into the physical memory map, returning the
// entry point.
//
// No example repo in the retrieval pack imports a third-party ELF
// library (user-none-go-chip-m68k and SchawnnDev-awesomeVM both parse
// their own object formats directly over encoding/binary), so this
// loader follows the same standard-library approach rather than
// reaching for debug/elf (which targets host-native loading use cases,
// not a freestanding guest loader) or an external ELF package absent
// from the pack; see DESIGN.md.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/openrisc/or1ksim-go/internal/memory"
)

const (
	elfMagic = "\x7fELF"
	etExec   = 2
	emOR1K   = 92
)

type elfHeader struct {
	Ident     [16]byte
	Type      uint16
	Machine   uint16
	Version   uint32
	Entry     uint32
	PhOff     uint32
	ShOff     uint32
	Flags     uint32
	EhSize    uint16
	PhEntSize uint16
	PhNum     uint16
	ShEntSize uint16
	ShNum     uint16
	ShStrNdx  uint16
}

type programHeader struct {
	Type   uint32
	Offset uint32
	VAddr  uint32
	PAddr  uint32
	FileSz uint32
	MemSz  uint32
	Flags  uint32
	Align  uint32
}

const ptLoad = 1

// Load reads the ELF32 big-endian executable at path and writes its
// PT_LOAD segments into mem. It returns the entry point PC.
func Load(path string, mem *memory.Map) (entry uint32, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	var hdr elfHeader
	if err := binary.Read(f, binary.BigEndian, &hdr); err != nil {
		return 0, fmt.Errorf("loader: reading ELF header: %w", err)
	}
	if string(hdr.Ident[:4]) != elfMagic {
		return 0, fmt.Errorf("loader: %s is not an ELF file", path)
	}
	if hdr.Ident[4] != 1 {
		return 0, fmt.Errorf("loader: only 32-bit ELF is supported")
	}
	if hdr.Ident[5] != 2 {
		return 0, fmt.Errorf("loader: only big-endian ELF is supported")
	}
	if hdr.Machine != emOR1K {
		return 0, fmt.Errorf("loader: unexpected machine type %d, want OR1K (%d)", hdr.Machine, emOR1K)
	}

	for i := 0; i < int(hdr.PhNum); i++ {
		if _, err := f.Seek(int64(hdr.PhOff)+int64(i)*int64(hdr.PhEntSize), io.SeekStart); err != nil {
			return 0, err
		}
		var ph programHeader
		if err := binary.Read(f, binary.BigEndian, &ph); err != nil {
			return 0, fmt.Errorf("loader: reading program header %d: %w", i, err)
		}
		if ph.Type != ptLoad || ph.FileSz == 0 {
			continue
		}
		if _, err := f.Seek(int64(ph.Offset), io.SeekStart); err != nil {
			return 0, err
		}
		buf := make([]byte, ph.FileSz)
		if _, err := io.ReadFull(f, buf); err != nil {
			return 0, fmt.Errorf("loader: reading segment %d: %w", i, err)
		}
		for j, b := range buf {
			if !mem.WriteDirect(ph.PAddr+uint32(j), b) {
				return 0, fmt.Errorf("loader: segment %d at %#08x does not fit the memory map", i, ph.PAddr)
			}
		}
	}
	return hdr.Entry, nil
}
