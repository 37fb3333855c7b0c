package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/openrisc/or1ksim-go/internal/memory"
)

// buildELF assembles a minimal well-formed ELF32 big-endian image with
// one PT_LOAD segment, by hand, the same way the package itself reads
// one back.
func buildELF(t *testing.T, entry, vaddr uint32, payload []byte) []byte {
	t.Helper()
	var buf bytes.Buffer

	hdr := elfHeader{
		Type:      etExec,
		Machine:   emOR1K,
		Version:   1,
		Entry:     entry,
		PhOff:     52, // immediately after the 52-byte ELF32 header
		EhSize:    52,
		PhEntSize: 32,
		PhNum:     1,
	}
	hdr.Ident[0], hdr.Ident[1], hdr.Ident[2], hdr.Ident[3] = 0x7f, 'E', 'L', 'F'
	hdr.Ident[4] = 1 // ELFCLASS32
	hdr.Ident[5] = 2 // ELFDATA2MSB

	if err := binary.Write(&buf, binary.BigEndian, &hdr); err != nil {
		t.Fatalf("writing header: %v", err)
	}

	ph := programHeader{
		Type:   ptLoad,
		Offset: 52 + 32,
		VAddr:  vaddr,
		PAddr:  vaddr,
		FileSz: uint32(len(payload)),
		MemSz:  uint32(len(payload)),
	}
	if err := binary.Write(&buf, binary.BigEndian, &ph); err != nil {
		t.Fatalf("writing program header: %v", err)
	}
	buf.Write(payload)
	return buf.Bytes()
}

func newTestMem(t *testing.T, size uint32) *memory.Map {
	t.Helper()
	m := &memory.Map{}
	if err := m.RegisterRegion(memory.NewRAM("ram", 0, size)); err != nil {
		t.Fatalf("RegisterRegion: %v", err)
	}
	return m
}

func TestLoadCopiesSegmentAndReturnsEntry(t *testing.T) {
	payload := []byte{0x15, 0x00, 0x00, 0x00, 0xde, 0xad, 0xbe, 0xef}
	data := buildELF(t, 0x1000, 0x1000, payload)

	path := filepath.Join(t.TempDir(), "image.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	mem := newTestMem(t, 0x4000)
	entry, err := Load(path, mem)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if entry != 0x1000 {
		t.Fatalf("entry = %#x, want 0x1000", entry)
	}

	for i, want := range payload {
		got, ok := mem.ReadDirect(0x1000 + uint32(i))
		if !ok || got != want {
			t.Fatalf("byte %d = %#x (ok=%v), want %#x", i, got, ok, want)
		}
	}
}

func TestLoadRejectsWrongMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.elf")
	if err := os.WriteFile(path, []byte("not an elf file at all, padded out"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mem := newTestMem(t, 0x1000)
	if _, err := Load(path, mem); err == nil {
		t.Fatalf("Load succeeded on a non-ELF file")
	}
}

func TestLoadRejectsWrongMachine(t *testing.T) {
	data := buildELF(t, 0, 0, nil)
	data[19] = 5 // machine field low byte, big-endian: corrupt away from emOR1K

	path := filepath.Join(t.TempDir(), "wrongmachine.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mem := newTestMem(t, 0x1000)
	if _, err := Load(path, mem); err == nil {
		t.Fatalf("Load succeeded for a non-OR1K machine type")
	}
}

func TestLoadRejectsSegmentOutsideMemoryMap(t *testing.T) {
	data := buildELF(t, 0, 0xffff_0000, []byte{1, 2, 3, 4})

	path := filepath.Join(t.TempDir(), "oob.elf")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	mem := newTestMem(t, 0x1000)
	if _, err := Load(path, mem); err == nil {
		t.Fatalf("Load succeeded writing outside the registered memory map")
	}
}
