package image

import (
	"debug/elf"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"sort"
)

var (
	ErrNotCore  = errors.New("image: not an ELF core file")
	ErrNoLoad   = errors.New("image: core has no loadable segments")
	ErrBadClass = errors.New("image: unsupported ELF class")
)

// ElfCore reads process memory out of an ELF core dump. PT_LOAD segments
// become regions; the PF_W flag marks them writable.
type ElfCore struct {
	path     string
	file     *os.File
	elf      *elf.File
	regions  []Region
	segments []*elf.Prog
	addrSize uint32
	order    binary.ByteOrder
	identity string
}

// OpenCore opens and validates an ELF core file at path.
func OpenCore(path string) (*ElfCore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("image: open: %w", err)
	}

	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %v", ErrNotCore, err)
	}

	if ef.Type != elf.ET_CORE {
		f.Close()
		return nil, ErrNotCore
	}

	var addrSize uint32
	switch ef.Class {
	case elf.ELFCLASS32:
		addrSize = 4
	case elf.ELFCLASS64:
		addrSize = 8
	default:
		f.Close()
		return nil, ErrBadClass
	}

	var order binary.ByteOrder = binary.LittleEndian
	if ef.Data == elf.ELFDATA2MSB {
		order = binary.BigEndian
	}

	core := &ElfCore{
		path:     path,
		file:     f,
		elf:      ef,
		addrSize: addrSize,
		order:    order,
	}

	for _, prog := range ef.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		core.regions = append(core.regions, Region{
			Base:     prog.Vaddr,
			End:      prog.Vaddr + prog.Filesz,
			Writable: prog.Flags&elf.PF_W != 0,
		})
		core.segments = append(core.segments, prog)
	}
	if len(core.regions) == 0 {
		f.Close()
		return nil, ErrNoLoad
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("image: stat: %w", err)
	}
	core.identity = fmt.Sprintf("%s:%d:%d", path, info.Size(), info.ModTime().UnixNano())

	return core, nil
}

// Close releases the underlying file.
func (c *ElfCore) Close() error {
	return c.file.Close()
}

// Regions returns the loadable segments as regions, in address order.
func (c *ElfCore) Regions() []Region {
	out := make([]Region, len(c.regions))
	copy(out, c.regions)
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// ReadMemory reads from the segment covering addr. Reads never span
// segment boundaries; a read past the end of a segment is a short read.
func (c *ElfCore) ReadMemory(addr uint64, buf []byte) (int, error) {
	for i, r := range c.regions {
		if !r.Contains(addr) {
			continue
		}
		avail := r.End - addr
		want := uint64(len(buf))
		if want > avail {
			n, err := c.segments[i].ReadAt(buf[:avail], int64(addr-r.Base))
			if err != nil {
				return n, fmt.Errorf("image: read 0x%x: %w", addr, err)
			}
			return n, ErrShortRead
		}
		n, err := c.segments[i].ReadAt(buf, int64(addr-r.Base))
		if err != nil {
			return n, fmt.Errorf("image: read 0x%x: %w", addr, err)
		}
		return n, nil
	}
	return 0, ErrOutOfRange
}

// AddrSize returns the target word width in bytes.
func (c *ElfCore) AddrSize() uint32 { return c.addrSize }

// ByteOrder returns the target byte order.
func (c *ElfCore) ByteOrder() binary.ByteOrder { return c.order }

// Identity returns a string keyed to this capture.
func (c *ElfCore) Identity() string { return c.identity }
