package image

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Synth is an in-memory image. It backs tests and the tagvm heap writer,
// which lays synthetic heaps into it.
type Synth struct {
	regions  []Region
	data     map[uint64][]byte // keyed by region base
	addrSize uint32
	order    binary.ByteOrder
	identity string
}

// NewSynth creates an empty synthetic image with the given word width and
// byte order.
func NewSynth(addrSize uint32, order binary.ByteOrder) *Synth {
	return &Synth{
		data:     make(map[uint64][]byte),
		addrSize: addrSize,
		order:    order,
		identity: "synth",
	}
}

// AddRegion maps size zeroed bytes at base.
func (s *Synth) AddRegion(base uint64, size uint64, writable bool) {
	s.regions = append(s.regions, Region{Base: base, End: base + size, Writable: writable})
	s.data[base] = make([]byte, size)
}

// SetIdentity overrides the image identity, simulating a target change.
func (s *Synth) SetIdentity(id string) { s.identity = id }

// WriteMemory copies buf into the region covering addr.
func (s *Synth) WriteMemory(addr uint64, buf []byte) error {
	for _, r := range s.regions {
		if !r.Contains(addr) {
			continue
		}
		if addr+uint64(len(buf)) > r.End {
			return fmt.Errorf("image: write past region end at 0x%x", addr)
		}
		copy(s.data[r.Base][addr-r.Base:], buf)
		return nil
	}
	return ErrOutOfRange
}

// PutWord writes one native-width word at addr.
func (s *Synth) PutWord(addr uint64, word uint64) error {
	buf := make([]byte, s.addrSize)
	if s.addrSize == 4 {
		s.order.PutUint32(buf, uint32(word))
	} else {
		s.order.PutUint64(buf, word)
	}
	return s.WriteMemory(addr, buf)
}

// Regions returns the mapped regions in address order.
func (s *Synth) Regions() []Region {
	out := make([]Region, len(s.regions))
	copy(out, s.regions)
	sort.Slice(out, func(i, j int) bool { return out[i].Base < out[j].Base })
	return out
}

// ReadMemory copies bytes out of the region covering addr.
func (s *Synth) ReadMemory(addr uint64, buf []byte) (int, error) {
	for _, r := range s.regions {
		if !r.Contains(addr) {
			continue
		}
		avail := r.End - addr
		if uint64(len(buf)) > avail {
			n := copy(buf, s.data[r.Base][addr-r.Base:])
			return n, ErrShortRead
		}
		n := copy(buf, s.data[r.Base][addr-r.Base:addr-r.Base+uint64(len(buf))])
		return n, nil
	}
	return 0, ErrOutOfRange
}

// AddrSize returns the word width in bytes.
func (s *Synth) AddrSize() uint32 { return s.addrSize }

// ByteOrder returns the byte order.
func (s *Synth) ByteOrder() binary.ByteOrder { return s.order }

// Identity returns the configured identity string.
func (s *Synth) Identity() string { return s.identity }
