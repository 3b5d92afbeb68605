// Package image provides access to captured process memory images.
//
// An Image exposes the memory regions of a dead process plus a bulk read
// primitive. The scanner only ever walks writable regions; everything else
// in the image is invisible to it.
package image

import (
	"encoding/binary"
	"errors"
)

var (
	// ErrOutOfRange is returned when a read falls outside every region.
	ErrOutOfRange = errors.New("image: address not mapped")
	// ErrShortRead is returned when a region ends before the requested length.
	ErrShortRead = errors.New("image: short read")
)

// Region describes one mapped range of the target's address space.
type Region struct {
	Base     uint64
	End      uint64
	Writable bool
}

// Len returns the region length in bytes.
func (r Region) Len() uint64 {
	if r.End < r.Base {
		return 0
	}
	return r.End - r.Base
}

// Contains reports whether addr falls inside the region.
func (r Region) Contains(addr uint64) bool {
	return addr >= r.Base && addr < r.End
}

// Image is the memory-image collaborator consumed by the scan engine.
type Image interface {
	// Regions enumerates all mapped regions, in address order.
	Regions() []Region

	// ReadMemory copies len(buf) bytes starting at addr into buf.
	// It returns the number of bytes read; n < len(buf) always comes
	// with a non-nil error.
	ReadMemory(addr uint64, buf []byte) (int, error)

	// AddrSize is the target word width in bytes (4 or 8).
	AddrSize() uint32

	// ByteOrder is the target byte order.
	ByteOrder() binary.ByteOrder

	// Identity distinguishes one capture from another. Scan state is
	// cached per identity and discarded when it changes.
	Identity() string
}

// ReadWord reads one native-width word at addr from img.
func ReadWord(img Image, addr uint64) (uint64, error) {
	buf := make([]byte, img.AddrSize())
	if _, err := img.ReadMemory(addr, buf); err != nil {
		return 0, err
	}
	return DecodeWord(buf, img.ByteOrder()), nil
}

// DecodeWord decodes one word from buf using the given byte order.
// len(buf) selects the width: 4 or 8 bytes.
func DecodeWord(buf []byte, order binary.ByteOrder) uint64 {
	if len(buf) == 4 {
		return uint64(order.Uint32(buf))
	}
	return order.Uint64(buf)
}
