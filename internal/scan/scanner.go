package scan

import (
	"github.com/heaplift/heaplift/internal/histogram"
	"github.com/heaplift/heaplift/internal/image"
	"github.com/heaplift/heaplift/internal/logger"
	"github.com/heaplift/heaplift/internal/objmodel"
)

// defaultBlockPerAddrByte sizes bulk reads at one MiB per address byte.
const defaultBlockPerAddrByte = 1024 * 1024

// Scanner walks the memory regions of an image and feeds every aligned
// word to a visitor.
type Scanner struct {
	img             image.Image
	log             *logger.Logger
	blockSize       int64
	includeReadOnly bool
}

// Run scans every eligible region. Region-level read failures truncate
// that region only; the scan continues with the next one.
func (s *Scanner) Run(v *Visitor) error {
	for _, r := range s.img.Regions() {
		if !r.Writable && !s.includeReadOnly {
			continue
		}
		s.scanRegion(r, v)
	}
	return nil
}

func (s *Scanner) scanRegion(r image.Region, v *Visitor) {
	ws := uint64(s.img.AddrSize())

	block := uint64(s.blockSize)
	if block == 0 {
		block = defaultBlockPerAddrByte * ws
	}
	// Whole words only per block.
	block -= block % ws
	if block == 0 {
		block = ws
	}
	buf := make([]byte, block)

	// Word-align the start; unaligned words never hold tagged values.
	addr := r.Base
	if rem := addr % ws; rem != 0 {
		addr += ws - rem
	}

	for addr < r.End {
		n := r.End - addr
		if n > block {
			n = block
		}
		n -= n % ws
		if n == 0 {
			return
		}
		if _, err := s.img.ReadMemory(addr, buf[:n]); err != nil {
			// Unreadable remainder, give up on this region.
			s.log.WithRegion(r.Base).Debugw("bulk read failed, truncating region",
				"addr", addr, "error", err)
			return
		}
		for off := uint64(0); off+ws <= n; {
			word := image.DecodeWord(buf[off:off+ws], s.img.ByteOrder())
			advance := v.Visit(addr+off, word)
			if advance == 0 {
				return
			}
			off += advance
		}
		addr += n
	}
}

// mapCacheEntry caches everything derivable from one map object so that
// repeat instances of a type cost a single lookup. The per-instance
// indexed-element count is the one classification input that cannot live
// here; detailed keys fold it in at visit time.
type mapCacheEntry struct {
	typeName       string
	displayName    string
	props          []string
	isHistogram    bool
	isContext      bool
	valid          bool
	instanceSize   uint64
	ownDescriptors uint64
}

// Visitor classifies candidate words into the session's histograms and
// context list. Any decode failure skips the candidate; garbage words
// are the common case, not the exception.
type Visitor struct {
	s        *Session
	model    objmodel.Model
	ws       uint64
	sigProps int
	found    uint64
	mapCache map[uint64]*mapCacheEntry
}

func newVisitor(s *Session) *Visitor {
	return &Visitor{
		s:        s,
		model:    s.model,
		ws:       uint64(s.img.AddrSize()),
		sigProps: s.opts.SignatureProperties,
		mapCache: map[uint64]*mapCacheEntry{},
	}
}

// Visit classifies the word found at location and returns how many bytes
// to advance. It never asks to stop a region; the zero return belongs to
// the scanner contract.
func (v *Visitor) Visit(location, word uint64) uint64 {
	if v.model.IsSmallInt(word) {
		return v.ws
	}
	if !v.model.IsHeapObject(word) {
		return v.ws
	}

	entry := v.mapEntry(word)
	if entry == nil || !entry.valid {
		return v.ws
	}

	if entry.isContext {
		v.s.addContext(word)
		return v.ws
	}
	if !entry.isHistogram {
		return v.ws
	}

	v.found++
	v.s.types.Get(entry.typeName).AddInstance(word, entry.instanceSize)

	indexed, err := v.model.ArrayLength(word)
	if err != nil || indexed < 0 {
		indexed = 0
	}
	// Aggregation identity is the full signature: every property name
	// plus the element count. The capped name is display only.
	key := histogram.Signature(entry.typeName, uint64(indexed), entry.props, true, 0)
	v.s.detailed.Get(key, func() *histogram.DetailedTypeRecord {
		return histogram.NewDetailedTypeRecord(entry.displayName, entry.ownDescriptors, uint64(indexed))
	}).AddInstance(word, entry.instanceSize)

	return v.ws
}

// mapEntry resolves and caches the classification of obj's map. A cached
// invalid entry means the map failed validation once and will fail again.
func (v *Visitor) mapEntry(obj uint64) *mapCacheEntry {
	m, err := v.model.ResolveMap(obj)
	if err != nil {
		return nil
	}
	key := m.Addr()
	if e, ok := v.mapCache[key]; ok {
		return e
	}

	e := &mapCacheEntry{}
	v.mapCache[key] = e

	tag, err := v.model.TypeOf(obj)
	if err != nil {
		return e
	}
	typeName, err := v.model.TypeName(obj)
	if err != nil {
		return e
	}
	size, err := m.InstanceSize()
	if err != nil || size <= 0 {
		return e
	}

	e.typeName = typeName
	e.instanceSize = uint64(size)
	e.isContext = tag == objmodel.TagContext

	switch {
	case tag == objmodel.TagObject, tag == objmodel.TagArray, tag == objmodel.TagTypedArray:
		e.isHistogram = true
	case tag.IsString():
		e.isHistogram = true
	}

	if e.isHistogram {
		descs, err := m.OwnDescriptorCount()
		if err != nil || descs < 0 {
			return e
		}
		e.ownDescriptors = uint64(descs)

		props := make([]string, 0, descs)
		for i := int64(0); i < descs; i++ {
			d, err := m.Descriptor(i)
			if err != nil {
				return e
			}
			props = append(props, d.Key)
		}
		e.props = props
		e.displayName = histogram.Signature(typeName, 0, props, false, v.sigProps)
	}

	e.valid = true
	return e
}
