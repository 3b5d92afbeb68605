package tagvm

import (
	"github.com/heaplift/heaplift/internal/image"
	"github.com/heaplift/heaplift/internal/objmodel"
)

// Writer builds synthetic heaps on an image.Synth for tests and fixtures.
// Allocation is bump-pointer within one writable region; a second small
// region holds root slots so freshly built objects become reachable by a
// brute-force scan. All constructors return tagged words.
type Writer struct {
	img  *image.Synth
	ws   uint64
	next uint64

	rootNext uint64
	rootEnd  uint64

	metaMap    uint64 // tagged
	stringMaps map[int64]uint64
}

// NewWriter prepares a writer allocating at base, with root slots in
// [rootBase, rootEnd). Both ranges must already be regions of img.
func NewWriter(img *image.Synth, base, rootBase, rootEnd uint64) *Writer {
	w := &Writer{
		img:        img,
		ws:         uint64(img.AddrSize()),
		next:       base,
		rootNext:   rootBase,
		rootEnd:    rootEnd,
		stringMaps: map[int64]uint64{},
	}

	// The meta map points at itself and carries the oddball tag so that
	// map objects themselves classify as non-histogram types.
	addr := w.alloc(mapWords)
	w.metaMap = Ptr(addr)
	w.put(addr, 0, w.metaMap)
	w.put(addr, mapOffType, Smi(int64(objmodel.TagOddball)))
	w.put(addr, mapOffSize, Smi(int64(mapWords)*int64(w.ws)))
	w.put(addr, mapOffInObject, Smi(0))
	w.put(addr, mapOffDescArray, Smi(0))
	w.put(addr, mapOffName, Smi(0))
	return w
}

// alloc reserves n words and returns the untagged body address.
func (w *Writer) alloc(n uint64) uint64 {
	addr := w.next
	w.next += n * w.ws
	return addr
}

func (w *Writer) put(body uint64, idx uint64, word uint64) {
	w.img.PutWord(body+idx*w.ws, word)
}

// Root stores obj in the next free root slot so scans will find it.
func (w *Writer) Root(obj uint64) {
	if w.rootNext >= w.rootEnd {
		panic("tagvm: root table full")
	}
	w.img.PutWord(w.rootNext, obj)
	w.rootNext += w.ws
}

// DescSpec declares one own-property descriptor for NewMap.
type DescSpec struct {
	Key        string
	Kind       int // detailsKindField, detailsKindConst, detailsKindAccessor
	Double     bool
	FieldIndex int64
	ConstValue uint64
}

// Descriptor kind values for DescSpec.
const (
	DescField    = detailsKindField
	DescConst    = detailsKindConst
	DescAccessor = detailsKindAccessor
)

// NewMap builds a map object. instanceSize 0 means computed from the
// in-object field count.
func (w *Writer) NewMap(tag int64, name string, inObject int64, instanceSize int64, descs []DescSpec) uint64 {
	if instanceSize == 0 {
		instanceSize = (objOffFields + inObject) * int64(w.ws)
	}
	var descArr uint64 = Smi(0)
	if len(descs) > 0 {
		descArr = w.newDescriptorArray(descs)
	}
	var nameWord uint64 = Smi(0)
	if name != "" {
		nameWord = w.NewSeqString(name)
	}

	addr := w.alloc(mapWords)
	w.put(addr, 0, w.metaMap)
	w.put(addr, mapOffType, Smi(tag))
	w.put(addr, mapOffSize, Smi(instanceSize))
	w.put(addr, mapOffInObject, Smi(inObject))
	w.put(addr, mapOffDescArray, descArr)
	w.put(addr, mapOffName, nameWord)
	return Ptr(addr)
}

func (w *Writer) newDescriptorArray(descs []DescSpec) uint64 {
	keys := make([]uint64, len(descs))
	for i, d := range descs {
		keys[i] = w.NewSeqString(d.Key)
	}

	n := uint64(len(descs)) * descGroupWords
	addr := w.alloc(arrOffSlots + n)
	w.put(addr, 0, w.metaMap)
	w.put(addr, arrOffLength, Smi(int64(len(descs))))
	for i, d := range descs {
		base := uint64(arrOffSlots) + uint64(i)*descGroupWords
		details := int64(d.Kind & detailsKindMask)
		if d.Double {
			details |= detailsDoubleBit
		}
		details |= d.FieldIndex << detailsIndexShift
		w.put(addr, base, keys[i])
		w.put(addr, base+1, Smi(details))
		w.put(addr, base+2, d.ConstValue)
	}
	return Ptr(addr)
}

// NewFixedArray builds a fixed array holding the given tagged slots.
func (w *Writer) NewFixedArray(slots []uint64) uint64 {
	addr := w.alloc(uint64(arrOffSlots + len(slots)))
	w.put(addr, 0, w.metaMap)
	w.put(addr, arrOffLength, Smi(int64(len(slots))))
	for i, s := range slots {
		w.put(addr, uint64(arrOffSlots+i), s)
	}
	return Ptr(addr)
}

// NewObject builds an instance of mapWord with the given in-object
// fields. elements and overflow may be 0 for none.
func (w *Writer) NewObject(mapWord uint64, fields []uint64, elements uint64, overflow uint64) uint64 {
	if elements == 0 {
		elements = Smi(0)
	}
	if overflow == 0 {
		overflow = Smi(0)
	}
	addr := w.alloc(uint64(objOffFields + len(fields)))
	w.put(addr, 0, mapWord)
	w.put(addr, objOffProps, overflow)
	w.put(addr, objOffElements, elements)
	for i, f := range fields {
		w.put(addr, uint64(objOffFields+i), f)
	}
	return Ptr(addr)
}

// stringMap returns the canonical map for a string tag, creating it on
// first use. String instance sizes cover the header only; body size
// varies per instance.
func (w *Writer) stringMap(tag objmodel.TypeTag) uint64 {
	if m, ok := w.stringMaps[int64(tag)]; ok {
		return m
	}
	m := w.NewMap(int64(tag), "", 0, strOffBody*int64(w.ws), nil)
	w.stringMaps[int64(tag)] = m
	return m
}

// NewSeqString builds a flat byte string.
func (w *Writer) NewSeqString(s string) uint64 {
	words := (uint64(len(s)) + w.ws - 1) / w.ws
	addr := w.alloc(strOffBody + words)
	w.put(addr, 0, w.stringMap(objmodel.TagSeqString))
	w.put(addr, strOffLength, Smi(int64(len(s))))
	w.img.WriteMemory(addr+strOffBody*w.ws, []byte(s))
	return Ptr(addr)
}

// NewConsString builds a concatenation node over first and second.
func (w *Writer) NewConsString(length int64, first, second uint64) uint64 {
	addr := w.alloc(strOffBody + 2)
	w.put(addr, 0, w.stringMap(objmodel.TagConsString))
	w.put(addr, strOffLength, Smi(length))
	w.put(addr, strOffBody, first)
	w.put(addr, strOffBody+1, second)
	return Ptr(addr)
}

// NewSlicedString builds a window into parent.
func (w *Writer) NewSlicedString(parent uint64, offset, length int64) uint64 {
	addr := w.alloc(strOffBody + 2)
	w.put(addr, 0, w.stringMap(objmodel.TagSlicedString))
	w.put(addr, strOffLength, Smi(length))
	w.put(addr, strOffBody, parent)
	w.put(addr, strOffBody+1, Smi(offset))
	return Ptr(addr)
}

// NewThinString builds a forwarding string to actual.
func (w *Writer) NewThinString(length int64, actual uint64) uint64 {
	addr := w.alloc(strOffBody + 2)
	w.put(addr, 0, w.stringMap(objmodel.TagThinString))
	w.put(addr, strOffLength, Smi(length))
	w.put(addr, strOffBody, actual)
	return Ptr(addr)
}

// NewContext builds a closure context. Local names become the scope info;
// values fill the local slots in order.
func (w *Writer) NewContext(locals []struct {
	Name  string
	Value uint64
}) uint64 {
	names := make([]uint64, len(locals))
	for i, l := range locals {
		names[i] = w.NewSeqString(l.Name)
	}
	scopeAddr := w.alloc(uint64(arrOffSlots + len(locals)))
	w.put(scopeAddr, 0, w.metaMap)
	w.put(scopeAddr, arrOffLength, Smi(int64(len(locals))))
	for i, n := range names {
		w.put(scopeAddr, uint64(arrOffSlots+i), n)
	}

	ctxMap := w.NewMap(int64(objmodel.TagContext), "", 0, (ctxOffLocals+int64(len(locals)))*int64(w.ws), nil)
	addr := w.alloc(uint64(ctxOffLocals + len(locals)))
	w.put(addr, 0, ctxMap)
	w.put(addr, ctxOffScope, Ptr(scopeAddr))
	for i, l := range locals {
		w.put(addr, uint64(ctxOffLocals+i), l.Value)
	}
	return Ptr(addr)
}
