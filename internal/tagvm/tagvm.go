// Package tagvm decodes the tagged-word object layout used by heaplift
// memory captures.
//
// A native-width word is either a small integer (low bit clear, value in
// the upper bits) or a heap pointer (low bit set, object body at word-1).
// Every heap object starts with a tagged pointer to its map, a metadata
// object describing instance type, size and property layout. The package
// implements objmodel.Model over any image.Image.
//
// Object identity everywhere in the engine is the tagged word, never the
// bare address: all public methods accept and return tagged words.
package tagvm

import (
	"errors"
	"fmt"

	"github.com/heaplift/heaplift/internal/image"
	"github.com/heaplift/heaplift/internal/objmodel"
)

// Word-offset layout of the supported object kinds. All offsets are in
// native words, values are tagged unless noted.
//
//	map:        [0]=meta map  [1]=type smi  [2]=size smi
//	            [3]=in-object smi  [4]=descriptors  [5]=name string
//	object:     [0]=map  [1]=overflow props  [2]=elements  [3..]=fields
//	fixedarray: [0]=map  [1]=length smi  [2..]=slots
//	seq string: [0]=map  [1]=length smi  [2..]=bytes
//	cons:       [0]=map  [1]=length smi  [2]=first  [3]=second
//	sliced:     [0]=map  [1]=length smi  [2]=parent  [3]=offset smi
//	thin:       [0]=map  [1]=length smi  [2]=actual
//	context:    [0]=map  [1]=scope info  [2..]=local slots
//	scopeinfo:  [0]=map  [1]=count smi  [2..]=name strings
const (
	mapOffType      = 1
	mapOffSize      = 2
	mapOffInObject  = 3
	mapOffDescArray = 4
	mapOffName      = 5
	mapWords        = 6

	objOffProps    = 1
	objOffElements = 2
	objOffFields   = 3

	arrOffLength = 1
	arrOffSlots  = 2

	strOffLength = 1
	strOffBody   = 2

	ctxOffScope  = 1
	ctxOffLocals = 2

	descGroupWords = 3 // key, details, value
)

// Details bitfield in a descriptor's second slot.
const (
	detailsKindMask     = 0x3
	detailsKindField    = 0
	detailsKindConst    = 1
	detailsKindAccessor = 2
	detailsDoubleBit    = 0x4
	detailsIndexShift   = 3
)

// HoleWord is the tagged sentinel written in place of absent elements.
const HoleWord = 0x07

// Bounds applied while validating candidate maps. Brute-force scanning
// hits arbitrary garbage, so every metadata read is range checked.
const (
	maxInstanceSize = 1 << 20
	maxInObject     = 1 << 10
	maxDescriptors  = 1 << 12
	maxElements     = 1 << 24
	maxStringDepth  = 64
)

var (
	ErrNotPointer  = errors.New("tagvm: word is not a heap pointer")
	ErrBadMap      = errors.New("tagvm: invalid map")
	ErrBadType     = errors.New("tagvm: unexpected instance type")
	ErrBadMetadata = errors.New("tagvm: metadata out of range")
)

// VM decodes heap objects out of one memory image.
type VM struct {
	img image.Image
	ws  uint64
}

// New creates a decoder over img.
func New(img image.Image) *VM {
	return &VM{img: img, ws: uint64(img.AddrSize())}
}

// Smi encodes v as a small-integer word.
func Smi(v int64) uint64 { return uint64(v) << 1 }

// Ptr tags addr as a heap-pointer word.
func Ptr(addr uint64) uint64 { return addr | 1 }

// IsSmallInt reports whether word is an inline small integer.
func (vm *VM) IsSmallInt(word uint64) bool { return word&1 == 0 }

// SmallIntValue decodes an inline small integer.
func (vm *VM) SmallIntValue(word uint64) int64 { return int64(word) >> 1 }

// IsHole reports whether word is the absent-element sentinel.
func (vm *VM) IsHole(word uint64) bool { return word == HoleWord }

// IsHeapObject reports whether word looks like a pointer to a word-aligned
// heap object. Purely a tag and alignment check; map validation happens in
// ResolveMap.
func (vm *VM) IsHeapObject(word uint64) bool {
	if word&1 == 0 || word == HoleWord {
		return false
	}
	return (word-1)%vm.ws == 0
}

func (vm *VM) word(addr uint64) (uint64, error) {
	return image.ReadWord(vm.img, addr)
}

func (vm *VM) slot(addr uint64, idx uint64) (uint64, error) {
	return vm.word(addr + idx*vm.ws)
}

// deref validates word as a heap pointer and returns the body address.
func (vm *VM) deref(word uint64) (uint64, error) {
	if !vm.IsHeapObject(word) {
		return 0, ErrNotPointer
	}
	return word - 1, nil
}

// Map implements objmodel.Map for a validated map object.
type Map struct {
	vm   *VM
	addr uint64 // untagged body address
}

// ResolveMap reads and validates the map of the object at obj. The checks
// are deliberately paranoid: most words handed to the decoder are garbage.
func (vm *VM) ResolveMap(obj uint64) (objmodel.Map, error) {
	body, err := vm.deref(obj)
	if err != nil {
		return nil, err
	}
	mapWord, err := vm.word(body)
	if err != nil {
		return nil, err
	}
	mapAddr, err := vm.deref(mapWord)
	if err != nil {
		return nil, fmt.Errorf("%w: map slot", ErrBadMap)
	}

	// The map's own first slot must again be a tagged pointer (the meta
	// map), and its metadata smis must be in range.
	meta, err := vm.word(mapAddr)
	if err != nil {
		return nil, err
	}
	if !vm.IsHeapObject(meta) {
		return nil, ErrBadMap
	}

	typeWord, err := vm.slot(mapAddr, mapOffType)
	if err != nil {
		return nil, err
	}
	if !vm.IsSmallInt(typeWord) {
		return nil, ErrBadMap
	}
	tag := vm.SmallIntValue(typeWord)
	if tag <= int64(objmodel.TagInvalid) || tag > int64(objmodel.TagOddball) {
		return nil, ErrBadType
	}

	sizeWord, err := vm.slot(mapAddr, mapOffSize)
	if err != nil {
		return nil, err
	}
	if !vm.IsSmallInt(sizeWord) {
		return nil, ErrBadMap
	}
	if size := vm.SmallIntValue(sizeWord); size <= 0 || size > maxInstanceSize {
		return nil, ErrBadMetadata
	}

	inObjWord, err := vm.slot(mapAddr, mapOffInObject)
	if err != nil {
		return nil, err
	}
	if !vm.IsSmallInt(inObjWord) {
		return nil, ErrBadMap
	}
	if n := vm.SmallIntValue(inObjWord); n < 0 || n > maxInObject {
		return nil, ErrBadMetadata
	}

	return &Map{vm: vm, addr: mapAddr}, nil
}

// Addr returns the map's identity (its tagged word).
func (m *Map) Addr() uint64 { return Ptr(m.addr) }

// InstanceSize returns the declared instance size in bytes.
func (m *Map) InstanceSize() (int64, error) {
	w, err := m.vm.slot(m.addr, mapOffSize)
	if err != nil {
		return 0, err
	}
	return m.vm.SmallIntValue(w), nil
}

// InObjectProperties returns the number of fields stored in the object
// body.
func (m *Map) InObjectProperties() (int64, error) {
	w, err := m.vm.slot(m.addr, mapOffInObject)
	if err != nil {
		return 0, err
	}
	return m.vm.SmallIntValue(w), nil
}

func (m *Map) typeTag() (objmodel.TypeTag, error) {
	w, err := m.vm.slot(m.addr, mapOffType)
	if err != nil {
		return objmodel.TagInvalid, err
	}
	if !m.vm.IsSmallInt(w) {
		return objmodel.TagInvalid, ErrBadMap
	}
	return objmodel.TypeTag(m.vm.SmallIntValue(w)), nil
}

func (m *Map) descriptorArray() (uint64, error) {
	w, err := m.vm.slot(m.addr, mapOffDescArray)
	if err != nil {
		return 0, err
	}
	if m.vm.IsSmallInt(w) {
		return 0, nil // no descriptors
	}
	return m.vm.deref(w)
}

// OwnDescriptorCount returns the number of own-property descriptors.
func (m *Map) OwnDescriptorCount() (int64, error) {
	arr, err := m.descriptorArray()
	if err != nil {
		return 0, err
	}
	if arr == 0 {
		return 0, nil
	}
	w, err := m.vm.slot(arr, arrOffLength)
	if err != nil {
		return 0, err
	}
	if !m.vm.IsSmallInt(w) {
		return 0, ErrBadMap
	}
	n := m.vm.SmallIntValue(w)
	if n < 0 || n > maxDescriptors {
		return 0, ErrBadMetadata
	}
	return n, nil
}

// Descriptor returns the i-th own-property descriptor.
func (m *Map) Descriptor(i int64) (objmodel.Descriptor, error) {
	arr, err := m.descriptorArray()
	if err != nil {
		return objmodel.Descriptor{}, err
	}
	if arr == 0 {
		return objmodel.Descriptor{}, ErrBadMetadata
	}
	base := uint64(arrOffSlots) + uint64(i)*descGroupWords

	keyWord, err := m.vm.slot(arr, base)
	if err != nil {
		return objmodel.Descriptor{}, err
	}
	key, err := m.vm.StringValue(keyWord)
	if err != nil {
		return objmodel.Descriptor{}, err
	}

	detailsWord, err := m.vm.slot(arr, base+1)
	if err != nil {
		return objmodel.Descriptor{}, err
	}
	if !m.vm.IsSmallInt(detailsWord) {
		return objmodel.Descriptor{}, ErrBadMap
	}
	details := m.vm.SmallIntValue(detailsWord)

	d := objmodel.Descriptor{
		Key:        key,
		Double:     details&detailsDoubleBit != 0,
		FieldIndex: details >> detailsIndexShift,
	}
	switch details & detailsKindMask {
	case detailsKindField:
		d.Kind = objmodel.KindField
	case detailsKindConst:
		d.Kind = objmodel.KindConst
	default:
		d.Kind = objmodel.KindAccessor
	}
	return d, nil
}

// descriptorValue reads the constant value slot of descriptor i.
func (m *Map) descriptorValue(i int64) (uint64, error) {
	arr, err := m.descriptorArray()
	if err != nil {
		return 0, err
	}
	if arr == 0 {
		return 0, ErrBadMetadata
	}
	return m.vm.slot(arr, uint64(arrOffSlots)+uint64(i)*descGroupWords+2)
}

// TypeOf returns the type tag of the object at obj.
func (vm *VM) TypeOf(obj uint64) (objmodel.TypeTag, error) {
	m, err := vm.ResolveMap(obj)
	if err != nil {
		return objmodel.TagInvalid, err
	}
	return m.(*Map).typeTag()
}

// TypeName returns the display name stored on the object's map.
func (vm *VM) TypeName(obj uint64) (string, error) {
	m, err := vm.ResolveMap(obj)
	if err != nil {
		return "", err
	}
	nameWord, err := vm.slot(m.(*Map).addr, mapOffName)
	if err != nil {
		return "", err
	}
	if vm.IsSmallInt(nameWord) {
		// Unnamed map, fall back to the tag.
		tag, err := m.(*Map).typeTag()
		if err != nil {
			return "", err
		}
		return tag.String(), nil
	}
	return vm.StringValue(nameWord)
}

// IsContext reports whether the object at obj is a closure context.
func (vm *VM) IsContext(obj uint64) (bool, error) {
	tag, err := vm.TypeOf(obj)
	if err != nil {
		return false, err
	}
	return tag == objmodel.TagContext, nil
}

// ContextLocals enumerates the named local slots of the context at ctx.
func (vm *VM) ContextLocals(ctx uint64) ([]objmodel.Local, error) {
	tag, err := vm.TypeOf(ctx)
	if err != nil {
		return nil, err
	}
	if tag != objmodel.TagContext {
		return nil, ErrBadType
	}
	body, err := vm.deref(ctx)
	if err != nil {
		return nil, err
	}

	scopeWord, err := vm.slot(body, ctxOffScope)
	if err != nil {
		return nil, err
	}
	scope, err := vm.deref(scopeWord)
	if err != nil {
		return nil, err
	}
	countWord, err := vm.slot(scope, arrOffLength)
	if err != nil {
		return nil, err
	}
	if !vm.IsSmallInt(countWord) {
		return nil, ErrBadMap
	}
	count := vm.SmallIntValue(countWord)
	if count < 0 || count > maxInObject {
		return nil, ErrBadMetadata
	}

	locals := make([]objmodel.Local, 0, count)
	for i := int64(0); i < count; i++ {
		nameWord, err := vm.slot(scope, uint64(arrOffSlots)+uint64(i))
		if err != nil {
			return nil, err
		}
		name, err := vm.StringValue(nameWord)
		if err != nil {
			continue // unreadable slot name, skip it
		}
		value, err := vm.slot(body, uint64(ctxOffLocals)+uint64(i))
		if err != nil {
			return nil, err
		}
		locals = append(locals, objmodel.Local{Name: name, Value: value})
	}
	return locals, nil
}

// elementsArray returns the body address of the object's elements fixed
// array, 0 if none.
func (vm *VM) elementsArray(obj uint64) (uint64, error) {
	body, err := vm.deref(obj)
	if err != nil {
		return 0, err
	}
	w, err := vm.slot(body, objOffElements)
	if err != nil {
		return 0, err
	}
	if vm.IsSmallInt(w) {
		return 0, nil
	}
	return vm.deref(w)
}

// ArrayLength returns the indexed-element count of the object at obj.
func (vm *VM) ArrayLength(obj uint64) (int64, error) {
	tag, err := vm.TypeOf(obj)
	if err != nil {
		return 0, err
	}
	switch tag {
	case objmodel.TagObject, objmodel.TagArray, objmodel.TagTypedArray:
	default:
		return 0, nil
	}
	arr, err := vm.elementsArray(obj)
	if err != nil || arr == 0 {
		return 0, err
	}
	w, err := vm.slot(arr, arrOffLength)
	if err != nil {
		return 0, err
	}
	if !vm.IsSmallInt(w) {
		return 0, ErrBadMap
	}
	n := vm.SmallIntValue(w)
	if n < 0 || n > maxElements {
		return 0, ErrBadMetadata
	}
	return n, nil
}

// ArrayElement returns the tagged word at element index i.
func (vm *VM) ArrayElement(obj uint64, i int64) (uint64, error) {
	arr, err := vm.elementsArray(obj)
	if err != nil {
		return 0, err
	}
	if arr == 0 {
		return 0, ErrBadMetadata
	}
	return vm.slot(arr, uint64(arrOffSlots)+uint64(i))
}

// Entries enumerates the object's own properties. Accessor and unboxed
// double descriptors carry no tagged value and are skipped.
func (vm *VM) Entries(obj uint64) ([]objmodel.Entry, error) {
	m, err := vm.ResolveMap(obj)
	if err != nil {
		return nil, err
	}
	tm := m.(*Map)

	count, err := tm.OwnDescriptorCount()
	if err != nil {
		return nil, err
	}
	inObj, err := tm.InObjectProperties()
	if err != nil {
		return nil, err
	}

	entries := make([]objmodel.Entry, 0, count)
	for i := int64(0); i < count; i++ {
		d, err := tm.Descriptor(i)
		if err != nil {
			continue // malformed descriptor, skip
		}
		var value uint64
		switch {
		case d.Kind == objmodel.KindAccessor || d.Double:
			continue
		case d.Kind == objmodel.KindConst:
			value, err = tm.descriptorValue(i)
		default:
			rel := d.FieldIndex - inObj
			if rel < 0 {
				value, err = vm.InObjectField(obj, tm, rel)
			} else {
				value, err = vm.PropertyArrayField(obj, rel)
			}
		}
		if err != nil {
			continue
		}
		entries = append(entries, objmodel.Entry{Key: d.Key, Value: value})
	}
	return entries, nil
}

// InObjectField reads a field stored in the object body. rel is negative:
// the slot sits rel words before the end of the instance.
func (vm *VM) InObjectField(obj uint64, m objmodel.Map, rel int64) (uint64, error) {
	body, err := vm.deref(obj)
	if err != nil {
		return 0, err
	}
	size, err := m.InstanceSize()
	if err != nil {
		return 0, err
	}
	offset := size + rel*int64(vm.ws)
	if offset < 0 {
		return 0, ErrBadMetadata
	}
	return vm.word(body + uint64(offset))
}

// PropertyArrayField reads a field from the overflow property array.
func (vm *VM) PropertyArrayField(obj uint64, rel int64) (uint64, error) {
	body, err := vm.deref(obj)
	if err != nil {
		return 0, err
	}
	w, err := vm.slot(body, objOffProps)
	if err != nil {
		return 0, err
	}
	arr, err := vm.deref(w)
	if err != nil {
		return 0, err
	}
	return vm.slot(arr, uint64(arrOffSlots)+uint64(rel))
}

// StringValue flattens any string subtype to its character content.
func (vm *VM) StringValue(obj uint64) (string, error) {
	return vm.stringValue(obj, 0)
}

func (vm *VM) stringValue(obj uint64, depth int) (string, error) {
	if depth > maxStringDepth {
		return "", ErrBadMetadata
	}
	tag, err := vm.TypeOf(obj)
	if err != nil {
		return "", err
	}
	body, err := vm.deref(obj)
	if err != nil {
		return "", err
	}

	lengthWord, err := vm.slot(body, strOffLength)
	if err != nil {
		return "", err
	}
	if !vm.IsSmallInt(lengthWord) {
		return "", ErrBadMap
	}
	length := vm.SmallIntValue(lengthWord)
	if length < 0 || length > maxInstanceSize {
		return "", ErrBadMetadata
	}

	switch tag {
	case objmodel.TagSeqString:
		buf := make([]byte, length)
		if length > 0 {
			if _, err := vm.img.ReadMemory(body+strOffBody*vm.ws, buf); err != nil {
				return "", err
			}
		}
		return string(buf), nil

	case objmodel.TagConsString:
		first, err := vm.slot(body, strOffBody)
		if err != nil {
			return "", err
		}
		second, err := vm.slot(body, strOffBody+1)
		if err != nil {
			return "", err
		}
		a, err := vm.stringValue(first, depth+1)
		if err != nil {
			return "", err
		}
		b, err := vm.stringValue(second, depth+1)
		if err != nil {
			return "", err
		}
		return a + b, nil

	case objmodel.TagSlicedString:
		parent, err := vm.slot(body, strOffBody)
		if err != nil {
			return "", err
		}
		offWord, err := vm.slot(body, strOffBody+1)
		if err != nil {
			return "", err
		}
		if !vm.IsSmallInt(offWord) {
			return "", ErrBadMap
		}
		offset := vm.SmallIntValue(offWord)
		full, err := vm.stringValue(parent, depth+1)
		if err != nil {
			return "", err
		}
		if offset < 0 || offset+length > int64(len(full)) {
			return "", ErrBadMetadata
		}
		return full[offset : offset+length], nil

	case objmodel.TagThinString:
		actual, err := vm.slot(body, strOffBody)
		if err != nil {
			return "", err
		}
		return vm.stringValue(actual, depth+1)
	}
	return "", ErrBadType
}

// StringParent returns a sliced string's backing string (tagged).
func (vm *VM) StringParent(obj uint64) (uint64, error) {
	return vm.componentOfKind(obj, objmodel.TagSlicedString, strOffBody)
}

// StringFirst returns a cons string's first operand (tagged).
func (vm *VM) StringFirst(obj uint64) (uint64, error) {
	return vm.componentOfKind(obj, objmodel.TagConsString, strOffBody)
}

// StringSecond returns a cons string's second operand (tagged).
func (vm *VM) StringSecond(obj uint64) (uint64, error) {
	return vm.componentOfKind(obj, objmodel.TagConsString, strOffBody+1)
}

// StringActual returns a thin string's target (tagged).
func (vm *VM) StringActual(obj uint64) (uint64, error) {
	return vm.componentOfKind(obj, objmodel.TagThinString, strOffBody)
}

func (vm *VM) componentOfKind(obj uint64, want objmodel.TypeTag, idx uint64) (uint64, error) {
	tag, err := vm.TypeOf(obj)
	if err != nil {
		return 0, err
	}
	if tag != want {
		return 0, ErrBadType
	}
	body, err := vm.deref(obj)
	if err != nil {
		return 0, err
	}
	w, err := vm.slot(body, idx)
	if err != nil {
		return 0, err
	}
	if !vm.IsHeapObject(w) {
		return 0, ErrNotPointer
	}
	return w, nil
}
