// Package objmodel defines the object-model collaborator: the mapping from
// raw tagged words in a memory image to typed runtime objects.
//
// The scan engine treats this as a fixed interface. Every accessor returns
// an explicit error; a failure always means "skip this candidate", never
// "abort the scan".
package objmodel

// TypeTag classifies a heap object. String subtypes are distinguished
// because composite strings reference other strings instead of storing
// characters.
type TypeTag int

const (
	TagInvalid TypeTag = iota
	TagObject
	TagArray
	TagTypedArray
	TagSeqString
	TagConsString
	TagSlicedString
	TagThinString
	TagContext
	TagClosure
	TagCode
	TagRegExp
	TagHeapNumber
	TagOddball
)

// IsString reports whether t is any string subtype.
func (t TypeTag) IsString() bool {
	switch t {
	case TagSeqString, TagConsString, TagSlicedString, TagThinString:
		return true
	}
	return false
}

// String returns a short name for the tag.
func (t TypeTag) String() string {
	switch t {
	case TagObject:
		return "Object"
	case TagArray:
		return "Array"
	case TagTypedArray:
		return "TypedArray"
	case TagSeqString:
		return "String"
	case TagConsString:
		return "ConsString"
	case TagSlicedString:
		return "SlicedString"
	case TagThinString:
		return "ThinString"
	case TagContext:
		return "Context"
	case TagClosure:
		return "Closure"
	case TagCode:
		return "Code"
	case TagRegExp:
		return "RegExp"
	case TagHeapNumber:
		return "HeapNumber"
	case TagOddball:
		return "Oddball"
	}
	return "Invalid"
}

// DescriptorKind says where a described property's value lives.
type DescriptorKind int

const (
	KindField DescriptorKind = iota // value stored in an object slot
	KindConst                       // value stored in the descriptor itself
	KindAccessor                    // getter/setter pair, no plain value
)

// Descriptor is one entry in a map's own-property list.
type Descriptor struct {
	Key        string
	Kind       DescriptorKind
	Double     bool // field holds an unboxed double, not a tagged word
	FieldIndex int64
}

// Entry is one (key, value) pair from an object's own properties.
type Entry struct {
	Key   string
	Value uint64
}

// Local is one named variable slot captured by a closure context.
type Local struct {
	Name  string
	Value uint64
}

// Map describes the shape shared by all instances of one type.
type Map interface {
	Addr() uint64
	InstanceSize() (int64, error)
	OwnDescriptorCount() (int64, error)
	InObjectProperties() (int64, error)
	Descriptor(i int64) (Descriptor, error)
}

// Model decodes tagged words against a specific runtime layout.
type Model interface {
	// IsSmallInt reports whether word is an inline small integer rather
	// than a pointer. Cheapest check; the classifier runs it first.
	IsSmallInt(word uint64) bool

	// SmallIntValue decodes an inline small integer.
	SmallIntValue(word uint64) int64

	// IsHeapObject reports whether word plausibly points at a heap
	// object. This is a heuristic validity check, not a guarantee.
	IsHeapObject(word uint64) bool

	// IsHole reports whether word is the hole marker used for absent
	// array elements.
	IsHole(word uint64) bool

	// ResolveMap resolves the map of the object at obj.
	ResolveMap(obj uint64) (Map, error)

	// TypeOf returns the object's type tag.
	TypeOf(obj uint64) (TypeTag, error)

	// TypeName returns the display type name for the object.
	TypeName(obj uint64) (string, error)

	// ContextLocals enumerates the named local slots of a context.
	ContextLocals(ctx uint64) ([]Local, error)

	// ArrayLength returns the indexed-element count of an object.
	ArrayLength(obj uint64) (int64, error)

	// ArrayElement returns the tagged word at element index i.
	ArrayElement(obj uint64, i int64) (uint64, error)

	// Entries enumerates the object's own (key, value) properties.
	Entries(obj uint64) ([]Entry, error)

	// StringValue flattens any string subtype to its character content.
	StringValue(obj uint64) (string, error)

	// StringParent returns a sliced string's backing string.
	StringParent(obj uint64) (uint64, error)

	// StringFirst and StringSecond return a cons string's operands.
	StringFirst(obj uint64) (uint64, error)
	StringSecond(obj uint64) (uint64, error)

	// StringActual returns a thin string's target.
	StringActual(obj uint64) (uint64, error)

	// InObjectField reads a field stored inside the object body. rel is
	// the descriptor field index minus the map's in-object property
	// count, always negative here.
	InObjectField(obj uint64, m Map, rel int64) (uint64, error)

	// PropertyArrayField reads a field from the overflow property array.
	// rel is the descriptor field index minus the in-object count,
	// non-negative here.
	PropertyArrayField(obj uint64, rel int64) (uint64, error)
}
