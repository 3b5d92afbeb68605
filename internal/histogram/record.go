// Package histogram aggregates classified heap instances by type.
package histogram

import (
	"sort"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v2"
)

// SignatureProperties caps how many property names appear in a detailed
// record's comparison key. Presentation policy only; aggregation identity
// uses the full signature.
const SignatureProperties = 3

// TypeRecord accumulates instances sharing one type name.
type TypeRecord struct {
	typeName  string
	count     uint64
	totalSize uint64
	instances map[uint64]struct{}
	order     []uint64 // insertion order, for stable listing
}

// NewTypeRecord creates an empty record for typeName.
func NewTypeRecord(typeName string) *TypeRecord {
	return &TypeRecord{
		typeName:  typeName,
		instances: make(map[uint64]struct{}),
	}
}

// TypeName returns the record's type name.
func (t *TypeRecord) TypeName() string { return t.typeName }

// InstanceCount returns the number of distinct instances seen.
func (t *TypeRecord) InstanceCount() uint64 { return t.count }

// TotalInstanceSize returns the summed size of distinct instances.
func (t *TypeRecord) TotalInstanceSize() uint64 { return t.totalSize }

// Instances returns the instance addresses in discovery order.
func (t *TypeRecord) Instances() []uint64 { return t.order }

// Contains reports whether address was already recorded.
func (t *TypeRecord) Contains(address uint64) bool {
	_, ok := t.instances[address]
	return ok
}

// AddInstance records one instance. Re-adding an address changes nothing;
// count and size update only on first insertion.
func (t *TypeRecord) AddInstance(address, size uint64) {
	if _, ok := t.instances[address]; ok {
		return
	}
	t.instances[address] = struct{}{}
	t.order = append(t.order, address)
	t.count++
	t.totalSize += size
}

// DetailedTypeRecord is a TypeRecord keyed by type name plus property
// signature. Descriptor and indexed-property counts are captured once, at
// first sight of the signature.
type DetailedTypeRecord struct {
	TypeRecord
	ownDescriptors    uint64
	indexedProperties uint64
}

// NewDetailedTypeRecord creates a detailed record.
func NewDetailedTypeRecord(typeName string, ownDescriptors, indexedProperties uint64) *DetailedTypeRecord {
	return &DetailedTypeRecord{
		TypeRecord:        *NewTypeRecord(typeName),
		ownDescriptors:    ownDescriptors,
		indexedProperties: indexedProperties,
	}
}

// OwnDescriptorsCount returns the descriptor count captured at first sight.
func (d *DetailedTypeRecord) OwnDescriptorsCount() uint64 { return d.ownDescriptors }

// IndexedPropertiesCount returns the element count captured at first sight.
func (d *DetailedTypeRecord) IndexedPropertiesCount() uint64 { return d.indexedProperties }

// CompareInstanceCounts orders records by instance count ascending, then
// total size, then type name. A strict weak order: reports reverse it for
// descending display.
func CompareInstanceCounts(a, b *TypeRecord) bool {
	if a.count == b.count {
		if a.totalSize == b.totalSize {
			return a.typeName < b.typeName
		}
		return a.totalSize < b.totalSize
	}
	return a.count < b.count
}

// Signature renders a detailed histogram key: the type name, the indexed
// element count in brackets, and the own-property names.
// maxProperties 0 means unlimited; showLength toggles the bracket suffix.
func Signature(typeName string, indexedCount uint64, properties []string, showLength bool, maxProperties int) string {
	var b strings.Builder
	b.WriteString(typeName)

	if showLength {
		b.WriteByte('[')
		b.WriteString(strconv.FormatUint(indexedCount, 10))
		b.WriteByte(']')
	}

	limit := len(properties)
	if maxProperties > 0 && maxProperties < limit {
		limit = maxProperties
	}
	for i := 0; i < limit; i++ {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(properties[i])
	}
	if limit < len(properties) {
		b.WriteString(", ...")
	}
	return b.String()
}

// Map holds TypeRecords keyed by type name, iterable in first-seen order.
type Map struct {
	records *orderedmap.OrderedMap[string, *TypeRecord]
}

// NewMap creates an empty histogram map.
func NewMap() *Map {
	return &Map{records: orderedmap.NewOrderedMap[string, *TypeRecord]()}
}

// Get returns the record for typeName, creating it if absent.
func (m *Map) Get(typeName string) *TypeRecord {
	if t, ok := m.records.Get(typeName); ok {
		return t
	}
	t := NewTypeRecord(typeName)
	m.records.Set(typeName, t)
	return t
}

// Lookup returns the record for typeName without creating it.
func (m *Map) Lookup(typeName string) (*TypeRecord, bool) {
	return m.records.Get(typeName)
}

// Len returns the number of distinct type names.
func (m *Map) Len() int { return m.records.Len() }

// Records returns all records sorted by CompareInstanceCounts.
func (m *Map) Records() []*TypeRecord {
	out := make([]*TypeRecord, 0, m.records.Len())
	for el := m.records.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareInstanceCounts(out[i], out[j])
	})
	return out
}

// Each walks the records in first-seen order.
func (m *Map) Each(fn func(*TypeRecord)) {
	for el := m.records.Front(); el != nil; el = el.Next() {
		fn(el.Value)
	}
}

// Clear drops every record.
func (m *Map) Clear() {
	m.records = orderedmap.NewOrderedMap[string, *TypeRecord]()
}

// DetailedMap holds DetailedTypeRecords keyed by full signature.
type DetailedMap struct {
	records *orderedmap.OrderedMap[string, *DetailedTypeRecord]
}

// NewDetailedMap creates an empty detailed histogram map.
func NewDetailedMap() *DetailedMap {
	return &DetailedMap{records: orderedmap.NewOrderedMap[string, *DetailedTypeRecord]()}
}

// Get returns the record for the full signature key, creating it with
// create() if absent.
func (m *DetailedMap) Get(key string, create func() *DetailedTypeRecord) *DetailedTypeRecord {
	if t, ok := m.records.Get(key); ok {
		return t
	}
	t := create()
	m.records.Set(key, t)
	return t
}

// Len returns the number of distinct signatures.
func (m *DetailedMap) Len() int { return m.records.Len() }

// Records returns all records sorted by CompareInstanceCounts.
func (m *DetailedMap) Records() []*DetailedTypeRecord {
	out := make([]*DetailedTypeRecord, 0, m.records.Len())
	for el := m.records.Front(); el != nil; el = el.Next() {
		out = append(out, el.Value)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return CompareInstanceCounts(&out[i].TypeRecord, &out[j].TypeRecord)
	})
	return out
}

// Clear drops every record.
func (m *DetailedMap) Clear() {
	m.records = orderedmap.NewOrderedMap[string, *DetailedTypeRecord]()
}
