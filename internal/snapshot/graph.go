// Package snapshot exports the scanned heap as a V8 heap-snapshot JSON
// document loadable by devtools-style viewers. The graph covers every
// histogram instance; element and property slots become edges where the
// target is itself a discovered object.
package snapshot

import (
	"github.com/heaplift/heaplift/internal/objmodel"
	"github.com/heaplift/heaplift/internal/refs"
	"github.com/heaplift/heaplift/internal/scan"
)

// Node types, matching the node_types table in the serialized meta
// block.
type nodeType int

const (
	typeHidden       nodeType = 0
	typeArray        nodeType = 1
	typeString       nodeType = 2
	typeObject       nodeType = 3
	typeCode         nodeType = 4
	typeClosure      nodeType = 5
	typeRegExp       nodeType = 6
	typeHeapNumber   nodeType = 7
	typeNative       nodeType = 8
	typeSynthetic    nodeType = 9
	typeConsString   nodeType = 10
	typeSlicedString nodeType = 11

	typeInvalid nodeType = -1
)

// Edge types, matching the edge_types table.
type edgeType int

const (
	edgeContext  edgeType = 0
	edgeElement  edgeType = 1
	edgeProperty edgeType = 2
	edgeInternal edgeType = 3
	edgeHidden   edgeType = 4
	edgeShortcut edgeType = 5
	edgeWeak     edgeType = 6
)

// smiSelfSize is the reported self size of inline small integers.
const smiSelfSize = 4

// nodeFieldCount is the flattened width of one node row; edge targets
// are expressed as node ordinals scaled by it.
const nodeFieldCount = 6

type node struct {
	address     uint64
	typ         nodeType
	name        uint64 // string table id
	id          uint64
	size        uint64
	children    int
	traceNodeID uint64
}

type edge struct {
	typ         edgeType
	nameOrIndex uint64
	toAddress   uint64
	toNodeID    uint64
}

// Builder assembles the heap graph for one session.
type Builder struct {
	s       *scan.Session
	nodes   []node
	edges   []edge
	strings *stringTable
}

// NewBuilder creates a builder over s.
func NewBuilder(s *scan.Session) *Builder {
	return &Builder{s: s, strings: newStringTable()}
}

// NodeCount returns the number of graph nodes after Build.
func (b *Builder) NodeCount() int { return len(b.nodes) }

// EdgeCount returns the number of graph edges after Build.
func (b *Builder) EdgeCount() int { return len(b.edges) }

// Build scans the image if needed and assembles nodes and edges. Two
// synthetic nodes head the graph: the nameless snapshot root and the
// "(GC roots)" anchor. Node ids are odd and ascend by two.
func (b *Builder) Build() error {
	if err := b.s.EnsureScanned(); err != nil {
		return err
	}
	// Element edges are admitted only when the reverse reference index
	// confirms the owner, so the by-value index must exist up front.
	if err := refs.EnsureIndexed(b.s, refs.NewValueScanner(b.s, 0)); err != nil {
		return err
	}

	nextID := uint64(1)
	addSynthetic := func(name string) {
		b.nodes = append(b.nodes, node{
			typ:  typeSynthetic,
			name: b.strings.ID(name),
			id:   nextID,
		})
		nextID += 2
	}
	addSynthetic("")
	addSynthetic("(GC roots)")

	visited := map[uint64]int{} // address -> node index

	for _, rec := range b.s.Types().Records() {
		name := b.strings.ID(rec.TypeName())
		for _, addr := range rec.Instances() {
			if _, dup := visited[addr]; dup {
				continue
			}
			typ := b.instanceType(addr)
			if typ == typeInvalid {
				continue
			}
			size, ok := b.selfSize(addr)
			if !ok {
				continue
			}
			children, ok := b.collectEdges(addr)
			if !ok {
				continue
			}

			b.edges = append(b.edges, children...)
			b.nodes = append(b.nodes, node{
				address:  addr,
				typ:      typ,
				name:     name,
				id:       nextID,
				size:     size,
				children: len(children),
			})
			nextID += 2
			visited[addr] = len(b.nodes) - 1
		}
	}

	// Resolve edge targets. Unresolvable targets keep the snapshot
	// root's offset of zero.
	for i := range b.edges {
		idx, ok := visited[b.edges[i].toAddress]
		if !ok {
			b.edges[i].toNodeID = 0
			continue
		}
		b.edges[i].toNodeID = b.nodes[idx].id * nodeFieldCount
	}
	return nil
}

// instanceType maps a heap object to its snapshot node type.
func (b *Builder) instanceType(addr uint64) nodeType {
	tag, err := b.s.Model().TypeOf(addr)
	if err != nil {
		return typeInvalid
	}
	switch tag {
	case objmodel.TagCode:
		return typeCode
	case objmodel.TagClosure:
		return typeClosure
	case objmodel.TagRegExp:
		return typeRegExp
	case objmodel.TagObject:
		return typeObject
	case objmodel.TagHeapNumber:
		return typeHeapNumber
	case objmodel.TagConsString:
		return typeConsString
	case objmodel.TagSlicedString:
		return typeSlicedString
	case objmodel.TagSeqString, objmodel.TagThinString:
		return typeString
	case objmodel.TagArray, objmodel.TagTypedArray:
		return typeArray
	}
	return typeInvalid
}

// selfSize reports the node's own size: the sentinel for inline small
// integers, the map's instance size otherwise.
func (b *Builder) selfSize(word uint64) (uint64, bool) {
	model := b.s.Model()
	if model.IsSmallInt(word) {
		return smiSelfSize, true
	}
	m, err := model.ResolveMap(word)
	if err != nil {
		return 0, false
	}
	size, err := m.InstanceSize()
	if err != nil || size < 0 {
		return 0, false
	}
	return uint64(size), true
}

// edgeTarget reports whether word is an admissible edge target: a heap
// object that is neither sentinel, closure, nor oddball.
func (b *Builder) edgeTarget(word uint64) bool {
	model := b.s.Model()
	if model.IsHole(word) || model.IsSmallInt(word) || !model.IsHeapObject(word) {
		return false
	}
	tag, err := model.TypeOf(word)
	if err != nil {
		return false
	}
	return tag != objmodel.TagOddball && tag != objmodel.TagClosure
}

// collectEdges gathers the outgoing edges of one object. A failure to
// read the object's layout drops the node altogether.
func (b *Builder) collectEdges(owner uint64) ([]edge, bool) {
	model := b.s.Model()

	if _, err := model.ResolveMap(owner); err != nil {
		return nil, false
	}

	var out []edge

	// Indexed elements. An element edge needs the reverse reference
	// index to confirm the ownership, guarding against stale slots.
	if length, err := model.ArrayLength(owner); err == nil {
		for i := int64(0); i < length; i++ {
			word, err := model.ArrayElement(owner, i)
			if err != nil || !b.edgeTarget(word) {
				continue
			}
			if !b.ownerConfirmed(word, owner) {
				continue
			}
			out = append(out, edge{
				typ:         edgeElement,
				nameOrIndex: uint64(i),
				toAddress:   word,
			})
		}
	}

	// Named properties from field descriptors. Constants, accessors
	// and unboxed doubles carry no edge.
	m, err := model.ResolveMap(owner)
	if err != nil {
		return nil, false
	}
	count, err := m.OwnDescriptorCount()
	if err != nil {
		return out, true
	}
	inObj, err := m.InObjectProperties()
	if err != nil {
		return out, true
	}
	for i := int64(0); i < count; i++ {
		d, err := m.Descriptor(i)
		if err != nil {
			continue
		}
		if d.Kind != objmodel.KindField || d.Double {
			continue
		}
		rel := d.FieldIndex - inObj
		var word uint64
		if rel < 0 {
			word, err = model.InObjectField(owner, m, rel)
		} else {
			word, err = model.PropertyArrayField(owner, rel)
		}
		if err != nil || !b.edgeTarget(word) {
			continue
		}
		out = append(out, edge{
			typ:         edgeProperty,
			nameOrIndex: b.strings.ID(d.Key),
			toAddress:   word,
		})
	}
	return out, true
}

// ownerConfirmed checks the by-value index for an owner -> target
// record.
func (b *Builder) ownerConfirmed(target, owner uint64) bool {
	if !b.s.HasValueRefs(target) {
		return false
	}
	for _, o := range b.s.ValueRefs(target).Owners() {
		if o == owner {
			return true
		}
	}
	return false
}
