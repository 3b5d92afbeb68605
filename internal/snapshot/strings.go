package snapshot

// stringTable interns names and property keys. Ids are one-based; the
// serializer prepends a dummy entry so an id indexes the serialized
// strings array directly.
type stringTable struct {
	strings []string
	index   map[string]uint64
}

func newStringTable() *stringTable {
	return &stringTable{index: map[string]uint64{}}
}

// ID returns the id for s, adding it on first use.
func (t *stringTable) ID(s string) uint64 {
	if id, ok := t.index[s]; ok {
		return id
	}
	t.strings = append(t.strings, s)
	id := uint64(len(t.strings))
	t.index[s] = id
	return id
}

// All returns the interned strings in id order.
func (t *stringTable) All() []string { return t.strings }

// Len returns the number of interned strings.
func (t *stringTable) Len() int { return len(t.strings) }
