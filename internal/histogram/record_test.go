package histogram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeRecordAddInstance(t *testing.T) {
	r := NewTypeRecord("Point")
	assert.Equal(t, "Point", r.TypeName())
	assert.Equal(t, uint64(0), r.InstanceCount())

	r.AddInstance(0x1001, 40)
	r.AddInstance(0x2001, 40)
	assert.Equal(t, uint64(2), r.InstanceCount())
	assert.Equal(t, uint64(80), r.TotalInstanceSize())
	assert.True(t, r.Contains(0x1001))
	assert.False(t, r.Contains(0x3001))

	// Re-adding an address changes nothing.
	r.AddInstance(0x1001, 40)
	assert.Equal(t, uint64(2), r.InstanceCount())
	assert.Equal(t, uint64(80), r.TotalInstanceSize())

	assert.Equal(t, []uint64{0x1001, 0x2001}, r.Instances())
}

func TestCompareInstanceCounts(t *testing.T) {
	byCount := NewTypeRecord("A")
	byCount.AddInstance(1, 8)
	moreByCount := NewTypeRecord("B")
	moreByCount.AddInstance(1, 8)
	moreByCount.AddInstance(2, 8)

	assert.True(t, CompareInstanceCounts(byCount, moreByCount))
	assert.False(t, CompareInstanceCounts(moreByCount, byCount))

	// Same count: size breaks the tie.
	small := NewTypeRecord("A")
	small.AddInstance(1, 8)
	big := NewTypeRecord("B")
	big.AddInstance(1, 16)
	assert.True(t, CompareInstanceCounts(small, big))

	// Same count and size: name ascending.
	first := NewTypeRecord("A")
	first.AddInstance(1, 8)
	second := NewTypeRecord("B")
	second.AddInstance(2, 8)
	assert.True(t, CompareInstanceCounts(first, second))
	assert.False(t, CompareInstanceCounts(second, first))
}

func TestSignature(t *testing.T) {
	tests := []struct {
		name       string
		typeName   string
		indexed    uint64
		props      []string
		showLength bool
		max        int
		want       string
	}{
		{
			name:     "bare type",
			typeName: "Object",
			want:     "Object",
		},
		{
			name:     "properties joined",
			typeName: "Point",
			props:    []string{"x", "y"},
			want:     "Point: x, y",
		},
		{
			name:     "capped properties",
			typeName: "Wide",
			props:    []string{"a", "b", "c", "d", "e"},
			max:      3,
			want:     "Wide: a, b, c, ...",
		},
		{
			name:       "length shown",
			typeName:   "Array",
			indexed:    12,
			showLength: true,
			want:       "Array[12]",
		},
		{
			name:     "zero max means unlimited",
			typeName: "Wide",
			props:    []string{"a", "b", "c", "d"},
			max:      0,
			want:     "Wide: a, b, c, d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Signature(tt.typeName, tt.indexed, tt.props, tt.showLength, tt.max)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMap(t *testing.T) {
	m := NewMap()
	assert.Equal(t, 0, m.Len())

	a := m.Get("A")
	assert.Same(t, a, m.Get("A"))
	assert.Equal(t, 1, m.Len())

	_, ok := m.Lookup("B")
	assert.False(t, ok)
	got, ok := m.Lookup("A")
	require.True(t, ok)
	assert.Same(t, a, got)

	m.Get("B").AddInstance(0x11, 8)
	m.Get("B").AddInstance(0x21, 8)
	a.AddInstance(0x31, 8)

	// Records come back in ascending canonical order.
	records := m.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "A", records[0].TypeName())
	assert.Equal(t, "B", records[1].TypeName())

	var seen []string
	m.Each(func(r *TypeRecord) { seen = append(seen, r.TypeName()) })
	assert.Equal(t, []string{"A", "B"}, seen)

	m.Clear()
	assert.Equal(t, 0, m.Len())
}

func TestDetailedMap(t *testing.T) {
	m := NewDetailedMap()

	created := 0
	create := func() *DetailedTypeRecord {
		created++
		return NewDetailedTypeRecord("Point: x, y", 2, 0)
	}

	r := m.Get("Point: x, y", create)
	assert.Same(t, r, m.Get("Point: x, y", create))
	assert.Equal(t, 1, created)
	assert.Equal(t, 1, m.Len())
	assert.Equal(t, uint64(2), r.OwnDescriptorsCount())
	assert.Equal(t, uint64(0), r.IndexedPropertiesCount())
}
