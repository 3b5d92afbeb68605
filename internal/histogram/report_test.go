package histogram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderSimple(t *testing.T) {
	m := NewMap()
	m.Get("Point").AddInstance(0x1001, 40)
	m.Get("Point").AddInstance(0x2001, 40)
	m.Get("String").AddInstance(0x3001, 16)

	var b strings.Builder
	RenderSimple(m, &b)
	out := b.String()

	assert.Contains(t, out, "Instances")
	assert.Contains(t, out, "Total Size")
	assert.Contains(t, out, "Point")
	assert.Contains(t, out, "String")

	// Most populous type first, totals last.
	pointLine := strings.Index(out, "Point")
	stringLine := strings.Index(out, "String")
	assert.Less(t, pointLine, stringLine)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	total := lines[len(lines)-1]
	assert.Contains(t, total, "3")
	assert.Contains(t, total, "96")
}

func TestRenderSimpleEmpty(t *testing.T) {
	var b strings.Builder
	RenderSimple(NewMap(), &b)
	out := b.String()

	assert.Contains(t, out, "Instances")
	assert.Contains(t, out, "0")
}

func TestRenderDetailed(t *testing.T) {
	m := NewDetailedMap()
	r := m.Get("Point: x, y", func() *DetailedTypeRecord {
		return NewDetailedTypeRecord("Point: x, y", 2, 0)
	})
	r.AddInstance(0xabc1, 40)
	r.AddInstance(0xdef1, 40)

	var b strings.Builder
	RenderDetailed(m, &b)
	out := b.String()

	assert.Contains(t, out, "Sample Obj.")
	assert.Contains(t, out, "Properties")
	assert.Contains(t, out, "Elements")
	assert.Contains(t, out, "Point: x, y")
	// The sample column shows the first discovered instance in hex.
	assert.Contains(t, out, "abc1")
}
