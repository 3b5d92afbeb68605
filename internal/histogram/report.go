package histogram

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"
)

// Column widths follow the classic findjsobjects layout.
const (
	countWidth  = 10
	sizeWidth   = 11
	sampleWidth = 13
	propsWidth  = 11
	elemsWidth  = 9
)

func pad(s string, width int) string {
	return runewidth.FillLeft(s, width)
}

func rule(width int) string {
	return strings.Repeat("-", width)
}

// RenderSimple writes the simple histogram table, most populous types
// last reversed to top, with the totals row at the bottom.
func RenderSimple(m *Map, w io.Writer) {
	records := m.Records()

	fmt.Fprintf(w, " %s %s Name\n", pad("Instances", countWidth), pad("Total Size", sizeWidth))
	fmt.Fprintf(w, " %s %s ----\n", rule(countWidth), rule(sizeWidth))

	var totalObjects, totalSize uint64
	// Descending display: reverse the ascending canonical order.
	for i := len(records) - 1; i >= 0; i-- {
		t := records[i]
		fmt.Fprintf(w, " %s %s %s\n",
			pad(strconv.FormatUint(t.InstanceCount(), 10), countWidth),
			pad(strconv.FormatUint(t.TotalInstanceSize(), 10), sizeWidth),
			t.TypeName())
		totalObjects += t.InstanceCount()
		totalSize += t.TotalInstanceSize()
	}

	fmt.Fprintf(w, " %s %s\n", rule(countWidth), rule(sizeWidth))
	fmt.Fprintf(w, " %s %s\n",
		pad(strconv.FormatUint(totalObjects, 10), countWidth),
		pad(strconv.FormatUint(totalSize, 10), sizeWidth))
}

// RenderDetailed writes the detailed histogram table including a sample
// instance address and the per-signature descriptor/element counts.
func RenderDetailed(m *DetailedMap, w io.Writer) {
	records := m.Records()

	fmt.Fprintf(w, " %s %s %s %s %s Name\n",
		pad("Sample Obj.", sampleWidth),
		pad("Instances", countWidth),
		pad("Total Size", sizeWidth),
		pad("Properties", propsWidth),
		pad("Elements", elemsWidth))
	fmt.Fprintf(w, " %s %s %s %s %s -----\n",
		rule(sampleWidth), rule(countWidth), rule(sizeWidth), rule(propsWidth), rule(elemsWidth))

	var totalObjects, totalSize uint64
	for i := len(records) - 1; i >= 0; i-- {
		t := records[i]
		sample := ""
		if inst := t.Instances(); len(inst) > 0 {
			sample = strconv.FormatUint(inst[0], 16)
		}
		fmt.Fprintf(w, " %s %s %s %s %s %s\n",
			pad(sample, sampleWidth),
			pad(strconv.FormatUint(t.InstanceCount(), 10), countWidth),
			pad(strconv.FormatUint(t.TotalInstanceSize(), 10), sizeWidth),
			pad(strconv.FormatUint(t.OwnDescriptorsCount(), 10), propsWidth),
			pad(strconv.FormatUint(t.IndexedPropertiesCount(), 10), elemsWidth),
			t.TypeName())
		totalObjects += t.InstanceCount()
		totalSize += t.TotalInstanceSize()
	}

	fmt.Fprintf(w, " %s %s %s %s %s\n",
		rule(sampleWidth), rule(countWidth), rule(sizeWidth), rule(propsWidth), rule(elemsWidth))
	fmt.Fprintf(w, " %s %s %s\n",
		pad("", sampleWidth),
		pad(strconv.FormatUint(totalObjects, 10), countWidth),
		pad(strconv.FormatUint(totalSize, 10), sizeWidth))
}
