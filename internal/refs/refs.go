// Package refs builds and queries the lazy reverse-reference indices of
// a scan session: owners by referenced value, by property name, and by
// string content. Each index is populated in a single pass over every
// discovered heap object, on first demand, and then reused until the
// session is invalidated.
package refs

import (
	"github.com/heaplift/heaplift/internal/objmodel"
	"github.com/heaplift/heaplift/internal/scan"
)

// ObjectScanner is one reference-index strategy. The Scan methods feed
// the session index during the build pass; the References method answers
// the query the scanner was created for.
type ObjectScanner interface {
	// ScanObject records the index entries contributed by one
	// non-string heap object.
	ScanObject(owner uint64)
	// ScanString records the entries contributed by one string.
	ScanString(owner uint64)
	// ScanContext records the entries contributed by one closure
	// context.
	ScanContext(owner uint64)
	// Loaded reports whether this scanner's session index was built.
	Loaded() bool
	// MarkLoaded records the index as built.
	MarkLoaded()
	// References returns the owners matching the scanner's query, in
	// discovery order.
	References() []uint64
}

// EnsureIndexed builds the scanner's index if it has not been built for
// this session yet. The pass covers every histogram instance plus every
// discovered context.
func EnsureIndexed(s *scan.Session, scanner ObjectScanner) error {
	if err := s.EnsureScanned(); err != nil {
		return err
	}
	if scanner.Loaded() {
		return nil
	}

	model := s.Model()
	for _, rec := range s.Types().Records() {
		for _, owner := range rec.Instances() {
			tag, err := model.TypeOf(owner)
			if err != nil {
				continue
			}
			if tag.IsString() {
				scanner.ScanString(owner)
			} else {
				scanner.ScanObject(owner)
			}
		}
	}
	for _, ctx := range s.Contexts() {
		scanner.ScanContext(ctx)
	}

	scanner.MarkLoaded()
	return nil
}

// interesting reports whether word is worth indexing as a reference
// target. Small integers and holes are data, not references.
func interesting(model objmodel.Model, word uint64) bool {
	return !model.IsSmallInt(word) && !model.IsHole(word) && model.IsHeapObject(word)
}

// ValueScanner indexes owners by the tagged words they hold.
type ValueScanner struct {
	s      *scan.Session
	search uint64
}

// NewValueScanner creates a scanner answering "who points at search".
func NewValueScanner(s *scan.Session, search uint64) *ValueScanner {
	return &ValueScanner{s: s, search: search}
}

func (v *ValueScanner) ScanObject(owner uint64) {
	model := v.s.Model()
	saved := map[uint64]struct{}{}

	length, err := model.ArrayLength(owner)
	if err == nil {
		for i := int64(0); i < length; i++ {
			word, err := model.ArrayElement(owner, i)
			if err != nil || !interesting(model, word) {
				continue
			}
			if _, dup := saved[word]; dup {
				continue
			}
			saved[word] = struct{}{}
			v.s.ValueRefs(word).Append(owner)
		}
	}

	entries, err := model.Entries(owner)
	if err != nil {
		return
	}
	for _, e := range entries {
		if !interesting(model, e.Value) {
			continue
		}
		if _, dup := saved[e.Value]; dup {
			continue
		}
		saved[e.Value] = struct{}{}
		v.s.ValueRefs(e.Value).Append(owner)
	}
}

func (v *ValueScanner) ScanString(owner uint64) {
	model := v.s.Model()
	saved := map[uint64]struct{}{}
	for _, part := range stringComponents(model, owner) {
		if _, dup := saved[part.word]; dup {
			continue
		}
		saved[part.word] = struct{}{}
		v.s.ValueRefs(part.word).Append(owner)
	}
}

func (v *ValueScanner) ScanContext(owner uint64) {
	model := v.s.Model()
	locals, err := model.ContextLocals(owner)
	if err != nil {
		return
	}
	saved := map[uint64]struct{}{}
	for _, l := range locals {
		if !interesting(model, l.Value) {
			continue
		}
		if _, dup := saved[l.Value]; dup {
			continue
		}
		saved[l.Value] = struct{}{}
		v.s.ValueRefs(l.Value).Append(owner)
	}
}

func (v *ValueScanner) Loaded() bool { return v.s.ValueRefsLoaded() }
func (v *ValueScanner) MarkLoaded() { v.s.MarkValueRefsLoaded() }
func (v *ValueScanner) References() []uint64 { return v.s.ValueRefs(v.search).Owners() }

// PropertyScanner indexes owners by own-property name.
type PropertyScanner struct {
	s    *scan.Session
	name string
}

// NewPropertyScanner creates a scanner answering "who has a property
// named name".
func NewPropertyScanner(s *scan.Session, name string) *PropertyScanner {
	return &PropertyScanner{s: s, name: name}
}

func (p *PropertyScanner) ScanObject(owner uint64) {
	entries, err := p.s.Model().Entries(owner)
	if err != nil {
		return
	}
	saved := map[string]struct{}{}
	for _, e := range entries {
		if _, dup := saved[e.Key]; dup {
			continue
		}
		saved[e.Key] = struct{}{}
		p.s.PropertyRefs(e.Key).Append(owner)
	}
}

// ScanString is a no-op: strings have no named own properties.
func (p *PropertyScanner) ScanString(owner uint64) {}

// ScanContext is a no-op: context locals are scope slots, not
// properties.
func (p *PropertyScanner) ScanContext(owner uint64) {}

func (p *PropertyScanner) Loaded() bool { return p.s.PropertyRefsLoaded() }
func (p *PropertyScanner) MarkLoaded() { p.s.MarkPropertyRefsLoaded() }
func (p *PropertyScanner) References() []uint64 { return p.s.PropertyRefs(p.name).Owners() }

// StringScanner indexes owners by the content of the strings they hold.
type StringScanner struct {
	s       *scan.Session
	content string
}

// NewStringScanner creates a scanner answering "who references a string
// reading content".
func NewStringScanner(s *scan.Session, content string) *StringScanner {
	return &StringScanner{s: s, content: content}
}

func (sc *StringScanner) ScanObject(owner uint64) {
	model := sc.s.Model()
	saved := map[string]struct{}{}

	record := func(word uint64) {
		if !interesting(model, word) {
			return
		}
		tag, err := model.TypeOf(word)
		if err != nil || !tag.IsString() {
			return
		}
		content, err := model.StringValue(word)
		if err != nil {
			return
		}
		if _, dup := saved[content]; dup {
			return
		}
		saved[content] = struct{}{}
		sc.s.StringRefs(content).Append(owner)
	}

	length, err := model.ArrayLength(owner)
	if err == nil {
		for i := int64(0); i < length; i++ {
			if word, err := model.ArrayElement(owner, i); err == nil {
				record(word)
			}
		}
	}
	if entries, err := model.Entries(owner); err == nil {
		for _, e := range entries {
			record(e.Value)
		}
	}
}

func (sc *StringScanner) ScanString(owner uint64) {
	model := sc.s.Model()
	saved := map[string]struct{}{}
	for _, part := range stringComponents(model, owner) {
		content, err := model.StringValue(part.word)
		if err != nil {
			continue
		}
		if _, dup := saved[content]; dup {
			continue
		}
		saved[content] = struct{}{}
		sc.s.StringRefs(content).Append(owner)
	}
}

// ScanContext is a no-op: locals are indexed by value, not content.
func (sc *StringScanner) ScanContext(owner uint64) {}

func (sc *StringScanner) Loaded() bool { return sc.s.StringRefsLoaded() }
func (sc *StringScanner) MarkLoaded() { sc.s.MarkStringRefsLoaded() }
func (sc *StringScanner) References() []uint64 { return sc.s.StringRefs(sc.content).Owners() }

// component is one structural part of a composite string.
type component struct {
	relation string
	word     uint64
}

// stringComponents lists the child strings of a composite string. Flat
// strings have none.
func stringComponents(model objmodel.Model, str uint64) []component {
	tag, err := model.TypeOf(str)
	if err != nil {
		return nil
	}
	var out []component
	switch tag {
	case objmodel.TagConsString:
		if w, err := model.StringFirst(str); err == nil {
			out = append(out, component{relation: "First", word: w})
		}
		if w, err := model.StringSecond(str); err == nil {
			out = append(out, component{relation: "Second", word: w})
		}
	case objmodel.TagSlicedString:
		if w, err := model.StringParent(str); err == nil {
			out = append(out, component{relation: "Parent", word: w})
		}
	case objmodel.TagThinString:
		if w, err := model.StringActual(str); err == nil {
			out = append(out, component{relation: "Actual", word: w})
		}
	}
	return out
}
