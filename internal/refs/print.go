package refs

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"

	"github.com/heaplift/heaplift/internal/objmodel"
	"github.com/heaplift/heaplift/internal/scan"
)

// Printer renders reference query results, one referrer relation per
// line.
type Printer struct {
	s       *scan.Session
	w       io.Writer
	colored bool
}

// NewPrinter creates a printer writing to w.
func NewPrinter(s *scan.Session, w io.Writer, colored bool) *Printer {
	return &Printer{s: s, w: w, colored: colored}
}

func (p *Printer) addr(a uint64) string {
	s := fmt.Sprintf("0x%x", a)
	if p.colored {
		return color.Cyan.Sprint(s)
	}
	return s
}

func (p *Printer) typeName(obj uint64) string {
	name, err := p.s.Model().TypeName(obj)
	if err != nil {
		return "???"
	}
	return name
}

// PrintValueRefs prints every referrer of the tagged word search. With
// recursive set, referrers of referrers follow, indented, each object
// expanded at most once.
func (p *Printer) PrintValueRefs(search uint64, recursive bool) error {
	scanner := NewValueScanner(p.s, search)
	if err := EnsureIndexed(p.s, scanner); err != nil {
		return err
	}
	if !recursive {
		for _, owner := range scanner.References() {
			for _, line := range p.ownerValueLines(owner, search) {
				fmt.Fprintln(p.w, line)
			}
		}
		return nil
	}
	p.printValueRecursive(search, 0, map[uint64]struct{}{search: {}})
	return nil
}

// printValueRecursive expands referrers depth first. The visited set is
// shared across the whole traversal, so every object is expanded at
// most once no matter how many paths reach it; any re-encounter prints
// its relation line marked "(seen above)".
func (p *Printer) printValueRecursive(search uint64, depth int, visited map[uint64]struct{}) {
	indent := strings.Repeat("  ", depth)
	for _, owner := range p.s.ValueRefs(search).Owners() {
		lines := p.ownerValueLines(owner, search)
		_, seen := visited[owner]
		for i, line := range lines {
			if seen && i == 0 {
				line += " (seen above)"
			}
			fmt.Fprintln(p.w, indent+line)
		}
		if seen {
			continue
		}
		visited[owner] = struct{}{}
		p.printValueRecursive(owner, depth+1, visited)
	}
}

// ownerValueLines renders every relation through which owner holds
// search.
func (p *Printer) ownerValueLines(owner, search uint64) []string {
	model := p.s.Model()
	name := p.typeName(owner)
	var lines []string

	tag, err := model.TypeOf(owner)
	if err != nil {
		return nil
	}

	switch {
	case tag.IsString():
		for _, part := range stringComponents(model, owner) {
			if part.word == search {
				lines = append(lines, fmt.Sprintf("%s: %s<%s>=%s",
					p.addr(owner), name, part.relation, p.addr(search)))
			}
		}

	case tag == objmodel.TagContext:
		locals, err := model.ContextLocals(owner)
		if err != nil {
			return nil
		}
		for _, l := range locals {
			if l.Value == search {
				lines = append(lines, fmt.Sprintf("%s: %s.%s=%s",
					p.addr(owner), name, l.Name, p.addr(search)))
			}
		}

	default:
		if length, err := model.ArrayLength(owner); err == nil {
			for i := int64(0); i < length; i++ {
				word, err := model.ArrayElement(owner, i)
				if err == nil && word == search {
					lines = append(lines, fmt.Sprintf("%s: %s[%d]=%s",
						p.addr(owner), name, i, p.addr(search)))
				}
			}
		}
		if entries, err := model.Entries(owner); err == nil {
			for _, e := range entries {
				if e.Value == search {
					lines = append(lines, fmt.Sprintf("%s: %s.%s=%s",
						p.addr(owner), name, e.Key, p.addr(search)))
				}
			}
		}
	}
	return lines
}

// PrintPropertyRefs prints every object owning a property named name,
// with the property's current value.
func (p *Printer) PrintPropertyRefs(name string) error {
	scanner := NewPropertyScanner(p.s, name)
	if err := EnsureIndexed(p.s, scanner); err != nil {
		return err
	}
	model := p.s.Model()
	for _, owner := range scanner.References() {
		entries, err := model.Entries(owner)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.Key != name {
				continue
			}
			fmt.Fprintf(p.w, "%s: %s.%s=%s\n",
				p.addr(owner), p.typeName(owner), name, p.value(e.Value))
		}
	}
	return nil
}

// PrintStringRefs prints every object or composite string referencing a
// string reading content.
func (p *Printer) PrintStringRefs(content string) error {
	scanner := NewStringScanner(p.s, content)
	if err := EnsureIndexed(p.s, scanner); err != nil {
		return err
	}
	model := p.s.Model()

	matches := func(word uint64) bool {
		tag, err := model.TypeOf(word)
		if err != nil || !tag.IsString() {
			return false
		}
		got, err := model.StringValue(word)
		return err == nil && got == content
	}

	for _, owner := range scanner.References() {
		name := p.typeName(owner)
		tag, err := model.TypeOf(owner)
		if err != nil {
			continue
		}

		if tag.IsString() {
			for _, part := range stringComponents(model, owner) {
				if matches(part.word) {
					fmt.Fprintf(p.w, "%s: %s<%s>=%s %q\n",
						p.addr(owner), name, part.relation, p.addr(part.word), content)
				}
			}
			continue
		}

		if length, err := model.ArrayLength(owner); err == nil {
			for i := int64(0); i < length; i++ {
				word, err := model.ArrayElement(owner, i)
				if err == nil && matches(word) {
					fmt.Fprintf(p.w, "%s: %s[%d]=%s %q\n",
						p.addr(owner), name, i, p.addr(word), content)
				}
			}
		}
		if entries, err := model.Entries(owner); err == nil {
			for _, e := range entries {
				if matches(e.Value) {
					fmt.Fprintf(p.w, "%s: %s.%s=%s %q\n",
						p.addr(owner), name, e.Key, p.addr(e.Value), content)
				}
			}
		}
	}
	return nil
}

// value renders a tagged word for display: small integers inline,
// pointers as addresses.
func (p *Printer) value(word uint64) string {
	model := p.s.Model()
	if model.IsSmallInt(word) {
		return fmt.Sprintf("%d", model.SmallIntValue(word))
	}
	return p.addr(word)
}
