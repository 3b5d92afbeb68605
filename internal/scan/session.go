// Package scan drives the brute-force discovery of managed heap objects
// in a memory image and owns all per-image cached analysis state: the
// type histograms, the discovered context list, and the three reverse
// reference indices. A Session is invalidated as a whole when the
// underlying image identity changes.
package scan

import (
	"time"

	orderedmap "github.com/elliotchance/orderedmap/v2"

	"github.com/heaplift/heaplift/internal/histogram"
	"github.com/heaplift/heaplift/internal/image"
	"github.com/heaplift/heaplift/internal/logger"
	"github.com/heaplift/heaplift/internal/objmodel"
)

// Vector accumulates the owners referencing one index key, in discovery
// order. Deduplication is the responsibility of the scanners filling it.
type Vector struct {
	owners []uint64
}

// Append records one owner.
func (v *Vector) Append(owner uint64) { v.owners = append(v.owners, owner) }

// Owners returns the recorded owners in discovery order.
func (v *Vector) Owners() []uint64 { return v.owners }

// Len returns the number of recorded owners.
func (v *Vector) Len() int { return len(v.owners) }

// Options tunes a scan session.
type Options struct {
	// BlockSize is the bulk-read size in bytes. 0 selects one MiB per
	// address byte.
	BlockSize int64
	// IncludeReadOnly scans non-writable regions as well.
	IncludeReadOnly bool
	// SignatureProperties caps the property names in a detailed type
	// signature. 0 selects the default of histogram.SignatureProperties.
	SignatureProperties int
}

// Session holds everything derived from scanning one image.
type Session struct {
	log   *logger.Logger
	img   image.Image
	model objmodel.Model
	opts  Options

	identity string

	types    *histogram.Map
	detailed *histogram.DetailedMap

	contexts   []uint64
	contextSet map[uint64]struct{}

	refsByValue    *orderedmap.OrderedMap[uint64, *Vector]
	refsByProperty *orderedmap.OrderedMap[string, *Vector]
	refsByString   *orderedmap.OrderedMap[string, *Vector]

	valueRefsLoaded    bool
	propertyRefsLoaded bool
	stringRefsLoaded   bool
}

// NewSession creates an empty session over img.
func NewSession(img image.Image, model objmodel.Model, log *logger.Logger, opts Options) *Session {
	if opts.SignatureProperties <= 0 {
		opts.SignatureProperties = histogram.SignatureProperties
	}
	s := &Session{
		log:   log,
		img:   img,
		model: model,
		opts:  opts,
	}
	s.reset()
	return s
}

func (s *Session) reset() {
	s.types = histogram.NewMap()
	s.detailed = histogram.NewDetailedMap()
	s.contexts = nil
	s.contextSet = map[uint64]struct{}{}
	s.refsByValue = orderedmap.NewOrderedMap[uint64, *Vector]()
	s.refsByProperty = orderedmap.NewOrderedMap[string, *Vector]()
	s.refsByString = orderedmap.NewOrderedMap[string, *Vector]()
	s.valueRefsLoaded = false
	s.propertyRefsLoaded = false
	s.stringRefsLoaded = false
}

// Image returns the session's memory image.
func (s *Session) Image() image.Image { return s.img }

// Model returns the session's object model.
func (s *Session) Model() objmodel.Model { return s.model }

// Log returns the session's logger.
func (s *Session) Log() *logger.Logger { return s.log }

// SignatureProperties returns the configured detailed-signature cap.
func (s *Session) SignatureProperties() int { return s.opts.SignatureProperties }

// Types returns the per-type histogram.
func (s *Session) Types() *histogram.Map { return s.types }

// Detailed returns the per-signature histogram.
func (s *Session) Detailed() *histogram.DetailedMap { return s.detailed }

// Contexts returns the discovered closure contexts in discovery order.
func (s *Session) Contexts() []uint64 { return s.contexts }

func (s *Session) addContext(ctx uint64) {
	if _, dup := s.contextSet[ctx]; dup {
		return
	}
	s.contextSet[ctx] = struct{}{}
	s.contexts = append(s.contexts, ctx)
}

// ValueRefs returns the owners index entry for the tagged word key,
// creating an empty one on first use.
func (s *Session) ValueRefs(key uint64) *Vector {
	if v, ok := s.refsByValue.Get(key); ok {
		return v
	}
	v := &Vector{}
	s.refsByValue.Set(key, v)
	return v
}

// HasValueRefs reports whether key has an index entry, without creating
// one.
func (s *Session) HasValueRefs(key uint64) bool {
	_, ok := s.refsByValue.Get(key)
	return ok
}

// PropertyRefs returns the owners index entry for a property name.
func (s *Session) PropertyRefs(name string) *Vector {
	if v, ok := s.refsByProperty.Get(name); ok {
		return v
	}
	v := &Vector{}
	s.refsByProperty.Set(name, v)
	return v
}

// StringRefs returns the owners index entry for string content.
func (s *Session) StringRefs(content string) *Vector {
	if v, ok := s.refsByString.Get(content); ok {
		return v
	}
	v := &Vector{}
	s.refsByString.Set(content, v)
	return v
}

// ValueRefsLoaded reports whether the by-value index has been built.
func (s *Session) ValueRefsLoaded() bool { return s.valueRefsLoaded }

// MarkValueRefsLoaded records that the by-value index is complete.
func (s *Session) MarkValueRefsLoaded() { s.valueRefsLoaded = true }

// PropertyRefsLoaded reports whether the by-property index has been built.
func (s *Session) PropertyRefsLoaded() bool { return s.propertyRefsLoaded }

// MarkPropertyRefsLoaded records that the by-property index is complete.
func (s *Session) MarkPropertyRefsLoaded() { s.propertyRefsLoaded = true }

// StringRefsLoaded reports whether the by-string index has been built.
func (s *Session) StringRefsLoaded() bool { return s.stringRefsLoaded }

// MarkStringRefsLoaded records that the by-string index is complete.
func (s *Session) MarkStringRefsLoaded() { s.stringRefsLoaded = true }

// EnsureScanned makes sure the histograms are populated, running the
// brute-force scan at most once per image identity. A change in image
// identity discards every piece of cached state, reference indices
// included.
func (s *Session) EnsureScanned() error {
	if id := s.img.Identity(); id != s.identity {
		if s.identity != "" {
			s.log.Infow("image identity changed, discarding cached scan state",
				"previous", s.identity, "current", id)
		}
		s.reset()
		s.identity = id
	}

	if s.types.Len() > 0 {
		return nil
	}

	start := time.Now()
	visitor := newVisitor(s)
	scanner := &Scanner{
		img:             s.img,
		log:             s.log,
		blockSize:       s.opts.BlockSize,
		includeReadOnly: s.opts.IncludeReadOnly,
	}
	if err := scanner.Run(visitor); err != nil {
		return err
	}

	s.log.Infow("heap scan complete",
		"objects", visitor.found,
		"types", s.types.Len(),
		"contexts", len(s.contexts),
		"elapsed", time.Since(start))

	if visitor.found == 0 {
		s.log.Warn("no managed heap objects found in image")
	}
	return nil
}
