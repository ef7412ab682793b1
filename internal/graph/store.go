package graph

import (
	"fmt"
	"sort"
	"strings"

	"kabimap/util"
)

// Store is a checksum-keyed declaration graph. It is not safe for concurrent
// mutation; a loaded store is read-only and may be shared by readers.
type Store struct {
	decls    map[Key]*Decl
	index    map[int]int // occurrence order -> position in its decl's Siblings
	root     Link
	maxOrder int
	starts   []int // first order of each merged-in segment, ascending
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		decls: make(map[Key]*Decl),
		index: make(map[int]int),
	}
}

// KeyOf returns the identity key of a declaration text.
func KeyOf(text string) Key {
	return Key(util.Checksum(text))
}

// Len returns the number of distinct declarations.
func (s *Store) Len() int { return len(s.decls) }

// Occurrences returns the total number of occurrences across all declarations.
func (s *Store) Occurrences() int { return len(s.index) }

// MaxOrder returns the highest discovery order in the store.
func (s *Store) MaxOrder() int { return s.maxOrder }

// Root returns the link of the file root, or a null link.
func (s *Store) Root() Link { return s.root }

// Segment returns the index of the merged segment an order belongs to.
// A store that was never merged has a single segment 0.
func (s *Store) Segment(order int) int {
	return sort.SearchInts(s.starts, order+1)
}

// SegmentStarts returns the first order of every segment after the first.
func (s *Store) SegmentStarts() []int {
	return append([]int(nil), s.starts...)
}

// SetSegmentStarts restores segment boundaries when rebuilding a store.
func (s *Store) SetSegmentStarts(starts []int) {
	s.starts = append([]int(nil), starts...)
	sort.Ints(s.starts)
}

// Lookup returns the declaration with the given key.
func (s *Store) Lookup(key Key) (*Decl, bool) {
	d, ok := s.decls[key]
	return d, ok
}

// Find returns the declaration whose text equals decl.
func (s *Store) Find(decl string) (*Decl, bool) {
	return s.Lookup(KeyOf(decl))
}

// Keys returns every declaration key in ascending order.
func (s *Store) Keys() []Key {
	keys := make([]Key, 0, len(s.decls))
	for k := range s.decls {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Match returns every declaration whose text contains substr, in key order.
func (s *Store) Match(substr string) []*Decl {
	var out []*Decl
	for _, k := range s.Keys() {
		d := s.decls[k]
		if strings.Contains(d.Text, substr) {
			out = append(out, d)
		}
	}
	return out
}

// Occurrence resolves a link to the occurrence it addresses.
func (s *Store) Occurrence(l Link) (Occurrence, bool) {
	d, ok := s.decls[l.Key]
	if !ok {
		return Occurrence{}, false
	}
	if i, ok := s.index[l.Order]; ok && i < len(d.Siblings) && d.Siblings[i].Order == l.Order {
		return d.Siblings[i], true
	}
	for _, o := range d.Siblings {
		if o.Order == l.Order {
			return o, true
		}
	}
	return Occurrence{}, false
}

// Parent returns the immediate container of o.
func (s *Store) Parent(o Occurrence) (Occurrence, bool) {
	if o.Parent.IsNull() {
		return Occurrence{}, false
	}
	return s.Occurrence(o.Parent)
}

// Add places a declaration in the store, replacing any previous one with the
// same key. Occurrence orders are indexed as-is. Used when rebuilding a store.
func (s *Store) Add(d *Decl) {
	s.decls[d.Key] = d
	s.reindex(d)
}

// SetRoot records the file root link.
func (s *Store) SetRoot(l Link) { s.root = l }

func (s *Store) reindex(d *Decl) {
	for i, o := range d.Siblings {
		s.index[o.Order] = i
		if o.Order > s.maxOrder {
			s.maxOrder = o.Order
		}
		if o.Role == RoleFile && s.root.IsNull() {
			s.root = o.Link()
		}
	}
}

func (s *Store) appendSibling(d *Decl, o Occurrence) {
	d.Siblings = append(d.Siblings, o)
	s.index[o.Order] = len(d.Siblings) - 1
	if o.Order > s.maxOrder {
		s.maxOrder = o.Order
	}
}

// Merge adds every declaration of other into s. Orders from other are shifted
// past s's highest order so links from one store never address occurrences of
// the other. Declarations present in both get their siblings and children
// appended; Segment tells the two apart again. other must not be used
// afterwards.
func (s *Store) Merge(other *Store) {
	offset := s.maxOrder
	if offset > 0 && other.maxOrder > 0 {
		s.starts = append(s.starts, offset+1)
	}
	for _, st := range other.starts {
		s.starts = append(s.starts, st+offset)
	}
	shift := func(l Link) Link {
		if l.IsNull() {
			return l
		}
		l.Order += offset
		return l
	}

	for _, k := range other.Keys() {
		od := other.decls[k]
		d, exists := s.decls[k]
		if !exists {
			d = &Decl{Key: od.Key, Text: od.Text, Flags: od.Flags}
			s.decls[k] = d
		}
		for _, o := range od.Siblings {
			o.Order += offset
			o.Parent = shift(o.Parent)
			s.appendSibling(d, o)
		}
		for _, c := range od.Children {
			d.Children = append(d.Children, shift(c))
		}
	}
	if s.root.IsNull() {
		s.root = shift(other.root)
	}
}

// Validate checks that every child and parent link resolves.
func (s *Store) Validate() error {
	for _, k := range s.Keys() {
		d := s.decls[k]
		for _, c := range d.Children {
			if _, ok := s.Occurrence(c); !ok {
				return fmt.Errorf("decl %08x %q: dangling child %08x/%d", uint32(k), d.Text, uint32(c.Key), c.Order)
			}
		}
		for _, o := range d.Siblings {
			if o.Key != k {
				return fmt.Errorf("decl %08x %q: occurrence %d owned by %08x", uint32(k), d.Text, o.Order, uint32(o.Key))
			}
			if !o.Parent.IsNull() {
				if _, ok := s.Occurrence(o.Parent); !ok {
					return fmt.Errorf("decl %08x %q: occurrence %d has dangling parent", uint32(k), d.Text, o.Order)
				}
			}
		}
	}
	return nil
}
