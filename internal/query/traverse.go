package query

import (
	"kabimap/internal/graph"
	"kabimap/internal/render"
)

// walker descends children edges, collecting one row per visited occurrence.
type walker struct {
	store   *graph.Store
	buf     render.Buffer
	root    graph.Key
	visited map[graph.Key]bool
}

func newWalker(s *graph.Store) *walker {
	return &walker{store: s, visited: make(map[graph.Key]bool)}
}

// start begins a walk below root with a fresh cycle-detection scope.
func (w *walker) start(root graph.Occurrence) {
	w.root = root.Key
	w.reset()
	w.descend(root)
}

// reset starts a new cycle-detection scope. The walk root stays visited.
func (w *walker) reset() {
	w.visited = map[graph.Key]bool{w.root: true}
}

func (w *walker) emit(o graph.Occurrence) {
	r := render.Row{Level: o.Level, Role: o.Role, Name: o.Name, Flags: o.Flags}
	if d, ok := w.store.Lookup(o.Key); ok {
		r.Text = d.Text
	}
	w.buf.Add(r)
}

// descend emits every child of parent's declaration, one level below parent,
// and recurses into it. Back-pointers and declarations already seen in the
// current scope are emitted but not entered. Each argument or return of an
// exported function gets its own scope. Children recorded by another merged
// segment belong to that segment's trees and are skipped.
func (w *walker) descend(parent graph.Occurrence) {
	d, ok := w.store.Lookup(parent.Key)
	if !ok {
		return
	}
	segment := w.store.Segment(parent.Order)
	for _, link := range d.Children {
		if w.store.Segment(link.Order) != segment {
			continue
		}
		child, ok := w.store.Occurrence(link)
		if !ok {
			continue
		}
		child.Level = parent.Level + 1
		if child.Role.IsArgument() && parent.Role == graph.RoleExported {
			w.reset()
		}
		w.emit(child)
		if child.Flags.Has(graph.FlagBackPointer) || w.visited[child.Key] {
			continue
		}
		w.visited[child.Key] = true
		w.descend(child)
	}
}
