// Package query runs lookups against a declaration graph.
//
// Four modes are supported: Count reports how often a declaration occurs,
// Decl enumerates the members of a declaration, Exports shows what an
// exported function exposes, and Struct walks up from a nested type to every
// exported function that depends on it.
package query

import (
	"errors"
	"fmt"
	"strings"

	"kabimap/internal/graph"
	"kabimap/internal/render"
)

var (
	ErrNotFound  = errors.New("not found")
	ErrAmbiguous = errors.New("matches too many declarations")
)

// Mode selects a query.
type Mode int

const (
	ModeCount Mode = iota
	ModeDecl
	ModeExports
	ModeStruct
)

func (m Mode) String() string {
	switch m {
	case ModeCount:
		return "count"
	case ModeDecl:
		return "decl"
	case ModeExports:
		return "exports"
	case ModeStruct:
		return "struct"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	for m := ModeCount; m <= ModeStruct; m++ {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown query mode %q", s)
}

// Options describe what to match and how.
type Options struct {
	Target    string
	WholeWord bool // match the exact declaration text instead of a substring
	FirstOnly bool // stop at the first match
	Whitelist map[string]bool
}

// Result is the outcome of one query against one store.
type Result struct {
	Count   int
	Rows    []render.Row
	Reverse bool // rows were collected bottom-up
}

// Engine runs queries against a loaded store.
type Engine struct {
	store *graph.Store
}

// New returns an engine over s.
func New(s *graph.Store) *Engine {
	return &Engine{store: s}
}

// Run dispatches to the query for mode.
func (e *Engine) Run(mode Mode, opts Options) (*Result, error) {
	switch mode {
	case ModeCount:
		n, err := e.Count(opts)
		if err != nil {
			return nil, err
		}
		return &Result{Count: n}, nil
	case ModeDecl:
		rows, err := e.Decl(opts)
		if err != nil {
			return nil, err
		}
		return &Result{Count: 1, Rows: rows}, nil
	case ModeExports:
		rows, n, err := e.exports(opts)
		if err != nil {
			return nil, err
		}
		return &Result{Count: n, Rows: rows}, nil
	case ModeStruct:
		rows, n, err := e.structs(opts)
		if err != nil {
			return nil, err
		}
		return &Result{Count: n, Rows: rows, Reverse: true}, nil
	}
	return nil, fmt.Errorf("unknown query mode %d", int(mode))
}

func (e *Engine) matches(opts Options) []*graph.Decl {
	if opts.WholeWord {
		if d, ok := e.store.Find(opts.Target); ok {
			return []*graph.Decl{d}
		}
		return nil
	}
	return e.store.Match(opts.Target)
}

func notFound(target string) error {
	return fmt.Errorf("%w: %q", ErrNotFound, target)
}

// Count returns the number of occurrences of the exact declaration, or the
// number of distinct declarations containing the target as a substring.
func (e *Engine) Count(opts Options) (int, error) {
	found := e.matches(opts)
	n := len(found)
	if opts.WholeWord && n == 1 {
		n = len(found[0].Siblings)
	}
	if n == 0 {
		return 0, notFound(opts.Target)
	}
	return n, nil
}

// Decl enumerates the members of the matching declaration, rendering the
// declaration itself at depth zero.
func (e *Engine) Decl(opts Options) ([]render.Row, error) {
	found := e.matches(opts)
	switch {
	case len(found) == 0:
		return nil, notFound(opts.Target)
	case len(found) > 1 && !opts.FirstOnly:
		return nil, fmt.Errorf("%w: %q matches %d declarations", ErrAmbiguous, opts.Target, len(found))
	}

	d := found[0]
	first, ok := d.First()
	if !ok {
		return nil, notFound(opts.Target)
	}
	first.Level = 0
	first.Name = ""

	w := newWalker(e.store)
	w.emit(first)
	w.start(first)
	return w.buf.Rows(), nil
}

// Exports renders each matching exported function under the file it was
// found in, followed by everything reachable from its arguments and return.
func (e *Engine) Exports(opts Options) ([]render.Row, error) {
	rows, _, err := e.exports(opts)
	return rows, err
}

func (e *Engine) exports(opts Options) ([]render.Row, int, error) {
	w := newWalker(e.store)
	hits := 0

	for _, d := range e.matches(opts) {
		if first, ok := d.First(); !opts.WholeWord && (!ok || first.Role != graph.RoleExported) {
			continue
		}
		for _, occ := range d.Siblings {
			if occ.Role != graph.RoleExported {
				continue
			}
			if !whitelisted(opts.Whitelist, functionName(occ, d)) {
				continue
			}
			if file, ok := e.store.Parent(occ); ok {
				file.Level = graph.LevelFile
				w.emit(file)
			}
			occ.Level = graph.LevelExported
			w.emit(occ)
			w.start(occ)
			hits++
			if opts.FirstOnly {
				return w.buf.Rows(), hits, nil
			}
		}
	}
	if hits == 0 {
		return nil, 0, notFound(opts.Target)
	}
	return w.buf.Rows(), hits, nil
}

// Struct walks up from every nested occurrence of the matching declarations
// to the exported function and file that contain it. Rows come back
// bottom-up, one chain per occurrence.
func (e *Engine) Struct(opts Options) ([]render.Row, error) {
	rows, _, err := e.structs(opts)
	return rows, err
}

func (e *Engine) structs(opts Options) ([]render.Row, int, error) {
	var buf render.Buffer
	hits := 0

	for _, d := range e.matches(opts) {
		for _, occ := range d.Siblings {
			if occ.Level < graph.LevelNested {
				continue
			}
			chain := e.ascend(occ)
			if opts.Whitelist != nil {
				fn, ok := exportedIn(chain)
				if !ok || !whitelisted(opts.Whitelist, functionName(fn, e.decl(fn.Key))) {
					continue
				}
			}
			for i, o := range chain {
				buf.Add(e.row(o, len(chain)-1-i))
			}
			hits++
			if opts.FirstOnly {
				return buf.Rows(), hits, nil
			}
		}
	}
	if hits == 0 {
		return nil, 0, notFound(opts.Target)
	}
	return buf.Rows(), hits, nil
}

// ascend returns occ followed by each of its containers up to the root.
func (e *Engine) ascend(occ graph.Occurrence) []graph.Occurrence {
	chain := []graph.Occurrence{occ}
	limit := e.store.Occurrences()
	cur := occ
	for i := 0; i < limit; i++ {
		parent, ok := e.store.Parent(cur)
		if !ok {
			break
		}
		chain = append(chain, parent)
		cur = parent
	}
	return chain
}

func exportedIn(chain []graph.Occurrence) (graph.Occurrence, bool) {
	for _, o := range chain {
		if o.Role == graph.RoleExported {
			return o, true
		}
	}
	return graph.Occurrence{}, false
}

func (e *Engine) decl(k graph.Key) *graph.Decl {
	d, _ := e.store.Lookup(k)
	return d
}

func (e *Engine) row(o graph.Occurrence, level int) render.Row {
	r := render.Row{Level: level, Role: o.Role, Name: o.Name, Flags: o.Flags}
	if d := e.decl(o.Key); d != nil {
		r.Text = d.Text
	}
	return r
}

// functionName is the identifier used for whitelist checks: the occurrence
// name, or the last word of the declaration.
func functionName(o graph.Occurrence, d *graph.Decl) string {
	if o.Name != "" {
		return o.Name
	}
	if d == nil {
		return ""
	}
	fields := strings.Fields(d.Text)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimLeft(fields[len(fields)-1], "*")
}

func whitelisted(wl map[string]bool, name string) bool {
	return wl == nil || wl[name]
}
