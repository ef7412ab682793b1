// Package render turns traversal hits into indented hierarchical text.
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"kabimap/internal/graph"
)

// Row is one traversal hit, tagged with the depth it renders at.
type Row struct {
	Level int
	Role  graph.Role
	Text  string
	Name  string
	Flags graph.Flags
}

// Options control how rows are written.
type Options struct {
	Reverse bool // emit rows back to front
	Verbose bool
}

// Buffer accumulates rows for one query.
type Buffer struct {
	rows []Row
}

// Add appends a row.
func (b *Buffer) Add(r Row) { b.rows = append(b.rows, r) }

// Append appends rows.
func (b *Buffer) Append(rows []Row) { b.rows = append(b.rows, rows...) }

// Len returns the number of buffered rows.
func (b *Buffer) Len() int { return len(b.rows) }

// Rows returns the buffered rows.
func (b *Buffer) Rows() []Row { return b.rows }

// Reset drops every buffered row.
func (b *Buffer) Reset() { b.rows = b.rows[:0] }

var roleLabels = map[graph.Role]string{
	graph.RoleFile:     "FILE",
	graph.RoleExported: "EXPORTED",
	graph.RoleArg:      "ARG",
	graph.RoleReturn:   "RETURN",
	graph.RoleNested:   "NESTED",
}

// Format renders a single row without indentation.
func Format(r Row, verbose bool) string {
	var sb strings.Builder
	if verbose {
		sb.WriteString(roleLabels[r.Role])
		sb.WriteString(": ")
	}
	sb.WriteString(r.Text)
	if r.Name != "" && !endsWithWord(r.Text, r.Name) {
		if !strings.HasSuffix(r.Text, "*") {
			sb.WriteByte(' ')
		}
		sb.WriteString(r.Name)
	}
	if verbose && r.Flags.Has(graph.FlagBackPointer) {
		sb.WriteString(" (back-pointer)")
	}
	return sb.String()
}

// endsWithWord reports whether text already ends with the identifier, as
// exported function declarations usually do.
func endsWithWord(text, word string) bool {
	if !strings.HasSuffix(text, word) {
		return false
	}
	rest := strings.TrimSuffix(text, word)
	return rest == "" || strings.HasSuffix(rest, " ") || strings.HasSuffix(rest, "*")
}

// Dedup drops each row that repeats the last row kept at its level. Keeping a
// row forgets what was kept below it, so a repeated subtree under a new parent
// is still shown.
func Dedup(rows []Row, verbose bool) []Row {
	var last []string
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		text := Format(r, verbose)
		if r.Level < len(last) && last[r.Level] == text {
			continue
		}
		for len(last) <= r.Level {
			last = append(last, "")
		}
		last[r.Level] = text
		last = last[:r.Level+1]
		out = append(out, r)
	}
	return out
}

// Write emits rows one per line, indented one space per level, suppressing
// repeats per level.
func Write(w io.Writer, rows []Row, opts Options) error {
	ordered := rows
	if opts.Reverse {
		ordered = make([]Row, len(rows))
		for i, r := range rows {
			ordered[len(rows)-1-i] = r
		}
	}

	bw := bufio.NewWriter(w)
	for _, r := range Dedup(ordered, opts.Verbose) {
		if _, err := fmt.Fprintf(bw, "%s%s\n", strings.Repeat(" ", r.Level), Format(r, opts.Verbose)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// String renders rows to a string.
func String(rows []Row, opts Options) string {
	var sb strings.Builder
	_ = Write(&sb, rows, opts)
	return sb.String()
}
