// Package ingest reads declaration records produced by a source front end
// and builds one graph per source file.
//
// Records are JSON lines:
//
//	{"id":1,"decl":"drivers/net/e1000.c","role":"file"}
//	{"id":2,"parent":1,"decl":"int e1000_probe","name":"e1000_probe","role":"exported","flags":["function"]}
//	{"id":3,"parent":2,"decl":"struct pci_dev *","name":"pdev","role":"arg","flags":["pointer"]}
//
// A file record starts a new graph; ids are scoped to that graph.
package ingest

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"kabimap/internal/graph"
)

// Line is one serialized declaration record.
type Line struct {
	ID     int      `json:"id"`
	Parent int      `json:"parent,omitempty"`
	Decl   string   `json:"decl"`
	Name   string   `json:"name,omitempty"`
	Role   string   `json:"role"`
	Level  int      `json:"level,omitempty"`
	Flags  []string `json:"flags,omitempty"`
}

// Record converts the line to a builder record.
func (l *Line) Record() (graph.Record, error) {
	role, err := graph.ParseRole(l.Role)
	if err != nil {
		return graph.Record{}, err
	}
	rec := graph.Record{Decl: l.Decl, Name: l.Name, Role: role, Level: l.Level}
	for _, name := range l.Flags {
		f, err := graph.ParseFlag(strings.ToLower(name))
		if err != nil {
			return graph.Record{}, err
		}
		rec.Flags |= f
	}
	return rec, nil
}

// Stats summarizes one ingested graph.
type Stats struct {
	File       string
	Records    int
	Duplicates int
	Decls      int
}

// Read consumes records from r and calls done once per completed graph.
func Read(r io.Reader, done func(*graph.Store, Stats) error) error {
	var (
		b     *graph.Builder
		occs  map[int]graph.Occurrence
		stats Stats
	)
	flush := func() error {
		if b == nil {
			return nil
		}
		stats.Decls = b.Store().Len()
		return done(b.Store(), stats)
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var l Line
		if err := json.Unmarshal([]byte(text), &l); err != nil {
			return fmt.Errorf("line %d: invalid record: %w", lineNo, err)
		}
		rec, err := l.Record()
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}

		if rec.Role == graph.RoleFile {
			if err := flush(); err != nil {
				return err
			}
			b = graph.NewBuilder()
			occs = make(map[int]graph.Occurrence)
			stats = Stats{File: strings.TrimSpace(rec.Decl)}
			occ, err := b.Insert(rec, nil)
			if err != nil {
				return fmt.Errorf("line %d: %w", lineNo, err)
			}
			occs[l.ID] = occ
			stats.Records++
			continue
		}

		if b == nil {
			return fmt.Errorf("line %d: record before any file record", lineNo)
		}
		parent, ok := occs[l.Parent]
		if !ok {
			return fmt.Errorf("line %d: unknown parent id %d", lineNo, l.Parent)
		}
		occ, err := b.Insert(rec, &parent)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
		occs[l.ID] = occ
		stats.Records++
		if occ.Flags.Has(graph.FlagDuplicate) {
			stats.Duplicates++
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	return flush()
}
