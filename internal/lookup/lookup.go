// Package lookup runs one query across every graph file named in a list.
//
// Files are loaded and queried one at a time. A file that cannot be loaded
// only skips that file; the skipped files are reported once when the run
// ends. A file without a match is not an error unless no file matched.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"kabimap/internal/archive"
	"kabimap/internal/graph"
	"kabimap/internal/query"
	"kabimap/internal/render"
)

// LoadFunc loads the graph stored in one file.
type LoadFunc func(path string) (*graph.Store, error)

// Request describes one lookup run.
type Request struct {
	Mode     query.Mode
	Options  query.Options
	ListFile string   // newline-separated list of graph files
	Files    []string // used in addition to ListFile
	Masks    []string // directory mask patterns
	Load     LoadFunc
	Logger   *slog.Logger
}

// Hit records a file with at least one match.
type Hit struct {
	File  string `json:"file"`
	Count int    `json:"count"`
}

// Report is the accumulated outcome of a run.
type Report struct {
	Mode     query.Mode   `json:"-"`
	Target   string       `json:"target"`
	Searched int          `json:"searched"`
	Count    int          `json:"count"`
	Hits     []Hit        `json:"hits,omitempty"`
	Missing  []string     `json:"missing,omitempty"`
	Rows     []render.Row `json:"-"` // display order
}

// Validate checks argument combinations before any file is touched.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.Options.Target) == "" {
		return fmt.Errorf("%w: no search term", ErrBadArgs)
	}
	if r.Mode < query.ModeCount || r.Mode > query.ModeStruct {
		return fmt.Errorf("%w: unknown query mode %d", ErrBadArgs, int(r.Mode))
	}
	if r.Options.Whitelist != nil && !r.Options.WholeWord {
		return fmt.Errorf("%w: whitelist filtering requires whole-word matching", ErrBadArgs)
	}
	if r.Options.Whitelist != nil && r.Mode != query.ModeExports && r.Mode != query.ModeStruct {
		return fmt.Errorf("%w: whitelist filtering applies to exports and struct queries only", ErrBadArgs)
	}
	if r.ListFile == "" && len(r.Files) == 0 {
		return fmt.Errorf("%w: no graph files to search", ErrBadArgs)
	}
	return nil
}

// Run executes the request. The returned report is non-nil whenever
// validation passed, even if an error is also returned.
func Run(ctx context.Context, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}
	load := req.Load
	if load == nil {
		load = archive.LoadFile
	}

	files := append([]string(nil), req.Files...)
	if req.ListFile != "" {
		listed, err := ReadList(req.ListFile)
		if err != nil {
			return nil, err
		}
		files = append(files, listed...)
	}
	files = NewMask(req.Masks...).Filter(files)

	rep := &Report{Mode: req.Mode, Target: req.Options.Target}
	var buf render.Buffer
	defer func() { rep.Rows = buf.Rows() }()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rep.Searched++

		s, err := load(path)
		if err != nil {
			logger.Warn("[lookup] skipping graph file", "file", path, "error", err)
			rep.Missing = append(rep.Missing, path)
			continue
		}

		res, err := query.New(s).Run(req.Mode, req.Options)
		if errors.Is(err, query.ErrNotFound) {
			logger.Debug("[lookup] no match", "file", path, "target", req.Options.Target)
			continue
		}
		if err != nil {
			return rep, fmt.Errorf("%w in %s", err, path)
		}

		logger.Debug("[lookup] match", "file", path, "count", res.Count)
		rep.Hits = append(rep.Hits, Hit{File: path, Count: res.Count})
		rep.Count += res.Count
		buf.Append(displayOrder(res))
		if req.Options.FirstOnly {
			break
		}
	}

	if len(rep.Missing) > 0 {
		return rep, fmt.Errorf("%w: %s", ErrMissingFile, strings.Join(rep.Missing, ", "))
	}
	if len(rep.Hits) == 0 {
		where := fmt.Sprintf("%d files", rep.Searched)
		if len(files) == 1 {
			where = files[0]
		}
		return rep, fmt.Errorf("%w: %q in %s", query.ErrNotFound, req.Options.Target, where)
	}
	return rep, nil
}

func displayOrder(res *query.Result) []render.Row {
	if !res.Reverse {
		return res.Rows
	}
	rows := make([]render.Row, len(res.Rows))
	for i, r := range res.Rows {
		rows[len(res.Rows)-1-i] = r
	}
	return rows
}

// Write prints a report: counts for count queries, indented rows otherwise.
func Write(w io.Writer, rep *Report, verbose bool) error {
	if rep == nil {
		return nil
	}
	if rep.Mode == query.ModeCount {
		if verbose {
			for _, h := range rep.Hits {
				if _, err := fmt.Fprintf(w, "%s: %d\n", h.File, h.Count); err != nil {
					return err
				}
			}
			_, err := fmt.Fprintf(w, "%q found %d times in %d of %d files\n", rep.Target, rep.Count, len(rep.Hits), rep.Searched)
			return err
		}
		_, err := fmt.Fprintf(w, "%d\n", rep.Count)
		return err
	}
	return render.Write(w, rep.Rows, render.Options{Verbose: verbose})
}
