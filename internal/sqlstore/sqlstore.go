// Package sqlstore exports declaration graphs to a denormalized sqlite table,
// one row per occurrence, for ad-hoc SQL over many files at once.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"kabimap/internal/graph"
)

const schema = `
CREATE TABLE IF NOT EXISTS occurrences (
	file         TEXT    NOT NULL,
	crc          INTEGER NOT NULL,
	decl         TEXT    NOT NULL,
	name         TEXT    NOT NULL DEFAULT '',
	role         TEXT    NOT NULL,
	level        INTEGER NOT NULL,
	ord          INTEGER NOT NULL,
	flags        INTEGER NOT NULL DEFAULT 0,
	parent_crc   INTEGER NOT NULL DEFAULT 0,
	parent_ord   INTEGER NOT NULL DEFAULT 0,
	function_crc INTEGER NOT NULL DEFAULT 0,
	argument_crc INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (file, ord)
);
CREATE INDEX IF NOT EXISTS idx_occurrences_decl ON occurrences(decl);
CREATE INDEX IF NOT EXISTS idx_occurrences_crc ON occurrences(crc);
`

// Store is a sqlite database of exported graphs.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// ExportGraph replaces every row of file with the occurrences of g and
// returns the number of rows written.
func (s *Store) ExportGraph(ctx context.Context, file string, g *graph.Store) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM occurrences WHERE file = ?`, file); err != nil {
		return 0, fmt.Errorf("failed to clear %s: %w", file, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO occurrences (file, crc, decl, name, role, level, ord, flags,
			parent_crc, parent_ord, function_crc, argument_crc)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	rows := 0
	for _, k := range g.Keys() {
		d, _ := g.Lookup(k)
		for _, o := range d.Siblings {
			_, err := stmt.ExecContext(ctx, file, int64(d.Key), d.Text, o.Name, o.Role.String(),
				o.Level, o.Order, int64(o.Flags), int64(o.Parent.Key), o.Parent.Order,
				int64(o.Function.Key), int64(o.Argument.Key))
			if err != nil {
				return 0, fmt.Errorf("failed to insert %q: %w", d.Text, err)
			}
			rows++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return rows, nil
}

// Count mirrors the count query: occurrences of an exact declaration, or
// distinct declarations containing term.
func (s *Store) Count(ctx context.Context, term string, wholeWord bool) (int, error) {
	query := `SELECT COUNT(DISTINCT crc) FROM occurrences WHERE instr(decl, ?) > 0`
	if wholeWord {
		query = `SELECT COUNT(*) FROM occurrences WHERE decl = ?`
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, term).Scan(&n); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return n, nil
}

// Files lists the exported files.
func (s *Store) Files(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT file FROM occurrences ORDER BY file`)
	if err != nil {
		return nil, fmt.Errorf("files query failed: %w", err)
	}
	defer rows.Close()

	var files []string
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
