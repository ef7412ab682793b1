package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"kabimap/internal/archive"
	"kabimap/internal/config"
	"kabimap/internal/lookup"
	"kabimap/internal/sqlstore"
)

var (
	sqlDatabase  string
	sqlList      string
	sqlCount     string
	sqlWholeWord bool
	sqlShowFiles bool

	exportSQLCmd = &cobra.Command{
		Use:   "export-sql [--db PATH] [-f LIST] [GRAPH_FILE...]",
		Short: "Export graph files to a sqlite table for ad-hoc SQL",
		Long: `Write one row per occurrence of every graph file into the "occurrences"
table of a sqlite database. Exporting a file again replaces its rows.

With --count or --files and no graph files, the database is only queried.

Example:
  kabimap export-sql -f graphs.list --db kabi.db
  kabimap export-sql --db kabi.db --count "struct device" -w
  sqlite3 kabi.db "SELECT file, name FROM occurrences WHERE decl = 'struct device'"`,
		RunE: runExportSQL,
	}
)

func init() {
	f := exportSQLCmd.Flags()
	f.StringVar(&sqlDatabase, "db", "", "sqlite database path (defaults to the configured database)")
	f.StringVarP(&sqlList, "list", "f", "", "File listing the graph files to export")
	f.StringVar(&sqlCount, "count", "", "Count occurrences of a declaration in the database")
	f.BoolVarP(&sqlWholeWord, "whole-word", "w", false, "With --count, match the exact declaration text")
	f.BoolVar(&sqlShowFiles, "files", false, "List the graph files stored in the database")
	rootCmd.AddCommand(exportSQLCmd)
}

func runExportSQL(cmd *cobra.Command, args []string) error {
	dbPath, err := databasePath()
	if err != nil {
		return err
	}
	queryOnly := (sqlCount != "" || sqlShowFiles) && sqlList == "" && len(args) == 0
	if sqlWholeWord && sqlCount == "" {
		return fmt.Errorf("%w: --whole-word requires --count", lookup.ErrBadArgs)
	}

	var files []string
	if !queryOnly {
		files, err = exportFiles(args)
		if err != nil {
			return err
		}
	}

	db, err := sqlstore.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if !queryOnly {
		rows := 0
		for _, path := range files {
			g, err := archive.LoadFile(path)
			if err != nil {
				logger.Warn("[export-sql] skipping graph file", "file", path, "error", err)
				continue
			}
			n, err := db.ExportGraph(cmd.Context(), path, g)
			if err != nil {
				return fmt.Errorf("failed to export %s: %w", path, err)
			}
			logger.Debug("[export-sql] exported", "file", path, "rows", n)
			rows += n
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rows from %d graph files written to %s\n", rows, len(files), dbPath)
	}

	if sqlShowFiles {
		stored, err := db.Files(cmd.Context())
		if err != nil {
			return err
		}
		for _, f := range stored {
			fmt.Fprintln(cmd.OutOrStdout(), f)
		}
	}
	if sqlCount != "" {
		n, err := db.Count(cmd.Context(), sqlCount, sqlWholeWord)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", n)
	}
	return nil
}

// exportFiles gathers the graph files named on the command line and in the
// list file, falling back to the configured list.
func exportFiles(args []string) ([]string, error) {
	files := append([]string(nil), args...)
	list := sqlList
	if list == "" && len(files) == 0 {
		list = cfg.ListFile
	}
	if list != "" {
		listed, err := lookup.ReadList(list)
		if err != nil {
			return nil, err
		}
		files = append(files, listed...)
	}
	files = lookup.NewMask(cfg.Masks...).Filter(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no graph files to export", lookup.ErrBadArgs)
	}
	return files, nil
}

func databasePath() (string, error) {
	switch {
	case sqlDatabase != "":
		return sqlDatabase, nil
	case cfg.Database != "":
		return cfg.Database, nil
	}
	if _, err := config.EnsureHome(); err != nil {
		return "", err
	}
	return config.GetDefaultDatabase()
}
