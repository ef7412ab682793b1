package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"kabimap/internal/archive"
)

var (
	mergeOutput string
	splitDir    string

	mergeCmd = &cobra.Command{
		Use:   "merge -o OUTPUT GRAPH_FILE",
		Short: "Compact a multi-segment graph file into one segment",
		Args:  requireArgs(1),
		RunE:  runMerge,
	}

	splitCmd = &cobra.Command{
		Use:   "split -d DIR GRAPH_FILE",
		Short: "Write each segment of a graph file to its own file",
		Args:  requireArgs(1),
		RunE:  runSplit,
	}
)

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Graph file to write (defaults to replacing the input)")
	splitCmd.Flags().StringVarP(&splitDir, "dir", "d", ".", "Directory for the split segment files")
	rootCmd.AddCommand(mergeCmd, splitCmd)
}

func runMerge(cmd *cobra.Command, args []string) error {
	in := args[0]
	out := mergeOutput
	if out == "" {
		out = in
	}

	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(filepath.Dir(out), ".kabimap-merge-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	g, err := archive.Compact(src, tmp)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to merge %s: %w", in, err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), out); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}

	logger.Info("[merge] compacted graph file", "input", in, "output", out, "decls", g.Len(), "occurrences", g.Occurrences())
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d declarations, %d occurrences\n", out, g.Len(), g.Occurrences())
	return nil
}

func runSplit(cmd *cobra.Command, args []string) error {
	in := args[0]
	src, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", in, err)
	}
	defer src.Close()

	if err := os.MkdirAll(splitDir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", splitDir, err)
	}
	base := filepath.Base(in)
	n, err := archive.Split(src, func(i int) (io.WriteCloser, error) {
		path := filepath.Join(splitDir, fmt.Sprintf("%s.%03d", base, i))
		logger.Debug("[split] writing segment", "index", i, "file", path)
		f, err := os.Create(path)
		if err != nil {
			return nil, err
		}
		return f, nil
	})
	if err != nil {
		return fmt.Errorf("failed to split %s: %w", in, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d segments written to %s\n", n, splitDir)
	return nil
}
