package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"kabimap/internal/archive"
	"kabimap/internal/graph"
	"kabimap/internal/ingest"
)

var (
	ingestOutput string
	ingestAppend bool

	ingestCmd = &cobra.Command{
		Use:   "ingest -o GRAPH_FILE [RECORDS...]",
		Short: "Build graph files from front-end declaration records",
		Long: `Read JSON-lines declaration records (from the named files, or stdin when
none are given) and write one graph segment per source file to the output.

With --append each graph is appended to the output as a new segment, the
way repeated single-file runs accumulate. Use "kabimap merge" to compact
such a file into one segment.`,
		RunE: runIngest,
	}
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "", "Graph file to write")
	ingestCmd.Flags().BoolVar(&ingestAppend, "append", false, "Append to the output instead of replacing it")
	_ = ingestCmd.MarkFlagRequired("output")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if !ingestAppend {
		if err := os.Remove(ingestOutput); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to replace %s: %w", ingestOutput, err)
		}
	}

	graphs := 0
	done := func(g *graph.Store, st ingest.Stats) error {
		if err := archive.AppendFile(ingestOutput, g); err != nil {
			return err
		}
		graphs++
		logger.Info("[ingest] wrote graph", "file", st.File, "records", st.Records, "decls", st.Decls, "duplicates", st.Duplicates)
		return nil
	}

	if len(args) == 0 {
		if err := ingest.Read(cmd.InOrStdin(), done); err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
	}
	for _, path := range args {
		if err := ingestFile(path, done); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d graphs written to %s\n", graphs, ingestOutput)
	return nil
}

func ingestFile(path string, done func(*graph.Store, ingest.Stats) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open records %s: %w", path, err)
	}
	defer f.Close()
	if err := ingest.Read(f, done); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
