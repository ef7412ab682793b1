package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"kabimap/internal/lookup"
	"kabimap/internal/query"
	"kabimap/internal/whitelist"
)

var (
	countMode    bool
	declMode     bool
	exportsMode  bool
	structMode   bool
	verbose      bool
	wholeWord    bool
	firstOnly    bool
	whitelistDir string
	listFile     string
	masks        []string

	lookupCmd = &cobra.Command{
		Use:   "lookup -c|-d|-e|-s [flags] TARGET [GRAPH_FILE...]",
		Short: "Run one query across the graph files in a list",
		Long: `Run one query across every graph file named in the list file and on the
command line. Exactly one query mode must be selected.

Exit status: 0 success, 1 not found, 2 ambiguous match, 3 bad arguments,
4 missing file, 5 other failure.

Examples:
  kabimap lookup -c -w "struct device"
  kabimap lookup -d "struct pci_dev" -f graphs.list
  kabimap lookup -e -w "int e1000_probe" -v
  kabimap lookup -s -w -W /usr/lib/modules/kabi "struct sk_buff" -m drivers/net`,
		Args: requireArgs(1),
		RunE: runLookup,
	}
)

func init() {
	f := lookupCmd.Flags()
	f.BoolVarP(&countMode, "count", "c", false, "Count occurrences of the target")
	f.BoolVarP(&declMode, "decl", "d", false, "Show the members of the target declaration")
	f.BoolVarP(&exportsMode, "exports", "e", false, "Show what an exported function exposes")
	f.BoolVarP(&structMode, "struct", "s", false, "Show every exported function that reaches the target")
	f.BoolVarP(&verbose, "verbose", "v", false, "Label rows with their role and mark back-pointers")
	f.BoolVarP(&wholeWord, "whole-word", "w", false, "Match the exact declaration text")
	f.BoolVarP(&firstOnly, "first", "1", false, "Stop at the first match")
	f.StringVarP(&whitelistDir, "whitelist", "W", "", "Only report symbols listed in this whitelist directory (requires -w)")
	f.StringVarP(&listFile, "list", "f", "", "File listing the graph files to search")
	f.StringArrayVarP(&masks, "mask", "m", nil, "Only search graph files under matching directories (repeatable)")
	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	err := lookupMain(cmd, args)
	if err == nil {
		return nil
	}
	return &exitError{code: lookup.ExitCode(err), err: err}
}

func lookupMain(cmd *cobra.Command, args []string) error {
	mode, err := selectedMode()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("verbose") {
		verbose = cfg.Verbose
	}
	if !flags.Changed("whole-word") {
		wholeWord = cfg.WholeWord
	}
	if listFile == "" && len(args) == 1 {
		listFile = cfg.ListFile
	}
	if len(masks) == 0 {
		masks = cfg.Masks
	}
	if whitelistDir == "" && flags.Changed("whitelist") {
		return fmt.Errorf("%w: empty whitelist directory", lookup.ErrBadArgs)
	}
	if !flags.Changed("whitelist") {
		whitelistDir = configuredWhitelist(mode, wholeWord)
	}

	req := lookup.Request{
		Mode: mode,
		Options: query.Options{
			Target:    args[0],
			WholeWord: wholeWord,
			FirstOnly: firstOnly,
		},
		ListFile: listFile,
		Files:    args[1:],
		Masks:    masks,
		Logger:   logger,
	}
	if whitelistDir != "" {
		// validate before touching the whitelist directory
		req.Options.Whitelist = whitelist.Set{}
		if err := req.Validate(); err != nil {
			return err
		}
		wl, err := whitelist.Load(whitelistDir, cfg.WhitelistPattern)
		if err != nil {
			return fmt.Errorf("%w: %v", lookup.ErrMissingFile, err)
		}
		req.Options.Whitelist = wl
	}

	rep, runErr := lookup.Run(cmd.Context(), req)
	if rep != nil && len(rep.Hits) > 0 {
		if err := lookup.Write(cmd.OutOrStdout(), rep, verbose); err != nil {
			return err
		}
	}
	if runErr != nil && rep != nil && len(rep.Missing) > 0 {
		printMissing(cmd.ErrOrStderr(), rep.Missing)
	}
	return runErr
}

// configuredWhitelist is the whitelist directory from the config file or
// environment. It only applies where -W would be accepted.
func configuredWhitelist(mode query.Mode, wholeWord bool) string {
	if !wholeWord || (mode != query.ModeExports && mode != query.ModeStruct) {
		return ""
	}
	return cfg.WhitelistDir
}

// selectedMode returns the one query mode chosen on the command line.
func selectedMode() (query.Mode, error) {
	var picked []query.Mode
	for mode, set := range map[query.Mode]bool{
		query.ModeCount:   countMode,
		query.ModeDecl:    declMode,
		query.ModeExports: exportsMode,
		query.ModeStruct:  structMode,
	} {
		if set {
			picked = append(picked, mode)
		}
	}
	switch len(picked) {
	case 0:
		return 0, fmt.Errorf("%w: one of -c, -d, -e or -s is required", lookup.ErrBadArgs)
	case 1:
		return picked[0], nil
	}
	return 0, fmt.Errorf("%w: -c, -d, -e and -s are mutually exclusive", lookup.ErrBadArgs)
}

func printMissing(w io.Writer, missing []string) {
	fmt.Fprintf(w, "%d graph files could not be read:\n", len(missing))
	for _, m := range missing {
		fmt.Fprintf(w, "  %s\n", m)
	}
}

// requireArgs is cobra.MinimumNArgs reporting a bad-arguments error.
func requireArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return fmt.Errorf("%w: %s requires at least %d argument(s), got %d", lookup.ErrBadArgs, cmd.Name(), n, len(args))
		}
		return nil
	}
}
