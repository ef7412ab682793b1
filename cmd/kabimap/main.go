package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"kabimap/internal/config"
	"kabimap/internal/lookup"
)

var version = "dev"

// --- Global Command Variables ---
var (
	cfg    config.Config
	logger = slog.Default()
	debug  bool

	rootCmd = &cobra.Command{
		Use:   "kabimap",
		Short: "Query kernel ABI declaration graphs",
		Long: `kabimap stores the declarations reachable from every exported kernel
function as a deduplicated graph, one graph file per compilation unit, and
answers four questions about them: how often a declaration occurs, what a
declaration contains, what an exported function exposes, and which exported
functions reach a given type.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: loadConfig,
	}
)

// exitError carries the process exit status for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kabimap: %v\n", err)
		if errors.Is(err, lookup.ErrBadArgs) {
			fmt.Fprintf(os.Stderr, "command line: %s\n", strings.Join(os.Args, " "))
		}
		os.Exit(exitStatus(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", lookup.ErrBadArgs, err)
	})
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	cfg = c
	if debug {
		cfg.LogLevel = "debug"
	}
	logger = cfg.NewLogger()
	slog.SetDefault(logger)
	if cfg.Path != "" {
		logger.Debug("[config] loaded", "path", cfg.Path)
	}
	return nil
}

func exitStatus(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if errors.Is(err, lookup.ErrBadArgs) {
		return lookup.ExitBadArgs
	}
	return 1
}
