package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"kabimap/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the lookup queries as MCP tools over stdio",
	Long: `Start an MCP server on stdin/stdout. The count, decl, exports and struct
tools search the configured list file unless a call names its own files.
Loaded graph files are cached and reloaded when they change on disk.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := server.New(server.Options{
		Version:      version,
		ListFile:     cfg.ListFile,
		Masks:        cfg.Masks,
		WhitelistDir: cfg.WhitelistDir,
		CacheSize:    cfg.CacheSize,
		Logger:       logger,
	})
	if err != nil {
		return err
	}
	if err := s.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

