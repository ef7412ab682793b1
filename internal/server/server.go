// Package server exposes the lookup queries over MCP on stdio.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"kabimap/internal/archive"
	"kabimap/internal/graph"
	"kabimap/internal/whitelist"
)

const defaultCacheSize = 16

// Options configure a server. Zero values fall back to per-call arguments.
type Options struct {
	Version      string
	ListFile     string // used when a call names no files
	Masks        []string
	WhitelistDir string
	CacheSize    int
	Logger       *slog.Logger
}

// Server answers query tool calls against persisted graph files.
type Server struct {
	mcpServer *mcp.Server
	opts      Options
	logger    *slog.Logger

	cacheMu sync.Mutex
	cache   *lru.Cache[string, cachedGraph]

	wlOnce sync.Once
	wl     whitelist.Set
	wlErr  error
}

// cachedGraph remembers when a graph file was read so an appended file is
// loaded again.
type cachedGraph struct {
	store   *graph.Store
	modTime time.Time
	size    int64
}

// New builds a server with every tool and resource registered.
func New(opts Options) (*Server, error) {
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache, err := lru.New[string, cachedGraph](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create graph cache: %w", err)
	}

	s := &Server{
		mcpServer: mcp.NewServer(&mcp.Implementation{
			Name:    "kabimap",
			Version: opts.Version,
		}, nil),
		opts:   opts,
		logger: logger,
		cache:  cache,
	}
	s.registerTools()
	s.registerResources()
	return s, nil
}

// Run serves MCP over stdin/stdout until ctx is done or the client leaves.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("[server] serving on stdio", "list", s.opts.ListFile, "cache", s.opts.CacheSize)
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}

// load returns the graph stored at path, reusing the cached copy while the
// file is unchanged.
func (s *Server) load(path string) (*graph.Store, error) {
	info, err := os.Stat(path)
	if err != nil {
		s.cacheMu.Lock()
		s.cache.Remove(path)
		s.cacheMu.Unlock()
		return nil, err
	}

	s.cacheMu.Lock()
	c, ok := s.cache.Get(path)
	s.cacheMu.Unlock()
	if ok && c.modTime.Equal(info.ModTime()) && c.size == info.Size() {
		return c.store, nil
	}

	g, err := archive.LoadFile(path)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("[server] loaded graph file", "file", path, "decls", g.Len())

	s.cacheMu.Lock()
	s.cache.Add(path, cachedGraph{store: g, modTime: info.ModTime(), size: info.Size()})
	s.cacheMu.Unlock()
	return g, nil
}

// whitelist loads the configured whitelist directory once.
func (s *Server) whitelist() (whitelist.Set, error) {
	s.wlOnce.Do(func() {
		if s.opts.WhitelistDir == "" {
			s.wlErr = fmt.Errorf("%w: no whitelist directory configured", whitelist.ErrNoDir)
			return
		}
		s.wl, s.wlErr = whitelist.Load(s.opts.WhitelistDir, "")
	})
	return s.wl, s.wlErr
}
