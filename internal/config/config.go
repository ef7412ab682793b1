// Package config loads kabimap settings from .env, a yaml file and the
// environment, in increasing priority. Command-line flags override all three.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"kabimap/util"
)

// FileName is the project-local config file, found by walking up from the
// working directory.
const FileName = ".kabimap.yaml"

// Config holds every setting the commands read.
type Config struct {
	ListFile         string   `yaml:"list_file"`
	WhitelistDir     string   `yaml:"whitelist_dir"`
	WhitelistPattern string   `yaml:"whitelist_pattern"`
	Masks            []string `yaml:"masks"`
	Verbose          bool     `yaml:"verbose"`
	WholeWord        bool     `yaml:"whole_word"`
	LogLevel         string   `yaml:"log_level"`
	CacheSize        int      `yaml:"cache_size"`
	Database         string   `yaml:"database"`

	// Path is the file the config was read from, if any.
	Path string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		LogLevel:  "info",
		CacheSize: 16,
	}
}

// Load reads .env, then the project config (or the home config when there is
// none), then environment overrides.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	path, err := findConfigFile()
	if err != nil {
		return cfg, err
	}
	if path != "" {
		if err := cfg.readFile(path); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads one config file over the defaults, then environment overrides.
func LoadFile(path string) (Config, error) {
	cfg := Default()
	if err := cfg.readFile(path); err != nil {
		return cfg, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func findConfigFile() (string, error) {
	root, err := util.FindConfigRoot(FileName)
	if err != nil {
		return "", fmt.Errorf("failed to find project root: %w", err)
	}
	if p := filepath.Join(root, FileName); fileExists(p) {
		return p, nil
	}
	p, err := GetConfigPath()
	if err != nil {
		return "", nil
	}
	if fileExists(p) {
		return p, nil
	}
	return "", nil
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	c.Path = path

	// relative paths are relative to the config file
	base := filepath.Dir(path)
	c.ListFile = resolve(base, c.ListFile)
	c.WhitelistDir = resolve(base, c.WhitelistDir)
	c.Database = resolve(base, c.Database)
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("KABIMAP_LIST"); v != "" {
		c.ListFile = v
	}
	if v := os.Getenv("KABIMAP_WHITELIST"); v != "" {
		c.WhitelistDir = v
	}
	if v := os.Getenv("KABIMAP_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("KABIMAP_DB"); v != "" {
		c.Database = v
	}
	if v := os.Getenv("KABIMAP_CACHE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CacheSize = n
		}
	}
}

// Level maps LogLevel to a slog level; unknown names mean info.
func (c Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewLogger returns a text logger on stderr at the configured level.
func (c Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: c.Level()}))
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
