// Package whitelist loads the symbol names an export query may report.
package whitelist

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultPattern selects whitelist files inside a directory.
const DefaultPattern = "kabi_*"

var ErrNoDir = errors.New("whitelist directory not found")

// Set is a set of whitelisted symbol names.
type Set map[string]bool

// Names returns the names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Load unions every file in dir matching pattern. The second
// whitespace-separated field of each line is the symbol name; lines with
// fewer fields are skipped.
func Load(dir, pattern string) (Set, error) {
	if pattern == "" {
		pattern = DefaultPattern
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoDir, dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, fmt.Errorf("invalid whitelist pattern %q: %w", pattern, err)
	}

	set := make(Set)
	for _, path := range files {
		if fi, err := os.Stat(path); err != nil || fi.IsDir() {
			continue
		}
		if err := readFile(path, set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

func readFile(path string, set Set) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open whitelist %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		set[fields[1]] = true
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read whitelist %s: %w", path, err)
	}
	return nil
}
