package lookup

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ReadList reads a newline-separated list of graph files. Blank lines and
// lines starting with '#' are skipped. Relative paths are resolved against the
// directory holding the list.
func ReadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMissingFile, path, err)
	}
	defer f.Close()

	base := filepath.Dir(path)
	var files []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		files = append(files, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list %s: %w", path, err)
	}
	return files, nil
}

// Mask selects files by directory using gitignore pattern syntax. A file is
// kept when it matches the patterns; "!pattern" excludes again. An empty mask
// keeps everything.
type Mask struct {
	gi *ignore.GitIgnore
}

// NewMask compiles the given patterns.
func NewMask(patterns ...string) *Mask {
	var lines []string
	for _, p := range patterns {
		if strings.TrimSpace(p) != "" {
			lines = append(lines, p)
		}
	}
	if len(lines) == 0 {
		return &Mask{}
	}
	return &Mask{gi: ignore.CompileIgnoreLines(lines...)}
}

// Keep reports whether path passes the mask.
func (m *Mask) Keep(path string) bool {
	if m == nil || m.gi == nil {
		return true
	}
	return m.gi.MatchesPath(path)
}

// Filter returns the paths that pass the mask, in order.
func (m *Mask) Filter(paths []string) []string {
	var out []string
	for _, p := range paths {
		if m.Keep(p) {
			out = append(out, p)
		}
	}
	return out
}
