package lookup

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabimap/internal/archive"
	"kabimap/internal/graph"
	"kabimap/internal/query"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func writeGraph(t *testing.T, path, file, fn string) {
	t.Helper()
	b := graph.NewBuilder()
	insert := func(rec graph.Record, parent *graph.Occurrence) graph.Occurrence {
		occ, err := b.Insert(rec, parent)
		require.NoError(t, err)
		return occ
	}
	root := insert(graph.Record{Decl: file, Role: graph.RoleFile}, nil)
	exp := insert(graph.Record{Decl: "int " + fn, Name: fn, Role: graph.RoleExported}, &root)
	arg := insert(graph.Record{Decl: "struct device *", Name: "dev", Role: graph.RoleArg}, &exp)
	insert(graph.Record{Decl: "struct device", Role: graph.RoleNested, Flags: graph.FlagStruct}, &arg)

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, archive.AppendFile(path, b.Store()))
}

// setup writes three graph files and a list naming them plus one missing file
// when withMissing is set.
func setup(t *testing.T, withMissing bool) string {
	t.Helper()
	dir := t.TempDir()
	writeGraph(t, filepath.Join(dir, "drivers/net/e1000.kabi"), "drivers/net/e1000.c", "e1000_probe")
	writeGraph(t, filepath.Join(dir, "drivers/usb/core.kabi"), "drivers/usb/core.c", "usb_register")
	writeGraph(t, filepath.Join(dir, "fs/open.kabi"), "fs/open.c", "do_open")

	lines := []string{"drivers/net/e1000.kabi", "", "# comment", "drivers/usb/core.kabi", "fs/open.kabi"}
	if withMissing {
		lines = append(lines, "fs/gone.kabi")
	}
	list := filepath.Join(dir, "files.list")
	require.NoError(t, os.WriteFile(list, []byte(strings.Join(lines, "\n")+"\n"), 0644))
	return list
}

func TestRunStructAcrossFiles(t *testing.T) {
	list := setup(t, false)

	rep, err := Run(context.Background(), Request{
		Mode:     query.ModeStruct,
		Options:  query.Options{Target: "struct device", WholeWord: true},
		ListFile: list,
		Logger:   quiet,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, rep.Searched)
	assert.Len(t, rep.Hits, 3)

	var out bytes.Buffer
	require.NoError(t, Write(&out, rep, false))
	want := "drivers/net/e1000.c\n" +
		" int e1000_probe\n" +
		"  struct device *dev\n" +
		"   struct device\n" +
		"drivers/usb/core.c\n" +
		" int usb_register\n" +
		"  struct device *dev\n" +
		"   struct device\n" +
		"fs/open.c\n" +
		" int do_open\n" +
		"  struct device *dev\n" +
		"   struct device\n"
	assert.Equal(t, want, out.String())
}

func TestRunMaskAndFirstOnly(t *testing.T) {
	list := setup(t, false)

	rep, err := Run(context.Background(), Request{
		Mode:     query.ModeCount,
		Options:  query.Options{Target: "device"},
		ListFile: list,
		Masks:    []string{"drivers/", "!drivers/usb"},
		Logger:   quiet,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Searched)
	require.Len(t, rep.Hits, 1)
	assert.Contains(t, rep.Hits[0].File, "e1000")

	rep, err = Run(context.Background(), Request{
		Mode:     query.ModeCount,
		Options:  query.Options{Target: "device", FirstOnly: true},
		ListFile: list,
		Logger:   quiet,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Searched)

	var out bytes.Buffer
	require.NoError(t, Write(&out, rep, false))
	assert.Equal(t, "2\n", out.String())
}

func TestRunReportsMissingFilesAtEnd(t *testing.T) {
	list := setup(t, true)

	rep, err := Run(context.Background(), Request{
		Mode:     query.ModeExports,
		Options:  query.Options{Target: "int do_open", WholeWord: true},
		ListFile: list,
		Logger:   quiet,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingFile)
	assert.Equal(t, ExitMissingFile, ExitCode(err))
	require.NotNil(t, rep)
	assert.Len(t, rep.Hits, 1)
	require.Len(t, rep.Missing, 1)
	assert.Contains(t, rep.Missing[0], "gone.kabi")
}

func TestRunNotFound(t *testing.T) {
	list := setup(t, false)

	_, err := Run(context.Background(), Request{
		Mode:     query.ModeExports,
		Options:  query.Options{Target: "int nosuch", WholeWord: true},
		ListFile: list,
		Logger:   quiet,
	})
	assert.ErrorIs(t, err, query.ErrNotFound)
	assert.Equal(t, ExitNotFound, ExitCode(err))
	assert.Contains(t, err.Error(), "3 files")
}

func TestRunAmbiguousIsFatal(t *testing.T) {
	list := setup(t, false)

	_, err := Run(context.Background(), Request{
		Mode:     query.ModeDecl,
		Options:  query.Options{Target: "device"},
		ListFile: list,
		Logger:   quiet,
	})
	assert.ErrorIs(t, err, query.ErrAmbiguous)
	assert.Equal(t, ExitAmbiguous, ExitCode(err))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
	}{
		{"no target", Request{Mode: query.ModeCount, Files: []string{"x"}}},
		{"bad mode", Request{Mode: query.Mode(9), Options: query.Options{Target: "x"}, Files: []string{"x"}}},
		{"whitelist without whole word", Request{Mode: query.ModeExports, Options: query.Options{Target: "x", Whitelist: map[string]bool{}}, Files: []string{"x"}}},
		{"whitelist on count", Request{Mode: query.ModeCount, Options: query.Options{Target: "x", WholeWord: true, Whitelist: map[string]bool{}}, Files: []string{"x"}}},
		{"no files", Request{Mode: query.ModeCount, Options: query.Options{Target: "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Run(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrBadArgs)
			assert.Equal(t, ExitBadArgs, ExitCode(err))
		})
	}
}

func TestRunMissingListFile(t *testing.T) {
	_, err := Run(context.Background(), Request{
		Mode:     query.ModeCount,
		Options:  query.Options{Target: "x"},
		ListFile: filepath.Join(t.TempDir(), "nope.list"),
	})
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestRunUsesLoader(t *testing.T) {
	calls := 0
	_, err := Run(context.Background(), Request{
		Mode:    query.ModeCount,
		Options: query.Options{Target: "x"},
		Files:   []string{"a", "b"},
		Load: func(path string) (*graph.Store, error) {
			calls++
			return nil, errors.New("boom")
		},
		Logger: quiet,
	})
	assert.Equal(t, 2, calls)
	assert.ErrorIs(t, err, ErrMissingFile)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitFailure, ExitCode(context.Canceled))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, Request{
		Mode:    query.ModeCount,
		Options: query.Options{Target: "x"},
		Files:   []string{"a"},
		Logger:  quiet,
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, ExitFailure, ExitCode(err))
}

func TestMask(t *testing.T) {
	m := NewMask("drivers/net", "!drivers/net/wireless")
	assert.True(t, m.Keep("/src/drivers/net/e1000/main.kabi"))
	assert.False(t, m.Keep("/src/drivers/net/wireless/ath.kabi"))
	assert.False(t, m.Keep("/src/fs/open.kabi"))
	assert.True(t, NewMask().Keep("anything"))
	assert.True(t, NewMask("", "  ").Keep("anything"))
}

func TestRunSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.kabi")
	require.NoError(t, os.WriteFile(bad, []byte("Kabi-Archive: 1\r\nContent-Length: 9000000000000000000\r\n\r\n"), 0644))
	good := filepath.Join(dir, "good.kabi")
	writeGraph(t, good, "fs/open.c", "do_open")

	rep, err := Run(context.Background(), Request{
		Mode:    query.ModeCount,
		Options: query.Options{Target: "struct device", WholeWord: true},
		Files:   []string{bad, good},
		Logger:  quiet,
	})
	assert.ErrorIs(t, err, ErrMissingFile)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.Count)
	assert.Equal(t, []string{bad}, rep.Missing)
}
