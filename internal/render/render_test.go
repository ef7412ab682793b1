package render

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"kabimap/internal/graph"
)

func chain(arg string) []Row {
	return []Row{
		{Level: 0, Role: graph.RoleFile, Text: "lib/list.c"},
		{Level: 1, Role: graph.RoleExported, Text: "int bar"},
		{Level: 2, Role: graph.RoleArg, Text: "struct foo *", Name: arg},
		{Level: 3, Role: graph.RoleNested, Text: "struct foo"},
	}
}

func TestWriteSuppressesRepeatsPerLevel(t *testing.T) {
	rows := append(chain("f"), chain("g")...)

	got := String(rows, Options{})
	want := "lib/list.c\n" +
		" int bar\n" +
		"  struct foo *f\n" +
		"   struct foo\n" +
		"  struct foo *g\n" +
		"   struct foo\n"
	assert.Equal(t, want, got)
}

func TestWriteReverse(t *testing.T) {
	// upward walks collect the match first and the file last
	rows := []Row{
		{Level: 3, Role: graph.RoleNested, Text: "struct foo"},
		{Level: 2, Role: graph.RoleArg, Text: "struct foo *", Name: "f"},
		{Level: 1, Role: graph.RoleExported, Text: "int bar"},
		{Level: 0, Role: graph.RoleFile, Text: "lib/list.c"},
	}

	got := String(rows, Options{Reverse: true, Verbose: true})
	want := "FILE: lib/list.c\n" +
		" EXPORTED: int bar\n" +
		"  ARG: struct foo *f\n" +
		"   NESTED: struct foo\n"
	assert.Equal(t, want, got)
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name    string
		row     Row
		verbose bool
		want    string
	}{
		{"plain", Row{Text: "int", Name: "count"}, false, "int count"},
		{"pointer", Row{Text: "char *", Name: "buf"}, false, "char *buf"},
		{"no name", Row{Text: "struct foo"}, false, "struct foo"},
		{"verbose backptr", Row{Role: graph.RoleNested, Text: "struct foo *", Name: "next", Flags: graph.FlagBackPointer}, true, "NESTED: struct foo *next (back-pointer)"},
		{"verbose return", Row{Role: graph.RoleReturn, Text: "long"}, true, "RETURN: long"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Format(tt.row, tt.verbose))
		})
	}
}

func TestDedupForgetsDeeperLevels(t *testing.T) {
	rows := []Row{
		{Level: 0, Text: "a"},
		{Level: 1, Text: "x"},
		{Level: 0, Text: "b"},
		{Level: 1, Text: "x"},
		{Level: 1, Text: "x"},
	}
	got := Dedup(rows, false)
	assert.Len(t, got, 4)
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Add(Row{Text: "a"})
	b.Append([]Row{{Text: "b"}, {Text: "c"}})
	assert.Equal(t, 3, b.Len())
	b.Reset()
	assert.Zero(t, b.Len())
}

func TestFormatSkipsNameAlreadyInDecl(t *testing.T) {
	assert.Equal(t, "int bar", Format(Row{Text: "int bar", Name: "bar"}, false))
	assert.Equal(t, "int foobar bar", Format(Row{Text: "int foobar", Name: "bar"}, false))
	assert.Equal(t, "char *strdup", Format(Row{Text: "char *strdup", Name: "strdup"}, false))
}

func TestBuffer(t *testing.T) {
	var b Buffer
	b.Add(Row{Level: 0, Role: graph.RoleFile, Text: "a.c"})
	b.Append([]Row{
		{Level: 1, Role: graph.RoleExported, Text: "int f", Name: "f"},
		{Level: 2, Role: graph.RoleArg, Text: "int", Name: "x"},
	})
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, "a.c\n int f\n  int x\n", String(b.Rows(), Options{}))

	b.Reset()
	assert.Zero(t, b.Len())
}
