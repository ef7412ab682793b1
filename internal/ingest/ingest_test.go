package ingest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kabimap/internal/graph"
)

const twoFiles = `
{"id":1,"decl":"lib/list.c","role":"file"}
{"id":2,"parent":1,"decl":"int bar","name":"bar","role":"exported","flags":["function"]}
{"id":3,"parent":2,"decl":"struct foo *","name":"f","role":"arg","flags":["pointer"]}
{"id":4,"parent":3,"decl":"struct foo","role":"nested","flags":["struct"]}
{"id":5,"parent":4,"decl":"struct foo *","name":"next","role":"nested","flags":["pointer","backptr"]}
{"id":1,"decl":"lib/other.c","role":"file"}
{"id":2,"parent":1,"decl":"void baz","name":"baz","role":"exported"}
`

func TestReadSplitsPerFile(t *testing.T) {
	var stores []*graph.Store
	var stats []Stats
	err := Read(strings.NewReader(twoFiles), func(s *graph.Store, st Stats) error {
		stores = append(stores, s)
		stats = append(stats, st)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, stores, 2)

	assert.Equal(t, Stats{File: "lib/list.c", Records: 5, Duplicates: 1, Decls: 4}, stats[0])
	assert.Equal(t, Stats{File: "lib/other.c", Records: 2, Decls: 2}, stats[1])

	foo, ok := stores[0].Find("struct foo")
	require.True(t, ok)
	require.Len(t, foo.Children, 1)
	next, ok := stores[0].Occurrence(foo.Children[0])
	require.True(t, ok)
	assert.True(t, next.Flags.Has(graph.FlagBackPointer))

	_, ok = stores[1].Find("struct foo")
	assert.False(t, ok)
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"bad json", `{"id":`, "line 1"},
		{"bad role", `{"id":1,"decl":"a.c","role":"bogus"}`, "unknown role"},
		{"bad flag", `{"id":1,"decl":"a.c","role":"file","flags":["shiny"]}`, "unknown flag"},
		{"no file", `{"id":2,"parent":1,"decl":"int","role":"arg"}`, "before any file"},
		{"unknown parent", "{\"id\":1,\"decl\":\"a.c\",\"role\":\"file\"}\n{\"id\":2,\"parent\":7,\"decl\":\"int\",\"role\":\"arg\"}", "line 2: unknown parent id 7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Read(strings.NewReader(tt.input), func(*graph.Store, Stats) error { return nil })
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
