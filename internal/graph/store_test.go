package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildFileGraph(t *testing.T, file, fn, member string) *Store {
	t.Helper()
	b := NewBuilder()
	root := mustInsert(t, b, Record{Decl: file, Role: RoleFile}, nil)
	exp := mustInsert(t, b, Record{Decl: "int " + fn, Name: fn, Role: RoleExported}, &root)
	arg := mustInsert(t, b, Record{Decl: "struct shared *", Name: "s", Role: RoleArg}, &exp)
	sh := mustInsert(t, b, Record{Decl: "struct shared", Role: RoleNested}, &arg)
	mustInsert(t, b, Record{Decl: member, Name: "m", Role: RoleNested}, &sh)
	return b.Store()
}

func TestStoreMatchIsKeyOrdered(t *testing.T) {
	s := buildFileGraph(t, "a.c", "alpha", "long")

	matches := s.Match("struct")
	require.Len(t, matches, 2)
	assert.Less(t, matches[0].Key, matches[1].Key)
	assert.Empty(t, s.Match("no such thing"))
}

func TestStoreMergeKeepsSegmentsApart(t *testing.T) {
	a := buildFileGraph(t, "a.c", "alpha", "long")
	b := buildFileGraph(t, "b.c", "beta", "short")
	aKeys, bKeys := a.Keys(), b.Keys()
	aMax := a.MaxOrder()
	aRoot := a.Root()

	a.Merge(b)
	require.NoError(t, a.Validate())

	union := map[Key]bool{}
	for _, k := range append(aKeys, bKeys...) {
		union[k] = true
	}
	assert.Len(t, a.Keys(), len(union))
	assert.Equal(t, aRoot, a.Root())

	shared, ok := a.Find("struct shared")
	require.True(t, ok)
	require.Len(t, shared.Siblings, 2)
	require.Len(t, shared.Children, 2)

	// each occurrence's members come from its own segment
	for _, c := range shared.Children {
		child, ok := a.Occurrence(c)
		require.True(t, ok)
		parent, ok := a.Parent(child)
		require.True(t, ok)
		fn, ok := a.Lookup(child.Function.Key)
		require.True(t, ok)
		if parent.Order > aMax {
			assert.Equal(t, "int beta", fn.Text)
			assert.Equal(t, "short", mustDecl(t, a, child.Key).Text)
		} else {
			assert.Equal(t, "int alpha", fn.Text)
			assert.Equal(t, "long", mustDecl(t, a, child.Key).Text)
		}
	}
}

func TestOccurrenceLookupMiss(t *testing.T) {
	s := buildFileGraph(t, "a.c", "alpha", "long")
	_, ok := s.Occurrence(Link{Key: KeyOf("long"), Order: 999})
	assert.False(t, ok)
	_, ok = s.Occurrence(Link{Key: 7, Order: 1})
	assert.False(t, ok)
}

func mustDecl(t *testing.T, s *Store, k Key) *Decl {
	t.Helper()
	d, ok := s.Lookup(k)
	require.True(t, ok)
	return d
}
