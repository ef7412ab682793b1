package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChecksumIgnoresTrailingSpace(t *testing.T) {
	assert.Equal(t, Checksum("struct foo"), Checksum("struct foo "))
	assert.NotEqual(t, Checksum("struct foo"), Checksum("struct foo *"))
	assert.NotZero(t, Checksum("int"))
}

func TestSegmentURIRoundTrip(t *testing.T) {
	path := filepath.Join("drivers", "net", "foo.kabi")
	uri := SegmentURI(path)
	assert.Equal(t, "kabimap://segments/drivers/net/foo.kabi", uri)
	assert.Equal(t, path, URIToSegmentPath(uri))
	assert.Equal(t, "other://x", URIToSegmentPath("other://x"))
}

func TestFindRootFrom(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".kabimap.yaml"), nil, 0644))

	assert.Equal(t, root, findRootFrom(nested, ".kabimap.yaml"))
}
