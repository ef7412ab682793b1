package whitelist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadUnionsMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0644))
	}
	write("kabi_whitelist_x86_64", "[rhel_kabi_whitelist]\n\t0x1a2b3c4d\tqueue_work\n\t0x00000001\tschedule_work\n")
	write("kabi_whitelist_s390x", "0xdeadbeef kmalloc vmlinux\n")
	write("README", "0x0 ignored_symbol\n")

	set, err := Load(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"kmalloc", "queue_work", "schedule_work"}, set.Names())
	assert.False(t, set["ignored_symbol"])
}

func TestLoadMissingDir(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope"), "")
	assert.ErrorIs(t, err, ErrNoDir)
}
