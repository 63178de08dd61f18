package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFiles(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	for _, name := range []string{"install.hcl", "a.hcl", "a/drivers.hcl", "a/README.md", ".git/config.hcl"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	// --- Act ---
	files, err := FindFiles(root, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.hcl"),
		filepath.Join(root, "a", "drivers.hcl"),
		filepath.Join(root, "install.hcl"),
	}, files, "sorted by full path, hidden directories skipped")

	t.Run("empty extension panics", func(t *testing.T) {
		assert.Panics(t, func() { _, _ = FindFiles(root, "") })
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := FindFiles(filepath.Join(root, "nope"), ".hcl")
		assert.Error(t, err)
	})
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "ADCORE.sh")
	require.NoError(t, os.WriteFile(src, []byte("#!/bin/bash\nmake\n"), 0o755))

	dst := filepath.Join(dir, "copy.sh")
	require.NoError(t, CopyFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "#!/bin/bash\nmake\n", string(data))
	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o755), info.Mode().Perm())

	assert.True(t, Exists(dst))
	assert.False(t, Exists(filepath.Join(dir, "missing")))
	assert.Error(t, CopyFile(dir, filepath.Join(dir, "x")))
}
