package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	for _, rel := range []string{
		"_objects/O1.hcl",
		"_meshes/M1.hcl",
		"_meshes/notes.txt",
		"_meshes/fakehcl",
		".cache/old.hcl",
	} {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}

	// --- Act ---
	files, err := FindFilesByExtension(root, ".hcl")

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "_meshes", "M1.hcl"),
		filepath.Join(root, "_objects", "O1.hcl"),
	}, files)

	t.Run("empty extension", func(t *testing.T) {
		_, err := FindFilesByExtension(root, "")
		assert.Error(t, err)
	})

	t.Run("missing root", func(t *testing.T) {
		_, err := FindFilesByExtension(filepath.Join(root, "nope"), "hcl")
		assert.Error(t, err)
	})
}
