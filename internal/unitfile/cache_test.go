package unitfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`datablock "mesh" "M1" {}`), 0o644))

	c, err := NewCache(4)
	require.NoError(t, err)

	first, err := c.Read(path)
	require.NoError(t, err)
	second, err := c.Read(path)
	require.NoError(t, err)
	assert.Same(t, first, second, "unchanged files are served from the cache")
	assert.Equal(t, 1, c.Len())

	t.Run("changed content is reparsed", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte("datablock \"mesh\" \"M1\" {}\ndatablock \"mesh\" \"M2\" {}\n"), 0o644))
		changed, err := c.Read(path)
		require.NoError(t, err)
		assert.NotSame(t, first, changed)
		assert.Len(t, changed.Datablocks, 2)
	})

	t.Run("invalidate", func(t *testing.T) {
		c.Invalidate(path)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("missing file drops the entry", func(t *testing.T) {
		_, err := c.Read(path)
		require.NoError(t, err)
		require.NoError(t, os.Remove(path))
		_, err = c.Read(path)
		assert.Error(t, err)
		assert.Equal(t, 0, c.Len())
	})
}
