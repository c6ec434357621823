package input

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sample.nwb")
	require.NoError(t, os.WriteFile(path, []byte("HDF"), 0600))

	t.Run("existing file", func(t *testing.T) {
		f, err := Resolve(path)
		require.NoError(t, err)
		assert.Equal(t, path, f.Abs)
		assert.Equal(t, "sample.nwb", f.Base)
		assert.Equal(t, int64(3), f.Size)
	})

	t.Run("relative path is made absolute", func(t *testing.T) {
		t.Chdir(dir)
		f, err := Resolve("sample.nwb")
		require.NoError(t, err)
		assert.True(t, filepath.IsAbs(f.Abs))
		assert.Equal(t, "sample.nwb", f.Base)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Resolve(filepath.Join(dir, "missing.nwb"))
		assert.ErrorIs(t, err, ErrFileNotFound)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Resolve(dir)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Resolve("")
		assert.ErrorIs(t, err, ErrFileNotFound)
	})
}
