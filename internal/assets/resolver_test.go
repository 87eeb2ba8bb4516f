package assets

import (
	"os"
	"path/filepath"
	"testing"

	"grading-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestResolvePrefersExtensionOrder(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "scan1.jpg"))
	touch(t, filepath.Join(dir, "scan1.png"))

	r := NewResolver(dir, nil)
	path, err := r.Resolve("scan1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan1.jpg"), path, ".jpg outranks .png")
}

func TestResolveKeyWithExtension(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "scan1.png"))

	r := NewResolver(dir, nil)
	path, err := r.Resolve("scan1.png")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan1.png"), path)
}

func TestResolveMissingAsset(t *testing.T) {
	r := NewResolver(t.TempDir(), nil)

	_, err := r.Resolve("scan9")
	assert.ErrorIs(t, err, models.ErrAssetNotFound)
}

func TestResolveIgnoresDirectories(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scan1.jpg"), 0o755))
	touch(t, filepath.Join(dir, "scan1.png"))

	r := NewResolver(dir, nil)
	path, err := r.Resolve("scan1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "scan1.png"), path)
}
