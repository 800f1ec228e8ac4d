package credstore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/credstore"
)

func TestLocalStore(t *testing.T) {
	t.Parallel()
	runStoreContract(t, func(t *testing.T) credstore.Store {
		s, err := credstore.NewLocalStore(t.TempDir())
		require.NoError(t, err)
		return s
	})
}

func TestLocalStoreLayout(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "nested", "sessions")

	s, err := credstore.NewLocalStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Healthcheck(ctx))

	require.NoError(t, s.Save(ctx, "school-1", []byte("blob")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files must not be left behind")
	assert.Equal(t, "school-1.session", entries[0].Name())

	info, err := os.Stat(filepath.Join(dir, "school-1.session"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLocalStoreHonoursContext(t *testing.T) {
	t.Parallel()
	s, err := credstore.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, "school-1", []byte("x")), context.Canceled)
	assert.False(t, s.Exists(context.Background(), "school-1"))
}

func TestLocalStoreConfig(t *testing.T) {
	t.Parallel()
	_, err := credstore.NewLocalStore("  ")
	assert.ErrorIs(t, err, credstore.ErrInvalidConfig)

	dir := t.TempDir()
	s, err := credstore.NewLocalStore(dir, credstore.WithFilePerm(0o640))
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "school-1", []byte("x")))
	info, err := os.Stat(filepath.Join(dir, "school-1.session"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())

	require.NoError(t, os.RemoveAll(dir))
	assert.ErrorIs(t, s.Healthcheck(context.Background()), credstore.ErrStoreUnavailable)
}
