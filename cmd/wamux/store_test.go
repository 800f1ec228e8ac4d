package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/logger"
)

func TestOpenStoreLocalReadiness(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "credentials")

	backend, err := openStore(ctx, appConfig{CredentialStore: "local", CredentialDir: dir}, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(backend.close)
	require.Len(t, backend.checks, 1)
	assert.NoError(t, backend.checks[0](ctx))

	require.NoError(t, os.RemoveAll(dir))
	assert.ErrorIs(t, backend.checks[0](ctx), credstore.ErrStoreUnavailable)
}

func TestOpenStoreUnknownBackend(t *testing.T) {
	t.Parallel()
	_, err := openStore(context.Background(), appConfig{CredentialStore: "floppy"}, logger.Nop())
	assert.ErrorIs(t, err, credstore.ErrInvalidConfig)
}
