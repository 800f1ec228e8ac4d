package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/credstore"
	"github.com/dmitrymomot/wamux/pkg/waclient"
	"github.com/dmitrymomot/wamux/pkg/waclient/waclienttest"
)

func TestEmptySlotsAreSwept(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var failing atomic.Bool
	failing.Store(true)
	factory := waclienttest.NewFactory()
	factory.BeforeCreate(func(_ context.Context, opts waclient.Options) error {
		if failing.Load() && strings.HasPrefix(opts.TenantID, "gone-") {
			return errors.New("bridge unreachable")
		}
		return nil
	})
	sup, err := New(credstore.NewMemoryStore(), factory.New)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sup.Shutdown(context.Background()) })

	require.NoError(t, sup.Start(ctx, "live", "conn-live"))
	firstGen := sup.Sessions()[0].Generation

	for i := range minSweep - 1 {
		err := sup.Start(ctx, fmt.Sprintf("gone-%d", i), "conn")
		require.ErrorIs(t, err, ErrInitializationFailure)
	}
	require.Equal(t, minSweep, sup.registered())

	// the next new tenant triggers a sweep that keeps only the live slot
	require.ErrorIs(t, sup.Start(ctx, "gone-last", "conn"), ErrInitializationFailure)
	assert.Equal(t, 2, sup.registered())
	status, ok := sup.Status("live")
	require.True(t, ok)
	assert.True(t, status.Live())

	// a swept tenant starts again on a fresh slot with a newer generation
	failing.Store(false)
	require.NoError(t, sup.Start(ctx, "gone-0", "conn"))
	found := false
	for _, info := range sup.Sessions() {
		if info.TenantID == "gone-0" {
			found = true
			assert.Greater(t, info.Generation, firstGen)
		}
	}
	assert.True(t, found)
}

func TestStartSkipsRetiredSlot(t *testing.T) {
	t.Parallel()
	sup, err := New(credstore.NewMemoryStore(), waclienttest.NewFactory().New)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sup.Shutdown(context.Background()) })

	stale, err := sup.slotFor("school-1")
	require.NoError(t, err)
	sup.mu.Lock()
	sup.sweepLocked()
	sup.mu.Unlock()
	require.True(t, stale.retired)

	require.NoError(t, sup.Start(context.Background(), "school-1", "conn-a"))
	assert.Nil(t, stale.rec, "a retired slot never receives a record")
	_, ok := sup.Status("school-1")
	assert.True(t, ok)
}
