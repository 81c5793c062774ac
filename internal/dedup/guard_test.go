package dedup

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/sqlite"
)

func newTestGuard(t *testing.T) *Guard {
	t.Helper()
	store, err := sqlite.NewStore(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewGuard(store)
}

func TestClaimIsIdempotentForSameContent(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()
	h := Hash("We are raising $6M")

	c, err := g.Claim(ctx, "email", "m1", h)
	require.NoError(t, err)
	assert.True(t, c.Won)

	c, err = g.Claim(ctx, "email", "m1", h)
	require.NoError(t, err)
	assert.False(t, c.Won)

	processed, err := g.IsProcessed(ctx, "email", "m1", h)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestClaimTakesOverOnNewContent(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()
	h1, h2 := Hash("v1"), Hash("v2")

	_, err := g.Claim(ctx, "email", "m1", h1)
	require.NoError(t, err)
	require.NoError(t, g.Record(ctx, "email", "m1", h1, 3))

	c, err := g.Claim(ctx, "email", "m1", h2)
	require.NoError(t, err)
	assert.True(t, c.Won)

	row, err := g.Lookup(ctx, "email", "m1")
	require.NoError(t, err)
	assert.Equal(t, h2, row.ContentHash)
	assert.Equal(t, 0, row.StickyCount)

	processed, err := g.IsProcessed(ctx, "email", "m1", h1)
	require.NoError(t, err)
	assert.False(t, processed, "ledger reflects the latest hash only")
}

func TestRecordOverwrites(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()

	require.NoError(t, g.Record(ctx, "chat", "c1", Hash("a"), 1))
	require.NoError(t, g.Record(ctx, "chat", "c1", Hash("b"), 2))

	row, err := g.Lookup(ctx, "chat", "c1")
	require.NoError(t, err)
	assert.Equal(t, Hash("b"), row.ContentHash)
	assert.Equal(t, 2, row.StickyCount)

	seen, err := g.Seen(ctx, Hash("a"))
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestReleaseOnlyMatchingHash(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()
	h1, h2 := Hash("one"), Hash("two")

	first, err := g.Claim(ctx, "crm", "n1", h1)
	require.NoError(t, err)
	second, err := g.Claim(ctx, "crm", "n1", h2)
	require.NoError(t, err)

	require.NoError(t, g.Release(ctx, first))
	processed, err := g.IsProcessed(ctx, "crm", "n1", h2)
	require.NoError(t, err)
	assert.True(t, processed, "a stale release must not touch the newer claim")

	require.NoError(t, g.Release(ctx, second))
	processed, err = g.IsProcessed(ctx, "crm", "n1", h1)
	require.NoError(t, err)
	assert.True(t, processed, "releasing the takeover puts the first claim back")
}

func TestReleaseDeletesFreshClaim(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()

	c, err := g.Claim(ctx, "crm", "n2", Hash("only"))
	require.NoError(t, err)
	require.NoError(t, g.Release(ctx, c))

	_, err = g.Lookup(ctx, "crm", "n2")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestReleaseRestoresRecordedRow(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()
	orig, changed := Hash("original"), Hash("changed")

	c, err := g.Claim(ctx, "email", "m9", orig)
	require.NoError(t, err)
	require.True(t, c.Won)
	require.NoError(t, g.Record(ctx, "email", "m9", orig, 2))

	takeover, err := g.Claim(ctx, "email", "m9", changed)
	require.NoError(t, err)
	require.True(t, takeover.Won)
	require.NoError(t, g.Release(ctx, takeover))

	row, err := g.Lookup(ctx, "email", "m9")
	require.NoError(t, err)
	assert.Equal(t, orig, row.ContentHash)
	assert.Equal(t, 2, row.StickyCount)

	again, err := g.Claim(ctx, "email", "m9", orig)
	require.NoError(t, err)
	assert.False(t, again.Won, "original content is still processed")
}

func TestReleaseIgnoresLostClaim(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()
	h := Hash("same")

	_, err := g.Claim(ctx, "chat", "c7", h)
	require.NoError(t, err)
	lost, err := g.Claim(ctx, "chat", "c7", h)
	require.NoError(t, err)
	require.False(t, lost.Won)

	require.NoError(t, g.Release(ctx, lost))
	processed, err := g.IsProcessed(ctx, "chat", "c7", h)
	require.NoError(t, err)
	assert.True(t, processed)
}

func TestClaimRequiresFields(t *testing.T) {
	g := newTestGuard(t)
	_, err := g.Claim(context.Background(), "", "x", Hash("x"))
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestIsProcessedUnknownSource(t *testing.T) {
	g := newTestGuard(t)
	processed, err := g.IsProcessed(context.Background(), "chat", "nope", Hash("x"))
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestConcurrentClaimsSingleWinner(t *testing.T) {
	g := newTestGuard(t)
	ctx := context.Background()
	h := Hash("race")

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := g.Claim(ctx, "chat", "race", h)
			if err == nil && c.Won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
