package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// newTestStore creates an in-memory SQLite store for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newTestSticky(id string) *types.StickyNote {
	now := time.Now().UTC().Truncate(time.Second)
	return &types.StickyNote{
		ID:              id,
		SourceType:      "email",
		SourceID:        "msg-1",
		OriginalContent: "We are raising $6M",
		ExtractedText:   "Funding: raising $6M",
		Category:        types.CategoryOpportunity,
		ImportanceScore: 1.08,
		UrgencyScore:    0.5,
		RelevanceScore:  0.5,
		ConfidenceScore: 0.88,
		Amount:          "$6M",
		Company:         "BillCo Inc",
		FollowUpDate:    now.Add(10 * 24 * time.Hour),
		CreatedAt:       now,
	}
}

func createSticky(t *testing.T, store *Store, note *types.StickyNote) {
	t.Helper()
	created, err := store.CreateSticky(context.Background(), note)
	require.NoError(t, err)
	require.True(t, created)
}

func TestStickyRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	note := newTestSticky("sticky_1")
	createSticky(t, store, note)

	got, err := store.GetSticky(ctx, "sticky_1")
	require.NoError(t, err)
	assert.Equal(t, types.CategoryOpportunity, got.Category)
	assert.Equal(t, types.StickyActive, got.Status)
	assert.Equal(t, "$6M", got.Amount)
	assert.Equal(t, "BillCo Inc", got.Company)
	assert.Empty(t, got.Timeline)
	assert.InDelta(t, 0.88, got.ConfidenceScore, 1e-9)
	assert.True(t, got.FollowUpDate.Equal(note.FollowUpDate))
}

func TestCreateStickyKeepsExisting(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createSticky(t, store, newTestSticky("sticky_dup"))
	require.NoError(t, store.UpdateStickyStatus(ctx, "sticky_dup", types.StickyActive, types.StickyActionTaken, time.Now()))

	again := newTestSticky("sticky_dup")
	again.Amount = "$9M"
	created, err := store.CreateSticky(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.GetSticky(ctx, "sticky_dup")
	require.NoError(t, err)
	assert.Equal(t, "$6M", got.Amount)
	assert.Equal(t, types.StickyActionTaken, got.Status)

	all, err := store.ListStickies(ctx, storage.StickyFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestGetStickyNotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.GetSticky(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateStickyRejectsLowConfidence(t *testing.T) {
	store := newTestStore(t)
	note := newTestSticky("sticky_low")
	note.ConfidenceScore = 0.4
	_, err := store.CreateSticky(context.Background(), note)
	assert.Error(t, err)
}

func TestCreateStickyRejectsUnknownCategory(t *testing.T) {
	store := newTestStore(t)
	note := newTestSticky("sticky_bad")
	note.Category = "gossip"
	_, err := store.CreateSticky(context.Background(), note)
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestUpdateStickyStatusCompareAndSet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createSticky(t, store, newTestSticky("sticky_cas"))

	require.NoError(t, store.UpdateStickyStatus(ctx, "sticky_cas", types.StickyActive, types.StickyActionTaken, time.Now()))

	err := store.UpdateStickyStatus(ctx, "sticky_cas", types.StickyActive, types.StickyFalsePositive, time.Now())
	assert.ErrorIs(t, err, types.ErrInvalidTransition)

	err = store.UpdateStickyStatus(ctx, "nope", types.StickyActive, types.StickyFalsePositive, time.Now())
	assert.ErrorIs(t, err, storage.ErrNotFound)

	got, err := store.GetSticky(ctx, "sticky_cas")
	require.NoError(t, err)
	assert.Equal(t, types.StickyActionTaken, got.Status)
}

func TestListStickiesFilters(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	a := newTestSticky("sticky_a")
	b := newTestSticky("sticky_b")
	b.SourceID = "msg-2"
	b.CreatedAt = a.CreatedAt.Add(time.Minute)
	createSticky(t, store, a)
	createSticky(t, store, b)
	require.NoError(t, store.UpdateStickyStatus(ctx, "sticky_a", types.StickyActive, types.StickyFalsePositive, time.Now()))

	active, err := store.ListStickies(ctx, storage.StickyFilter{Status: types.StickyActive})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "sticky_b", active[0].ID)

	all, err := store.ListStickies(ctx, storage.StickyFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "sticky_b", all[0].ID, "newest first")

	bySource, err := store.ListStickies(ctx, storage.StickyFilter{SourceType: "email", SourceID: "msg-1"})
	require.NoError(t, err)
	require.Len(t, bySource, 1)
}

func TestSetStickyMemory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	createSticky(t, store, newTestSticky("sticky_m"))

	require.NoError(t, store.SetStickyMemory(ctx, "sticky_m", "mem_1"))
	got, err := store.GetSticky(ctx, "sticky_m")
	require.NoError(t, err)
	assert.Equal(t, "mem_1", got.MemoryID)

	assert.ErrorIs(t, store.SetStickyMemory(ctx, "missing", "mem_1"), storage.ErrNotFound)
}

func TestClaimSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	src := &types.ProcessedSource{SourceType: "chat", SourceID: "c1", ContentHash: "h1"}
	won, prev, err := store.ClaimSource(ctx, src)
	require.NoError(t, err)
	assert.True(t, won)
	assert.Nil(t, prev)

	won, prev, err = store.ClaimSource(ctx, &types.ProcessedSource{SourceType: "chat", SourceID: "c1", ContentHash: "h1"})
	require.NoError(t, err)
	assert.False(t, won, "same hash must not be claimed twice")
	assert.Nil(t, prev)

	require.NoError(t, store.UpsertProcessedSource(ctx, &types.ProcessedSource{
		SourceType: "chat", SourceID: "c1", ContentHash: "h1", StickyCount: 3,
	}))

	won, prev, err = store.ClaimSource(ctx, &types.ProcessedSource{SourceType: "chat", SourceID: "c1", ContentHash: "h2"})
	require.NoError(t, err)
	assert.True(t, won, "new content for the same source is claimable")
	require.NotNil(t, prev)
	assert.Equal(t, "h1", prev.ContentHash)
	assert.Equal(t, 3, prev.StickyCount)

	got, err := store.GetProcessedSource(ctx, "chat", "c1")
	require.NoError(t, err)
	assert.Equal(t, "h2", got.ContentHash)
	assert.Equal(t, 0, got.StickyCount)
}

func TestClaimSourceConcurrent(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(filepath.Join(dir, "claim.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			won, _, err := store.ClaimSource(ctx, &types.ProcessedSource{SourceType: "email", SourceID: "race", ContentHash: "same"})
			if err != nil {
				t.Errorf("ClaimSource: %v", err)
				return
			}
			if won {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestReleaseSourceOnlyMatchingHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, _, err := store.ClaimSource(ctx, &types.ProcessedSource{SourceType: "chat", SourceID: "r", ContentHash: "h1"})
	require.NoError(t, err)

	require.NoError(t, store.ReleaseSource(ctx, "chat", "r", "other", nil))
	_, err = store.GetProcessedSource(ctx, "chat", "r")
	require.NoError(t, err)

	require.NoError(t, store.ReleaseSource(ctx, "chat", "r", "h1", nil))
	_, err = store.GetProcessedSource(ctx, "chat", "r")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReleaseSourceRestoresPrevious(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.UpsertProcessedSource(ctx, &types.ProcessedSource{
		SourceType: "email", SourceID: "e1", ContentHash: "orig", StickyCount: 2, ProcessedAt: at,
	}))
	won, prev, err := store.ClaimSource(ctx, &types.ProcessedSource{SourceType: "email", SourceID: "e1", ContentHash: "next"})
	require.NoError(t, err)
	require.True(t, won)
	require.NotNil(t, prev)

	require.NoError(t, store.ReleaseSource(ctx, "email", "e1", "next", prev))
	got, err := store.GetProcessedSource(ctx, "email", "e1")
	require.NoError(t, err)
	assert.Equal(t, "orig", got.ContentHash)
	assert.Equal(t, 2, got.StickyCount)
	assert.True(t, got.ProcessedAt.Equal(at))
}

func TestHasContentHash(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	ok, err := store.HasContentHash(ctx, "h")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.UpsertProcessedSource(ctx, &types.ProcessedSource{SourceType: "a", SourceID: "b", ContentHash: "h"}))
	ok, err = store.HasContentHash(ctx, "h")
	require.NoError(t, err)
	assert.True(t, ok)
}

func newTestMemory(id string, level int, created time.Time) *types.MemoryItem {
	return &types.MemoryItem{
		ID:              id,
		Content:         "content for " + id,
		Category:        types.MemoryCategoryGeneral,
		ImportanceLevel: level,
		RetentionDays:   types.RetentionDaysFor(level),
		Vector:          []float32{0.6, 0.8, 0},
		Metadata:        map[string]interface{}{"source": "test"},
		DeviceID:        "laptop",
		CreatedAt:       created,
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("mem_1", 2, created)))

	got, err := store.GetMemory(ctx, "mem_1")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.6, 0.8, 0}, got.Vector)
	assert.Equal(t, "test", got.Metadata["source"])
	assert.Equal(t, 30, got.RetentionDays)
	assert.Nil(t, got.LastAccessed)
	assert.True(t, got.CreatedAt.Equal(created))
}

func TestUpsertMemoryKeepsRetentionDays(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	item := newTestMemory("mem_r", 1, time.Now())
	require.NoError(t, store.UpsertMemory(ctx, item))

	item.ImportanceLevel = 4
	item.RetentionDays = 1
	require.NoError(t, store.UpsertMemory(ctx, item))

	got, err := store.GetMemory(ctx, "mem_r")
	require.NoError(t, err)
	assert.Equal(t, 4, got.ImportanceLevel)
	assert.Equal(t, 365, got.RetentionDays)
}

func TestUpsertMemoryRejectsBadLevel(t *testing.T) {
	store := newTestStore(t)
	err := store.UpsertMemory(context.Background(), newTestMemory("mem_bad", 7, time.Now()))
	assert.ErrorIs(t, err, storage.ErrInvalidInput)
}

func TestTouchMemory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("mem_t", 3, time.Now())))

	at := time.Now().UTC().Truncate(time.Second)
	require.NoError(t, store.TouchMemory(ctx, "mem_t", at))
	require.NoError(t, store.TouchMemory(ctx, "mem_t", at))

	got, err := store.GetMemory(ctx, "mem_t")
	require.NoError(t, err)
	assert.Equal(t, 2, got.AccessCount)
	require.NotNil(t, got.LastAccessed)
	assert.True(t, got.LastAccessed.Equal(at))

	assert.ErrorIs(t, store.TouchMemory(ctx, "missing", at), storage.ErrNotFound)
}

func TestListCleanupCandidates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("old_critical", 1, now.AddDate(0, 0, -400))))
	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("old_low", 4, now.AddDate(0, 0, -31))))
	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("new_low", 4, now.Add(-time.Hour))))

	items, err := store.ListCleanupCandidates(ctx, 3, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "old_low", items[0].ID)
}

func TestDeleteMemory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("mem_d", 4, time.Now())))

	require.NoError(t, store.DeleteMemory(ctx, "mem_d"))
	_, err := store.GetMemory(ctx, "mem_d")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, store.DeleteMemory(ctx, "mem_d"), storage.ErrNotFound)
}

func TestListVectorsInCreationOrder(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("second", 3, now)))
	require.NoError(t, store.UpsertMemory(ctx, newTestMemory("first", 3, now.Add(-time.Minute))))
	noVec := newTestMemory("novec", 3, now)
	noVec.Vector = nil
	require.NoError(t, store.UpsertMemory(ctx, noVec))

	records, err := store.ListVectors(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "first", records[0].ID)
	assert.Equal(t, "second", records[1].ID)
}

func TestDeviceQueries(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	a := newTestMemory("a", 3, now.Add(-2*time.Hour))
	b := newTestMemory("b", 3, now.Add(-time.Hour))
	b.DeviceID = "phone"
	c := newTestMemory("c", 3, now)
	c.DeviceID = "phone"
	for _, m := range []*types.MemoryItem{a, b, c} {
		require.NoError(t, store.UpsertMemory(ctx, m))
	}

	devices, err := store.ListDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"laptop", "phone"}, devices)

	items, err := store.ListMemoriesByDevice(ctx, "phone", now.Add(-90*time.Minute))
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "b", items[0].ID)

	items, err = store.ListMemoriesByDevice(ctx, "phone", now.Add(-30*time.Minute))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "c", items[0].ID)
}

func TestRelationships(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rel := &types.MemoryRelationship{MemoryIDA: "a", MemoryIDB: "b", RelationshipType: types.RelationDerivedOpportunity, Strength: 0.8}
	require.NoError(t, store.UpsertRelationship(ctx, rel))

	rel.Strength = 0.9
	require.NoError(t, store.UpsertRelationship(ctx, rel))

	rels, err := store.ListRelationships(ctx, "b")
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.InDelta(t, 0.9, rels[0].Strength, 1e-9)

	bad := &types.MemoryRelationship{MemoryIDA: "a", MemoryIDB: "c", RelationshipType: "x", Strength: 1.5}
	assert.ErrorIs(t, store.UpsertRelationship(ctx, bad), storage.ErrInvalidInput)
}

func TestSyncLog(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.LastSyncTime(ctx, "phone")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	t1 := time.Now().UTC().Add(-time.Hour).Truncate(time.Second)
	t2 := t1.Add(30 * time.Minute)
	require.NoError(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{
		ID: "s1", DeviceID: "phone", Operation: types.SyncOperationPull, MemoryID: "m1",
		Timestamp: t1, Status: types.SyncStatusCompleted, ConflictResolution: types.ConflictAcceptIncoming,
	}))
	require.NoError(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{
		ID: "s2", DeviceID: "phone", Operation: types.SyncOperationPull, MemoryID: "m2",
		Timestamp: t2, Status: types.SyncStatusCompleted,
	}))
	require.NoError(t, store.AppendSyncLog(ctx, &types.SyncLogEntry{
		ID: "s3", DeviceID: "phone", Operation: types.SyncOperationPull, MemoryID: "m3",
		Timestamp: t2.Add(time.Minute), Status: types.SyncStatusFailed,
	}))

	last, err := store.LastSyncTime(ctx, "phone")
	require.NoError(t, err)
	assert.True(t, last.Equal(t2))

	entries, err := store.ListSyncLog(ctx, "phone", 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "s3", entries[0].ID)
	assert.Equal(t, types.ConflictAcceptIncoming, entries[2].ConflictResolution)
}

func TestDBPathFromDSN(t *testing.T) {
	assert.Equal(t, "", dbPathFromDSN(":memory:"))
	assert.Equal(t, "/tmp/x.db", dbPathFromDSN("/tmp/x.db"))
	assert.Equal(t, "/tmp/x.db", dbPathFromDSN("file:/tmp/x.db?mode=rwc"))
	assert.Equal(t, "", dbPathFromDSN("file::memory:?cache=shared"))
}
