package devicesync

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage/sqlite"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seed(t *testing.T, store *sqlite.Store, id, device string, at time.Time) {
	t.Helper()
	require.NoError(t, store.UpsertMemory(context.Background(), &types.MemoryItem{
		ID:              id,
		Content:         "content " + id,
		Category:        "general",
		ImportanceLevel: 3,
		RetentionDays:   1,
		DeviceID:        device,
		CreatedAt:       at,
	}))
}

type rejectAll struct{}

func (rejectAll) Resolve(context.Context, *types.MemoryItem) (string, bool, error) {
	return "keep_local", false, nil
}

type failOn struct{ id string }

func (f failOn) Resolve(_ context.Context, item *types.MemoryItem) (string, bool, error) {
	if item.ID == f.id {
		return "", false, errors.New("diverged")
	}
	return types.ConflictAcceptIncoming, true, nil
}

func TestSyncWithDeviceAcceptsIncoming(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "mem_1", "phone", t0)
	seed(t, store, "mem_2", "phone", t0.Add(time.Minute))
	seed(t, store, "mem_3", "laptop", t0.Add(time.Minute))

	c := NewCoordinator(store, nil, nil, "laptop")
	report, err := c.SyncWithDevice(context.Background(), "phone", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Reconciled)
	require.Len(t, report.Entries, 2)
	for _, e := range report.Entries {
		assert.Equal(t, types.SyncStatusCompleted, e.Status)
		assert.Equal(t, types.ConflictAcceptIncoming, e.ConflictResolution)
		assert.Equal(t, types.SyncOperationPull, e.Operation)
		assert.NotEmpty(t, e.ID)
	}

	history, err := c.History(context.Background(), "phone", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)
}

func TestSyncWithDeviceResumesFromLastSync(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store, "mem_1", "phone", t0)

	c := NewCoordinator(store, nil, nil, "laptop")
	first, err := c.SyncWithDevice(ctx, "phone", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Reconciled)

	again, err := c.SyncWithDevice(ctx, "phone", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, again.Reconciled)
	assert.True(t, again.Since.Equal(t0))

	seed(t, store, "mem_2", "phone", t0.Add(time.Hour))
	next, err := c.SyncWithDevice(ctx, "phone", nil)
	require.NoError(t, err)
	require.Len(t, next.Entries, 1)
	assert.Equal(t, "mem_2", next.Entries[0].MemoryID)
}

func TestSyncWithDeviceExplicitSince(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "mem_1", "phone", t0)
	seed(t, store, "mem_2", "phone", t0.Add(2*time.Hour))

	c := NewCoordinator(store, nil, nil, "laptop")
	since := t0.Add(time.Hour)
	report, err := c.SyncWithDevice(context.Background(), "phone", &since)
	require.NoError(t, err)
	require.Len(t, report.Entries, 1)
	assert.Equal(t, "mem_2", report.Entries[0].MemoryID)
}

func TestSyncConflictsAreNeverFatal(t *testing.T) {
	store := newTestStore(t)
	seed(t, store, "mem_1", "phone", t0)
	seed(t, store, "mem_2", "phone", t0.Add(time.Minute))

	c := NewCoordinator(store, nil, failOn{id: "mem_1"}, "laptop")
	report, err := c.SyncWithDevice(context.Background(), "phone", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 1, report.Reconciled)
	assert.Equal(t, types.SyncStatusFailed, report.Entries[0].Status)

	rejecting := NewCoordinator(store, nil, rejectAll{}, "laptop")
	since := time.Time{}
	rejected, err := rejecting.SyncWithDevice(context.Background(), "phone", &since)
	require.NoError(t, err)
	assert.Equal(t, 2, rejected.Rejected)
	assert.Equal(t, "keep_local", rejected.Entries[0].ConflictResolution)
}

func TestSyncRequiresDevice(t *testing.T) {
	c := NewCoordinator(newTestStore(t), nil, nil, "laptop")
	_, err := c.SyncWithDevice(context.Background(), "", nil)
	assert.True(t, errors.Is(err, storage.ErrInvalidInput))
}

func TestDrainPushesAndSyncsPeers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seed(t, store, "mem_local", "laptop", t0)
	seed(t, store, "mem_phone", "phone", t0)
	seed(t, store, "mem_tablet", "tablet", t0)

	q := NewQueue(10)
	q.Enqueue("mem_local", types.SyncOperationStore, t0)
	c := NewCoordinator(store, q, nil, "laptop")

	report, err := c.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Pushed)
	assert.Len(t, report.Devices, 2)
	assert.Equal(t, 0, q.Len())

	pushes, err := c.History(ctx, "laptop", 10)
	require.NoError(t, err)
	require.Len(t, pushes, 1)
	assert.Equal(t, types.SyncOperationPush, pushes[0].Operation)
}

func TestQueueBounded(t *testing.T) {
	q := NewQueue(3)
	for i := 0; i < 5; i++ {
		q.Enqueue(fmt.Sprintf("mem_%d", i), types.SyncOperationStore, t0)
	}
	assert.Equal(t, 3, q.Len())
	assert.Equal(t, 2, q.Dropped())

	taken := q.Take()
	require.Len(t, taken, 3)
	assert.Equal(t, "mem_2", taken[0].MemoryID)
	assert.Equal(t, 0, q.Len())

	q.Enqueue("mem_new", types.SyncOperationStore, t0)
	q.Requeue(taken)
	assert.Equal(t, 3, q.Len())
	got := q.Take()
	assert.Equal(t, "mem_3", got[0].MemoryID)
	assert.Equal(t, "mem_new", got[2].MemoryID)
}
