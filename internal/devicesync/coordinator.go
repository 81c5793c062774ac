package devicesync

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Backend is the storage the coordinator reads and appends to.
type Backend interface {
	storage.MemoryItemStore
	storage.SyncLogStore
}

// ConflictResolver decides what to do with an item written by another device.
// It returns the resolution name recorded in the sync log and whether the
// item is accepted.
type ConflictResolver interface {
	Resolve(ctx context.Context, incoming *types.MemoryItem) (resolution string, accept bool, err error)
}

// AcceptIncoming accepts every incoming item as is.
type AcceptIncoming struct{}

// Resolve implements ConflictResolver.
func (AcceptIncoming) Resolve(context.Context, *types.MemoryItem) (string, bool, error) {
	return types.ConflictAcceptIncoming, true, nil
}

// Report summarizes one device sync.
type Report struct {
	DeviceID   string                `json:"device_id"`
	Since      time.Time             `json:"since"`
	Reconciled int                   `json:"reconciled"`
	Rejected   int                   `json:"rejected"`
	Failed     int                   `json:"failed"`
	Entries    []*types.SyncLogEntry `json:"entries"`
}

// DrainReport summarizes a drain of the pending queue plus peer syncs.
type DrainReport struct {
	Pushed  int       `json:"pushed"`
	Devices []*Report `json:"devices"`
}

// Coordinator reconciles memory items across devices.
type Coordinator struct {
	store       Backend
	queue       *Queue
	resolver    ConflictResolver
	localDevice string
	now         func() time.Time
}

// NewCoordinator returns a coordinator for localDevice. A nil resolver means
// AcceptIncoming; a nil queue means an empty default-sized one.
func NewCoordinator(store Backend, queue *Queue, resolver ConflictResolver, localDevice string) *Coordinator {
	if queue == nil {
		queue = NewQueue(DefaultQueueSize)
	}
	if resolver == nil {
		resolver = AcceptIncoming{}
	}
	return &Coordinator{
		store:       store,
		queue:       queue,
		resolver:    resolver,
		localDevice: localDevice,
		now:         time.Now,
	}
}

// Queue returns the pending write queue.
func (c *Coordinator) Queue() *Queue {
	return c.queue
}

// SyncWithDevice reconciles items written by deviceID after lastSyncTime.
// Without lastSyncTime, the device's last completed sync is used, or the zero
// time when it was never synced. Conflicts never fail the call; they are
// logged and recorded as failed entries.
func (c *Coordinator) SyncWithDevice(ctx context.Context, deviceID string, lastSyncTime *time.Time) (*Report, error) {
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", storage.ErrInvalidInput)
	}

	var since time.Time
	if lastSyncTime != nil {
		since = *lastSyncTime
	} else {
		last, err := c.store.LastSyncTime(ctx, deviceID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
		case err != nil:
			return nil, fmt.Errorf("failed to read last sync time: %w", err)
		default:
			since = last
		}
	}

	items, err := c.store.ListMemoriesByDevice(ctx, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list device memories: %w", err)
	}

	report := &Report{DeviceID: deviceID, Since: since}
	for _, item := range items {
		entry := &types.SyncLogEntry{
			ID:        uuid.NewString(),
			DeviceID:  deviceID,
			Operation: types.SyncOperationPull,
			MemoryID:  item.ID,
			// The item's creation time makes the log a per-device high-water mark.
			Timestamp: item.CreatedAt,
			Status:    types.SyncStatusCompleted,
		}

		resolution, accept, err := c.resolver.Resolve(ctx, item)
		switch {
		case err != nil:
			log.Printf("devicesync: conflict on %s from %s: %v", item.ID, deviceID, err)
			entry.Status = types.SyncStatusFailed
			report.Failed++
		case !accept:
			entry.ConflictResolution = resolution
			report.Rejected++
		default:
			entry.ConflictResolution = resolution
			report.Reconciled++
		}

		if err := c.store.AppendSyncLog(ctx, entry); err != nil {
			return report, fmt.Errorf("failed to append sync log: %w", err)
		}
		report.Entries = append(report.Entries, entry)
	}
	return report, nil
}

// Drain pushes queued local writes to the sync log and then syncs every other
// device seen in storage. A failing peer is logged and skipped.
func (c *Coordinator) Drain(ctx context.Context) (*DrainReport, error) {
	out := &DrainReport{}

	writes := c.queue.Take()
	for i, w := range writes {
		entry := &types.SyncLogEntry{
			ID:        uuid.NewString(),
			DeviceID:  c.localDevice,
			Operation: types.SyncOperationPush,
			MemoryID:  w.MemoryID,
			Timestamp: w.At,
			Status:    types.SyncStatusCompleted,
		}
		if err := c.store.AppendSyncLog(ctx, entry); err != nil {
			c.queue.Requeue(writes[i:])
			return out, fmt.Errorf("failed to record push: %w", err)
		}
		out.Pushed++
	}

	devices, err := c.store.ListDevices(ctx)
	if err != nil {
		return out, fmt.Errorf("failed to list devices: %w", err)
	}
	for _, d := range devices {
		if d == c.localDevice {
			continue
		}
		report, err := c.SyncWithDevice(ctx, d, nil)
		if err != nil {
			log.Printf("devicesync: sync with %s failed: %v", d, err)
			continue
		}
		out.Devices = append(out.Devices, report)
	}

	if out.Pushed > 0 || len(out.Devices) > 0 {
		log.Printf("devicesync: pushed %d writes, synced %d devices", out.Pushed, len(out.Devices))
	}
	return out, nil
}

// History returns recent sync log entries for deviceID; empty means all.
func (c *Coordinator) History(ctx context.Context, deviceID string, limit int) ([]*types.SyncLogEntry, error) {
	return c.store.ListSyncLog(ctx, deviceID, limit)
}
