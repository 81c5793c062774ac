// Package storage provides composable storage interfaces for the Vengeance core.
//
// Each component owns its tables exclusively: the sticky note factory owns
// sticky notes, the dedup guard owns the processed-source ledger, and the
// memory store owns memory items and relationships. The interfaces below are
// split along those ownership lines so a component can only reach the rows it
// is responsible for. Backends (sqlite, postgres) implement all of them.
package storage

import (
	"context"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// StickyStore persists sticky notes.
type StickyStore interface {
	// CreateSticky inserts a sticky note. It reports false, writing nothing,
	// when a note with the same ID already exists.
	CreateSticky(ctx context.Context, note *types.StickyNote) (bool, error)

	// GetSticky retrieves a sticky note by ID.
	// Returns ErrNotFound if the note doesn't exist.
	GetSticky(ctx context.Context, id string) (*types.StickyNote, error)

	// ListStickies returns notes matching the filter, newest first.
	ListStickies(ctx context.Context, filter StickyFilter) ([]*types.StickyNote, error)

	// UpdateStickyStatus moves a note from one status to another. The update
	// only applies when the stored status still equals from; otherwise
	// ErrNotFound is returned if the note is missing and
	// types.ErrInvalidTransition if its status changed underneath.
	UpdateStickyStatus(ctx context.Context, id string, from, to types.StickyStatus, at time.Time) error

	// SetStickyMemory records the id of the parallel memory entry.
	SetStickyMemory(ctx context.Context, id, memoryID string) error
}

// LedgerStore persists the processed-source dedup ledger.
type LedgerStore interface {
	// GetProcessedSource returns the ledger row for a source.
	// Returns ErrNotFound if the source was never processed.
	GetProcessedSource(ctx context.Context, sourceType, sourceID string) (*types.ProcessedSource, error)

	// ClaimSource atomically inserts the row, or overwrites it when the stored
	// content hash differs, returning the overwritten row (nil after an
	// insert). It reports false when a row with the same hash already exists,
	// in which case nothing is written.
	ClaimSource(ctx context.Context, src *types.ProcessedSource) (bool, *types.ProcessedSource, error)

	// UpsertProcessedSource writes the row unconditionally.
	UpsertProcessedSource(ctx context.Context, src *types.ProcessedSource) error

	// ReleaseSource undoes a claim if the row still carries contentHash,
	// restoring previous (the row the claim overwrote) or deleting the row
	// when previous is nil. Used when processing fails part way.
	ReleaseSource(ctx context.Context, sourceType, sourceID, contentHash string, previous *types.ProcessedSource) error

	// HasContentHash reports whether any source was processed with this hash.
	HasContentHash(ctx context.Context, contentHash string) (bool, error)
}

// MemoryItemStore persists memory items, the durable source of truth behind
// the in-process vector index.
type MemoryItemStore interface {
	// UpsertMemory creates or replaces a memory item.
	UpsertMemory(ctx context.Context, item *types.MemoryItem) error

	// GetMemory retrieves a memory item by ID.
	// Returns ErrNotFound if the item doesn't exist.
	GetMemory(ctx context.Context, id string) (*types.MemoryItem, error)

	// TouchMemory increments access_count and sets last_accessed.
	// Returns ErrNotFound if the item doesn't exist.
	TouchMemory(ctx context.Context, id string, at time.Time) error

	// DeleteMemory removes a memory item permanently.
	// Returns ErrNotFound if the item doesn't exist.
	DeleteMemory(ctx context.Context, id string) error

	// ListCleanupCandidates returns items whose importance level is at least
	// minLevel and that were created before createdBefore.
	ListCleanupCandidates(ctx context.Context, minLevel int, createdBefore time.Time) ([]*types.MemoryItem, error)

	// ListVectors returns (id, vector) for every item that has a vector,
	// in creation order.
	ListVectors(ctx context.Context) ([]VectorRecord, error)

	// ListMemoriesByDevice returns items written by deviceID after since,
	// oldest first.
	ListMemoriesByDevice(ctx context.Context, deviceID string, since time.Time) ([]*types.MemoryItem, error)

	// ListDevices returns the distinct device IDs that have written memories.
	ListDevices(ctx context.Context) ([]string, error)
}

// RelationshipStore persists directed, typed edges between memory items.
type RelationshipStore interface {
	// UpsertRelationship creates the edge or updates its strength.
	UpsertRelationship(ctx context.Context, rel *types.MemoryRelationship) error

	// ListRelationships returns edges where memoryID is either endpoint.
	ListRelationships(ctx context.Context, memoryID string) ([]*types.MemoryRelationship, error)
}

// SyncLogStore persists the append-only sync audit log.
type SyncLogStore interface {
	// AppendSyncLog appends one entry.
	AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error

	// LastSyncTime returns the timestamp of the latest completed entry for
	// deviceID. Returns ErrNotFound when the device has never been synced.
	LastSyncTime(ctx context.Context, deviceID string) (time.Time, error)

	// ListSyncLog returns the most recent entries for deviceID, newest first.
	// An empty deviceID lists all devices.
	ListSyncLog(ctx context.Context, deviceID string, limit int) ([]*types.SyncLogEntry, error)
}

// Store is the full backend: every table plus lifecycle.
type Store interface {
	StickyStore
	LedgerStore
	MemoryItemStore
	RelationshipStore
	SyncLogStore

	// Close releases any resources held by the store.
	Close() error
}
