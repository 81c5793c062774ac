package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

const memoryColumns = `
	id, content, category, importance_level, retention_days, vector, metadata,
	device_id, access_count, last_accessed, created_at`

// UpsertMemory creates or replaces a memory item. retention_days is only
// written on insert; an existing row keeps the value it was created with.
func (s *Store) UpsertMemory(ctx context.Context, item *types.MemoryItem) error {
	if item == nil {
		return storage.ErrInvalidInput
	}
	if item.ID == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}
	if !types.IsValidImportanceLevel(item.ImportanceLevel) {
		return fmt.Errorf("%w: importance level %d out of range", storage.ErrInvalidInput, item.ImportanceLevel)
	}

	var metadataJSON []byte
	if len(item.Metadata) > 0 {
		b, err := json.Marshal(item.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadataJSON = b
	}

	vectorBlob, err := storage.EncodeVector(item.Vector)
	if err != nil {
		return fmt.Errorf("failed to encode vector: %w", err)
	}

	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_items (`+memoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			category = excluded.category,
			importance_level = excluded.importance_level,
			vector = excluded.vector,
			metadata = excluded.metadata,
			device_id = excluded.device_id`,
		item.ID, item.Content, item.Category, item.ImportanceLevel, item.RetentionDays,
		vectorBlob, nullableBytes(metadataJSON), item.DeviceID, item.AccessCount,
		nullableTime(item.LastAccessed), utc(item.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert memory item: %w", err)
	}
	return nil
}

// GetMemory retrieves a memory item by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*types.MemoryItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memory_items WHERE id = ?`, id)
	item, err := scanMemory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get memory item: %w", err)
	}
	return item, nil
}

// TouchMemory increments access_count and sets last_accessed.
func (s *Store) TouchMemory(ctx context.Context, id string, at time.Time) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_items
		SET access_count = access_count + 1,
		    last_accessed = ?
		WHERE id = ?`, utc(at), id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to touch memory item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// DeleteMemory removes a memory item permanently. Relationships are kept.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: failed to delete memory item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListCleanupCandidates returns items at or above minLevel created before the cutoff.
func (s *Store) ListCleanupCandidates(ctx context.Context, minLevel int, createdBefore time.Time) ([]*types.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memory_items
		WHERE importance_level >= ? AND created_at < ?
		ORDER BY created_at ASC`, minLevel, utc(createdBefore))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list cleanup candidates: %w", err)
	}
	return collectMemories(rows)
}

// ListVectors returns (id, vector) for every item with a vector, oldest first.
// Rows whose blob cannot be decoded are logged and skipped.
func (s *Store) ListVectors(ctx context.Context) ([]storage.VectorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vector FROM memory_items
		WHERE vector IS NOT NULL
		ORDER BY created_at ASC, rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list vectors: %w", err)
	}
	defer rows.Close()

	var records []storage.VectorRecord
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan vector: %w", err)
		}
		vec, err := storage.DecodeVector(blob)
		if err != nil {
			log.Printf("sqlite: skipping memory %s with corrupt vector: %v", id, err)
			continue
		}
		records = append(records, storage.VectorRecord{ID: id, Vector: vec})
	}
	return records, rows.Err()
}

// ListMemoriesByDevice returns items written by deviceID after since, oldest first.
func (s *Store) ListMemoriesByDevice(ctx context.Context, deviceID string, since time.Time) ([]*types.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memory_items
		WHERE device_id = ? AND created_at > ?
		ORDER BY created_at ASC, rowid ASC`, deviceID, utc(since))
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list device memories: %w", err)
	}
	return collectMemories(rows)
}

// ListDevices returns the distinct device IDs that have written memories.
func (s *Store) ListDevices(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT device_id FROM memory_items ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

func collectMemories(rows *sql.Rows) ([]*types.MemoryItem, error) {
	defer rows.Close()

	var items []*types.MemoryItem
	for rows.Next() {
		item, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan memory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanMemory(row rowScanner) (*types.MemoryItem, error) {
	var (
		item         types.MemoryItem
		vectorBlob   []byte
		metadataJSON sql.NullString
		lastAccessed sql.NullTime
	)

	err := row.Scan(
		&item.ID, &item.Content, &item.Category, &item.ImportanceLevel, &item.RetentionDays,
		&vectorBlob, &metadataJSON, &item.DeviceID, &item.AccessCount, &lastAccessed, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if item.Vector, err = storage.DecodeVector(vectorBlob); err != nil {
		return nil, err
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &item.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		item.LastAccessed = &t
	}
	return &item, nil
}
