package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	pgvector "github.com/pgvector/pgvector-go"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

const memoryColumns = `
	id, content, category, importance_level, retention_days, vector, metadata,
	device_id, access_count, last_accessed, created_at`

// UpsertMemory creates or replaces a memory item. retention_days is only
// written on insert. When pgvector is available the vector is also written to
// the native embedding column.
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

	args := []interface{}{
		item.ID, item.Content, item.Category, item.ImportanceLevel, item.RetentionDays,
		vectorBlob, nullableJSON(metadataJSON), item.DeviceID, item.AccessCount,
		nullableTime(item.LastAccessed), item.CreatedAt,
	}

	if s.pgvectorAvailable {
		var embedding interface{}
		if len(item.Vector) > 0 {
			embedding = pgvector.NewVector(item.Vector)
		}
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO memory_items (`+memoryColumns+`, embedding)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (id) DO UPDATE SET
				content = EXCLUDED.content,
				category = EXCLUDED.category,
				importance_level = EXCLUDED.importance_level,
				vector = EXCLUDED.vector,
				embedding = EXCLUDED.embedding,
				metadata = EXCLUDED.metadata,
				device_id = EXCLUDED.device_id`,
			append(args, embedding)...)
		if err == nil {
			return nil
		}
		log.Printf("postgres: failed to write embedding column (falling back to BYTEA only): %v", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO memory_items (`+memoryColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			category = EXCLUDED.category,
			importance_level = EXCLUDED.importance_level,
			vector = EXCLUDED.vector,
			metadata = EXCLUDED.metadata,
			device_id = EXCLUDED.device_id`,
		args...)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert memory item: %w", err)
	}
	return nil
}

// GetMemory retrieves a memory item by ID.
func (s *Store) GetMemory(ctx context.Context, id string) (*types.MemoryItem, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	item, err := scanMemory(s.db.QueryRowContext(ctx, `SELECT `+memoryColumns+` FROM memory_items WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to get memory item: %w", err)
	}
	return item, nil
}

// TouchMemory increments access_count and sets last_accessed.
func (s *Store) TouchMemory(ctx context.Context, id string, at time.Time) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE memory_items
		SET access_count = access_count + 1, last_accessed = $1
		WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to touch memory item: %w", err)
	}
	return expectOneRow(result)
}

// DeleteMemory removes a memory item permanently.
func (s *Store) DeleteMemory(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memory_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: failed to delete memory item: %w", err)
	}
	return expectOneRow(result)
}

// ListCleanupCandidates returns items at or above minLevel created before the cutoff.
func (s *Store) ListCleanupCandidates(ctx context.Context, minLevel int, createdBefore time.Time) ([]*types.MemoryItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+memoryColumns+` FROM memory_items
		WHERE importance_level >= $1 AND created_at < $2
		ORDER BY created_at ASC, seq ASC`, minLevel, createdBefore)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list cleanup candidates: %w", err)
	}
	return collectMemories(rows)
}

// ListVectors returns (id, vector) for every item with a vector, oldest first.
func (s *Store) ListVectors(ctx context.Context) ([]storage.VectorRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, vector FROM memory_items
		WHERE vector IS NOT NULL
		ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list vectors: %w", err)
	}
	defer rows.Close()

	var records []storage.VectorRecord
	for rows.Next() {
		var (
			id   string
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan vector: %w", err)
		}
		vec, err := storage.DecodeVector(blob)
		if err != nil {
			log.Printf("postgres: skipping memory %s with corrupt vector: %v", id, err)
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
		WHERE device_id = $1 AND created_at > $2
		ORDER BY created_at ASC, seq ASC`, deviceID, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list device memories: %w", err)
	}
	return collectMemories(rows)
}

// ListDevices returns the distinct device IDs that have written memories.
func (s *Store) ListDevices(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT device_id FROM memory_items ORDER BY device_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list devices: %w", err)
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan device: %w", err)
		}
		devices = append(devices, d)
	}
	return devices, rows.Err()
}

// UpsertRelationship creates the edge or updates its strength.
func (s *Store) UpsertRelationship(ctx context.Context, rel *types.MemoryRelationship) error {
	if rel == nil || rel.MemoryIDA == "" || rel.MemoryIDB == "" || rel.RelationshipType == "" {
		return fmt.Errorf("%w: both endpoints and a type are required", storage.ErrInvalidInput)
	}
	if !types.IsValidStrength(rel.Strength) {
		return fmt.Errorf("%w: strength %.3f outside [0,1]", storage.ErrInvalidInput, rel.Strength)
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memory_relationships (memory_id_a, memory_id_b, relationship_type, strength, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (memory_id_a, memory_id_b, relationship_type) DO UPDATE SET
			strength = EXCLUDED.strength`,
		rel.MemoryIDA, rel.MemoryIDB, rel.RelationshipType, rel.Strength, rel.CreatedAt)
	if err != nil {
		return fmt.Errorf("postgres: failed to upsert relationship: %w", err)
	}
	return nil
}

// ListRelationships returns edges where memoryID is either endpoint.
func (s *Store) ListRelationships(ctx context.Context, memoryID string) ([]*types.MemoryRelationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id_a, memory_id_b, relationship_type, strength, created_at
		FROM memory_relationships
		WHERE memory_id_a = $1 OR memory_id_b = $1
		ORDER BY strength DESC, created_at ASC`, memoryID)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list relationships: %w", err)
	}
	defer rows.Close()

	var rels []*types.MemoryRelationship
	for rows.Next() {
		var r types.MemoryRelationship
		if err := rows.Scan(&r.MemoryIDA, &r.MemoryIDB, &r.RelationshipType, &r.Strength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan relationship: %w", err)
		}
		rels = append(rels, &r)
	}
	return rels, rows.Err()
}

// AppendSyncLog appends one entry.
func (s *Store) AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error {
	if entry == nil || entry.ID == "" || entry.DeviceID == "" || entry.MemoryID == "" {
		return fmt.Errorf("%w: id, device and memory are required", storage.ErrInvalidInput)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, device_id, operation, memory_id, timestamp, status, conflict_resolution)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		entry.ID, entry.DeviceID, entry.Operation, entry.MemoryID, entry.Timestamp,
		entry.Status, nullableString(entry.ConflictResolution))
	if err != nil {
		return fmt.Errorf("postgres: failed to append sync log: %w", err)
	}
	return nil
}

// LastSyncTime returns the latest completed timestamp for deviceID.
func (s *Store) LastSyncTime(ctx context.Context, deviceID string) (time.Time, error) {
	var last sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(timestamp) FROM sync_log
		WHERE device_id = $1 AND status = $2`, deviceID, types.SyncStatusCompleted).Scan(&last)
	if err != nil {
		return time.Time{}, fmt.Errorf("postgres: failed to read last sync time: %w", err)
	}
	if !last.Valid {
		return time.Time{}, storage.ErrNotFound
	}
	return last.Time, nil
}

// ListSyncLog returns the most recent entries, newest first.
func (s *Store) ListSyncLog(ctx context.Context, deviceID string, limit int) ([]*types.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	const cols = `SELECT id, device_id, operation, memory_id, timestamp, status, conflict_resolution FROM sync_log`
	if deviceID != "" {
		rows, err = s.db.QueryContext(ctx, cols+` WHERE device_id = $1 ORDER BY timestamp DESC, seq DESC LIMIT $2`, deviceID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, cols+` ORDER BY timestamp DESC, seq DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to list sync log: %w", err)
	}
	defer rows.Close()

	var entries []*types.SyncLogEntry
	for rows.Next() {
		var (
			e          types.SyncLogEntry
			resolution sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Operation, &e.MemoryID, &e.Timestamp, &e.Status, &resolution); err != nil {
			return nil, fmt.Errorf("postgres: failed to scan sync log: %w", err)
		}
		e.ConflictResolution = resolution.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

func collectMemories(rows *sql.Rows) ([]*types.MemoryItem, error) {
	defer rows.Close()

	var items []*types.MemoryItem
	for rows.Next() {
		item, err := scanMemory(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: failed to scan memory item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanMemory(row rowScanner) (*types.MemoryItem, error) {
	var (
		item         types.MemoryItem
		vectorBlob   []byte
		metadataJSON []byte
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
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &item.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}
	}
	if lastAccessed.Valid {
		t := lastAccessed.Time
		item.LastAccessed = &t
	}
	return &item, nil
}

func expectOneRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("postgres: failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func nullableJSON(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
