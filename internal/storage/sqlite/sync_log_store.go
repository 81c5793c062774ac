package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// AppendSyncLog appends one entry.
func (s *Store) AppendSyncLog(ctx context.Context, entry *types.SyncLogEntry) error {
	if entry == nil {
		return storage.ErrInvalidInput
	}
	if entry.ID == "" || entry.DeviceID == "" || entry.MemoryID == "" {
		return fmt.Errorf("%w: id, device and memory are required", storage.ErrInvalidInput)
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sync_log (id, device_id, operation, memory_id, timestamp, status, conflict_resolution)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.DeviceID, entry.Operation, entry.MemoryID, utc(entry.Timestamp),
		entry.Status, nullableString(entry.ConflictResolution))
	if err != nil {
		return fmt.Errorf("sqlite: failed to append sync log: %w", err)
	}
	return nil
}

// LastSyncTime returns the latest completed timestamp for deviceID.
func (s *Store) LastSyncTime(ctx context.Context, deviceID string) (time.Time, error) {
	// ORDER BY + LIMIT rather than MAX() keeps the column's declared type,
	// which the driver needs to return a time.Time.
	var last time.Time
	err := s.db.QueryRowContext(ctx, `
		SELECT timestamp FROM sync_log
		WHERE device_id = ? AND status = ?
		ORDER BY timestamp DESC LIMIT 1`, deviceID, types.SyncStatusCompleted).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, storage.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: failed to read last sync time: %w", err)
	}
	return last, nil
}

// ListSyncLog returns the most recent entries, newest first.
func (s *Store) ListSyncLog(ctx context.Context, deviceID string, limit int) ([]*types.SyncLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, device_id, operation, memory_id, timestamp, status, conflict_resolution FROM sync_log`
	args := []interface{}{}
	if deviceID != "" {
		query += ` WHERE device_id = ?`
		args = append(args, deviceID)
	}
	query += ` ORDER BY timestamp DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list sync log: %w", err)
	}
	defer rows.Close()

	var entries []*types.SyncLogEntry
	for rows.Next() {
		var (
			e          types.SyncLogEntry
			resolution sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.DeviceID, &e.Operation, &e.MemoryID, &e.Timestamp, &e.Status, &resolution); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan sync log: %w", err)
		}
		e.ConflictResolution = resolution.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
