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

// GetProcessedSource returns the ledger row for a source.
func (s *Store) GetProcessedSource(ctx context.Context, sourceType, sourceID string) (*types.ProcessedSource, error) {
	if sourceType == "" || sourceID == "" {
		return nil, fmt.Errorf("%w: source type and id are required", storage.ErrInvalidInput)
	}
	return getProcessedSource(ctx, s.db, sourceType, sourceID)
}

type rowQuerier interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func getProcessedSource(ctx context.Context, q rowQuerier, sourceType, sourceID string) (*types.ProcessedSource, error) {
	var src types.ProcessedSource
	err := q.QueryRowContext(ctx, `
		SELECT source_type, source_id, content_hash, sticky_count, processed_at
		FROM processed_sources
		WHERE source_type = ? AND source_id = ?`, sourceType, sourceID,
	).Scan(&src.SourceType, &src.SourceID, &src.ContentHash, &src.StickyCount, &src.ProcessedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to get processed source: %w", err)
	}
	return &src, nil
}

// ClaimSource inserts the ledger row, or takes it over when the stored hash
// differs, and returns the row it displaced. The read and the write share one
// transaction on the store's single connection, so two callers racing on the
// same content cannot both win.
func (s *Store) ClaimSource(ctx context.Context, src *types.ProcessedSource) (bool, *types.ProcessedSource, error) {
	if err := validateSource(src); err != nil {
		return false, nil, err
	}
	if src.ProcessedAt.IsZero() {
		src.ProcessedAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, nil, fmt.Errorf("sqlite: failed to begin claim: %w", err)
	}
	defer tx.Rollback()

	prev, err := getProcessedSource(ctx, tx, src.SourceType, src.SourceID)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		prev = nil
	case err != nil:
		return false, nil, err
	case prev.ContentHash == src.ContentHash:
		return false, nil, nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO processed_sources (source_type, source_id, content_hash, sticky_count, processed_at)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			sticky_count = 0,
			processed_at = excluded.processed_at`,
		src.SourceType, src.SourceID, src.ContentHash, utc(src.ProcessedAt))
	if err != nil {
		return false, nil, fmt.Errorf("sqlite: failed to claim source: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, nil, fmt.Errorf("sqlite: failed to commit claim: %w", err)
	}
	return true, prev, nil
}

// UpsertProcessedSource writes the ledger row unconditionally.
func (s *Store) UpsertProcessedSource(ctx context.Context, src *types.ProcessedSource) error {
	if err := validateSource(src); err != nil {
		return err
	}
	if src.ProcessedAt.IsZero() {
		src.ProcessedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_sources (source_type, source_id, content_hash, sticky_count, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(source_type, source_id) DO UPDATE SET
			content_hash = excluded.content_hash,
			sticky_count = excluded.sticky_count,
			processed_at = excluded.processed_at`,
		src.SourceType, src.SourceID, src.ContentHash, src.StickyCount, utc(src.ProcessedAt))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert processed source: %w", err)
	}
	return nil
}

// ReleaseSource undoes a claim that still carries contentHash: previous is
// written back when the claim displaced a row, otherwise the row is deleted.
func (s *Store) ReleaseSource(ctx context.Context, sourceType, sourceID, contentHash string, previous *types.ProcessedSource) error {
	var err error
	if previous == nil {
		_, err = s.db.ExecContext(ctx, `
			DELETE FROM processed_sources
			WHERE source_type = ? AND source_id = ? AND content_hash = ?`,
			sourceType, sourceID, contentHash)
	} else {
		_, err = s.db.ExecContext(ctx, `
			UPDATE processed_sources
			SET content_hash = ?, sticky_count = ?, processed_at = ?
			WHERE source_type = ? AND source_id = ? AND content_hash = ?`,
			previous.ContentHash, previous.StickyCount, utc(previous.ProcessedAt),
			sourceType, sourceID, contentHash)
	}
	if err != nil {
		return fmt.Errorf("sqlite: failed to release source: %w", err)
	}
	return nil
}

// HasContentHash reports whether any ledger row carries contentHash.
func (s *Store) HasContentHash(ctx context.Context, contentHash string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM processed_sources WHERE content_hash = ?`, contentHash).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: failed to look up content hash: %w", err)
	}
	return count > 0, nil
}

func validateSource(src *types.ProcessedSource) error {
	if src == nil {
		return storage.ErrInvalidInput
	}
	if src.SourceType == "" || src.SourceID == "" {
		return fmt.Errorf("%w: source type and id are required", storage.ErrInvalidInput)
	}
	if src.ContentHash == "" {
		return fmt.Errorf("%w: content hash is required", storage.ErrInvalidInput)
	}
	return nil
}
