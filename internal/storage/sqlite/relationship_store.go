package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// UpsertRelationship creates the edge or updates its strength.
func (s *Store) UpsertRelationship(ctx context.Context, rel *types.MemoryRelationship) error {
	if rel == nil {
		return storage.ErrInvalidInput
	}
	if rel.MemoryIDA == "" || rel.MemoryIDB == "" || rel.RelationshipType == "" {
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
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(memory_id_a, memory_id_b, relationship_type) DO UPDATE SET
			strength = excluded.strength`,
		rel.MemoryIDA, rel.MemoryIDB, rel.RelationshipType, rel.Strength, utc(rel.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: failed to upsert relationship: %w", err)
	}
	return nil
}

// ListRelationships returns edges where memoryID is either endpoint.
func (s *Store) ListRelationships(ctx context.Context, memoryID string) ([]*types.MemoryRelationship, error) {
	if memoryID == "" {
		return nil, fmt.Errorf("%w: memory ID is required", storage.ErrInvalidInput)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT memory_id_a, memory_id_b, relationship_type, strength, created_at
		FROM memory_relationships
		WHERE memory_id_a = ? OR memory_id_b = ?
		ORDER BY strength DESC, created_at ASC`, memoryID, memoryID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: failed to list relationships: %w", err)
	}
	defer rows.Close()

	var rels []*types.MemoryRelationship
	for rows.Next() {
		var r types.MemoryRelationship
		if err := rows.Scan(&r.MemoryIDA, &r.MemoryIDB, &r.RelationshipType, &r.Strength, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: failed to scan relationship: %w", err)
		}
		rels = append(rels, &r)
	}
	return rels, rows.Err()
}
