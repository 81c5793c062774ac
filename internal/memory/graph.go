package memory

import (
	"context"
	"fmt"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Relate creates or updates a directed edge from a to b.
func (s *Service) Relate(ctx context.Context, a, b, relType string, strength float64) error {
	if a == "" || b == "" || relType == "" {
		return fmt.Errorf("%w: both endpoints and a relationship type are required", storage.ErrInvalidInput)
	}
	if !types.IsValidStrength(strength) {
		return fmt.Errorf("%w: strength %.3f outside [0, 1]", storage.ErrInvalidInput, strength)
	}
	return s.store.UpsertRelationship(ctx, &types.MemoryRelationship{
		MemoryIDA:        a,
		MemoryIDB:        b,
		RelationshipType: relType,
		Strength:         strength,
		CreatedAt:        s.now().UTC(),
	})
}

// Related returns every edge touching id, in either direction.
func (s *Service) Related(ctx context.Context, id string) ([]*types.MemoryRelationship, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: memory id is required", storage.ErrInvalidInput)
	}
	return s.store.ListRelationships(ctx, id)
}
