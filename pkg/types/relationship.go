package types

import "time"

// MemoryRelationship is a directed, typed edge between two memory items
// (or a memory item and a sticky note id). The triple
// (MemoryIDA, MemoryIDB, RelationshipType) is its identity.
type MemoryRelationship struct {
	MemoryIDA        string    `json:"memory_id_a"`       // Source memory ID
	MemoryIDB        string    `json:"memory_id_b"`       // Target memory ID
	RelationshipType string    `json:"relationship_type"` // Relationship type (e.g., "derived_opportunity")
	Strength         float64   `json:"strength"`          // Relationship strength (0.0-1.0)
	CreatedAt        time.Time `json:"created_at"`        // Creation timestamp
}

// Relationship types created by the core.
const (
	RelationDerivedOpportunity = "derived_opportunity"
	RelationRelatedTo          = "related_to"
)

// IsValidStrength reports whether s lies within [0, 1].
func IsValidStrength(s float64) bool {
	return s >= 0 && s <= 1
}
