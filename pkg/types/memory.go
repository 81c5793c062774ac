package types

import "time"

// MemoryItem is a unit of persisted content with its embedding vector.
// RetentionDays is fixed at creation from ImportanceLevel and never changes.
type MemoryItem struct {
	// Core identification fields
	ID       string `json:"id"`       // Deterministic hash of content+category+timestamp
	Content  string `json:"content"`  // Raw memory content
	Category string `json:"category"` // Memory category (business, customer, emergency, ...)

	// Retention
	ImportanceLevel int `json:"importance_level"` // 1=critical, 2=high, 3=medium, 4=low
	RetentionDays   int `json:"retention_days"`   // Derived from ImportanceLevel at creation

	// Retrieval
	Vector   []float32              `json:"vector,omitempty"`   // Embedding vector
	Metadata map[string]interface{} `json:"metadata,omitempty"` // Arbitrary metadata

	// Provenance
	DeviceID string `json:"device_id"` // Device that created this memory

	// Quality signals
	AccessCount  int        `json:"access_count"`            // Number of successful retrievals
	LastAccessed *time.Time `json:"last_accessed,omitempty"` // Timestamp of most recent retrieval
	CreatedAt    time.Time  `json:"created_at"`              // When the memory was created
}

// RetentionDaysFor maps an importance level to its retention window.
func RetentionDaysFor(importanceLevel int) int {
	switch importanceLevel {
	case ImportanceCritical:
		return 365
	case ImportanceHigh:
		return 30
	default:
		return 1
	}
}

// IsValidImportanceLevel reports whether level is within 1..4.
func IsValidImportanceLevel(level int) bool {
	return level >= ImportanceCritical && level <= ImportanceLow
}

// IsExemptFromCleanup reports whether automatic cleanup must keep this item.
// Critical and high importance items are never auto-deleted.
func (m *MemoryItem) IsExemptFromCleanup() bool {
	return m.ImportanceLevel <= ImportanceHigh
}

// ExpiresAt returns the earliest time at which retention allows deletion.
func (m *MemoryItem) ExpiresAt() time.Time {
	return m.CreatedAt.Add(time.Duration(m.RetentionDays) * 24 * time.Hour)
}
