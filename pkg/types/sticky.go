package types

import "time"

// StickyNote is a scored opportunity surfaced to the user.
// A note is never created with ConfidenceScore below the acceptance threshold.
type StickyNote struct {
	// Core identification fields
	ID              string `json:"id"`               // Opaque, derived from source+timestamp
	SourceType      string `json:"source_type"`      // chat, email, crm_note, call, ...
	SourceID        string `json:"source_id"`        // Identifier within the source system
	OriginalContent string `json:"original_content"` // Normalized input text
	ExtractedText   string `json:"extracted_text"`   // Formatted summary of the opportunity

	// Classification and scoring
	Category        StickyCategory `json:"category"`
	ImportanceScore float64        `json:"importance_score"`
	UrgencyScore    float64        `json:"urgency_score"`
	RelevanceScore  float64        `json:"relevance_score"`
	ConfidenceScore float64        `json:"confidence_score"` // May exceed 1.0 after boosts

	// Structured details (all optional)
	Amount           string `json:"amount,omitempty"`
	Timeline         string `json:"timeline,omitempty"`
	CounterpartyName string `json:"counterparty_name,omitempty"`
	CounterpartyRole string `json:"counterparty_role,omitempty"`
	Company          string `json:"company,omitempty"`
	ContactEmail     string `json:"contact_email,omitempty"`

	// Linkage to the parallel memory entry
	MemoryID string `json:"memory_id,omitempty"`

	// Lifecycle
	Status       StickyStatus `json:"status"`
	FollowUpDate time.Time    `json:"follow_up_date"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// ProcessedSource is one row of the dedup ledger. At most one row exists
// per (SourceType, SourceID); it reflects the latest content hash seen.
type ProcessedSource struct {
	SourceType  string    `json:"source_type"`
	SourceID    string    `json:"source_id"`
	ContentHash string    `json:"content_hash"`
	StickyCount int       `json:"sticky_count"`
	ProcessedAt time.Time `json:"processed_at"`
}

// SyncLogEntry is an append-only audit record of one synchronization step.
type SyncLogEntry struct {
	ID                 string    `json:"id"`
	DeviceID           string    `json:"device_id"`
	Operation          string    `json:"operation"`
	MemoryID           string    `json:"memory_id"`
	Timestamp          time.Time `json:"timestamp"`
	Status             string    `json:"status"`
	ConflictResolution string    `json:"conflict_resolution,omitempty"`
}
