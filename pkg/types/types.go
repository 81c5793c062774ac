// Package types defines the core data structures for the Vengeance assistant:
// sticky notes produced by opportunity detection, the processed-source ledger,
// memory items with their relationships, and the device sync log.
package types

// StickyCategory is the display category of a sticky note.
type StickyCategory string

// StickyStatus is the lifecycle status of a sticky note.
type StickyStatus string

// Sticky note display categories
const (
	CategoryOpportunity  StickyCategory = "opportunity"
	CategoryFollowUp     StickyCategory = "follow_up"
	CategoryDealIntel    StickyCategory = "deal_intel"
	CategoryRelationship StickyCategory = "relationship"
	CategoryCompetitive  StickyCategory = "competitive"
	CategoryTiming       StickyCategory = "timing"
	CategoryUrgent       StickyCategory = "urgent"
)

// ValidStickyCategories contains all valid sticky note categories
var ValidStickyCategories = []StickyCategory{
	CategoryOpportunity,
	CategoryFollowUp,
	CategoryDealIntel,
	CategoryRelationship,
	CategoryCompetitive,
	CategoryTiming,
	CategoryUrgent,
}

// IsValidStickyCategory reports whether c is one of ValidStickyCategories.
func IsValidStickyCategory(c StickyCategory) bool {
	for _, valid := range ValidStickyCategories {
		if c == valid {
			return true
		}
	}
	return false
}

// Sticky note status constants
const (
	// StickyActive is the status of a freshly generated note
	StickyActive StickyStatus = "active"

	// StickyActionTaken marks a note the user acted on
	StickyActionTaken StickyStatus = "action_taken"

	// StickyFalsePositive marks a note the user rejected
	StickyFalsePositive StickyStatus = "false_positive"
)

// Importance levels for memory items. Lower is more important.
const (
	ImportanceCritical = 1
	ImportanceHigh     = 2
	ImportanceMedium   = 3
	ImportanceLow      = 4
)

// Memory categories used by the contextual buckets.
const (
	MemoryCategoryBusiness     = "business"
	MemoryCategoryOpportunity  = "opportunity"
	MemoryCategoryDeal         = "deal"
	MemoryCategoryCompetitive  = "competitive"
	MemoryCategoryTiming       = "timing"
	MemoryCategoryCustomer     = "customer"
	MemoryCategoryContact      = "contact"
	MemoryCategoryRelationship = "relationship"
	MemoryCategoryEmergency    = "emergency"
	MemoryCategoryUrgent       = "urgent"
	MemoryCategoryGeneral      = "general"
)

// Sync log constants
const (
	SyncOperationStore = "store"
	SyncOperationPush  = "push"
	SyncOperationPull  = "pull"

	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"

	ConflictAcceptIncoming = "accept_incoming"
)
