// Package engine orchestrates opportunity detection and memory storage.
// ProcessInput runs one input through dedup, extraction, scoring, sticky note
// creation and memory registration; Start schedules the background cleanup,
// sync and backup jobs.
package engine

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Result reasons.
const (
	ReasonAlreadyProcessed = "already_processed"
	ReasonNoOpportunities  = "no_opportunities"
)

// Metadata keys read by ProcessInput.
const (
	MetaCompany      = "company"
	MetaContactEmail = "contactEmail"
	MetaContactName  = "contactName"
)

// Input is one piece of text handed in by a collaborator.
type Input struct {
	SourceType string
	SourceID   string
	Content    string
	Metadata   map[string]interface{}
}

// Result is the outcome of ProcessInput.
type Result struct {
	Processed   bool                `json:"processed"`
	Reason      string              `json:"reason,omitempty"`
	StickyCount int                 `json:"sticky_count"`
	Stickies    []*types.StickyNote `json:"stickies"`
	MemoryID    string              `json:"memory_id,omitempty"`
}

// StickiesGenerated is delivered after the notes of one input are committed.
type StickiesGenerated struct {
	SourceType  string
	SourceID    string
	StickyCount int
	Stickies    []*types.StickyNote
}

// MemoryStored is delivered after a memory item is committed.
type MemoryStored struct {
	ID              string
	Category        string
	ImportanceLevel int
}

// Observer receives engine notifications. Either callback may be nil.
type Observer struct {
	OnStickiesGenerated func(StickiesGenerated)
	OnMemoryStored      func(MemoryStored)
}

// Config holds configuration for the engine.
type Config struct {
	// DeviceID is recorded on every memory item written locally (default: local).
	DeviceID string

	// VectorDimensions is the embedding size (default: 384).
	VectorDimensions int

	// HotCacheCost bounds the memory hot cache (default: 1000).
	HotCacheCost int64

	// AcceptanceThreshold is the minimum candidate confidence (default: 0.5).
	AcceptanceThreshold float64

	// CleanupMaxAge is the minimum age before cleanup may delete (default: 30 days).
	CleanupMaxAge time.Duration

	// SyncQueueSize bounds the pending write queue (default: 1024).
	SyncQueueSize int

	// Cron specs for the background jobs. Empty disables a job.
	CleanupSchedule string // default: @every 1h
	SyncSchedule    string // default: @every 5m
	BackupSchedule  string // default: @every 24h
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DeviceID:            "local",
		VectorDimensions:    384,
		HotCacheCost:        1000,
		AcceptanceThreshold: 0.5,
		CleanupMaxAge:       30 * 24 * time.Hour,
		SyncQueueSize:       1024,
		CleanupSchedule:     "@every 1h",
		SyncSchedule:        "@every 5m",
		BackupSchedule:      "@every 24h",
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	if c.DeviceID == "" {
		return fmt.Errorf("DeviceID is required")
	}
	if c.VectorDimensions < 1 {
		return fmt.Errorf("VectorDimensions must be >= 1, got %d", c.VectorDimensions)
	}
	if c.HotCacheCost < 1 {
		return fmt.Errorf("HotCacheCost must be >= 1, got %d", c.HotCacheCost)
	}
	if c.AcceptanceThreshold < 0 || c.AcceptanceThreshold > 1 {
		return fmt.Errorf("AcceptanceThreshold must be within [0, 1], got %v", c.AcceptanceThreshold)
	}
	if c.CleanupMaxAge < 0 {
		return fmt.Errorf("CleanupMaxAge must be >= 0, got %v", c.CleanupMaxAge)
	}
	if c.SyncQueueSize < 1 {
		return fmt.Errorf("SyncQueueSize must be >= 1, got %d", c.SyncQueueSize)
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"CleanupSchedule": c.CleanupSchedule,
		"SyncSchedule":    c.SyncSchedule,
		"BackupSchedule":  c.BackupSchedule,
	} {
		if spec == "" {
			continue
		}
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("%s %q is invalid: %w", name, spec, err)
		}
	}
	return nil
}
