package storage

import (
	"errors"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

var (
	// ErrNotFound indicates that the requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")
)

// StickyFilter narrows ListStickies results.
type StickyFilter struct {
	// Status filters by lifecycle status. Empty means any status.
	Status types.StickyStatus

	// SourceType and SourceID filter by origin. Empty means no filter.
	SourceType string
	SourceID   string

	// Limit caps the number of results (default: 50, max: 500).
	Limit int
}

// Normalize applies defaults and bounds.
func (f *StickyFilter) Normalize() {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 500 {
		f.Limit = 500
	}
}

// VectorRecord is one (id, vector) pair loaded for index rebuilds.
type VectorRecord struct {
	ID     string
	Vector []float32
}
