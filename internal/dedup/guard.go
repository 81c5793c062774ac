// Package dedup guards processing so each distinct input is handled once.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/fingerprint"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Guard owns the processed-source ledger.
type Guard struct {
	ledger storage.LedgerStore
	now    func() time.Time
}

// NewGuard returns a guard over ledger.
func NewGuard(ledger storage.LedgerStore) *Guard {
	return &Guard{ledger: ledger, now: time.Now}
}

// Hash fingerprints normalized content for the ledger.
func Hash(content string) string {
	return fingerprint.Of(content)
}

// IsProcessed reports whether the source was last processed with this hash.
func (g *Guard) IsProcessed(ctx context.Context, sourceType, sourceID, hash string) (bool, error) {
	src, err := g.ledger.GetProcessedSource(ctx, sourceType, sourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return src.ContentHash == hash, nil
}

// Claim is a reservation taken by Guard.Claim. Won is false when the source
// was already processed with identical content.
type Claim struct {
	SourceType string
	SourceID   string
	Hash       string
	Won        bool

	previous *types.ProcessedSource
}

// Claim reserves the source for processing with hash. Concurrent claims for
// the same content are resolved by the store so that exactly one wins.
func (g *Guard) Claim(ctx context.Context, sourceType, sourceID, hash string) (*Claim, error) {
	if sourceType == "" || sourceID == "" || hash == "" {
		return nil, fmt.Errorf("%w: source type, source id and hash are required", storage.ErrInvalidInput)
	}
	won, prev, err := g.ledger.ClaimSource(ctx, &types.ProcessedSource{
		SourceType:  sourceType,
		SourceID:    sourceID,
		ContentHash: hash,
		ProcessedAt: g.now(),
	})
	if err != nil {
		return nil, err
	}
	return &Claim{SourceType: sourceType, SourceID: sourceID, Hash: hash, Won: won, previous: prev}, nil
}

// Record overwrites the ledger row for the source. The ledger keeps the
// latest hash per source, not a history.
func (g *Guard) Record(ctx context.Context, sourceType, sourceID, hash string, stickyCount int) error {
	return g.ledger.UpsertProcessedSource(ctx, &types.ProcessedSource{
		SourceType:  sourceType,
		SourceID:    sourceID,
		ContentHash: hash,
		StickyCount: stickyCount,
		ProcessedAt: g.now(),
	})
}

// Release undoes a claim that could not be completed. The row the claim
// took over, if any, is put back; a newer claim with a different hash is
// left untouched. Releasing a claim that was not won does nothing.
func (g *Guard) Release(ctx context.Context, c *Claim) error {
	if c == nil || !c.Won {
		return nil
	}
	return g.ledger.ReleaseSource(ctx, c.SourceType, c.SourceID, c.Hash, c.previous)
}

// Seen reports whether any source was processed with this hash.
func (g *Guard) Seen(ctx context.Context, hash string) (bool, error) {
	return g.ledger.HasContentHash(ctx, hash)
}

// Lookup returns the ledger row for a source.
func (g *Guard) Lookup(ctx context.Context, sourceType, sourceID string) (*types.ProcessedSource, error) {
	return g.ledger.GetProcessedSource(ctx, sourceType, sourceID)
}
