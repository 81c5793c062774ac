package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// CleanupReport summarizes one cleanup pass.
type CleanupReport struct {
	Scanned  int           `json:"scanned"`
	Deleted  int           `json:"deleted"`
	Kept     int           `json:"kept"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

// Cleanup deletes medium and low importance items whose age exceeds both
// their retention window and the cleanup max age. Critical and high items are
// never touched. A failure on one item is logged and the pass continues.
func (s *Service) Cleanup(ctx context.Context, now time.Time) (CleanupReport, error) {
	start := time.Now()
	var report CleanupReport

	candidates, err := s.store.ListCleanupCandidates(ctx, types.ImportanceHigh+1, now.Add(-s.cleanupMaxAge))
	if err != nil {
		return report, fmt.Errorf("failed to list cleanup candidates: %w", err)
	}
	report.Scanned = len(candidates)

	for _, item := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if item.IsExemptFromCleanup() || now.Before(item.ExpiresAt()) {
			report.Kept++
			continue
		}

		if err := s.store.DeleteMemory(ctx, item.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Printf("memory: cleanup failed to delete %s: %v", item.ID, err)
			report.Failed++
			continue
		}
		s.index.Remove(item.ID)
		s.cache.del(item.ID)
		report.Deleted++
	}

	report.Duration = time.Since(start)
	if report.Deleted > 0 || report.Failed > 0 {
		log.Printf("memory: cleanup removed %d of %d candidates (%d failed)", report.Deleted, report.Scanned, report.Failed)
	}
	return report, nil
}
