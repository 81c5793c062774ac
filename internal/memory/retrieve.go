package memory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/embedding"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Blend weights for the relevance score.
const (
	overlapWeight    = 0.7
	similarityWeight = 0.3
	importanceBonus  = 0.1

	defaultRetrieveLimit = 10
	maxRetrieveLimit     = 100
)

// RetrieveOptions narrows a retrieval.
type RetrieveOptions struct {
	Query    string
	Category string // empty means any

	// Limit caps the number of results (default: 10, max: 100).
	Limit int

	// MinImportance keeps only items at least this important, i.e. with
	// ImportanceLevel <= MinImportance. Zero disables the filter.
	MinImportance int
}

// ScoredMemory is one retrieval result.
type ScoredMemory struct {
	Item       *types.MemoryItem `json:"item"`
	Relevance  float64           `json:"relevance"`
	Similarity float64           `json:"similarity"`
	Score      float64           `json:"score"`
}

// RetrieveMemory returns the items most relevant to the query. Every
// returned item has its access count bumped.
func (s *Service) RetrieveMemory(ctx context.Context, opts RetrieveOptions) ([]ScoredMemory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultRetrieveLimit
	}
	if limit > maxRetrieveLimit {
		limit = maxRetrieveLimit
	}

	query := s.embedder.Embed(opts.Query)
	matches := s.index.Search(query, 2*limit)
	queryTokens := embedding.Tokenize(opts.Query)

	results := make([]ScoredMemory, 0, len(matches))
	for _, m := range matches {
		item, err := s.Get(ctx, m.ID)
		if errors.Is(err, storage.ErrNotFound) {
			// Deleted underneath the index.
			s.index.Remove(m.ID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load memory %s: %w", m.ID, err)
		}
		if opts.Category != "" && item.Category != opts.Category {
			continue
		}
		if opts.MinImportance > 0 && item.ImportanceLevel > opts.MinImportance {
			continue
		}

		relevance := overlapWeight*wordOverlap(queryTokens, item.Content) + similarityWeight*m.Similarity
		results = append(results, ScoredMemory{
			Item:       item,
			Relevance:  relevance,
			Similarity: m.Similarity,
			Score:      relevance + float64(5-item.ImportanceLevel)*importanceBonus,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}

	now := s.now().UTC()
	for i := range results {
		item := results[i].Item
		if err := s.store.TouchMemory(ctx, item.ID, now); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				log.Printf("memory: %s vanished before access could be recorded", item.ID)
				continue
			}
			return nil, fmt.Errorf("failed to record access for %s: %w", item.ID, err)
		}
		item.AccessCount++
		at := now
		item.LastAccessed = &at
		if s.cache.has(item.ID) {
			s.cache.put(item)
		}
	}
	return results, nil
}

// wordOverlap is the share of distinct query tokens present in content.
func wordOverlap(queryTokens []string, content string) float64 {
	if len(queryTokens) == 0 {
		return 0
	}
	words := make(map[string]struct{})
	for _, w := range embedding.Tokenize(content) {
		words[w] = struct{}{}
	}

	seen := make(map[string]struct{}, len(queryTokens))
	hits := 0
	for _, q := range queryTokens {
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		if _, ok := words[q]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(seen))
}

// Contextual memory buckets.
const (
	BucketBusiness  = "business"
	BucketCustomer  = "customer"
	BucketEmergency = "emergency"
	BucketGeneral   = "general"
)

var bucketOf = map[string]string{
	types.MemoryCategoryBusiness:     BucketBusiness,
	types.MemoryCategoryOpportunity:  BucketBusiness,
	types.MemoryCategoryDeal:         BucketBusiness,
	types.MemoryCategoryCompetitive:  BucketBusiness,
	types.MemoryCategoryTiming:       BucketBusiness,
	types.MemoryCategoryCustomer:     BucketCustomer,
	types.MemoryCategoryContact:      BucketCustomer,
	types.MemoryCategoryRelationship: BucketCustomer,
	types.MemoryCategoryEmergency:    BucketEmergency,
	types.MemoryCategoryUrgent:       BucketEmergency,
}

// BucketFor maps a memory category to its contextual bucket.
func BucketFor(category string) string {
	if b, ok := bucketOf[category]; ok {
		return b
	}
	return BucketGeneral
}

// ContextualMemory groups retrieval results by bucket.
type ContextualMemory struct {
	Business  []ScoredMemory `json:"business"`
	Customer  []ScoredMemory `json:"customer"`
	Emergency []ScoredMemory `json:"emergency"`
	General   []ScoredMemory `json:"general"`
}

// Total returns the number of items across buckets.
func (c *ContextualMemory) Total() int {
	return len(c.Business) + len(c.Customer) + len(c.Emergency) + len(c.General)
}

// GetContextualMemory retrieves items relevant to topic and returns up to
// maxItems per bucket.
func (s *Service) GetContextualMemory(ctx context.Context, topic string, maxItems int) (*ContextualMemory, error) {
	if maxItems <= 0 {
		maxItems = 5
	}
	results, err := s.RetrieveMemory(ctx, RetrieveOptions{Query: topic, Limit: maxItems * 4})
	if err != nil {
		return nil, err
	}

	out := &ContextualMemory{}
	for _, r := range results {
		var bucket *[]ScoredMemory
		switch BucketFor(r.Item.Category) {
		case BucketBusiness:
			bucket = &out.Business
		case BucketCustomer:
			bucket = &out.Customer
		case BucketEmergency:
			bucket = &out.Emergency
		default:
			bucket = &out.General
		}
		if len(*bucket) < maxItems {
			*bucket = append(*bucket, r)
		}
	}
	return out, nil
}
