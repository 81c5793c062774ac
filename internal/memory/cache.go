package memory

import (
	"sync"

	"github.com/dgraph-io/ristretto"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// hotCache holds recently stored critical and high importance items.
// Admission and eviction are frequency based, with critical items costing
// less than high ones so more of them fit.
//
// Membership is tracked beside the cache from the eviction and rejection
// callbacks, so checking it does not count as a cache hit.
type hotCache struct {
	c *ristretto.Cache

	mu      sync.Mutex
	members map[string]struct{}
}

func newHotCache(maxCost int64) (*hotCache, error) {
	if maxCost <= 0 {
		maxCost = DefaultHotCacheCost
	}
	h := &hotCache{members: make(map[string]struct{})}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters:        maxCost * 10,
		MaxCost:            maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
		Metrics:            true,
		OnEvict:            h.forget,
		OnReject:           h.forget,
	})
	if err != nil {
		return nil, err
	}
	h.c = c
	return h, nil
}

// forget drops an evicted or rejected item from the membership set.
func (h *hotCache) forget(it *ristretto.Item) {
	item, ok := it.Value.(*types.MemoryItem)
	if !ok {
		return
	}
	h.mu.Lock()
	delete(h.members, item.ID)
	h.mu.Unlock()
}

func (h *hotCache) put(item *types.MemoryItem) {
	cp := *item
	h.mu.Lock()
	h.members[item.ID] = struct{}{}
	h.mu.Unlock()

	if !h.c.Set(item.ID, &cp, int64(item.ImportanceLevel)) {
		h.mu.Lock()
		delete(h.members, item.ID)
		h.mu.Unlock()
	}
	h.c.Wait()
}

func (h *hotCache) get(id string) (*types.MemoryItem, bool) {
	v, ok := h.c.Get(id)
	if !ok {
		return nil, false
	}
	item, ok := v.(*types.MemoryItem)
	if !ok {
		return nil, false
	}
	cp := *item
	return &cp, true
}

// has reports membership without touching the admission counters.
func (h *hotCache) has(id string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.members[id]
	return ok
}

func (h *hotCache) del(id string) {
	h.mu.Lock()
	delete(h.members, id)
	h.mu.Unlock()
	h.c.Del(id)
}

func (h *hotCache) close() {
	h.c.Close()
}
