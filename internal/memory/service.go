// Package memory persists processed content with embeddings and serves
// similarity retrieval, contextual buckets and retention cleanup.
//
// The durable store is the source of truth. The vector index and the hot
// cache are in-process layers rebuilt or refilled from it.
package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/embedding"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/fingerprint"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/vectorindex"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/pkg/types"
)

// Backend is the slice of storage the memory service owns.
type Backend interface {
	storage.MemoryItemStore
	storage.RelationshipStore
}

// Stored is delivered to observers after a memory item is committed.
type Stored struct {
	ID              string
	Category        string
	ImportanceLevel int
	DeviceID        string
	At              time.Time
}

// PendingWriter receives local writes that still need to reach other devices.
type PendingWriter interface {
	Enqueue(memoryID, operation string, at time.Time)
}

// Service is the memory store.
type Service struct {
	store    Backend
	index    *vectorindex.Index
	embedder embedding.Provider
	cache    *hotCache

	deviceID      string
	cleanupMaxAge time.Duration
	cacheCost     int64
	now           func() time.Time
	pending       PendingWriter

	mu        sync.RWMutex
	observers []func(Stored)
}

// Option configures a Service.
type Option func(*Service)

// WithDeviceID sets the device recorded on new items.
func WithDeviceID(id string) Option {
	return func(s *Service) { s.deviceID = id }
}

// WithCleanupMaxAge sets the minimum age before an item may be cleaned up.
func WithCleanupMaxAge(d time.Duration) Option {
	return func(s *Service) { s.cleanupMaxAge = d }
}

// WithHotCacheCost sets the total cost budget of the hot cache.
func WithHotCacheCost(cost int64) Option {
	return func(s *Service) { s.cacheCost = cost }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithPendingWriter forwards every committed write to w.
func WithPendingWriter(w PendingWriter) Option {
	return func(s *Service) { s.pending = w }
}

// Defaults.
const (
	DefaultDeviceID      = "local"
	DefaultCleanupMaxAge = 30 * 24 * time.Hour
	DefaultHotCacheCost  = 1000
)

// New builds a memory service. index and provider may be nil, in which case
// a default index and a hashed bag-of-words provider are used.
func New(store Backend, index *vectorindex.Index, provider embedding.Provider, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("memory backend is required")
	}
	if index == nil {
		index = vectorindex.New(vectorindex.DefaultMinSimilarity)
	}
	if provider == nil {
		provider = embedding.NewHashedBagOfWords(embedding.DefaultDimensions)
	}

	s := &Service{
		store:         store,
		index:         index,
		embedder:      provider,
		deviceID:      DefaultDeviceID,
		cleanupMaxAge: DefaultCleanupMaxAge,
		cacheCost:     DefaultHotCacheCost,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	cache, err := newHotCache(s.cacheCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create hot cache: %w", err)
	}
	s.cache = cache
	return s, nil
}

// Init rebuilds the vector index from storage.
func (s *Service) Init(ctx context.Context) error {
	src := vectorindex.SourceFunc(func(ctx context.Context) ([]vectorindex.Entry, error) {
		records, err := s.store.ListVectors(ctx)
		if err != nil {
			return nil, err
		}
		entries := make([]vectorindex.Entry, len(records))
		for i, r := range records {
			entries[i] = vectorindex.Entry{ID: r.ID, Vector: r.Vector}
		}
		return entries, nil
	})
	if err := s.index.Rebuild(ctx, src); err != nil {
		return fmt.Errorf("failed to rebuild vector index: %w", err)
	}
	log.Printf("memory: vector index rebuilt with %d items", s.index.Len())
	return nil
}

// Close releases the hot cache.
func (s *Service) Close() {
	s.cache.close()
}

// OnStored registers an observer fired after each committed write.
func (s *Service) OnStored(fn func(Stored)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// DeviceID returns the device recorded on new items.
func (s *Service) DeviceID() string {
	return s.deviceID
}

// Embedder returns the embedding provider.
func (s *Service) Embedder() embedding.Provider {
	return s.embedder
}

// StoreMemory persists content and returns its id.
func (s *Service) StoreMemory(ctx context.Context, content, category string, importanceLevel int, metadata map[string]interface{}) (string, error) {
	if !types.IsValidImportanceLevel(importanceLevel) {
		return "", fmt.Errorf("%w: importance level %d out of range", storage.ErrInvalidInput, importanceLevel)
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: content is required", storage.ErrInvalidInput)
	}
	if category == "" {
		category = types.MemoryCategoryGeneral
	}

	now := s.now().UTC()
	item := &types.MemoryItem{
		ID:              fingerprint.MemoryID(content, category, now),
		Content:         content,
		Category:        category,
		ImportanceLevel: importanceLevel,
		RetentionDays:   types.RetentionDaysFor(importanceLevel),
		Vector:          s.embedder.Embed(content),
		Metadata:        metadata,
		DeviceID:        s.deviceID,
		CreatedAt:       now,
	}
	if err := s.store.UpsertMemory(ctx, item); err != nil {
		return "", err
	}

	s.index.Add(item.ID, item.Vector)
	if importanceLevel <= types.ImportanceHigh {
		s.cache.put(item)
	}
	if s.pending != nil {
		s.pending.Enqueue(item.ID, types.SyncOperationStore, now)
	}

	ev := Stored{
		ID:              item.ID,
		Category:        item.Category,
		ImportanceLevel: item.ImportanceLevel,
		DeviceID:        item.DeviceID,
		At:              now,
	}
	if d, ok := ctx.Value(deferredKey{}).(*Deferred); ok && d.s == s {
		d.add(ev)
	} else {
		s.notify(ev)
	}
	return item.ID, nil
}

// Get returns a memory item, from the hot cache when possible.
func (s *Service) Get(ctx context.Context, id string) (*types.MemoryItem, error) {
	if item, ok := s.cache.get(id); ok {
		return item, nil
	}
	return s.store.GetMemory(ctx, id)
}

func (s *Service) notify(ev Stored) {
	s.mu.RLock()
	observers := append([]func(Stored){}, s.observers...)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(ev)
	}
}

type deferredKey struct{}

// Deferred holds the notifications of writes made under its context until
// the caller's surrounding work has committed.
type Deferred struct {
	s      *Service
	mu     sync.Mutex
	events []Stored
}

// Defer returns a context under which StoreMemory queues its notifications
// on the returned Deferred instead of delivering them.
func (s *Service) Defer(ctx context.Context) (context.Context, *Deferred) {
	d := &Deferred{s: s}
	return context.WithValue(ctx, deferredKey{}, d), d
}

func (d *Deferred) add(ev Stored) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
}

// Flush delivers the queued notifications in write order.
func (d *Deferred) Flush() {
	d.mu.Lock()
	events := d.events
	d.events = nil
	d.mu.Unlock()
	for _, ev := range events {
		d.s.notify(ev)
	}
}

// Discard drops the queued notifications.
func (d *Deferred) Discard() {
	d.mu.Lock()
	d.events = nil
	d.mu.Unlock()
}
