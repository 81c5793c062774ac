package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/dedup"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/devicesync"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/embedding"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/memory"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/opportunity"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/sticky"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/storage"
	"github.com/dark-red-one/aurora-ai-robbiverse-sub000/internal/vectorindex"
)

// Engine wires the detection pipeline to the memory store and runs the
// background jobs. It holds no global state; construct one per process.
type Engine struct {
	config Config
	store  storage.Store

	// Pipeline
	extractor *opportunity.Extractor
	adjuster  *opportunity.Adjuster
	stickies  *sticky.Factory
	guard     *dedup.Guard
	memory    *memory.Service
	sync      *devicesync.Coordinator

	backupJob func(ctx context.Context) error
	now       func() time.Time

	// Lifecycle
	cron      *cron.Cron
	jobCtx    context.Context
	jobCancel context.CancelFunc
	started   bool
	mu        sync.RWMutex

	obsMu     sync.RWMutex
	observers []Observer
}

type options struct {
	lookup         opportunity.RelationshipStrengthLookup
	extractorOpts  []opportunity.Option
	enterpriseKeys []string
	resolver       devicesync.ConflictResolver
	provider       embedding.Provider
	backupJob      func(ctx context.Context) error
	now            func() time.Time
}

// Option configures an Engine.
type Option func(*options)

// WithRelationshipLookup enables the relationship strength boost.
func WithRelationshipLookup(l opportunity.RelationshipStrengthLookup) Option {
	return func(o *options) { o.lookup = l }
}

// WithExtractorOptions passes options through to the extractor.
func WithExtractorOptions(opts ...opportunity.Option) Option {
	return func(o *options) { o.extractorOpts = append(o.extractorOpts, opts...) }
}

// WithEnterpriseKeywords overrides the enterprise company keywords.
func WithEnterpriseKeywords(keywords []string) Option {
	return func(o *options) { o.enterpriseKeys = keywords }
}

// WithConflictResolver overrides the sync conflict policy.
func WithConflictResolver(r devicesync.ConflictResolver) Option {
	return func(o *options) { o.resolver = r }
}

// WithEmbeddingProvider overrides the embedding provider.
func WithEmbeddingProvider(p embedding.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithBackupJob schedules fn on the backup schedule.
func WithBackupJob(fn func(ctx context.Context) error) Option {
	return func(o *options) { o.backupJob = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an engine over store.
func New(store storage.Store, cfg Config, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.provider == nil {
		o.provider = embedding.NewHashedBagOfWords(cfg.VectorDimensions)
	}

	queue := devicesync.NewQueue(cfg.SyncQueueSize)
	mem, err := memory.New(store, vectorindex.New(vectorindex.DefaultMinSimilarity), o.provider,
		memory.WithDeviceID(cfg.DeviceID),
		memory.WithCleanupMaxAge(cfg.CleanupMaxAge),
		memory.WithHotCacheCost(cfg.HotCacheCost),
		memory.WithPendingWriter(queue),
		memory.WithClock(o.now),
	)
	if err != nil {
		return nil, err
	}

	adjuster := opportunity.NewAdjuster(o.lookup)
	adjuster.AcceptanceThreshold = cfg.AcceptanceThreshold
	if len(o.enterpriseKeys) > 0 {
		adjuster.EnterpriseKeywords = o.enterpriseKeys
	}

	e := &Engine{
		config:    cfg,
		store:     store,
		extractor: opportunity.NewExtractor(o.extractorOpts...),
		adjuster:  adjuster,
		stickies:  sticky.NewFactory(store, sticky.WithThreshold(cfg.AcceptanceThreshold), sticky.WithClock(o.now)),
		guard:     dedup.NewGuard(store),
		memory:    mem,
		sync:      devicesync.NewCoordinator(store, queue, o.resolver, cfg.DeviceID),
		backupJob: o.backupJob,
		now:       o.now,
	}
	mem.OnStored(func(ev memory.Stored) {
		e.emitMemoryStored(MemoryStored{ID: ev.ID, Category: ev.Category, ImportanceLevel: ev.ImportanceLevel})
	})
	return e, nil
}

// Subscribe registers an observer. Notifications are delivered synchronously
// after the corresponding write has committed.
func (e *Engine) Subscribe(o Observer) {
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observers = append(e.observers, o)
}

func (e *Engine) snapshotObservers() []Observer {
	e.obsMu.RLock()
	defer e.obsMu.RUnlock()
	return append([]Observer{}, e.observers...)
}

func (e *Engine) emitMemoryStored(ev MemoryStored) {
	for _, o := range e.snapshotObservers() {
		if o.OnMemoryStored != nil {
			o.OnMemoryStored(ev)
		}
	}
}

func (e *Engine) emitStickiesGenerated(ev StickiesGenerated) {
	for _, o := range e.snapshotObservers() {
		if o.OnStickiesGenerated != nil {
			o.OnStickiesGenerated(ev)
		}
	}
}

// Start rebuilds the vector index and schedules the background jobs.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.started {
		return fmt.Errorf("engine already started")
	}

	log.Println("engine: starting")
	if err := e.memory.Init(ctx); err != nil {
		return err
	}

	e.jobCtx, e.jobCancel = context.WithCancel(context.Background())
	c := cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger), cron.SkipIfStillRunning(cron.DefaultLogger)))

	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"cleanup", e.config.CleanupSchedule, func(ctx context.Context) error { _, err := e.RunCleanup(ctx); return err }},
		{"sync", e.config.SyncSchedule, func(ctx context.Context) error { _, err := e.RunSync(ctx); return err }},
		{"backup", e.config.BackupSchedule, e.backupJob},
	}
	for _, j := range jobs {
		if j.spec == "" || j.run == nil {
			continue
		}
		j := j
		if _, err := c.AddFunc(j.spec, func() {
			if err := j.run(e.jobCtx); err != nil {
				log.Printf("cron: %s job failed: %v", j.name, err)
			}
		}); err != nil {
			e.jobCancel()
			return fmt.Errorf("failed to schedule %s job: %w", j.name, err)
		}
	}
	c.Start()
	e.cron = c

	e.started = true
	log.Printf("engine: started with %d scheduled jobs", len(c.Entries()))
	return nil
}

// Shutdown stops the scheduler and waits for running jobs, up to ctx.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return fmt.Errorf("engine not started")
	}

	log.Println("engine: shutting down")
	stopped := e.cron.Stop()
	e.jobCancel()
	select {
	case <-stopped.Done():
	case <-ctx.Done():
		log.Printf("engine: shutdown timed out waiting for jobs: %v", ctx.Err())
	}

	e.cron = nil
	e.started = false
	return nil
}

// Close releases in-process caches. Call after Shutdown.
func (e *Engine) Close() {
	e.memory.Close()
}

// RunCleanup runs one retention cleanup pass.
func (e *Engine) RunCleanup(ctx context.Context) (memory.CleanupReport, error) {
	return e.memory.Cleanup(ctx, e.now())
}

// RunSync drains the pending write queue and syncs peer devices.
func (e *Engine) RunSync(ctx context.Context) (*devicesync.DrainReport, error) {
	return e.sync.Drain(ctx)
}

// Memory returns the memory service.
func (e *Engine) Memory() *memory.Service { return e.memory }

// Stickies returns the sticky note factory.
func (e *Engine) Stickies() *sticky.Factory { return e.stickies }

// Sync returns the sync coordinator.
func (e *Engine) Sync() *devicesync.Coordinator { return e.sync }

// Dedup returns the dedup guard.
func (e *Engine) Dedup() *dedup.Guard { return e.guard }
