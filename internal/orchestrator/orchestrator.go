// Package orchestrator keeps the relationship graph consistent as content
// is created, edited and deleted. Triggers are debounced per content id and
// coalesced so at most one recompute per id is ever in flight; batch sweeps
// parallelize across distinct ids but never for the same id twice.
package orchestrator

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/analyzer"
	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/relationship"
	"resurface-backend/internal/graph"
	"resurface-backend/internal/observability"
	"resurface-backend/internal/repository"
	appErrors "resurface-backend/pkg/errors"
)

// TriggerKind distinguishes the two lifecycle paths into processing.
type TriggerKind int

const (
	// TriggerCreated analyzes new content against the full pool.
	TriggerCreated TriggerKind = iota
	// TriggerUpdated recomputes and replaces the content's relationships.
	TriggerUpdated
)

// Config tunes the orchestrator's scheduling behavior.
type Config struct {
	DebounceDelay   time.Duration // quiet period before a trigger fires
	SweepInterval   time.Duration // how often the background loop runs due work
	BatchSize       int           // max concurrent recomputes per sweep batch
	RebuildPageSize int           // content items per rebuild page
	RelationshipTTL time.Duration // 0 disables TTL sweeping
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay:   5 * time.Second,
		SweepInterval:   30 * time.Second,
		BatchSize:       10,
		RebuildPageSize: 50,
		RelationshipTTL: 0,
	}
}

type pendingTrigger struct {
	kind   TriggerKind
	fireAt time.Time
}

// Orchestrator is the single writer for the relationship graph.
type Orchestrator struct {
	cfg      Config
	analyzer *analyzer.Analyzer
	graph    *graph.Store
	contents repository.ContentRepository
	persist  repository.RelationshipPersistence
	logger   *zap.Logger
	metrics  *observability.Collector

	mu         sync.Mutex
	pending    map[string]pendingTrigger
	processing map[string]struct{}
	queue      timerQueue

	// moving-average processing time, exponential with factor 0.1
	avgProcessingMs float64
	processed       int64
}

// New creates an Orchestrator with injected collaborators.
func New(
	cfg Config,
	a *analyzer.Analyzer,
	g *graph.Store,
	contents repository.ContentRepository,
	persist repository.RelationshipPersistence,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewCollector("resurface_test")
	}
	return &Orchestrator{
		cfg:        cfg,
		analyzer:   a,
		graph:      g,
		contents:   contents,
		persist:    persist,
		logger:     logger,
		metrics:    metrics,
		pending:    make(map[string]pendingTrigger),
		processing: make(map[string]struct{}),
	}
}

// Trigger records a create/update lifecycle event for a content id. Repeat
// triggers within the debounce window coalesce into one pending entry and
// push the fire time back; a trigger for an id already being processed is
// kept pending and handled on a later sweep rather than run concurrently.
func (o *Orchestrator) Trigger(id string, kind TriggerKind) {
	now := time.Now()
	o.mu.Lock()
	defer o.mu.Unlock()

	if existing, ok := o.pending[id]; ok && existing.kind == TriggerCreated {
		// Content that was never analyzed stays on the create path even if
		// edited before the debounce elapsed.
		kind = TriggerCreated
	}
	fireAt := now.Add(o.cfg.DebounceDelay)
	o.pending[id] = pendingTrigger{kind: kind, fireAt: fireAt}
	heap.Push(&o.queue, timerEntry{fireAt: fireAt, contentID: id})
	o.metrics.PendingTriggers.Set(float64(len(o.pending)))
}

// HandleContentDeleted cancels any pending trigger for the id and cascades
// the deletion through the graph and persistence. Work already dispatched
// for the id is not interrupted; its result is discarded by this cleanup.
func (o *Orchestrator) HandleContentDeleted(ctx context.Context, id string) (int, error) {
	o.mu.Lock()
	delete(o.pending, id)
	o.metrics.PendingTriggers.Set(float64(len(o.pending)))
	o.mu.Unlock()

	removed := o.graph.RemoveByContent(id)
	o.metrics.RelationshipsRemoved.Add(float64(removed))

	if _, err := o.persist.DeleteByContentID(ctx, id); err != nil {
		o.logger.Error("failed to delete persisted relationships",
			zap.String("content_id", id),
			zap.Error(err),
		)
		return removed, appErrors.Wrap(err, "delete relationships for content")
	}
	return removed, nil
}

// dueIDs pops every queue entry due at now whose pending record still
// points at that fire time, skipping ids currently being processed.
func (o *Orchestrator) dueIDs(now time.Time) map[string]TriggerKind {
	o.mu.Lock()
	defer o.mu.Unlock()

	due := make(map[string]TriggerKind)
	for {
		entry, ok := o.queue.peek()
		if !ok || entry.fireAt.After(now) {
			break
		}
		heap.Pop(&o.queue)

		p, pending := o.pending[entry.contentID]
		if !pending || p.fireAt.After(now) {
			continue // superseded or already handled
		}
		if _, busy := o.processing[entry.contentID]; busy {
			continue // stays pending, picked up on a later sweep
		}
		due[entry.contentID] = p.kind
	}
	return due
}

// RunDue processes every trigger whose debounce has elapsed by now. Items
// are processed concurrently within fixed-size batches; batches run
// sequentially, bounding peak concurrency at BatchSize. Per-item failures
// are logged and do not abort the sweep.
func (o *Orchestrator) RunDue(ctx context.Context, now time.Time) {
	if o.cfg.RelationshipTTL > 0 {
		removed := o.graph.SweepExpired(o.cfg.RelationshipTTL, now)
		o.metrics.RelationshipsRemoved.Add(float64(removed))
	}

	due := o.dueIDs(now)
	if len(due) == 0 {
		return
	}

	ids := make([]string, 0, len(due))
	for id := range due {
		ids = append(ids, id)
	}

	batchSize := o.cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	for start := 0; start < len(ids); start += batchSize {
		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}
		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			wg.Add(1)
			go func(id string, kind TriggerKind) {
				defer wg.Done()
				if err := o.ProcessContent(ctx, id, kind); err != nil {
					o.logger.Error("relationship processing failed",
						zap.String("content_id", id),
						zap.Error(err),
					)
				}
			}(id, due[id])
		}
		wg.Wait()
	}
}

// FlushPending forces every pending trigger due immediately and runs them.
func (o *Orchestrator) FlushPending(ctx context.Context) {
	o.mu.Lock()
	now := time.Now()
	for id, p := range o.pending {
		p.fireAt = now
		o.pending[id] = p
		heap.Push(&o.queue, timerEntry{fireAt: now, contentID: id})
	}
	o.mu.Unlock()
	o.RunDue(ctx, now)
}

// Start runs the background sweep loop until the context is canceled.
func (o *Orchestrator) Start(ctx context.Context) {
	interval := o.cfg.SweepInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				o.RunDue(ctx, now)
			}
		}
	}()
}

// ProcessContent runs the full analysis pipeline for one content id: load
// the pool, analyze, mirror into the graph with reciprocals, persist. The
// pending trigger is cleared on entry; a persistence failure is logged and
// returned without re-queueing the id.
func (o *Orchestrator) ProcessContent(ctx context.Context, id string, kind TriggerKind) error {
	o.mu.Lock()
	if _, busy := o.processing[id]; busy {
		o.mu.Unlock()
		return nil
	}
	o.processing[id] = struct{}{}
	delete(o.pending, id)
	o.metrics.PendingTriggers.Set(float64(len(o.pending)))
	o.mu.Unlock()

	started := time.Now()
	defer func() {
		o.mu.Lock()
		delete(o.processing, id)
		elapsed := float64(time.Since(started).Milliseconds())
		if o.processed == 0 {
			o.avgProcessingMs = elapsed
		} else {
			o.avgProcessingMs = o.avgProcessingMs*0.9 + elapsed*0.1
		}
		o.processed++
		o.mu.Unlock()
		o.metrics.ProcessingDuration.Observe(time.Since(started).Seconds())
	}()

	items, err := o.contents.List(ctx)
	if err != nil {
		return appErrors.NewPersistence("load content pool", err)
	}

	var target *content.Item
	pool := make([]*content.Item, 0, len(items))
	for _, item := range items {
		if item.ID == id {
			target = item
			continue
		}
		pool = append(pool, item)
	}
	if target == nil {
		// Deleted while pending; the deletion cleanup owns the graph state.
		o.logger.Debug("content vanished before processing", zap.String("content_id", id))
		return nil
	}

	if kind == TriggerUpdated {
		removed := o.graph.RemoveByContent(id)
		o.metrics.RelationshipsRemoved.Add(float64(removed))
		if _, err := o.persist.DeleteByContentID(ctx, id); err != nil {
			return appErrors.NewPersistence("replace persisted relationships", err)
		}
	}

	o.metrics.AnalysesRun.Inc()
	rels, err := o.analyzer.Analyze(target, pool)
	if err != nil {
		o.metrics.AnalysisFailures.Inc()
		return appErrors.Wrap(err, "analyze content "+id)
	}

	for _, rel := range rels {
		o.graph.Upsert(rel)
	}
	reciprocals := o.graph.CreateReciprocals(rels)
	all := append(append([]*relationship.Relationship(nil), rels...), reciprocals...)
	o.metrics.RelationshipsCreated.Add(float64(len(all)))

	if len(all) > 0 {
		if err := o.persist.BulkUpsert(ctx, all); err != nil {
			// Pending state stays cleared: log-and-drop, no automatic retry.
			o.logger.Error("failed to persist relationships",
				zap.String("content_id", id),
				zap.Int("count", len(all)),
				zap.Error(err),
			)
			return appErrors.NewPersistence("persist relationships", err)
		}
	}

	o.logger.Debug("relationships processed",
		zap.String("content_id", id),
		zap.Int("relationships", len(rels)),
		zap.Int("reciprocals", len(reciprocals)),
	)
	return nil
}

// RebuildAll clears the graph and recomputes relationships for the entire
// content set sequentially, paging to bound peak memory on large pools.
// Per-item analysis errors are logged and skipped; a persistence failure
// terminates the rebuild and is returned after logging.
func (o *Orchestrator) RebuildAll(ctx context.Context) error {
	items, err := o.contents.List(ctx)
	if err != nil {
		return appErrors.NewPersistence("load content pool for rebuild", err)
	}

	o.graph.Clear()

	pageSize := o.cfg.RebuildPageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	for start := 0; start < len(items); start += pageSize {
		end := start + pageSize
		if end > len(items) {
			end = len(items)
		}
		for _, target := range items[start:end] {
			pool := make([]*content.Item, 0, len(items)-1)
			for _, other := range items {
				if other.ID != target.ID {
					pool = append(pool, other)
				}
			}

			o.metrics.AnalysesRun.Inc()
			rels, err := o.analyzer.Analyze(target, pool)
			if err != nil {
				o.metrics.AnalysisFailures.Inc()
				o.logger.Error("rebuild analysis failed, skipping item",
					zap.String("content_id", target.ID),
					zap.Error(err),
				)
				continue
			}

			for _, rel := range rels {
				o.graph.Upsert(rel)
			}
			reciprocals := o.graph.CreateReciprocals(rels)
			all := append(append([]*relationship.Relationship(nil), rels...), reciprocals...)
			o.metrics.RelationshipsCreated.Add(float64(len(all)))

			if len(all) == 0 {
				continue
			}
			if err := o.persist.BulkUpsert(ctx, all); err != nil {
				o.logger.Error("rebuild persistence failed, terminating",
					zap.String("content_id", target.ID),
					zap.Error(err),
				)
				return appErrors.NewPersistence("persist rebuilt relationships", err)
			}
		}
	}

	o.logger.Info("relationship graph rebuilt",
		zap.Int("content_items", len(items)),
		zap.Int("relationships", o.graph.Len()),
	)
	return nil
}

// Stats describes the orchestrator's runtime state.
type Stats struct {
	Pending             int     `json:"pending"`
	Processing          int     `json:"processing"`
	Processed           int64   `json:"processed"`
	AvgProcessingMillis float64 `json:"avgProcessingMillis"`
}

// Stats returns a snapshot of scheduling state and timing.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stats{
		Pending:             len(o.pending),
		Processing:          len(o.processing),
		Processed:           o.processed,
		AvgProcessingMillis: o.avgProcessingMs,
	}
}
