// Package graph implements the in-memory relationship graph: a relationship
// table plus a secondary index from content id to the relationship ids that
// touch it. Both structures are mutated only through the insert/remove write
// path so they can never desynchronize.
package graph

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/relationship"
)

// Store is the dual-indexed relationship arena.
type Store struct {
	mu        sync.RWMutex
	table     map[string]*relationship.Relationship
	byContent map[string]map[string]struct{} // content id -> relationship id set
	logger    *zap.Logger
}

// NewStore creates an empty relationship graph store.
func NewStore(logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		table:     make(map[string]*relationship.Relationship),
		byContent: make(map[string]map[string]struct{}),
		logger:    logger,
	}
}

// insert is one half of the single write path. Caller holds mu.
func (s *Store) insert(rel *relationship.Relationship) {
	s.table[rel.ID] = rel
	s.indexFor(rel.SourceID)[rel.ID] = struct{}{}
	s.indexFor(rel.TargetID)[rel.ID] = struct{}{}
}

// remove is the other half of the single write path. Caller holds mu.
func (s *Store) remove(id string) {
	rel, ok := s.table[id]
	if !ok {
		return
	}
	delete(s.table, id)
	s.unindex(rel.SourceID, id)
	s.unindex(rel.TargetID, id)
}

func (s *Store) indexFor(contentID string) map[string]struct{} {
	idx, ok := s.byContent[contentID]
	if !ok {
		idx = make(map[string]struct{})
		s.byContent[contentID] = idx
	}
	return idx
}

func (s *Store) unindex(contentID, relID string) {
	idx, ok := s.byContent[contentID]
	if !ok {
		return
	}
	delete(idx, relID)
	if len(idx) == 0 {
		delete(s.byContent, contentID)
	}
}

// Upsert stores a relationship, replacing any previous entry under the same
// id or covering the same ordered (source, target) pair. Pair-level
// replacement keeps the graph idempotent when both endpoints of a symmetric
// pair are analyzed: the later run's edge supersedes the reciprocal
// synthesized by the earlier one instead of landing beside it.
func (s *Store) Upsert(rel *relationship.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertLocked(rel)
}

// upsertLocked is the pair-deduplicating write. Caller holds mu.
func (s *Store) upsertLocked(rel *relationship.Relationship) {
	var stale []string
	if _, ok := s.table[rel.ID]; ok {
		stale = append(stale, rel.ID)
	}
	for relID := range s.byContent[rel.SourceID] {
		existing := s.table[relID]
		if existing != nil && existing.SourceID == rel.SourceID && existing.TargetID == rel.TargetID {
			stale = append(stale, relID)
		}
	}
	for _, relID := range stale {
		s.remove(relID)
	}
	s.insert(rel)
}

// CreateReciprocals ensures every given relationship has its reverse edge.
// For each relationship whose swapped (target, source) pair is not already
// present, a reverse edge with identical type, strength, confidence and
// timestamps is synthesized under a distinct id. Returns the edges created.
func (s *Store) CreateReciprocals(rels []*relationship.Relationship) []*relationship.Relationship {
	s.mu.Lock()
	defer s.mu.Unlock()

	var created []*relationship.Relationship
	for _, rel := range rels {
		if s.hasEdgeLocked(rel.TargetID, rel.SourceID) {
			continue
		}
		reverse := rel.Reciprocal()
		s.insert(reverse)
		created = append(created, reverse)
	}
	return created
}

// hasEdgeLocked checks for any edge source→target. Caller holds mu.
func (s *Store) hasEdgeLocked(sourceID, targetID string) bool {
	return s.edgeForPairLocked(sourceID, targetID) != nil
}

// RemoveByContent deletes every relationship touching the content id from
// the table and both endpoints' indices, clears the id's own index entry,
// and returns the number of relationships removed.
func (s *Store) RemoveByContent(contentID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.byContent[contentID]))
	for relID := range s.byContent[contentID] {
		ids = append(ids, relID)
	}
	for _, relID := range ids {
		s.remove(relID)
	}
	delete(s.byContent, contentID)

	if len(ids) > 0 {
		s.logger.Debug("removed relationships for content",
			zap.String("content_id", contentID),
			zap.Int("removed", len(ids)),
		)
	}
	return len(ids)
}

// SweepExpired deletes relationships whose last update is older than the
// TTL. A zero TTL disables sweeping. Returns the number removed.
func (s *Store) SweepExpired(ttl time.Duration, now time.Time) int {
	if ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := now.Add(-ttl)
	var expired []string
	for id, rel := range s.table {
		if rel.LastUpdated.Before(cutoff) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		s.remove(id)
	}

	if len(expired) > 0 {
		s.logger.Info("swept expired relationships",
			zap.Int("removed", len(expired)),
			zap.Duration("ttl", ttl),
		)
	}
	return len(expired)
}

// Query filters the table, sorts by strength descending and truncates to
// the filter limit.
func (s *Store) Query(f relationship.Filter) []*relationship.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var results []*relationship.Relationship

	// Narrow via the index when an endpoint is given.
	if f.SourceID != "" || f.TargetID != "" {
		seed := f.SourceID
		if seed == "" {
			seed = f.TargetID
		}
		for relID := range s.byContent[seed] {
			rel := s.table[relID]
			if rel != nil && f.Matches(rel) {
				results = append(results, rel)
			}
		}
	} else {
		for _, rel := range s.table {
			if f.Matches(rel) {
				results = append(results, rel)
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Strength != results[j].Strength {
			return results[i].Strength > results[j].Strength
		}
		return results[i].ID < results[j].ID
	})

	if f.Limit > 0 && len(results) > f.Limit {
		results = results[:f.Limit]
	}
	return results
}

// All returns every stored relationship.
func (s *Store) All() []*relationship.Relationship {
	return s.Query(relationship.Filter{})
}

// Len returns the number of stored relationships.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.table)
}

// Clear empties the store. Used by full rebuilds.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = make(map[string]*relationship.Relationship)
	s.byContent = make(map[string]map[string]struct{})
}

// Load replaces the store contents with the given relationships, used when
// hydrating from persistence at startup. Persisted sets written before
// pair-level replacement may carry duplicate edges for one pair; only the
// most recently updated survives.
func (s *Store) Load(rels []*relationship.Relationship) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = make(map[string]*relationship.Relationship, len(rels))
	s.byContent = make(map[string]map[string]struct{})
	for _, rel := range rels {
		if existing := s.edgeForPairLocked(rel.SourceID, rel.TargetID); existing != nil &&
			existing.LastUpdated.After(rel.LastUpdated) {
			continue
		}
		s.upsertLocked(rel)
	}
}

// edgeForPairLocked returns the stored edge source→target, if any. Caller
// holds mu.
func (s *Store) edgeForPairLocked(sourceID, targetID string) *relationship.Relationship {
	for relID := range s.byContent[sourceID] {
		rel := s.table[relID]
		if rel != nil && rel.SourceID == sourceID && rel.TargetID == targetID {
			return rel
		}
	}
	return nil
}

// Degree is one entry of the outdegree leaderboard.
type Degree struct {
	ContentID string `json:"contentId"`
	Count     int    `json:"count"`
}

// Stats summarizes the graph.
type Stats struct {
	Total          int                       `json:"total"`
	CountsByType   map[relationship.Type]int `json:"countsByType"`
	MeanStrength   float64                   `json:"meanStrength"`
	MeanConfidence float64                   `json:"meanConfidence"`
	TopConnected   []Degree                  `json:"topConnected"`
}

// Stats computes counts by type, mean strength/confidence and the ten
// highest-degree content ids.
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{CountsByType: make(map[relationship.Type]int)}
	var strengthSum, confidenceSum float64
	for _, rel := range s.table {
		stats.Total++
		stats.CountsByType[rel.Type]++
		strengthSum += rel.Strength
		confidenceSum += rel.Confidence
	}
	if stats.Total > 0 {
		stats.MeanStrength = strengthSum / float64(stats.Total)
		stats.MeanConfidence = confidenceSum / float64(stats.Total)
	}

	degrees := make([]Degree, 0, len(s.byContent))
	for contentID, idx := range s.byContent {
		degrees = append(degrees, Degree{ContentID: contentID, Count: len(idx)})
	}
	sort.Slice(degrees, func(i, j int) bool {
		if degrees[i].Count != degrees[j].Count {
			return degrees[i].Count > degrees[j].Count
		}
		return degrees[i].ContentID < degrees[j].ContentID
	})
	if len(degrees) > 10 {
		degrees = degrees[:10]
	}
	stats.TopConnected = degrees
	return stats
}
