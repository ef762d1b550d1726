// Package service is the application facade: it composes the relationship
// engine and the suggestion pipeline behind one API consumed by the HTTP
// handlers and the CLI.
package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/interaction"
	"resurface-backend/internal/domain/preference"
	"resurface-backend/internal/domain/relationship"
	"resurface-backend/internal/domain/suggestion"
	"resurface-backend/internal/graph"
	"resurface-backend/internal/learner"
	"resurface-backend/internal/orchestrator"
	"resurface-backend/internal/ranker"
	"resurface-backend/internal/repository"
	"resurface-backend/internal/timing"
	appErrors "resurface-backend/pkg/errors"
)

// snapshotKey names the learned-state blob in the snapshot store.
const snapshotKey = "learned-state"

// Service wires the relationship engine and the suggestion pipeline.
type Service struct {
	contents  repository.ContentRepository
	snapshots repository.SnapshotStore
	graph     *graph.Store
	orch      *orchestrator.Orchestrator
	ranker    *ranker.Ranker
	scheduler *timing.Scheduler
	learner   *learner.Learner
	logger    *zap.Logger
}

// New creates the facade over already-constructed collaborators.
func New(
	contents repository.ContentRepository,
	snapshots repository.SnapshotStore,
	g *graph.Store,
	orch *orchestrator.Orchestrator,
	r *ranker.Ranker,
	scheduler *timing.Scheduler,
	l *learner.Learner,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		contents:  contents,
		snapshots: snapshots,
		graph:     g,
		orch:      orch,
		ranker:    r,
		scheduler: scheduler,
		learner:   l,
		logger:    logger,
	}
}

// RelatedItem pairs a related content item with the edge that connects it.
type RelatedItem struct {
	Content      *content.Item              `json:"content"`
	Relationship *relationship.Relationship `json:"relationship"`
}

// GetRelatedContent returns the content related to the given id, strongest
// edges first. The id must name an existing item.
func (s *Service) GetRelatedContent(ctx context.Context, id string, limit int) ([]RelatedItem, error) {
	if id == "" {
		return nil, appErrors.NewValidation("content id is required")
	}
	if _, err := s.contents.Find(ctx, id); err != nil {
		return nil, err
	}

	rels := s.graph.Query(relationship.Filter{SourceID: id, Limit: limit})

	related := make([]RelatedItem, 0, len(rels))
	for _, rel := range rels {
		otherID := rel.TargetID
		if otherID == id {
			otherID = rel.SourceID
		}
		item, err := s.contents.Find(ctx, otherID)
		if err != nil {
			if appErrors.IsNotFound(err) {
				// Edge outlived its endpoint; skip rather than fail the read.
				s.logger.Warn("related content missing, skipping edge",
					zap.String("relationship_id", rel.ID),
					zap.String("content_id", otherID),
				)
				continue
			}
			return nil, err
		}
		related = append(related, RelatedItem{Content: item, Relationship: rel})
	}
	return related, nil
}

// QueryRelationships filters the in-memory graph.
func (s *Service) QueryRelationships(f relationship.Filter) []*relationship.Relationship {
	return s.graph.Query(f)
}

// GraphStats describes the graph and the processing pipeline behind it.
type GraphStats struct {
	Graph        graph.Stats        `json:"graph"`
	Orchestrator orchestrator.Stats `json:"orchestrator"`
}

// RelationshipStats returns graph composition and pipeline state.
func (s *Service) RelationshipStats() GraphStats {
	return GraphStats{
		Graph:        s.graph.Stats(),
		Orchestrator: s.orch.Stats(),
	}
}

// NotifyContentCreated queues relationship analysis for new content.
func (s *Service) NotifyContentCreated(id string) error {
	if id == "" {
		return appErrors.NewValidation("content id is required")
	}
	s.orch.Trigger(id, orchestrator.TriggerCreated)
	return nil
}

// NotifyContentUpdated queues a relationship recompute for edited content.
func (s *Service) NotifyContentUpdated(id string) error {
	if id == "" {
		return appErrors.NewValidation("content id is required")
	}
	s.orch.Trigger(id, orchestrator.TriggerUpdated)
	return nil
}

// NotifyContentDeleted cascades a content deletion through the graph and
// persistence, returning the number of relationships removed.
func (s *Service) NotifyContentDeleted(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, appErrors.NewValidation("content id is required")
	}
	return s.orch.HandleContentDeleted(ctx, id)
}

// RebuildGraph recomputes the entire relationship graph from the content
// pool.
func (s *Service) RebuildGraph(ctx context.Context) error {
	return s.orch.RebuildAll(ctx)
}

// CandidateRef identifies a candidate by content id, as sent over the API.
type CandidateRef struct {
	ContentID    string             `json:"contentId" validate:"required"`
	SuggestionID string             `json:"suggestionId,omitempty"`
	Relevance    float64            `json:"relevance" validate:"gte=0,lte=1"`
	MatchReasons []string           `json:"matchReasons,omitempty"`
	Urgency      suggestion.Urgency `json:"urgency,omitempty"`
}

// ResolveCandidates loads the content behind each ref. Refs whose content
// no longer exists are skipped; a batch rank should not fail because one
// item was deleted since the caller scored it.
func (s *Service) ResolveCandidates(ctx context.Context, refs []CandidateRef) ([]suggestion.Candidate, error) {
	candidates := make([]suggestion.Candidate, 0, len(refs))
	for _, ref := range refs {
		if ref.ContentID == "" {
			return nil, appErrors.NewValidation("candidate requires a content id")
		}
		item, err := s.contents.Find(ctx, ref.ContentID)
		if err != nil {
			if appErrors.IsNotFound(err) {
				s.logger.Warn("candidate content missing, skipping",
					zap.String("content_id", ref.ContentID))
				continue
			}
			return nil, err
		}
		candidates = append(candidates, suggestion.Candidate{
			SuggestionID: ref.SuggestionID,
			Content:      item,
			Relevance:    ref.Relevance,
			MatchReasons: ref.MatchReasons,
			Urgency:      ref.Urgency,
		})
	}
	return candidates, nil
}

// RankSuggestions reshapes candidate relevance with the learned
// preferences, then ranks the survivors against the browsing context.
func (s *Service) RankSuggestions(candidates []suggestion.Candidate, ctx suggestion.Context, now time.Time) ranker.Result {
	adjusted := s.learner.AdjustSuggestionQuality(candidates, now)
	return s.ranker.Rank(adjusted, ctx, s.learner.Snapshot(), s.learner.MetricsSnapshot(), now)
}

// CalculateOptimalTiming produces the delivery plan for one candidate.
func (s *Service) CalculateOptimalTiming(cand suggestion.Candidate, now time.Time) (timing.Plan, error) {
	if cand.Content == nil || cand.Content.ID == "" {
		return timing.Plan{}, appErrors.NewValidation("timing candidate requires content")
	}
	return s.scheduler.Schedule(cand, now), nil
}

// RecordInteraction feeds one outcome into the preference learner and the
// behavior model.
func (s *Service) RecordInteraction(event interaction.Event) error {
	if err := s.learner.Record(event); err != nil {
		return err
	}
	s.scheduler.UpdateUserBehavior(
		event.Context.Hour,
		event.Action.Positive(),
		event.Category,
		event.DismissalReason,
	)
	return nil
}

// Preferences returns a read-only snapshot of the learned preference model.
func (s *Service) Preferences() *preference.Preferences {
	return s.learner.Snapshot()
}

// LearningMetrics returns the engagement metrics accumulated so far.
func (s *Service) LearningMetrics() *learner.Metrics {
	return s.learner.MetricsSnapshot()
}

// LearnedState is the export bundle: preference model, metrics, history
// and the timing behavior pattern.
type LearnedState struct {
	Learner    *learner.Export  `json:"learner"`
	Behavior   *timing.Behavior `json:"behavior"`
	ExportedAt time.Time        `json:"exportedAt"`
}

// ExportData snapshots the learned state and persists it.
func (s *Service) ExportData(ctx context.Context) (*LearnedState, error) {
	state := &LearnedState{
		Learner:    s.learner.ExportData(),
		Behavior:   s.scheduler.BehaviorSnapshot(),
		ExportedAt: time.Now().UTC(),
	}

	blob, err := json.Marshal(state)
	if err != nil {
		return nil, appErrors.NewInternal("encode learned state", err)
	}
	if err := s.snapshots.SaveSnapshot(ctx, snapshotKey, blob); err != nil {
		return nil, err
	}

	s.logger.Info("learned state exported", zap.Int("bytes", len(blob)))
	return state, nil
}

// ImportData replaces the learned state with the given bundle and persists
// the new state.
func (s *Service) ImportData(ctx context.Context, state *LearnedState) error {
	if state == nil || state.Learner == nil {
		return appErrors.NewValidation("import requires a learned-state bundle")
	}
	if err := s.learner.ImportData(state.Learner); err != nil {
		return err
	}
	s.scheduler.RestoreBehavior(state.Behavior)

	blob, err := json.Marshal(state)
	if err != nil {
		return appErrors.NewInternal("encode learned state", err)
	}
	return s.snapshots.SaveSnapshot(ctx, snapshotKey, blob)
}

// RestoreLearnedState loads the persisted learned state at startup. A
// missing snapshot is not an error; the learner starts fresh.
func (s *Service) RestoreLearnedState(ctx context.Context) error {
	blob, err := s.snapshots.LoadSnapshot(ctx, snapshotKey)
	if err != nil {
		if appErrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	var state LearnedState
	if err := json.Unmarshal(blob, &state); err != nil {
		return appErrors.NewInternal("decode learned state", err)
	}
	if state.Learner != nil {
		if err := s.learner.ImportData(state.Learner); err != nil {
			return err
		}
	}
	s.scheduler.RestoreBehavior(state.Behavior)
	s.logger.Info("learned state restored")
	return nil
}
