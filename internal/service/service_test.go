package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resurface-backend/internal/analyzer"
	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/interaction"
	"resurface-backend/internal/graph"
	"resurface-backend/internal/learner"
	"resurface-backend/internal/observability"
	"resurface-backend/internal/orchestrator"
	"resurface-backend/internal/ranker"
	"resurface-backend/internal/repository/memory"
	"resurface-backend/internal/timing"
	appErrors "resurface-backend/pkg/errors"
)

func newService(t *testing.T) (*Service, *memory.ContentRepository) {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewCollector("resurface_test")
	contents := memory.NewContentRepository()
	g := graph.NewStore(logger)

	orch := orchestrator.New(
		orchestrator.DefaultConfig(),
		analyzer.New(analyzer.DefaultOptions(), logger),
		g, contents, memory.NewRelationshipStore(), metrics, logger,
	)
	svc := New(
		contents, memory.NewSnapshotStore(), g, orch,
		ranker.New(ranker.DefaultConfig(), metrics, logger),
		timing.New(timing.DefaultConfig(), metrics, logger),
		learner.New(learner.DefaultConfig(), metrics, logger),
		logger,
	)
	return svc, contents
}

func seedItems(contents *memory.ContentRepository, n int) {
	for i := 0; i < n; i++ {
		contents.Put(&content.Item{
			ID:           fmt.Sprintf("item-%d", i),
			URL:          fmt.Sprintf("https://example.com/%d", i),
			Title:        "Designing resilient data pipelines",
			Concepts:     []string{"pipelines", "resilience", "batching"},
			Tags:         []string{"engineering"},
			Category:     "tech",
			CapturedAt:   time.Now().Add(-96 * time.Hour),
			LastAccessed: time.Now().Add(-48 * time.Hour),
			Metadata:     content.Metadata{WordCount: 1200},
		})
	}
}

func TestGetRelatedContent(t *testing.T) {
	svc, contents := newService(t)
	seedItems(contents, 3)
	require.NoError(t, svc.RebuildGraph(context.Background()))

	t.Run("ReturnsStrongestFirst", func(t *testing.T) {
		related, err := svc.GetRelatedContent(context.Background(), "item-0", 10)
		require.NoError(t, err)
		require.NotEmpty(t, related)
		for i := 1; i < len(related); i++ {
			assert.GreaterOrEqual(t,
				related[i-1].Relationship.Strength,
				related[i].Relationship.Strength,
			)
		}
	})

	t.Run("UnknownIDIsNotFound", func(t *testing.T) {
		_, err := svc.GetRelatedContent(context.Background(), "ghost", 10)
		assert.True(t, appErrors.IsNotFound(err))
	})

	t.Run("EmptyIDIsValidation", func(t *testing.T) {
		_, err := svc.GetRelatedContent(context.Background(), "", 10)
		assert.True(t, appErrors.IsValidation(err))
	})

	t.Run("SkipsEdgesWithMissingEndpoint", func(t *testing.T) {
		contents.Delete("item-2")
		related, err := svc.GetRelatedContent(context.Background(), "item-0", 10)
		require.NoError(t, err)
		for _, r := range related {
			assert.NotEqual(t, "item-2", r.Content.ID)
		}
	})
}

func TestResolveCandidates(t *testing.T) {
	svc, contents := newService(t)
	seedItems(contents, 2)

	t.Run("SkipsMissingContent", func(t *testing.T) {
		candidates, err := svc.ResolveCandidates(context.Background(), []CandidateRef{
			{ContentID: "item-0", Relevance: 0.9},
			{ContentID: "vanished", Relevance: 0.8},
		})
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		assert.Equal(t, "item-0", candidates[0].Content.ID)
	})

	t.Run("EmptyIDIsValidation", func(t *testing.T) {
		_, err := svc.ResolveCandidates(context.Background(), []CandidateRef{{Relevance: 0.5}})
		assert.True(t, appErrors.IsValidation(err))
	})
}

func TestRecordInteractionFeedsBothModels(t *testing.T) {
	svc, _ := newService(t)

	err := svc.RecordInteraction(interaction.Event{
		ContentID: "item-0",
		Timestamp: time.Now(),
		Action:    interaction.ActionClicked,
		Category:  "tech",
		Context:   interaction.Context{Hour: 15},
	})
	require.NoError(t, err)

	prefs := svc.Preferences()
	assert.Greater(t, prefs.Categories["tech"], 0.5)
	assert.True(t, prefs.PreferredHours[15])

	metrics := svc.LearningMetrics()
	assert.EqualValues(t, 1, metrics.Engagements)
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _ := newService(t)
	require.NoError(t, svc.RecordInteraction(interaction.Event{
		ContentID: "item-0",
		Timestamp: time.Now(),
		Action:    interaction.ActionSaved,
		Category:  "tech",
		Context:   interaction.Context{Hour: 9},
	}))

	state, err := svc.ExportData(context.Background())
	require.NoError(t, err)
	require.NotNil(t, state.Learner)
	require.NotNil(t, state.Behavior)

	fresh, _ := newService(t)
	require.NoError(t, fresh.ImportData(context.Background(), state))
	assert.InDelta(t,
		svc.Preferences().Categories["tech"],
		fresh.Preferences().Categories["tech"],
		1e-9,
	)
}

func TestRestoreLearnedStateMissingSnapshotIsNoop(t *testing.T) {
	svc, _ := newService(t)
	assert.NoError(t, svc.RestoreLearnedState(context.Background()))
}
