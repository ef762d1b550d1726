package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"resurface-backend/internal/analyzer"
	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/graph"
	"resurface-backend/internal/learner"
	"resurface-backend/internal/observability"
	"resurface-backend/internal/orchestrator"
	"resurface-backend/internal/ranker"
	"resurface-backend/internal/repository/memory"
	"resurface-backend/internal/service"
	"resurface-backend/internal/timing"
	"resurface-backend/pkg/api"
)

type fixture struct {
	router   http.Handler
	contents *memory.ContentRepository
	svc      *service.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewCollector("resurface_test")
	contents := memory.NewContentRepository()
	rels := memory.NewRelationshipStore()
	snapshots := memory.NewSnapshotStore()
	g := graph.NewStore(logger)

	orch := orchestrator.New(
		orchestrator.DefaultConfig(),
		analyzer.New(analyzer.DefaultOptions(), logger),
		g, contents, rels, metrics, logger,
	)
	svc := service.New(
		contents, snapshots, g, orch,
		ranker.New(ranker.DefaultConfig(), metrics, logger),
		timing.New(timing.DefaultConfig(), metrics, logger),
		learner.New(learner.DefaultConfig(), metrics, logger),
		logger,
	)

	return &fixture{
		router:   NewRouter(svc, metrics, logger),
		contents: contents,
		svc:      svc,
	}
}

func (f *fixture) seed(n int, category string) {
	for i := 0; i < n; i++ {
		f.contents.Put(&content.Item{
			ID:           fmt.Sprintf("%s-%d", category, i),
			URL:          fmt.Sprintf("https://example.com/%s/%d", category, i),
			Title:        "Understanding concurrency patterns in depth",
			Concepts:     []string{"concurrency", "patterns", "channels"},
			Tags:         []string{"programming"},
			Category:     category,
			CapturedAt:   time.Now().Add(-72 * time.Hour),
			LastAccessed: time.Now().Add(-48 * time.Hour),
			Metadata:     content.Metadata{WordCount: 800},
		})
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) (*httptest.ResponseRecorder, api.Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	var envelope api.Response
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec, envelope
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	rec, envelope := f.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, envelope.Success)

	rec, _ = f.do(t, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetRelated(t *testing.T) {
	f := newFixture(t)
	f.seed(3, "tech")
	require.NoError(t, f.svc.RebuildGraph(context.Background()))

	t.Run("ReturnsRelatedContent", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodGet, "/api/v1/content/tech-0/related", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("UnknownContentIs404", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodGet, "/api/v1/content/missing/related", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, envelope.Success)
		assert.NotEmpty(t, envelope.Error)
	})
}

func TestRelationshipEndpoints(t *testing.T) {
	f := newFixture(t)
	f.seed(3, "tech")
	require.NoError(t, f.svc.RebuildGraph(context.Background()))

	t.Run("QueryReturnsEdges", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodGet, "/api/v1/relationships?sourceId=tech-0", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("StatsSucceeds", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodGet, "/api/v1/relationships/stats", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("RebuildSucceeds", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/relationships/rebuild", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})
}

func TestContentEvent(t *testing.T) {
	f := newFixture(t)
	f.seed(2, "tech")

	t.Run("CreatedQueues", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/events/content",
			map[string]string{"contentId": "tech-0", "event": "created"})
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("DeletedCascades", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/events/content",
			map[string]string{"contentId": "tech-1", "event": "deleted"})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("UnknownEventRejected", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/events/content",
			map[string]string{"contentId": "tech-0", "event": "renamed"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.False(t, envelope.Success)
	})

	t.Run("MissingContentIDRejected", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/api/v1/events/content",
			map[string]string{"event": "created"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSuggestionEndpoints(t *testing.T) {
	f := newFixture(t)
	f.seed(3, "tech")

	t.Run("RankReturnsSuggestions", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/suggestions/rank", map[string]any{
			"candidates": []map[string]any{
				{"contentId": "tech-0", "relevance": 0.9},
				{"contentId": "tech-1", "relevance": 0.6},
			},
			"context": map[string]any{"hour": 14, "activity": "browsing"},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("RankWithoutCandidatesRejected", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/api/v1/suggestions/rank",
			map[string]any{"candidates": []map[string]any{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("TimingReturnsPlan", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/suggestions/timing", map[string]any{
			"candidate": map[string]any{"contentId": "tech-0", "relevance": 0.8},
		})
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("TimingUnknownContentIs404", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/api/v1/suggestions/timing", map[string]any{
			"candidate": map[string]any{"contentId": "missing", "relevance": 0.8},
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestInteractionAndPreferences(t *testing.T) {
	f := newFixture(t)
	f.seed(1, "tech")

	t.Run("RecordInteraction", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodPost, "/api/v1/interactions", map[string]any{
			"contentId": "tech-0",
			"action":    "clicked",
			"category":  "tech",
			"context":   map[string]any{"hour": 14},
		})
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.True(t, envelope.Success)
	})

	t.Run("InvalidActionRejected", func(t *testing.T) {
		rec, _ := f.do(t, http.MethodPost, "/api/v1/interactions", map[string]any{
			"contentId": "tech-0",
			"action":    "teleported",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("PreferencesRoundTrip", func(t *testing.T) {
		rec, envelope := f.do(t, http.MethodGet, "/api/v1/preferences", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, envelope.Success)

		rec, exported := f.do(t, http.MethodGet, "/api/v1/preferences/export", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, exported.Success)

		rec, _ = f.do(t, http.MethodPost, "/api/v1/preferences/import", exported.Data)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
