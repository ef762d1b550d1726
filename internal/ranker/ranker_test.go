package ranker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/preference"
	"resurface-backend/internal/domain/suggestion"
	"resurface-backend/internal/learner"
)

func candidate(id, category string, relevance float64, ageDays int) suggestion.Candidate {
	return suggestion.Candidate{
		SuggestionID: "sug-" + id,
		Content: &content.Item{
			ID:         id,
			URL:        "https://example.com/" + id,
			Title:      "Item " + id,
			Category:   category,
			CapturedAt: time.Now().Add(-time.Duration(ageDays) * 24 * time.Hour),
			Metadata:   content.Metadata{WordCount: 800},
		},
		Relevance: relevance,
	}
}

func browsingContext() suggestion.Context {
	return suggestion.Context{
		URL:      "https://current.example.com/page",
		Category: "news",
		Hour:     14,
		Weekday:  time.Tuesday,
		Activity: suggestion.ActivityBrowsing,
	}
}

func TestRank(t *testing.T) {
	r := New(DefaultConfig(), nil, nil)
	prefs := preference.Default()
	metrics := learner.NewMetrics()
	now := time.Now()

	t.Run("FiltersBelowMinRelevance", func(t *testing.T) {
		result := r.Rank([]suggestion.Candidate{
			candidate("a", "tech", 0.1, 3),
			candidate("b", "tech", 0.9, 3),
		}, browsingContext(), prefs, metrics, now)

		require.Len(t, result.Suggestions, 1)
		assert.Equal(t, "b", result.Suggestions[0].Content.ID)
		assert.Equal(t, 1, result.Rejections[RejectBelowRelevance])
	})

	t.Run("FiltersMissingContentSeparately", func(t *testing.T) {
		result := r.Rank([]suggestion.Candidate{
			{SuggestionID: "sug-ghost", Relevance: 0.9},
			candidate("b", "tech", 0.9, 3),
		}, browsingContext(), prefs, metrics, now)

		require.Len(t, result.Suggestions, 1)
		assert.Equal(t, 1, result.Rejections[RejectMissingContent])
		assert.Zero(t, result.Rejections[RejectBelowRelevance])
	})

	t.Run("FiltersTooOld", func(t *testing.T) {
		result := r.Rank([]suggestion.Candidate{
			candidate("old", "tech", 0.9, 400),
		}, browsingContext(), prefs, metrics, now)

		assert.Empty(t, result.Suggestions)
		assert.Equal(t, 1, result.Rejections[RejectTooOld])
	})

	t.Run("FiltersRecentlyViewed", func(t *testing.T) {
		recent := candidate("recent", "tech", 0.9, 5)
		recent.Content.LastAccessed = now.Add(-1 * time.Hour)

		result := r.Rank([]suggestion.Candidate{recent}, browsingContext(), prefs, metrics, now)
		assert.Empty(t, result.Suggestions)
		assert.Equal(t, 1, result.Rejections[RejectRecentlyViewed])
	})

	t.Run("ScoresInRangeAndSorted", func(t *testing.T) {
		result := r.Rank([]suggestion.Candidate{
			candidate("a", "tech", 0.9, 2),
			candidate("b", "science", 0.5, 30),
			candidate("c", "cooking", 0.7, 10),
		}, browsingContext(), prefs, metrics, now)

		require.NotEmpty(t, result.Suggestions)
		for i, s := range result.Suggestions {
			assert.GreaterOrEqual(t, s.Score, 0.0)
			assert.LessOrEqual(t, s.Score, 1.0)
			if i > 0 {
				assert.GreaterOrEqual(t, result.Suggestions[i-1].Score, s.Score)
			}
		}
	})

	t.Run("CategoryCapHolds", func(t *testing.T) {
		var pool []suggestion.Candidate
		for i := 0; i < 6; i++ {
			pool = append(pool, candidate(fmt.Sprintf("tech-%d", i), "tech", 0.9, 3))
		}
		pool = append(pool, candidate("other", "science", 0.6, 3))

		result := r.Rank(pool, browsingContext(), prefs, metrics, now)

		perCategory := make(map[string]int)
		for _, s := range result.Suggestions {
			perCategory[s.Content.Category]++
		}
		assert.LessOrEqual(t, perCategory["tech"], DefaultConfig().CategoryCap)
		assert.Equal(t, 1, perCategory["science"])
	})

	t.Run("PreferenceShiftsOrdering", func(t *testing.T) {
		liked := preference.Default()
		liked.Categories["cooking"] = 0.95
		liked.Categories["tech"] = 0.05

		result := r.Rank([]suggestion.Candidate{
			candidate("t", "tech", 0.7, 3),
			candidate("c", "cooking", 0.7, 3),
		}, browsingContext(), liked, metrics, now)

		require.Len(t, result.Suggestions, 2)
		assert.Equal(t, "c", result.Suggestions[0].Content.ID)
	})
}

func TestAdaptWeights(t *testing.T) {
	t.Run("RaisesFactorsCorrelatedWithEngagement", func(t *testing.T) {
		r := New(DefaultConfig(), nil, nil)
		before := r.WeightsSnapshot()

		engaged := []FactorVector{{Recency: 0.9, Relevance: 0.5}, {Recency: 0.8, Relevance: 0.5}}
		dismissed := []FactorVector{{Recency: 0.2, Relevance: 0.5}, {Recency: 0.1, Relevance: 0.5}}
		r.AdaptWeights(engaged, dismissed)

		after := r.WeightsSnapshot()
		assert.InDelta(t, before.Recency+DefaultConfig().AdaptStep, after.Recency, 1e-9)
		assert.Equal(t, before.Relevance, after.Relevance)
	})

	t.Run("CapBoundsDrift", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.AdaptStep = 0.05
		r := New(cfg, nil, nil)

		engaged := []FactorVector{{Recency: 1}}
		dismissed := []FactorVector{{Recency: 0}}
		for i := 0; i < 50; i++ {
			r.AdaptWeights(engaged, dismissed)
		}
		assert.LessOrEqual(t, r.WeightsSnapshot().Recency, cfg.WeightCaps.Recency)
	})

	t.Run("EmptyGroupsNoop", func(t *testing.T) {
		r := New(DefaultConfig(), nil, nil)
		before := r.WeightsSnapshot()
		r.AdaptWeights(nil, nil)
		assert.Equal(t, before, r.WeightsSnapshot())
	})
}

func TestDiversityScore(t *testing.T) {
	ctx := browsingContext()

	sameCategory := &content.Item{Category: "news", URL: "https://current.example.com/x"}
	sameCatOtherDomain := &content.Item{Category: "news", URL: "https://elsewhere.org/y"}
	otherCategory := &content.Item{Category: "tech", URL: "https://current.example.com/z"}

	assert.InDelta(t, 0.3, diversityScore(sameCategory, ctx), 0.001)
	assert.InDelta(t, 0.6, diversityScore(sameCatOtherDomain, ctx), 0.001)
	assert.InDelta(t, 0.8, diversityScore(otherCategory, ctx), 0.001)
}

func TestRecencyScore(t *testing.T) {
	now := time.Now()
	fresh := &content.Item{CapturedAt: now, LastAccessed: now}
	stale := &content.Item{
		CapturedAt:   now.Add(-120 * 24 * time.Hour),
		LastAccessed: now.Add(-60 * 24 * time.Hour),
	}
	assert.Greater(t, recencyScore(fresh, now), recencyScore(stale, now))
	assert.InDelta(t, 1.0, recencyScore(fresh, now), 0.01)
}
