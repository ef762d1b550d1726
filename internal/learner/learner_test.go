package learner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/interaction"
	"resurface-backend/internal/domain/preference"
	"resurface-backend/internal/domain/suggestion"
)

func event(action interaction.Action, category string) interaction.Event {
	return interaction.Event{
		ContentID: "c1",
		Timestamp: time.Now(),
		Action:    action,
		Category:  category,
		Domain:    "example.com",
		Context:   interaction.Context{Hour: 14},
	}
}

func TestRecord(t *testing.T) {
	t.Run("RejectsMalformedEvent", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		err := l.Record(interaction.Event{Action: interaction.ActionViewed})
		assert.Error(t, err)
	})

	t.Run("PositiveActionRaisesCategoryScore", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		require.NoError(t, l.Record(event(interaction.ActionClicked, "tech")))

		prefs := l.Snapshot()
		assert.Greater(t, prefs.Categories["tech"], preference.Neutral)
		assert.Greater(t, prefs.Domains["example.com"], preference.Neutral)
		assert.True(t, prefs.PreferredHours[14])
	})

	t.Run("DismissalLowersCategoryScore", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		e := event(interaction.ActionDismissed, "tech")
		e.DismissalReason = interaction.ReasonNotRelevant
		require.NoError(t, l.Record(e))

		prefs := l.Snapshot()
		assert.Less(t, prefs.Categories["tech"], preference.Neutral)
	})

	t.Run("LongerEngagementLearnsFaster", func(t *testing.T) {
		short := New(DefaultConfig(), nil, nil)
		long := New(DefaultConfig(), nil, nil)

		quick := event(interaction.ActionViewed, "tech")
		quick.Engagement = 5 * time.Second
		deep := event(interaction.ActionViewed, "tech")
		deep.Engagement = 3 * time.Minute

		require.NoError(t, short.Record(quick))
		require.NoError(t, long.Record(deep))

		assert.Greater(t, long.Snapshot().Categories["tech"], short.Snapshot().Categories["tech"])
	})

	t.Run("MetricsTrackShownAndEngaged", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		require.NoError(t, l.Record(event(interaction.ActionClicked, "tech")))
		require.NoError(t, l.Record(event(interaction.ActionDismissed, "tech")))

		m := l.MetricsSnapshot()
		assert.EqualValues(t, 2, m.SuggestionsShown)
		assert.EqualValues(t, 1, m.Engagements)
		assert.EqualValues(t, 1, m.Dismissals)
		assert.Equal(t, 2, m.ByCategory["tech"].Shown)
		assert.Equal(t, 1, m.ByCategory["tech"].Engaged)
		assert.InDelta(t, 0.5, m.ByCategory["tech"].Rate(), 0.001)
	})
}

func TestDismissalReasons(t *testing.T) {
	t.Run("BadTimingDropsPreferredHourAfterThreshold", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		require.NoError(t, l.Record(event(interaction.ActionClicked, "tech")))
		require.True(t, l.Snapshot().PreferredHours[14])

		bad := event(interaction.ActionDismissed, "tech")
		bad.DismissalReason = interaction.ReasonBadTiming

		// At the threshold the hour survives; one more drops it.
		for i := 0; i < DefaultConfig().BadTimingThreshold; i++ {
			require.NoError(t, l.Record(bad))
		}
		assert.True(t, l.Snapshot().PreferredHours[14])

		require.NoError(t, l.Record(bad))
		assert.False(t, l.Snapshot().PreferredHours[14])
	})

	t.Run("NotRelevantNearThresholdRaisesBar", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		before := l.Snapshot().MinRelevance

		e := event(interaction.ActionDismissed, "tech")
		e.DismissalReason = interaction.ReasonNotRelevant
		e.RelevanceScore = before + 0.05
		require.NoError(t, l.Record(e))

		assert.InDelta(t, before+0.05, l.Snapshot().MinRelevance, 0.001)
	})

	t.Run("NotRelevantFarAboveThresholdLeavesBar", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		before := l.Snapshot().MinRelevance

		e := event(interaction.ActionDismissed, "tech")
		e.DismissalReason = interaction.ReasonNotRelevant
		e.RelevanceScore = 0.9
		require.NoError(t, l.Record(e))

		assert.Equal(t, before, l.Snapshot().MinRelevance)
	})

	t.Run("MinRelevanceCapped", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		for i := 0; i < 30; i++ {
			e := event(interaction.ActionDismissed, "tech")
			e.DismissalReason = interaction.ReasonNotRelevant
			e.RelevanceScore = l.Snapshot().MinRelevance + 0.05
			require.NoError(t, l.Record(e))
		}
		assert.LessOrEqual(t, l.Snapshot().MinRelevance, 0.8)
	})

	t.Run("TooFrequentWidensGapUpToCap", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		e := event(interaction.ActionDismissed, "tech")
		e.DismissalReason = interaction.ReasonTooFrequent

		require.NoError(t, l.Record(e))
		assert.Equal(t, 20*time.Minute, l.Snapshot().MinGap)

		for i := 0; i < 40; i++ {
			require.NoError(t, l.Record(e))
		}
		assert.Equal(t, 120*time.Minute, l.Snapshot().MinGap)
	})
}

func TestDecay(t *testing.T) {
	l := New(DefaultConfig(), nil, nil)
	require.NoError(t, l.Record(event(interaction.ActionSaved, "tech")))
	peak := l.Snapshot().Categories["tech"]
	require.Greater(t, peak, preference.Neutral)

	// Unrelated interactions decay the untouched score toward neutral.
	for i := 0; i < 20; i++ {
		require.NoError(t, l.Record(event(interaction.ActionViewed, "cooking")))
	}
	decayed := l.Snapshot().Categories["tech"]
	assert.Less(t, decayed, peak)
	assert.Greater(t, decayed, preference.Neutral)
}

func TestAdjustSuggestionQuality(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	cand := func(id, category string, relevance float64) suggestion.Candidate {
		return suggestion.Candidate{
			SuggestionID: "sug-" + id,
			Content: &content.Item{
				ID:       id,
				URL:      "https://example.com/" + id,
				Category: category,
				Metadata: content.Metadata{WordCount: 800},
			},
			Relevance: relevance,
		}
	}

	t.Run("LearnedPreferenceBoostsRelevance", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		for i := 0; i < 10; i++ {
			require.NoError(t, l.Record(event(interaction.ActionSaved, "tech")))
		}

		out := l.AdjustSuggestionQuality([]suggestion.Candidate{
			cand("a", "tech", 0.5),
			cand("b", "cooking", 0.5),
		}, now)

		require.Len(t, out, 2)
		assert.Equal(t, "a", out[0].Content.ID)
		assert.Greater(t, out[0].Relevance, out[1].Relevance)
	})

	t.Run("BoostIsBounded", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		for i := 0; i < 50; i++ {
			require.NoError(t, l.Record(event(interaction.ActionSaved, "tech")))
		}

		out := l.AdjustSuggestionQuality([]suggestion.Candidate{cand("a", "tech", 0.5)}, now)
		require.Len(t, out, 1)
		// Category, domain and length boosts together stay within their caps.
		assert.LessOrEqual(t, out[0].Relevance, 0.5+maxCategoryBoost+maxDomainBoost+maxAuthorBoost+lengthBoost+0.001)
	})

	t.Run("DropsBelowAdaptiveThreshold", func(t *testing.T) {
		l := New(DefaultConfig(), nil, nil)
		out := l.AdjustSuggestionQuality([]suggestion.Candidate{cand("weak", "tech", 0.1)}, now)
		assert.Empty(t, out)
	})

	t.Run("DailyCapEnforced", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DailyCap = 3
		l := New(cfg, nil, nil)

		var pool []suggestion.Candidate
		for i := 0; i < 5; i++ {
			pool = append(pool, cand(fmt.Sprintf("c%d", i), "tech", 0.9))
		}

		first := l.AdjustSuggestionQuality(pool, now)
		assert.Len(t, first, 3)

		second := l.AdjustSuggestionQuality(pool, now)
		assert.Empty(t, second)

		// The cap resets on the next day.
		third := l.AdjustSuggestionQuality(pool, now.Add(24*time.Hour))
		assert.Len(t, third, 3)
	})
}

func TestExportImport(t *testing.T) {
	l := New(DefaultConfig(), nil, nil)
	for i := 0; i < 5; i++ {
		require.NoError(t, l.Record(event(interaction.ActionClicked, "tech")))
	}

	bundle := l.ExportData()
	require.NotNil(t, bundle.Preferences)
	require.Len(t, bundle.History, 5)

	restored := New(DefaultConfig(), nil, nil)
	require.NoError(t, restored.ImportData(bundle))

	assert.InDelta(t, l.Snapshot().Categories["tech"], restored.Snapshot().Categories["tech"], 1e-9)
	assert.EqualValues(t, 5, restored.MetricsSnapshot().SuggestionsShown)

	assert.Error(t, restored.ImportData(nil))
	assert.Error(t, restored.ImportData(&Export{}))
}
