package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/suggestion"
)

// Noon on a Tuesday, far from the default quiet window.
var baseTime = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func timedItem(accessedDaysAgo, accesses int) *content.Item {
	return &content.Item{
		ID:            "item",
		URL:           "https://example.com/item",
		CapturedAt:    baseTime.Add(-60 * 24 * time.Hour),
		LastAccessed:  baseTime.Add(-time.Duration(accessedDaysAgo) * 24 * time.Hour),
		TimesAccessed: accesses,
	}
}

func TestForgettingCurve(t *testing.T) {
	t.Run("FullRetentionAtZeroElapsed", func(t *testing.T) {
		assert.InDelta(t, 1.0, forgettingCurve(0, 0.5), 1e-9)
	})

	t.Run("StrictlyDecreasing", func(t *testing.T) {
		prev := forgettingCurve(0, 0.2)
		for days := 1.0; days <= 30; days++ {
			cur := forgettingCurve(days, 0.2)
			assert.Less(t, cur, prev)
			prev = cur
		}
	})

	t.Run("FrequentAccessSlowsForgetting", func(t *testing.T) {
		assert.Greater(t, forgettingCurve(10, 1.0), forgettingCurve(10, 0.1))
	})
}

func TestSchedule(t *testing.T) {
	base := baseTime

	newScheduler := func(cfg Config) *Scheduler {
		return New(cfg, nil, nil)
	}

	t.Run("UrgencyHintSetsBaseDelay", func(t *testing.T) {
		s := newScheduler(Config{})

		immediate := s.Schedule(suggestion.Candidate{
			Content: timedItem(1, 5), Relevance: 0.5, Urgency: suggestion.UrgencyImmediate,
		}, base)
		background := s.Schedule(suggestion.Candidate{
			Content: timedItem(1, 5), Relevance: 0.5, Urgency: suggestion.UrgencyBackground,
		}, base)

		assert.Less(t, immediate.Delay, background.Delay)
	})

	t.Run("FadingContentSurfacesSooner", func(t *testing.T) {
		fading := ComputeFactors(timedItem(20, 1), 0.5, base)
		fresh := ComputeFactors(timedItem(0, 1), 0.5, base)
		assert.Less(t, fading.Retention, fresh.Retention)

		sFading := newScheduler(Config{})
		sFresh := newScheduler(Config{})
		planFading := sFading.Schedule(suggestion.Candidate{Content: timedItem(20, 1), Relevance: 0.5}, base)
		planFresh := sFresh.Schedule(suggestion.Candidate{Content: timedItem(0, 1), Relevance: 0.5}, base)
		assert.Less(t, planFading.Delay, planFresh.Delay)
	})

	t.Run("DelayNeverBelowOneMinute", func(t *testing.T) {
		s := newScheduler(Config{})
		plan := s.Schedule(suggestion.Candidate{
			Content: timedItem(30, 20), Relevance: 0.95, Urgency: suggestion.UrgencyImmediate,
		}, base)
		assert.GreaterOrEqual(t, plan.Delay, time.Minute)
	})

	t.Run("ConfidenceClamped", func(t *testing.T) {
		s := newScheduler(Config{})
		plan := s.Schedule(suggestion.Candidate{Content: timedItem(1, 20), Relevance: 1}, base)
		assert.GreaterOrEqual(t, plan.Confidence, 0.0)
		assert.LessOrEqual(t, plan.Confidence, 1.0)
	})
}

func TestQuietHours(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)

	t.Run("LateEveningMovesToMorning", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 23, 30, 0, 0, time.UTC)
		adjusted := s.applyQuietHours(at)
		assert.False(t, s.inQuietHours(adjusted.Hour()))
		assert.True(t, adjusted.After(at))
	})

	t.Run("OvernightWrapAround", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 2, 0, 0, 0, time.UTC)
		adjusted := s.applyQuietHours(at)
		assert.Equal(t, 8, adjusted.Hour())
		assert.Equal(t, at.Day(), adjusted.Day())
	})

	t.Run("DaytimeUntouched", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
		assert.Equal(t, at, s.applyQuietHours(at))
	})

	t.Run("OvershootCappedAtTwelveHours", func(t *testing.T) {
		// Quiet window longer than 12h: 20:00 → 10:00.
		long := New(Config{QuietStartHour: 20, QuietEndHour: 10}, nil, nil)
		at := time.Date(2026, 3, 10, 20, 30, 0, 0, time.UTC)
		adjusted := long.applyQuietHours(at)
		assert.LessOrEqual(t, adjusted.Sub(at), 12*time.Hour)
	})
}

func TestRateLimit(t *testing.T) {
	base := baseTime

	t.Run("MinGapEnforced", func(t *testing.T) {
		s := New(Config{MinGap: 15 * time.Minute}, nil, nil)
		first := s.Schedule(suggestion.Candidate{Content: timedItem(1, 1), Relevance: 0.5}, base)
		second := s.Schedule(suggestion.Candidate{Content: timedItem(1, 1), Relevance: 0.5}, base)
		assert.GreaterOrEqual(t, second.ShowAt.Sub(first.ShowAt), 15*time.Minute)
	})

	t.Run("RollingHourCapPushesOut", func(t *testing.T) {
		s := New(Config{MaxPerHour: 2}, nil, nil)
		var plans []Plan
		for i := 0; i < 4; i++ {
			plans = append(plans, s.Schedule(suggestion.Candidate{Content: timedItem(1, 1), Relevance: 0.5}, base))
		}
		// No rolling hour may contain more than 2 deliveries.
		for i := range plans {
			count := 0
			windowEnd := plans[i].ShowAt
			for j := range plans {
				if !plans[j].ShowAt.After(windowEnd) && plans[j].ShowAt.After(windowEnd.Add(-time.Hour)) {
					count++
				}
			}
			assert.LessOrEqual(t, count, 2)
		}
	})
}

func TestPreferredHourSnap(t *testing.T) {
	s := New(Config{}, nil, nil)
	// Promote 9:00 and 18:00 into the preferred set.
	for i := 0; i < 4; i++ {
		s.UpdateUserBehavior(9, true, "", "")
		s.UpdateUserBehavior(18, true, "", "")
	}

	t.Run("SnapsForwardToNextPreferredHour", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 12, 15, 0, 0, time.UTC)
		snapped := s.snapToPreferredHour(at)
		assert.Equal(t, 18, snapped.Hour())
		assert.Equal(t, at.Day(), snapped.Day())
	})

	t.Run("RollsToNextDay", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
		snapped := s.snapToPreferredHour(at)
		assert.Equal(t, 9, snapped.Hour())
		assert.Equal(t, at.Day()+1, snapped.Day())
	})

	t.Run("PreferredHourUntouched", func(t *testing.T) {
		at := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
		assert.Equal(t, at, s.snapToPreferredHour(at))
	})
}

func TestUpdateUserBehavior(t *testing.T) {
	s := New(DefaultConfig(), nil, nil)

	t.Run("EngagementPromotesPreferredHour", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			s.UpdateUserBehavior(10, true, "tech", "")
		}
		snapshot := s.BehaviorSnapshot()
		assert.True(t, snapshot.PreferredHours[10])
		assert.Greater(t, snapshot.HourlyEngagement[10], 0.3)
		assert.Greater(t, snapshot.CategoryEngagement["tech"], 0.0)
	})

	t.Run("DismissalsLowerRate", func(t *testing.T) {
		before := s.BehaviorSnapshot().HourlyEngagement[10]
		s.UpdateUserBehavior(10, false, "", "bad_timing")
		after := s.BehaviorSnapshot()
		assert.Less(t, after.HourlyEngagement[10], before)
		assert.Contains(t, after.DismissalReasons, "bad_timing")
	})

	t.Run("ResponseRateTracksEngagedHours", func(t *testing.T) {
		fresh := New(DefaultConfig(), nil, nil)
		for i := 0; i < 6; i++ {
			fresh.UpdateUserBehavior(9, true, "", "")
		}
		fresh.UpdateUserBehavior(3, false, "", "")

		snapshot := fresh.BehaviorSnapshot()
		// One of two tracked hours has engagement above 0.5.
		assert.InDelta(t, 0.5, snapshot.ResponseRate, 0.001)
	})
}
