// Package timing implements the resurfacing scheduler: it decides when a
// ranked suggestion should surface using an Ebbinghaus-style retention
// model, urgency hints and scheduling constraints (quiet hours, rate
// limits, preferred hours), and it maintains the learned behavior pattern.
package timing

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/suggestion"
	"resurface-backend/internal/observability"
)

// Config tunes the scheduling constraints.
type Config struct {
	QuietStartHour int           // inclusive start of quiet hours
	QuietEndHour   int           // exclusive end; equal to start disables
	MaxPerHour     int           // max suggestions in any rolling hour
	MinGap         time.Duration // minimum spacing between suggestions
}

// DefaultConfig returns production defaults: quiet from 22:00 to 08:00,
// at most 3 suggestions per rolling hour, 15 minutes apart.
func DefaultConfig() Config {
	return Config{
		QuietStartHour: 22,
		QuietEndHour:   8,
		MaxPerHour:     3,
		MinGap:         15 * time.Minute,
	}
}

// Factors are the timing inputs derived per suggestion.
type Factors struct {
	DaysSinceAccess float64 `json:"daysSinceAccess"`
	AccessFrequency float64 `json:"accessFrequency"`
	ContentAgeDays  float64 `json:"contentAgeDays"`
	Relevance       float64 `json:"relevance"`
	Engagement      float64 `json:"engagement"`
	Retention       float64 `json:"retention"`
}

// Urgency classes assigned from the final delay and relevance.
const (
	UrgencyImmediate = "immediate"
	UrgencySoon      = "soon"
	UrgencyLater     = "later"
	UrgencyEventual  = "eventual"
)

// Plan is the scheduling decision for one suggestion.
type Plan struct {
	ShowAt     time.Time     `json:"showAt"`
	Delay      time.Duration `json:"delay"`
	Confidence float64       `json:"confidence"`
	Urgency    string        `json:"urgency"`
	Factors    Factors       `json:"factors"`
}

// Scheduler computes delivery times and owns the behavior pattern.
type Scheduler struct {
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Collector

	mu       sync.Mutex
	behavior *Behavior
	recent   []time.Time // timestamps of reserved suggestion slots
}

// New creates a Scheduler.
func New(cfg Config, metrics *observability.Collector, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewCollector("resurface_test")
	}
	return &Scheduler{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		behavior: NewBehavior(),
	}
}

// ComputeFactors derives the timing factors for one item.
func ComputeFactors(item *content.Item, relevance float64, now time.Time) Factors {
	days := item.DaysSinceAccess(now)
	if days < 0 {
		days = 0
	}
	freq := item.AccessFrequency(now)
	return Factors{
		DaysSinceAccess: days,
		AccessFrequency: freq,
		ContentAgeDays:  item.Age(now).Hours() / 24,
		Relevance:       relevance,
		Engagement:      engagementEstimate(item),
		Retention:       forgettingCurve(days, freq),
	}
}

// forgettingCurve estimates retention as exp(−days/strength) with memory
// strength 1 + 2·accessFrequency: 1.0 at zero elapsed time, strictly
// decreasing thereafter for a fixed frequency.
func forgettingCurve(daysSinceAccess, accessFrequency float64) float64 {
	strength := 1 + 2*accessFrequency
	return math.Exp(-daysSinceAccess / strength)
}

// engagementEstimate blends access count, rating, notes volume and
// importance into a [0,1] engagement heuristic.
func engagementEstimate(item *content.Item) float64 {
	accesses := float64(item.TimesAccessed)
	if accesses > 10 {
		accesses = 10
	}
	notes := float64(len(item.UserNotes))
	if notes > 200 {
		notes = 200
	}
	score := accesses/10*0.4 + float64(item.UserRating)/5*0.25 + notes/200*0.15 + item.Importance*0.2
	if score > 1 {
		return 1
	}
	return score
}

// Schedule computes the delivery plan for one ranked suggestion and
// reserves its slot in the rate-limit window.
func (s *Scheduler) Schedule(cand suggestion.Candidate, now time.Time) Plan {
	factors := ComputeFactors(cand.Content, cand.Relevance, now)

	delay := baseDelay(cand.Urgency)

	// Content trending toward being forgotten surfaces sooner.
	delay = time.Duration(float64(delay) * (1 - 0.5*(1-factors.Retention)))
	delay = floorDelay(delay)

	if factors.Relevance > 0.8 {
		delay = time.Duration(float64(delay) * 0.7)
	}
	if factors.Engagement > 0.7 {
		delay = time.Duration(float64(delay) * 0.8)
	}
	if factors.AccessFrequency > 0.3 {
		delay = time.Duration(float64(delay) * 0.9)
	}
	delay = floorDelay(delay)

	s.mu.Lock()
	defer s.mu.Unlock()

	showAt := now.Add(delay)
	showAt = s.applyQuietHours(showAt)
	showAt = s.applyRateLimit(showAt)
	showAt = s.snapToPreferredHour(showAt)
	s.reserveLocked(showAt)

	finalDelay := showAt.Sub(now)
	plan := Plan{
		ShowAt:     showAt,
		Delay:      finalDelay,
		Confidence: timingConfidence(factors),
		Urgency:    classifyUrgency(finalDelay, factors.Relevance),
		Factors:    factors,
	}

	s.metrics.SuggestionsScheduled.Inc()
	s.logger.Debug("suggestion scheduled",
		zap.String("content_id", cand.Content.ID),
		zap.Duration("delay", finalDelay),
		zap.String("urgency", plan.Urgency),
	)
	return plan
}

// baseDelay maps the upstream coarse urgency hint to a starting delay.
func baseDelay(u suggestion.Urgency) time.Duration {
	switch u {
	case suggestion.UrgencyImmediate:
		return 2 * time.Minute
	case suggestion.UrgencyDelayed:
		return 15 * time.Minute
	case suggestion.UrgencyBackground:
		return 2 * time.Hour
	default:
		return time.Hour
	}
}

func floorDelay(d time.Duration) time.Duration {
	if d < time.Minute {
		return time.Minute
	}
	return d
}

// inQuietHours checks whether the hour falls in the configured window,
// handling overnight wrap-around (e.g. 22 → 8).
func (s *Scheduler) inQuietHours(hour int) bool {
	start, end := s.cfg.QuietStartHour, s.cfg.QuietEndHour
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// applyQuietHours pushes a candidate time to the end of the quiet window.
// The fallback guards against overshooting by more than 12 hours.
func (s *Scheduler) applyQuietHours(t time.Time) time.Time {
	if !s.inQuietHours(t.Hour()) {
		return t
	}

	adjusted := time.Date(t.Year(), t.Month(), t.Day(), s.cfg.QuietEndHour, 0, 0, 0, t.Location())
	if !adjusted.After(t) {
		adjusted = adjusted.Add(24 * time.Hour)
	}
	if adjusted.Sub(t) > 12*time.Hour {
		adjusted = t.Add(12 * time.Hour)
	}
	return adjusted
}

// applyRateLimit enforces the rolling-hour cap and the minimum gap against
// the reserved-slot window. Caller holds mu.
func (s *Scheduler) applyRateLimit(t time.Time) time.Time {
	// Minimum spacing from the latest reserved slot.
	if s.cfg.MinGap > 0 && len(s.recent) > 0 {
		last := s.recent[len(s.recent)-1]
		if t.Sub(last) < s.cfg.MinGap {
			t = last.Add(s.cfg.MinGap)
		}
	}

	if s.cfg.MaxPerHour <= 0 {
		return t
	}
	for {
		var window []time.Time
		for _, ts := range s.recent {
			if ts.After(t.Add(-time.Hour)) && !ts.After(t) {
				window = append(window, ts)
			}
		}
		if len(window) < s.cfg.MaxPerHour {
			return t
		}
		// Slide past the oldest slot in the window.
		sort.Slice(window, func(i, j int) bool { return window[i].Before(window[j]) })
		t = window[0].Add(time.Hour + time.Minute)
	}
}

// snapToPreferredHour moves the time forward to the next hour in the
// learned preferred set, rolling to the next day when none remain today.
// A time already inside a preferred hour is left alone; an empty set
// disables snapping. Caller holds mu.
func (s *Scheduler) snapToPreferredHour(t time.Time) time.Time {
	if len(s.behavior.PreferredHours) == 0 || s.behavior.PreferredHours[t.Hour()] {
		return t
	}

	for offset := 1; offset <= 24; offset++ {
		hour := (t.Hour() + offset) % 24
		if s.behavior.PreferredHours[hour] {
			snapped := time.Date(t.Year(), t.Month(), t.Day(), hour, 0, 0, 0, t.Location())
			if !snapped.After(t) {
				snapped = snapped.Add(24 * time.Hour)
			}
			return snapped
		}
	}
	return t
}

// reserveLocked records a delivered slot and trims the sliding window.
func (s *Scheduler) reserveLocked(t time.Time) {
	s.recent = append(s.recent, t)
	cutoff := t.Add(-24 * time.Hour)
	trimmed := s.recent[:0]
	for _, ts := range s.recent {
		if ts.After(cutoff) {
			trimmed = append(trimmed, ts)
		}
	}
	s.recent = trimmed
}

// timingConfidence scores how confident the scheduler is in its plan.
func timingConfidence(f Factors) float64 {
	c := 0.5 + 0.3*f.Relevance + 0.2*f.Engagement
	if f.AccessFrequency > 0.3 {
		c += 0.1
	}
	if f.ContentAgeDays > 30 {
		c -= 0.1
	}
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// classifyUrgency buckets the final delay, with an immediate class reserved
// for highly relevant content.
func classifyUrgency(delay time.Duration, relevance float64) string {
	switch {
	case delay <= 5*time.Minute && relevance > 0.7:
		return UrgencyImmediate
	case delay <= 30*time.Minute:
		return UrgencySoon
	case delay <= 120*time.Minute:
		return UrgencyLater
	default:
		return UrgencyEventual
	}
}

// UpdateUserBehavior feeds one interaction outcome into the behavior
// pattern.
func (s *Scheduler) UpdateUserBehavior(hour int, engaged bool, category, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behavior.update(hour, engaged, category, reason)
}

// BehaviorSnapshot returns a copy of the current behavior pattern.
func (s *Scheduler) BehaviorSnapshot() *Behavior {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.behavior.clone()
}

// RestoreBehavior replaces the behavior pattern, used by import.
func (s *Scheduler) RestoreBehavior(b *Behavior) {
	if b == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.behavior = b.clone()
}
