// Package learner adapts the user preference model from interaction
// outcomes and reshapes candidate relevance with the learned preferences.
package learner

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/interaction"
	"resurface-backend/internal/domain/preference"
	"resurface-backend/internal/domain/suggestion"
	"resurface-backend/internal/observability"
	appErrors "resurface-backend/pkg/errors"
)

// Config tunes the learning behavior.
type Config struct {
	HistoryLimit       int // bounded interaction history
	DailyCap           int // max adjusted suggestions returned per day
	BadTimingThreshold int // bad_timing dismissals before a preferred hour is dropped
	TrendWindow        int // events per half when classifying the trend
}

// DefaultConfig returns production learning defaults.
func DefaultConfig() Config {
	return Config{
		HistoryLimit:       1000,
		DailyCap:           20,
		BadTimingThreshold: 3,
		TrendWindow:        10,
	}
}

// Caps on how far a single learned signal may move a relevance score.
const (
	maxCategoryBoost = 0.10
	maxDomainBoost   = 0.075
	maxAuthorBoost   = 0.05
	lengthBoost      = 0.05

	maxMinRelevance = 0.8
	maxMinGap       = 120 * time.Minute
)

// Learner is the single writer of the preference model. All public methods
// are safe for concurrent use.
type Learner struct {
	cfg       Config
	logger    *zap.Logger
	collector *observability.Collector

	mu        sync.Mutex
	prefs     *preference.Preferences
	metrics   *Metrics
	history   []interaction.Event
	badTiming map[int]int // bad_timing dismissals per hour

	servedDay   string // YYYY-MM-DD of the daily-cap window
	servedToday int
}

// New creates a Learner with a fresh preference model.
func New(cfg Config, collector *observability.Collector, logger *zap.Logger) *Learner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if collector == nil {
		collector = observability.NewCollector("resurface_test")
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = DefaultConfig().HistoryLimit
	}
	if cfg.BadTimingThreshold <= 0 {
		cfg.BadTimingThreshold = DefaultConfig().BadTimingThreshold
	}
	if cfg.TrendWindow <= 0 {
		cfg.TrendWindow = DefaultConfig().TrendWindow
	}
	return &Learner{
		cfg:       cfg,
		logger:    logger,
		collector: collector,
		prefs:     preference.Default(),
		metrics:   NewMetrics(),
		badTiming: make(map[int]int),
	}
}

// Record ingests one interaction outcome: it updates the engagement
// metrics, nudges the preference model, applies dismissal-specific
// adjustments and decays every learned score slightly toward neutral.
func (l *Learner) Record(event interaction.Event) error {
	if err := event.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.history = append(l.history, event)
	if len(l.history) > l.cfg.HistoryLimit {
		l.history = l.history[len(l.history)-l.cfg.HistoryLimit:]
	}

	l.recordMetricsLocked(event)

	if event.Action.Positive() {
		l.reinforceLocked(event)
	} else {
		l.penalizeLocked(event)
	}

	l.decayLocked()
	l.metrics.Trend = l.trendLocked()

	l.collector.Interactions.WithLabelValues(string(event.Action)).Inc()
	l.logger.Debug("interaction recorded",
		zap.String("content_id", event.ContentID),
		zap.String("action", string(event.Action)),
		zap.String("reason", event.DismissalReason),
	)
	return nil
}

func (l *Learner) recordMetricsLocked(event interaction.Event) {
	l.metrics.SuggestionsShown++

	catStat := l.metrics.ByCategory[event.Category]
	if catStat == nil {
		catStat = &PerfStat{}
		l.metrics.ByCategory[event.Category] = catStat
	}
	hourStat := l.metrics.ByHour[event.Context.Hour]
	if hourStat == nil {
		hourStat = &PerfStat{}
		l.metrics.ByHour[event.Context.Hour] = hourStat
	}
	catStat.Shown++
	hourStat.Shown++

	if event.Action.Positive() {
		l.metrics.Engagements++
		catStat.Engaged++
		hourStat.Engaged++
	} else {
		l.metrics.Dismissals++
	}
}

// reinforceLocked pulls the event's learned signals toward 1. Longer
// engagement strengthens the pull.
func (l *Learner) reinforceLocked(event interaction.Event) {
	step := l.prefs.LearningRate * durationFactor(event.Engagement)

	nudgeUp(l.prefs.Categories, event.Category, step)
	nudgeUp(l.prefs.Domains, event.Domain, step)
	nudgeUp(l.prefs.Authors, event.Author, step)
	nudgeUp(l.prefs.Lengths, event.Length, step)

	l.prefs.PreferredHours[event.Context.Hour] = true
}

// penalizeLocked pushes the signals toward 0 with a gentler step, then
// applies the reason-specific adjustment.
func (l *Learner) penalizeLocked(event interaction.Event) {
	step := l.prefs.LearningRate * 0.3

	nudgeDown(l.prefs.Categories, event.Category, step)
	nudgeDown(l.prefs.Domains, event.Domain, step)
	nudgeDown(l.prefs.Authors, event.Author, step)
	nudgeDown(l.prefs.Lengths, event.Length, step)

	switch event.DismissalReason {
	case interaction.ReasonBadTiming:
		hour := event.Context.Hour
		l.badTiming[hour]++
		if l.badTiming[hour] > l.cfg.BadTimingThreshold && l.prefs.PreferredHours[hour] {
			delete(l.prefs.PreferredHours, hour)
			l.badTiming[hour] = 0
			l.logger.Info("preferred hour dropped after repeated bad-timing dismissals",
				zap.Int("hour", hour))
		}
	case interaction.ReasonNotRelevant:
		// Dismissals scoring near the threshold mean the bar is too low.
		if event.RelevanceScore >= l.prefs.MinRelevance &&
			event.RelevanceScore <= l.prefs.MinRelevance+0.1 {
			l.prefs.MinRelevance = minFloat(l.prefs.MinRelevance+0.05, maxMinRelevance)
		}
	case interaction.ReasonTooFrequent:
		l.prefs.MinGap = minDuration(l.prefs.MinGap+5*time.Minute, maxMinGap)
	}
}

// decayLocked drifts every learned score toward neutral so stale
// preferences fade without fresh evidence.
func (l *Learner) decayLocked() {
	rate := l.prefs.DecayRate
	decayMap(l.prefs.Categories, rate)
	decayMap(l.prefs.Domains, rate)
	decayMap(l.prefs.Authors, rate)
	decayMap(l.prefs.Lengths, rate)
}

// trendLocked compares the engagement rates of the two most recent
// history windows.
func (l *Learner) trendLocked() string {
	window := l.cfg.TrendWindow
	if len(l.history) < 2*window {
		return TrendStable
	}
	recent := l.history[len(l.history)-window:]
	earlier := l.history[len(l.history)-2*window : len(l.history)-window]

	diff := engagementRate(recent) - engagementRate(earlier)
	switch {
	case diff > 0.1:
		return TrendImproving
	case diff < -0.1:
		return TrendDeclining
	default:
		return TrendStable
	}
}

func engagementRate(events []interaction.Event) float64 {
	if len(events) == 0 {
		return 0
	}
	engaged := 0
	for _, e := range events {
		if e.Action.Positive() {
			engaged++
		}
	}
	return float64(engaged) / float64(len(events))
}

// AdjustSuggestionQuality reshapes candidate relevance with the learned
// preferences, drops candidates below the adaptive threshold, sorts the
// survivors and enforces the daily cap. The input slice is not modified.
func (l *Learner) AdjustSuggestionQuality(candidates []suggestion.Candidate, now time.Time) []suggestion.Candidate {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := now.Format("2006-01-02")
	if day != l.servedDay {
		l.servedDay = day
		l.servedToday = 0
	}

	remaining := l.cfg.DailyCap - l.servedToday
	if l.cfg.DailyCap <= 0 {
		remaining = len(candidates)
	}
	if remaining <= 0 {
		return nil
	}

	adjusted := make([]suggestion.Candidate, 0, len(candidates))
	for _, cand := range candidates {
		if cand.Content == nil {
			continue
		}
		score := cand.Relevance + l.boostLocked(cand.Content.Category, cand.Content.Domain(), cand.Content.Metadata.Author, cand.Content.LengthClass())
		score = clamp01(score)
		if score < l.prefs.MinRelevance {
			continue
		}
		cand.Relevance = score
		adjusted = append(adjusted, cand)
	}

	sort.SliceStable(adjusted, func(i, j int) bool {
		return adjusted[i].Relevance > adjusted[j].Relevance
	})

	if len(adjusted) > remaining {
		adjusted = adjusted[:remaining]
	}
	l.servedToday += len(adjusted)
	return adjusted
}

// boostLocked sums the bounded per-signal contributions. A neutral score
// contributes nothing; each signal is capped so no single preference can
// dominate the upstream relevance.
func (l *Learner) boostLocked(category, domain, author, length string) float64 {
	boost := (preference.Score(l.prefs.Categories, category) - preference.Neutral) * 2 * maxCategoryBoost
	boost += (preference.Score(l.prefs.Domains, domain) - preference.Neutral) * 2 * maxDomainBoost
	boost += (preference.Score(l.prefs.Authors, author) - preference.Neutral) * 2 * maxAuthorBoost
	if preference.Score(l.prefs.Lengths, length) > 0.6 {
		boost += lengthBoost
	}
	return boost
}

// Snapshot returns a read-only copy of the preference model.
func (l *Learner) Snapshot() *preference.Preferences {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.prefs.Clone()
}

// MetricsSnapshot returns a copy of the learning metrics.
func (l *Learner) MetricsSnapshot() *Metrics {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.metrics.Clone()
}

// Export bundles the learned state for persistence or transfer.
type Export struct {
	Preferences *preference.Preferences `json:"preferences"`
	Metrics     *Metrics                `json:"metrics"`
	History     []interaction.Event     `json:"history,omitempty"`
}

// ExportData snapshots the full learner state.
func (l *Learner) ExportData() *Export {
	l.mu.Lock()
	defer l.mu.Unlock()
	return &Export{
		Preferences: l.prefs.Clone(),
		Metrics:     l.metrics.Clone(),
		History:     append([]interaction.Event(nil), l.history...),
	}
}

// ImportData replaces the learner state with a previously exported bundle.
func (l *Learner) ImportData(data *Export) error {
	if data == nil || data.Preferences == nil {
		return appErrors.NewValidation("import bundle requires a preference model")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.prefs = data.Preferences.Clone()
	if l.prefs.LearningRate <= 0 {
		l.prefs.LearningRate = preference.Default().LearningRate
	}
	if l.prefs.DecayRate <= 0 {
		l.prefs.DecayRate = preference.Default().DecayRate
	}
	if data.Metrics != nil {
		l.metrics = data.Metrics.Clone()
	} else {
		l.metrics = NewMetrics()
	}
	l.history = append([]interaction.Event(nil), data.History...)
	if len(l.history) > l.cfg.HistoryLimit {
		l.history = l.history[len(l.history)-l.cfg.HistoryLimit:]
	}
	l.badTiming = make(map[int]int)
	return nil
}

// durationFactor scales the positive learning step by how long the user
// engaged, from 0.5 for a glance up to 1.5 for two minutes or more. Zero
// duration (action without tracking) uses the neutral factor.
func durationFactor(d time.Duration) float64 {
	if d <= 0 {
		return 1
	}
	f := 0.5 + d.Minutes()/2
	if f > 1.5 {
		return 1.5
	}
	return f
}

func nudgeUp(m map[string]float64, key string, step float64) {
	if key == "" {
		return
	}
	cur := preference.Score(m, key)
	m[key] = clamp01(cur + step*(1-cur))
}

func nudgeDown(m map[string]float64, key string, step float64) {
	if key == "" {
		return
	}
	cur := preference.Score(m, key)
	m[key] = clamp01(cur - step*cur)
}

func decayMap(m map[string]float64, rate float64) {
	for k, v := range m {
		m[k] = v + (preference.Neutral-v)*rate
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
