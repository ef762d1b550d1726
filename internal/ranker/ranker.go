// Package ranker implements the multi-factor suggestion ranker: filtering,
// six-factor weighted scoring, a post-score per-category diversity cap, and
// feedback-driven weight adaptation.
package ranker

import (
	"math"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/preference"
	"resurface-backend/internal/domain/suggestion"
	"resurface-backend/internal/learner"
	"resurface-backend/internal/observability"
)

// Rejection reasons recorded during the filter stage.
const (
	RejectBelowRelevance = "below_min_relevance"
	RejectTooOld         = "too_old"
	RejectRecentlyViewed = "recently_viewed"
	RejectLowEngagement  = "low_engagement"
	RejectMissingContent = "missing_content"
)

// Weights are the six factor weights of the blended score.
type Weights struct {
	Relevance  float64 `json:"relevance"`
	Recency    float64 `json:"recency"`
	Popularity float64 `json:"popularity"`
	Diversity  float64 `json:"diversity"`
	Preference float64 `json:"preference"`
	ContextFit float64 `json:"contextFit"`
}

// DefaultWeights returns the factory factor weights.
func DefaultWeights() Weights {
	return Weights{
		Relevance:  0.35,
		Recency:    0.15,
		Popularity: 0.15,
		Diversity:  0.10,
		Preference: 0.15,
		ContextFit: 0.10,
	}
}

// Config tunes filtering, diversity and adaptation.
type Config struct {
	Weights          Weights
	WeightCaps       Weights       // per-factor ceiling for adaptation
	AdaptStep        float64       // fixed learning-rate step per adaptation
	MaxAgeDays       int           // drop content older than this
	RecentViewWindow time.Duration // drop content accessed this recently
	MinEngagement    float64       // 0 disables the engagement floor
	CategoryCap      int           // max admissions per category post-score
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Weights: DefaultWeights(),
		WeightCaps: Weights{
			Relevance:  0.50,
			Recency:    0.25,
			Popularity: 0.25,
			Diversity:  0.20,
			Preference: 0.30,
			ContextFit: 0.20,
		},
		AdaptStep:        0.01,
		MaxAgeDays:       180,
		RecentViewWindow: 24 * time.Hour,
		MinEngagement:    0,
		CategoryCap:      2,
	}
}

// FactorVector holds the six factor values computed for one candidate,
// recorded so outcomes can drive weight adaptation later.
type FactorVector struct {
	Relevance  float64 `json:"relevance"`
	Recency    float64 `json:"recency"`
	Popularity float64 `json:"popularity"`
	Diversity  float64 `json:"diversity"`
	Preference float64 `json:"preference"`
	ContextFit float64 `json:"contextFit"`
}

// Ranked is one admitted suggestion with its blended score.
type Ranked struct {
	suggestion.Candidate
	Score   float64      `json:"score"`
	Factors FactorVector `json:"factors"`
}

// Result is the outcome of one ranking pass.
type Result struct {
	Suggestions []Ranked       `json:"suggestions"`
	Rejections  map[string]int `json:"rejections"`
}

// Ranker scores and orders candidate suggestions. Weights are mutable via
// AdaptWeights; everything else is read-only configuration.
type Ranker struct {
	cfg     Config
	logger  *zap.Logger
	metrics *observability.Collector

	mu      sync.RWMutex
	weights Weights
}

// New creates a Ranker.
func New(cfg Config, metrics *observability.Collector, logger *zap.Logger) *Ranker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewCollector("resurface_test")
	}
	return &Ranker{cfg: cfg, logger: logger, metrics: metrics, weights: cfg.Weights}
}

// Rank filters, scores and diversifies the candidate pool against the
// current context and a preference snapshot.
func (r *Ranker) Rank(
	candidates []suggestion.Candidate,
	ctx suggestion.Context,
	prefs *preference.Preferences,
	metrics *learner.Metrics,
	now time.Time,
) Result {
	if prefs == nil {
		prefs = preference.Default()
	}
	result := Result{Rejections: make(map[string]int)}

	weights := r.WeightsSnapshot()
	weightSum := weights.Relevance + weights.Recency + weights.Popularity +
		weights.Diversity + weights.Preference + weights.ContextFit

	var scored []Ranked
	for _, cand := range candidates {
		if cand.Content == nil {
			result.Rejections[RejectMissingContent]++
			r.metrics.SuggestionsRejected.WithLabelValues(RejectMissingContent).Inc()
			continue
		}
		if reason := r.filter(cand, prefs, now); reason != "" {
			result.Rejections[reason]++
			r.metrics.SuggestionsRejected.WithLabelValues(reason).Inc()
			continue
		}

		factors := r.factors(cand, ctx, prefs, now)
		score := (factors.Relevance*weights.Relevance +
			factors.Recency*weights.Recency +
			factors.Popularity*weights.Popularity +
			factors.Diversity*weights.Diversity +
			factors.Preference*weights.Preference +
			factors.ContextFit*weights.ContextFit) / weightSum

		scored = append(scored, Ranked{Candidate: cand, Score: score, Factors: factors})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	result.Suggestions = r.diversify(scored)
	r.metrics.SuggestionsRanked.Add(float64(len(result.Suggestions)))

	r.logger.Debug("ranked suggestions",
		zap.Int("candidates", len(candidates)),
		zap.Int("admitted", len(result.Suggestions)),
	)
	return result
}

// filter returns the rejection reason, or "" when the candidate survives.
func (r *Ranker) filter(cand suggestion.Candidate, prefs *preference.Preferences, now time.Time) string {
	if cand.Relevance < prefs.MinRelevance {
		return RejectBelowRelevance
	}
	if r.cfg.MaxAgeDays > 0 {
		if cand.Content.Age(now) > time.Duration(r.cfg.MaxAgeDays)*24*time.Hour {
			return RejectTooOld
		}
	}
	if r.cfg.RecentViewWindow > 0 && !cand.Content.LastAccessed.IsZero() {
		if now.Sub(cand.Content.LastAccessed) < r.cfg.RecentViewWindow {
			return RejectRecentlyViewed
		}
	}
	if r.cfg.MinEngagement > 0 && engagementScore(cand.Content) < r.cfg.MinEngagement {
		return RejectLowEngagement
	}
	return ""
}

// factors computes the six factor values for one candidate.
func (r *Ranker) factors(cand suggestion.Candidate, ctx suggestion.Context, prefs *preference.Preferences, now time.Time) FactorVector {
	item := cand.Content
	return FactorVector{
		Relevance:  clamp01(cand.Relevance),
		Recency:    recencyScore(item, now),
		Popularity: popularityScore(item),
		Diversity:  diversityScore(item, ctx),
		Preference: preferenceScore(item, prefs),
		ContextFit: contextFitScore(item, ctx, prefs),
	}
}

// recencyScore blends capture-age decay (30-day half-window) with
// access-age decay (7-day half-window), weighted 0.3/0.7.
func recencyScore(item *content.Item, now time.Time) float64 {
	captureDays := item.Age(now).Hours() / 24
	accessDays := item.DaysSinceAccess(now)
	return 0.3*halfLifeDecay(captureDays, 30) + 0.7*halfLifeDecay(accessDays, 7)
}

func halfLifeDecay(ageDays, window float64) float64 {
	if ageDays <= 0 {
		return 1
	}
	return math.Exp(-math.Ln2 * ageDays / window)
}

// popularityScore normalizes access count against a cap of 20 and layers
// rating and notes bonuses on top.
func popularityScore(item *content.Item) float64 {
	accesses := float64(item.TimesAccessed)
	if accesses > 20 {
		accesses = 20
	}
	score := accesses / 20 * 0.8
	if item.UserRating >= 4 {
		score += 0.1
	}
	if item.UserNotes != "" {
		score += 0.1
	}
	return clamp01(score)
}

// diversityScore rewards stepping outside the user's current lane: 0.8 for
// a different category, 0.6 for same category on a different domain, 0.3
// otherwise.
func diversityScore(item *content.Item, ctx suggestion.Context) float64 {
	if !strings.EqualFold(item.Category, ctx.Category) {
		return 0.8
	}
	if item.Domain() != contextDomain(ctx) {
		return 0.6
	}
	return 0.3
}

func contextDomain(ctx suggestion.Context) string {
	u, err := url.Parse(ctx.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// preferenceScore blends learned category/domain/author/length scores, each
// centered at neutral 0.5 for unseen keys.
func preferenceScore(item *content.Item, prefs *preference.Preferences) float64 {
	return 0.4*preference.Score(prefs.Categories, item.Category) +
		0.3*preference.Score(prefs.Domains, item.Domain()) +
		0.2*preference.Score(prefs.Authors, item.Metadata.Author) +
		0.1*preference.Score(prefs.Lengths, item.LengthClass())
}

// contextFitScore applies the preferred-hour bonus, the activity bonus
// table and a session-length heuristic.
func contextFitScore(item *content.Item, ctx suggestion.Context, prefs *preference.Preferences) float64 {
	score := 0.5
	if prefs.PreferredHours[ctx.Hour] {
		score += 0.2
	}

	length := item.LengthClass()
	switch ctx.Activity {
	case suggestion.ActivityBrowsing:
		if length == "short" {
			score += 0.15
		}
	case suggestion.ActivityReading:
		if length == "long" {
			score += 0.15
		}
	case suggestion.ActivityResearching, suggestion.ActivityWorking:
		if isReferenceCategory(item.Category) {
			score += 0.15
		}
	}

	// Long sessions tolerate long reads; short sessions favor quick wins.
	if ctx.SessionMinutes >= 30 && length == "long" {
		score += 0.05
	} else if ctx.SessionMinutes > 0 && ctx.SessionMinutes < 10 && length == "short" {
		score += 0.05
	}
	return clamp01(score)
}

func isReferenceCategory(category string) bool {
	switch strings.ToLower(category) {
	case "documentation", "reference", "research", "tutorial":
		return true
	}
	return false
}

// engagementScore is a heuristic blend of access count, rating and notes
// volume used for the optional minimum-engagement floor.
func engagementScore(item *content.Item) float64 {
	accesses := float64(item.TimesAccessed)
	if accesses > 10 {
		accesses = 10
	}
	notes := float64(len(item.UserNotes))
	if notes > 200 {
		notes = 200
	}
	return clamp01(accesses/10*0.5 + float64(item.UserRating)/5*0.3 + notes/200*0.2)
}

// diversify greedily admits the score-ordered list while capping admissions
// per category. Uncategorized items share one bucket.
func (r *Ranker) diversify(scored []Ranked) []Ranked {
	cap := r.cfg.CategoryCap
	if cap <= 0 {
		return scored
	}

	admittedPerCategory := make(map[string]int)
	var admitted []Ranked
	for _, s := range scored {
		key := strings.ToLower(s.Content.Category)
		if admittedPerCategory[key] >= cap {
			continue
		}
		admittedPerCategory[key]++
		admitted = append(admitted, s)
	}
	return admitted
}

// AdaptWeights nudges factor weights toward whatever separated engaged from
// dismissed suggestions: any factor whose mean is higher in the engaged
// group gains a fixed step, up to its per-factor cap. There is deliberately
// no downward adjustment or renormalization; the caps bound the drift.
func (r *Ranker) AdaptWeights(engaged, dismissed []FactorVector) {
	if len(engaged) == 0 || len(dismissed) == 0 {
		return
	}

	engagedMean := meanVector(engaged)
	dismissedMean := meanVector(dismissed)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.weights.Relevance = adaptOne(r.weights.Relevance, engagedMean.Relevance, dismissedMean.Relevance, r.cfg.AdaptStep, r.cfg.WeightCaps.Relevance)
	r.weights.Recency = adaptOne(r.weights.Recency, engagedMean.Recency, dismissedMean.Recency, r.cfg.AdaptStep, r.cfg.WeightCaps.Recency)
	r.weights.Popularity = adaptOne(r.weights.Popularity, engagedMean.Popularity, dismissedMean.Popularity, r.cfg.AdaptStep, r.cfg.WeightCaps.Popularity)
	r.weights.Diversity = adaptOne(r.weights.Diversity, engagedMean.Diversity, dismissedMean.Diversity, r.cfg.AdaptStep, r.cfg.WeightCaps.Diversity)
	r.weights.Preference = adaptOne(r.weights.Preference, engagedMean.Preference, dismissedMean.Preference, r.cfg.AdaptStep, r.cfg.WeightCaps.Preference)
	r.weights.ContextFit = adaptOne(r.weights.ContextFit, engagedMean.ContextFit, dismissedMean.ContextFit, r.cfg.AdaptStep, r.cfg.WeightCaps.ContextFit)
}

func adaptOne(current, engagedMean, dismissedMean, step, cap float64) float64 {
	if engagedMean <= dismissedMean {
		return current
	}
	next := current + step
	if cap > 0 && next > cap {
		return cap
	}
	return next
}

func meanVector(vectors []FactorVector) FactorVector {
	var sum FactorVector
	for _, v := range vectors {
		sum.Relevance += v.Relevance
		sum.Recency += v.Recency
		sum.Popularity += v.Popularity
		sum.Diversity += v.Diversity
		sum.Preference += v.Preference
		sum.ContextFit += v.ContextFit
	}
	n := float64(len(vectors))
	return FactorVector{
		Relevance:  sum.Relevance / n,
		Recency:    sum.Recency / n,
		Popularity: sum.Popularity / n,
		Diversity:  sum.Diversity / n,
		Preference: sum.Preference / n,
		ContextFit: sum.ContextFit / n,
	}
}

// WeightsSnapshot returns the current (possibly adapted) factor weights.
func (r *Ranker) WeightsSnapshot() Weights {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.weights
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
