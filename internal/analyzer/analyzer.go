// Package analyzer implements the similarity analysis between content
// items: scoring candidate pairs on weighted metadata signals and
// classifying the resulting relationship type.
//
// A signal is omitted, not counted as zero, when either side lacks the
// underlying attribute; the final score is the weighted sum divided by the
// weights actually used, so sparse metadata reduces signal count rather
// than penalizing magnitude.
package analyzer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/relationship"
	appErrors "resurface-backend/pkg/errors"
)

// Signal weights for the blended similarity score.
const (
	weightCategory = 0.2
	weightConcepts = 0.4
	weightTags     = 0.2
	weightText     = 0.2
)

// Match reasons recorded alongside scores; type classification and
// confidence corroboration both key off these.
const (
	ReasonSharedConcepts = "shared concepts"
	ReasonCategoryMatch  = "category match"
	ReasonSharedTags     = "shared tags"
	ReasonSimilarText    = "similar text"
)

// Options control a single analysis pass.
type Options struct {
	MinThreshold float64 // minimum blended score to keep a candidate
	MaxPerItem   int     // cap on relationships produced per target item
	UseCategory  bool
	UseConcepts  bool
	UseTags      bool
	UseText      bool
}

// DefaultOptions returns the analyzer defaults.
func DefaultOptions() Options {
	return Options{
		MinThreshold: 0.3,
		MaxPerItem:   10,
		UseCategory:  true,
		UseConcepts:  true,
		UseTags:      true,
		UseText:      true,
	}
}

// Analyzer scores pairs of content items and infers relationship types.
// It is stateless between calls; the same target and candidate pool always
// produce the same scored set.
type Analyzer struct {
	opts   Options
	logger *zap.Logger
}

// New creates an Analyzer with the given options.
func New(opts Options, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{opts: opts, logger: logger}
}

// Match is one scored candidate with the reasons that contributed.
type Match struct {
	Candidate *content.Item
	Score     float64
	Reasons   []string
}

// Analyze scores the target against every candidate and returns the
// resulting relationships, sorted by strength descending and capped at
// MaxPerItem.
//
// A nil or id-less candidate fails the entire call with a validation error
// and zero results; partial output is never returned.
func (a *Analyzer) Analyze(target *content.Item, candidates []*content.Item) ([]*relationship.Relationship, error) {
	if target == nil || target.ID == "" {
		return nil, appErrors.NewValidation("analysis target is missing or has no id")
	}
	for i, c := range candidates {
		if c == nil || c.ID == "" {
			return nil, appErrors.NewValidation(fmt.Sprintf("candidate at index %d is malformed", i))
		}
	}

	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		m := a.score(target, c)
		if m.Score >= a.opts.MinThreshold && m.Score > 0 {
			matches = append(matches, m)
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if a.opts.MaxPerItem > 0 && len(matches) > a.opts.MaxPerItem {
		matches = matches[:a.opts.MaxPerItem]
	}

	rels := make([]*relationship.Relationship, 0, len(matches))
	for _, m := range matches {
		relType := classify(m.Score, m.Reasons)
		rel, err := relationship.New(target.ID, m.Candidate.ID, relType, round2(m.Score), confidence(m.Score, m.Reasons))
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}

	a.logger.Debug("similarity analysis complete",
		zap.String("target_id", target.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("relationships", len(rels)),
	)
	return rels, nil
}

// score blends the enabled signals for one candidate pair.
func (a *Analyzer) score(target, candidate *content.Item) Match {
	var sum, used float64
	var reasons []string

	if a.opts.UseCategory && target.HasCategory() && candidate.HasCategory() {
		used += weightCategory
		if strings.EqualFold(target.Category, candidate.Category) {
			sum += weightCategory
			reasons = append(reasons, ReasonCategoryMatch)
		}
	}

	if a.opts.UseConcepts && len(target.Concepts) > 0 && len(candidate.Concepts) > 0 {
		used += weightConcepts
		sim := jaccard(target.Concepts, candidate.Concepts)
		sum += sim * weightConcepts
		if sim > 0 {
			reasons = append(reasons, ReasonSharedConcepts)
		}
	}

	if a.opts.UseTags && len(target.Tags) > 0 && len(candidate.Tags) > 0 {
		used += weightTags
		sim := jaccard(target.Tags, candidate.Tags)
		sum += sim * weightTags
		if sim > 0 {
			reasons = append(reasons, ReasonSharedTags)
		}
	}

	if a.opts.UseText {
		targetWords := significantWords(target.Title + " " + target.UserNotes)
		candidateWords := significantWords(candidate.Title + " " + candidate.UserNotes)
		if len(targetWords) > 0 && len(candidateWords) > 0 {
			used += weightText
			sim := jaccard(targetWords, candidateWords)
			sum += sim * weightText
			if sim > 0.2 {
				reasons = append(reasons, ReasonSimilarText)
			}
		}
	}

	if used == 0 {
		return Match{Candidate: candidate}
	}
	return Match{Candidate: candidate, Score: sum / used, Reasons: reasons}
}

// classify infers the relationship type from score and reasons. Rules apply
// in order, first match wins; thresholds overlap at the boundaries so the
// precedence here is deliberate.
func classify(score float64, reasons []string) relationship.Type {
	has := func(reason string) bool {
		for _, r := range reasons {
			if r == reason {
				return true
			}
		}
		return false
	}

	switch {
	case score > 0.7 && has(ReasonSharedConcepts):
		return relationship.TypeBuildsOn
	case score > 0.6 && has(ReasonCategoryMatch):
		return relationship.TypeSimilar
	case score > 0.5:
		return relationship.TypeRelated
	default:
		return relationship.TypeRelated
	}
}

// confidence starts from the score and adds 0.1 per corroborating reason
// beyond the first, capped at 1 and rounded to two decimals.
func confidence(score float64, reasons []string) float64 {
	c := score
	if len(reasons) > 1 {
		c += 0.1 * float64(len(reasons)-1)
	}
	if c > 1 {
		c = 1
	}
	return round2(c)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
