// Package suggestion defines the candidate-suggestion and browsing-context
// shapes shared by the ranker, the timing scheduler and the learner. The
// relevance score and match reasons are produced by the upstream relevance
// engine; this core decides ordering and timing.
package suggestion

import (
	"time"

	"resurface-backend/internal/domain/content"
)

// Urgency is the coarse delivery hint attached by the upstream producer.
type Urgency string

const (
	UrgencyImmediate  Urgency = "immediate"
	UrgencyDelayed    Urgency = "delayed"
	UrgencyBackground Urgency = "background"
)

// Activity classes describing what the user is currently doing.
const (
	ActivityBrowsing    = "browsing"
	ActivityReading     = "reading"
	ActivityResearching = "researching"
	ActivityWorking     = "working"
)

// Candidate is one content item proposed for resurfacing.
type Candidate struct {
	SuggestionID string        `json:"suggestionId"`
	Content      *content.Item `json:"content"`
	Relevance    float64       `json:"relevance"`
	MatchReasons []string      `json:"matchReasons,omitempty"`
	Urgency      Urgency       `json:"urgency,omitempty"`
}

// Context is a snapshot of the user's current browsing situation.
type Context struct {
	URL            string       `json:"url,omitempty"`
	Category       string       `json:"category,omitempty"`
	Hour           int          `json:"hour"`
	Weekday        time.Weekday `json:"weekday"`
	Activity       string       `json:"activity,omitempty"`
	SessionMinutes int          `json:"sessionMinutes,omitempty"`
}
