// Package interaction defines the append-only interaction event record fed
// back into the preference learner and behavior model.
package interaction

import (
	"time"

	appErrors "resurface-backend/pkg/errors"
)

// Action is the outcome the user produced for a suggestion.
type Action string

const (
	ActionViewed    Action = "viewed"
	ActionClicked   Action = "clicked"
	ActionDismissed Action = "dismissed"
	ActionSaved     Action = "saved"
	ActionShared    Action = "shared"
	ActionIgnored   Action = "ignored"
)

// Valid reports whether a is a known action.
func (a Action) Valid() bool {
	switch a {
	case ActionViewed, ActionClicked, ActionDismissed, ActionSaved, ActionShared, ActionIgnored:
		return true
	}
	return false
}

// Positive reports whether the action counts as positive engagement.
func (a Action) Positive() bool {
	switch a {
	case ActionViewed, ActionClicked, ActionSaved, ActionShared:
		return true
	}
	return false
}

// Dismissal reasons attached to negative outcomes.
const (
	ReasonNotRelevant = "not_relevant"
	ReasonBadTiming   = "bad_timing"
	ReasonTooFrequent = "too_frequent"
	ReasonAlreadySeen = "already_seen"
)

// Context is a snapshot of the browsing context at interaction time.
type Context struct {
	URL            string `json:"url,omitempty"`
	Category       string `json:"category,omitempty"`
	Hour           int    `json:"hour"`
	Weekday        int    `json:"weekday"`
	Activity       string `json:"activity,omitempty"`
	SessionMinutes int    `json:"sessionMinutes,omitempty"`
}

// Event records one suggestion outcome. Immutable once appended.
type Event struct {
	ContentID       string        `json:"contentId"`
	SuggestionID    string        `json:"suggestionId"`
	Timestamp       time.Time     `json:"timestamp"`
	Action          Action        `json:"action"`
	Context         Context       `json:"context"`
	DismissalReason string        `json:"dismissalReason,omitempty"`
	Engagement      time.Duration `json:"engagement,omitempty"`
	RelevanceScore  float64       `json:"relevanceScore,omitempty"`

	// Extraction metadata mirrored from the content item so the learner
	// does not need a repository round trip per event.
	Category string `json:"category,omitempty"`
	Domain   string `json:"domain,omitempty"`
	Author   string `json:"author,omitempty"`
	Length   string `json:"length,omitempty"`
}

// Validate checks the event is well formed before it enters the history.
func (e *Event) Validate() error {
	if e.ContentID == "" {
		return appErrors.NewValidation("interaction event requires a content id")
	}
	if !e.Action.Valid() {
		return appErrors.NewValidation("unknown interaction action: " + string(e.Action))
	}
	if e.Timestamp.IsZero() {
		return appErrors.NewValidation("interaction event requires a timestamp")
	}
	return nil
}
