// Package content defines the ContentItem read model consumed by the
// relationship and resurfacing engine. Items are produced upstream by the
// capture/extraction pipeline; this core never mutates them.
package content

import (
	"net/url"
	"strings"
	"time"
)

// Metadata carries the extraction metadata attached to a captured item.
type Metadata struct {
	WordCount   int    `json:"wordCount"`
	ReadingTime int    `json:"readingTime"` // minutes
	PageType    string `json:"pageType"`
	Author      string `json:"author,omitempty"`
}

// Item is a single captured piece of content. Concepts and tags come from
// the on-device extraction pipeline; a missing attribute is represented by
// its zero value (empty slice/string) and treated as absent, not as a
// zero-valued signal.
type Item struct {
	ID            string    `json:"id"`
	URL           string    `json:"url"`
	Title         string    `json:"title"`
	Concepts      []string  `json:"concepts,omitempty"`
	Tags          []string  `json:"tags,omitempty"`
	Category      string    `json:"category,omitempty"`
	CapturedAt    time.Time `json:"capturedAt"`
	LastAccessed  time.Time `json:"lastAccessed"`
	TimesAccessed int       `json:"timesAccessed"`
	UserRating    int       `json:"userRating,omitempty"` // 1-5, 0 = unrated
	UserNotes     string    `json:"userNotes,omitempty"`
	Importance    float64   `json:"importance,omitempty"`
	Metadata      Metadata  `json:"metadata"`
}

// HasCategory reports whether the item carries a category attribute.
func (i *Item) HasCategory() bool {
	return i.Category != ""
}

// Age returns how long ago the item was captured.
func (i *Item) Age(now time.Time) time.Duration {
	return now.Sub(i.CapturedAt)
}

// DaysSinceAccess returns fractional days since the item was last accessed,
// falling back to capture time when it has never been opened.
func (i *Item) DaysSinceAccess(now time.Time) float64 {
	last := i.LastAccessed
	if last.IsZero() {
		last = i.CapturedAt
	}
	return now.Sub(last).Hours() / 24
}

// AccessFrequency returns accesses per day since capture.
func (i *Item) AccessFrequency(now time.Time) float64 {
	days := i.Age(now).Hours() / 24
	if days < 1 {
		days = 1
	}
	return float64(i.TimesAccessed) / days
}

// Domain extracts the host portion of the item's URL, without a www prefix.
// Returns "" when the URL does not parse.
func (i *Item) Domain() string {
	u, err := url.Parse(i.URL)
	if err != nil || u.Host == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Host), "www.")
}

// LengthClass buckets the item by reading length for preference matching.
func (i *Item) LengthClass() string {
	switch {
	case i.Metadata.WordCount == 0:
		return ""
	case i.Metadata.WordCount < 500:
		return "short"
	case i.Metadata.WordCount < 2000:
		return "medium"
	default:
		return "long"
	}
}
