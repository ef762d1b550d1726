// Package relationship implements the Relationship entity for the content
// graph: a directed, typed, scored edge between two content items.
//
// Every stored relationship (A→B) must have a reciprocal (B→A) with
// identical type, strength and confidence; the graph store creates the
// reverse edge lazily when it is missing.
package relationship

import (
	"time"

	"github.com/google/uuid"

	appErrors "resurface-backend/pkg/errors"
)

// Type represents the semantic type of a relationship between items.
type Type string

const (
	TypeSimilar     Type = "similar"
	TypeBuildsOn    Type = "builds_on"
	TypeContradicts Type = "contradicts"
	TypeReferences  Type = "references"
	TypeRelated     Type = "related"
)

// Valid reports whether t is one of the known relationship types.
func (t Type) Valid() bool {
	switch t {
	case TypeSimilar, TypeBuildsOn, TypeContradicts, TypeReferences, TypeRelated:
		return true
	}
	return false
}

// Relationship is a directed scored edge between two content items.
type Relationship struct {
	ID          string    `json:"id"`
	SourceID    string    `json:"sourceId"`
	TargetID    string    `json:"targetId"`
	Type        Type      `json:"type"`
	Strength    float64   `json:"strength"`
	Confidence  float64   `json:"confidence"`
	CreatedAt   time.Time `json:"createdAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// New creates a relationship between two items with validation.
func New(sourceID, targetID string, t Type, strength, confidence float64) (*Relationship, error) {
	if sourceID == "" || targetID == "" {
		return nil, appErrors.NewValidation("relationship requires source and target ids")
	}
	if sourceID == targetID {
		return nil, appErrors.NewValidation("relationship cannot connect an item to itself")
	}
	if !t.Valid() {
		return nil, appErrors.NewValidation("unknown relationship type: " + string(t))
	}
	if strength < 0 || strength > 1 {
		return nil, appErrors.NewValidation("relationship strength must be between 0.0 and 1.0")
	}
	if confidence < 0 || confidence > 1 {
		return nil, appErrors.NewValidation("relationship confidence must be between 0.0 and 1.0")
	}

	now := time.Now()
	return &Relationship{
		ID:          uuid.New().String(),
		SourceID:    sourceID,
		TargetID:    targetID,
		Type:        t,
		Strength:    strength,
		Confidence:  confidence,
		CreatedAt:   now,
		LastUpdated: now,
	}, nil
}

// Reciprocal synthesizes the reverse edge with identical type, strength,
// confidence and timestamps but a distinct id.
func (r *Relationship) Reciprocal() *Relationship {
	return &Relationship{
		ID:          uuid.New().String(),
		SourceID:    r.TargetID,
		TargetID:    r.SourceID,
		Type:        r.Type,
		Strength:    r.Strength,
		Confidence:  r.Confidence,
		CreatedAt:   r.CreatedAt,
		LastUpdated: r.LastUpdated,
	}
}

// IsReverseOf checks if this relationship is the reverse of another.
func (r *Relationship) IsReverseOf(other *Relationship) bool {
	return r.SourceID == other.TargetID && r.TargetID == other.SourceID
}

// Touches checks if this relationship involves a specific content item.
func (r *Relationship) Touches(contentID string) bool {
	return r.SourceID == contentID || r.TargetID == contentID
}

// Filter narrows a relationship query. Zero values mean "any".
type Filter struct {
	SourceID      string  `json:"sourceId,omitempty"`
	TargetID      string  `json:"targetId,omitempty"`
	Type          Type    `json:"type,omitempty"`
	MinStrength   float64 `json:"minStrength,omitempty"`
	MinConfidence float64 `json:"minConfidence,omitempty"`
	Limit         int     `json:"limit,omitempty"`
}

// Matches reports whether the relationship passes every set filter field.
func (f Filter) Matches(r *Relationship) bool {
	if f.SourceID != "" && r.SourceID != f.SourceID {
		return false
	}
	if f.TargetID != "" && r.TargetID != f.TargetID {
		return false
	}
	if f.Type != "" && r.Type != f.Type {
		return false
	}
	if r.Strength < f.MinStrength {
		return false
	}
	if r.Confidence < f.MinConfidence {
		return false
	}
	return true
}
