// Package preference holds the learned user preference model. The
// preference learner is the only writer; every other component works from
// read-only snapshots taken via Clone.
package preference

import "time"

// Neutral is the starting score for an unseen category/domain/author.
const Neutral = 0.5

// Preferences is the adaptive user preference model.
type Preferences struct {
	Categories     map[string]float64 `json:"categories"`
	Domains        map[string]float64 `json:"domains"`
	Authors        map[string]float64 `json:"authors"`
	Lengths        map[string]float64 `json:"lengths"` // short/medium/long
	PreferredHours map[int]bool       `json:"preferredHours"`

	MinRelevance float64       `json:"minRelevance"`
	MinGap       time.Duration `json:"minGap"` // minimum inter-suggestion gap
	LearningRate float64       `json:"learningRate"`
	DecayRate    float64       `json:"decayRate"`
}

// Default returns the preference model for a fresh user.
func Default() *Preferences {
	return &Preferences{
		Categories:     make(map[string]float64),
		Domains:        make(map[string]float64),
		Authors:        make(map[string]float64),
		Lengths:        make(map[string]float64),
		PreferredHours: make(map[int]bool),
		MinRelevance:   0.3,
		MinGap:         15 * time.Minute,
		LearningRate:   0.1,
		DecayRate:      0.01,
	}
}

// Score returns the learned score from m, or Neutral for an unseen key.
func Score(m map[string]float64, key string) float64 {
	if key == "" {
		return Neutral
	}
	if v, ok := m[key]; ok {
		return v
	}
	return Neutral
}

// Clone returns a deep copy safe to read during concurrent learning.
func (p *Preferences) Clone() *Preferences {
	c := &Preferences{
		Categories:     make(map[string]float64, len(p.Categories)),
		Domains:        make(map[string]float64, len(p.Domains)),
		Authors:        make(map[string]float64, len(p.Authors)),
		Lengths:        make(map[string]float64, len(p.Lengths)),
		PreferredHours: make(map[int]bool, len(p.PreferredHours)),
		MinRelevance:   p.MinRelevance,
		MinGap:         p.MinGap,
		LearningRate:   p.LearningRate,
		DecayRate:      p.DecayRate,
	}
	for k, v := range p.Categories {
		c.Categories[k] = v
	}
	for k, v := range p.Domains {
		c.Domains[k] = v
	}
	for k, v := range p.Authors {
		c.Authors[k] = v
	}
	for k, v := range p.Lengths {
		c.Lengths[k] = v
	}
	for h, v := range p.PreferredHours {
		c.PreferredHours[h] = v
	}
	return c
}

// PreferredHourList returns the preferred hours in ascending order.
func (p *Preferences) PreferredHourList() []int {
	hours := make([]int, 0, len(p.PreferredHours))
	for h := 0; h < 24; h++ {
		if p.PreferredHours[h] {
			hours = append(hours, h)
		}
	}
	return hours
}
