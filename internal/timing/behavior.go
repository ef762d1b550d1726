package timing

// maxDismissalLog bounds the dismissal-reason history.
const maxDismissalLog = 100

// Behavior is the learned user behavior pattern: per-hour engagement rates,
// the derived preferred-hour set, per-category engagement and the overall
// response rate. Owned by the Scheduler and fed by interaction outcomes.
type Behavior struct {
	HourlyEngagement   map[int]float64    `json:"hourlyEngagement"`
	PreferredHours     map[int]bool       `json:"preferredHours"`
	CategoryEngagement map[string]float64 `json:"categoryEngagement"`
	ResponseRate       float64            `json:"responseRate"`
	DismissalReasons   []string           `json:"dismissalReasons,omitempty"`
}

// NewBehavior returns an empty behavior pattern.
func NewBehavior() *Behavior {
	return &Behavior{
		HourlyEngagement:   make(map[int]float64),
		PreferredHours:     make(map[int]bool),
		CategoryEngagement: make(map[string]float64),
	}
}

// update applies one interaction outcome: an exponential nudge on the
// hour's engagement rate (+0.1 engaged, −0.05 otherwise), preferred-hour
// promotion past the 0.3 threshold, the category mirror, and the response
// rate recomputation.
func (b *Behavior) update(hour int, engaged bool, category, reason string) {
	delta := -0.05
	if engaged {
		delta = 0.1
	}
	b.HourlyEngagement[hour] = clampRate(b.HourlyEngagement[hour] + delta)

	if b.HourlyEngagement[hour] > 0.3 {
		b.PreferredHours[hour] = true
	}

	if category != "" {
		b.CategoryEngagement[category] = clampRate(b.CategoryEngagement[category] + delta)
	}

	if !engaged && reason != "" {
		b.DismissalReasons = append(b.DismissalReasons, reason)
		if len(b.DismissalReasons) > maxDismissalLog {
			b.DismissalReasons = b.DismissalReasons[len(b.DismissalReasons)-maxDismissalLog:]
		}
	}

	responsive := 0
	for _, rate := range b.HourlyEngagement {
		if rate > 0.5 {
			responsive++
		}
	}
	if len(b.HourlyEngagement) > 0 {
		b.ResponseRate = float64(responsive) / float64(len(b.HourlyEngagement))
	}
}

// clone returns a deep copy for snapshot readers.
func (b *Behavior) clone() *Behavior {
	c := &Behavior{
		HourlyEngagement:   make(map[int]float64, len(b.HourlyEngagement)),
		PreferredHours:     make(map[int]bool, len(b.PreferredHours)),
		CategoryEngagement: make(map[string]float64, len(b.CategoryEngagement)),
		ResponseRate:       b.ResponseRate,
		DismissalReasons:   append([]string(nil), b.DismissalReasons...),
	}
	for k, v := range b.HourlyEngagement {
		c.HourlyEngagement[k] = v
	}
	for k, v := range b.PreferredHours {
		c.PreferredHours[k] = v
	}
	for k, v := range b.CategoryEngagement {
		c.CategoryEngagement[k] = v
	}
	return c
}

func clampRate(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
