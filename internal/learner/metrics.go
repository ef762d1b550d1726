package learner

// PerfStat is a shown/engaged pair for one category or hour bucket.
type PerfStat struct {
	Shown   int `json:"shown"`
	Engaged int `json:"engaged"`
}

// Rate returns the engagement fraction, 0 when nothing was shown.
func (p PerfStat) Rate() float64 {
	if p.Shown == 0 {
		return 0
	}
	return float64(p.Engaged) / float64(p.Shown)
}

// Trend classifications for the recent engagement window.
const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
)

// Metrics aggregates learning outcomes. Derived from the interaction
// history; read-mostly outside the learner.
type Metrics struct {
	SuggestionsShown int64                `json:"suggestionsShown"`
	Engagements      int64                `json:"engagements"`
	Dismissals       int64                `json:"dismissals"`
	ByCategory       map[string]*PerfStat `json:"byCategory"`
	ByHour           map[int]*PerfStat    `json:"byHour"`
	Trend            string               `json:"trend"`
}

// NewMetrics returns an empty metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{
		ByCategory: make(map[string]*PerfStat),
		ByHour:     make(map[int]*PerfStat),
		Trend:      TrendStable,
	}
}

// DismissalRate returns dismissals over suggestions shown.
func (m *Metrics) DismissalRate() float64 {
	if m.SuggestionsShown == 0 {
		return 0
	}
	return float64(m.Dismissals) / float64(m.SuggestionsShown)
}

// Clone returns a deep copy safe for concurrent readers.
func (m *Metrics) Clone() *Metrics {
	c := &Metrics{
		SuggestionsShown: m.SuggestionsShown,
		Engagements:      m.Engagements,
		Dismissals:       m.Dismissals,
		ByCategory:       make(map[string]*PerfStat, len(m.ByCategory)),
		ByHour:           make(map[int]*PerfStat, len(m.ByHour)),
		Trend:            m.Trend,
	}
	for k, v := range m.ByCategory {
		stat := *v
		c.ByCategory[k] = &stat
	}
	for k, v := range m.ByHour {
		stat := *v
		c.ByHour[k] = &stat
	}
	return c
}
