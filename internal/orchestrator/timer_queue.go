package orchestrator

import "time"

// timerEntry is one scheduled fire time for a content id.
type timerEntry struct {
	fireAt    time.Time
	contentID string
}

// timerQueue is a min-heap of (fire-time, content id) pairs. Debounce
// pushes a fresh entry each time a trigger arrives; superseded entries are
// dropped lazily when popped, the pending map being the source of truth for
// the authoritative fire time.
type timerQueue []timerEntry

func (q timerQueue) Len() int { return len(q) }

func (q timerQueue) Less(i, j int) bool { return q[i].fireAt.Before(q[j].fireAt) }

func (q timerQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *timerQueue) Push(x interface{}) {
	*q = append(*q, x.(timerEntry))
}

func (q *timerQueue) Pop() interface{} {
	old := *q
	n := len(old)
	entry := old[n-1]
	*q = old[:n-1]
	return entry
}

func (q timerQueue) peek() (timerEntry, bool) {
	if len(q) == 0 {
		return timerEntry{}, false
	}
	return q[0], true
}
