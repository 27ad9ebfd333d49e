package batch

import (
	"sync/atomic"
	"time"
)

// percentMultiplier converts a ratio to a percentage (0-100).
const percentMultiplier = 100

// Progress tracks aggregate batch state with per-field atomic counters so
// the reporter can read a consistent-enough view without locking workers.
type Progress struct {
	total     int64
	completed atomic.Int64
	failed    atomic.Int64
	running   atomic.Int64
	startTime time.Time
}

// NewProgress creates a progress tracker for totalItems items, all Pending.
func NewProgress(totalItems int) *Progress {
	return &Progress{
		total:     int64(totalItems),
		startTime: time.Now(),
	}
}

// markRunning records one item moving from Pending to Running.
func (p *Progress) markRunning() {
	p.running.Add(1)
}

// markCompleted records one Running item completing.
func (p *Progress) markCompleted() {
	p.running.Add(-1)
	p.completed.Add(1)
}

// markFailed records one Running item failing terminally.
func (p *Progress) markFailed() {
	p.running.Add(-1)
	p.failed.Add(1)
}

// markPending records one Running item returning to Pending after a
// cancelled run.
func (p *Progress) markPending() {
	p.running.Add(-1)
}

// Snapshot returns a point-in-time view of the batch.
func (p *Progress) Snapshot() Snapshot {
	completed := p.completed.Load()
	failed := p.failed.Load()
	running := p.running.Load()

	return Snapshot{
		Total:     int(p.total),
		Completed: int(completed),
		Failed:    int(failed),
		Running:   int(running),
		Pending:   int(p.total - completed - failed - running),
		Elapsed:   time.Since(p.startTime),
	}
}

// Snapshot is an immutable view of batch progress at one instant.
type Snapshot struct {
	Total     int
	Completed int
	Failed    int
	Running   int
	Pending   int
	Elapsed   time.Duration
}

// Terminal returns the number of items in a terminal state.
func (s Snapshot) Terminal() int {
	return s.Completed + s.Failed
}

// PercentComplete returns the share of items in a terminal state (0-100).
func (s Snapshot) PercentComplete() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Terminal()) / float64(s.Total) * percentMultiplier
}

// Done returns true once every item has reached a terminal state.
func (s Snapshot) Done() bool {
	return s.Terminal() >= s.Total
}
