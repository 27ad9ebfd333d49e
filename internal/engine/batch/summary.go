package batch

import "time"

// Summary aggregates the final outcome of a batch run for reporting.
type Summary struct {
	Total       int
	Completed   int
	Failed      int
	Pending     int
	SuccessRate float64
	Duration    time.Duration
	FailedItems []WorkItem
}

// Summarize computes a Summary from a completed run's items.
func Summarize(items []WorkItem, duration time.Duration) Summary {
	s := Summary{Total: len(items), Duration: duration}
	for _, item := range items {
		switch item.State {
		case StateCompleted:
			s.Completed++
		case StateFailed:
			s.Failed++
			s.FailedItems = append(s.FailedItems, item)
		default:
			s.Pending++
		}
	}
	if s.Total > 0 {
		s.SuccessRate = float64(s.Completed) / float64(s.Total) * percentMultiplier
	}
	return s
}
