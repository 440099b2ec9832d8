package healthanalysis

import (
	"time"

	"feedback-backend/internal/store"
)

// Analysis record statuses. A record is created as processing at the start of
// a user's run and ends the run as completed or failed; it is never deleted.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Direction distinguishes feedback a user received from feedback they gave.
type Direction string

const (
	DirectionReceived Direction = "received"
	DirectionProvided Direction = "provided"
)

// Source records which path produced an AI-derived value, making fallback an
// explicit outcome instead of a caught exception.
type Source int

const (
	// SourceEmpty means there was no input to analyze.
	SourceEmpty Source = iota
	// SourceModel means the completion service produced the value.
	SourceModel
	// SourceFallback means the deterministic heuristic produced the value.
	SourceFallback
)

// Report aggregates one coordinator run.
type Report struct {
	WeekStartDate    time.Time
	TotalProcessed   int
	TotalErrors      int
	BatchesProcessed int
	Elapsed          time.Duration
}

// weekWindow returns the half-open interval [weekStart, weekStart+7d).
func weekWindow(weekStart time.Time) (time.Time, time.Time) {
	start := weekStart.UTC()
	return start, start.AddDate(0, 0, 7)
}

// filterWeekWindow keeps only items whose timestamp falls inside the exact
// week window. The fetch procedures are only coarsely scoped, so the window
// is always re-applied here.
func filterWeekWindow(items []store.FeedbackItem, weekStart time.Time) []store.FeedbackItem {
	start, end := weekWindow(weekStart)
	out := make([]store.FeedbackItem, 0, len(items))
	for _, item := range items {
		ts := item.CreatedAt.UTC()
		if !ts.Before(start) && ts.Before(end) {
			out = append(out, item)
		}
	}
	return out
}
