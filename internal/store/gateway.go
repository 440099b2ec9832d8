package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrStoreContract marks a store reply whose shape violates the typed
	// contract (missing required column, out-of-range value). It is kept
	// distinct from transport errors so callers can tell a broken contract
	// from an unreachable store.
	ErrStoreContract = errors.New("store contract violation")

	// ErrNotFound indicates a lookup matched no rows.
	ErrNotFound = errors.New("not found")
)

// Gateway is the typed boundary over the store's named procedures. The
// pipeline never issues raw queries; every operation maps to one procedure.
type Gateway interface {
	// CurrentWeekStart resolves the store's notion of the current week start.
	CurrentWeekStart(ctx context.Context) (time.Time, error)

	// UsersForWeeklyAnalysis returns one page of the user population for the
	// target week, ordered stably so offset pagination is coherent.
	UsersForWeeklyAnalysis(ctx context.Context, batchSize, offset int, weekStart time.Time) ([]UserBatchEntry, error)

	// UserFeedbackReceived returns feedback the user received for the week.
	// The scope is coarse; callers must re-filter by exact timestamp window.
	UserFeedbackReceived(ctx context.Context, userID string, weekStart time.Time) ([]FeedbackItem, error)

	// UserFeedbackProvided returns feedback the user gave in [weekStart, weekEnd).
	// Same coarseness caveat as UserFeedbackReceived.
	UserFeedbackProvided(ctx context.Context, userID string, weekStart, weekEnd time.Time) ([]FeedbackItem, error)

	// UpsertAnalysisRecord creates or refreshes the (user, week) analysis
	// record with the given status and returns its id.
	UpsertAnalysisRecord(ctx context.Context, userID, companyID string, weekStart time.Time, status string) (string, error)

	// UpdateAnalysisResults writes the derived fields and final status.
	UpdateAnalysisResults(ctx context.Context, recordID string, results AnalysisResults, status string) error

	// WeeklyActivityHistory returns per-week activity for the weeks strictly
	// before the given week, newest first, up to the requested count.
	WeeklyActivityHistory(ctx context.Context, userID string, before time.Time, weeks int) ([]WeeklyActivity, error)

	// UpsertHealthScores writes the full score row for (user, week). Scores
	// are always replaced wholesale, never patched.
	UpsertHealthScores(ctx context.Context, userID string, weekStart time.Time, scores HealthScores) error
}
