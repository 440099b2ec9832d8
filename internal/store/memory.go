package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AnalysisRow is the in-memory shape of one (user, week) analysis record.
type AnalysisRow struct {
	ID        string
	UserID    string
	CompanyID string
	WeekStart time.Time
	Status    string
	Results   AnalysisResults
}

// ScoreRow is the in-memory shape of one (user, week) health-score record.
type ScoreRow struct {
	UserID    string
	WeekStart time.Time
	Scores    HealthScores
}

// MemoryGateway is an in-memory Gateway used by tests and local development.
// It is seedable, fault-injectable, and safe for concurrent use.
type MemoryGateway struct {
	mu sync.RWMutex

	WeekStart time.Time
	Users     []UserBatchEntry
	Received  map[string][]FeedbackItem
	Provided  map[string][]FeedbackItem
	History   map[string][]WeeklyActivity

	analyses map[string]AnalysisRow
	scores   map[string]ScoreRow

	// Fault injection hooks. FailReceivedFor aborts the feedback fetch for
	// the given user ids; FailUsersPage aborts pagination at the given page
	// index (0-based). AlwaysFullPages makes pagination never drain.
	FailReceivedFor map[string]bool
	FailUsersPage   int
	AlwaysFullPages bool
}

// NewMemoryGateway constructs an empty MemoryGateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		Received:        make(map[string][]FeedbackItem),
		Provided:        make(map[string][]FeedbackItem),
		History:         make(map[string][]WeeklyActivity),
		analyses:        make(map[string]AnalysisRow),
		scores:          make(map[string]ScoreRow),
		FailReceivedFor: make(map[string]bool),
		FailUsersPage:   -1,
	}
}

func (g *MemoryGateway) CurrentWeekStart(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.WeekStart.IsZero() {
		return time.Time{}, fmt.Errorf("current week start not seeded")
	}
	return g.WeekStart, nil
}

func (g *MemoryGateway) UsersForWeeklyAnalysis(ctx context.Context, batchSize, offset int, weekStart time.Time) ([]UserBatchEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if batchSize <= 0 {
		return nil, nil
	}
	page := offset / batchSize
	if g.FailUsersPage >= 0 && page == g.FailUsersPage {
		return nil, fmt.Errorf("injected page fetch failure at page %d", page)
	}
	if g.AlwaysFullPages {
		out := make([]UserBatchEntry, 0, batchSize)
		for i := 0; i < batchSize; i++ {
			out = append(out, UserBatchEntry{
				UserID:           fmt.Sprintf("user-%d-%d", page, i),
				CompanyID:        "company-1",
				CompanyUserCount: batchSize,
			})
		}
		return out, nil
	}
	if offset >= len(g.Users) {
		return nil, nil
	}
	end := offset + batchSize
	if end > len(g.Users) {
		end = len(g.Users)
	}
	return append([]UserBatchEntry(nil), g.Users[offset:end]...), nil
}

func (g *MemoryGateway) UserFeedbackReceived(ctx context.Context, userID string, weekStart time.Time) ([]FeedbackItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.FailReceivedFor[userID] {
		return nil, fmt.Errorf("injected fetch failure for user %s", userID)
	}
	return append([]FeedbackItem(nil), g.Received[userID]...), nil
}

func (g *MemoryGateway) UserFeedbackProvided(ctx context.Context, userID string, weekStart, weekEnd time.Time) ([]FeedbackItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]FeedbackItem(nil), g.Provided[userID]...), nil
}

func (g *MemoryGateway) UpsertAnalysisRecord(ctx context.Context, userID, companyID string, weekStart time.Time, status string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	key := analysisKey(userID, weekStart)
	row, ok := g.analyses[key]
	if !ok {
		row = AnalysisRow{
			ID:        uuid.NewString(),
			UserID:    userID,
			CompanyID: companyID,
			WeekStart: weekStart,
		}
	}
	row.Status = status
	g.analyses[key] = row
	return row.ID, nil
}

func (g *MemoryGateway) UpdateAnalysisResults(ctx context.Context, recordID string, results AnalysisResults, status string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	for key, row := range g.analyses {
		if row.ID == recordID {
			row.Results = results
			row.Status = status
			g.analyses[key] = row
			return nil
		}
	}
	return ErrNotFound
}

func (g *MemoryGateway) WeeklyActivityHistory(ctx context.Context, userID string, before time.Time, weeks int) ([]WeeklyActivity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	history := g.History[userID]
	if len(history) > weeks {
		history = history[:weeks]
	}
	return append([]WeeklyActivity(nil), history...), nil
}

func (g *MemoryGateway) UpsertHealthScores(ctx context.Context, userID string, weekStart time.Time, scores HealthScores) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scores[analysisKey(userID, weekStart)] = ScoreRow{
		UserID:    userID,
		WeekStart: weekStart,
		Scores:    scores,
	}
	return nil
}

// AnalysisFor returns the stored analysis row for (user, week), if any.
func (g *MemoryGateway) AnalysisFor(userID string, weekStart time.Time) (AnalysisRow, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	row, ok := g.analyses[analysisKey(userID, weekStart)]
	return row, ok
}

// ScoresFor returns the stored health-score row for (user, week), if any.
func (g *MemoryGateway) ScoresFor(userID string, weekStart time.Time) (ScoreRow, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	row, ok := g.scores[analysisKey(userID, weekStart)]
	return row, ok
}

// AnalysisCount returns the number of stored analysis rows.
func (g *MemoryGateway) AnalysisCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.analyses)
}

// ScoreCount returns the number of stored health-score rows.
func (g *MemoryGateway) ScoreCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.scores)
}

func analysisKey(userID string, weekStart time.Time) string {
	return userID + "|" + weekStart.UTC().Format("2006-01-02")
}

var _ Gateway = (*MemoryGateway)(nil)
