package healthanalysis

import (
	"context"
	"fmt"
	"time"

	"feedback-backend/internal/shared/metrics"
	"feedback-backend/internal/shared/telemetry"
	"feedback-backend/internal/store"
)

// UserProcessor runs the fetch, analyze, score, persist sequence for one
// (user, week). A failure in any step aborts only that user's run; the
// coordinator counts it and moves on.
type UserProcessor struct {
	Store     store.Gateway
	Sentiment *SentimentAnalyzer
	Summaries *SummaryGenerator
	Themes    *ThemeExtractor
	Scores    *HealthScoreCalculator
}

// Process analyzes one user's week. The analysis record is created as
// processing up front so a crashed run leaves an audit trail, and is marked
// failed best-effort before any error is returned.
func (p *UserProcessor) Process(ctx context.Context, user store.UserBatchEntry, weekStart time.Time) error {
	recordID, err := p.Store.UpsertAnalysisRecord(ctx, user.UserID, user.CompanyID, weekStart, StatusProcessing)
	if err != nil {
		return fmt.Errorf("upsert analysis record: %w", err)
	}

	if err := p.analyzeAndPersist(ctx, recordID, user, weekStart); err != nil {
		p.markFailed(user, weekStart)
		return err
	}
	return nil
}

func (p *UserProcessor) analyzeAndPersist(ctx context.Context, recordID string, user store.UserBatchEntry, weekStart time.Time) error {
	start, end := weekWindow(weekStart)

	received, err := p.Store.UserFeedbackReceived(ctx, user.UserID, start)
	if err != nil {
		return fmt.Errorf("fetch received feedback: %w", err)
	}
	provided, err := p.Store.UserFeedbackProvided(ctx, user.UserID, start, end)
	if err != nil {
		return fmt.Errorf("fetch provided feedback: %w", err)
	}

	// The fetch procedures are coarsely scoped; the exact half-open window
	// is always re-applied client-side.
	received = filterWeekWindow(received, weekStart)
	provided = filterWeekWindow(provided, weekStart)

	valuesCount := countValueNominations(received)

	results := store.AnalysisResults{
		ReceivedCount:      len(received),
		ProvidedCount:      len(provided),
		CompanyValuesCount: valuesCount,
	}
	results.ReceivedSentiment = p.runSentiment(ctx, received)
	results.ProvidedSentiment = p.runSentiment(ctx, provided)
	results.ReceivedSummary = p.runSummary(ctx, received, DirectionReceived, user.UserName)
	results.ProvidedSummary = p.runSummary(ctx, provided, DirectionProvided, user.UserName)
	results.ReceivedThemes = p.runThemes(ctx, results.ReceivedSummary, received)
	results.ProvidedThemes = p.runThemes(ctx, results.ProvidedSummary, provided)

	if err := p.Store.UpdateAnalysisResults(ctx, recordID, results, StatusCompleted); err != nil {
		return fmt.Errorf("persist analysis results: %w", err)
	}

	historyWeeks := p.Scores.HistoryWeeks
	if historyWeeks <= 0 {
		historyWeeks = defaultHistoryWeeks
	}
	history, err := p.Store.WeeklyActivityHistory(ctx, user.UserID, weekStart, historyWeeks-1)
	if err != nil {
		return fmt.Errorf("fetch activity history: %w", err)
	}

	scores := p.Scores.Compute(user, results, history)
	if err := p.Store.UpsertHealthScores(ctx, user.UserID, weekStart, scores); err != nil {
		return fmt.Errorf("persist health scores: %w", err)
	}
	return nil
}

func (p *UserProcessor) runSentiment(ctx context.Context, items []store.FeedbackItem) *float64 {
	value, source := p.Sentiment.Analyze(ctx, items)
	noteFallback(source)
	return value
}

func (p *UserProcessor) runSummary(ctx context.Context, items []store.FeedbackItem, direction Direction, userName string) *string {
	value, source := p.Summaries.Generate(ctx, items, direction, userName)
	noteFallback(source)
	return value
}

func (p *UserProcessor) runThemes(ctx context.Context, summary *string, items []store.FeedbackItem) []string {
	text := ""
	if summary != nil {
		text = *summary
	}
	themes, source := p.Themes.Extract(ctx, text, items)
	noteFallback(source)
	return themes
}

// markFailed records the failed status without a fresh context deadline, so a
// cancelled run still leaves the audit row. An error here is logged and never
// masks the original failure.
func (p *UserProcessor) markFailed(user store.UserBatchEntry, weekStart time.Time) {
	if _, err := p.Store.UpsertAnalysisRecord(context.Background(), user.UserID, user.CompanyID, weekStart, StatusFailed); err != nil {
		telemetry.Error("analysis.mark_failed", map[string]any{
			"user_id":         user.UserID,
			"week_start_date": weekStart.Format("2006-01-02"),
			"error":           err.Error(),
		})
	}
}

// countValueNominations counts received items that nominate a colleague for a
// company value.
func countValueNominations(received []store.FeedbackItem) int {
	count := 0
	for _, item := range received {
		if item.QuestionType == store.QuestionTypeValues && item.NominatedUserID != nil {
			count++
		}
	}
	return count
}

func noteFallback(source Source) {
	if source == SourceFallback {
		metrics.IncCompletionFallback()
	}
}
