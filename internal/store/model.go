package store

import "time"

// QuestionTypeValues is the question type used for company-value nominations.
const QuestionTypeValues = "values"

// UserBatchEntry is one pagination row from get_users_for_weekly_analysis.
type UserBatchEntry struct {
	UserID           string
	CompanyID        string
	UserName         string
	UserEmail        string
	CompanyUserCount int
}

// FeedbackItem is a single feedback response consumed read-only by the
// pipeline. RatingValue and NominatedUserID are nil when absent.
type FeedbackItem struct {
	QuestionType     string
	QuestionText     string
	RatingValue      *int
	TextResponse     string
	CommentText      string
	NominatedUserID  *string
	CompanyValueName string
	SenderName       string
	CreatedAt        time.Time
}

// HasText reports whether the item carries any free-text content.
func (f FeedbackItem) HasText() bool {
	return f.TextResponse != "" || f.CommentText != ""
}

// AnalysisResults holds the derived fields written back by
// update_analysis_results once a user's run completes.
type AnalysisResults struct {
	ReceivedCount      int
	ReceivedSentiment  *float64
	ReceivedSummary    *string
	ReceivedThemes     []string
	ProvidedCount      int
	ProvidedSentiment  *float64
	ProvidedSummary    *string
	ProvidedThemes     []string
	CompanyValuesCount int
}

// HealthScores holds the seven sub-scores plus the composite, all in [0,100].
type HealthScores struct {
	VolumeReceived      float64
	VolumeProvided      float64
	SentimentReceived   float64
	SentimentProvided   float64
	ConsistencyReceived float64
	ConsistencyProvided float64
	CompanyValues       float64
	Overall             float64
}

// WeeklyActivity is one row of per-week activity history used by the
// consistency sub-scores.
type WeeklyActivity struct {
	WeekStart     time.Time
	ReceivedCount int
	ProvidedCount int
}
