package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// PGGateway implements Gateway against Postgres stored procedures using the
// pgx stdlib driver.
type PGGateway struct {
	DB *sql.DB
}

// NewPGGateway wraps an established connection pool.
func NewPGGateway(db *sql.DB) *PGGateway {
	return &PGGateway{DB: db}
}

func (g *PGGateway) CurrentWeekStart(ctx context.Context) (time.Time, error) {
	const query = `SELECT get_current_week_start()`
	var weekStart sql.NullTime
	if err := g.DB.QueryRowContext(ctx, query).Scan(&weekStart); err != nil {
		return time.Time{}, fmt.Errorf("get_current_week_start: %w", err)
	}
	if !weekStart.Valid {
		return time.Time{}, fmt.Errorf("%w: get_current_week_start returned NULL", ErrStoreContract)
	}
	return weekStart.Time.UTC(), nil
}

func (g *PGGateway) UsersForWeeklyAnalysis(ctx context.Context, batchSize, offset int, weekStart time.Time) ([]UserBatchEntry, error) {
	const query = `
SELECT user_id, company_id, user_name, user_email, company_user_count
FROM get_users_for_weekly_analysis($1, $2, $3)`
	rows, err := g.DB.QueryContext(ctx, query, batchSize, offset, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get_users_for_weekly_analysis: %w", err)
	}
	defer rows.Close()

	var out []UserBatchEntry
	for rows.Next() {
		var entry UserBatchEntry
		var userName, userEmail sql.NullString
		var companyUserCount sql.NullInt64
		if err := rows.Scan(&entry.UserID, &entry.CompanyID, &userName, &userEmail, &companyUserCount); err != nil {
			return nil, fmt.Errorf("get_users_for_weekly_analysis scan: %w", err)
		}
		entry.UserName = userName.String
		entry.UserEmail = userEmail.String
		entry.CompanyUserCount = int(companyUserCount.Int64)
		if err := validateBatchEntry(entry); err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get_users_for_weekly_analysis rows: %w", err)
	}
	return out, nil
}

func (g *PGGateway) UserFeedbackReceived(ctx context.Context, userID string, weekStart time.Time) ([]FeedbackItem, error) {
	const query = `
SELECT question_type, question_text, rating_value, text_response, comment_text,
       nominated_user_id, company_value_name, sender_name, created_at
FROM get_user_feedback_summary($1, $2)`
	rows, err := g.DB.QueryContext(ctx, query, userID, weekStart)
	if err != nil {
		return nil, fmt.Errorf("get_user_feedback_summary: %w", err)
	}
	defer rows.Close()
	return scanFeedbackItems(rows, "get_user_feedback_summary")
}

func (g *PGGateway) UserFeedbackProvided(ctx context.Context, userID string, weekStart, weekEnd time.Time) ([]FeedbackItem, error) {
	const query = `
SELECT question_type, question_text, rating_value, text_response, comment_text,
       nominated_user_id, company_value_name, sender_name, created_at
FROM get_user_provided_feedback_summary($1, $2, $3)`
	rows, err := g.DB.QueryContext(ctx, query, userID, weekStart, weekEnd)
	if err != nil {
		return nil, fmt.Errorf("get_user_provided_feedback_summary: %w", err)
	}
	defer rows.Close()
	return scanFeedbackItems(rows, "get_user_provided_feedback_summary")
}

func (g *PGGateway) UpsertAnalysisRecord(ctx context.Context, userID, companyID string, weekStart time.Time, status string) (string, error) {
	const query = `SELECT upsert_weekly_analysis_record($1, $2, $3, $4)`
	var recordID sql.NullString
	if err := g.DB.QueryRowContext(ctx, query, userID, companyID, weekStart, status).Scan(&recordID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: upsert_weekly_analysis_record returned no row", ErrStoreContract)
		}
		return "", fmt.Errorf("upsert_weekly_analysis_record: %w", err)
	}
	if !recordID.Valid || strings.TrimSpace(recordID.String) == "" {
		return "", fmt.Errorf("%w: upsert_weekly_analysis_record returned empty id", ErrStoreContract)
	}
	return recordID.String, nil
}

func (g *PGGateway) UpdateAnalysisResults(ctx context.Context, recordID string, results AnalysisResults, status string) error {
	const query = `
SELECT update_analysis_results($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := g.DB.ExecContext(ctx, query,
		recordID,
		results.ReceivedCount,
		nullFloat(results.ReceivedSentiment),
		nullString(results.ReceivedSummary),
		themesParam(results.ReceivedThemes),
		results.ProvidedCount,
		nullFloat(results.ProvidedSentiment),
		nullString(results.ProvidedSummary),
		themesParam(results.ProvidedThemes),
		results.CompanyValuesCount,
		status,
	)
	if err != nil {
		return fmt.Errorf("update_analysis_results: %w", err)
	}
	return nil
}

func (g *PGGateway) WeeklyActivityHistory(ctx context.Context, userID string, before time.Time, weeks int) ([]WeeklyActivity, error) {
	const query = `
SELECT week_start_date, received_count, provided_count
FROM get_user_weekly_activity($1, $2, $3)`
	rows, err := g.DB.QueryContext(ctx, query, userID, before, weeks)
	if err != nil {
		return nil, fmt.Errorf("get_user_weekly_activity: %w", err)
	}
	defer rows.Close()

	var out []WeeklyActivity
	for rows.Next() {
		var row WeeklyActivity
		var weekStart sql.NullTime
		var received, provided sql.NullInt64
		if err := rows.Scan(&weekStart, &received, &provided); err != nil {
			return nil, fmt.Errorf("get_user_weekly_activity scan: %w", err)
		}
		if !weekStart.Valid {
			return nil, fmt.Errorf("%w: get_user_weekly_activity returned NULL week", ErrStoreContract)
		}
		row.WeekStart = weekStart.Time.UTC()
		row.ReceivedCount = int(received.Int64)
		row.ProvidedCount = int(provided.Int64)
		if row.ReceivedCount < 0 || row.ProvidedCount < 0 {
			return nil, fmt.Errorf("%w: get_user_weekly_activity returned negative count", ErrStoreContract)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get_user_weekly_activity rows: %w", err)
	}
	return out, nil
}

func (g *PGGateway) UpsertHealthScores(ctx context.Context, userID string, weekStart time.Time, scores HealthScores) error {
	const query = `
SELECT upsert_health_scores($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := g.DB.ExecContext(ctx, query,
		userID,
		weekStart,
		scores.VolumeReceived,
		scores.VolumeProvided,
		scores.SentimentReceived,
		scores.SentimentProvided,
		scores.ConsistencyReceived,
		scores.ConsistencyProvided,
		scores.CompanyValues,
		scores.Overall,
	)
	if err != nil {
		return fmt.Errorf("upsert_health_scores: %w", err)
	}
	return nil
}

func scanFeedbackItems(rows *sql.Rows, proc string) ([]FeedbackItem, error) {
	var out []FeedbackItem
	for rows.Next() {
		var item FeedbackItem
		var questionText, textResponse, commentText sql.NullString
		var nominated, valueName, senderName sql.NullString
		var rating sql.NullInt64
		var createdAt sql.NullTime
		if err := rows.Scan(
			&item.QuestionType,
			&questionText,
			&rating,
			&textResponse,
			&commentText,
			&nominated,
			&valueName,
			&senderName,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("%s scan: %w", proc, err)
		}
		item.QuestionText = questionText.String
		item.TextResponse = textResponse.String
		item.CommentText = commentText.String
		item.CompanyValueName = valueName.String
		item.SenderName = senderName.String
		if rating.Valid {
			value := int(rating.Int64)
			if value < 1 || value > 5 {
				return nil, fmt.Errorf("%w: %s rating_value %d out of range", ErrStoreContract, proc, value)
			}
			item.RatingValue = &value
		}
		if nominated.Valid && strings.TrimSpace(nominated.String) != "" {
			id := nominated.String
			item.NominatedUserID = &id
		}
		if !createdAt.Valid {
			return nil, fmt.Errorf("%w: %s returned NULL created_at", ErrStoreContract, proc)
		}
		item.CreatedAt = createdAt.Time.UTC()
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s rows: %w", proc, err)
	}
	return out, nil
}

func validateBatchEntry(entry UserBatchEntry) error {
	if strings.TrimSpace(entry.UserID) == "" {
		return fmt.Errorf("%w: get_users_for_weekly_analysis returned empty user_id", ErrStoreContract)
	}
	if strings.TrimSpace(entry.CompanyID) == "" {
		return fmt.Errorf("%w: get_users_for_weekly_analysis returned empty company_id for user %s", ErrStoreContract, entry.UserID)
	}
	if entry.CompanyUserCount < 0 {
		return fmt.Errorf("%w: get_users_for_weekly_analysis returned negative company_user_count for user %s", ErrStoreContract, entry.UserID)
	}
	return nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullString(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

// themesParam renders themes as a Postgres text[] literal. An empty list is an
// empty array, never NULL.
func themesParam(themes []string) string {
	if len(themes) == 0 {
		return "{}"
	}
	quoted := make([]string, 0, len(themes))
	for _, t := range themes {
		escaped := strings.ReplaceAll(t, `\`, `\\`)
		escaped = strings.ReplaceAll(escaped, `"`, `\"`)
		quoted = append(quoted, `"`+escaped+`"`)
	}
	return "{" + strings.Join(quoted, ",") + "}"
}

var _ Gateway = (*PGGateway)(nil)
