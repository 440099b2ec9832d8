package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

var pgTestWeek = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func newMockGateway(t *testing.T) (*PGGateway, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGGateway{DB: db}, mock
}

func TestPGCurrentWeekStart(t *testing.T) {
	gateway, mock := newMockGateway(t)

	mock.ExpectQuery("get_current_week_start").
		WillReturnRows(sqlmock.NewRows([]string{"get_current_week_start"}).AddRow(pgTestWeek))

	week, err := gateway.CurrentWeekStart(context.Background())
	if err != nil {
		t.Fatalf("CurrentWeekStart: %v", err)
	}
	if !week.Equal(pgTestWeek) {
		t.Fatalf("expected %v, got %v", pgTestWeek, week)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGCurrentWeekStartNullIsContractError(t *testing.T) {
	gateway, mock := newMockGateway(t)

	mock.ExpectQuery("get_current_week_start").
		WillReturnRows(sqlmock.NewRows([]string{"get_current_week_start"}).AddRow(nil))

	if _, err := gateway.CurrentWeekStart(context.Background()); !errors.Is(err, ErrStoreContract) {
		t.Fatalf("expected ErrStoreContract, got %v", err)
	}
}

func TestPGUsersForWeeklyAnalysis(t *testing.T) {
	gateway, mock := newMockGateway(t)

	rows := sqlmock.NewRows([]string{"user_id", "company_id", "user_name", "user_email", "company_user_count"}).
		AddRow("user-1", "company-1", "Ada", "ada@example.com", 42).
		AddRow("user-2", "company-1", nil, nil, 42)
	mock.ExpectQuery("get_users_for_weekly_analysis").
		WithArgs(75, 150, pgTestWeek).
		WillReturnRows(rows)

	out, err := gateway.UsersForWeeklyAnalysis(context.Background(), 75, 150, pgTestWeek)
	if err != nil {
		t.Fatalf("UsersForWeeklyAnalysis: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(out))
	}
	if out[0].UserName != "Ada" || out[0].CompanyUserCount != 42 {
		t.Fatalf("unexpected first entry: %+v", out[0])
	}
	if out[1].UserName != "" {
		t.Fatalf("expected NULL name to scan empty, got %q", out[1].UserName)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGUsersForWeeklyAnalysisEmptyUserIDIsContractError(t *testing.T) {
	gateway, mock := newMockGateway(t)

	rows := sqlmock.NewRows([]string{"user_id", "company_id", "user_name", "user_email", "company_user_count"}).
		AddRow("  ", "company-1", "Ada", "ada@example.com", 42)
	mock.ExpectQuery("get_users_for_weekly_analysis").WillReturnRows(rows)

	if _, err := gateway.UsersForWeeklyAnalysis(context.Background(), 75, 0, pgTestWeek); !errors.Is(err, ErrStoreContract) {
		t.Fatalf("expected ErrStoreContract, got %v", err)
	}
}

func TestPGUserFeedbackReceived(t *testing.T) {
	gateway, mock := newMockGateway(t)
	createdAt := pgTestWeek.Add(48 * time.Hour)

	rows := sqlmock.NewRows([]string{
		"question_type", "question_text", "rating_value", "text_response", "comment_text",
		"nominated_user_id", "company_value_name", "sender_name", "created_at",
	}).
		AddRow("rating", "How was the week?", 4, nil, "solid work", nil, nil, "Grace", createdAt).
		AddRow("values", nil, nil, nil, nil, "user-9", "Integrity", nil, createdAt)
	mock.ExpectQuery("get_user_feedback_summary").
		WithArgs("user-1", pgTestWeek).
		WillReturnRows(rows)

	items, err := gateway.UserFeedbackReceived(context.Background(), "user-1", pgTestWeek)
	if err != nil {
		t.Fatalf("UserFeedbackReceived: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].RatingValue == nil || *items[0].RatingValue != 4 {
		t.Fatalf("expected rating 4, got %+v", items[0].RatingValue)
	}
	if items[1].NominatedUserID == nil || *items[1].NominatedUserID != "user-9" {
		t.Fatalf("expected nomination user-9, got %+v", items[1].NominatedUserID)
	}
	if items[1].RatingValue != nil {
		t.Fatal("expected NULL rating to stay nil")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGUserFeedbackReceivedRatingOutOfRange(t *testing.T) {
	gateway, mock := newMockGateway(t)

	rows := sqlmock.NewRows([]string{
		"question_type", "question_text", "rating_value", "text_response", "comment_text",
		"nominated_user_id", "company_value_name", "sender_name", "created_at",
	}).AddRow("rating", nil, 9, nil, nil, nil, nil, nil, pgTestWeek)
	mock.ExpectQuery("get_user_feedback_summary").WillReturnRows(rows)

	if _, err := gateway.UserFeedbackReceived(context.Background(), "user-1", pgTestWeek); !errors.Is(err, ErrStoreContract) {
		t.Fatalf("expected ErrStoreContract, got %v", err)
	}
}

func TestPGUpsertAnalysisRecord(t *testing.T) {
	gateway, mock := newMockGateway(t)

	mock.ExpectQuery("upsert_weekly_analysis_record").
		WithArgs("user-1", "company-1", pgTestWeek, "processing").
		WillReturnRows(sqlmock.NewRows([]string{"upsert_weekly_analysis_record"}).AddRow("record-1"))

	id, err := gateway.UpsertAnalysisRecord(context.Background(), "user-1", "company-1", pgTestWeek, "processing")
	if err != nil {
		t.Fatalf("UpsertAnalysisRecord: %v", err)
	}
	if id != "record-1" {
		t.Fatalf("expected record-1, got %q", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGUpsertAnalysisRecordEmptyIDIsContractError(t *testing.T) {
	gateway, mock := newMockGateway(t)

	mock.ExpectQuery("upsert_weekly_analysis_record").
		WillReturnRows(sqlmock.NewRows([]string{"upsert_weekly_analysis_record"}).AddRow(""))

	if _, err := gateway.UpsertAnalysisRecord(context.Background(), "user-1", "company-1", pgTestWeek, "processing"); !errors.Is(err, ErrStoreContract) {
		t.Fatalf("expected ErrStoreContract, got %v", err)
	}
}

func TestPGUpdateAnalysisResults(t *testing.T) {
	gateway, mock := newMockGateway(t)

	sentiment := 0.5
	summary := "Received 3 feedback responses."
	results := AnalysisResults{
		ReceivedCount:      3,
		ReceivedSentiment:  &sentiment,
		ReceivedSummary:    &summary,
		ReceivedThemes:     []string{"rating", `said "great"`},
		ProvidedCount:      0,
		CompanyValuesCount: 1,
	}

	mock.ExpectExec("update_analysis_results").
		WithArgs(
			"record-1",
			3,
			sentiment,
			summary,
			`{"rating","said \"great\""}`,
			0,
			nil, // provided_sentiment
			nil, // provided_summary
			"{}",
			1,
			"completed",
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := gateway.UpdateAnalysisResults(context.Background(), "record-1", results, "completed"); err != nil {
		t.Fatalf("UpdateAnalysisResults: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGWeeklyActivityHistory(t *testing.T) {
	gateway, mock := newMockGateway(t)

	rows := sqlmock.NewRows([]string{"week_start_date", "received_count", "provided_count"}).
		AddRow(pgTestWeek.AddDate(0, 0, -7), 2, 1).
		AddRow(pgTestWeek.AddDate(0, 0, -14), 0, 3)
	mock.ExpectQuery("get_user_weekly_activity").
		WithArgs("user-1", pgTestWeek, 3).
		WillReturnRows(rows)

	history, err := gateway.WeeklyActivityHistory(context.Background(), "user-1", pgTestWeek, 3)
	if err != nil {
		t.Fatalf("WeeklyActivityHistory: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(history))
	}
	if history[0].ReceivedCount != 2 || history[1].ProvidedCount != 3 {
		t.Fatalf("unexpected history: %+v", history)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGUpsertHealthScores(t *testing.T) {
	gateway, mock := newMockGateway(t)

	scores := HealthScores{
		VolumeReceived:      100,
		VolumeProvided:      50,
		SentimentReceived:   75,
		SentimentProvided:   50,
		ConsistencyReceived: 25,
		ConsistencyProvided: 25,
		CompanyValues:       50,
		Overall:             61.25,
	}

	mock.ExpectExec("upsert_health_scores").
		WithArgs("user-1", pgTestWeek,
			scores.VolumeReceived, scores.VolumeProvided,
			scores.SentimentReceived, scores.SentimentProvided,
			scores.ConsistencyReceived, scores.ConsistencyProvided,
			scores.CompanyValues, scores.Overall,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := gateway.UpsertHealthScores(context.Background(), "user-1", pgTestWeek, scores); err != nil {
		t.Fatalf("UpsertHealthScores: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGThemesParam(t *testing.T) {
	if got := themesParam(nil); got != "{}" {
		t.Fatalf("expected empty array literal, got %q", got)
	}
	if got := themesParam([]string{"a", `b "c"`}); got != `{"a","b \"c\""}` {
		t.Fatalf("unexpected literal: %q", got)
	}
}
