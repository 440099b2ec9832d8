package healthanalysis

import (
	"context"
	"sync"
	"time"

	"feedback-backend/internal/store"
)

// stubCompleter returns a canned reply or error and records calls. Safe for
// concurrent use so coordinator tests can share one instance.
type stubCompleter struct {
	mu         sync.Mutex
	reply      string
	err        error
	calls      int
	lastPrompt string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastPrompt = prompt
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func (s *stubCompleter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var testWeek = time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)

func ratingItem(questionType string, rating int, createdAt time.Time) store.FeedbackItem {
	return store.FeedbackItem{
		QuestionType: questionType,
		RatingValue:  &rating,
		CreatedAt:    createdAt,
	}
}

func textItem(questionType, text string, createdAt time.Time) store.FeedbackItem {
	return store.FeedbackItem{
		QuestionType: questionType,
		TextResponse: text,
		CreatedAt:    createdAt,
	}
}

func valuesItem(valueName, nominatedUserID string, createdAt time.Time) store.FeedbackItem {
	item := store.FeedbackItem{
		QuestionType:     store.QuestionTypeValues,
		CompanyValueName: valueName,
		CreatedAt:        createdAt,
	}
	if nominatedUserID != "" {
		item.NominatedUserID = &nominatedUserID
	}
	return item
}

func newTestProcessor(gateway store.Gateway, completer *stubCompleter) *UserProcessor {
	return &UserProcessor{
		Store:     gateway,
		Sentiment: &SentimentAnalyzer{Completer: completer},
		Summaries: &SummaryGenerator{Completer: completer},
		Themes:    &ThemeExtractor{Completer: completer},
		Scores:    &HealthScoreCalculator{HistoryWeeks: 4},
	}
}
