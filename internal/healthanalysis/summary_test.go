package healthanalysis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"feedback-backend/internal/store"
)

func TestSummaryEmptyInput(t *testing.T) {
	gen := &SummaryGenerator{Completer: &stubCompleter{reply: "a summary"}}
	summary, source := gen.Generate(context.Background(), nil, DirectionReceived, "Ada")
	if summary != nil {
		t.Fatalf("expected nil summary, got %q", *summary)
	}
	if source != SourceEmpty {
		t.Fatalf("expected SourceEmpty, got %v", source)
	}
}

func TestSummaryModelReply(t *testing.T) {
	completer := &stubCompleter{reply: "  Ada had a strong week.  "}
	gen := &SummaryGenerator{Completer: completer}
	items := []store.FeedbackItem{textItem("text", "great pairing sessions", testWeek)}

	summary, source := gen.Generate(context.Background(), items, DirectionReceived, "Ada")
	if source != SourceModel {
		t.Fatalf("expected SourceModel, got %v", source)
	}
	if summary == nil || *summary != "Ada had a strong week." {
		t.Fatalf("unexpected summary: %v", summary)
	}
	if !strings.Contains(completer.lastPrompt, "Ada") {
		t.Fatalf("expected prompt to carry the user name, got %q", completer.lastPrompt)
	}
	if !strings.Contains(completer.lastPrompt, "strengths") {
		t.Fatalf("expected received-direction template, got %q", completer.lastPrompt)
	}
}

func TestSummaryProvidedTemplate(t *testing.T) {
	completer := &stubCompleter{reply: "fine"}
	gen := &SummaryGenerator{Completer: completer}
	items := []store.FeedbackItem{textItem("text", "be more concise", testWeek)}

	if _, source := gen.Generate(context.Background(), items, DirectionProvided, "Ada"); source != SourceModel {
		t.Fatalf("expected SourceModel, got %v", source)
	}
	if !strings.Contains(completer.lastPrompt, "tone") {
		t.Fatalf("expected provided-direction template, got %q", completer.lastPrompt)
	}
}

func TestSummaryFallbackSentence(t *testing.T) {
	gen := &SummaryGenerator{Completer: &stubCompleter{err: errors.New("timeout")}}
	items := []store.FeedbackItem{
		ratingItem("rating", 4, testWeek),
		ratingItem("rating", 5, testWeek),
		textItem("text", "detailed note", testWeek),
	}

	summary, source := gen.Generate(context.Background(), items, DirectionReceived, "Ada")
	if source != SourceFallback {
		t.Fatalf("expected SourceFallback, got %v", source)
	}
	want := "Received 3 feedback responses with an average rating of 4.5/5 including 1 detailed comments."
	if summary == nil || *summary != want {
		t.Fatalf("expected %q, got %v", want, summary)
	}
}

func TestSummaryFallbackWithoutRatings(t *testing.T) {
	gen := &SummaryGenerator{Completer: &stubCompleter{err: errors.New("timeout")}}
	items := []store.FeedbackItem{
		{QuestionType: "rating", CreatedAt: testWeek},
		{QuestionType: "rating", CreatedAt: testWeek},
	}

	summary, source := gen.Generate(context.Background(), items, DirectionProvided, "Ada")
	if source != SourceFallback {
		t.Fatalf("expected SourceFallback, got %v", source)
	}
	want := "Provided 2 feedback responses."
	if summary == nil || *summary != want {
		t.Fatalf("expected %q, got %v", want, summary)
	}
}
