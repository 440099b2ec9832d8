package healthanalysis

import (
	"context"
	"fmt"
	"strings"

	"feedback-backend/internal/llm"
	"feedback-backend/internal/store"
)

const summaryMaxTokens = 500

// SummaryGenerator produces a short prose summary of a user's weekly feedback
// in one direction, preferring the completion service and degrading to a
// templated sentence built from the counts.
type SummaryGenerator struct {
	Completer llm.Completer
}

// Generate returns a summary for the items, or nil for empty input.
func (g *SummaryGenerator) Generate(ctx context.Context, items []store.FeedbackItem, direction Direction, userName string) (*string, Source) {
	if len(items) == 0 {
		return nil, SourceEmpty
	}

	feedbackContext := buildSummaryContext(items)
	if feedbackContext == "" {
		fallback := templatedSummary(items, direction)
		return &fallback, SourceFallback
	}

	if g.Completer != nil {
		prompt := summaryPrompt(direction, userName, feedbackContext)
		reply, err := g.Completer.Complete(ctx, prompt, summaryMaxTokens)
		if err == nil {
			if trimmed := strings.TrimSpace(reply); trimmed != "" {
				return &trimmed, SourceModel
			}
		}
	}
	fallback := templatedSummary(items, direction)
	return &fallback, SourceFallback
}

func summaryPrompt(direction Direction, userName, feedbackContext string) string {
	name := strings.TrimSpace(userName)
	if name == "" {
		name = "this person"
	}
	if direction == DirectionProvided {
		return fmt.Sprintf(
			"Summarize the feedback %s provided to colleagues this week. Cover:\n"+
				"- Overall tone and sentiment of their feedback\n"+
				"- How engaged they were as a feedback giver\n"+
				"- Any potential conflicts or concerns worth flagging\n"+
				"- Recurring themes in what they commented on\n\n"+
				"Feedback given:\n%s", name, feedbackContext)
	}
	return fmt.Sprintf(
		"Summarize the feedback %s received this week. Cover:\n"+
			"- Key strengths highlighted by colleagues\n"+
			"- Areas for improvement\n"+
			"- Themes and patterns across responses\n"+
			"- Notable quotes\n"+
			"- Quantitative insights from the ratings\n"+
			"- Recommendations for next week\n\n"+
			"Feedback received:\n%s", name, feedbackContext)
}

// buildSummaryContext renders one line per item with question, rating,
// free text and sender.
func buildSummaryContext(items []store.FeedbackItem) string {
	var lines []string
	for _, item := range items {
		var parts []string
		if q := strings.TrimSpace(item.QuestionText); q != "" {
			parts = append(parts, "Q: "+q)
		}
		if item.RatingValue != nil {
			parts = append(parts, fmt.Sprintf("rating %d/5", *item.RatingValue))
		}
		if text := strings.TrimSpace(item.TextResponse); text != "" {
			parts = append(parts, text)
		}
		if text := strings.TrimSpace(item.CommentText); text != "" {
			parts = append(parts, "comment: "+text)
		}
		if sender := strings.TrimSpace(item.SenderName); sender != "" {
			parts = append(parts, "from "+sender)
		}
		if len(parts) > 0 {
			lines = append(lines, "- "+strings.Join(parts, " | "))
		}
	}
	return strings.Join(lines, "\n")
}

// templatedSummary is the deterministic fallback sentence:
// "<Received/Provided> N feedback responses [with an average rating of R/5]
// [including K detailed comments]."
func templatedSummary(items []store.FeedbackItem, direction Direction) string {
	verb := "Received"
	if direction == DirectionProvided {
		verb = "Provided"
	}

	var ratingSum, ratingCount int
	var detailed int
	for _, item := range items {
		if item.RatingValue != nil {
			ratingSum += *item.RatingValue
			ratingCount++
		}
		if item.HasText() {
			detailed++
		}
	}

	sentence := fmt.Sprintf("%s %d feedback responses", verb, len(items))
	if ratingCount > 0 {
		avg := float64(ratingSum) / float64(ratingCount)
		sentence += fmt.Sprintf(" with an average rating of %.1f/5", avg)
	}
	if detailed > 0 {
		sentence += fmt.Sprintf(" including %d detailed comments", detailed)
	}
	return sentence + "."
}
