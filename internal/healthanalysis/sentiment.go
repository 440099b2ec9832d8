package healthanalysis

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"feedback-backend/internal/llm"
	"feedback-backend/internal/store"
)

const sentimentMaxTokens = 10

// SentimentAnalyzer derives an aggregate sentiment in [-1, 1] for a set of
// feedback items, preferring the completion service and degrading to a
// rating-based heuristic.
type SentimentAnalyzer struct {
	Completer llm.Completer
}

// Analyze returns the sentiment for the items, or nil when nothing can be
// derived. The returned Source names the path that produced the value.
func (a *SentimentAnalyzer) Analyze(ctx context.Context, items []store.FeedbackItem) (*float64, Source) {
	if len(items) == 0 {
		return nil, SourceEmpty
	}

	corpus := buildCorpus(items)
	if corpus == "" {
		return basicSentiment(items), SourceFallback
	}

	if a.Completer != nil {
		prompt := fmt.Sprintf(
			"Analyze the overall sentiment of the following workplace feedback. "+
				"Respond with a single number between -1 (very negative) and 1 (very positive). "+
				"Respond with the number only.\n\nFeedback:\n%s", corpus)
		reply, err := a.Completer.Complete(ctx, prompt, sentimentMaxTokens)
		if err == nil {
			if value, ok := parseSentiment(reply); ok {
				rounded := round2(value)
				return &rounded, SourceModel
			}
		}
	}
	return basicSentiment(items), SourceFallback
}

// basicSentiment maps ratings 1-2 to -0.5, 3 to 0 and 4-5 to +0.5 and averages
// across items carrying a rating. No ratings at all yields nil.
func basicSentiment(items []store.FeedbackItem) *float64 {
	var sum float64
	var counted int
	for _, item := range items {
		if item.RatingValue == nil {
			continue
		}
		switch {
		case *item.RatingValue <= 2:
			sum -= 0.5
		case *item.RatingValue >= 4:
			sum += 0.5
		}
		counted++
	}
	if counted == 0 {
		return nil
	}
	avg := round2(sum / float64(counted))
	return &avg
}

func buildCorpus(items []store.FeedbackItem) string {
	var parts []string
	for _, item := range items {
		if text := strings.TrimSpace(item.TextResponse); text != "" {
			parts = append(parts, text)
		}
		if text := strings.TrimSpace(item.CommentText); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

func parseSentiment(reply string) (float64, bool) {
	cleaned := strings.TrimSpace(stripCodeFence(reply))
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	if value < -1 || value > 1 || math.IsNaN(value) {
		return 0, false
	}
	return value, true
}

// stripCodeFence removes a Markdown code-fence wrapper, with or without a
// language tag, from a model reply.
func stripCodeFence(reply string) string {
	trimmed := strings.TrimSpace(reply)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		first := strings.TrimSpace(trimmed[:idx])
		if first != "" && !strings.ContainsAny(first, "{}[]0123456789.-") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
