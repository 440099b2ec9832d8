package healthanalysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"feedback-backend/internal/llm"
	"feedback-backend/internal/store"
)

const (
	themesMaxTokens = 120
	maxThemes       = 5
)

// ThemeExtractor derives up to five short theme labels for a set of feedback
// items, preferring the completion service and degrading to the distinct
// question types present in the raw items.
type ThemeExtractor struct {
	Completer llm.Completer
}

// Extract returns themes for the feedback. When a summary is available it is
// used as the prompt body, since it is cheaper and more focused than the raw
// item list. The result is never nil.
func (e *ThemeExtractor) Extract(ctx context.Context, summary string, items []store.FeedbackItem) ([]string, Source) {
	body := strings.TrimSpace(summary)
	if body == "" {
		body = itemDigest(items)
	}
	if body == "" {
		return []string{}, SourceEmpty
	}

	if e.Completer != nil {
		prompt := fmt.Sprintf(
			"Identify the 3-5 main themes in the following workplace feedback. "+
				"Respond with a JSON array of short theme strings and nothing else.\n\n%s", body)
		reply, err := e.Completer.Complete(ctx, prompt, themesMaxTokens)
		if err == nil {
			if themes, ok := parseThemes(reply); ok {
				return themes, SourceModel
			}
		}
	}
	return fallbackThemes(items), SourceFallback
}

func parseThemes(reply string) ([]string, bool) {
	cleaned := stripCodeFence(reply)
	var raw []any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, false
	}
	themes := make([]string, 0, len(raw))
	for _, entry := range raw {
		s, ok := entry.(string)
		if !ok {
			return nil, false
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			themes = append(themes, trimmed)
		}
	}
	// An empty array is a non-answer, not a valid theme set.
	if len(themes) == 0 {
		return nil, false
	}
	if len(themes) > maxThemes {
		themes = themes[:maxThemes]
	}
	return themes, true
}

// fallbackThemes collects the distinct question types, plus one
// "company_value:<name>" label per nominated value, in first-seen order.
func fallbackThemes(items []store.FeedbackItem) []string {
	themes := make([]string, 0, maxThemes)
	seen := make(map[string]struct{})
	add := func(label string) {
		if label == "" || len(themes) >= maxThemes {
			return
		}
		if _, dup := seen[label]; dup {
			return
		}
		seen[label] = struct{}{}
		themes = append(themes, label)
	}
	for _, item := range items {
		add(item.QuestionType)
		if item.QuestionType == store.QuestionTypeValues && item.CompanyValueName != "" {
			add("company_value:" + item.CompanyValueName)
		}
	}
	return themes
}

func itemDigest(items []store.FeedbackItem) string {
	var lines []string
	for _, item := range items {
		var parts []string
		if item.QuestionType != "" {
			parts = append(parts, item.QuestionType)
		}
		if text := strings.TrimSpace(item.TextResponse); text != "" {
			parts = append(parts, text)
		}
		if text := strings.TrimSpace(item.CommentText); text != "" {
			parts = append(parts, text)
		}
		if len(parts) > 0 {
			lines = append(lines, "- "+strings.Join(parts, ": "))
		}
	}
	return strings.Join(lines, "\n")
}
