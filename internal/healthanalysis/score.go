package healthanalysis

import (
	"math"

	"feedback-backend/internal/store"
)

// Fixed weights for the composite health score. They sum to 1.
const (
	weightVolumeReceived      = 0.20
	weightVolumeProvided      = 0.15
	weightSentimentReceived   = 0.20
	weightSentimentProvided   = 0.10
	weightConsistencyReceived = 0.15
	weightConsistencyProvided = 0.10
	weightCompanyValues       = 0.10
)

// sentimentMidpoint is the score assigned when no sentiment could be derived.
// Absence of signal is treated as neutral, not as negative.
const sentimentMidpoint = 50.0

// valuesPerNomination is the score granted per company-value nomination,
// saturating at 100.
const valuesPerNomination = 25.0

// defaultHistoryWeeks is the consistency lookback window, current week included.
const defaultHistoryWeeks = 4

// HealthScoreCalculator folds weekly analysis results into the seven bounded
// sub-scores and their fixed-weight composite. Every sub-score is monotonic
// in its input, clamped to [0, 100], and total for zero input.
type HealthScoreCalculator struct {
	// HistoryWeeks is the consistency window size; <= 0 means the default of 4.
	HistoryWeeks int
}

// Compute derives the full score row for one (user, week). history holds
// activity for the weeks before the target week, newest first.
func (c *HealthScoreCalculator) Compute(user store.UserBatchEntry, results store.AnalysisResults, history []store.WeeklyActivity) store.HealthScores {
	weeks := c.HistoryWeeks
	if weeks <= 0 {
		weeks = defaultHistoryWeeks
	}

	scores := store.HealthScores{
		VolumeReceived:      volumeScore(results.ReceivedCount, user.CompanyUserCount),
		VolumeProvided:      volumeScore(results.ProvidedCount, user.CompanyUserCount),
		SentimentReceived:   sentimentScore(results.ReceivedSentiment),
		SentimentProvided:   sentimentScore(results.ProvidedSentiment),
		ConsistencyReceived: consistencyScore(results.ReceivedCount, history, DirectionReceived, weeks),
		ConsistencyProvided: consistencyScore(results.ProvidedCount, history, DirectionProvided, weeks),
		CompanyValues:       valuesScore(results.CompanyValuesCount),
	}
	scores.Overall = clampScore(round2(
		scores.VolumeReceived*weightVolumeReceived +
			scores.VolumeProvided*weightVolumeProvided +
			scores.SentimentReceived*weightSentimentReceived +
			scores.SentimentProvided*weightSentimentProvided +
			scores.ConsistencyReceived*weightConsistencyReceived +
			scores.ConsistencyProvided*weightConsistencyProvided +
			scores.CompanyValues*weightCompanyValues))
	return scores
}

// volumeScore saturates at an expected-items target derived from company
// size: 3 items for the smallest companies, one more per 15 members, capped
// at 10. Smaller companies therefore reach full score with fewer items.
func volumeScore(count, companyUserCount int) float64 {
	if count <= 0 {
		return 0
	}
	target := 3 + companyUserCount/15
	if target > 10 {
		target = 10
	}
	return clampScore(round2(100 * float64(count) / float64(target)))
}

// sentimentScore remaps sentiment from [-1, 1] to [0, 100]; nil maps to the
// documented midpoint of 50.
func sentimentScore(sentiment *float64) float64 {
	if sentiment == nil {
		return sentimentMidpoint
	}
	return clampScore(round2((*sentiment + 1) / 2 * 100))
}

// consistencyScore is the fraction of the last `weeks` weeks (current week
// included) with at least one item in the direction, scaled to [0, 100].
func consistencyScore(currentCount int, history []store.WeeklyActivity, direction Direction, weeks int) float64 {
	active := 0
	if currentCount > 0 {
		active++
	}
	prior := history
	if len(prior) > weeks-1 {
		prior = prior[:weeks-1]
	}
	for _, week := range prior {
		count := week.ReceivedCount
		if direction == DirectionProvided {
			count = week.ProvidedCount
		}
		if count > 0 {
			active++
		}
	}
	return clampScore(round2(100 * float64(active) / float64(weeks)))
}

// valuesScore grants 25 points per company-value nomination, saturating at 100.
func valuesScore(count int) float64 {
	if count <= 0 {
		return 0
	}
	return clampScore(float64(count) * valuesPerNomination)
}

func clampScore(value float64) float64 {
	if math.IsNaN(value) || value < 0 {
		return 0
	}
	if value > 100 {
		return 100
	}
	return value
}
