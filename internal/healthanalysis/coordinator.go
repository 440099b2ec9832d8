package healthanalysis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"feedback-backend/internal/shared/config"
	"feedback-backend/internal/shared/metrics"
	"feedback-backend/internal/shared/telemetry"
	"feedback-backend/internal/store"
)

// BatchCoordinator paginates the user population for a week and fans out one
// UserProcessor task per row, isolating per-user failures and enforcing the
// batch safety cap.
type BatchCoordinator struct {
	Store     store.Gateway
	Processor *UserProcessor
	Lease     Lease
	Config    config.AnalysisConfig
}

// Run executes the pipeline for the given week, or the store-computed current
// week when weekStart is nil. It returns a fatal error only when the week
// cannot be resolved, the lease is taken, or a page fetch fails; per-user
// failures are counted in the report instead.
func (c *BatchCoordinator) Run(ctx context.Context, weekStart *time.Time) (Report, error) {
	startedAt := time.Now()
	metrics.IncRunStarted()

	week, err := c.resolveWeek(ctx, weekStart)
	if err != nil {
		metrics.IncRunFailed()
		return Report{}, err
	}

	release, err := c.acquireLease(ctx, week)
	if err != nil {
		// A lease conflict is a benign concurrent trigger, not a failed run.
		if !errors.Is(err, ErrRunInProgress) {
			metrics.IncRunFailed()
		}
		return Report{}, err
	}
	defer release()

	telemetry.Info("analysis.run.start", map[string]any{
		"week_start_date": week.Format("2006-01-02"),
		"batch_size":      c.Config.BatchSize,
		"max_batches":     c.Config.MaxBatches,
	})

	report := Report{WeekStartDate: week}
	offset := 0
	for batch := 0; batch < c.Config.MaxBatches; batch++ {
		page, err := c.Store.UsersForWeeklyAnalysis(ctx, c.Config.BatchSize, offset, week)
		if err != nil {
			// The offset iteration cannot safely continue past a fetch
			// failure, so any page error is fatal.
			metrics.IncRunFailed()
			report.Elapsed = time.Since(startedAt)
			return report, fmt.Errorf("fetch user batch at offset %d: %w", offset, err)
		}
		if len(page) == 0 {
			break
		}

		processed, failed := c.processPage(ctx, page, week)
		report.TotalProcessed += processed
		report.TotalErrors += failed
		report.BatchesProcessed++
		metrics.AddUsersProcessed(uint64(processed))
		metrics.AddUsersFailed(uint64(failed))

		telemetry.Info("analysis.batch.complete", map[string]any{
			"week_start_date": week.Format("2006-01-02"),
			"batch":           report.BatchesProcessed,
			"page_size":       len(page),
			"processed":       processed,
			"failed":          failed,
		})

		offset += c.Config.BatchSize
		if err := sleepCtx(ctx, c.Config.InterBatchDelay); err != nil {
			metrics.IncRunFailed()
			report.Elapsed = time.Since(startedAt)
			return report, err
		}
	}

	report.Elapsed = time.Since(startedAt)
	metrics.IncRunCompleted()
	metrics.ObserveRunDurationSeconds(report.Elapsed.Seconds())
	telemetry.Info("analysis.run.complete", map[string]any{
		"week_start_date":   week.Format("2006-01-02"),
		"total_processed":   report.TotalProcessed,
		"total_errors":      report.TotalErrors,
		"batches_processed": report.BatchesProcessed,
		"elapsed_seconds":   report.Elapsed.Seconds(),
	})
	return report, nil
}

// processPage runs all users of one page concurrently and waits for every
// task to settle. Worker closures always return nil so one user's failure
// never cancels siblings; per-user outcomes land in the results slice.
func (c *BatchCoordinator) processPage(ctx context.Context, page []store.UserBatchEntry, week time.Time) (processed, failed int) {
	results := make([]error, len(page))

	var g errgroup.Group
	if c.Config.Concurrency > 0 {
		g.SetLimit(c.Config.Concurrency)
	}
	for i, user := range page {
		i, user := i, user
		g.Go(func() error {
			results[i] = c.processUser(ctx, user, week)
			return nil
		})
	}
	_ = g.Wait()

	for i, err := range results {
		if err == nil {
			processed++
			continue
		}
		failed++
		telemetry.Error("analysis.user.failed", map[string]any{
			"user_id":         page[i].UserID,
			"week_start_date": week.Format("2006-01-02"),
			"error":           err.Error(),
		})
	}
	return processed, failed
}

// processUser converts a worker panic into a per-user error so a single bad
// row cannot take down the run.
func (c *BatchCoordinator) processUser(ctx context.Context, user store.UserBatchEntry, week time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return c.Processor.Process(ctx, user, week)
}

func (c *BatchCoordinator) resolveWeek(ctx context.Context, weekStart *time.Time) (time.Time, error) {
	if weekStart != nil {
		return weekStart.UTC().Truncate(24 * time.Hour), nil
	}
	week, err := c.Store.CurrentWeekStart(ctx)
	if err != nil {
		return time.Time{}, fmt.Errorf("resolve current week start: %w", err)
	}
	return week, nil
}

func (c *BatchCoordinator) acquireLease(ctx context.Context, week time.Time) (func(), error) {
	if c.Lease == nil {
		return func() {}, nil
	}
	return c.Lease.Acquire(ctx, week)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
