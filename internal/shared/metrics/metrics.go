package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	runStartedTotal   atomic.Uint64
	runCompletedTotal atomic.Uint64
	runFailedTotal    atomic.Uint64

	userProcessedTotal atomic.Uint64
	userFailedTotal    atomic.Uint64

	completionFallbackTotal atomic.Uint64

	runDuration = newHistogram([]float64{1, 5, 15, 30, 60, 120, 300, 600, 1800})
)

// IncRunStarted increments the batch-run started counter.
func IncRunStarted() {
	runStartedTotal.Add(1)
}

// IncRunCompleted increments the batch-run completed counter.
func IncRunCompleted() {
	runCompletedTotal.Add(1)
}

// IncRunFailed increments the batch-run fatal-failure counter.
func IncRunFailed() {
	runFailedTotal.Add(1)
}

// AddUsersProcessed adds successfully processed users to the running counter.
func AddUsersProcessed(n uint64) {
	userProcessedTotal.Add(n)
}

// AddUsersFailed adds failed users to the running counter.
func AddUsersFailed(n uint64) {
	userFailedTotal.Add(n)
}

// IncCompletionFallback counts an AI completion call that degraded to its
// deterministic fallback.
func IncCompletionFallback() {
	completionFallbackTotal.Add(1)
}

// ObserveRunDurationSeconds records a batch-run duration in seconds.
func ObserveRunDurationSeconds(value float64) {
	if value < 0 {
		value = 0
	}
	runDuration.Observe(value)
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "health_analysis_runs_started_total", "Total batch runs started", runStartedTotal.Load())
	writeCounter(&buf, "health_analysis_runs_completed_total", "Total batch runs completed", runCompletedTotal.Load())
	writeCounter(&buf, "health_analysis_runs_failed_total", "Total batch runs aborted fatally", runFailedTotal.Load())
	writeCounter(&buf, "health_analysis_users_processed_total", "Total users processed successfully", userProcessedTotal.Load())
	writeCounter(&buf, "health_analysis_users_failed_total", "Total users that failed processing", userFailedTotal.Load())
	writeCounter(&buf, "health_analysis_completion_fallbacks_total", "Total AI calls degraded to deterministic fallback", completionFallbackTotal.Load())
	writeHistogram(&buf, "health_analysis_run_duration_seconds", "Batch run duration in seconds", runDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			break
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}
