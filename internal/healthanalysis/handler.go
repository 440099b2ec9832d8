package healthanalysis

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"

	"feedback-backend/internal/shared/server/respond"
)

// Handler exposes the pipeline trigger endpoint.
type Handler struct {
	Coordinator *BatchCoordinator
}

// NewHandler constructs a Handler.
func NewHandler(coordinator *BatchCoordinator) *Handler {
	return &Handler{Coordinator: coordinator}
}

// RegisterRoutes registers the trigger endpoint on the given group. Every
// method triggers a run; only a POST body can carry the week override.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.Any("/health-analysis/run", h.Run)
}

type runRequest struct {
	WeekStartDate string `json:"week_start_date"`
}

type runResponse struct {
	Success              bool    `json:"success"`
	WeekStartDate        string  `json:"week_start_date"`
	TotalProcessed       int     `json:"total_processed"`
	TotalErrors          int     `json:"total_errors"`
	BatchesProcessed     int     `json:"batches_processed"`
	ExecutionTimeSeconds float64 `json:"execution_time_seconds"`
}

type runFailure struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Error   string `json:"error"`
	Stack   string `json:"stack,omitempty"`
}

// Run triggers a batch run. The body may carry a week_start_date override;
// any unparseable or absent body falls back to the store-computed current
// week. The run executes synchronously and the caller sees only aggregate
// counts; per-user failures are visible as failed analysis records.
func (h *Handler) Run(c *gin.Context) {
	weekStart := parseWeekOverride(c)
	if weekStart != nil {
		c.Set("weekStartDate", weekStart.Format("2006-01-02"))
	}

	report, err := h.Coordinator.Run(c.Request.Context(), weekStart)
	if err != nil {
		if errors.Is(err, ErrRunInProgress) {
			respond.JSON(c, http.StatusConflict, runFailure{
				Success: false,
				Code:    ErrorCodeRunConflict,
				Error:   err.Error(),
			})
			return
		}
		respond.JSON(c, http.StatusInternalServerError, runFailure{
			Success: false,
			Code:    ErrorCodeInternal,
			Error:   err.Error(),
			Stack:   string(debug.Stack()),
		})
		return
	}

	respond.OK(c, runResponse{
		Success:              true,
		WeekStartDate:        report.WeekStartDate.Format("2006-01-02"),
		TotalProcessed:       report.TotalProcessed,
		TotalErrors:          report.TotalErrors,
		BatchesProcessed:     report.BatchesProcessed,
		ExecutionTimeSeconds: report.Elapsed.Seconds(),
	})
}

// parseWeekOverride reads an optional {"week_start_date":"YYYY-MM-DD"} body.
// Non-POST requests, malformed bodies and bad dates are ignored rather than
// rejected; the run then targets the store-computed current week.
func parseWeekOverride(c *gin.Context) *time.Time {
	if c.Request.Method != http.MethodPost || c.Request.Body == nil {
		return nil
	}
	var req runRequest
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		return nil
	}
	if req.WeekStartDate == "" {
		return nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", req.WeekStartDate, time.UTC)
	if err != nil {
		return nil
	}
	return &parsed
}
