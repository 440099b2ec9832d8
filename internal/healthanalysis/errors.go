package healthanalysis

import "errors"

var (
	// ErrRunInProgress means another run for the same week holds the lease.
	ErrRunInProgress = errors.New("analysis run already in progress for this week")
)

// Error codes carried in failure payloads.
const (
	ErrorCodeRunConflict = "RUN_CONFLICT"
	ErrorCodeInternal    = "INTERNAL_ERROR"
)
