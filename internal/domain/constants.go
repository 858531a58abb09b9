package domain

// Job status constants
const (
	JobStatusPending   = "PENDING"
	JobStatusRunning   = "RUNNING"
	JobStatusCompleted = "COMPLETED"
	JobStatusFailed    = "FAILED"
	JobStatusCancelled = "CANCELLED"
)

// Batch status constants
const (
	BatchStatusPending         = "pending"
	BatchStatusRunning         = "running"
	BatchStatusCompleted       = "completed"
	BatchStatusFailed          = "failed"
	BatchStatusPartiallyFailed = "partially_failed"
	BatchStatusCancelled       = "cancelled"
)

// Task status constants
const (
	TaskStatusPending   = "PENDING"
	TaskStatusCompleted = "COMPLETED"
	TaskStatusFailed    = "FAILED"
)

// Priority bounds. 1 is the highest priority, 4 the lowest.
const (
	PriorityHighest = 1
	PriorityLowest  = 4
)

// DefaultMaxRetries is applied when the action type does not override it.
const DefaultMaxRetries = 3

// IsTerminalJobStatus reports whether a job status admits no further transitions.
func IsTerminalJobStatus(status string) bool {
	switch status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// IsTerminalBatchStatus reports whether a batch status admits no further transitions.
func IsTerminalBatchStatus(status string) bool {
	switch status {
	case BatchStatusCompleted, BatchStatusFailed, BatchStatusPartiallyFailed, BatchStatusCancelled:
		return true
	}
	return false
}
