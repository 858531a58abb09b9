package domain

import "errors"

var (
	// ErrBatchNotFound is returned when a batch cannot be found in the database
	ErrBatchNotFound = errors.New("batch not found")

	// ErrJobNotFound is returned when a job cannot be found in the database
	ErrJobNotFound = errors.New("job not found")

	// ErrActionTypeNotFound is returned when no action type exists for a
	// (marketplace, action_code) pair
	ErrActionTypeNotFound = errors.New("action type not found")

	// ErrUnknownAction is returned when no handler is registered for a
	// (marketplace, action_code) pair
	ErrUnknownAction = errors.New("unknown action")

	// ErrJobAlreadyClaimed is returned when a conditional claim finds the job
	// no longer PENDING. Losing a claim race is benign: the worker skips the
	// job, it is not an error surface.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in PENDING status")

	// ErrInvalidStateTransition is returned when a status change is attempted
	// from a state that does not allow it
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrNegativePendingCount signals a batch counts invariant violation.
	// Never coerced; callers must log loudly and refuse the write.
	ErrNegativePendingCount = errors.New("batch pending count is negative")
)

// RetryableError wraps transient errors that should trigger another attempt
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err opted in to retry via RetryableError.
func IsRetryable(err error) bool {
	var retryable *RetryableError
	return errors.As(err, &retryable)
}
