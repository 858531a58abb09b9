package dto

// CreateBatchRequest creates one batch of same-marketplace, same-action jobs.
// Priority is optional; the action type's default applies when omitted.
type CreateBatchRequest struct {
	Marketplace string   `json:"marketplace" binding:"required"`
	ActionCode  string   `json:"action_code" binding:"required"`
	TargetIDs   []string `json:"target_ids" binding:"required,min=1"`
	Priority    int      `json:"priority" binding:"omitempty,min=1,max=4"`
	CreatedBy   string   `json:"created_by" binding:"required"`
}

// CreateJobRequest creates one standalone job for a single target.
type CreateJobRequest struct {
	Marketplace string `json:"marketplace" binding:"required"`
	ActionCode  string `json:"action_code" binding:"required"`
	TargetID    string `json:"target_id" binding:"required"`
	Priority    int    `json:"priority" binding:"omitempty,min=1,max=4"`
	CreatedBy   string `json:"created_by" binding:"required"`
}

// ListBatchesRequest filters and paginates the batch list.
type ListBatchesRequest struct {
	Marketplace string `form:"marketplace"`
	ActionCode  string `form:"action_code"`
	Status      string `form:"status"`
	CreatedBy   string `form:"created_by"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}

// ListBatchJobsRequest filters and paginates a batch's jobs.
type ListBatchJobsRequest struct {
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// BatchDTO is the API rendering of a batch.
type BatchDTO struct {
	BatchID         string  `json:"batch_id"`
	Code            string  `json:"code"`
	Marketplace     string  `json:"marketplace"`
	ActionCode      string  `json:"action_code"`
	Status          string  `json:"status"`
	Priority        int     `json:"priority"`
	TotalCount      int     `json:"total_count"`
	CompletedCount  int     `json:"completed_count"`
	FailedCount     int     `json:"failed_count"`
	CancelledCount  int     `json:"cancelled_count"`
	PendingCount    int     `json:"pending_count"`
	ProgressPercent float64 `json:"progress_percent"`
	CreatedBy       string  `json:"created_by"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at"`
}

// JobDTO is the API rendering of a job.
type JobDTO struct {
	JobID        string `json:"job_id"`
	BatchID      string `json:"batch_id,omitempty"`
	Marketplace  string `json:"marketplace"`
	ActionCode   string `json:"action_code"`
	TargetID     string `json:"target_id"`
	Status       string `json:"status"`
	Priority     int    `json:"priority"`
	RetryCount   int    `json:"retry_count"`
	MaxRetries   int    `json:"max_retries"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
	StartedAt    string `json:"started_at,omitempty"`
	CompletedAt  string `json:"completed_at,omitempty"`
}

// ListBatchesResponse is a page of batches.
type ListBatchesResponse struct {
	Batches    []BatchDTO `json:"batches"`
	NextCursor string     `json:"next_cursor,omitempty"`
}

// ListJobsResponse is a page of jobs.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}
