package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `
	id, batch_id, marketplace, action_code, target_id, status, priority,
	retry_count, max_retries, error_message, worker_id, session_key,
	created_by, created_at, started_at, completed_at
`

// CreateJob inserts a single standalone job in PENDING state.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	return s.insertJobs(ctx, s.db, []*domain.Job{job})
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func (s *Storage) insertJobs(ctx context.Context, e execer, jobs []*domain.Job) error {
	query := `
		INSERT INTO jobs (
			id, batch_id, marketplace, action_code, target_id, status,
			priority, retry_count, max_retries, session_key, created_by, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	for _, job := range jobs {
		_, err := e.ExecContext(
			ctx,
			query,
			job.ID,
			job.BatchID,
			job.Marketplace,
			job.ActionCode,
			job.TargetID,
			job.Status,
			job.Priority,
			job.RetryCount,
			job.MaxRetries,
			job.SessionKey,
			job.CreatedBy,
			job.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create job %s: %w", job.ID, err)
		}
	}

	return nil
}

// GetJobByID retrieves a job by its ID.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	var job domain.Job
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE id = $1`

	err := s.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ClaimJob attempts the conditional PENDING -> RUNNING transition for one
// job. Exactly one of any number of racing workers succeeds; the losers get
// domain.ErrJobAlreadyClaimed, which is a skip signal, not a failure.
func (s *Storage) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    worker_id = $2,
		    started_at = NOW()
		WHERE id = $3
		  AND status = $4
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusRunning, workerID, jobID, domain.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", jobID),
		slog.String("worker_id", workerID),
		slog.String("action_code", job.ActionCode),
	)

	return &job, nil
}

// RequeueJob transitions a RUNNING job back to PENDING for another attempt,
// incrementing its retry count. The expected-status predicate guards against
// double-requeue by a racing cancellation.
func (s *Storage) RequeueJob(ctx context.Context, jobID, errorMessage string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    retry_count = retry_count + 1,
		    error_message = $2,
		    worker_id = NULL,
		    started_at = NULL
		WHERE id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.JobStatusPending, errorMessage, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: job %s is not RUNNING", domain.ErrInvalidStateTransition, jobID)
	}

	return nil
}

// RecordOutcome transitions a RUNNING job to a terminal status. Success
// clears the error message and stamps the completion time.
func (s *Storage) RecordOutcome(ctx context.Context, jobID, status, errorMessage string) error {
	if status != domain.JobStatusCompleted && status != domain.JobStatusFailed {
		return fmt.Errorf("%w: %s is not a recordable outcome", domain.ErrInvalidStateTransition, status)
	}

	query := `
		UPDATE jobs
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE id = $3
		  AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, status, errorMessage, jobID, domain.JobStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record job outcome: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: job %s is not RUNNING", domain.ErrInvalidStateTransition, jobID)
	}

	s.logger.Info("Job outcome recorded",
		slog.String("job_id", jobID),
		slog.String("status", status),
	)

	return nil
}

// ListClaimableJobs returns up to limit PENDING jobs in dispatch order:
// strictly ascending priority (1 before 4), FIFO within a priority. The
// selection is only advisory; exclusivity comes from the conditional claim,
// so overlapping pollers cost a few lost claims, never a double dispatch.
func (s *Storage) ListClaimableJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	query := `
		SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1
		ORDER BY priority ASC, created_at ASC
		LIMIT $2
	`

	var jobs []domain.Job
	err := s.db.SelectContext(ctx, &jobs, query, domain.JobStatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list claimable jobs: %w", err)
	}

	return jobs, nil
}

// JobFilter narrows ListBatchJobs results.
type JobFilter struct {
	Status   string
	PageSize int
	Cursor   *Cursor
}

// Cursor is a (created_at, id) keyset pagination position.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}

// ListBatchJobs returns a page of a batch's jobs, newest first.
func (s *Storage) ListBatchJobs(ctx context.Context, batchID string, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE batch_id = $1`
	args := []interface{}{batchID}
	argIdx := 2

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.ID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, id DESC"

	// Fetch one extra to determine if there are more results
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	err := s.db.SelectContext(ctx, &jobs, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batch jobs: %w", err)
	}

	return jobs, nil
}

// countBatchJobs recounts a batch's children per status inside a transaction.
func countBatchJobs(ctx context.Context, tx *sqlx.Tx, batchID string) (domain.JobStatusCounts, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT status, COUNT(*)
		FROM jobs
		WHERE batch_id = $1
		GROUP BY status
	`, batchID)
	if err != nil {
		return domain.JobStatusCounts{}, fmt.Errorf("failed to count batch jobs: %w", err)
	}
	defer rows.Close()

	var counts domain.JobStatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.JobStatusCounts{}, fmt.Errorf("failed to scan job counts: %w", err)
		}

		switch status {
		case domain.JobStatusPending:
			counts.Pending = n
		case domain.JobStatusRunning:
			counts.Running = n
		case domain.JobStatusCompleted:
			counts.Completed = n
		case domain.JobStatusFailed:
			counts.Failed = n
		case domain.JobStatusCancelled:
			counts.Cancelled = n
		}
	}

	return counts, rows.Err()
}
