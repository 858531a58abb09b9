package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/jmoiron/sqlx"
)

const batchColumns = `
	id, code, marketplace, action_code, status, priority, total_count,
	completed_count, failed_count, cancelled_count, created_by,
	created_at, updated_at
`

// CreateBatchWithJobs inserts a batch and all of its child jobs in one
// transaction, so a batch is never observable with a partial job set.
func (s *Storage) CreateBatchWithJobs(ctx context.Context, batch *domain.Batch, jobs []*domain.Job) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO batches (
				id, code, marketplace, action_code, status, priority,
				total_count, completed_count, failed_count, cancelled_count,
				created_by, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0, 0, $8, $9, $9)
		`,
			batch.ID,
			batch.Code,
			batch.Marketplace,
			batch.ActionCode,
			batch.Status,
			batch.Priority,
			batch.TotalCount,
			batch.CreatedBy,
			batch.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create batch: %w", err)
		}

		return s.insertJobs(ctx, tx, jobs)
	})
}

// GetBatchByID retrieves a batch by its ID.
func (s *Storage) GetBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	var batch domain.Batch
	query := `SELECT ` + batchColumns + ` FROM batches WHERE id = $1`

	err := s.db.GetContext(ctx, &batch, query, batchID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBatchNotFound
		}
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}

	return &batch, nil
}

// BatchFilter narrows ListBatches results.
type BatchFilter struct {
	Marketplace string
	ActionCode  string
	Status      string
	CreatedBy   string
	PageSize    int
	Cursor      *Cursor
}

// ListBatches returns a page of batches, newest first, with keyset
// pagination on (created_at, id).
func (s *Storage) ListBatches(ctx context.Context, filter BatchFilter) ([]domain.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM batches WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.Marketplace != "" {
		query += fmt.Sprintf(" AND marketplace = $%d", argIdx)
		args = append(args, filter.Marketplace)
		argIdx++
	}

	if filter.ActionCode != "" {
		query += fmt.Sprintf(" AND action_code = $%d", argIdx)
		args = append(args, filter.ActionCode)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.CreatedBy != "" {
		query += fmt.Sprintf(" AND created_by = $%d", argIdx)
		args = append(args, filter.CreatedBy)
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

	var batches []domain.Batch
	err := s.db.SelectContext(ctx, &batches, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list batches: %w", err)
	}

	return batches, nil
}

// RecomputeBatchCounts recounts a batch's child jobs and rewrites the stored
// counts and derived status in one transaction. Called after every child
// transition; it is the only path that mutates batch counts or status apart
// from CancelBatch. An already-cancelled batch keeps its status, only the
// counts move.
func (s *Storage) RecomputeBatchCounts(ctx context.Context, batchID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var batch domain.Batch
		err := tx.GetContext(ctx, &batch,
			`SELECT `+batchColumns+` FROM batches WHERE id = $1 FOR UPDATE`, batchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrBatchNotFound
			}
			return fmt.Errorf("failed to lock batch: %w", err)
		}

		counts, err := countBatchJobs(ctx, tx, batchID)
		if err != nil {
			return err
		}

		if counts.Total() > batch.TotalCount {
			// More children than the batch was created with: the invariant
			// pending = total - terminal would go negative. Fatal, never
			// coerced.
			s.logger.Error("Batch counts invariant violated",
				slog.String("batch_id", batchID),
				slog.Int("total_count", batch.TotalCount),
				slog.Int("observed_jobs", counts.Total()),
			)
			return fmt.Errorf("%w: batch %s has %d jobs but total_count %d",
				domain.ErrNegativePendingCount, batchID, counts.Total(), batch.TotalCount)
		}

		status := domain.DeriveBatchStatus(counts, batch.Status == domain.BatchStatusCancelled)

		_, err = tx.ExecContext(ctx, `
			UPDATE batches
			SET status = $1,
			    completed_count = $2,
			    failed_count = $3,
			    cancelled_count = $4,
			    updated_at = NOW()
			WHERE id = $5
		`, status, counts.Completed, counts.Failed, counts.Cancelled, batchID)
		if err != nil {
			return fmt.Errorf("failed to update batch counts: %w", err)
		}

		return nil
	})
}

// CancelBatch transactionally cancels every PENDING child and marks the
// batch cancelled. RUNNING and terminal children are untouched: a claimed job
// cannot be interrupted mid-execution and may still complete afterwards
// without reverting the batch status. Fails with ErrInvalidStateTransition
// when the batch is already terminal.
func (s *Storage) CancelBatch(ctx context.Context, batchID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var batch domain.Batch
		err := tx.GetContext(ctx, &batch,
			`SELECT `+batchColumns+` FROM batches WHERE id = $1 FOR UPDATE`, batchID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrBatchNotFound
			}
			return fmt.Errorf("failed to lock batch: %w", err)
		}

		if domain.IsTerminalBatchStatus(batch.Status) {
			return fmt.Errorf("%w: batch %s is already %s",
				domain.ErrInvalidStateTransition, batchID, batch.Status)
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = $1,
			    completed_at = NOW()
			WHERE batch_id = $2
			  AND status = $3
		`, domain.JobStatusCancelled, batchID, domain.JobStatusPending)
		if err != nil {
			return fmt.Errorf("failed to cancel pending jobs: %w", err)
		}

		counts, err := countBatchJobs(ctx, tx, batchID)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE batches
			SET status = $1,
			    completed_count = $2,
			    failed_count = $3,
			    cancelled_count = $4,
			    updated_at = NOW()
			WHERE id = $5
		`, domain.BatchStatusCancelled, counts.Completed, counts.Failed, counts.Cancelled, batchID)
		if err != nil {
			return fmt.Errorf("failed to mark batch cancelled: %w", err)
		}

		s.logger.Info("Batch cancelled",
			slog.String("batch_id", batchID),
			slog.Int("cancelled_jobs", counts.Cancelled),
			slog.Int("still_running", counts.Running),
		)

		return nil
	})
}
