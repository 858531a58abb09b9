package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/cuongbtq/marketops-be/internal/registry"
)

// processJob runs one job end to end: exclusive claim, handler resolution,
// execution, outcome application, batch rollup. Status mutation happens only
// here; handlers touch domain entities, never job or batch status.
func (e *Engine) processJob(ctx context.Context, workerName string, job *domain.Job) error {
	claimed, err := e.store.ClaimJob(ctx, job.ID, workerName)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			// Another worker won the race. Skip, not an error.
			e.logger.Debug("Claim lost, skipping job",
				slog.String("worker_name", workerName),
				slog.String("job_id", job.ID),
			)
			return nil
		}
		return fmt.Errorf("failed to claim job: %w", err)
	}

	e.logger.Info("Processing job",
		slog.String("worker_name", workerName),
		slog.String("job_id", claimed.ID),
		slog.String("marketplace", claimed.Marketplace),
		slog.String("action_code", claimed.ActionCode),
		slog.Int("attempt", claimed.RetryCount+1),
	)

	outcome := e.executeJob(ctx, claimed)

	return e.applyOutcome(ctx, claimed, outcome)
}

// executeJob resolves and runs the handler inside a panic boundary.
func (e *Engine) executeJob(ctx context.Context, job *domain.Job) (outcome domain.Outcome) {
	// An unhandled panic is a bug in the handler, not a transient condition.
	// Treat it as non-retryable so genuine defects are not retried silently.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Handler panicked",
				slog.String("job_id", job.ID),
				slog.String("action_code", job.ActionCode),
				slog.Any("panic", r),
			)
			outcome = domain.Failure(
				domain.FailureHandlerError,
				fmt.Sprintf("handler panicked: %v", r),
				false,
			)
		}
	}()

	if _, err := e.store.GetActionType(ctx, job.Marketplace, job.ActionCode); err != nil {
		if errors.Is(err, domain.ErrActionTypeNotFound) {
			return domain.Failure(domain.FailureUnknownAction, err.Error(), false)
		}
		return domain.Failure(domain.FailureHandlerError, err.Error(), true)
	}

	key := registry.Key{Marketplace: job.Marketplace, ActionCode: job.ActionCode}
	h, err := e.registry.Resolve(key, e.handlerDeps)
	if err != nil {
		return domain.Failure(domain.FailureUnknownAction, err.Error(), false)
	}

	jobCtx, cancel := context.WithTimeout(ctx, e.jobTimeout)
	defer cancel()

	return h.Execute(jobCtx, job)
}

// applyOutcome writes the job's state transition and rolls the result up to
// the owning batch.
func (e *Engine) applyOutcome(ctx context.Context, job *domain.Job, outcome domain.Outcome) error {
	var transitionErr error

	switch {
	case outcome.OK:
		transitionErr = e.store.RecordOutcome(ctx, job.ID, domain.JobStatusCompleted, "")
		e.logger.Info("Job completed",
			slog.String("job_id", job.ID),
			slog.String("action_code", job.ActionCode),
		)

	case outcome.Retryable && job.RetryCount < job.MaxRetries:
		transitionErr = e.store.RequeueJob(ctx, job.ID, outcome.Message)
		e.logger.Warn("Job requeued for retry",
			slog.String("job_id", job.ID),
			slog.String("failure_kind", string(outcome.Kind)),
			slog.String("error", outcome.Message),
			slog.Int("retry_count", job.RetryCount+1),
			slog.Int("max_retries", job.MaxRetries),
		)

	default:
		transitionErr = e.store.RecordOutcome(ctx, job.ID, domain.JobStatusFailed, outcome.Message)
		e.logger.Warn("Job failed",
			slog.String("job_id", job.ID),
			slog.String("failure_kind", string(outcome.Kind)),
			slog.String("error", outcome.Message),
			slog.Bool("retryable", outcome.Retryable),
			slog.Int("retry_count", job.RetryCount),
		)
	}

	if transitionErr != nil {
		return fmt.Errorf("failed to apply job outcome: %w", transitionErr)
	}

	if job.InBatch() {
		if err := e.store.RecomputeBatchCounts(ctx, job.BatchID.String); err != nil {
			if errors.Is(err, domain.ErrNegativePendingCount) {
				// Invariant violation. Loud, never coerced.
				e.logger.Error("FATAL: batch counts invariant violated",
					slog.String("batch_id", job.BatchID.String),
					slog.String("job_id", job.ID),
					slog.String("error", err.Error()),
				)
			}
			return fmt.Errorf("failed to recompute batch counts: %w", err)
		}
	}

	return nil
}
