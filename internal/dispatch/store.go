package dispatch

import (
	"context"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// EntityStore is the slice of the entity store the dispatch engine consumes.
// Both storage.Storage and storage.MemStore satisfy it.
//
// ClaimJob must be atomic against concurrent workers: exactly one claim of a
// PENDING job succeeds, every other attempt returns ErrJobAlreadyClaimed.
type EntityStore interface {
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error)
	RequeueJob(ctx context.Context, jobID, errorMessage string) error
	RecordOutcome(ctx context.Context, jobID, status, errorMessage string) error
	ListClaimableJobs(ctx context.Context, limit int) ([]domain.Job, error)
	GetActionType(ctx context.Context, marketplace, code string) (*domain.ActionType, error)
	RecomputeBatchCounts(ctx context.Context, batchID string) error
}
