package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedBatch(t *testing.T, store *MemStore, jobStatuses []string) (*domain.Batch, []*domain.Job) {
	t.Helper()

	batch := &domain.Batch{
		ID:          uuid.NewString(),
		Code:        "publish_listing_20260314092653_deadbeef",
		Marketplace: "etsy",
		ActionCode:  "publish_listing",
		Status:      domain.BatchStatusPending,
		Priority:    2,
		TotalCount:  len(jobStatuses),
		CreatedBy:   "user-1",
		CreatedAt:   time.Now(),
	}

	jobs := make([]*domain.Job, len(jobStatuses))
	for i, status := range jobStatuses {
		jobs[i] = &domain.Job{
			ID:          uuid.NewString(),
			BatchID:     sql.NullString{String: batch.ID, Valid: true},
			Marketplace: "etsy",
			ActionCode:  "publish_listing",
			TargetID:    fmt.Sprintf("target-%d", i),
			Status:      status,
			Priority:    2,
			MaxRetries:  domain.DefaultMaxRetries,
			SessionKey:  "etsy:user-1",
			CreatedBy:   "user-1",
			CreatedAt:   time.Now().Add(time.Duration(i) * time.Millisecond),
		}
	}

	require.NoError(t, store.CreateBatchWithJobs(context.Background(), batch, jobs))
	return batch, jobs
}

func TestMemStore_ClaimJobSingleWinner(t *testing.T) {
	store := NewMemStore()
	_, jobs := seedBatch(t, store, []string{domain.JobStatusPending})
	jobID := jobs[0].ID

	const workers = 8

	var wg sync.WaitGroup
	wins := make(chan string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			workerID := fmt.Sprintf("worker-%d", i)
			if _, err := store.ClaimJob(context.Background(), jobID, workerID); err == nil {
				wins <- workerID
			}
		}(i)
	}

	wg.Wait()
	close(wins)

	var winners []string
	for w := range wins {
		winners = append(winners, w)
	}
	require.Len(t, winners, 1, "exactly one worker must win the claim")

	job, err := store.GetJobByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusRunning, job.Status)
	assert.Equal(t, winners[0], job.WorkerID.String)
	assert.True(t, job.StartedAt.Valid)
}

func TestMemStore_ClaimJobNotPending(t *testing.T) {
	store := NewMemStore()
	_, jobs := seedBatch(t, store, []string{domain.JobStatusCompleted})

	_, err := store.ClaimJob(context.Background(), jobs[0].ID, "worker-1")

	require.ErrorIs(t, err, domain.ErrJobAlreadyClaimed)
}

func TestMemStore_RequeueJob(t *testing.T) {
	store := NewMemStore()
	_, jobs := seedBatch(t, store, []string{domain.JobStatusPending})
	jobID := jobs[0].ID

	_, err := store.ClaimJob(context.Background(), jobID, "worker-1")
	require.NoError(t, err)

	require.NoError(t, store.RequeueJob(context.Background(), jobID, "remote timeout"))

	job, err := store.GetJobByID(context.Background(), jobID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "remote timeout", job.ErrorMessage)
	assert.False(t, job.WorkerID.Valid)

	// Requeue requires a RUNNING job.
	err = store.RequeueJob(context.Background(), jobID, "again")
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestMemStore_RecordOutcome(t *testing.T) {
	store := NewMemStore()
	_, jobs := seedBatch(t, store, []string{domain.JobStatusPending, domain.JobStatusPending})

	_, err := store.ClaimJob(context.Background(), jobs[0].ID, "worker-1")
	require.NoError(t, err)

	require.NoError(t, store.RecordOutcome(context.Background(), jobs[0].ID, domain.JobStatusCompleted, ""))

	job, err := store.GetJobByID(context.Background(), jobs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusCompleted, job.Status)
	assert.True(t, job.CompletedAt.Valid)

	// A terminal job admits no further outcome.
	err = store.RecordOutcome(context.Background(), jobs[0].ID, domain.JobStatusFailed, "late")
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	// Only COMPLETED and FAILED are recordable outcomes.
	err = store.RecordOutcome(context.Background(), jobs[1].ID, domain.JobStatusRunning, "")
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestMemStore_ListClaimableJobsOrder(t *testing.T) {
	store := NewMemStore()
	base := time.Now()

	priorities := []int{4, 1, 3, 1}
	ids := make([]string, len(priorities))
	for i, priority := range priorities {
		ids[i] = uuid.NewString()
		require.NoError(t, store.CreateJob(context.Background(), &domain.Job{
			ID:         ids[i],
			Status:     domain.JobStatusPending,
			Priority:   priority,
			SessionKey: "etsy:user-1",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	jobs, err := store.ListClaimableJobs(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, jobs, 4)

	// Ascending priority, FIFO within a priority.
	assert.Equal(t, ids[1], jobs[0].ID)
	assert.Equal(t, ids[3], jobs[1].ID)
	assert.Equal(t, ids[2], jobs[2].ID)
	assert.Equal(t, ids[0], jobs[3].ID)

	limited, err := store.ListClaimableJobs(context.Background(), 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestMemStore_RecomputeBatchCounts(t *testing.T) {
	store := NewMemStore()
	batch, jobs := seedBatch(t, store, []string{
		domain.JobStatusCompleted,
		domain.JobStatusCompleted,
		domain.JobStatusFailed,
		domain.JobStatusPending,
	})

	require.NoError(t, store.RecomputeBatchCounts(context.Background(), batch.ID))

	got, err := store.GetBatchByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CompletedCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, 0, got.CancelledCount)
	assert.Equal(t, 1, got.PendingCount())
	assert.Equal(t, domain.BatchStatusRunning, got.Status)

	// Finish the last child and the batch settles terminal.
	_, err = store.ClaimJob(context.Background(), jobs[3].ID, "worker-1")
	require.NoError(t, err)
	require.NoError(t, store.RecordOutcome(context.Background(), jobs[3].ID, domain.JobStatusCompleted, ""))
	require.NoError(t, store.RecomputeBatchCounts(context.Background(), batch.ID))

	got, err = store.GetBatchByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusPartiallyFailed, got.Status)
	assert.Equal(t, 0, got.PendingCount())
}

func TestMemStore_RecomputeBatchCountsInvariantViolation(t *testing.T) {
	store := NewMemStore()
	batch, _ := seedBatch(t, store, []string{domain.JobStatusPending, domain.JobStatusPending})

	// More children than total_count would drive pending_count negative.
	require.NoError(t, store.CreateJob(context.Background(), &domain.Job{
		ID:         uuid.NewString(),
		BatchID:    sql.NullString{String: batch.ID, Valid: true},
		Status:     domain.JobStatusCompleted,
		SessionKey: "etsy:user-1",
		CreatedAt:  time.Now(),
	}))

	err := store.RecomputeBatchCounts(context.Background(), batch.ID)

	require.ErrorIs(t, err, domain.ErrNegativePendingCount)
}

func TestMemStore_CancelBatch(t *testing.T) {
	store := NewMemStore()
	batch, jobs := seedBatch(t, store, []string{
		domain.JobStatusPending,
		domain.JobStatusPending,
		domain.JobStatusPending,
		domain.JobStatusRunning,
		domain.JobStatusRunning,
	})

	require.NoError(t, store.CancelBatch(context.Background(), batch.ID))

	got, err := store.GetBatchByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCancelled, got.Status)
	assert.Equal(t, 3, got.CancelledCount)

	// PENDING children are cancelled, RUNNING ones keep going.
	for _, job := range jobs[:3] {
		j, err := store.GetJobByID(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusCancelled, j.Status)
	}
	for _, job := range jobs[3:] {
		j, err := store.GetJobByID(context.Background(), job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusRunning, j.Status)
	}

	// A running child finishing later does not revive the batch.
	require.NoError(t, store.RecordOutcome(context.Background(), jobs[3].ID, domain.JobStatusCompleted, ""))
	require.NoError(t, store.RecomputeBatchCounts(context.Background(), batch.ID))

	got, err = store.GetBatchByID(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BatchStatusCancelled, got.Status)
	assert.Equal(t, 1, got.CompletedCount)

	// Cancelling a terminal batch is rejected.
	err = store.CancelBatch(context.Background(), batch.ID)
	require.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestMemStore_Tasks(t *testing.T) {
	store := NewMemStore()
	_, jobs := seedBatch(t, store, []string{domain.JobStatusRunning})
	jobID := jobs[0].ID

	first, err := store.CreateTask(context.Background(), jobID, 1, "upload_images")
	require.NoError(t, err)
	second, err := store.CreateTask(context.Background(), jobID, 2, "publish")
	require.NoError(t, err)

	require.NoError(t, store.FinishTask(context.Background(), first.ID, domain.TaskStatusCompleted, ""))
	require.NoError(t, store.FinishTask(context.Background(), second.ID, domain.TaskStatusFailed, "remote rejected"))

	tasks, err := store.ListJobTasks(context.Background(), jobID)
	require.NoError(t, err)
	require.Len(t, tasks, 2)
	assert.Equal(t, "upload_images", tasks[0].Name)
	assert.Equal(t, domain.TaskStatusCompleted, tasks[0].Status)
	assert.Equal(t, "publish", tasks[1].Name)
	assert.Equal(t, domain.TaskStatusFailed, tasks[1].Status)
	assert.Equal(t, "remote rejected", tasks[1].ErrorMessage)
}

func TestMemStore_GetActionType(t *testing.T) {
	store := NewMemStore()
	store.SeedActionType(&domain.ActionType{
		Marketplace:       "etsy",
		Code:              "publish_listing",
		DisplayName:       "Publish listing",
		DefaultPriority:   2,
		DefaultMaxRetries: 3,
	})

	at, err := store.GetActionType(context.Background(), "etsy", "publish_listing")
	require.NoError(t, err)
	assert.Equal(t, "Publish listing", at.DisplayName)

	_, err = store.GetActionType(context.Background(), "etsy", "unknown")
	require.ErrorIs(t, err, domain.ErrActionTypeNotFound)
}
