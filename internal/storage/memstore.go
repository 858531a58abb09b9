package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/google/uuid"
)

// MemStore is an in-memory entity store implementing the same contract and
// transition discipline as the PostgreSQL Storage. It backs the dispatcher
// and aggregator tests and is usable for local development without a
// database. All methods are safe for concurrent use.
type MemStore struct {
	mu          sync.Mutex
	jobs        map[string]*domain.Job
	batches     map[string]*domain.Batch
	tasks       map[string][]*domain.Task
	actionTypes map[string]*domain.ActionType
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		jobs:        make(map[string]*domain.Job),
		batches:     make(map[string]*domain.Batch),
		tasks:       make(map[string][]*domain.Task),
		actionTypes: make(map[string]*domain.ActionType),
	}
}

// SeedActionType registers reference action metadata.
func (m *MemStore) SeedActionType(at *domain.ActionType) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.actionTypes[atCacheKey(at.Marketplace, at.Code)] = at
}

// CreateJob inserts a standalone job.
func (m *MemStore) CreateJob(ctx context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cloned := *job
	m.jobs[job.ID] = &cloned
	return nil
}

// CreateBatchWithJobs inserts a batch and its children atomically.
func (m *MemStore) CreateBatchWithJobs(ctx context.Context, batch *domain.Batch, jobs []*domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clonedBatch := *batch
	m.batches[batch.ID] = &clonedBatch
	for _, job := range jobs {
		cloned := *job
		m.jobs[job.ID] = &cloned
	}
	return nil
}

// GetJobByID retrieves a job by its ID.
func (m *MemStore) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cloned := *job
	return &cloned, nil
}

// GetBatchByID retrieves a batch by its ID.
func (m *MemStore) GetBatchByID(ctx context.Context, batchID string) (*domain.Batch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return nil, domain.ErrBatchNotFound
	}
	cloned := *batch
	return &cloned, nil
}

// ClaimJob performs the conditional PENDING -> RUNNING transition under the
// store mutex, so racing workers observe the same single-winner semantics as
// the SQL conditional update.
func (m *MemStore) ClaimJob(ctx context.Context, jobID, workerID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}

	if job.Status != domain.JobStatusPending {
		return nil, domain.ErrJobAlreadyClaimed
	}

	job.Status = domain.JobStatusRunning
	job.WorkerID.String = workerID
	job.WorkerID.Valid = true
	job.StartedAt.Time = time.Now()
	job.StartedAt.Valid = true

	cloned := *job
	return &cloned, nil
}

// RequeueJob transitions RUNNING -> PENDING and increments the retry count.
func (m *MemStore) RequeueJob(ctx context.Context, jobID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusRunning {
		return fmt.Errorf("%w: job %s is not RUNNING", domain.ErrInvalidStateTransition, jobID)
	}

	job.Status = domain.JobStatusPending
	job.RetryCount++
	job.ErrorMessage = errorMessage
	job.WorkerID.Valid = false
	job.StartedAt.Valid = false
	return nil
}

// RecordOutcome transitions a RUNNING job to COMPLETED or FAILED.
func (m *MemStore) RecordOutcome(ctx context.Context, jobID, status, errorMessage string) error {
	if status != domain.JobStatusCompleted && status != domain.JobStatusFailed {
		return fmt.Errorf("%w: %s is not a recordable outcome", domain.ErrInvalidStateTransition, status)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusRunning {
		return fmt.Errorf("%w: job %s is not RUNNING", domain.ErrInvalidStateTransition, jobID)
	}

	job.Status = status
	job.ErrorMessage = errorMessage
	job.CompletedAt.Time = time.Now()
	job.CompletedAt.Valid = true
	return nil
}

// ListClaimableJobs returns PENDING jobs in dispatch order: ascending
// priority, then FIFO by creation time.
func (m *MemStore) ListClaimableJobs(ctx context.Context, limit int) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var claimable []domain.Job
	for _, job := range m.jobs {
		if job.Status == domain.JobStatusPending {
			claimable = append(claimable, *job)
		}
	}

	sort.Slice(claimable, func(i, j int) bool {
		if claimable[i].Priority != claimable[j].Priority {
			return claimable[i].Priority < claimable[j].Priority
		}
		return claimable[i].CreatedAt.Before(claimable[j].CreatedAt)
	})

	if limit > 0 && len(claimable) > limit {
		claimable = claimable[:limit]
	}
	return claimable, nil
}

// GetActionType returns seeded action metadata.
func (m *MemStore) GetActionType(ctx context.Context, marketplace, code string) (*domain.ActionType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	at, ok := m.actionTypes[atCacheKey(marketplace, code)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrActionTypeNotFound, marketplace, code)
	}
	return at, nil
}

// RecomputeBatchCounts recounts children and rewrites counts and derived
// status, keeping an explicit cancellation sticky.
func (m *MemStore) RecomputeBatchCounts(ctx context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return domain.ErrBatchNotFound
	}

	counts := m.countLocked(batchID)
	if counts.Total() > batch.TotalCount {
		return fmt.Errorf("%w: batch %s has %d jobs but total_count %d",
			domain.ErrNegativePendingCount, batchID, counts.Total(), batch.TotalCount)
	}

	batch.Status = domain.DeriveBatchStatus(counts, batch.Status == domain.BatchStatusCancelled)
	batch.CompletedCount = counts.Completed
	batch.FailedCount = counts.Failed
	batch.CancelledCount = counts.Cancelled
	batch.UpdatedAt = time.Now()
	return nil
}

// CancelBatch cancels every PENDING child and marks the batch cancelled.
func (m *MemStore) CancelBatch(ctx context.Context, batchID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	batch, ok := m.batches[batchID]
	if !ok {
		return domain.ErrBatchNotFound
	}
	if domain.IsTerminalBatchStatus(batch.Status) {
		return fmt.Errorf("%w: batch %s is already %s",
			domain.ErrInvalidStateTransition, batchID, batch.Status)
	}

	for _, job := range m.jobs {
		if job.BatchID.Valid && job.BatchID.String == batchID && job.Status == domain.JobStatusPending {
			job.Status = domain.JobStatusCancelled
			job.CompletedAt.Time = time.Now()
			job.CompletedAt.Valid = true
		}
	}

	counts := m.countLocked(batchID)
	batch.Status = domain.BatchStatusCancelled
	batch.CompletedCount = counts.Completed
	batch.FailedCount = counts.Failed
	batch.CancelledCount = counts.Cancelled
	batch.UpdatedAt = time.Now()
	return nil
}

func (m *MemStore) countLocked(batchID string) domain.JobStatusCounts {
	var counts domain.JobStatusCounts
	for _, job := range m.jobs {
		if !job.BatchID.Valid || job.BatchID.String != batchID {
			continue
		}
		switch job.Status {
		case domain.JobStatusPending:
			counts.Pending++
		case domain.JobStatusRunning:
			counts.Running++
		case domain.JobStatusCompleted:
			counts.Completed++
		case domain.JobStatusFailed:
			counts.Failed++
		case domain.JobStatusCancelled:
			counts.Cancelled++
		}
	}
	return counts
}

// CreateTask records the start of one ordered sub-step.
func (m *MemStore) CreateTask(ctx context.Context, jobID string, seq int, name string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task := &domain.Task{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Seq:       seq,
		Name:      name,
		Status:    domain.TaskStatusPending,
		CreatedAt: time.Now(),
	}
	m.tasks[jobID] = append(m.tasks[jobID], task)

	cloned := *task
	return &cloned, nil
}

// FinishTask records a sub-step's terminal status.
func (m *MemStore) FinishTask(ctx context.Context, taskID, status, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, tasks := range m.tasks {
		for _, task := range tasks {
			if task.ID == taskID {
				task.Status = status
				task.ErrorMessage = errorMessage
				task.CompletedAt.Time = time.Now()
				task.CompletedAt.Valid = true
				return nil
			}
		}
	}
	return fmt.Errorf("task %s not found", taskID)
}

// ListJobTasks returns a job's sub-steps in execution order.
func (m *MemStore) ListJobTasks(ctx context.Context, jobID string) ([]domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := m.tasks[jobID]
	out := make([]domain.Task, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}
