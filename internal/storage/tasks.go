package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/google/uuid"
)

// CreateTask records the start of one ordered sub-step of a job.
func (s *Storage) CreateTask(ctx context.Context, jobID string, seq int, name string) (*domain.Task, error) {
	task := &domain.Task{
		ID:        uuid.NewString(),
		JobID:     jobID,
		Seq:       seq,
		Name:      name,
		Status:    domain.TaskStatusPending,
		CreatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, job_id, seq, name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, task.ID, task.JobID, task.Seq, task.Name, task.Status, task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return task, nil
}

// FinishTask records a sub-step's terminal status.
func (s *Storage) FinishTask(ctx context.Context, taskID, status, errorMessage string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1,
		    error_message = $2,
		    completed_at = NOW()
		WHERE id = $3
	`, status, errorMessage, taskID)
	if err != nil {
		return fmt.Errorf("failed to finish task: %w", err)
	}

	return nil
}

// ListJobTasks returns a job's sub-steps in execution order.
func (s *Storage) ListJobTasks(ctx context.Context, jobID string) ([]domain.Task, error) {
	var tasks []domain.Task
	err := s.db.SelectContext(ctx, &tasks, `
		SELECT id, job_id, seq, name, status, error_message, created_at, completed_at
		FROM tasks
		WHERE job_id = $1
		ORDER BY seq ASC
	`, jobID)
	if err != nil {
		return nil, fmt.Errorf("failed to list job tasks: %w", err)
	}

	return tasks, nil
}
