package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// PublishListing publishes one listing through the remote actor. Publishing
// decomposes into two dependent remote calls, recorded as ordered tasks on
// the job: image upload first, then the publish itself.
type PublishListing struct {
	deps *Deps
}

func NewPublishListing(deps *Deps) *PublishListing {
	return &PublishListing{deps: deps}
}

func (h *PublishListing) Execute(ctx context.Context, job *domain.Job) domain.Outcome {
	steps := []struct {
		name   string
		action string
	}{
		{"upload_images", "listing.upload_images"},
		{"publish", "listing.publish"},
	}

	payload, _ := json.Marshal(map[string]string{"listing_id": job.TargetID})

	var lastData json.RawMessage
	for i, step := range steps {
		task, err := h.deps.Tasks.CreateTask(ctx, job.ID, i+1, step.name)
		if err != nil {
			return domain.Failure(domain.FailureHandlerError, "failed to record task: "+err.Error(), true)
		}

		outcome := executeRemote(ctx, h.deps, job, step.action, payload)
		if !outcome.OK {
			if err := h.deps.Tasks.FinishTask(ctx, task.ID, domain.TaskStatusFailed, outcome.Message); err != nil {
				h.deps.Logger.Error("Failed to record task failure",
					slog.String("job_id", job.ID),
					slog.String("task", step.name),
					slog.String("error", err.Error()),
				)
			}
			return outcome
		}

		if err := h.deps.Tasks.FinishTask(ctx, task.ID, domain.TaskStatusCompleted, ""); err != nil {
			h.deps.Logger.Error("Failed to record task completion",
				slog.String("job_id", job.ID),
				slog.String("task", step.name),
				slog.String("error", err.Error()),
			)
		}
		lastData = outcome.Data
	}

	return domain.Success(lastData)
}

// DelistListing removes one listing through the remote actor in a single
// correlated call.
type DelistListing struct {
	deps *Deps
}

func NewDelistListing(deps *Deps) *DelistListing {
	return &DelistListing{deps: deps}
}

func (h *DelistListing) Execute(ctx context.Context, job *domain.Job) domain.Outcome {
	payload, _ := json.Marshal(map[string]string{"listing_id": job.TargetID})
	return executeRemote(ctx, h.deps, job, "listing.delist", payload)
}
