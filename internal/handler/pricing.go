package handler

import (
	"context"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// UpdatePrice pushes a listing's current price straight to the marketplace
// HTTP API, no remote actor involved.
type UpdatePrice struct {
	deps *Deps
}

func NewUpdatePrice(deps *Deps) *UpdatePrice {
	return &UpdatePrice{deps: deps}
}

func (h *UpdatePrice) Execute(ctx context.Context, job *domain.Job) domain.Outcome {
	return executeDirect(ctx, h.deps, job, "/listings/"+job.TargetID+"/price", map[string]string{
		"listing_id": job.TargetID,
	})
}

// SyncInventory reconciles stock counts for one listing against the
// marketplace HTTP API.
type SyncInventory struct {
	deps *Deps
}

func NewSyncInventory(deps *Deps) *SyncInventory {
	return &SyncInventory{deps: deps}
}

func (h *SyncInventory) Execute(ctx context.Context, job *domain.Job) domain.Outcome {
	return executeDirect(ctx, h.deps, job, "/listings/"+job.TargetID+"/inventory", map[string]string{
		"listing_id": job.TargetID,
	})
}
