package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/marketops-be/internal/api/dto"
	"github.com/cuongbtq/marketops-be/internal/dispatch"
	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/cuongbtq/marketops-be/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateBatch handles POST /api/v1/batches
// Creates one batch of same-marketplace, same-action jobs
func (h *BatchHandler) CreateBatch(c *gin.Context) {
	var req dto.CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	ctx := c.Request.Context()

	actionType, err := h.storage.GetActionType(ctx, req.Marketplace, req.ActionCode)
	if err != nil {
		if errors.Is(err, domain.ErrActionTypeNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Unknown marketplace action",
			})
			return
		}
		h.logger.Error("Failed to resolve action type", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create batch",
		})
		return
	}

	priority := req.Priority
	if priority == 0 {
		priority = actionType.DefaultPriority
	}

	now := time.Now()
	batch := &domain.Batch{
		ID:          uuid.NewString(),
		Code:        domain.NewBatchCode(req.ActionCode, now),
		Marketplace: req.Marketplace,
		ActionCode:  req.ActionCode,
		Status:      domain.BatchStatusPending,
		Priority:    priority,
		TotalCount:  len(req.TargetIDs),
		CreatedBy:   req.CreatedBy,
		CreatedAt:   now,
	}

	jobs := make([]*domain.Job, 0, len(req.TargetIDs))
	for _, targetID := range req.TargetIDs {
		job := &domain.Job{
			ID:          uuid.NewString(),
			Marketplace: req.Marketplace,
			ActionCode:  req.ActionCode,
			TargetID:    targetID,
			Status:      domain.JobStatusPending,
			Priority:    priority,
			MaxRetries:  actionType.DefaultMaxRetries,
			SessionKey:  domain.SessionKeyFor(req.Marketplace, req.CreatedBy),
			CreatedBy:   req.CreatedBy,
			CreatedAt:   now,
		}
		job.BatchID.String = batch.ID
		job.BatchID.Valid = true
		jobs = append(jobs, job)
	}

	if err := h.storage.CreateBatchWithJobs(ctx, batch, jobs); err != nil {
		h.logger.Error("Failed to create batch", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create batch",
		})
		return
	}

	h.logger.Info("Batch created",
		slog.String("batch_id", batch.ID),
		slog.String("code", batch.Code),
		slog.String("marketplace", batch.Marketplace),
		slog.String("action_code", batch.ActionCode),
		slog.Int("total_count", batch.TotalCount),
	)

	h.publishNudge(c, batch.ID)

	c.JSON(http.StatusCreated, batchToDTO(batch))
}

// GetBatch handles GET /api/v1/batches/:batch_id
func (h *BatchHandler) GetBatch(c *gin.Context) {
	batchID := c.Param("batch_id")
	if _, err := uuid.Parse(batchID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch_id must be a valid UUID",
		})
		return
	}

	batch, err := h.storage.GetBatchByID(c.Request.Context(), batchID)
	if err != nil {
		if errors.Is(err, domain.ErrBatchNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Batch not found",
			})
			return
		}
		h.logger.Error("Failed to get batch", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get batch",
		})
		return
	}

	c.JSON(http.StatusOK, batchToDTO(batch))
}

// ListBatches handles GET /api/v1/batches
func (h *BatchHandler) ListBatches(c *gin.Context) {
	var req dto.ListBatchesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	batches, err := h.storage.ListBatches(c.Request.Context(), storage.BatchFilter{
		Marketplace: req.Marketplace,
		ActionCode:  req.ActionCode,
		Status:      req.Status,
		CreatedBy:   req.CreatedBy,
		PageSize:    req.PageSize,
		Cursor:      cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list batches", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list batches",
		})
		return
	}

	resp := dto.ListBatchesResponse{Batches: make([]dto.BatchDTO, 0, len(batches))}

	hasMore := len(batches) > req.PageSize
	if hasMore {
		batches = batches[:req.PageSize]
	}

	for i := range batches {
		resp.Batches = append(resp.Batches, batchToDTO(&batches[i]))
	}

	if hasMore {
		last := batches[len(batches)-1]
		resp.NextCursor = EncodeCursor(&storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	c.JSON(http.StatusOK, resp)
}

// CancelBatch handles POST /api/v1/batches/:batch_id/cancel
// Cancels every PENDING job of the batch; RUNNING jobs finish on their own.
func (h *BatchHandler) CancelBatch(c *gin.Context) {
	batchID := c.Param("batch_id")
	if _, err := uuid.Parse(batchID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch_id must be a valid UUID",
		})
		return
	}

	err := h.storage.CancelBatch(c.Request.Context(), batchID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrBatchNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Batch not found",
			})
		case errors.Is(err, domain.ErrInvalidStateTransition):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Batch is already in a terminal state",
			})
		default:
			h.logger.Error("Failed to cancel batch", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to cancel batch",
			})
		}
		return
	}

	batch, err := h.storage.GetBatchByID(c.Request.Context(), batchID)
	if err != nil {
		h.logger.Error("Failed to reload cancelled batch", slog.String("error", err.Error()))
		c.JSON(http.StatusOK, gin.H{"status": domain.BatchStatusCancelled})
		return
	}

	c.JSON(http.StatusOK, batchToDTO(batch))
}

// ListBatchJobs handles GET /api/v1/batches/:batch_id/jobs
func (h *BatchHandler) ListBatchJobs(c *gin.Context) {
	batchID := c.Param("batch_id")
	if _, err := uuid.Parse(batchID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "batch_id must be a valid UUID",
		})
		return
	}

	var req dto.ListBatchJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid cursor",
		})
		return
	}

	jobs, err := h.storage.ListBatchJobs(c.Request.Context(), batchID, storage.JobFilter{
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list batch jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list batch jobs",
		})
		return
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, 0, len(jobs))}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	for i := range jobs {
		resp.Jobs = append(resp.Jobs, jobToDTO(&jobs[i]))
	}

	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeCursor(&storage.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	c.JSON(http.StatusOK, resp)
}

// publishNudge tells the dispatcher fresh work exists. Best effort: the
// dispatcher's poll loop picks the jobs up anyway, a lost nudge only adds
// latency.
func (h *BatchHandler) publishNudge(c *gin.Context, batchID string) {
	body := []byte(`{"batch_id":"` + batchID + `"}`)
	if err := h.rabbit.Publish(c.Request.Context(), dispatch.NudgeQueue, body, "", ""); err != nil {
		h.logger.Warn("Failed to publish enqueue nudge",
			slog.String("batch_id", batchID),
			slog.String("error", err.Error()),
		)
	}
}

func batchToDTO(b *domain.Batch) dto.BatchDTO {
	return dto.BatchDTO{
		BatchID:         b.ID,
		Code:            b.Code,
		Marketplace:     b.Marketplace,
		ActionCode:      b.ActionCode,
		Status:          b.Status,
		Priority:        b.Priority,
		TotalCount:      b.TotalCount,
		CompletedCount:  b.CompletedCount,
		FailedCount:     b.FailedCount,
		CancelledCount:  b.CancelledCount,
		PendingCount:    b.PendingCount(),
		ProgressPercent: b.ProgressPercent(),
		CreatedBy:       b.CreatedBy,
		CreatedAt:       b.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}

func jobToDTO(j *domain.Job) dto.JobDTO {
	out := dto.JobDTO{
		JobID:        j.ID,
		Marketplace:  j.Marketplace,
		ActionCode:   j.ActionCode,
		TargetID:     j.TargetID,
		Status:       j.Status,
		Priority:     j.Priority,
		RetryCount:   j.RetryCount,
		MaxRetries:   j.MaxRetries,
		ErrorMessage: j.ErrorMessage,
		CreatedAt:    j.CreatedAt.Format(time.RFC3339),
	}
	if j.BatchID.Valid {
		out.BatchID = j.BatchID.String
	}
	if j.StartedAt.Valid {
		out.StartedAt = j.StartedAt.Time.Format(time.RFC3339)
	}
	if j.CompletedAt.Valid {
		out.CompletedAt = j.CompletedAt.Time.Format(time.RFC3339)
	}
	return out
}
