package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/marketops-be/internal/api/dto"
	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateJob handles POST /api/v1/jobs
// Creates a standalone job for a single target, outside any batch
func (h *BatchHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
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
			"error": "Failed to create job",
		})
		return
	}

	priority := req.Priority
	if priority == 0 {
		priority = actionType.DefaultPriority
	}

	job := &domain.Job{
		ID:          uuid.NewString(),
		Marketplace: req.Marketplace,
		ActionCode:  req.ActionCode,
		TargetID:    req.TargetID,
		Status:      domain.JobStatusPending,
		Priority:    priority,
		MaxRetries:  actionType.DefaultMaxRetries,
		SessionKey:  domain.SessionKeyFor(req.Marketplace, req.CreatedBy),
		CreatedBy:   req.CreatedBy,
		CreatedAt:   time.Now(),
	}

	if err := h.storage.CreateJob(ctx, job); err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create job",
		})
		return
	}

	h.logger.Info("Standalone job created",
		slog.String("job_id", job.ID),
		slog.String("marketplace", job.Marketplace),
		slog.String("action_code", job.ActionCode),
	)

	h.publishNudge(c, "")

	c.JSON(http.StatusCreated, jobToDTO(job))
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *BatchHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		h.logger.Error("Failed to get job", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, jobToDTO(job))
}
