package router

import (
	"net/http"

	"github.com/cuongbtq/marketops-be/internal/api/handler"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint reporting per-component status
	r.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "up"
		if err := deps.DBClient.HealthCheck(c.Request.Context()); err != nil {
			dbStatus = "down"
			status = http.StatusServiceUnavailable
		}

		rabbitStatus := "up"
		if !deps.RabbitClient.IsConnected() {
			rabbitStatus = "down"
			status = http.StatusServiceUnavailable
		}

		c.JSON(status, gin.H{
			"service":  "marketops-api-service",
			"database": dbStatus,
			"rabbitmq": rabbitStatus,
		})
	})

	batchHandler := handler.NewBatchHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		batches := v1.Group("/batches")
		{
			// POST /api/v1/batches - Create a batch of jobs
			batches.POST("", batchHandler.CreateBatch)

			// GET /api/v1/batches - List batches with filtering and pagination
			batches.GET("", batchHandler.ListBatches)

			// GET /api/v1/batches/:batch_id - Get batch details with progress
			batches.GET("/:batch_id", batchHandler.GetBatch)

			// POST /api/v1/batches/:batch_id/cancel - Cancel pending jobs
			batches.POST("/:batch_id/cancel", batchHandler.CancelBatch)

			// GET /api/v1/batches/:batch_id/jobs - List a batch's jobs
			batches.GET("/:batch_id/jobs", batchHandler.ListBatchJobs)
		}

		jobs := v1.Group("/jobs")
		{
			// POST /api/v1/jobs - Create a standalone job
			jobs.POST("", batchHandler.CreateJob)

			// GET /api/v1/jobs/:job_id - Get job details
			jobs.GET("/:job_id", batchHandler.GetJob)
		}
	}

	return r
}
