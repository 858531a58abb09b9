package handler

import (
	"log/slog"

	"github.com/cuongbtq/marketops-be/internal/storage"
	"github.com/cuongbtq/marketops-be/shared/postgresql"
	"github.com/cuongbtq/marketops-be/shared/rabbitmq"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Storage      *storage.Storage
	DBClient     *postgresql.Client
	RabbitClient *rabbitmq.Client
}

// BatchHandler handles batch and job HTTP requests
type BatchHandler struct {
	logger  *slog.Logger
	storage *storage.Storage
	rabbit  *rabbitmq.Client
}

// NewBatchHandler creates a new BatchHandler instance
func NewBatchHandler(deps *Dependencies) *BatchHandler {
	return &BatchHandler{
		logger:  deps.Logger,
		storage: deps.Storage,
		rabbit:  deps.RabbitClient,
	}
}
