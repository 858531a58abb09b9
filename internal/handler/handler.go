package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
)

// Handler is the pluggable unit of work bound to one (marketplace, action)
// pair. Execute performs the action for a single job and reports the result
// as an Outcome. Handlers must never mutate job or batch status fields;
// status transitions belong exclusively to the dispatch engine.
type Handler interface {
	Execute(ctx context.Context, job *domain.Job) domain.Outcome
}

// RemoteCaller issues a correlated call to the remote actor and suspends
// until its response, timeout, or cancellation. Satisfied by relay.Relay.
type RemoteCaller interface {
	Issue(ctx context.Context, sessionKey, action string, payload json.RawMessage, timeout time.Duration) (domain.Outcome, error)
}

// TaskRecorder persists ordered sub-steps for jobs whose action decomposes
// into multiple dependent calls. Satisfied by the entity store.
type TaskRecorder interface {
	CreateTask(ctx context.Context, jobID string, seq int, name string) (*domain.Task, error)
	FinishTask(ctx context.Context, taskID, status, errorMessage string) error
}

// Deps carries the shared collaborators injected into every handler.
type Deps struct {
	Remote      RemoteCaller
	Tasks       TaskRecorder
	HTTPClient  *http.Client
	Logger      *slog.Logger
	CallTimeout time.Duration
	// BaseURLs maps a marketplace to the base URL of its direct HTTP API.
	BaseURLs map[string]string
}
