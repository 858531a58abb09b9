package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/cuongbtq/marketops-be/internal/relay"
)

// executeRemote issues one correlated call through the relay and normalizes
// transport-level errors into outcomes. NotConnected and Timeout are
// retryable by default: the actor may reconnect or recover before the job's
// retry budget is exhausted.
func executeRemote(ctx context.Context, deps *Deps, job *domain.Job, action string, payload json.RawMessage) domain.Outcome {
	outcome, err := deps.Remote.Issue(ctx, job.SessionKey, action, payload, deps.CallTimeout)
	if err != nil {
		if errors.Is(err, relay.ErrNotConnected) {
			return domain.Failure(
				domain.FailureNotConnected,
				"remote actor session "+job.SessionKey+" is not connected",
				true,
			)
		}

		deps.Logger.Error("Remote call failed before correlation",
			slog.String("job_id", job.ID),
			slog.String("session_key", job.SessionKey),
			slog.String("action", action),
			slog.String("error", err.Error()),
		)
		return domain.Failure(domain.FailureHandlerError, err.Error(), true)
	}

	return outcome
}
