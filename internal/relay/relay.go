package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/marketops-be/internal/domain"
	"github.com/google/uuid"
)

// ErrNotConnected is returned by Issue when the target session has no live
// channel. Nothing is sent and no pending entry is created.
var ErrNotConnected = errors.New("remote actor session not connected")

// Transport delivers a request envelope to one session's channel. Send must
// not block beyond bounded I/O; correlation and suspension live in the Relay.
type Transport interface {
	Send(ctx context.Context, sessionKey string, body []byte) error
}

// Relay presents the asynchronous duplex channel to the remote actor as
// blocking request/response calls. It owns the pending-request table and is
// injected into both the issuing path (dispatch workers) and the inbound
// response path (transport consumer), never held as a package-level singleton.
type Relay struct {
	hub       *SessionHub
	transport Transport
	pending   *PendingTable
	logger    *slog.Logger
}

// NewRelay creates a relay over the given session hub and transport.
func NewRelay(hub *SessionHub, transport Transport, logger *slog.Logger) *Relay {
	return &Relay{
		hub:       hub,
		transport: transport,
		pending:   NewPendingTable(),
		logger:    logger,
	}
}

// Issue sends one correlated request to sessionKey and suspends the calling
// goroutine until the matching response arrives, the timeout elapses, or ctx
// is cancelled. This is the only suspension point in the orchestration
// subsystem; concurrent calls never block each other.
//
// The pending entry is removed exactly once via PendingTable.Take. When the
// timeout or cancellation loses the race to an arriving response, the
// response's result is used instead.
func (r *Relay) Issue(ctx context.Context, sessionKey, action string, payload json.RawMessage, timeout time.Duration) (domain.Outcome, error) {
	if !r.hub.IsLive(sessionKey) {
		return domain.Outcome{}, ErrNotConnected
	}

	call := &pendingCall{
		requestID:  uuid.NewString(),
		sessionKey: sessionKey,
		deadline:   time.Now().Add(timeout),
		result:     make(chan domain.Outcome, 1),
	}
	r.pending.Put(call)

	envelope := RequestEnvelope{
		RequestID: call.requestID,
		Action:    action,
		Payload:   payload,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		r.pending.Take(call.requestID)
		return domain.Outcome{}, fmt.Errorf("failed to marshal request envelope: %w", err)
	}

	if err := r.transport.Send(ctx, sessionKey, body); err != nil {
		// The request never left, reclaim the entry so the table cannot leak.
		r.pending.Take(call.requestID)
		return domain.Outcome{}, fmt.Errorf("failed to send request to session %s: %w", sessionKey, err)
	}

	r.logger.Debug("Correlated request issued",
		slog.String("request_id", call.requestID),
		slog.String("session_key", sessionKey),
		slog.String("action", action),
		slog.Duration("timeout", timeout),
	)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case outcome := <-call.result:
		return outcome, nil

	case <-timer.C:
		if _, won := r.pending.Take(call.requestID); won {
			r.logger.Warn("Correlated request timed out",
				slog.String("request_id", call.requestID),
				slog.String("session_key", sessionKey),
				slog.String("action", action),
			)
			return domain.Failure(
				domain.FailureTimeout,
				fmt.Sprintf("no response from remote actor within %s", timeout),
				true,
			), nil
		}
		// A response took the entry between the timer firing and our take;
		// it has already been (or is about to be) delivered on the channel.
		return <-call.result, nil

	case <-ctx.Done():
		if _, won := r.pending.Take(call.requestID); won {
			return domain.Outcome{}, fmt.Errorf("correlated request %s cancelled: %w", call.requestID, ctx.Err())
		}
		return <-call.result, nil
	}
}

// HandleResponse correlates one inbound response envelope with its pending
// request and resolves the suspended caller. A response whose request id is
// no longer pending (late, duplicate, or abandoned) is dropped without error.
func (r *Relay) HandleResponse(envelope ResponseEnvelope) {
	call, ok := r.pending.Take(envelope.RequestID)
	if !ok {
		r.logger.Debug("Dropping uncorrelated response",
			slog.String("request_id", envelope.RequestID),
		)
		return
	}

	if envelope.Success {
		call.result <- domain.Success(envelope.Data)
	} else {
		call.result <- domain.Failure(domain.FailureRemoteError, envelope.Error, false)
	}

	r.logger.Debug("Correlated response resolved",
		slog.String("request_id", envelope.RequestID),
		slog.String("session_key", call.sessionKey),
		slog.Bool("success", envelope.Success),
	)
}

// PendingCount exposes the number of in-flight requests, for readiness and
// shutdown reporting.
func (r *Relay) PendingCount() int {
	return r.pending.Len()
}

// Shutdown forcibly resolves every outstanding request so no dispatch worker
// stays suspended past process exit.
func (r *Relay) Shutdown() {
	drained := r.pending.Drain("relay shutting down")
	if drained > 0 {
		r.logger.Warn("Resolved outstanding correlated requests at shutdown",
			slog.Int("count", drained),
		)
	}
}
