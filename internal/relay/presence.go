package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/marketops-be/shared/rabbitmq"
)

// PresenceQueue carries session lifecycle announcements from remote actors.
// An actor publishes online=true when its channel opens and online=false on
// a clean shutdown; a missing offline announcement only means calls to that
// session time out instead of failing fast.
const PresenceQueue = "actor_presence"

// PresenceEnvelope is the wire format of a session lifecycle announcement.
type PresenceEnvelope struct {
	SessionKey string `json:"session_key"`
	Online     bool   `json:"online"`
}

// ConsumePresence updates the session hub from actor presence announcements
// until ctx is cancelled or the delivery channel closes.
func (t *AMQPTransport) ConsumePresence(ctx context.Context, hub *SessionHub, consumerTag string) error {
	err := t.client.DeclareQueue(rabbitmq.QueueSpec{
		Name:       PresenceQueue,
		RoutingKey: PresenceQueue,
		Durable:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to declare presence queue: %w", err)
	}

	deliveries, err := t.client.Consume(PresenceQueue, consumerTag)
	if err != nil {
		return fmt.Errorf("failed to consume presence queue: %w", err)
	}

	t.logger.Info("Presence consumer started",
		slog.String("queue", PresenceQueue),
		slog.String("consumer_tag", consumerTag),
	)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Presence consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				t.logger.Warn("Presence delivery channel closed")
				return nil
			}

			var envelope PresenceEnvelope
			if err := json.Unmarshal(delivery.Body, &envelope); err != nil || envelope.SessionKey == "" {
				t.logger.Warn("Dropping malformed presence announcement",
					slog.Int("body_size", len(delivery.Body)),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					t.logger.Error("Failed to NACK presence announcement",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if envelope.Online {
				hub.Register(envelope.SessionKey)
			} else {
				hub.Unregister(envelope.SessionKey)
			}

			if ackErr := delivery.Ack(false); ackErr != nil {
				t.logger.Error("Failed to ACK presence announcement",
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}
