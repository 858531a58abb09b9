package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/marketops-be/shared/rabbitmq"
)

// ActorRoutingPrefix namespaces actor-bound request envelopes on the shared
// topic exchange. The remote actor's session consumes "actor.{session_key}".
const ActorRoutingPrefix = "actor."

// AMQPTransport delivers request envelopes over RabbitMQ. Each live session
// is addressed by its own routing key; responses come back on a shared reply
// queue and are fed to Relay.HandleResponse by the consumer loop.
type AMQPTransport struct {
	client     *rabbitmq.Client
	replyQueue string
	logger     *slog.Logger
}

// NewAMQPTransport creates the transport and declares the shared reply queue.
func NewAMQPTransport(client *rabbitmq.Client, replyQueue string, logger *slog.Logger) (*AMQPTransport, error) {
	err := client.DeclareQueue(rabbitmq.QueueSpec{
		Name:       replyQueue,
		RoutingKey: replyQueue,
		Durable:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to declare reply queue: %w", err)
	}

	return &AMQPTransport{
		client:     client,
		replyQueue: replyQueue,
		logger:     logger,
	}, nil
}

// Send publishes one request envelope to the session's routing key. The
// envelope's request id doubles as the AMQP correlation id so intermediaries
// can trace the pair.
func (t *AMQPTransport) Send(ctx context.Context, sessionKey string, body []byte) error {
	var envelope RequestEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return fmt.Errorf("malformed request envelope: %w", err)
	}

	return t.client.Publish(ctx, ActorRoutingPrefix+sessionKey, body, envelope.RequestID, t.replyQueue)
}

// ConsumeResponses drains the reply queue and feeds each response envelope to
// the relay until ctx is cancelled or the delivery channel closes. Malformed
// replies are rejected without requeue; correlation misses are the relay's
// business, so every parsed reply is acked.
func (t *AMQPTransport) ConsumeResponses(ctx context.Context, relay *Relay, consumerTag string) error {
	deliveries, err := t.client.Consume(t.replyQueue, consumerTag)
	if err != nil {
		return fmt.Errorf("failed to consume reply queue: %w", err)
	}

	t.logger.Info("Relay response consumer started",
		slog.String("queue", t.replyQueue),
		slog.String("consumer_tag", consumerTag),
	)

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("Relay response consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				t.logger.Warn("Relay reply delivery channel closed")
				return nil
			}

			var envelope ResponseEnvelope
			if err := json.Unmarshal(delivery.Body, &envelope); err != nil {
				t.logger.Error("Failed to parse response envelope",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					t.logger.Error("Failed to NACK malformed response",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			relay.HandleResponse(envelope)

			if ackErr := delivery.Ack(false); ackErr != nil {
				t.logger.Error("Failed to ACK response",
					slog.String("request_id", envelope.RequestID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}
