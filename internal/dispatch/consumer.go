package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/marketops-be/shared/rabbitmq"
)

// NudgeQueue carries enqueue notifications from the API service. The payload
// is advisory; the selection loop re-reads dispatch order from the store, so
// a lost or duplicated nudge costs at most one poll interval of latency.
const NudgeQueue = "job_nudges"

// ConsumeNudges wakes the engine whenever the API service enqueues work,
// until ctx is cancelled or the delivery channel closes.
func (e *Engine) ConsumeNudges(ctx context.Context, client *rabbitmq.Client) error {
	err := client.DeclareQueue(rabbitmq.QueueSpec{
		Name:       NudgeQueue,
		RoutingKey: NudgeQueue,
		Durable:    true,
	})
	if err != nil {
		return fmt.Errorf("failed to declare nudge queue: %w", err)
	}

	deliveries, err := client.Consume(NudgeQueue, e.engineID)
	if err != nil {
		return fmt.Errorf("failed to consume nudge queue: %w", err)
	}

	e.logger.Info("Nudge consumer started",
		slog.String("queue", NudgeQueue),
		slog.String("engine_id", e.engineID),
	)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("Nudge consumer stopped - context canceled")
			return nil

		case <-e.stopChan:
			e.logger.Info("Nudge consumer stopped - engine stopping")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				e.logger.Warn("Nudge delivery channel closed")
				return nil
			}

			e.Nudge()

			if ackErr := delivery.Ack(false); ackErr != nil {
				e.logger.Error("Failed to ACK nudge",
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}
