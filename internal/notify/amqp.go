package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	mqcontracts "questboard/contracts/mq"
	"questboard/pkg/circuitbreaker"
	"questboard/pkg/logger"
	"questboard/pkg/metrics"
	"questboard/pkg/mq"
)

// AMQPNotifier publishes notification.created events to the topic exchange.
// A circuit breaker keeps a dead broker from stalling every mutation.
type AMQPNotifier struct {
	publisher *mq.Publisher
	breaker   *circuitbreaker.CircuitBreaker
	logger    *zap.Logger
}

func NewAMQPNotifier(publisher *mq.Publisher, log *zap.Logger) *AMQPNotifier {
	return &AMQPNotifier{
		publisher: publisher,
		breaker:   circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig()),
		logger:    log,
	}
}

func (n *AMQPNotifier) Notify(ctx context.Context, userID, message, severity string) {
	payload := mqcontracts.NotificationCreatedPayload{
		UserID:    userID,
		Message:   message,
		Severity:  severity,
		CreatedAt: time.Now(),
	}

	err := n.breaker.Execute(func() error {
		return n.publisher.Publish(mqcontracts.RoutingKeyNotificationCreated, payload)
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrCircuitBreakerOpen) {
			metrics.IncrementNotificationPublish("breaker_open")
		} else {
			metrics.IncrementNotificationPublish("failed")
		}
		logger.WithTrace(ctx, n.logger).Warn("Failed to publish notification",
			zap.String("user_id", userID),
			zap.String("severity", severity),
			zap.Error(err),
		)
		return
	}

	metrics.IncrementNotificationPublish("success")
}
