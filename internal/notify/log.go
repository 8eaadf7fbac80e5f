package notify

import (
	"context"

	"go.uber.org/zap"
)

// LogNotifier writes notifications to the log only. Used when no broker is
// configured and in tests.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: log}
}

func (n *LogNotifier) Notify(ctx context.Context, userID, message, severity string) {
	n.logger.Info("Notification",
		zap.String("user_id", userID),
		zap.String("severity", severity),
		zap.String("message", message),
	)
}
