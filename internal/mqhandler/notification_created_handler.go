package mqhandler

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	mqcontracts "questboard/contracts/mq"
	"questboard/internal/model"
	"questboard/internal/repository"
)

// NotificationCreatedHandler persists notification.created events into the
// in-app inbox.
type NotificationCreatedHandler struct {
	repo   *repository.NotificationRepository
	logger *zap.Logger
}

func NewNotificationCreatedHandler(repo *repository.NotificationRepository, logger *zap.Logger) *NotificationCreatedHandler {
	return &NotificationCreatedHandler{
		repo:   repo,
		logger: logger,
	}
}

func (h *NotificationCreatedHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	var p mqcontracts.NotificationCreatedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		h.logger.Error("Failed to unmarshal notification payload", zap.Error(err))
		return err
	}

	notif := &model.Notification{
		UserID:   p.UserID,
		Message:  p.Message,
		Severity: p.Severity,
	}

	if err := h.repo.Insert(ctx, notif); err != nil {
		h.logger.Error("Failed to insert notification",
			zap.String("user_id", p.UserID),
			zap.Error(err),
		)
		return err
	}

	h.logger.Info("Notification stored",
		zap.String("user_id", p.UserID),
		zap.String("severity", p.Severity),
	)
	return nil
}
