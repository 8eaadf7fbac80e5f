package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/pkg/metrics"
)

type NotificationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewNotificationRepository(db *pgxpool.Pool, logger *zap.Logger) *NotificationRepository {
	return &NotificationRepository{db: db, logger: logger}
}

func (r *NotificationRepository) Insert(ctx context.Context, n *model.Notification) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("insert", "notifications", time.Since(start))
	}()

	query := `
        INSERT INTO notifications (user_id, message, severity, read, created_at)
        VALUES ($1, $2, $3, FALSE, NOW())
        RETURNING id
    `

	err := r.db.QueryRow(ctx, query, n.UserID, n.Message, n.Severity).Scan(&n.ID)
	if err != nil {
		r.logger.Error("Failed to insert notification",
			zap.String("user_id", n.UserID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Notification, error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("select", "notifications", time.Since(start))
	}()

	query := `
        SELECT id, user_id, message, severity, read, created_at
        FROM notifications
        WHERE user_id = $1
        ORDER BY created_at DESC
        LIMIT $2
    `

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		r.logger.Error("Failed to query notifications",
			zap.String("user_id", userID),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	notifications := []model.Notification{}
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Message, &n.Severity, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id int, userID string) error {
	start := time.Now()
	defer func() {
		metrics.RecordDBQueryDuration("update", "notifications", time.Since(start))
	}()

	_, err := r.db.Exec(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return err
}
