package mq

import "time"

// Routing keys on the events exchange.
const (
	RoutingKeyNotificationCreated = "notification.created"
	RoutingKeyTaskUpdated         = "task.updated"
	RoutingKeyTaskDeleted         = "task.deleted"
	RoutingKeyAchievementUnlocked = "achievement.unlocked"
)

type NotificationCreatedPayload struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // success / error / info / warning
	CreatedAt time.Time `json:"created_at"`
}

type TaskUpdatedPayload struct {
	TaskID    string `json:"task_id"`
	ProjectID string `json:"project_id"`
	Status    string `json:"status"`
	Progress  int    `json:"progress"`
}

type TaskDeletedPayload struct {
	TaskID string `json:"task_id"`
}

type AchievementUnlockedPayload struct {
	UserID        string `json:"user_id"`
	AchievementID string `json:"achievement_id"`
	Title         string `json:"title"`
	XPBonus       int    `json:"xp_bonus"`
}
