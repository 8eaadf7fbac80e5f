package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"questboard/internal/repository"
	"questboard/internal/service/achievement"
	"questboard/internal/service/task"
)

type AchievementHandler struct {
	catalog     []achievement.Achievement
	userRepo    *repository.UserRepository
	taskService *task.Service
	logger      *zap.Logger
}

func NewAchievementHandler(
	catalog []achievement.Achievement,
	userRepo *repository.UserRepository,
	taskService *task.Service,
	logger *zap.Logger,
) *AchievementHandler {
	return &AchievementHandler{
		catalog:     catalog,
		userRepo:    userRepo,
		taskService: taskService,
		logger:      logger,
	}
}

// List returns the full catalog with the caller's unlock state per entry.
func (h *AchievementHandler) List(c *gin.Context) {
	me := actor(c)

	user, err := h.userRepo.GetUser(c.Request.Context(), me.ID)
	if err != nil {
		h.logger.Error("Failed to load user for achievements",
			zap.String("user_id", me.ID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch achievements"})
		return
	}
	if user == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	type entry struct {
		ID          string `json:"id"`
		Title       string `json:"title"`
		Description string `json:"description"`
		XPBonus     int    `json:"xp_bonus"`
		Unlocked    bool   `json:"unlocked"`
	}

	out := make([]entry, 0, len(h.catalog))
	for _, a := range h.catalog {
		out = append(out, entry{
			ID:          a.ID,
			Title:       a.Title,
			Description: a.Description,
			XPBonus:     a.XPBonus,
			Unlocked:    user.HasAchievement(a.ID),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"xp":           user.XP,
		"achievements": out,
	})
}

// Recheck re-runs the evaluation for the caller against their current tasks.
func (h *AchievementHandler) Recheck(c *gin.Context) {
	h.taskService.RecheckAchievements(c.Request.Context(), actor(c))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
