package httpserver

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"questboard/internal/handler"
	"questboard/pkg/mq"
	"questboard/pkg/rbac"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
	projectHandler *handler.ProjectHandler,
	snippetHandler *handler.SnippetHandler,
	notificationHandler *handler.NotificationHandler,
	achievementHandler *handler.AchievementHandler,
	adminHandler *handler.AdminHandler,
	jwtSecret string,
	logger *zap.Logger,
	db *pgxpool.Pool,
	consumer *mq.Consumer,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(TraceMiddleware())
	r.Use(RequestLogMiddleware(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if consumer != nil && !consumer.IsConnected() {
			c.JSON(500, gin.H{"status": "mq_not_ready"})
			return
		}

		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", authHandler.Register)
	r.POST("/login", authHandler.Login)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.GET("/tasks", RequirePermission(rbac.PermissionReadTask), taskHandler.List)
		auth.POST("/tasks", RequirePermission(rbac.PermissionCreateTask), taskHandler.Create)
		auth.GET("/tasks/:id", RequirePermission(rbac.PermissionReadTask), taskHandler.Get)
		auth.GET("/tasks/:id/open", RequirePermission(rbac.PermissionReadTask), taskHandler.Open)
		auth.PATCH("/tasks/:id", RequirePermission(rbac.PermissionUpdateTask), taskHandler.Update)
		auth.DELETE("/tasks/:id", RequirePermission(rbac.PermissionDeleteTask), taskHandler.Delete)

		auth.POST("/tasks/:id/comments", RequirePermission(rbac.PermissionUpdateTask), taskHandler.AddComment)
		auth.POST("/tasks/:id/comments/:comment_id/reactions", RequirePermission(rbac.PermissionUpdateTask), taskHandler.React)

		auth.POST("/tasks/:id/timer/start", RequirePermission(rbac.PermissionUpdateTask), taskHandler.StartTimer)
		auth.POST("/tasks/:id/timer/stop", RequirePermission(rbac.PermissionUpdateTask), taskHandler.StopTimer)
		auth.POST("/tasks/:id/timer/heartbeat", RequirePermission(rbac.PermissionUpdateTask), taskHandler.HeartbeatTimer)

		auth.GET("/projects", projectHandler.List)
		auth.POST("/projects", RequirePermission(rbac.PermissionCreateProject), projectHandler.Create)
		auth.GET("/projects/:id", projectHandler.Get)
		auth.DELETE("/projects/:id", RequirePermission(rbac.PermissionDeleteProject), projectHandler.Delete)

		auth.GET("/snippets", snippetHandler.List)
		auth.POST("/snippets", snippetHandler.Create)
		auth.GET("/snippets/:id", snippetHandler.Get)
		auth.DELETE("/snippets/:id", snippetHandler.Delete)

		auth.GET("/notifications", notificationHandler.List)
		auth.POST("/notifications/:id/read", notificationHandler.MarkRead)

		auth.GET("/achievements", achievementHandler.List)
		auth.POST("/achievements/recheck", achievementHandler.Recheck)

		auth.POST("/admin/outbox/replay", RequirePermission(rbac.PermissionManageUsers), adminHandler.ReplayOutboxEvent)
	}

	return &Router{Engine: r}
}
