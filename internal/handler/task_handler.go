package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/internal/repository"
	"questboard/internal/service/task"
)

type TaskHandler struct {
	service *task.Service
	repo    *repository.TaskRepository
	// heartbeatSeconds is the fold cadence clients follow while a timer runs;
	// timer responses echo it so clients never hardcode the interval.
	heartbeatSeconds int
	logger           *zap.Logger
}

func NewTaskHandler(service *task.Service, repo *repository.TaskRepository, heartbeatSeconds int, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{service: service, repo: repo, heartbeatSeconds: heartbeatSeconds, logger: logger}
}

// actor reconstructs the acting user from the auth middleware context.
func actor(c *gin.Context) model.User {
	userID, _ := c.Get("user_id")
	role, _ := c.Get("role")
	uid, _ := userID.(string)
	r, _ := role.(string)
	return model.User{ID: uid, Role: r}
}

// writeTaskError maps service errors onto HTTP statuses.
func writeTaskError(c *gin.Context, err error) {
	var validationErr *task.ValidationError
	var notFoundErr *task.NotFoundError
	var timerErr *task.TimerStateError
	var persistErr *task.PersistenceError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		c.JSON(http.StatusNotFound, gin.H{"error": notFoundErr.Error()})
	case errors.As(err, &timerErr):
		c.JSON(http.StatusConflict, gin.H{"error": timerErr.Error()})
	case errors.As(err, &persistErr):
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type createTaskRequest struct {
	Title       string             `json:"title" binding:"required"`
	Description string             `json:"description" binding:"required"`
	ProjectID   string             `json:"project_id" binding:"required"`
	AssignedTo  string             `json:"assigned_to"`
	Deadline    *int64             `json:"deadline"`
	Priority    model.TaskPriority `json:"priority"`
	Subtasks    []model.Subtask    `json:"subtasks"`
	Tags        []string           `json:"tags"`
	DependsOn   []string           `json:"depends_on"`
	Order       float64            `json:"order"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), task.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		Deadline:    req.Deadline,
		Priority:    req.Priority,
		Subtasks:    req.Subtasks,
		Tags:        req.Tags,
		DependsOn:   req.DependsOn,
		Order:       req.Order,
	}, actor(c))
	if err != nil {
		writeTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

func (h *TaskHandler) Get(c *gin.Context) {
	t, err := h.repo.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.logger.Error("Get task failed", zap.String("task_id", c.Param("id")), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch task"})
		return
	}
	if t == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	c.JSON(http.StatusOK, t)
}

// Open fetches a task for the detail view, stopping any timer left running.
func (h *TaskHandler) Open(c *gin.Context) {
	t, err := h.service.ReconcileTimerOnOpen(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		tasks []model.Task
		err   error
	)
	switch {
	case c.Query("project_id") != "":
		tasks, err = h.repo.ListTasksByProject(ctx, c.Query("project_id"))
	case c.Query("assignee") != "":
		tasks, err = h.repo.ListTasksByAssignee(ctx, c.Query("assignee"))
	default:
		tasks, err = h.repo.ListAllTasks(ctx)
	}
	if err != nil {
		h.logger.Error("List tasks failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Update(c *gin.Context) {
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), patch, actor(c))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *TaskHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), actor(c)); err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

func (h *TaskHandler) AddComment(c *gin.Context) {
	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.AddComment(c.Request.Context(), c.Param("id"), req.Text, actor(c))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

type reactionRequest struct {
	Emoji string `json:"emoji" binding:"required"`
}

func (h *TaskHandler) React(c *gin.Context) {
	var req reactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.service.React(c.Request.Context(), c.Param("id"), c.Param("comment_id"), req.Emoji, actor(c))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *TaskHandler) StartTimer(c *gin.Context) {
	updated, err := h.service.StartTimer(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"task":              updated,
		"heartbeat_seconds": h.heartbeatSeconds,
	})
}

func (h *TaskHandler) StopTimer(c *gin.Context) {
	updated, err := h.service.StopTimer(c.Request.Context(), c.Param("id"), actor(c))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *TaskHandler) HeartbeatTimer(c *gin.Context) {
	updated, err := h.service.HeartbeatTimer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeTaskError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"time_spent":        updated.TimeSpent,
		"timer_started_at":  updated.TimerStartedAt,
		"heartbeat_seconds": h.heartbeatSeconds,
	})
}
