package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "questboard/contracts/mq"
	"questboard/internal/model"
	"questboard/internal/notify"
	"questboard/internal/service/achievement"
	"questboard/pkg/clock"
	"questboard/pkg/logger"
	"questboard/pkg/metrics"
)

// TaskStore is the persistence collaborator for tasks. SaveTask is an upsert
// by id and returns the store's authoritative copy.
type TaskStore interface {
	SaveTask(ctx context.Context, t *model.Task) (*model.Task, error)
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasksByAssignee(ctx context.Context, userID string) ([]model.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// UserStore is the persistence collaborator for users.
type UserStore interface {
	SaveUser(ctx context.Context, u *model.User) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// ProjectStore resolves projects for audit display names.
type ProjectStore interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
}

// EventPublisher publishes domain events to the message exchange.
type EventPublisher interface {
	Publish(routingKey string, payload any) error
}

// XPConfig is the tunable award table for status-completion XP.
type XPConfig struct {
	BaseCompletion        int `yaml:"base_completion"`
	HighPriorityBonus     int `yaml:"high_priority_bonus"`
	CriticalPriorityBonus int `yaml:"critical_priority_bonus"`
}

// DefaultXPConfig returns the stock award amounts.
func DefaultXPConfig() XPConfig {
	return XPConfig{
		BaseCompletion:        150,
		HighPriorityBonus:     100,
		CriticalPriorityBonus: 250,
	}
}

// Service is the task mutation orchestrator. Every task mutation flows
// through it so derived fields, the audit trail and XP awards stay
// consistent; callers never assign task fields directly.
type Service struct {
	tasks     TaskStore
	users     UserStore
	projects  ProjectStore
	notifier  notify.Notifier
	evaluator *achievement.Evaluator
	events    EventPublisher
	clock     clock.Clock
	xp        XPConfig
	logger    *zap.Logger
}

func NewService(
	tasks TaskStore,
	users UserStore,
	projects ProjectStore,
	notifier notify.Notifier,
	evaluator *achievement.Evaluator,
	clk clock.Clock,
	xp XPConfig,
	log *zap.Logger,
) *Service {
	return &Service{
		tasks:     tasks,
		users:     users,
		projects:  projects,
		notifier:  notifier,
		evaluator: evaluator,
		clock:     clk,
		xp:        xp,
		logger:    log,
	}
}

// WithEventPublisher attaches a best-effort publisher for achievement.unlocked
// events. Publish failures are logged, never surfaced.
func (s *Service) WithEventPublisher(pub EventPublisher) *Service {
	s.events = pub
	return s
}

// CreateTaskInput carries the caller-supplied fields for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	ProjectID   string
	AssignedTo  string
	Deadline    *int64
	Priority    model.TaskPriority
	Subtasks    []model.Subtask
	Tags        []string
	DependsOn   []string
	Order       float64
}

// Create builds and persists a new task: synthetic id, derived progress and
// a single "created" audit entry. No diffing and no XP on creation.
func (s *Service) Create(ctx context.Context, in CreateTaskInput, actor model.User) (*model.Task, error) {
	now := s.clock.Now()

	priority := in.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	t := &model.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		ProjectID:   in.ProjectID,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   actor.ID,
		CreatedAt:   now.UnixMilli(),
		Deadline:    in.Deadline,
		Status:      model.StatusTodo,
		Priority:    priority,
		Subtasks:    in.Subtasks,
		Tags:        in.Tags,
		DependsOn:   in.DependsOn,
		Order:       in.Order,
		Progress:    Progress(in.Subtasks),
		ActivityLog: []model.ActivityLogEntry{
			{
				ID:        uuid.NewString(),
				UserID:    actor.ID,
				Action:    "created this task",
				Timestamp: now.UnixMilli(),
			},
		},
	}

	if err := validate(t); err != nil {
		return nil, err
	}

	saved, err := s.tasks.SaveTask(ctx, t)
	if err != nil {
		return nil, &PersistenceError{Op: "task create", Err: err}
	}

	metrics.IncrementTaskMutation("create")
	logger.WithTrace(ctx, s.logger).Info("Task created",
		zap.String("task_id", saved.ID),
		zap.String("project_id", saved.ProjectID),
		zap.String("actor", actor.ID),
	)

	return saved, nil
}

// Update applies a partial update to an existing task. Steps run in a fixed
// order: validate, recompute progress, diff into audit entries, stamp or
// clear completedAt on the DONE edge, persist, then award XP and evaluate
// achievements. A task persistence failure aborts before any XP side effect.
func (s *Service) Update(ctx context.Context, taskID string, patch model.TaskPatch, actor model.User) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}

	incoming := mergePatch(existing, patch)

	if err := validate(incoming); err != nil {
		return nil, err
	}

	now := s.clock.Now()

	// Derived fields are never trusted from caller input.
	incoming.Progress = Progress(incoming.Subtasks)

	entries := TrackChanges(ctx, existing, incoming, actor.ID, now, s)
	incoming.ActivityLog = append(append([]model.ActivityLogEntry(nil), existing.ActivityLog...), entries...)

	// completedAt follows the DONE edge: stamped on entry, cleared on exit.
	completedEdge := existing.Status != model.StatusDone && incoming.Status == model.StatusDone
	if completedEdge {
		ms := now.UnixMilli()
		incoming.CompletedAt = &ms
	} else if existing.Status == model.StatusDone && incoming.Status != model.StatusDone {
		incoming.CompletedAt = nil
	}

	xpDelta := 0
	if completedEdge {
		xpDelta = s.completionXP(incoming.Priority)
	}

	saved, err := s.tasks.SaveTask(ctx, incoming)
	if err != nil {
		// No XP and no achievement evaluation after a failed save; the
		// caller keeps its optimistic state and may retry.
		return nil, &PersistenceError{Op: "task update", Err: err}
	}

	metrics.IncrementTaskMutation("update")
	logger.WithTrace(ctx, s.logger).Info("Task updated",
		zap.String("task_id", saved.ID),
		zap.String("actor", actor.ID),
		zap.Int("audit_entries", len(entries)),
		zap.Int("xp_delta", xpDelta),
	)

	if xpDelta > 0 {
		s.awardXP(ctx, actor, xpDelta, saved)
	}

	return saved, nil
}

// Delete issues the delete request to the store.
func (s *Service) Delete(ctx context.Context, taskID string, actor model.User) error {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if existing == nil {
		return &NotFoundError{TaskID: taskID}
	}

	if err := s.tasks.DeleteTask(ctx, taskID); err != nil {
		return &PersistenceError{Op: "task delete", Err: err}
	}

	metrics.IncrementTaskMutation("delete")
	logger.WithTrace(ctx, s.logger).Info("Task deleted",
		zap.String("task_id", taskID),
		zap.String("actor", actor.ID),
	)
	return nil
}

// AddComment appends a comment and its audit entry through the orchestrator.
func (s *Service) AddComment(ctx context.Context, taskID, text string, actor model.User) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}
	if text == "" {
		return nil, &ValidationError{Field: "text", Reason: "is required"}
	}

	now := s.clock.Now()
	updated := *existing
	updated.Comments = append(append([]model.Comment(nil), existing.Comments...), model.Comment{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Text:      text,
		CreatedAt: now.UnixMilli(),
	})
	updated.ActivityLog = append(append([]model.ActivityLogEntry(nil), existing.ActivityLog...), model.ActivityLogEntry{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Action:    "commented on this task",
		Timestamp: now.UnixMilli(),
	})

	saved, err := s.tasks.SaveTask(ctx, &updated)
	if err != nil {
		return nil, &PersistenceError{Op: "comment", Err: err}
	}

	metrics.IncrementTaskMutation("comment")
	return saved, nil
}

// React toggles an emoji reaction on a comment for the acting user.
func (s *Service) React(ctx context.Context, taskID, commentID, emoji string, actor model.User) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}

	updated := *existing
	updated.Comments = append([]model.Comment(nil), existing.Comments...)
	found := false
	added := false
	for i, c := range updated.Comments {
		if c.ID != commentID {
			continue
		}
		found = true
		reactions := make(map[string][]string, len(c.Reactions))
		for k, v := range c.Reactions {
			reactions[k] = append([]string(nil), v...)
		}
		users := reactions[emoji]
		removed := false
		for j, uid := range users {
			if uid == actor.ID {
				reactions[emoji] = append(users[:j], users[j+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			reactions[emoji] = append(users, actor.ID)
			added = true
		}
		if len(reactions[emoji]) == 0 {
			delete(reactions, emoji)
		}
		updated.Comments[i].Reactions = reactions
		break
	}
	if !found {
		return nil, &ValidationError{Field: "comment_id", Reason: "does not exist"}
	}

	// Only an added reaction is worth an audit entry; un-reacting is silent.
	if added {
		updated.ActivityLog = append(append([]model.ActivityLogEntry(nil), existing.ActivityLog...), model.ActivityLogEntry{
			ID:        uuid.NewString(),
			UserID:    actor.ID,
			Action:    fmt.Sprintf("reacted with %s", emoji),
			Timestamp: s.clock.Now().UnixMilli(),
		})
	}

	saved, err := s.tasks.SaveTask(ctx, &updated)
	if err != nil {
		return nil, &PersistenceError{Op: "reaction", Err: err}
	}
	return saved, nil
}

// RecheckAchievements re-evaluates the catalog for a user against their
// current task set, persisting any newly unlocked state. Called after task
// set changes that did not award completion XP.
func (s *Service) RecheckAchievements(ctx context.Context, actor model.User) {
	user, err := s.users.GetUser(ctx, actor.ID)
	if err != nil || user == nil {
		logger.WithTrace(ctx, s.logger).Warn("Achievement recheck skipped: user load failed",
			zap.String("user_id", actor.ID),
			zap.Error(err),
		)
		return
	}

	tasks, err := s.tasks.ListTasksByAssignee(ctx, user.ID)
	if err != nil {
		logger.WithTrace(ctx, s.logger).Warn("Achievement recheck skipped: task list failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return
	}

	unlocked := s.evaluator.Evaluate(ctx, user, tasks)
	if len(unlocked) == 0 {
		return
	}

	s.publishUnlocks(user, unlocked)

	if _, err := s.users.SaveUser(ctx, user); err != nil {
		logger.WithTrace(ctx, s.logger).Error("Failed to persist user after achievement recheck",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
	}
}

// awardXP applies a completion award to the acting user, runs the
// achievement evaluation and persists the user. User persistence is
// best-effort: a failure is logged and never rolls back the task save.
func (s *Service) awardXP(ctx context.Context, actor model.User, xpDelta int, savedTask *model.Task) {
	log := logger.WithTrace(ctx, s.logger)

	user, err := s.users.GetUser(ctx, actor.ID)
	if err != nil || user == nil {
		log.Error("XP award skipped: user load failed",
			zap.String("user_id", actor.ID),
			zap.Error(err),
		)
		return
	}

	user.XP += xpDelta
	metrics.AddXPAwarded("completion", xpDelta)
	s.notifier.Notify(ctx, user.ID,
		fmt.Sprintf("Task completed! +%d XP", xpDelta),
		notify.SeveritySuccess,
	)

	tasks, err := s.tasks.ListTasksByAssignee(ctx, user.ID)
	if err != nil {
		log.Warn("Achievement evaluation skipped: task list failed",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		tasks = nil
	}

	var unlocked []achievement.Achievement
	if tasks != nil {
		unlocked = s.evaluator.Evaluate(ctx, user, tasks)
	}

	s.publishUnlocks(user, unlocked)

	if _, err := s.users.SaveUser(ctx, user); err != nil {
		// The task mutation is the authoritative transaction; user-XP sync
		// is best-effort and will reconcile on the next award.
		log.Error("Failed to persist user after XP award",
			zap.String("user_id", user.ID),
			zap.Int("xp_delta", xpDelta),
			zap.Error(err),
		)
		return
	}

	log.Info("XP awarded",
		zap.String("user_id", user.ID),
		zap.Int("xp_delta", xpDelta),
		zap.Int("unlocked", len(unlocked)),
		zap.String("task_id", savedTask.ID),
	)
}

func (s *Service) publishUnlocks(user *model.User, unlocked []achievement.Achievement) {
	if s.events == nil {
		return
	}
	for _, a := range unlocked {
		payload := mqcontracts.AchievementUnlockedPayload{
			UserID:        user.ID,
			AchievementID: a.ID,
			Title:         a.Title,
			XPBonus:       a.XPBonus,
		}
		if err := s.events.Publish(mqcontracts.RoutingKeyAchievementUnlocked, payload); err != nil {
			s.logger.Warn("Failed to publish achievement.unlocked",
				zap.String("user_id", user.ID),
				zap.String("achievement", a.ID),
				zap.Error(err),
			)
		}
	}
}

// completionXP reads the tunable award table for the DONE transition.
func (s *Service) completionXP(priority model.TaskPriority) int {
	xp := s.xp.BaseCompletion
	switch priority {
	case model.PriorityHigh:
		xp += s.xp.HighPriorityBonus
	case model.PriorityCritical:
		xp += s.xp.CriticalPriorityBonus
	}
	return xp
}

// UserName implements Resolver against the user store.
func (s *Service) UserName(ctx context.Context, id string) string {
	u, err := s.users.GetUser(ctx, id)
	if err != nil || u == nil {
		return id
	}
	return u.Username
}

// ProjectName implements Resolver against the project store.
func (s *Service) ProjectName(ctx context.Context, id string) string {
	if id == "" {
		return "none"
	}
	p, err := s.projects.GetProject(ctx, id)
	if err != nil || p == nil {
		return id
	}
	return p.Name
}

// mergePatch copies the existing task and lays the patch over it. Nil patch
// fields leave the existing value untouched.
func mergePatch(existing *model.Task, patch model.TaskPatch) *model.Task {
	merged := *existing

	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.ProjectID != nil {
		merged.ProjectID = *patch.ProjectID
	}
	if patch.AssignedTo != nil {
		merged.AssignedTo = *patch.AssignedTo
	}
	if patch.ClearDeadline {
		merged.Deadline = nil
	} else if patch.Deadline != nil {
		merged.Deadline = patch.Deadline
	}
	if patch.Status != nil {
		merged.Status = *patch.Status
	}
	if patch.Priority != nil {
		merged.Priority = *patch.Priority
	}
	if patch.Subtasks != nil {
		merged.Subtasks = *patch.Subtasks
	}
	if patch.Attachments != nil {
		merged.Attachments = *patch.Attachments
	}
	if patch.Tags != nil {
		merged.Tags = *patch.Tags
	}
	if patch.DependsOn != nil {
		merged.DependsOn = *patch.DependsOn
	}
	if patch.Order != nil {
		merged.Order = *patch.Order
	}

	return &merged
}

func validate(t *model.Task) error {
	if t.Title == "" {
		return &ValidationError{Field: "title", Reason: "is required"}
	}
	if t.Description == "" {
		return &ValidationError{Field: "description", Reason: "is required"}
	}
	if t.ProjectID == "" {
		return &ValidationError{Field: "project_id", Reason: "is required"}
	}
	return nil
}
