package task

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/pkg/logger"
	"questboard/pkg/metrics"
)

// TimerStateError reports a start against an already running timer.
type TimerStateError struct {
	TaskID string
	State  string
}

func (e *TimerStateError) Error() string {
	return fmt.Sprintf("timer for task %s is already %s", e.TaskID, e.State)
}

// elapsedSeconds is the single elapsed-time formula shared by stop and
// heartbeat, rounded exactly once at the persistence boundary. Using one
// function keeps concurrent stop/heartbeat races from double-counting.
func elapsedSeconds(now time.Time, startedAtMs int64) int64 {
	elapsed := float64(now.UnixMilli()-startedAtMs) / 1000.0
	if elapsed < 0 {
		return 0
	}
	return int64(math.Round(elapsed))
}

// StartTimer transitions STOPPED -> RUNNING. Starting an already running
// timer is rejected rather than double-started.
func (s *Service) StartTimer(ctx context.Context, taskID string, actor model.User) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}

	if existing.TimerStartedAt != nil {
		return nil, &TimerStateError{TaskID: taskID, State: "running"}
	}

	now := s.clock.Now()
	updated := *existing
	startMs := now.UnixMilli()
	updated.TimerStartedAt = &startMs
	updated.ActivityLog = appendEntry(existing.ActivityLog, model.ActivityLogEntry{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Action:    "started time tracking",
		Timestamp: now.UnixMilli(),
	})

	saved, err := s.tasks.SaveTask(ctx, &updated)
	if err != nil {
		return nil, &PersistenceError{Op: "timer start", Err: err}
	}

	metrics.IncrementTaskMutation("timer_start")
	logger.WithTrace(ctx, s.logger).Info("Timer started",
		zap.String("task_id", taskID),
		zap.String("actor", actor.ID),
	)
	return saved, nil
}

// StopTimer transitions RUNNING -> STOPPED, folding the elapsed session into
// TimeSpent. Stopping a stopped timer is a no-op, which also makes the
// stop-vs-heartbeat race harmless: whichever lands second sees a nil
// TimerStartedAt and changes nothing.
func (s *Service) StopTimer(ctx context.Context, taskID string, actor model.User) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}

	if existing.TimerStartedAt == nil {
		return existing, nil
	}

	now := s.clock.Now()
	elapsed := elapsedSeconds(now, *existing.TimerStartedAt)

	updated := *existing
	updated.TimeSpent += elapsed
	updated.TimerStartedAt = nil
	updated.ActivityLog = appendEntry(existing.ActivityLog, model.ActivityLogEntry{
		ID:        uuid.NewString(),
		UserID:    actor.ID,
		Action:    fmt.Sprintf("stopped time tracking (%s)", formatElapsed(elapsed)),
		Timestamp: now.UnixMilli(),
	})

	saved, err := s.tasks.SaveTask(ctx, &updated)
	if err != nil {
		return nil, &PersistenceError{Op: "timer stop", Err: err}
	}

	metrics.IncrementTaskMutation("timer_stop")
	logger.WithTrace(ctx, s.logger).Info("Timer stopped",
		zap.String("task_id", taskID),
		zap.Int64("elapsed_seconds", elapsed),
		zap.String("actor", actor.ID),
	)

	// Folding a session can push cumulative tracked time past an achievement
	// threshold without any completion edge, so re-evaluate for the assignee.
	if elapsed > 0 && saved.AssignedTo != "" {
		s.RecheckAchievements(ctx, model.User{ID: saved.AssignedTo})
	}

	return saved, nil
}

// HeartbeatTimer folds the elapsed time of a running session into TimeSpent
// and restarts the session clock, bounding data loss if the client dies.
// Fired on a fixed interval while a timer is RUNNING; a heartbeat against a
// stopped timer is a no-op.
func (s *Service) HeartbeatTimer(ctx context.Context, taskID string) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}

	if existing.TimerStartedAt == nil {
		return existing, nil
	}

	now := s.clock.Now()
	elapsed := elapsedSeconds(now, *existing.TimerStartedAt)

	updated := *existing
	updated.TimeSpent += elapsed
	startMs := now.UnixMilli()
	updated.TimerStartedAt = &startMs

	saved, err := s.tasks.SaveTask(ctx, &updated)
	if err != nil {
		return nil, &PersistenceError{Op: "timer heartbeat", Err: err}
	}

	metrics.IncrementTaskMutation("timer_heartbeat")
	return saved, nil
}

// ReconcileTimerOnOpen stops a running timer when a task detail view is
// freshly opened, so a timer never keeps accruing once nobody is watching
// it. The trigger is the caller's; the transition is the same as StopTimer
// attributed to the system actor.
func (s *Service) ReconcileTimerOnOpen(ctx context.Context, taskID string) (*model.Task, error) {
	existing, err := s.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &NotFoundError{TaskID: taskID}
	}

	if existing.TimerStartedAt == nil {
		return existing, nil
	}

	return s.StopTimer(ctx, taskID, model.User{ID: model.SystemUserID})
}

func appendEntry(log []model.ActivityLogEntry, entry model.ActivityLogEntry) []model.ActivityLogEntry {
	return append(append([]model.ActivityLogEntry(nil), log...), entry)
}

func formatElapsed(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	return fmt.Sprintf("%dm %ds", seconds/60, seconds%60)
}
