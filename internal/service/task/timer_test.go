package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"questboard/internal/model"
)

func TestStartTimer(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	started, err := env.service.StartTimer(context.Background(), created.ID, actor)
	if err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	if started.TimerStartedAt == nil {
		t.Fatal("expected timer_started_at set")
	}
	if *started.TimerStartedAt != testStart.UnixMilli() {
		t.Errorf("timer_started_at = %d, want %d", *started.TimerStartedAt, testStart.UnixMilli())
	}
	last := started.ActivityLog[len(started.ActivityLog)-1]
	if last.Action != "started time tracking" {
		t.Errorf("audit action = %q", last.Action)
	}

	t.Run("double start rejected", func(t *testing.T) {
		_, err := env.service.StartTimer(context.Background(), created.ID, actor)
		var stateErr *TimerStateError
		if !errors.As(err, &stateErr) {
			t.Fatalf("expected TimerStateError, got %v", err)
		}
	})

	t.Run("missing task", func(t *testing.T) {
		_, err := env.service.StartTimer(context.Background(), "missing", actor)
		var nfErr *NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}

func TestStopTimer_FoldsElapsed(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	if _, err := env.service.StartTimer(context.Background(), created.ID, actor); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}

	env.clock.Advance(90 * time.Second)
	stopped, err := env.service.StopTimer(context.Background(), created.ID, actor)
	if err != nil {
		t.Fatalf("StopTimer() error: %v", err)
	}
	if stopped.TimeSpent != 90 {
		t.Errorf("time_spent = %d, want 90", stopped.TimeSpent)
	}
	if stopped.TimerStartedAt != nil {
		t.Error("expected timer_started_at cleared")
	}
	last := stopped.ActivityLog[len(stopped.ActivityLog)-1]
	if !strings.Contains(last.Action, "stopped time tracking") {
		t.Errorf("audit action = %q", last.Action)
	}
	if !strings.Contains(last.Action, "1m 30s") {
		t.Errorf("expected elapsed display in action, got %q", last.Action)
	}
}

func TestStopTimer_StoppedIsNoOp(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	before, _ := env.tasks.GetTask(context.Background(), created.ID)
	stopped, err := env.service.StopTimer(context.Background(), created.ID, actor)
	if err != nil {
		t.Fatalf("StopTimer() error: %v", err)
	}
	if stopped.TimeSpent != before.TimeSpent {
		t.Errorf("time_spent changed on no-op stop: %d -> %d", before.TimeSpent, stopped.TimeSpent)
	}
	if len(stopped.ActivityLog) != len(before.ActivityLog) {
		t.Error("no-op stop should not append audit entries")
	}
}

func TestStopTimer_RechecksTimeSpentAchievements(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	// Accumulated time just under the 10h marathoner threshold.
	seeded, _ := env.tasks.GetTask(context.Background(), created.ID)
	seeded.TimeSpent = 35940
	if _, err := env.tasks.SaveTask(context.Background(), seeded); err != nil {
		t.Fatalf("seed save error: %v", err)
	}

	if _, err := env.service.StartTimer(context.Background(), created.ID, actor); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}
	env.clock.Advance(2 * time.Minute)
	stopped, err := env.service.StopTimer(context.Background(), created.ID, actor)
	if err != nil {
		t.Fatalf("StopTimer() error: %v", err)
	}
	if stopped.TimeSpent != 36060 {
		t.Fatalf("time_spent = %d, want 36060", stopped.TimeSpent)
	}

	user, _ := env.users.GetUser(context.Background(), actor.ID)
	if !user.HasAchievement("marathoner") {
		t.Error("expected marathoner unlocked by the stop, without any completion")
	}
	if user.XP != 200 {
		t.Errorf("xp = %d, want 200", user.XP)
	}

	var found bool
	for _, msg := range env.notifier.all() {
		if strings.Contains(msg, "Marathoner") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a Marathoner unlock notification, got %v", env.notifier.all())
	}
}

func TestHeartbeatTimer(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	if _, err := env.service.StartTimer(context.Background(), created.ID, actor); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}

	env.clock.Advance(30 * time.Second)
	beat, err := env.service.HeartbeatTimer(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("HeartbeatTimer() error: %v", err)
	}
	if beat.TimeSpent != 30 {
		t.Errorf("time_spent = %d, want 30", beat.TimeSpent)
	}
	if beat.TimerStartedAt == nil {
		t.Fatal("heartbeat must keep the timer running")
	}
	if *beat.TimerStartedAt != env.clock.Now().UnixMilli() {
		t.Errorf("session clock not restarted: %d", *beat.TimerStartedAt)
	}

	// Heartbeats accumulate without double counting.
	env.clock.Advance(30 * time.Second)
	beat, err = env.service.HeartbeatTimer(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("HeartbeatTimer() error: %v", err)
	}
	if beat.TimeSpent != 60 {
		t.Errorf("time_spent = %d, want 60", beat.TimeSpent)
	}

	// Stop right after a heartbeat adds only the tail.
	env.clock.Advance(10 * time.Second)
	stopped, err := env.service.StopTimer(context.Background(), created.ID, actor)
	if err != nil {
		t.Fatalf("StopTimer() error: %v", err)
	}
	if stopped.TimeSpent != 70 {
		t.Errorf("time_spent = %d, want 70", stopped.TimeSpent)
	}
}

func TestHeartbeatTimer_StoppedIsNoOp(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	beat, err := env.service.HeartbeatTimer(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("HeartbeatTimer() error: %v", err)
	}
	if beat.TimeSpent != 0 || beat.TimerStartedAt != nil {
		t.Errorf("no-op heartbeat mutated task: spent=%d started=%v", beat.TimeSpent, beat.TimerStartedAt)
	}
}

func TestReconcileTimerOnOpen(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	if _, err := env.service.StartTimer(context.Background(), created.ID, actor); err != nil {
		t.Fatalf("StartTimer() error: %v", err)
	}

	env.clock.Advance(2 * time.Minute)
	opened, err := env.service.ReconcileTimerOnOpen(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ReconcileTimerOnOpen() error: %v", err)
	}
	if opened.TimerStartedAt != nil {
		t.Error("expected timer stopped on open")
	}
	if opened.TimeSpent != 120 {
		t.Errorf("time_spent = %d, want 120", opened.TimeSpent)
	}
	last := opened.ActivityLog[len(opened.ActivityLog)-1]
	if last.UserID != model.SystemUserID {
		t.Errorf("reconcile entry actor = %q, want system", last.UserID)
	}

	t.Run("stopped timer untouched", func(t *testing.T) {
		again, err := env.service.ReconcileTimerOnOpen(context.Background(), created.ID)
		if err != nil {
			t.Fatalf("ReconcileTimerOnOpen() error: %v", err)
		}
		if again.TimeSpent != 120 {
			t.Errorf("time_spent = %d, want 120", again.TimeSpent)
		}
	})
}

func TestElapsedSeconds(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int64
	}{
		{"zero", 0, 0},
		{"sub-second rounds down", 400 * time.Millisecond, 0},
		{"sub-second rounds up", 600 * time.Millisecond, 1},
		{"exact minute", time.Minute, 60},
		{"half second boundary", 1500 * time.Millisecond, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := elapsedSeconds(base.Add(tt.elapsed), base.UnixMilli())
			if got != tt.want {
				t.Errorf("elapsedSeconds(%v) = %d, want %d", tt.elapsed, got, tt.want)
			}
		})
	}

	t.Run("clock skew clamps to zero", func(t *testing.T) {
		got := elapsedSeconds(base, base.Add(time.Minute).UnixMilli())
		if got != 0 {
			t.Errorf("elapsedSeconds with future start = %d, want 0", got)
		}
	})
}
