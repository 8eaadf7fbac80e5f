package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"questboard/internal/model"
)

var testStart = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC) // a Monday

func devUser() model.User {
	return model.User{ID: "u-1", Username: "ada", Role: "DEVELOPER"}
}

func createTask(t *testing.T, env *testEnv, actor model.User) *model.Task {
	t.Helper()
	created, err := env.service.Create(context.Background(), CreateTaskInput{
		Title:       "Fix login flow",
		Description: "Session cookie is dropped on refresh",
		ProjectID:   "proj-1",
		AssignedTo:  actor.ID,
	}, actor)
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	return created
}

func TestCreate(t *testing.T) {
	env := newTestEnv(testStart, devUser())
	created := createTask(t, env, devUser())

	if created.ID == "" {
		t.Error("expected a generated id")
	}
	if created.Status != model.StatusTodo {
		t.Errorf("status = %s, want TODO", created.Status)
	}
	if created.Priority != model.PriorityMedium {
		t.Errorf("priority = %s, want MEDIUM", created.Priority)
	}
	if created.CreatedAt != testStart.UnixMilli() {
		t.Errorf("created_at = %d, want %d", created.CreatedAt, testStart.UnixMilli())
	}
	if len(created.ActivityLog) != 1 {
		t.Fatalf("expected 1 activity entry, got %d", len(created.ActivityLog))
	}
	if created.ActivityLog[0].Action != "created this task" {
		t.Errorf("unexpected creation entry action: %q", created.ActivityLog[0].Action)
	}
}

func TestCreate_Validation(t *testing.T) {
	env := newTestEnv(testStart, devUser())

	tests := []struct {
		name  string
		in    CreateTaskInput
		field string
	}{
		{"missing title", CreateTaskInput{Description: "d", ProjectID: "proj-1"}, "title"},
		{"missing description", CreateTaskInput{Title: "t", ProjectID: "proj-1"}, "description"},
		{"missing project", CreateTaskInput{Title: "t", Description: "d"}, "project_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.Create(context.Background(), tt.in, devUser())
			var vErr *ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if vErr.Field != tt.field {
				t.Errorf("field = %q, want %q", vErr.Field, tt.field)
			}
		})
	}
}

func TestUpdate_NotFound(t *testing.T) {
	env := newTestEnv(testStart, devUser())

	_, err := env.service.Update(context.Background(), "missing", model.TaskPatch{
		Title: strPtr("x"),
	}, devUser())

	var nfErr *NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdate_AuditEntriesInFixedOrder(t *testing.T) {
	env := newTestEnv(testStart, devUser())
	created := createTask(t, env, devUser())

	env.clock.Advance(5 * time.Minute)
	updated, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Title:    strPtr("Fix login flow properly"),
		Status:   statusPtr(model.StatusInProgress),
		Priority: priorityPtr(model.PriorityHigh),
		Tags:     &[]string{"auth", "bug"},
	}, devUser())
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	// creation entry + title, status, priority, tags in declaration order
	entries := updated.ActivityLog[1:]
	wantFields := []string{"title", "status", "priority", "tags"}
	if len(entries) != len(wantFields) {
		t.Fatalf("expected %d entries, got %d", len(wantFields), len(entries))
	}
	for i, want := range wantFields {
		if entries[i].FieldName != want {
			t.Errorf("entry %d field = %q, want %q", i, entries[i].FieldName, want)
		}
	}
}

func TestUpdate_NoChangesNoEntries(t *testing.T) {
	env := newTestEnv(testStart, devUser())
	created := createTask(t, env, devUser())

	updated, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Title: strPtr(created.Title),
	}, devUser())
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if len(updated.ActivityLog) != len(created.ActivityLog) {
		t.Errorf("expected no new audit entries, got %d", len(updated.ActivityLog)-len(created.ActivityLog))
	}
}

func TestUpdate_ProgressRecomputed(t *testing.T) {
	env := newTestEnv(testStart, devUser())
	created := createTask(t, env, devUser())

	updated, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Subtasks: &[]model.Subtask{
			{ID: "s1", Title: "a", Completed: true},
			{ID: "s2", Title: "b"},
		},
	}, devUser())
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if updated.Progress != 50 {
		t.Errorf("progress = %d, want 50", updated.Progress)
	}
}

func TestUpdate_CompletionAwardsXPOnce(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	done, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completed_at to be stamped")
	}

	user, _ := env.users.GetUser(context.Background(), actor.ID)
	// 150 completion + 50 first-blood + 100 quick-draw
	if user.XP != 300 {
		t.Errorf("xp = %d, want 300", user.XP)
	}

	// A second DONE -> DONE update is not an edge and awards nothing.
	again, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if again.CompletedAt == nil || *again.CompletedAt != *done.CompletedAt {
		t.Error("completed_at changed on a non-edge update")
	}
	user, _ = env.users.GetUser(context.Background(), actor.ID)
	if user.XP != 300 {
		t.Errorf("xp after repeat update = %d, want 300", user.XP)
	}
}

func TestUpdate_ReopenClearsCompletedAt(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	if _, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	reopened, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusInProgress),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Error("expected completed_at cleared on reopen")
	}

	// Completing again is a fresh edge and awards completion XP again.
	if _, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor); err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	user, _ := env.users.GetUser(context.Background(), actor.ID)
	if user.XP != 450 { // 300 from first completion + 150 second completion
		t.Errorf("xp = %d, want 450", user.XP)
	}
}

func TestUpdate_PriorityBonuses(t *testing.T) {
	tests := []struct {
		name     string
		priority model.TaskPriority
		wantXP   int // completion award only, achievements excluded below
	}{
		{"medium", model.PriorityMedium, 150},
		{"high", model.PriorityHigh, 250},
		{"critical", model.PriorityCritical, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := devUser()
			env := newTestEnv(testStart, actor)
			created := createTask(t, env, actor)

			if _, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
				Priority: priorityPtr(tt.priority),
			}, actor); err != nil {
				t.Fatalf("Update() error: %v", err)
			}

			before, _ := env.users.GetUser(context.Background(), actor.ID)
			if _, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
				Status: statusPtr(model.StatusDone),
			}, actor); err != nil {
				t.Fatalf("Update() error: %v", err)
			}
			after, _ := env.users.GetUser(context.Background(), actor.ID)

			gained := after.XP - before.XP
			// Strip achievement bonuses: first-blood always fires here, and
			// quick-draw fires because completion is within the hour.
			gained -= 50 + 100
			if gained != tt.wantXP {
				t.Errorf("completion xp = %d, want %d", gained, tt.wantXP)
			}
		})
	}
}

func TestUpdate_PersistenceFailureAbortsXP(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	env.tasks.failSave = true
	_, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor)

	var pErr *PersistenceError
	if !errors.As(err, &pErr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}

	env.tasks.failSave = false
	user, _ := env.users.GetUser(context.Background(), actor.ID)
	if user.XP != 0 {
		t.Errorf("xp = %d after failed save, want 0", user.XP)
	}
	if len(env.notifier.all()) != 0 {
		t.Errorf("expected no notifications after failed save, got %v", env.notifier.all())
	}
}

func TestUpdate_UserSaveFailureKeepsTaskCommitted(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	// The task save is the authoritative transaction: a user save failure
	// after it must be swallowed, not surfaced or rolled back.
	env.users.failSave = true
	done, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if done.Status != model.StatusDone || done.CompletedAt == nil {
		t.Errorf("returned task not completed: status=%s completed_at=%v", done.Status, done.CompletedAt)
	}

	stored, _ := env.tasks.GetTask(context.Background(), created.ID)
	if stored == nil || stored.Status != model.StatusDone {
		t.Error("expected task committed despite user save failure")
	}

	env.users.failSave = false
	user, _ := env.users.GetUser(context.Background(), actor.ID)
	if user.XP != 0 {
		t.Errorf("stored xp = %d, want 0 (user save failed)", user.XP)
	}
}

func TestUpdate_LifecycleAuditTrail(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	env.clock.Advance(10 * time.Minute)
	withSubtasks, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Subtasks: &[]model.Subtask{
			{ID: "s1", Title: "write fix", Completed: true},
			{ID: "s2", Title: "add regression test"},
		},
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if withSubtasks.Progress != 50 {
		t.Errorf("progress = %d, want 50", withSubtasks.Progress)
	}

	env.clock.Advance(10 * time.Minute)
	done, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if done.CompletedAt == nil {
		t.Fatal("expected completed_at stamped")
	}

	env.clock.Advance(10 * time.Minute)
	reopened, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusInProgress),
	}, actor)
	if err != nil {
		t.Fatalf("Update() error: %v", err)
	}
	if reopened.CompletedAt != nil {
		t.Error("expected completed_at cleared on revert")
	}

	wantActions := []string{
		"created this task",
		"updated subtasks (1/2 completed)",
		"changed status from TODO to DONE",
		"changed status from DONE to IN_PROGRESS",
	}
	if len(reopened.ActivityLog) != len(wantActions) {
		t.Fatalf("expected %d audit entries, got %d", len(wantActions), len(reopened.ActivityLog))
	}
	for i, want := range wantActions {
		if reopened.ActivityLog[i].Action != want {
			t.Errorf("entry %d action = %q, want %q", i, reopened.ActivityLog[i].Action, want)
		}
	}
	for i := 1; i < len(reopened.ActivityLog); i++ {
		if reopened.ActivityLog[i].Timestamp < reopened.ActivityLog[i-1].Timestamp {
			t.Errorf("entry %d timestamp went backwards", i)
		}
	}

	// One completion edge fired across the whole flow.
	user, _ := env.users.GetUser(context.Background(), actor.ID)
	if user.XP != 300 { // 150 completion + 50 first-blood + 100 quick-draw
		t.Errorf("xp = %d, want 300", user.XP)
	}
}

func TestUpdate_CompletionNotifiesXP(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	if _, err := env.service.Update(context.Background(), created.ID, model.TaskPatch{
		Status: statusPtr(model.StatusDone),
	}, actor); err != nil {
		t.Fatalf("Update() error: %v", err)
	}

	var found bool
	for _, msg := range env.notifier.all() {
		if strings.Contains(msg, "+150 XP") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a +150 XP notification, got %v", env.notifier.all())
	}
}

func TestAddComment(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	updated, err := env.service.AddComment(context.Background(), created.ID, "looks good", actor)
	if err != nil {
		t.Fatalf("AddComment() error: %v", err)
	}
	if len(updated.Comments) != 1 {
		t.Fatalf("expected 1 comment, got %d", len(updated.Comments))
	}
	if updated.Comments[0].Text != "looks good" {
		t.Errorf("comment text = %q", updated.Comments[0].Text)
	}
	last := updated.ActivityLog[len(updated.ActivityLog)-1]
	if last.Action != "commented on this task" {
		t.Errorf("unexpected audit action %q", last.Action)
	}

	t.Run("empty text rejected", func(t *testing.T) {
		_, err := env.service.AddComment(context.Background(), created.ID, "", actor)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestReact_Toggles(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	withComment, err := env.service.AddComment(context.Background(), created.ID, "ship it", actor)
	if err != nil {
		t.Fatalf("AddComment() error: %v", err)
	}
	commentID := withComment.Comments[0].ID

	reacted, err := env.service.React(context.Background(), created.ID, commentID, "🔥", actor)
	if err != nil {
		t.Fatalf("React() error: %v", err)
	}
	if got := reacted.Comments[0].Reactions["🔥"]; len(got) != 1 || got[0] != actor.ID {
		t.Errorf("reactions = %v, want [%s]", got, actor.ID)
	}
	last := reacted.ActivityLog[len(reacted.ActivityLog)-1]
	if last.Action != "reacted with 🔥" {
		t.Errorf("audit action = %q", last.Action)
	}

	unreacted, err := env.service.React(context.Background(), created.ID, commentID, "🔥", actor)
	if err != nil {
		t.Fatalf("React() error: %v", err)
	}
	if _, ok := unreacted.Comments[0].Reactions["🔥"]; ok {
		t.Error("expected reaction removed on second toggle")
	}
	if len(unreacted.ActivityLog) != len(reacted.ActivityLog) {
		t.Error("un-reacting should not append audit entries")
	}

	t.Run("unknown comment", func(t *testing.T) {
		_, err := env.service.React(context.Background(), created.ID, "nope", "🔥", actor)
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestDelete(t *testing.T) {
	actor := devUser()
	env := newTestEnv(testStart, actor)
	created := createTask(t, env, actor)

	if err := env.service.Delete(context.Background(), created.ID, actor); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	got, _ := env.tasks.GetTask(context.Background(), created.ID)
	if got != nil {
		t.Error("expected task removed from store")
	}

	t.Run("missing task", func(t *testing.T) {
		err := env.service.Delete(context.Background(), "missing", actor)
		var nfErr *NotFoundError
		if !errors.As(err, &nfErr) {
			t.Fatalf("expected NotFoundError, got %v", err)
		}
	})
}
