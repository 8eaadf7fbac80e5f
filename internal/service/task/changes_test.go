package task

import (
	"context"
	"testing"
	"time"

	"questboard/internal/model"
)

// stubResolver resolves from fixed maps, falling back to the raw id.
type stubResolver struct {
	users    map[string]string
	projects map[string]string
}

func (r *stubResolver) UserName(ctx context.Context, id string) string {
	if name, ok := r.users[id]; ok {
		return name
	}
	return id
}

func (r *stubResolver) ProjectName(ctx context.Context, id string) string {
	if name, ok := r.projects[id]; ok {
		return name
	}
	return id
}

var changeTime = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func newResolver() *stubResolver {
	return &stubResolver{
		users:    map[string]string{"u-1": "ada", "u-2": "grace"},
		projects: map[string]string{"proj-1": "Apollo", "proj-2": "Hermes"},
	}
}

func baseTask() *model.Task {
	return &model.Task{
		ID:          "t-1",
		Title:       "Fix login flow",
		Description: "Session cookie is dropped",
		ProjectID:   "proj-1",
		Status:      model.StatusTodo,
		Priority:    model.PriorityMedium,
	}
}

func TestTrackChanges_NilOldProducesNothing(t *testing.T) {
	got := TrackChanges(context.Background(), nil, baseTask(), "u-1", changeTime, newResolver())
	if len(got) != 0 {
		t.Errorf("expected no entries for nil old, got %d", len(got))
	}
}

func TestTrackChanges_IdenticalProducesNothing(t *testing.T) {
	old := baseTask()
	updated := *old
	got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
	if len(got) != 0 {
		t.Errorf("expected no entries for identical tasks, got %d", len(got))
	}
}

func TestTrackChanges_SingleFields(t *testing.T) {
	res := newResolver()

	tests := []struct {
		name       string
		mutate     func(*model.Task)
		wantField  string
		wantAction string
	}{
		{
			"title",
			func(u *model.Task) { u.Title = "Fix login flow v2" },
			"title",
			`changed title from "Fix login flow" to "Fix login flow v2"`,
		},
		{
			"description presence only",
			func(u *model.Task) { u.Description = "different" },
			"description",
			"updated the description",
		},
		{
			"status",
			func(u *model.Task) { u.Status = model.StatusDone },
			"status",
			"changed status from TODO to DONE",
		},
		{
			"priority",
			func(u *model.Task) { u.Priority = model.PriorityCritical },
			"priority",
			"changed priority from MEDIUM to CRITICAL",
		},
		{
			"assignment resolves names",
			func(u *model.Task) { u.AssignedTo = "u-2" },
			"assigned_to",
			"reassigned task from Unassigned to grace",
		},
		{
			"project resolves names",
			func(u *model.Task) { u.ProjectID = "proj-2" },
			"project_id",
			"moved task from project Apollo to Hermes",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := baseTask()
			updated := *old
			tt.mutate(&updated)

			got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, res)
			if len(got) != 1 {
				t.Fatalf("expected 1 entry, got %d", len(got))
			}
			if got[0].FieldName != tt.wantField {
				t.Errorf("field = %q, want %q", got[0].FieldName, tt.wantField)
			}
			if got[0].Action != tt.wantAction {
				t.Errorf("action = %q, want %q", got[0].Action, tt.wantAction)
			}
			if got[0].UserID != "u-1" {
				t.Errorf("actor = %q, want u-1", got[0].UserID)
			}
			if got[0].Timestamp != changeTime.UnixMilli() {
				t.Errorf("timestamp = %d, want %d", got[0].Timestamp, changeTime.UnixMilli())
			}
		})
	}
}

func TestTrackChanges_DescriptionEntryOmitsValues(t *testing.T) {
	old := baseTask()
	updated := *old
	updated.Description = "rewritten entirely"

	got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].OldValue != "" || got[0].NewValue != "" {
		t.Errorf("description entry must not carry values, got %q -> %q", got[0].OldValue, got[0].NewValue)
	}
}

func TestTrackChanges_Deadline(t *testing.T) {
	day := func(y int, m time.Month, d int) *int64 {
		ms := time.Date(y, m, d, 12, 0, 0, 0, time.UTC).UnixMilli()
		return &ms
	}

	t.Run("set", func(t *testing.T) {
		old := baseTask()
		updated := *old
		updated.Deadline = day(2026, 4, 1)

		got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
		if len(got) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(got))
		}
		if got[0].Action != "changed deadline from none to 2026-04-01" {
			t.Errorf("action = %q", got[0].Action)
		}
	})

	t.Run("cleared", func(t *testing.T) {
		old := baseTask()
		old.Deadline = day(2026, 4, 1)
		updated := *old
		updated.Deadline = nil

		got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
		if len(got) != 1 {
			t.Fatalf("expected 1 entry, got %d", len(got))
		}
		if got[0].Action != "changed deadline from 2026-04-01 to none" {
			t.Errorf("action = %q", got[0].Action)
		}
	})

	t.Run("same instant no entry", func(t *testing.T) {
		old := baseTask()
		old.Deadline = day(2026, 4, 1)
		updated := *old
		d := *old.Deadline
		updated.Deadline = &d

		got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
		if len(got) != 0 {
			t.Errorf("expected no entries, got %d", len(got))
		}
	})
}

func TestTrackChanges_TagsOrderInsensitive(t *testing.T) {
	old := baseTask()
	old.Tags = []string{"auth", "bug"}
	updated := *old
	updated.Tags = []string{"bug", "auth"}

	got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
	if len(got) != 0 {
		t.Errorf("reordered tags must not produce entries, got %d", len(got))
	}

	updated.Tags = []string{"bug", "auth", "p1"}
	got = TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].FieldName != "tags" {
		t.Errorf("field = %q, want tags", got[0].FieldName)
	}
}

func TestTrackChanges_SubtasksByCounts(t *testing.T) {
	old := baseTask()
	old.Subtasks = []model.Subtask{{ID: "s1", Title: "a"}, {ID: "s2", Title: "b"}}
	updated := *old
	updated.Subtasks = []model.Subtask{
		{ID: "s1", Title: "a", Completed: true},
		{ID: "s2", Title: "b"},
	}

	got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())
	if len(got) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(got))
	}
	if got[0].Action != "updated subtasks (1/2 completed)" {
		t.Errorf("action = %q", got[0].Action)
	}

	t.Run("retitle without count change is silent", func(t *testing.T) {
		renamed := *old
		renamed.Subtasks = []model.Subtask{{ID: "s1", Title: "a2"}, {ID: "s2", Title: "b2"}}
		got := TrackChanges(context.Background(), old, &renamed, "u-1", changeTime, newResolver())
		if len(got) != 0 {
			t.Errorf("expected no entries, got %d", len(got))
		}
	})
}

func TestTrackChanges_MultiFieldOrder(t *testing.T) {
	old := baseTask()
	updated := *old
	updated.Title = "New title"
	updated.Description = "New description"
	updated.Status = model.StatusInProgress
	updated.Priority = model.PriorityHigh
	updated.AssignedTo = "u-2"
	updated.ProjectID = "proj-2"
	updated.Tags = []string{"auth"}
	updated.DependsOn = []string{"t-0"}
	updated.Subtasks = []model.Subtask{{ID: "s1", Title: "a"}}
	updated.Attachments = []model.Attachment{{ID: "f1", Name: "log.txt"}}

	got := TrackChanges(context.Background(), old, &updated, "u-1", changeTime, newResolver())

	wantOrder := []string{
		"title", "description", "status", "priority", "assigned_to",
		"project_id", "tags", "depends_on", "subtasks", "attachments",
	}
	if len(got) != len(wantOrder) {
		t.Fatalf("expected %d entries, got %d", len(wantOrder), len(got))
	}
	for i, want := range wantOrder {
		if got[i].FieldName != want {
			t.Errorf("entry %d = %q, want %q", i, got[i].FieldName, want)
		}
	}
}
