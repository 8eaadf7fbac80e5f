package task

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"questboard/internal/model"
)

// Resolver turns raw ids into display names for audit entries. Lookups are
// best-effort; implementations fall back to the raw id.
type Resolver interface {
	UserName(ctx context.Context, id string) string
	ProjectName(ctx context.Context, id string) string
}

// TrackChanges diffs two task snapshots and produces one audit entry per
// changed tracked field, in a fixed field order so that a mutation touching
// several fields always yields the same entry sequence. A nil old task
// produces no entries; creation is recorded separately.
func TrackChanges(ctx context.Context, old, updated *model.Task, actorID string, now time.Time, res Resolver) []model.ActivityLogEntry {
	if old == nil {
		return nil
	}

	var entries []model.ActivityLogEntry
	add := func(action, field, oldVal, newVal string) {
		entries = append(entries, model.ActivityLogEntry{
			ID:        uuid.NewString(),
			UserID:    actorID,
			Action:    action,
			Timestamp: now.UnixMilli(),
			FieldName: field,
			OldValue:  oldVal,
			NewValue:  newVal,
		})
	}

	if old.Title != updated.Title {
		add(fmt.Sprintf("changed title from %q to %q", old.Title, updated.Title),
			"title", old.Title, updated.Title)
	}

	// Descriptions can be long; the entry records that it changed, not a diff.
	if old.Description != updated.Description {
		add("updated the description", "description", "", "")
	}

	if old.Status != updated.Status {
		add(fmt.Sprintf("changed status from %s to %s", old.Status, updated.Status),
			"status", string(old.Status), string(updated.Status))
	}

	if old.Priority != updated.Priority {
		add(fmt.Sprintf("changed priority from %s to %s", old.Priority, updated.Priority),
			"priority", string(old.Priority), string(updated.Priority))
	}

	if old.AssignedTo != updated.AssignedTo {
		oldName := assigneeName(ctx, res, old.AssignedTo)
		newName := assigneeName(ctx, res, updated.AssignedTo)
		add(fmt.Sprintf("reassigned task from %s to %s", oldName, newName),
			"assigned_to", oldName, newName)
	}

	if !equalDeadline(old.Deadline, updated.Deadline) {
		oldDate := deadlineDisplay(old.Deadline)
		newDate := deadlineDisplay(updated.Deadline)
		add(fmt.Sprintf("changed deadline from %s to %s", oldDate, newDate),
			"deadline", oldDate, newDate)
	}

	if old.ProjectID != updated.ProjectID {
		oldName := res.ProjectName(ctx, old.ProjectID)
		newName := res.ProjectName(ctx, updated.ProjectID)
		add(fmt.Sprintf("moved task from project %s to %s", oldName, newName),
			"project_id", oldName, newName)
	}

	if !equalAsSets(old.Tags, updated.Tags) {
		add(fmt.Sprintf("updated tags (%d): %s", len(updated.Tags), strings.Join(updated.Tags, ", ")),
			"tags", strings.Join(old.Tags, ", "), strings.Join(updated.Tags, ", "))
	}

	if !equalAsSets(old.DependsOn, updated.DependsOn) {
		add(fmt.Sprintf("updated dependencies (%d -> %d)", len(old.DependsOn), len(updated.DependsOn)),
			"depends_on", fmt.Sprintf("%d", len(old.DependsOn)), fmt.Sprintf("%d", len(updated.DependsOn)))
	}

	oldDone, oldTotal := subtaskCounts(old.Subtasks)
	newDone, newTotal := subtaskCounts(updated.Subtasks)
	if oldDone != newDone || oldTotal != newTotal {
		add(fmt.Sprintf("updated subtasks (%d/%d completed)", newDone, newTotal),
			"subtasks", fmt.Sprintf("%d/%d", oldDone, oldTotal), fmt.Sprintf("%d/%d", newDone, newTotal))
	}

	if len(old.Attachments) != len(updated.Attachments) {
		add(fmt.Sprintf("updated attachments (%d -> %d)", len(old.Attachments), len(updated.Attachments)),
			"attachments", fmt.Sprintf("%d", len(old.Attachments)), fmt.Sprintf("%d", len(updated.Attachments)))
	}

	return entries
}

func assigneeName(ctx context.Context, res Resolver, id string) string {
	if id == "" {
		return "Unassigned"
	}
	return res.UserName(ctx, id)
}

func deadlineDisplay(deadline *int64) string {
	if deadline == nil {
		return "none"
	}
	return time.UnixMilli(*deadline).Format("2006-01-02")
}

func equalDeadline(a, b *int64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// equalAsSets compares string lists order-independently, because collections
// are often rebuilt wholesale on each edit.
func equalAsSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func subtaskCounts(subtasks []model.Subtask) (completed, total int) {
	for _, st := range subtasks {
		if st.Completed {
			completed++
		}
	}
	return completed, len(subtasks)
}
