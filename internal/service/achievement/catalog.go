package achievement

import "time"

// Kind selects the predicate evaluated for an achievement. Conditions are
// plain data plus a dispatch, never embedded closures, so the catalog can
// live in configuration and tests can enumerate it.
type Kind string

const (
	// KindFirstCompleted unlocks on the first completed task.
	KindFirstCompleted Kind = "first_completed"
	// KindCompletedCount unlocks after Count completed tasks.
	KindCompletedCount Kind = "completed_count"
	// KindHighPriorityCount unlocks after Count completed HIGH/CRITICAL tasks.
	KindHighPriorityCount Kind = "high_priority_count"
	// KindTimeSpent unlocks once cumulative tracked time reaches ThresholdSeconds.
	KindTimeSpent Kind = "time_spent"
	// KindCompletionHour unlocks when any completion falls inside the local
	// hour window [StartHour, EndHour); the window may wrap midnight.
	KindCompletionHour Kind = "completion_hour"
	// KindWeekendCount unlocks after Count completions on Saturday or Sunday.
	KindWeekendCount Kind = "weekend_count"
	// KindStreak unlocks on Days consecutive calendar days with a completion.
	KindStreak Kind = "streak"
	// KindFastCompletion unlocks when a task goes created to completed within Within.
	KindFastCompletion Kind = "fast_completion"
)

// Achievement is one catalog entry. Predicates are pure over the user and
// task set, recomputed fully on each evaluation.
type Achievement struct {
	ID          string
	Title       string
	Description string
	XPBonus     int
	Kind        Kind

	Count            int
	ThresholdSeconds int64
	StartHour        int
	EndHour          int
	Days             int
	Within           time.Duration
}

// DefaultCatalog returns the fixed achievement catalog in evaluation order.
// Order is stable so repeated evaluations produce identical unlock sequences.
func DefaultCatalog() []Achievement {
	return []Achievement{
		{
			ID:          "first-blood",
			Title:       "First Blood",
			Description: "Complete your first task",
			XPBonus:     50,
			Kind:        KindFirstCompleted,
		},
		{
			ID:          "task-slayer",
			Title:       "Task Slayer",
			Description: "Complete 10 tasks",
			XPBonus:     100,
			Kind:        KindCompletedCount,
			Count:       10,
		},
		{
			ID:          "centurion",
			Title:       "Centurion",
			Description: "Complete 50 tasks",
			XPBonus:     500,
			Kind:        KindCompletedCount,
			Count:       50,
		},
		{
			ID:          "firefighter",
			Title:       "Firefighter",
			Description: "Complete 5 high or critical priority tasks",
			XPBonus:     150,
			Kind:        KindHighPriorityCount,
			Count:       5,
		},
		{
			ID:               "marathoner",
			Title:            "Marathoner",
			Description:      "Track 10 hours of work",
			XPBonus:          200,
			Kind:             KindTimeSpent,
			ThresholdSeconds: 36000,
		},
		{
			ID:          "early-bird",
			Title:       "Early Bird",
			Description: "Complete a task between 5am and 9am",
			XPBonus:     75,
			Kind:        KindCompletionHour,
			StartHour:   5,
			EndHour:     9,
		},
		{
			ID:          "night-owl",
			Title:       "Night Owl",
			Description: "Complete a task between 10pm and 4am",
			XPBonus:     75,
			Kind:        KindCompletionHour,
			StartHour:   22,
			EndHour:     4,
		},
		{
			ID:          "weekend-warrior",
			Title:       "Weekend Warrior",
			Description: "Complete 5 tasks on weekends",
			XPBonus:     125,
			Kind:        KindWeekendCount,
			Count:       5,
		},
		{
			ID:          "on-a-roll",
			Title:       "On a Roll",
			Description: "Complete tasks on 5 consecutive days",
			XPBonus:     250,
			Kind:        KindStreak,
			Days:        5,
		},
		{
			ID:          "quick-draw",
			Title:       "Quick Draw",
			Description: "Complete a task within an hour of creating it",
			XPBonus:     100,
			Kind:        KindFastCompletion,
			Within:      time.Hour,
		},
	}
}
