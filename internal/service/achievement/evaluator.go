package achievement

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"questboard/internal/model"
	"questboard/internal/notify"
	"questboard/pkg/logger"
	"questboard/pkg/metrics"
)

// Evaluator walks the catalog and unlocks achievements whose predicates hold
// for the user's current task set. Predicates are recomputed fully on every
// call; there is no incremental state beyond the user's unlocked list.
type Evaluator struct {
	catalog   []Achievement
	announced AnnouncedSet
	notifier  notify.Notifier
	loc       *time.Location
	logger    *zap.Logger
}

func NewEvaluator(catalog []Achievement, announced AnnouncedSet, notifier notify.Notifier, log *zap.Logger) *Evaluator {
	return &Evaluator{
		catalog:   catalog,
		announced: announced,
		notifier:  notifier,
		loc:       time.Local,
		logger:    log,
	}
}

// WithLocation overrides the timezone used for hour windows, weekends and
// streak dates. Tests pin this to a fixed zone.
func (e *Evaluator) WithLocation(loc *time.Location) *Evaluator {
	e.loc = loc
	return e
}

// Evaluate unlocks every achievement whose predicate newly holds, adds the
// XP bonuses to the user and returns the unlocked entries. The user's XP and
// achievement list are mutated in place; persistence is the caller's job.
func (e *Evaluator) Evaluate(ctx context.Context, user *model.User, tasks []model.Task) []Achievement {
	var unlocked []Achievement

	for _, a := range e.catalog {
		if user.HasAchievement(a.ID) {
			continue
		}
		if !e.satisfied(a, user, tasks) {
			continue
		}

		user.Achievements = append(user.Achievements, a.ID)
		user.XP += a.XPBonus
		unlocked = append(unlocked, a)

		metrics.IncrementAchievementUnlock(a.ID)
		metrics.AddXPAwarded("achievement", a.XPBonus)

		logger.WithTrace(ctx, e.logger).Info("Achievement unlocked",
			zap.String("user_id", user.ID),
			zap.String("achievement", a.ID),
			zap.Int("xp_bonus", a.XPBonus),
		)

		if e.announced.AcquireOnce(ctx, user.ID, a.ID) {
			e.notifier.Notify(ctx, user.ID,
				fmt.Sprintf("Achievement unlocked: %s (+%d XP)", a.Title, a.XPBonus),
				notify.SeveritySuccess,
			)
		}
	}

	return unlocked
}

func (e *Evaluator) satisfied(a Achievement, user *model.User, tasks []model.Task) bool {
	completed := completedTasks(tasks)

	switch a.Kind {
	case KindFirstCompleted:
		return len(completed) >= 1

	case KindCompletedCount:
		return len(completed) >= a.Count

	case KindHighPriorityCount:
		n := 0
		for _, t := range completed {
			if t.Priority == model.PriorityHigh || t.Priority == model.PriorityCritical {
				n++
			}
		}
		return n >= a.Count

	case KindTimeSpent:
		var total int64
		for _, t := range tasks {
			total += t.TimeSpent
		}
		return total >= a.ThresholdSeconds

	case KindCompletionHour:
		for _, t := range completed {
			hour := time.UnixMilli(*t.CompletedAt).In(e.loc).Hour()
			if hourInWindow(hour, a.StartHour, a.EndHour) {
				return true
			}
		}
		return false

	case KindWeekendCount:
		n := 0
		for _, t := range completed {
			wd := time.UnixMilli(*t.CompletedAt).In(e.loc).Weekday()
			if wd == time.Saturday || wd == time.Sunday {
				n++
			}
		}
		return n >= a.Count

	case KindStreak:
		return hasStreak(completionDays(completed, e.loc), a.Days)

	case KindFastCompletion:
		for _, t := range completed {
			latency := time.Duration(*t.CompletedAt-t.CreatedAt) * time.Millisecond
			if latency >= 0 && latency < a.Within {
				return true
			}
		}
		return false
	}

	return false
}

func completedTasks(tasks []model.Task) []model.Task {
	var done []model.Task
	for _, t := range tasks {
		if t.Status == model.StatusDone && t.CompletedAt != nil {
			done = append(done, t)
		}
	}
	return done
}

// hourInWindow checks [start, end), wrapping midnight when start > end.
func hourInWindow(hour, start, end int) bool {
	if start <= end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}

// completionDays returns the distinct completion calendar days as integer
// day offsets, sorted ascending. Days are normalized to UTC midnights so
// consecutive dates always differ by exactly one.
func completionDays(completed []model.Task, loc *time.Location) []int64 {
	seen := make(map[int64]struct{})
	for _, t := range completed {
		local := time.UnixMilli(*t.CompletedAt).In(loc)
		day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC).Unix() / 86400
		seen[day] = struct{}{}
	}

	days := make([]int64, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	return days
}

// hasStreak scans for any run of k day offsets each exactly one apart.
func hasStreak(days []int64, k int) bool {
	if k <= 0 {
		return false
	}
	run := 1
	for i := 1; i < len(days); i++ {
		if days[i] == days[i-1]+1 {
			run++
			if run >= k {
				return true
			}
		} else {
			run = 1
		}
	}
	return len(days) >= 1 && run >= k
}
