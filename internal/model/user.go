package model

// User carries the gamification accumulators. XP is non-negative and
// Achievements only ever grows; both are mutated only through the task
// orchestrator and achievement evaluator.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Role         string   `json:"role"` // ADMIN / DEVELOPER / VIEWER
	XP           int      `json:"xp"`
	Achievements []string `json:"achievements"`
	CreatedAt    int64    `json:"created_at"`
}

// HasAchievement reports whether the achievement id is already unlocked.
func (u *User) HasAchievement(id string) bool {
	for _, a := range u.Achievements {
		if a == id {
			return true
		}
	}
	return false
}
