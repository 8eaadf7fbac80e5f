package model

import "time"

// Notification is an in-app inbox entry persisted by the notification
// consumer. Severity drives the client-side toast and audible cue.
type Notification struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Severity  string    `json:"severity"` // success / error / info / warning
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
