package notify

import "context"

// Severity classes map to the client's toast styling and audible cue.
const (
	SeveritySuccess = "success"
	SeverityError   = "error"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
)

// Notifier is the fire-and-forget notification sink. Implementations must
// never fail the calling mutation; delivery problems are their own concern.
type Notifier interface {
	Notify(ctx context.Context, userID, message, severity string)
}
