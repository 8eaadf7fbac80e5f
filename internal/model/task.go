package model

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "TODO"
	StatusInProgress TaskStatus = "IN_PROGRESS"
	StatusReview     TaskStatus = "REVIEW"
	StatusDone       TaskStatus = "DONE"
	StatusBlocked    TaskStatus = "BLOCKED"
)

// TaskPriority is the urgency class of a task.
type TaskPriority string

const (
	PriorityLow      TaskPriority = "LOW"
	PriorityMedium   TaskPriority = "MEDIUM"
	PriorityHigh     TaskPriority = "HIGH"
	PriorityCritical TaskPriority = "CRITICAL"
)

// SystemUserID is the sentinel actor for entries not attributable to a user.
const SystemUserID = "system"

type Subtask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type Comment struct {
	ID        string              `json:"id"`
	UserID    string              `json:"user_id"`
	Text      string              `json:"text"`
	Reactions map[string][]string `json:"reactions,omitempty"` // emoji -> user ids
	CreatedAt int64               `json:"created_at"`
}

// ActivityLogEntry is one append-only audit record. Entries are never
// mutated or reordered after creation.
type ActivityLogEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Timestamp int64  `json:"timestamp"`
	FieldName string `json:"field_name,omitempty"`
	OldValue  string `json:"old_value,omitempty"`
	NewValue  string `json:"new_value,omitempty"`
}

// Task is a unit of trackable work. Timestamps are epoch milliseconds.
// TimerStartedAt non-nil means a timer session is running whose elapsed
// time is not yet folded into TimeSpent.
type Task struct {
	ID             string             `json:"id"`
	Title          string             `json:"title"`
	Description    string             `json:"description"`
	ProjectID      string             `json:"project_id"`
	AssignedTo     string             `json:"assigned_to,omitempty"`
	CreatedBy      string             `json:"created_by"`
	CreatedAt      int64              `json:"created_at"`
	Deadline       *int64             `json:"deadline,omitempty"`
	CompletedAt    *int64             `json:"completed_at,omitempty"`
	Status         TaskStatus         `json:"status"`
	Priority       TaskPriority       `json:"priority"`
	Subtasks       []Subtask          `json:"subtasks"`
	Comments       []Comment          `json:"comments"`
	Attachments    []Attachment       `json:"attachments"`
	ActivityLog    []ActivityLogEntry `json:"activity_log"`
	TimeSpent      int64              `json:"time_spent"` // accumulated seconds
	TimerStartedAt *int64             `json:"timer_started_at,omitempty"`
	Tags           []string           `json:"tags"`
	DependsOn      []string           `json:"depends_on"`
	Progress       int                `json:"progress"` // derived, 0-100
	Order          float64            `json:"order"`
}

// TaskPatch is a partial task update. Nil fields are left untouched by the
// merge; pointer-to-empty clears a field where that is meaningful.
type TaskPatch struct {
	Title         *string       `json:"title,omitempty"`
	Description   *string       `json:"description,omitempty"`
	ProjectID     *string       `json:"project_id,omitempty"`
	AssignedTo    *string       `json:"assigned_to,omitempty"`
	Deadline      *int64        `json:"deadline,omitempty"`
	ClearDeadline bool          `json:"clear_deadline,omitempty"`
	Status        *TaskStatus   `json:"status,omitempty"`
	Priority      *TaskPriority `json:"priority,omitempty"`
	Subtasks      *[]Subtask    `json:"subtasks,omitempty"`
	Attachments   *[]Attachment `json:"attachments,omitempty"`
	Tags          *[]string     `json:"tags,omitempty"`
	DependsOn     *[]string     `json:"depends_on,omitempty"`
	Order         *float64      `json:"order,omitempty"`
}
