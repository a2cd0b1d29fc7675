package models

// User is a board member able to log in. Passwords are stored as bcrypt
// hashes; LastLogin is empty until the first successful login.
type User struct {
	ID           int64  `json:"id" db:"id"`
	Username     string `json:"username" db:"username"`
	PasswordHash string `json:"-" db:"password"`
	DisplayName  string `json:"displayName" db:"display_name"`
	LastLogin    string `json:"lastLogin" db:"last_login"`
}

// Project is a top-level card on the board, owned by one stakeholder.
type Project struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Owner       string   `json:"owner"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	DueDate     string   `json:"due_date,omitempty"`
	Tags        []string `json:"tags"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// Subtask is a child unit of work under a project. CompletedAt is stamped
// when the status first moves into done and is not cleared when the subtask
// is reopened.
type Subtask struct {
	ID           int64  `json:"id" db:"id"`
	ProjectID    int64  `json:"project_id" db:"project_id"`
	Name         string `json:"name" db:"name"`
	Description  string `json:"description" db:"description"`
	Status       string `json:"status" db:"status"`
	Assignee     string `json:"assignee,omitempty" db:"assignee"`
	DueDate      string `json:"due_date,omitempty" db:"due_date"`
	CreatedAt    string `json:"created_at" db:"created_at"`
	CompletedAt  string `json:"completed_at,omitempty" db:"completed_at"`
	ProjectName  string `json:"project_name,omitempty" db:"project_name"`
	ProjectOwner string `json:"project_owner,omitempty" db:"project_owner"`
}

// Comment is an append-only note on a project.
type Comment struct {
	ID        int64  `json:"id" db:"id"`
	ProjectID int64  `json:"project_id" db:"project_id"`
	Author    string `json:"author" db:"author"`
	Text      string `json:"text" db:"text"`
	CreatedAt string `json:"created_at" db:"created_at"`

	// Populated only by joined listings used for AI context.
	ProjectName string `json:"project_name,omitempty" db:"project_name"`
}

// HistoryEntry is one row of a project's append-only audit trail.
type HistoryEntry struct {
	ID        int64  `json:"id" db:"id"`
	ProjectID int64  `json:"project_id" db:"project_id"`
	User      string `json:"user" db:"user"`
	Action    string `json:"action" db:"action"`
	Details   string `json:"details" db:"details"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// History action kinds written by the store.
const (
	ActionCreated        = "created"
	ActionUpdated        = "updated"
	ActionStatusChange   = "status_change"
	ActionComment        = "comment"
	ActionSubtaskAdded   = "subtask_added"
	ActionSubtaskStatus  = "subtask_status"
	ActionSubtaskDeleted = "subtask_deleted"
)

// ActivityEntry is one row of the global recent-actions feed.
type ActivityEntry struct {
	ID        int64  `json:"id" db:"id"`
	User      string `json:"user" db:"user"`
	Message   string `json:"message" db:"message"`
	CreatedAt string `json:"created_at" db:"created_at"`
}

// Research is a standalone knowledge-base entry, not linked to projects.
type Research struct {
	ID          int64    `json:"id"`
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Status      string   `json:"status"`
	LoomURL     string   `json:"loom_url,omitempty"`
	DemoURL     string   `json:"demo_url,omitempty"`
	GithubURL   string   `json:"github_url,omitempty"`
	Tags        []string `json:"tags"`
	Author      string   `json:"author"`
	CreatedAt   string   `json:"created_at"`
	UpdatedAt   string   `json:"updated_at"`
}

// ValidStatuses enumerates the four board columns shared by projects and
// subtasks. No other value is ever persisted.
var ValidStatuses = map[string]struct{}{
	"todo":       {},
	"inprogress": {},
	"review":     {},
	"done":       {},
}

// ValidPriorities enumerates the project priority levels.
var ValidPriorities = map[string]struct{}{
	"high":   {},
	"medium": {},
	"low":    {},
}

// ValidStatus reports whether s is one of the four board columns.
func ValidStatus(s string) bool {
	_, ok := ValidStatuses[s]
	return ok
}

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p string) bool {
	_, ok := ValidPriorities[p]
	return ok
}
