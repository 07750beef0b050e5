package model

import "time"

type TaskStatus string

const (
	TaskTodo  TaskStatus = "todo"
	TaskDoing TaskStatus = "doing"
	TaskDone  TaskStatus = "done"
)

type TaskPriority string

const (
	PriorityDoFirst TaskPriority = "do_first"
	PriorityDoLast  TaskPriority = "do_last"
)

// WardTask is a catalog entry owned by ward admins. Sessions copy active
// catalog tasks into SessionTask rows at bootstrap time.
type WardTask struct {
	ID           int64        `json:"id"`
	WardID       int64        `json:"ward_id"`
	Title        string       `json:"title"`
	Subtitle     string       `json:"subtitle"`
	Instructions string       `json:"instructions"`
	Equipment    string       `json:"equipment"`
	Safety       string       `json:"safety"`
	Color        string       `json:"color"`
	Priority     TaskPriority `json:"priority,omitempty"`
	KidFriendly  bool         `json:"kid_friendly"`
	Points       int          `json:"points"`
	Active       bool         `json:"active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// SessionTask is one catalog task's instance within a session. Exactly one of
// AssignedTo/AssignedToTempUser is set while the task is doing or done; both
// are empty for todo.
type SessionTask struct {
	ID                 int64      `json:"id"`
	SessionID          int64      `json:"session_id"`
	TaskID             int64      `json:"task_id"`
	Status             TaskStatus `json:"status"`
	AssignedTo         *int64     `json:"assigned_to"`
	AssignedToTempUser string     `json:"assigned_to_temp_user,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at"`
	CompletedAt        *time.Time `json:"completed_at"`
	PointsAwarded      int        `json:"points_awarded"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// SessionTaskDetail is a SessionTask joined with its catalog entry and the
// assignee's display info, as shipped to board clients.
type SessionTaskDetail struct {
	SessionTask
	Task           WardTask `json:"task"`
	AssigneeName   string   `json:"assignee_name,omitempty"`
	AssigneeAvatar string   `json:"assignee_avatar,omitempty"`
}
