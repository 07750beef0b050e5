package model

import "time"

type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
)

// CleaningSession is one concrete cleaning event with its own task board.
type CleaningSession struct {
	ID          int64         `json:"id"`
	WardID      int64         `json:"ward_id"`
	ScheduleID  *int64        `json:"schedule_id"`
	Name        string        `json:"name"`
	SessionDate time.Time     `json:"session_date"`
	ShareCode   string        `json:"share_code"`
	Status      SessionStatus `json:"status"`
	CompletedAt *time.Time    `json:"completed_at"`
	CreatedBy   int64         `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
