package model

import "time"

// SessionParticipant is an actor registered as present in a session. Exactly
// one of UserID/TempUserID is set.
type SessionParticipant struct {
	ID              int64     `json:"id"`
	SessionID       int64     `json:"session_id"`
	UserID          *int64    `json:"user_id"`
	TempUserID      string    `json:"temp_user_id,omitempty"`
	DisplayName     string    `json:"display_name"`
	IsAuthenticated bool      `json:"is_authenticated"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	LastActiveAt    time.Time `json:"last_active_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TaskViewer marks that a participant currently has a task's detail view open.
// Ephemeral presence, unique per (session task, participant).
type TaskViewer struct {
	ID               int64     `json:"id"`
	SessionTaskID    int64     `json:"session_task_id"`
	ParticipantID    int64     `json:"participant_id"`
	StartedViewingAt time.Time `json:"started_viewing_at"`
}
