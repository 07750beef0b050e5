package model

import "time"

// CleaningSchedule is one planned cleaning date for a ward. Sessions are
// materialized from schedule entries on first visit.
type CleaningSchedule struct {
	ID        int64     `json:"id"`
	WardID    int64     `json:"ward_id"`
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
