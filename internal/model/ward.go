package model

import "time"

type Ward struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type WardMember struct {
	ID        int64     `json:"id"`
	WardID    int64     `json:"ward_id"`
	UserID    int64     `json:"user_id"`
	Role      string    `json:"role"`
	IsPrimary bool      `json:"is_primary"`
	CreatedAt time.Time `json:"created_at"`
}
