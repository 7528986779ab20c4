package models

import "time"

// UserRating is derived from settled predictions and express bets.
type UserRating struct {
	UserID       int       `json:"user_id" db:"user_id"`
	TotalPoints  int       `json:"total_points" db:"total_points"`
	SettledCount int       `json:"settled_count" db:"settled_count"`
	WonCount     int       `json:"won_count" db:"won_count"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
