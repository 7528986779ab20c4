package models

import "time"

const MetricCorrectPredictions = "CORRECT_PREDICTIONS"

type AchievementProgress struct {
	UserID        int       `json:"user_id" db:"user_id"`
	Metric        string    `json:"metric" db:"metric"`
	Progress      int       `json:"progress" db:"progress"`
	UnlockedLevel int       `json:"unlocked_level" db:"unlocked_level"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
