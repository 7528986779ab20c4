package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExpressBet combines 2-4 selections on distinct matches. Its status is
// derived from the items once none of them is PENDING.
type ExpressBet struct {
	ID              int             `json:"id" db:"id"`
	UserID          int             `json:"user_id" db:"user_id"`
	Status          EntryStatus     `json:"status" db:"status"`
	MinItems        int             `json:"min_items" db:"min_items"`
	Multiplier      decimal.Decimal `json:"multiplier" db:"multiplier"`
	TotalBasePoints int             `json:"total_base_points" db:"total_base_points"`
	AwardedPoints   *int            `json:"awarded_points,omitempty" db:"awarded_points"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	SettledAt       *time.Time      `json:"settled_at,omitempty" db:"settled_at"`
}

// ExpressBetItem is one selection of an express bet. MatchID is zero once
// the match was removed from a decided series; the item stays CANCELLED.
type ExpressBetItem struct {
	ID           int         `json:"id" db:"id"`
	ExpressBetID int         `json:"express_bet_id" db:"express_bet_id"`
	TemplateID   int         `json:"template_id" db:"template_id"`
	MatchID      int         `json:"match_id" db:"match_id"`
	Selection    string      `json:"selection" db:"selection"`
	BasePoints   int         `json:"base_points" db:"base_points"`
	Status       EntryStatus `json:"status" db:"status"`
	SettledAt    *time.Time  `json:"settled_at,omitempty" db:"settled_at"`
}
