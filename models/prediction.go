package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type MarketType string

const (
	MarketOutcome      MarketType = "MATCH_OUTCOME"
	MarketTotalGoals   MarketType = "TOTAL_GOALS"
	MarketBooleanEvent MarketType = "BOOLEAN_EVENT"
)

type EntryStatus string

const (
	EntryPending   EntryStatus = "PENDING"
	EntryWon       EntryStatus = "WON"
	EntryLost      EntryStatus = "LOST"
	EntryVoid      EntryStatus = "VOID"
	EntryCancelled EntryStatus = "CANCELLED"
)

func (s EntryStatus) IsResolved() bool {
	return s != EntryPending
}

// Choice is one selectable value of a market with its precomputed reward.
type Choice struct {
	Value       string  `json:"value"`
	Points      int     `json:"points"`
	Probability float64 `json:"probability"`
}

// PredictionTemplate is a betting market on one match. Templates are
// regenerated while the match is SCHEDULED unless IsManual is set.
type PredictionTemplate struct {
	ID                   int             `json:"id" db:"id"`
	MatchID              int             `json:"match_id" db:"match_id"`
	MarketType           MarketType      `json:"market_type" db:"market_type"`
	Options              MarketOptions   `json:"options" db:"options"`
	Choices              []Choice        `json:"choices" db:"choices"`
	BasePoints           int             `json:"base_points" db:"base_points"`
	DifficultyMultiplier decimal.Decimal `json:"difficulty_multiplier" db:"difficulty_multiplier"`
	IsManual             bool            `json:"is_manual" db:"is_manual"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// ChoicePoints looks a choice up by its canonical value.
func (t *PredictionTemplate) ChoicePoints(value string) (int, bool) {
	for _, c := range t.Choices {
		if c.Value == value {
			return c.Points, true
		}
	}
	return 0, false
}

type PredictionEntry struct {
	ID            int         `json:"id" db:"id"`
	TemplateID    int         `json:"template_id" db:"template_id"`
	UserID        int         `json:"user_id" db:"user_id"`
	Selection     string      `json:"selection" db:"selection"`
	Status        EntryStatus `json:"status" db:"status"`
	AwardedPoints *int        `json:"awarded_points,omitempty" db:"awarded_points"`
	CreatedAt     time.Time   `json:"created_at" db:"created_at"`
	SettledAt     *time.Time  `json:"settled_at,omitempty" db:"settled_at"`
}
