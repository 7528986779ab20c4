package models

import "time"

type MatchStatus string

const (
	MatchStatusScheduled MatchStatus = "SCHEDULED"
	MatchStatusLive      MatchStatus = "LIVE"
	MatchStatusFinished  MatchStatus = "FINISHED"
	MatchStatusPostponed MatchStatus = "POSTPONED"
)

// Match is a single fixture between two clubs. Once FINISHED only the
// derived tables are rewritten; the row itself is not touched by the engine.
type Match struct {
	ID                int         `json:"id" db:"id"`
	SeasonID          *int        `json:"season_id,omitempty" db:"season_id"`
	RoundID           *int        `json:"round_id,omitempty" db:"round_id"`
	GroupID           *int        `json:"group_id,omitempty" db:"group_id"`
	SeriesID          *int        `json:"series_id,omitempty" db:"series_id"`
	HomeClubID        int         `json:"home_club_id" db:"home_club_id"`
	AwayClubID        int         `json:"away_club_id" db:"away_club_id"`
	HomeScore         int         `json:"home_score" db:"home_score"`
	AwayScore         int         `json:"away_score" db:"away_score"`
	HasShootout       bool        `json:"has_shootout" db:"has_shootout"`
	HomeShootoutScore *int        `json:"home_shootout_score,omitempty" db:"home_shootout_score"`
	AwayShootoutScore *int        `json:"away_shootout_score,omitempty" db:"away_shootout_score"`
	Status            MatchStatus `json:"status" db:"status"`
	IsFriendly        bool        `json:"is_friendly" db:"is_friendly"`
	StartTime         time.Time   `json:"start_time" db:"start_time"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

func (m *Match) IsFinished() bool {
	return m.Status == MatchStatusFinished
}

// IsUnplayed reports whether the match can still be removed from a decided series.
func (m *Match) IsUnplayed() bool {
	switch m.Status {
	case MatchStatusScheduled, MatchStatusLive, MatchStatusPostponed:
		return true
	}
	return false
}

func (m *Match) TotalGoals() int {
	return m.HomeScore + m.AwayScore
}

func (m *Match) InvolvesClub(clubID int) bool {
	return m.HomeClubID == clubID || m.AwayClubID == clubID
}

type MatchEventType string

const (
	EventGoal             MatchEventType = "GOAL"
	EventPenaltyGoal      MatchEventType = "PENALTY_GOAL"
	EventOwnGoal          MatchEventType = "OWN_GOAL"
	EventAssist           MatchEventType = "ASSIST"
	EventPenaltyMissed    MatchEventType = "PENALTY_MISSED"
	EventYellowCard       MatchEventType = "YELLOW_CARD"
	EventSecondYellowCard MatchEventType = "SECOND_YELLOW_CARD"
	EventRedCard          MatchEventType = "RED_CARD"
)

type MatchEvent struct {
	ID                int            `json:"id" db:"id"`
	MatchID           int            `json:"match_id" db:"match_id"`
	ClubID            int            `json:"club_id" db:"club_id"`
	PersonID          int            `json:"person_id" db:"person_id"`
	SecondaryPersonID *int           `json:"secondary_person_id,omitempty" db:"secondary_person_id"`
	Type              MatchEventType `json:"event_type" db:"event_type"`
	Minute            int            `json:"minute" db:"minute"`
}

type MatchLineup struct {
	MatchID  int `json:"match_id" db:"match_id"`
	ClubID   int `json:"club_id" db:"club_id"`
	PersonID int `json:"person_id" db:"person_id"`
}
