package models

import "time"

// ClubSeasonStats is one row of a season table. The whole set for a season
// is rebuilt from finished matches; rows are never patched in place.
type ClubSeasonStats struct {
	SeasonID     int       `json:"season_id" db:"season_id"`
	ClubID       int       `json:"club_id" db:"club_id"`
	Points       int       `json:"points" db:"points"`
	Played       int       `json:"played" db:"played"`
	Wins         int       `json:"wins" db:"wins"`
	Draws        int       `json:"draws" db:"draws"`
	Losses       int       `json:"losses" db:"losses"`
	GoalsFor     int       `json:"goals_for" db:"goals_for"`
	GoalsAgainst int       `json:"goals_against" db:"goals_against"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

func (s *ClubSeasonStats) GoalDifference() int {
	return s.GoalsFor - s.GoalsAgainst
}

type PlayerSeasonStats struct {
	SeasonID      int `json:"season_id" db:"season_id"`
	PersonID      int `json:"person_id" db:"person_id"`
	ClubID        int `json:"club_id" db:"club_id"`
	MatchesPlayed int `json:"matches_played" db:"matches_played"`
	Goals         int `json:"goals" db:"goals"`
	PenaltyGoals  int `json:"penalty_goals" db:"penalty_goals"`
	Assists       int `json:"assists" db:"assists"`
	YellowCards   int `json:"yellow_cards" db:"yellow_cards"`
	RedCards      int `json:"red_cards" db:"red_cards"`
}

// PlayerClubCareerStats sums PlayerSeasonStats of one person for one club.
type PlayerClubCareerStats struct {
	ClubID        int `json:"club_id" db:"club_id"`
	PersonID      int `json:"person_id" db:"person_id"`
	Seasons       int `json:"seasons" db:"seasons"`
	MatchesPlayed int `json:"matches_played" db:"matches_played"`
	Goals         int `json:"goals" db:"goals"`
	PenaltyGoals  int `json:"penalty_goals" db:"penalty_goals"`
	Assists       int `json:"assists" db:"assists"`
	YellowCards   int `json:"yellow_cards" db:"yellow_cards"`
	RedCards      int `json:"red_cards" db:"red_cards"`
}

// RosterLink ties a person to a club independent of any statistics.
type RosterLink struct {
	ClubID   int `json:"club_id" db:"club_id"`
	PersonID int `json:"person_id" db:"person_id"`
}
