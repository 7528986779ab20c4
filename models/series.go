package models

import "time"

type SeriesStatus string

const (
	SeriesInProgress SeriesStatus = "IN_PROGRESS"
	SeriesFinished   SeriesStatus = "FINISHED"
)

// BracketType separates the two sub-brackets of a gold/silver cup. It is
// empty for every other format.
type BracketType string

const (
	BracketNone   BracketType = ""
	BracketGold   BracketType = "GOLD"
	BracketSilver BracketType = "SILVER"
)

// MatchSeries is a tie between two clubs inside one stage. A series with no
// away club is a bye: it is created FINISHED with the home club as winner.
type MatchSeries struct {
	ID             int          `json:"id" db:"id"`
	SeasonID       int          `json:"season_id" db:"season_id"`
	Stage          Stage        `json:"stage" db:"stage"`
	HomeClubID     int          `json:"home_club_id" db:"home_club_id"`
	AwayClubID     *int         `json:"away_club_id,omitempty" db:"away_club_id"`
	Status         SeriesStatus `json:"status" db:"status"`
	WinnerClubID   *int         `json:"winner_club_id,omitempty" db:"winner_club_id"`
	HomeSeed       *int         `json:"home_seed,omitempty" db:"home_seed"`
	AwaySeed       *int         `json:"away_seed,omitempty" db:"away_seed"`
	BracketSlot    *int         `json:"bracket_slot,omitempty" db:"bracket_slot"`
	BracketType    BracketType  `json:"bracket_type,omitempty" db:"bracket_type"`
	PlannedMatches int          `json:"planned_matches" db:"planned_matches"`
	CreatedAt      time.Time    `json:"created_at" db:"created_at"`
}

// RequiredWins is floor(planned/2)+1.
func (s *MatchSeries) RequiredWins() int {
	planned := s.PlannedMatches
	if planned < 1 {
		planned = 1
	}
	return planned/2 + 1
}

func (s *MatchSeries) IsBye() bool {
	return s.AwayClubID == nil
}

func (s *MatchSeries) IsFinished() bool {
	return s.Status == SeriesFinished
}

// LoserClubID is the club eliminated by a decided series; byes have none.
func (s *MatchSeries) LoserClubID() (int, bool) {
	if s.WinnerClubID == nil || s.AwayClubID == nil {
		return 0, false
	}
	if *s.WinnerClubID == s.HomeClubID {
		return *s.AwayClubID, true
	}
	return s.HomeClubID, true
}

// SeedOf returns the seed the given club carried into this series.
func (s *MatchSeries) SeedOf(clubID int) *int {
	switch {
	case clubID == s.HomeClubID:
		return s.HomeSeed
	case s.AwayClubID != nil && clubID == *s.AwayClubID:
		return s.AwaySeed
	}
	return nil
}
