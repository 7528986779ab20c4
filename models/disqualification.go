package models

import (
	"slices"
	"time"
)

type DisqualificationReason string

const (
	ReasonRedCard          DisqualificationReason = "RED_CARD"
	ReasonSecondYellow     DisqualificationReason = "SECOND_YELLOW"
	ReasonAccumulatedCards DisqualificationReason = "ACCUMULATED_CARDS"
)

type Disqualification struct {
	ID                 int                    `json:"id" db:"id"`
	PersonID           int                    `json:"person_id" db:"person_id"`
	ClubID             int                    `json:"club_id" db:"club_id"`
	SeasonID           *int                   `json:"season_id,omitempty" db:"season_id"`
	SourceMatchID      *int                   `json:"source_match_id,omitempty" db:"source_match_id"`
	LastAppliedMatchID *int                   `json:"last_applied_match_id,omitempty" db:"last_applied_match_id"`
	AppliedMatchIDs    []int                  `json:"applied_match_ids" db:"applied_match_ids"`
	Reason             DisqualificationReason `json:"reason" db:"reason"`
	BanDurationMatches int                    `json:"ban_duration_matches" db:"ban_duration_matches"`
	MatchesMissed      int                    `json:"matches_missed" db:"matches_missed"`
	IsActive           bool                   `json:"is_active" db:"is_active"`
	CreatedAt          time.Time              `json:"created_at" db:"created_at"`
}

// Served reports whether the ban already counted the given fixture.
func (d *Disqualification) Served(matchID int) bool {
	return slices.Contains(d.AppliedMatchIDs, matchID)
}

// Advance counts one missed match for the given fixture. It returns false
// when the ban was created by that fixture or already counted it, so
// finalizing fixtures again in any order never double counts.
func (d *Disqualification) Advance(matchID int) bool {
	if !d.IsActive {
		return false
	}
	if d.SourceMatchID != nil && *d.SourceMatchID == matchID {
		return false
	}
	if d.Served(matchID) {
		return false
	}
	d.MatchesMissed++
	d.LastAppliedMatchID = &matchID
	d.AppliedMatchIDs = append(d.AppliedMatchIDs, matchID)
	if d.MatchesMissed >= d.BanDurationMatches {
		d.IsActive = false
	}
	return true
}
