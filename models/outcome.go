package models

// Side is the result of a finished match from the home club's point of view.
type Side string

const (
	SideHome Side = "HOME"
	SideAway Side = "AWAY"
	SideDraw Side = "DRAW"
)

// ResolveOutcome is the single tie-break rule shared by standings, series
// and elimination: the higher regular score wins; on a tie the shootout
// decides when it was played and both shootout scores are known.
func ResolveOutcome(homeScore, awayScore int, shootout bool, homeShootout, awayShootout *int) Side {
	switch {
	case homeScore > awayScore:
		return SideHome
	case awayScore > homeScore:
		return SideAway
	}
	if !shootout || homeShootout == nil || awayShootout == nil {
		return SideDraw
	}
	switch {
	case *homeShootout > *awayShootout:
		return SideHome
	case *awayShootout > *homeShootout:
		return SideAway
	}
	return SideDraw
}

func (m *Match) Outcome() Side {
	return ResolveOutcome(m.HomeScore, m.AwayScore, m.HasShootout, m.HomeShootoutScore, m.AwayShootoutScore)
}

// WinnerClubID returns the winning club, ok is false for a draw.
func (m *Match) WinnerClubID() (int, bool) {
	switch m.Outcome() {
	case SideHome:
		return m.HomeClubID, true
	case SideAway:
		return m.AwayClubID, true
	}
	return 0, false
}

func (m *Match) LoserClubID() (int, bool) {
	switch m.Outcome() {
	case SideHome:
		return m.AwayClubID, true
	case SideAway:
		return m.HomeClubID, true
	}
	return 0, false
}
