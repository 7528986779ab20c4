package models

import "time"

// SeriesFormat is how ties between two clubs are played in a season.
type SeriesFormat string

const (
	FormatSingleMatch       SeriesFormat = "SINGLE_MATCH"
	FormatBestOfN           SeriesFormat = "BEST_OF_N"
	FormatDoubleRound       SeriesFormat = "DOUBLE_ROUND"
	FormatSingleElimination SeriesFormat = "SINGLE_ELIMINATION"
	FormatGroupElimination  SeriesFormat = "GROUP_SINGLE_ELIMINATION"
	FormatGoldSilverCup     SeriesFormat = "GOLD_SILVER_CUP"
)

// IsBracket reports whether next-stage pairings follow bracket slots
// rather than the season table.
func (f SeriesFormat) IsBracket() bool {
	switch f {
	case FormatSingleElimination, FormatGroupElimination, FormatGoldSilverCup:
		return true
	}
	return false
}

// CountsSeriesWins reports whether a series is decided by a win count across
// several matches instead of a single match.
func (f SeriesFormat) CountsSeriesWins() bool {
	return f == FormatBestOfN || f == FormatDoubleRound
}

// TableIncludesPlayoffs is false for group formats where the table only
// describes the group phase.
func (f SeriesFormat) TableIncludesPlayoffs() bool {
	return f != FormatGroupElimination && f != FormatGoldSilverCup
}

type Season struct {
	ID            int          `json:"id" db:"id"`
	CompetitionID int          `json:"competition_id" db:"competition_id"`
	Name          string       `json:"name" db:"name"`
	SeriesFormat  SeriesFormat `json:"series_format" db:"series_format"`
	SeriesLength  int          `json:"series_length" db:"series_length"` // N for best-of-N
	StartDate     time.Time    `json:"start_date" db:"start_date"`
	EndDate       time.Time    `json:"end_date" db:"end_date"`
}

// PlannedMatchesPerSeries is the number of matches scheduled for a new
// playoff series of this season.
func (s *Season) PlannedMatchesPerSeries() int {
	switch s.SeriesFormat {
	case FormatBestOfN:
		if s.SeriesLength > 0 {
			return s.SeriesLength
		}
		return 3
	case FormatDoubleRound:
		return 2
	}
	return 1
}

type SeasonRound struct {
	ID        int    `json:"id" db:"id"`
	SeasonID  int    `json:"season_id" db:"season_id"`
	Number    int    `json:"number" db:"number"`
	Label     string `json:"label" db:"label"`
	IsPlayoff bool   `json:"is_playoff" db:"is_playoff"`
}

type SeasonGroup struct {
	ID       int    `json:"id" db:"id"`
	SeasonID int    `json:"season_id" db:"season_id"`
	Label    string `json:"label" db:"label"` // "A".."D"
}
