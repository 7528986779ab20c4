package brackets

import (
	"sort"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
)

// RankStandings sorts table rows: points, wins and goal difference
// descending, goals for descending, goals against ascending, club id
// ascending.
func RankStandings(rows []*models.ClubSeasonStats) []*models.ClubSeasonStats {
	ranked := make([]*models.ClubSeasonStats, len(rows))
	copy(ranked, rows)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		if a.GoalDifference() != b.GoalDifference() {
			return a.GoalDifference() > b.GoalDifference()
		}
		if a.GoalsFor != b.GoalsFor {
			return a.GoalsFor > b.GoalsFor
		}
		if a.GoalsAgainst != b.GoalsAgainst {
			return a.GoalsAgainst < b.GoalsAgainst
		}
		return a.ClubID < b.ClubID
	})
	return ranked
}

// SeedByStandings seeds clubs by their table position. Clubs missing from
// the table are seeded after every ranked club in id order.
func SeedByStandings(clubIDs []int, rows []*models.ClubSeasonStats) []Participant {
	position := make(map[int]int, len(rows))
	for i, row := range RankStandings(rows) {
		position[row.ClubID] = i + 1
	}
	unranked := make([]int, 0)
	out := make([]Participant, 0, len(clubIDs))
	for _, id := range clubIDs {
		if pos, ok := position[id]; ok {
			out = append(out, Seeded{Seed: pos, ClubID: id})
			continue
		}
		unranked = append(unranked, id)
	}
	sort.Ints(unranked)
	for i, id := range unranked {
		out = append(out, Seeded{Seed: len(rows) + i + 1, ClubID: id})
	}
	return out
}
