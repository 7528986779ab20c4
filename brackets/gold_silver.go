package brackets

import (
	"fmt"
	"sort"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
)

// CrossPairing is one quarterfinal of a gold/silver cup: the winner of a
// group against the winner of a qualification slot.
type CrossPairing struct {
	Slot              int
	Group             string
	QualificationSlot int
}

// GoldSilverQuarterfinals is the fixed cross table of the cup.
var GoldSilverQuarterfinals = []CrossPairing{
	{Slot: 1, Group: "A", QualificationSlot: 4},
	{Slot: 2, Group: "B", QualificationSlot: 3},
	{Slot: 3, Group: "C", QualificationSlot: 2},
	{Slot: 4, Group: "D", QualificationSlot: 1},
}

// CrossBracket builds the quarterfinal pairings from group winners keyed by
// group label and qualification winners keyed by slot.
func CrossBracket(groupWinners map[string]int, qualifiers map[int]int) ([]Pairing, error) {
	pairings := make([]Pairing, 0, len(GoldSilverQuarterfinals))
	for i, cp := range GoldSilverQuarterfinals {
		home, ok := groupWinners[cp.Group]
		if !ok {
			return nil, fmt.Errorf("no winner for group %s", cp.Group)
		}
		away, ok := qualifiers[cp.QualificationSlot]
		if !ok {
			return nil, fmt.Errorf("no qualifier for slot %d", cp.QualificationSlot)
		}
		pairings = append(pairings, Pairing{
			Home: Seeded{Seed: i + 1, ClubID: home},
			Away: Unseeded{Slot: cp.QualificationSlot, ClubID: away},
			Slot: cp.Slot,
		})
	}
	return pairings, nil
}

// SlotResult is a decided series reduced to what the next bracket needs.
type SlotResult struct {
	Slot   int
	Winner Participant
	Loser  Participant
}

// SplitQuarterfinals sends quarterfinal winners to the gold bracket and
// losers to the silver bracket. Semifinals pair QF1-QF2 and QF3-QF4.
func SplitQuarterfinals(results []SlotResult) (gold, silver []Participant) {
	ordered := make([]SlotResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Slot < ordered[j].Slot })
	for _, r := range ordered {
		if r.Winner != nil {
			gold = append(gold, Unseeded{Slot: r.Slot, ClubID: r.Winner.Club(), Seed: SeedOf(r.Winner)})
		}
		if r.Loser != nil {
			silver = append(silver, Unseeded{Slot: r.Slot, ClubID: r.Loser.Club(), Seed: SeedOf(r.Loser)})
		}
	}
	return gold, silver
}

// GroupWinners picks the top club of each group table.
func GroupWinners(tables map[string][]*models.ClubSeasonStats) map[string]int {
	winners := make(map[string]int, len(tables))
	for label, rows := range tables {
		ranked := RankStandings(rows)
		if len(ranked) > 0 {
			winners[label] = ranked[0].ClubID
		}
	}
	return winners
}
