package markets

import (
	"sort"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/shopspring/decimal"
)

// ExpressRules configures combination bets. Multipliers is a step function
// of the item count.
type ExpressRules struct {
	MinItems    int
	MaxItems    int
	Multipliers map[int]decimal.Decimal
}

func DefaultExpressRules() ExpressRules {
	return ExpressRules{
		MinItems: 2,
		MaxItems: 4,
		Multipliers: map[int]decimal.Decimal{
			2: decimal.RequireFromString("1.2"),
			3: decimal.RequireFromString("1.5"),
			4: decimal.RequireFromString("2.5"),
		},
	}
}

// Multiplier returns the factor for n items. Counts without an explicit step
// use the closest lower step; a single item is never boosted.
func (r ExpressRules) Multiplier(n int) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if n <= 1 {
		return one
	}
	if m, ok := r.Multipliers[n]; ok {
		return m
	}
	counts := make([]int, 0, len(r.Multipliers))
	for c := range r.Multipliers {
		counts = append(counts, c)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(counts)))
	for _, c := range counts {
		if c < n {
			return r.Multipliers[c]
		}
	}
	return one
}

// ExpressResult is the parent status derived from resolved items.
type ExpressResult struct {
	Status        models.EntryStatus
	AwardedPoints *int
	WonItems      int
	// Anomaly marks item combinations none of the rules describe.
	Anomaly bool
}

// ResolveExpress derives the bet status. ok is false while any item is
// still PENDING.
func ResolveExpress(bet *models.ExpressBet, items []*models.ExpressBetItem, rules ExpressRules) (ExpressResult, bool) {
	if len(items) == 0 {
		return ExpressResult{}, false
	}
	var won, lost, void, cancelled, sumWon, sumAll int
	for _, it := range items {
		sumAll += it.BasePoints
		switch it.Status {
		case models.EntryPending:
			return ExpressResult{}, false
		case models.EntryWon:
			won++
			sumWon += it.BasePoints
		case models.EntryLost:
			lost++
		case models.EntryVoid:
			void++
		case models.EntryCancelled:
			cancelled++
		}
	}

	minItems := bet.MinItems
	if minItems <= 0 {
		minItems = rules.MinItems
	}

	switch {
	case lost > 0:
		zero := 0
		return ExpressResult{Status: models.EntryLost, AwardedPoints: &zero, WonItems: won}, true

	case cancelled == len(items):
		return ExpressResult{Status: models.EntryCancelled}, true

	case void > 0:
		switch {
		case won >= minItems:
			points := roundPoints(sumWon, rules.Multiplier(won))
			return ExpressResult{Status: models.EntryWon, AwardedPoints: &points, WonItems: won}, true
		case won >= 1:
			refund := sumWon
			return ExpressResult{Status: models.EntryVoid, AwardedPoints: &refund, WonItems: won}, true
		}
		return ExpressResult{Status: models.EntryVoid}, true

	case won == len(items):
		total := bet.TotalBasePoints
		if total == 0 {
			total = sumAll
		}
		multiplier := bet.Multiplier
		if multiplier.IsZero() {
			multiplier = rules.Multiplier(len(items))
		}
		points := roundPoints(total, multiplier)
		return ExpressResult{Status: models.EntryWon, AwardedPoints: &points, WonItems: won}, true
	}

	return ExpressResult{Status: models.EntryCancelled, WonItems: won, Anomaly: true}, true
}

func roundPoints(base int, multiplier decimal.Decimal) int {
	points := decimal.NewFromInt(int64(base)).Mul(multiplier).Round(0).IntPart()
	if points < 0 {
		return 0
	}
	return int(points)
}
