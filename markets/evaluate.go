package markets

import (
	"math"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/shopspring/decimal"
)

// Reason codes recorded for selections that could not be judged normally.
const (
	ReasonPush              = "push"
	ReasonUnparseable       = "unparseable_selection"
	ReasonLineMismatch      = "line_mismatch"
	ReasonMissingLine       = "missing_line"
	ReasonMissingEventCodes = "missing_event_codes"
	ReasonUnsupportedMarket = "unsupported_market"
)

// Evaluation is the verdict on one selection. Points is nil for VOID and
// CANCELLED.
type Evaluation struct {
	Status models.EntryStatus
	Points *int
	Reason string
	Choice string
}

func cancelled(reason string) Evaluation {
	return Evaluation{Status: models.EntryCancelled, Reason: reason}
}

// Evaluate judges a selection against a template and the match context.
func Evaluate(t *models.PredictionTemplate, selection string, ctx Context) Evaluation {
	var (
		won    bool
		choice string
	)
	switch t.MarketType {
	case models.MarketOutcome:
		side, ok := NormalizeOutcome(selection)
		if !ok {
			return cancelled(ReasonUnparseable)
		}
		choice = string(side)
		won = side == ctx.Outcome

	case models.MarketTotalGoals:
		sel, ok := ParseTotalSelection(selection)
		if !ok {
			return cancelled(ReasonUnparseable)
		}
		var configured *float64
		if opts, ok := t.Options.(models.TotalGoalsOptions); ok {
			configured = opts.Line
		}
		line, reason := resolveLine(configured, sel.Line)
		if reason != "" {
			return cancelled(reason)
		}
		total := float64(ctx.TotalGoals)
		if total == line {
			return Evaluation{Status: models.EntryVoid, Reason: ReasonPush}
		}
		choice = TotalChoiceValue(sel.Side, line)
		won = (sel.Side == SideOver) == (total > line)

	case models.MarketBooleanEvent:
		opts, ok := t.Options.(models.BooleanEventOptions)
		if !ok || len(opts.EventCodes) == 0 {
			return cancelled(ReasonMissingEventCodes)
		}
		value, ok := NormalizeBoolean(selection, opts)
		if !ok {
			return cancelled(ReasonUnparseable)
		}
		choice = value
		happened := opts.No()
		if ctx.HasAny(opts.EventCodes) {
			happened = opts.Yes()
		}
		won = value == happened

	default:
		return cancelled(ReasonUnsupportedMarket)
	}

	if !won {
		zero := 0
		return Evaluation{Status: models.EntryLost, Points: &zero, Choice: choice}
	}
	points := AwardPoints(t, choice)
	return Evaluation{Status: models.EntryWon, Points: &points, Choice: choice}
}

// resolveLine picks the line from the template, falling back to the one in
// the selection. Both present and different is a mismatch.
func resolveLine(configured, selected *float64) (float64, string) {
	switch {
	case configured != nil && selected != nil:
		if math.Abs(*configured-*selected) > 1e-9 {
			return 0, ReasonLineMismatch
		}
		return *configured, ""
	case configured != nil:
		return *configured, ""
	case selected != nil:
		return *selected, ""
	}
	return 0, ReasonMissingLine
}

// AwardPoints is round(choicePoints × difficulty), never negative. Unknown
// choices fall back to the template base points.
func AwardPoints(t *models.PredictionTemplate, choice string) int {
	base, ok := t.ChoicePoints(choice)
	if !ok {
		base = t.BasePoints
	}
	multiplier := t.DifficultyMultiplier
	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}
	points := decimal.NewFromInt(int64(base)).Mul(multiplier).Round(0).IntPart()
	if points < 0 {
		return 0
	}
	return int(points)
}
