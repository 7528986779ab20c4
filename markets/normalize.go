package markets

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
)

const (
	SideOver  = "OVER"
	SideUnder = "UNDER"
)

var outcomeAliases = map[string]models.Side{
	"HOME":     models.SideHome,
	"1":        models.SideHome,
	"HOME_WIN": models.SideHome,
	"W1":       models.SideHome,
	"DRAW":     models.SideDraw,
	"X":        models.SideDraw,
	"D":        models.SideDraw,
	"AWAY":     models.SideAway,
	"2":        models.SideAway,
	"AWAY_WIN": models.SideAway,
	"W2":       models.SideAway,
}

var totalSelectionRe = regexp.MustCompile(`^(OVER|UNDER|O|U)(?:[\s_:]*(\d+(?:\.\d+)?))?$`)

func canonical(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' }), "_")
}

// NormalizeOutcome maps a user selection to a match side.
func NormalizeOutcome(selection string) (models.Side, bool) {
	side, ok := outcomeAliases[canonical(selection)]
	return side, ok
}

// TotalSelection is a parsed over/under pick. Line is nil when the selection
// did not embed one.
type TotalSelection struct {
	Side string
	Line *float64
}

// ParseTotalSelection accepts forms like "OVER_2.5", "under 2,5", "O3" and a
// bare "OVER".
func ParseTotalSelection(selection string) (TotalSelection, bool) {
	s := strings.ToUpper(strings.TrimSpace(selection))
	s = strings.ReplaceAll(s, ",", ".")
	m := totalSelectionRe.FindStringSubmatch(s)
	if m == nil {
		return TotalSelection{}, false
	}
	sel := TotalSelection{Side: SideOver}
	if m[1] == "UNDER" || m[1] == "U" {
		sel.Side = SideUnder
	}
	if m[2] != "" {
		line, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return TotalSelection{}, false
		}
		sel.Line = &line
	}
	return sel, true
}

// FormatLine renders a line without trailing zeros ("2.5", "3").
func FormatLine(line float64) string {
	return strconv.FormatFloat(line, 'f', -1, 64)
}

// TotalChoiceValue is the canonical choice value for an over/under pick.
func TotalChoiceValue(side string, line float64) string {
	return side + "_" + FormatLine(line)
}

// NormalizeBoolean maps a user selection to the template's yes or no value.
// Both sides are compared in canonical form, so "both teams" matches a
// configured "BOTH_TEAMS" and the other way round.
func NormalizeBoolean(selection string, opts models.BooleanEventOptions) (string, bool) {
	switch canonical(selection) {
	case canonical(opts.Yes()), "YES", "Y", "TRUE", "1":
		return opts.Yes(), true
	case canonical(opts.No()), "NO", "N", "FALSE", "0":
		return opts.No(), true
	}
	return "", false
}
