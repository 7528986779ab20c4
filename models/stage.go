package models

import (
	"strconv"
	"strings"
)

// Stage identifies a tournament level. Identifiers are stable ASCII names;
// gold/silver cup stages carry the bracket as a prefix.
type Stage string

const (
	StageQualification Stage = "QUALIFICATION"
	StageQuarterfinal  Stage = "QUARTERFINAL"
	StageSemifinal     Stage = "SEMIFINAL"
	StageFinal         Stage = "FINAL"
	StageThirdPlace    Stage = "THIRD_PLACE"

	roundOfPrefix = "ROUND_OF_"
)

// StageForParticipants names the stage played by n clubs.
func StageForParticipants(n int) Stage {
	switch {
	case n <= 2:
		return StageFinal
	case n <= 4:
		return StageSemifinal
	case n <= 8:
		return StageQuarterfinal
	}
	size := 16
	for size < n {
		size *= 2
	}
	return Stage(roundOfPrefix + strconv.Itoa(size))
}

// InBracket prefixes the stage with a gold/silver bracket name.
func (s Stage) InBracket(b BracketType) Stage {
	if b == BracketNone {
		return s
	}
	return Stage(string(b) + "_" + string(s.Base()))
}

// Base strips a bracket prefix.
func (s Stage) Base() Stage {
	for _, b := range []BracketType{BracketGold, BracketSilver} {
		if rest, ok := strings.CutPrefix(string(s), string(b)+"_"); ok {
			return Stage(rest)
		}
	}
	return s
}

func (s Stage) Bracket() BracketType {
	for _, b := range []BracketType{BracketGold, BracketSilver} {
		if strings.HasPrefix(string(s), string(b)+"_") {
			return b
		}
	}
	return BracketNone
}

// IsTerminal reports stages after which nothing is generated.
func (s Stage) IsTerminal() bool {
	base := s.Base()
	return base == StageFinal || base == StageThirdPlace
}

// Order is the size of the field that plays the stage; progression moves to
// smaller values. Qualification sorts before every knockout stage and the
// third-place match after the final.
func (s Stage) Order() int {
	switch base := s.Base(); base {
	case StageQualification:
		return 1 << 20
	case StageQuarterfinal:
		return 8
	case StageSemifinal:
		return 4
	case StageFinal:
		return 2
	case StageThirdPlace:
		return 1
	default:
		if n, err := strconv.Atoi(strings.TrimPrefix(string(base), roundOfPrefix)); err == nil {
			return n
		}
	}
	return 0
}

func (s Stage) String() string {
	return string(s)
}
