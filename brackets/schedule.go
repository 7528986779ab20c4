package brackets

import "time"

// ScheduleRules holds the spacing used for generated playoff matches.
type ScheduleRules struct {
	StageGap      time.Duration
	SeriesSpacing time.Duration
	ThirdPlaceLag time.Duration
}

func DefaultScheduleRules() ScheduleRules {
	return ScheduleRules{
		StageGap:      7 * 24 * time.Hour,
		SeriesSpacing: 3 * 24 * time.Hour,
		ThirdPlaceLag: 24 * time.Hour,
	}
}

// StageStart is the kickoff of the first match of a new stage.
func (r ScheduleRules) StageStart(latestMatch, now time.Time) time.Time {
	if latestMatch.IsZero() {
		latestMatch = now
	}
	return latestMatch.Add(r.StageGap)
}

// KickoffTimes spaces the fixtures of one series.
func (r ScheduleRules) KickoffTimes(start time.Time, fixtures []Fixture) []time.Time {
	times := make([]time.Time, len(fixtures))
	for i := range fixtures {
		times[i] = start.Add(time.Duration(i) * r.SeriesSpacing)
	}
	return times
}
