package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// Rules are the league rules applied during finalization.
type Rules struct {
	Points     PointsRules     `yaml:"points"`
	Discipline DisciplineRules `yaml:"discipline"`
	Express    ExpressRules    `yaml:"express"`
	Schedule   ScheduleRules   `yaml:"schedule"`
	Cache      CacheRules      `yaml:"cache"`
}

type PointsRules struct {
	Win  int `yaml:"win"`
	Draw int `yaml:"draw"`
	Loss int `yaml:"loss"`
}

type DisciplineRules struct {
	RedCardBan      int `yaml:"red_card_ban"`
	SecondYellowBan int `yaml:"second_yellow_ban"`
	YellowThreshold int `yaml:"yellow_threshold"`
	AccumulatedBan  int `yaml:"accumulated_ban"`
}

type ExpressRules struct {
	MinItems    int             `yaml:"min_items"`
	MaxItems    int             `yaml:"max_items"`
	Multipliers map[int]float64 `yaml:"multipliers"`
}

type ScheduleRules struct {
	StageGap      time.Duration `yaml:"stage_gap"`
	SeriesSpacing time.Duration `yaml:"series_spacing"`
	ThirdPlaceLag time.Duration `yaml:"third_place_lag"`
}

type CacheRules struct {
	StandingsTTL time.Duration `yaml:"standings_ttl"`
}

// Default values for optional rule fields.
const (
	DefaultWinPoints       = 3
	DefaultDrawPoints      = 1
	DefaultRedCardBan      = 2
	DefaultSecondYellowBan = 1
	DefaultYellowThreshold = 4
	DefaultAccumulatedBan  = 1
	DefaultExpressMinItems = 2
	DefaultExpressMaxItems = 4
	DefaultStageGap        = 7 * 24 * time.Hour
	DefaultSeriesSpacing   = 3 * 24 * time.Hour
	DefaultThirdPlaceLag   = 24 * time.Hour
	DefaultStandingsTTL    = 10 * time.Minute
)

// DefaultRules returns the rules used when no rules file is configured.
func DefaultRules() *Rules {
	r := &Rules{}
	r.applyDefaults()
	return r
}

// LoadRules reads a YAML rules file, applies defaults and validates it.
// An empty path yields DefaultRules.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	r.applyDefaults()
	if err := r.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	return &r, nil
}

func (r *Rules) applyDefaults() {
	if r.Points == (PointsRules{}) {
		r.Points = PointsRules{Win: DefaultWinPoints, Draw: DefaultDrawPoints}
	}

	if r.Discipline.RedCardBan == 0 {
		r.Discipline.RedCardBan = DefaultRedCardBan
	}
	if r.Discipline.SecondYellowBan == 0 {
		r.Discipline.SecondYellowBan = DefaultSecondYellowBan
	}
	if r.Discipline.YellowThreshold == 0 {
		r.Discipline.YellowThreshold = DefaultYellowThreshold
	}
	if r.Discipline.AccumulatedBan == 0 {
		r.Discipline.AccumulatedBan = DefaultAccumulatedBan
	}

	if r.Express.MinItems == 0 {
		r.Express.MinItems = DefaultExpressMinItems
	}
	if r.Express.MaxItems == 0 {
		r.Express.MaxItems = DefaultExpressMaxItems
	}
	if len(r.Express.Multipliers) == 0 {
		r.Express.Multipliers = map[int]float64{2: 1.2, 3: 1.5, 4: 2.5}
	}

	if r.Schedule.StageGap == 0 {
		r.Schedule.StageGap = DefaultStageGap
	}
	if r.Schedule.SeriesSpacing == 0 {
		r.Schedule.SeriesSpacing = DefaultSeriesSpacing
	}
	if r.Schedule.ThirdPlaceLag == 0 {
		r.Schedule.ThirdPlaceLag = DefaultThirdPlaceLag
	}

	if r.Cache.StandingsTTL == 0 {
		r.Cache.StandingsTTL = DefaultStandingsTTL
	}
}

// Validate checks value ranges and that express multipliers never decrease
// with the item count.
func (r *Rules) Validate() error {
	if r.Points.Win <= r.Points.Draw || r.Points.Draw < r.Points.Loss {
		return fmt.Errorf("points must satisfy win > draw >= loss, got %d/%d/%d", r.Points.Win, r.Points.Draw, r.Points.Loss)
	}
	if r.Discipline.RedCardBan < 1 || r.Discipline.SecondYellowBan < 1 || r.Discipline.AccumulatedBan < 1 {
		return errors.New("discipline ban lengths must be >= 1")
	}
	if r.Discipline.YellowThreshold < 1 {
		return errors.New("discipline.yellow_threshold must be >= 1")
	}
	if r.Express.MinItems < 2 {
		return fmt.Errorf("express.min_items must be >= 2, got %d", r.Express.MinItems)
	}
	if r.Express.MaxItems < r.Express.MinItems {
		return fmt.Errorf("express.max_items (%d) cannot be below min_items (%d)", r.Express.MaxItems, r.Express.MinItems)
	}
	counts := make([]int, 0, len(r.Express.Multipliers))
	for n, m := range r.Express.Multipliers {
		if n < 2 {
			return fmt.Errorf("express.multipliers: item count %d is below 2", n)
		}
		if m < 1 {
			return fmt.Errorf("express.multipliers[%d] must be >= 1, got %v", n, m)
		}
		counts = append(counts, n)
	}
	sort.Ints(counts)
	for i := 1; i < len(counts); i++ {
		if r.Express.Multipliers[counts[i]] < r.Express.Multipliers[counts[i-1]] {
			return fmt.Errorf("express.multipliers must not decrease: %d items pay less than %d", counts[i], counts[i-1])
		}
	}
	if r.Schedule.StageGap <= 0 || r.Schedule.SeriesSpacing <= 0 || r.Schedule.ThirdPlaceLag <= 0 {
		return errors.New("schedule durations must be positive")
	}
	return nil
}
