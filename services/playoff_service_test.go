package services

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/shopspring/decimal"
)

func addTie(st *memStore, seasonID int, stage models.Stage, slot, home, away int, winner *int) *models.MatchSeries {
	s := &models.MatchSeries{
		SeasonID:    seasonID,
		Stage:       stage,
		HomeClubID:  home,
		AwayClubID:  intPtr(away),
		BracketSlot: intPtr(slot),
	}
	if winner != nil {
		s.Status = models.SeriesFinished
		s.WinnerClubID = winner
	}
	return st.addSeries(s)
}

func seriesMatch(st *memStore, seriesID, home, away, homeScore, awayScore int) *models.Match {
	return st.addMatch(&models.Match{
		SeasonID:   intPtr(1),
		SeriesID:   intPtr(seriesID),
		HomeClubID: home,
		AwayClubID: away,
		HomeScore:  homeScore,
		AwayScore:  awayScore,
	})
}

func latestStart(st *memStore) time.Time {
	var latest time.Time
	for _, m := range st.matches {
		if m.StartTime.After(latest) {
			latest = m.StartTime
		}
	}
	return latest
}

// playStage finishes every unplayed match of a stage with a home win and
// reports each one, returning the last progression.
func playStage(t *testing.T, svc *testServices, season *models.Season, stage models.Stage) *ProgressionResult {
	t.Helper()
	var last *ProgressionResult
	for _, sr := range svc.st.seriesInStage(season.ID, stage) {
		for _, m := range svc.st.matchesOfSeries(sr.ID) {
			if m.IsFinished() {
				continue
			}
			m.Status = models.MatchStatusFinished
			m.HomeScore = 1
			res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
			if err != nil {
				t.Fatalf("OnMatchFinished(%d) error = %v", m.ID, err)
			}
			last = res
		}
	}
	return last
}

func TestBestOfThreeDecidedEarly(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatBestOfN, SeriesLength: 3}, 1, 2, 3, 4)
	series := addTie(st, 1, models.StageSemifinal, 1, 1, 2, nil)
	series.PlannedMatches = 3
	addTie(st, 1, models.StageSemifinal, 2, 3, 4, nil)

	seriesMatch(st, series.ID, 1, 2, 1, 0)
	decider := seriesMatch(st, series.ID, 2, 1, 0, 2)
	third := st.addMatch(&models.Match{SeasonID: intPtr(1), SeriesID: intPtr(series.ID), HomeClubID: 1, AwayClubID: 2, Status: models.MatchStatusScheduled})
	tmpl := st.addTemplate(outcomeTemplate(third.ID))
	entry := st.addEntry(&models.PredictionEntry{TemplateID: tmpl.ID, UserID: 7, Selection: "HOME"})

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, decider)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if !res.SeriesFinished || derefInt(res.WinnerClubID) != 1 {
		t.Fatalf("result = %+v, want series won by club 1", res)
	}
	if !reflect.DeepEqual(res.DeletedMatches, []int{third.ID}) {
		t.Errorf("DeletedMatches = %v, want [%d]", res.DeletedMatches, third.ID)
	}
	if _, ok := st.matches[third.ID]; ok {
		t.Error("unplayed third match still exists")
	}
	if entry.Status != models.EntryCancelled || res.Cancelled == nil || res.Cancelled.EntriesSettled != 1 {
		t.Errorf("prediction on the removed match = %s, cancelled %+v", entry.Status, res.Cancelled)
	}
	if len(res.CreatedStages) != 0 {
		t.Errorf("created %v while a sibling series is still running", res.CreatedStages)
	}
	if st.series[series.ID].Status != models.SeriesFinished {
		t.Error("series not finished in storage")
	}
}

func TestBestOfThreeStillOpen(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatBestOfN, SeriesLength: 3})
	series := addTie(st, 1, models.StageFinal, 1, 1, 2, nil)
	series.PlannedMatches = 3
	first := seriesMatch(st, series.ID, 1, 2, 1, 0)
	for i := 0; i < 2; i++ {
		st.addMatch(&models.Match{SeasonID: intPtr(1), SeriesID: intPtr(series.ID), HomeClubID: 2, AwayClubID: 1, Status: models.MatchStatusScheduled})
	}

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, first)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if res.SeriesFinished || res.ManualResolution || st.series[series.ID].IsFinished() {
		t.Fatalf("series decided after one win: %+v", res)
	}
}

func TestSingleMatchDrawNeedsManualResolution(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatSingleElimination})
	series := addTie(st, 1, models.StageFinal, 1, 1, 2, nil)
	m := seriesMatch(st, series.ID, 1, 2, 1, 1)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if !res.ManualResolution || res.SeriesFinished {
		t.Fatalf("result = %+v, want manual resolution", res)
	}
	if st.series[series.ID].Status != models.SeriesInProgress {
		t.Error("drawn series must stay in progress")
	}
}

func TestShootoutDecidesSingleMatch(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatSingleElimination})
	series := addTie(st, 1, models.StageFinal, 1, 1, 2, nil)
	m := seriesMatch(st, series.ID, 1, 2, 0, 0)
	m.HasShootout = true
	m.HomeShootoutScore = intPtr(3)
	m.AwayShootoutScore = intPtr(4)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if derefInt(res.WinnerClubID) != 2 {
		t.Fatalf("winner = %v, want club 2", res.WinnerClubID)
	}
	if len(res.CreatedStages) != 0 {
		t.Errorf("a final must not create further stages, got %v", res.CreatedStages)
	}
}

func TestOddWinnersGetBye(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatSingleElimination})
	for slot := 1; slot <= 4; slot++ {
		addTie(st, 1, "ROUND_OF_16", slot, slot, 10+slot, intPtr(slot))
	}
	last := addTie(st, 1, "ROUND_OF_16", 5, 5, 15, nil)
	m := seriesMatch(st, last.ID, 5, 15, 3, 0)
	start := latestStart(st).Add(7 * 24 * time.Hour)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{models.StageQuarterfinal}) {
		t.Fatalf("CreatedStages = %v", res.CreatedStages)
	}
	if res.CreatedSeries != 3 || res.CreatedMatches != 2 {
		t.Fatalf("created %d series and %d matches, want 3 and 2", res.CreatedSeries, res.CreatedMatches)
	}

	qf := st.seriesInStage(1, models.StageQuarterfinal)
	wantPairs := [][2]int{{1, 2}, {3, 4}, {5, 0}}
	for i, sr := range qf {
		away := 0
		if sr.AwayClubID != nil {
			away = *sr.AwayClubID
		}
		if sr.HomeClubID != wantPairs[i][0] || away != wantPairs[i][1] || derefInt(sr.BracketSlot) != i+1 {
			t.Errorf("series %d = %d v %d slot %d, want %v slot %d", i, sr.HomeClubID, away, derefInt(sr.BracketSlot), wantPairs[i], i+1)
		}
	}
	bye := qf[2]
	if !bye.IsBye() || !bye.IsFinished() || derefInt(bye.WinnerClubID) != 5 {
		t.Errorf("bye series = %+v, want finished with club 5", bye)
	}
	for _, m := range st.matchesOfSeries(qf[0].ID) {
		if !m.StartTime.Equal(start) || m.Status != models.MatchStatusScheduled || m.RoundID == nil {
			t.Errorf("generated match = %+v, want scheduled at %v with a round", m, start)
		}
	}
	if len(st.rounds) != 1 || st.rounds[0].Label != "QUARTERFINAL" || !st.rounds[0].IsPlayoff {
		t.Errorf("rounds = %+v, want one playoff round QUARTERFINAL", st.rounds)
	}

	// Reporting the same match again must not generate anything.
	res, err = svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("second OnMatchFinished() error = %v", err)
	}
	if res.SeriesFinished || len(res.CreatedStages) != 0 || len(st.seriesInStage(1, models.StageQuarterfinal)) != 3 {
		t.Fatalf("re-run changed the bracket: %+v", res)
	}

	// Two quarterfinal winners plus the bye make a three-club semifinal.
	res = playStage(t, svc, season, models.StageQuarterfinal)
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{models.StageSemifinal}) {
		t.Fatalf("after quarterfinals CreatedStages = %v", res.CreatedStages)
	}
	sf := st.seriesInStage(1, models.StageSemifinal)
	if len(sf) != 2 || sf[0].HomeClubID != 1 || derefInt(sf[0].AwayClubID) != 3 || !sf[1].IsBye() || sf[1].HomeClubID != 5 {
		t.Fatalf("semifinals = %+v", sf)
	}
}

func TestSemifinalsCreateFinalAndThirdPlace(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatSingleElimination})
	addTie(st, 1, models.StageSemifinal, 1, 1, 2, intPtr(1))
	open := addTie(st, 1, models.StageSemifinal, 2, 3, 4, nil)
	m := seriesMatch(st, open.ID, 3, 4, 0, 2)
	start := latestStart(st).Add(7 * 24 * time.Hour)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{models.StageFinal, models.StageThirdPlace}) {
		t.Fatalf("CreatedStages = %v", res.CreatedStages)
	}

	final := st.seriesInStage(1, models.StageFinal)
	if len(final) != 1 || final[0].HomeClubID != 1 || derefInt(final[0].AwayClubID) != 4 {
		t.Fatalf("final = %+v, want 1 v 4", final)
	}
	third := st.seriesInStage(1, models.StageThirdPlace)
	if len(third) != 1 || third[0].HomeClubID != 2 || derefInt(third[0].AwayClubID) != 3 {
		t.Fatalf("third place = %+v, want 2 v 3", third)
	}
	if got := st.matchesOfSeries(final[0].ID)[0].StartTime; !got.Equal(start) {
		t.Errorf("final kickoff = %v, want %v", got, start)
	}
	if got := st.matchesOfSeries(third[0].ID)[0].StartTime; !got.Equal(start.Add(24 * time.Hour)) {
		t.Errorf("third place kickoff = %v, want a day after the final", got)
	}

	// Finishing the final ends progression.
	res = playStage(t, svc, season, models.StageFinal)
	if !res.SeriesFinished || len(res.CreatedStages) != 0 {
		t.Fatalf("final result = %+v", res)
	}
}

func TestNonBracketFormatSeedsByTable(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatSingleMatch})
	st.clubStats[1] = []*models.ClubSeasonStats{
		{SeasonID: 1, ClubID: 11, Points: 3},
		{SeasonID: 1, ClubID: 12, Points: 6},
		{SeasonID: 1, ClubID: 13, Points: 9},
		{SeasonID: 1, ClubID: 14, Points: 12},
	}
	addTie(st, 1, models.StageQuarterfinal, 1, 11, 21, intPtr(11))
	addTie(st, 1, models.StageQuarterfinal, 2, 12, 22, intPtr(12))
	addTie(st, 1, models.StageQuarterfinal, 3, 13, 23, intPtr(13))
	open := addTie(st, 1, models.StageQuarterfinal, 4, 14, 24, nil)
	m := seriesMatch(st, open.ID, 14, 24, 2, 0)

	svc := newTestServices(st)
	if _, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m); err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	sf := st.seriesInStage(1, models.StageSemifinal)
	if len(sf) != 2 {
		t.Fatalf("got %d semifinals, want 2", len(sf))
	}
	if sf[0].HomeClubID != 14 || derefInt(sf[0].AwayClubID) != 13 || derefInt(sf[0].HomeSeed) != 1 || derefInt(sf[0].AwaySeed) != 2 {
		t.Errorf("first semifinal = %+v, want seed 1 (14) v seed 2 (13)", sf[0])
	}
	if sf[1].HomeClubID != 12 || derefInt(sf[1].AwayClubID) != 11 {
		t.Errorf("second semifinal = %+v, want 12 v 11", sf[1])
	}
}

func TestGoldSilverCup(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatGoldSilverCup})
	for i, label := range []string{"A", "B", "C", "D"} {
		group := &models.SeasonGroup{ID: i + 1, SeasonID: 1, Label: label}
		st.groups = append(st.groups, group)
		home, away := 2*i+1, 2*i+2
		st.addMatch(&models.Match{SeasonID: intPtr(1), GroupID: intPtr(group.ID), HomeClubID: home, AwayClubID: away, HomeScore: 2})
	}
	addTie(st, 1, models.StageQualification, 1, 21, 31, intPtr(21))
	addTie(st, 1, models.StageQualification, 2, 22, 32, intPtr(22))
	addTie(st, 1, models.StageQualification, 3, 23, 33, intPtr(23))
	open := addTie(st, 1, models.StageQualification, 4, 24, 34, nil)
	m := seriesMatch(st, open.ID, 24, 34, 1, 0)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{models.StageQuarterfinal}) {
		t.Fatalf("CreatedStages = %v", res.CreatedStages)
	}
	qf := st.seriesInStage(1, models.StageQuarterfinal)
	wantQF := [][2]int{{1, 24}, {3, 23}, {5, 22}, {7, 21}}
	for i, sr := range qf {
		if sr.HomeClubID != wantQF[i][0] || derefInt(sr.AwayClubID) != wantQF[i][1] {
			t.Errorf("quarterfinal %d = %d v %d, want %v", i+1, sr.HomeClubID, derefInt(sr.AwayClubID), wantQF[i])
		}
	}

	res = playStage(t, svc, season, models.StageQuarterfinal)
	goldSF, silverSF := models.StageSemifinal.InBracket(models.BracketGold), models.StageSemifinal.InBracket(models.BracketSilver)
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{goldSF, silverSF}) {
		t.Fatalf("after quarterfinals CreatedStages = %v", res.CreatedStages)
	}
	gold := st.seriesInStage(1, goldSF)
	if len(gold) != 2 || gold[0].HomeClubID != 1 || derefInt(gold[0].AwayClubID) != 3 || gold[1].HomeClubID != 5 || derefInt(gold[1].AwayClubID) != 7 {
		t.Errorf("gold semifinals = %+v", gold)
	}
	silver := st.seriesInStage(1, silverSF)
	if len(silver) != 2 || silver[0].HomeClubID != 24 || derefInt(silver[0].AwayClubID) != 23 || silver[0].BracketType != models.BracketSilver {
		t.Errorf("silver semifinals = %+v", silver)
	}

	res = playStage(t, svc, season, goldSF)
	goldFinal, goldThird := models.StageFinal.InBracket(models.BracketGold), models.StageThirdPlace.InBracket(models.BracketGold)
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{goldFinal, goldThird}) {
		t.Fatalf("after gold semifinals CreatedStages = %v", res.CreatedStages)
	}
	if f := st.seriesInStage(1, goldFinal); len(f) != 1 || f[0].HomeClubID != 1 || derefInt(f[0].AwayClubID) != 5 {
		t.Errorf("gold final = %+v, want 1 v 5", f)
	}
	if len(st.seriesInStage(1, models.StageFinal.InBracket(models.BracketSilver))) != 0 {
		t.Error("silver final created before the silver semifinals were played")
	}
}

func TestGoldSilverMissingGroupWinner(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatGoldSilverCup})
	open := addTie(st, 1, models.StageQualification, 1, 21, 31, nil)
	m := seriesMatch(st, open.ID, 21, 31, 1, 0)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m)
	if err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if !res.ManualResolution || len(res.CreatedStages) != 0 {
		t.Fatalf("result = %+v, want manual resolution without new stages", res)
	}
}

func TestDecidedSeriesKeepsCancelledSelections(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatBestOfN, SeriesLength: 3}, 1, 2, 3, 4)
	series := addTie(st, 1, models.StageSemifinal, 1, 1, 2, nil)
	series.PlannedMatches = 3
	addTie(st, 1, models.StageSemifinal, 2, 3, 4, nil)

	seriesMatch(st, series.ID, 1, 2, 1, 0)
	decider := seriesMatch(st, series.ID, 2, 1, 0, 2)
	surplus := st.addMatch(&models.Match{SeasonID: intPtr(1), SeriesID: intPtr(series.ID), HomeClubID: 1, AwayClubID: 2, Status: models.MatchStatusScheduled})
	league := []*models.Match{
		st.addMatch(&models.Match{SeasonID: intPtr(1), HomeClubID: 5, AwayClubID: 6, Status: models.MatchStatusScheduled}),
		st.addMatch(&models.Match{SeasonID: intPtr(1), HomeClubID: 7, AwayClubID: 8, Status: models.MatchStatusScheduled}),
	}

	surplusTmpl := st.addTemplate(outcomeTemplate(surplus.ID))
	entry := st.addEntry(&models.PredictionEntry{TemplateID: surplusTmpl.ID, UserID: 7, Selection: "HOME"})
	items := []*models.ExpressBetItem{{TemplateID: surplusTmpl.ID, MatchID: surplus.ID, Selection: "HOME", BasePoints: 10}}
	for _, m := range league {
		tmpl := st.addTemplate(outcomeTemplate(m.ID))
		items = append(items, &models.ExpressBetItem{TemplateID: tmpl.ID, MatchID: m.ID, Selection: "HOME", BasePoints: 10})
	}
	bet := st.addBet(&models.ExpressBet{UserID: 8, MinItems: 2, Multiplier: decimal.RequireFromString("1.5"), TotalBasePoints: 30}, items...)

	svc := newTestServices(st)
	if _, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, decider); err != nil {
		t.Fatalf("OnMatchFinished() error = %v", err)
	}
	if _, ok := st.matches[surplus.ID]; ok {
		t.Fatal("surplus match still exists")
	}
	for _, m := range league {
		m.Status = models.MatchStatusFinished
		m.HomeScore = 1
		if _, err := svc.settlement.SettleMatch(context.Background(), nil, m); err != nil {
			t.Fatalf("SettleMatch(%d) error = %v", m.ID, err)
		}
	}

	if st.entry(entry.ID) == nil || entry.Status != models.EntryCancelled || entry.AwardedPoints != nil {
		t.Errorf("entry on the removed match = %+v, want a kept CANCELLED row without points", entry)
	}
	if surplusTmpl.MatchID != 0 {
		t.Errorf("template still points at removed match %d", surplusTmpl.MatchID)
	}
	stored, _ := fakeExpressRepo{st}.ListItemsByBet(context.Background(), nil, bet.ID)
	if len(stored) != 3 {
		t.Fatalf("bet has %d items after the removal, want all 3 kept", len(stored))
	}
	if items[0].Status != models.EntryCancelled || items[0].MatchID != 0 {
		t.Errorf("item on the removed match = %+v, want CANCELLED and detached", items[0])
	}
	if bet.Status != models.EntryCancelled || bet.AwardedPoints != nil {
		t.Errorf("bet = %s/%d, a cancelled selection must not let the other two pay out", bet.Status, derefInt(bet.AwardedPoints))
	}
}

func TestSiblingSeriesLockSeasonBeforeReadingStage(t *testing.T) {
	st := newMemStore()
	season := st.addSeason(&models.Season{ID: 1, SeriesFormat: models.FormatSingleElimination})
	first := addTie(st, 1, models.StageSemifinal, 1, 1, 2, nil)
	second := addTie(st, 1, models.StageSemifinal, 2, 3, 4, nil)
	m1 := seriesMatch(st, first.ID, 1, 2, 2, 0)
	m2 := seriesMatch(st, second.ID, 3, 4, 0, 1)

	svc := newTestServices(st)
	res, err := svc.playoff.OnMatchFinished(context.Background(), nil, season, m1)
	if err != nil {
		t.Fatalf("OnMatchFinished(first) error = %v", err)
	}
	if len(res.CreatedStages) != 0 {
		t.Fatalf("created %v with a semifinal still open", res.CreatedStages)
	}
	res, err = svc.playoff.OnMatchFinished(context.Background(), nil, season, m2)
	if err != nil {
		t.Fatalf("OnMatchFinished(second) error = %v", err)
	}
	if !reflect.DeepEqual(res.CreatedStages, []models.Stage{models.StageFinal, models.StageThirdPlace}) {
		t.Fatalf("CreatedStages = %v, want final and third place", res.CreatedStages)
	}

	reads := 0
	for i, step := range st.trace {
		if !strings.HasPrefix(step, "list stage") {
			continue
		}
		reads++
		if i == 0 || st.trace[i-1] != "lock season 1" {
			t.Errorf("trace = %v: stage read at %d without the season lock", st.trace, i)
		}
	}
	if reads != 2 {
		t.Errorf("trace = %v, want one stage read per finished series", st.trace)
	}
}
