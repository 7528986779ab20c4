package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/brackets"
	"github.com/Maxxvall/OBNLIGA-sub002/config"
	"github.com/Maxxvall/OBNLIGA-sub002/markets"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/notify"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

var testNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory database shared by the fake repositories.
type memStore struct {
	nextID int

	matches      map[int]*models.Match
	events       []*models.MatchEvent
	lineups      []*models.MatchLineup
	seasons      map[int]*models.Season
	participants map[int][]int
	groups       []*models.SeasonGroup
	rounds       []*models.SeasonRound
	clubStats    map[int][]*models.ClubSeasonStats
	playerStats  []*models.PlayerSeasonStats
	roster       []models.RosterLink
	careers      []*models.PlayerClubCareerStats
	bans         []*models.Disqualification
	series       map[int]*models.MatchSeries
	templates    []*models.PredictionTemplate
	entries      []*models.PredictionEntry
	bets         map[int]*models.ExpressBet
	items        []*models.ExpressBetItem
	achievements map[int]int

	// trace records lock and read order for progression checks.
	trace []string
}

func newMemStore() *memStore {
	return &memStore{
		nextID:       1000,
		matches:      make(map[int]*models.Match),
		seasons:      make(map[int]*models.Season),
		participants: make(map[int][]int),
		clubStats:    make(map[int][]*models.ClubSeasonStats),
		series:       make(map[int]*models.MatchSeries),
		bets:         make(map[int]*models.ExpressBet),
		achievements: make(map[int]int),
	}
}

func (st *memStore) id() int {
	st.nextID++
	return st.nextID
}

func (st *memStore) addSeason(s *models.Season, clubs ...int) *models.Season {
	st.seasons[s.ID] = s
	st.participants[s.ID] = clubs
	return s
}

func (st *memStore) addMatch(m *models.Match) *models.Match {
	if m.ID == 0 {
		m.ID = st.id()
	}
	if m.Status == "" {
		m.Status = models.MatchStatusFinished
	}
	if m.StartTime.IsZero() {
		m.StartTime = testNow.Add(time.Duration(m.ID) * time.Minute)
	}
	st.matches[m.ID] = m
	return m
}

func (st *memStore) addEvent(e *models.MatchEvent) {
	if e.ID == 0 {
		e.ID = st.id()
	}
	st.events = append(st.events, e)
}

func (st *memStore) addSeries(s *models.MatchSeries) *models.MatchSeries {
	if s.ID == 0 {
		s.ID = st.id()
	}
	if s.Status == "" {
		s.Status = models.SeriesInProgress
	}
	if s.PlannedMatches == 0 {
		s.PlannedMatches = 1
	}
	st.series[s.ID] = s
	return s
}

func (st *memStore) addTemplate(t *models.PredictionTemplate) *models.PredictionTemplate {
	if t.ID == 0 {
		t.ID = st.id()
	}
	st.templates = append(st.templates, t)
	return t
}

func (st *memStore) addEntry(e *models.PredictionEntry) *models.PredictionEntry {
	if e.ID == 0 {
		e.ID = st.id()
	}
	if e.Status == "" {
		e.Status = models.EntryPending
	}
	st.entries = append(st.entries, e)
	return e
}

func (st *memStore) addBet(b *models.ExpressBet, items ...*models.ExpressBetItem) *models.ExpressBet {
	if b.ID == 0 {
		b.ID = st.id()
	}
	if b.Status == "" {
		b.Status = models.EntryPending
	}
	st.bets[b.ID] = b
	for _, it := range items {
		if it.ID == 0 {
			it.ID = st.id()
		}
		if it.Status == "" {
			it.Status = models.EntryPending
		}
		it.ExpressBetID = b.ID
		st.items = append(st.items, it)
	}
	return b
}

func (st *memStore) seriesInStage(seasonID int, stage models.Stage) []*models.MatchSeries {
	out := make([]*models.MatchSeries, 0)
	for _, s := range st.series {
		if s.SeasonID == seasonID && s.Stage == stage {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.BracketSlot != nil && b.BracketSlot != nil && *a.BracketSlot != *b.BracketSlot:
			return *a.BracketSlot < *b.BracketSlot
		case a.BracketSlot != nil && b.BracketSlot == nil:
			return true
		case a.BracketSlot == nil && b.BracketSlot != nil:
			return false
		}
		return a.ID < b.ID
	})
	return out
}

func (st *memStore) matchesOfSeries(seriesID int) []*models.Match {
	out := make([]*models.Match, 0)
	for _, m := range st.matches {
		if m.SeriesID != nil && *m.SeriesID == seriesID {
			out = append(out, m)
		}
	}
	sortMatches(out)
	return out
}

func (st *memStore) entry(id int) *models.PredictionEntry {
	for _, e := range st.entries {
		if e.ID == id {
			return e
		}
	}
	return nil
}

func sortMatches(ms []*models.Match) {
	sort.Slice(ms, func(i, j int) bool {
		if !ms[i].StartTime.Equal(ms[j].StartTime) {
			return ms[i].StartTime.Before(ms[j].StartTime)
		}
		return ms[i].ID < ms[j].ID
	})
}

func copyMatches(ms []*models.Match) []*models.Match {
	out := make([]*models.Match, len(ms))
	for i, m := range ms {
		c := *m
		out[i] = &c
	}
	return out
}

// fakeTransactor runs fn directly; a nil executor is enough for the fakes.
type fakeTransactor struct {
	calls int
}

func (f *fakeTransactor) InTx(ctx context.Context, fn func(ctx context.Context, exec repositories.SQLExecutor) error) error {
	f.calls++
	return fn(ctx, nil)
}

type fakeMatchRepo struct{ st *memStore }

func (r fakeMatchRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Match, error) {
	m, ok := r.st.matches[id]
	if !ok {
		return nil, repositories.ErrMatchNotFound
	}
	c := *m
	return &c, nil
}

func (r fakeMatchRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Match, error) {
	return r.GetByID(ctx, exec, id)
}

func (r fakeMatchRepo) filter(keep func(m *models.Match) bool) []*models.Match {
	out := make([]*models.Match, 0)
	for _, m := range r.st.matches {
		if keep(m) {
			out = append(out, m)
		}
	}
	sortMatches(out)
	return copyMatches(out)
}

func competitiveFinished(m *models.Match) bool {
	return m.IsFinished() && !m.IsFriendly
}

func (r fakeMatchRepo) ListFinishedBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int, includePlayoff bool) ([]*models.Match, error) {
	return r.filter(func(m *models.Match) bool {
		return competitiveFinished(m) && m.SeasonID != nil && *m.SeasonID == seasonID && (includePlayoff || m.SeriesID == nil)
	}), nil
}

func (r fakeMatchRepo) ListFinishedByGroup(_ context.Context, _ repositories.SQLExecutor, groupID int) ([]*models.Match, error) {
	return r.filter(func(m *models.Match) bool {
		return competitiveFinished(m) && m.GroupID != nil && *m.GroupID == groupID
	}), nil
}

func (r fakeMatchRepo) ListBySeries(_ context.Context, _ repositories.SQLExecutor, seriesID int) ([]*models.Match, error) {
	return copyMatches(r.st.matchesOfSeries(seriesID)), nil
}

func (r fakeMatchRepo) ListUpcoming(_ context.Context, _ repositories.SQLExecutor, seasonID *int, limit int) ([]*models.Match, error) {
	out := r.filter(func(m *models.Match) bool {
		return m.Status == models.MatchStatusScheduled && (seasonID == nil || (m.SeasonID != nil && *m.SeasonID == *seasonID))
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r fakeMatchRepo) ListEventsByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.MatchEvent, error) {
	out := make([]*models.MatchEvent, 0)
	for _, e := range r.st.events {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r fakeMatchRepo) ListEventsBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.MatchEvent, error) {
	out := make([]*models.MatchEvent, 0)
	for _, e := range r.st.events {
		m, ok := r.st.matches[e.MatchID]
		if ok && competitiveFinished(m) && m.SeasonID != nil && *m.SeasonID == seasonID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r fakeMatchRepo) ListLineupsBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.MatchLineup, error) {
	out := make([]*models.MatchLineup, 0)
	for _, l := range r.st.lineups {
		m, ok := r.st.matches[l.MatchID]
		if ok && competitiveFinished(m) && m.SeasonID != nil && *m.SeasonID == seasonID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r fakeMatchRepo) LatestStartTime(_ context.Context, _ repositories.SQLExecutor, seasonID int) (*time.Time, error) {
	var latest *time.Time
	for _, m := range r.st.matches {
		if m.SeasonID == nil || *m.SeasonID != seasonID {
			continue
		}
		if latest == nil || m.StartTime.After(*latest) {
			t := m.StartTime
			latest = &t
		}
	}
	return latest, nil
}

func (r fakeMatchRepo) Create(_ context.Context, _ repositories.SQLExecutor, m *models.Match) error {
	m.ID = r.st.id()
	m.CreatedAt = testNow
	c := *m
	r.st.matches[m.ID] = &c
	return nil
}

// DeleteByIDs mirrors the foreign keys: templates, express items and ban
// references lose their match reference and keep their rows.
func (r fakeMatchRepo) DeleteByIDs(_ context.Context, _ repositories.SQLExecutor, ids []int) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := r.st.matches[id]; !ok {
			continue
		}
		delete(r.st.matches, id)
		n++
		for _, t := range r.st.templates {
			if t.MatchID == id {
				t.MatchID = 0
			}
		}
		for _, it := range r.st.items {
			if it.MatchID == id {
				it.MatchID = 0
			}
		}
		for _, d := range r.st.bans {
			if d.SourceMatchID != nil && *d.SourceMatchID == id {
				d.SourceMatchID = nil
			}
			if d.LastAppliedMatchID != nil && *d.LastAppliedMatchID == id {
				d.LastAppliedMatchID = nil
			}
		}
	}
	return n, nil
}

type fakeSeasonRepo struct{ st *memStore }

func (r fakeSeasonRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Season, error) {
	r.st.trace = append(r.st.trace, fmt.Sprintf("lock season %d", id))
	return r.GetByID(ctx, exec, id)
}

func (r fakeSeasonRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.Season, error) {
	s, ok := r.st.seasons[id]
	if !ok {
		return nil, repositories.ErrSeasonNotFound
	}
	c := *s
	return &c, nil
}

func (r fakeSeasonRepo) ListParticipantClubIDs(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]int, error) {
	return r.st.participants[seasonID], nil
}

func (r fakeSeasonRepo) ListGroups(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.SeasonGroup, error) {
	out := make([]*models.SeasonGroup, 0)
	for _, g := range r.st.groups {
		if g.SeasonID == seasonID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r fakeSeasonRepo) GetRoundByLabel(_ context.Context, _ repositories.SQLExecutor, seasonID int, label string) (*models.SeasonRound, error) {
	for _, round := range r.st.rounds {
		if round.SeasonID == seasonID && round.Label == label {
			return round, nil
		}
	}
	return nil, repositories.ErrRoundNotFound
}

func (r fakeSeasonRepo) CreateRound(_ context.Context, _ repositories.SQLExecutor, round *models.SeasonRound) error {
	round.ID = r.st.id()
	if round.Number == 0 {
		round.Number = len(r.st.rounds) + 1
	}
	r.st.rounds = append(r.st.rounds, round)
	return nil
}

type fakeStatsRepo struct{ st *memStore }

func (r fakeStatsRepo) ReplaceClubSeasonStats(_ context.Context, _ repositories.SQLExecutor, seasonID int, rows []*models.ClubSeasonStats) error {
	r.st.clubStats[seasonID] = rows
	return nil
}

func (r fakeStatsRepo) ListClubSeasonStats(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.ClubSeasonStats, error) {
	return r.st.clubStats[seasonID], nil
}

func (r fakeStatsRepo) ReplacePlayerSeasonStats(_ context.Context, _ repositories.SQLExecutor, seasonID int, rows []*models.PlayerSeasonStats) error {
	kept := make([]*models.PlayerSeasonStats, 0, len(r.st.playerStats))
	for _, s := range r.st.playerStats {
		if s.SeasonID != seasonID {
			kept = append(kept, s)
		}
	}
	r.st.playerStats = append(kept, rows...)
	return nil
}

func (r fakeStatsRepo) ListPlayerSeasonStats(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.PlayerSeasonStats, error) {
	out := make([]*models.PlayerSeasonStats, 0)
	for _, s := range r.st.playerStats {
		if s.SeasonID == seasonID {
			out = append(out, s)
		}
	}
	return out, nil
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func (r fakeStatsRepo) ListPlayerSeasonStatsByClubs(_ context.Context, _ repositories.SQLExecutor, clubIDs []int) ([]*models.PlayerSeasonStats, error) {
	out := make([]*models.PlayerSeasonStats, 0)
	for _, s := range r.st.playerStats {
		if containsInt(clubIDs, s.ClubID) {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r fakeStatsRepo) ListRosterLinks(_ context.Context, _ repositories.SQLExecutor, clubIDs []int) ([]models.RosterLink, error) {
	out := make([]models.RosterLink, 0)
	for _, l := range r.st.roster {
		if containsInt(clubIDs, l.ClubID) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (r fakeStatsRepo) ReplaceCareerStats(_ context.Context, _ repositories.SQLExecutor, clubIDs []int, rows []*models.PlayerClubCareerStats) error {
	kept := make([]*models.PlayerClubCareerStats, 0, len(r.st.careers))
	for _, c := range r.st.careers {
		if !containsInt(clubIDs, c.ClubID) {
			kept = append(kept, c)
		}
	}
	r.st.careers = append(kept, rows...)
	return nil
}

type fakeDisqualificationRepo struct{ st *memStore }

func (r fakeDisqualificationRepo) ListActiveByClubs(_ context.Context, _ repositories.SQLExecutor, clubIDs []int) ([]*models.Disqualification, error) {
	out := make([]*models.Disqualification, 0)
	for _, d := range r.st.bans {
		if d.IsActive && containsInt(clubIDs, d.ClubID) {
			c := *d
			c.AppliedMatchIDs = slices.Clone(d.AppliedMatchIDs)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeDisqualificationRepo) UpdateProgress(_ context.Context, _ repositories.SQLExecutor, d *models.Disqualification) error {
	for _, stored := range r.st.bans {
		if stored.ID == d.ID {
			stored.MatchesMissed = d.MatchesMissed
			stored.LastAppliedMatchID = d.LastAppliedMatchID
			stored.AppliedMatchIDs = slices.Clone(d.AppliedMatchIDs)
			stored.IsActive = d.IsActive
			return nil
		}
	}
	return repositories.ErrDisqualificationNotFound
}

func (r fakeDisqualificationRepo) HasBlockingBan(_ context.Context, _ repositories.SQLExecutor, personID int, reason models.DisqualificationReason, sourceMatchID int) (bool, error) {
	for _, d := range r.st.bans {
		if d.PersonID != personID || d.Reason != reason {
			continue
		}
		if d.IsActive || (d.SourceMatchID != nil && *d.SourceMatchID == sourceMatchID) {
			return true, nil
		}
	}
	return false, nil
}

func (r fakeDisqualificationRepo) CountBySeasonPersonReason(_ context.Context, _ repositories.SQLExecutor, seasonID, personID int, reason models.DisqualificationReason) (int, error) {
	n := 0
	for _, d := range r.st.bans {
		if d.SeasonID != nil && *d.SeasonID == seasonID && d.PersonID == personID && d.Reason == reason {
			n++
		}
	}
	return n, nil
}

func (r fakeDisqualificationRepo) Create(_ context.Context, _ repositories.SQLExecutor, d *models.Disqualification) error {
	d.ID = r.st.id()
	d.IsActive = true
	d.CreatedAt = testNow
	c := *d
	r.st.bans = append(r.st.bans, &c)
	return nil
}

func (r fakeDisqualificationRepo) ListBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int, activeOnly bool) ([]*models.Disqualification, error) {
	out := make([]*models.Disqualification, 0)
	for _, d := range r.st.bans {
		if d.SeasonID != nil && *d.SeasonID == seasonID && (!activeOnly || d.IsActive) {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeSeriesRepo struct{ st *memStore }

func (r fakeSeriesRepo) GetByID(_ context.Context, _ repositories.SQLExecutor, id int) (*models.MatchSeries, error) {
	s, ok := r.st.series[id]
	if !ok {
		return nil, repositories.ErrSeriesNotFound
	}
	c := *s
	return &c, nil
}

func (r fakeSeriesRepo) LockForUpdate(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.MatchSeries, error) {
	return r.GetByID(ctx, exec, id)
}

func copySeries(list []*models.MatchSeries) []*models.MatchSeries {
	out := make([]*models.MatchSeries, len(list))
	for i, s := range list {
		c := *s
		out[i] = &c
	}
	return out
}

func (r fakeSeriesRepo) ListByStage(_ context.Context, _ repositories.SQLExecutor, seasonID int, stage models.Stage) ([]*models.MatchSeries, error) {
	r.st.trace = append(r.st.trace, fmt.Sprintf("list stage %s", stage))
	return copySeries(r.st.seriesInStage(seasonID, stage)), nil
}

func (r fakeSeriesRepo) ListBySeason(_ context.Context, _ repositories.SQLExecutor, seasonID int) ([]*models.MatchSeries, error) {
	out := make([]*models.MatchSeries, 0)
	for _, s := range r.st.series {
		if s.SeasonID == seasonID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return copySeries(out), nil
}

func (r fakeSeriesRepo) ExistsStage(_ context.Context, _ repositories.SQLExecutor, seasonID int, stage models.Stage) (bool, error) {
	return len(r.st.seriesInStage(seasonID, stage)) > 0, nil
}

func (r fakeSeriesRepo) Create(_ context.Context, _ repositories.SQLExecutor, s *models.MatchSeries) error {
	if s.HomeClubID == 0 {
		return errors.New("match_series.home_club_id must not be null")
	}
	if s.AwayClubID == nil && s.Status != models.SeriesFinished {
		return repositories.ErrSeriesNoOpponent
	}
	s.ID = r.st.id()
	s.CreatedAt = testNow
	c := *s
	r.st.series[s.ID] = &c
	return nil
}

func (r fakeSeriesRepo) MarkFinished(_ context.Context, _ repositories.SQLExecutor, id, winnerClubID int) (bool, error) {
	s, ok := r.st.series[id]
	if !ok {
		return false, repositories.ErrSeriesNotFound
	}
	if s.IsFinished() {
		return false, nil
	}
	s.Status = models.SeriesFinished
	s.WinnerClubID = intPtr(winnerClubID)
	return true, nil
}

type fakePredictionRepo struct{ st *memStore }

func (r fakePredictionRepo) ListTemplatesByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.PredictionTemplate, error) {
	out := make([]*models.PredictionTemplate, 0)
	for _, t := range r.st.templates {
		if t.MatchID == matchID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r fakePredictionRepo) templateMatch(templateID int) int {
	for _, t := range r.st.templates {
		if t.ID == templateID {
			return t.MatchID
		}
	}
	return 0
}

func (r fakePredictionRepo) ListPendingEntriesByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.PredictionEntry, error) {
	out := make([]*models.PredictionEntry, 0)
	for _, e := range r.st.entries {
		if e.Status == models.EntryPending && r.templateMatch(e.TemplateID) == matchID {
			c := *e
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakePredictionRepo) SettleEntry(_ context.Context, _ repositories.SQLExecutor, id int, status models.EntryStatus, points *int, settledAt time.Time) (bool, error) {
	e := r.st.entry(id)
	if e == nil || e.Status != models.EntryPending {
		return false, nil
	}
	e.Status = status
	e.AwardedPoints = points
	e.SettledAt = &settledAt
	return true, nil
}

func (r fakePredictionRepo) CancelPendingByMatches(_ context.Context, _ repositories.SQLExecutor, matchIDs []int, settledAt time.Time) ([]int, error) {
	users := make([]int, 0)
	for _, e := range r.st.entries {
		if e.Status == models.EntryPending && containsInt(matchIDs, r.templateMatch(e.TemplateID)) {
			e.Status = models.EntryCancelled
			e.AwardedPoints = nil
			e.SettledAt = &settledAt
			users = append(users, e.UserID)
		}
	}
	return users, nil
}

func (r fakePredictionRepo) UpsertTemplate(_ context.Context, _ repositories.SQLExecutor, t *models.PredictionTemplate) (bool, error) {
	for i, existing := range r.st.templates {
		if existing.MatchID == t.MatchID && existing.MarketType == t.MarketType {
			if existing.IsManual {
				return false, nil
			}
			t.ID = existing.ID
			r.st.templates[i] = t
			return true, nil
		}
	}
	t.ID = r.st.id()
	r.st.templates = append(r.st.templates, t)
	return true, nil
}

type fakeExpressRepo struct{ st *memStore }

func (r fakeExpressRepo) ListPendingItemsByMatch(_ context.Context, _ repositories.SQLExecutor, matchID int) ([]*models.ExpressBetItem, error) {
	out := make([]*models.ExpressBetItem, 0)
	for _, it := range r.st.items {
		if it.MatchID == matchID && it.Status == models.EntryPending {
			c := *it
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeExpressRepo) SettleItem(_ context.Context, _ repositories.SQLExecutor, id int, status models.EntryStatus, settledAt time.Time) (bool, error) {
	for _, it := range r.st.items {
		if it.ID == id && it.Status == models.EntryPending {
			it.Status = status
			it.SettledAt = &settledAt
			return true, nil
		}
	}
	return false, nil
}

func (r fakeExpressRepo) CancelPendingItemsByMatches(_ context.Context, _ repositories.SQLExecutor, matchIDs []int, settledAt time.Time) ([]int, error) {
	bets := intSet{}
	for _, it := range r.st.items {
		if it.Status == models.EntryPending && containsInt(matchIDs, it.MatchID) {
			it.Status = models.EntryCancelled
			it.SettledAt = &settledAt
			bets.add(it.ExpressBetID)
		}
	}
	return bets.sorted(), nil
}

func (r fakeExpressRepo) LockBet(_ context.Context, _ repositories.SQLExecutor, id int) (*models.ExpressBet, error) {
	b, ok := r.st.bets[id]
	if !ok {
		return nil, repositories.ErrExpressBetNotFound
	}
	c := *b
	return &c, nil
}

func (r fakeExpressRepo) ListItemsByBet(_ context.Context, _ repositories.SQLExecutor, betID int) ([]*models.ExpressBetItem, error) {
	out := make([]*models.ExpressBetItem, 0)
	for _, it := range r.st.items {
		if it.ExpressBetID == betID {
			c := *it
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r fakeExpressRepo) FinalizeBet(_ context.Context, _ repositories.SQLExecutor, id int, status models.EntryStatus, points *int, settledAt time.Time) (bool, error) {
	b, ok := r.st.bets[id]
	if !ok || b.Status != models.EntryPending {
		return false, nil
	}
	b.Status = status
	b.AwardedPoints = points
	b.SettledAt = &settledAt
	return true, nil
}

type fakeAchievements struct{ st *memStore }

func (f fakeAchievements) IncrementProgress(_ context.Context, _ repositories.SQLExecutor, userID int, metric string, delta int) error {
	if metric == models.MetricCorrectPredictions {
		f.st.achievements[userID] += delta
	}
	return nil
}

type recordingCache struct {
	mu          sync.Mutex
	invalidated []string
	prefixes    []string
	set         map[string]any
}

func (c *recordingCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set == nil {
		c.set = make(map[string]any)
	}
	c.set[key] = value
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, keys...)
	return nil
}

func (c *recordingCache) InvalidatePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefixes = append(c.prefixes, prefix)
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
}

func (p *recordingPublisher) Publish(_ context.Context, msg notify.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, msg.Topic)
	return nil
}

func (p *recordingPublisher) has(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		if t == topic {
			return true
		}
	}
	return false
}

type recordingRatings struct {
	mu    sync.Mutex
	users []int
}

func (r *recordingRatings) Recalculate(_ context.Context, userIDs []int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userIDs...)
	return nil
}

type recordingSnapshot struct {
	mu      sync.Mutex
	seasons []int
}

func (s *recordingSnapshot) PutStandings(_ context.Context, seasonID int, _ any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seasons = append(s.seasons, seasonID)
	return "https://cdn.example.test/seasons/standings.json", nil
}

// testServices wires every service over one memStore.
type testServices struct {
	st                *memStore
	rules             *config.Rules
	aggregates        AggregateService
	disqualifications DisqualificationService
	settlement        SettlementService
	playoff           PlayoffService
	standings         StandingsService
}

func newTestServices(st *memStore) *testServices {
	rules := config.DefaultRules()
	logger := discardLogger()
	matchRepo := fakeMatchRepo{st}
	seasonRepo := fakeSeasonRepo{st}
	statsRepo := fakeStatsRepo{st}

	settlement := NewSettlementService(matchRepo, fakePredictionRepo{st}, fakeExpressRepo{st},
		fakeAchievements{st}, markets.DefaultExpressRules(), logger)
	settlement.(*settlementService).now = func() time.Time { return testNow }

	playoff := NewPlayoffService(matchRepo, fakeSeriesRepo{st}, seasonRepo, statsRepo, settlement,
		brackets.DefaultScheduleRules(), rules.Points, logger)
	playoff.(*playoffService).now = func() time.Time { return testNow }

	return &testServices{
		st:                st,
		rules:             rules,
		aggregates:        NewAggregateService(matchRepo, seasonRepo, statsRepo, rules.Points, logger),
		disqualifications: NewDisqualificationService(matchRepo, statsRepo, fakeDisqualificationRepo{st}, rules.Discipline, logger),
		settlement:        settlement,
		playoff:           playoff,
		standings:         NewStandingsService(seasonRepo, statsRepo),
	}
}
