package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/markets"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
)

// SettlementResult counts only rows this run actually moved out of PENDING.
type SettlementResult struct {
	EntriesSettled int   `json:"entries_settled"`
	EntriesWon     int   `json:"entries_won"`
	ItemsSettled   int   `json:"items_settled"`
	BetsSettled    int   `json:"bets_settled"`
	AffectedUsers  []int `json:"affected_users"`
}

func (r *SettlementResult) merge(other *SettlementResult) {
	if other == nil {
		return
	}
	r.EntriesSettled += other.EntriesSettled
	r.EntriesWon += other.EntriesWon
	r.ItemsSettled += other.ItemsSettled
	r.BetsSettled += other.BetsSettled
	users := intSet{}
	users.add(r.AffectedUsers...)
	users.add(other.AffectedUsers...)
	r.AffectedUsers = users.sorted()
}

type SettlementService interface {
	SettleMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*SettlementResult, error)
	CancelForMatches(ctx context.Context, exec repositories.SQLExecutor, matchIDs []int, reason string) (*SettlementResult, error)
}

type settlementService struct {
	matchRepo      repositories.MatchRepository
	predictionRepo repositories.PredictionRepository
	expressRepo    repositories.ExpressRepository
	achievements   AchievementTracker
	rules          markets.ExpressRules
	logger         *slog.Logger
	now            func() time.Time
}

func NewSettlementService(
	matchRepo repositories.MatchRepository,
	predictionRepo repositories.PredictionRepository,
	expressRepo repositories.ExpressRepository,
	achievements AchievementTracker,
	rules markets.ExpressRules,
	logger *slog.Logger,
) SettlementService {
	return &settlementService{
		matchRepo:      matchRepo,
		predictionRepo: predictionRepo,
		expressRepo:    expressRepo,
		achievements:   achievements,
		rules:          rules,
		logger:         logger,
		now:            time.Now,
	}
}

// settleRun carries the state of one settlement pass.
type settleRun struct {
	exec    repositories.SQLExecutor
	matchID int
	at      time.Time
	users   intSet
	bets    map[int]*models.ExpressBet
	result  *SettlementResult
}

func (s *settlementService) newRun(exec repositories.SQLExecutor, matchID int) *settleRun {
	return &settleRun{
		exec:    exec,
		matchID: matchID,
		at:      s.now().UTC(),
		users:   intSet{},
		bets:    make(map[int]*models.ExpressBet),
		result:  &SettlementResult{},
	}
}

func (s *settlementService) SettleMatch(ctx context.Context, exec repositories.SQLExecutor, match *models.Match) (*SettlementResult, error) {
	events, err := s.matchRepo.ListEventsByMatch(ctx, exec, match.ID)
	if err != nil {
		return nil, fmt.Errorf("load events of match %d: %w", match.ID, err)
	}
	mctx := markets.NewContext(match, events)

	templates, err := s.predictionRepo.ListTemplatesByMatch(ctx, exec, match.ID)
	if err != nil {
		return nil, fmt.Errorf("load templates of match %d: %w", match.ID, err)
	}
	byID := make(map[int]*models.PredictionTemplate, len(templates))
	for _, t := range templates {
		byID[t.ID] = t
	}

	run := s.newRun(exec, match.ID)
	if err := s.settleEntries(ctx, run, byID, mctx); err != nil {
		return nil, err
	}
	if err := s.settleExpressItems(ctx, run, byID, mctx); err != nil {
		return nil, err
	}

	run.result.AffectedUsers = run.users.sorted()
	return run.result, nil
}

func (s *settlementService) settleEntries(ctx context.Context, run *settleRun, templates map[int]*models.PredictionTemplate, mctx markets.Context) error {
	entries, err := s.predictionRepo.ListPendingEntriesByMatch(ctx, run.exec, run.matchID)
	if err != nil {
		return fmt.Errorf("load pending entries of match %d: %w", run.matchID, err)
	}

	for _, e := range entries {
		ev := s.evaluate(ctx, run.matchID, templates[e.TemplateID], e.TemplateID, e.Selection, mctx)
		ok, err := s.predictionRepo.SettleEntry(ctx, run.exec, e.ID, ev.Status, ev.Points, run.at)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		run.result.EntriesSettled++
		run.users.add(e.UserID)
		if ev.Status == models.EntryWon {
			run.result.EntriesWon++
			if err := s.achievements.IncrementProgress(ctx, run.exec, e.UserID, models.MetricCorrectPredictions, 1); err != nil {
				return fmt.Errorf("increment achievement of user %d: %w", e.UserID, err)
			}
		}
	}
	return nil
}

func (s *settlementService) settleExpressItems(ctx context.Context, run *settleRun, templates map[int]*models.PredictionTemplate, mctx markets.Context) error {
	items, err := s.expressRepo.ListPendingItemsByMatch(ctx, run.exec, run.matchID)
	if err != nil {
		return fmt.Errorf("load pending express items of match %d: %w", run.matchID, err)
	}

	touched := intSet{}
	for _, it := range items {
		ev := s.evaluate(ctx, run.matchID, templates[it.TemplateID], it.TemplateID, it.Selection, mctx)
		ok, err := s.expressRepo.SettleItem(ctx, run.exec, it.ID, ev.Status, run.at)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		run.result.ItemsSettled++
		touched.add(it.ExpressBetID)
		if ev.Status != models.EntryWon {
			continue
		}
		bet, err := s.lockBet(ctx, run, it.ExpressBetID)
		if err != nil {
			return err
		}
		if err := s.achievements.IncrementProgress(ctx, run.exec, bet.UserID, models.MetricCorrectPredictions, 1); err != nil {
			return fmt.Errorf("increment achievement of user %d: %w", bet.UserID, err)
		}
	}

	return s.resolveBets(ctx, run, touched.sorted())
}

// evaluate judges one selection. A missing template cancels the selection.
func (s *settlementService) evaluate(ctx context.Context, matchID int, t *models.PredictionTemplate, templateID int, selection string, mctx markets.Context) markets.Evaluation {
	var ev markets.Evaluation
	if t == nil {
		ev = markets.Evaluation{Status: models.EntryCancelled, Reason: "template_missing"}
	} else {
		ev = markets.Evaluate(t, selection, mctx)
	}
	if ev.Status == models.EntryCancelled {
		s.logger.WarnContext(ctx, "prediction cancelled during settlement",
			slog.Int("match_id", matchID),
			slog.Int("template_id", templateID),
			slog.String("selection", selection),
			slog.String("reason", ev.Reason),
		)
	}
	return ev
}

func (s *settlementService) lockBet(ctx context.Context, run *settleRun, betID int) (*models.ExpressBet, error) {
	if bet, ok := run.bets[betID]; ok {
		return bet, nil
	}
	bet, err := s.expressRepo.LockBet(ctx, run.exec, betID)
	if err != nil {
		return nil, fmt.Errorf("load express bet %d: %w", betID, err)
	}
	run.bets[betID] = bet
	return bet, nil
}

// resolveBets finalizes every bet whose items are all resolved.
func (s *settlementService) resolveBets(ctx context.Context, run *settleRun, betIDs []int) error {
	for _, betID := range betIDs {
		bet, err := s.lockBet(ctx, run, betID)
		if err != nil {
			return err
		}
		if bet.Status.IsResolved() {
			continue
		}
		items, err := s.expressRepo.ListItemsByBet(ctx, run.exec, betID)
		if err != nil {
			return fmt.Errorf("load items of express bet %d: %w", betID, err)
		}
		res, ready := markets.ResolveExpress(bet, items, s.rules)
		if !ready {
			continue
		}
		if res.Anomaly {
			s.logger.WarnContext(ctx, "express bet has an unexpected item combination, cancelling",
				slog.Int("match_id", run.matchID),
				slog.Int("express_bet_id", betID),
				slog.Int("won_items", res.WonItems),
				slog.Int("items", len(items)),
			)
		}
		ok, err := s.expressRepo.FinalizeBet(ctx, run.exec, betID, res.Status, res.AwardedPoints, run.at)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		bet.Status = res.Status
		run.result.BetsSettled++
		run.users.add(bet.UserID)
	}
	return nil
}

// CancelForMatches cancels pending entries and express items on matches that
// will never be played, then re-resolves the affected bets.
func (s *settlementService) CancelForMatches(ctx context.Context, exec repositories.SQLExecutor, matchIDs []int, reason string) (*SettlementResult, error) {
	if len(matchIDs) == 0 {
		return &SettlementResult{}, nil
	}
	run := s.newRun(exec, matchIDs[0])

	users, err := s.predictionRepo.CancelPendingByMatches(ctx, exec, matchIDs, run.at)
	if err != nil {
		return nil, err
	}
	run.result.EntriesSettled = len(users)
	run.users.add(users...)

	betIDs, err := s.expressRepo.CancelPendingItemsByMatches(ctx, exec, matchIDs, run.at)
	if err != nil {
		return nil, err
	}
	if err := s.resolveBets(ctx, run, betIDs); err != nil {
		return nil, err
	}

	if run.result.EntriesSettled > 0 || len(betIDs) > 0 {
		s.logger.InfoContext(ctx, "predictions cancelled for removed matches",
			slog.Any("match_ids", matchIDs),
			slog.String("reason", reason),
			slog.Int("entries", run.result.EntriesSettled),
			slog.Int("express_bets", len(betIDs)),
		)
	}
	run.result.AffectedUsers = run.users.sorted()
	return run.result, nil
}
