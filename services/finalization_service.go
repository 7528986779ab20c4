package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/cache"
	"github.com/Maxxvall/OBNLIGA-sub002/models"
	"github.com/Maxxvall/OBNLIGA-sub002/notify"
	"github.com/Maxxvall/OBNLIGA-sub002/repositories"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultFinalizeTimeout = 60 * time.Second
	postCommitTimeout      = 15 * time.Second
)

// FinalizationReport is returned to the caller after a successful run.
type FinalizationReport struct {
	RunID             string                  `json:"run_id"`
	MatchID           int                     `json:"match_id"`
	SeasonID          *int                    `json:"season_id,omitempty"`
	Aggregates        *AggregateResult        `json:"aggregates,omitempty"`
	Disqualifications *DisqualificationResult `json:"disqualifications,omitempty"`
	Settlement        *SettlementResult       `json:"settlement"`
	Progression       *ProgressionResult      `json:"progression,omitempty"`
	DurationMs        int64                   `json:"duration_ms"`
}

// affectedUsers is every user whose predictions changed during the run.
func (r *FinalizationReport) affectedUsers() []int {
	users := intSet{}
	if r.Settlement != nil {
		users.add(r.Settlement.AffectedUsers...)
	}
	if r.Progression != nil && r.Progression.Cancelled != nil {
		users.add(r.Progression.Cancelled.AffectedUsers...)
	}
	return users.sorted()
}

// FinalizationCollaborators are the post-commit effects. Nil members are
// replaced by no-ops.
type FinalizationCollaborators struct {
	Cache     Cache
	Ratings   RatingRecalculator
	Templates TemplateRefresher
	Publisher Publisher
	Snapshot  StandingsSnapshot
}

type FinalizationService interface {
	FinalizeMatch(ctx context.Context, matchID int) (*FinalizationReport, error)
}

type finalizationService struct {
	tx                repositories.Transactor
	matchRepo         repositories.MatchRepository
	seasonRepo        repositories.SeasonRepository
	aggregates        AggregateService
	disqualifications DisqualificationService
	settlement        SettlementService
	playoff           PlayoffService
	standings         StandingsService
	collab            FinalizationCollaborators
	timeout           time.Duration
	standingsTTL      time.Duration
	logger            *slog.Logger
}

func NewFinalizationService(
	tx repositories.Transactor,
	matchRepo repositories.MatchRepository,
	seasonRepo repositories.SeasonRepository,
	aggregates AggregateService,
	disqualifications DisqualificationService,
	settlement SettlementService,
	playoff PlayoffService,
	standings StandingsService,
	collab FinalizationCollaborators,
	timeout time.Duration,
	standingsTTL time.Duration,
	logger *slog.Logger,
) FinalizationService {
	if collab.Cache == nil {
		collab.Cache = noopCache{}
	}
	if collab.Ratings == nil {
		collab.Ratings = noopRecalculator{}
	}
	if collab.Templates == nil {
		collab.Templates = noopRefresher{}
	}
	if collab.Publisher == nil {
		collab.Publisher = noopPublisher{}
	}
	if timeout <= 0 {
		timeout = DefaultFinalizeTimeout
	}
	return &finalizationService{
		tx:                tx,
		matchRepo:         matchRepo,
		seasonRepo:        seasonRepo,
		aggregates:        aggregates,
		disqualifications: disqualifications,
		settlement:        settlement,
		playoff:           playoff,
		standings:         standings,
		collab:            collab,
		timeout:           timeout,
		standingsTTL:      standingsTTL,
		logger:            logger,
	}
}

// FinalizeMatch recomputes everything derived from a finished match inside
// one transaction, then runs the post-commit effects. It is safe to call
// again for the same match.
func (s *finalizationService) FinalizeMatch(parent context.Context, matchID int) (*FinalizationReport, error) {
	if matchID <= 0 {
		return nil, fmt.Errorf("%w: match id must be positive, got %d", ErrValidationFailed, matchID)
	}
	started := time.Now()
	report := &FinalizationReport{RunID: uuid.NewString(), MatchID: matchID}
	logger := s.logger.With(slog.String("run_id", report.RunID), slog.Int("match_id", matchID))

	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	var (
		match  *models.Match
		season *models.Season
	)
	err := s.tx.InTx(ctx, func(ctx context.Context, exec repositories.SQLExecutor) error {
		var err error
		match, err = s.matchRepo.LockForUpdate(ctx, exec, matchID)
		if err != nil {
			if errors.Is(err, repositories.ErrMatchNotFound) {
				return ErrMatchNotFound
			}
			return fmt.Errorf("lock match: %w", err)
		}
		if !match.IsFinished() {
			return fmt.Errorf("%w: status is %s", ErrMatchNotFinished, match.Status)
		}
		report.SeasonID = match.SeasonID

		if match.SeasonID != nil {
			season, err = s.seasonRepo.GetByID(ctx, exec, *match.SeasonID)
			if err != nil {
				if errors.Is(err, repositories.ErrSeasonNotFound) {
					return fmt.Errorf("%w: season %d", ErrSeasonNotFound, *match.SeasonID)
				}
				return fmt.Errorf("load season: %w", err)
			}
		}
		competitive := season != nil && !match.IsFriendly

		if competitive {
			if report.Aggregates, err = s.aggregates.RebuildForMatch(ctx, exec, season, match); err != nil {
				return fmt.Errorf("rebuild aggregates: %w", err)
			}
			if report.Disqualifications, err = s.disqualifications.ProcessMatch(ctx, exec, match); err != nil {
				return fmt.Errorf("process disqualifications: %w", err)
			}
		}
		if report.Settlement, err = s.settlement.SettleMatch(ctx, exec, match); err != nil {
			return fmt.Errorf("settle predictions: %w", err)
		}
		if competitive && match.SeriesID != nil {
			if report.Progression, err = s.playoff.OnMatchFinished(ctx, exec, season, match); err != nil {
				return fmt.Errorf("playoff progression: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("%w after %s: %v", ErrFinalizationTimeout, s.timeout, err)
		}
		logger.ErrorContext(parent, "match finalization failed", slog.Any("error", err))
		return nil, err
	}

	postCtx, postCancel := context.WithTimeout(context.WithoutCancel(parent), postCommitTimeout)
	defer postCancel()
	s.afterCommit(postCtx, logger, match, season, report)

	report.DurationMs = time.Since(started).Milliseconds()
	logger.InfoContext(parent, "match finalized",
		slog.Int("entries_settled", report.Settlement.EntriesSettled),
		slog.Int("bets_settled", report.Settlement.BetsSettled),
		slog.Int64("duration_ms", report.DurationMs),
	)
	return report, nil
}

// afterCommit runs the best-effort effects concurrently. Failures are
// logged and never returned.
func (s *finalizationService) afterCommit(ctx context.Context, logger *slog.Logger, match *models.Match, season *models.Season, report *FinalizationReport) {
	var g errgroup.Group

	if users := report.affectedUsers(); len(users) > 0 {
		g.Go(func() error {
			if err := s.collab.Ratings.Recalculate(ctx, users); err != nil {
				logger.ErrorContext(ctx, "rating recalculation failed", slog.Int("users", len(users)), slog.Any("error", err))
			}
			return nil
		})
	}

	g.Go(func() error {
		s.refreshCaches(ctx, logger, match, season, report)
		return nil
	})

	g.Go(func() error {
		if _, err := s.collab.Templates.RefreshUpcoming(ctx, match.SeasonID); err != nil {
			logger.ErrorContext(ctx, "template refresh failed", slog.Any("error", err))
		}
		return nil
	})

	if season != nil {
		g.Go(func() error {
			for _, msg := range s.messages(season.ID, match.ID, report) {
				if err := s.collab.Publisher.Publish(ctx, msg); err != nil {
					logger.ErrorContext(ctx, "publish failed", slog.String("topic", msg.Topic), slog.Any("error", err))
				}
			}
			return nil
		})
	}

	_ = g.Wait()
}

func (s *finalizationService) refreshCaches(ctx context.Context, logger *slog.Logger, match *models.Match, season *models.Season, report *FinalizationReport) {
	keys := []string{cache.MatchKey(match.ID), cache.MatchPredictionsKey(match.ID)}
	prefixes := []string{cache.ClubPrefix(match.HomeClubID), cache.ClubPrefix(match.AwayClubID)}
	if season != nil {
		keys = append(keys,
			cache.SeasonStandingsKey(season.ID),
			cache.SeasonResultsKey(season.ID),
			cache.SeasonScheduleKey(season.ID),
			cache.SeasonStatsKey(season.ID),
			cache.SeasonBracketKey(season.ID),
			cache.SeasonDisqualificationsKey(season.ID),
		)
		prefixes = append(prefixes, cache.CompetitionPrefix(season.CompetitionID))
	}

	if err := s.collab.Cache.Invalidate(ctx, keys...); err != nil {
		logger.ErrorContext(ctx, "cache invalidation failed", slog.Any("error", err))
	}
	for _, prefix := range prefixes {
		if err := s.collab.Cache.InvalidatePrefix(ctx, prefix); err != nil {
			logger.ErrorContext(ctx, "cache prefix invalidation failed", slog.String("prefix", prefix), slog.Any("error", err))
		}
	}

	if season == nil || report.Aggregates == nil || s.standings == nil {
		return
	}
	table, err := s.standings.Standings(ctx, season.ID)
	if err != nil {
		logger.ErrorContext(ctx, "standings reload failed", slog.Any("error", err))
		return
	}
	if err := s.collab.Cache.Set(ctx, cache.SeasonStandingsKey(season.ID), table, s.standingsTTL); err != nil {
		logger.ErrorContext(ctx, "standings cache refresh failed", slog.Any("error", err))
	}
	if s.collab.Snapshot != nil {
		url, err := s.collab.Snapshot.PutStandings(ctx, season.ID, table)
		if err != nil {
			logger.ErrorContext(ctx, "standings snapshot upload failed", slog.Any("error", err))
			return
		}
		logger.DebugContext(ctx, "standings snapshot uploaded", slog.String("url", url))
	}
}

func (s *finalizationService) messages(seasonID, matchID int, report *FinalizationReport) []notify.Message {
	now := time.Now().UTC()
	msg := func(topic string, payload any) notify.Message {
		return notify.Message{Topic: topic, SeasonID: seasonID, MatchID: matchID, Payload: payload, CreatedAt: now}
	}

	out := []notify.Message{msg(notify.TopicResultsUpdated, report.Settlement)}
	if report.Aggregates != nil {
		out = append(out, msg(notify.TopicTableUpdated, report.Aggregates))
	}
	if p := report.Progression; p != nil {
		if len(p.CreatedStages) > 0 || len(p.DeletedMatches) > 0 {
			out = append(out, msg(notify.TopicScheduleUpdated, p))
		}
		if p.BracketChanged() {
			out = append(out, msg(notify.TopicBracketUpdated, p))
		}
	}
	return out
}
