package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/Maxxvall/OBNLIGA-sub002/cache"
	"github.com/Maxxvall/OBNLIGA-sub002/services"
)

// ReadCache is the read side of the league cache.
type ReadCache interface {
	Get(ctx context.Context, key string, dest any) (bool, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type SeasonHandler struct {
	standingsService services.StandingsService
	cache            ReadCache
	ttl              time.Duration
	logger           *slog.Logger
}

// NewSeasonHandler accepts a nil cache, in which case every request reads
// the database.
func NewSeasonHandler(ss services.StandingsService, c ReadCache, ttl time.Duration, logger *slog.Logger) *SeasonHandler {
	return &SeasonHandler{
		standingsService: ss,
		cache:            c,
		ttl:              ttl,
		logger:           logger,
	}
}

func (h *SeasonHandler) GetStandings(w http.ResponseWriter, r *http.Request) {
	seasonID, err := getIDFromURL(r, "seasonID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	key := cache.SeasonStandingsKey(seasonID)
	if h.cache != nil {
		var cached services.SeasonStandings
		hit, err := h.cache.Get(r.Context(), key, &cached)
		if err != nil {
			h.logger.Warn("standings cache read failed", slog.Int("season_id", seasonID), slog.Any("error", err))
		}
		if hit {
			if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": cached}, nil); err != nil {
				serverErrorResponse(w, r, err)
			}
			return
		}
	}

	standings, err := h.standingsService.Standings(r.Context(), seasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if h.cache != nil {
		if err := h.cache.Set(r.Context(), key, standings, h.ttl); err != nil {
			h.logger.Warn("standings cache write failed", slog.Int("season_id", seasonID), slog.Any("error", err))
		}
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"standings": standings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
