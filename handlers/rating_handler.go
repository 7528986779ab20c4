package handlers

import (
	"net/http"

	"github.com/Maxxvall/OBNLIGA-sub002/services"
)

const defaultLeaderboardLimit = 50

type RatingHandler struct {
	ratingService services.RatingService
}

func NewRatingHandler(rs services.RatingService) *RatingHandler {
	return &RatingHandler{ratingService: rs}
}

func (h *RatingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultLeaderboardLimit)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	ratings, err := h.ratingService.Leaderboard(r.Context(), limit)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ratings": ratings}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
