package handlers

import (
	"net/http"

	"github.com/Maxxvall/OBNLIGA-sub002/services"
)

type FinalizationHandler struct {
	finalizationService services.FinalizationService
	templateService     services.TemplateService
}

func NewFinalizationHandler(fs services.FinalizationService, ts services.TemplateService) *FinalizationHandler {
	return &FinalizationHandler{
		finalizationService: fs,
		templateService:     ts,
	}
}

// FinalizeMatch runs the post-match pipeline for a finished match. Calling it
// again for the same match is safe.
func (h *FinalizationHandler) FinalizeMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := getIDFromURL(r, "matchID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	report, err := h.finalizationService.FinalizeMatch(r.Context(), matchID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"report": report}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

type refreshTemplatesInput struct {
	SeasonID *int `json:"season_id"`
}

func (h *FinalizationHandler) RefreshTemplates(w http.ResponseWriter, r *http.Request) {
	var input refreshTemplatesInput
	if r.ContentLength != 0 {
		if err := readJSON(w, r, &input); err != nil {
			badRequestResponse(w, r, err)
			return
		}
	}
	written, err := h.templateService.RefreshUpcoming(r.Context(), input.SeasonID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"templates_written": written}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
