package handlers

import (
	"net/http"

	"github.com/matchgrid/matchgrid/middleware"
	"github.com/matchgrid/matchgrid/services"
)

type StandingsHandler struct {
	standingsService services.StandingsService
}

func NewStandingsHandler(standingsService services.StandingsService) *StandingsHandler {
	return &StandingsHandler{standingsService: standingsService}
}

// Get godoc
// @Summary Get the recomputed standings table of a division
// @Tags standings
// @Produce json
// @Param divisionID path int true "Division ID"
// @Success 200 {object} models.DivisionStandings
// @Router /divisions/{divisionID}/standings [get]
func (h *StandingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	divisionID, err := idParam(r, "divisionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	table, err := h.standingsService.Get(r.Context(), divisionID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table, nil)
}

// Patch godoc
// @Summary Set or clear per-team points overrides
// @Tags standings
// @Accept json
// @Produce json
// @Param divisionID path int true "Division ID"
// @Param overrides body services.StandingsPatchRequest true "Overrides; a null points value clears"
// @Success 200 {object} models.DivisionStandings
// @Router /divisions/{divisionID}/standings [patch]
func (h *StandingsHandler) Patch(w http.ResponseWriter, r *http.Request) {
	divisionID, err := idParam(r, "divisionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var req services.StandingsPatchRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	req.DivisionID = divisionID

	table, err := h.standingsService.Patch(r.Context(), req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, table, nil)
}

// Confirm godoc
// @Summary Freeze the standings table, optionally seeding playoff divisions
// @Tags standings
// @Accept json
// @Produce json
// @Param divisionID path int true "Division ID"
// @Param confirmation body services.StandingsConfirmRequest true "Confirmation options"
// @Success 200 {object} services.StandingsConfirmResult
// @Router /divisions/{divisionID}/standings/confirm [post]
func (h *StandingsHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	divisionID, err := idParam(r, "divisionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	actorID, ok := middleware.ActorID(r.Context())
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req services.StandingsConfirmRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	req.DivisionID = divisionID

	result, err := h.standingsService.Confirm(r.Context(), req, actorID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result, nil)
}
