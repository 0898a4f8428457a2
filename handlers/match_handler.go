package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/services"
)

type MatchHandler struct {
	matchService   services.MatchService
	bracketService services.BracketService
}

func NewMatchHandler(matchService services.MatchService, bracketService services.BracketService) *MatchHandler {
	return &MatchHandler{matchService: matchService, bracketService: bracketService}
}

// GetByID godoc
// @Summary Get one match
// @Tags matches
// @Produce json
// @Param matchID path string true "Match ID"
// @Success 200 {object} models.Match
// @Router /matches/{matchID} [get]
func (h *MatchHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "matchID")
	match, err := h.matchService.GetByID(r.Context(), id)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, match, nil)
}

// ListByEvent godoc
// @Summary List an event's matches
// @Tags matches
// @Produce json
// @Param eventID path int true "Event ID"
// @Param division query int false "Division filter"
// @Param status query string false "Derived status filter"
// @Success 200 {array} models.Match
// @Router /events/{eventID}/matches [get]
func (h *MatchHandler) ListByEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	filter := repositories.MatchFilter{}
	if raw := r.URL.Query().Get("division"); raw != "" {
		divisionID, err := parsePositiveInt(raw)
		if err != nil {
			badRequestResponse(w, err)
			return
		}
		filter.DivisionID = &divisionID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.MatchStatus(raw)
		filter.Status = &status
	}

	matches, err := h.matchService.ListByEvent(r.Context(), eventID, filter)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, matches, nil)
}

// BulkMutate godoc
// @Summary Apply one atomic batch of bracket mutations
// @Tags matches
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param batch body services.BulkMutationRequest true "Updates, creates, and deletes"
// @Success 200 {object} services.BulkMutationResult
// @Router /events/{eventID}/matches/bulk [post]
func (h *MatchHandler) BulkMutate(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	var req services.BulkMutationRequest
	if err := readJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	result, err := h.matchService.BulkMutate(r.Context(), eventID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result, nil)
}

// GenerateBracket godoc
// @Summary Generate a division's bracket or round-robin fixtures
// @Tags matches
// @Produce json
// @Param eventID path int true "Event ID"
// @Param divisionID path int true "Division ID"
// @Success 201 {array} models.Match
// @Router /events/{eventID}/divisions/{divisionID}/bracket [post]
func (h *MatchHandler) GenerateBracket(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	divisionID, err := idParam(r, "divisionID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	matches, err := h.bracketService.Generate(r.Context(), eventID, divisionID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, matches, nil)
}
