package handlers

import (
	"net/http"

	"github.com/matchgrid/matchgrid/middleware"
	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/services"
)

type EventHandler struct {
	eventService services.EventService
}

func NewEventHandler(eventService services.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Param event body services.EventCreateRequest true "Event definition"
// @Success 201 {object} models.Event
// @Router /events [post]
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := middleware.ActorID(r.Context())
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var req services.EventCreateRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	event, err := h.eventService.Create(r.Context(), actorID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, event, nil)
}

// GetByID godoc
// @Summary Get an event with its divisions
// @Tags events
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} models.Event
// @Router /events/{eventID} [get]
func (h *EventHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	event, err := h.eventService.GetByID(r.Context(), eventID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event, nil)
}

// List godoc
// @Summary List events
// @Tags events
// @Produce json
// @Param sport query int false "Sport filter"
// @Param status query string false "Status filter"
// @Param kind query string false "Kind filter"
// @Success 200 {array} models.Event
// @Router /events [get]
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := repositories.EventFilter{}
	if raw := r.URL.Query().Get("sport"); raw != "" {
		sportID, err := parsePositiveInt(raw)
		if err != nil {
			badRequestResponse(w, err)
			return
		}
		filter.SportID = &sportID
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := models.EventStatus(raw)
		filter.Status = &status
	}
	if raw := r.URL.Query().Get("kind"); raw != "" {
		kind := models.EventKind(raw)
		filter.Kind = &kind
	}

	events, err := h.eventService.List(r.Context(), filter)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events, nil)
}

// Update godoc
// @Summary Patch an event
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param event body services.EventUpdateRequest true "Fields to change"
// @Success 200 {object} models.Event
// @Router /events/{eventID} [patch]
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.EventUpdateRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	event, err := h.eventService.Update(r.Context(), eventID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event, nil)
}

type statusRequest struct {
	Status models.EventStatus `json:"status" validate:"required"`
}

// UpdateStatus godoc
// @Summary Advance the event lifecycle status
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param status body statusRequest true "Target status"
// @Success 200 {object} models.Event
// @Router /events/{eventID}/status [put]
func (h *EventHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req statusRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	event, err := h.eventService.UpdateStatus(r.Context(), eventID, req.Status)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event, nil)
}

// UploadPhoto godoc
// @Summary Upload the event photo
// @Tags events
// @Accept octet-stream
// @Produce json
// @Param eventID path int true "Event ID"
// @Success 200 {object} models.Event
// @Router /events/{eventID}/photo [put]
func (h *EventHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}

	event, err := h.eventService.UploadPhoto(r.Context(), eventID, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event, nil)
}

// Delete godoc
// @Summary Delete an event
// @Tags events
// @Param eventID path int true "Event ID"
// @Success 204
// @Router /events/{eventID} [delete]
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.eventService.Delete(r.Context(), eventID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateDivision godoc
// @Summary Add a division to an event
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param division body services.DivisionRequest true "Division definition"
// @Success 201 {object} models.Division
// @Router /events/{eventID}/divisions [post]
func (h *EventHandler) CreateDivision(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.DivisionRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	division, err := h.eventService.CreateDivision(r.Context(), eventID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, division, nil)
}

// UpdateDivision godoc
// @Summary Replace a division's settings
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param divisionID path int true "Division ID"
// @Param division body services.DivisionRequest true "Division definition"
// @Success 200 {object} models.Division
// @Router /events/{eventID}/divisions/{divisionID} [put]
func (h *EventHandler) UpdateDivision(w http.ResponseWriter, r *http.Request) {
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
	var req services.DivisionRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	division, err := h.eventService.UpdateDivision(r.Context(), eventID, divisionID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, division, nil)
}

// DeleteDivision godoc
// @Summary Remove a division
// @Tags events
// @Param eventID path int true "Event ID"
// @Param divisionID path int true "Division ID"
// @Success 204
// @Router /events/{eventID}/divisions/{divisionID} [delete]
func (h *EventHandler) DeleteDivision(w http.ResponseWriter, r *http.Request) {
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
	if err := h.eventService.DeleteDivision(r.Context(), eventID, divisionID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateTeam godoc
// @Summary Register a team in an event
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param team body services.TeamRequest true "Team definition"
// @Success 201 {object} models.Team
// @Router /events/{eventID}/teams [post]
func (h *EventHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.TeamRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	team, err := h.eventService.CreateTeam(r.Context(), eventID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, team, nil)
}

// UpdateTeam godoc
// @Summary Rename or reassign a team
// @Tags events
// @Accept json
// @Produce json
// @Param eventID path int true "Event ID"
// @Param teamID path int true "Team ID"
// @Param team body services.TeamRequest true "Team definition"
// @Success 200 {object} models.Team
// @Router /events/{eventID}/teams/{teamID} [put]
func (h *EventHandler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.TeamRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	team, err := h.eventService.UpdateTeam(r.Context(), eventID, teamID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team, nil)
}

// DeleteTeam godoc
// @Summary Withdraw a team from an event
// @Tags events
// @Param eventID path int true "Event ID"
// @Param teamID path int true "Team ID"
// @Success 204
// @Router /events/{eventID}/teams/{teamID} [delete]
func (h *EventHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	eventID, err := idParam(r, "eventID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	teamID, err := idParam(r, "teamID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.eventService.DeleteTeam(r.Context(), eventID, teamID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
