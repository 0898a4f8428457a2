package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/matchgrid/matchgrid/middleware"
	"github.com/matchgrid/matchgrid/services"
)

type BookingHandler struct {
	bookingService services.BookingService
}

func NewBookingHandler(bookingService services.BookingService) *BookingHandler {
	return &BookingHandler{bookingService: bookingService}
}

func actor(w http.ResponseWriter, r *http.Request) (int, bool) {
	actorID, ok := middleware.ActorID(r.Context())
	if !ok {
		errorResponse(w, http.StatusUnauthorized, "authentication required")
	}
	return actorID, ok
}

// Hold godoc
// @Summary Hold a rental candidate for a field window
// @Tags bookings
// @Accept json
// @Produce json
// @Param candidate body services.CandidateRequest true "Requested window"
// @Success 201 {object} models.BookingCandidate
// @Router /bookings/candidates [post]
func (h *BookingHandler) Hold(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var req services.CandidateRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}

	candidate, err := h.bookingService.HoldCandidate(r.Context(), actorID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, candidate, nil)
}

// Move godoc
// @Summary Move or resize a held candidate
// @Tags bookings
// @Accept json
// @Produce json
// @Param candidateID path string true "Candidate ID"
// @Param candidate body services.CandidateRequest true "New window"
// @Success 200 {object} models.BookingCandidate
// @Router /bookings/candidates/{candidateID} [put]
func (h *BookingHandler) Move(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	var req services.CandidateRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	req.ID = chi.URLParam(r, "candidateID")

	candidate, err := h.bookingService.MoveCandidate(r.Context(), actorID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidate, nil)
}

// Release godoc
// @Summary Release a held candidate without committing
// @Tags bookings
// @Param candidateID path string true "Candidate ID"
// @Success 204
// @Router /bookings/candidates/{candidateID} [delete]
func (h *BookingHandler) Release(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.bookingService.ReleaseCandidate(r.Context(), actorID, chi.URLParam(r, "candidateID")); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Commit godoc
// @Summary Commit a held candidate into a confirmed rental
// @Tags bookings
// @Produce json
// @Param candidateID path string true "Candidate ID"
// @Success 201 {object} models.Rental
// @Router /bookings/candidates/{candidateID}/commit [post]
func (h *BookingHandler) Commit(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	rental, err := h.bookingService.CommitCandidate(r.Context(), actorID, chi.URLParam(r, "candidateID"))
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rental, nil)
}

// ListRentals godoc
// @Summary List the caller's rentals
// @Tags bookings
// @Produce json
// @Success 200 {array} models.Rental
// @Router /bookings/rentals [get]
func (h *BookingHandler) ListRentals(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	rentals, err := h.bookingService.ListUserRentals(r.Context(), actorID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rentals, nil)
}

// CancelRental godoc
// @Summary Cancel a confirmed rental
// @Tags bookings
// @Param rentalID path string true "Rental ID"
// @Success 204
// @Router /bookings/rentals/{rentalID} [delete]
func (h *BookingHandler) CancelRental(w http.ResponseWriter, r *http.Request) {
	actorID, ok := actor(w, r)
	if !ok {
		return
	}
	if err := h.bookingService.CancelRental(r.Context(), actorID, chi.URLParam(r, "rentalID")); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
