package handlers

import (
	"net/http"

	"github.com/matchgrid/matchgrid/services"
)

type SportHandler struct {
	sportService services.SportService
}

func NewSportHandler(sportService services.SportService) *SportHandler {
	return &SportHandler{sportService: sportService}
}

type sportRequest struct {
	Name string `json:"name" validate:"required,min=1,max=80"`
}

// Create godoc
// @Summary Add a sport
// @Tags sports
// @Accept json
// @Produce json
// @Param sport body sportRequest true "Sport name"
// @Success 201 {object} models.Sport
// @Router /sports [post]
func (h *SportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req sportRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	sport, err := h.sportService.Create(r.Context(), req.Name)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sport, nil)
}

// GetByID godoc
// @Summary Get a sport
// @Tags sports
// @Produce json
// @Param sportID path int true "Sport ID"
// @Success 200 {object} models.Sport
// @Router /sports/{sportID} [get]
func (h *SportHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	sportID, err := idParam(r, "sportID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sport, err := h.sportService.GetByID(r.Context(), sportID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sport, nil)
}

// List godoc
// @Summary List sports
// @Tags sports
// @Produce json
// @Success 200 {array} models.Sport
// @Router /sports [get]
func (h *SportHandler) List(w http.ResponseWriter, r *http.Request) {
	sports, err := h.sportService.List(r.Context())
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sports, nil)
}

// Update godoc
// @Summary Rename a sport
// @Tags sports
// @Accept json
// @Produce json
// @Param sportID path int true "Sport ID"
// @Param sport body sportRequest true "Sport name"
// @Success 200 {object} models.Sport
// @Router /sports/{sportID} [put]
func (h *SportHandler) Update(w http.ResponseWriter, r *http.Request) {
	sportID, err := idParam(r, "sportID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req sportRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	sport, err := h.sportService.Update(r.Context(), sportID, req.Name)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sport, nil)
}

// UploadPhoto godoc
// @Summary Upload the sport photo
// @Tags sports
// @Accept octet-stream
// @Produce json
// @Param sportID path int true "Sport ID"
// @Success 200 {object} models.Sport
// @Router /sports/{sportID}/photo [put]
func (h *SportHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	sportID, err := idParam(r, "sportID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	sport, err := h.sportService.UploadPhoto(r.Context(), sportID, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sport, nil)
}

// Delete godoc
// @Summary Remove a sport
// @Tags sports
// @Param sportID path int true "Sport ID"
// @Success 204
// @Router /sports/{sportID} [delete]
func (h *SportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sportID, err := idParam(r, "sportID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.sportService.Delete(r.Context(), sportID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateProfile godoc
// @Summary Add a scoring profile to a sport
// @Tags sports
// @Accept json
// @Produce json
// @Param sportID path int true "Sport ID"
// @Param profile body services.ProfileRequest true "Profile definition"
// @Success 201 {object} models.ScoringProfile
// @Router /sports/{sportID}/profiles [post]
func (h *SportHandler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	sportID, err := idParam(r, "sportID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.ProfileRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	profile, err := h.sportService.CreateProfile(r.Context(), sportID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile, nil)
}

// ListProfiles godoc
// @Summary List a sport's scoring profiles
// @Tags sports
// @Produce json
// @Param sportID path int true "Sport ID"
// @Success 200 {array} models.ScoringProfile
// @Router /sports/{sportID}/profiles [get]
func (h *SportHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	sportID, err := idParam(r, "sportID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	profiles, err := h.sportService.ListProfiles(r.Context(), sportID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profiles, nil)
}

// GetProfile godoc
// @Summary Get one scoring profile
// @Tags sports
// @Produce json
// @Param profileID path int true "Profile ID"
// @Success 200 {object} models.ScoringProfile
// @Router /profiles/{profileID} [get]
func (h *SportHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := idParam(r, "profileID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	profile, err := h.sportService.GetProfile(r.Context(), profileID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile, nil)
}

// UpdateProfile godoc
// @Summary Replace a scoring profile
// @Tags sports
// @Accept json
// @Produce json
// @Param profileID path int true "Profile ID"
// @Param profile body services.ProfileRequest true "Profile definition"
// @Success 200 {object} models.ScoringProfile
// @Router /profiles/{profileID} [put]
func (h *SportHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := idParam(r, "profileID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.ProfileRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	profile, err := h.sportService.UpdateProfile(r.Context(), profileID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile, nil)
}

// DeleteProfile godoc
// @Summary Remove a scoring profile
// @Tags sports
// @Param profileID path int true "Profile ID"
// @Success 204
// @Router /profiles/{profileID} [delete]
func (h *SportHandler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	profileID, err := idParam(r, "profileID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.sportService.DeleteProfile(r.Context(), profileID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
