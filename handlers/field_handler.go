package handlers

import (
	"net/http"

	"github.com/matchgrid/matchgrid/services"
)

type FieldHandler struct {
	fieldService services.FieldService
}

func NewFieldHandler(fieldService services.FieldService) *FieldHandler {
	return &FieldHandler{fieldService: fieldService}
}

// Create godoc
// @Summary Register a field
// @Tags fields
// @Accept json
// @Produce json
// @Param field body services.FieldRequest true "Field definition"
// @Success 201 {object} models.Field
// @Router /fields [post]
func (h *FieldHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req services.FieldRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	field, err := h.fieldService.Create(r.Context(), req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, field, nil)
}

// GetByID godoc
// @Summary Get a field with its availability windows
// @Tags fields
// @Produce json
// @Param fieldID path int true "Field ID"
// @Success 200 {object} models.Field
// @Router /fields/{fieldID} [get]
func (h *FieldHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	fieldID, err := idParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	field, err := h.fieldService.GetByID(r.Context(), fieldID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field, nil)
}

// ListByOrganization godoc
// @Summary List an organization's fields
// @Tags fields
// @Produce json
// @Param organizationID path int true "Organization ID"
// @Success 200 {array} models.Field
// @Router /organizations/{organizationID}/fields [get]
func (h *FieldHandler) ListByOrganization(w http.ResponseWriter, r *http.Request) {
	organizationID, err := idParam(r, "organizationID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	fields, err := h.fieldService.ListByOrganization(r.Context(), organizationID)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fields, nil)
}

// Update godoc
// @Summary Update a field
// @Tags fields
// @Accept json
// @Produce json
// @Param fieldID path int true "Field ID"
// @Param field body services.FieldRequest true "Field definition"
// @Success 200 {object} models.Field
// @Router /fields/{fieldID} [put]
func (h *FieldHandler) Update(w http.ResponseWriter, r *http.Request) {
	fieldID, err := idParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.FieldRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	field, err := h.fieldService.Update(r.Context(), fieldID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field, nil)
}

// UploadPhoto godoc
// @Summary Upload the field photo
// @Tags fields
// @Accept octet-stream
// @Produce json
// @Param fieldID path int true "Field ID"
// @Success 200 {object} models.Field
// @Router /fields/{fieldID}/photo [put]
func (h *FieldHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	fieldID, err := idParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	field, err := h.fieldService.UploadPhoto(r.Context(), fieldID, r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, field, nil)
}

// Delete godoc
// @Summary Remove a field
// @Tags fields
// @Param fieldID path int true "Field ID"
// @Success 204
// @Router /fields/{fieldID} [delete]
func (h *FieldHandler) Delete(w http.ResponseWriter, r *http.Request) {
	fieldID, err := idParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.fieldService.Delete(r.Context(), fieldID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddTimeSlot godoc
// @Summary Add an availability window to a field
// @Tags fields
// @Accept json
// @Produce json
// @Param fieldID path int true "Field ID"
// @Param slot body services.TimeSlotRequest true "Window definition"
// @Success 201 {object} models.TimeSlot
// @Router /fields/{fieldID}/slots [post]
func (h *FieldHandler) AddTimeSlot(w http.ResponseWriter, r *http.Request) {
	fieldID, err := idParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	var req services.TimeSlotRequest
	if err := readValidatedJSON(w, r, &req); err != nil {
		badRequestResponse(w, err)
		return
	}
	slot, err := h.fieldService.AddTimeSlot(r.Context(), fieldID, req)
	if err != nil {
		serviceErrorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot, nil)
}

// RemoveTimeSlot godoc
// @Summary Remove an availability window
// @Tags fields
// @Param fieldID path int true "Field ID"
// @Param slotID path int true "Slot ID"
// @Success 204
// @Router /fields/{fieldID}/slots/{slotID} [delete]
func (h *FieldHandler) RemoveTimeSlot(w http.ResponseWriter, r *http.Request) {
	fieldID, err := idParam(r, "fieldID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	slotID, err := idParam(r, "slotID")
	if err != nil {
		badRequestResponse(w, err)
		return
	}
	if err := h.fieldService.RemoveTimeSlot(r.Context(), fieldID, slotID); err != nil {
		serviceErrorResponse(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
