package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/storage"
)

type FieldRequest struct {
	OrganizationID int    `json:"organizationId" validate:"required"`
	Number         int    `json:"number" validate:"required,min=1"`
	Name           string `json:"name" validate:"required,min=1,max=80"`
}

type TimeSlotRequest struct {
	Weekday    *int    `json:"weekday,omitempty" validate:"omitempty,min=0,max=6"`
	Date       *string `json:"date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Until      *string `json:"until,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartMin   int     `json:"startMin" validate:"min=0,max=1440"`
	EndMin     int     `json:"endMin" validate:"min=0,max=1440"`
	PriceCents int     `json:"priceCents" validate:"min=0"`
}

type FieldService interface {
	Create(ctx context.Context, req FieldRequest) (*models.Field, error)
	GetByID(ctx context.Context, id int) (*models.Field, error)
	ListByOrganization(ctx context.Context, organizationID int) ([]*models.Field, error)
	Update(ctx context.Context, id int, req FieldRequest) (*models.Field, error)
	UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Field, error)
	Delete(ctx context.Context, id int) error

	AddTimeSlot(ctx context.Context, fieldID int, req TimeSlotRequest) (*models.TimeSlot, error)
	RemoveTimeSlot(ctx context.Context, fieldID, slotID int) error
}

type fieldService struct {
	db        *sqlx.DB
	fieldRepo repositories.FieldRepository
	uploader  storage.FileUploader
	logger    *slog.Logger
}

func NewFieldService(db *sqlx.DB, fieldRepo repositories.FieldRepository, uploader storage.FileUploader, logger *slog.Logger) FieldService {
	return &fieldService{db: db, fieldRepo: fieldRepo, uploader: uploader, logger: logger}
}

func (s *fieldService) Create(ctx context.Context, req FieldRequest) (*models.Field, error) {
	field := &models.Field{
		OrganizationID: req.OrganizationID,
		Number:         req.Number,
		Name:           req.Name,
	}
	if err := s.fieldRepo.Create(ctx, s.db, field); err != nil {
		return nil, err
	}
	return field, nil
}

func (s *fieldService) GetByID(ctx context.Context, id int) (*models.Field, error) {
	field, err := s.fieldRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrFieldNotFound)
	}
	slots, err := s.fieldRepo.ListTimeSlots(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	field.TimeSlots = slots
	field.PhotoURL = populatePhotoURL(field.PhotoKey, s.uploader)
	return field, nil
}

func (s *fieldService) ListByOrganization(ctx context.Context, organizationID int) ([]*models.Field, error) {
	fields, err := s.fieldRepo.ListByOrganization(ctx, s.db, organizationID)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		f.PhotoURL = populatePhotoURL(f.PhotoKey, s.uploader)
	}
	return fields, nil
}

func (s *fieldService) Update(ctx context.Context, id int, req FieldRequest) (*models.Field, error) {
	field, err := s.fieldRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrFieldNotFound)
	}
	field.Number = req.Number
	field.Name = req.Name
	if err := s.fieldRepo.Update(ctx, s.db, field); err != nil {
		return nil, mapRepoNotFound(err, ErrFieldNotFound)
	}
	return field, nil
}

func (s *fieldService) UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Field, error) {
	field, err := s.fieldRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrFieldNotFound)
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("fields/%d/%s%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, err
	}
	if field.PhotoKey != nil && *field.PhotoKey != "" {
		if err := s.uploader.Delete(ctx, *field.PhotoKey); err != nil {
			s.logger.Warn("failed to delete previous field photo",
				slog.Int("field_id", id), slog.String("key", *field.PhotoKey))
		}
	}
	if err := s.fieldRepo.UpdatePhotoKey(ctx, s.db, id, &key); err != nil {
		return nil, mapRepoNotFound(err, ErrFieldNotFound)
	}
	field.PhotoKey = &key
	field.PhotoURL = populatePhotoURL(field.PhotoKey, s.uploader)
	return field, nil
}

func (s *fieldService) Delete(ctx context.Context, id int) error {
	return mapRepoNotFound(s.fieldRepo.Delete(ctx, s.db, id), ErrFieldNotFound)
}

// AddTimeSlot records one availability window. A slot is either repeating
// (weekday, optionally bounded by until) or a one-off date; exactly one form
// must be supplied.
func (s *fieldService) AddTimeSlot(ctx context.Context, fieldID int, req TimeSlotRequest) (*models.TimeSlot, error) {
	if _, err := s.fieldRepo.GetByID(ctx, s.db, fieldID); err != nil {
		return nil, mapRepoNotFound(err, ErrFieldNotFound)
	}
	if req.EndMin <= req.StartMin {
		return nil, fmt.Errorf("%w: slot end must be after start", ErrValidationFailed)
	}
	if (req.Weekday == nil) == (req.Date == nil) {
		return nil, fmt.Errorf("%w: a slot needs either a weekday or a date", ErrValidationFailed)
	}
	if req.Weekday == nil && req.Until != nil {
		return nil, fmt.Errorf("%w: until only applies to repeating slots", ErrValidationFailed)
	}

	slot := &models.TimeSlot{
		FieldID:    fieldID,
		Weekday:    req.Weekday,
		StartMin:   req.StartMin,
		EndMin:     req.EndMin,
		PriceCents: req.PriceCents,
	}
	if req.Date != nil {
		d, err := parseDate(*req.Date)
		if err != nil {
			return nil, fmt.Errorf("%w: date", ErrValidationFailed)
		}
		slot.Date = &d
	}
	if req.Until != nil {
		u, err := parseDate(*req.Until)
		if err != nil {
			return nil, fmt.Errorf("%w: until", ErrValidationFailed)
		}
		slot.Until = &u
	}

	if err := s.fieldRepo.CreateTimeSlot(ctx, s.db, slot); err != nil {
		if errors.Is(err, repositories.ErrTimeSlotInvalid) {
			return nil, ErrFieldNotFound
		}
		return nil, err
	}
	return slot, nil
}

func (s *fieldService) RemoveTimeSlot(ctx context.Context, fieldID, slotID int) error {
	slots, err := s.fieldRepo.ListTimeSlots(ctx, s.db, fieldID)
	if err != nil {
		return err
	}
	owned := false
	for _, slot := range slots {
		if slot.ID == slotID {
			owned = true
			break
		}
	}
	if !owned {
		return fmt.Errorf("%w: slot %d", ErrValidationFailed, slotID)
	}
	if err := s.fieldRepo.DeleteTimeSlot(ctx, s.db, slotID); err != nil {
		if errors.Is(err, repositories.ErrTimeSlotNotFound) {
			return fmt.Errorf("%w: slot %d", ErrValidationFailed, slotID)
		}
		return err
	}
	return nil
}
