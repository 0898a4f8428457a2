package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/storage"
)

type EventCreateRequest struct {
	Name        string                    `json:"name" validate:"required,min=3,max=120"`
	Description *string                   `json:"description,omitempty"`
	SportID     int                       `json:"sportId" validate:"required"`
	Kind        models.EventKind          `json:"kind" validate:"required,oneof=tournament league pickup"`
	RegDate     string                    `json:"regDate" validate:"required,datetime=2006-01-02"`
	StartDate   string                    `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string                    `json:"endDate" validate:"required,datetime=2006-01-02"`
	Tournament  *models.TournamentDetails `json:"tournament,omitempty"`
	League      *models.LeagueDetails     `json:"league,omitempty"`
	Pickup      *models.PickupDetails     `json:"pickup,omitempty"`
}

type EventUpdateRequest struct {
	Name        *string                   `json:"name,omitempty" validate:"omitempty,min=3,max=120"`
	Description models.Opt[string]        `json:"description"`
	RegDate     *string                   `json:"regDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	StartDate   *string                   `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string                   `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Tournament  *models.TournamentDetails `json:"tournament,omitempty"`
	League      *models.LeagueDetails     `json:"league,omitempty"`
	Pickup      *models.PickupDetails     `json:"pickup,omitempty"`
}

type DivisionRequest struct {
	Name                        string `json:"name" validate:"required,min=1,max=80"`
	ProfileID                   int    `json:"profileId" validate:"required"`
	PlayoffTeamCount            *int   `json:"playoffTeamCount,omitempty" validate:"omitempty,min=1"`
	PlayoffPlacementDivisionIDs []int  `json:"playoffPlacementDivisionIds,omitempty"`
}

type TeamRequest struct {
	Name       string `json:"name" validate:"required,min=1,max=80"`
	DivisionID *int   `json:"divisionId,omitempty"`
	Seed       *int   `json:"seed,omitempty" validate:"omitempty,min=1"`
}

type EventService interface {
	Create(ctx context.Context, organizerID int, req EventCreateRequest) (*models.Event, error)
	GetByID(ctx context.Context, id int) (*models.Event, error)
	List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error)
	Update(ctx context.Context, id int, req EventUpdateRequest) (*models.Event, error)
	UpdateStatus(ctx context.Context, id int, status models.EventStatus) (*models.Event, error)
	UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Event, error)
	Delete(ctx context.Context, id int) error

	CreateDivision(ctx context.Context, eventID int, req DivisionRequest) (*models.Division, error)
	UpdateDivision(ctx context.Context, eventID, divisionID int, req DivisionRequest) (*models.Division, error)
	DeleteDivision(ctx context.Context, eventID, divisionID int) error

	CreateTeam(ctx context.Context, eventID int, req TeamRequest) (*models.Team, error)
	UpdateTeam(ctx context.Context, eventID, teamID int, req TeamRequest) (*models.Team, error)
	DeleteTeam(ctx context.Context, eventID, teamID int) error

	AutoUpdateStatusesByDates(ctx context.Context) error
}

type eventService struct {
	db           *sqlx.DB
	eventRepo    repositories.EventRepository
	divisionRepo repositories.DivisionRepository
	teamRepo     repositories.TeamRepository
	profileRepo  repositories.ProfileRepository
	sportRepo    repositories.SportRepository
	uploader     storage.FileUploader
	logger       *slog.Logger
}

func NewEventService(
	db *sqlx.DB,
	eventRepo repositories.EventRepository,
	divisionRepo repositories.DivisionRepository,
	teamRepo repositories.TeamRepository,
	profileRepo repositories.ProfileRepository,
	sportRepo repositories.SportRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) EventService {
	return &eventService{
		db:           db,
		eventRepo:    eventRepo,
		divisionRepo: divisionRepo,
		teamRepo:     teamRepo,
		profileRepo:  profileRepo,
		sportRepo:    sportRepo,
		uploader:     uploader,
		logger:       logger,
	}
}

func (s *eventService) Create(ctx context.Context, organizerID int, req EventCreateRequest) (*models.Event, error) {
	if req.Name == "" {
		return nil, ErrEventNameRequired
	}
	if _, err := s.sportRepo.GetByID(ctx, s.db, req.SportID); err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}

	event := &models.Event{
		Name:        req.Name,
		Description: req.Description,
		SportID:     req.SportID,
		OrganizerID: organizerID,
		Kind:        req.Kind,
		Status:      models.EventSoon,
		Tournament:  req.Tournament,
		League:      req.League,
		Pickup:      req.Pickup,
	}
	var err error
	if event.RegDate, err = parseDate(req.RegDate); err != nil {
		return nil, fmt.Errorf("%w: regDate", ErrValidationFailed)
	}
	if event.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, fmt.Errorf("%w: startDate", ErrValidationFailed)
	}
	if event.EndDate, err = parseDate(req.EndDate); err != nil {
		return nil, fmt.Errorf("%w: endDate", ErrValidationFailed)
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if err := s.eventRepo.Create(ctx, s.db, event); err != nil {
		if errors.Is(err, repositories.ErrEventNameConflict) {
			return nil, ErrEventNameConflict
		}
		if errors.Is(err, repositories.ErrEventSportInvalid) {
			return nil, ErrSportNotFound
		}
		return nil, err
	}

	s.logger.Info("event created",
		slog.Int("event_id", event.ID),
		slog.String("kind", string(event.Kind)),
		slog.Int("organizer_id", organizerID))
	return s.decorate(ctx, event)
}

func (s *eventService) GetByID(ctx context.Context, id int) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrEventNotFound)
	}
	divisions, err := s.divisionRepo.ListByEvent(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	for _, d := range divisions {
		event.Divisions = append(event.Divisions, *d)
	}
	return s.decorate(ctx, event)
}

func (s *eventService) List(ctx context.Context, filter repositories.EventFilter) ([]*models.Event, error) {
	events, err := s.eventRepo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	for _, e := range events {
		if _, err := s.decorate(ctx, e); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// Update patches event fields. The kind is immutable: detail payloads for a
// different kind than the stored one are rejected rather than coerced.
func (s *eventService) Update(ctx context.Context, id int, req EventUpdateRequest) (*models.Event, error) {
	var updated *models.Event
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		event, err := s.eventRepo.GetByID(ctx, tx, id)
		if err != nil {
			return mapRepoNotFound(err, ErrEventNotFound)
		}

		if req.Name != nil {
			if *req.Name == "" {
				return ErrEventNameRequired
			}
			event.Name = *req.Name
		}
		if req.Description.Defined {
			event.Description = req.Description.Value
		}
		if req.RegDate != nil {
			if event.RegDate, err = parseDate(*req.RegDate); err != nil {
				return fmt.Errorf("%w: regDate", ErrValidationFailed)
			}
		}
		if req.StartDate != nil {
			if event.StartDate, err = parseDate(*req.StartDate); err != nil {
				return fmt.Errorf("%w: startDate", ErrValidationFailed)
			}
		}
		if req.EndDate != nil {
			if event.EndDate, err = parseDate(*req.EndDate); err != nil {
				return fmt.Errorf("%w: endDate", ErrValidationFailed)
			}
		}

		switch {
		case req.Tournament != nil:
			if event.Kind != models.KindTournament {
				return ErrEventKindImmutable
			}
			event.Tournament = req.Tournament
		case req.League != nil:
			if event.Kind != models.KindLeague {
				return ErrEventKindImmutable
			}
			event.League = req.League
		case req.Pickup != nil:
			if event.Kind != models.KindPickup {
				return ErrEventKindImmutable
			}
			event.Pickup = req.Pickup
		}

		if err := validateEvent(event); err != nil {
			return err
		}
		if err := s.eventRepo.Update(ctx, tx, event); err != nil {
			if errors.Is(err, repositories.ErrEventNameConflict) {
				return ErrEventNameConflict
			}
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, updated)
}

func (s *eventService) UpdateStatus(ctx context.Context, id int, status models.EventStatus) (*models.Event, error) {
	switch status {
	case models.EventSoon, models.EventRegistration, models.EventActive, models.EventCompleted, models.EventCanceled:
	default:
		return nil, ErrEventInvalidStatus
	}

	var updated *models.Event
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		event, err := s.eventRepo.GetByID(ctx, tx, id)
		if err != nil {
			return mapRepoNotFound(err, ErrEventNotFound)
		}
		if !isValidStatusTransition(event.Status, status) {
			return fmt.Errorf("%w: %s -> %s", ErrEventStatusTransition, event.Status, status)
		}
		if err := s.eventRepo.UpdateStatus(ctx, tx, id, status); err != nil {
			return mapRepoNotFound(err, ErrEventNotFound)
		}
		event.Status = status
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, updated)
}

func (s *eventService) UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrEventNotFound)
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("events/%d/%s%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, err
	}
	if event.PhotoKey != nil && *event.PhotoKey != "" {
		if err := s.uploader.Delete(ctx, *event.PhotoKey); err != nil {
			s.logger.Warn("failed to delete previous event photo",
				slog.Int("event_id", id), slog.String("key", *event.PhotoKey))
		}
	}
	if err := s.eventRepo.UpdatePhotoKey(ctx, s.db, id, &key); err != nil {
		return nil, mapRepoNotFound(err, ErrEventNotFound)
	}
	event.PhotoKey = &key
	return s.decorate(ctx, event)
}

func (s *eventService) Delete(ctx context.Context, id int) error {
	event, err := s.eventRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return mapRepoNotFound(err, ErrEventNotFound)
	}
	if err := s.eventRepo.Delete(ctx, s.db, id); err != nil {
		return mapRepoNotFound(err, ErrEventNotFound)
	}
	if event.PhotoKey != nil && *event.PhotoKey != "" {
		if err := s.uploader.Delete(ctx, *event.PhotoKey); err != nil {
			s.logger.Warn("failed to delete event photo",
				slog.Int("event_id", id), slog.String("key", *event.PhotoKey))
		}
	}
	return nil
}

func (s *eventService) CreateDivision(ctx context.Context, eventID int, req DivisionRequest) (*models.Division, error) {
	if _, err := s.eventRepo.GetByID(ctx, s.db, eventID); err != nil {
		return nil, mapRepoNotFound(err, ErrEventNotFound)
	}
	if _, err := s.profileRepo.GetByID(ctx, s.db, req.ProfileID); err != nil {
		return nil, mapRepoNotFound(err, ErrProfileNotFound)
	}

	division := &models.Division{
		EventID:                     eventID,
		Name:                        req.Name,
		ProfileID:                   req.ProfileID,
		PlayoffTeamCount:            req.PlayoffTeamCount,
		PlayoffPlacementDivisionIDs: intsToInt64s(req.PlayoffPlacementDivisionIDs),
	}
	if err := s.divisionRepo.Create(ctx, s.db, division); err != nil {
		return nil, err
	}
	return division, nil
}

func (s *eventService) UpdateDivision(ctx context.Context, eventID, divisionID int, req DivisionRequest) (*models.Division, error) {
	division, err := s.ownedDivision(ctx, eventID, divisionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.profileRepo.GetByID(ctx, s.db, req.ProfileID); err != nil {
		return nil, mapRepoNotFound(err, ErrProfileNotFound)
	}

	division.Name = req.Name
	division.ProfileID = req.ProfileID
	division.PlayoffTeamCount = req.PlayoffTeamCount
	division.PlayoffPlacementDivisionIDs = intsToInt64s(req.PlayoffPlacementDivisionIDs)
	if err := s.divisionRepo.Update(ctx, s.db, division); err != nil {
		return nil, mapRepoNotFound(err, ErrDivisionNotFound)
	}
	return division, nil
}

func (s *eventService) DeleteDivision(ctx context.Context, eventID, divisionID int) error {
	if _, err := s.ownedDivision(ctx, eventID, divisionID); err != nil {
		return err
	}
	return mapRepoNotFound(s.divisionRepo.Delete(ctx, s.db, divisionID), ErrDivisionNotFound)
}

func (s *eventService) CreateTeam(ctx context.Context, eventID int, req TeamRequest) (*models.Team, error) {
	if _, err := s.eventRepo.GetByID(ctx, s.db, eventID); err != nil {
		return nil, mapRepoNotFound(err, ErrEventNotFound)
	}
	if req.DivisionID != nil {
		if _, err := s.ownedDivision(ctx, eventID, *req.DivisionID); err != nil {
			return nil, err
		}
	}

	team := &models.Team{
		EventID:    eventID,
		DivisionID: req.DivisionID,
		Name:       req.Name,
		Seed:       req.Seed,
	}
	if err := s.teamRepo.Create(ctx, s.db, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, err
	}
	return team, nil
}

func (s *eventService) UpdateTeam(ctx context.Context, eventID, teamID int, req TeamRequest) (*models.Team, error) {
	team, err := s.ownedTeam(ctx, eventID, teamID)
	if err != nil {
		return nil, err
	}
	if req.DivisionID != nil {
		if _, err := s.ownedDivision(ctx, eventID, *req.DivisionID); err != nil {
			return nil, err
		}
	}

	team.Name = req.Name
	team.DivisionID = req.DivisionID
	team.Seed = req.Seed
	if err := s.teamRepo.Update(ctx, s.db, team); err != nil {
		if errors.Is(err, repositories.ErrTeamNameConflict) {
			return nil, ErrTeamNameConflict
		}
		return nil, mapRepoNotFound(err, ErrTeamNotFound)
	}
	return team, nil
}

func (s *eventService) DeleteTeam(ctx context.Context, eventID, teamID int) error {
	if _, err := s.ownedTeam(ctx, eventID, teamID); err != nil {
		return err
	}
	return mapRepoNotFound(s.teamRepo.Delete(ctx, s.db, teamID), ErrTeamNotFound)
}

// AutoUpdateStatusesByDates advances event lifecycle statuses that are due:
// soon opens registration on the registration date, registration goes active
// on the start date, active completes the day after the end date. Canceled
// events are never touched.
func (s *eventService) AutoUpdateStatusesByDates(ctx context.Context) error {
	now := time.Now().UTC()

	events, err := s.eventRepo.List(ctx, s.db, repositories.EventFilter{})
	if err != nil {
		return fmt.Errorf("failed to list events for status rollover: %w", err)
	}

	for _, event := range events {
		var next models.EventStatus
		switch event.Status {
		case models.EventSoon:
			if !now.Before(event.RegDate) {
				next = models.EventRegistration
			}
		case models.EventRegistration:
			if !now.Before(event.StartDate) {
				next = models.EventActive
			}
		case models.EventActive:
			if now.After(event.EndDate.Add(24 * time.Hour)) {
				next = models.EventCompleted
			}
		}
		if next == "" {
			continue
		}

		if err := s.eventRepo.UpdateStatus(ctx, s.db, event.ID, next); err != nil {
			s.logger.Error("failed to roll over event status",
				slog.Int("event_id", event.ID),
				slog.String("from", string(event.Status)),
				slog.String("to", string(next)),
				slog.Any("error", err))
			continue
		}
		s.logger.Info("event status rolled over",
			slog.Int("event_id", event.ID),
			slog.String("from", string(event.Status)),
			slog.String("to", string(next)))
	}
	return nil
}

func (s *eventService) ownedDivision(ctx context.Context, eventID, divisionID int) (*models.Division, error) {
	division, err := s.divisionRepo.GetByID(ctx, s.db, divisionID)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrDivisionNotFound)
	}
	if division.EventID != eventID {
		return nil, ErrDivisionNotFound
	}
	return division, nil
}

func (s *eventService) ownedTeam(ctx context.Context, eventID, teamID int) (*models.Team, error) {
	team, err := s.teamRepo.GetByID(ctx, s.db, teamID)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrTeamNotFound)
	}
	if team.EventID != eventID {
		return nil, ErrTeamNotFound
	}
	return team, nil
}

func (s *eventService) decorate(_ context.Context, event *models.Event) (*models.Event, error) {
	event.PhotoURL = populatePhotoURL(event.PhotoKey, s.uploader)
	return event, nil
}

func parseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}

func validateEvent(e *models.Event) error {
	if e.RegDate.IsZero() || e.StartDate.IsZero() || e.EndDate.IsZero() {
		return ErrEventDatesRequired
	}
	if e.RegDate.After(e.StartDate) {
		return ErrEventInvalidRegDate
	}
	if !e.EndDate.After(e.StartDate) && !e.EndDate.Equal(e.StartDate) {
		return ErrEventInvalidDateRange
	}
	return nil
}

func intsToInt64s(xs []int) pq.Int64Array {
	out := make(pq.Int64Array, len(xs))
	for i, x := range xs {
		out[i] = int64(x)
	}
	return out
}
