package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/storage"
)

type ProfileRequest struct {
	Name  string              `json:"name" validate:"required,min=1,max=80"`
	Rules models.ProfileRules `json:"rules" validate:"required"`
}

type SportService interface {
	Create(ctx context.Context, name string) (*models.Sport, error)
	GetByID(ctx context.Context, id int) (*models.Sport, error)
	List(ctx context.Context) ([]models.Sport, error)
	Update(ctx context.Context, id int, name string) (*models.Sport, error)
	UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Sport, error)
	Delete(ctx context.Context, id int) error

	CreateProfile(ctx context.Context, sportID int, req ProfileRequest) (*models.ScoringProfile, error)
	GetProfile(ctx context.Context, id int) (*models.ScoringProfile, error)
	ListProfiles(ctx context.Context, sportID int) ([]*models.ScoringProfile, error)
	UpdateProfile(ctx context.Context, id int, req ProfileRequest) (*models.ScoringProfile, error)
	DeleteProfile(ctx context.Context, id int) error
}

type sportService struct {
	db          *sqlx.DB
	sportRepo   repositories.SportRepository
	profileRepo repositories.ProfileRepository
	uploader    storage.FileUploader
	logger      *slog.Logger
}

func NewSportService(
	db *sqlx.DB,
	sportRepo repositories.SportRepository,
	profileRepo repositories.ProfileRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) SportService {
	return &sportService{
		db:          db,
		sportRepo:   sportRepo,
		profileRepo: profileRepo,
		uploader:    uploader,
		logger:      logger,
	}
}

func (s *sportService) Create(ctx context.Context, name string) (*models.Sport, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: sport name is required", ErrValidationFailed)
	}
	sport := &models.Sport{Name: name}
	if err := s.sportRepo.Create(ctx, s.db, sport); err != nil {
		return nil, err
	}
	return sport, nil
}

func (s *sportService) GetByID(ctx context.Context, id int) (*models.Sport, error) {
	sport, err := s.sportRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}
	sport.PhotoURL = populatePhotoURL(sport.PhotoKey, s.uploader)
	return sport, nil
}

func (s *sportService) List(ctx context.Context) ([]models.Sport, error) {
	sports, err := s.sportRepo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	for i := range sports {
		sports[i].PhotoURL = populatePhotoURL(sports[i].PhotoKey, s.uploader)
	}
	return sports, nil
}

func (s *sportService) Update(ctx context.Context, id int, name string) (*models.Sport, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: sport name is required", ErrValidationFailed)
	}
	sport, err := s.sportRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}
	sport.Name = name
	if err := s.sportRepo.Update(ctx, s.db, sport); err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}
	return sport, nil
}

func (s *sportService) UploadPhoto(ctx context.Context, id int, contentType string, body io.Reader) (*models.Sport, error) {
	sport, err := s.sportRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}
	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
	}

	key := fmt.Sprintf("sports/%d/%s%s", id, uuid.NewString(), ext)
	if _, err := s.uploader.Upload(ctx, key, contentType, body); err != nil {
		return nil, err
	}
	if sport.PhotoKey != nil && *sport.PhotoKey != "" {
		if err := s.uploader.Delete(ctx, *sport.PhotoKey); err != nil {
			s.logger.Warn("failed to delete previous sport photo",
				slog.Int("sport_id", id), slog.String("key", *sport.PhotoKey))
		}
	}
	if err := s.sportRepo.UpdatePhotoKey(ctx, s.db, id, &key); err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}
	sport.PhotoKey = &key
	sport.PhotoURL = populatePhotoURL(sport.PhotoKey, s.uploader)
	return sport, nil
}

func (s *sportService) Delete(ctx context.Context, id int) error {
	return mapRepoNotFound(s.sportRepo.Delete(ctx, s.db, id), ErrSportNotFound)
}

func (s *sportService) CreateProfile(ctx context.Context, sportID int, req ProfileRequest) (*models.ScoringProfile, error) {
	if _, err := s.sportRepo.GetByID(ctx, s.db, sportID); err != nil {
		return nil, mapRepoNotFound(err, ErrSportNotFound)
	}
	if err := validateRules(req.Rules); err != nil {
		return nil, err
	}

	profile := &models.ScoringProfile{
		SportID: sportID,
		Name:    req.Name,
		Rules:   req.Rules,
	}
	if err := s.profileRepo.Create(ctx, s.db, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *sportService) GetProfile(ctx context.Context, id int) (*models.ScoringProfile, error) {
	profile, err := s.profileRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrProfileNotFound)
	}
	return profile, nil
}

func (s *sportService) ListProfiles(ctx context.Context, sportID int) ([]*models.ScoringProfile, error) {
	return s.profileRepo.ListBySport(ctx, s.db, sportID)
}

func (s *sportService) UpdateProfile(ctx context.Context, id int, req ProfileRequest) (*models.ScoringProfile, error) {
	profile, err := s.profileRepo.GetByID(ctx, s.db, id)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrProfileNotFound)
	}
	if err := validateRules(req.Rules); err != nil {
		return nil, err
	}

	profile.Name = req.Name
	profile.Rules = req.Rules
	if err := s.profileRepo.Update(ctx, s.db, profile); err != nil {
		return nil, mapRepoNotFound(err, ErrProfileNotFound)
	}
	return profile, nil
}

func (s *sportService) DeleteProfile(ctx context.Context, id int) error {
	return mapRepoNotFound(s.profileRepo.Delete(ctx, s.db, id), ErrProfileNotFound)
}

// validateRules rejects rule bundles that cannot decide matches. Tiebreaker
// dependency checks live in the standings engine; this only guards shape.
func validateRules(rules models.ProfileRules) error {
	switch rules.WinCondition {
	case models.WinBySets:
		if rules.WinnerSetCount < 1 {
			return fmt.Errorf("%w: winner_set_count must be at least 1", ErrValidationFailed)
		}
		if rules.PointsToVictory < 1 {
			return fmt.Errorf("%w: points_to_victory must be at least 1", ErrValidationFailed)
		}
	case models.WinByTotal:
	default:
		return fmt.Errorf("%w: unknown win condition %q", ErrValidationFailed, rules.WinCondition)
	}
	if rules.ScoreCap < 0 {
		return fmt.Errorf("%w: score_cap cannot be negative", ErrValidationFailed)
	}
	if c := rules.Clamp; c != nil && c.MinPerMatch != nil && c.MaxPerMatch != nil && *c.MinPerMatch > *c.MaxPerMatch {
		return fmt.Errorf("%w: clamp min exceeds max", ErrValidationFailed)
	}
	return nil
}
