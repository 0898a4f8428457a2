package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrProfileNotFound     = errors.New("scoring profile not found")
	ErrProfileNameConflict = errors.New("scoring profile name already exists for this sport")
	ErrProfileSportInvalid = errors.New("scoring profile sport conflict or invalid")
)

type ProfileRepository interface {
	Create(ctx context.Context, exec SQLExecutor, profile *models.ScoringProfile) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ScoringProfile, error)
	ListBySport(ctx context.Context, exec SQLExecutor, sportID int) ([]*models.ScoringProfile, error)
	Update(ctx context.Context, exec SQLExecutor, profile *models.ScoringProfile) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresProfileRepository struct{}

func NewPostgresProfileRepository() ProfileRepository {
	return &postgresProfileRepository{}
}

func (r *postgresProfileRepository) Create(ctx context.Context, exec SQLExecutor, profile *models.ScoringProfile) error {
	if err := profile.EncodeRules(); err != nil {
		return fmt.Errorf("failed to encode scoring rules: %w", err)
	}
	query := `
		INSERT INTO scoring_profiles (sport_id, name, rules_json)
		VALUES ($1, $2, $3)
		RETURNING id`

	err := exec.QueryRowxContext(ctx, query, profile.SportID, profile.Name, profile.RulesJSON).Scan(&profile.ID)
	return handleProfileError(err)
}

func (r *postgresProfileRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.ScoringProfile, error) {
	query := `SELECT id, sport_id, name, rules_json FROM scoring_profiles WHERE id = $1`

	profile := &models.ScoringProfile{}
	if err := exec.GetContext(ctx, profile, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to scan scoring profile %d: %w", id, err)
	}
	if err := profile.DecodeRules(); err != nil {
		return nil, fmt.Errorf("failed to decode scoring profile %d rules: %w", id, err)
	}
	return profile, nil
}

func (r *postgresProfileRepository) ListBySport(ctx context.Context, exec SQLExecutor, sportID int) ([]*models.ScoringProfile, error) {
	query := `SELECT id, sport_id, name, rules_json FROM scoring_profiles WHERE sport_id = $1 ORDER BY name ASC`

	profiles := make([]*models.ScoringProfile, 0)
	if err := exec.SelectContext(ctx, &profiles, query, sportID); err != nil {
		return nil, fmt.Errorf("failed to query scoring profiles for sport %d: %w", sportID, err)
	}
	for _, p := range profiles {
		if err := p.DecodeRules(); err != nil {
			return nil, fmt.Errorf("failed to decode scoring profile %d rules: %w", p.ID, err)
		}
	}
	return profiles, nil
}

func (r *postgresProfileRepository) Update(ctx context.Context, exec SQLExecutor, profile *models.ScoringProfile) error {
	if err := profile.EncodeRules(); err != nil {
		return fmt.Errorf("failed to encode scoring rules: %w", err)
	}
	query := `UPDATE scoring_profiles SET name = $2, rules_json = $3 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, profile.ID, profile.Name, profile.RulesJSON)
	if err != nil {
		return handleProfileError(err)
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func (r *postgresProfileRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM scoring_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrProfileNotFound)
}

func handleProfileError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "scoring_profiles_sport_id_name_key":
			return ErrProfileNameConflict
		case "scoring_profiles_sport_id_fkey":
			return ErrProfileSportInvalid
		}
	}
	return err
}
