package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrDivisionNotFound       = errors.New("division not found")
	ErrDivisionEventInvalid   = errors.New("division event conflict or invalid")
	ErrDivisionProfileInvalid = errors.New("division scoring profile conflict or invalid")
	ErrOverrideNotFound       = errors.New("standings override not found")
)

type DivisionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, division *models.Division) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Division, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Division, error)
	Update(ctx context.Context, exec SQLExecutor, division *models.Division) error
	SetConfirmed(ctx context.Context, exec SQLExecutor, id int, at *time.Time, by *int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error

	ListOverrides(ctx context.Context, exec SQLExecutor, divisionID int) ([]models.StandingsOverride, error)
	UpsertOverride(ctx context.Context, exec SQLExecutor, o models.StandingsOverride) error
	DeleteOverride(ctx context.Context, exec SQLExecutor, divisionID, teamID int) error
}

type postgresDivisionRepository struct{}

func NewPostgresDivisionRepository() DivisionRepository {
	return &postgresDivisionRepository{}
}

const divisionColumns = `
	id, event_id, name, profile_id, playoff_team_count, playoff_placement_division_ids,
	standings_confirmed_at, standings_confirmed_by`

func (r *postgresDivisionRepository) Create(ctx context.Context, exec SQLExecutor, division *models.Division) error {
	query := `
		INSERT INTO divisions
			(event_id, name, profile_id, playoff_team_count, playoff_placement_division_ids)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	err := exec.QueryRowxContext(ctx, query,
		division.EventID,
		division.Name,
		division.ProfileID,
		division.PlayoffTeamCount,
		division.PlayoffPlacementDivisionIDs,
	).Scan(&division.ID)
	return handleDivisionError(err)
}

func (r *postgresDivisionRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Division, error) {
	query := `SELECT ` + divisionColumns + ` FROM divisions WHERE id = $1`

	division := &models.Division{}
	if err := exec.GetContext(ctx, division, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDivisionNotFound
		}
		return nil, fmt.Errorf("failed to scan division %d: %w", id, err)
	}
	return division, nil
}

func (r *postgresDivisionRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]*models.Division, error) {
	query := `SELECT ` + divisionColumns + ` FROM divisions WHERE event_id = $1 ORDER BY id ASC`

	divisions := make([]*models.Division, 0)
	if err := exec.SelectContext(ctx, &divisions, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to query divisions for event %d: %w", eventID, err)
	}
	return divisions, nil
}

func (r *postgresDivisionRepository) Update(ctx context.Context, exec SQLExecutor, division *models.Division) error {
	query := `
		UPDATE divisions SET
			name = $2, profile_id = $3, playoff_team_count = $4, playoff_placement_division_ids = $5
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, query,
		division.ID,
		division.Name,
		division.ProfileID,
		division.PlayoffTeamCount,
		division.PlayoffPlacementDivisionIDs,
	)
	if err != nil {
		return handleDivisionError(err)
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}

// SetConfirmed freezes (or, with nils, clears) the confirmation stamp.
func (r *postgresDivisionRepository) SetConfirmed(ctx context.Context, exec SQLExecutor, id int, at *time.Time, by *int) error {
	query := `UPDATE divisions SET standings_confirmed_at = $2, standings_confirmed_by = $3 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, id, at, by)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}

func (r *postgresDivisionRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM divisions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrDivisionNotFound)
}

func (r *postgresDivisionRepository) ListOverrides(ctx context.Context, exec SQLExecutor, divisionID int) ([]models.StandingsOverride, error) {
	query := `
		SELECT division_id, team_id, points_delta
		FROM standings_overrides
		WHERE division_id = $1
		ORDER BY team_id ASC`

	overrides := make([]models.StandingsOverride, 0)
	if err := exec.SelectContext(ctx, &overrides, query, divisionID); err != nil {
		return nil, fmt.Errorf("failed to query overrides for division %d: %w", divisionID, err)
	}
	return overrides, nil
}

func (r *postgresDivisionRepository) UpsertOverride(ctx context.Context, exec SQLExecutor, o models.StandingsOverride) error {
	query := `
		INSERT INTO standings_overrides (division_id, team_id, points_delta)
		VALUES ($1, $2, $3)
		ON CONFLICT (division_id, team_id) DO UPDATE SET points_delta = EXCLUDED.points_delta`

	_, err := exec.ExecContext(ctx, query, o.DivisionID, o.TeamID, o.PointsDelta)
	return handleDivisionError(err)
}

func (r *postgresDivisionRepository) DeleteOverride(ctx context.Context, exec SQLExecutor, divisionID, teamID int) error {
	query := `DELETE FROM standings_overrides WHERE division_id = $1 AND team_id = $2`
	result, err := exec.ExecContext(ctx, query, divisionID, teamID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrOverrideNotFound)
}

func handleDivisionError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "divisions_event_id_fkey":
			return ErrDivisionEventInvalid
		case "divisions_profile_id_fkey":
			return ErrDivisionProfileInvalid
		case "standings_overrides_division_id_fkey":
			return ErrDivisionNotFound
		}
	}
	return err
}
