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
	ErrTeamNotFound        = errors.New("team not found")
	ErrTeamNameConflict    = errors.New("team name already exists in this event")
	ErrTeamEventInvalid    = errors.New("team event conflict or invalid")
	ErrTeamDivisionInvalid = errors.New("team division conflict or invalid")
)

type TeamRepository interface {
	Create(ctx context.Context, exec SQLExecutor, team *models.Team) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]models.Team, error)
	ListByDivision(ctx context.Context, exec SQLExecutor, divisionID int) ([]models.Team, error)
	Update(ctx context.Context, exec SQLExecutor, team *models.Team) error
	UpdatePlacement(ctx context.Context, exec SQLExecutor, teamID int, divisionID *int, seed *int) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresTeamRepository struct{}

func NewPostgresTeamRepository() TeamRepository {
	return &postgresTeamRepository{}
}

const teamColumns = `id, event_id, division_id, name, seed`

func (r *postgresTeamRepository) Create(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `
		INSERT INTO teams (event_id, division_id, name, seed)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	err := exec.QueryRowxContext(ctx, query,
		team.EventID,
		team.DivisionID,
		team.Name,
		team.Seed,
	).Scan(&team.ID)
	return handleTeamError(err)
}

func (r *postgresTeamRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Team, error) {
	team := &models.Team{}
	err := exec.GetContext(ctx, team, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTeamNotFound
		}
		return nil, fmt.Errorf("failed to scan team %d: %w", id, err)
	}
	return team, nil
}

func (r *postgresTeamRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int) ([]models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE event_id = $1 ORDER BY id ASC`

	teams := make([]models.Team, 0)
	if err := exec.SelectContext(ctx, &teams, query, eventID); err != nil {
		return nil, fmt.Errorf("failed to query teams for event %d: %w", eventID, err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) ListByDivision(ctx context.Context, exec SQLExecutor, divisionID int) ([]models.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams WHERE division_id = $1 ORDER BY seed ASC NULLS LAST, id ASC`

	teams := make([]models.Team, 0)
	if err := exec.SelectContext(ctx, &teams, query, divisionID); err != nil {
		return nil, fmt.Errorf("failed to query teams for division %d: %w", divisionID, err)
	}
	return teams, nil
}

func (r *postgresTeamRepository) Update(ctx context.Context, exec SQLExecutor, team *models.Team) error {
	query := `UPDATE teams SET division_id = $2, name = $3, seed = $4 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, team.ID, team.DivisionID, team.Name, team.Seed)
	if err != nil {
		return handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

// UpdatePlacement moves a team into a playoff division with its seed. Used by
// confirmed-standings reassignment.
func (r *postgresTeamRepository) UpdatePlacement(ctx context.Context, exec SQLExecutor, teamID int, divisionID *int, seed *int) error {
	query := `UPDATE teams SET division_id = $2, seed = $3 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, teamID, divisionID, seed)
	if err != nil {
		return handleTeamError(err)
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func (r *postgresTeamRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTeamNotFound)
}

func handleTeamError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "teams_event_id_name_key":
			return ErrTeamNameConflict
		case "teams_event_id_fkey":
			return ErrTeamEventInvalid
		case "teams_division_id_fkey":
			return ErrTeamDivisionInvalid
		}
	}
	return err
}
