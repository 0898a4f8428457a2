package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrMatchNotFound     = errors.New("match not found")
	ErrMatchEventInvalid = errors.New("match event conflict or invalid")
	ErrMatchTeamInvalid  = errors.New("match team conflict or invalid")
	ErrMatchFieldInvalid = errors.New("match field conflict or invalid")
	ErrMatchIDConflict   = errors.New("match id already exists")
)

type MatchFilter struct {
	DivisionID *int
	Status     *models.MatchStatus
}

type MatchRepository interface {
	Create(ctx context.Context, exec SQLExecutor, match *models.Match) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error)
	ListByEvent(ctx context.Context, exec SQLExecutor, eventID int, filter MatchFilter) ([]*models.Match, error)
	ListScheduledByField(ctx context.Context, exec SQLExecutor, fieldID int, from, to time.Time) ([]*models.Match, error)
	Update(ctx context.Context, exec SQLExecutor, match *models.Match) error
	UpdateLinks(ctx context.Context, exec SQLExecutor, match *models.Match) error
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresMatchRepository struct{}

func NewPostgresMatchRepository() MatchRepository {
	return &postgresMatchRepository{}
}

const matchColumns = `
	id, event_id, match_id, division_id, team1_id, team2_id, team1_seed, team2_seed,
	team1_points, team2_points, set_results, locked, side, losers_bracket,
	winner_next_match_id, loser_next_match_id, previous_left_id, previous_right_id,
	field_id, start_at, end_at, referee_id, team_referee_id, referee_checked_in`

func (r *postgresMatchRepository) Create(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		INSERT INTO matches
			(id, event_id, match_id, division_id, team1_id, team2_id, team1_seed, team2_seed,
			 team1_points, team2_points, set_results, locked, side, losers_bracket,
			 field_id, start_at, end_at, referee_id, team_referee_id, referee_checked_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err := exec.ExecContext(ctx, query,
		match.ID,
		match.EventID,
		match.MatchID,
		match.DivisionID,
		match.Team1ID,
		match.Team2ID,
		match.Team1Seed,
		match.Team2Seed,
		match.Team1Points,
		match.Team2Points,
		match.SetResults,
		match.Locked,
		match.Side,
		match.LosersBracket,
		match.FieldID,
		match.Start,
		match.End,
		match.RefereeID,
		match.TeamRefereeID,
		match.RefereeCheckedIn,
	)
	return handleMatchError(err)
}

func (r *postgresMatchRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM matches WHERE id = $1`

	match := &models.Match{}
	err := exec.GetContext(ctx, match, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to scan match %s: %w", id, err)
	}
	return match, nil
}

func (r *postgresMatchRepository) ListByEvent(ctx context.Context, exec SQLExecutor, eventID int, filter MatchFilter) ([]*models.Match, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + matchColumns + ` FROM matches WHERE event_id = $1`)

	args := []interface{}{eventID}
	if filter.DivisionID != nil {
		args = append(args, *filter.DivisionID)
		queryBuilder.WriteString(" AND division_id = $" + strconv.Itoa(len(args)))
	}
	queryBuilder.WriteString(" ORDER BY match_id ASC, id ASC")

	matches := make([]*models.Match, 0)
	if err := exec.SelectContext(ctx, &matches, queryBuilder.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to query matches for event %d: %w", eventID, err)
	}

	// Status is derived, so a status filter runs after the scan.
	if filter.Status != nil {
		filtered := matches[:0]
		for _, m := range matches {
			if m.Status() == *filter.Status {
				filtered = append(filtered, m)
			}
		}
		matches = filtered
	}
	return matches, nil
}

func (r *postgresMatchRepository) ListScheduledByField(ctx context.Context, exec SQLExecutor, fieldID int, from, to time.Time) ([]*models.Match, error) {
	query := `SELECT ` + matchColumns + `
		FROM matches
		WHERE field_id = $1 AND start_at IS NOT NULL AND end_at IS NOT NULL
		  AND start_at < $3 AND end_at > $2
		ORDER BY start_at ASC`

	matches := make([]*models.Match, 0)
	if err := exec.SelectContext(ctx, &matches, query, fieldID, from, to); err != nil {
		return nil, fmt.Errorf("failed to query scheduled matches for field %d: %w", fieldID, err)
	}
	return matches, nil
}

func (r *postgresMatchRepository) Update(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches SET
			match_id = $2, division_id = $3, team1_id = $4, team2_id = $5,
			team1_seed = $6, team2_seed = $7, team1_points = $8, team2_points = $9,
			set_results = $10, locked = $11, side = $12, losers_bracket = $13,
			field_id = $14, start_at = $15, end_at = $16,
			referee_id = $17, team_referee_id = $18, referee_checked_in = $19
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, query,
		match.ID,
		match.MatchID,
		match.DivisionID,
		match.Team1ID,
		match.Team2ID,
		match.Team1Seed,
		match.Team2Seed,
		match.Team1Points,
		match.Team2Points,
		match.SetResults,
		match.Locked,
		match.Side,
		match.LosersBracket,
		match.FieldID,
		match.Start,
		match.End,
		match.RefereeID,
		match.TeamRefereeID,
		match.RefereeCheckedIn,
	)
	if err != nil {
		return handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

// UpdateLinks writes only the graph edges. Creation persists matches first
// and links second, so a link never references a row that does not exist yet.
func (r *postgresMatchRepository) UpdateLinks(ctx context.Context, exec SQLExecutor, match *models.Match) error {
	query := `
		UPDATE matches SET
			winner_next_match_id = $2, loser_next_match_id = $3,
			previous_left_id = $4, previous_right_id = $5
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, query,
		match.ID,
		match.WinnerNextMatchID,
		match.LoserNextMatchID,
		match.PreviousLeftID,
		match.PreviousRightID,
	)
	if err != nil {
		return handleMatchError(err)
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func (r *postgresMatchRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM matches WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrMatchNotFound)
}

func handleMatchError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "matches_event_id_fkey":
			return ErrMatchEventInvalid
		case "matches_team1_id_fkey", "matches_team2_id_fkey":
			return ErrMatchTeamInvalid
		case "matches_field_id_fkey":
			return ErrMatchFieldInvalid
		case "matches_pkey":
			return ErrMatchIDConflict
		}
	}
	return err
}
