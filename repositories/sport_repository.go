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
	ErrSportNotFound     = errors.New("sport not found")
	ErrSportNameConflict = errors.New("sport name already exists")
)

type SportRepository interface {
	Create(ctx context.Context, exec SQLExecutor, sport *models.Sport) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Sport, error)
	List(ctx context.Context, exec SQLExecutor) ([]models.Sport, error)
	Update(ctx context.Context, exec SQLExecutor, sport *models.Sport) error
	UpdatePhotoKey(ctx context.Context, exec SQLExecutor, id int, key *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresSportRepository struct{}

func NewPostgresSportRepository() SportRepository {
	return &postgresSportRepository{}
}

func (r *postgresSportRepository) Create(ctx context.Context, exec SQLExecutor, sport *models.Sport) error {
	err := exec.QueryRowxContext(ctx,
		`INSERT INTO sports (name) VALUES ($1) RETURNING id`, sport.Name,
	).Scan(&sport.ID)
	return handleSportError(err)
}

func (r *postgresSportRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Sport, error) {
	sport := &models.Sport{}
	err := exec.GetContext(ctx, sport, `SELECT id, name, photo_key FROM sports WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSportNotFound
		}
		return nil, fmt.Errorf("failed to scan sport %d: %w", id, err)
	}
	return sport, nil
}

func (r *postgresSportRepository) List(ctx context.Context, exec SQLExecutor) ([]models.Sport, error) {
	sports := make([]models.Sport, 0)
	if err := exec.SelectContext(ctx, &sports, `SELECT id, name, photo_key FROM sports ORDER BY name ASC`); err != nil {
		return nil, fmt.Errorf("failed to query sports: %w", err)
	}
	return sports, nil
}

func (r *postgresSportRepository) Update(ctx context.Context, exec SQLExecutor, sport *models.Sport) error {
	result, err := exec.ExecContext(ctx, `UPDATE sports SET name = $2 WHERE id = $1`, sport.ID, sport.Name)
	if err != nil {
		return handleSportError(err)
	}
	return checkAffectedRows(result, ErrSportNotFound)
}

func (r *postgresSportRepository) UpdatePhotoKey(ctx context.Context, exec SQLExecutor, id int, key *string) error {
	result, err := exec.ExecContext(ctx, `UPDATE sports SET photo_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSportNotFound)
}

func (r *postgresSportRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM sports WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrSportNotFound)
}

func handleSportError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "sports_name_key" {
		return ErrSportNameConflict
	}
	return err
}
