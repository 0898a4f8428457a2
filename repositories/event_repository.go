package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"

	"github.com/matchgrid/matchgrid/models"
)

var (
	ErrEventNotFound     = errors.New("event not found")
	ErrEventNameConflict = errors.New("event name already exists")
	ErrEventSportInvalid = errors.New("event sport conflict or invalid")
)

type EventFilter struct {
	SportID *int
	Status  *models.EventStatus
	Kind    *models.EventKind
}

type EventRepository interface {
	Create(ctx context.Context, exec SQLExecutor, event *models.Event) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error)
	List(ctx context.Context, exec SQLExecutor, filter EventFilter) ([]*models.Event, error)
	Update(ctx context.Context, exec SQLExecutor, event *models.Event) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error
	UpdatePhotoKey(ctx context.Context, exec SQLExecutor, id int, key *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresEventRepository struct{}

func NewPostgresEventRepository() EventRepository {
	return &postgresEventRepository{}
}

const eventColumns = `
	id, name, description, sport_id, organizer_id, kind, status,
	reg_date, start_date, end_date, created_at, photo_key, details_json`

func (r *postgresEventRepository) Create(ctx context.Context, exec SQLExecutor, event *models.Event) error {
	if err := event.EncodeDetails(); err != nil {
		return fmt.Errorf("failed to encode event details: %w", err)
	}
	query := `
		INSERT INTO events
			(name, description, sport_id, organizer_id, kind, status, reg_date, start_date, end_date, details_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`

	err := exec.QueryRowxContext(ctx, query,
		event.Name,
		event.Description,
		event.SportID,
		event.OrganizerID,
		event.Kind,
		event.Status,
		event.RegDate,
		event.StartDate,
		event.EndDate,
		event.DetailsJSON,
	).Scan(&event.ID, &event.CreatedAt)
	return handleEventError(err)
}

func (r *postgresEventRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`

	event := &models.Event{}
	if err := exec.GetContext(ctx, event, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to scan event %d: %w", id, err)
	}
	if err := event.DecodeDetails(); err != nil {
		return nil, fmt.Errorf("failed to decode event %d details: %w", id, err)
	}
	return event, nil
}

func (r *postgresEventRepository) List(ctx context.Context, exec SQLExecutor, filter EventFilter) ([]*models.Event, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`SELECT ` + eventColumns + ` FROM events WHERE 1=1`)

	var args []interface{}
	if filter.SportID != nil {
		args = append(args, *filter.SportID)
		queryBuilder.WriteString(" AND sport_id = $" + strconv.Itoa(len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		queryBuilder.WriteString(" AND status = $" + strconv.Itoa(len(args)))
	}
	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		queryBuilder.WriteString(" AND kind = $" + strconv.Itoa(len(args)))
	}
	queryBuilder.WriteString(" ORDER BY start_date ASC, id ASC")

	events := make([]*models.Event, 0)
	if err := exec.SelectContext(ctx, &events, queryBuilder.String(), args...); err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	for _, e := range events {
		if err := e.DecodeDetails(); err != nil {
			return nil, fmt.Errorf("failed to decode event %d details: %w", e.ID, err)
		}
	}
	return events, nil
}

func (r *postgresEventRepository) Update(ctx context.Context, exec SQLExecutor, event *models.Event) error {
	if err := event.EncodeDetails(); err != nil {
		return fmt.Errorf("failed to encode event details: %w", err)
	}
	query := `
		UPDATE events SET
			name = $2, description = $3, sport_id = $4, kind = $5, status = $6,
			reg_date = $7, start_date = $8, end_date = $9, details_json = $10
		WHERE id = $1`

	result, err := exec.ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.SportID,
		event.Kind,
		event.Status,
		event.RegDate,
		event.StartDate,
		event.EndDate,
		event.DetailsJSON,
	)
	if err != nil {
		return handleEventError(err)
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.EventStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE events SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) UpdatePhotoKey(ctx context.Context, exec SQLExecutor, id int, key *string) error {
	result, err := exec.ExecContext(ctx, `UPDATE events SET photo_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func (r *postgresEventRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrEventNotFound)
}

func handleEventError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "events_name_key":
			return ErrEventNameConflict
		case "events_sport_id_fkey":
			return ErrEventSportInvalid
		}
	}
	return err
}
