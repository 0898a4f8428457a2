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
	ErrFieldNotFound    = errors.New("field not found")
	ErrTimeSlotNotFound = errors.New("time slot not found")
	ErrTimeSlotInvalid  = errors.New("time slot field conflict or invalid")
)

type FieldRepository interface {
	Create(ctx context.Context, exec SQLExecutor, field *models.Field) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Field, error)
	ListByOrganization(ctx context.Context, exec SQLExecutor, organizationID int) ([]*models.Field, error)
	Update(ctx context.Context, exec SQLExecutor, field *models.Field) error
	UpdatePhotoKey(ctx context.Context, exec SQLExecutor, id int, key *string) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error

	CreateTimeSlot(ctx context.Context, exec SQLExecutor, slot *models.TimeSlot) error
	ListTimeSlots(ctx context.Context, exec SQLExecutor, fieldID int) ([]models.TimeSlot, error)
	ListTimeSlotsOnDate(ctx context.Context, exec SQLExecutor, fieldID int, date time.Time) ([]models.TimeSlot, error)
	DeleteTimeSlot(ctx context.Context, exec SQLExecutor, id int) error
}

type postgresFieldRepository struct{}

func NewPostgresFieldRepository() FieldRepository {
	return &postgresFieldRepository{}
}

func (r *postgresFieldRepository) Create(ctx context.Context, exec SQLExecutor, field *models.Field) error {
	query := `
		INSERT INTO fields (organization_id, number, name)
		VALUES ($1, $2, $3)
		RETURNING id`
	return exec.QueryRowxContext(ctx, query, field.OrganizationID, field.Number, field.Name).Scan(&field.ID)
}

func (r *postgresFieldRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Field, error) {
	field := &models.Field{}
	err := exec.GetContext(ctx, field,
		`SELECT id, organization_id, number, name, photo_key FROM fields WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrFieldNotFound
		}
		return nil, fmt.Errorf("failed to scan field %d: %w", id, err)
	}
	return field, nil
}

func (r *postgresFieldRepository) ListByOrganization(ctx context.Context, exec SQLExecutor, organizationID int) ([]*models.Field, error) {
	query := `SELECT id, organization_id, number, name, photo_key FROM fields WHERE organization_id = $1 ORDER BY number ASC`

	fields := make([]*models.Field, 0)
	if err := exec.SelectContext(ctx, &fields, query, organizationID); err != nil {
		return nil, fmt.Errorf("failed to query fields for organization %d: %w", organizationID, err)
	}
	return fields, nil
}

func (r *postgresFieldRepository) Update(ctx context.Context, exec SQLExecutor, field *models.Field) error {
	query := `UPDATE fields SET number = $2, name = $3 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, field.ID, field.Number, field.Name)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFieldNotFound)
}

func (r *postgresFieldRepository) UpdatePhotoKey(ctx context.Context, exec SQLExecutor, id int, key *string) error {
	result, err := exec.ExecContext(ctx, `UPDATE fields SET photo_key = $2 WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFieldNotFound)
}

func (r *postgresFieldRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM fields WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrFieldNotFound)
}

func (r *postgresFieldRepository) CreateTimeSlot(ctx context.Context, exec SQLExecutor, slot *models.TimeSlot) error {
	query := `
		INSERT INTO time_slots (field_id, weekday, date, until, start_min, end_min, price_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	err := exec.QueryRowxContext(ctx, query,
		slot.FieldID,
		slot.Weekday,
		slot.Date,
		slot.Until,
		slot.StartMin,
		slot.EndMin,
		slot.PriceCents,
	).Scan(&slot.ID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Constraint == "time_slots_field_id_fkey" {
			return ErrTimeSlotInvalid
		}
		return err
	}
	return nil
}

func (r *postgresFieldRepository) ListTimeSlots(ctx context.Context, exec SQLExecutor, fieldID int) ([]models.TimeSlot, error) {
	query := `
		SELECT id, field_id, weekday, date, until, start_min, end_min, price_cents
		FROM time_slots
		WHERE field_id = $1
		ORDER BY start_min ASC, id ASC`

	slots := make([]models.TimeSlot, 0)
	if err := exec.SelectContext(ctx, &slots, query, fieldID); err != nil {
		return nil, fmt.Errorf("failed to query time slots for field %d: %w", fieldID, err)
	}
	return slots, nil
}

// ListTimeSlotsOnDate narrows to slots that can apply on the given calendar
// date: matching weekday repeats still within their bound, or the exact date.
func (r *postgresFieldRepository) ListTimeSlotsOnDate(ctx context.Context, exec SQLExecutor, fieldID int, date time.Time) ([]models.TimeSlot, error) {
	day := date.Truncate(24 * time.Hour)
	query := `
		SELECT id, field_id, weekday, date, until, start_min, end_min, price_cents
		FROM time_slots
		WHERE field_id = $1
		  AND ((weekday = $2 AND (until IS NULL OR until >= $3)) OR date = $3)
		ORDER BY start_min ASC, id ASC`

	slots := make([]models.TimeSlot, 0)
	if err := exec.SelectContext(ctx, &slots, query, fieldID, int(day.Weekday()), day); err != nil {
		return nil, fmt.Errorf("failed to query time slots for field %d on %s: %w",
			fieldID, day.Format("2006-01-02"), err)
	}
	return slots, nil
}

func (r *postgresFieldRepository) DeleteTimeSlot(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM time_slots WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrTimeSlotNotFound)
}
