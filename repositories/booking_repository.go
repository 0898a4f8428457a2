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
	ErrCandidateNotFound   = errors.New("booking candidate not found")
	ErrCandidateIDConflict = errors.New("booking candidate id already held")
	ErrRentalNotFound      = errors.New("rental not found")
	ErrBookingFieldInvalid = errors.New("booking field conflict or invalid")
)

type BookingRepository interface {
	CreateCandidate(ctx context.Context, exec SQLExecutor, c *models.BookingCandidate) error
	GetCandidate(ctx context.Context, exec SQLExecutor, id string) (*models.BookingCandidate, error)
	ListCandidatesByField(ctx context.Context, exec SQLExecutor, fieldID int, date time.Time) ([]models.BookingCandidate, error)
	UpdateCandidate(ctx context.Context, exec SQLExecutor, c *models.BookingCandidate) error
	DeleteCandidate(ctx context.Context, exec SQLExecutor, id string) error

	CreateRental(ctx context.Context, exec SQLExecutor, rental *models.Rental) error
	GetRental(ctx context.Context, exec SQLExecutor, id string) (*models.Rental, error)
	ListRentalsByFieldBetween(ctx context.Context, exec SQLExecutor, fieldID int, from, to time.Time) ([]models.Rental, error)
	ListRentalsByUser(ctx context.Context, exec SQLExecutor, userID int) ([]models.Rental, error)
	UpdateRentalStatus(ctx context.Context, exec SQLExecutor, id string, status models.RentalStatus) error
}

type postgresBookingRepository struct{}

func NewPostgresBookingRepository() BookingRepository {
	return &postgresBookingRepository{}
}

const candidateColumns = `id, user_id, field_id, date, start_min, end_min, created_at`

func (r *postgresBookingRepository) CreateCandidate(ctx context.Context, exec SQLExecutor, c *models.BookingCandidate) error {
	query := `
		INSERT INTO booking_candidates (id, user_id, field_id, date, start_min, end_min)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := exec.QueryRowxContext(ctx, query,
		c.ID, c.UserID, c.FieldID, c.Date, c.StartMin, c.EndMin,
	).Scan(&c.CreatedAt)
	return handleBookingError(err)
}

func (r *postgresBookingRepository) GetCandidate(ctx context.Context, exec SQLExecutor, id string) (*models.BookingCandidate, error) {
	c := &models.BookingCandidate{}
	err := exec.GetContext(ctx, c, `SELECT `+candidateColumns+` FROM booking_candidates WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCandidateNotFound
		}
		return nil, fmt.Errorf("failed to scan booking candidate %s: %w", id, err)
	}
	return c, nil
}

func (r *postgresBookingRepository) ListCandidatesByField(ctx context.Context, exec SQLExecutor, fieldID int, date time.Time) ([]models.BookingCandidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM booking_candidates WHERE field_id = $1 AND date = $2 ORDER BY start_min ASC`

	candidates := make([]models.BookingCandidate, 0)
	if err := exec.SelectContext(ctx, &candidates, query, fieldID, date.Truncate(24*time.Hour)); err != nil {
		return nil, fmt.Errorf("failed to query booking candidates for field %d: %w", fieldID, err)
	}
	return candidates, nil
}

func (r *postgresBookingRepository) UpdateCandidate(ctx context.Context, exec SQLExecutor, c *models.BookingCandidate) error {
	query := `UPDATE booking_candidates SET field_id = $2, date = $3, start_min = $4, end_min = $5 WHERE id = $1`
	result, err := exec.ExecContext(ctx, query, c.ID, c.FieldID, c.Date, c.StartMin, c.EndMin)
	if err != nil {
		return handleBookingError(err)
	}
	return checkAffectedRows(result, ErrCandidateNotFound)
}

func (r *postgresBookingRepository) DeleteCandidate(ctx context.Context, exec SQLExecutor, id string) error {
	result, err := exec.ExecContext(ctx, `DELETE FROM booking_candidates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrCandidateNotFound)
}

const rentalColumns = `id, user_id, field_id, date, start_min, end_min, price_cents, status, created_at`

func (r *postgresBookingRepository) CreateRental(ctx context.Context, exec SQLExecutor, rental *models.Rental) error {
	query := `
		INSERT INTO rentals (id, user_id, field_id, date, start_min, end_min, price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := exec.QueryRowxContext(ctx, query,
		rental.ID,
		rental.UserID,
		rental.FieldID,
		rental.Date,
		rental.StartMin,
		rental.EndMin,
		rental.PriceCents,
		rental.Status,
	).Scan(&rental.CreatedAt)
	return handleBookingError(err)
}

func (r *postgresBookingRepository) GetRental(ctx context.Context, exec SQLExecutor, id string) (*models.Rental, error) {
	rental := &models.Rental{}
	err := exec.GetContext(ctx, rental, `SELECT `+rentalColumns+` FROM rentals WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRentalNotFound
		}
		return nil, fmt.Errorf("failed to scan rental %s: %w", id, err)
	}
	return rental, nil
}

func (r *postgresBookingRepository) ListRentalsByFieldBetween(ctx context.Context, exec SQLExecutor, fieldID int, from, to time.Time) ([]models.Rental, error) {
	query := `
		SELECT ` + rentalColumns + `
		FROM rentals
		WHERE field_id = $1 AND status = $2 AND date >= $3 AND date < $4
		ORDER BY date ASC, start_min ASC`

	rentals := make([]models.Rental, 0)
	err := exec.SelectContext(ctx, &rentals, query,
		fieldID, models.RentalConfirmed, from.Truncate(24*time.Hour), to.Truncate(24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to query rentals for field %d: %w", fieldID, err)
	}
	return rentals, nil
}

func (r *postgresBookingRepository) ListRentalsByUser(ctx context.Context, exec SQLExecutor, userID int) ([]models.Rental, error) {
	query := `SELECT ` + rentalColumns + ` FROM rentals WHERE user_id = $1 ORDER BY date DESC, start_min ASC`

	rentals := make([]models.Rental, 0)
	if err := exec.SelectContext(ctx, &rentals, query, userID); err != nil {
		return nil, fmt.Errorf("failed to query rentals for user %d: %w", userID, err)
	}
	return rentals, nil
}

func (r *postgresBookingRepository) UpdateRentalStatus(ctx context.Context, exec SQLExecutor, id string, status models.RentalStatus) error {
	result, err := exec.ExecContext(ctx, `UPDATE rentals SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrRentalNotFound)
}

func handleBookingError(err error) error {
	if err == nil {
		return nil
	}
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Constraint {
		case "booking_candidates_pkey":
			return ErrCandidateIDConflict
		case "booking_candidates_field_id_fkey", "rentals_field_id_fkey":
			return ErrBookingFieldInvalid
		}
	}
	return err
}
