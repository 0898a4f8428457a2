package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/schedule"
)

type CandidateRequest struct {
	ID       string    `json:"id"`
	FieldID  int       `json:"fieldId" validate:"required"`
	Date     time.Time `json:"date" validate:"required"`
	StartMin int       `json:"startMin" validate:"min=0,max=1440"`
	EndMin   int       `json:"endMin" validate:"min=0,max=1440"`
}

type BookingService interface {
	HoldCandidate(ctx context.Context, userID int, req CandidateRequest) (*models.BookingCandidate, error)
	MoveCandidate(ctx context.Context, userID int, req CandidateRequest) (*models.BookingCandidate, error)
	ReleaseCandidate(ctx context.Context, userID int, candidateID string) error
	CommitCandidate(ctx context.Context, userID int, candidateID string) (*models.Rental, error)

	ListUserRentals(ctx context.Context, userID int) ([]models.Rental, error)
	CancelRental(ctx context.Context, userID int, rentalID string) error
}

type bookingService struct {
	db          *sqlx.DB
	fieldRepo   repositories.FieldRepository
	matchRepo   repositories.MatchRepository
	bookingRepo repositories.BookingRepository
	logger      *slog.Logger

	fieldLocks *keyedMutex
}

func NewBookingService(
	db *sqlx.DB,
	fieldRepo repositories.FieldRepository,
	matchRepo repositories.MatchRepository,
	bookingRepo repositories.BookingRepository,
	logger *slog.Logger,
) BookingService {
	return &bookingService{
		db:          db,
		fieldRepo:   fieldRepo,
		matchRepo:   matchRepo,
		bookingRepo: bookingRepo,
		logger:      logger,
		fieldLocks:  newKeyedMutex(),
	}
}

// HoldCandidate runs the conflict check and records an uncommitted selection.
// The hold reserves nothing against committed bookings; it only keeps two
// drafts from overlapping each other.
func (s *bookingService) HoldCandidate(ctx context.Context, userID int, req CandidateRequest) (*models.BookingCandidate, error) {
	unlock := s.fieldLocks.Lock("field:" + strconv.Itoa(req.FieldID))
	defer unlock()

	candidate := &models.BookingCandidate{
		ID:       req.ID,
		UserID:   userID,
		FieldID:  req.FieldID,
		Date:     req.Date.Truncate(24 * time.Hour),
		StartMin: req.StartMin,
		EndMin:   req.EndMin,
	}
	if candidate.ID == "" {
		candidate.ID = uuid.NewString()
	}

	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := s.checkInterval(ctx, tx, candidateInterval(candidate), ""); err != nil {
			return err
		}
		if err := s.bookingRepo.CreateCandidate(ctx, tx, candidate); err != nil {
			if errors.Is(err, repositories.ErrCandidateIDConflict) {
				return fmt.Errorf("%w: candidate %s", ErrClientIDDuplicate, candidate.ID)
			}
			if errors.Is(err, repositories.ErrBookingFieldInvalid) {
				return ErrFieldNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return candidate, nil
}

// MoveCandidate re-runs the full check for the new window, ignoring the
// candidate's own previous position.
func (s *bookingService) MoveCandidate(ctx context.Context, userID int, req CandidateRequest) (*models.BookingCandidate, error) {
	unlock := s.fieldLocks.Lock("field:" + strconv.Itoa(req.FieldID))
	defer unlock()

	var moved *models.BookingCandidate
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		candidate, err := s.bookingRepo.GetCandidate(ctx, tx, req.ID)
		if err != nil {
			return mapRepoNotFound(err, ErrCandidateNotFound)
		}
		if candidate.UserID != userID {
			return ErrForbiddenOperation
		}

		candidate.FieldID = req.FieldID
		candidate.Date = req.Date.Truncate(24 * time.Hour)
		candidate.StartMin = req.StartMin
		candidate.EndMin = req.EndMin

		if err := s.checkInterval(ctx, tx, candidateInterval(candidate), candidate.ID); err != nil {
			return err
		}
		if err := s.bookingRepo.UpdateCandidate(ctx, tx, candidate); err != nil {
			return err
		}
		moved = candidate
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

func (s *bookingService) ReleaseCandidate(ctx context.Context, userID int, candidateID string) error {
	return runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		candidate, err := s.bookingRepo.GetCandidate(ctx, tx, candidateID)
		if err != nil {
			return mapRepoNotFound(err, ErrCandidateNotFound)
		}
		if candidate.UserID != userID {
			return ErrForbiddenOperation
		}
		return s.bookingRepo.DeleteCandidate(ctx, tx, candidateID)
	})
}

// CommitCandidate re-validates the held window against the current state and
// turns it into a confirmed rental. The per-field lock plus the transaction
// means two commits for the same window cannot both pass the check.
func (s *bookingService) CommitCandidate(ctx context.Context, userID int, candidateID string) (*models.Rental, error) {
	// A concurrent move can change the candidate's field between the read
	// and the lock, which would leave the critical section keyed on the
	// wrong field. Re-read after locking and retry until the two agree.
	var (
		candidate *models.BookingCandidate
		unlock    func()
		lockedKey string
	)
	for {
		c, err := s.bookingRepo.GetCandidate(ctx, s.db, candidateID)
		if err != nil {
			if unlock != nil {
				unlock()
			}
			return nil, mapRepoNotFound(err, ErrCandidateNotFound)
		}
		key := "field:" + strconv.Itoa(c.FieldID)
		if key == lockedKey {
			candidate = c
			break
		}
		if unlock != nil {
			unlock()
		}
		unlock = s.fieldLocks.Lock(key)
		lockedKey = key
	}
	defer unlock()

	if candidate.UserID != userID {
		return nil, ErrForbiddenOperation
	}

	var rental *models.Rental
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		candidate, err := s.bookingRepo.GetCandidate(ctx, tx, candidateID)
		if err != nil {
			return mapRepoNotFound(err, ErrCandidateNotFound)
		}
		if "field:"+strconv.Itoa(candidate.FieldID) != lockedKey {
			return fmt.Errorf("%w: candidate moved during commit", ErrBookingConflict)
		}
		iv := candidateInterval(candidate)
		if err := s.checkInterval(ctx, tx, iv, candidate.ID); err != nil {
			return err
		}

		slots, err := s.slotsOn(ctx, tx, iv.FieldID, iv.Date)
		if err != nil {
			return err
		}
		rental = &models.Rental{
			ID:         uuid.NewString(),
			UserID:     candidate.UserID,
			FieldID:    candidate.FieldID,
			Date:       candidate.Date,
			StartMin:   candidate.StartMin,
			EndMin:     candidate.EndMin,
			PriceCents: priceFor(slots, candidate.StartMin, candidate.EndMin),
			Status:     models.RentalConfirmed,
		}
		if err := s.bookingRepo.CreateRental(ctx, tx, rental); err != nil {
			return err
		}
		return s.bookingRepo.DeleteCandidate(ctx, tx, candidate.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("rental confirmed",
		slog.String("rental_id", rental.ID),
		slog.Int("field_id", rental.FieldID),
		slog.Int("user_id", rental.UserID),
		slog.Int("price_cents", rental.PriceCents))
	return rental, nil
}

func (s *bookingService) ListUserRentals(ctx context.Context, userID int) ([]models.Rental, error) {
	return s.bookingRepo.ListRentalsByUser(ctx, s.db, userID)
}

func (s *bookingService) CancelRental(ctx context.Context, userID int, rentalID string) error {
	return runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		rental, err := s.bookingRepo.GetRental(ctx, tx, rentalID)
		if err != nil {
			return mapRepoNotFound(err, ErrRentalNotFound)
		}
		if rental.UserID != userID {
			return ErrForbiddenOperation
		}
		return s.bookingRepo.UpdateRentalStatus(ctx, tx, rentalID, models.RentalCanceled)
	})
}

func candidateInterval(c *models.BookingCandidate) schedule.Interval {
	return schedule.Interval{
		FieldID:  c.FieldID,
		Date:     c.Date,
		StartMin: c.StartMin,
		EndMin:   c.EndMin,
	}
}

// checkInterval assembles the field's snapshot for the interval's date and
// runs the resolver, translating its verdicts to the service taxonomy.
func (s *bookingService) checkInterval(ctx context.Context, tx *sqlx.Tx, iv schedule.Interval, excludeCandidateID string) error {
	day := iv.Date.Truncate(24 * time.Hour)
	next := day.Add(24 * time.Hour)

	slots, err := s.slotsOn(ctx, tx, iv.FieldID, day)
	if err != nil {
		return err
	}

	busy := make([]models.BusyBlock, 0)
	matches, err := s.matchRepo.ListScheduledByField(ctx, tx, iv.FieldID, day, next)
	if err != nil {
		return err
	}
	for _, m := range matches {
		if m.FieldID == nil || m.Start == nil || m.End == nil {
			continue
		}
		busy = append(busy, models.BusyBlock{
			SourceID: m.ID,
			Kind:     models.BusyMatch,
			FieldID:  *m.FieldID,
			Start:    *m.Start,
			End:      *m.End,
		})
	}
	rentals, err := s.bookingRepo.ListRentalsByFieldBetween(ctx, tx, iv.FieldID, day, next)
	if err != nil {
		return err
	}
	for _, r := range rentals {
		busy = append(busy, r.Block())
	}

	candidates, err := s.bookingRepo.ListCandidatesByField(ctx, tx, iv.FieldID, day)
	if err != nil {
		return err
	}

	err = schedule.Check(iv, schedule.Snapshot{
		Slots:      slots,
		Busy:       busy,
		Candidates: candidates,
	}, excludeCandidateID)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, schedule.ErrInvalidInterval):
		return fmt.Errorf("%w: %s", ErrValidationFailed, err)
	default:
		return fmt.Errorf("%w: %s", ErrBookingConflict, err)
	}
}

func (s *bookingService) slotsOn(ctx context.Context, exec repositories.SQLExecutor, fieldID int, day time.Time) ([]models.TimeSlot, error) {
	slots, err := s.fieldRepo.ListTimeSlotsOnDate(ctx, exec, fieldID, day)
	if err != nil {
		return nil, err
	}
	applicable := slots[:0]
	for _, slot := range slots {
		if slot.AppliesTo(day) {
			applicable = append(applicable, slot)
		}
	}
	return applicable, nil
}

// priceFor charges each slot's hourly rate for the minutes the rental spends
// inside that slot. The resolver has already proven full coverage, so the
// portions sum to the whole window.
func priceFor(slots []models.TimeSlot, startMin, endMin int) int {
	total := 0
	for _, slot := range slots {
		lo := max(startMin, slot.StartMin)
		hi := min(endMin, slot.EndMin)
		if hi > lo {
			total += (hi - lo) * slot.PriceCents / 60
		}
	}
	return total
}
