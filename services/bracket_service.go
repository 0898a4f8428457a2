package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/jmoiron/sqlx"
	"golang.org/x/sync/errgroup"

	"github.com/matchgrid/matchgrid/bracket"
	"github.com/matchgrid/matchgrid/live"
	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
)

var (
	ErrBracketAlreadyExists = errors.New("division already has generated matches")
	ErrBracketWrongKind     = errors.New("fixture generation requires a tournament or league event")
)

type BracketService interface {
	Generate(ctx context.Context, eventID, divisionID int) ([]*models.Match, error)
}

type bracketService struct {
	db           *sqlx.DB
	eventRepo    repositories.EventRepository
	divisionRepo repositories.DivisionRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	hub          Broadcaster
	logger       *slog.Logger
}

func NewBracketService(
	db *sqlx.DB,
	eventRepo repositories.EventRepository,
	divisionRepo repositories.DivisionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	hub Broadcaster,
	logger *slog.Logger,
) BracketService {
	return &bracketService{
		db:           db,
		eventRepo:    eventRepo,
		divisionRepo: divisionRepo,
		teamRepo:     teamRepo,
		matchRepo:    matchRepo,
		hub:          hub,
		logger:       logger,
	}
}

// Generate builds and persists one division's match set: an elimination
// bracket for tournament events, a round-robin fixture list for league
// events. Rows are inserted without edges first and linked in a second pass,
// so no row ever references a match that is not stored yet.
func (s *bracketService) Generate(ctx context.Context, eventID, divisionID int) ([]*models.Match, error) {
	var (
		event    *models.Event
		division *models.Division
		teams    []models.Team
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if event, err = s.eventRepo.GetByID(gctx, s.db, eventID); err != nil {
			return mapRepoNotFound(err, ErrEventNotFound)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if division, err = s.divisionRepo.GetByID(gctx, s.db, divisionID); err != nil {
			return mapRepoNotFound(err, ErrDivisionNotFound)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		teams, err = s.teamRepo.ListByDivision(gctx, s.db, divisionID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if division.EventID != eventID {
		return nil, fmt.Errorf("%w: division %d", ErrDivisionNotFound, divisionID)
	}

	s.logger.Info("generating fixtures",
		slog.Int("event_id", eventID),
		slog.Int("division_id", divisionID),
		slog.Int("teams", len(teams)),
		slog.String("kind", string(event.Kind)))

	var (
		generated []*models.Match
		buildErr  error
	)
	switch {
	case event.Kind == models.KindTournament && event.Tournament != nil:
		if event.Tournament.SeedFromDivision != nil {
			src, err := s.divisionRepo.GetByID(ctx, s.db, *event.Tournament.SeedFromDivision)
			if err != nil {
				return nil, mapRepoNotFound(err, ErrDivisionNotFound)
			}
			if src.StandingsConfirmedAt == nil {
				return nil, fmt.Errorf("%w: division %d seeds this bracket", ErrStandingsNotConfirmed, src.ID)
			}
		}
		generated, buildErr = bracket.Build(bracket.BuildParams{
			EventID:           eventID,
			DivisionID:        &divisionID,
			Teams:             teams,
			DoubleElimination: event.Tournament.DoubleElimination,
		})
	case event.Kind == models.KindLeague && event.League != nil:
		generated, buildErr = bracket.BuildRoundRobin(bracket.RoundRobinParams{
			EventID:    eventID,
			DivisionID: &divisionID,
			Teams:      teams,
			Legs:       event.League.Rounds,
		})
	default:
		return nil, fmt.Errorf("%w: event %d is a %s", ErrBracketWrongKind, eventID, event.Kind)
	}
	if buildErr != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidationFailed, buildErr)
	}

	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		existing, err := s.matchRepo.ListByEvent(ctx, tx, eventID, repositories.MatchFilter{DivisionID: &divisionID})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("%w: division %d has %d matches", ErrBracketAlreadyExists, divisionID, len(existing))
		}

		// First pass: rows without edges.
		for _, m := range generated {
			if err := s.matchRepo.Create(ctx, tx, m); err != nil {
				return err
			}
		}
		// Second pass: edges.
		for _, m := range generated {
			if err := s.matchRepo.UpdateLinks(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	room := strconv.Itoa(eventID)
	s.hub.BroadcastToRoom(room, live.Message{
		Type:    live.MessageBracketUpdated,
		Payload: generated,
		RoomID:  room,
	})
	return generated, nil
}
