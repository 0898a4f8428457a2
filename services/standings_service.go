package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/matchgrid/matchgrid/live"
	"github.com/matchgrid/matchgrid/models"
	"github.com/matchgrid/matchgrid/repositories"
	"github.com/matchgrid/matchgrid/standings"
)

type PointsOverride struct {
	TeamID int             `json:"teamId" validate:"required"`
	Points models.Opt[int] `json:"points"` // explicit null clears the override
}

type StandingsPatchRequest struct {
	DivisionID      int              `json:"divisionId" validate:"required"`
	PointsOverrides []PointsOverride `json:"pointsOverrides" validate:"required,dive"`
}

type StandingsConfirmRequest struct {
	DivisionID        int  `json:"divisionId" validate:"required"`
	ApplyReassignment bool `json:"applyReassignment"`
}

type StandingsConfirmResult struct {
	models.DivisionStandings
	ApplyReassignment            bool  `json:"applyReassignment"`
	ReassignedPlayoffDivisionIDs []int `json:"reassignedPlayoffDivisionIds"`
	SeededTeamIDs                []int `json:"seededTeamIds"`
}

type StandingsService interface {
	Get(ctx context.Context, divisionID int) (*models.DivisionStandings, error)
	Patch(ctx context.Context, req StandingsPatchRequest) (*models.DivisionStandings, error)
	Confirm(ctx context.Context, req StandingsConfirmRequest, actorID int) (*StandingsConfirmResult, error)
}

type standingsService struct {
	db           *sqlx.DB
	divisionRepo repositories.DivisionRepository
	teamRepo     repositories.TeamRepository
	matchRepo    repositories.MatchRepository
	profileRepo  repositories.ProfileRepository
	hub          Broadcaster
	logger       *slog.Logger

	divisionLocks *keyedMutex
}

func NewStandingsService(
	db *sqlx.DB,
	divisionRepo repositories.DivisionRepository,
	teamRepo repositories.TeamRepository,
	matchRepo repositories.MatchRepository,
	profileRepo repositories.ProfileRepository,
	hub Broadcaster,
	logger *slog.Logger,
) StandingsService {
	return &standingsService{
		db:            db,
		divisionRepo:  divisionRepo,
		teamRepo:      teamRepo,
		matchRepo:     matchRepo,
		profileRepo:   profileRepo,
		hub:           hub,
		logger:        logger,
		divisionLocks: newKeyedMutex(),
	}
}

// Get recomputes the full table from the current match and override set.
func (s *standingsService) Get(ctx context.Context, divisionID int) (*models.DivisionStandings, error) {
	return s.compute(ctx, s.db, divisionID)
}

func (s *standingsService) compute(ctx context.Context, exec repositories.SQLExecutor, divisionID int) (*models.DivisionStandings, error) {
	division, err := s.divisionRepo.GetByID(ctx, exec, divisionID)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrDivisionNotFound)
	}
	profile, err := s.profileRepo.GetByID(ctx, exec, division.ProfileID)
	if err != nil {
		return nil, mapRepoNotFound(err, ErrProfileNotFound)
	}
	teams, err := s.teamRepo.ListByDivision(ctx, exec, divisionID)
	if err != nil {
		return nil, err
	}
	matches, err := s.matchRepo.ListByEvent(ctx, exec, division.EventID, repositories.MatchFilter{DivisionID: &divisionID})
	if err != nil {
		return nil, err
	}
	overrideRows, err := s.divisionRepo.ListOverrides(ctx, exec, divisionID)
	if err != nil {
		return nil, err
	}
	overrides := make(map[int]int, len(overrideRows))
	for _, o := range overrideRows {
		overrides[o.TeamID] = o.PointsDelta
	}

	rows, err := standings.Compute(standings.Input{
		Teams:     teams,
		Matches:   matches,
		Rules:     profile.Rules,
		Overrides: overrides,
	})
	if err != nil {
		if errors.Is(err, standings.ErrTiebreakDependency) {
			return nil, fmt.Errorf("%w: %s", ErrValidationFailed, err)
		}
		return nil, err
	}

	out := &models.DivisionStandings{
		DivisionID:                  division.ID,
		DivisionName:                division.Name,
		StandingsConfirmedAt:        division.StandingsConfirmedAt,
		StandingsConfirmedBy:        division.StandingsConfirmedBy,
		PlayoffTeamCount:            division.PlayoffTeamCount,
		PlayoffPlacementDivisionIDs: int64sToInts(division.PlayoffPlacementDivisionIDs),
		StandingsOverrides:          overrides,
		Standings:                   rows,
		Validation:                  s.validate(division, teams, rows),
	}
	for _, pid := range out.PlayoffPlacementDivisionIDs {
		pd, err := s.divisionRepo.GetByID(ctx, exec, pid)
		if err != nil {
			if errors.Is(err, repositories.ErrDivisionNotFound) {
				out.Validation.MappingErrors = append(out.Validation.MappingErrors,
					fmt.Sprintf("playoff division %d does not exist", pid))
				continue
			}
			return nil, err
		}
		out.PlayoffDivisions = append(out.PlayoffDivisions, *pd)
	}
	return out, nil
}

// validate collects the non-fatal problems the read path surfaces: teams
// with results outside the division roster and playoff capacity mismatches.
func (s *standingsService) validate(division *models.Division, teams []models.Team, rows []models.StandingsRow) models.StandingsValidation {
	v := models.StandingsValidation{MappingErrors: []string{}, CapacityErrors: []string{}}

	known := make(map[int]bool, len(teams))
	for _, t := range teams {
		known[t.ID] = true
	}
	for _, r := range rows {
		if !known[r.TeamID] {
			v.MappingErrors = append(v.MappingErrors,
				fmt.Sprintf("team %d has results but is not assigned to this division", r.TeamID))
		}
	}

	if division.PlayoffTeamCount != nil {
		count := *division.PlayoffTeamCount
		if count > len(rows) {
			v.CapacityErrors = append(v.CapacityErrors,
				fmt.Sprintf("playoff team count %d exceeds the %d ranked teams", count, len(rows)))
		}
		if targets := len(division.PlayoffPlacementDivisionIDs); targets > 0 && count%targets != 0 {
			v.CapacityErrors = append(v.CapacityErrors,
				fmt.Sprintf("playoff team count %d does not split evenly across %d playoff divisions", count, targets))
		}
	}
	return v
}

// Patch replaces or clears per-team override deltas and returns the
// recomputed table. A confirmed table is frozen and rejects further edits.
func (s *standingsService) Patch(ctx context.Context, req StandingsPatchRequest) (*models.DivisionStandings, error) {
	unlock := s.divisionLocks.Lock("division:" + strconv.Itoa(req.DivisionID))
	defer unlock()

	var out *models.DivisionStandings
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		division, err := s.divisionRepo.GetByID(ctx, tx, req.DivisionID)
		if err != nil {
			return mapRepoNotFound(err, ErrDivisionNotFound)
		}
		if division.StandingsConfirmedAt != nil {
			return fmt.Errorf("%w: division %d", ErrConfirmationConflict, division.ID)
		}
		teams, err := s.teamRepo.ListByDivision(ctx, tx, division.ID)
		if err != nil {
			return err
		}
		known := make(map[int]bool, len(teams))
		for _, t := range teams {
			known[t.ID] = true
		}

		for _, o := range req.PointsOverrides {
			if !known[o.TeamID] {
				return fmt.Errorf("%w: team %d", ErrOverrideTeamInvalid, o.TeamID)
			}
			if !o.Points.Defined || o.Points.Value == nil {
				err := s.divisionRepo.DeleteOverride(ctx, tx, division.ID, o.TeamID)
				if err != nil && !errors.Is(err, repositories.ErrOverrideNotFound) {
					return err
				}
				continue
			}
			err := s.divisionRepo.UpsertOverride(ctx, tx, models.StandingsOverride{
				DivisionID:  division.ID,
				TeamID:      o.TeamID,
				PointsDelta: *o.Points.Value,
			})
			if err != nil {
				return err
			}
		}

		out, err = s.compute(ctx, tx, division.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(out)
	return out, nil
}

// Confirm freezes the current table and optionally seeds the configured
// playoff divisions in confirmed order. Serialized per division so two
// concurrent confirmations cannot produce divergent seeding; the loser of
// that race sees the division already confirmed and gets a conflict.
func (s *standingsService) Confirm(ctx context.Context, req StandingsConfirmRequest, actorID int) (*StandingsConfirmResult, error) {
	unlock := s.divisionLocks.Lock("division:" + strconv.Itoa(req.DivisionID))
	defer unlock()

	var result *StandingsConfirmResult
	err := runInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		division, err := s.divisionRepo.GetByID(ctx, tx, req.DivisionID)
		if err != nil {
			return mapRepoNotFound(err, ErrDivisionNotFound)
		}
		if division.StandingsConfirmedAt != nil {
			return fmt.Errorf("%w: division %d", ErrConfirmationConflict, division.ID)
		}

		table, err := s.compute(ctx, tx, req.DivisionID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		if err := s.divisionRepo.SetConfirmed(ctx, tx, req.DivisionID, &now, &actorID); err != nil {
			return mapRepoNotFound(err, ErrDivisionNotFound)
		}
		table.StandingsConfirmedAt = &now
		table.StandingsConfirmedBy = &actorID

		result = &StandingsConfirmResult{
			DivisionStandings:            *table,
			ApplyReassignment:            req.ApplyReassignment,
			ReassignedPlayoffDivisionIDs: []int{},
			SeededTeamIDs:                []int{},
		}
		if !req.ApplyReassignment {
			return nil
		}
		return s.seedPlayoffs(ctx, tx, table, result)
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(&result.DivisionStandings)
	return result, nil
}

// seedPlayoffs moves the top playoffTeamCount teams into the placement
// divisions in confirmed order: consecutive blocks, seeds restarting at 1 in
// each target division.
func (s *standingsService) seedPlayoffs(ctx context.Context, tx *sqlx.Tx, table *models.DivisionStandings, result *StandingsConfirmResult) error {
	if table.PlayoffTeamCount == nil {
		return ErrPlayoffTargetsMissing
	}
	targets := table.PlayoffPlacementDivisionIDs
	if len(targets) == 0 {
		return ErrPlayoffTargetsMissing
	}
	count := *table.PlayoffTeamCount
	if count <= 0 || count > len(table.Standings) || count%len(targets) != 0 {
		return fmt.Errorf("%w: %d teams into %d divisions", ErrPlayoffCapacityInvalid, count, len(targets))
	}

	perDivision := count / len(targets)
	for i := 0; i < count; i++ {
		row := table.Standings[i]
		target := targets[i/perDivision]
		seed := i%perDivision + 1
		if err := s.teamRepo.UpdatePlacement(ctx, tx, row.TeamID, &target, &seed); err != nil {
			return mapRepoNotFound(err, ErrTeamNotFound)
		}
		result.SeededTeamIDs = append(result.SeededTeamIDs, row.TeamID)
	}
	result.ReassignedPlayoffDivisionIDs = targets
	return nil
}

func (s *standingsService) broadcast(table *models.DivisionStandings) {
	room := "division:" + strconv.Itoa(table.DivisionID)
	s.hub.BroadcastToRoom(room, live.Message{
		Type:    live.MessageStandingsUpdated,
		Payload: table,
		RoomID:  room,
	})
}

func int64sToInts(xs []int64) []int {
	out := make([]int, len(xs))
	for i, x := range xs {
		out[i] = int(x)
	}
	return out
}
