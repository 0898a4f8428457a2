package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/suite"

	"github.com/matchgrid/matchgrid/models"
)

type StandingsServiceSuite struct {
	suite.Suite

	db    *sqlx.DB
	mock  sqlmock.Sqlmock
	store *memStore
	hub   *fakeHub
	svc   StandingsService
}

func TestStandingsServiceSuite(t *testing.T) {
	suite.Run(t, new(StandingsServiceSuite))
}

func (s *StandingsServiceSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = sqlx.NewDb(db, "sqlmock")
	s.mock = mock
	s.store = newMemStore()
	s.hub = &fakeHub{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewStandingsService(
		s.db,
		&stubDivisionRepo{s.store},
		&stubTeamRepo{s.store},
		&stubMatchRepo{s.store},
		&stubProfileRepo{s.store},
		s.hub,
		logger,
	)
}

func (s *StandingsServiceSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

// seedLeague stores one league division with three teams and two finalized
// results: Harbor beats Ospreys, Ospreys beats Milltown.
func (s *StandingsServiceSuite) seedLeague() {
	divisionID := 1
	s.store.divisions[divisionID] = &models.Division{ID: divisionID, EventID: 5, Name: "Premier", ProfileID: 1}
	s.store.profiles[1] = &models.ScoringProfile{
		ID: 1, SportID: 1, Name: "League play",
		Rules: models.ProfileRules{
			WinCondition: models.WinByTotal,
			Result: map[models.ResultRule]models.Rule{
				models.RuleWin:  {Points: 3},
				models.RuleDraw: {Points: 1},
			},
			Tiebreakers: map[models.TiebreakRule]bool{
				models.TiebreakGoalDifference: true,
			},
		},
	}
	s.store.teams[10] = &models.Team{ID: 10, EventID: 5, DivisionID: &divisionID, Name: "Ospreys"}
	s.store.teams[11] = &models.Team{ID: 11, EventID: 5, DivisionID: &divisionID, Name: "Harbor"}
	s.store.teams[12] = &models.Team{ID: 12, EventID: 5, DivisionID: &divisionID, Name: "Milltown"}

	s.storeResult("m1", 1, 11, 10, 2, 0)
	s.storeResult("m2", 2, 10, 12, 3, 1)
}

func (s *StandingsServiceSuite) storeResult(id string, order, team1, team2 int, goals1, goals2 int64) {
	divisionID := 1
	s.store.matches[id] = &models.Match{
		ID: id, EventID: 5, MatchID: order, DivisionID: &divisionID,
		Team1ID: &team1, Team2ID: &team2,
		Team1Points: pq.Int64Array{goals1},
		Team2Points: pq.Int64Array{goals2},
		Locked:      true,
	}
}

func (s *StandingsServiceSuite) TestGetRanksByPointsThenGoalDifference() {
	s.seedLeague()

	table, err := s.svc.Get(context.Background(), 1)
	s.Require().NoError(err)
	s.Require().Len(table.Standings, 3)

	s.Equal(11, table.Standings[0].TeamID)
	s.Equal(10, table.Standings[1].TeamID)
	s.Equal(12, table.Standings[2].TeamID)
	s.Equal(1, table.Standings[0].Position)
	s.Equal(3, table.Standings[0].FinalPoints)
	s.Nil(table.StandingsConfirmedAt)
}

func (s *StandingsServiceSuite) TestPatchUpsertsAndClearsOverride() {
	s.seedLeague()

	delta := 5
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	table, err := s.svc.Patch(context.Background(), StandingsPatchRequest{
		DivisionID: 1,
		PointsOverrides: []PointsOverride{
			{TeamID: 12, Points: models.Opt[int]{Defined: true, Value: &delta}},
		},
	})
	s.Require().NoError(err)

	// Milltown: 0 base + 5 override jumps past Ospreys and Harbor on points.
	s.Equal(12, table.Standings[0].TeamID)
	s.Equal(5, table.Standings[0].FinalPoints)
	s.Equal(5, table.Standings[0].PointsDelta)
	s.Equal([]string{"division:1"}, s.hub.rooms)

	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	table, err = s.svc.Patch(context.Background(), StandingsPatchRequest{
		DivisionID: 1,
		PointsOverrides: []PointsOverride{
			{TeamID: 12, Points: models.Opt[int]{Defined: true, Value: nil}},
		},
	})
	s.Require().NoError(err)
	s.Equal(12, table.Standings[2].TeamID)
	s.Empty(s.store.overrides)
}

func (s *StandingsServiceSuite) TestPatchRejectsTeamOutsideDivision() {
	s.seedLeague()
	s.store.teams[99] = &models.Team{ID: 99, EventID: 5, Name: "Unassigned"}

	delta := 1
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()
	_, err := s.svc.Patch(context.Background(), StandingsPatchRequest{
		DivisionID: 1,
		PointsOverrides: []PointsOverride{
			{TeamID: 99, Points: models.Opt[int]{Defined: true, Value: &delta}},
		},
	})
	s.ErrorIs(err, ErrOverrideTeamInvalid)
	s.Empty(s.store.overrides)
}

func (s *StandingsServiceSuite) TestConfirmStampsAndSeedsPlayoffDivision() {
	s.seedLeague()
	playoffCount := 2
	division := s.store.divisions[1]
	division.PlayoffTeamCount = &playoffCount
	division.PlayoffPlacementDivisionIDs = pq.Int64Array{2}
	s.store.divisions[2] = &models.Division{ID: 2, EventID: 5, Name: "Playoffs", ProfileID: 1}

	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	result, err := s.svc.Confirm(context.Background(), StandingsConfirmRequest{
		DivisionID:        1,
		ApplyReassignment: true,
	}, 42)
	s.Require().NoError(err)

	s.Require().NotNil(result.StandingsConfirmedAt)
	s.WithinDuration(time.Now().UTC(), *result.StandingsConfirmedAt, time.Minute)
	s.Require().NotNil(result.StandingsConfirmedBy)
	s.Equal(42, *result.StandingsConfirmedBy)

	s.Equal([]int{2}, result.ReassignedPlayoffDivisionIDs)
	s.Equal([]int{11, 10}, result.SeededTeamIDs)

	harbor := s.store.teams[11]
	s.Require().NotNil(harbor.DivisionID)
	s.Equal(2, *harbor.DivisionID)
	s.Require().NotNil(harbor.Seed)
	s.Equal(1, *harbor.Seed)

	ospreys := s.store.teams[10]
	s.Equal(2, *ospreys.DivisionID)
	s.Equal(2, *ospreys.Seed)

	milltown := s.store.teams[12]
	s.Equal(1, *milltown.DivisionID)
}

func (s *StandingsServiceSuite) TestConfirmWithoutPlayoffTargetsFails() {
	s.seedLeague()

	s.mock.ExpectBegin()
	s.mock.ExpectRollback()
	_, err := s.svc.Confirm(context.Background(), StandingsConfirmRequest{
		DivisionID:        1,
		ApplyReassignment: true,
	}, 42)
	s.ErrorIs(err, ErrPlayoffTargetsMissing)
}

func (s *StandingsServiceSuite) TestConfirmTwiceRejected() {
	s.seedLeague()

	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	_, err := s.svc.Confirm(context.Background(), StandingsConfirmRequest{DivisionID: 1}, 42)
	s.Require().NoError(err)

	s.mock.ExpectBegin()
	s.mock.ExpectRollback()
	_, err = s.svc.Confirm(context.Background(), StandingsConfirmRequest{DivisionID: 1}, 43)
	s.ErrorIs(err, ErrConfirmationConflict)

	// The original stamp survives the rejected second confirmation.
	s.Equal(42, *s.store.divisions[1].StandingsConfirmedBy)
}

func (s *StandingsServiceSuite) TestPatchAfterConfirmRejected() {
	s.seedLeague()
	now := time.Now().UTC()
	by := 42
	s.store.divisions[1].StandingsConfirmedAt = &now
	s.store.divisions[1].StandingsConfirmedBy = &by

	delta := 5
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()
	_, err := s.svc.Patch(context.Background(), StandingsPatchRequest{
		DivisionID: 1,
		PointsOverrides: []PointsOverride{
			{TeamID: 12, Points: models.Opt[int]{Defined: true, Value: &delta}},
		},
	})
	s.ErrorIs(err, ErrConfirmationConflict)
	s.Empty(s.store.overrides)
}

func (s *StandingsServiceSuite) TestConfirmWithoutReassignmentLeavesTeams() {
	s.seedLeague()

	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	result, err := s.svc.Confirm(context.Background(), StandingsConfirmRequest{DivisionID: 1}, 42)
	s.Require().NoError(err)

	s.Empty(result.SeededTeamIDs)
	s.Equal(1, *s.store.teams[11].DivisionID)
}
