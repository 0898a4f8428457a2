package services

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/matchgrid/matchgrid/models"
)

type BracketServiceSuite struct {
	suite.Suite

	db    *sqlx.DB
	mock  sqlmock.Sqlmock
	store *memStore
	hub   *fakeHub
	svc   BracketService
}

func TestBracketServiceSuite(t *testing.T) {
	suite.Run(t, new(BracketServiceSuite))
}

func (s *BracketServiceSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = sqlx.NewDb(db, "sqlmock")
	s.mock = mock
	s.store = newMemStore()
	s.hub = &fakeHub{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewBracketService(
		s.db,
		&stubEventRepo{s.store},
		&stubDivisionRepo{s.store},
		&stubTeamRepo{s.store},
		&stubMatchRepo{s.store},
		s.hub,
		logger,
	)
}

func (s *BracketServiceSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

// seedDivision stores a tournament event with one division and a seeded
// roster of the given size.
func (s *BracketServiceSuite) seedDivision(teamCount int, doubleElim bool) (eventID, divisionID int) {
	eventID, divisionID = 7, 1
	s.store.events[eventID] = &models.Event{
		ID:         eventID,
		Name:       "Autumn Cup",
		Kind:       models.KindTournament,
		Status:     models.EventActive,
		Tournament: &models.TournamentDetails{DoubleElimination: doubleElim},
	}
	s.store.divisions[divisionID] = &models.Division{ID: divisionID, EventID: eventID, Name: "Open", ProfileID: 1}
	for i := 1; i <= teamCount; i++ {
		seed := i
		s.store.teams[100+i] = &models.Team{
			ID: 100 + i, EventID: eventID, Name: "Team", DivisionID: &divisionID, Seed: &seed,
		}
	}
	return eventID, divisionID
}

func (s *BracketServiceSuite) TestGenerateSingleEliminationFourTeams() {
	eventID, divisionID := s.seedDivision(4, false)
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	matches, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.Require().NoError(err)
	s.Len(matches, 3)
	s.Len(s.store.matches, 3)

	final := matches[len(matches)-1]
	s.Nil(final.WinnerNextMatchID)
	s.NotNil(final.PreviousLeftID)
	s.NotNil(final.PreviousRightID)
	for _, m := range matches[:len(matches)-1] {
		s.Require().NotNil(m.WinnerNextMatchID)
		s.Equal(final.ID, *m.WinnerNextMatchID)
	}

	s.Equal([]string{"7"}, s.hub.rooms)
}

func (s *BracketServiceSuite) TestGenerateRejectsPickupEvent() {
	eventID, divisionID := s.seedDivision(4, false)
	s.store.events[eventID].Kind = models.KindPickup
	s.store.events[eventID].Tournament = nil
	s.store.events[eventID].Pickup = &models.PickupDetails{MaxPlayers: 10}

	_, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.ErrorIs(err, ErrBracketWrongKind)
	s.Empty(s.store.matches)
}

func (s *BracketServiceSuite) TestGenerateLeagueDoubleRoundRobin() {
	eventID, divisionID := s.seedDivision(4, false)
	s.store.events[eventID].Kind = models.KindLeague
	s.store.events[eventID].Tournament = nil
	s.store.events[eventID].League = &models.LeagueDetails{Rounds: 2}

	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	matches, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.Require().NoError(err)
	s.Len(matches, 12)
	s.Len(s.store.matches, 12)
	for _, m := range matches {
		s.Require().True(m.HasBothTeams())
		s.Nil(m.WinnerNextMatchID)
		s.Nil(m.LoserNextMatchID)
	}
	s.Equal([]string{"7"}, s.hub.rooms)
}

func (s *BracketServiceSuite) TestGenerateSeededBracketRequiresConfirmedSource() {
	eventID, divisionID := s.seedDivision(4, false)
	srcID := 9
	s.store.events[eventID].Tournament.SeedFromDivision = &srcID
	s.store.divisions[srcID] = &models.Division{ID: srcID, EventID: eventID, Name: "Regular season", ProfileID: 1}

	_, err := s.svc.Generate(context.Background(), eventID, divisionID)
	s.ErrorIs(err, ErrStandingsNotConfirmed)
	s.Empty(s.store.matches)

	now := time.Now().UTC()
	s.store.divisions[srcID].StandingsConfirmedAt = &now
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()
	_, err = s.svc.Generate(context.Background(), eventID, divisionID)
	s.NoError(err)
}

func (s *BracketServiceSuite) TestGenerateRejectsDivisionFromAnotherEvent() {
	eventID, divisionID := s.seedDivision(4, false)
	s.store.divisions[divisionID].EventID = eventID + 1
	s.store.events[eventID+1] = &models.Event{
		ID: eventID + 1, Kind: models.KindTournament, Tournament: &models.TournamentDetails{},
	}

	_, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.ErrorIs(err, ErrDivisionNotFound)
}

func (s *BracketServiceSuite) TestGenerateRejectsExistingBracket() {
	eventID, divisionID := s.seedDivision(4, false)
	s.store.matches["existing"] = &models.Match{
		ID: "existing", EventID: eventID, MatchID: 1, DivisionID: &divisionID,
	}
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	_, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.ErrorIs(err, ErrBracketAlreadyExists)
	s.Len(s.store.matches, 1)
	s.Empty(s.hub.rooms)
}

func (s *BracketServiceSuite) TestGenerateRejectsOddDoubleEliminationRoster() {
	eventID, divisionID := s.seedDivision(6, true)

	_, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.ErrorIs(err, ErrValidationFailed)
	s.Empty(s.store.matches)
}

func (s *BracketServiceSuite) TestGenerateDoubleEliminationLinksLoserEdges() {
	eventID, divisionID := s.seedDivision(4, true)
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	matches, err := s.svc.Generate(context.Background(), eventID, divisionID)

	s.Require().NoError(err)
	s.Greater(len(matches), 3)

	loserFed := 0
	for _, m := range matches {
		if m.LoserNextMatchID != nil {
			loserFed++
		}
	}
	s.NotZero(loserFed, "winner-bracket matches should feed the loser bracket")
}
