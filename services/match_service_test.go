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

type MatchServiceSuite struct {
	suite.Suite

	db    *sqlx.DB
	mock  sqlmock.Sqlmock
	store *memStore
	hub   *fakeHub
	svc   MatchService
}

func TestMatchServiceSuite(t *testing.T) {
	suite.Run(t, new(MatchServiceSuite))
}

func (s *MatchServiceSuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)
	s.db = sqlx.NewDb(db, "sqlmock")
	s.mock = mock
	s.store = newMemStore()
	s.hub = &fakeHub{}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewMatchService(
		s.db,
		&stubMatchRepo{s.store},
		&stubDivisionRepo{s.store},
		&stubProfileRepo{s.store},
		&stubBookingRepo{s.store},
		s.hub,
		logger,
	)
}

func (s *MatchServiceSuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

const testEventID = 7

// seedSemiAndFinal stores a two-match chain: the semifinal advances its
// winner into the final's left slot.
func (s *MatchServiceSuite) seedSemiAndFinal() (semi, final *models.Match) {
	divisionID := 1
	t1, t2 := 101, 102
	semiID, finalID := "semi", "final"

	semi = &models.Match{
		ID: semiID, EventID: testEventID, MatchID: 1, DivisionID: &divisionID,
		Team1ID: &t1, Team2ID: &t2,
		WinnerNextMatchID: &finalID,
	}
	final = &models.Match{
		ID: finalID, EventID: testEventID, MatchID: 2, DivisionID: &divisionID,
		PreviousLeftID: &semiID,
	}
	s.store.matches[semi.ID] = semi
	s.store.matches[final.ID] = final

	s.store.divisions[divisionID] = &models.Division{ID: divisionID, EventID: testEventID, Name: "Open", ProfileID: 1}
	s.store.profiles[1] = &models.ScoringProfile{
		ID: 1, SportID: 1, Name: "Best of 3",
		Rules: models.ProfileRules{
			WinCondition:    models.WinBySets,
			WinnerSetCount:  2,
			PointsToVictory: 25,
		},
	}
	return semi, final
}

func intOpt(v int) models.Opt[int]    { return models.Opt[int]{Defined: true, Value: &v} }
func boolOpt(v bool) models.Opt[bool] { return models.Opt[bool]{Defined: true, Value: &v} }
func pointsOpt(vs ...int64) models.Opt[[]int64] {
	return models.Opt[[]int64]{Defined: true, Value: &vs}
}

func (s *MatchServiceSuite) TestFailingEntryRollsBackWholeBatch() {
	s.seedSemiAndFinal()
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Creates: []models.MatchCreate{{
			ClientID:    "extra",
			MatchUpdate: models.MatchUpdate{MatchID: intOpt(9)},
		}},
		Matches: []models.MatchUpdate{{ID: "no-such-match", Team1ID: intOpt(101)}},
	})

	s.ErrorIs(err, ErrMatchNotFound)
	s.Zero(s.store.matchWrites)
	s.Len(s.store.matches, 2)
	s.Empty(s.hub.rooms)
}

func (s *MatchServiceSuite) TestLockedMatchRejectsEditWithoutUnlock() {
	semi, _ := s.seedSemiAndFinal()
	semi.Locked = true
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Matches: []models.MatchUpdate{{ID: semi.ID, Team1Points: pointsOpt(25, 25)}},
	})

	s.ErrorIs(err, ErrMatchLockedEdit)
	s.Zero(s.store.matchWrites)
}

func (s *MatchServiceSuite) TestLockingPropagatesWinnerDownstream() {
	semi, final := s.seedSemiAndFinal()
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	result, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Matches: []models.MatchUpdate{{
			ID:          semi.ID,
			Team1Points: pointsOpt(25, 25),
			Team2Points: pointsOpt(20, 23),
			Locked:      boolOpt(true),
		}},
	})
	s.Require().NoError(err)

	storedSemi := s.store.matches[semi.ID]
	s.True(storedSemi.Locked)
	storedFinal := s.store.matches[final.ID]
	s.Require().NotNil(storedFinal.Team1ID)
	s.Equal(101, *storedFinal.Team1ID)

	s.Len(result.Matches, 2)
	s.Equal([]string{"7"}, s.hub.rooms)
}

func (s *MatchServiceSuite) TestUnlockBlockedByDownstreamLock() {
	semi, final := s.seedSemiAndFinal()
	winner := 101
	semi.Locked = true
	semi.Team1Points = []int64{25, 25}
	semi.Team2Points = []int64{20, 23}
	final.Team1ID = &winner
	final.Locked = true
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Matches: []models.MatchUpdate{{ID: semi.ID, Locked: boolOpt(false)}},
	})

	s.ErrorIs(err, ErrValidationFailed)
	s.True(s.store.matches[semi.ID].Locked)
	s.Zero(s.store.matchWrites)
}

func (s *MatchServiceSuite) TestUnlockWithdrawsPropagatedTeam() {
	semi, final := s.seedSemiAndFinal()
	winner := 101
	semi.Locked = true
	semi.Team1Points = []int64{25, 25}
	semi.Team2Points = []int64{20, 23}
	final.Team1ID = &winner
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Matches: []models.MatchUpdate{{ID: semi.ID, Locked: boolOpt(false)}},
	})
	s.Require().NoError(err)

	s.False(s.store.matches[semi.ID].Locked)
	s.Nil(s.store.matches[final.ID].Team1ID)
}

func (s *MatchServiceSuite) TestCreatesLinkEachOtherByClientID() {
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	winnerNext := "championship"
	prevLeft := "opener"
	result, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Creates: []models.MatchCreate{
			{
				ClientID: "opener",
				MatchUpdate: models.MatchUpdate{
					MatchID:           intOpt(1),
					WinnerNextMatchID: models.Opt[string]{Defined: true, Value: &winnerNext},
				},
			},
			{
				ClientID: "championship",
				MatchUpdate: models.MatchUpdate{
					MatchID:        intOpt(2),
					PreviousLeftID: models.Opt[string]{Defined: true, Value: &prevLeft},
				},
			},
		},
	})
	s.Require().NoError(err)
	s.Len(result.Created, 2)

	opener := s.store.matches[result.Created["opener"]]
	championship := s.store.matches[result.Created["championship"]]
	s.Require().NotNil(opener.WinnerNextMatchID)
	s.Equal(championship.ID, *opener.WinnerNextMatchID)
	s.Require().NotNil(championship.PreviousLeftID)
	s.Equal(opener.ID, *championship.PreviousLeftID)
}

func (s *MatchServiceSuite) TestDuplicateClientIDRejected() {
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Creates: []models.MatchCreate{
			{ClientID: "dup", MatchUpdate: models.MatchUpdate{MatchID: intOpt(1)}},
			{ClientID: "dup", MatchUpdate: models.MatchUpdate{MatchID: intOpt(2)}},
		},
	})
	s.ErrorIs(err, ErrClientIDDuplicate)
}

func (s *MatchServiceSuite) TestDeleteReferencedBySurvivorRejected() {
	semi, _ := s.seedSemiAndFinal()
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Deletes: []string{semi.ID},
	})

	s.ErrorIs(err, ErrMatchDeleteReferenced)
	s.Len(s.store.matches, 2)
}

func (s *MatchServiceSuite) TestDeleteChainTogetherSucceeds() {
	semi, final := s.seedSemiAndFinal()
	s.mock.ExpectBegin()
	s.mock.ExpectCommit()

	result, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Deletes: []string{semi.ID, final.ID},
	})
	s.Require().NoError(err)
	s.Len(result.Deleted, 2)
	s.Empty(s.store.matches)
}

func (s *MatchServiceSuite) TestScheduleOverlapWithRentalRejected() {
	semi, _ := s.seedSemiAndFinal()
	day := time.Date(2026, 5, 9, 0, 0, 0, 0, time.UTC)
	s.store.rentals["r1"] = &models.Rental{
		ID: "r1", UserID: 4, FieldID: 3, Date: day,
		StartMin: 600, EndMin: 660, Status: models.RentalConfirmed,
	}
	s.mock.ExpectBegin()
	s.mock.ExpectRollback()

	start := day.Add(10*time.Hour + 30*time.Minute)
	end := start.Add(time.Hour)
	_, err := s.svc.BulkMutate(context.Background(), testEventID, BulkMutationRequest{
		Matches: []models.MatchUpdate{{
			ID:      semi.ID,
			FieldID: intOpt(3),
			Start:   models.Opt[time.Time]{Defined: true, Value: &start},
			End:     models.Opt[time.Time]{Defined: true, Value: &end},
		}},
	})

	s.ErrorIs(err, ErrBookingConflict)
	s.Zero(s.store.matchWrites)
}
