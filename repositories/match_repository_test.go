package repositories

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/suite"

	"github.com/matchgrid/matchgrid/models"
)

type MatchRepositorySuite struct {
	suite.Suite
	db   *sqlx.DB
	mock sqlmock.Sqlmock
	repo MatchRepository
}

func (s *MatchRepositorySuite) SetupTest() {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	s.Require().NoError(err)
	s.db = sqlx.NewDb(db, "sqlmock")
	s.mock = mock
	s.repo = NewPostgresMatchRepository()
}

func (s *MatchRepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	s.db.Close()
}

func (s *MatchRepositorySuite) TestCreateInsertsAllColumns() {
	t1, t2 := 11, 12
	m := &models.Match{
		ID: "u-1", EventID: 7, MatchID: 1,
		Team1ID: &t1, Team2ID: &t2,
		Team1Points: []int64{}, Team2Points: []int64{},
	}

	s.mock.ExpectExec(`INSERT INTO matches`).
		WithArgs("u-1", 7, 1, nil, 11, 12, nil, nil,
			m.Team1Points, m.Team2Points, m.SetResults, false, nil, false,
			nil, nil, nil, nil, nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Create(context.Background(), s.db, m))
}

func (s *MatchRepositorySuite) TestGetByIDScansRow() {
	rows := sqlmock.NewRows([]string{
		"id", "event_id", "match_id", "division_id", "team1_id", "team2_id",
		"team1_seed", "team2_seed", "team1_points", "team2_points", "set_results",
		"locked", "side", "losers_bracket", "winner_next_match_id", "loser_next_match_id",
		"previous_left_id", "previous_right_id", "field_id", "start_at", "end_at",
		"referee_id", "team_referee_id", "referee_checked_in",
	}).AddRow(
		"u-1", 7, 1, nil, 11, 12,
		nil, nil, []byte("{25,25}"), []byte("{20,23}"), []byte("{}"),
		true, "winners", false, nil, nil,
		nil, nil, nil, nil, nil,
		nil, nil, nil,
	)

	s.mock.ExpectQuery(`FROM matches WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnRows(rows)

	m, err := s.repo.GetByID(context.Background(), s.db, "u-1")
	s.Require().NoError(err)
	s.Equal(7, m.EventID)
	s.True(m.Locked)
	s.Equal([]int64{25, 25}, []int64(m.Team1Points))
	s.Equal(models.MatchFinalized, m.Status())
}

func (s *MatchRepositorySuite) TestGetByIDNotFound() {
	s.mock.ExpectQuery(`FROM matches WHERE id = \$1`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := s.repo.GetByID(context.Background(), s.db, "missing")
	s.ErrorIs(err, ErrMatchNotFound)
}

func (s *MatchRepositorySuite) TestUpdateReportsMissingRow() {
	s.mock.ExpectExec(`UPDATE matches SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.repo.Update(context.Background(), s.db, &models.Match{ID: "gone"})
	s.ErrorIs(err, ErrMatchNotFound)
}

func (s *MatchRepositorySuite) TestDeleteChecksAffectedRows() {
	s.mock.ExpectExec(`DELETE FROM matches WHERE id = \$1`).
		WithArgs("u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.NoError(s.repo.Delete(context.Background(), s.db, "u-1"))
}

func TestMatchRepositorySuite(t *testing.T) {
	suite.Run(t, new(MatchRepositorySuite))
}
