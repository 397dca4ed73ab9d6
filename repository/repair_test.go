package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"nightlife_order/feed"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/suite"
)

type OrphanRepairSuite struct {
	suite.Suite
	mock   pgxmock.PgxPoolIface
	hub    *feed.Hub
	sub    *feed.Subscription
	repair *OrphanRepair
	now    time.Time
}

func (s *OrphanRepairSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.mock = mock
	s.hub = feed.NewHub(nil)
	s.sub = s.hub.Subscribe(feed.Filter{}, 8)
	s.now = time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	s.repair = NewOrphanRepair(mock, 2*time.Minute, s.hub, nil)
	s.repair.now = func() time.Time { return s.now }
}

func (s *OrphanRepairSuite) TearDownTest() {
	s.sub.Close()
	s.mock.Close()
}

func (s *OrphanRepairSuite) orphanRows() *pgxmock.Rows {
	created := s.now.Add(-10 * time.Minute)
	return pgxmock.NewRows([]string{"id", "venue_id", "event_id", "event_table_id", "created_at"}).
		AddRow(int64(5), int64(1), int64(3), int64(9), created).
		AddRow(int64(6), int64(1), int64(3), int64(10), created)
}

func (s *OrphanRepairSuite) TestCancelsOrphans() {
	s.mock.ExpectQuery(`SELECT o.id, o.venue_id, o.event_id, o.event_table_id, o.created_at\s+FROM orders o`).
		WithArgs(s.now.Add(-2 * time.Minute)).
		WillReturnRows(s.orphanRows())
	s.mock.ExpectExec(`UPDATE orders\s+SET status = 'cancelled'`).
		WithArgs(int64(5), s.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	// order 6 received its items in the meantime
	s.mock.ExpectExec(`UPDATE orders\s+SET status = 'cancelled'`).
		WithArgs(int64(6), s.now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	n, err := s.repair.Run(context.Background())
	s.Require().NoError(err)
	s.Equal(1, n)
	s.NoError(s.mock.ExpectationsWereMet())

	s.Require().Len(s.sub.Events(), 1)
	c := <-s.sub.Events()
	s.Equal(uint(5), c.OrderId)
	s.Equal(uint(9), c.TableId)
	s.Equal(feed.ChangeUpdate, c.Type)
}

func (s *OrphanRepairSuite) TestFindOrphans() {
	s.mock.ExpectQuery(`FROM orders o`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(s.orphanRows())

	orphans, err := s.repair.FindOrphans(context.Background())
	s.Require().NoError(err)
	s.Require().Len(orphans, 2)
	s.Equal(uint(6), orphans[1].OrderId)
	s.Equal(uint(10), orphans[1].EventTableId)
}

func (s *OrphanRepairSuite) TestQueryError() {
	s.mock.ExpectQuery(`FROM orders o`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnError(errors.New("connection reset"))

	n, err := s.repair.Run(context.Background())
	s.Error(err)
	s.Equal(0, n)
	s.Empty(s.sub.Events())
}

func (s *OrphanRepairSuite) TestExecErrorStops() {
	s.mock.ExpectQuery(`FROM orders o`).
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(s.orphanRows())
	s.mock.ExpectExec(`UPDATE orders`).
		WithArgs(int64(5), s.now).
		WillReturnError(errors.New("deadlock detected"))

	n, err := s.repair.Run(context.Background())
	s.ErrorContains(err, "cancel orphan 5")
	s.Equal(0, n)
}

func TestOrphanRepairSuite(t *testing.T) {
	suite.Run(t, new(OrphanRepairSuite))
}
