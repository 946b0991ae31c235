package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvetrov/flight-fare-search/internal/model"
)

func ticketFixture(uid string) model.Ticket {
	return model.Ticket{
		TicketUID:         uid,
		ValidatingAirline: "Lufthansa",
		PriceCents:        51240,
		RouteType:         "one_way",
		Segments: []model.FlightSegment{{
			OperatingAirline: "Lufthansa",
			Departure:        "JFK",
			DepartureAt:      time.Date(2026, 2, 1, 10, 30, 0, 0, time.UTC),
			Arrival:          "FRA",
			ArrivalAt:        time.Date(2026, 2, 2, 0, 5, 0, 0, time.UTC),
		}},
	}
}

// expectUpsert scripts the statement sequence of one ticket upsert.
// Expectations are ordered, so a segment insert sneaking in before the
// delete would fail the test.
func expectUpsert(mock sqlmock.Sqlmock, uid string, rowID int64) {
	mock.ExpectExec("INSERT INTO tickets").
		WillReturnResult(sqlmock.NewResult(rowID, 1))
	mock.ExpectQuery("SELECT id FROM tickets").WithArgs(uid).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(rowID))
	mock.ExpectExec("DELETE FROM flight_segments").WithArgs(rowID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO flight_segments").
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func TestUpsertBatchRerunIsIdempotent(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTicketRepo(db)
	batch := []model.Ticket{ticketFixture("T-1")}

	// The second run takes the duplicate-key path: same row id comes
	// back, the old segments are deleted, the same set re-inserted. The
	// final segment set is identical either way.
	for run := 0; run < 2; run++ {
		mock.ExpectBegin()
		expectUpsert(mock, "T-1", 7)
		mock.ExpectCommit()
	}

	require.NoError(t, repo.UpsertBatch(context.Background(), batch))
	require.NoError(t, repo.UpsertBatch(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchSingleTransaction(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTicketRepo(db)

	// Two tickets, one Begin, one Commit.
	mock.ExpectBegin()
	expectUpsert(mock, "T-1", 7)
	expectUpsert(mock, "T-2", 8)
	mock.ExpectCommit()

	batch := []model.Ticket{ticketFixture("T-1"), ticketFixture("T-2")}
	require.NoError(t, repo.UpsertBatch(context.Background(), batch))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchRollsBackOnMidBatchError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTicketRepo(db)

	deadlock := errors.New("Error 1213: Deadlock found")
	mock.ExpectBegin()
	expectUpsert(mock, "T-1", 7)
	mock.ExpectExec("INSERT INTO tickets").WillReturnError(deadlock)
	mock.ExpectRollback()

	batch := []model.Ticket{ticketFixture("T-1"), ticketFixture("T-2")}
	err = repo.UpsertBatch(context.Background(), batch)
	assert.ErrorIs(t, err, deadlock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsertBatchEmptyIsNoOp(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewTicketRepo(db)

	// No Begin, no statements.
	require.NoError(t, repo.UpsertBatch(context.Background(), nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}
