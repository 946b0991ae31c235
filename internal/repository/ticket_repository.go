package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rvetrov/flight-fare-search/internal/model"
)

// TicketRepo persists scraped tickets and their flight segments. A
// ticket's stored segment set always reflects the most recent successful
// scrape of its uid: segments are deleted and re-inserted wholesale on
// every upsert, never patched.
type TicketRepo struct {
	db *sql.DB
}

// NewTicketRepo returns a new TicketRepo bound to the given database.
func NewTicketRepo(db *sql.DB) *TicketRepo { return &TicketRepo{db: db} }

// UpsertBatch stores one scrape batch inside a single transaction:
// either every ticket and segment write lands, or none does. Re-running
// the same batch is idempotent because old segments are always removed
// before the new ones are inserted.
func (r *TicketRepo) UpsertBatch(ctx context.Context, tickets []model.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i := range tickets {
		if err := r.upsertTx(ctx, tx, &tickets[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// upsertTx creates or replaces one ticket by its provider uid and swaps
// in its freshly parsed segments. It populates the ticket's row ID.
func (r *TicketRepo) upsertTx(ctx context.Context, tx *sql.Tx, t *model.Ticket) error {
	const up = `INSERT INTO tickets (ticket_uid, validating_airline, price_cents, route_type)
	            VALUES (?, ?, ?, ?)
	            ON DUPLICATE KEY UPDATE
	                validating_airline = VALUES(validating_airline),
	                price_cents = VALUES(price_cents),
	                route_type = VALUES(route_type)`
	if _, err := tx.ExecContext(ctx, up,
		t.TicketUID, t.ValidatingAirline, t.PriceCents, t.RouteType); err != nil {
		return err
	}
	// LastInsertId is not reliable on the duplicate-key path; read the
	// row id back by uid.
	const sel = `SELECT id FROM tickets WHERE ticket_uid = ?`
	if err := tx.QueryRowContext(ctx, sel, t.TicketUID).Scan(&t.ID); err != nil {
		return err
	}

	const del = `DELETE FROM flight_segments WHERE ticket_id = ?`
	if _, err := tx.ExecContext(ctx, del, t.ID); err != nil {
		return err
	}
	return r.insertSegmentsTx(ctx, tx, t.ID, t.Segments)
}

// insertSegmentsTx bulk-inserts a ticket's segments in one statement.
// Passing an empty slice has no effect and returns nil.
func (r *TicketRepo) insertSegmentsTx(ctx context.Context, tx *sql.Tx, ticketID uint64, segments []model.FlightSegment) error {
	if len(segments) == 0 {
		return nil
	}
	query := `INSERT INTO flight_segments
	          (ticket_id, operating_airline, departure, departure_at, arrival, arrival_at, seq) VALUES `
	args := make([]interface{}, 0, len(segments)*7)
	for i, s := range segments {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?, ?, ?)"
		args = append(args, ticketID, s.OperatingAirline,
			s.Departure, s.DepartureAt.UTC(), s.Arrival, s.ArrivalAt.UTC(), s.Order)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// ListRecent returns the most recently refreshed tickets with their
// segments, newest first. Segments for all returned tickets are loaded
// in a single query and stitched in by ticket id.
func (r *TicketRepo) ListRecent(ctx context.Context, limit int) ([]model.Ticket, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, ticket_uid, validating_airline, price_cents, route_type, created_at, updated_at
	           FROM tickets
	           ORDER BY updated_at DESC
	           LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tickets := make([]model.Ticket, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var t model.Ticket
		if err := rows.Scan(&t.ID, &t.TicketUID, &t.ValidatingAirline,
			&t.PriceCents, &t.RouteType, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.Segments = []model.FlightSegment{}
		index[t.ID] = len(tickets)
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return tickets, nil
	}

	ids := make([]interface{}, 0, len(tickets))
	placeholders := make([]string, 0, len(tickets))
	for _, t := range tickets {
		ids = append(ids, t.ID)
		placeholders = append(placeholders, "?")
	}
	segQuery := `SELECT id, ticket_id, operating_airline, departure, departure_at, arrival, arrival_at, seq
	             FROM flight_segments
	             WHERE ticket_id IN (` + strings.Join(placeholders, ",") + `)
	             ORDER BY ticket_id, seq`
	srows, err := r.db.QueryContext(ctx, segQuery, ids...)
	if err != nil {
		return nil, err
	}
	defer srows.Close()
	for srows.Next() {
		var s model.FlightSegment
		if err := srows.Scan(&s.ID, &s.TicketID, &s.OperatingAirline,
			&s.Departure, &s.DepartureAt, &s.Arrival, &s.ArrivalAt, &s.Order); err != nil {
			return nil, err
		}
		idx, ok := index[s.TicketID]
		if !ok {
			continue
		}
		tickets[idx].Segments = append(tickets[idx].Segments, s)
	}
	if err := srows.Err(); err != nil {
		return nil, err
	}
	return tickets, nil
}
