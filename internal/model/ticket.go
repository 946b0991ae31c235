package model

import "time"

// Ticket is one priced fare offer scraped from the fare site, identified
// by the provider-issued uid. A ticket owns its segments exclusively:
// every successful re-scrape of the same uid replaces the whole segment
// set, never patches it.
//
// Price is kept in integer cents; it is always the price captured from
// the card, never derived from segments.
type Ticket struct {
	ID                uint64          `json:"-"`
	TicketUID         string          `json:"ticket_uid"`
	ValidatingAirline string          `json:"validating_airline"`
	PriceCents        uint64          `json:"price_cents"`
	RouteType         string          `json:"route_type"`
	Segments          []FlightSegment `json:"segments"`
	CreatedAt         time.Time       `json:"-"`
	UpdatedAt         time.Time       `json:"-"`
}

// FlightSegment is one physical flight within a ticket's itinerary.
// Order is the zero-based position within the ticket as extracted;
// values are unique per ticket.
type FlightSegment struct {
	ID               uint64    `json:"-"`
	TicketID         uint64    `json:"-"`
	OperatingAirline string    `json:"operating_airline"`
	Departure        string    `json:"departure"`
	DepartureAt      time.Time `json:"departure_datetime"`
	Arrival          string    `json:"arrival"`
	ArrivalAt        time.Time `json:"arrival_datetime"`
	Order            int       `json:"order"`
}
