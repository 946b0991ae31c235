package scraper

import (
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rvetrov/flight-fare-search/internal/model"
)

// segmentTimeLayout matches the site's group header plus flight time,
// e.g. "Sat, Feb 1, 2026 10:30 AM".
const segmentTimeLayout = "Mon, Jan 2, 2006 3:04 PM"

// AssembleTickets coerces raw card data into typed tickets tagged with
// the stored route type. A ticket that fails required-field coercion is
// skipped and counted; one malformed card never aborts the batch.
func AssembleTickets(raws []RawTicket, trip model.TripType) ([]model.Ticket, int) {
	tickets := make([]model.Ticket, 0, len(raws))
	skipped := 0
	for _, raw := range raws {
		t, err := assembleTicket(raw, trip)
		if err != nil {
			skipped++
			log.Printf("scraper: ticket %q skipped: %v", raw.TicketUID, err)
			continue
		}
		tickets = append(tickets, t)
	}
	return tickets, skipped
}

func assembleTicket(raw RawTicket, trip model.TripType) (model.Ticket, error) {
	if raw.TicketUID == "" {
		return model.Ticket{}, errors.New("missing ticket uid")
	}
	cents, err := ParsePriceCents(raw.PriceText)
	if err != nil {
		return model.Ticket{}, fmt.Errorf("price: %w", err)
	}
	if len(raw.Segments) == 0 {
		return model.Ticket{}, errors.New("no segments")
	}
	segments := make([]model.FlightSegment, 0, len(raw.Segments))
	for i, rs := range raw.Segments {
		seg, err := assembleSegment(rs, i)
		if err != nil {
			return model.Ticket{}, fmt.Errorf("segment %d: %w", i, err)
		}
		segments = append(segments, seg)
	}
	return model.Ticket{
		TicketUID:         raw.TicketUID,
		ValidatingAirline: strings.TrimSpace(raw.ValidatingAirline),
		PriceCents:        cents,
		RouteType:         trip.RouteType(),
		Segments:          segments,
	}, nil
}

func assembleSegment(rs RawSegment, order int) (model.FlightSegment, error) {
	departure, err := airportCode(rs.Departure)
	if err != nil {
		return model.FlightSegment{}, err
	}
	arrival, err := airportCode(rs.Arrival)
	if err != nil {
		return model.FlightSegment{}, err
	}
	departureAt, err := parseSegmentTime(rs.DepartureDate, rs.DepartureTime)
	if err != nil {
		return model.FlightSegment{}, err
	}
	arrivalAt, err := parseSegmentTime(rs.ArrivalDate, rs.ArrivalTime)
	if err != nil {
		return model.FlightSegment{}, err
	}
	return model.FlightSegment{
		OperatingAirline: airlineName(rs.OperatingAirline),
		Departure:        departure,
		DepartureAt:      departureAt,
		Arrival:          arrival,
		ArrivalAt:        arrivalAt,
		Order:            order,
	}, nil
}

// ParsePriceCents converts captured price text like "$1,234.56" into
// integer cents.
func ParsePriceCents(s string) (uint64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(strings.ReplaceAll(s, "$", ""), ",", ""))
	if s == "" {
		return 0, errors.New("empty price text")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("unparsable price text %q", s)
	}
	return uint64(math.Round(v * 100)), nil
}

// airportCode pulls the IATA code out of captured airport text. Cards
// show "City Name (JFK)"; a bare three-letter code is accepted too.
func airportCode(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) >= 5 && strings.HasSuffix(s, ")") && s[len(s)-5] == '(' {
		return strings.ToUpper(s[len(s)-4 : len(s)-1]), nil
	}
	if len(s) == 3 {
		return strings.ToUpper(s), nil
	}
	return "", fmt.Errorf("no airport code in %q", s)
}

// airlineName strips the trailing flight number from captured text like
// "Lufthansa LH401".
func airlineName(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, ' '); i > 0 {
		return s[:i]
	}
	return s
}

func parseSegmentTime(date, clock string) (time.Time, error) {
	raw := strings.TrimSpace(date) + " " + strings.TrimSpace(clock)
	t, err := time.Parse(segmentTimeLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("unrecognized datetime %q", raw)
	}
	return t, nil
}
