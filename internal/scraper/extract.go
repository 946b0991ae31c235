package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
)

// maxBatchSize bounds the number of concurrent in-page reads. The tab
// serves evaluations serially underneath; wider batches than this make
// it unresponsive.
const maxBatchSize = 25

// RawTicket is the untyped per-card extraction result, shaped exactly as
// the in-page script returns it. Coercion into typed entities happens in
// the assembler.
type RawTicket struct {
	TicketUID         string       `json:"ticket_uid"`
	ValidatingAirline string       `json:"validating_airline"`
	PriceText         string       `json:"price_text"`
	Segments          []RawSegment `json:"segments"`
}

// RawSegment carries one flight's captured text fields. Dates are group
// headers ("Sat, Feb 1, 2026"), times are per-flight ("10:30 AM").
type RawSegment struct {
	OperatingAirline string `json:"operating_airline"`
	Departure        string `json:"departure"`
	DepartureDate    string `json:"departure_date"`
	DepartureTime    string `json:"departure_time"`
	Arrival          string `json:"arrival"`
	ArrivalDate      string `json:"arrival_date"`
	ArrivalTime      string `json:"arrival_time"`
}

// extractCardScript reads one expanded card by index. Flight blocks
// without a __wrap element are layover fillers and are skipped. The
// departure date comes from the enclosing group's title, the arrival
// date from the group's "Arrives:" summary line.
const extractCardScript = `((i) => {
	const card = document.querySelectorAll('.ticket:not(.ticket--placeholder)')[i];
	if (!card) return null;
	const text = (root, sel) => {
		const el = root.querySelector(sel);
		return el ? el.textContent.trim() : '';
	};
	const uidRaw = text(card, '.ticket-details__trip');
	const out = {
		ticket_uid: uidRaw.replace('Ticket ID', '').split('Share')[0].trim(),
		validating_airline: text(card, '.ticket__airlines-name'),
		price_text: text(card, '.ticket__total-price span'),
		segments: []
	};
	for (const group of card.querySelectorAll('.ticket-details-group')) {
		const depDate = text(group, '.ticket-details-group__title-date');
		let arrDate = '';
		for (const item of group.querySelectorAll('.ticket-details-group__summary-item')) {
			if (item.textContent.includes('Arrives:')) {
				arrDate = item.textContent.replace('Arrives:', '').trim();
			}
		}
		for (const flight of group.querySelectorAll('.ticket-details-flight')) {
			if (!flight.querySelector('.ticket-details-flight__wrap')) continue;
			const airlineEl = flight.querySelector(
				".ticket-details-flight__airlines:not([class*='mobile']) b");
			const airports = flight.querySelectorAll('.ticket-details-flight__airport');
			const times = flight.querySelectorAll('.ticket-details-flight__time');
			out.segments.push({
				operating_airline: airlineEl ? airlineEl.textContent.trim() : '',
				departure: airports.length ? airports[0].textContent.trim() : '',
				departure_date: depDate,
				departure_time: times.length ? times[0].textContent.trim() : '',
				arrival: airports.length ? airports[airports.length - 1].textContent.trim() : '',
				arrival_date: arrDate,
				arrival_time: times.length ? times[times.length - 1].textContent.trim() : ''
			});
		}
	}
	return out;
})(%d)`

// ExtractAll reads every loaded card in fixed-size batches. Cards within
// a batch are read concurrently and the whole batch is awaited before
// the next one starts; result order across a batch is not guaranteed. A
// card that fails to extract is dropped and counted, never fatal.
func ExtractAll(ctx context.Context, drv Driver, total, batchSize int) ([]RawTicket, int) {
	if batchSize <= 0 || batchSize > maxBatchSize {
		batchSize = maxBatchSize
	}
	var (
		mu      sync.Mutex
		tickets = make([]RawTicket, 0, total)
		dropped int
	)
	for start := 0; start < total; start += batchSize {
		end := start + batchSize
		if end > total {
			end = total
		}
		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				raw, err := extractCard(ctx, drv, idx)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					dropped++
					log.Printf("scraper: card %d dropped: %v", idx, err)
					return
				}
				tickets = append(tickets, raw)
			}(i)
		}
		wg.Wait()
		if ctx.Err() != nil {
			return tickets, dropped
		}
	}
	return tickets, dropped
}

func extractCard(ctx context.Context, drv Driver, idx int) (RawTicket, error) {
	var raw *RawTicket
	if err := drv.Evaluate(ctx, fmt.Sprintf(extractCardScript, idx), &raw); err != nil {
		return RawTicket{}, err
	}
	if raw == nil {
		return RawTicket{}, fmt.Errorf("card %d not in document", idx)
	}
	if raw.TicketUID == "" {
		return RawTicket{}, errors.New("missing ticket uid")
	}
	return *raw, nil
}
