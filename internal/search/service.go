// Package search orchestrates one fare search end to end: concurrency
// gate, cache lookup, browser-driven scrape, persistence and cache
// write-back. The gate, cache, scraper and ticket store are injected as
// interfaces so each can be swapped or faked without touching the
// orchestration.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/rvetrov/flight-fare-search/internal/cache"
	"github.com/rvetrov/flight-fare-search/internal/lock"
	"github.com/rvetrov/flight-fare-search/internal/model"
	"github.com/rvetrov/flight-fare-search/internal/queue"
	"github.com/rvetrov/flight-fare-search/internal/scraper"
)

// ErrAlreadyInProgress signals that a scrape for the same requester is
// still running. It is a retry-later condition for the caller, not a
// failure.
var ErrAlreadyInProgress = errors.New("search already in progress")

// Scraper runs one browser-driven scrape: tickets, dropped-card count,
// error. An empty ticket slice with a nil error means the site reported
// no flights.
type Scraper interface {
	Scrape(ctx context.Context, req model.SearchRequest) ([]model.Ticket, int, error)
}

// TicketStore persists one scrape batch transactionally.
type TicketStore interface {
	UpsertBatch(ctx context.Context, tickets []model.Ticket) error
}

// Result is the cacheable outcome of a completed search. CacheHit is
// set per response and deliberately excluded from the cached payload.
type Result struct {
	Tickets      []model.Ticket `json:"tickets"`
	NoResults    bool           `json:"no_results,omitempty"`
	DroppedCards int            `json:"dropped_cards,omitempty"`
	CacheHit     bool           `json:"-"`
}

// Service coordinates the search pipeline.
type Service struct {
	gate     lock.Gate
	store    cache.Store
	tickets  TicketStore
	scraper  Scraper
	cacheTTL time.Duration
	publish  func(ctx context.Context, ev queue.SearchCompletedEvent) error
}

// NewService wires the orchestrator. publish may be nil to disable
// event emission (tests, broker-less deployments).
func NewService(gate lock.Gate, store cache.Store, tickets TicketStore, scr Scraper,
	cacheTTL time.Duration, publish func(context.Context, queue.SearchCompletedEvent) error) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Minute
	}
	return &Service{
		gate:     gate,
		store:    store,
		tickets:  tickets,
		scraper:  scr,
		cacheTTL: cacheTTL,
		publish:  publish,
	}
}

// Search runs one search for the given requester. The request is
// validated and normalized before any lock or cache work; the
// per-requester lock is held for the remainder and released on every
// exit path. Successful outcomes, including the explicit no-results
// one, are cached; failures never are, so the next caller retries.
func (s *Service) Search(ctx context.Context, requesterID string, req model.SearchRequest) (*Result, error) {
	if err := req.Normalize(); err != nil {
		return nil, err
	}

	ok, err := s.gate.Acquire(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyInProgress
	}
	defer func() {
		// Release must survive caller cancellation, or the requester
		// stays locked out until the TTL expires.
		if err := s.gate.Release(context.WithoutCancel(ctx), requesterID); err != nil {
			log.Printf("search: release lock for %s: %v", requesterID, err)
		}
	}()

	key := cache.SearchKey(req)
	if data, hit := s.store.Get(ctx, key); hit {
		var res Result
		if err := json.Unmarshal(data, &res); err == nil {
			res.CacheHit = true
			return &res, nil
		}
		log.Printf("search: dropping corrupt cache entry %s", key)
		_ = s.store.Delete(ctx, key)
	}

	started := time.Now()
	tickets, dropped, err := s.scraper.Scrape(ctx, req)
	if err != nil {
		return nil, err
	}

	res := &Result{Tickets: tickets, DroppedCards: dropped}
	if len(tickets) == 0 {
		res.Tickets = []model.Ticket{}
		res.NoResults = true
	} else if err := s.tickets.UpsertBatch(ctx, tickets); err != nil {
		// Persistence is a side effect, not the deliverable: the whole
		// batch rolled back, but the scrape result is still served and
		// cached.
		log.Printf("search: persist batch of %d tickets: %v", len(tickets), err)
	}

	if data, err := json.Marshal(res); err == nil {
		if err := s.store.Set(ctx, key, data, s.cacheTTL); err != nil {
			log.Printf("search: cache write: %v", err)
		}
	}

	if s.publish != nil {
		_ = s.publish(ctx, queue.SearchCompletedEvent{
			RequesterID:  requesterID,
			TripType:     string(scraper.ClassifyTrip(req.Legs)),
			TicketCount:  len(tickets),
			DroppedCards: dropped,
			DurationMs:   time.Since(started).Milliseconds(),
			CompletedAt:  time.Now().UTC().Format(time.RFC3339),
		})
	}
	return res, nil
}
