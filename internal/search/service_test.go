package search

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rvetrov/flight-fare-search/internal/model"
	"github.com/rvetrov/flight-fare-search/internal/queue"
)

// ----- fakes -----

type fakeGate struct {
	mu       sync.Mutex
	held     map[string]bool
	acquires int
	releases int
	denyAll  bool
}

func newFakeGate() *fakeGate { return &fakeGate{held: map[string]bool{}} }

func (g *fakeGate) Acquire(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acquires++
	if g.denyAll || g.held[id] {
		return false, nil
	}
	g.held[id] = true
	return true, nil
}

func (g *fakeGate) Release(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.releases++
	delete(g.held, id)
	return nil
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = payload
	return nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

type fakeScraper struct {
	tickets []model.Ticket
	dropped int
	err     error
	calls   int
}

func (f *fakeScraper) Scrape(ctx context.Context, req model.SearchRequest) ([]model.Ticket, int, error) {
	f.calls++
	return f.tickets, f.dropped, f.err
}

type fakeTicketStore struct {
	batches [][]model.Ticket
	err     error
}

func (f *fakeTicketStore) UpsertBatch(ctx context.Context, tickets []model.Ticket) error {
	f.batches = append(f.batches, tickets)
	return f.err
}

// ----- helpers -----

func oneWayReq() model.SearchRequest {
	return model.SearchRequest{
		Legs:   []model.Leg{{Origin: "jfk", Destination: "lhr", Date: "2026-02-01"}},
		Adults: 1,
	}
}

func sampleTickets() []model.Ticket {
	return []model.Ticket{{
		TicketUID:         "T-1",
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
	}}
}

type env struct {
	gate    *fakeGate
	store   *memStore
	tickets *fakeTicketStore
	scraper *fakeScraper
	events  []queue.SearchCompletedEvent
	svc     *Service
}

func newEnv(scr *fakeScraper) *env {
	e := &env{
		gate:    newFakeGate(),
		store:   newMemStore(),
		tickets: &fakeTicketStore{},
		scraper: scr,
	}
	e.svc = NewService(e.gate, e.store, e.tickets, e.scraper, time.Minute,
		func(ctx context.Context, ev queue.SearchCompletedEvent) error {
			e.events = append(e.events, ev)
			return nil
		})
	return e
}

// ----- tests -----

func TestSearchHappyPath(t *testing.T) {
	e := newEnv(&fakeScraper{tickets: sampleTickets(), dropped: 2})

	res, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 1)
	assert.Equal(t, 2, res.DroppedCards)
	assert.False(t, res.NoResults)
	assert.False(t, res.CacheHit)

	// Persisted, cached, lock released, event published.
	require.Len(t, e.tickets.batches, 1)
	assert.Equal(t, 1, e.store.len())
	assert.Equal(t, 1, e.gate.releases)
	require.Len(t, e.events, 1)
	assert.Equal(t, "user:1", e.events[0].RequesterID)
	assert.Equal(t, "one-way", e.events[0].TripType)
	assert.Equal(t, 1, e.events[0].TicketCount)
}

func TestSearchValidationBeforeLock(t *testing.T) {
	e := newEnv(&fakeScraper{})
	req := oneWayReq()
	req.Legs = nil

	_, err := e.svc.Search(context.Background(), "user:1", req)
	assert.ErrorIs(t, err, model.ErrNoLegs)
	// An invalid request never touches the gate.
	assert.Zero(t, e.gate.acquires)
}

func TestSearchAlreadyInProgress(t *testing.T) {
	e := newEnv(&fakeScraper{tickets: sampleTickets()})
	e.gate.denyAll = true

	_, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	assert.ErrorIs(t, err, ErrAlreadyInProgress)
	// The lock was never ours, so it must not be released.
	assert.Zero(t, e.gate.releases)
	assert.Zero(t, e.scraper.calls)
}

func TestSearchCacheHitSkipsScraper(t *testing.T) {
	scr := &fakeScraper{tickets: sampleTickets()}
	e := newEnv(scr)

	first, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	require.False(t, first.CacheHit)

	second, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, first.Tickets, second.Tickets)
	assert.Equal(t, 1, scr.calls)
	// Both runs acquired and released the lock.
	assert.Equal(t, 2, e.gate.releases)
}

func TestSearchEquivalentRequestsShareCache(t *testing.T) {
	scr := &fakeScraper{tickets: sampleTickets()}
	e := newEnv(scr)

	_, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)

	// Same trip written differently: lower-case codes, US date format.
	alt := model.SearchRequest{
		Legs:   []model.Leg{{Origin: "JFK", Destination: "LHR", Date: "02/01/2026"}},
		Adults: 1,
		Cabin:  "c",
	}
	res, err := e.svc.Search(context.Background(), "user:2", alt)
	require.NoError(t, err)
	assert.True(t, res.CacheHit)
	assert.Equal(t, 1, scr.calls)
}

func TestSearchNoResultsCached(t *testing.T) {
	scr := &fakeScraper{}
	e := newEnv(scr)

	res, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	assert.True(t, res.NoResults)
	assert.NotNil(t, res.Tickets)
	assert.Empty(t, res.Tickets)
	// Nothing to persist, but the outcome is cached.
	assert.Empty(t, e.tickets.batches)
	assert.Equal(t, 1, e.store.len())

	second, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.True(t, second.NoResults)
	assert.Equal(t, 1, scr.calls)
}

func TestSearchErrorNotCachedAndLockReleased(t *testing.T) {
	scrapeErr := errors.New("browser crashed")
	e := newEnv(&fakeScraper{err: scrapeErr})

	_, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	assert.ErrorIs(t, err, scrapeErr)
	assert.Zero(t, e.store.len())
	assert.Equal(t, 1, e.gate.releases)
	assert.Empty(t, e.events)
}

func TestSearchPersistFailureStillServed(t *testing.T) {
	e := newEnv(&fakeScraper{tickets: sampleTickets()})
	e.tickets.err = errors.New("deadlock")

	res, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	assert.Len(t, res.Tickets, 1)
	// The result is still cached even though persistence failed.
	assert.Equal(t, 1, e.store.len())
}

func TestSearchCorruptCacheEntryDropped(t *testing.T) {
	scr := &fakeScraper{tickets: sampleTickets()}
	e := newEnv(scr)

	// Run once to learn the key, then poison it.
	_, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	var key string
	e.store.mu.Lock()
	for k := range e.store.data {
		key = k
	}
	e.store.data[key] = []byte("{not json")
	e.store.mu.Unlock()

	res, err := e.svc.Search(context.Background(), "user:1", oneWayReq())
	require.NoError(t, err)
	assert.False(t, res.CacheHit)
	assert.Equal(t, 2, scr.calls)

	// The corrupt entry was replaced with a fresh one.
	data, ok := e.store.Get(context.Background(), key)
	require.True(t, ok)
	var cached Result
	assert.NoError(t, json.Unmarshal(data, &cached))
}
