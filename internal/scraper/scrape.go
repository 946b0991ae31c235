// Package scraper drives the fare site's result page through a headless
// browser and turns its ticket cards into typed entities. The site has
// no API: results exist only as a lazily loaded, progressively expanded
// DOM, so the pipeline is navigate → await → scroll → expand → extract.
package scraper

import (
	"context"
	"fmt"

	"github.com/rvetrov/flight-fare-search/internal/config"
	"github.com/rvetrov/flight-fare-search/internal/model"
)

// Scraper runs the browser pipeline end to end. Every search gets a
// fresh browser session, closed on all exit paths; no browser state is
// shared between searches.
type Scraper struct {
	cfg       config.ScraperConfig
	newDriver func(ctx context.Context) (Driver, error)
}

func New(cfg config.ScraperConfig) *Scraper {
	return &Scraper{
		cfg: cfg,
		newDriver: func(ctx context.Context) (Driver, error) {
			return NewChromeDriver(ctx, cfg.Headless)
		},
	}
}

// Scrape performs one search and returns the assembled tickets together
// with the number of cards that were dropped or skipped along the way.
// An empty ticket slice with a nil error is the explicit no-results
// outcome.
func (s *Scraper) Scrape(ctx context.Context, req model.SearchRequest) ([]model.Ticket, int, error) {
	searchURL, err := BuildSearchURL(s.cfg.BaseURL, req)
	if err != nil {
		return nil, 0, err
	}

	drv, err := s.newDriver(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("start browser: %w", err)
	}
	defer func() { _ = drv.Close() }()

	sess := NewSession(drv, SessionConfig{
		BaseURL:        s.cfg.BaseURL,
		ContentTimeout: s.cfg.ContentTimeout,
		PollInterval:   s.cfg.PollInterval,
		ScrollRetries:  s.cfg.ScrollRetries,
		ExpandTimeout:  s.cfg.ExpandTimeout,
	})
	count, err := sess.Load(ctx, searchURL)
	if err != nil {
		return nil, 0, err
	}
	if count == 0 {
		return nil, 0, nil
	}

	raws, droppedCards := ExtractAll(ctx, drv, count, s.cfg.BatchSize)
	if err := ctx.Err(); err != nil {
		// Overall timeout hit mid-extraction: discard partial results.
		return nil, 0, err
	}

	tickets, skipped := AssembleTickets(raws, ClassifyTrip(req.Legs))
	return tickets, droppedCards + skipped, nil
}
