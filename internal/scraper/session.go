package scraper

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/time/rate"
)

// Phase identifies where the result-page loading pipeline currently is.
// Ready, Empty and TimedOut are terminal.
type Phase string

const (
	PhaseNavigating      Phase = "navigating"
	PhaseAwaitingContent Phase = "awaiting_content"
	PhaseScrolling       Phase = "scrolling"
	PhaseExpanding       Phase = "expanding"
	PhaseReady           Phase = "ready"
	PhaseEmpty           Phase = "empty"
	PhaseTimedOut        Phase = "timed_out"
)

// ErrContentTimeout is returned when the site signals neither completion
// nor emptiness within the content timeout.
var ErrContentTimeout = errors.New("results never finished loading")

// Selectors on the fare site's result page. Cards render as .ticket
// blocks; placeholders are skeleton cards shown while lazy loading.
const (
	selTicket = ".ticket:not(.ticket--placeholder)"
)

// contentStateExpr reports the load state of the result list: "done"
// once the progress bar shows the final "best deals" text, "empty" when
// the nothing-found block rendered, "" while still loading.
const contentStateExpr = `(() => {
	const bar = document.querySelector('.ui-progress-bar');
	if (bar && bar.textContent.includes('You got our best deals')) return 'done';
	if (document.querySelector('.nothing-found')) return 'empty';
	return '';
})()`

// dismissConsentExpr closes the consent overlay when present so it does
// not cover cards. Best effort; returns whether a dialog was dismissed.
const dismissConsentExpr = `(() => {
	const btn = document.querySelector('[data-qa="gdpr-popup_1_close"]');
	if (!btn) return false;
	btn.click();
	return true;
})()`

// disableAnimationsExpr zeroes every CSS transition and animation so the
// detail panels open instantly during the expansion phase.
const disableAnimationsExpr = `(() => {
	const style = document.createElement('style');
	style.textContent = '*, *::before, *::after {' +
		' transition-duration: 0s !important; transition-delay: 0s !important;' +
		' animation-duration: 0s !important; animation-delay: 0s !important; }';
	document.head.appendChild(style);
	return true;
})()`

// scrollBottomExpr triggers another lazy-load round.
const scrollBottomExpr = `(window.scrollTo(0, document.body.scrollHeight), true)`

// expandAllExpr opens every still-collapsed card's detail panel in one
// batch and returns how many clicks were issued.
const expandAllExpr = `(() => {
	const previews = document.querySelectorAll(
		'.ticket:not(.ticket--placeholder):not(.ticket--open) .ticket__preview');
	for (const p of previews) p.click();
	return previews.length;
})()`

// expandedCountExpr counts cards whose detail panel is in the DOM.
const expandedCountExpr = `document.querySelectorAll('.ticket .ticket-details').length`

// SessionConfig carries the timing knobs of one result-page session.
type SessionConfig struct {
	BaseURL        string
	ContentTimeout time.Duration // AwaitingContent bound
	PollInterval   time.Duration // pace of wait/scroll observations
	ScrollRetries  int           // consecutive no-change rounds before settling
	ExpandTimeout  time.Duration // Expanding bound; partial expansion is tolerated
}

// Session drives one browser tab through the phases needed to get every
// result card loaded and expanded: navigate (with a warm-up hit on the
// site root), await content, scroll until the card count settles, then
// batch-expand. The site gives no explicit "done" signal while
// scrolling, hence the bounded-retry settling heuristic.
type Session struct {
	drv   Driver
	cfg   SessionConfig
	phase Phase
	pacer *rate.Limiter
}

func NewSession(drv Driver, cfg SessionConfig) *Session {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if cfg.ScrollRetries <= 0 {
		cfg.ScrollRetries = 3
	}
	if cfg.ContentTimeout <= 0 {
		cfg.ContentTimeout = 45 * time.Second
	}
	if cfg.ExpandTimeout <= 0 {
		cfg.ExpandTimeout = 15 * time.Second
	}
	// One in-page observation per poll interval keeps the tab from
	// being hammered while it is still rendering. The starting burst
	// token is spent up front: every observation, the first included,
	// must trail its triggering action by a full interval.
	pacer := rate.NewLimiter(rate.Every(cfg.PollInterval), 1)
	pacer.Allow()
	return &Session{
		drv:   drv,
		cfg:   cfg,
		phase: PhaseNavigating,
		pacer: pacer,
	}
}

// Phase returns the machine's current phase.
func (s *Session) Phase() Phase { return s.phase }

// Load runs the machine to a terminal phase and returns the number of
// fully loaded result cards. A zero count with a nil error means the
// site reported no flights (phase Empty).
func (s *Session) Load(ctx context.Context, searchURL string) (int, error) {
	s.phase = PhaseNavigating
	if err := s.navigate(ctx, searchURL); err != nil {
		return 0, fmt.Errorf("navigate: %w", err)
	}

	s.phase = PhaseAwaitingContent
	found, err := s.awaitContent(ctx)
	if err != nil {
		if errors.Is(err, ErrContentTimeout) {
			s.phase = PhaseTimedOut
		}
		return 0, err
	}
	if !found {
		s.phase = PhaseEmpty
		return 0, nil
	}

	s.phase = PhaseScrolling
	count, err := s.scrollToEnd(ctx)
	if err != nil {
		return 0, fmt.Errorf("scroll: %w", err)
	}

	s.phase = PhaseExpanding
	if err := s.expandAll(ctx); err != nil {
		return 0, fmt.Errorf("expand: %w", err)
	}

	s.phase = PhaseReady
	return count, nil
}

// navigate warms the session up on the site root (the result page only
// renders with the cookies the root page hands out), goes to the
// search URL and dismisses the consent overlay if one appears.
func (s *Session) navigate(ctx context.Context, searchURL string) error {
	if err := s.drv.Navigate(ctx, s.cfg.BaseURL); err != nil {
		return err
	}
	if err := s.drv.Navigate(ctx, searchURL); err != nil {
		return err
	}
	var dismissed bool
	if err := s.drv.Evaluate(ctx, dismissConsentExpr, &dismissed); err == nil && dismissed {
		log.Printf("scraper: consent dialog dismissed")
	}
	var injected bool
	return s.drv.Evaluate(ctx, disableAnimationsExpr, &injected)
}

// awaitContent blocks until the site signals completion (true) or
// emptiness (false), or the content timeout elapses.
func (s *Session) awaitContent(ctx context.Context) (bool, error) {
	deadline := time.Now().Add(s.cfg.ContentTimeout)
	for {
		var state string
		if err := s.drv.Evaluate(ctx, contentStateExpr, &state); err != nil {
			return false, err
		}
		switch state {
		case "done":
			return true, nil
		case "empty":
			return false, nil
		}
		if time.Now().After(deadline) {
			return false, ErrContentTimeout
		}
		if err := s.pacer.Wait(ctx); err != nil {
			return false, err
		}
	}
}

// scrollToEnd keeps triggering bottom-of-page scrolls until the visible
// card count is unchanged for ScrollRetries consecutive rounds, then
// reports the final count. Cards load lazily with no completion signal,
// so settling is the only reliable stop condition.
func (s *Session) scrollToEnd(ctx context.Context) (int, error) {
	last, unchanged := 0, 0
	for {
		var ok bool
		if err := s.drv.Evaluate(ctx, scrollBottomExpr, &ok); err != nil {
			return 0, err
		}
		if err := s.pacer.Wait(ctx); err != nil {
			return 0, err
		}
		count, err := s.drv.Count(ctx, selTicket)
		if err != nil {
			return 0, err
		}
		if count == last {
			unchanged++
			if unchanged >= s.cfg.ScrollRetries {
				log.Printf("scraper: scroll settled at %d cards", count)
				return count, nil
			}
			continue
		}
		last, unchanged = count, 0
	}
}

// expandAll issues one batch of detail-panel clicks and waits until the
// expanded count catches up, bounded by ExpandTimeout. A partial
// expansion is logged and tolerated; the cards that did open are still
// usable.
func (s *Session) expandAll(ctx context.Context) error {
	var triggered int
	if err := s.drv.Evaluate(ctx, expandAllExpr, &triggered); err != nil {
		return err
	}
	if triggered == 0 {
		return nil
	}
	deadline := time.Now().Add(s.cfg.ExpandTimeout)
	for {
		var expanded int
		if err := s.drv.Evaluate(ctx, expandedCountExpr, &expanded); err != nil {
			return err
		}
		if expanded >= triggered {
			return nil
		}
		if time.Now().After(deadline) {
			log.Printf("scraper: expansion incomplete, %d of %d cards opened", expanded, triggered)
			return nil
		}
		if err := s.pacer.Wait(ctx); err != nil {
			return err
		}
	}
}
