package config

import "time"

// ScraperConfig carries the browser pipeline knobs plus the TTLs of the
// surrounding search machinery (result cache, per-requester lock).
type ScraperConfig struct {
	BaseURL        string        // fare site root, no trailing slash
	Headless       bool          // run Chrome headless
	ContentTimeout time.Duration // bound on waiting for the result list
	PollInterval   time.Duration // pace of in-page observations
	ScrollRetries  int           // no-change rounds before scrolling settles
	ExpandTimeout  time.Duration // bound on the card expansion phase
	BatchSize      int           // cards extracted per goroutine batch
	SearchTimeout  time.Duration // overall bound on one search request
	CacheTTL       time.Duration // search result cache lifetime
	LockTTL        time.Duration // per-requester lock expiry
}

// LoadScraperConfig reads scraper settings from the environment with
// defaults tuned for the fare site. Only the base URL is required.
func LoadScraperConfig() ScraperConfig {
	return ScraperConfig{
		BaseURL:        must("SCRAPER_BASE_URL"),
		Headless:       envBool("SCRAPER_HEADLESS", true),
		ContentTimeout: envDur("SCRAPER_CONTENT_TIMEOUT", 45*time.Second),
		PollInterval:   envDur("SCRAPER_POLL_INTERVAL", time.Second),
		ScrollRetries:  envInt("SCRAPER_SCROLL_RETRIES", 3),
		ExpandTimeout:  envDur("SCRAPER_EXPAND_TIMEOUT", 15*time.Second),
		BatchSize:      envInt("SCRAPER_BATCH_SIZE", 25),
		SearchTimeout:  envDur("SEARCH_TIMEOUT", 2*time.Minute),
		CacheTTL:       envDur("SEARCH_CACHE_TTL", 30*time.Minute),
		LockTTL:        envDur("SEARCH_LOCK_TTL", 60*time.Second),
	}
}
