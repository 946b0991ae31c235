package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSessionConfig() SessionConfig {
	return SessionConfig{
		BaseURL:        "https://fares.example.com",
		ContentTimeout: time.Second,
		PollInterval:   time.Millisecond,
		ScrollRetries:  3,
		ExpandTimeout:  100 * time.Millisecond,
	}
}

func TestSessionLoadReady(t *testing.T) {
	drv := &fakeDriver{
		contentStates:   []string{"", "", "done"},
		counts:          []int{5, 5, 5, 5},
		expandTriggered: 5,
	}
	sess := NewSession(drv, testSessionConfig())

	count, err := sess.Load(context.Background(), "https://fares.example.com/result/one-way/JFK-LHR/2026-02-01/Y/1:0:0")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, PhaseReady, sess.Phase())

	// Warm-up hit on the site root happens before the result page.
	require.Len(t, drv.navigated, 2)
	assert.Equal(t, "https://fares.example.com", drv.navigated[0])
	assert.Contains(t, drv.navigated[1], "/result/")
}

func TestSessionLoadEmpty(t *testing.T) {
	drv := &fakeDriver{contentStates: []string{"empty"}}
	sess := NewSession(drv, testSessionConfig())

	count, err := sess.Load(context.Background(), "https://fares.example.com/result/x")
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, PhaseEmpty, sess.Phase())
}

func TestSessionLoadContentTimeout(t *testing.T) {
	drv := &fakeDriver{contentStates: []string{""}}
	cfg := testSessionConfig()
	cfg.ContentTimeout = 10 * time.Millisecond
	sess := NewSession(drv, cfg)

	_, err := sess.Load(context.Background(), "https://fares.example.com/result/x")
	assert.ErrorIs(t, err, ErrContentTimeout)
	assert.Equal(t, PhaseTimedOut, sess.Phase())
}

func TestSessionScrollSettlesAfterGrowth(t *testing.T) {
	// Card count grows once mid-scroll, then holds; settling requires
	// three consecutive unchanged observations.
	drv := &fakeDriver{
		contentStates:   []string{"done"},
		counts:          []int{3, 6, 6, 6, 6},
		expandTriggered: 6,
	}
	sess := NewSession(drv, testSessionConfig())

	count, err := sess.Load(context.Background(), "https://fares.example.com/result/x")
	require.NoError(t, err)
	assert.Equal(t, 6, count)
}

func TestSessionScrollObservationsPaced(t *testing.T) {
	// Content is ready on the first poll, leaving the limiter untouched
	// before scrolling starts. Settling takes four scroll rounds; each
	// card count must wait out a full poll interval after its scroll,
	// the first one included.
	drv := &fakeDriver{
		contentStates:   []string{"done"},
		counts:          []int{4, 4, 4, 4},
		expandTriggered: 4,
	}
	cfg := testSessionConfig()
	cfg.PollInterval = 25 * time.Millisecond
	sess := NewSession(drv, cfg)

	started := time.Now()
	count, err := sess.Load(context.Background(), "https://fares.example.com/result/x")
	require.NoError(t, err)
	assert.Equal(t, 4, count)
	assert.GreaterOrEqual(t, time.Since(started), 4*cfg.PollInterval-5*time.Millisecond)
}

func TestSessionExpandToleratesPartial(t *testing.T) {
	// Only 3 of 5 cards ever open; the session logs and moves on instead
	// of failing.
	drv := &fakeDriver{
		contentStates:   []string{"done"},
		counts:          []int{5, 5, 5, 5},
		expandTriggered: 5,
		expandedCounts:  []int{3},
	}
	cfg := testSessionConfig()
	cfg.ExpandTimeout = 10 * time.Millisecond
	sess := NewSession(drv, cfg)

	count, err := sess.Load(context.Background(), "https://fares.example.com/result/x")
	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, PhaseReady, sess.Phase())
}
