package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// fakeDriver scripts browser behavior for session and extractor tests.
// Evaluate dispatches on the expression constants the pipeline uses;
// extract scripts are answered from the cards map by index.
type fakeDriver struct {
	mu sync.Mutex

	navigated []string

	contentStates []string // consumed per poll, last value repeats
	contentIdx    int

	counts   []int // consumed per Count call, last value repeats
	countIdx int

	expandTriggered int
	expandedCounts  []int
	expandedIdx     int

	cards   map[int]*RawTicket
	evalErr error

	closed bool
}

func (d *fakeDriver) Navigate(ctx context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.navigated = append(d.navigated, url)
	return nil
}

func (d *fakeDriver) Evaluate(ctx context.Context, expr string, out any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.evalErr != nil {
		return d.evalErr
	}
	switch expr {
	case contentStateExpr:
		state := ""
		if len(d.contentStates) > 0 {
			i := d.contentIdx
			if i >= len(d.contentStates) {
				i = len(d.contentStates) - 1
			}
			state = d.contentStates[i]
			d.contentIdx++
		}
		return setOut(out, state)
	case dismissConsentExpr:
		return setOut(out, false)
	case disableAnimationsExpr, scrollBottomExpr:
		return setOut(out, true)
	case expandAllExpr:
		return setOut(out, d.expandTriggered)
	case expandedCountExpr:
		n := d.expandTriggered
		if len(d.expandedCounts) > 0 {
			i := d.expandedIdx
			if i >= len(d.expandedCounts) {
				i = len(d.expandedCounts) - 1
			}
			n = d.expandedCounts[i]
			d.expandedIdx++
		}
		return setOut(out, n)
	}
	pos := strings.LastIndex(expr, ")(")
	if pos < 0 {
		return fmt.Errorf("unscripted expression: %s", expr)
	}
	var idx int
	if _, err := fmt.Sscanf(expr[pos:], ")(%d)", &idx); err != nil {
		return fmt.Errorf("unscripted expression: %s", expr)
	}
	return setOut(out, d.cards[idx])
}

func (d *fakeDriver) Count(ctx context.Context, selector string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.counts) == 0 {
		return 0, nil
	}
	i := d.countIdx
	if i >= len(d.counts) {
		i = len(d.counts) - 1
	}
	d.countIdx++
	return d.counts[i], nil
}

func (d *fakeDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}

// setOut mimics chromedp's JSON round trip into the caller's out value.
func setOut(out, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, out)
}
