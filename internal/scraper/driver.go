package scraper

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
)

// Driver is the narrow browser contract the pipeline needs: navigation,
// scripted in-page evaluation and element counting. The chromedp
// implementation drives a headless Chrome; the state machine and the
// extractor are written against this interface so they can be exercised
// with a fake in tests.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	// Evaluate runs a JS expression in the page and unmarshals its JSON
	// result into out.
	Evaluate(ctx context.Context, expr string, out any) error
	Count(ctx context.Context, selector string) (int, error)
	Close() error
}

// ChromeDriver owns one Chrome process and one browser tab. A driver is
// created per search and must be closed on every exit path; nothing is
// shared across searches.
type ChromeDriver struct {
	browserCtx   context.Context
	cancelBrowse context.CancelFunc
	cancelAlloc  context.CancelFunc
}

// NewChromeDriver launches a Chrome instance. The parent context bounds
// the lifetime of the whole browser session.
func NewChromeDriver(parent context.Context, headless bool) (*ChromeDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(parent, opts...)
	browserCtx, cancelBrowse := chromedp.NewContext(allocCtx)

	// Start the process eagerly so launch failures surface here instead
	// of on the first navigation.
	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowse()
		cancelAlloc()
		return nil, err
	}
	return &ChromeDriver{
		browserCtx:   browserCtx,
		cancelBrowse: cancelBrowse,
		cancelAlloc:  cancelAlloc,
	}, nil
}

// run executes chromedp actions against the session tab, honoring both
// the caller's deadline and its cancellation.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := runContext(d.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// runContext derives the context one chromedp run executes under: a
// child of the browser context that also observes the caller's deadline
// and cancellation. chromedp requires its own context chain, so the
// caller's signals are forwarded into it rather than inherited.
func runContext(browserCtx, caller context.Context) (context.Context, context.CancelFunc) {
	runCtx, cancel := context.WithCancel(browserCtx)
	if deadline, ok := caller.Deadline(); ok {
		inner := cancel
		var cancelDl context.CancelFunc
		runCtx, cancelDl = context.WithDeadline(runCtx, deadline)
		cancel = func() { cancelDl(); inner() }
	}
	stop := context.AfterFunc(caller, cancel)
	final := cancel
	return runCtx, func() { stop(); final() }
}

func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (d *ChromeDriver) Evaluate(ctx context.Context, expr string, out any) error {
	return d.run(ctx, chromedp.Evaluate(expr, out))
}

func (d *ChromeDriver) Count(ctx context.Context, selector string) (int, error) {
	var n int
	expr := fmt.Sprintf("document.querySelectorAll(%q).length", selector)
	if err := d.run(ctx, chromedp.Evaluate(expr, &n)); err != nil {
		return 0, err
	}
	return n, nil
}

func (d *ChromeDriver) Close() error {
	d.cancelBrowse()
	d.cancelAlloc()
	return nil
}
