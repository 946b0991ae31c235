package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitDone(t *testing.T, ctx context.Context, msg string) {
	t.Helper()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal(msg)
	}
}

func TestRunContextCallerCancellation(t *testing.T) {
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	runCtx, cancel := runContext(context.Background(), caller)
	defer cancel()

	select {
	case <-runCtx.Done():
		t.Fatal("run context cancelled prematurely")
	default:
	}

	// A client disconnect carries no deadline, only cancellation; it
	// still has to stop the in-flight browser work.
	cancelCaller()
	waitDone(t, runCtx, "caller cancellation did not reach the run context")
}

func TestRunContextCallerDeadline(t *testing.T) {
	caller, cancelCaller := context.WithTimeout(context.Background(), time.Minute)
	defer cancelCaller()

	runCtx, cancel := runContext(context.Background(), caller)
	defer cancel()

	deadline, ok := runCtx.Deadline()
	require.True(t, ok)
	callerDeadline, _ := caller.Deadline()
	assert.False(t, deadline.After(callerDeadline))
}

func TestRunContextBrowserCancellation(t *testing.T) {
	browser, cancelBrowser := context.WithCancel(context.Background())

	runCtx, cancel := runContext(browser, context.Background())
	defer cancel()

	cancelBrowser()
	waitDone(t, runCtx, "browser shutdown did not reach the run context")
}

func TestRunContextReleaseDoesNotCancelBrowser(t *testing.T) {
	browser, cancelBrowser := context.WithCancel(context.Background())
	defer cancelBrowser()

	runCtx, cancel := runContext(browser, context.Background())
	cancel()
	waitDone(t, runCtx, "cancel func did not cancel the run context")
	assert.NoError(t, browser.Err())
}
