// Package driver exposes the browser control surface the gather engine
// depends on. The production implementation speaks the devtools protocol via
// rod; tests substitute the interface.
package driver

import (
	"context"
	"encoding/json"

	"pharos/internal/config"
	"pharos/internal/netlog"
)

// Driver is the protocol-level browser facade. Implementations own exactly
// one page for the lifetime of a connection. Hooks that block accept a
// context; the engine never calls them concurrently.
type Driver interface {
	Connect(ctx context.Context) error
	Disconnect() error

	// GotoURL navigates the page. When waitForLoad is set it blocks until
	// the document's load event, and returns the final URL after any
	// redirects. Without waitForLoad the navigation is fire-and-forget.
	GotoURL(ctx context.Context, url string, waitForLoad bool) (string, error)

	AssertNoSameOriginServiceWorkerClients(ctx context.Context, pageURL string) error
	GetUserAgent(ctx context.Context) (string, error)
	BeginEmulation(ctx context.Context, settings config.Settings) error
	EnableRuntimeEvents(ctx context.Context) error
	CacheNatives(ctx context.Context) error
	RegisterPerformanceObserver(ctx context.Context) error
	DismissDialogs(ctx context.Context) error
	ClearDataForOrigin(ctx context.Context, pageURL string) error

	BlockURLPatterns(ctx context.Context, patterns []string) error
	SetExtraHeaders(ctx context.Context, headers map[string]string) error
	CleanBrowserCaches(ctx context.Context) error

	BeginLogCapture(ctx context.Context) error
	EndLogCapture(ctx context.Context) (netlog.DevtoolsLog, error)
	BeginTrace(ctx context.Context, settings config.Settings) error
	EndTrace(ctx context.Context) (json.RawMessage, error)

	// SetThrottling applies the settings' throttling parameters when
	// useThrottling is set, and clears all throttling otherwise.
	SetThrottling(ctx context.Context, settings config.Settings, useThrottling bool) error

	// Evaluate runs a JS function expression in the page and returns its
	// JSON-encoded result.
	Evaluate(ctx context.Context, expression string) (json.RawMessage, error)

	// Online reports whether the emulated network is up. An offline page
	// load failing is expected, not anomalous.
	Online() bool
}
