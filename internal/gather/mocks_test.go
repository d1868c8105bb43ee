package gather

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"pharos/internal/config"
	"pharos/internal/netlog"
)

// mockDriver implements driver.Driver with scriptable navigation results and
// call accounting.
type mockDriver struct {
	mu sync.Mutex

	online    bool
	userAgent string

	// finalURLs maps a requested URL to the post-redirect URL.
	finalURLs map[string]string
	// logQueue is popped once per EndLogCapture; when empty, a log
	// containing a successful document request for the last loaded URL is
	// synthesized.
	logQueue []netlog.DevtoolsLog

	connects       int
	disconnects    int
	disconnectErr  error
	navigations    []string
	waitedFor      []string
	blockedSets    [][]string
	headerSets     []map[string]string
	throttleCalls  []bool
	cacheCleans    int
	clearedOrigins []string
	capturing      bool
	tracing        bool
	lastLoaded     string
	evalResult     json.RawMessage
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		online:    true,
		userAgent: "Mozilla/5.0 Chrome/70.0.3538.77",
		finalURLs: map[string]string{},
	}
}

// docRequestLog builds a protocol log whose only entry is a finished document
// request for url.
func docRequestLog(url string) netlog.DevtoolsLog {
	return netlog.DevtoolsLog{
		{
			Method: "Network.requestWillBeSent",
			Params: json.RawMessage(fmt.Sprintf(
				`{"requestId":"1","documentURL":%q,"type":"Document","request":{"url":%q}}`, url, url)),
		},
		{
			Method: "Network.responseReceived",
			Params: json.RawMessage(`{"requestId":"1","response":{"status":200,"mimeType":"text/html"}}`),
		},
		{
			Method: "Network.loadingFinished",
			Params: json.RawMessage(`{"requestId":"1"}`),
		},
	}
}

// failedDocRequestLog builds a log whose document request failed.
func failedDocRequestLog(url, reason string) netlog.DevtoolsLog {
	return netlog.DevtoolsLog{
		{
			Method: "Network.requestWillBeSent",
			Params: json.RawMessage(fmt.Sprintf(
				`{"requestId":"1","documentURL":%q,"type":"Document","request":{"url":%q}}`, url, url)),
		},
		{
			Method: "Network.loadingFailed",
			Params: json.RawMessage(fmt.Sprintf(`{"requestId":"1","errorText":%q}`, reason)),
		},
	}
}

func (m *mockDriver) Connect(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connects++
	return nil
}

func (m *mockDriver) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.disconnects++
	return m.disconnectErr
}

func (m *mockDriver) GotoURL(_ context.Context, url string, waitForLoad bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.navigations = append(m.navigations, url)
	if !waitForLoad {
		return url, nil
	}
	m.waitedFor = append(m.waitedFor, url)
	final := url
	if f, ok := m.finalURLs[url]; ok {
		final = f
	}
	m.lastLoaded = final
	return final, nil
}

func (m *mockDriver) AssertNoSameOriginServiceWorkerClients(context.Context, string) error {
	return nil
}

func (m *mockDriver) GetUserAgent(context.Context) (string, error) {
	return m.userAgent, nil
}

func (m *mockDriver) BeginEmulation(context.Context, config.Settings) error { return nil }
func (m *mockDriver) EnableRuntimeEvents(context.Context) error             { return nil }
func (m *mockDriver) CacheNatives(context.Context) error                    { return nil }
func (m *mockDriver) RegisterPerformanceObserver(context.Context) error     { return nil }
func (m *mockDriver) DismissDialogs(context.Context) error                  { return nil }

func (m *mockDriver) ClearDataForOrigin(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearedOrigins = append(m.clearedOrigins, url)
	return nil
}

func (m *mockDriver) BlockURLPatterns(_ context.Context, patterns []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blockedSets = append(m.blockedSets, patterns)
	return nil
}

func (m *mockDriver) SetExtraHeaders(_ context.Context, headers map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headerSets = append(m.headerSets, headers)
	return nil
}

func (m *mockDriver) CleanBrowserCaches(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheCleans++
	return nil
}

func (m *mockDriver) BeginLogCapture(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capturing = true
	return nil
}

func (m *mockDriver) EndLogCapture(context.Context) (netlog.DevtoolsLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.capturing = false
	if len(m.logQueue) > 0 {
		head := m.logQueue[0]
		m.logQueue = m.logQueue[1:]
		return head, nil
	}
	return docRequestLog(m.lastLoaded), nil
}

func (m *mockDriver) BeginTrace(context.Context, config.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracing = true
	return nil
}

func (m *mockDriver) EndTrace(context.Context) (json.RawMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracing = false
	return json.RawMessage(`[{"name":"navigationStart","cat":"blink.user_timing"}]`), nil
}

func (m *mockDriver) SetThrottling(_ context.Context, _ config.Settings, useThrottling bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.throttleCalls = append(m.throttleCalls, useThrottling)
	return nil
}

func (m *mockDriver) Evaluate(context.Context, string) (json.RawMessage, error) {
	if m.evalResult != nil {
		return m.evalResult, nil
	}
	return json.RawMessage(`{}`), nil
}

func (m *mockDriver) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// stubGatherer returns canned values or errors per phase and counts calls.
type stubGatherer struct {
	name string

	beforeVal any
	beforeErr error
	passVal   any
	passErr   error
	afterVal  any
	afterErr  error

	beforeCalls int
	passCalls   int
	afterCalls  int
}

func (s *stubGatherer) Name() string { return s.name }

func (s *stubGatherer) BeforePass(context.Context, *Context) (any, error) {
	s.beforeCalls++
	return s.beforeVal, s.beforeErr
}

func (s *stubGatherer) Pass(context.Context, *Context) (any, error) {
	s.passCalls++
	return s.passVal, s.passErr
}

func (s *stubGatherer) AfterPass(context.Context, *Context, *PassData) (any, error) {
	s.afterCalls++
	return s.afterVal, s.afterErr
}

func bindings(gs ...*stubGatherer) []Binding {
	out := make([]Binding, len(gs))
	for i, g := range gs {
		out[i] = Binding{Gatherer: g}
	}
	return out
}
