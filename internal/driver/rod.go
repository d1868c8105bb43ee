package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"pharos/internal/config"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// storage types cleared when resetting an origin. Cookies are kept so login
// state survives a run.
const clearedStorageTypes = "appcache,file_systems,shader_cache,service_workers,cache_storage,websql,indexeddb,local_storage"

// trace categories requested for performance passes.
var traceCategories = []string{
	"-*",
	"toplevel",
	"blink.console",
	"blink.user_timing",
	"devtools.timeline",
	"disabled-by-default-devtools.timeline",
	"disabled-by-default-devtools.timeline.frame",
	"disabled-by-default-devtools.screenshot",
	"disabled-by-default-v8.cpu_profiler",
	"loading",
	"v8.execute",
}

// Config holds connection parameters for the rod-backed driver.
type Config struct {
	// DebuggerURL attaches to an already-running browser. When empty a
	// browser is launched.
	DebuggerURL string `yaml:"debugger_url"`
	// Bin overrides the browser binary used by the launcher.
	Bin      string `yaml:"bin"`
	Headless bool   `yaml:"headless"`
}

// Rod drives one browser page over the devtools protocol.
type Rod struct {
	cfg Config
	log *zap.Logger

	mu         sync.Mutex
	browser    *rod.Browser
	page       *rod.Page
	online     bool
	logCapture *eventCapture
	trace      *traceCapture
	clearHdrs  func()
}

// NewRod returns an unconnected driver. A nil logger is replaced with a nop.
func NewRod(cfg Config, log *zap.Logger) *Rod {
	if log == nil {
		log = zap.NewNop()
	}
	return &Rod{cfg: cfg, log: log}
}

// Connect launches or attaches to a browser and opens the session page.
func (d *Rod) Connect(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser != nil {
		return nil
	}

	controlURL := d.cfg.DebuggerURL
	if controlURL == "" {
		l := launcher.New().Headless(d.cfg.Headless)
		if d.cfg.Bin != "" {
			l = l.Bin(d.cfg.Bin)
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("launch browser: %w", err)
		}
		controlURL = u
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = browser.Close()
		return fmt.Errorf("create page: %w", err)
	}

	d.browser = browser
	d.page = page
	d.online = true
	d.log.Debug("browser connected", zap.String("controlURL", controlURL))
	return nil
}

// Disconnect closes the page and browser. Safe to call more than once.
func (d *Rod) Disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.browser == nil {
		return nil
	}
	if d.page != nil {
		_ = d.page.Close()
		d.page = nil
	}
	err := d.browser.Close()
	d.browser = nil
	return err
}

func (d *Rod) currentPage() (*rod.Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.page == nil {
		return nil, errors.New("driver not connected")
	}
	return d.page, nil
}

// GotoURL navigates the session page.
func (d *Rod) GotoURL(ctx context.Context, target string, waitForLoad bool) (string, error) {
	page, err := d.currentPage()
	if err != nil {
		return "", err
	}
	p := page.Context(ctx)
	if err := p.Navigate(target); err != nil {
		return "", fmt.Errorf("navigate %s: %w", target, err)
	}
	if !waitForLoad {
		return target, nil
	}
	if err := p.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait for load of %s: %w", target, err)
	}
	info, err := p.Info()
	if err != nil {
		return "", fmt.Errorf("page info: %w", err)
	}
	return info.URL, nil
}

// AssertNoSameOriginServiceWorkerClients fails when a service worker for the
// target origin is already running; a controlled page would poison the
// measurements of every pass.
func (d *Rod) AssertNoSameOriginServiceWorkerClients(ctx context.Context, pageURL string) error {
	d.mu.Lock()
	browser := d.browser
	d.mu.Unlock()
	if browser == nil {
		return errors.New("driver not connected")
	}
	origin, err := originOf(pageURL)
	if err != nil {
		return err
	}
	res, err := proto.TargetGetTargets{}.Call(browser)
	if err != nil {
		return fmt.Errorf("list targets: %w", err)
	}
	for _, t := range res.TargetInfos {
		if t.Type != "service_worker" {
			continue
		}
		workerOrigin, err := originOf(t.URL)
		if err != nil {
			continue
		}
		if workerOrigin == origin {
			return fmt.Errorf("service worker %s already controls %s", t.URL, origin)
		}
	}
	return nil
}

// GetUserAgent returns the browser's user agent string.
func (d *Rod) GetUserAgent(ctx context.Context) (string, error) {
	d.mu.Lock()
	browser := d.browser
	d.mu.Unlock()
	if browser == nil {
		return "", errors.New("driver not connected")
	}
	v, err := browser.Version()
	if err != nil {
		return "", fmt.Errorf("browser version: %w", err)
	}
	return v.UserAgent, nil
}

// BeginEmulation applies mobile device metrics unless emulation is disabled.
func (d *Rod) BeginEmulation(ctx context.Context, settings config.Settings) error {
	if settings.DisableDeviceEmulation {
		return nil
	}
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             412,
		Height:            660,
		DeviceScaleFactor: 2.625,
		Mobile:            true,
	}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("device metrics: %w", err)
	}
	if err := (proto.EmulationSetTouchEmulationEnabled{Enabled: true}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("touch emulation: %w", err)
	}
	return nil
}

// EnableRuntimeEvents turns on the protocol domains the engine listens to.
func (d *Rod) EnableRuntimeEvents(ctx context.Context) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := (proto.PageEnable{}).Call(p); err != nil {
		return fmt.Errorf("enable page events: %w", err)
	}
	if err := (proto.RuntimeEnable{}).Call(p); err != nil {
		return fmt.Errorf("enable runtime events: %w", err)
	}
	if err := (proto.NetworkEnable{}).Call(p); err != nil {
		return fmt.Errorf("enable network events: %w", err)
	}
	return nil
}

// CacheNatives pins references to native globals before page scripts get a
// chance to clobber them.
func (d *Rod) CacheNatives(ctx context.Context) error {
	return d.addScriptOnNewDocument(ctx, `
		window.__nativePromise = Promise;
		window.__nativeError = Error;
		window.__nativeURL = URL;
		window.__nativePerformance = performance;
	`)
}

// RegisterPerformanceObserver buffers long-task entries from document start
// so analysis-phase gatherers can read them back.
func (d *Rod) RegisterPerformanceObserver(ctx context.Context) error {
	return d.addScriptOnNewDocument(ctx, `
		window.____lastLongTask = window.__nativePerformance.now();
		const observer = new PerformanceObserver(entryList => {
			const entries = entryList.getEntries();
			for (const entry of entries) {
				if (entry.entryType === 'longtask') {
					const taskEnd = entry.startTime + entry.duration;
					window.____lastLongTask = Math.max(window.____lastLongTask, taskEnd);
				}
			}
		});
		observer.observe({entryTypes: ['longtask']});
		window.____observer = observer;
	`)
}

func (d *Rod) addScriptOnNewDocument(ctx context.Context, source string) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	if _, err := (proto.PageAddScriptToEvaluateOnNewDocument{Source: source}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("add script on new document: %w", err)
	}
	return nil
}

// DismissDialogs auto-accepts JavaScript dialogs for the rest of the session
// so a stray alert cannot wedge a pass.
func (d *Rod) DismissDialogs(ctx context.Context) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	go page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		if err := (proto.PageHandleJavaScriptDialog{Accept: true}).Call(page); err != nil {
			d.log.Debug("dismiss dialog failed", zap.Error(err))
		}
	})()
	return nil
}

// ClearDataForOrigin wipes the target origin's storage, keeping cookies.
func (d *Rod) ClearDataForOrigin(ctx context.Context, pageURL string) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	origin, err := originOf(pageURL)
	if err != nil {
		return err
	}
	if err := (proto.StorageClearDataForOrigin{
		Origin:       origin,
		StorageTypes: clearedStorageTypes,
	}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("clear storage for %s: %w", origin, err)
	}
	return nil
}

// BlockURLPatterns re-asserts the blocked pattern set. Blocking state is
// sticky across navigations, so an empty set must still be sent.
func (d *Rod) BlockURLPatterns(ctx context.Context, patterns []string) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	if patterns == nil {
		patterns = []string{}
	}
	if err := (proto.NetworkSetBlockedURLs{Urls: patterns}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("set blocked urls: %w", err)
	}
	return nil
}

// SetExtraHeaders installs additional HTTP headers on every request.
func (d *Rod) SetExtraHeaders(ctx context.Context, headers map[string]string) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.clearHdrs != nil {
		d.clearHdrs()
		d.clearHdrs = nil
	}
	d.mu.Unlock()
	if len(headers) == 0 {
		return nil
	}
	dict := make([]string, 0, len(headers)*2)
	for k, v := range headers {
		dict = append(dict, k, v)
	}
	cleanup, err := page.Context(ctx).SetExtraHeaders(dict)
	if err != nil {
		return fmt.Errorf("set extra headers: %w", err)
	}
	d.mu.Lock()
	d.clearHdrs = cleanup
	d.mu.Unlock()
	return nil
}

// CleanBrowserCaches drops the disk and memory caches.
func (d *Rod) CleanBrowserCaches(ctx context.Context) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	if err := (proto.NetworkClearBrowserCache{}).Call(page.Context(ctx)); err != nil {
		return fmt.Errorf("clear browser cache: %w", err)
	}
	return nil
}

// SetThrottling applies or clears network and CPU throttling.
func (d *Rod) SetThrottling(ctx context.Context, settings config.Settings, useThrottling bool) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	p := page.Context(ctx)

	conditions := proto.NetworkEmulateNetworkConditions{}
	cpuRate := 1.0
	if useThrottling {
		t := settings.Throttling
		conditions.Latency = float64(t.RTTMs)
		conditions.DownloadThroughput = t.ThroughputKbps * 1024 / 8
		conditions.UploadThroughput = t.UploadThroughputKbps * 1024 / 8
		if t.CPUSlowdownMultiplier > 0 {
			cpuRate = t.CPUSlowdownMultiplier
		}
	}
	if err := conditions.Call(p); err != nil {
		return fmt.Errorf("emulate network conditions: %w", err)
	}
	d.mu.Lock()
	d.online = !conditions.Offline
	d.mu.Unlock()
	if err := (proto.EmulationSetCPUThrottlingRate{Rate: cpuRate}).Call(p); err != nil {
		return fmt.Errorf("cpu throttling: %w", err)
	}
	return nil
}

// Evaluate runs a function expression in the page.
func (d *Rod) Evaluate(ctx context.Context, expression string) (json.RawMessage, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, err
	}
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		JS:           expression,
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation result: %w", err)
	}
	return raw, nil
}

// Online reports the emulated network state.
func (d *Rod) Online() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.online
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q has no origin", rawURL)
	}
	return u.Scheme + "://" + u.Host, nil
}
