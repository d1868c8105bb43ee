package gather

import (
	"context"
	"errors"
	"time"

	"pharos/internal/config"
	"pharos/internal/driver"
	"pharos/internal/errs"
	"pharos/internal/netlog"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options configure one run.
type Options struct {
	// URL is the requested target. The run's canonical URL may differ
	// after the first pass's redirects.
	URL      string
	Driver   driver.Driver
	Settings config.Settings
	Passes   []Pass
	Logger   *zap.Logger
}

// Result is the bundle handed to the scoring layer.
type Result struct {
	RunID        string                        `json:"runId"`
	RequestedURL string                        `json:"requestedUrl"`
	FinalURL     string                        `json:"finalUrl"`
	UserAgent    string                        `json:"userAgent"`
	FetchTime    time.Time                     `json:"fetchTime"`
	Artifacts    map[string]Artifact           `json:"artifacts"`
	Traces       map[string]*netlog.Trace      `json:"traces"`
	DevtoolsLogs map[string]netlog.DevtoolsLog `json:"devtoolsLogs"`
	RunWarnings  []string                      `json:"runWarnings"`
	Settings     config.Settings               `json:"settings"`
}

// Run drives the full gather sequence: connect, setup, every configured pass
// in order, teardown, and artifact reduction. The driver is disconnected
// exactly once on every exit path.
func Run(ctx context.Context, opts Options) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if opts.Driver == nil {
		return nil, errors.New("gather: no driver configured")
	}
	if len(opts.Passes) == 0 {
		return nil, errors.New("gather: no passes configured")
	}

	drv := opts.Driver
	if err := drv.Connect(ctx); err != nil {
		return nil, errs.Fatal(err)
	}
	disconnected := false
	disconnect := func() {
		if disconnected {
			return
		}
		disconnected = true
		if err := drv.Disconnect(); err != nil {
			// The browser may already be gone; that is not a run failure.
			log.Warn("driver disconnect failed", zap.Error(err))
		}
	}
	defer disconnect()

	rs := newResultSet()

	// One neutral load before setup so protocol domains attach to a page
	// with no prior state.
	if _, err := drv.GotoURL(ctx, "about:blank", false); err != nil {
		return nil, errs.Fatal(err)
	}
	settle(ctx, 300*time.Millisecond)

	userAgent, err := setupDriver(ctx, drv, opts, rs, log)
	if err != nil {
		return nil, errs.Fatal(err)
	}
	rs.fetchTime = time.Now()

	traces := make(map[string]*netlog.Trace)
	devtoolsLogs := make(map[string]netlog.DevtoolsLog)
	url := opts.URL
	finalURL := opts.URL

	for i, pass := range opts.Passes {
		log.Debug("starting pass", zap.String("pass", pass.Name), zap.Int("index", i))

		if err := drv.SetThrottling(ctx, opts.Settings, pass.UseThrottling); err != nil {
			return nil, errs.Fatal(err)
		}

		pr := &passRun{
			drv:      drv,
			settings: opts.Settings,
			pass:     pass,
			url:      url,
			rs:       rs,
			log:      log.With(zap.String("pass", pass.Name)),
		}
		if err := pr.beforePass(ctx); err != nil {
			return nil, err
		}
		if err := pr.run(ctx); err != nil {
			return nil, err
		}
		data, err := pr.afterPass(ctx)
		if err != nil {
			return nil, err
		}

		devtoolsLogs[pass.Name] = data.DevtoolsLog
		if pass.RecordTrace {
			traces[pass.Name] = data.Trace
		}

		// Later passes navigate to the redirect-adjusted URL, but only
		// the first pass defines the run's canonical URL.
		url = pr.url
		if i == 0 {
			finalURL = pr.url
		}
	}

	disconnect()

	artifacts, warnings, err := reduce(ctx, rs)
	if err != nil {
		return nil, err
	}

	return &Result{
		RunID:        uuid.NewString(),
		RequestedURL: opts.URL,
		FinalURL:     finalURL,
		UserAgent:    userAgent,
		FetchTime:    rs.fetchTime,
		Artifacts:    artifacts,
		Traces:       traces,
		DevtoolsLogs: devtoolsLogs,
		RunWarnings:  warnings,
		Settings:     opts.Settings,
	}, nil
}

// setupDriver prepares the browser session for the first pass.
func setupDriver(ctx context.Context, drv driver.Driver, opts Options, rs *resultSet, log *zap.Logger) (string, error) {
	if err := drv.AssertNoSameOriginServiceWorkerClients(ctx, opts.URL); err != nil {
		return "", err
	}

	userAgent, err := drv.GetUserAgent(ctx)
	if err != nil {
		return "", err
	}
	if warning, ok := headlessThrottlingWarning(userAgent); ok {
		log.Warn("old headless browser detected", zap.String("userAgent", userAgent))
		rs.addWarning(warning)
	}

	if err := drv.BeginEmulation(ctx, opts.Settings); err != nil {
		return "", err
	}
	if err := drv.EnableRuntimeEvents(ctx); err != nil {
		return "", err
	}
	if err := drv.CacheNatives(ctx); err != nil {
		return "", err
	}
	if err := drv.RegisterPerformanceObserver(ctx); err != nil {
		return "", err
	}
	if err := drv.DismissDialogs(ctx); err != nil {
		return "", err
	}
	if !opts.Settings.DisableStorageReset {
		if err := drv.ClearDataForOrigin(ctx, opts.URL); err != nil {
			return "", err
		}
	}
	return userAgent, nil
}
