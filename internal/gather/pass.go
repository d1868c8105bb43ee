package gather

import (
	"context"
	"fmt"
	"time"

	"pharos/internal/config"
	"pharos/internal/driver"
	"pharos/internal/errs"
	"pharos/internal/netlog"

	"go.uber.org/zap"
)

// passRun executes one configured pass: the three gatherer phases plus the
// browser-state transitions each phase requires. url tracks the navigation
// target and is updated in place when the document redirects.
type passRun struct {
	drv      driver.Driver
	settings config.Settings
	pass     Pass
	url      string
	rs       *resultSet
	log      *zap.Logger
}

// invocationContext builds a fresh context value for a single gatherer call.
func (p *passRun) invocationContext(b Binding) *Context {
	return &Context{
		Driver:   p.drv,
		URL:      p.url,
		Settings: p.settings,
		Pass:     p.pass,
		Options:  b.Options,
	}
}

// beforePass resets the page to a neutral blank document, installs the
// blocking and header state this pass needs, and runs the beforePass phase.
func (p *passRun) beforePass(ctx context.Context) error {
	// The blank load is fire-and-forget: waiting for a load event here
	// only slows the run down.
	if _, err := p.drv.GotoURL(ctx, p.pass.blankPage(), false); err != nil {
		return errs.Fatal(err)
	}
	settle(ctx, p.pass.blankDuration())

	// Blocking state is sticky across passes, so the set is re-asserted
	// every pass even when empty.
	patterns := append(append([]string{}, p.pass.BlockedURLPatterns...), p.settings.BlockedURLPatterns...)
	if err := p.drv.BlockURLPatterns(ctx, patterns); err != nil {
		return errs.Fatal(err)
	}
	if err := p.drv.SetExtraHeaders(ctx, p.settings.ExtraHeaders); err != nil {
		return errs.Fatal(err)
	}

	return p.runPhase(ctx, phaseBeforePass, nil)
}

// run navigates to the target and runs the pass phase, bracketed by protocol
// log capture and, when requested, trace capture. The returned URL is the
// document's final URL after redirects.
func (p *passRun) run(ctx context.Context) error {
	// Clearing caches only matters for a genuine performance measurement.
	if p.pass.RecordTrace && p.pass.UseThrottling && !p.settings.DisableStorageReset {
		if err := p.drv.CleanBrowserCaches(ctx); err != nil {
			return errs.Fatal(err)
		}
	}

	if err := p.drv.BeginLogCapture(ctx); err != nil {
		return errs.Fatal(err)
	}
	if p.pass.RecordTrace {
		if err := p.drv.BeginTrace(ctx, p.settings); err != nil {
			return errs.Fatal(err)
		}
	}

	loadCtx, cancel := context.WithTimeout(ctx, p.settings.MaxWaitForLoad())
	finalURL, err := p.drv.GotoURL(loadCtx, p.url, true)
	cancel()
	if err != nil {
		return errs.Fatal(err)
	}
	if finalURL != "" && finalURL != p.url {
		p.log.Debug("document redirected",
			zap.String("requested", p.url),
			zap.String("final", finalURL))
		p.url = finalURL
	}

	return p.runPhase(ctx, phasePass, nil)
}

// afterPass closes the captures, derives network records, detects a page-load
// error, disables throttling, and runs the afterPass phase. When the page
// load failed, every gatherer's afterPass outcome for this pass is that same
// error: a broken load invalidates all per-pass analysis uniformly.
func (p *passRun) afterPass(ctx context.Context) (*PassData, error) {
	data := &PassData{}

	if p.pass.RecordTrace {
		raw, err := p.drv.EndTrace(ctx)
		if err != nil {
			return nil, errs.Fatal(err)
		}
		trace, err := netlog.NormalizeTrace(raw)
		if err != nil {
			return nil, errs.Fatal(err)
		}
		data.Trace = trace
	}

	rawLog, err := p.drv.EndLogCapture(ctx)
	if err != nil {
		return nil, errs.Fatal(err)
	}
	data.DevtoolsLog = rawLog
	records, err := netlog.RecordsFromLog(rawLog)
	if err != nil {
		return nil, errs.Fatal(err)
	}
	data.NetworkRecords = records

	pageErr := pageLoadError(p.url, records)
	if !p.drv.Online() {
		// An offline load failing is expected, not anomalous.
		pageErr = nil
	}
	if pageErr != nil {
		p.log.Warn("page load failed", zap.String("url", p.url), zap.Error(pageErr))
		p.rs.addWarning(fmt.Sprintf("The page loaded from %s may not have loaded correctly.", p.url))
		data.PageLoadErr = pageErr
	}

	// Analysis-only work must never be artificially slowed.
	if err := p.drv.SetThrottling(ctx, p.settings, false); err != nil {
		return nil, errs.Fatal(err)
	}

	if pageErr != nil {
		for _, b := range p.pass.Gatherers {
			p.rs.append(b.Gatherer.Name(), Outcome{Err: pageErr})
		}
		return data, nil
	}

	if err := p.runPhase(ctx, phaseAfterPass, data); err != nil {
		return nil, err
	}
	return data, nil
}

// pageLoadError inspects the derived network records for the fate of the
// document request itself, comparing URLs without fragments.
func pageLoadError(url string, records []netlog.Record) error {
	var mainRecord *netlog.Record
	for i := range records {
		if netlog.EqualIgnoringFragment(records[i].URL, url) {
			mainRecord = &records[i]
			break
		}
	}
	if mainRecord == nil {
		return errs.New(errs.NoDocumentRequest, fmt.Sprintf("no document request found for %s", url))
	}
	if mainRecord.Failed {
		return errs.New(errs.FailedDocumentRequest,
			fmt.Sprintf("document request for %s failed: %s", url, mainRecord.FailureReason))
	}
	return nil
}

// settle sleeps for d or until the context is done.
func settle(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
