// Package gather implements the pass orchestration engine: it sequences
// multi-phase instrumentation passes over a protocol-controlled browser,
// isolates failures of individual gatherers, and reduces every phase outcome
// into one artifact per gatherer.
package gather

import (
	"context"
	"time"

	"pharos/internal/netlog"
)

// Gatherer is one independent collection unit. Each hook returns an artifact
// value, nil for "no value at this phase", or an error. An error wrapped with
// errs.Fatal aborts the rest of the run; any other error is recorded against
// this gatherer only.
type Gatherer interface {
	Name() string
	BeforePass(ctx context.Context, gctx *Context) (any, error)
	Pass(ctx context.Context, gctx *Context) (any, error)
	AfterPass(ctx context.Context, gctx *Context, data *PassData) (any, error)
}

// Base provides no-op hooks so gatherers implement only the phases they use.
type Base struct{}

func (Base) BeforePass(context.Context, *Context) (any, error)           { return nil, nil }
func (Base) Pass(context.Context, *Context) (any, error)                 { return nil, nil }
func (Base) AfterPass(context.Context, *Context, *PassData) (any, error) { return nil, nil }

// Binding pairs a gatherer instance with its per-gatherer options from the
// pass configuration.
type Binding struct {
	Gatherer Gatherer
	Options  map[string]any
}

// Pass is one configured navigation-and-capture cycle.
type Pass struct {
	Name               string
	Gatherers          []Binding
	UseThrottling      bool
	RecordTrace        bool
	BlockedURLPatterns []string

	// BlankPage and BlankDuration override the neutral page loaded before
	// each pass to shed session state.
	BlankPage     string
	BlankDuration time.Duration
}

func (p Pass) blankPage() string {
	if p.BlankPage == "" {
		return "about:blank"
	}
	return p.BlankPage
}

func (p Pass) blankDuration() time.Duration {
	if p.BlankDuration <= 0 {
		return 300 * time.Millisecond
	}
	return p.BlankDuration
}

// PassData is the ephemeral payload handed to afterPass hooks. It is owned by
// the pass controller and read-only for gatherers.
type PassData struct {
	Trace          *netlog.Trace
	DevtoolsLog    netlog.DevtoolsLog
	NetworkRecords []netlog.Record
	PageLoadErr    error
}
