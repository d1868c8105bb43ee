package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"pharos/internal/config"
	"pharos/internal/netlog"

	"github.com/go-rod/rod/lib/proto"
)

// EndTraceTimeout bounds how long EndTrace waits for the completion event.
const EndTraceTimeout = 30 * time.Second

// eventCapture accumulates protocol network events in arrival order.
type eventCapture struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.Mutex
	entries netlog.DevtoolsLog
}

func (c *eventCapture) append(method string, params any) {
	raw, err := json.Marshal(params)
	if err != nil {
		return
	}
	c.mu.Lock()
	c.entries = append(c.entries, netlog.Envelope{Method: method, Params: raw})
	c.mu.Unlock()
}

// BeginLogCapture starts recording network protocol events.
func (d *Rod) BeginLogCapture(ctx context.Context) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.logCapture != nil {
		d.mu.Unlock()
		return errors.New("log capture already active")
	}
	cctx, cancel := context.WithCancel(context.Background())
	capture := &eventCapture{cancel: cancel, done: make(chan struct{})}
	d.logCapture = capture
	d.mu.Unlock()

	wait := page.Context(cctx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			capture.append("Network.requestWillBeSent", e)
		},
		func(e *proto.NetworkResponseReceived) {
			capture.append("Network.responseReceived", e)
		},
		func(e *proto.NetworkLoadingFailed) {
			capture.append("Network.loadingFailed", e)
		},
		func(e *proto.NetworkLoadingFinished) {
			capture.append("Network.loadingFinished", e)
		},
	)
	go func() {
		defer close(capture.done)
		wait()
	}()
	return nil
}

// EndLogCapture stops recording and returns the captured log.
func (d *Rod) EndLogCapture(ctx context.Context) (netlog.DevtoolsLog, error) {
	d.mu.Lock()
	capture := d.logCapture
	d.logCapture = nil
	d.mu.Unlock()
	if capture == nil {
		return nil, errors.New("log capture not active")
	}
	capture.cancel()
	select {
	case <-capture.done:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	capture.mu.Lock()
	defer capture.mu.Unlock()
	return capture.entries, nil
}

// traceCapture accumulates trace chunks until the browser reports the trace
// complete.
type traceCapture struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	events []json.RawMessage
}

func (c *traceCapture) collect(values []any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		c.events = append(c.events, raw)
	}
}

// BeginTrace starts a trace capture with the performance category set.
func (d *Rod) BeginTrace(ctx context.Context, _ config.Settings) error {
	page, err := d.currentPage()
	if err != nil {
		return err
	}
	d.mu.Lock()
	if d.trace != nil {
		d.mu.Unlock()
		return errors.New("trace already active")
	}
	cctx, cancel := context.WithCancel(context.Background())
	capture := &traceCapture{cancel: cancel, done: make(chan struct{})}
	d.trace = capture
	d.mu.Unlock()

	wait := page.Context(cctx).EachEvent(
		func(e *proto.TracingDataCollected) {
			values := make([]any, len(e.Value))
			for i, v := range e.Value {
				values[i] = v
			}
			capture.collect(values)
		},
		func(e *proto.TracingTracingComplete) bool {
			return true
		},
	)
	go func() {
		defer close(capture.done)
		wait()
	}()

	start := proto.TracingStart{
		TransferMode: proto.TracingStartTransferModeReportEvents,
		TraceConfig: &proto.TracingTraceConfig{
			RecordMode:         proto.TracingTraceConfigRecordModeRecordAsMuchAsPossible,
			IncludedCategories: traceCategories,
		},
	}
	if err := start.Call(page.Context(ctx)); err != nil {
		capture.cancel()
		d.mu.Lock()
		d.trace = nil
		d.mu.Unlock()
		return fmt.Errorf("start trace: %w", err)
	}
	d.log.Debug("trace capture started")
	return nil
}

// EndTrace stops tracing and returns the raw event array.
func (d *Rod) EndTrace(ctx context.Context) (json.RawMessage, error) {
	page, err := d.currentPage()
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	capture := d.trace
	d.trace = nil
	d.mu.Unlock()
	if capture == nil {
		return nil, errors.New("trace not active")
	}
	defer capture.cancel()

	if err := (proto.TracingEnd{}).Call(page.Context(ctx)); err != nil {
		return nil, fmt.Errorf("end trace: %w", err)
	}

	timer := time.NewTimer(EndTraceTimeout)
	defer timer.Stop()
	select {
	case <-capture.done:
	case <-timer.C:
		d.log.Warn("trace completion timed out; returning partial trace")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	capture.mu.Lock()
	defer capture.mu.Unlock()
	raw, err := json.Marshal(capture.events)
	if err != nil {
		return nil, fmt.Errorf("marshal trace events: %w", err)
	}
	return raw, nil
}
