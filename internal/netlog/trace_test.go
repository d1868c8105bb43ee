package netlog

import (
	"encoding/json"
	"testing"
)

func TestNormalizeTraceBareArray(t *testing.T) {
	raw := json.RawMessage(`[{"name":"navigationStart","cat":"blink.user_timing","ts":100}]`)
	trace, err := NormalizeTrace(raw)
	if err != nil {
		t.Fatalf("NormalizeTrace() error = %v", err)
	}
	if len(trace.TraceEvents) != 1 || trace.TraceEvents[0].Name != "navigationStart" {
		t.Fatalf("trace = %+v", trace)
	}
}

func TestNormalizeTraceKeyedObject(t *testing.T) {
	raw := json.RawMessage(`{"traceEvents":[{"name":"a","ts":1},{"name":"b","ts":2}]}`)
	trace, err := NormalizeTrace(raw)
	if err != nil {
		t.Fatalf("NormalizeTrace() error = %v", err)
	}
	if len(trace.TraceEvents) != 2 || trace.TraceEvents[1].Name != "b" {
		t.Fatalf("trace = %+v", trace)
	}
}

func TestNormalizeTraceEmpty(t *testing.T) {
	trace, err := NormalizeTrace(nil)
	if err != nil {
		t.Fatalf("NormalizeTrace() error = %v", err)
	}
	if len(trace.TraceEvents) != 0 {
		t.Fatalf("trace = %+v, want empty", trace)
	}
}

func TestTraceEventRoundTripKeepsUnknownFields(t *testing.T) {
	raw := json.RawMessage(`[{"name":"a","ts":1,"args":{"frame":"F1"}}]`)
	trace, err := NormalizeTrace(raw)
	if err != nil {
		t.Fatalf("NormalizeTrace() error = %v", err)
	}
	out, err := json.Marshal(trace.TraceEvents[0])
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if _, ok := decoded["args"]; !ok {
		t.Fatalf("round trip dropped args: %s", out)
	}
}
