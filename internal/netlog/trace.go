package netlog

import (
	"encoding/json"
	"fmt"
)

// TraceEvent is a single trace record. Only the fields the engine needs are
// typed; the rest travels in Raw for downstream consumers.
type TraceEvent struct {
	Name string          `json:"name,omitempty"`
	Cat  string          `json:"cat,omitempty"`
	PID  int64           `json:"pid,omitempty"`
	TID  int64           `json:"tid,omitempty"`
	TS   int64           `json:"ts,omitempty"`
	Raw  json.RawMessage `json:"-"`
}

func (e *TraceEvent) UnmarshalJSON(data []byte) error {
	type alias TraceEvent
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*e = TraceEvent(a)
	e.Raw = append(json.RawMessage(nil), data...)
	return nil
}

func (e TraceEvent) MarshalJSON() ([]byte, error) {
	if len(e.Raw) > 0 {
		return e.Raw, nil
	}
	type alias TraceEvent
	return json.Marshal(alias(e))
}

// Trace is the normalized shape of one pass's trace capture.
type Trace struct {
	TraceEvents []TraceEvent `json:"traceEvents"`
}

// NormalizeTrace accepts either capture format the protocol has shipped: a
// bare event array, or an object keyed by "traceEvents".
func NormalizeTrace(raw json.RawMessage) (*Trace, error) {
	if len(raw) == 0 {
		return &Trace{}, nil
	}
	var events []TraceEvent
	if err := json.Unmarshal(raw, &events); err == nil {
		return &Trace{TraceEvents: events}, nil
	}
	var t Trace
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("unrecognized trace shape: %w", err)
	}
	return &t, nil
}
