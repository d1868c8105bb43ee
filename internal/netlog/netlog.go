// Package netlog turns raw devtools protocol logs into structured network
// records and normalizes captured traces into a single shape.
package netlog

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// Envelope is one captured protocol event, kept in capture order.
type Envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// DevtoolsLog is the ordered protocol log captured during one pass.
type DevtoolsLog []Envelope

// Record is the folded view of one network request.
type Record struct {
	RequestID     string `json:"requestId"`
	URL           string `json:"url"`
	DocumentURL   string `json:"documentUrl,omitempty"`
	ResourceType  string `json:"resourceType,omitempty"`
	MimeType      string `json:"mimeType,omitempty"`
	StatusCode    int    `json:"statusCode,omitempty"`
	Failed        bool   `json:"failed"`
	FailureReason string `json:"failureReason,omitempty"`
	Finished      bool   `json:"finished"`
}

type requestWillBeSent struct {
	RequestID   string `json:"requestId"`
	DocumentURL string `json:"documentURL"`
	Type        string `json:"type"`
	Request     struct {
		URL string `json:"url"`
	} `json:"request"`
	RedirectResponse *struct {
		URL    string `json:"url"`
		Status int    `json:"status"`
	} `json:"redirectResponse"`
}

type responseReceived struct {
	RequestID string `json:"requestId"`
	Type      string `json:"type"`
	Response  struct {
		URL      string `json:"url"`
		Status   int    `json:"status"`
		MimeType string `json:"mimeType"`
	} `json:"response"`
}

type loadingFailed struct {
	RequestID string `json:"requestId"`
	ErrorText string `json:"errorText"`
	Canceled  bool   `json:"canceled"`
}

type loadingFinished struct {
	RequestID string `json:"requestId"`
}

// RecordsFromLog folds the raw protocol log into one record per request.
// A redirect produces a fresh record for the new location, mirroring how the
// protocol re-announces the request under the same id.
func RecordsFromLog(log DevtoolsLog) ([]Record, error) {
	var records []Record
	// index of the latest record per request id
	latest := make(map[string]int)

	for _, env := range log {
		switch env.Method {
		case "Network.requestWillBeSent":
			var ev requestWillBeSent
			if err := json.Unmarshal(env.Params, &ev); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Method, err)
			}
			if ev.RedirectResponse != nil {
				if i, ok := latest[ev.RequestID]; ok {
					records[i].StatusCode = ev.RedirectResponse.Status
					records[i].Finished = true
				}
			}
			records = append(records, Record{
				RequestID:    ev.RequestID,
				URL:          ev.Request.URL,
				DocumentURL:  ev.DocumentURL,
				ResourceType: ev.Type,
			})
			latest[ev.RequestID] = len(records) - 1

		case "Network.responseReceived":
			var ev responseReceived
			if err := json.Unmarshal(env.Params, &ev); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Method, err)
			}
			if i, ok := latest[ev.RequestID]; ok {
				records[i].StatusCode = ev.Response.Status
				records[i].MimeType = ev.Response.MimeType
				if records[i].ResourceType == "" {
					records[i].ResourceType = ev.Type
				}
			}

		case "Network.loadingFailed":
			var ev loadingFailed
			if err := json.Unmarshal(env.Params, &ev); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Method, err)
			}
			if i, ok := latest[ev.RequestID]; ok {
				records[i].Failed = true
				records[i].FailureReason = ev.ErrorText
				records[i].Finished = true
			}

		case "Network.loadingFinished":
			var ev loadingFinished
			if err := json.Unmarshal(env.Params, &ev); err != nil {
				return nil, fmt.Errorf("decode %s: %w", env.Method, err)
			}
			if i, ok := latest[ev.RequestID]; ok {
				records[i].Finished = true
			}
		}
	}
	return records, nil
}

// EqualIgnoringFragment reports whether two URLs are equal once fragment
// identifiers are stripped. Malformed URLs only compare equal verbatim.
func EqualIgnoringFragment(a, b string) bool {
	if a == b {
		return true
	}
	ua, errA := url.Parse(a)
	ub, errB := url.Parse(b)
	if errA != nil || errB != nil {
		return false
	}
	ua.Fragment = ""
	ub.Fragment = ""
	return ua.String() == ub.String()
}
