package netlog

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func envelope(method, params string) Envelope {
	return Envelope{Method: method, Params: json.RawMessage(params)}
}

func TestRecordsFromLogFoldsLifecycle(t *testing.T) {
	log := DevtoolsLog{
		envelope("Network.requestWillBeSent",
			`{"requestId":"1","documentURL":"http://a/","type":"Document","request":{"url":"http://a/"}}`),
		envelope("Network.responseReceived",
			`{"requestId":"1","response":{"url":"http://a/","status":200,"mimeType":"text/html"}}`),
		envelope("Network.loadingFinished", `{"requestId":"1"}`),
		envelope("Network.requestWillBeSent",
			`{"requestId":"2","type":"Stylesheet","request":{"url":"http://a/style.css"}}`),
		envelope("Network.loadingFailed",
			`{"requestId":"2","errorText":"net::ERR_ABORTED"}`),
	}

	records, err := RecordsFromLog(log)
	if err != nil {
		t.Fatalf("RecordsFromLog() error = %v", err)
	}

	want := []Record{
		{
			RequestID:    "1",
			URL:          "http://a/",
			DocumentURL:  "http://a/",
			ResourceType: "Document",
			MimeType:     "text/html",
			StatusCode:   200,
			Finished:     true,
		},
		{
			RequestID:     "2",
			URL:           "http://a/style.css",
			ResourceType:  "Stylesheet",
			Failed:        true,
			FailureReason: "net::ERR_ABORTED",
			Finished:      true,
		},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Fatalf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordsFromLogRedirectProducesFreshRecord(t *testing.T) {
	log := DevtoolsLog{
		envelope("Network.requestWillBeSent",
			`{"requestId":"1","type":"Document","request":{"url":"http://a/"}}`),
		envelope("Network.requestWillBeSent",
			`{"requestId":"1","type":"Document","request":{"url":"http://a/b"},"redirectResponse":{"url":"http://a/","status":302}}`),
		envelope("Network.responseReceived",
			`{"requestId":"1","response":{"url":"http://a/b","status":200,"mimeType":"text/html"}}`),
	}

	records, err := RecordsFromLog(log)
	if err != nil {
		t.Fatalf("RecordsFromLog() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %d, want 2 (one per hop)", len(records))
	}
	if records[0].URL != "http://a/" || records[0].StatusCode != 302 || !records[0].Finished {
		t.Fatalf("first hop = %+v, want finished 302", records[0])
	}
	if records[1].URL != "http://a/b" || records[1].StatusCode != 200 {
		t.Fatalf("second hop = %+v", records[1])
	}
}

func TestEqualIgnoringFragment(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"http://a/", "http://a/", true},
		{"http://a/#x", "http://a/", true},
		{"http://a/#x", "http://a/#y", true},
		{"http://a/b", "http://a/", false},
		{"http://a/?q=1#x", "http://a/?q=1", true},
		{"http://a/?q=1", "http://a/?q=2", false},
		{"://bad", "://bad", true},
	}
	for _, tc := range cases {
		if got := EqualIgnoringFragment(tc.a, tc.b); got != tc.want {
			t.Fatalf("EqualIgnoringFragment(%q, %q) = %v, want %v", tc.a, tc.b, got, tc.want)
		}
	}
}
