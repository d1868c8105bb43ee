package gatherers

import (
	"context"

	"pharos/internal/gather"
	"pharos/internal/netlog"
)

// RequestSummary is the scoring-layer view of one network request.
type RequestSummary struct {
	URL          string `json:"url"`
	StatusCode   int    `json:"statusCode"`
	ResourceType string `json:"resourceType,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	Failed       bool   `json:"failed"`
}

// NetworkRequests projects the pass's derived network records into the
// artifact map.
type NetworkRequests struct {
	gather.Base
}

func (NetworkRequests) Name() string { return "network-requests" }

func (NetworkRequests) AfterPass(_ context.Context, _ *gather.Context, data *gather.PassData) (any, error) {
	summaries := make([]RequestSummary, 0, len(data.NetworkRecords))
	for _, r := range data.NetworkRecords {
		summaries = append(summaries, summarize(r))
	}
	return summaries, nil
}

func summarize(r netlog.Record) RequestSummary {
	return RequestSummary{
		URL:          r.URL,
		StatusCode:   r.StatusCode,
		ResourceType: r.ResourceType,
		MimeType:     r.MimeType,
		Failed:       r.Failed,
	}
}
