package gatherers

import (
	"context"
	"encoding/json"
	"fmt"

	"pharos/internal/gather"
)

// HTTPRedirectArtifact captures where the document actually ended up.
type HTTPRedirectArtifact struct {
	URL    string `json:"url"`
	Scheme string `json:"scheme"`
	Host   string `json:"host"`
}

// HTTPRedirect records the document's final location during the pass phase,
// while the loaded page is still the navigation target.
type HTTPRedirect struct {
	gather.Base
}

func (HTTPRedirect) Name() string { return "http-redirect" }

func (HTTPRedirect) Pass(ctx context.Context, gctx *gather.Context) (any, error) {
	raw, err := gctx.Driver.Evaluate(ctx, `() => ({
		url: location.href,
		scheme: location.protocol.replace(':', ''),
		host: location.hostname,
	})`)
	if err != nil {
		return nil, fmt.Errorf("http redirect: %w", err)
	}
	var artifact HTTPRedirectArtifact
	if err := json.Unmarshal(raw, &artifact); err != nil {
		return nil, fmt.Errorf("decode http redirect: %w", err)
	}
	return artifact, nil
}
