package gatherers

import (
	"context"
	"encoding/json"
	"fmt"

	"pharos/internal/gather"
)

// ViewportDimensionsArtifact reports the page's viewport metrics at the end
// of the load.
type ViewportDimensionsArtifact struct {
	InnerWidth       float64 `json:"innerWidth"`
	InnerHeight      float64 `json:"innerHeight"`
	OuterWidth       float64 `json:"outerWidth"`
	OuterHeight      float64 `json:"outerHeight"`
	DevicePixelRatio float64 `json:"devicePixelRatio"`
}

// ViewportDimensions measures the viewport after the page has loaded.
type ViewportDimensions struct {
	gather.Base
}

func (ViewportDimensions) Name() string { return "viewport-dimensions" }

func (ViewportDimensions) AfterPass(ctx context.Context, gctx *gather.Context, _ *gather.PassData) (any, error) {
	raw, err := gctx.Driver.Evaluate(ctx, `() => ({
		innerWidth: window.innerWidth,
		innerHeight: window.innerHeight,
		outerWidth: window.outerWidth,
		outerHeight: window.outerHeight,
		devicePixelRatio: window.devicePixelRatio,
	})`)
	if err != nil {
		return nil, fmt.Errorf("viewport dimensions: %w", err)
	}
	var dims ViewportDimensionsArtifact
	if err := json.Unmarshal(raw, &dims); err != nil {
		return nil, fmt.Errorf("decode viewport dimensions: %w", err)
	}
	return dims, nil
}
