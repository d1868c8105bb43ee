package gatherers

import (
	"context"
	"encoding/json"
	"fmt"

	"pharos/internal/gather"
)

// MetaElement is one <meta> tag found in the document head.
type MetaElement struct {
	Name      string `json:"name"`
	Content   string `json:"content"`
	Property  string `json:"property,omitempty"`
	HTTPEquiv string `json:"httpEquiv,omitempty"`
}

// MetaElements collects the document's meta tags after load.
type MetaElements struct {
	gather.Base
}

func (MetaElements) Name() string { return "meta-elements" }

func (MetaElements) AfterPass(ctx context.Context, gctx *gather.Context, _ *gather.PassData) (any, error) {
	raw, err := gctx.Driver.Evaluate(ctx, `() =>
		Array.from(document.head.querySelectorAll('meta')).map(meta => ({
			name: meta.name.toLowerCase(),
			content: meta.content,
			property: meta.getAttribute('property') || undefined,
			httpEquiv: meta.httpEquiv ? meta.httpEquiv.toLowerCase() : undefined,
		}))`)
	if err != nil {
		return nil, fmt.Errorf("meta elements: %w", err)
	}
	var metas []MetaElement
	if err := json.Unmarshal(raw, &metas); err != nil {
		return nil, fmt.Errorf("decode meta elements: %w", err)
	}
	return metas, nil
}
