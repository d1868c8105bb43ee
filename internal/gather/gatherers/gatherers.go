// Package gatherers ships the built-in collection units and resolves the
// gatherer names used in pass configuration to instances.
package gatherers

import (
	"fmt"

	"pharos/internal/gather"
)

var registry = map[string]func() gather.Gatherer{
	"viewport-dimensions": func() gather.Gatherer { return ViewportDimensions{} },
	"meta-elements":       func() gather.Gatherer { return MetaElements{} },
	"network-requests":    func() gather.Gatherer { return NetworkRequests{} },
	"http-redirect":       func() gather.Gatherer { return HTTPRedirect{} },
}

// New returns the gatherer registered under name.
func New(name string) (gather.Gatherer, error) {
	ctor, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown gatherer %q", name)
	}
	return ctor(), nil
}

// Resolve maps configured gatherer names to bindings, preserving order.
func Resolve(names []string) ([]gather.Binding, error) {
	bindings := make([]gather.Binding, 0, len(names))
	for _, name := range names {
		g, err := New(name)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, gather.Binding{Gatherer: g})
	}
	return bindings, nil
}
