package gather

import (
	"pharos/internal/config"
	"pharos/internal/driver"
)

// Context is the value handed to one gatherer hook invocation. A fresh
// Context is built for every call so no state leaks between gatherers or
// across async boundaries; mutate nothing here.
type Context struct {
	Driver   driver.Driver
	URL      string
	Settings config.Settings
	Pass     Pass
	Options  map[string]any
}

// Option returns this invocation's option by key.
func (c *Context) Option(key string) (any, bool) {
	v, ok := c.Options[key]
	return v, ok
}
