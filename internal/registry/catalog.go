package registry

import (
	"sort"
	"sync"

	"github.com/keshon/orator/internal/core"
)

// Catalog holds the named Go building blocks definition files refer to: actions, checks,
// middleware and event handlers. Register everything before loading definitions.
type Catalog struct {
	mu         sync.RWMutex
	actions    map[string]core.Action
	checks     map[string]core.Check
	middleware map[string]core.Middleware
	handlers   map[string]EventHandler
}

func NewCatalog() *Catalog {
	return &Catalog{
		actions:    make(map[string]core.Action),
		checks:     make(map[string]core.Check),
		middleware: make(map[string]core.Middleware),
		handlers:   make(map[string]EventHandler),
	}
}

func (c *Catalog) RegisterAction(name string, a core.Action) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions[name] = a
	return c
}

func (c *Catalog) RegisterCheck(name string, check core.Check) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
	return c
}

func (c *Catalog) RegisterMiddleware(name string, mw core.Middleware) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.middleware[name] = mw
	return c
}

func (c *Catalog) RegisterHandler(name string, h EventHandler) *Catalog {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[name] = h
	return c
}

func (c *Catalog) Action(name string) (core.Action, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.actions[name]
	return a, ok
}

func (c *Catalog) Check(name string) (core.Check, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	check, ok := c.checks[name]
	return check, ok
}

func (c *Catalog) Middleware(name string) (core.Middleware, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mw, ok := c.middleware[name]
	return mw, ok
}

func (c *Catalog) Handler(name string) (EventHandler, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	h, ok := c.handlers[name]
	return h, ok
}

// Names returns the sorted registered names per kind: "actions", "checks", "middleware"
// and "handlers".
func (c *Catalog) Names() map[string][]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return map[string][]string{
		"actions":    sortedKeys(c.actions),
		"checks":     sortedKeys(c.checks),
		"middleware": sortedKeys(c.middleware),
		"handlers":   sortedKeys(c.handlers),
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
