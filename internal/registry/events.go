package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
)

// EventHandler reacts to a platform event.
type EventHandler func(ctx context.Context, b *core.Bot, ev platform.Event) error

// Event binds a handler to a platform event. A Once event runs on its first matching event
// only, across reloads of its definition.
type Event struct {
	Name    string
	On      platform.EventName
	Once    bool
	Handler EventHandler
	Source  string

	fired atomic.Bool
}

func (e *Event) Key() string { return strings.ToLower(e.Name) }

func (e *Event) Validate() error {
	if strings.TrimSpace(e.Name) == "" {
		return errors.New("event has no name")
	}
	if !platform.ValidEvent(e.On) {
		return fmt.Errorf("%s: unknown platform event %q", e.Name, e.On)
	}
	if e.Handler == nil {
		return fmt.Errorf("%s: event has no handler", e.Name)
	}
	return nil
}

// Fired reports whether a Once event has already run.
func (e *Event) Fired() bool { return e.fired.Load() }

// EventMap registers events by name.
type EventMap struct {
	*LoadableMap[*Event]
}

// NewEventMap returns an empty event registry. File definitions resolve handler names
// through catalog.
func NewEventMap(catalog *Catalog) *EventMap {
	m := &EventMap{
		LoadableMap: newLoadableMap("an event with a name, a known platform event and a handler", decodeEvent(catalog)),
	}
	m.stored = func(old *Event, hadOld bool, e *Event) {
		if hadOld && old.Fired() {
			e.fired.Store(true)
		}
	}
	return m
}

func (m *EventMap) Add(events ...*Event) *EventMap {
	m.LoadableMap.Add(events...)
	return m
}

func (m *EventMap) AddPath(paths ...string) *EventMap {
	m.LoadableMap.AddPath(paths...)
	return m
}

// Dispatch runs every event bound to ev.Name in registration order. Handler errors and
// panics are collected; one failing handler does not stop the others.
func (m *EventMap) Dispatch(ctx context.Context, b *core.Bot, ev platform.Event) error {
	var errs []error
	for _, e := range m.items.Filter(func(e *Event, _ string) bool { return e.On == ev.Name }) {
		if e.Once && !e.fired.CompareAndSwap(false, true) {
			continue
		}
		if err := run(ctx, e, b, ev); err != nil {
			errs = append(errs, fmt.Errorf("event %s: %w", e.Name, err))
		}
	}
	return errors.Join(errs...)
}

func run(ctx context.Context, e *Event, b *core.Bot, ev platform.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return e.Handler(ctx, b, ev)
}
