// Package jobmgr runs named background jobs with cancellation, lifecycle callbacks and
// in-memory tracking of what is running.
//
//	jm := jobmgr.NewManager(ctx, func(name string, state jobmgr.State, err error) {
//	    log.Info().Str("job", name).Str("state", string(state)).Err(err).Msg("job")
//	})
//	_ = jm.StartAsync("status-rotation", func(ctx context.Context) error {
//	    // work until ctx is cancelled
//	    return nil
//	})
//	_ = jm.Stop("status-rotation")
//
// Jobs run in their own goroutine and are removed on completion. There is no retry and no
// persistence.
package jobmgr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrRunning is returned by StartAsync when a job with the same name is running.
	ErrRunning = errors.New("job is already running")
	// ErrNotRunning is returned by Stop for unknown jobs.
	ErrNotRunning = errors.New("job not running")
)

// State is a job lifecycle state passed to the Reporter.
type State string

const (
	StateRunning State = "running"
	StateDone    State = "done"
	StateError   State = "error"
)

// Reporter receives lifecycle events for jobs. err is set only with StateError.
type Reporter func(name string, state State, err error)

type job struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Manager starts, stops and tracks jobs. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	parent   context.Context
	jobs     map[string]*job
	reporter Reporter
}

// NewManager creates a Manager whose jobs are cancelled together with parent.
// reporter may be nil.
func NewManager(parent context.Context, reporter Reporter) *Manager {
	if parent == nil {
		parent = context.Background()
	}
	return &Manager{
		parent:   parent,
		jobs:     make(map[string]*job),
		reporter: reporter,
	}
}

// StartSync runs runner in the calling goroutine and blocks until it returns.
func (m *Manager) StartSync(name string, runner func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(m.parent)
	defer cancel()

	m.report(name, StateRunning, nil)
	err := runner(ctx)
	m.finish(name, err)
	return err
}

// StartAsync runs runner in a new goroutine and returns immediately.
func (m *Manager) StartAsync(name string, runner func(ctx context.Context) error) error {
	m.mu.Lock()
	if _, exists := m.jobs[name]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrRunning, name)
	}
	ctx, cancel := context.WithCancel(m.parent)
	j := &job{name: name, cancel: cancel, done: make(chan struct{})}
	m.jobs[name] = j
	m.mu.Unlock()

	go func() {
		defer close(j.done)
		defer cancel()

		m.report(name, StateRunning, nil)
		m.finish(name, runner(ctx))

		m.mu.Lock()
		if m.jobs[name] == j {
			delete(m.jobs, name)
		}
		m.mu.Unlock()
	}()
	return nil
}

// Stop cancels a running job and waits for it to return.
func (m *Manager) Stop(name string) error {
	m.mu.Lock()
	j, ok := m.jobs[name]
	if ok {
		delete(m.jobs, name)
	}
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotRunning, name)
	}

	j.cancel()
	<-j.done
	return nil
}

// StopAll cancels every running job and waits for them.
func (m *Manager) StopAll() {
	for _, name := range m.List() {
		_ = m.Stop(name)
	}
}

// Running reports whether a job named name is running.
func (m *Manager) Running(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.jobs[name]
	return ok
}

// List returns the sorted names of running jobs.
func (m *Manager) List() []string {
	m.mu.Lock()
	out := make([]string, 0, len(m.jobs))
	for k := range m.jobs {
		out = append(out, k)
	}
	m.mu.Unlock()
	sort.Strings(out)
	return out
}

// Status returns a human-readable summary, e.g. "Running jobs: status-rotation".
func (m *Manager) Status() string {
	active := m.List()
	if len(active) == 0 {
		return "No jobs are running."
	}
	return "Running jobs: " + strings.Join(active, ", ")
}

func (m *Manager) finish(name string, err error) {
	if err != nil && !errors.Is(err, context.Canceled) {
		m.report(name, StateError, err)
		return
	}
	m.report(name, StateDone, nil)
}

func (m *Manager) report(name string, state State, err error) {
	if m.reporter != nil {
		m.reporter(name, state, err)
	}
}
