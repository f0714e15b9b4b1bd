// Package status manages the bot's presence: a store of candidate statuses and a selection
// mode deciding what happens when no explicit status is given.
package status

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/storage"
	"github.com/keshon/orator/pkg/jobmgr"
)

// RecordType is the storage type of status records.
const RecordType = "status"

const timerJob = "status-rotation"

var (
	ErrInvalidStatus = errors.New("invalid status")
	ErrInvalidMode   = errors.New("invalid status mode")
	ErrDuplicate     = errors.New("status already exists")
	ErrUnknown       = errors.New("unknown status")
)

// Mode decides how SetStatus(nil) picks the next status.
type Mode string

const (
	ModeManual   Mode = "manual"
	ModeRandom   Mode = "random"
	ModeRotation Mode = "rotation"
)

// ParseMode accepts a mode name in any case.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeManual, ModeRandom, ModeRotation:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// Status is a presence line such as "Playing Overwatch".
type Status struct {
	Name string
	Type platform.ActivityType
}

// Parse reads "name|type", where type is the numeric activity type. A missing type means
// playing.
func Parse(s string) (Status, error) {
	name, typ, hasType := strings.Cut(s, "|")
	st := Status{Name: strings.TrimSpace(name)}
	if hasType {
		n, err := strconv.Atoi(strings.TrimSpace(typ))
		if err != nil {
			return Status{}, fmt.Errorf("%w: type %q is not a number", ErrInvalidStatus, typ)
		}
		st.Type = platform.ActivityType(n)
	}
	return st, st.Validate()
}

func (s Status) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidStatus)
	}
	if !s.Type.Valid() {
		return fmt.Errorf("%w: unknown type %d", ErrInvalidStatus, s.Type)
	}
	return nil
}

func (s Status) String() string {
	return s.Name + "|" + strconv.Itoa(int(s.Type))
}

// Presence is the platform capability the manager drives.
type Presence interface {
	SetPresence(ctx context.Context, name string, activity platform.ActivityType) error
}

type Options struct {
	Mode     Mode
	Interval time.Duration
	// Default is shown when the store is empty. A zero Default clears the presence.
	Default Status
	Log     zerolog.Logger
	// Intn picks a random index; tests replace it.
	Intn func(n int) int
}

type Manager struct {
	store    storage.Client
	presence Presence
	jobs     *jobmgr.Manager
	log      zerolog.Logger
	interval time.Duration
	def      Status
	intn     func(int) int

	mu      sync.Mutex
	mode    Mode
	current Status
}

func New(store storage.Client, presence Presence, opts Options) *Manager {
	if opts.Mode == "" {
		opts.Mode = ModeManual
	}
	if opts.Intn == nil {
		opts.Intn = rand.IntN
	}
	m := &Manager{
		store:    store,
		presence: presence,
		log:      opts.Log,
		interval: opts.Interval,
		def:      opts.Default,
		intn:     opts.Intn,
		mode:     opts.Mode,
	}
	m.jobs = jobmgr.NewManager(context.Background(), m.reportJob)
	return m
}

func (m *Manager) reportJob(name string, state jobmgr.State, err error) {
	m.log.Debug().Str("job", name).Str("state", string(state)).Err(err).Msg("Status timer")
}

// Start shows the first status and starts the timer when the mode needs one. The timer
// lives until ctx is done or Stop is called.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	old := m.jobs
	m.jobs = jobmgr.NewManager(ctx, m.reportJob)
	mode := m.mode
	m.mu.Unlock()
	old.StopAll()

	if mode == ModeManual {
		statuses, err := m.Statuses(ctx)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			return m.apply(ctx, m.def)
		}
		return m.apply(ctx, statuses[0])
	}
	return m.SetStatus(ctx, nil)
}

// Stop stops the timer.
func (m *Manager) Stop() {
	m.mu.Lock()
	jobs := m.jobs
	m.mu.Unlock()
	jobs.StopAll()
}

func (m *Manager) Current() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) Mode() Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mode
}

// TimerRunning reports whether the rotation timer is active.
func (m *Manager) TimerRunning() bool {
	m.mu.Lock()
	jobs := m.jobs
	m.mu.Unlock()
	return jobs.Running(timerJob)
}

// SetMode switches the selection mode and re-selects immediately unless the new mode is
// manual.
func (m *Manager) SetMode(ctx context.Context, mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	m.mu.Lock()
	m.mode = mode
	m.mu.Unlock()

	if mode == ModeManual {
		m.syncTimer(0)
		return nil
	}
	return m.SetStatus(ctx, nil)
}

// SetStatus applies st when given. With nil it selects from the store according to the
// mode: manual does nothing, random picks any stored status but the current one, rotation
// takes the next one in stored order.
func (m *Manager) SetStatus(ctx context.Context, st *Status) error {
	if st != nil {
		if err := st.Validate(); err != nil {
			return err
		}
		return m.apply(ctx, *st)
	}
	if m.Mode() == ModeManual {
		return nil
	}
	n, err := m.selectNext(ctx)
	if err != nil {
		return err
	}
	m.syncTimer(n)
	return nil
}

// selectNext applies the next status and returns how many candidates exist.
func (m *Manager) selectNext(ctx context.Context) (int, error) {
	statuses, err := m.Statuses(ctx)
	if err != nil {
		return 0, err
	}
	switch len(statuses) {
	case 0:
		return 0, m.apply(ctx, m.def)
	case 1:
		return 1, m.apply(ctx, statuses[0])
	}

	m.mu.Lock()
	mode, current := m.mode, m.current
	m.mu.Unlock()

	idx := indexOf(statuses, current.Name)
	var next Status
	switch mode {
	case ModeRandom:
		others := make([]Status, 0, len(statuses))
		for i, s := range statuses {
			if i != idx {
				others = append(others, s)
			}
		}
		next = others[m.intn(len(others))]
	default:
		next = statuses[(idx+1)%len(statuses)]
	}
	return len(statuses), m.apply(ctx, next)
}

func (m *Manager) apply(ctx context.Context, st Status) error {
	if err := m.presence.SetPresence(ctx, st.Name, st.Type); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	m.mu.Lock()
	m.current = st
	m.mu.Unlock()
	m.log.Debug().Str("status", st.Name).Int("type", int(st.Type)).Msg("Presence updated")
	return nil
}

// syncTimer runs the timer only while it would have more than one status to choose from.
func (m *Manager) syncTimer(candidates int) {
	m.mu.Lock()
	need := m.mode != ModeManual && candidates > 1 && m.interval > 0
	jobs := m.jobs
	m.mu.Unlock()

	running := jobs.Running(timerJob)
	switch {
	case need && !running:
		if err := jobs.StartAsync(timerJob, m.tick); err != nil && !errors.Is(err, jobmgr.ErrRunning) {
			m.log.Warn().Err(err).Msg("Failed to start status timer")
		}
	case !need && running:
		_ = jobs.Stop(timerJob)
	}
}

// tick is the timer job. It ends by itself once a selection leaves one candidate or less,
// so it never has to stop itself through the job manager.
func (m *Manager) tick(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if m.Mode() == ModeManual {
				return nil
			}
			n, err := m.selectNext(ctx)
			if err != nil {
				m.log.Warn().Err(err).Msg("Failed to rotate status")
				continue
			}
			if n <= 1 {
				return nil
			}
		}
	}
}

// Statuses returns the stored statuses in insertion order.
func (m *Manager) Statuses(ctx context.Context) ([]Status, error) {
	recs, err := m.store.Find(ctx, storage.Query{Type: RecordType})
	if err != nil {
		return nil, fmt.Errorf("list statuses: %w", err)
	}
	out := make([]Status, 0, len(recs))
	for _, r := range recs {
		out = append(out, Status{Name: r.String("name"), Type: platform.ActivityType(r.Int("type"))})
	}
	return out, nil
}

// AddStatus stores st. Names are unique, compared case-insensitively.
func (m *Manager) AddStatus(ctx context.Context, st Status) (Status, error) {
	if err := st.Validate(); err != nil {
		return Status{}, err
	}
	statuses, err := m.Statuses(ctx)
	if err != nil {
		return Status{}, err
	}
	if indexOf(statuses, st.Name) >= 0 {
		return Status{}, fmt.Errorf("%w: %s", ErrDuplicate, st.Name)
	}
	if _, err := m.store.Add(ctx, RecordType, map[string]any{"name": st.Name, "type": int(st.Type)}); err != nil {
		return Status{}, fmt.Errorf("add status: %w", err)
	}
	m.syncTimer(len(statuses) + 1)
	return st, nil
}

// DeleteStatus removes a stored status by name. Removing the active status selects another
// one, or the default in manual mode or when none is left.
func (m *Manager) DeleteStatus(ctx context.Context, name string) error {
	recs, err := m.store.Find(ctx, storage.Query{Type: RecordType})
	if err != nil {
		return fmt.Errorf("delete status: %w", err)
	}
	var target *storage.Record
	for _, r := range recs {
		if strings.EqualFold(r.String("name"), name) {
			target = r
			break
		}
	}
	if target == nil {
		return fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	if err := m.store.Delete(ctx, target); err != nil {
		return fmt.Errorf("delete status: %w", err)
	}

	left := len(recs) - 1
	active := strings.EqualFold(m.Current().Name, target.String("name"))
	switch {
	case left == 0:
		m.syncTimer(0)
		return m.apply(ctx, m.def)
	case active && m.Mode() == ModeManual:
		return m.apply(ctx, m.def)
	case active:
		n, err := m.selectNext(ctx)
		m.syncTimer(n)
		return err
	}
	m.syncTimer(left)
	return nil
}

func indexOf(statuses []Status, name string) int {
	for i, s := range statuses {
		if strings.EqualFold(s.Name, name) {
			return i
		}
	}
	return -1
}
