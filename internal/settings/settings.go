// Package settings stores per-guild string settings through storage.Client. Setting and
// Toggle are typed handles over a single key.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/keshon/orator/internal/storage"
)

// RecordType is the storage type of setting records.
const RecordType = "setting"

// Keys used by the built-in features.
const (
	KeyPrefix = "prefix"
)

type Settings struct {
	store storage.Client
	locks *guildLocks
}

func New(store storage.Client) *Settings {
	return &Settings{store: store, locks: newGuildLocks()}
}

func query(guildID, key string) storage.Query {
	return storage.Query{Type: RecordType, Where: storage.And(
		storage.Eq("guild", guildID),
		storage.Eq("key", key),
	)}
}

// Get returns the stored value and whether one exists.
func (s *Settings) Get(ctx context.Context, guildID, key string) (string, bool, error) {
	rec, err := s.store.Get(ctx, query(guildID, key))
	if errors.Is(err, storage.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return rec.String("value"), true, nil
}

// Set stores value, creating the record on first use.
func (s *Settings) Set(ctx context.Context, guildID, key, value string) error {
	unlock := s.locks.lock(guildID)
	defer unlock()

	rec, err := s.store.Get(ctx, query(guildID, key))
	switch {
	case errors.Is(err, storage.ErrNotFound):
		_, err = s.store.Add(ctx, RecordType, map[string]any{"guild": guildID, "key": key, "value": value})
	case err == nil:
		rec.Data["value"] = value
		_, err = s.store.Update(ctx, rec)
	}
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// Delete removes the setting. Deleting a missing setting is not an error.
func (s *Settings) Delete(ctx context.Context, guildID, key string) error {
	unlock := s.locks.lock(guildID)
	defer unlock()

	rec, err := s.store.Get(ctx, query(guildID, key))
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	if err := s.store.Delete(ctx, rec); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}

// Purge removes every setting of a guild and returns how many were removed.
func (s *Settings) Purge(ctx context.Context, guildID string) (int, error) {
	unlock := s.locks.lock(guildID)
	defer unlock()

	recs, err := s.store.Find(ctx, storage.Query{Type: RecordType, Where: storage.Eq("guild", guildID)})
	if err != nil {
		return 0, fmt.Errorf("purge settings: %w", err)
	}
	n := 0
	for _, rec := range recs {
		if err := s.store.Delete(ctx, rec); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return n, fmt.Errorf("purge settings: %w", err)
		}
		n++
	}
	return n, nil
}

// Setting returns a handle for key with def as its value when unset.
func (s *Settings) Setting(key, def string) Setting {
	return Setting{s: s, Key: key, Default: def}
}

// Toggle returns a boolean handle for key.
func (s *Settings) Toggle(key string, def bool) Toggle {
	return Toggle{Setting: s.Setting(key, strconv.FormatBool(def))}
}

// Setting is a single per-guild string value with a default.
type Setting struct {
	s       *Settings
	Key     string
	Default string
}

// Value returns the guild's value, or Default when unset or on error.
func (st Setting) Value(ctx context.Context, guildID string) string {
	if guildID == "" {
		return st.Default
	}
	v, ok, err := st.s.Get(ctx, guildID, st.Key)
	if err != nil || !ok {
		return st.Default
	}
	return v
}

func (st Setting) Set(ctx context.Context, guildID, value string) error {
	return st.s.Set(ctx, guildID, st.Key, value)
}

// Reset returns the setting to its default.
func (st Setting) Reset(ctx context.Context, guildID string) error {
	return st.s.Delete(ctx, guildID, st.Key)
}

// Toggle is a Setting holding a boolean.
type Toggle struct {
	Setting
}

func (t Toggle) Enabled(ctx context.Context, guildID string) bool {
	b, err := strconv.ParseBool(t.Value(ctx, guildID))
	if err != nil {
		b, _ = strconv.ParseBool(t.Default)
	}
	return b
}

func (t Toggle) Enable(ctx context.Context, guildID string) error {
	return t.Set(ctx, guildID, "true")
}

func (t Toggle) Disable(ctx context.Context, guildID string) error {
	return t.Set(ctx, guildID, "false")
}

// guildLocks serialises read-modify-write spans per guild. Entries are dropped when unused.
type guildLocks struct {
	mu    sync.Mutex
	locks map[string]*guildLock
}

type guildLock struct {
	mu   sync.Mutex
	refs int
}

func newGuildLocks() *guildLocks {
	return &guildLocks{locks: make(map[string]*guildLock)}
}

func (g *guildLocks) lock(guildID string) (unlock func()) {
	g.mu.Lock()
	l, ok := g.locks[guildID]
	if !ok {
		l = &guildLock{}
		g.locks[guildID] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.locks, guildID)
		}
		g.mu.Unlock()
	}
}
