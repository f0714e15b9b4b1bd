// Package registry holds the command, permission and event registries. Items are queued
// in memory or as file/directory paths, resolved by Load and refreshed by Reload, which
// re-reads remembered paths and diffs them by path and content version.
package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/keshon/orator/pkg/extmap"
)

// Loadable is anything a registry can hold.
type Loadable interface {
	Key() string
	Validate() error
}

// Decoder turns the content of one definition file into an item. It reports problems
// with the typed Loadable errors.
type Decoder[T Loadable] func(path string, raw []byte) (T, error)

// Extensions lists the definition file extensions picked up from directories.
var Extensions = []string{".yaml", ".yml", ".json"}

type fileEntry struct {
	version string
	key     string
}

// LoadableMap is the generic registry behind CommandMap, PermissionMap and EventMap.
// Keys are lower-cased; iteration follows insertion order.
type LoadableMap[T Loadable] struct {
	items    *extmap.Map[string, T]
	expected string
	decode   Decoder[T]

	// OnLoad runs once for every newly stored item, OnReload when a file-backed item is
	// replaced by a changed version of its file, OnRemove when its file disappeared.
	OnLoad   func(item T)
	OnReload func(old, new T)
	OnRemove func(item T)

	conflict func(item T, replacing string) error
	stored   func(old T, hadOld bool, item T)
	removed  func(item T)

	mu    sync.Mutex
	queue []T
	paths []string
	roots []string
	files map[string]fileEntry
}

func newLoadableMap[T Loadable](expected string, decode Decoder[T]) *LoadableMap[T] {
	m := &LoadableMap[T]{
		items:    extmap.New[string, T](),
		expected: expected,
		decode:   decode,
		files:    make(map[string]fileEntry),
	}
	m.conflict = m.keyConflict
	m.stored = func(T, bool, T) {}
	m.removed = func(T) {}
	return m
}

// Add queues in-memory items for the next Load.
func (m *LoadableMap[T]) Add(items ...T) *LoadableMap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, items...)
	return m
}

// AddPath queues files or directories for the next Load.
func (m *LoadableMap[T]) AddPath(paths ...string) *LoadableMap[T] {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range paths {
		m.paths = append(m.paths, filepath.Clean(p))
	}
	return m
}

// Load drains the queue. Every failing item or path contributes one error to the joined
// result; the others are still loaded. Calling Load again without new Add calls is a no-op.
func (m *LoadableMap[T]) Load(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	queue, paths := m.queue, m.paths
	m.queue, m.paths = nil, nil

	var errs []error
	for _, item := range queue {
		_, hadOld, err := m.store(item, "")
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !hadOld && m.OnLoad != nil {
			m.OnLoad(item)
		}
	}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		files, err := listFiles(p)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !slices.Contains(m.roots, p) {
			m.roots = append(m.roots, p)
		}
		for _, f := range files {
			if err := m.loadFile(f); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Reload re-lists remembered directories and re-reads remembered files. Unchanged files
// are skipped, changed ones replace their entry in place, new ones are added and entries
// whose file disappeared are removed. In-memory items are left alone.
func (m *LoadableMap[T]) Reload(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var errs []error
	for _, root := range m.roots {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		files, err := listFiles(root)
		if err != nil {
			var nf *LoadableNotFoundError
			if !errors.As(err, &nf) {
				// keep what we have rather than dropping entries on a transient error
				for path := range m.files {
					if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
						seen[path] = true
					}
				}
				errs = append(errs, err)
			}
			continue
		}
		for _, f := range files {
			seen[f] = true
			if err := m.loadFile(f); err != nil {
				errs = append(errs, err)
			}
		}
	}

	for path, e := range m.files {
		if seen[path] {
			continue
		}
		delete(m.files, path)
		if item, ok := m.items.Get(e.key); ok {
			m.items.Delete(e.key)
			m.removed(item)
			if m.OnRemove != nil {
				m.OnRemove(item)
			}
		}
	}
	return errors.Join(errs...)
}

func (m *LoadableMap[T]) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &LoadableNotFoundError{Path: path}
	}
	if err != nil {
		return fmt.Errorf("registry: %s: %w", path, err)
	}

	version := checksum(raw)
	prev, known := m.files[path]
	if known && prev.version == version {
		return nil
	}

	item, err := m.decode(path, raw)
	if err != nil {
		return err
	}
	old, hadOld, err := m.store(item, path)
	if err != nil {
		return err
	}
	m.files[path] = fileEntry{version: version, key: item.Key()}

	switch {
	case hadOld && m.OnReload != nil:
		m.OnReload(old, item)
	case !hadOld && m.OnLoad != nil:
		m.OnLoad(item)
	}
	return nil
}

// store validates item and puts it in the map. An item from path replaces the entry that
// path produced before, if any.
func (m *LoadableMap[T]) store(item T, path string) (old T, hadOld bool, err error) {
	if err := item.Validate(); err != nil {
		if path == "" {
			return old, false, fmt.Errorf("registry: %q: %w", item.Key(), err)
		}
		return old, false, &LoadableTypeError{Path: path, Expected: m.expected, Err: err}
	}

	replacing := ""
	if path != "" {
		replacing = m.files[path].key
	}
	if err := m.conflict(item, replacing); err != nil {
		var ce *ConflictError
		if errors.As(err, &ce) {
			ce.Path = path
		}
		return old, false, err
	}

	if replacing != "" {
		old, hadOld = m.items.Get(replacing)
	}
	key := item.Key()
	m.items.Set(key, item)
	if replacing != "" && replacing != key {
		m.items.Delete(replacing)
	}
	m.stored(old, hadOld, item)
	return old, hadOld, nil
}

func (m *LoadableMap[T]) keyConflict(item T, replacing string) error {
	key := item.Key()
	if key != replacing && m.items.Has(key) {
		return &ConflictError{Key: key, Owner: key}
	}
	return nil
}

// Get returns the item registered under key, case-insensitively.
func (m *LoadableMap[T]) Get(key string) (T, bool) {
	return m.items.Get(strings.ToLower(key))
}

// All returns the items in insertion order.
func (m *LoadableMap[T]) All() []T { return m.items.Values() }

// Keys returns the keys in insertion order.
func (m *LoadableMap[T]) Keys() []string { return m.items.Keys() }

func (m *LoadableMap[T]) Len() int { return m.items.Len() }

// Items exposes the underlying map for its find/filter helpers.
func (m *LoadableMap[T]) Items() *extmap.Map[string, T] { return m.items }

// Sources returns the remembered root paths.
func (m *LoadableMap[T]) Sources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.roots...)
}

func listFiles(path string) ([]string, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &LoadableNotFoundError{Path: path}
	}
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	if !info.IsDir() {
		if !supported(path) {
			return nil, &LoadableTypeError{Path: path, Expected: "a .yaml, .yml or .json file"}
		}
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !supported(name) {
			continue
		}
		out = append(out, filepath.Join(path, name))
	}
	return out, nil
}

func supported(name string) bool {
	return slices.Contains(Extensions, strings.ToLower(filepath.Ext(name)))
}

func checksum(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
