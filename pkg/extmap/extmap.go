// Package extmap provides an insertion-ordered, concurrency-safe map with the
// find/filter/map/reduce/every/some helpers the registries are built on.
package extmap

import "sync"

// Map is a keyed collection that remembers insertion order. Replacing the value of an
// existing key keeps its position. The zero value is not usable; call New.
type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	keys  []K
	items map[K]V
}

// New returns an empty Map.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

// Set stores v under k.
func (m *Map[K, V]) Set(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.items[k] = v
}

// Get returns the value stored under k.
func (m *Map[K, V]) Get(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[k]
	return v, ok
}

// Has reports whether k is present.
func (m *Map[K, V]) Has(k K) bool {
	_, ok := m.Get(k)
	return ok
}

// Delete removes k and reports whether it was present.
func (m *Map[K, V]) Delete(k K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[k]; !ok {
		return false
	}
	delete(m.items, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.keys)
}

// Keys returns the keys in insertion order.
func (m *Map[K, V]) Keys() []K {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]K(nil), m.keys...)
}

// Values returns the values in insertion order.
func (m *Map[K, V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.items[k])
	}
	return out
}

// Each calls fn for every entry in order until fn returns false. fn runs on a snapshot,
// so it may modify the map.
func (m *Map[K, V]) Each(fn func(k K, v V) bool) {
	for _, e := range m.snapshot() {
		if !fn(e.k, e.v) {
			return
		}
	}
}

// Find returns the first value for which fn is true.
func (m *Map[K, V]) Find(fn func(v V, k K) bool) (V, bool) {
	for _, e := range m.snapshot() {
		if fn(e.v, e.k) {
			return e.v, true
		}
	}
	var zero V
	return zero, false
}

// Filter returns, in order, the values for which fn is true.
func (m *Map[K, V]) Filter(fn func(v V, k K) bool) []V {
	var out []V
	for _, e := range m.snapshot() {
		if fn(e.v, e.k) {
			out = append(out, e.v)
		}
	}
	return out
}

// Every reports whether fn is true for all values. It is true for an empty map.
func (m *Map[K, V]) Every(fn func(v V, k K) bool) bool {
	for _, e := range m.snapshot() {
		if !fn(e.v, e.k) {
			return false
		}
	}
	return true
}

// Some reports whether fn is true for at least one value.
func (m *Map[K, V]) Some(fn func(v V, k K) bool) bool {
	_, ok := m.Find(fn)
	return ok
}

// MapValues transforms every value of m, in order.
func MapValues[K comparable, V, R any](m *Map[K, V], fn func(v V, k K) R) []R {
	entries := m.snapshot()
	out := make([]R, 0, len(entries))
	for _, e := range entries {
		out = append(out, fn(e.v, e.k))
	}
	return out
}

// Reduce folds the values of m, in order, starting from init.
func Reduce[K comparable, V, A any](m *Map[K, V], init A, fn func(acc A, v V, k K) A) A {
	acc := init
	for _, e := range m.snapshot() {
		acc = fn(acc, e.v, e.k)
	}
	return acc
}

type entry[K comparable, V any] struct {
	k K
	v V
}

func (m *Map[K, V]) snapshot() []entry[K, V] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]entry[K, V], 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, entry[K, V]{k: k, v: m.items[k]})
	}
	return out
}
