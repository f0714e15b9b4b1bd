package registry

import (
	"strings"
	"sync"

	"github.com/keshon/orator/internal/core"
)

// CommandMap registers commands by name and indexes their aliases.
type CommandMap struct {
	*LoadableMap[*core.Command]

	aliasMu sync.RWMutex
	aliases map[string]string // alias -> command key
}

// NewCommandMap returns an empty command registry. File definitions resolve action and
// middleware names through catalog and permission names through perms, so perms must be
// loaded first.
func NewCommandMap(catalog *Catalog, perms *PermissionMap) *CommandMap {
	m := &CommandMap{aliases: make(map[string]string)}
	m.LoadableMap = newLoadableMap("a command with a name and an action, reply or subCommands", decodeCommand(catalog, perms))
	m.conflict = m.checkConflict
	m.stored = m.index
	m.removed = m.unindex
	return m
}

func (m *CommandMap) Add(cmds ...*core.Command) *CommandMap {
	m.LoadableMap.Add(cmds...)
	return m
}

func (m *CommandMap) AddPath(paths ...string) *CommandMap {
	m.LoadableMap.AddPath(paths...)
	return m
}

// Search finds a command by name or alias, case-insensitively. It returns nil when
// nothing matches.
func (m *CommandMap) Search(key string) *core.Command {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return nil
	}
	if c, ok := m.items.Get(key); ok {
		return c
	}
	m.aliasMu.RLock()
	name, ok := m.aliases[key]
	m.aliasMu.RUnlock()
	if !ok {
		return nil
	}
	c, _ := m.items.Get(name)
	return c
}

// Categories returns the command categories in order of first appearance. Commands
// without a category are grouped under "General".
func (m *CommandMap) Categories() []string {
	var out []string
	seen := make(map[string]bool)
	m.items.Each(func(_ string, c *core.Command) bool {
		cat := categoryOf(c)
		if !seen[cat] {
			seen[cat] = true
			out = append(out, cat)
		}
		return true
	})
	return out
}

// ByCategory returns the commands of category in registration order.
func (m *CommandMap) ByCategory(category string) []*core.Command {
	return m.items.Filter(func(c *core.Command, _ string) bool {
		return strings.EqualFold(categoryOf(c), category)
	})
}

func categoryOf(c *core.Command) string {
	if c.Category == "" {
		return "General"
	}
	return c.Category
}

func (m *CommandMap) owner(key string) (string, bool) {
	if m.items.Has(key) {
		return key, true
	}
	m.aliasMu.RLock()
	defer m.aliasMu.RUnlock()
	name, ok := m.aliases[key]
	return name, ok
}

func (m *CommandMap) checkConflict(c *core.Command, replacing string) error {
	own := make(map[string]bool)
	for _, k := range c.Keys() {
		if own[k] {
			return &ConflictError{Key: k, Owner: c.Key()}
		}
		own[k] = true
		if owner, ok := m.owner(k); ok && owner != replacing {
			return &ConflictError{Key: k, Owner: owner}
		}
	}
	return nil
}

func (m *CommandMap) index(old *core.Command, hadOld bool, c *core.Command) {
	m.aliasMu.Lock()
	defer m.aliasMu.Unlock()
	if hadOld {
		m.dropAliases(old.Key())
	}
	for _, a := range c.Keys()[1:] {
		m.aliases[a] = c.Key()
	}
}

func (m *CommandMap) unindex(c *core.Command) {
	m.aliasMu.Lock()
	defer m.aliasMu.Unlock()
	m.dropAliases(c.Key())
}

func (m *CommandMap) dropAliases(key string) {
	for a, name := range m.aliases {
		if name == key {
			delete(m.aliases, a)
		}
	}
}
