package registry

import (
	"context"
	"sort"

	"github.com/keshon/orator/internal/core"
)

// PermissionMap registers permissions by name and resolves whether an invoker may run a
// command.
type PermissionMap struct {
	*LoadableMap[*core.Permission]
}

// NewPermissionMap returns an empty permission registry. File definitions resolve check
// names through catalog.
func NewPermissionMap(catalog *Catalog) *PermissionMap {
	return &PermissionMap{
		LoadableMap: newLoadableMap("a permission with a name and a check, roles, users or permissions", decodePermission(catalog)),
	}
}

func (m *PermissionMap) Add(perms ...*core.Permission) *PermissionMap {
	m.LoadableMap.Add(perms...)
	return m
}

func (m *PermissionMap) AddPath(paths ...string) *PermissionMap {
	m.LoadableMap.AddPath(paths...)
	return m
}

// Resolve returns the registered permission with p's name, so that commands holding a
// permission from before a reload see the current definition. Unregistered permissions
// are returned unchanged.
func (m *PermissionMap) Resolve(p *core.Permission) *core.Permission {
	if p == nil {
		return nil
	}
	if cur, ok := m.items.Get(p.Key()); ok {
		return cur
	}
	return p
}

// Overrides returns the registered permissions that can stand in for required: every
// permission at a strictly higher level, in ascending level order (ties by name).
func (m *PermissionMap) Overrides(required *core.Permission) []*core.Permission {
	out := m.items.Filter(func(p *core.Permission, key string) bool {
		return key != required.Key() && p.Level > required.Level
	})
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Level != out[j].Level {
			return out[i].Level < out[j].Level
		}
		return out[i].Key() < out[j].Key()
	})
	return out
}

// HasPermission reports whether the invoker of c may run c.Command. A command without a
// permission is unrestricted. Otherwise its own check decides, and failing that any higher
// permission the invoker holds.
func (m *PermissionMap) HasPermission(ctx context.Context, c *core.Context) bool {
	if c.Command == nil || c.Command.Permission == nil {
		return true
	}
	required := m.Resolve(c.Command.Permission)
	if required.Allows(ctx, c) {
		return true
	}
	for _, p := range m.Overrides(required) {
		if p.Allows(ctx, c) {
			return true
		}
	}
	return false
}

// DenialReason is the notice for a denied invocation of c.
func (m *PermissionMap) DenialReason(c *core.Context) string {
	if c.Command == nil || c.Command.Permission == nil {
		return core.DefaultDenialReason
	}
	return m.Resolve(c.Command.Permission).DenialReason()
}
