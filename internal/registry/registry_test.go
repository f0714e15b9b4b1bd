package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func noop(context.Context, *core.Context) (any, error) { return nil, nil }

func allow(context.Context, *core.Context) bool { return true }
func deny(context.Context, *core.Context) bool  { return false }

func testCatalog() *Catalog {
	return NewCatalog().
		RegisterAction("noop", noop).
		RegisterCheck("allow", allow).
		RegisterMiddleware("pass", core.MiddlewareFunc(func(context.Context, *core.Bot, *core.Context) error { return nil })).
		RegisterHandler("nothing", func(context.Context, *core.Bot, platform.Event) error { return nil })
}

func TestCommandMap_LoadIsIdempotent(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "hello.yaml", "name: hello\naliases: [hi]\nreply: Hello!\n")
	writeFile(t, dir, "ping.json", `{"name": "ping", "action": "noop"}`)
	writeFile(t, dir, ".hidden.yaml", "name: hidden\nreply: no\n")
	writeFile(t, dir, "notes.txt", "not a definition")

	loaded := 0
	m := NewCommandMap(testCatalog(), nil)
	m.OnLoad = func(*core.Command) { loaded++ }

	m.Add(&core.Command{Name: "Echo", Action: noop}).AddPath(dir)
	require.NoError(t, m.Load(ctx))
	assert.Equal(t, []string{"echo", "hello", "ping"}, m.Keys())
	assert.Equal(t, 3, loaded)

	require.NoError(t, m.Load(ctx))
	m.AddPath(dir)
	require.NoError(t, m.Load(ctx))
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 3, loaded)
	assert.Equal(t, []string{dir}, m.Sources())
}

func TestCommandMap_Search(t *testing.T) {
	m := NewCommandMap(testCatalog(), nil)
	m.Add(&core.Command{Name: "Status", Aliases: []string{"st", "Presence"}, Action: noop})
	require.NoError(t, m.Load(context.Background()))

	for _, key := range []string{"status", "STATUS", "st", "presence", " St "} {
		c := m.Search(key)
		require.NotNil(t, c, key)
		assert.Equal(t, "Status", c.Name)
	}
	assert.Nil(t, m.Search("missing"))
	assert.Nil(t, m.Search(""))
}

func TestCommandMap_Conflicts(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", "name: other\naliases: [first]\nreply: x\n")

	m := NewCommandMap(testCatalog(), nil)
	m.Add(
		&core.Command{Name: "first", Action: noop},
		&core.Command{Name: "second", Aliases: []string{"FIRST"}, Action: noop},
		&core.Command{Name: "third", Aliases: []string{"3", "3"}, Action: noop},
	).AddPath(dir)

	err := m.Load(ctx)
	require.Error(t, err)

	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, []string{"first"}, m.Keys())
	assert.Nil(t, m.Search("other"))

	var fileConflict bool
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		if errors.As(e, &ce) && ce.Path != "" {
			fileConflict = true
			assert.Equal(t, filepath.Join(dir, "b.yaml"), ce.Path)
			assert.Equal(t, "first", ce.Owner)
		}
	}
	assert.True(t, fileConflict)
}

func TestCommandMap_TypedErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	good := writeFile(t, dir, "good.yaml", "name: good\nreply: ok\n")
	unknownKey := writeFile(t, dir, "unknown.yaml", "name: x\nreply: ok\ncolour: red\n")
	nested := writeFile(t, dir, "nested.yaml", "name: y\nsubCommands:\n  - name: z\n    reply: ok\n    bogus: 1\n")
	noName := writeFile(t, dir, "noname.yaml", "reply: ok\n")
	badAction := writeFile(t, dir, "badaction.yaml", "name: w\naction: missing\n")
	badPerm := writeFile(t, dir, "badperm.yaml", "name: v\nreply: ok\npermission: Nobody\n")
	notMap := writeFile(t, dir, "list.yaml", "- a\n- b\n")
	missing := filepath.Join(dir, "nope")

	m := NewCommandMap(testCatalog(), NewPermissionMap(testCatalog()))
	m.AddPath(good, unknownKey, nested, noName, badAction, badPerm, notMap, missing)
	err := m.Load(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"good"}, m.Keys())

	errs := err.(interface{ Unwrap() []error }).Unwrap()
	require.Len(t, errs, 7)

	var bk *LoadableBadKeyError
	require.ErrorAs(t, errs[0], &bk)
	assert.Equal(t, LoadableBadKeyError{Path: unknownKey, Key: "colour", Value: "red"}, *bk)
	require.ErrorAs(t, errs[1], &bk)
	assert.Equal(t, "subCommands[0].bogus", bk.Key)

	var te *LoadableTypeError
	require.ErrorAs(t, errs[2], &te)
	assert.Equal(t, noName, te.Path)
	assert.ErrorIs(t, errs[2], core.ErrMissingName)

	require.ErrorAs(t, errs[3], &bk)
	assert.Equal(t, "action", bk.Key)
	assert.Equal(t, "missing", bk.Value)
	require.ErrorAs(t, errs[4], &bk)
	assert.Equal(t, "permission", bk.Key)

	require.ErrorAs(t, errs[5], &te)
	assert.Equal(t, notMap, te.Path)

	var nf *LoadableNotFoundError
	require.ErrorAs(t, errs[6], &nf)
	assert.Equal(t, missing, nf.Path)
}

func TestCommandMap_DecodeDefinition(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	perms := NewPermissionMap(testCatalog())
	perms.Add(&core.Permission{Name: "Moderator", Level: 50, Check: allow})
	require.NoError(t, perms.Load(ctx))

	writeFile(t, dir, "status.yaml", `
name: status
description: Manage the bot status
category: Admin
permission: moderator
middleware: [pass]
deleteInvoking: true
deleteResponseDelay: 1500
subCommands:
  - name: add
    aliases: [new]
    parameters: [status, {name: note, optional: true}]
    action: noop
    deleteResponse: false
    deleteResponseDelay: 2m
`)
	m := NewCommandMap(testCatalog(), perms)
	m.AddPath(dir)
	require.NoError(t, m.Load(ctx))

	c := m.Search("status")
	require.NotNil(t, c)
	assert.Equal(t, "Admin", c.Category)
	assert.Same(t, perms.All()[0], c.Permission)
	assert.Len(t, c.Middleware, 1)
	assert.Nil(t, c.Action)
	assert.Equal(t, true, *c.DeleteInvoking)
	assert.Equal(t, 1500*time.Millisecond, *c.DeleteResponseDelay)
	assert.Equal(t, filepath.Join(dir, "status.yaml"), c.Source)

	add := c.SubCommand("new")
	require.NotNil(t, add)
	assert.Equal(t, []core.Parameter{{Name: "status"}, {Name: "note", Optional: true}}, add.Parameters)
	assert.Equal(t, 1, add.RequiredParams())
	assert.Equal(t, false, *add.DeleteResponse)
	assert.Equal(t, 2*time.Minute, *add.DeleteResponseDelay)
}

func TestCommandMap_Reload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "a.yaml", "name: alpha\naliases: [a]\nreply: one\n")
	b := writeFile(t, dir, "b.yaml", "name: beta\nreply: two\n")

	var loaded, removed []string
	var reloaded [][2]*core.Command
	m := NewCommandMap(testCatalog(), nil)
	m.OnLoad = func(c *core.Command) { loaded = append(loaded, c.Name) }
	m.OnReload = func(old, c *core.Command) { reloaded = append(reloaded, [2]*core.Command{old, c}) }
	m.OnRemove = func(c *core.Command) { removed = append(removed, c.Name) }

	m.Add(&core.Command{Name: "memory", Action: noop}).AddPath(dir)
	require.NoError(t, m.Load(ctx))
	original := m.Search("alpha")
	loaded = nil

	writeFile(t, dir, "a.yaml", "name: alpha\naliases: [first]\nreply: changed\n")
	require.NoError(t, os.Remove(b))
	writeFile(t, dir, "c.yaml", "name: gamma\nreply: three\n")

	require.NoError(t, m.Reload(ctx))
	assert.Equal(t, []string{"gamma"}, loaded)
	assert.Equal(t, []string{"beta"}, removed)
	require.Len(t, reloaded, 1)
	assert.Same(t, original, reloaded[0][0])
	assert.Same(t, m.Search("alpha"), reloaded[0][1])

	assert.Equal(t, []string{"memory", "alpha", "gamma"}, m.Keys())
	assert.Nil(t, m.Search("a"))
	assert.Same(t, m.Search("alpha"), m.Search("first"))
	assert.Nil(t, m.Search("beta"))

	// Nothing changed: no hooks.
	require.NoError(t, m.Reload(ctx))
	assert.Len(t, loaded, 1)
	assert.Len(t, reloaded, 1)
	assert.Len(t, removed, 1)

	// A broken edit keeps the previous entry.
	writeFile(t, dir, "c.yaml", "name: gamma\nreply: three\nwhat: ever\n")
	var bk *LoadableBadKeyError
	require.ErrorAs(t, m.Reload(ctx), &bk)
	assert.NotNil(t, m.Search("gamma"))

	// Renaming inside a file replaces the old key.
	writeFile(t, dir, "c.yaml", "name: delta\nreply: four\n")
	require.NoError(t, m.Reload(ctx))
	assert.Nil(t, m.Search("gamma"))
	assert.NotNil(t, m.Search("delta"))
	assert.Len(t, reloaded, 2)
}

func invoker(roles ...string) *core.Context {
	return &core.Context{Message: &platform.Message{GuildID: "g1", Author: platform.User{ID: "u1"}, MemberRoles: roles}}
}

func TestPermissionMap_HasPermission(t *testing.T) {
	ctx := context.Background()
	perms := NewPermissionMap(testCatalog())

	vip := &core.Permission{Name: "VIP", Level: 60, Check: deny}
	perms.Add(
		&core.Permission{Name: "Everyone", Level: 0, Check: allow},
		&core.Permission{Name: "Moderator", Level: 50, Check: deny},
		vip,
		&core.Permission{Name: "Administrator", Level: 100, Check: deny},
	)
	require.NoError(t, perms.Load(ctx))

	c := invoker()
	c.Command = &core.Command{Name: "vip", Permission: vip}
	assert.False(t, perms.HasPermission(ctx, c), "lower levels never grant")
	assert.Equal(t, core.DefaultDenialReason, perms.DenialReason(c))

	c.Command = &core.Command{Name: "open"}
	assert.True(t, perms.HasPermission(ctx, c))

	// Equal-level permissions never stand in for each other.
	perms.Add(&core.Permission{Name: "Booster", Level: 60, Check: allow})
	require.NoError(t, perms.Load(ctx))
	c.Command = &core.Command{Name: "vip", Permission: vip}
	assert.False(t, perms.HasPermission(ctx, c))

	// Higher levels are tried in ascending order, ties by name.
	perms.Add(
		&core.Permission{Name: "Staff", Level: 70, Check: deny},
		&core.Permission{Name: "Curator", Level: 70, Check: deny},
	)
	require.NoError(t, perms.Load(ctx))
	names := []string{}
	for _, p := range perms.Overrides(vip) {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Curator", "Staff", "Administrator"}, names)
}

func TestPermissionMap_HigherLevelOverrides(t *testing.T) {
	ctx := context.Background()
	calls := 0
	perms := NewPermissionMap(testCatalog())
	vip := &core.Permission{Name: "VIP", Level: 60, Reason: "VIPs only.", Check: deny}
	perms.Add(vip, &core.Permission{Name: "Administrator", Level: 100, Check: func(context.Context, *core.Context) bool {
		calls++
		return true
	}})
	require.NoError(t, perms.Load(ctx))

	c := invoker()
	c.Command = &core.Command{Name: "vip", Permission: vip}
	assert.True(t, perms.HasPermission(ctx, c))
	assert.Equal(t, 1, calls)
	assert.Equal(t, "VIPs only.", perms.DenialReason(c))
}

func TestPermissionMap_DecodeDefinition(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "vip.yaml", "name: VIP\nlevel: 60\nreason: VIPs only.\nroles: [r-vip]\n")
	writeFile(t, dir, "staff.yaml", "name: Staff\nlevel: 70\ncheck: allow\nusers: [u9]\n")
	writeFile(t, dir, "empty.yaml", "name: Empty\nlevel: 5\n")
	bad := writeFile(t, dir, "bad.yaml", "name: Bad\nlevel: 5\npermissions: [FlyPlanes]\n")
	typed := writeFile(t, dir, "typed.yaml", "name: Typed\nlevel: high\n")

	perms := NewPermissionMap(testCatalog())
	perms.AddPath(dir)
	err := perms.Load(ctx)
	require.Error(t, err)

	var bk *LoadableBadKeyError
	require.ErrorAs(t, err, &bk)
	assert.Equal(t, bad, bk.Path)
	assert.Equal(t, "permissions", bk.Key)

	var te *LoadableTypeError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, []string{typed, filepath.Join(dir, "empty.yaml")}, te.Path)

	assert.ElementsMatch(t, []string{"vip", "staff"}, perms.Keys())

	vip, ok := perms.Get("VIP")
	require.True(t, ok)
	assert.Equal(t, 60, vip.Level)
	assert.True(t, vip.Allows(ctx, invoker("r-vip")))
	assert.False(t, vip.Allows(ctx, invoker("other")))

	staff, _ := perms.Get("staff")
	assert.True(t, staff.Allows(ctx, invoker()))
}

func TestPermissionMap_ResolveAfterReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "vip.yaml", "name: VIP\nlevel: 60\nusers: [u0]\n")

	perms := NewPermissionMap(testCatalog())
	perms.AddPath(dir)
	require.NoError(t, perms.Load(ctx))
	stale, _ := perms.Get("vip")

	writeFile(t, dir, "vip.yaml", "name: VIP\nlevel: 60\nusers: [u1]\n")
	require.NoError(t, perms.Reload(ctx))

	c := invoker()
	c.Command = &core.Command{Name: "vip", Permission: stale}
	assert.False(t, stale.Allows(ctx, c))
	assert.True(t, perms.HasPermission(ctx, c))
}

func TestEventMap_Dispatch(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	readies := 0
	catalog := testCatalog().RegisterHandler("count", func(context.Context, *core.Bot, platform.Event) error {
		readies++
		return nil
	})
	writeFile(t, dir, "welcome.yaml", "name: welcome\non: ready\nonce: true\nhandler: count\n")
	writeFile(t, dir, "bad.yaml", "name: bad\non: typing\nhandler: count\n")

	events := NewEventMap(catalog)
	events.Add(
		&Event{Name: "every", On: platform.EventReady, Handler: func(context.Context, *core.Bot, platform.Event) error {
			readies++
			return errors.New("boom")
		}},
		&Event{Name: "panicky", On: platform.EventReady, Handler: func(context.Context, *core.Bot, platform.Event) error {
			panic("oops")
		}},
		&Event{Name: "guild", On: platform.EventGuildCreate, Handler: func(context.Context, *core.Bot, platform.Event) error {
			t.Fatal("wrong event")
			return nil
		}},
	).AddPath(dir)

	var bk *LoadableBadKeyError
	require.ErrorAs(t, events.Load(ctx), &bk)
	assert.Equal(t, "on", bk.Key)

	err := events.Dispatch(ctx, &core.Bot{}, platform.Event{Name: platform.EventReady})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Contains(t, err.Error(), "panic: oops")
	assert.Equal(t, 2, readies)

	_ = events.Dispatch(ctx, &core.Bot{}, platform.Event{Name: platform.EventReady})
	assert.Equal(t, 3, readies)

	// A reloaded Once event stays fired.
	writeFile(t, dir, "welcome.yaml", "name: welcome\non: ready\nonce: true\nhandler: count\n# edited\n")
	_ = events.Reload(ctx)
	welcome, ok := events.Get("welcome")
	require.True(t, ok)
	assert.True(t, welcome.Fired())
}
