package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orator/internal/config"
	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/platform/platformtest"
	"github.com/keshon/orator/internal/settings"
	"github.com/keshon/orator/internal/status"
	"github.com/keshon/orator/internal/storage/filestore"
)

type fixture struct {
	*Client
	sess *platformtest.Session
	dir  string
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		DiscordToken:    "token",
		DefaultPrefix:   "!",
		MentionPrefix:   true,
		NoticeDelay:     15 * time.Second,
		NotifyOnError:   true,
		StorageDriver:   "file",
		StoragePath:     filepath.Join(dir, "data.json"),
		CommandsPath:    filepath.Join(dir, "commands"),
		PermissionsPath: filepath.Join(dir, "permissions"),
		EventsPath:      filepath.Join(dir, "events"),
		DeveloperIDs:    []string{"dev"},
		GuildBlacklist:  []string{"bad"},
		StatusMode:      "manual",
		LogLevel:        "debug",
		LogOutput:       "stdout",
	}
}

func newFixture(t *testing.T, files map[string]string) *fixture {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeFile(t, filepath.Join(dir, name), content)
	}
	for _, sub := range []string{"commands", "permissions", "events"} {
		require.NoError(t, os.MkdirAll(filepath.Join(dir, sub), 0o755))
	}

	cfg := testConfig(dir)
	store, err := filestore.Open(cfg.StoragePath, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sess := platformtest.New("999")
	sess.SetPerms("999", "", platform.PermissionSendMessages|platform.PermissionEmbedLinks)
	c := New(cfg, sess, store, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))
	c.bind()
	return &fixture{Client: c, sess: sess, dir: dir}
}

func (f *fixture) say(guildID, userID, content string) {
	f.sess.Emit(context.Background(), platform.Event{
		Name: platform.EventMessageCreate,
		Message: &platform.Message{
			ID:        "in",
			ChannelID: "c1",
			GuildID:   guildID,
			Author:    platform.User{ID: userID, Username: userID},
			Content:   content,
		},
	})
}

func (f *fixture) lastReply(t *testing.T) platform.Outgoing {
	t.Helper()
	sent := f.sess.SentMessages()
	require.NotEmpty(t, sent)
	return sent[len(sent)-1].Out
}

func TestLoad_Definitions(t *testing.T) {
	f := newFixture(t, map[string]string{
		"permissions/vip.yaml": "name: VIP\nlevel: 60\nreason: VIPs only.\nroles: [r-vip]\n",
		"commands/lounge.yaml": "name: lounge\npermission: VIP\nmiddleware: [guildOnly, commandLog]\nreply: Welcome to the lounge.\n",
		"events/hello.yaml":    "name: hello\non: guildCreate\nonce: true\nhandler: log\n",
	})

	assert.NotNil(t, f.Commands.Search("help"))
	assert.NotNil(t, f.Commands.Search("lounge"))
	_, ok := f.Permissions.Get("vip")
	assert.True(t, ok)

	f.say("g1", "u1", "!lounge")
	assert.Equal(t, "VIPs only.", f.lastReply(t).Content)

	// Developers outrank VIP.
	f.say("g1", "dev", "!lounge")
	assert.Equal(t, "Welcome to the lounge.", f.lastReply(t).Content)

	f.say("g1", "dev", "!ping")
	assert.Equal(t, "🏓 Pong!", f.lastReply(t).Content)

	f.sess.Emit(context.Background(), platform.Event{Name: platform.EventGuildCreate, GuildID: "g2"})
	ev, ok := f.Events.Get("hello")
	require.True(t, ok)
	assert.True(t, ev.Fired())
}

func TestLoad_FailsOnBrokenDefinition(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "commands", "bad.yaml"), "name: bad\naction: nowhere\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "permissions"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "events"), 0o755))
	cfg := testConfig(dir)
	store, err := filestore.Open(cfg.StoragePath, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	c := New(cfg, platformtest.New("999"), store, zerolog.Nop())
	err = c.Load(context.Background())
	assert.ErrorContains(t, err, "load commands")
}

func TestReload(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, map[string]string{
		"commands/greet.yaml": "name: greet\nreply: Hello!\n",
	})
	path := filepath.Join(f.dir, "commands", "greet.yaml")

	f.say("g1", "u1", "!greet")
	assert.Equal(t, "Hello!", f.lastReply(t).Content)

	writeFile(t, path, "name: greet\nreply: Hi again!\n")
	require.NoError(t, f.Reload(ctx))
	f.say("g1", "u1", "!greet")
	assert.Equal(t, "Hi again!", f.lastReply(t).Content)

	// The reload command goes through the same path.
	writeFile(t, path, "name: greet\nreply: Third time.\n")
	f.say("g1", "dev", "!reload")
	assert.Equal(t, "Definitions reloaded.", f.lastReply(t).Content)
	f.say("g1", "u1", "!greet")
	assert.Equal(t, "Third time.", f.lastReply(t).Content)

	require.NoError(t, os.Remove(path))
	require.NoError(t, f.Reload(ctx))
	assert.Nil(t, f.Commands.Search("greet"))
	assert.NotNil(t, f.Commands.Search("help"))
}

func TestBlacklist(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	f.sess.Emit(ctx, platform.Event{Name: platform.EventReady, Guilds: []string{"g1", "bad"}})
	assert.Equal(t, []string{"bad"}, f.sess.LeftGuilds())

	f.sess.Emit(ctx, platform.Event{Name: platform.EventGuildCreate, GuildID: "g2"})
	f.sess.Emit(ctx, platform.Event{Name: platform.EventGuildCreate, GuildID: "bad", GuildName: "Bad"})
	assert.Equal(t, []string{"bad", "bad"}, f.sess.LeftGuilds())
}

func TestGuildDeletePurges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.sess.SetPerms("admin", "", platform.PermissionAdministrator)

	f.say("g1", "admin", "!prefix ?")
	assert.Equal(t, "?", f.Bot().Prefix(ctx, "g1"))
	entries, err := f.deps.Log.Recent(ctx, "g1")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)

	f.sess.Emit(ctx, platform.Event{Name: platform.EventGuildDelete, GuildID: "g1"})
	assert.Equal(t, "!", f.Bot().Prefix(ctx, "g1"))
	_, found, err := f.Bot().Settings.Get(ctx, "g1", settings.KeyPrefix)
	require.NoError(t, err)
	assert.False(t, found)
	entries, err = f.deps.Log.Recent(ctx, "g1")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReadyStartsStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	_, err := f.Bot().Status.AddStatus(ctx, status.Status{Name: "Overwatch"})
	require.NoError(t, err)

	f.sess.Emit(ctx, platform.Event{Name: platform.EventReady})
	last, ok := f.sess.LastPresence()
	require.True(t, ok)
	assert.Equal(t, "Overwatch", last.Name)
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(dir)
	cfg.CommandsPath, cfg.PermissionsPath, cfg.EventsPath = "", "", ""
	store, err := filestore.Open(cfg.StoragePath, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	sess := platformtest.New("999")
	c := New(cfg, sess, store, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Eventually(t, sess.Opened, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	assert.False(t, sess.Opened())
}

func TestWatch(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.watch(ctx)

	// Give the watcher time to register before writing.
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(f.dir, "commands", "late.yaml"), "name: late\nreply: Better late.\n")

	assert.Eventually(t, func() bool { return f.Commands.Search("late") != nil }, 5*time.Second, 50*time.Millisecond)
}

func TestWatchDirs(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "perms.yaml")
	writeFile(t, file, "name: x\nlevel: 1\n")
	sub := filepath.Join(dir, "commands")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	assert.Equal(t, []string{sub, dir}, watchDirs(sub, "", file, dir))
}
