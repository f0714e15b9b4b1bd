// Package client assembles the bot: storage, settings, status, registries, built-in
// commands and the dispatcher, bound to a platform session.
package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/commands"
	"github.com/keshon/orator/internal/config"
	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/middleware"
	"github.com/keshon/orator/internal/orator"
	"github.com/keshon/orator/internal/permissions"
	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/registry"
	"github.com/keshon/orator/internal/settings"
	"github.com/keshon/orator/internal/status"
	"github.com/keshon/orator/internal/storage"
	"github.com/keshon/orator/pkg/jobmgr"
)

const (
	sweeperJob = "cooldown-sweeper"
	watcherJob = "definitions-watcher"
)

// Client owns the bot's components. Register custom catalog entries through Catalog
// before Load.
type Client struct {
	cfg   *config.Config
	sess  platform.Session
	store storage.Client
	log   zerolog.Logger

	bot     *core.Bot
	catalog *registry.Catalog
	deps    commands.Deps
	orator  *orator.Orator
	jobs    *jobmgr.Manager

	Permissions *registry.PermissionMap
	Commands    *registry.CommandMap
	Events      *registry.EventMap
}

func New(cfg *config.Config, sess platform.Session, store storage.Client, log zerolog.Logger) *Client {
	c := &Client{
		cfg:     cfg,
		sess:    sess,
		store:   store,
		log:     log.With().Str("component", "client").Logger(),
		catalog: registry.NewCatalog(),
	}

	s := settings.New(store)
	c.deps = commands.Deps{
		Toggle:   commands.NewToggle(s),
		Log:      middleware.NewCommandLog(store, middleware.DefaultLogSize, log.With().Str("component", "command-log").Logger()),
		Cooldown: middleware.NewCooldown(cfg.CommandCooldown),
	}
	commands.Register(c.catalog, c.deps)
	c.catalog.RegisterHandler("log", logEvent)

	c.Permissions = registry.NewPermissionMap(c.catalog)
	c.Permissions.Add(permissions.Builtins(permissions.Config{
		Developers: cfg.DeveloperIDs,
		RoleLevels: cfg.RoleLevels,
	})...)
	c.Commands = registry.NewCommandMap(c.catalog, c.Permissions)
	c.Events = registry.NewEventMap(c.catalog)
	if cfg.PermissionsPath != "" {
		c.Permissions.AddPath(cfg.PermissionsPath)
	}
	if cfg.CommandsPath != "" {
		c.Commands.AddPath(cfg.CommandsPath)
	}
	if cfg.EventsPath != "" {
		c.Events.AddPath(cfg.EventsPath)
	}

	c.bot = &core.Bot{
		Session:  sess,
		Store:    store,
		Settings: s,
		Status: status.New(store, sess, status.Options{
			Mode:     cfg.Mode(),
			Interval: cfg.StatusInterval,
			Default:  cfg.Status(),
			Log:      log.With().Str("component", "status").Logger(),
		}),
		Commands:      c.Commands,
		Reloader:      c,
		Log:           log,
		DefaultPrefix: cfg.DefaultPrefix,
		StartedAt:     time.Now(),
	}
	c.orator = orator.New(c.bot, c.Permissions, orator.Options{
		DefaultPrefix:       cfg.DefaultPrefix,
		MentionPrefix:       cfg.MentionPrefix,
		DeleteInvoking:      cfg.DeleteInvoking,
		DeleteResponse:      cfg.DeleteResponse,
		DeleteResponseDelay: cfg.DeleteResponseDelay,
		NoticeDelay:         cfg.NoticeDelay,
		NotifyOnError:       cfg.NotifyOnError,
	})
	return c
}

// Catalog holds the named actions, checks, middleware and event handlers definition files
// refer to.
func (c *Client) Catalog() *registry.Catalog { return c.catalog }

func (c *Client) Bot() *core.Bot { return c.bot }

// Load loads permissions, then the built-in and file-backed commands, then events. Any
// malformed definition fails the load.
func (c *Client) Load(ctx context.Context) error {
	if err := c.Permissions.Load(ctx); err != nil {
		return fmt.Errorf("load permissions: %w", err)
	}
	builtins, err := commands.Builtins(c.Permissions, c.deps)
	if err != nil {
		return err
	}
	c.Commands.Add(builtins...)
	if err := c.Commands.Load(ctx); err != nil {
		return fmt.Errorf("load commands: %w", err)
	}
	if err := c.Events.Load(ctx); err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	c.log.Info().Int("permissions", c.Permissions.Len()).Int("commands", c.Commands.Len()).
		Int("events", c.Events.Len()).Msg("Definitions loaded")
	return nil
}

// Reload re-reads every definition path. Broken files keep their previous version.
func (c *Client) Reload(ctx context.Context) error {
	var errs []error
	if err := c.Permissions.Reload(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reload permissions: %w", err))
	}
	if err := c.Commands.Reload(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reload commands: %w", err))
	}
	if err := c.Events.Reload(ctx); err != nil {
		errs = append(errs, fmt.Errorf("reload events: %w", err))
	}
	err := errors.Join(errs...)
	if err != nil {
		c.log.Warn().Err(err).Msg("Reload finished with errors")
	} else {
		c.log.Info().Int("commands", c.Commands.Len()).Msg("Definitions reloaded")
	}
	return err
}

// Run binds the event handlers, opens the session and blocks until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	c.jobs = jobmgr.NewManager(ctx, c.reportJob)
	defer c.jobs.StopAll()

	c.bind()
	if err := c.sess.Open(ctx); err != nil {
		return err
	}
	defer c.sess.Close()

	if err := c.jobs.StartAsync(sweeperJob, c.deps.Cooldown.RunSweeper); err != nil {
		c.log.Warn().Err(err).Msg("Failed to start cooldown sweeper")
	}
	if c.cfg.WatchDefinitions {
		if err := c.jobs.StartAsync(watcherJob, c.watch); err != nil {
			c.log.Warn().Err(err).Msg("Failed to start definitions watcher")
		}
	}

	c.log.Info().Msg("Discord bot is running")
	<-ctx.Done()
	c.log.Info().Msg("Shutdown signal received. Cleaning up...")
	c.bot.Status.Stop()
	return nil
}

func (c *Client) reportJob(name string, state jobmgr.State, err error) {
	if state == jobmgr.StateError && !errors.Is(err, context.Canceled) {
		c.log.Error().Err(err).Str("job", name).Msg("Background job failed")
		return
	}
	c.log.Debug().Str("job", name).Str("state", string(state)).Msg("Background job")
}

func (c *Client) bind() {
	c.sess.On(platform.EventMessageCreate, func(ctx context.Context, ev platform.Event) {
		c.orator.HandleMessage(ctx, ev.Message)
	})
	c.sess.On(platform.EventReady, c.onReady)
	c.sess.On(platform.EventGuildCreate, c.onGuildCreate)
	c.sess.On(platform.EventGuildDelete, c.onGuildDelete)
	for _, name := range platform.KnownEvents {
		c.sess.On(name, c.dispatch)
	}
}

func (c *Client) dispatch(ctx context.Context, ev platform.Event) {
	if err := c.Events.Dispatch(ctx, c.bot, ev); err != nil {
		c.log.Warn().Err(err).Str("event", string(ev.Name)).Msg("Event handler failed")
	}
}

func (c *Client) onReady(ctx context.Context, ev platform.Event) {
	for _, id := range ev.Guilds {
		c.leaveIfBlacklisted(ctx, id, "")
	}
	if err := c.bot.Status.Start(ctx); err != nil {
		c.log.Warn().Err(err).Msg("Failed to start status manager")
	}
}

func (c *Client) onGuildCreate(ctx context.Context, ev platform.Event) {
	if c.leaveIfBlacklisted(ctx, ev.GuildID, ev.GuildName) {
		return
	}
	c.log.Info().Str("guild", ev.GuildID).Str("name", ev.GuildName).Msg("Bot added to guild")
}

// onGuildDelete drops everything stored for a guild the bot was removed from.
func (c *Client) onGuildDelete(ctx context.Context, ev platform.Event) {
	n, err := c.bot.Settings.Purge(ctx, ev.GuildID)
	if err != nil {
		c.log.Error().Err(err).Str("guild", ev.GuildID).Msg("Failed to purge guild settings")
	}
	if err := c.deps.Log.Purge(ctx, ev.GuildID); err != nil {
		c.log.Error().Err(err).Str("guild", ev.GuildID).Msg("Failed to purge command log")
	}
	c.log.Info().Str("guild", ev.GuildID).Int("settings", n).Msg("Bot removed from guild")
}

func (c *Client) leaveIfBlacklisted(ctx context.Context, guildID, name string) bool {
	if !slices.Contains(c.cfg.GuildBlacklist, guildID) {
		return false
	}
	c.log.Info().Str("guild", guildID).Str("name", name).Msg("Leaving blacklisted guild")
	if err := c.sess.LeaveGuild(ctx, guildID); err != nil {
		c.log.Error().Err(err).Str("guild", guildID).Msg("Failed to leave guild")
	}
	return true
}

func logEvent(_ context.Context, b *core.Bot, ev platform.Event) error {
	e := b.Log.Info().Str("event", string(ev.Name))
	if ev.GuildID != "" {
		e = e.Str("guild", ev.GuildID)
	}
	if ev.Err != nil {
		e = e.Err(ev.Err)
	}
	e.Msg("Event")
	return nil
}
