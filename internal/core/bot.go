// Package core holds the types shared by the dispatcher, the registries and the built-in
// commands: commands, permissions, middleware, the invocation context and the Bot they all
// receive.
package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/settings"
	"github.com/keshon/orator/internal/status"
	"github.com/keshon/orator/internal/storage"
)

// CommandIndex is the read side of the command registry.
type CommandIndex interface {
	Search(key string) *Command
	All() []*Command
}

// Reloader re-reads file-backed definitions.
type Reloader interface {
	Reload(ctx context.Context) error
}

// Bot is the composition root handed to middleware and actions. Its fields are set once at
// startup.
type Bot struct {
	Session  platform.Session
	Store    storage.Client
	Settings *settings.Settings
	Status   *status.Manager
	Commands CommandIndex
	Reloader Reloader
	Log      zerolog.Logger

	DefaultPrefix string
	StartedAt     time.Time
}

// PrefixSetting is the per-guild prefix handle.
func (b *Bot) PrefixSetting() settings.Setting {
	return b.Settings.Setting(settings.KeyPrefix, b.DefaultPrefix)
}

// Prefix returns the prefix in effect for guildID.
func (b *Bot) Prefix(ctx context.Context, guildID string) string {
	if b.Settings == nil {
		return b.DefaultPrefix
	}
	return b.PrefixSetting().Value(ctx, guildID)
}
