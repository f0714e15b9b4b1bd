package middleware

import (
	"context"
	"slices"
	"strings"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/settings"
)

const disabledMessage = "This command is disabled on this server.\nUse `commands list` to check which commands are disabled."

// CommandToggle lets guilds switch top-level commands off. Exempt commands can never be
// disabled.
type CommandToggle struct {
	settings *settings.Settings
	exempt   []string
}

func NewCommandToggle(s *settings.Settings, exempt ...string) *CommandToggle {
	t := &CommandToggle{settings: s}
	for _, name := range exempt {
		t.exempt = append(t.exempt, strings.ToLower(name))
	}
	return t
}

func (t *CommandToggle) toggle(name string) settings.Toggle {
	return t.settings.Toggle("command:"+strings.ToLower(name), true)
}

// Exempt reports whether name can never be disabled.
func (t *CommandToggle) Exempt(name string) bool {
	return slices.Contains(t.exempt, strings.ToLower(name))
}

func (t *CommandToggle) Enabled(ctx context.Context, guildID, name string) bool {
	return t.Exempt(name) || t.toggle(name).Enabled(ctx, guildID)
}

func (t *CommandToggle) Enable(ctx context.Context, guildID, name string) error {
	return t.toggle(name).Reset(ctx, guildID)
}

func (t *CommandToggle) Disable(ctx context.Context, guildID, name string) error {
	return t.toggle(name).Disable(ctx, guildID)
}

func (t *CommandToggle) Run(ctx context.Context, _ *core.Bot, c *core.Context) error {
	if !c.Message.InGuild() {
		return nil
	}
	if !t.Enabled(ctx, c.Message.GuildID, rootName(c)) {
		return core.Reject(disabledMessage)
	}
	return nil
}
