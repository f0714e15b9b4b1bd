package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/middleware"
	"github.com/keshon/orator/internal/platform"
)

func commandsCommand(d Deps, admin *core.Permission) *core.Command {
	cmd := &core.Command{
		Name:        "commands",
		Description: "Enable or disable commands on this server.",
		Category:    CategorySettings,
		Permission:  admin,
		Middleware:  d.common(middleware.GuildOnly()),
	}
	if d.Toggle != nil {
		cmd.SubCommands = append(cmd.SubCommands,
			&core.Command{
				Name:        "enable",
				Description: "Enable a command.",
				Parameters:  []core.Parameter{{Name: "command"}},
				Action:      enableCommand(d.Toggle),
			},
			&core.Command{
				Name:        "disable",
				Description: "Disable a command.",
				Parameters:  []core.Parameter{{Name: "command"}},
				Action:      disableCommand(d.Toggle),
			},
			&core.Command{
				Name:        "list",
				Description: "Show which commands are enabled.",
				Middleware:  []core.Middleware{embedLinks},
				Action:      listCommands(d.Toggle),
			},
		)
	}
	if d.Log != nil {
		cmd.SubCommands = append(cmd.SubCommands, &core.Command{
			Name:        "log",
			Description: "Show recently used commands.",
			Middleware:  []core.Middleware{embedLinks},
			Action:      commandLog(d.Log),
		})
	}
	if len(cmd.SubCommands) == 0 {
		cmd.Action = func(context.Context, *core.Context) (any, error) {
			return "Command toggles are not available.", nil
		}
	}
	return cmd
}

func enableCommand(t *middleware.CommandToggle) core.Action {
	return func(ctx context.Context, c *core.Context) (any, error) {
		target := c.Bot.Commands.Search(c.Param(0))
		if target == nil {
			return fmt.Sprintf("Unknown command `%s`.", c.Param(0)), nil
		}
		if err := t.Enable(ctx, c.GuildID(), target.Name); err != nil {
			return nil, fmt.Errorf("enable %s: %w", target.Name, err)
		}
		return fmt.Sprintf("Command `%s` enabled.", target.Name), nil
	}
}

func disableCommand(t *middleware.CommandToggle) core.Action {
	return func(ctx context.Context, c *core.Context) (any, error) {
		target := c.Bot.Commands.Search(c.Param(0))
		if target == nil {
			return fmt.Sprintf("Unknown command `%s`.", c.Param(0)), nil
		}
		if t.Exempt(target.Name) {
			return fmt.Sprintf("Command `%s` cannot be disabled.", target.Name), nil
		}
		if err := t.Disable(ctx, c.GuildID(), target.Name); err != nil {
			return nil, fmt.Errorf("disable %s: %w", target.Name, err)
		}
		return fmt.Sprintf("Command `%s` disabled.", target.Name), nil
	}
}

func listCommands(t *middleware.CommandToggle) core.Action {
	return func(ctx context.Context, c *core.Context) (any, error) {
		var enabled, disabled []string
		for _, cmd := range c.Bot.Commands.All() {
			if t.Enabled(ctx, c.GuildID(), cmd.Name) {
				enabled = append(enabled, "`"+cmd.Name+"`")
			} else {
				disabled = append(disabled, "`"+cmd.Name+"`")
			}
		}
		embed := &platform.Embed{Title: "Commands", Color: core.EmbedColor}
		embed.Fields = append(embed.Fields,
			platform.EmbedField{Name: "✅ Enabled", Value: joinOrNone(enabled)},
			platform.EmbedField{Name: "🚫 Disabled", Value: joinOrNone(disabled)},
		)
		return embed, nil
	}
}

func commandLog(l *middleware.CommandLog) core.Action {
	return func(ctx context.Context, c *core.Context) (any, error) {
		entries, err := l.Recent(ctx, c.GuildID())
		if err != nil {
			return nil, err
		}
		if len(entries) == 0 {
			return "No commands logged yet.", nil
		}
		var b strings.Builder
		for i := len(entries) - 1; i >= 0; i-- {
			e := entries[i]
			fmt.Fprintf(&b, "`%s` %s used `%s`\n", e.At.Format("2006-01-02 15:04"), e.Username, e.Command)
		}
		return &platform.Embed{
			Title:       "Recent commands",
			Description: strings.TrimSpace(b.String()),
			Color:       core.EmbedColor,
		}, nil
	}
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
