package commands

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/middleware"
)

const maxPrefixLen = 5

func prefixCommand(d Deps, admin *core.Permission) *core.Command {
	return &core.Command{
		Name:        "prefix",
		Description: "Change the command prefix for this server.",
		Category:    CategorySettings,
		Parameters:  []core.Parameter{{Name: "prefix"}},
		Permission:  admin,
		Middleware:  d.common(middleware.GuildOnly()),
		Action:      setPrefix,
		SubCommands: []*core.Command{
			{
				Name:        "reset",
				Description: "Restore the default prefix.",
				Action:      resetPrefix,
			},
		},
	}
}

func setPrefix(ctx context.Context, c *core.Context) (any, error) {
	prefix := c.Param(0)
	if n := utf8.RuneCountInString(prefix); n == 0 || n > maxPrefixLen || strings.ContainsAny(prefix, " \t\n") {
		return fmt.Sprintf("The prefix must be 1 to %d characters long and contain no spaces.", maxPrefixLen), nil
	}
	if err := c.Bot.PrefixSetting().Set(ctx, c.GuildID(), prefix); err != nil {
		return nil, fmt.Errorf("set prefix: %w", err)
	}
	return fmt.Sprintf("Prefix set to `%s`. Try `%shelp`.", prefix, prefix), nil
}

func resetPrefix(ctx context.Context, c *core.Context) (any, error) {
	if err := c.Bot.PrefixSetting().Reset(ctx, c.GuildID()); err != nil {
		return nil, fmt.Errorf("reset prefix: %w", err)
	}
	return fmt.Sprintf("Prefix reset to `%s`.", c.Bot.DefaultPrefix), nil
}
