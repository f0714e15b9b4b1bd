package commands

import (
	"context"
	"fmt"

	"github.com/keshon/orator/internal/core"
)

func reloadCommand(d Deps, dev *core.Permission) *core.Command {
	return &core.Command{
		Name:        "reload",
		Description: "Reload command, permission and event definitions.",
		Category:    CategoryBot,
		Permission:  dev,
		Middleware:  d.common(),
		Action:      reload,
	}
}

func reload(ctx context.Context, c *core.Context) (any, error) {
	if c.Bot.Reloader == nil {
		return "Nothing to reload.", nil
	}
	if err := c.Bot.Reloader.Reload(ctx); err != nil {
		n := 1
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			n = len(joined.Unwrap())
		}
		c.Bot.Log.Warn().Err(err).Msg("Reload finished with errors")
		return fmt.Sprintf("Reloaded with %d error(s); broken definitions kept their previous version. Check the logs.", n), nil
	}
	return "Definitions reloaded.", nil
}
