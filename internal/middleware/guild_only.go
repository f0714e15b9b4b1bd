package middleware

import (
	"context"

	"github.com/keshon/orator/internal/core"
)

const guildOnlyMessage = "This command can only be used in a server."

// GuildOnly rejects invocations from direct messages.
func GuildOnly() core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, _ *core.Bot, c *core.Context) error {
		if !c.Message.InGuild() {
			return core.Reject(guildOnlyMessage)
		}
		return nil
	})
}
