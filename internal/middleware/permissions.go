package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
)

// BotPermissions rejects invocations in channels where the bot lacks any of perms.
// Direct messages pass.
func BotPermissions(perms ...platform.Permissions) core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, b *core.Bot, c *core.Context) error {
		if !c.Message.InGuild() {
			return nil
		}
		have, err := b.Session.ChannelPermissions(ctx, b.Session.SelfID(), c.Message.ChannelID)
		if err != nil {
			return fmt.Errorf("failed to get bot permissions: %w", err)
		}

		var missing []string
		for _, p := range perms {
			if have.Has(p) {
				continue
			}
			name := platform.PermissionNames[p]
			if name == "" {
				name = fmt.Sprintf("0x%x", int64(p))
			}
			missing = append(missing, name)
		}
		if len(missing) > 0 {
			return core.Reject(fmt.Sprintf(
				"I need the following permissions in this channel to run this command:\n`%s`",
				strings.Join(missing, "`, `"),
			))
		}
		return nil
	})
}
