// Package permissions provides check constructors and the built-in permission ladder:
// Everyone < configured role levels < Moderator < Administrator < Owner < Developer.
package permissions

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
)

// Built-in permission levels.
const (
	LevelEveryone      = 0
	LevelModerator     = 50
	LevelAdministrator = 100
	LevelOwner         = 110
	LevelDeveloper     = 1000
)

// Config configures Builtins.
type Config struct {
	Developers []string
	// RoleLevels maps a guild role ID to a permission level.
	RoleLevels map[string]int
}

// Builtins returns the built-in permissions, ordered by level.
func Builtins(cfg Config) []*core.Permission {
	perms := []*core.Permission{
		{
			Name:  "Everyone",
			Level: LevelEveryone,
			Check: func(context.Context, *core.Context) bool { return true },
		},
		{
			Name:   "Moderator",
			Level:  LevelModerator,
			Reason: "This command is for moderators only.",
			Check:  HasChannelPermission(platform.PermissionManageMessages),
		},
		{
			Name:   "Administrator",
			Level:  LevelAdministrator,
			Reason: "This command is for administrators only.",
			Check:  HasChannelPermission(platform.PermissionAdministrator),
		},
		{
			Name:   "Owner",
			Level:  LevelOwner,
			Reason: "This command is for the server owner only.",
			Check:  IsGuildOwner(),
		},
		{
			Name:   "Developer",
			Level:  LevelDeveloper,
			Reason: "This command is for bot developers only.",
			Check:  IsUser(cfg.Developers...),
		},
	}

	roles := make([]string, 0, len(cfg.RoleLevels))
	for id := range cfg.RoleLevels {
		roles = append(roles, id)
	}
	sort.Strings(roles)
	for _, id := range roles {
		perms = append(perms, &core.Permission{
			Name:  "Role-" + id,
			Level: cfg.RoleLevels[id],
			Check: HasRole(id),
		})
	}

	sort.SliceStable(perms, func(i, j int) bool { return perms[i].Level < perms[j].Level })
	return perms
}

// HasRole passes when the author holds any of roleIDs in the current guild.
func HasRole(roleIDs ...string) core.Check {
	return func(_ context.Context, c *core.Context) bool {
		if !c.Message.InGuild() {
			return false
		}
		for _, r := range c.Message.MemberRoles {
			if slices.Contains(roleIDs, r) {
				return true
			}
		}
		return false
	}
}

// IsUser passes for the listed user IDs.
func IsUser(userIDs ...string) core.Check {
	return func(_ context.Context, c *core.Context) bool {
		return c.Message != nil && slices.Contains(userIDs, c.Message.Author.ID)
	}
}

// HasChannelPermission passes when the author has any of perms in the message's channel.
// Administrator implies every permission.
func HasChannelPermission(perms ...platform.Permissions) core.Check {
	return func(ctx context.Context, c *core.Context) bool {
		if !c.Message.InGuild() || c.Bot == nil || c.Bot.Session == nil {
			return false
		}
		have, err := c.Bot.Session.ChannelPermissions(ctx, c.Message.Author.ID, c.Message.ChannelID)
		if err != nil {
			return false
		}
		for _, p := range perms {
			if have.Has(p) {
				return true
			}
		}
		return false
	}
}

// IsGuildOwner passes for the owner of the message's guild.
func IsGuildOwner() core.Check {
	return func(ctx context.Context, c *core.Context) bool {
		if !c.Message.InGuild() || c.Bot == nil || c.Bot.Session == nil {
			return false
		}
		owner, err := c.Bot.Session.GuildOwner(ctx, c.Message.GuildID)
		return err == nil && owner == c.Message.Author.ID
	}
}

// Any passes when one of checks passes.
func Any(checks ...core.Check) core.Check {
	return func(ctx context.Context, c *core.Context) bool {
		for _, check := range checks {
			if check(ctx, c) {
				return true
			}
		}
		return false
	}
}

// ParseChannelPermissions resolves permission names such as "ManageMessages".
func ParseChannelPermissions(names []string) ([]platform.Permissions, error) {
	out := make([]platform.Permissions, 0, len(names))
	for _, n := range names {
		p, ok := platform.ParsePermission(n)
		if !ok {
			return nil, fmt.Errorf("unknown permission %q", n)
		}
		out = append(out, p)
	}
	return out, nil
}
