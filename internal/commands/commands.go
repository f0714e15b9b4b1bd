// Package commands holds the built-in commands: help, ping, prefix, status, commands and
// reload. Builtins returns them ready for a CommandMap; Register exposes their actions and
// the built-in middleware to definition files.
package commands

import (
	"fmt"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/middleware"
	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/registry"
	"github.com/keshon/orator/internal/settings"
)

// Categories used by the built-in commands.
const (
	CategoryInformation = "Information"
	CategorySettings    = "Settings"
	CategoryBot         = "Bot"
)

// CategoryWeights orders the help listing. Unlisted categories follow in order of first
// appearance.
var CategoryWeights = map[string]int{
	CategoryInformation: 0,
	"General":           10,
	CategorySettings:    50,
	CategoryBot:         60,
}

func categoryWeight(cat string) int {
	if w, ok := CategoryWeights[cat]; ok {
		return w
	}
	return 100
}

// Deps are the stateful middleware the built-in commands use. Nil fields are skipped.
type Deps struct {
	Toggle   *middleware.CommandToggle
	Log      *middleware.CommandLog
	Cooldown *middleware.Cooldown
}

// embedLinks guards the built-ins that reply with embeds.
var embedLinks = middleware.BotPermissions(platform.PermissionEmbedLinks)

// common is the middleware every built-in command runs.
func (d Deps) common(extra ...core.Middleware) []core.Middleware {
	var mws []core.Middleware
	if d.Toggle != nil {
		mws = append(mws, d.Toggle)
	}
	if d.Cooldown != nil {
		mws = append(mws, d.Cooldown)
	}
	mws = append(mws, extra...)
	if d.Log != nil {
		mws = append(mws, d.Log)
	}
	return mws
}

// NewToggle returns the command toggle used by the built-in commands. The commands
// command itself can never be disabled.
func NewToggle(s *settings.Settings) *middleware.CommandToggle {
	return middleware.NewCommandToggle(s, "commands")
}

// Builtins returns the built-in commands. Their permissions are looked up by name in
// perms, which must hold the built-in permissions.
func Builtins(perms *registry.PermissionMap, d Deps) ([]*core.Command, error) {
	lookup := func(name string) (*core.Permission, error) {
		p, ok := perms.Get(name)
		if !ok {
			return nil, fmt.Errorf("built-in commands: permission %q is not registered", name)
		}
		return p, nil
	}
	admin, err := lookup("Administrator")
	if err != nil {
		return nil, err
	}
	dev, err := lookup("Developer")
	if err != nil {
		return nil, err
	}

	return []*core.Command{
		helpCommand(d),
		pingCommand(d),
		prefixCommand(d, admin),
		statusCommand(d, dev),
		commandsCommand(d, admin),
		reloadCommand(d, dev),
	}, nil
}

// Register exposes the built-in actions and middleware under the names definition files
// use, e.g. `action: status.add` or `middleware: [guildOnly]`.
func Register(catalog *registry.Catalog, d Deps) {
	catalog.
		RegisterAction("help", help).
		RegisterAction("ping", ping).
		RegisterAction("prefix", setPrefix).
		RegisterAction("prefix.reset", resetPrefix).
		RegisterAction("status.add", addStatus).
		RegisterAction("status.delete", deleteStatus).
		RegisterAction("status.list", listStatuses).
		RegisterAction("status.mode", setStatusMode).
		RegisterAction("status.set", setStatus).
		RegisterAction("reload", reload).
		RegisterMiddleware("guildOnly", middleware.GuildOnly()).
		RegisterMiddleware("botEmbedLinks", embedLinks)

	if d.Toggle != nil {
		catalog.
			RegisterAction("commands.enable", enableCommand(d.Toggle)).
			RegisterAction("commands.disable", disableCommand(d.Toggle)).
			RegisterAction("commands.list", listCommands(d.Toggle)).
			RegisterMiddleware("commandToggle", d.Toggle)
	}
	if d.Log != nil {
		catalog.
			RegisterAction("commands.log", commandLog(d.Log)).
			RegisterMiddleware("commandLog", d.Log)
	}
	if d.Cooldown != nil {
		catalog.RegisterMiddleware("cooldown", d.Cooldown)
	}
}
