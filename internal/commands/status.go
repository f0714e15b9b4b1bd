package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/internal/status"
)

var activityNames = map[platform.ActivityType]string{
	platform.ActivityPlaying:   "Playing",
	platform.ActivityStreaming: "Streaming",
	platform.ActivityListening: "Listening to",
	platform.ActivityWatching:  "Watching",
	platform.ActivityCustom:    "Custom",
	platform.ActivityCompeting: "Competing in",
}

func statusCommand(d Deps, dev *core.Permission) *core.Command {
	return &core.Command{
		Name:        "status",
		Description: "Manage the bot's presence.",
		Category:    CategoryBot,
		Permission:  dev,
		Middleware:  d.common(),
		SubCommands: []*core.Command{
			{
				Name:        "add",
				Description: "Store a status. Type: 0 playing, 1 streaming, 2 listening, 3 watching, 5 competing.",
				Parameters:  []core.Parameter{{Name: "name|type"}},
				Action:      addStatus,
			},
			{
				Name:        "delete",
				Aliases:     []string{"remove"},
				Description: "Remove a stored status.",
				Parameters:  []core.Parameter{{Name: "name"}},
				Action:      deleteStatus,
			},
			{
				Name:        "list",
				Description: "List stored statuses.",
				Middleware:  []core.Middleware{embedLinks},
				Action:      listStatuses,
			},
			{
				Name:        "mode",
				Description: "Show or change how statuses are picked: manual, random or rotation.",
				Parameters:  []core.Parameter{{Name: "mode", Optional: true}},
				Action:      setStatusMode,
			},
			{
				Name:        "set",
				Description: "Show a status now, or pick the next one when none is given.",
				Parameters:  []core.Parameter{{Name: "name|type", Optional: true}},
				Action:      setStatus,
			},
		},
	}
}

func formatStatus(st status.Status) string {
	if st.Name == "" {
		return "nothing"
	}
	verb, ok := activityNames[st.Type]
	if !ok || st.Type == platform.ActivityCustom {
		return "`" + st.Name + "`"
	}
	return verb + " `" + st.Name + "`"
}

// statusError turns the manager's validation errors into replies; other errors are returned.
func statusError(err error) (any, error) {
	switch {
	case errors.Is(err, status.ErrInvalidStatus):
		return "Invalid status. Use `name|type`, e.g. `Overwatch|0`.", nil
	case errors.Is(err, status.ErrDuplicate):
		return "That status already exists.", nil
	case errors.Is(err, status.ErrUnknown):
		return "No such status.", nil
	case errors.Is(err, status.ErrInvalidMode):
		return "Unknown mode. Use `manual`, `random` or `rotation`.", nil
	}
	return nil, err
}

func addStatus(ctx context.Context, c *core.Context) (any, error) {
	st, err := status.Parse(c.Rest(0))
	if err != nil {
		return statusError(err)
	}
	if _, err := c.Bot.Status.AddStatus(ctx, st); err != nil {
		return statusError(err)
	}
	return "Added status " + formatStatus(st) + ".", nil
}

func deleteStatus(ctx context.Context, c *core.Context) (any, error) {
	name := c.Rest(0)
	if err := c.Bot.Status.DeleteStatus(ctx, name); err != nil {
		return statusError(err)
	}
	return fmt.Sprintf("Deleted status `%s`.", name), nil
}

func listStatuses(ctx context.Context, c *core.Context) (any, error) {
	statuses, err := c.Bot.Status.Statuses(ctx)
	if err != nil {
		return nil, err
	}
	if len(statuses) == 0 {
		return fmt.Sprintf("No statuses stored. Add one with `%sstatus add <name|type>`.", c.Prefix), nil
	}
	current := c.Bot.Status.Current()
	var b strings.Builder
	for i, st := range statuses {
		fmt.Fprintf(&b, "%d. %s", i+1, formatStatus(st))
		if strings.EqualFold(st.Name, current.Name) {
			b.WriteString(" (current)")
		}
		b.WriteString("\n")
	}
	return &platform.Embed{
		Title:       "Statuses",
		Description: strings.TrimSpace(b.String()),
		Color:       core.EmbedColor,
		Footer:      "Mode: " + string(c.Bot.Status.Mode()),
	}, nil
}

func setStatusMode(ctx context.Context, c *core.Context) (any, error) {
	if c.Param(0) == "" {
		return fmt.Sprintf("Status mode is `%s`.", c.Bot.Status.Mode()), nil
	}
	mode, err := status.ParseMode(c.Param(0))
	if err != nil {
		return statusError(err)
	}
	if err := c.Bot.Status.SetMode(ctx, mode); err != nil {
		return statusError(err)
	}
	return fmt.Sprintf("Status mode set to `%s`.", mode), nil
}

func setStatus(ctx context.Context, c *core.Context) (any, error) {
	var st *status.Status
	if raw := c.Rest(0); raw != "" {
		parsed, err := status.Parse(raw)
		if err != nil {
			return statusError(err)
		}
		st = &parsed
	}
	if err := c.Bot.Status.SetStatus(ctx, st); err != nil {
		return statusError(err)
	}
	return "Status is now " + formatStatus(c.Bot.Status.Current()) + ".", nil
}
