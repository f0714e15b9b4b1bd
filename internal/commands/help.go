package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
)

func helpCommand(d Deps) *core.Command {
	return &core.Command{
		Name:        "help",
		Description: "Show available commands or details about one of them.",
		Category:    CategoryInformation,
		Aliases:     []string{"h"},
		Parameters:  []core.Parameter{{Name: "command", Optional: true}},
		Middleware:  d.common(embedLinks),
		Action:      help,
	}
}

func help(_ context.Context, c *core.Context) (any, error) {
	if name := c.Param(0); name != "" {
		return helpFor(c, name), nil
	}

	cmds := c.Bot.Commands.All()
	var order []string
	groups := make(map[string][]*core.Command)
	for _, cmd := range cmds {
		cat := cmd.Category
		if cat == "" {
			cat = "General"
		}
		if _, seen := groups[cat]; !seen {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], cmd)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return categoryWeight(order[i]) < categoryWeight(order[j])
	})

	var b strings.Builder
	for _, cat := range order {
		fmt.Fprintf(&b, "**%s**\n", cat)
		for _, cmd := range groups[cat] {
			fmt.Fprintf(&b, "`%s%s` - %s\n", c.Prefix, cmd.Name, describe(cmd))
		}
		b.WriteString("\n")
	}

	return &platform.Embed{
		Title:       "📖 Available Commands",
		Description: strings.TrimSpace(b.String()),
		Color:       core.EmbedColor,
		Footer:      fmt.Sprintf("Use %shelp <command> for details.", c.Prefix),
	}, nil
}

// helpFor describes one command, following sub-command names in the remaining parameters.
func helpFor(c *core.Context, name string) any {
	cmd := c.Bot.Commands.Search(name)
	if cmd == nil {
		return fmt.Sprintf("Unknown command `%s`. Use `%shelp` to list commands.", name, c.Prefix)
	}
	path := []string{cmd.Name}
	for _, token := range c.Params[1:] {
		sub := cmd.SubCommand(token)
		if sub == nil {
			break
		}
		cmd = sub
		path = append(path, sub.Name)
	}

	embed := &platform.Embed{
		Title:       c.Prefix + strings.Join(path, " "),
		Description: describe(cmd),
		Color:       core.EmbedColor,
	}
	embed.Fields = append(embed.Fields, platform.EmbedField{Name: "Usage", Value: "`" + cmd.Usage(c.Prefix, path) + "`"})
	if len(cmd.Aliases) > 0 {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: "Aliases", Value: strings.Join(cmd.Aliases, ", "), Inline: true})
	}
	if cmd.Permission != nil {
		embed.Fields = append(embed.Fields, platform.EmbedField{Name: "Permission", Value: cmd.Permission.Name, Inline: true})
	}
	for _, sub := range cmd.SubCommands {
		subPath := append(append([]string(nil), path...), sub.Name)
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  "`" + sub.Usage(c.Prefix, subPath) + "`",
			Value: describe(sub),
		})
	}
	return embed
}

func describe(cmd *core.Command) string {
	if cmd.Description == "" {
		return "No description."
	}
	return cmd.Description
}
