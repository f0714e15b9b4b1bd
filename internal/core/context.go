package core

import (
	"strings"

	"github.com/keshon/orator/internal/platform"
)

// Context is the per-invocation state handed to checks, middleware and actions.
type Context struct {
	// Params are the tokens left after the command path, in their original casing.
	Params  []string
	Message *platform.Message
	// Command is the command being resolved; it changes as sub-commands are entered.
	Command *Command
	Bot     *Bot
	Prefix  string
	// Path holds the resolved command names, e.g. ["status", "add"].
	Path []string
}

// Param returns the i-th parameter or "".
func (c *Context) Param(i int) string {
	if i < 0 || i >= len(c.Params) {
		return ""
	}
	return c.Params[i]
}

// Rest joins the parameters from i on with single spaces.
func (c *Context) Rest(i int) string {
	if i < 0 || i >= len(c.Params) {
		return ""
	}
	return strings.Join(c.Params[i:], " ")
}

func (c *Context) GuildID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.GuildID
}

func (c *Context) AuthorID() string {
	if c.Message == nil {
		return ""
	}
	return c.Message.Author.ID
}

// Usage is the usage line of the current command.
func (c *Context) Usage() string {
	if c.Command == nil {
		return ""
	}
	return c.Command.Usage(c.Prefix, c.Path)
}
