package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingName     = errors.New("command has no name")
	ErrMissingAction   = errors.New("command has neither an action nor sub-commands")
	ErrParameterOrder  = errors.New("required parameter follows an optional one")
	ErrDuplicateSubKey = errors.New("duplicate sub-command name or alias")
)

// Action runs a command. The returned value is normalised by Normalize.
type Action func(ctx context.Context, c *Context) (any, error)

// Parameter is a positional parameter label. Only the number of required parameters gates
// execution.
type Parameter struct {
	Name     string `yaml:"name" json:"name"`
	Optional bool   `yaml:"optional" json:"optional"`
}

// Command is a named, invokable action. Build it as a literal and let the registry (or
// NewCommand) validate it; do not change it after it is loaded.
type Command struct {
	Name        string
	Description string
	Category    string
	Aliases     []string
	Parameters  []Parameter

	// Permission gates execution. nil means unrestricted.
	Permission *Permission
	Middleware []Middleware
	// SubCommands are resolved by name or alias, case-insensitively.
	SubCommands []*Command

	// nil falls back to the dispatcher defaults.
	DeleteInvoking      *bool
	DeleteResponse      *bool
	DeleteResponseDelay *time.Duration

	Action Action

	// Source is the file the command was loaded from, empty for in-memory commands.
	Source string

	subs map[string]*Command
}

// NewCommand validates def and returns it.
func NewCommand(def *Command) (*Command, error) {
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return def, nil
}

// MustCommand is NewCommand for statically defined commands.
func MustCommand(def *Command) *Command {
	c, err := NewCommand(def)
	if err != nil {
		panic(err)
	}
	return c
}

// Key is the lower-cased name commands are registered under.
func (c *Command) Key() string { return strings.ToLower(c.Name) }

// Keys returns the lower-cased name followed by the lower-cased aliases.
func (c *Command) Keys() []string {
	keys := []string{c.Key()}
	for _, a := range c.Aliases {
		keys = append(keys, strings.ToLower(a))
	}
	return keys
}

// Validate checks the command tree and indexes sub-commands.
func (c *Command) Validate() error {
	if strings.TrimSpace(c.Name) == "" || strings.ContainsAny(c.Name, " \t\n") {
		return fmt.Errorf("%w: %q", ErrMissingName, c.Name)
	}
	if c.Action == nil && len(c.SubCommands) == 0 {
		return fmt.Errorf("%s: %w", c.Name, ErrMissingAction)
	}
	optional := false
	for _, p := range c.Parameters {
		if p.Optional {
			optional = true
			continue
		}
		if optional {
			return fmt.Errorf("%s: %w: %s", c.Name, ErrParameterOrder, p.Name)
		}
	}
	if c.Permission != nil {
		if err := c.Permission.Validate(); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
	}

	subs := make(map[string]*Command, len(c.SubCommands))
	for _, sub := range c.SubCommands {
		if sub == nil {
			return fmt.Errorf("%s: nil sub-command", c.Name)
		}
		if err := sub.Validate(); err != nil {
			return fmt.Errorf("%s: %w", c.Name, err)
		}
		for _, k := range sub.Keys() {
			if _, dup := subs[k]; dup {
				return fmt.Errorf("%s: %w: %s", c.Name, ErrDuplicateSubKey, k)
			}
			subs[k] = sub
		}
	}
	c.subs = subs
	return nil
}

// RequiredParams returns the number of leading required parameters.
func (c *Command) RequiredParams() int {
	n := 0
	for _, p := range c.Parameters {
		if p.Optional {
			break
		}
		n++
	}
	return n
}

// SubCommand looks up a direct sub-command by name or alias.
func (c *Command) SubCommand(key string) *Command {
	if c.subs == nil {
		return nil
	}
	return c.subs[strings.ToLower(key)]
}

// Usage renders an invocation line, e.g. "!status add <status>" or "!help [command]".
func (c *Command) Usage(prefix string, path []string) string {
	var b strings.Builder
	b.WriteString(prefix)
	if len(path) == 0 {
		b.WriteString(c.Name)
	} else {
		b.WriteString(strings.Join(path, " "))
	}
	for _, p := range c.Parameters {
		if p.Optional {
			fmt.Fprintf(&b, " [%s]", p.Name)
		} else {
			fmt.Fprintf(&b, " <%s>", p.Name)
		}
	}
	return b.String()
}

// Bool returns a pointer to b, for the deletion policy fields.
func Bool(b bool) *bool { return &b }

// Duration returns a pointer to d.
func Duration(d time.Duration) *time.Duration { return &d }
