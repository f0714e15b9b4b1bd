package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// DefaultDenialReason is shown when a permission has no Reason.
const DefaultDenialReason = "You do not have the required permissions to use this command."

var ErrMissingCheck = errors.New("permission has no check")

// Check decides whether the invoker of c holds a permission. Checks must not have side
// effects: the override search may evaluate several of them.
type Check func(ctx context.Context, c *Context) bool

// Permission is a leveled check. Higher levels are more privileged.
type Permission struct {
	Name   string
	Level  int
	Reason string
	Check  Check
	Source string
}

func (p *Permission) Key() string { return strings.ToLower(p.Name) }

func (p *Permission) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("permission has no name")
	}
	if p.Check == nil {
		return fmt.Errorf("%s: %w", p.Name, ErrMissingCheck)
	}
	if p.Level < 0 {
		return fmt.Errorf("%s: negative level %d", p.Name, p.Level)
	}
	return nil
}

// Allows runs the check. A panicking check denies.
func (p *Permission) Allows(ctx context.Context, c *Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()
	return p.Check(ctx, c)
}

// DenialReason returns Reason or DefaultDenialReason.
func (p *Permission) DenialReason() string {
	if p.Reason == "" {
		return DefaultDenialReason
	}
	return p.Reason
}
