// Package middleware holds the built-in command middleware: guards that run after the
// permission check and reject an invocation with a message for the user.
package middleware

import (
	"context"

	"github.com/keshon/orator/internal/core"
)

// Chain runs mws in order and stops at the first rejection.
func Chain(mws ...core.Middleware) core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, b *core.Bot, c *core.Context) error {
		for _, mw := range mws {
			if err := mw.Run(ctx, b, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// rootName is the top-level command of an invocation.
func rootName(c *core.Context) string {
	if len(c.Path) > 0 {
		return c.Path[0]
	}
	if c.Command != nil {
		return c.Command.Name
	}
	return ""
}
