package core

import "context"

// Middleware runs after the permission check and before the action. A non-nil error aborts
// the invocation; its message is sent to the user.
type Middleware interface {
	Run(ctx context.Context, b *Bot, c *Context) error
}

// MiddlewareFunc adapts a function to Middleware.
type MiddlewareFunc func(ctx context.Context, b *Bot, c *Context) error

func (f MiddlewareFunc) Run(ctx context.Context, b *Bot, c *Context) error {
	return f(ctx, b, c)
}

// Reject is a middleware error whose message is meant for the user.
type Reject string

func (r Reject) Error() string { return string(r) }
