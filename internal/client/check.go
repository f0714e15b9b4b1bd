package client

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/config"
)

// Check loads the definitions named by cfg against the built-in catalog without a session
// or storage. It reports the same errors startup would.
func Check(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Client, error) {
	c := New(cfg, nil, nil, log)
	if err := c.Load(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
