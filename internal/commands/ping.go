package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/keshon/orator/internal/core"
)

// Latency is implemented by sessions that know their gateway heartbeat latency.
type Latency interface {
	HeartbeatLatency() time.Duration
}

func pingCommand(d Deps) *core.Command {
	return &core.Command{
		Name:        "ping",
		Description: "Check bot latency",
		Category:    CategoryInformation,
		Middleware:  d.common(),
		Action:      ping,
	}
}

func ping(_ context.Context, c *core.Context) (any, error) {
	if l, ok := c.Bot.Session.(Latency); ok {
		return fmt.Sprintf("🏓 Pong! Response time: `%dms`", l.HeartbeatLatency().Milliseconds()), nil
	}
	return "🏓 Pong!", nil
}
