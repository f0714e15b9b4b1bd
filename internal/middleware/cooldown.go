package middleware

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/keshon/orator/internal/core"
)

// Cooldown limits every user to one invocation per command and interval.
type Cooldown struct {
	interval time.Duration
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*cooldownEntry
}

type cooldownEntry struct {
	lim  *rate.Limiter
	last time.Time
}

// NewCooldown returns a Cooldown. A non-positive interval disables it.
func NewCooldown(interval time.Duration) *Cooldown {
	return &Cooldown{
		interval: interval,
		now:      time.Now,
		entries:  make(map[string]*cooldownEntry),
	}
}

func (cd *Cooldown) Run(_ context.Context, _ *core.Bot, c *core.Context) error {
	if cd.interval <= 0 {
		return nil
	}
	key := c.AuthorID() + "/" + strings.ToLower(strings.Join(c.Path, " "))
	now := cd.now()

	cd.mu.Lock()
	e, ok := cd.entries[key]
	if !ok {
		e = &cooldownEntry{lim: rate.NewLimiter(rate.Every(cd.interval), 1)}
		cd.entries[key] = e
	}
	e.last = now
	r := e.lim.ReserveN(now, 1)
	cd.mu.Unlock()

	if wait := r.DelayFrom(now); wait > 0 {
		r.CancelAt(now)
		secs := int(math.Ceil(wait.Seconds()))
		return core.Reject(fmt.Sprintf("Slow down! You can use this command again in %ds.", secs))
	}
	return nil
}

// Sweep forgets users whose cooldown has expired and returns how many were dropped.
func (cd *Cooldown) Sweep() int {
	now := cd.now()
	cd.mu.Lock()
	defer cd.mu.Unlock()
	n := 0
	for key, e := range cd.entries {
		if now.Sub(e.last) >= cd.interval {
			delete(cd.entries, key)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every minute until ctx is done.
func (cd *Cooldown) RunSweeper(ctx context.Context) error {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			cd.Sweep()
		}
	}
}

func (cd *Cooldown) size() int {
	cd.mu.Lock()
	defer cd.mu.Unlock()
	return len(cd.entries)
}
