package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/storage"
)

// LogRecordType is the storage type of command log records.
const LogRecordType = "command_log"

// DefaultLogSize is how many invocations are kept per guild.
const DefaultLogSize = 20

// LogEntry is one recorded invocation.
type LogEntry struct {
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	Command   string
	At        time.Time
}

// CommandLog records guild invocations to storage and keeps the most recent ones. Logging
// failures never reject the invocation.
type CommandLog struct {
	store storage.Client
	keep  int
	log   zerolog.Logger
	now   func() time.Time
}

func NewCommandLog(store storage.Client, keep int, log zerolog.Logger) *CommandLog {
	if keep <= 0 {
		keep = DefaultLogSize
	}
	return &CommandLog{store: store, keep: keep, log: log, now: time.Now}
}

func (l *CommandLog) Run(ctx context.Context, _ *core.Bot, c *core.Context) error {
	if !c.Message.InGuild() {
		return nil
	}
	e := LogEntry{
		GuildID:   c.Message.GuildID,
		ChannelID: c.Message.ChannelID,
		UserID:    c.Message.Author.ID,
		Username:  c.Message.Author.Username,
		Command:   strings.Join(c.Path, " "),
		At:        l.now().UTC(),
	}
	if err := l.Record(ctx, e); err != nil {
		l.log.Warn().Err(err).Str("command", e.Command).Str("guild", e.GuildID).Msg("Failed to log command")
	}
	return nil
}

// Record stores e and trims the guild's log to the configured size.
func (l *CommandLog) Record(ctx context.Context, e LogEntry) error {
	_, err := l.store.Add(ctx, LogRecordType, map[string]any{
		"guild":    e.GuildID,
		"channel":  e.ChannelID,
		"user":     e.UserID,
		"username": e.Username,
		"command":  e.Command,
		"at":       e.At.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}

	recs, err := l.store.Find(ctx, logQuery(e.GuildID))
	if err != nil {
		return fmt.Errorf("trim command log: %w", err)
	}
	for len(recs) > l.keep {
		if err := l.store.Delete(ctx, recs[0]); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("trim command log: %w", err)
		}
		recs = recs[1:]
	}
	return nil
}

// Recent returns the guild's logged invocations, oldest first.
func (l *CommandLog) Recent(ctx context.Context, guildID string) ([]LogEntry, error) {
	recs, err := l.store.Find(ctx, logQuery(guildID))
	if err != nil {
		return nil, fmt.Errorf("read command log: %w", err)
	}
	out := make([]LogEntry, 0, len(recs))
	for _, r := range recs {
		at, _ := time.Parse(time.RFC3339Nano, r.String("at"))
		out = append(out, LogEntry{
			GuildID:   r.String("guild"),
			ChannelID: r.String("channel"),
			UserID:    r.String("user"),
			Username:  r.String("username"),
			Command:   r.String("command"),
			At:        at,
		})
	}
	return out, nil
}

// Purge drops the guild's log.
func (l *CommandLog) Purge(ctx context.Context, guildID string) error {
	recs, err := l.store.Find(ctx, logQuery(guildID))
	if err != nil {
		return fmt.Errorf("purge command log: %w", err)
	}
	for _, r := range recs {
		if err := l.store.Delete(ctx, r); err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("purge command log: %w", err)
		}
	}
	return nil
}

func logQuery(guildID string) storage.Query {
	return storage.Query{Type: LogRecordType, Where: storage.Eq("guild", guildID)}
}
