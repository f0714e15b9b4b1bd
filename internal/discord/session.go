// Package discord adapts a discordgo gateway session to platform.Session.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/pkg/retrylimit"
)

// Session is a platform.Session backed by discordgo. REST calls are retried with backoff
// behind an adaptive rate limiter.
type Session struct {
	dg    *discordgo.Session
	log   zerolog.Logger
	lim   *retrylimit.AdaptiveLimiter
	retry retrylimit.Config

	mu       sync.RWMutex
	handlers map[platform.EventName][]platform.Handler
	ctx      context.Context
}

// New creates a session for a bot token. Nothing connects until Open.
func New(token string, log zerolog.Logger) (*Session, error) {
	dg, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentMessageContent

	s := &Session{
		dg:       dg,
		log:      log.With().Str("component", "discord").Logger(),
		lim:      retrylimit.NewAdaptiveLimiter(5, 1, 20, 1, 0.5),
		retry:    retrylimit.DefaultConfig(),
		handlers: make(map[platform.EventName][]platform.Handler),
		ctx:      context.Background(),
	}
	s.retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		s.log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("Retrying Discord request")
	}
	s.addHandlers()
	return s, nil
}

// Open connects to the gateway. Events are delivered with ctx until Close.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	if err := s.dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	return nil
}

func (s *Session) Close() error {
	return s.dg.Close()
}

func (s *Session) SelfID() string {
	if s.dg.State == nil || s.dg.State.User == nil {
		return ""
	}
	return s.dg.State.User.ID
}

// HeartbeatLatency is the gateway round trip, used by the ping command.
func (s *Session) HeartbeatLatency() time.Duration {
	return s.dg.HeartbeatLatency()
}

func (s *Session) SendMessage(ctx context.Context, channelID string, out *platform.Outgoing) (*platform.Message, error) {
	send := toMessageSend(out)
	var sent *discordgo.Message
	err := s.do(ctx, func() error {
		var err error
		sent, err = s.dg.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("send message to %s: %w", channelID, err)
	}
	return fromMessage(sent), nil
}

func (s *Session) SendDirectMessage(ctx context.Context, userID string, out *platform.Outgoing) (*platform.Message, error) {
	var ch *discordgo.Channel
	err := s.do(ctx, func() error {
		var err error
		ch, err = s.dg.UserChannelCreate(userID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open DM with %s: %w", userID, err)
	}
	return s.SendMessage(ctx, ch.ID, out)
}

func (s *Session) DeleteMessage(ctx context.Context, msg *platform.Message) error {
	err := s.do(ctx, func() error {
		return s.dg.ChannelMessageDelete(msg.ChannelID, msg.ID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return fmt.Errorf("delete message %s: %w", msg.ID, err)
	}
	return nil
}

func (s *Session) ChannelPermissions(ctx context.Context, userID, channelID string) (platform.Permissions, error) {
	perms, err := s.dg.State.UserChannelPermissions(userID, channelID)
	if err == nil {
		return platform.Permissions(perms), nil
	}
	err = s.do(ctx, func() error {
		var err error
		perms, err = s.dg.UserChannelPermissions(userID, channelID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("channel permissions of %s in %s: %w", userID, channelID, err)
	}
	return platform.Permissions(perms), nil
}

// GuildOwner reads the owner from the state cache, falling back to the API.
func (s *Session) GuildOwner(ctx context.Context, guildID string) (string, error) {
	if g, err := s.dg.State.Guild(guildID); err == nil && g.OwnerID != "" {
		return g.OwnerID, nil
	}
	var g *discordgo.Guild
	err := s.do(ctx, func() error {
		var err error
		g, err = s.dg.Guild(guildID, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return "", fmt.Errorf("guild %s: %w", guildID, err)
	}
	return g.OwnerID, nil
}

func (s *Session) LeaveGuild(ctx context.Context, guildID string) error {
	err := s.do(ctx, func() error {
		return s.dg.GuildLeave(guildID, discordgo.WithContext(ctx))
	})
	if err != nil {
		return fmt.Errorf("leave guild %s: %w", guildID, err)
	}
	return nil
}

// SetPresence updates the bot's activity. An empty name clears it.
func (s *Session) SetPresence(_ context.Context, name string, activity platform.ActivityType) error {
	data := discordgo.UpdateStatusData{Status: string(discordgo.StatusOnline)}
	if name != "" {
		a := &discordgo.Activity{Name: name, Type: discordgo.ActivityType(activity)}
		if activity == platform.ActivityCustom {
			a.State = name
		}
		data.Activities = []*discordgo.Activity{a}
	}
	return s.dg.UpdateStatusComplex(data)
}

// do runs a REST call with retries. Failures other than not-found responses and
// cancellation are reported as error events.
func (s *Session) do(ctx context.Context, fn func() error) error {
	err := unwrapREST(retrylimit.Do(ctx, s.lim, s.retry, func() error {
		return wrapREST(fn())
	}))
	if err != nil && !errors.Is(err, platform.ErrNotFound) && ctx.Err() == nil {
		s.emit(platform.Event{Name: platform.EventError, Err: err})
	}
	return err
}

// restError exposes the HTTP status of a discordgo REST error to retrylimit.
type restError struct {
	err *discordgo.RESTError
}

func (e *restError) Error() string { return e.err.Error() }
func (e *restError) Unwrap() error { return e.err }

func (e *restError) StatusCode() int {
	if e.err.Response == nil {
		return 0
	}
	return e.err.Response.StatusCode
}

func wrapREST(err error) error {
	var rest *discordgo.RESTError
	if errors.As(err, &rest) {
		return &restError{err: rest}
	}
	return err
}

// unwrapREST maps "unknown message/channel/guild" responses to platform.ErrNotFound.
func unwrapREST(err error) error {
	if err == nil {
		return nil
	}
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return err
	}
	if isNotFound(rest) {
		return fmt.Errorf("%w: %s", platform.ErrNotFound, rest.Error())
	}
	return err
}

func isNotFound(rest *discordgo.RESTError) bool {
	if rest.Message != nil {
		switch rest.Message.Code {
		case discordgo.ErrCodeUnknownMessage, discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownGuild:
			return true
		}
	}
	return rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound
}
