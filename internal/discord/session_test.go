package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orator/internal/platform"
	"github.com/keshon/orator/pkg/retrylimit"
)

func restErr(status, code int) *discordgo.RESTError {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: status, Status: http.StatusText(status)},
		Message:  &discordgo.APIErrorMessage{Code: code, Message: "error"},
	}
}

func TestRESTErrors(t *testing.T) {
	wrapped := wrapREST(fmt.Errorf("call: %w", restErr(http.StatusTooManyRequests, 0)))
	assert.True(t, retrylimit.IsRateLimit(wrapped))
	assert.True(t, retrylimit.IsServerError(wrapREST(restErr(http.StatusBadGateway, 0))))

	err := unwrapREST(wrapREST(restErr(http.StatusNotFound, discordgo.ErrCodeUnknownMessage)))
	assert.ErrorIs(t, err, platform.ErrNotFound)

	err = unwrapREST(wrapREST(restErr(http.StatusForbidden, discordgo.ErrCodeMissingPermissions)))
	assert.NotErrorIs(t, err, platform.ErrNotFound)
	var rest *discordgo.RESTError
	assert.True(t, errors.As(err, &rest))

	plain := errors.New("boom")
	assert.Equal(t, plain, unwrapREST(wrapREST(plain)))
	assert.NoError(t, unwrapREST(nil))
}

func TestFromMessage(t *testing.T) {
	m := fromMessage(&discordgo.Message{
		ID:        "1",
		ChannelID: "c",
		GuildID:   "g",
		Content:   "!ping",
		Author:    &discordgo.User{ID: "u", Username: "name", Bot: true},
		Member:    &discordgo.Member{Roles: []string{"r1", "r2"}},
		Mentions:  []*discordgo.User{{ID: "999"}},
	})
	require.NotNil(t, m)
	assert.Equal(t, platform.User{ID: "u", Username: "name", Bot: true}, m.Author)
	assert.Equal(t, []string{"r1", "r2"}, m.MemberRoles)
	assert.Equal(t, "999", m.Mentions[0].ID)
	assert.True(t, m.InGuild())
	assert.Nil(t, fromMessage(nil))
}

func TestToMessageSend(t *testing.T) {
	send := toMessageSend(&platform.Outgoing{
		Content: "hi",
		Embed: &platform.Embed{
			Title:  "t",
			Color:  1,
			Fields: []platform.EmbedField{{Name: "n", Value: "v", Inline: true}},
			Footer: "f",
		},
		File: &platform.File{Name: "a.txt", Reader: strings.NewReader("x")},
	})
	assert.Equal(t, "hi", send.Content)
	require.Len(t, send.Embeds, 1)
	assert.Equal(t, "f", send.Embeds[0].Footer.Text)
	assert.True(t, send.Embeds[0].Fields[0].Inline)
	require.Len(t, send.Files, 1)
	assert.Equal(t, "a.txt", send.Files[0].Name)

	bare := toMessageSend(&platform.Outgoing{Content: "x"})
	assert.Empty(t, bare.Embeds)
	assert.Empty(t, bare.Files)
}

func TestOnEmit(t *testing.T) {
	s, err := New("token", zerolog.Nop())
	require.NoError(t, err)

	var got []platform.EventName
	s.On(platform.EventGuildCreate, func(_ context.Context, ev platform.Event) {
		got = append(got, ev.Name)
		assert.Equal(t, "g1", ev.GuildID)
	})
	s.onGuildCreate(nil, &discordgo.GuildCreate{Guild: &discordgo.Guild{ID: "g1", Name: "Guild"}})
	s.onGuildDelete(nil, &discordgo.GuildDelete{Guild: &discordgo.Guild{ID: "g1", Unavailable: true}})
	assert.Equal(t, []platform.EventName{platform.EventGuildCreate}, got)
}

func TestDoEmitsErrors(t *testing.T) {
	ctx := context.Background()
	s, err := New("token", zerolog.Nop())
	require.NoError(t, err)
	s.retry.MaxAttempts = 1

	var got []error
	s.On(platform.EventError, func(_ context.Context, ev platform.Event) {
		got = append(got, ev.Err)
	})

	boom := errors.New("boom")
	assert.ErrorIs(t, s.do(ctx, func() error { return boom }), boom)
	assert.ErrorIs(t, s.do(ctx, func() error {
		return restErr(http.StatusNotFound, discordgo.ErrCodeUnknownChannel)
	}), platform.ErrNotFound)
	assert.NoError(t, s.do(ctx, func() error { return nil }))

	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], boom)
}
