package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keshon/orator/internal/platform"
)

func noop(context.Context, *Context) (any, error) { return nil, nil }

func TestCommand_ParameterOrder(t *testing.T) {
	orders := [][]Parameter{
		{{Name: "a", Optional: true}, {Name: "b"}},
		{{Name: "a"}, {Name: "b", Optional: true}, {Name: "c"}},
		{{Name: "a", Optional: true}, {Name: "b", Optional: true}, {Name: "c"}},
	}
	for _, params := range orders {
		_, err := NewCommand(&Command{Name: "x", Parameters: params, Action: noop})
		assert.ErrorIs(t, err, ErrParameterOrder)
	}

	c, err := NewCommand(&Command{Name: "x", Action: noop, Parameters: []Parameter{
		{Name: "a"}, {Name: "b"}, {Name: "c", Optional: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, c.RequiredParams())
}

func TestCommand_Validate(t *testing.T) {
	_, err := NewCommand(&Command{Action: noop})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = NewCommand(&Command{Name: "two words", Action: noop})
	assert.ErrorIs(t, err, ErrMissingName)

	_, err = NewCommand(&Command{Name: "empty"})
	assert.ErrorIs(t, err, ErrMissingAction)

	_, err = NewCommand(&Command{Name: "x", Action: noop, Permission: &Permission{Name: "p"}})
	assert.ErrorIs(t, err, ErrMissingCheck)

	_, err = NewCommand(&Command{Name: "parent", SubCommands: []*Command{
		{Name: "add", Action: noop},
		{Name: "plus", Aliases: []string{"ADD"}, Action: noop},
	}})
	assert.ErrorIs(t, err, ErrDuplicateSubKey)

	_, err = NewCommand(&Command{Name: "parent", SubCommands: []*Command{
		{Name: "deep", SubCommands: []*Command{{Name: "broken"}}},
	}})
	assert.ErrorIs(t, err, ErrMissingAction)
}

func TestCommand_SubCommandLookup(t *testing.T) {
	add := &Command{Name: "add", Aliases: []string{"new"}, Action: noop}
	c := MustCommand(&Command{Name: "status", SubCommands: []*Command{add}})

	assert.Same(t, add, c.SubCommand("ADD"))
	assert.Same(t, add, c.SubCommand("new"))
	assert.Nil(t, c.SubCommand("delete"))
	assert.Nil(t, add.SubCommand("anything"))
}

func TestCommand_Usage(t *testing.T) {
	c := MustCommand(&Command{Name: "add", Action: noop, Parameters: []Parameter{
		{Name: "status"}, {Name: "note", Optional: true},
	}})
	assert.Equal(t, "!status add <status> [note]", c.Usage("!", []string{"status", "add"}))
	assert.Equal(t, "?add <status> [note]", c.Usage("?", nil))
}

func TestMustCommand_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCommand(&Command{}) })
}

func TestPermission(t *testing.T) {
	p := &Permission{Name: "VIP", Level: 60, Check: func(context.Context, *Context) bool { panic("boom") }}
	assert.False(t, p.Allows(context.Background(), &Context{}))
	assert.Equal(t, DefaultDenialReason, p.DenialReason())

	p.Reason = "VIPs only."
	assert.Equal(t, "VIPs only.", p.DenialReason())
	assert.Equal(t, "vip", p.Key())
}

func TestNormalize(t *testing.T) {
	embed := &platform.Embed{Title: "t"}

	assert.Nil(t, Normalize(nil))
	assert.Nil(t, Normalize(""))
	assert.Nil(t, Normalize(&Response{}))
	assert.Nil(t, Normalize((*Response)(nil)))
	assert.Equal(t, &Response{Content: "hi"}, Normalize("hi"))
	assert.Equal(t, &Response{Embed: embed}, Normalize(embed))
	assert.Equal(t, &Response{Content: "x", DM: true}, Normalize(Response{Content: "x", DM: true}))
	assert.Equal(t, &Response{Content: "42"}, Normalize(42))
}

func TestContext_Helpers(t *testing.T) {
	c := &Context{Params: []string{"a", "b c", "d"}, Message: &platform.Message{GuildID: "g", Author: platform.User{ID: "u"}}}
	assert.Equal(t, "b c", c.Param(1))
	assert.Equal(t, "", c.Param(5))
	assert.Equal(t, "b c d", c.Rest(1))
	assert.Equal(t, "", c.Rest(3))
	assert.Equal(t, "", c.Rest(-1))
	assert.Equal(t, "", c.Param(-1))
	assert.Equal(t, "g", c.GuildID())
	assert.Equal(t, "u", c.AuthorID())
}
