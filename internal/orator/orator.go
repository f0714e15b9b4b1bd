// Package orator turns chat messages into command invocations: it strips the prefix,
// tokenizes, resolves commands and sub-commands, checks permissions and middleware, runs
// the action and sends the result, scheduling deletions as configured.
package orator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/core"
	"github.com/keshon/orator/internal/platform"
)

// Authorizer decides whether the invoker of c may run c.Command.
type Authorizer interface {
	HasPermission(ctx context.Context, c *core.Context) bool
	DenialReason(c *core.Context) string
}

// Options are the dispatcher-wide defaults. Commands override the deletion policy.
type Options struct {
	DefaultPrefix string
	MentionPrefix bool

	DeleteInvoking      bool
	DeleteResponse      bool
	DeleteResponseDelay time.Duration
	// NoticeDelay is how long insufficient-parameter, denial and error notices stay up.
	NoticeDelay time.Duration

	NotifyOnError bool

	// Schedule runs fn after d. Defaults to time.AfterFunc.
	Schedule func(d time.Duration, fn func())
}

// DefaultOptions returns the defaults used when Options fields are left empty.
func DefaultOptions() Options {
	return Options{
		DefaultPrefix:       "!",
		MentionPrefix:       true,
		DeleteResponseDelay: 10 * time.Second,
		NoticeDelay:         15 * time.Second,
		NotifyOnError:       true,
	}
}

// Orator dispatches inbound messages. It is safe for concurrent use: every message is
// handled independently.
type Orator struct {
	bot   *core.Bot
	perms Authorizer
	opts  Options
	log   zerolog.Logger
}

func New(b *core.Bot, perms Authorizer, opts Options) *Orator {
	if opts.DefaultPrefix == "" {
		opts.DefaultPrefix = "!"
	}
	if opts.NoticeDelay <= 0 {
		opts.NoticeDelay = 15 * time.Second
	}
	if opts.Schedule == nil {
		opts.Schedule = func(d time.Duration, fn func()) { time.AfterFunc(d, fn) }
	}
	if b.DefaultPrefix == "" {
		b.DefaultPrefix = opts.DefaultPrefix
	}
	return &Orator{
		bot:   b,
		perms: perms,
		opts:  opts,
		log:   b.Log.With().Str("component", "orator").Logger(),
	}
}

// outcome is what a resolved invocation produced.
type outcome struct {
	resp *core.Response
	// notice responses always auto-delete after NoticeDelay.
	notice bool
}

// HandleMessage runs the whole pipeline for msg. It never fails: problems are logged and,
// where useful, reported to the invoker.
func (o *Orator) HandleMessage(ctx context.Context, msg *platform.Message) {
	if msg == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error().Interface("panic", rec).Str("message", msg.ID).Str("guild", msg.GuildID).
				Msg("Recovered from panic while handling message")
		}
	}()

	if msg.Author.Bot || msg.Author.ID == o.bot.Session.SelfID() {
		return
	}

	prefix := o.bot.Prefix(ctx, msg.GuildID)
	content, ok := o.stripPrefix(msg.Content, prefix)
	if !ok {
		return
	}
	tokens := Tokenize(content)
	if len(tokens) == 0 {
		return
	}
	cmd := o.bot.Commands.Search(tokens[0])
	if cmd == nil {
		return
	}

	c := &core.Context{
		Params:  tokens[1:],
		Message: msg,
		Command: cmd,
		Bot:     o.bot,
		Prefix:  prefix,
		Path:    []string{cmd.Name},
	}
	chain := []*core.Command{cmd}

	out := o.resolve(ctx, c, &chain)

	if o.deleteInvoking(chain) {
		o.delete(ctx, msg)
	}
	if out.resp == nil {
		return
	}

	sent, err := o.send(ctx, msg, out.resp)
	if err != nil {
		o.log.Warn().Err(err).Str("command", strings.Join(c.Path, " ")).Str("channel", msg.ChannelID).
			Msg("Failed to send response")
		return
	}

	if out.notice {
		o.deleteLater(ctx, sent, o.opts.NoticeDelay)
		return
	}
	if delay := o.responseDelay(chain); o.deleteResponse(chain) && delay > 0 {
		o.deleteLater(ctx, sent, delay)
	}
}

func (o *Orator) stripPrefix(content, prefix string) (string, bool) {
	content = strings.TrimSpace(content)
	if o.opts.MentionPrefix {
		if m := mentionPrefix.FindStringSubmatch(content); m != nil && m[1] == o.bot.Session.SelfID() {
			return content[len(m[0]):], true
		}
	}
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", false
	}
	return content[len(prefix):], true
}

// resolve walks the command tree for c and runs the selected action. chain collects the
// commands entered, root first.
func (o *Orator) resolve(ctx context.Context, c *core.Context, chain *[]*core.Command) outcome {
	for {
		cmd := c.Command
		if len(c.Params) < cmd.RequiredParams() {
			o.log.Debug().Str("command", strings.Join(c.Path, " ")).Int("params", len(c.Params)).
				Msg("Insufficient parameters")
			return notice(core.InsufficientParams(c.Usage()))
		}
		if !o.perms.HasPermission(ctx, c) {
			o.log.Debug().Str("command", strings.Join(c.Path, " ")).Str("user", c.AuthorID()).
				Msg("Permission denied")
			return notice(o.perms.DenialReason(c))
		}
		for _, mw := range cmd.Middleware {
			if err := mw.Run(ctx, o.bot, c); err != nil {
				o.log.Debug().Err(err).Str("command", strings.Join(c.Path, " ")).Msg("Rejected by middleware")
				return outcome{resp: core.Normalize(err.Error())}
			}
		}
		if len(c.Params) == 0 {
			break
		}
		sub := cmd.SubCommand(c.Params[0])
		if sub == nil {
			break
		}
		c.Command = sub
		c.Path = append(c.Path, sub.Name)
		c.Params = c.Params[1:]
		*chain = append(*chain, sub)
	}

	if c.Command.Action == nil {
		return outcome{resp: &core.Response{Embed: overview(c)}}
	}

	result, err := o.execute(ctx, c)
	if err != nil {
		o.log.Error().Err(err).Str("command", strings.Join(c.Path, " ")).Str("guild", c.GuildID()).
			Str("user", c.AuthorID()).Msg("Command failed")
		if o.opts.NotifyOnError {
			return notice(core.GenericErrorMessage)
		}
		return outcome{}
	}
	return outcome{resp: core.Normalize(result)}
}

func (o *Orator) execute(ctx context.Context, c *core.Context) (result any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return c.Command.Action(ctx, c)
}

func notice(text string) outcome {
	return outcome{resp: &core.Response{Content: text}, notice: true}
}

// overview lists the sub-commands of a command invoked without selecting one.
func overview(c *core.Context) *platform.Embed {
	cmd := c.Command
	embed := &platform.Embed{
		Title:       c.Prefix + strings.Join(c.Path, " "),
		Description: cmd.Description,
		Color:       core.EmbedColor,
	}
	for _, sub := range cmd.SubCommands {
		path := append(append([]string(nil), c.Path...), sub.Name)
		desc := sub.Description
		if desc == "" {
			desc = "No description."
		}
		embed.Fields = append(embed.Fields, platform.EmbedField{
			Name:  "`" + sub.Usage(c.Prefix, path) + "`",
			Value: desc,
		})
	}
	return embed
}

func (o *Orator) send(ctx context.Context, msg *platform.Message, r *core.Response) (*platform.Message, error) {
	if r.DM {
		return o.bot.Session.SendDirectMessage(ctx, msg.Author.ID, r.Outgoing())
	}
	return o.bot.Session.SendMessage(ctx, msg.ChannelID, r.Outgoing())
}

func (o *Orator) delete(ctx context.Context, msg *platform.Message) {
	if err := o.bot.Session.DeleteMessage(ctx, msg); err != nil {
		o.log.Warn().Err(err).Str("message", msg.ID).Str("channel", msg.ChannelID).Msg("Failed to delete message")
	}
}

func (o *Orator) deleteLater(ctx context.Context, msg *platform.Message, d time.Duration) {
	if msg == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	o.opts.Schedule(d, func() { o.delete(ctx, msg) })
}

// The deletion policy is taken from the deepest command in the chain that sets it,
// falling back to the dispatcher defaults.

func (o *Orator) deleteInvoking(chain []*core.Command) bool {
	for i := len(chain) - 1; i >= 0; i-- {
		if v := chain[i].DeleteInvoking; v != nil {
			return *v
		}
	}
	return o.opts.DeleteInvoking
}

func (o *Orator) deleteResponse(chain []*core.Command) bool {
	for i := len(chain) - 1; i >= 0; i-- {
		if v := chain[i].DeleteResponse; v != nil {
			return *v
		}
	}
	return o.opts.DeleteResponse
}

func (o *Orator) responseDelay(chain []*core.Command) time.Duration {
	for i := len(chain) - 1; i >= 0; i-- {
		if v := chain[i].DeleteResponseDelay; v != nil {
			return *v
		}
	}
	return o.opts.DeleteResponseDelay
}
