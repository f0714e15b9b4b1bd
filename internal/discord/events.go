package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orator/internal/platform"
)

// On registers h for event. Handlers run on discordgo's event goroutines.
func (s *Session) On(event platform.EventName, h platform.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

func (s *Session) emit(ev platform.Event) {
	s.mu.RLock()
	hs := append([]platform.Handler(nil), s.handlers[ev.Name]...)
	ctx := s.ctx
	s.mu.RUnlock()
	for _, h := range hs {
		h(ctx, ev)
	}
}

func (s *Session) addHandlers() {
	s.dg.AddHandler(s.onReady)
	s.dg.AddHandler(s.onMessageCreate)
	s.dg.AddHandler(s.onGuildCreate)
	s.dg.AddHandler(s.onGuildDelete)
	s.dg.AddHandler(s.onDisconnect)
}

func (s *Session) onReady(_ *discordgo.Session, r *discordgo.Ready) {
	ev := platform.Event{Name: platform.EventReady}
	for _, g := range r.Guilds {
		ev.Guilds = append(ev.Guilds, g.ID)
	}
	s.log.Info().Str("user", r.User.Username).Int("guilds", len(r.Guilds)).Msg("Connected to Discord")
	s.emit(ev)
}

func (s *Session) onMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Message == nil || m.Author == nil {
		return
	}
	s.emit(platform.Event{Name: platform.EventMessageCreate, Message: fromMessage(m.Message), GuildID: m.GuildID})
}

func (s *Session) onGuildCreate(_ *discordgo.Session, g *discordgo.GuildCreate) {
	if g.Guild == nil {
		return
	}
	s.emit(platform.Event{Name: platform.EventGuildCreate, GuildID: g.ID, GuildName: g.Name})
}

func (s *Session) onGuildDelete(_ *discordgo.Session, g *discordgo.GuildDelete) {
	if g.Guild == nil {
		return
	}
	// Unavailable guilds come back on their own; only removals count.
	if g.Unavailable {
		return
	}
	ev := platform.Event{Name: platform.EventGuildDelete, GuildID: g.ID}
	if g.BeforeDelete != nil {
		ev.GuildName = g.BeforeDelete.Name
	}
	s.emit(ev)
}

func (s *Session) onDisconnect(_ *discordgo.Session, _ *discordgo.Disconnect) {
	s.log.Warn().Msg("Disconnected from Discord")
	s.emit(platform.Event{Name: platform.EventDisconnect})
}
