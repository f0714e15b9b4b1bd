package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/keshon/orator/internal/platform"
)

func fromUser(u *discordgo.User) platform.User {
	if u == nil {
		return platform.User{}
	}
	return platform.User{ID: u.ID, Username: u.Username, Bot: u.Bot}
}

func fromMessage(m *discordgo.Message) *platform.Message {
	if m == nil {
		return nil
	}
	msg := &platform.Message{
		ID:        m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
		Author:    fromUser(m.Author),
		Content:   m.Content,
	}
	if m.Member != nil {
		msg.MemberRoles = m.Member.Roles
	}
	for _, u := range m.Mentions {
		msg.Mentions = append(msg.Mentions, fromUser(u))
	}
	return msg
}

func toEmbed(e *platform.Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer}
	}
	return embed
}

func toMessageSend(out *platform.Outgoing) *discordgo.MessageSend {
	send := &discordgo.MessageSend{Content: out.Content}
	if out.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{toEmbed(out.Embed)}
	}
	if out.File != nil {
		send.Files = []*discordgo.File{{Name: out.File.Name, ContentType: out.File.ContentType, Reader: out.File.Reader}}
	}
	return send
}
