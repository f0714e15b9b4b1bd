// Package platform describes the chat platform as seen by the dispatcher: messages,
// users, permissions and a Session capable of sending, deleting and reporting events.
// Adapters (internal/discord) translate a concrete gateway into these types.
package platform

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by adapters when the target message, channel or user is gone.
var ErrNotFound = errors.New("platform: not found")

// User is a message author or mention target.
type User struct {
	ID       string
	Username string
	Bot      bool
}

// Message is an inbound or sent chat message.
type Message struct {
	ID        string
	ChannelID string
	GuildID   string
	Author    User
	Content   string
	// MemberRoles holds the author's role IDs when the message comes from a guild.
	MemberRoles []string
	Mentions    []User
}

// InGuild reports whether the message was posted in a guild channel.
func (m *Message) InGuild() bool { return m != nil && m.GuildID != "" }

// EmbedField is a name/value pair rendered inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a platform-neutral rich message block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	Footer      string
}

// File is an attachment sent alongside a message.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// Outgoing is the content/embed/file triple handed to the session verbatim.
type Outgoing struct {
	Content string
	Embed   *Embed
	File    *File
}

// Empty reports whether there is nothing to send.
func (o *Outgoing) Empty() bool {
	return o == nil || (o.Content == "" && o.Embed == nil && o.File == nil)
}

// Permissions is a bitset of channel permissions.
type Permissions int64

// Permission bits, numerically identical to Discord's.
const (
	PermissionKickMembers     Permissions = 1 << 1
	PermissionBanMembers      Permissions = 1 << 2
	PermissionAdministrator   Permissions = 1 << 3
	PermissionManageChannels  Permissions = 1 << 4
	PermissionManageGuild     Permissions = 1 << 5
	PermissionAddReactions    Permissions = 1 << 6
	PermissionViewChannel     Permissions = 1 << 10
	PermissionSendMessages    Permissions = 1 << 11
	PermissionManageMessages  Permissions = 1 << 13
	PermissionEmbedLinks      Permissions = 1 << 14
	PermissionAttachFiles     Permissions = 1 << 15
	PermissionMentionEveryone Permissions = 1 << 17
	PermissionManageRoles     Permissions = 1 << 28
)

// PermissionNames maps permission bits to the names used in definition files and notices.
var PermissionNames = map[Permissions]string{
	PermissionKickMembers:     "KickMembers",
	PermissionBanMembers:      "BanMembers",
	PermissionAdministrator:   "Administrator",
	PermissionManageChannels:  "ManageChannels",
	PermissionManageGuild:     "ManageGuild",
	PermissionAddReactions:    "AddReactions",
	PermissionViewChannel:     "ViewChannel",
	PermissionSendMessages:    "SendMessages",
	PermissionManageMessages:  "ManageMessages",
	PermissionEmbedLinks:      "EmbedLinks",
	PermissionAttachFiles:     "AttachFiles",
	PermissionMentionEveryone: "MentionEveryone",
	PermissionManageRoles:     "ManageRoles",
}

// Has reports whether all bits of want are set. Administrator implies everything.
func (p Permissions) Has(want Permissions) bool {
	if p&PermissionAdministrator != 0 {
		return true
	}
	return p&want == want
}

// ParsePermission resolves a permission name (case-sensitive, as in PermissionNames).
func ParsePermission(name string) (Permissions, bool) {
	for bit, n := range PermissionNames {
		if n == name {
			return bit, true
		}
	}
	return 0, false
}

// ActivityType is the kind of presence shown next to the bot's name.
type ActivityType int

const (
	ActivityPlaying ActivityType = iota
	ActivityStreaming
	ActivityListening
	ActivityWatching
	ActivityCustom
	ActivityCompeting
)

// Valid reports whether t is a known activity type.
func (t ActivityType) Valid() bool { return t >= ActivityPlaying && t <= ActivityCompeting }

// EventName identifies a session event.
type EventName string

const (
	EventReady         EventName = "ready"
	EventMessageCreate EventName = "messageCreate"
	EventGuildCreate   EventName = "guildCreate"
	EventGuildDelete   EventName = "guildDelete"
	EventError         EventName = "error"
	EventDisconnect    EventName = "disconnect"
)

// KnownEvents lists every event a Session may emit.
var KnownEvents = []EventName{EventReady, EventMessageCreate, EventGuildCreate, EventGuildDelete, EventError, EventDisconnect}

// ValidEvent reports whether name is one of KnownEvents.
func ValidEvent(name EventName) bool {
	for _, e := range KnownEvents {
		if e == name {
			return true
		}
	}
	return false
}

// Event is the payload delivered to event handlers. Only the fields relevant to Name are set.
type Event struct {
	Name      EventName
	Message   *Message
	GuildID   string
	GuildName string
	// Guilds is set on ready and lists the guild IDs the bot is a member of.
	Guilds []string
	Err    error
}

// Handler receives session events.
type Handler func(ctx context.Context, ev Event)

// Session is the capability the core consumes from the chat platform.
type Session interface {
	Open(ctx context.Context) error
	Close() error
	// SelfID returns the bot's own user ID once connected.
	SelfID() string
	SendMessage(ctx context.Context, channelID string, out *Outgoing) (*Message, error)
	SendDirectMessage(ctx context.Context, userID string, out *Outgoing) (*Message, error)
	DeleteMessage(ctx context.Context, msg *Message) error
	ChannelPermissions(ctx context.Context, userID, channelID string) (Permissions, error)
	GuildOwner(ctx context.Context, guildID string) (string, error)
	LeaveGuild(ctx context.Context, guildID string) error
	SetPresence(ctx context.Context, name string, activity ActivityType) error
	On(event EventName, h Handler)
}
