// Package platformtest provides an in-memory platform.Session for tests.
package platformtest

import (
	"context"
	"fmt"
	"sync"

	"github.com/keshon/orator/internal/platform"
)

// Sent is a message recorded by Session.
type Sent struct {
	ChannelID string
	UserID    string // set for direct messages
	Out       platform.Outgoing
	Message   *platform.Message
}

// Presence is a presence update recorded by Session.
type Presence struct {
	Name     string
	Activity platform.ActivityType
}

// Session records everything the core asks of the platform.
type Session struct {
	mu sync.Mutex

	Self      string
	Perms     map[string]platform.Permissions // key: userID + "/" + channelID, or userID
	Owners    map[string]string               // guildID -> owner user ID
	SendErr   error
	DeleteErr error
	Sent      []Sent
	Deleted   []string
	Left      []string
	Presences []Presence
	handlers  map[platform.EventName][]platform.Handler
	nextID    int
	opened    bool
	closed    bool
}

// New returns a Session whose own user ID is selfID.
func New(selfID string) *Session {
	return &Session{
		Self:     selfID,
		Perms:    make(map[string]platform.Permissions),
		Owners:   make(map[string]string),
		handlers: make(map[platform.EventName][]platform.Handler),
	}
}

func (s *Session) Open(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = true
	return nil
}

func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *Session) SelfID() string { return s.Self }

func (s *Session) SendMessage(_ context.Context, channelID string, out *platform.Outgoing) (*platform.Message, error) {
	return s.record(channelID, "", out)
}

func (s *Session) SendDirectMessage(_ context.Context, userID string, out *platform.Outgoing) (*platform.Message, error) {
	return s.record("dm-"+userID, userID, out)
}

func (s *Session) record(channelID, userID string, out *platform.Outgoing) (*platform.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SendErr != nil {
		return nil, s.SendErr
	}
	s.nextID++
	msg := &platform.Message{
		ID:        fmt.Sprintf("sent-%d", s.nextID),
		ChannelID: channelID,
		Author:    platform.User{ID: s.Self, Bot: true},
		Content:   out.Content,
	}
	s.Sent = append(s.Sent, Sent{ChannelID: channelID, UserID: userID, Out: *out, Message: msg})
	return msg, nil
}

func (s *Session) DeleteMessage(_ context.Context, msg *platform.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DeleteErr != nil {
		return s.DeleteErr
	}
	s.Deleted = append(s.Deleted, msg.ID)
	return nil
}

// SetPerms sets the permissions of userID in channelID. An empty channelID applies to every channel.
func (s *Session) SetPerms(userID, channelID string, p platform.Permissions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := userID
	if channelID != "" {
		key = userID + "/" + channelID
	}
	s.Perms[key] = p
}

func (s *Session) ChannelPermissions(_ context.Context, userID, channelID string) (platform.Permissions, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.Perms[userID+"/"+channelID]; ok {
		return p, nil
	}
	return s.Perms[userID], nil
}

func (s *Session) GuildOwner(_ context.Context, guildID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	owner, ok := s.Owners[guildID]
	if !ok {
		return "", platform.ErrNotFound
	}
	return owner, nil
}

func (s *Session) LeaveGuild(_ context.Context, guildID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Left = append(s.Left, guildID)
	return nil
}

func (s *Session) SetPresence(_ context.Context, name string, activity platform.ActivityType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Presences = append(s.Presences, Presence{Name: name, Activity: activity})
	return nil
}

func (s *Session) On(event platform.EventName, h platform.Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[event] = append(s.handlers[event], h)
}

// Emit delivers ev to every handler registered for ev.Name, synchronously.
func (s *Session) Emit(ctx context.Context, ev platform.Event) {
	s.mu.Lock()
	hs := append([]platform.Handler(nil), s.handlers[ev.Name]...)
	s.mu.Unlock()
	for _, h := range hs {
		h(ctx, ev)
	}
}

// SentMessages returns a copy of everything sent so far.
func (s *Session) SentMessages() []Sent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Sent(nil), s.Sent...)
}

// DeletedIDs returns a copy of the deleted message IDs.
func (s *Session) DeletedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Deleted...)
}

// PresenceHistory returns a copy of every presence update so far.
func (s *Session) PresenceHistory() []Presence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Presence(nil), s.Presences...)
}

// LastPresence returns the most recent presence update.
func (s *Session) LastPresence() (Presence, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Presences) == 0 {
		return Presence{}, false
	}
	return s.Presences[len(s.Presences)-1], true
}

// LeftGuilds returns a copy of the guild IDs the session left.
func (s *Session) LeftGuilds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.Left...)
}

// Opened reports whether Open was called and Close was not.
func (s *Session) Opened() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened && !s.closed
}
