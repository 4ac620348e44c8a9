package irc

import (
	"sort"
	"sync"
	"time"

	"github.com/logcaster/logcaster/internal/model"
)

// ChannelType distinguishes peer chat channels from log streams.
type ChannelType int

const (
	TypeNormal ChannelType = iota
	TypeLogStream
)

// EntryFilter decides whether a log entry belongs on a stream channel.
type EntryFilter func(entry model.LogEntry) bool

// Channel is one named room. Membership and modes are guarded by a
// reader-writer lock; log fan-out takes the read side.
type Channel struct {
	name  string
	ctype ChannelType

	mu         sync.RWMutex
	topic      string
	topicSetBy string
	topicSetAt time.Time
	members    map[string]*Session
	operators  map[string]struct{}
	streaming  bool
	filter     EntryFilter
}

// NewChannel creates an empty channel of the given type.
func NewChannel(name string, ctype ChannelType) *Channel {
	return &Channel{
		name:      name,
		ctype:     ctype,
		members:   make(map[string]*Session),
		operators: make(map[string]struct{}),
	}
}

func (c *Channel) Name() string      { return c.name }
func (c *Channel) Type() ChannelType { return c.ctype }

// AddMember inserts a session under its nickname. The first member of a
// channel becomes its operator.
func (c *Channel) AddMember(s *Session) {
	nick := s.Nickname()
	if nick == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members[nick] = s
	if len(c.members) == 1 {
		c.operators[nick] = struct{}{}
	}
}

// RemoveMember drops a nickname from members and operators.
func (c *Channel) RemoveMember(nick string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.members, nick)
	delete(c.operators, nick)
}

// HasMember reports whether the nickname is joined.
func (c *Channel) HasMember(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.members[nick]
	return ok
}

// IsOperator reports channel-operator status.
func (c *Channel) IsOperator(nick string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.operators[nick]
	return ok
}

// MemberCount returns the number of joined sessions.
func (c *Channel) MemberCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.members)
}

// MemberNicks returns a sorted snapshot of member nicknames.
func (c *Channel) MemberNicks() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	nicks := make([]string, 0, len(c.members))
	for nick := range c.members {
		nicks = append(nicks, nick)
	}
	sort.Strings(nicks)
	return nicks
}

// Broadcast sends a line to every member.
func (c *Channel) Broadcast(message string) {
	for _, s := range c.memberSnapshot() {
		s.Send(message)
	}
}

// BroadcastExcept sends a line to every member but one nickname.
func (c *Channel) BroadcastExcept(message, exceptNick string) {
	c.mu.RLock()
	targets := make([]*Session, 0, len(c.members))
	for nick, s := range c.members {
		if nick != exceptNick {
			targets = append(targets, s)
		}
	}
	c.mu.RUnlock()

	for _, s := range targets {
		s.Send(message)
	}
}

// SetTopic records the topic, its setter, and the set time.
func (c *Channel) SetTopic(topic, setBy string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = topic
	c.topicSetBy = setBy
	c.topicSetAt = time.Now()
}

// Topic returns the current topic.
func (c *Channel) Topic() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.topic
}

// EnableStreaming toggles log fan-out for a LOG_STREAM channel.
func (c *Channel) EnableStreaming(enable bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.streaming = enable
}

// SetFilter installs the entry predicate; a nil filter accepts everything.
func (c *Channel) SetFilter(filter EntryFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = filter
}

// ProcessEntry delivers one log entry to all members as a PRIVMSG from the
// synthetic LogBot user, if streaming is enabled and the filter accepts.
func (c *Channel) ProcessEntry(entry model.LogEntry) {
	c.mu.RLock()
	if !c.streaming || len(c.members) == 0 || (c.filter != nil && !c.filter(entry)) {
		c.mu.RUnlock()
		return
	}
	c.mu.RUnlock()

	message := FormatUserMessage("LogBot", "log", "system", "PRIVMSG", c.name, formatEntry(entry))
	c.Broadcast(message)
}

// LevelFilter builds a filter accepting entries of exactly one level.
func LevelFilter(level string) EntryFilter {
	return func(entry model.LogEntry) bool {
		return entry.Level == level
	}
}

// formatEntry renders "[ts] LEVEL: [source] message" for stream delivery.
func formatEntry(entry model.LogEntry) string {
	out := "[" + entry.Timestamp.Local().Format(model.TimeLayout) + "] "
	if entry.Level != "" {
		out += entry.Level + ": "
	}
	if entry.Source != "" {
		out += "[" + entry.Source + "] "
	}
	return out + entry.Message
}

func (c *Channel) memberSnapshot() []*Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Session, 0, len(c.members))
	for _, s := range c.members {
		out = append(out, s)
	}
	return out
}
