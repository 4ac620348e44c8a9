package irc

import (
	"sort"
	"strings"
	"sync"

	"github.com/logcaster/logcaster/internal/model"
)

// logStreamPrefix marks channel names reserved for log streaming. Channels
// under this prefix are pre-created at startup and never destroyed.
const logStreamPrefix = "#logs-"

// topicSetter is recorded as the topic author of the built-in channels.
const topicSetter = "LogCaster"

// logChannelConfig declares one built-in stream channel.
type logChannelConfig struct {
	name  string
	level string // "*" streams every entry
	topic string
}

var defaultLogChannels = []logChannelConfig{
	{"#logs-all", "*", "All log messages"},
	{"#logs-error", "ERROR", "Error level logs only"},
}

// ChannelManager owns the channel table.
type ChannelManager struct {
	mu       sync.RWMutex
	channels map[string]*Channel
}

// NewChannelManager creates an empty channel table.
func NewChannelManager() *ChannelManager {
	return &ChannelManager{channels: make(map[string]*Channel)}
}

// InitLogChannels pre-creates the LOG_STREAM channels with their topics,
// filters, and streaming enabled.
func (m *ChannelManager) InitLogChannels() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cfg := range defaultLogChannels {
		ch := NewChannel(cfg.name, TypeLogStream)
		ch.SetTopic(cfg.topic, topicSetter)
		ch.EnableStreaming(true)
		if cfg.level != "*" {
			ch.SetFilter(LevelFilter(cfg.level))
		}
		m.channels[cfg.name] = ch
	}
}

// Get returns a channel by name, or nil.
func (m *ChannelManager) Get(name string) *Channel {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.channels[name]
}

// Exists reports whether a channel name is taken.
func (m *ChannelManager) Exists(name string) bool {
	return m.Get(name) != nil
}

// Names returns a sorted snapshot of channel names.
func (m *ChannelManager) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.channels))
	for name := range m.channels {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Join adds an authenticated session to a channel, creating a NORMAL
// channel on first join. Joining a nonexistent log-stream name fails.
func (m *ChannelManager) Join(s *Session, name string) *Channel {
	if !s.Authenticated() {
		return nil
	}

	m.mu.Lock()
	ch, ok := m.channels[name]
	if !ok {
		if strings.HasPrefix(name, logStreamPrefix) {
			m.mu.Unlock()
			return nil
		}
		ch = NewChannel(name, TypeNormal)
		m.channels[name] = ch
	}
	m.mu.Unlock()

	ch.AddMember(s)
	s.JoinedChannel(name)
	return ch
}

// Part removes a session from a channel, destroying a NORMAL channel when
// its last member leaves. An empty reason yields a bare PART broadcast.
func (m *ChannelManager) Part(s *Session, name, reason string) bool {
	ch := m.Get(name)
	if ch == nil || !ch.HasMember(s.Nickname()) {
		return false
	}

	partMsg := ":" + s.FullIdentifier() + " PART " + name
	if reason != "" {
		partMsg += " :" + reason
	}
	ch.Broadcast(partMsg)

	ch.RemoveMember(s.Nickname())
	s.PartedChannel(name)

	if ch.MemberCount() == 0 && ch.Type() == TypeNormal {
		m.remove(name)
	}
	return true
}

// PartAll removes a session from every channel it has joined.
func (m *ChannelManager) PartAll(s *Session, reason string) {
	for _, name := range s.Channels() {
		m.Part(s, name, reason)
	}
}

// Distribute fans one log entry out to every streaming-enabled LOG_STREAM
// channel; each channel's filter decides delivery.
func (m *ChannelManager) Distribute(entry model.LogEntry) {
	m.mu.RLock()
	streams := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		if ch.Type() == TypeLogStream {
			streams = append(streams, ch)
		}
	}
	m.mu.RUnlock()

	for _, ch := range streams {
		ch.ProcessEntry(entry)
	}
}

// remove deletes a channel; log-stream channels are never removed.
func (m *ChannelManager) remove(name string) {
	if strings.HasPrefix(name, logStreamPrefix) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, name)
}
