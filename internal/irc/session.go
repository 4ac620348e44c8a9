package irc

import (
	"net"
	"sort"
	"strings"
	"sync"
	"time"
)

// SessionState tracks a connection through registration.
type SessionState int

const (
	StateConnected SessionState = iota
	StateAuthenticated
	StateDisconnected
)

// Session is the per-connection state of one IRC client. It is shared
// between the reader task and every channel the client has joined; mutable
// fields are guarded by a short-lived lock, writes to the socket are
// serialized separately.
type Session struct {
	conn net.Conn

	mu           sync.Mutex
	nickname     string
	username     string
	realname     string
	hostname     string
	state        SessionState
	channels     map[string]struct{}
	lastActivity time.Time

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// NewSession wraps an accepted connection. The hostname defaults to the
// peer's address until USER overrides it.
func NewSession(conn net.Conn) *Session {
	host := conn.RemoteAddr().String()
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return &Session{
		conn:         conn,
		hostname:     host,
		state:        StateConnected,
		channels:     make(map[string]struct{}),
		lastActivity: time.Now(),
	}
}

// Send writes one line to the client, appending CR-LF when missing. Sends
// are serialized per session; a write error closes the connection.
func (s *Session) Send(message string) {
	if !strings.HasSuffix(message, "\r\n") {
		message += "\r\n"
	}

	s.writeMu.Lock()
	_, err := s.conn.Write([]byte(message))
	s.writeMu.Unlock()
	if err != nil {
		s.Close()
	}
}

// SendNumeric writes a numeric server reply addressed to this session's
// nickname ("*" before registration).
func (s *Session) SendNumeric(serverName string, code int, params string) {
	nick := s.Nickname()
	if nick == "" {
		nick = "*"
	}
	s.Send(FormatReply(serverName, nick, code, params))
}

// Close shuts the socket exactly once.
func (s *Session) Close() {
	s.closeOnce.Do(func() { s.conn.Close() })
}

func (s *Session) Nickname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nickname
}

func (s *Session) SetNickname(nick string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nickname = nick
	s.lastActivity = time.Now()
}

func (s *Session) Hostname() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hostname
}

func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.username
}

// SetUserInfo records the USER registration fields.
func (s *Session) SetUserInfo(username, hostname, realname string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.username = username
	if hostname != "" {
		s.hostname = hostname
	}
	s.realname = realname
	s.lastActivity = time.Now()
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) SetState(state SessionState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
	s.lastActivity = time.Now()
}

// Authenticated reports whether registration has completed.
func (s *Session) Authenticated() bool {
	return s.State() == StateAuthenticated
}

// JoinedChannel records membership on the session side.
func (s *Session) JoinedChannel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channels[name] = struct{}{}
	s.lastActivity = time.Now()
}

// PartedChannel removes membership on the session side.
func (s *Session) PartedChannel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.channels, name)
	s.lastActivity = time.Now()
}

// InChannel reports session-side membership.
func (s *Session) InChannel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.channels[name]
	return ok
}

// Channels returns a sorted snapshot of joined channel names.
func (s *Session) Channels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.channels))
	for name := range s.channels {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// FullIdentifier renders "nick!user@host", or "" before NICK.
func (s *Session) FullIdentifier() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.nickname == "" {
		return ""
	}
	return s.nickname + "!" + s.username + "@" + s.hostname
}
