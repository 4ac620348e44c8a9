package irc

import (
	"strings"
	"sync"
)

// foldNick normalizes a nickname for uniqueness checks. ASCII lowercase
// only; RFC 1459's {|}~ folding is intentionally not applied.
func foldNick(nick string) string {
	return strings.ToLower(nick)
}

// Registry tracks live sessions and enforces case-insensitive nickname
// uniqueness.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[*Session]struct{}
	nicknames map[string]*Session
}

// NewRegistry creates an empty session registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions:  make(map[*Session]struct{}),
		nicknames: make(map[string]*Session),
	}
}

// Add registers a freshly accepted session.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s] = struct{}{}
}

// Remove drops a session and releases its nickname.
func (r *Registry) Remove(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, s)
	if nick := s.Nickname(); nick != "" {
		if owner, ok := r.nicknames[foldNick(nick)]; ok && owner == s {
			delete(r.nicknames, foldNick(nick))
		}
	}
}

// BindNickname atomically claims newNick for s, releasing its previous
// nickname. It fails when another session holds newNick.
func (r *Registry) BindNickname(s *Session, newNick string) bool {
	folded := foldNick(newNick)

	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.nicknames[folded]; ok && owner != s {
		return false
	}
	if old := s.Nickname(); old != "" {
		delete(r.nicknames, foldNick(old))
	}
	r.nicknames[folded] = s
	s.SetNickname(newNick)
	return true
}

// ByNickname looks a session up by nickname, case-insensitively.
func (r *Registry) ByNickname(nick string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nicknames[foldNick(nick)]
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// All returns a snapshot of every live session.
func (r *Registry) All() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for s := range r.sessions {
		out = append(out, s)
	}
	return out
}
