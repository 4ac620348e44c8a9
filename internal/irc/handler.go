package irc

import (
	"fmt"
	"strings"
)

// Handler dispatches parsed commands against server state.
type Handler struct {
	server *Server
}

// NewHandler creates a command handler bound to the server.
func NewHandler(server *Server) *Handler {
	return &Handler{server: server}
}

// Handle runs one command for a session. Unauthenticated sessions may only
// issue NICK, USER, and QUIT.
func (h *Handler) Handle(s *Session, msg Message) {
	if msg.Command == "" {
		return
	}

	if !s.Authenticated() &&
		msg.Command != "NICK" && msg.Command != "USER" && msg.Command != "QUIT" {
		s.SendNumeric(h.server.Name(), ErrNotRegistered, ":You have not registered")
		return
	}

	switch msg.Command {
	case "NICK":
		h.handleNick(s, msg)
	case "USER":
		h.handleUser(s, msg)
	case "JOIN":
		h.handleJoin(s, msg)
	case "PART":
		h.handlePart(s, msg)
	case "PRIVMSG":
		h.handlePrivmsg(s, msg)
	case "QUIT":
		h.handleQuit(s, msg)
	case "PING":
		h.handlePing(s, msg)
	case "LIST":
		h.handleList(s)
	case "NAMES":
		h.handleNames(s, msg)
	default:
		s.SendNumeric(h.server.Name(), ErrUnknownCommand, msg.Command+" :Unknown command")
	}
}

func (h *Handler) handleNick(s *Session, msg Message) {
	if len(msg.Params) == 0 {
		s.SendNumeric(h.server.Name(), ErrNoNicknameGiven, ":No nickname given")
		return
	}
	newNick := msg.Param(0)

	if !h.server.Registry().BindNickname(s, newNick) {
		s.SendNumeric(h.server.Name(), ErrNicknameInUse, newNick+" :Nickname is already in use")
		return
	}
	h.checkAuthentication(s)
}

func (h *Handler) handleUser(s *Session, msg Message) {
	if s.Authenticated() {
		s.SendNumeric(h.server.Name(), ErrAlreadyRegistered, ":You may not reregister")
		return
	}
	if len(msg.Params) < 3 {
		s.SendNumeric(h.server.Name(), ErrNeedMoreParams, "USER :Not enough parameters")
		return
	}

	realname := msg.Trailing
	if realname == "" {
		realname = msg.Param(3)
	}
	s.SetUserInfo(msg.Param(0), msg.Param(1), realname)

	h.checkAuthentication(s)
}

func (h *Handler) handleJoin(s *Session, msg Message) {
	if len(msg.Params) == 0 {
		s.SendNumeric(h.server.Name(), ErrNeedMoreParams, "JOIN :Not enough parameters")
		return
	}

	for _, name := range SplitChannels(msg.Param(0)) {
		if !ValidChannelName(name) {
			s.SendNumeric(h.server.Name(), ErrNoSuchChannel, name+" :No such channel")
			continue
		}
		if strings.HasPrefix(name, logStreamPrefix) && !h.server.Channels().Exists(name) {
			s.SendNumeric(h.server.Name(), ErrNoSuchChannel, name+" :Log channel does not exist")
			continue
		}

		ch := h.server.Channels().Join(s, name)
		if ch == nil {
			s.SendNumeric(h.server.Name(), ErrNoSuchChannel, name+" :No such channel")
			continue
		}
		ch.Broadcast(":" + s.FullIdentifier() + " JOIN :" + name)
	}
}

func (h *Handler) handlePart(s *Session, msg Message) {
	if len(msg.Params) == 0 {
		s.SendNumeric(h.server.Name(), ErrNeedMoreParams, "PART :Not enough parameters")
		return
	}

	for _, name := range SplitChannels(msg.Param(0)) {
		ch := h.server.Channels().Get(name)
		if ch == nil {
			s.SendNumeric(h.server.Name(), ErrNoSuchChannel, name+" :No such channel")
			continue
		}
		if !ch.HasMember(s.Nickname()) {
			s.SendNumeric(h.server.Name(), ErrNotOnChannel, name+" :You're not on that channel")
			continue
		}
		h.server.Channels().Part(s, name, msg.Trailing)
	}
}

func (h *Handler) handlePrivmsg(s *Session, msg Message) {
	if len(msg.Params) == 0 {
		s.SendNumeric(h.server.Name(), ErrNoRecipient, ":No recipient given (PRIVMSG)")
		return
	}
	if msg.Trailing == "" && len(msg.Params) < 2 {
		s.SendNumeric(h.server.Name(), ErrNoTextToSend, ":No text to send")
		return
	}

	target := msg.Param(0)
	text := msg.Trailing
	if text == "" {
		text = msg.Param(1)
	}

	if target[0] == '#' || target[0] == '&' {
		ch := h.server.Channels().Get(target)
		if ch == nil {
			s.SendNumeric(h.server.Name(), ErrNoSuchChannel, target+" :No such channel")
			return
		}
		if !ch.HasMember(s.Nickname()) {
			s.SendNumeric(h.server.Name(), ErrCannotSendToChan, target+" :Cannot send to channel")
			return
		}
		ch.BroadcastExcept(
			FormatUserMessage(s.Nickname(), s.Username(), s.Hostname(), "PRIVMSG", target, text),
			s.Nickname(),
		)
		return
	}

	peer := h.server.Registry().ByNickname(target)
	if peer == nil {
		s.SendNumeric(h.server.Name(), ErrNoSuchNick, target+" :No such nick/channel")
		return
	}
	peer.Send(FormatUserMessage(s.Nickname(), s.Username(), s.Hostname(), "PRIVMSG", target, text))
}

func (h *Handler) handleQuit(s *Session, msg Message) {
	reason := msg.Trailing
	if reason == "" {
		reason = "Client Quit"
	}

	notice := ":" + s.FullIdentifier() + " QUIT :" + reason
	for _, name := range s.Channels() {
		if ch := h.server.Channels().Get(name); ch != nil {
			ch.BroadcastExcept(notice, s.Nickname())
		}
	}

	h.server.Channels().PartAll(s, reason)
	s.SetState(StateDisconnected)
	s.Close()
}

func (h *Handler) handlePing(s *Session, msg Message) {
	token := msg.Param(0)
	if token == "" {
		token = msg.Trailing
	}
	if token == "" {
		token = h.server.Name()
	}
	s.Send(fmt.Sprintf(":%s PONG %s :%s", h.server.Name(), h.server.Name(), token))
}

func (h *Handler) handleList(s *Session) {
	channels := h.server.Channels()
	for _, name := range channels.Names() {
		if ch := channels.Get(name); ch != nil {
			s.Send(fmt.Sprintf("%s %d :%s", ch.Name(), ch.MemberCount(), ch.Topic()))
		}
	}
}

func (h *Handler) handleNames(s *Session, msg Message) {
	channels := h.server.Channels()

	names := channels.Names()
	if len(msg.Params) > 0 {
		names = SplitChannels(msg.Param(0))
	}

	for _, name := range names {
		ch := channels.Get(name)
		if ch == nil {
			continue
		}
		s.SendNumeric(h.server.Name(), RplNamReply,
			"= "+name+" :"+strings.Join(ch.MemberNicks(), " "))
		s.SendNumeric(h.server.Name(), RplEndOfNames, name+" :End of /NAMES list.")
	}
}

// checkAuthentication promotes a session once both NICK and USER have been
// seen, emitting the welcome burst.
func (h *Handler) checkAuthentication(s *Session) {
	if s.Authenticated() || s.Nickname() == "" || s.Username() == "" {
		return
	}
	s.SetState(StateAuthenticated)

	name := h.server.Name()
	s.SendNumeric(name, RplWelcome,
		":Welcome to the LogCaster IRC Network "+s.FullIdentifier())
	s.SendNumeric(name, RplYourHost,
		":Your host is "+name+", running version "+h.server.Version())
	s.SendNumeric(name, RplCreated,
		":This server was created "+h.server.Created())
	s.SendNumeric(name, RplMyInfo,
		name+" "+h.server.Version()+" o o")
}
