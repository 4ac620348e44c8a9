package irc

import (
	"bufio"
	"log"
	"net"
	"sync"
	"time"

	"github.com/logcaster/logcaster/internal/buffer"
	"github.com/logcaster/logcaster/internal/model"
	"github.com/logcaster/logcaster/internal/workerpool"
)

const (
	// serverName is the prefix of every server-originated reply.
	serverName = "logcaster-irc"

	serverVersion = "1.0"

	// MaxClients caps concurrent IRC sessions.
	MaxClients = 1024

	// maxLineSize bounds one received IRC line.
	maxLineSize = 8192
)

// EntrySource is the subscription surface of the ring buffer.
type EntrySource interface {
	RegisterCallback(key string, cb buffer.Callback)
}

// Server owns the IRC listener and the session/channel tables. Session
// readers execute on the shared worker pool.
type Server struct {
	addr     string
	source   EntrySource
	pool     *workerpool.Pool
	registry *Registry
	channels *ChannelManager
	handler  *Handler
	created  string

	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewServer creates an IRC server streaming entries from the given source.
func NewServer(addr string, source EntrySource, pool *workerpool.Pool) *Server {
	s := &Server{
		addr:     addr,
		source:   source,
		pool:     pool,
		registry: NewRegistry(),
		channels: NewChannelManager(),
		created:  time.Now().Format(time.ANSIC),
		quit:     make(chan struct{}),
	}
	s.handler = NewHandler(s)
	return s
}

func (s *Server) Name() string             { return serverName }
func (s *Server) Version() string          { return serverVersion }
func (s *Server) Created() string          { return s.created }
func (s *Server) Registry() *Registry      { return s.registry }
func (s *Server) Channels() *ChannelManager { return s.channels }

// Start binds the listener, creates the log-stream channels, and subscribes
// to the ring buffer. The distribution callback is registered once, under
// the all-entries stream; per-channel filters route from there.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.channels.InitLogChannels()
	if s.source != nil {
		s.source.RegisterCallback(buffer.StreamAll, func(entry model.LogEntry) {
			s.channels.Distribute(entry)
		})
	}

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("irc: listening on %s", listener.Addr())
	return nil
}

// Stop closes the listener, evicts every session with a synthetic QUIT, and
// waits for all reader tasks.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}

	for _, session := range s.registry.All() {
		s.handler.Handle(session, Message{Command: "QUIT", Trailing: "Server shutting down"})
		session.Close()
	}

	s.wg.Wait()
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				log.Printf("irc: accept error: %v", err)
				continue
			}
		}

		if s.registry.Count() >= MaxClients {
			conn.Write([]byte("ERROR :Server is full\r\n"))
			conn.Close()
			continue
		}

		session := NewSession(conn)
		s.registry.Add(session)

		s.wg.Add(1)
		if err := s.pool.Submit(func() { s.readLoop(session) }); err != nil {
			s.registry.Remove(session)
			session.Close()
			s.wg.Done()
			return
		}
	}
}

// readLoop parses lines from one session and dispatches them until the
// connection drops, then evicts the session.
func (s *Server) readLoop(session *Session) {
	defer s.wg.Done()

	scanner := bufio.NewScanner(session.conn)
	scanner.Buffer(make([]byte, 0, 512), maxLineSize)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		msg := ParseMessage(line)
		if msg.Command == "" {
			continue
		}
		s.handler.Handle(session, msg)
		if session.State() == StateDisconnected {
			break
		}
	}

	if session.State() != StateDisconnected {
		s.handler.Handle(session, Message{Command: "QUIT", Trailing: "Connection closed"})
	}
	s.registry.Remove(session)
	session.Close()
}
