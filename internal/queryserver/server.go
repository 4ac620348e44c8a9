// Package queryserver serves one-shot textual commands over the in-memory
// log window: one command per connection, response, close.
package queryserver

import (
	"bufio"
	"io"
	"log"
	"net"
	"strings"
	"sync"

	"github.com/logcaster/logcaster/internal/workerpool"
)

// maxCommandSize bounds a single received command line.
const maxCommandSize = 4096

// Server owns the query listener. Command handlers execute on the shared
// worker pool.
type Server struct {
	addr    string
	handler *Handler
	pool    *workerpool.Pool

	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup

	connMu sync.Mutex
	conns  map[net.Conn]struct{}
}

// NewServer creates a query server answering from the given store.
func NewServer(addr string, store Store, pool *workerpool.Pool) *Server {
	return &Server{
		addr:    addr,
		handler: NewHandler(store),
		pool:    pool,
		quit:    make(chan struct{}),
		conns:   make(map[net.Conn]struct{}),
	}
}

// Start binds the listener and begins accepting connections.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = listener

	s.wg.Add(1)
	go s.acceptLoop()

	log.Printf("query: listening on %s", listener.Addr())
	return nil
}

// Stop closes the listener and any in-flight connections, then waits for
// handler tasks to finish.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}

	s.connMu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.connMu.Unlock()

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
				log.Printf("query: accept error: %v", err)
				continue
			}
		}

		s.connMu.Lock()
		s.conns[conn] = struct{}{}
		s.connMu.Unlock()

		s.wg.Add(1)
		if err := s.pool.Submit(func() { s.serveConn(conn) }); err != nil {
			s.closeConn(conn)
			s.wg.Done()
			return
		}
	}
}

// serveConn reads one command, writes the response, and closes.
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer s.closeConn(conn)

	reader := bufio.NewReader(io.LimitReader(conn, maxCommandSize))
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return
	}
	command := strings.TrimRight(line, "\r\n")
	if command == "" {
		return
	}

	response := s.handler.Execute(command)
	if _, err := conn.Write([]byte(response)); err != nil {
		log.Printf("query: write to %s: %v", conn.RemoteAddr(), err)
	}
}

func (s *Server) closeConn(conn net.Conn) {
	conn.Close()
	s.connMu.Lock()
	delete(s.conns, conn)
	s.connMu.Unlock()
}
