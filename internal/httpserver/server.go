// Package httpserver provides the optional read-only HTTP status API over
// the in-memory log window.
package httpserver

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/logcaster/logcaster/internal/buffer"
	"github.com/logcaster/logcaster/internal/query"
)

// Store is the slice of the ring buffer the API reads.
type Store interface {
	Search(keyword string) []string
	SearchEnhanced(m buffer.Matcher) []string
	Stats() (total, dropped uint64)
	Size() int
}

// Server serves the status API. It observes the buffer and never mutates
// server state.
type Server struct {
	addr      string
	store     Store
	server    *http.Server
	ctx       context.Context
	cancel    context.CancelFunc
	startTime time.Time
}

// NewServer creates a status API server.
func NewServer(addr string, store Store) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		addr:   addr,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	s.route(r)

	s.server = &http.Server{
		Handler:           r,
		BaseContext:       func(_ net.Listener) context.Context { return s.ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	s.addr = listener.Addr().String()
	s.startTime = time.Now()

	go s.server.Serve(listener)
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop() error {
	s.cancel()
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the bound listen address.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) route(r *gin.Engine) {
	r.GET("/api/health", s.handleHealth)
	r.GET("/api/stats", s.handleStats)
	r.GET("/api/search", s.handleSearch)
	r.POST("/api/query", s.handleQuery)
}

func (s *Server) handleHealth(c *gin.Context) {
	total, dropped := s.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.startTime).String(),
		"total":   total,
		"dropped": dropped,
		"current": s.store.Size(),
	})
}

func (s *Server) handleStats(c *gin.Context) {
	total, dropped := s.store.Stats()
	c.JSON(http.StatusOK, gin.H{
		"total":   total,
		"dropped": dropped,
		"current": s.store.Size(),
	})
}

func (s *Server) handleSearch(c *gin.Context) {
	keyword := c.Query("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing keyword parameter"})
		return
	}

	results := s.store.Search(keyword)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		Query string `json:"query" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body or missing query field"})
		return
	}

	q, err := query.Parse(req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	results := s.store.SearchEnhanced(q)
	c.JSON(http.StatusOK, gin.H{
		"count":   len(results),
		"results": results,
	})
}
