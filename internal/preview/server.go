// Package preview serves a read-only HTML rendering of the document being
// edited and pushes updates to connected browsers over a websocket.
package preview

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/sokinpui/bookscript/internal/export"
	"github.com/sokinpui/bookscript/internal/parser"
	"github.com/sokinpui/bookscript/model"
)

const (
	clientBuffer = 16
	writeTimeout = 5 * time.Second
)

// Update is the message pushed to websocket clients.
type Update struct {
	Revision uint64 `json:"revision"`
	Path     string `json:"path"`
	HTML     string `json:"html"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Server holds the latest rendered snapshot.
type Server struct {
	engine   *gin.Engine
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	current Update
	started bool
	outline []model.OutlineEntry
	stats   model.Stats
	clients map[*client]struct{}
}

// New creates a preview server with its routes registered.
func New(logger *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		engine:  gin.New(),
		logger:  logger,
		outline: []model.OutlineEntry{},
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.engine.Use(gin.Recovery())
	s.engine.GET("/", s.handleIndex)
	s.engine.GET("/outline", s.handleOutline)
	s.engine.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	s.engine.GET("/ws", s.handleWebsocket)
	return s
}

// Handler exposes the routes, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Update renders snap and pushes it to every client. Snapshots older than
// the current one are ignored.
func (s *Server) Update(snap model.Snapshot) error {
	lines, structure := parser.Analyze(snap.Text)
	body, err := export.HTML(lines)
	if err != nil {
		return err
	}
	update := Update{Revision: snap.Revision, Path: snap.Path, HTML: body}
	msg, err := json.Marshal(update)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.started && snap.Revision < s.current.Revision {
		s.mu.Unlock()
		return nil
	}
	s.current = update
	s.started = true
	s.outline = parser.Outline(structure)
	s.stats = parser.ComputeStats(snap.Text)
	var slow []*client
	for c := range s.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		s.dropLocked(c)
	}
	s.mu.Unlock()

	if len(slow) > 0 {
		s.logger.Warn("dropped slow preview clients", "count", len(slow))
	}
	return nil
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("preview server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		s.closeClients()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleIndex(c *gin.Context) {
	s.mu.RLock()
	body := s.current.HTML
	s.mu.RUnlock()
	if body == "" {
		body = "<!DOCTYPE html>\n<html><body><p>Nothing to preview yet.</p></body></html>\n"
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

func (s *Server) handleOutline(c *gin.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c.JSON(http.StatusOK, gin.H{
		"revision": s.current.Revision,
		"path":     s.current.Path,
		"outline":  s.outline,
		"stats":    s.stats,
	})
}

func (s *Server) handleWebsocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	cl := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	s.mu.Lock()
	s.clients[cl] = struct{}{}
	if s.current.Revision > 0 || s.current.HTML != "" {
		if msg, err := json.Marshal(s.current); err == nil {
			cl.send <- msg
		}
	}
	s.mu.Unlock()

	go s.writeLoop(cl)
	s.readLoop(cl)
}

// readLoop discards client messages and notices disconnects.
func (s *Server) readLoop(cl *client) {
	defer s.drop(cl)
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(cl *client) {
	defer cl.conn.Close()
	for msg := range cl.send {
		cl.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.drop(cl)
			return
		}
	}
	cl.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
}

func (s *Server) drop(cl *client) {
	s.mu.Lock()
	s.dropLocked(cl)
	s.mu.Unlock()
}

func (s *Server) dropLocked(cl *client) {
	if _, ok := s.clients[cl]; !ok {
		return
	}
	delete(s.clients, cl)
	close(cl.send)
}

func (s *Server) closeClients() {
	s.mu.Lock()
	for c := range s.clients {
		s.dropLocked(c)
	}
	s.mu.Unlock()
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
