// Package dashboard provides a real-time WebSocket feed of
// reconciliation activity.
//
// The server broadcasts executed operations, recorded issues, and
// periodic engine statistics to connected WebSocket clients, so a
// browser tab or monitoring script can watch the media sync converge.
package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/formstep/mediasync/internal/reconcile"
)

// MessageType defines the type of dashboard message
type MessageType string

const (
	// MessageTypeOperation indicates a reconciliation operation finished
	MessageTypeOperation MessageType = "op_executed"

	// MessageTypeIssue indicates the engine recorded an issue
	MessageTypeIssue MessageType = "issue"

	// MessageTypeStats carries an engine statistics snapshot
	MessageTypeStats MessageType = "stats"
)

// Message represents a dashboard broadcast message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// OperationData describes one executed operation
type OperationData struct {
	ID       string `json:"id"`
	Type     string `json:"op_type"`
	Error    string `json:"error,omitempty"`
	QueuedMs int64  `json:"queued_ms"`
}

// IssueData describes one recorded issue
type IssueData struct {
	Kind   string `json:"kind"`
	Op     string `json:"op"`
	Detail string `json:"detail"`
	Error  string `json:"error,omitempty"`
}

// StatsFunc supplies the current engine statistics for the welcome
// message and periodic snapshots.
type StatsFunc func() reconcile.Stats

// Server manages WebSocket connections and broadcasts dashboard messages
type Server struct {
	addr          string
	listener      net.Listener
	server        *http.Server
	stats         StatsFunc
	statsInterval time.Duration

	// WebSocket client management
	clients   map[*websocket.Conn]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Logging
	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8477)
	Port int

	// StatsInterval is how often a stats snapshot is pushed to clients
	// (default: 5s). Zero disables periodic snapshots.
	StatsInterval time.Duration

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:          8477,
		StatsInterval: 5 * time.Second,
		Logger:        log.Default(),
	}
}

// NewServer creates a new dashboard WebSocket server. stats may be nil,
// in which case stats snapshots are skipped.
func NewServer(config *Config, stats StatsFunc) *Server {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr:          fmt.Sprintf(":%d", config.Port),
		stats:         stats,
		statsInterval: config.StatsInterval,
		clients:       make(map[*websocket.Conn]bool),
		broadcast:     make(chan Message, 100),
		ctx:           ctx,
		cancel:        cancel,
		logger:        config.Logger,
	}
}

// Start begins the HTTP server and WebSocket handler
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/", s.handleRoot)

	s.server = &http.Server{
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", s.addr)
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	s.cancel()

	s.clientsMu.Lock()
	for conn := range s.clients {
		_ = conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, conn)
	}
	s.clientsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// PublishOperation broadcasts an executed operation. Wire it to the
// engine's OnOperation callback.
func (s *Server) PublishOperation(op reconcile.Operation, err error) {
	data := OperationData{
		ID:       op.ID,
		Type:     op.Type.String(),
		QueuedMs: time.Since(op.Timestamp).Milliseconds(),
	}
	if err != nil {
		data.Error = err.Error()
	}
	s.broadcastData(MessageTypeOperation, data)
}

// PublishIssue broadcasts a recorded issue. Wire it to the engine's
// OnIssue callback.
func (s *Server) PublishIssue(issue reconcile.Issue) {
	data := IssueData{
		Kind:   issue.Kind.String(),
		Op:     issue.Op.String(),
		Detail: issue.Detail,
	}
	if issue.Err != nil {
		data.Error = issue.Err.Error()
	}
	s.broadcastData(MessageTypeIssue, data)
}

func (s *Server) broadcastData(t MessageType, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		s.logger.Printf("Failed to marshal %s data: %v", t, err)
		return
	}
	s.Broadcast(Message{Type: t, Timestamp: time.Now(), Data: raw})
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// broadcastLoop handles message broadcasting to all clients and pushes
// periodic stats snapshots.
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	var statsC <-chan time.Time
	if s.stats != nil && s.statsInterval > 0 {
		ticker := time.NewTicker(s.statsInterval)
		defer ticker.Stop()
		statsC = ticker.C
	}

	for {
		select {
		case <-s.ctx.Done():
			return

		case <-statsC:
			if s.ClientCount() > 0 {
				s.broadcastData(MessageTypeStats, s.stats())
			}

		case msg := <-s.broadcast:
			if msg.Timestamp.IsZero() {
				msg.Timestamp = time.Now()
			}

			data, err := json.Marshal(msg)
			if err != nil {
				s.logger.Printf("Failed to marshal message: %v", err)
				continue
			}

			s.clientsMu.RLock()
			clients := make([]*websocket.Conn, 0, len(s.clients))
			for conn := range s.clients {
				clients = append(clients, conn)
			}
			s.clientsMu.RUnlock()

			// Send outside the read lock to avoid blocking broadcasts.
			for _, conn := range clients {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				err := conn.Write(ctx, websocket.MessageText, data)
				cancel()

				if err != nil {
					s.logger.Printf("Failed to send to client: %v", err)
					s.removeClient(conn)
				}
			}
		}
	}
}

// handleWebSocket upgrades HTTP connections to WebSocket
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"}, // Allow all origins for development
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	s.clientsMu.Lock()
	s.clients[conn] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()

	s.logger.Printf("Client connected (total: %d)", clientCount)

	// Welcome message: the current stats snapshot, so a new client sees
	// engine state without waiting for the next event.
	welcome := Message{Type: MessageTypeStats, Timestamp: time.Now()}
	if s.stats != nil {
		if raw, err := json.Marshal(s.stats()); err == nil {
			welcome.Data = raw
		}
	}
	welcomeData, _ := json.Marshal(welcome)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = conn.Write(ctx, websocket.MessageText, welcomeData)
	cancel()

	go s.readLoop(conn)
}

// readLoop keeps the WebSocket connection alive and handles client disconnects
func (s *Server) readLoop(conn *websocket.Conn) {
	defer s.removeClient(conn)

	for {
		_, _, err := conn.Read(s.ctx)
		if err != nil {
			return
		}
		// Client messages are not processed, just keep the connection alive
	}
}

// removeClient safely removes a client connection
func (s *Server) removeClient(conn *websocket.Conn) {
	s.clientsMu.Lock()
	if _, exists := s.clients[conn]; exists {
		delete(s.clients, conn)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.clientsMu.RLock()
	clientCount := len(s.clients)
	s.clientsMu.RUnlock()

	payload := map[string]interface{}{
		"status":  "ok",
		"clients": clientCount,
	}
	if s.stats != nil {
		payload["engine"] = s.stats()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Media Sync Dashboard</title>
</head>
<body>
    <h1>Media Sync Dashboard Server</h1>
    <p>WebSocket endpoint: <code>ws://%s/ws</code></p>
    <p>Health check: <a href="/health">/health</a></p>
    <p>Connect a WebSocket client to receive operation, issue, and stats events.</p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}
