package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/formstep/mediasync/internal/reconcile"
)

func startTestServer(t *testing.T, stats StatsFunc) *Server {
	t.Helper()

	cfg := &Config{
		Port:          0, // random free port
		StatsInterval: 0, // no periodic snapshots in tests
		Logger:        log.New(io.Discard, "", 0),
	}
	s := NewServer(cfg, stats)
	if err := s.Start(); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func dialTestServer(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, fmt.Sprintf("ws://%s/ws", s.GetAddr()), nil)
	if err != nil {
		t.Fatalf("Dial() failed: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read() failed: %v", err)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Unmarshal() failed: %v", err)
	}
	return msg
}

// TestWelcomeCarriesStats verifies a new client immediately receives the
// current engine snapshot.
func TestWelcomeCarriesStats(t *testing.T) {
	s := startTestServer(t, func() reconcile.Stats {
		return reconcile.Stats{Initialized: true, Errors: 2}
	})
	conn := dialTestServer(t, s)

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeStats {
		t.Fatalf("welcome type = %s, want stats", msg.Type)
	}

	var stats reconcile.Stats
	if err := json.Unmarshal(msg.Data, &stats); err != nil {
		t.Fatalf("welcome data: %v", err)
	}
	if !stats.Initialized || stats.Errors != 2 {
		t.Errorf("welcome stats = %+v", stats)
	}
}

// TestPublishOperation verifies executed operations reach clients.
func TestPublishOperation(t *testing.T) {
	s := startTestServer(t, nil)
	conn := dialTestServer(t, s)

	readMessage(t, conn) // welcome

	op := reconcile.NewOperation(reconcile.OpForceSync, reconcile.Payload{})
	s.PublishOperation(op, nil)

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeOperation {
		t.Fatalf("type = %s, want op_executed", msg.Type)
	}

	var data OperationData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.ID != op.ID || data.Type != "force_sync" || data.Error != "" {
		t.Errorf("operation data = %+v", data)
	}
}

// TestPublishIssue verifies issues reach clients with kind and detail.
func TestPublishIssue(t *testing.T) {
	s := startTestServer(t, nil)
	conn := dialTestServer(t, s)

	readMessage(t, conn) // welcome

	s.PublishIssue(reconcile.Issue{
		Kind:   reconcile.IssueQueueFull,
		Op:     reconcile.OpIntegrityCheck,
		Detail: "queue at capacity",
		Time:   time.Now(),
	})

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeIssue {
		t.Fatalf("type = %s, want issue", msg.Type)
	}

	var data IssueData
	if err := json.Unmarshal(msg.Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.Kind != "queue_full" || data.Op != "integrity_check" {
		t.Errorf("issue data = %+v", data)
	}
}

// TestClientCount verifies connect/disconnect bookkeeping.
func TestClientCount(t *testing.T) {
	s := startTestServer(t, nil)

	if n := s.ClientCount(); n != 0 {
		t.Fatalf("ClientCount() = %d before any connects", n)
	}

	conn := dialTestServer(t, s)
	readMessage(t, conn)

	if n := s.ClientCount(); n != 1 {
		t.Errorf("ClientCount() = %d after connect", n)
	}
}
