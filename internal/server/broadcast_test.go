package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/tracking"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

// dialTestWS creates a test HTTP server that upgrades to WebSocket and returns
// the server-side connection plus the client side.
func dialTestWS(t *testing.T) (*httptest.Server, *websocket.Conn, *websocket.Conn) {
	t.Helper()

	connCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		connCh <- c
	}))

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	clientConn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		srv.Close()
		t.Fatalf("dial: %v", err)
	}

	select {
	case serverConn := <-connCh:
		t.Cleanup(func() {
			clientConn.Close()
			srv.Close()
		})
		return srv, serverConn, clientConn
	case <-time.After(2 * time.Second):
		srv.Close()
		t.Fatal("timed out waiting for server-side WebSocket connection")
		return nil, nil, nil
	}
}

func TestAddClientMaxConnections(t *testing.T) {
	const maxConns = 2
	b := NewBroadcaster(targets.NewStore(), time.Hour, maxConns, quietLogger(), nil)
	defer b.Stop()

	for i := 0; i < maxConns; i++ {
		_, conn, _ := dialTestWS(t)
		if _, err := b.AddClient(conn); err != nil {
			t.Fatalf("AddClient[%d]: unexpected error: %v", i, err)
		}
	}
	if got := b.ClientCount(); got != maxConns {
		t.Fatalf("expected %d clients, got %d", maxConns, got)
	}

	_, conn, _ := dialTestWS(t)
	if _, err := b.AddClient(conn); !errors.Is(err, ErrTooManyConnections) {
		t.Fatalf("AddClient over limit: err = %v, want ErrTooManyConnections", err)
	}
	conn.Close()
}

func TestRemoveClientIsIdempotent(t *testing.T) {
	m := metrics.New()
	b := NewBroadcaster(targets.NewStore(), time.Hour, 0, quietLogger(), m)
	defer b.Stop()

	_, conn, _ := dialTestWS(t)
	c, err := b.AddClient(conn)
	if err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(m.BroadcastClients); got != 1 {
		t.Errorf("clients gauge = %v, want 1", got)
	}

	b.RemoveClient(c)
	b.RemoveClient(c)
	if b.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want 0", b.ClientCount())
	}
	if got := testutil.ToFloat64(m.BroadcastClients); got != 0 {
		t.Errorf("clients gauge = %v, want 0", got)
	}
}

func TestWritePumpRemovesClientOnWriteError(t *testing.T) {
	b := NewBroadcaster(targets.NewStore(), time.Hour, 0, quietLogger(), nil)
	defer b.Stop()

	_, serverConn, _ := dialTestWS(t)

	// Build a client directly so we control when writePump starts.
	c := &client{
		conn: serverConn,
		b:    b,
		send: make(chan []byte, sendBuffer),
	}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	serverConn.Close()
	c.send <- []byte(`{"type":"test"}`)
	go c.writePump()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if b.ClientCount() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("client not removed after write error; ClientCount = %d", b.ClientCount())
}

func TestSlowClientIsDropped(t *testing.T) {
	b := NewBroadcaster(targets.NewStore(), time.Hour, 0, quietLogger(), nil)
	defer b.Stop()

	_, serverConn, _ := dialTestWS(t)

	// No write pump: the buffer fills and the next broadcast drops the client.
	c := &client{
		conn: serverConn,
		b:    b,
		send: make(chan []byte, 1),
	}
	b.mu.Lock()
	b.clients[c] = true
	b.mu.Unlock()

	ev := tracking.Event{Target: tracking.Target{ID: "a"}, Status: tracking.Tracked}
	b.PublishStatus(ev)
	b.PublishStatus(ev)

	if b.ClientCount() != 0 {
		t.Errorf("ClientCount = %d, want slow client dropped", b.ClientCount())
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	b := NewBroadcaster(targets.NewStore(), time.Hour, 0, quietLogger(), nil)

	_, conn, clientConn := dialTestWS(t)
	if _, err := b.AddClient(conn); err != nil {
		t.Fatal(err)
	}
	b.Stop()
	b.Stop()

	if b.ClientCount() != 0 {
		t.Errorf("ClientCount = %d after Stop", b.ClientCount())
	}

	clientConn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := clientConn.ReadMessage(); err != nil {
			return
		}
	}
}
