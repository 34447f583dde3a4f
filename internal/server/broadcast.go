package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/memelens/memelens/internal/metrics"
	"github.com/memelens/memelens/internal/targets"
	"github.com/memelens/memelens/internal/tracking"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
)

// ErrTooManyConnections is returned by AddClient when the limit is reached.
var ErrTooManyConnections = errors.New("too many websocket connections")

type client struct {
	conn *websocket.Conn
	b    *Broadcaster
	send chan []byte
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			c.b.RemoveClient(c)
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Broadcaster fans tracking messages out to websocket clients.
type Broadcaster struct {
	mu       sync.RWMutex
	clients  map[*client]bool
	store    *targets.Store
	maxConns int
	seq      atomic.Uint64

	snapshotTicker *time.Ticker
	stop           chan struct{}
	stopOnce       sync.Once

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBroadcaster starts a broadcaster that re-sends a full snapshot every
// snapshotInterval. maxConns <= 0 means unlimited.
func NewBroadcaster(store *targets.Store, snapshotInterval time.Duration, maxConns int, logger *slog.Logger, m *metrics.Metrics) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	if snapshotInterval <= 0 {
		snapshotInterval = 5 * time.Second
	}
	b := &Broadcaster{
		clients:  make(map[*client]bool),
		store:    store,
		maxConns: maxConns,
		stop:     make(chan struct{}),
		logger:   logger,
		metrics:  m,
	}

	b.snapshotTicker = time.NewTicker(snapshotInterval)
	go b.snapshotLoop()

	return b
}

// AddClient registers conn and queues a snapshot for it.
func (b *Broadcaster) AddClient(conn *websocket.Conn) (*client, error) {
	snapshot, err := b.encode(MsgSnapshot, b.snapshot())
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	if b.maxConns > 0 && len(b.clients) >= b.maxConns {
		b.mu.Unlock()
		return nil, ErrTooManyConnections
	}
	c := &client{
		conn: conn,
		b:    b,
		send: make(chan []byte, sendBuffer),
	}
	b.clients[c] = true
	// fresh buffered channel, never blocks
	c.send <- snapshot
	count := len(b.clients)
	b.mu.Unlock()

	b.metrics.SetClients(count)
	go c.writePump()

	return c, nil
}

func (b *Broadcaster) RemoveClient(c *client) {
	b.mu.Lock()
	if _, ok := b.clients[c]; ok {
		delete(b.clients, c)
		close(c.send)
	}
	count := len(b.clients)
	b.mu.Unlock()
	b.metrics.SetClients(count)
}

// PublishStatus sends a single status change to every client.
func (b *Broadcaster) PublishStatus(ev tracking.Event) {
	b.broadcast(MsgStatus, StatusPayload(ev))
}

// PublishError sends an error notice to every client.
func (b *Broadcaster) PublishError(message string) {
	b.broadcast(MsgError, ErrorPayload{Message: message})
}

func (b *Broadcaster) snapshot() SnapshotPayload {
	return SnapshotPayload{Targets: b.store.GetAll()}
}

func (b *Broadcaster) snapshotLoop() {
	for {
		select {
		case <-b.stop:
			return
		case <-b.snapshotTicker.C:
			if b.ClientCount() > 0 {
				b.broadcast(MsgSnapshot, b.snapshot())
			}
		}
	}
}

func (b *Broadcaster) encode(t MessageType, payload interface{}) ([]byte, error) {
	msg := Message{
		Type:    t,
		Seq:     b.seq.Add(1),
		Payload: payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		b.logger.Error("broadcast marshal error", "type", string(t), "error", err)
		return nil, err
	}
	b.metrics.TrackBroadcast(string(t))
	return data, nil
}

func (b *Broadcaster) broadcast(t MessageType, payload interface{}) {
	data, err := b.encode(t, payload)
	if err != nil {
		return
	}

	// Sends happen under the read lock so RemoveClient cannot close a
	// channel mid-send.
	var slow []*client
	b.mu.RLock()
	for c := range b.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	b.mu.RUnlock()

	for _, c := range slow {
		b.logger.Warn("ws client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
		b.RemoveClient(c)
	}
}

func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients)
}

// Stop halts the snapshot loop and disconnects every client.
func (b *Broadcaster) Stop() {
	b.stopOnce.Do(func() {
		close(b.stop)
		b.snapshotTicker.Stop()

		b.mu.Lock()
		for c := range b.clients {
			delete(b.clients, c)
			close(c.send)
		}
		b.mu.Unlock()
		b.metrics.SetClients(0)
	})
}
