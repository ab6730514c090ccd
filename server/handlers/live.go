package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
	"github.com/Seann-Moser/go-bench/pkg/dashboard"
	"github.com/Seann-Moser/go-bench/pkg/ps"
	"github.com/Seann-Moser/go-bench/server/endpoints"
)

const (
	LivePath = BenchmarksPath + "/ws"

	MessageSnapshot = "snapshot"
	MessageGroup    = "group"

	writeWait     = 10 * time.Second
	pongWait      = 60 * time.Second
	pingPeriod    = pongWait * 9 / 10
	clientBacklog = 16
)

// LiveMessage is one frame of the live feed. The first frame on a connection is a snapshot.
type LiveMessage struct {
	Type     string                `json:"type"`
	Snapshot *dashboard.Snapshot   `json:"snapshot,omitempty"`
	Group    *dashboard.GroupState `json:"group,omitempty"`
}

type liveClient struct {
	conn *websocket.Conn
	send chan LiveMessage
}

// Hub holds one bus subscription and fans every update out to the connected sockets.
type Hub struct {
	subscriber ps.Subscriber[dashboard.GroupState]
	topic      string
	snapshot   func() dashboard.Snapshot
	upgrader   websocket.Upgrader
	ready      chan struct{}
	// idle time after which clients get a fresh snapshot, zero disables it
	resync time.Duration

	mu      sync.Mutex
	clients map[*liveClient]struct{}
}

func NewHub(subscriber ps.Subscriber[dashboard.GroupState], topic string, snapshot func() dashboard.Snapshot, resync time.Duration) *Hub {
	return &Hub{
		subscriber: subscriber,
		topic:      topic,
		snapshot:   snapshot,
		resync:     resync,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		ready:   make(chan struct{}),
		clients: map[*liveClient]struct{}{},
	}
}

// Ready is closed once Run holds its bus subscription.
func (h *Hub) Ready() <-chan struct{} {
	return h.ready
}

// Run forwards bus messages to clients until ctx is done or the subscription closes.
// When the bus stays quiet for the resync interval every client gets a new snapshot.
func (h *Hub) Run(ctx context.Context) error {
	sub, err := h.subscriber.Subscribe(ctx, h.topic)
	if err != nil {
		return err
	}
	defer sub.Close(context.WithoutCancel(ctx))
	close(h.ready)
	for {
		msg, err := h.next(ctx, sub)
		if errors.Is(err, ps.ErrTimeout) {
			h.resyncClients(ctx)
			continue
		}
		if err != nil {
			h.closeAll()
			if errors.Is(err, ps.ErrClosed) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if msg.Data != nil {
			h.Broadcast(ctx, LiveMessage{Type: MessageGroup, Group: msg.Data})
		}
		if err := msg.Ack(ctx); err != nil {
			ctxLogger.Warn(ctx, "failed acking update", zap.Error(err))
		}
	}
}

func (h *Hub) next(ctx context.Context, sub *ps.Subscription[dashboard.GroupState]) (*ps.SubscriptionData[dashboard.GroupState], error) {
	if h.resync <= 0 {
		return sub.BPop(ctx)
	}
	return sub.Pop(ctx, h.resync)
}

func (h *Hub) resyncClients(ctx context.Context) {
	if h.Clients() == 0 {
		return
	}
	snap := h.snapshot()
	h.Broadcast(ctx, LiveMessage{Type: MessageSnapshot, Snapshot: &snap})
}

// Broadcast queues m for every client. Clients that cannot keep up are dropped.
func (h *Hub) Broadcast(ctx context.Context, m LiveMessage) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- m:
		default:
			ctxLogger.Warn(ctx, "dropping slow websocket client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) Endpoint() *endpoints.Endpoint {
	return &endpoints.Endpoint{
		URLPath:     LivePath,
		Methods:     []string{http.MethodGet},
		Description: "live benchmark updates",
		HandlerFunc: h.ServeWS,
	}
}

func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		ctxLogger.Warn(ctx, "websocket upgrade failed", zap.Error(err))
		return
	}
	c := &liveClient{conn: conn, send: make(chan LiveMessage, clientBacklog)}
	snap := h.snapshot()
	c.send <- LiveMessage{Type: MessageSnapshot, Snapshot: &snap}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	ctxLogger.Debug(ctx, "websocket client connected", zap.Int("clients", h.Clients()))

	go h.writePump(ctx, c)
	h.readPump(c)
}

// readPump discards client frames and unregisters the client once the socket closes.
func (h *Hub) readPump(c *liveClient) {
	defer func() {
		h.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(ctx context.Context, c *liveClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case m, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(m); err != nil {
				ctxLogger.Debug(ctx, "websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *liveClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}
