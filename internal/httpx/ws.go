package httpx

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/ariefcatur/fitmeal/internal/orders"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	wsSendBuffer = 16
	wsWriteWait  = 5 * time.Second
	wsPingPeriod = 25 * time.Second
)

// wsClient is written only by its writePump; others enqueue on send.
type wsClient struct {
	userID string
	conn   *websocket.Conn
	send   chan []byte
	done   chan struct{}
	once   sync.Once
}

func newWSClient(userID string, conn *websocket.Conn) *wsClient {
	return &wsClient{userID: userID, conn: conn, send: make(chan []byte, wsSendBuffer), done: make(chan struct{})}
}

// enqueue never blocks; false means the client is gone or not keeping up.
func (c *wsClient) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

func (c *wsClient) write(msgType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.conn.WriteMessage(msgType, data)
}

// Hub pushes order status changes to the order owner's open sockets.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*wsClient]struct{}
	upgrader websocket.Upgrader
	auth     *Auth
	log      *zap.Logger
}

func NewHub(auth *Auth, log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*wsClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // CORS is enforced on the API routes
		},
		auth: auth,
		log:  log,
	}
}

// OrderStatusEvent is the message sent on each status change.
type OrderStatusEvent struct {
	Type      string        `json:"type"`
	OrderID   string        `json:"orderId"`
	From      orders.Status `json:"from"`
	To        orders.Status `json:"to"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*wsClient]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	if set := h.clients[c.userID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.userID)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Connected returns the number of open sockets for userID.
func (h *Hub) Connected(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// OrderStatusChanged implements orders.Notifier.
func (h *Hub) OrderStatusChanged(o orders.Order, from orders.Status) {
	if o.User == nil {
		return
	}
	msg, _ := json.Marshal(OrderStatusEvent{
		Type:      "order.status",
		OrderID:   o.ID,
		From:      from,
		To:        o.Status,
		UpdatedAt: o.UpdatedAt,
	})

	h.mu.RLock()
	targets := make([]*wsClient, 0, len(h.clients[o.User.ExternalID]))
	for c := range h.clients[o.User.ExternalID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(msg) {
			h.log.Debug("ws client too slow, dropped", zap.String("user", c.userID))
			h.unregister(c)
		}
	}
}

// Serve upgrades GET /ws/orders?userId= and keeps the socket until the client leaves.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.auth.userParam(w, r)
	if !ok {
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := newWSClient(userID, conn)
	h.register(c)
	go h.writePump(c)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			h.unregister(c)
			return
		}
	}
}

// writePump owns all writes to the socket.
func (h *Hub) writePump(c *wsClient) {
	// ping supaya koneksi tidak diputus proxy
	t := time.NewTicker(wsPingPeriod)
	defer t.Stop()
	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				h.log.Debug("ws write failed", zap.String("user", c.userID), zap.Error(err))
				h.unregister(c)
				return
			}
		case <-t.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}

var _ orders.Notifier = (*Hub)(nil)
