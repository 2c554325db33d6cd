package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
)

// wsHub fans out decoded mediator events to every connected websocket
// client. Generalized from the hub/register/unregister/broadcast
// channel pattern used for a coordinator's own event hub, swapping its
// per-device HA state for this module's plain event envelopes.
type wsHub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*wsClient
	log     zerolog.Logger

	broadcast chan wsEvent
	done      chan struct{}
	stopOnce  sync.Once
}

type wsClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// wsEvent is the JSON envelope broadcast to every client: a kind tag
// plus the decoded payload for that event kind.
type wsEvent struct {
	Kind string `json:"kind"`
	Data any    `json:"data"`
}

func newWSHub(log zerolog.Logger) *wsHub {
	return &wsHub{
		clients:   make(map[uuid.UUID]*wsClient),
		log:       log,
		broadcast: make(chan wsEvent, 256),
		done:      make(chan struct{}),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		case event := <-h.broadcast:
			data, err := json.Marshal(event)
			if err != nil {
				h.log.Error().Err(err).Msg("marshal ws event")
				continue
			}
			h.mu.Lock()
			var slow []uuid.UUID
			for id, c := range h.clients {
				select {
				case c.send <- data:
				default:
					slow = append(slow, id)
				}
			}
			for _, id := range slow {
				close(h.clients[id].send)
				delete(h.clients, id)
				h.log.Warn().Msg("ws client evicted (too slow)")
			}
			h.mu.Unlock()
		}
	}
}

func (h *wsHub) stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *wsHub) publish(kind string, data any) {
	select {
	case h.broadcast <- wsEvent{Kind: kind, Data: data}:
	default:
		h.log.Warn().Str("kind", kind).Msg("ws broadcast channel full, dropping event")
	}
}

func (h *wsHub) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept")
		return
	}
	conn.SetReadLimit(4096)

	client := &wsClient{id: uuid.New(), conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	h.clients[client.id] = client
	h.mu.Unlock()

	go h.writePump(client)
	h.readPump(client)
}

func (h *wsHub) writePump(c *wsClient) {
	for msg := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, msg)
		cancel()
		if err != nil {
			return
		}
	}
	c.conn.Close(websocket.StatusNormalClosure, "")
}

func (h *wsHub) readPump(c *wsClient) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c.id]; ok {
			delete(h.clients, c.id)
			close(c.send)
		}
		h.mu.Unlock()
	}()

	for {
		_, _, err := c.conn.Read(context.Background())
		if err != nil {
			return
		}
		// Events only flow outward; inbound frames are ignored.
	}
}
