package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/parlay-settlement/pkg/contracts/events"
)

// client serializa escritas: gorilla/websocket não aceita writers concorrentes
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub mantém as assinaturas por apostador (ownerID -> conexões)
type Hub struct {
	log      *zap.Logger
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	subs     map[string]map[*client]struct{}
}

func NewHub(log *zap.Logger, allowOrigin func(r *http.Request) bool) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		log:      log,
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS gerencia o ciclo de vida de uma conexão; um cliente pode assinar vários apostadores
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()
	c := &client{conn: conn}

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			break
		}
		switch msg.Type {
		case "subscribe":
			if msg.OwnerID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.OwnerID]; !ok {
				h.subs[msg.OwnerID] = make(map[*client]struct{})
			}
			h.subs[msg.OwnerID][c] = struct{}{}
			h.mu.Unlock()
		case "unsubscribe":
			h.remove(msg.OwnerID, c)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	h.mu.Lock()
	for owner, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, owner)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) remove(ownerID string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[ownerID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, ownerID)
		}
	}
}

// Broadcast envia a liquidação para quem assina o apostador do bilhete
func (h *Hub) Broadcast(ev events.SlipSettled) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[ev.OwnerID]))
	for c := range h.subs[ev.OwnerID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(SettledUpdate{Type: "slip_settled", OwnerID: ev.OwnerID, Payload: ev})
	if err != nil {
		return
	}
	for _, c := range targets {
		if err := c.write(b); err != nil {
			h.log.Debug("ws write failed", zap.String("ownerId", ev.OwnerID), zap.Error(err))
		}
	}
}

// Subscribers retorna quantas conexões assinam o apostador
func (h *Hub) Subscribers(ownerID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[ownerID])
}
