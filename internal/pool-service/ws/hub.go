package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/bcabanag-design/casa-apuestas-completa/pkg/contracts/events"
)

// AllMatches é a assinatura que recebe atualizações de qualquer partida
const AllMatches int64 = 0

// client serializa as escritas numa conexão (gorilla não aceita escritores concorrentes)
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, b)
}

// Hub gerencia conexões WebSocket e assinaturas por partida
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	// matchID -> conexões inscritas
	subs map[int64]map[*client]struct{}
}

// NewHub cria o hub com a política de origem informada
func NewHub(allowOrigin func(r *http.Request) bool) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		subs:     make(map[int64]map[*client]struct{}),
	}
}

// HandleWS atende uma conexão: subscribe/unsubscribe por matchId e ping
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
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
			h.subscribe(c, msg.MatchID)
		case "unsubscribe":
			h.unsubscribe(c, msg.MatchID)
		case "ping":
			_ = c.write([]byte(`{"type":"pong"}`))
		}
	}

	h.mu.Lock()
	for id, set := range h.subs {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, id)
		}
	}
	h.mu.Unlock()
}

func (h *Hub) subscribe(c *client, matchID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[matchID]; !ok {
		h.subs[matchID] = make(map[*client]struct{})
	}
	h.subs[matchID][c] = struct{}{}
}

func (h *Hub) unsubscribe(c *client, matchID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.subs[matchID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.subs, matchID)
		}
	}
}

// Subscribers conta as conexões inscritas numa partida
func (h *Hub) Subscribers(matchID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[matchID])
}

// Broadcast envia a atualização para os inscritos na partida e em AllMatches
func (h *Hub) Broadcast(update events.PoolUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.MatchID])+len(h.subs[AllMatches]))
	seen := make(map[*client]struct{})
	for _, id := range []int64{update.MatchID, AllMatches} {
		for c := range h.subs[id] {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, _ := json.Marshal(update)
	for _, c := range targets {
		_ = c.write(b)
	}
}
