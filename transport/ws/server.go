// Package ws provides a websocket-backed transport.GroupChannel, the one
// concrete multi-process channel this module ships (every other channel
// use in this module's own tests goes through transport.MemoryHub).
//
// Grounded on the pack sibling postalsys-Muti-Metroo's
// internal/transport/ws.go (WebSocketTransport/WebSocketListener pair built
// on nhooyr.io/websocket), generalized from that package's single-peer
// multiplexed stream to this module's many-member broadcast group, and on
// the teacher's pkg/agent/transport/websocket/client.go for the
// JSON-envelope-over-a-persistent-connection shape (there built on
// gorilla/websocket; here on nhooyr.io/websocket per this module's
// dependency set).
package ws

import (
	"context"
	"net/http"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sage-x-project/mpenc/internal/logger"
)

// envelope is the wire shape exchanged over the websocket connection; it
// mirrors transport.Action/transport.Event closely enough to convert
// losslessly in both directions.
type envelope struct {
	Kind    string   `json:"kind"`
	From    string   `json:"from,omitempty"`
	To      string   `json:"to,omitempty"`
	Payload []byte   `json:"payload,omitempty"`
	Members []string `json:"members,omitempty"`
	Self    bool     `json:"self,omitempty"`
}

const (
	kindSend  = "send"
	kindEnter = "enter"
	kindLeave = "leave"
)

// Hub is an http.Handler that accepts one websocket connection per member
// (identified by the "id" query parameter) and relays envelopes between
// them, broadcasting enter/leave control envelopes as members join and
// leave.
type Hub struct {
	mu      sync.Mutex
	members map[string]*serverConn
	order   []string
}

// NewHub creates an empty Hub.
func NewHub() *Hub {
	return &Hub{members: make(map[string]*serverConn)}
}

type serverConn struct {
	id   string
	conn *websocket.Conn
}

// ServeHTTP implements http.Handler, upgrading the request to a websocket
// connection for the member named by the "id" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "missing id query parameter", http.StatusBadRequest)
		return
	}

	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.Close(websocket.StatusInternalError, "closing")

	sc := &serverConn{id: id, conn: c}
	members := h.join(sc)

	ctx := r.Context()
	if err := wsjson.Write(ctx, c, envelope{Kind: kindEnter, Self: true, Members: members}); err != nil {
		h.leave(id)
		return
	}
	h.broadcastExcept(ctx, id, envelope{Kind: kindEnter, From: id, Members: members})

	for {
		var env envelope
		if err := wsjson.Read(ctx, c, &env); err != nil {
			break
		}
		if env.Kind != kindSend {
			continue
		}
		h.relay(ctx, id, env)
	}

	members = h.leave(id)
	h.broadcastExcept(ctx, id, envelope{Kind: kindLeave, From: id, Members: members})
	c.Close(websocket.StatusNormalClosure, "member left")
	logger.Info("websocket channel member left", logger.String("member", id))
}

func (h *Hub) join(sc *serverConn) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.members[sc.id] = sc
	h.order = append(h.order, sc.id)
	return h.memberListLocked()
}

func (h *Hub) leave(id string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.members, id)
	for i, x := range h.order {
		if x == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return h.memberListLocked()
}

func (h *Hub) memberListLocked() []string {
	out := make([]string, len(h.order))
	copy(out, h.order)
	return out
}

func (h *Hub) relay(ctx context.Context, from string, env envelope) {
	env.Kind = "receive"
	env.From = from

	if env.To == "" {
		h.broadcastExcept(ctx, from, env)
		return
	}

	h.mu.Lock()
	target, ok := h.members[env.To]
	h.mu.Unlock()
	if !ok {
		return
	}
	_ = wsjson.Write(ctx, target.conn, env)
}

func (h *Hub) broadcastExcept(ctx context.Context, except string, env envelope) {
	h.mu.Lock()
	targets := make([]*serverConn, 0, len(h.order))
	for _, id := range h.order {
		if id == except {
			continue
		}
		targets = append(targets, h.members[id])
	}
	h.mu.Unlock()

	for _, t := range targets {
		_ = wsjson.Write(ctx, t.conn, env)
	}
}
