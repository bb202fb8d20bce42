package transport

import (
	"errors"
	"sync"
)

var errUnknownAction = errors.New("transport: unknown action kind")

// MemoryHub wires a set of in-process MemoryChannels into one group, the
// way a real deployment's server or message bus would. It exists for tests
// and single-process demos (spec.md's transport is explicitly an external
// collaborator; this is the one concrete channel this module ships for
// that role).
//
// Grounded on the teacher's websocket.Hub-less broadcast pattern in
// pkg/agent/transport/websocket/server.go, collapsed to an in-process
// map since there is no real network hop to model here.
type MemoryHub struct {
	mu       sync.Mutex
	channels map[string]*MemoryChannel
	order    []string
	failures *Observable[FailureEvent]
}

// NewMemoryHub creates an empty hub. failures, if non-nil, receives
// subscriber-panic and unsubscribed-publish reports from every channel
// joined to this hub.
func NewMemoryHub(failures *Observable[FailureEvent]) *MemoryHub {
	return &MemoryHub{channels: make(map[string]*MemoryChannel), failures: failures}
}

// Join admits id to the hub and returns its GroupChannel handle. The
// returned channel immediately observes an EventEnter{Self: true} carrying
// the resulting membership set; every other current member observes an
// EventEnter for id.
func (h *MemoryHub) Join(id string) *MemoryChannel {
	h.mu.Lock()
	ch := &MemoryChannel{hub: h, id: id, recv: NewObservable[Event](h.failures)}
	h.channels[id] = ch
	h.order = append(h.order, id)
	members := h.memberSetLocked()
	others := h.othersLocked(id)
	h.mu.Unlock()

	ch.recv.Publish(Event{Kind: EventEnter, Self: true, Members: members})
	for _, o := range others {
		o.recv.Publish(Event{Kind: EventEnter, From: id, Members: members})
	}
	return ch
}

// Leave removes id from the hub. The departing channel observes
// EventLeave{Self: true}; every remaining member observes an EventLeave for
// id.
func (h *MemoryHub) Leave(id string) {
	h.mu.Lock()
	ch, ok := h.channels[id]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.channels, id)
	for i, x := range h.order {
		if x == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	members := h.memberSetLocked()
	others := h.othersLocked("")
	h.mu.Unlock()

	ch.recv.Publish(Event{Kind: EventLeave, Self: true, Members: members})
	for _, o := range others {
		o.recv.Publish(Event{Kind: EventLeave, From: id, Members: members})
	}
}

func (h *MemoryHub) memberSetLocked() map[string]struct{} {
	out := make(map[string]struct{}, len(h.channels))
	for id := range h.channels {
		out[id] = struct{}{}
	}
	return out
}

func (h *MemoryHub) othersLocked(except string) []*MemoryChannel {
	var out []*MemoryChannel
	for _, id := range h.order {
		if id == except {
			continue
		}
		out = append(out, h.channels[id])
	}
	return out
}

func (h *MemoryHub) deliver(from, to string, payload []byte) error {
	h.mu.Lock()
	var targets []*MemoryChannel
	if to == "" {
		targets = h.othersLocked(from)
	} else {
		ch, ok := h.channels[to]
		if !ok {
			h.mu.Unlock()
			return ErrUnknownMember(to)
		}
		targets = []*MemoryChannel{ch}
	}
	h.mu.Unlock()

	for _, t := range targets {
		t.recv.Publish(Event{Kind: EventReceive, From: from, Payload: payload})
	}
	return nil
}

// MemoryChannel is one member's GroupChannel handle into a MemoryHub.
type MemoryChannel struct {
	hub  *MemoryHub
	id   string
	recv *Observable[Event]
}

var _ GroupChannel = (*MemoryChannel)(nil)

// CurMembers implements GroupChannel.
func (c *MemoryChannel) CurMembers() (map[string]struct{}, bool) {
	c.hub.mu.Lock()
	defer c.hub.mu.Unlock()
	if _, ok := c.hub.channels[c.id]; !ok {
		return nil, false
	}
	return c.hub.memberSetLocked(), true
}

// Send implements GroupChannel.
func (c *MemoryChannel) Send(action Action) error {
	switch action.Kind {
	case ActionSend:
		return c.hub.deliver(c.id, action.To, action.Payload)
	case ActionJoin:
		for _, m := range action.Members {
			c.hub.Join(m)
		}
		return nil
	case ActionLeave:
		for _, m := range action.Members {
			c.hub.Leave(m)
		}
		return nil
	default:
		return errUnknownAction
	}
}

// OnRecv implements GroupChannel.
func (c *MemoryChannel) OnRecv(subscriber func(Event)) *Subscription {
	return c.recv.Subscribe(subscriber)
}
