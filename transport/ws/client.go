package ws

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/sage-x-project/mpenc/internal/logger"
	"github.com/sage-x-project/mpenc/transport"
)

// Channel is a websocket-backed transport.GroupChannel. Dial connects it to
// a Hub; it then runs a background read loop translating envelopes into
// transport.Event deliveries until Close or the connection drops.
type Channel struct {
	id   string
	conn *websocket.Conn
	recv *transport.Observable[transport.Event]

	mu      sync.Mutex
	members map[string]struct{}
	joined  bool

	cancel context.CancelFunc
}

var _ transport.GroupChannel = (*Channel)(nil)

// Dial connects to a Hub reachable at rawURL (e.g. "ws://host:port/path")
// as member id, blocking until the server's self-enter envelope arrives.
func Dial(ctx context.Context, rawURL, id string, failures *transport.Observable[transport.FailureEvent]) (*Channel, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("ws: parse url: %w", err)
	}
	q := u.Query()
	q.Set("id", id)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.Dial(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("ws: dial: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Channel{
		id:      id,
		conn:    conn,
		recv:    transport.NewObservable[transport.Event](failures),
		members: make(map[string]struct{}),
		cancel:  cancel,
	}

	var firstEnter envelope
	if err := wsjson.Read(ctx, conn, &firstEnter); err != nil {
		cancel()
		conn.Close(websocket.StatusInternalError, "handshake failed")
		return nil, fmt.Errorf("ws: awaiting self-enter: %w", err)
	}
	c.applyMembers(firstEnter.Members)
	c.joined = true

	go c.readLoop(readCtx)
	return c, nil
}

func (c *Channel) readLoop(ctx context.Context) {
	defer func() {
		c.mu.Lock()
		c.joined = false
		c.mu.Unlock()
	}()

	for {
		var env envelope
		if err := wsjson.Read(ctx, c.conn, &env); err != nil {
			return
		}
		c.handle(env)
	}
}

func (c *Channel) handle(env envelope) {
	switch env.Kind {
	case "receive":
		c.recv.Publish(transport.Event{Kind: transport.EventReceive, From: env.From, Payload: env.Payload})
	case kindEnter:
		c.applyMembers(env.Members)
		c.recv.Publish(transport.Event{Kind: transport.EventEnter, From: env.From, Self: env.Self, Members: c.snapshotMembers()})
	case kindLeave:
		c.applyMembers(env.Members)
		c.recv.Publish(transport.Event{Kind: transport.EventLeave, From: env.From, Self: env.Self, Members: c.snapshotMembers()})
	default:
		logger.Warn("ws channel: unrecognized envelope kind", logger.String("member", c.id), logger.String("kind", env.Kind))
	}
}

func (c *Channel) applyMembers(members []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.members = make(map[string]struct{}, len(members))
	for _, m := range members {
		c.members[m] = struct{}{}
	}
}

func (c *Channel) snapshotMembers() map[string]struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]struct{}, len(c.members))
	for m := range c.members {
		out[m] = struct{}{}
	}
	return out
}

// CurMembers implements transport.GroupChannel.
func (c *Channel) CurMembers() (map[string]struct{}, bool) {
	c.mu.Lock()
	joined := c.joined
	c.mu.Unlock()
	if !joined {
		return nil, false
	}
	return c.snapshotMembers(), true
}

// Send implements transport.GroupChannel.
func (c *Channel) Send(action transport.Action) error {
	ctx := context.Background()
	switch action.Kind {
	case transport.ActionSend:
		return wsjson.Write(ctx, c.conn, envelope{Kind: kindSend, To: action.To, Payload: action.Payload})
	case transport.ActionJoin, transport.ActionLeave:
		return fmt.Errorf("ws: membership-change actions are not supported by this channel")
	default:
		return fmt.Errorf("ws: unknown action kind")
	}
}

// OnRecv implements transport.GroupChannel.
func (c *Channel) OnRecv(subscriber func(transport.Event)) *transport.Subscription {
	return c.recv.Subscribe(subscriber)
}

// Close terminates the underlying websocket connection.
func (c *Channel) Close() error {
	c.cancel()
	return c.conn.Close(websocket.StatusNormalClosure, "closing")
}
