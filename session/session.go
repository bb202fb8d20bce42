package session

import (
	"sync"
	"time"

	"github.com/sage-x-project/mpenc/greeter"
	"github.com/sage-x-project/mpenc/internal/logger"
	"github.com/sage-x-project/mpenc/protoerr"
	"github.com/sage-x-project/mpenc/transport"
	"github.com/sage-x-project/mpenc/wire"
)

// DefaultPaddingSize is the zero-padding boundary SendData applies before
// encryption; set to 0 on a Session to disable padding.
const DefaultPaddingSize = 32

// DataEvent is delivered to OnData subscribers for each decrypted,
// signature-verified application payload received on the channel.
type DataEvent struct {
	From    string
	Payload []byte
}

// Session drives one member's greeter.Greeter against a
// transport.GroupChannel: it relays greet-flow frames automatically as
// they arrive and as local operations produce them, and once the Greeter
// reaches a session with a group key, exposes SendData/OnData for
// encrypted application payloads.
//
// Grounded on the teacher's core/session.SecureSession for the
// created/last-used/message-count bookkeeping and expiry policy, adapted
// from a single-peer AEAD session to a group session whose key material
// and membership come from a *greeter.Greeter instead of an ECDH shared
// secret.
type Session struct {
	id      string
	channel transport.GroupChannel
	greeter *greeter.Greeter
	config  Config
	Padding int

	mu           sync.Mutex
	createdAt    time.Time
	lastUsedAt   time.Time
	messageCount int
	closed       bool

	data *transport.Observable[DataEvent]
	sub  *transport.Subscription
}

// New creates a Session for g over channel, immediately subscribing to
// channel's receive events so inbound greet and data traffic is processed
// as it arrives. Callers still drive the handshake explicitly (Start,
// Include, Exclude, Refresh, Quit).
func New(channel transport.GroupChannel, g *greeter.Greeter, cfg Config) *Session {
	now := time.Now()
	s := &Session{
		id:         g.ID,
		channel:    channel,
		greeter:    g,
		config:     cfg,
		Padding:    DefaultPaddingSize,
		createdAt:  now,
		lastUsedAt: now,
		data:       transport.NewObservable[DataEvent](nil),
	}
	s.sub = channel.OnRecv(s.handleEvent)
	return s
}

// GetID returns the local member identifier.
func (s *Session) GetID() string { return s.id }

// GetCreatedAt returns when the Session was created.
func (s *Session) GetCreatedAt() time.Time { return s.createdAt }

// GetLastUsedAt returns the last activity timestamp.
func (s *Session) GetLastUsedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsedAt
}

// GetMessageCount returns the number of data messages sent or received.
func (s *Session) GetMessageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.messageCount
}

// GetConfig returns the Session's lifecycle policy.
func (s *Session) GetConfig() Config { return s.config }

// Greeter returns the underlying state machine, for callers that need
// direct access to membership or state.
func (s *Session) Greeter() *greeter.Greeter { return s.greeter }

// IsExpired reports whether the Session has been closed or has exceeded
// its configured absolute age, idle timeout, or message count.
func (s *Session) IsExpired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isExpiredLocked()
}

func (s *Session) isExpiredLocked() bool {
	if s.closed {
		return true
	}
	now := time.Now()
	if s.config.MaxAge > 0 && now.After(s.createdAt.Add(s.config.MaxAge)) {
		return true
	}
	if s.config.IdleTimeout > 0 && now.After(s.lastUsedAt.Add(s.config.IdleTimeout)) {
		return true
	}
	if s.config.MaxMessages > 0 && s.messageCount >= s.config.MaxMessages {
		return true
	}
	return false
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastUsedAt = time.Now()
	s.messageCount++
	s.mu.Unlock()
}

// Close unsubscribes from the channel and marks the Session closed. It
// does not itself send a QUIT greet message; callers that want a clean
// group departure should call Quit first.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.sub != nil {
		s.sub.Cancel()
	}
	return nil
}

// Start begins an initial key agreement with others.
func (s *Session) Start(others []string) error {
	return s.driveGreet(s.greeter.Start, others)
}

// Include adds newMembers to the group.
func (s *Session) Include(newMembers []string) error {
	return s.driveGreet(s.greeter.Include, newMembers)
}

// Exclude removes excluded from the group.
func (s *Session) Exclude(excluded []string) error {
	return s.driveGreet(s.greeter.Exclude, excluded)
}

// Refresh re-keys the current group without changing membership.
func (s *Session) Refresh() error {
	out, err := s.greeter.Refresh()
	if err != nil {
		return err
	}
	return s.sendFrame(out)
}

// Recover requests full re-authentication of the current group, without
// removing or adding members.
func (s *Session) Recover() error {
	out, err := s.greeter.Recover()
	if err != nil {
		return err
	}
	return s.sendFrame(out)
}

// Quit leaves the group.
func (s *Session) Quit() error {
	out, err := s.greeter.Quit()
	if err != nil {
		return err
	}
	return s.sendFrame(out)
}

func (s *Session) driveGreet(op func([]string) ([]byte, error), members []string) error {
	out, err := op(members)
	if err != nil {
		return err
	}
	return s.sendFrame(out)
}

func (s *Session) sendFrame(frame []byte) error {
	if frame == nil {
		return nil
	}
	return s.channel.Send(transport.Action{Kind: transport.ActionSend, Payload: frame})
}

// SendData encrypts and broadcasts an application payload under the
// group's current session key. It fails if the Greeter has not yet
// reached a state with a group key.
func (s *Session) SendData(payload []byte) error {
	if s.IsExpired() {
		return protoerr.New(protoerr.CodeProtocolViolation, "session: expired")
	}
	groupKey := s.greeter.Cliques.GroupKey
	sessionID := s.greeter.Aske.SessionID
	if len(groupKey) == 0 || len(sessionID) == 0 {
		return protoerr.New(protoerr.CodeProtocolViolation, "session: no established group key")
	}
	signer := s.greeter.Aske.StaticSigner
	if signer == nil {
		return protoerr.New(protoerr.CodeProtocolViolation, "session: no static signing key configured")
	}

	iv, cipher, err := wire.EncryptData(groupKey, payload, s.Padding)
	if err != nil {
		return err
	}
	dm := &wire.DataMessage{Version: wire.ProtocolVersion, IV: iv, Cipher: cipher}
	wire.SignDataMessage(dm, sessionID, groupKey, signer)

	frame := wire.EncodeFrame(wire.CategoryData, wire.ProtocolVersion, dm.Encode())
	if err := s.channel.Send(transport.Action{Kind: transport.ActionSend, Payload: []byte(frame)}); err != nil {
		return err
	}
	s.touch()
	return nil
}

// OnData registers a subscriber for decrypted application payloads.
func (s *Session) OnData(subscriber func(DataEvent)) *transport.Subscription {
	return s.data.Subscribe(subscriber)
}

func (s *Session) handleEvent(e transport.Event) {
	if e.Kind != transport.EventReceive {
		return
	}
	frame, err := wire.DecodeFrame(string(e.Payload))
	if err != nil {
		logger.Warn("session: malformed frame", logger.String("member", s.id), logger.String("from", e.From))
		return
	}

	switch frame.Category {
	case wire.CategoryGreet:
		s.handleGreet(e.Payload)
	case wire.CategoryData:
		s.handleData(e.From, frame.Payload)
	default:
		logger.Warn("session: unhandled frame category",
			logger.String("member", s.id), logger.String("from", e.From))
	}
}

func (s *Session) handleGreet(raw []byte) {
	out, err := s.greeter.ProcessMessage(raw)
	if err != nil {
		logger.Warn("session: greet message rejected",
			logger.String("member", s.id), logger.Error(err))
		return
	}
	if err := s.sendFrame(out); err != nil {
		logger.Warn("session: failed to send greet reply",
			logger.String("member", s.id), logger.Error(err))
	}
}

func (s *Session) handleData(from string, payload []byte) {
	dm, err := wire.DecodeDataMessage(payload)
	if err != nil {
		logger.Warn("session: malformed data message", logger.String("member", s.id), logger.String("from", from))
		return
	}

	groupKey := s.greeter.Cliques.GroupKey
	sessionID := s.greeter.Aske.SessionID
	if len(groupKey) == 0 || len(sessionID) == 0 {
		logger.Warn("session: data message before group key established",
			logger.String("member", s.id), logger.String("from", from))
		return
	}
	pub, ok := s.greeter.Aske.StaticPubKeyDir[from]
	if !ok {
		logger.Warn("session: data message from unknown static key holder",
			logger.String("member", s.id), logger.String("from", from))
		return
	}
	if err := wire.VerifyDataMessage(dm, sessionID, groupKey, pub); err != nil {
		logger.Warn("session: data message signature verification failed",
			logger.String("member", s.id), logger.String("from", from))
		return
	}
	plain, err := wire.DecryptData(groupKey, dm.IV, dm.Cipher)
	if err != nil {
		logger.Warn("session: data message decryption failed",
			logger.String("member", s.id), logger.String("from", from))
		return
	}
	s.touch()
	s.data.Publish(DataEvent{From: from, Payload: plain})
}
