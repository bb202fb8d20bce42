// Package aske implements the Authenticated Signature Key Exchange
// described in spec.md §4.3: nonce-based session-ID construction with
// per-member Ed25519 session-acknowledgement signatures, run in parallel
// with a cliques.Member's group-DH chain.
//
// Grounded on the teacher's core/handshake package for the shape of a
// multi-phase authenticated exchange (nonces, session identifiers,
// signature verification against a claimed party's key) and on
// crypto/keys/ed25519.go for the Ed25519 sign/verify primitives.
package aske

import (
	"crypto/ed25519"
	"crypto/sha256"
	"sort"

	sagecrypto "github.com/sage-x-project/mpenc/crypto"
	"github.com/sage-x-project/mpenc/protoerr"
)

// Flow identifies the direction a Message travels through the member chain.
type Flow string

const (
	FlowUp   Flow = "up"
	FlowDown Flow = "down"
)

var ackDomainTag = []byte("acksig")

// Message is one ASKE protocol message: the authentication half of a merged
// greet message (spec.md §4.3).
type Message struct {
	Source           string
	Dest             string // "" denotes broadcast
	Flow             Flow
	Members          []string
	Nonces           [][]byte
	EphemeralPubKeys [][]byte
	SessionSignature []byte // present on down messages: Source's own ack signature
	SigningKey       []byte // present on quit: Source's own ephemeral private key
}

// OldEphemeralKey records what is known about a member that has left the
// session, for deniability bookkeeping (spec.md §3).
type OldEphemeralKey struct {
	Pub           []byte
	Priv          []byte // populated only if the member published it on quit
	Authenticated bool
}

// Member holds one participant's view of ASKE state (spec.md §3).
type Member struct {
	ID               string
	Members          []string
	Nonces           [][]byte
	EphemeralPubKeys [][]byte
	EphemeralKey     *sagecrypto.SigningKeyPair
	Nonce            []byte

	StaticSigner    *sagecrypto.SigningKeyPair
	StaticPubKeyDir map[string]ed25519.PublicKey

	SessionID            []byte
	AuthenticatedMembers []bool
	OldEphemeralKeys     map[string]OldEphemeralKey
}

// NewMember creates an empty ASKE member for participant id, using signer
// as its long-term static key and dir to resolve other members' static
// public keys.
func NewMember(id string, signer *sagecrypto.SigningKeyPair, dir map[string]ed25519.PublicKey) *Member {
	return &Member{
		ID:               id,
		StaticSigner:     signer,
		StaticPubKeyDir:  dir,
		OldEphemeralKeys: make(map[string]OldEphemeralKey),
	}
}

// Commit begins a session: self plus others, relayed in that order
// (spec.md §4.3, "like CLIQUES ika").
func (m *Member) Commit(others []string) (*Message, error) {
	all := append([]string{m.ID}, others...)
	return m.startChain(all)
}

// Join adds newMembers by re-running the nonce/ephemeral-key chain over the
// existing membership plus the new arrivals, mirroring cliques.AkaJoin.
func (m *Member) Join(newMembers []string) (*Message, error) {
	if len(newMembers) == 0 {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: join requires at least one new member")
	}
	all := append(moveSelfFirst(m.ID, m.Members), newMembers...)
	return m.startChain(all)
}

// Exclude removes the named members, moving their last-known ephemeral
// public key into OldEphemeralKeys, and re-runs the chain over the
// remainder.
func (m *Member) Exclude(excluded []string) (*Message, error) {
	for _, id := range excluded {
		if id == m.ID {
			return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: cannot exclude self")
		}
	}
	remove := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		remove[id] = true
	}
	for _, id := range excluded {
		if idx := indexOf(id, m.Members); idx >= 0 {
			m.OldEphemeralKeys[id] = OldEphemeralKey{
				Pub:           m.EphemeralPubKeys[idx],
				Authenticated: idx < len(m.AuthenticatedMembers) && m.AuthenticatedMembers[idx],
			}
		}
	}
	var remaining []string
	for _, id := range m.Members {
		if !remove[id] {
			remaining = append(remaining, id)
		}
	}
	return m.startChain(moveSelfFirst(m.ID, remaining))
}

// FullRefresh re-runs the chain over the current membership with fresh
// nonces and ephemeral keys, producing a new session_id.
func (m *Member) FullRefresh() (*Message, error) {
	return m.startChain(moveSelfFirst(m.ID, m.Members))
}

// Quit publishes self's ephemeral private key as signing_key, providing
// deniability of past session-acknowledgement signatures, and zeroizes it.
func (m *Member) Quit() *Message {
	var seed []byte
	if m.EphemeralKey != nil {
		seed = append([]byte{}, m.EphemeralKey.Seed()...)
		m.EphemeralKey.Zeroize()
	}
	m.EphemeralKey = nil
	return &Message{Source: m.ID, Dest: "", Flow: FlowDown, SigningKey: seed}
}

func (m *Member) startChain(all []string) (*Message, error) {
	if err := checkNoDuplicates(all); err != nil {
		return nil, err
	}
	if indexOf(m.ID, all) < 0 {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: self not in members")
	}

	// Forget the previous round's finalized group state: DownFlow uses a
	// nil Members check to decide whether to (re)finalize, and a new chain
	// always needs a fresh finalization once it completes.
	m.Members = nil
	m.EphemeralPubKeys = nil
	m.AuthenticatedMembers = nil
	m.SessionID = nil

	nonce, err := sagecrypto.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	ephemeral, err := sagecrypto.GenerateSigningKeyPair()
	if err != nil {
		return nil, err
	}
	m.Nonce = nonce
	m.EphemeralKey = ephemeral

	// last mirrors UpFlow's own pos == len(members)-1 check: when self is
	// the chain's only member, self is simultaneously first and last, so
	// the session finalizes and self's own acknowledgement signature goes
	// out in this one message instead of an upflow relay.
	pos := 0
	last := pos == len(all)-1
	if !last {
		return &Message{
			Source:           m.ID,
			Dest:             all[1],
			Flow:             FlowUp,
			Members:          all,
			Nonces:           [][]byte{nonce},
			EphemeralPubKeys: [][]byte{[]byte(ephemeral.Public)},
		}, nil
	}

	m.finalize(all, [][]byte{nonce}, [][]byte{[]byte(ephemeral.Public)})
	sig, err := m.signAck(pos)
	if err != nil {
		return nil, err
	}
	m.AuthenticatedMembers[pos] = true

	return &Message{
		Source:           m.ID,
		Dest:             "",
		Flow:             FlowDown,
		Members:          m.Members,
		Nonces:           m.Nonces,
		EphemeralPubKeys: m.EphemeralPubKeys,
		SessionSignature: sig,
	}, nil
}

// UpFlow appends self's own nonce and ephemeral public key to the chain; if
// self is last, it finalizes state and broadcasts down with its own
// session-acknowledgement signature, otherwise it forwards (spec.md §4.3).
func (m *Member) UpFlow(msg *Message) (*Message, error) {
	if err := validateChain(m.ID, msg.Members, msg.Nonces, msg.EphemeralPubKeys); err != nil {
		return nil, err
	}
	pos := indexOf(m.ID, msg.Members)
	if len(msg.Nonces) != pos {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: nonce count does not match position")
	}

	// As in startChain: a relaying member forgets the previous round's
	// finalized group state so the coming downflow finalizes afresh.
	m.Members = nil
	m.EphemeralPubKeys = nil
	m.AuthenticatedMembers = nil
	m.SessionID = nil

	nonce, err := sagecrypto.RandomBytes(32)
	if err != nil {
		return nil, err
	}
	ephemeral, err := sagecrypto.GenerateSigningKeyPair()
	if err != nil {
		return nil, err
	}
	m.Nonce = nonce
	m.EphemeralKey = ephemeral

	newNonces := append(append([][]byte{}, msg.Nonces...), nonce)
	newPubs := append(append([][]byte{}, msg.EphemeralPubKeys...), []byte(ephemeral.Public))

	last := pos == len(msg.Members)-1
	if !last {
		return &Message{
			Source:           m.ID,
			Dest:             msg.Members[pos+1],
			Flow:             FlowUp,
			Members:          msg.Members,
			Nonces:           newNonces,
			EphemeralPubKeys: newPubs,
		}, nil
	}

	m.finalize(msg.Members, newNonces, newPubs)
	sig, err := m.signAck(pos)
	if err != nil {
		return nil, err
	}
	m.AuthenticatedMembers[pos] = true

	return &Message{
		Source:           m.ID,
		Dest:             "",
		Flow:             FlowDown,
		Members:          m.Members,
		Nonces:           m.Nonces,
		EphemeralPubKeys: m.EphemeralPubKeys,
		SessionSignature: sig,
	}, nil
}

// DownFlow verifies the signature of msg.Source against the static key on
// file for it, and, if self has not yet broadcast its own acknowledgement,
// returns one to send. It returns a nil message with no error when there is
// nothing further to emit.
func (m *Member) DownFlow(msg *Message) (*Message, error) {
	if err := validateChain(m.ID, msg.Members, msg.Nonces, msg.EphemeralPubKeys); err != nil {
		return nil, err
	}
	if len(msg.Nonces) != len(msg.Members) {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: incomplete membership in downflow")
	}

	pos := indexOf(m.ID, msg.Members)
	if m.Members == nil {
		m.finalize(msg.Members, msg.Nonces, msg.EphemeralPubKeys)
	}

	sourceIdx := indexOf(msg.Source, m.Members)
	if sourceIdx < 0 {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: downflow source not in members")
	}
	pub, ok := m.StaticPubKeyDir[msg.Source]
	if !ok {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: no static key for "+msg.Source)
	}
	payload := ackPayload(msg.Source, m.EphemeralPubKeys[sourceIdx], m.Nonces[sourceIdx], m.SessionID)
	if len(msg.SessionSignature) == 0 || !sagecrypto.Verify(pub, payload, msg.SessionSignature) {
		return nil, protoerr.Wrap(protoerr.CodeBadSignature, "aske: session-acknowledgement signature mismatch", nil)
	}
	m.AuthenticatedMembers[sourceIdx] = true

	if m.AuthenticatedMembers[pos] {
		return nil, nil
	}
	sig, err := m.signAck(pos)
	if err != nil {
		return nil, err
	}
	m.AuthenticatedMembers[pos] = true

	return &Message{
		Source:           m.ID,
		Dest:             "",
		Flow:             FlowDown,
		Members:          m.Members,
		Nonces:           m.Nonces,
		EphemeralPubKeys: m.EphemeralPubKeys,
		SessionSignature: sig,
	}, nil
}

// IsSessionAcknowledged reports whether every member's signature has been
// verified by self.
func (m *Member) IsSessionAcknowledged() bool {
	if len(m.AuthenticatedMembers) == 0 {
		return false
	}
	for _, ok := range m.AuthenticatedMembers {
		if !ok {
			return false
		}
	}
	return true
}

func (m *Member) finalize(members []string, nonces, pubs [][]byte) {
	m.Members = members
	m.Nonces = nonces
	m.EphemeralPubKeys = pubs
	m.AuthenticatedMembers = make([]bool, len(members))
	m.recomputeSessionID()
}

// recomputeSessionID recomputes sid = SHA-256 over (id, nonce) pairs sorted
// by participant ID (spec.md §4.3), stable under permutation of members.
func (m *Member) recomputeSessionID() {
	type pair struct {
		id    string
		nonce []byte
	}
	pairs := make([]pair, len(m.Members))
	for i, id := range m.Members {
		pairs[i] = pair{id: id, nonce: m.Nonces[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	h := sha256.New()
	for _, p := range pairs {
		h.Write([]byte(p.id))
		h.Write(p.nonce)
	}
	m.SessionID = h.Sum(nil)
}

// ackPayload builds "acksig" || id || ephemeral_pub || nonce || sid, the
// byte string a member's static key signs to acknowledge a session.
func ackPayload(id string, ephemeralPub, nonce, sid []byte) []byte {
	var out []byte
	out = append(out, ackDomainTag...)
	out = append(out, []byte(id)...)
	out = append(out, ephemeralPub...)
	out = append(out, nonce...)
	out = append(out, sid...)
	return out
}

func (m *Member) signAck(pos int) ([]byte, error) {
	if m.StaticSigner == nil {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "aske: no static signing key configured")
	}
	payload := ackPayload(m.ID, m.EphemeralPubKeys[pos], m.Nonces[pos], m.SessionID)
	return m.StaticSigner.Sign(payload), nil
}

func moveSelfFirst(self string, members []string) []string {
	out := make([]string, 0, len(members))
	out = append(out, self)
	for _, id := range members {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}

func indexOf(id string, members []string) int {
	for i, m := range members {
		if m == id {
			return i
		}
	}
	return -1
}

func checkNoDuplicates(members []string) error {
	seen := make(map[string]bool, len(members))
	for _, id := range members {
		if seen[id] {
			return protoerr.New(protoerr.CodeProtocolViolation, "aske: duplicate member id")
		}
		seen[id] = true
	}
	return nil
}

func validateChain(selfID string, members []string, nonces, pubs [][]byte) error {
	if err := checkNoDuplicates(members); err != nil {
		return err
	}
	if indexOf(selfID, members) < 0 {
		return protoerr.New(protoerr.CodeProtocolViolation, "aske: self not in members")
	}
	if len(nonces) != len(pubs) {
		return protoerr.New(protoerr.CodeProtocolViolation, "aske: nonce/pubkey count mismatch")
	}
	if len(nonces) > len(members) {
		return protoerr.New(protoerr.CodeProtocolViolation, "aske: more nonces than members")
	}
	return nil
}
