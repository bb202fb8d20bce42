// Package greeter implements the state machine that merges a cliques.Member
// and an aske.Member into one wire flow (spec.md §4.4): start/include/
// exclude/refresh/quit, and the greet-type-driven dispatch of inbound wire
// packets.
//
// Grounded on the teacher's core/handshake package for the shape of a named
// multi-phase state machine driven by inbound/outbound typed messages, and
// on its Session type for bundling a sub-protocol's accumulated state.
package greeter

import (
	"crypto/ed25519"

	"github.com/sage-x-project/mpenc/aske"
	"github.com/sage-x-project/mpenc/cliques"
	sagecrypto "github.com/sage-x-project/mpenc/crypto"
	"github.com/sage-x-project/mpenc/internal/logger"
	"github.com/sage-x-project/mpenc/protoerr"
	"github.com/sage-x-project/mpenc/wire"
)

// State is one of the Greeter's explicit states (spec.md §3/§4.4).
type State int

const (
	StateNull State = iota
	StateInitUpflow
	StateInitDownflow
	StateAuxUpflow
	StateAuxDownflow
	StateReady
	StateQuit
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateInitUpflow:
		return "INIT_UPFLOW"
	case StateInitDownflow:
		return "INIT_DOWNFLOW"
	case StateAuxUpflow:
		return "AUX_UPFLOW"
	case StateAuxDownflow:
		return "AUX_DOWNFLOW"
	case StateReady:
		return "READY"
	case StateQuit:
		return "QUIT"
	default:
		return "UNKNOWN"
	}
}

// EventKind classifies a UI-intent event emitted into the local queue
// (spec.md §4.4's "side effects").
type EventKind int

const (
	EventMessage EventKind = iota
	EventInfo
	EventWarn
	EventError
)

// Event is one UI-intent notification queued for the outer session layer.
type Event struct {
	Kind   EventKind
	Reason string
}

// Greeter drives the merged CLIQUES+ASKE state machine for one local
// participant (spec.md §3, §4.4).
type Greeter struct {
	ID string

	Cliques *cliques.Member
	Aske    *aske.Member

	State      State
	Recovering bool

	Events []Event
}

// New creates a Greeter in the NULL state for participant id, using signer
// as its long-term static Ed25519 key and dir to resolve other members'
// static public keys.
func New(id string, signer *sagecrypto.SigningKeyPair, dir map[string]ed25519.PublicKey) *Greeter {
	return &Greeter{
		ID:      id,
		Cliques: cliques.NewMember(id),
		Aske:    aske.NewMember(id, signer, dir),
		State:   StateNull,
	}
}

func (g *Greeter) emit(kind EventKind, reason string) {
	g.Events = append(g.Events, Event{Kind: kind, Reason: reason})
}

func (g *Greeter) transition(next State) {
	if next != g.State {
		logger.Debug("greeter state transition",
			logger.String("member", g.ID),
			logger.String("from", g.State.String()),
			logger.String("to", next.String()))
	}
	g.State = next
}

// Start begins an initial key agreement with others, transitioning
// NULL -> INIT_UPFLOW.
func (g *Greeter) Start(others []string) ([]byte, error) {
	if g.State != StateNull {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: start requires NULL state")
	}
	cMsg, err := g.Cliques.Ika(others)
	if err != nil {
		return nil, err
	}
	aMsg, err := g.Aske.Commit(others)
	if err != nil {
		return nil, err
	}
	if err := assertMatch(cMsg.Source, cMsg.Dest, aMsg.Source, aMsg.Dest); err != nil {
		return nil, err
	}

	gt := wire.FlagInit | wire.FlagGKA | wire.FlagSKE
	return g.finishLocalOp(gt, false, cMsg, aMsg)
}

// Include adds new members, transitioning READY -> AUX_UPFLOW.
func (g *Greeter) Include(newMembers []string) ([]byte, error) {
	if g.State != StateReady {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: include requires READY state")
	}
	cMsg, err := g.Cliques.AkaJoin(newMembers)
	if err != nil {
		return nil, err
	}
	aMsg, err := g.Aske.Join(newMembers)
	if err != nil {
		return nil, err
	}
	if err := assertMatch(cMsg.Source, cMsg.Dest, aMsg.Source, aMsg.Dest); err != nil {
		return nil, err
	}
	gt := wire.FlagAux | wire.FlagGKA | wire.FlagSKE
	return g.finishLocalOp(gt, true, cMsg, aMsg)
}

// Exclude removes members, transitioning READY -> AUX_UPFLOW, or directly
// to AUX_DOWNFLOW/READY when excluding everyone else leaves self as the
// chain's only member (spec.md §4.4's READY | local exclude/refresh |
// AUX_UPFLOW or AUX_DOWNFLOW transition).
func (g *Greeter) Exclude(excluded []string) ([]byte, error) {
	if g.State != StateReady {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: exclude requires READY state")
	}
	cMsg, err := g.Cliques.AkaExclude(excluded)
	if err != nil {
		return nil, err
	}
	aMsg, err := g.Aske.Exclude(excluded)
	if err != nil {
		return nil, err
	}
	if err := assertMatch(cMsg.Source, cMsg.Dest, aMsg.Source, aMsg.Dest); err != nil {
		return nil, err
	}
	gt := wire.FlagAux | wire.FlagGKA | wire.FlagSKE
	return g.finishLocalOp(gt, true, cMsg, aMsg)
}

// Refresh re-keys the current membership, transitioning READY -> AUX_UPFLOW,
// or directly to READY when self is the group's only member.
func (g *Greeter) Refresh() ([]byte, error) {
	if g.State != StateReady {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: refresh requires READY state")
	}
	cMsg, err := g.Cliques.AkaRefresh()
	if err != nil {
		return nil, err
	}
	aMsg, err := g.Aske.FullRefresh()
	if err != nil {
		return nil, err
	}
	if err := assertMatch(cMsg.Source, cMsg.Dest, aMsg.Source, aMsg.Dest); err != nil {
		return nil, err
	}
	gt := wire.FlagAux | wire.FlagGKA | wire.FlagSKE
	return g.finishLocalOp(gt, true, cMsg, aMsg)
}

// Recover requests full re-authentication of the current group: every
// other member is marked unauthenticated until its ASKE session-
// acknowledgement signature, carried on the downflow, is re-verified
// (spec.md §4.4's RECOVER bit), the way a member that
// suspects session corruption re-establishes trust. It runs the same AKA
// refresh chain as Refresh, so membership and the group key are both
// rederived as a side effect.
func (g *Greeter) Recover() ([]byte, error) {
	if g.State != StateReady {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: recover requires READY state")
	}
	cMsg, err := g.Cliques.AkaRefresh()
	if err != nil {
		return nil, err
	}
	aMsg, err := g.Aske.FullRefresh()
	if err != nil {
		return nil, err
	}
	if err := assertMatch(cMsg.Source, cMsg.Dest, aMsg.Source, aMsg.Dest); err != nil {
		return nil, err
	}
	g.Aske.AuthenticatedMembers = selfOnly(g.Aske.AuthenticatedMembers, indexOfSelf(g.Aske.Members, g.ID))
	g.Recovering = true
	gt := wire.FlagAux | wire.FlagGKA | wire.FlagSKE | wire.FlagRecover
	return g.finishLocalOp(gt, true, cMsg, aMsg)
}

// Quit leaves the session, transitioning to QUIT and zeroizing ephemeral
// private material. Only ASKE contributes to the outbound message, carrying
// the published ephemeral signing key (spec.md §4.4).
func (g *Greeter) Quit() ([]byte, error) {
	aMsg := g.Aske.Quit()
	g.Cliques.AkaQuit()
	g.transition(StateQuit)
	gt := wire.FlagDown
	return g.encodeOutbound(gt, aMsg.Source, aMsg.Dest, nil, nil, nil, nil, nil, aMsg.SigningKey)
}

// ProcessMessage decodes and dispatches one inbound wire packet, returning
// the (possibly nil) outbound packet to send in response.
func (g *Greeter) ProcessMessage(raw []byte) ([]byte, error) {
	if g.State == StateQuit {
		return nil, nil
	}

	frame, err := wire.DecodeFrame(string(raw))
	if err != nil {
		g.emit(EventWarn, "malformed frame")
		if g.State != StateNull {
			g.transition(StateQuit)
		}
		return nil, err
	}
	if frame.Version != wire.ProtocolVersion {
		g.emit(EventWarn, "unknown protocol version")
		if g.State != StateNull {
			g.transition(StateQuit)
		}
		return nil, protoerr.Wrap(protoerr.CodeUnknownVersion, "greeter: unknown protocol version", nil)
	}

	gm, err := wire.DecodeGreetMessage(frame.Payload)
	if err != nil {
		g.emit(EventWarn, "malformed greet message")
		if g.State != StateNull {
			g.transition(StateQuit)
		}
		return nil, err
	}

	if gm.Dest != "" && gm.Dest != g.ID {
		return nil, nil
	}

	pub, ok := g.Aske.StaticPubKeyDir[gm.Source]
	if !ok {
		g.transition(StateQuit)
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: no static key for "+gm.Source)
	}
	if err := wire.VerifyGreetMessage(gm, pub); err != nil {
		logger.ErrorMsg("greet message signature verification failed",
			logger.String("member", g.ID), logger.String("source", gm.Source), logger.Error(err))
		g.emit(EventError, "bad signature")
		g.transition(StateQuit)
		return nil, err
	}

	if len(gm.SigningKey) > 0 && !gm.GreetType.IsGKA() && !gm.GreetType.IsSKE() {
		return g.processQuit(gm)
	}

	if gm.GreetType.IsRecover() {
		g.Aske.AuthenticatedMembers = selfOnly(g.Aske.AuthenticatedMembers, indexOfSelf(g.Aske.Members, g.ID))
		g.transition(StateInitDownflow)
		g.Recovering = true
	}

	if gm.GreetType.IsDown() {
		return g.processDownflow(gm)
	}
	return g.processUpflow(gm)
}

func (g *Greeter) processUpflow(gm *wire.GreetMessage) ([]byte, error) {
	cIn := &cliques.Message{Source: gm.Source, Dest: gm.Dest, Members: gm.Members, IntKeys: gm.IntKeys}
	aIn := &aske.Message{Source: gm.Source, Dest: gm.Dest, Members: gm.Members, Nonces: gm.Nonces, EphemeralPubKeys: gm.PubKeys}

	cOut, err := g.Cliques.UpFlow(cIn)
	if err != nil {
		g.transition(StateQuit)
		return nil, err
	}
	aOut, err := g.Aske.UpFlow(aIn)
	if err != nil {
		g.transition(StateQuit)
		return nil, err
	}
	if err := assertMatch(cOut.Source, cOut.Dest, aOut.Source, aOut.Dest); err != nil {
		g.transition(StateQuit)
		return nil, err
	}

	gt := wire.GreetType(0)
	if gm.GreetType.IsInit() {
		gt = gt.SetBit(wire.FlagInit)
	}
	if gm.GreetType.IsAux() {
		gt = gt.SetBit(wire.FlagAux)
	}
	if gm.GreetType.IsRecover() {
		gt = gt.SetBit(wire.FlagRecover)
	}
	gt = gt.SetBit(wire.FlagGKA).SetBit(wire.FlagSKE)

	last := cOut.Flow == cliques.FlowDown
	if last {
		// The transport does not echo this broadcast back to self, so the
		// last member derives its own group key from it here.
		if err := g.Cliques.DownFlow(cOut); err != nil {
			g.transition(StateQuit)
			return nil, err
		}
		gt = gt.SetBit(wire.FlagDown)
		if gm.GreetType.IsAux() {
			g.transition(StateAuxDownflow)
		} else {
			g.transition(StateInitDownflow)
		}
	} else {
		if gm.GreetType.IsAux() {
			g.transition(StateAuxUpflow)
		} else {
			g.transition(StateInitUpflow)
		}
	}

	return g.encodeOutbound(gt, cOut.Source, cOut.Dest, cOut.Members, cOut.IntKeys, aOut.Nonces, aOut.EphemeralPubKeys, aOut.SessionSignature, nil)
}

func (g *Greeter) processDownflow(gm *wire.GreetMessage) ([]byte, error) {
	cIn := &cliques.Message{Source: gm.Source, Dest: gm.Dest, Members: gm.Members, IntKeys: gm.IntKeys}
	aIn := &aske.Message{
		Source: gm.Source, Dest: gm.Dest, Members: gm.Members,
		Nonces: gm.Nonces, EphemeralPubKeys: gm.PubKeys, SessionSignature: gm.SessionSignature,
	}

	if len(gm.IntKeys) > 0 {
		if err := g.Cliques.DownFlow(cIn); err != nil {
			g.transition(StateQuit)
			return nil, err
		}
	}
	aOut, err := g.Aske.DownFlow(aIn)
	if err != nil {
		g.transition(StateQuit)
		return nil, err
	}

	if g.Aske.IsSessionAcknowledged() {
		g.transition(StateReady)
	} else if gm.GreetType.IsAux() {
		g.transition(StateAuxDownflow)
	} else {
		g.transition(StateInitDownflow)
	}

	if aOut == nil {
		return nil, nil
	}
	gt := wire.FlagDown | wire.FlagSKE
	return g.encodeOutbound(gt, aOut.Source, aOut.Dest, aOut.Members, nil, aOut.Nonces, aOut.EphemeralPubKeys, aOut.SessionSignature, nil)
}

func (g *Greeter) processQuit(gm *wire.GreetMessage) ([]byte, error) {
	idx := indexOfSelf(g.Aske.Members, gm.Source)
	if idx >= 0 {
		old := g.Aske.OldEphemeralKeys[gm.Source]
		old.Priv = gm.SigningKey
		g.Aske.OldEphemeralKeys[gm.Source] = old
	}
	g.emit(EventInfo, gm.Source+" quit")
	return nil, nil
}

func (g *Greeter) encodeOutbound(gt wire.GreetType, source, dest string, members []string, intKeys, nonces, pubKeys [][]byte, sessionSig, signingKey []byte) ([]byte, error) {
	gm := &wire.GreetMessage{
		Version:          wire.ProtocolVersion,
		GreetType:        gt,
		Source:           source,
		Dest:             dest,
		Members:          members,
		IntKeys:          intKeys,
		Nonces:           nonces,
		PubKeys:          pubKeys,
		SessionSignature: sessionSig,
		SigningKey:       signingKey,
	}
	if g.Aske.StaticSigner == nil {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "greeter: no static signing key configured")
	}
	wire.SignGreetMessage(gm, g.Aske.StaticSigner)
	payload := gm.Encode()
	return []byte(wire.EncodeFrame(wire.CategoryGreet, wire.ProtocolVersion, payload)), nil
}

// finishLocalOp transitions state and encodes the outbound greet frame for
// a locally-initiated operation (start/include/exclude/refresh/recover).
// Ordinarily cMsg starts an upflow relay and aux reports whether the
// transition is to the INIT or AUX branch of the state table. But when
// self is the only member of the new chain (e.g. an exclude that removes
// everyone else), cliques.Member.startChain and aske.Member.startChain
// both already complete in this one message (cMsg.Flow == FlowDown): the
// chain has no one else to relay through, so self finalizes its own group
// key immediately rather than waiting for a downflow broadcast nobody
// else would ever echo back (spec.md §4.4's READY | local exclude/refresh
// | AUX_UPFLOW or AUX_DOWNFLOW transition).
func (g *Greeter) finishLocalOp(gt wire.GreetType, aux bool, cMsg *cliques.Message, aMsg *aske.Message) ([]byte, error) {
	var sessionSig []byte
	if cMsg.Flow == cliques.FlowDown {
		if err := g.Cliques.DownFlow(cMsg); err != nil {
			g.transition(StateQuit)
			return nil, err
		}
		gt = gt.SetBit(wire.FlagDown)
		sessionSig = aMsg.SessionSignature
		if g.Aske.IsSessionAcknowledged() {
			g.transition(StateReady)
		} else if aux {
			g.transition(StateAuxDownflow)
		} else {
			g.transition(StateInitDownflow)
		}
	} else if aux {
		g.transition(StateAuxUpflow)
	} else {
		g.transition(StateInitUpflow)
	}
	return g.encodeOutbound(gt, cMsg.Source, cMsg.Dest, cMsg.Members, cMsg.IntKeys, aMsg.Nonces, aMsg.EphemeralPubKeys, sessionSig, nil)
}

func assertMatch(cSource, cDest, aSource, aDest string) error {
	if cSource != aSource || cDest != aDest {
		return protoerr.New(protoerr.CodeProtocolViolation, "greeter: cliques/aske sub-message source or dest mismatch")
	}
	return nil
}

func indexOfSelf(members []string, id string) int {
	for i, m := range members {
		if m == id {
			return i
		}
	}
	return -1
}

func selfOnly(authenticated []bool, selfIdx int) []bool {
	out := make([]bool, len(authenticated))
	if selfIdx >= 0 && selfIdx < len(out) {
		out[selfIdx] = true
	}
	return out
}
