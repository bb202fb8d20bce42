// Package cliques implements the CLIQUES-style group Diffie-Hellman key
// agreement described in spec.md §4.2: initial key agreement (IKA) and
// auxiliary key agreement (AKA join/exclude/refresh/quit) over Curve25519.
//
// Grounded on the teacher's crypto/keys/x25519.go ECDH key-pair/shared-secret
// pattern, generalized here from a two-party exchange to an n-party chain of
// scalar multiplications, and on core/session/session.go's use of HKDF to
// turn a raw shared value into a usable key.
package cliques

import (
	"github.com/sage-x-project/mpenc/crypto"
	"github.com/sage-x-project/mpenc/protoerr"
)

// Agreement identifies which CLIQUES sub-protocol a Message belongs to.
type Agreement string

const (
	AgreementIKA Agreement = "ika"
	AgreementAKA Agreement = "aka"
)

// Flow identifies the direction a Message travels through the member chain.
type Flow string

const (
	FlowUp   Flow = "up"
	FlowDown Flow = "down"
)

// Message is one CLIQUES protocol message: the group-DH half of a merged
// greet message (spec.md §4.2).
type Message struct {
	Source    string
	Dest      string // "" denotes broadcast
	Agreement Agreement
	Flow      Flow
	Members   []string
	IntKeys   [][]byte // parallel to Members; a zero-length entry denotes "null"
}

// Member holds one participant's view of group DH state (spec.md §3).
type Member struct {
	ID          string
	Members     []string
	PrivKeyList []crypto.Scalar
	IntKeys     [][]byte
	GroupKey    []byte

	// groupValue is the raw pre-HKDF shared point from the last completed
	// DownFlow. AKA operations do not read it: they restart the chain
	// through startChain.
	groupValue []byte
}

// NewMember creates an empty CLIQUES member for participant id.
func NewMember(id string) *Member {
	return &Member{ID: id}
}

// Ika begins an initial key agreement: self plus others, relayed in that
// order (spec.md §4.2).
func (m *Member) Ika(others []string) (*Message, error) {
	all := append([]string{m.ID}, others...)
	return m.startChain(AgreementIKA, all)
}

// AkaJoin adds newMembers to the group by running a fresh key-agreement
// chain over the existing membership plus the new arrivals.
//
// This re-derives the whole group secret from scratch rather than
// incrementally rescaling only the sponsor's own contribution (the
// classical CLIQUES AKA.JOIN optimization). It is less efficient but
// easier to verify by hand and satisfies the same invariant: every
// participant in the new membership ends up sharing one new group_key.
func (m *Member) AkaJoin(newMembers []string) (*Message, error) {
	if len(newMembers) == 0 {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "cliques: aka_join requires at least one new member")
	}
	all := append(moveSelfFirst(m.ID, m.Members), newMembers...)
	return m.startChain(AgreementAKA, all)
}

// AkaExclude removes the named members and re-keys over the remainder. It
// is a ProtocolViolation for self to appear in excluded.
func (m *Member) AkaExclude(excluded []string) (*Message, error) {
	for _, id := range excluded {
		if id == m.ID {
			return nil, protoerr.New(protoerr.CodeProtocolViolation, "cliques: cannot exclude self")
		}
	}
	remove := make(map[string]bool, len(excluded))
	for _, id := range excluded {
		remove[id] = true
	}
	var remaining []string
	for _, id := range m.Members {
		if !remove[id] {
			remaining = append(remaining, id)
		}
	}
	return m.startChain(AgreementAKA, moveSelfFirst(m.ID, remaining))
}

// AkaRefresh re-keys the current membership with fresh scalars, producing a
// new group_key without changing membership.
func (m *Member) AkaRefresh() (*Message, error) {
	return m.startChain(AgreementAKA, moveSelfFirst(m.ID, m.Members))
}

// AkaQuit removes self from the group, zeroizing ephemeral private state.
func (m *Member) AkaQuit() {
	for i := range m.PrivKeyList {
		m.PrivKeyList[i].Zeroize()
	}
	m.PrivKeyList = nil
	m.Members = nil
	m.IntKeys = nil
	m.GroupKey = nil
	m.groupValue = nil
}

// moveSelfFirst reorders members so self leads, preserving the relative
// order of everyone else. startChain's intermediate-key bookkeeping assumes
// the chain's originator occupies position 0, so every AKA operation that
// builds its own member list (as opposed to IKA, whose caller is already
// first by construction) must go through this first.
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

// startChain pushes a fresh scalar and builds the initial up-message for a
// key-agreement chain over allMembers, with self first in relay order.
func (m *Member) startChain(agreement Agreement, allMembers []string) (*Message, error) {
	if err := checkNoDuplicates(allMembers); err != nil {
		return nil, err
	}
	found := false
	for _, id := range allMembers {
		if id == m.ID {
			found = true
			break
		}
	}
	if !found {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "cliques: self not in members")
	}

	scalar, err := crypto.GenerateScalar()
	if err != nil {
		return nil, err
	}
	m.PrivKeyList = append(m.PrivKeyList, scalar)

	// last is true only when self is the sole member of the new chain (e.g.
	// an exclude that removes everyone else): self is simultaneously first
	// and last, so the chain completes in this one message instead of
	// relaying an upflow, mirroring UpFlow's own last == pos ==
	// len(members)-1 check.
	last := len(allMembers) <= 1
	if last {
		return &Message{
			Source:    m.ID,
			Dest:      "",
			Agreement: agreement,
			Flow:      FlowDown,
			Members:   allMembers,
			IntKeys:   [][]byte{{}},
		}, nil
	}

	cardinal, err := crypto.ScalarBaseMult(scalar)
	if err != nil {
		return nil, err
	}

	return &Message{
		Source:    m.ID,
		Dest:      allMembers[1],
		Agreement: agreement,
		Flow:      FlowUp,
		Members:   allMembers,
		IntKeys:   [][]byte{{}, cardinal.Bytes()},
	}, nil
}

// UpFlow processes an inbound up-message, pushing self's own fresh scalar
// into the intermediate-key chain, per spec.md §4.2's upflow algorithm:
// existing entries up to (but excluding) self's position are multiplied by
// self's scalar; self's own entry becomes the incoming cardinal unmodified;
// if self is not last, a new cardinal (incoming cardinal times self's
// scalar) is appended and the message forwarded; if self is last, the
// completed chain is broadcast down.
func (m *Member) UpFlow(msg *Message) (*Message, error) {
	if err := validateUpflow(m.ID, msg); err != nil {
		return nil, err
	}
	pos := indexOf(m.ID, msg.Members)
	if len(msg.IntKeys) != pos+1 {
		return nil, protoerr.New(protoerr.CodeProtocolViolation, "cliques: intermediate key count does not match position")
	}

	scalar, err := crypto.GenerateScalar()
	if err != nil {
		return nil, err
	}
	m.PrivKeyList = append(m.PrivKeyList, scalar)

	newIntKeys := make([][]byte, 0, pos+2)
	for j := 0; j < pos; j++ {
		v, err := scalarMultNullable(scalar, msg.IntKeys[j])
		if err != nil {
			return nil, err
		}
		newIntKeys = append(newIntKeys, v)
	}
	newIntKeys = append(newIntKeys, msg.IntKeys[pos])

	last := pos == len(msg.Members)-1
	if last {
		m.Members = msg.Members
		m.IntKeys = newIntKeys
		return &Message{
			Source:    m.ID,
			Dest:      "",
			Agreement: msg.Agreement,
			Flow:      FlowDown,
			Members:   msg.Members,
			IntKeys:   newIntKeys,
		}, nil
	}

	cardinal, err := scalarMultNullable(scalar, msg.IntKeys[pos])
	if err != nil {
		return nil, err
	}
	newIntKeys = append(newIntKeys, cardinal)

	return &Message{
		Source:    m.ID,
		Dest:      msg.Members[pos+1],
		Agreement: msg.Agreement,
		Flow:      FlowUp,
		Members:   msg.Members,
		IntKeys:   newIntKeys,
	}, nil
}

// DownFlow processes the broadcast completing a key-agreement chain: self
// finds its own intermediate key and multiplies by its most recently pushed
// scalar to obtain the raw shared value, then derives group_key via HKDF.
func (m *Member) DownFlow(msg *Message) error {
	if err := validateDownflow(m.ID, msg); err != nil {
		return err
	}
	pos := indexOf(m.ID, msg.Members)
	if len(m.PrivKeyList) == 0 {
		return protoerr.New(protoerr.CodeProtocolViolation, "cliques: no private scalar to complete downflow")
	}
	scalar := m.PrivKeyList[len(m.PrivKeyList)-1]

	shared, err := scalarMultNullable(scalar, msg.IntKeys[pos])
	if err != nil {
		return err
	}

	groupKey, err := crypto.DeriveGroupKey(shared)
	if err != nil {
		return err
	}

	m.Members = msg.Members
	m.IntKeys = msg.IntKeys
	m.groupValue = shared
	m.GroupKey = groupKey
	return nil
}

func scalarMultNullable(scalar crypto.Scalar, ptBytes []byte) ([]byte, error) {
	var pt crypto.Point
	if len(ptBytes) == 0 {
		pt = crypto.BasePoint
	} else {
		p, err := crypto.PointFromBytes(ptBytes)
		if err != nil {
			return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "cliques: bad intermediate key", err)
		}
		pt = p
	}
	res, err := crypto.ScalarMult(scalar, pt)
	if err != nil {
		return nil, err
	}
	return res.Bytes(), nil
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
			return protoerr.New(protoerr.CodeProtocolViolation, "cliques: duplicate member id")
		}
		seen[id] = true
	}
	return nil
}

func validateUpflow(selfID string, msg *Message) error {
	if err := checkNoDuplicates(msg.Members); err != nil {
		return err
	}
	if indexOf(selfID, msg.Members) < 0 {
		return protoerr.New(protoerr.CodeProtocolViolation, "cliques: self not in members")
	}
	if len(msg.IntKeys) > len(msg.Members) {
		return protoerr.New(protoerr.CodeProtocolViolation, "cliques: more intermediate keys than members")
	}
	return nil
}

func validateDownflow(selfID string, msg *Message) error {
	if err := checkNoDuplicates(msg.Members); err != nil {
		return err
	}
	if indexOf(selfID, msg.Members) < 0 {
		return protoerr.New(protoerr.CodeProtocolViolation, "cliques: self not in members")
	}
	if len(msg.IntKeys) != len(msg.Members) {
		return protoerr.New(protoerr.CodeProtocolViolation, "cliques: intermediate key count does not match membership")
	}
	return nil
}
