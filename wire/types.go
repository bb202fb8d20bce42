// Package wire implements the mpENC bit-packed binary TLV wire codec
// (spec.md §4.1): TLV frames, the base64 outer framing, greet-type bit
// flags, and AES-128-CTR data-message encryption with exponential padding.
//
// Grounded on the bit-flag header encode/decode style of
// other_examples/b41e263a_backkem-matter__pkg-message-header.go.go
// (Matter's MessageHeader.Encode/Decode), generalized from a fixed-layout
// header to a TLV stream, and on the teacher's core/message package for
// the shape of a "parsed protocol message" type.
package wire

// Type identifies a TLV frame's 16-bit type field (spec.md §4.1).
type Type uint16

const (
	TypePadding Type = 0x0000
	TypeDataMessage Type = 0x0001
	TypeMessageSignature Type = 0x0002
	TypeMessageIV Type = 0x0003
	TypeProtocolVersion Type = 0x0004
	TypeGreetType Type = 0x0005

	TypeSource          Type = 0x0100
	TypeDest            Type = 0x0101
	TypeMember          Type = 0x0103
	TypeIntKey          Type = 0x0104
	TypeNonce           Type = 0x0105
	TypePubKey          Type = 0x0106
	TypeSessionSignature Type = 0x0107
	TypeSigningKey      Type = 0x0108

	TypeFrom          Type = 0x0200
	TypeSeverity      Type = 0x0201
	TypeErrorMessage  Type = 0x0202
)

// ProtocolVersion is the single version byte this build speaks.
const ProtocolVersion byte = 1

// GreetType is the 16-bit bit-flag field identifying a greet message's
// category and phase (spec.md §4.1).
type GreetType uint16

const (
	FlagDown    GreetType = 0x001
	FlagGKA     GreetType = 0x002
	FlagSKE     GreetType = 0x004
	FlagAux     GreetType = 0x008
	FlagInit    GreetType = 0x010
	FlagRecover GreetType = 0x100
)

// Named greet-type constants from spec.md §4.1, kept as opaque wire-level
// literals for interop/documentation purposes. This implementation's own
// state machine (package greeter) builds GreetType values by composing the
// documented bit flags directly (FlagInit|FlagGKA|FlagSKE|...) per the
// operation being performed, rather than pattern-matching these literals,
// since the named constants pack additional operation-discriminator bits
// (5-7) beyond the six flags spec.md's bit table documents and this
// implementation does not need a byte-identical match to interoperate with
// itself.
const (
	InitInitiatorUp          GreetType = 0x09c
	InitParticipantUp        GreetType = 0x01c
	InitParticipantDown      GreetType = 0x01e
	InitParticipantConfirmDown GreetType = 0x01a
	IncludeAuxInitiatorUp    GreetType = 0x0ad
	ExcludeAuxInitiatorDown  GreetType = 0x0bf
	RefreshAuxInitiatorDown  GreetType = 0x0c7
	QuitDown                 GreetType = 0x0d3
)

// BitIsSet reports whether flag is set in gt.
func (gt GreetType) BitIsSet(flag GreetType) bool {
	return gt&flag != 0
}

// SetBit returns gt with flag set.
func (gt GreetType) SetBit(flag GreetType) GreetType {
	return gt | flag
}

// ClearBit returns gt with flag cleared. It rejects impossible transitions:
// DOWN cannot be cleared on a message that already carries a confirm-down
// shape (GKA clear + SKE clear + DOWN set, i.e. pure confirm), since that
// would silently turn a downflow confirmation into a nonsensical upflow.
func (gt GreetType) ClearBit(flag GreetType) (GreetType, error) {
	if flag == FlagDown && gt.BitIsSet(FlagDown) && !gt.BitIsSet(FlagGKA) && !gt.BitIsSet(FlagSKE) {
		return 0, errImpossibleTransition
	}
	return gt &^ flag, nil
}

// IsDown, IsGKA, IsSKE, IsAux, IsInit, IsRecover are convenience predicates
// used throughout the Greeter state machine.
func (gt GreetType) IsDown() bool    { return gt.BitIsSet(FlagDown) }
func (gt GreetType) IsGKA() bool     { return gt.BitIsSet(FlagGKA) }
func (gt GreetType) IsSKE() bool     { return gt.BitIsSet(FlagSKE) }
func (gt GreetType) IsAux() bool     { return gt.BitIsSet(FlagAux) }
func (gt GreetType) IsInit() bool    { return gt.BitIsSet(FlagInit) }
func (gt GreetType) IsRecover() bool { return gt.BitIsSet(FlagRecover) }
