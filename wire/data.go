package wire

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/binary"

	sagecrypto "github.com/sage-x-project/mpenc/crypto"
	"github.com/sage-x-project/mpenc/protoerr"
)

// DataKeySize is the AES-128 key size used for data-message encryption:
// the low 16 bytes of the 32-byte CLIQUES group key (spec.md §4.1).
const DataKeySize = 16

// IVSize is the size of the random AES-CTR IV carried in the MESSAGE_IV
// TLV.
const IVSize = 16

// lengthPrefixSize is the size of the big-endian true-length prefix placed
// ahead of the plaintext before optional padding, so decoding can recover
// the exact plaintext even though the padded wire plaintext is longer
// (spec.md §4.1: "the padding scheme is padding-length-aware and encodes
// the true length").
const lengthPrefixSize = 4

// DataMessage is the decoded form of a DATA wire packet's TLV stream:
// MESSAGE_SIGNATURE, PROTOCOL_VERSION, MESSAGE_IV, DATA_MESSAGE.
type DataMessage struct {
	Signature []byte
	Version   byte
	IV        []byte
	Cipher    []byte
}

// GroupKeyToDataKey extracts the AES-128 key from a 32-byte group key: its
// low (last) 16 bytes.
func GroupKeyToDataKey(groupKey []byte) []byte {
	if len(groupKey) < DataKeySize {
		return groupKey
	}
	return groupKey[len(groupKey)-DataKeySize:]
}

// EncryptData encrypts plaintext with AES-128-CTR under the low 16 bytes
// of groupKey, using a fresh random IV. If pad > 0 the wire plaintext
// (length prefix + plaintext) is padded with zero bytes up to the next
// multiple of pad before encryption; pad == 0 disables padding entirely.
// Returns the IV and the ciphertext.
func EncryptData(groupKey, plaintext []byte, pad int) (iv, ciphertext []byte, err error) {
	key := GroupKeyToDataKey(groupKey)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: aes key", err)
	}

	iv, err = sagecrypto.RandomBytes(IVSize)
	if err != nil {
		return nil, nil, err
	}

	wirePlain := make([]byte, lengthPrefixSize+len(plaintext))
	binary.BigEndian.PutUint32(wirePlain[:lengthPrefixSize], uint32(len(plaintext)))
	copy(wirePlain[lengthPrefixSize:], plaintext)

	if pad > 0 {
		if rem := len(wirePlain) % pad; rem != 0 {
			wirePlain = append(wirePlain, make([]byte, pad-rem)...)
		}
	}

	ciphertext = make([]byte, len(wirePlain))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(ciphertext, wirePlain)
	return iv, ciphertext, nil
}

// DecryptData reverses EncryptData: decrypts, reads the true-length
// prefix, and returns exactly that many plaintext bytes, discarding any
// padding.
func DecryptData(groupKey, iv, ciphertext []byte) ([]byte, error) {
	if len(iv) != IVSize {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: bad iv size", nil)
	}
	key := GroupKeyToDataKey(groupKey)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: aes key", err)
	}

	wirePlain := make([]byte, len(ciphertext))
	stream := cipher.NewCTR(block, iv)
	stream.XORKeyStream(wirePlain, ciphertext)

	if len(wirePlain) < lengthPrefixSize {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: short plaintext", nil)
	}
	n := binary.BigEndian.Uint32(wirePlain[:lengthPrefixSize])
	if lengthPrefixSize+int(n) > len(wirePlain) {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: length prefix exceeds payload", nil)
	}
	out := make([]byte, n)
	copy(out, wirePlain[lengthPrefixSize:lengthPrefixSize+int(n)])
	return out, nil
}

// EncodeUnsigned serializes the DATA wire packet's TLV stream without its
// signature: PROTOCOL_VERSION, MESSAGE_IV, DATA_MESSAGE.
func (m *DataMessage) EncodeUnsigned() []byte {
	var out []byte
	out = append(out, EncodeTLV(TypeProtocolVersion, []byte{m.Version})...)
	out = append(out, EncodeTLV(TypeMessageIV, m.IV)...)
	out = append(out, EncodeTLV(TypeDataMessage, m.Cipher)...)
	return out
}

// Encode serializes the signature TLV followed by EncodeUnsigned.
func (m *DataMessage) Encode() []byte {
	out := EncodeTLV(TypeMessageSignature, m.Signature)
	return append(out, m.EncodeUnsigned()...)
}

// DecodeDataMessage parses a DATA wire packet.
func DecodeDataMessage(data []byte) (*DataMessage, error) {
	tlvs, err := DecodeAllTLV(data)
	if err != nil {
		return nil, err
	}
	if len(tlvs) != 4 {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: unexpected tlv count", nil)
	}
	if tlvs[0].Type != TypeMessageSignature || tlvs[1].Type != TypeProtocolVersion ||
		tlvs[2].Type != TypeMessageIV || tlvs[3].Type != TypeDataMessage {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: unexpected tlv order", nil)
	}
	if len(tlvs[1].Value) != 1 {
		return nil, protoerr.Wrap(protoerr.CodeMalformedFrame, "data: bad version tlv", nil)
	}
	return &DataMessage{
		Signature: tlvs[0].Value,
		Version:   tlvs[1].Value[0],
		IV:        tlvs[2].Value,
		Cipher:    tlvs[3].Value,
	}, nil
}
