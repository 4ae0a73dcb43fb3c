package message

import (
	"encoding/binary"

	"github.com/meridianhub/hub/pkg/hubcore"
)

// Encode/Decode implement the deterministic, length-prefixed binary
// codec noted in SPEC_FULL §3 "Wire encoding": the core only needs bytes
// that round-trip identically, and no flatbuffer/protobuf compiler is
// available in this environment, so fields are written in a fixed order
// as big-endian length-prefixed blobs. Any other compatible
// serialization a transport chooses to use instead is equally valid per
// spec §6.

func putBytes(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func takeBytes(buf []byte) (val, rest []byte, err error) {
	if len(buf) < 4 {
		return nil, nil, hubcore.New(hubcore.CodeParseFailure, "truncated length prefix")
	}
	n := binary.BigEndian.Uint32(buf[:4])
	buf = buf[4:]
	if uint32(len(buf)) < n {
		return nil, nil, hubcore.New(hubcore.CodeParseFailure, "truncated field")
	}
	return buf[:n], buf[n:], nil
}

// Encode serializes m. Body is encoded as its type-specific fields only,
// with no tag of its own; the message Type byte written earlier in the
// envelope is what Decode uses to know how to decode it back.
func (m *Message) Encode() []byte {
	buf := make([]byte, 0, 128)
	buf = putBytes(buf, m.Fid)
	buf = append(buf, byte(m.Type))
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], m.Timestamp)
	buf = append(buf, ts[:]...)
	buf = putBytes(buf, encodeBody(m.Type, m.Body))
	buf = putBytes(buf, m.Hash)
	buf = append(buf, byte(m.HashScheme))
	buf = putBytes(buf, m.Signature)
	buf = append(buf, byte(m.SignatureScheme))
	buf = putBytes(buf, m.Signer)
	return buf
}

func Decode(buf []byte) (*Message, error) {
	m := &Message{}
	var err error
	if m.Fid, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if len(buf) < 1 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated type")
	}
	m.Type, buf = Type(buf[0]), buf[1:]
	if len(buf) < 4 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated timestamp")
	}
	m.Timestamp, buf = binary.BigEndian.Uint32(buf[:4]), buf[4:]
	var bodyBytes []byte
	if bodyBytes, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if m.Body, err = decodeBody(m.Type, bodyBytes); err != nil {
		return nil, err
	}
	if m.Hash, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if len(buf) < 1 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated hash scheme")
	}
	m.HashScheme, buf = HashScheme(buf[0]), buf[1:]
	if m.Signature, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if len(buf) < 1 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated signature scheme")
	}
	m.SignatureScheme, buf = SignatureScheme(buf[0]), buf[1:]
	if m.Signer, _, err = takeBytes(buf); err != nil {
		return nil, err
	}
	return m, nil
}

func encodeBody(t Type, b Body) []byte {
	var buf []byte
	switch v := b.(type) {
	case *SignerBody:
		buf = putBytes(buf, v.SignerKey)
		buf = putBytes(buf, []byte(v.Name))
	case *CastBody:
		buf = putBytes(buf, []byte(v.Text))
		if v.ParentCast != nil {
			buf = append(buf, 1)
			buf = putBytes(buf, v.ParentCast.Bytes())
		} else {
			buf = append(buf, 0)
		}
		var n [4]byte
		binary.BigEndian.PutUint32(n[:], uint32(len(v.Mentions)))
		buf = append(buf, n[:]...)
		for _, men := range v.Mentions {
			buf = putBytes(buf, men)
		}
		buf = putBytes(buf, v.RemoveHash)
	case *ReactionBody:
		buf = append(buf, byte(v.ReactionType))
		buf = putBytes(buf, v.CastFid)
		buf = putBytes(buf, v.CastHash)
	case *AmpBody:
		buf = putBytes(buf, v.TargetFid)
	case *VerificationBody:
		buf = putBytes(buf, v.Address)
		buf = putBytes(buf, v.EthSignature)
		buf = putBytes(buf, v.BlockHash)
	case *UserDataBody:
		buf = append(buf, byte(v.Type))
		buf = putBytes(buf, []byte(v.Value))
	}
	return buf
}

func decodeBody(t Type, buf []byte) (Body, error) {
	var err error
	switch t {
	case TypeSignerAdd, TypeSignerRemove:
		b := &SignerBody{}
		var name []byte
		if b.SignerKey, buf, err = takeBytes(buf); err != nil {
			return nil, err
		}
		if name, _, err = takeBytes(buf); err != nil {
			return nil, err
		}
		b.Name = string(name)
		return b, nil
	case TypeCastAdd, TypeCastRemove:
		b := &CastBody{}
		var text []byte
		if text, buf, err = takeBytes(buf); err != nil {
			return nil, err
		}
		b.Text = string(text)
		if len(buf) < 1 {
			return nil, hubcore.New(hubcore.CodeParseFailure, "truncated cast parent flag")
		}
		hasParent := buf[0] == 1
		buf = buf[1:]
		if hasParent {
			var p []byte
			if p, buf, err = takeBytes(buf); err != nil {
				return nil, err
			}
			var ts TsHash
			copy(ts[:], p)
			b.ParentCast = &ts
		}
		if len(buf) < 4 {
			return nil, hubcore.New(hubcore.CodeParseFailure, "truncated mention count")
		}
		n := binary.BigEndian.Uint32(buf[:4])
		buf = buf[4:]
		for i := uint32(0); i < n; i++ {
			var men []byte
			if men, buf, err = takeBytes(buf); err != nil {
				return nil, err
			}
			b.Mentions = append(b.Mentions, men)
		}
		if b.RemoveHash, _, err = takeBytes(buf); err != nil {
			return nil, err
		}
		return b, nil
	case TypeReactionAdd, TypeReactionRemove:
		b := &ReactionBody{}
		if len(buf) < 1 {
			return nil, hubcore.New(hubcore.CodeParseFailure, "truncated reaction type")
		}
		b.ReactionType, buf = ReactionType(buf[0]), buf[1:]
		if b.CastFid, buf, err = takeBytes(buf); err != nil {
			return nil, err
		}
		if b.CastHash, _, err = takeBytes(buf); err != nil {
			return nil, err
		}
		return b, nil
	case TypeAmpAdd, TypeAmpRemove:
		b := &AmpBody{}
		if b.TargetFid, _, err = takeBytes(buf); err != nil {
			return nil, err
		}
		return b, nil
	case TypeVerificationAddEthAddress, TypeVerificationRemove:
		b := &VerificationBody{}
		if b.Address, buf, err = takeBytes(buf); err != nil {
			return nil, err
		}
		if b.EthSignature, buf, err = takeBytes(buf); err != nil {
			return nil, err
		}
		if b.BlockHash, _, err = takeBytes(buf); err != nil {
			return nil, err
		}
		return b, nil
	case TypeUserDataAdd:
		b := &UserDataBody{}
		if len(buf) < 1 {
			return nil, hubcore.New(hubcore.CodeParseFailure, "truncated userdata type")
		}
		b.Type, buf = DataType(buf[0]), buf[1:]
		var val []byte
		if val, _, err = takeBytes(buf); err != nil {
			return nil, err
		}
		b.Value = string(val)
		return b, nil
	default:
		return nil, hubcore.Newf(hubcore.CodeInvalidParam, "unknown message type %d", t)
	}
}

// SignableBytes returns the fid‖type‖timestamp‖body prefix that Hash is
// derived from and Signature is computed over (spec §3: "hash = blake3
// of data", where data excludes the signature fields themselves — a
// message can't sign over its own signature).
func (m *Message) SignableBytes() []byte {
	buf := make([]byte, 0, 96)
	buf = putBytes(buf, m.Fid)
	buf = append(buf, byte(m.Type))
	var ts [4]byte
	binary.BigEndian.PutUint32(ts[:], m.Timestamp)
	buf = append(buf, ts[:]...)
	return putBytes(buf, encodeBody(m.Type, m.Body))
}

// Encode/Decode for IdRegistryEvent follow the same scheme.
func (e *IdRegistryEvent) Encode() []byte {
	buf := make([]byte, 0, 96)
	buf = append(buf, byte(e.Type))
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], e.BlockNumber)
	buf = append(buf, n[:]...)
	binary.BigEndian.PutUint64(n[:], e.LogIndex)
	buf = append(buf, n[:]...)
	buf = putBytes(buf, e.BlockHash)
	buf = putBytes(buf, e.TransactionHash)
	buf = putBytes(buf, e.Fid)
	buf = putBytes(buf, e.From)
	buf = putBytes(buf, e.To)
	return buf
}

func DecodeIdRegistryEvent(buf []byte) (*IdRegistryEvent, error) {
	e := &IdRegistryEvent{}
	var err error
	if len(buf) < 1 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated event type")
	}
	e.Type, buf = IdRegistryEventType(buf[0]), buf[1:]
	if len(buf) < 16 {
		return nil, hubcore.New(hubcore.CodeParseFailure, "truncated block/log index")
	}
	e.BlockNumber = binary.BigEndian.Uint64(buf[:8])
	e.LogIndex = binary.BigEndian.Uint64(buf[8:16])
	buf = buf[16:]
	if e.BlockHash, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if e.TransactionHash, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if e.Fid, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if e.From, buf, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if e.To, _, err = takeBytes(buf); err != nil {
		return nil, err
	}
	if len(e.From) == 0 {
		e.From = nil
	}
	return e, nil
}
