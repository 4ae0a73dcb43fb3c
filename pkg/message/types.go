// Package message defines the signed record at the heart of the replica
// (spec §3) and its tsHash identity, plus the IdRegistry event type
// consumed by the identity store.
package message

import (
	"bytes"
	"encoding/binary"
)

// Type enumerates the message types the engine routes on. Reaction is
// included per spec §9 Open Question (a): present in the type system,
// merge-able, but gated by the ReactionsEnabled feature flag the engine
// checks before routing — the source disables it pending an upstream
// fix and this hub does not guess further than "present but gateable".
type Type uint8

const (
	TypeUnknown Type = iota
	TypeSignerAdd
	TypeSignerRemove
	TypeCastAdd
	TypeCastRemove
	TypeReactionAdd
	TypeReactionRemove
	TypeAmpAdd
	TypeAmpRemove
	TypeVerificationAddEthAddress
	TypeVerificationRemove
	TypeUserDataAdd
)

// IsAdd reports whether t is the "Add" half of an Add/Remove pair.
func (t Type) IsAdd() bool {
	switch t {
	case TypeSignerAdd, TypeCastAdd, TypeReactionAdd, TypeAmpAdd, TypeVerificationAddEthAddress, TypeUserDataAdd:
		return true
	default:
		return false
	}
}

// IsRemove reports whether t is the "Remove" half of an Add/Remove pair.
func (t Type) IsRemove() bool {
	switch t {
	case TypeSignerRemove, TypeCastRemove, TypeReactionRemove, TypeAmpRemove, TypeVerificationRemove:
		return true
	default:
		return false
	}
}

// SignatureScheme distinguishes the two pure verification functions the
// engine calls, per spec §3/§4.4.
type SignatureScheme uint8

const (
	SignatureSchemeEd25519 SignatureScheme = iota
	SignatureSchemeEip191
)

// HashScheme names the hash function used to derive Hash from the
// message body. Only Blake3 is implemented; the field exists so the
// wire format can evolve.
type HashScheme uint8

const (
	HashSchemeBlake3 HashScheme = iota
)

// TsHash is timestamp(BE, 4 bytes) ‖ hash, the total-orderable message
// identity described in spec §3/GLOSSARY.
type TsHash [TsHashLen]byte

const (
	HashLen   = 20 // truncated blake3 digest length used for message identity
	TsHashLen = 4 + HashLen
)

func NewTsHash(timestamp uint32, hash []byte) TsHash {
	var out TsHash
	binary.BigEndian.PutUint32(out[:4], timestamp)
	copy(out[4:], hash)
	return out
}

func (h TsHash) Timestamp() uint32 { return binary.BigEndian.Uint32(h[:4]) }
func (h TsHash) Hash() []byte      { return h[4:] }
func (h TsHash) Bytes() []byte     { return h[:] }

// Compare orders two tsHashes: first by timestamp, then bytewise on the
// hash — this is the chronological-with-deterministic-tiebreak order
// spec §3 promises, and is also the ascending order pruneMessages walks.
func (h TsHash) Compare(o TsHash) int {
	return bytes.Compare(h[:], o[:])
}

// Message is the signed record of spec §3. Body carries the type-specific
// payload (CastBody, ReactionBody, …); the engine and stores only need
// the envelope fields plus a type-specific Target() (see the Body
// interface).
type Message struct {
	Fid             []byte
	Type            Type
	Timestamp       uint32
	Body            Body
	Hash            []byte
	HashScheme      HashScheme
	Signature       []byte
	SignatureScheme SignatureScheme
	Signer          []byte
}

// TsHash derives the message's identity. Computing it on demand (rather
// than caching) keeps Message a plain value type safe to copy.
func (m *Message) TsHash() TsHash {
	return NewTsHash(m.Timestamp, m.Hash)
}

// Body is implemented by each type-specific payload and supplies the CRDT
// target key described in spec §3's per-type target table.
type Body interface {
	// Target returns the bytes a typed store keys its Add/Remove sets on
	// for this message (signer key, cast tsHash, (reactionType,castId),
	// target-user-id, eth address, or dataType enum).
	Target() []byte
}

type SignerBody struct {
	SignerKey []byte // Ed25519 public key being added or removed
	Name      string // optional human label, SignerAdd only
}

func (b *SignerBody) Target() []byte { return b.SignerKey }

type CastBody struct {
	Text       string
	ParentCast *TsHash
	Mentions   [][]byte
	RemoveHash []byte // CastRemove only: TsHashLen bytes, the tsHash of the CastAdd being removed
}

// Target is unused directly for casts; store/cast.go derives the target
// (the CastAdd's own tsHash, spec §3) from the envelope for CastAdd and
// from RemoveHash for CastRemove, since the two message types don't share
// a single body field to dispatch on generically.
func (b *CastBody) Target() []byte { return b.RemoveHash }

type ReactionType uint8

const (
	ReactionLike ReactionType = iota
	ReactionRecast
)

type ReactionBody struct {
	ReactionType ReactionType
	CastFid      []byte
	CastHash     []byte
}

func (b *ReactionBody) Target() []byte {
	t := make([]byte, 1+len(b.CastFid)+len(b.CastHash))
	t[0] = byte(b.ReactionType)
	n := 1
	n += copy(t[n:], b.CastFid)
	copy(t[n:], b.CastHash)
	return t
}

type AmpBody struct {
	TargetFid []byte
}

func (b *AmpBody) Target() []byte { return b.TargetFid }

type VerificationBody struct {
	Address          []byte // ethereum address being verified
	EthSignature     []byte
	BlockHash        []byte
}

func (b *VerificationBody) Target() []byte { return b.Address }

type DataType uint8

const (
	DataTypePfp DataType = iota
	DataTypeDisplay
	DataTypeBio
	DataTypeUrl
	DataTypeUsername
)

type UserDataBody struct {
	Type  DataType
	Value string
}

func (b *UserDataBody) Target() []byte { return []byte{byte(b.Type)} }
