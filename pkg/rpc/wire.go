package rpc

import (
	"encoding/binary"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/trie"
)

func putBytes(buf []byte, b []byte) []byte {
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(b)))
	buf = append(buf, n[:]...)
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

func putString(buf []byte, s string) []byte { return putBytes(buf, []byte(s)) }

func takeString(buf []byte) (string, []byte, error) {
	b, rest, err := takeBytes(buf)
	return string(b), rest, err
}

// SubmitMessageRequest/Response wrap submitMessage (spec §6).
type SubmitMessageRequest struct{ Message *message.Message }

func (r *SubmitMessageRequest) MarshalWire() []byte { return r.Message.Encode() }
func (r *SubmitMessageRequest) UnmarshalWire(b []byte) error {
	m, err := message.Decode(b)
	if err != nil {
		return err
	}
	r.Message = m
	return nil
}

type SubmitMessageResponse struct{ Err string }

func (r *SubmitMessageResponse) MarshalWire() []byte { return putString(nil, r.Err) }
func (r *SubmitMessageResponse) UnmarshalWire(b []byte) error {
	s, _, err := takeString(b)
	r.Err = s
	return err
}

// SubmitIdRegistryEventRequest/Response wrap submitIdRegistryEvent.
type SubmitIdRegistryEventRequest struct{ Event *message.IdRegistryEvent }

func (r *SubmitIdRegistryEventRequest) MarshalWire() []byte { return r.Event.Encode() }
func (r *SubmitIdRegistryEventRequest) UnmarshalWire(b []byte) error {
	e, err := message.DecodeIdRegistryEvent(b)
	if err != nil {
		return err
	}
	r.Event = e
	return nil
}

type SubmitIdRegistryEventResponse struct{ Err string }

func (r *SubmitIdRegistryEventResponse) MarshalWire() []byte { return putString(nil, r.Err) }
func (r *SubmitIdRegistryEventResponse) UnmarshalWire(b []byte) error {
	s, _, err := takeString(b)
	r.Err = s
	return err
}

// GetSnapshotRequest/Response wrap the sync helper getSnapshot (spec §6
// sync helpers, used by the sync engine's Peer interface).
type GetSnapshotRequest struct{ Prefix string }

func (r *GetSnapshotRequest) MarshalWire() []byte { return putString(nil, r.Prefix) }
func (r *GetSnapshotRequest) UnmarshalWire(b []byte) error {
	s, _, err := takeString(b)
	r.Prefix = s
	return err
}

type GetSnapshotResponse struct{ Snapshot trie.Snapshot }

func (r *GetSnapshotResponse) MarshalWire() []byte {
	buf := putString(nil, r.Snapshot.Prefix)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Snapshot.ExcludedHashes)))
	buf = append(buf, n[:]...)
	for _, h := range r.Snapshot.ExcludedHashes {
		buf = append(buf, h[:]...)
	}
	binary.BigEndian.PutUint32(n[:], uint32(r.Snapshot.NumMessages))
	buf = append(buf, n[:]...)
	return buf
}

func (r *GetSnapshotResponse) UnmarshalWire(b []byte) error {
	prefix, rest, err := takeString(b)
	if err != nil {
		return err
	}
	if len(rest) < 4 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated excluded-hash count")
	}
	count := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	hashes := make([][trie.HashLen]byte, count)
	for i := range hashes {
		if len(rest) < trie.HashLen {
			return hubcore.New(hubcore.CodeParseFailure, "truncated excluded hash")
		}
		copy(hashes[i][:], rest[:trie.HashLen])
		rest = rest[trie.HashLen:]
	}
	if len(rest) < 4 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated num messages")
	}
	r.Snapshot = trie.Snapshot{Prefix: prefix, ExcludedHashes: hashes, NumMessages: int(binary.BigEndian.Uint32(rest[:4]))}
	return nil
}

// GetTrieNodesByPrefixRequest/Response wrap getTrieNodesByPrefix.
type GetTrieNodesByPrefixRequest struct{ Prefix string }

func (r *GetTrieNodesByPrefixRequest) MarshalWire() []byte { return putString(nil, r.Prefix) }
func (r *GetTrieNodesByPrefixRequest) UnmarshalWire(b []byte) error {
	s, _, err := takeString(b)
	r.Prefix = s
	return err
}

type GetTrieNodesByPrefixResponse struct {
	Found bool
	Node  trie.NodeMetadata
}

func (r *GetTrieNodesByPrefixResponse) MarshalWire() []byte {
	var buf []byte
	if !r.Found {
		return append(buf, 0)
	}
	buf = append(buf, 1)
	buf = putString(buf, r.Node.Prefix)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(r.Node.NumMessages))
	buf = append(buf, n[:]...)
	buf = append(buf, r.Node.Hash[:]...)
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Node.Children)))
	buf = append(buf, n[:]...)
	for digit, child := range r.Node.Children {
		buf = append(buf, digit)
		buf = append(buf, child.Hash[:]...)
		binary.BigEndian.PutUint32(n[:], uint32(child.NumMessages))
		buf = append(buf, n[:]...)
	}
	return buf
}

func (r *GetTrieNodesByPrefixResponse) UnmarshalWire(b []byte) error {
	if len(b) < 1 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated found flag")
	}
	r.Found = b[0] == 1
	b = b[1:]
	if !r.Found {
		return nil
	}
	prefix, rest, err := takeString(b)
	if err != nil {
		return err
	}
	if len(rest) < 4+trie.HashLen+4 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated node metadata")
	}
	numMessages := int(binary.BigEndian.Uint32(rest[:4]))
	rest = rest[4:]
	var hash [trie.HashLen]byte
	copy(hash[:], rest[:trie.HashLen])
	rest = rest[trie.HashLen:]
	childCount := binary.BigEndian.Uint32(rest[:4])
	rest = rest[4:]
	children := map[byte]trie.ChildSummary{}
	for i := uint32(0); i < childCount; i++ {
		if len(rest) < 1+trie.HashLen+4 {
			return hubcore.New(hubcore.CodeParseFailure, "truncated child summary")
		}
		digit := rest[0]
		rest = rest[1:]
		var childHash [trie.HashLen]byte
		copy(childHash[:], rest[:trie.HashLen])
		rest = rest[trie.HashLen:]
		num := int(binary.BigEndian.Uint32(rest[:4]))
		rest = rest[4:]
		children[digit] = trie.ChildSummary{Hash: childHash, NumMessages: num}
	}
	r.Node = trie.NodeMetadata{Prefix: prefix, NumMessages: numMessages, Hash: hash, Children: children}
	return nil
}

// GetAllSyncIdsByPrefixRequest/Response wrap getAllSyncIdsByPrefix.
type GetAllSyncIdsByPrefixRequest struct{ Prefix string }

func (r *GetAllSyncIdsByPrefixRequest) MarshalWire() []byte { return putString(nil, r.Prefix) }
func (r *GetAllSyncIdsByPrefixRequest) UnmarshalWire(b []byte) error {
	s, _, err := takeString(b)
	r.Prefix = s
	return err
}

type GetAllSyncIdsByPrefixResponse struct{ Ids []trie.SyncID }

func (r *GetAllSyncIdsByPrefixResponse) MarshalWire() []byte {
	var buf []byte
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Ids)))
	buf = append(buf, n[:]...)
	for _, id := range r.Ids {
		buf = putString(buf, string(id))
	}
	return buf
}

func (r *GetAllSyncIdsByPrefixResponse) UnmarshalWire(b []byte) error {
	if len(b) < 4 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated sync-id count")
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	for i := uint32(0); i < count; i++ {
		var s string
		var err error
		if s, b, err = takeString(b); err != nil {
			return err
		}
		r.Ids = append(r.Ids, trie.SyncID(s))
	}
	return nil
}

// GetAllMessagesBySyncIdsRequest/Response wrap getAllMessagesBySyncIds.
type GetAllMessagesBySyncIdsRequest struct{ Ids []trie.SyncID }

func (r *GetAllMessagesBySyncIdsRequest) MarshalWire() []byte {
	var buf []byte
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Ids)))
	buf = append(buf, n[:]...)
	for _, id := range r.Ids {
		buf = putString(buf, string(id))
	}
	return buf
}

func (r *GetAllMessagesBySyncIdsRequest) UnmarshalWire(b []byte) error {
	if len(b) < 4 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated sync-id count")
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	for i := uint32(0); i < count; i++ {
		var s string
		var err error
		if s, b, err = takeString(b); err != nil {
			return err
		}
		r.Ids = append(r.Ids, trie.SyncID(s))
	}
	return nil
}

type GetAllMessagesBySyncIdsResponse struct{ Messages []*message.Message }

func (r *GetAllMessagesBySyncIdsResponse) MarshalWire() []byte {
	var buf []byte
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(r.Messages)))
	buf = append(buf, n[:]...)
	for _, m := range r.Messages {
		buf = putBytes(buf, m.Encode())
	}
	return buf
}

func (r *GetAllMessagesBySyncIdsResponse) UnmarshalWire(b []byte) error {
	if len(b) < 4 {
		return hubcore.New(hubcore.CodeParseFailure, "truncated message count")
	}
	count := binary.BigEndian.Uint32(b[:4])
	b = b[4:]
	for i := uint32(0); i < count; i++ {
		var raw []byte
		var err error
		if raw, b, err = takeBytes(b); err != nil {
			return err
		}
		m, err := message.Decode(raw)
		if err != nil {
			return err
		}
		r.Messages = append(r.Messages, m)
	}
	return nil
}
