package engine

import (
	"context"
	"encoding/hex"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/trie"
)

// SyncSource adapts a trie.Observer and the typed stores to the small
// read surface pkg/rpc.SyncSource and pkg/syncengine.Peer need: sync-id
// enumeration under a prefix and message lookup by sync-id. It is the
// concrete wiring cmd/hub uses to construct an rpc.Server.
type SyncSource struct {
	obs    *trie.Observer
	stores Stores
}

// NewSyncSource builds a SyncSource around obs. obs's trie is mutated
// only by its own goroutine; this type only reads it, matching spec §5's
// single-writer rule for the trie.
func NewSyncSource(obs *trie.Observer, stores Stores) *SyncSource {
	return &SyncSource{obs: obs, stores: stores}
}

func (s *SyncSource) GetSnapshot(prefix string) trie.Snapshot {
	return s.obs.Trie().GetSnapshot(prefix)
}

func (s *SyncSource) GetTrieNodeMetadata(prefix string) (trie.NodeMetadata, bool) {
	return s.obs.Trie().GetTrieNodeMetadata(prefix)
}

// AllSyncIdsByPrefix implements spec §6's getAllSyncIdsByPrefix: every
// leaf sync-id reachable under prefix.
func (s *SyncSource) AllSyncIdsByPrefix(prefix string) []trie.SyncID {
	return s.obs.Trie().LeavesUnder(prefix)
}

// MessagesBySyncIds implements spec §6's getAllMessagesBySyncIds. A
// sync-id (timestamp+tsHash) doesn't carry the fid or type needed to
// locate its row directly, so each id is first resolved through the
// observer's side index (populated as messages are merged) before the
// matching store is read by tsHash. An id the observer has never seen
// (already pruned, or from a request that raced a delete) is skipped
// rather than treated as an error.
func (s *SyncSource) MessagesBySyncIds(ids []trie.SyncID) ([]*message.Message, error) {
	ctx := context.Background()
	out := make([]*message.Message, 0, len(ids))
	for _, id := range ids {
		fid, kind, ok := s.obs.Lookup(id)
		if !ok {
			continue
		}
		ts, err := tsHashOf(id)
		if err != nil {
			continue
		}
		getter, ok := s.getterFor(kind)
		if !ok {
			continue
		}
		m, err := getter(ctx, fid, ts)
		if err != nil {
			if hubcore.IsCode(err, hubcore.CodeNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}

type tsHashGetter func(ctx context.Context, fid []byte, ts message.TsHash) (*message.Message, error)

func (s *SyncSource) getterFor(kind message.Type) (tsHashGetter, bool) {
	switch kind {
	case message.TypeSignerAdd, message.TypeSignerRemove:
		return s.stores.Signer.GetByTsHash, true
	case message.TypeCastAdd, message.TypeCastRemove:
		return s.stores.Cast.GetByTsHash, true
	case message.TypeReactionAdd, message.TypeReactionRemove:
		return s.stores.Reaction.GetByTsHash, true
	case message.TypeAmpAdd, message.TypeAmpRemove:
		return s.stores.Amp.GetByTsHash, true
	case message.TypeVerificationAddEthAddress, message.TypeVerificationRemove:
		return s.stores.Verification.GetByTsHash, true
	case message.TypeUserDataAdd:
		return s.stores.UserData.GetByTsHash, true
	default:
		return nil, false
	}
}

// tsHashOf recovers the message.TsHash a SyncID was built from
// (trie.NewSyncID's inverse): the sync-id's hex suffix, after the
// 10-digit decimal timestamp prefix, is exactly TsHash.Bytes() hex-
// encoded.
func tsHashOf(id trie.SyncID) (message.TsHash, error) {
	var ts message.TsHash
	raw, err := hex.DecodeString(string(id[10:]))
	if err != nil || len(raw) != message.TsHashLen {
		return ts, hubcore.Newf(hubcore.CodeParseFailure, "malformed sync-id %q", id)
	}
	copy(ts[:], raw)
	return ts, nil
}
