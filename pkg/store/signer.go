package store

import (
	"context"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

// DefaultSignerPruneLimit is the per-fid cap on retained signer messages
// (spec §4.2 "default per-type").
const DefaultSignerPruneLimit = 100

// Signer is spec §4.2's canonical CRDT store: per-fid Add/Remove sets
// over Ed25519 signer keys.
type Signer struct{ *Store }

func NewSigner(db kv.RwDB, bus *eventbus.Bus, pruneLimit int) *Signer {
	if pruneLimit <= 0 {
		pruneLimit = DefaultSignerPruneLimit
	}
	return &Signer{New(db, bus, Config{
		Tables: Tables{
			Message:        kv.UserSignerMessage,
			BySigner:       kv.UserSignerMessageBySigner,
			AddByTarget:    kv.UserSignerAddByTarget,
			RemoveByTarget: kv.UserSignerRemoveByTarget,
		},
		Target:     func(m *message.Message) []byte { return m.Body.(*message.SignerBody).SignerKey },
		AddType:    message.TypeSignerAdd,
		RemoveType: message.TypeSignerRemove,
		PruneLimit: pruneLimit,
	})}
}

func (s *Signer) GetSignerAdd(ctx context.Context, fid, signerKey []byte) (*message.Message, error) {
	return s.GetAdd(ctx, fid, signerKey)
}

func (s *Signer) GetSignerRemove(ctx context.Context, fid, signerKey []byte) (*message.Message, error) {
	return s.GetRemove(ctx, fid, signerKey)
}

// IsActiveSigner reports whether signerKey has a current, un-revoked
// SignerAdd for fid — the check the engine runs per spec §4.4 step 3
// before routing a non-signer message.
func (s *Signer) IsActiveSigner(ctx context.Context, fid, signerKey []byte) (bool, error) {
	_, err := s.GetSignerAdd(ctx, fid, signerKey)
	if err == nil {
		return true, nil
	}
	if hubcore.IsCode(err, hubcore.CodeNotFound) {
		return false, nil
	}
	return false, err
}
