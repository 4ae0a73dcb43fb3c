package store

import (
	"context"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

const DefaultVerificationPruneLimit = 50

// Verification stores VerificationAddEthAddress/VerificationRemove,
// target = ethereum address per spec §3.
type Verification struct{ *Store }

func NewVerification(db kv.RwDB, bus *eventbus.Bus, pruneLimit int) *Verification {
	if pruneLimit <= 0 {
		pruneLimit = DefaultVerificationPruneLimit
	}
	return &Verification{New(db, bus, Config{
		Tables: Tables{
			Message:        kv.UserVerificationMessage,
			BySigner:       kv.UserVerificationMessageBySigner,
			AddByTarget:    kv.UserVerificationAddByTarget,
			RemoveByTarget: kv.UserVerificationRmByTarget,
		},
		Target:     func(m *message.Message) []byte { return m.Body.(*message.VerificationBody).Target() },
		AddType:    message.TypeVerificationAddEthAddress,
		RemoveType: message.TypeVerificationRemove,
		PruneLimit: pruneLimit,
	})}
}

func (s *Verification) GetVerification(ctx context.Context, fid, address []byte) (*message.Message, error) {
	return s.GetAdd(ctx, fid, address)
}
