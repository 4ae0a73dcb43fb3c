package store

import (
	"context"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

const DefaultCastPruneLimit = 10000

// Cast stores CastAdd/CastRemove, target = the cast's own tsHash (spec
// §3). CastAdd targets itself; CastRemove carries the target tsHash in
// its body (message.CastBody.RemoveHash).
type Cast struct{ *Store }

func castTarget(m *message.Message) []byte {
	if m.Type == message.TypeCastAdd {
		ts := m.TsHash()
		return ts.Bytes()
	}
	return m.Body.(*message.CastBody).RemoveHash
}

func NewCast(db kv.RwDB, bus *eventbus.Bus, pruneLimit int) *Cast {
	if pruneLimit <= 0 {
		pruneLimit = DefaultCastPruneLimit
	}
	return &Cast{New(db, bus, Config{
		Tables: Tables{
			Message:        kv.UserCastMessage,
			BySigner:       kv.UserCastMessageBySigner,
			AddByTarget:    kv.UserCastAddByTarget,
			RemoveByTarget: kv.UserCastRemoveByTarget,
		},
		Target:     castTarget,
		AddType:    message.TypeCastAdd,
		RemoveType: message.TypeCastRemove,
		PruneLimit: pruneLimit,
	})}
}

func (s *Cast) GetCast(ctx context.Context, fid []byte, tsHash message.TsHash) (*message.Message, error) {
	return s.GetAdd(ctx, fid, tsHash.Bytes())
}

func (s *Cast) GetCastsByFid(ctx context.Context, fid []byte) ([]*message.Message, error) {
	all, err := s.GetAllByFid(ctx, fid)
	if err != nil {
		return nil, err
	}
	var adds []*message.Message
	for _, m := range all {
		if m.Type == message.TypeCastAdd {
			adds = append(adds, m)
		}
	}
	return adds, nil
}
