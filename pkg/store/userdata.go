package store

import (
	"context"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

const DefaultUserDataPruneLimit = 50

// UserData is add-only (spec §4.3/§9 Open Question (b)): a later
// UserDataAdd with the same dataType strictly supersedes the earlier one
// through the same comparator, with no paired Remove message or
// revocation path beyond the generic signer-custody revocation every
// store shares. RemoveByTarget/RemoveType are left zero so Wins() always
// compares only against the existing add.
type UserData struct{ *Store }

func NewUserData(db kv.RwDB, bus *eventbus.Bus, pruneLimit int) *UserData {
	if pruneLimit <= 0 {
		pruneLimit = DefaultUserDataPruneLimit
	}
	return &UserData{New(db, bus, Config{
		Tables: Tables{
			Message:     kv.UserDataMessage,
			BySigner:    kv.UserDataMessageBySigner,
			AddByTarget: kv.UserDataAddByTarget,
		},
		Target:     func(m *message.Message) []byte { return m.Body.(*message.UserDataBody).Target() },
		AddType:    message.TypeUserDataAdd,
		PruneLimit: pruneLimit,
	})}
}

func (s *UserData) GetUserData(ctx context.Context, fid []byte, dataType message.DataType) (*message.Message, error) {
	return s.GetAdd(ctx, fid, []byte{byte(dataType)})
}
