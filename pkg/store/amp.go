package store

import (
	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

const DefaultAmpPruneLimit = 2500

// Amp stores AmpAdd/AmpRemove, target = target-user-id per spec §3.
type Amp struct{ *Store }

func NewAmp(db kv.RwDB, bus *eventbus.Bus, pruneLimit int) *Amp {
	if pruneLimit <= 0 {
		pruneLimit = DefaultAmpPruneLimit
	}
	return &Amp{New(db, bus, Config{
		Tables: Tables{
			Message:        kv.UserAmpMessage,
			BySigner:       kv.UserAmpMessageBySigner,
			AddByTarget:    kv.UserAmpAddByTarget,
			RemoveByTarget: kv.UserAmpRemoveByTarget,
		},
		Target:     func(m *message.Message) []byte { return m.Body.(*message.AmpBody).Target() },
		AddType:    message.TypeAmpAdd,
		RemoveType: message.TypeAmpRemove,
		PruneLimit: pruneLimit,
	})}
}
