package store

import (
	"context"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

const DefaultReactionPruneLimit = 5000

// Reaction stores ReactionAdd/ReactionRemove, target = (reactionType,
// castId) per spec §3. Per SPEC_FULL/spec §9 Open Question (a),
// reactions are present in the type system and fully merge-able but the
// engine gates routing to this store behind a feature flag (see
// engine.ReactionsEnabled) — this store itself has no opinion on that
// gate and always merges what it's given.
type Reaction struct{ *Store }

func NewReaction(db kv.RwDB, bus *eventbus.Bus, pruneLimit int) *Reaction {
	if pruneLimit <= 0 {
		pruneLimit = DefaultReactionPruneLimit
	}
	return &Reaction{New(db, bus, Config{
		Tables: Tables{
			Message:        kv.UserReactionMessage,
			BySigner:       kv.UserReactionMessageBySigner,
			AddByTarget:    kv.UserReactionAddByTarget,
			RemoveByTarget: kv.UserReactionRemoveByTarget,
		},
		Target:     func(m *message.Message) []byte { return m.Body.(*message.ReactionBody).Target() },
		AddType:    message.TypeReactionAdd,
		RemoveType: message.TypeReactionRemove,
		PruneLimit: pruneLimit,
	})}
}

func (s *Reaction) GetReaction(ctx context.Context, fid []byte, rt message.ReactionType, castFid, castHash []byte) (*message.Message, error) {
	body := message.ReactionBody{ReactionType: rt, CastFid: castFid, CastHash: castHash}
	return s.GetAdd(ctx, fid, body.Target())
}
