// Package store implements the generic CRDT merge/prune/revoke skeleton
// shared by every typed store (spec §4.2, reused per §4.3), parameterized
// by table names and a type-specific target function. §4.2's Signer
// store is the canonical instance; Cast/Reaction/Amp/Verification/
// UserData in this package configure the same engine differently.
package store

import (
	"bytes"
	"context"

	"github.com/meridianhub/hub/pkg/crdt"
	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

// Tables names the four rows/indices a typed store needs, per spec §6's
// key layout (User|fid|postfix|... and the BySigner secondary index).
// RemoveByTarget is empty for add-only stores (UserData, spec §4.3).
type Tables struct {
	Message        string
	BySigner       string
	AddByTarget    string
	RemoveByTarget string // "" for add-only types
}

// TargetFunc derives the CRDT target key for a message, per the
// type-specific table in spec §3 (signer key, cast tsHash, (reactionType,
// castId), target-user-id, eth address, dataType enum).
type TargetFunc func(m *message.Message) []byte

type Config struct {
	Tables       Tables
	Target       TargetFunc
	AddType      message.Type
	RemoveType   message.Type // zero value (TypeUnknown) for add-only types
	PruneLimit   int
}

// Store is the shared engine. Typed wrappers (Signer, Cast, ...) embed
// it and add type-specific constructors/getters.
type Store struct {
	db  kv.RwDB
	bus *eventbus.Bus
	cfg Config
}

func New(db kv.RwDB, bus *eventbus.Bus, cfg Config) *Store {
	return &Store{db: db, bus: bus, cfg: cfg}
}

func rowKey(fid []byte, ts message.TsHash) []byte {
	k := make([]byte, 0, len(fid)+message.TsHashLen)
	k = append(k, fid...)
	return append(k, ts.Bytes()...)
}

func signerKey(fid, signer []byte, ts message.TsHash) []byte {
	k := make([]byte, 0, len(fid)+len(signer)+message.TsHashLen)
	k = append(k, fid...)
	k = append(k, signer...)
	return append(k, ts.Bytes()...)
}

func targetKey(fid, target []byte) []byte {
	k := make([]byte, 0, len(fid)+len(target))
	k = append(k, fid...)
	return append(k, target...)
}

func (s *Store) typeOK(t message.Type) bool {
	return t == s.cfg.AddType || (s.cfg.RemoveType != message.TypeUnknown && t == s.cfg.RemoveType)
}

func loadMessage(tx kv.Tx, table string, key []byte) (*message.Message, error) {
	raw, err := tx.Get(table, key)
	if err != nil {
		return nil, hubcore.Wrap(err, "kv get")
	}
	if raw == nil {
		return nil, nil
	}
	m, err := message.Decode(raw)
	if err != nil {
		return nil, hubcore.Wrap(err, "decode message")
	}
	return m, nil
}

// Merge implements spec §4.2's numbered algorithm generically. validate
// (signature, known fid, active signer) is the engine's job (spec §4.4
// steps 1-3); Merge assumes msg has already passed those checks and only
// enforces step 1 (type must belong to this store) plus the CRDT
// resolution of steps 2-5.
func (s *Store) Merge(ctx context.Context, msg *message.Message) error {
	if !s.typeOK(msg.Type) {
		return hubcore.Newf(hubcore.CodeValidationFailure, "type %d not valid for this store", msg.Type)
	}
	target := s.cfg.Target(msg)
	candidate := crdt.EntryOf(msg)

	var loser *message.Message
	var merged bool

	err := s.db.Update(ctx, func(tx kv.RwTx) error {
		tk := targetKey(msg.Fid, target)

		var existingAdd, existingRemove *crdt.Entry
		var addMsg, removeMsg *message.Message

		if addTsRaw, err := tx.Get(s.cfg.AddByTarget, tk); err != nil {
			return hubcore.Wrap(err, "read add index")
		} else if addTsRaw != nil {
			var ts message.TsHash
			copy(ts[:], addTsRaw)
			if addMsg, err = loadMessage(tx, s.cfg.Message, rowKey(msg.Fid, ts)); err != nil {
				return err
			}
			if addMsg != nil {
				e := crdt.EntryOf(addMsg)
				existingAdd = &e
			}
		}

		if s.cfg.RemoveByTarget != "" {
			if rmTsRaw, err := tx.Get(s.cfg.RemoveByTarget, tk); err != nil {
				return hubcore.Wrap(err, "read remove index")
			} else if rmTsRaw != nil {
				var ts message.TsHash
				copy(ts[:], rmTsRaw)
				if removeMsg, err = loadMessage(tx, s.cfg.Message, rowKey(msg.Fid, ts)); err != nil {
					return err
				}
				if removeMsg != nil {
					e := crdt.EntryOf(removeMsg)
					existingRemove = &e
				}
			}
		}

		if !crdt.Wins(candidate, existingAdd, existingRemove) {
			return nil // no-op: candidate loses or ties an existing winner
		}

		if existingRemove != nil {
			loser = removeMsg
		} else if existingAdd != nil {
			loser = addMsg
		}
		if loser != nil && bytes.Equal(loser.Hash, msg.Hash) {
			loser = nil // re-merge of the identical message is idempotent, not a prune
		}

		if loser != nil {
			if err := s.deleteRow(tx, loser); err != nil {
				return err
			}
		}

		if err := s.writeRow(tx, msg); err != nil {
			return err
		}
		if msg.Type.IsAdd() {
			if s.cfg.RemoveByTarget != "" {
				if err := tx.Delete(s.cfg.RemoveByTarget, tk); err != nil {
					return err
				}
			}
			if err := tx.Put(s.cfg.AddByTarget, tk, msg.TsHash().Bytes()); err != nil {
				return err
			}
		} else {
			if err := tx.Delete(s.cfg.AddByTarget, tk); err != nil {
				return err
			}
			if err := tx.Put(s.cfg.RemoveByTarget, tk, msg.TsHash().Bytes()); err != nil {
				return err
			}
		}
		merged = true
		return nil
	})
	if err != nil {
		return err
	}
	if !merged {
		return nil
	}

	if loser != nil {
		s.bus.Publish(eventbus.Event{Type: eventbus.EventPruneMessage, Message: loser})
	}
	s.bus.Publish(eventbus.Event{Type: eventbus.EventMergeMessage, Message: msg})

	return s.PruneMessages(ctx, msg.Fid)
}

func (s *Store) writeRow(tx kv.RwTx, msg *message.Message) error {
	ts := msg.TsHash()
	if err := tx.Put(s.cfg.Message, rowKey(msg.Fid, ts), msg.Encode()); err != nil {
		return hubcore.Wrap(err, "put message")
	}
	if err := tx.Put(s.cfg.BySigner, signerKey(msg.Fid, msg.Signer, ts), []byte{}); err != nil {
		return hubcore.Wrap(err, "put by-signer index")
	}
	return nil
}

func (s *Store) deleteRow(tx kv.RwTx, msg *message.Message) error {
	ts := msg.TsHash()
	if err := tx.Delete(s.cfg.Message, rowKey(msg.Fid, ts)); err != nil {
		return hubcore.Wrap(err, "delete message")
	}
	if err := tx.Delete(s.cfg.BySigner, signerKey(msg.Fid, msg.Signer, ts)); err != nil {
		return hubcore.Wrap(err, "delete by-signer index")
	}
	return nil
}

// PruneMessages implements spec §4.2's pruning: delete the earliest (by
// tsHash) rows for fid until the per-fid row count is <= PruneLimit.
// Invariant 8.
func (s *Store) PruneMessages(ctx context.Context, fid []byte) error {
	if s.cfg.PruneLimit <= 0 {
		return nil
	}
	var pruned []*message.Message
	err := s.db.Update(ctx, func(tx kv.RwTx) error {
		cur, err := tx.Cursor(s.cfg.Message)
		if err != nil {
			return hubcore.Wrap(err, "cursor")
		}
		defer cur.Close()

		var rows [][]byte
		var msgs []*message.Message
		for k, v, err := cur.Seek(fid); k != nil; k, v, err = cur.Next() {
			if err != nil {
				return hubcore.Wrap(err, "cursor next")
			}
			if !bytes.HasPrefix(k, fid) {
				break
			}
			m, derr := message.Decode(v)
			if derr != nil {
				return hubcore.Wrap(derr, "decode pruned candidate")
			}
			rows = append(rows, k)
			msgs = append(msgs, m)
		}
		if len(rows) <= s.cfg.PruneLimit {
			return nil
		}
		excess := len(rows) - s.cfg.PruneLimit
		for i := 0; i < excess; i++ {
			if err := s.deleteRow(tx, msgs[i]); err != nil {
				return err
			}
			target := s.cfg.Target(msgs[i])
			tk := targetKey(fid, target)
			if msgs[i].Type.IsAdd() {
				if err := tx.Delete(s.cfg.AddByTarget, tk); err != nil {
					return err
				}
			} else if s.cfg.RemoveByTarget != "" {
				if err := tx.Delete(s.cfg.RemoveByTarget, tk); err != nil {
					return err
				}
			}
			pruned = append(pruned, msgs[i])
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, m := range pruned {
		s.bus.Publish(eventbus.Event{Type: eventbus.EventPruneMessage, Message: m})
	}
	return nil
}

// RevokeMessagesBySigner implements spec §4.2: delete every message
// signed by signer for fid, emitting one revokeMessage event per
// deletion. Invariants 6-7.
func (s *Store) RevokeMessagesBySigner(ctx context.Context, fid, signer []byte) error {
	prefix := make([]byte, 0, len(fid)+len(signer))
	prefix = append(prefix, fid...)
	prefix = append(prefix, signer...)

	var revoked []*message.Message
	err := s.db.Update(ctx, func(tx kv.RwTx) error {
		cur, err := tx.Cursor(s.cfg.BySigner)
		if err != nil {
			return hubcore.Wrap(err, "cursor")
		}
		defer cur.Close()

		var tsList []message.TsHash
		for k, _, err := cur.Seek(prefix); k != nil; k, _, err = cur.Next() {
			if err != nil {
				return hubcore.Wrap(err, "cursor next")
			}
			if !bytes.HasPrefix(k, prefix) {
				break
			}
			var ts message.TsHash
			copy(ts[:], k[len(prefix):])
			tsList = append(tsList, ts)
		}

		for _, ts := range tsList {
			m, err := loadMessage(tx, s.cfg.Message, rowKey(fid, ts))
			if err != nil {
				return err
			}
			if m == nil {
				continue
			}
			if err := s.deleteRow(tx, m); err != nil {
				return err
			}
			target := s.cfg.Target(m)
			tk := targetKey(fid, target)
			if m.Type.IsAdd() {
				if err := tx.Delete(s.cfg.AddByTarget, tk); err != nil {
					return err
				}
			} else if s.cfg.RemoveByTarget != "" {
				if err := tx.Delete(s.cfg.RemoveByTarget, tk); err != nil {
					return err
				}
			}
			revoked = append(revoked, m)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, m := range revoked {
		s.bus.Publish(eventbus.Event{Type: eventbus.EventRevokeMessage, Message: m})
	}
	return nil
}

// GetAdd/GetRemove expose the current winner in each set for target, per
// the RPC getters of spec §6 (getSigner, getCast, ...).
func (s *Store) GetAdd(ctx context.Context, fid, target []byte) (*message.Message, error) {
	return s.getByIndex(ctx, s.cfg.AddByTarget, fid, target)
}

func (s *Store) GetRemove(ctx context.Context, fid, target []byte) (*message.Message, error) {
	if s.cfg.RemoveByTarget == "" {
		return nil, nil
	}
	return s.getByIndex(ctx, s.cfg.RemoveByTarget, fid, target)
}

func (s *Store) getByIndex(ctx context.Context, table string, fid, target []byte) (*message.Message, error) {
	var out *message.Message
	err := s.db.View(ctx, func(tx kv.Tx) error {
		tsRaw, err := tx.Get(table, targetKey(fid, target))
		if err != nil {
			return hubcore.Wrap(err, "read index")
		}
		if tsRaw == nil {
			return nil
		}
		var ts message.TsHash
		copy(ts[:], tsRaw)
		out, err = loadMessage(tx, s.cfg.Message, rowKey(fid, ts))
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, hubcore.New(hubcore.CodeNotFound, "no message at target")
	}
	return out, nil
}

// GetByTsHash looks a message up directly by its row key (fid, tsHash),
// with no index indirection. The sync engine's reconciliation path uses
// this: a sync-id already carries the tsHash a peer is missing, and the
// trie's side index (pkg/trie.Observer) resolves which fid and store it
// belongs to.
func (s *Store) GetByTsHash(ctx context.Context, fid []byte, ts message.TsHash) (*message.Message, error) {
	var out *message.Message
	err := s.db.View(ctx, func(tx kv.Tx) error {
		var err error
		out, err = loadMessage(tx, s.cfg.Message, rowKey(fid, ts))
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, hubcore.New(hubcore.CodeNotFound, "no message at tsHash")
	}
	return out, nil
}

// GetAllByFid returns every message currently retained for fid in this
// store, in ascending tsHash order.
func (s *Store) GetAllByFid(ctx context.Context, fid []byte) ([]*message.Message, error) {
	var out []*message.Message
	err := s.db.View(ctx, func(tx kv.Tx) error {
		cur, err := tx.Cursor(s.cfg.Message)
		if err != nil {
			return hubcore.Wrap(err, "cursor")
		}
		defer cur.Close()
		for k, v, err := cur.Seek(fid); k != nil; k, v, err = cur.Next() {
			if err != nil {
				return hubcore.Wrap(err, "cursor next")
			}
			if !bytes.HasPrefix(k, fid) {
				break
			}
			m, derr := message.Decode(v)
			if derr != nil {
				return hubcore.Wrap(derr, "decode")
			}
			out = append(out, m)
		}
		return nil
	})
	return out, err
}
