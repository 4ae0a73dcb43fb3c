// Package identity implements spec §4.1: custody establishment, transfer,
// and the two-phase revocation hook on transfer.
package identity

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
)

// RevokeBySignerFunc is called once per signer that was authorized under
// the previous custody address when a transfer event replaces the
// current one (spec §4.1 step 3). The engine wires this to every typed
// store's RevokeMessagesBySigner plus, transitively, the signer store's
// own revocation of the delegate SignerAdds themselves.
type RevokeBySignerFunc func(ctx context.Context, fid, signer []byte) error

type Store struct {
	db       kv.RwDB
	bus      *eventbus.Bus
	onRevoke RevokeBySignerFunc
	// signersUnderCustody returns every signer key that was ever added
	// for fid while addr was its custody address, so a transfer can
	// revoke all of them (spec §4.1 step 3, §4.2 "revocation on custody
	// transfer"). Supplied by the engine, which has visibility into the
	// signer store.
	signersUnderCustody func(ctx context.Context, fid, custody []byte) ([][]byte, error)
}

func New(db kv.RwDB, bus *eventbus.Bus, onRevoke RevokeBySignerFunc, signersUnderCustody func(context.Context, []byte, []byte) ([][]byte, error)) *Store {
	return &Store{db: db, bus: bus, onRevoke: onRevoke, signersUnderCustody: signersUnderCustody}
}

func superseededKey(fid []byte, blockNumber, logIndex uint64) []byte {
	k := make([]byte, 0, len(fid)+16)
	k = append(k, fid...)
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], blockNumber)
	k = append(k, n[:]...)
	binary.BigEndian.PutUint64(n[:], logIndex)
	return append(k, n[:]...)
}

// Merge implements spec §4.1's numbered algorithm exactly.
func (s *Store) Merge(ctx context.Context, e *message.IdRegistryEvent) error {
	var prevCustody []byte
	var replaced bool

	err := s.db.Update(ctx, func(tx kv.RwTx) error {
		curRaw, err := tx.Get(kv.IdRegistryEvent, e.Fid)
		if err != nil {
			return hubcore.Wrap(err, "kv get current event")
		}
		if curRaw == nil {
			return s.persist(tx, e)
		}

		cur, err := message.DecodeIdRegistryEvent(curRaw)
		if err != nil {
			return hubcore.Wrap(err, "decode current event")
		}

		switch cur.CompareOrder(e) {
		case 0:
			if !cur.SameIdentity(e) {
				return hubcore.New(hubcore.CodeConflict, "id registry event order collision with different block/tx hash")
			}
			return nil // identical event re-delivered, no-op
		case 1:
			return nil // e is strictly older, no-op
		}

		// e is strictly greater: replace.
		if err := tx.Put(kv.IdRegistrySuperseded, superseededKey(cur.Fid, cur.BlockNumber, cur.LogIndex), curRaw); err != nil {
			return hubcore.Wrap(err, "archive superseded event")
		}
		if cur.To != nil {
			if err := tx.Delete(kv.IdRegistryEventByCustodyAddress, cur.To); err != nil {
				return hubcore.Wrap(err, "delete old custody index")
			}
		}
		prevCustody = cur.To
		replaced = true
		return s.persist(tx, e)
	})
	if err != nil {
		return err
	}

	s.bus.Publish(eventbus.Event{Type: eventbus.EventMergeIdRegistryEvent, IdEvent: e})

	if replaced && prevCustody != nil && !bytes.Equal(prevCustody, e.To) {
		return s.revokeUnderPreviousCustody(ctx, e.Fid, prevCustody)
	}
	return nil
}

func (s *Store) persist(tx kv.RwTx, e *message.IdRegistryEvent) error {
	raw := e.Encode()
	if err := tx.Put(kv.IdRegistryEvent, e.Fid, raw); err != nil {
		return hubcore.Wrap(err, "put current event")
	}
	if err := tx.Put(kv.IdRegistryEventByCustodyAddress, e.To, raw); err != nil {
		return hubcore.Wrap(err, "put custody index")
	}
	return nil
}

// revokeUnderPreviousCustody is the two-phase follow-up of spec §4.1
// step 3: every signer that was authorized by prevCustody is revoked
// across every typed store via onRevoke, after the transfer is already
// durably the current event. This keeps the replica available during
// the transfer and makes the revocation independently observable.
func (s *Store) revokeUnderPreviousCustody(ctx context.Context, fid, prevCustody []byte) error {
	signers, err := s.signersUnderCustody(ctx, fid, prevCustody)
	if err != nil {
		return err
	}
	// The custody address itself may also have signed non-signer
	// messages directly is not modeled (messages are always signed by
	// an Ed25519 signer key, spec §4.2); revoking prevCustody as if it
	// were itself a signer key is a harmless no-op scan if no rows match.
	signers = append(signers, prevCustody)
	for _, signer := range signers {
		if err := s.onRevoke(ctx, fid, signer); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) GetCustodyEvent(ctx context.Context, fid []byte) (*message.IdRegistryEvent, error) {
	var out *message.IdRegistryEvent
	err := s.db.View(ctx, func(tx kv.Tx) error {
		raw, err := tx.Get(kv.IdRegistryEvent, fid)
		if err != nil {
			return hubcore.Wrap(err, "kv get")
		}
		if raw == nil {
			return nil
		}
		out, err = message.DecodeIdRegistryEvent(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, hubcore.New(hubcore.CodeNotFound, "no current custody event for fid")
	}
	return out, nil
}

func (s *Store) GetEventByCustodyAddress(ctx context.Context, addr []byte) (*message.IdRegistryEvent, error) {
	var out *message.IdRegistryEvent
	err := s.db.View(ctx, func(tx kv.Tx) error {
		raw, err := tx.Get(kv.IdRegistryEventByCustodyAddress, addr)
		if err != nil {
			return hubcore.Wrap(err, "kv get")
		}
		if raw == nil {
			return nil
		}
		out, err = message.DecodeIdRegistryEvent(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	if out == nil {
		return nil, hubcore.New(hubcore.CodeNotFound, "no event for custody address")
	}
	return out, nil
}
