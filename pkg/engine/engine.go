// Package engine implements spec §4.4: the single entry point messages
// are submitted through, which validates a message against the identity
// and signer stores before routing it to the right typed store, and
// observes every lifecycle event to keep the sync trie in step.
package engine

import (
	"bytes"
	"context"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/identity"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/store"
)

// Stores bundles every typed store the engine routes to, keyed by the
// message type it accepts.
type Stores struct {
	Signer       *store.Signer
	Cast         *store.Cast
	Reaction     *store.Reaction
	Amp          *store.Amp
	Verification *store.Verification
	UserData     *store.UserData
}

// Config carries the engine's feature flags and dependencies.
type Config struct {
	// ReactionsEnabled gates routing of Reaction messages, per spec §9
	// Open Question (a): the store itself has no opinion, the engine does.
	ReactionsEnabled bool
}

type Engine struct {
	identity *identity.Store
	stores   Stores
	bus      *eventbus.Bus
	cfg      Config
}

// New wires an Engine and its identity store together. The identity
// store's revocation callbacks close over the not-yet-fully-initialized
// Engine value, which is safe because those callbacks only run later, on
// Merge, by which point e.stores is already set — mirroring the
// two-phase construction the teacher uses for components with a mutual
// dependency on a shared handle.
func New(db kv.RwDB, bus *eventbus.Bus, stores Stores, cfg Config) *Engine {
	e := &Engine{stores: stores, bus: bus, cfg: cfg}
	e.identity = identity.New(db, bus, e.revokeBySigner, e.signersUnderCustody)
	return e
}

// MergeIdRegistryEvent is a thin pass-through to the identity store,
// kept on Engine so callers (rpc, chainwatcher, cmd) have one entry
// point for every kind of ingestion.
func (e *Engine) MergeIdRegistryEvent(ctx context.Context, ev *message.IdRegistryEvent) error {
	return e.identity.Merge(ctx, ev)
}

// MergeMessage implements spec §4.4's numbered validation pipeline, then
// dispatches to the matching typed store's Merge.
func (e *Engine) MergeMessage(ctx context.Context, msg *message.Message) error {
	// Step 1: hash and signature.
	wantHash := message.Hash(msg.SignableBytes())
	if !bytes.Equal(wantHash, msg.Hash) {
		return hubcore.New(hubcore.CodeValidationFailure, "hash mismatch")
	}
	if !message.VerifySignature(msg.SignatureScheme, msg.Signer, msg.SignableBytes(), msg.Signature) {
		return hubcore.New(hubcore.CodeValidationFailure, "signature verification failed")
	}

	// Step 2: a current IdRegistry event must exist for fid.
	if _, err := e.identity.GetCustodyEvent(ctx, msg.Fid); err != nil {
		if hubcore.IsCode(err, hubcore.CodeNotFound) {
			return hubcore.New(hubcore.CodeValidationFailure, "no custody event for fid")
		}
		return err
	}

	// Step 3: signer must be authorized, except for SignerAdd/SignerRemove
	// themselves, which are instead signed directly by the custody
	// address (SignatureSchemeEip191) and carry no signer-store lookup.
	if msg.Type != message.TypeSignerAdd && msg.Type != message.TypeSignerRemove {
		active, err := e.stores.Signer.IsActiveSigner(ctx, msg.Fid, msg.Signer)
		if err != nil {
			return err
		}
		if !active {
			return hubcore.New(hubcore.CodeValidationFailure, "signer not active for fid")
		}
	} else {
		custody, err := e.identity.GetCustodyEvent(ctx, msg.Fid)
		if err != nil {
			return err
		}
		if !bytes.Equal(custody.To, msg.Signer) {
			return hubcore.New(hubcore.CodeValidationFailure, "signer message not signed by current custody address")
		}
	}

	// Step 4: route by type.
	switch msg.Type {
	case message.TypeSignerAdd, message.TypeSignerRemove:
		return e.stores.Signer.Merge(ctx, msg)
	case message.TypeCastAdd, message.TypeCastRemove:
		return e.stores.Cast.Merge(ctx, msg)
	case message.TypeReactionAdd, message.TypeReactionRemove:
		if !e.cfg.ReactionsEnabled {
			return hubcore.New(hubcore.CodeUnavailable, "reactions are disabled")
		}
		return e.stores.Reaction.Merge(ctx, msg)
	case message.TypeAmpAdd, message.TypeAmpRemove:
		return e.stores.Amp.Merge(ctx, msg)
	case message.TypeVerificationAddEthAddress, message.TypeVerificationRemove:
		return e.stores.Verification.Merge(ctx, msg)
	case message.TypeUserDataAdd:
		return e.stores.UserData.Merge(ctx, msg)
	default:
		return hubcore.Newf(hubcore.CodeInvalidParam, "unknown message type %d", msg.Type)
	}
}

// signersUnderCustody scans every typed store's BySigner index... in
// practice the signer store alone holds the authoritative answer to
// "which signers were ever active for fid", since SignerAdd/SignerRemove
// messages are the only ones that mention a signer key directly; other
// stores key their BySigner index on the delegate signer that submitted
// the message, not on custody. This returns the fid's full signer-store
// history (add or remove) so a custody transfer revokes every signer key
// that was ever authorized, not just the currently active one.
func (e *Engine) signersUnderCustody(ctx context.Context, fid, custody []byte) ([][]byte, error) {
	msgs, err := e.stores.Signer.GetAllByFid(ctx, fid)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var out [][]byte
	for _, m := range msgs {
		key := string(m.Body.(*message.SignerBody).SignerKey)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m.Body.(*message.SignerBody).SignerKey)
	}
	return out, nil
}

// revokeBySigner fans a custody-transfer revocation out to every typed
// store (spec §4.1 step 3).
func (e *Engine) revokeBySigner(ctx context.Context, fid, signer []byte) error {
	for _, revoke := range []func(context.Context, []byte, []byte) error{
		e.stores.Signer.RevokeMessagesBySigner,
		e.stores.Cast.RevokeMessagesBySigner,
		e.stores.Reaction.RevokeMessagesBySigner,
		e.stores.Amp.RevokeMessagesBySigner,
		e.stores.Verification.RevokeMessagesBySigner,
		e.stores.UserData.RevokeMessagesBySigner,
	} {
		if err := revoke(ctx, fid, signer); err != nil {
			return err
		}
	}
	return nil
}
