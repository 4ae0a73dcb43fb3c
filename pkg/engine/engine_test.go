package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/trie"
)

func TestMergeMessageRejectsUnknownFid(t *testing.T) {
	r := newTestRig(t)
	pub, priv := newEd25519Signer(t)
	m := &message.Message{
		Fid:       []byte{9, 9},
		Type:      message.TypeCastAdd,
		Timestamp: message.Now(),
		Body:      &message.CastBody{Text: "hello"},
		Signer:    pub,
	}
	signMessage(m, priv)

	err := r.eng.MergeMessage(context.Background(), m)
	require.Error(t, err)
	assert.True(t, hubcore.IsCode(err, hubcore.CodeValidationFailure))
}

func TestMergeMessageRejectsBadSignature(t *testing.T) {
	r := newTestRig(t)
	fid := []byte{1}
	r.registerFid(t, fid)
	pub, priv := newEd25519Signer(t)
	r.addSigner(t, fid, pub)

	m := &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: message.Now(),
		Body:      &message.CastBody{Text: "hello"},
		Signer:    pub,
	}
	signMessage(m, priv)
	m.Signature[0] ^= 0xFF // corrupt

	err := r.eng.MergeMessage(context.Background(), m)
	require.Error(t, err)
	assert.True(t, hubcore.IsCode(err, hubcore.CodeValidationFailure))
}

func TestMergeMessageRejectsInactiveSigner(t *testing.T) {
	r := newTestRig(t)
	fid := []byte{1}
	r.registerFid(t, fid)
	pub, priv := newEd25519Signer(t) // never added

	m := &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: message.Now(),
		Body:      &message.CastBody{Text: "hello"},
		Signer:    pub,
	}
	signMessage(m, priv)

	err := r.eng.MergeMessage(context.Background(), m)
	require.Error(t, err)
	assert.True(t, hubcore.IsCode(err, hubcore.CodeValidationFailure))
}

func TestMergeMessageFullPipelineSucceeds(t *testing.T) {
	r := newTestRig(t)
	fid := []byte{1}
	r.registerFid(t, fid)
	pub, priv := newEd25519Signer(t)
	r.addSigner(t, fid, pub)

	m := &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: message.Now(),
		Body:      &message.CastBody{Text: "hello farcaster"},
		Signer:    pub,
	}
	signMessage(m, priv)

	require.NoError(t, r.eng.MergeMessage(context.Background(), m))

	got, err := r.eng.stores.Cast.GetAllByFid(context.Background(), fid)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "hello farcaster", got[0].Body.(*message.CastBody).Text)
}

func TestMergeMessageGatesReactionsWhenDisabled(t *testing.T) {
	db, bus, stores := newWiredStores(t)
	eng := New(db, bus, stores, Config{ReactionsEnabled: false})
	r := &testRig{eng: eng, bus: bus}
	r.setCustody(t)

	fid := []byte{1}
	r.registerFid(t, fid)
	pub, priv := newEd25519Signer(t)
	r.addSigner(t, fid, pub)

	m := &message.Message{
		Fid:       fid,
		Type:      message.TypeReactionAdd,
		Timestamp: message.Now(),
		Body:      &message.ReactionBody{ReactionType: message.ReactionLike, CastFid: fid, CastHash: []byte("cast-1")},
		Signer:    pub,
	}
	signMessage(m, priv)

	err := eng.MergeMessage(context.Background(), m)
	require.Error(t, err)
	assert.True(t, hubcore.IsCode(err, hubcore.CodeUnavailable))
}

func TestCustodyTransferRevokesPriorSigners(t *testing.T) {
	r := newTestRig(t)
	fid := []byte{1}
	r.registerFid(t, fid)
	pub, priv := newEd25519Signer(t)
	r.addSigner(t, fid, pub)

	m1 := &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: message.Now(),
		Body:      &message.CastBody{Text: "before transfer"},
		Signer:    pub,
	}
	signMessage(m1, priv)
	require.NoError(t, r.eng.MergeMessage(context.Background(), m1))

	newCustodyKey, newCustodyAddr := newCustody(t)
	transfer := &message.IdRegistryEvent{
		Type:        message.IdRegistryTransfer,
		BlockNumber: 2,
		BlockHash:   []byte("block-2"),
		Fid:         fid,
		From:        r.custodyAddr,
		To:          newCustodyAddr,
	}
	require.NoError(t, r.eng.MergeIdRegistryEvent(context.Background(), transfer))
	_ = newCustodyKey

	// The old signer's cast should have been revoked along with the signer.
	got, err := r.eng.stores.Cast.GetAllByFid(context.Background(), fid)
	require.NoError(t, err)
	assert.Empty(t, got)

	// And the old signer key is no longer active.
	m2 := &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: message.Now() + 1,
		Body:      &message.CastBody{Text: "after transfer"},
		Signer:    pub,
	}
	signMessage(m2, priv)
	err = r.eng.MergeMessage(context.Background(), m2)
	require.Error(t, err)
	assert.True(t, hubcore.IsCode(err, hubcore.CodeValidationFailure))
}

func TestSyncSourceResolvesMessagesBySyncId(t *testing.T) {
	r := newTestRig(t)
	fid := []byte{1}
	r.registerFid(t, fid)
	pub, priv := newEd25519Signer(t)
	r.addSigner(t, fid, pub)

	tr := trie.New()
	obs := trie.NewObserver(tr, r.bus)
	defer obs.Stop()
	src := NewSyncSource(obs, r.eng.stores)

	m := &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: message.Now(),
		Body:      &message.CastBody{Text: "sync me"},
		Signer:    pub,
	}
	signMessage(m, priv)
	require.NoError(t, r.eng.MergeMessage(context.Background(), m))

	waitForObserver(t, obs, m.TsHash())

	ids := src.AllSyncIdsByPrefix("")
	require.Len(t, ids, 1)

	msgs, err := src.MessagesBySyncIds(ids)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "sync me", msgs[0].Body.(*message.CastBody).Text)
}

func TestSyncSourceSkipsUnknownSyncIds(t *testing.T) {
	r := newTestRig(t)
	tr := trie.New()
	obs := trie.NewObserver(tr, r.bus)
	defer obs.Stop()
	src := NewSyncSource(obs, r.eng.stores)

	bogusHash := make([]byte, message.HashLen)
	copy(bogusHash, []byte("not-a-real-hash"))
	bogus := trie.NewSyncID(message.Now(), message.NewTsHash(message.Now(), bogusHash))
	msgs, err := src.MessagesBySyncIds([]trie.SyncID{bogus})
	require.NoError(t, err)
	assert.Empty(t, msgs)
}
