package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv/memdb"
	"github.com/meridianhub/hub/pkg/message"
)

func hashWith(b byte) []byte {
	h := make([]byte, message.HashLen)
	h[message.HashLen-1] = b
	return h
}

func newCastAdd(fid []byte, ts uint32, hashTag byte, signer []byte) *message.Message {
	return &message.Message{
		Fid:       fid,
		Type:      message.TypeCastAdd,
		Timestamp: ts,
		Body:      &message.CastBody{Text: "hello"},
		Hash:      hashWith(hashTag),
		Signer:    signer,
	}
}

func newCastRemove(fid []byte, ts uint32, hashTag byte, signer []byte, removeHash []byte) *message.Message {
	return &message.Message{
		Fid:       fid,
		Type:      message.TypeCastRemove,
		Timestamp: ts,
		Body:      &message.CastBody{RemoveHash: removeHash},
		Hash:      hashWith(hashTag),
		Signer:    signer,
	}
}

func newTestCast(t *testing.T, pruneLimit int) (*Cast, *eventbus.Bus) {
	t.Helper()
	db := memdb.New()
	bus := eventbus.New()
	return NewCast(db, bus, pruneLimit), bus
}

// newSignerAdd messages share a target (SignerKey) across
// messages the way Cast's self-referential target never does — these
// are what exercise the Add-vs-Add conflict path of Wins()/Compare().
func newSignerAdd(fid []byte, ts uint32, hashTag byte, signerKey, custody []byte) *message.Message {
	return &message.Message{
		Fid:       fid,
		Type:      message.TypeSignerAdd,
		Timestamp: ts,
		Body:      &message.SignerBody{SignerKey: signerKey},
		Hash:      hashWith(hashTag),
		Signer:    custody,
	}
}

func newTestSigner(t *testing.T, pruneLimit int) (*Signer, *eventbus.Bus) {
	t.Helper()
	db := memdb.New()
	bus := eventbus.New()
	return NewSigner(db, bus, pruneLimit), bus
}

func TestMergeAcceptsFirstMessageUnconditionally(t *testing.T) {
	cast, _ := newTestCast(t, 0)
	fid := []byte{1}
	add := newCastAdd(fid, 100, 1, []byte("signerA"))

	require.NoError(t, cast.Merge(context.Background(), add))

	got, err := cast.GetCast(context.Background(), fid, add.TsHash())
	require.NoError(t, err)
	assert.Equal(t, add.Hash, got.Hash)
}

func TestMergeRejectsWrongTypeForStore(t *testing.T) {
	cast, _ := newTestCast(t, 0)
	bad := &message.Message{Fid: []byte{1}, Type: message.TypeSignerAdd, Body: &message.SignerBody{SignerKey: []byte("k")}}
	err := cast.Merge(context.Background(), bad)
	require.Error(t, err)
}

func TestMergeOlderCandidateIsNoOp(t *testing.T) {
	sg, bus := newTestSigner(t, 0)
	sub := bus.Subscribe(eventbus.EventMergeMessage)
	fid := []byte{1}
	key := []byte("signer-pub")

	winner := newSignerAdd(fid, 200, 1, key, []byte("custody"))
	require.NoError(t, sg.Merge(context.Background(), winner))
	<-sub

	loser := newSignerAdd(fid, 100, 2, key, []byte("custody"))
	require.NoError(t, sg.Merge(context.Background(), loser))

	select {
	case ev := <-sub:
		t.Fatalf("expected no mergeMessage event for a losing candidate, got %+v", ev)
	default:
	}

	got, err := sg.GetSignerAdd(context.Background(), fid, key)
	require.NoError(t, err)
	assert.Equal(t, winner.Hash, got.Hash)
}

func TestMergeNewerCandidatePrunesLoser(t *testing.T) {
	sg, bus := newTestSigner(t, 0)
	pruneSub := bus.Subscribe(eventbus.EventPruneMessage)
	fid := []byte{1}
	key := []byte("signer-pub")

	older := newSignerAdd(fid, 100, 1, key, []byte("custody"))
	require.NoError(t, sg.Merge(context.Background(), older))

	newer := newSignerAdd(fid, 200, 2, key, []byte("custody"))
	require.NoError(t, sg.Merge(context.Background(), newer))

	select {
	case ev := <-pruneSub:
		assert.Equal(t, older.Hash, ev.Message.Hash)
	default:
		t.Fatal("expected a pruneMessage event for the superseded add")
	}

	got, err := sg.GetSignerAdd(context.Background(), fid, key)
	require.NoError(t, err)
	assert.Equal(t, newer.Hash, got.Hash, "the newer add must be the surviving winner at the shared target")
}

func TestMergeSameTimestampTiebreaksOnHash(t *testing.T) {
	sg, _ := newTestSigner(t, 0)
	fid := []byte{1}
	key := []byte("signer-pub")

	low := newSignerAdd(fid, 100, 1, key, []byte("custody"))
	high := newSignerAdd(fid, 100, 2, key, []byte("custody"))

	require.NoError(t, sg.Merge(context.Background(), low))
	require.NoError(t, sg.Merge(context.Background(), high))

	got, err := sg.GetSignerAdd(context.Background(), fid, key)
	require.NoError(t, err)
	assert.Equal(t, high.Hash, got.Hash, "the bytewise-greater hash must win the tie")
}

func TestMergeIdempotentOnReplay(t *testing.T) {
	cast, bus := newTestCast(t, 0)
	fid := []byte{1}
	add := newCastAdd(fid, 100, 1, []byte("signerA"))
	require.NoError(t, cast.Merge(context.Background(), add))

	pruneSub := bus.Subscribe(eventbus.EventPruneMessage)
	require.NoError(t, cast.Merge(context.Background(), add))

	select {
	case ev := <-pruneSub:
		t.Fatalf("re-merging the identical message must not prune itself, got %+v", ev)
	default:
	}
}

func TestMergeRemoveBeatsAddAtEqualTimestamp(t *testing.T) {
	cast, _ := newTestCast(t, 0)
	fid := []byte{1}

	add := newCastAdd(fid, 100, 5, []byte("signerA"))
	require.NoError(t, cast.Merge(context.Background(), add))

	remove := newCastRemove(fid, 100, 5, []byte("signerA"), add.TsHash().Bytes())
	require.NoError(t, cast.Merge(context.Background(), remove))

	_, err := cast.GetCast(context.Background(), fid, add.TsHash())
	assert.Error(t, err, "remove at an equal timestamp must beat the add")
}

func TestMergeRemoveThenEarlierAddIsNoOp(t *testing.T) {
	cast, _ := newTestCast(t, 0)
	fid := []byte{1}

	add := newCastAdd(fid, 100, 1, []byte("signerA"))
	require.NoError(t, cast.Merge(context.Background(), add))
	remove := newCastRemove(fid, 200, 1, []byte("signerA"), add.TsHash().Bytes())
	require.NoError(t, cast.Merge(context.Background(), remove))

	// A replayed (earlier) add for the same target must not resurrect it.
	require.NoError(t, cast.Merge(context.Background(), add))
	_, err := cast.GetCast(context.Background(), fid, add.TsHash())
	assert.Error(t, err)
}

func TestPruneMessagesEnforcesPerFidLimit(t *testing.T) {
	cast, bus := newTestCast(t, 2)
	pruneSub := bus.Subscribe(eventbus.EventPruneMessage)
	fid := []byte{7}

	for i := 0; i < 5; i++ {
		msg := newCastAdd(fid, uint32(100+i), byte(i+1), []byte("signerA"))
		require.NoError(t, cast.Merge(context.Background(), msg))
	}

	pruned := 0
drain:
	for {
		select {
		case <-pruneSub:
			pruned++
		default:
			break drain
		}
	}
	assert.Equal(t, 3, pruned, "5 adds over a limit of 2 must prune the 3 earliest")

	remaining, err := cast.GetAllByFid(context.Background(), fid)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestRevokeMessagesBySignerDeletesAllAndEmitsEvents(t *testing.T) {
	cast, bus := newTestCast(t, 0)
	fid := []byte{1}
	signerA := []byte("signerA")
	signerB := []byte("signerB")

	a1 := newCastAdd(fid, 100, 1, signerA)
	a2 := newCastAdd(fid, 101, 2, signerA)
	b1 := newCastAdd(fid, 102, 3, signerB)
	require.NoError(t, cast.Merge(context.Background(), a1))
	require.NoError(t, cast.Merge(context.Background(), a2))
	require.NoError(t, cast.Merge(context.Background(), b1))

	revokeSub := bus.Subscribe(eventbus.EventRevokeMessage)
	require.NoError(t, cast.RevokeMessagesBySigner(context.Background(), fid, signerA))

	revoked := map[string]bool{}
	for len(revoked) < 2 {
		ev := <-revokeSub
		revoked[string(ev.Message.Hash)] = true
	}
	assert.True(t, revoked[string(a1.Hash)])
	assert.True(t, revoked[string(a2.Hash)])

	_, err := cast.GetCast(context.Background(), fid, a1.TsHash())
	assert.Error(t, err)
	_, err = cast.GetCast(context.Background(), fid, a2.TsHash())
	assert.Error(t, err)

	got, err := cast.GetCast(context.Background(), fid, b1.TsHash())
	require.NoError(t, err)
	assert.Equal(t, b1.Hash, got.Hash, "revoking signerA must not touch signerB's rows")
}

func TestAmpStoreMergeAndRemove(t *testing.T) {
	db := memdb.New()
	bus := eventbus.New()
	amp := NewAmp(db, bus, 0)
	fid := []byte{1}

	add := &message.Message{
		Fid: fid, Type: message.TypeAmpAdd, Timestamp: 100,
		Body: &message.AmpBody{TargetFid: []byte{9}}, Hash: hashWith(1), Signer: []byte("s"),
	}
	require.NoError(t, amp.Merge(context.Background(), add))

	got, err := amp.GetAdd(context.Background(), fid, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, add.Hash, got.Hash)

	remove := &message.Message{
		Fid: fid, Type: message.TypeAmpRemove, Timestamp: 200,
		Body: &message.AmpBody{TargetFid: []byte{9}}, Hash: hashWith(2), Signer: []byte("s"),
	}
	require.NoError(t, amp.Merge(context.Background(), remove))

	_, err = amp.GetAdd(context.Background(), fid, []byte{9})
	assert.Error(t, err)
	rm, err := amp.GetRemove(context.Background(), fid, []byte{9})
	require.NoError(t, err)
	assert.Equal(t, remove.Hash, rm.Hash)
}

func TestVerificationStoreMergeAndRemove(t *testing.T) {
	db := memdb.New()
	bus := eventbus.New()
	ver := NewVerification(db, bus, 0)
	fid := []byte{1}
	addr := []byte("0xabc")

	add := &message.Message{
		Fid: fid, Type: message.TypeVerificationAddEthAddress, Timestamp: 100,
		Body: &message.VerificationBody{Address: addr}, Hash: hashWith(1), Signer: []byte("s"),
	}
	require.NoError(t, ver.Merge(context.Background(), add))

	got, err := ver.GetVerification(context.Background(), fid, addr)
	require.NoError(t, err)
	assert.Equal(t, add.Hash, got.Hash)

	remove := &message.Message{
		Fid: fid, Type: message.TypeVerificationRemove, Timestamp: 200,
		Body: &message.VerificationBody{Address: addr}, Hash: hashWith(2), Signer: []byte("s"),
	}
	require.NoError(t, ver.Merge(context.Background(), remove))

	_, err = ver.GetVerification(context.Background(), fid, addr)
	assert.Error(t, err)
}

func TestUserDataStoreIsAddOnlyAndSupersedes(t *testing.T) {
	db := memdb.New()
	bus := eventbus.New()
	ud := NewUserData(db, bus, 0)
	fid := []byte{1}

	first := &message.Message{
		Fid: fid, Type: message.TypeUserDataAdd, Timestamp: 100,
		Body: &message.UserDataBody{Type: message.DataTypeBio, Value: "old bio"},
		Hash: hashWith(1), Signer: []byte("s"),
	}
	require.NoError(t, ud.Merge(context.Background(), first))

	second := &message.Message{
		Fid: fid, Type: message.TypeUserDataAdd, Timestamp: 200,
		Body: &message.UserDataBody{Type: message.DataTypeBio, Value: "new bio"},
		Hash: hashWith(2), Signer: []byte("s"),
	}
	require.NoError(t, ud.Merge(context.Background(), second))

	got, err := ud.GetUserData(context.Background(), fid, message.DataTypeBio)
	require.NoError(t, err)
	assert.Equal(t, "new bio", got.Body.(*message.UserDataBody).Value)

	// RemoveByTarget is unconfigured: there is no Remove path to exercise,
	// only the supersede-by-Add behavior above.
	assert.Empty(t, ud.cfg.RemoveByTarget)
}

func TestReactionStoreMergeAndRemove(t *testing.T) {
	db := memdb.New()
	bus := eventbus.New()
	react := NewReaction(db, bus, 0)
	fid := []byte{1}
	castFid := []byte{2}
	castHash := hashWith(9)

	add := &message.Message{
		Fid: fid, Type: message.TypeReactionAdd, Timestamp: 100,
		Body: &message.ReactionBody{ReactionType: message.ReactionLike, CastFid: castFid, CastHash: castHash},
		Hash: hashWith(1), Signer: []byte("s"),
	}
	require.NoError(t, react.Merge(context.Background(), add))

	got, err := react.GetReaction(context.Background(), fid, message.ReactionLike, castFid, castHash)
	require.NoError(t, err)
	assert.Equal(t, add.Hash, got.Hash)

	remove := &message.Message{
		Fid: fid, Type: message.TypeReactionRemove, Timestamp: 200,
		Body: &message.ReactionBody{ReactionType: message.ReactionLike, CastFid: castFid, CastHash: castHash},
		Hash: hashWith(2), Signer: []byte("s"),
	}
	require.NoError(t, react.Merge(context.Background(), remove))

	_, err = react.GetReaction(context.Background(), fid, message.ReactionLike, castFid, castHash)
	assert.Error(t, err)
}

// TestSignerAddRemoveTieBreak reproduces scenario S1 exactly: an add and
// a remove at the same timestamp for the same (fid, signer), submitted
// in either order, must leave the remove as the final state.
func TestSignerAddRemoveTieBreak(t *testing.T) {
	for _, order := range []string{"add-then-remove", "remove-then-add"} {
		t.Run(order, func(t *testing.T) {
			sg, _ := newTestSigner(t, 0)
			fid := []byte("F")
			signer := []byte("S")
			add := &message.Message{
				Fid: fid, Type: message.TypeSignerAdd, Timestamp: 100,
				Body: &message.SignerBody{SignerKey: signer}, Hash: hashWith(0x01), Signer: []byte("custody"),
			}
			remove := &message.Message{
				Fid: fid, Type: message.TypeSignerRemove, Timestamp: 100,
				Body: &message.SignerBody{SignerKey: signer}, Hash: hashWith(0x00), Signer: []byte("custody"),
			}

			if order == "add-then-remove" {
				require.NoError(t, sg.Merge(context.Background(), add))
				require.NoError(t, sg.Merge(context.Background(), remove))
			} else {
				require.NoError(t, sg.Merge(context.Background(), remove))
				require.NoError(t, sg.Merge(context.Background(), add))
			}

			_, err := sg.GetSignerAdd(context.Background(), fid, signer)
			assert.Error(t, err, "getSignerAdd must be not_found after the tie-break")

			got, err := sg.GetSignerRemove(context.Background(), fid, signer)
			require.NoError(t, err)
			assert.Equal(t, remove.Hash, got.Hash)
		})
	}
}

// TestPruneBoundaryMatchesWorkedExample reproduces scenario S6 exactly:
// a prune limit of 3 with five SignerAdds at t+1..t+5 prunes the two
// earliest (t+1, t+2), each with its own pruneMessage event.
func TestPruneBoundaryMatchesWorkedExample(t *testing.T) {
	sg, bus := newTestSigner(t, 3)
	pruneSub := bus.Subscribe(eventbus.EventPruneMessage)
	fid := []byte("F")
	const base = uint32(1_700_000_000)

	adds := make([]*message.Message, 5)
	for i := 0; i < 5; i++ {
		adds[i] = newSignerAdd(fid, base+uint32(i+1), byte(i+1), []byte{byte(i)}, []byte("custody"))
		require.NoError(t, sg.Merge(context.Background(), adds[i]))
	}

	prunedHashes := map[string]bool{}
	for len(prunedHashes) < 2 {
		ev := <-pruneSub
		prunedHashes[string(ev.Message.Hash)] = true
	}
	assert.True(t, prunedHashes[string(adds[0].Hash)], "t+1 must be pruned")
	assert.True(t, prunedHashes[string(adds[1].Hash)], "t+2 must be pruned")

	for i := 0; i < 2; i++ {
		signerKey := adds[i].Body.(*message.SignerBody).SignerKey
		active, err := sg.IsActiveSigner(context.Background(), fid, signerKey)
		require.NoError(t, err)
		assert.False(t, active, "pruned signer %d must be not_found", i)
	}
	for i := 2; i < 5; i++ {
		signerKey := adds[i].Body.(*message.SignerBody).SignerKey
		active, err := sg.IsActiveSigner(context.Background(), fid, signerKey)
		require.NoError(t, err)
		assert.True(t, active, "surviving signer %d must remain active", i)
	}
}

func TestSignerStoreMergeAndIsActiveSigner(t *testing.T) {
	db := memdb.New()
	bus := eventbus.New()
	sg := NewSigner(db, bus, 0)
	fid := []byte{1}
	key := []byte("signer-pub")

	active, err := sg.IsActiveSigner(context.Background(), fid, key)
	require.NoError(t, err)
	assert.False(t, active)

	add := &message.Message{
		Fid: fid, Type: message.TypeSignerAdd, Timestamp: 100,
		Body: &message.SignerBody{SignerKey: key}, Hash: hashWith(1), Signer: []byte("custody"),
	}
	require.NoError(t, sg.Merge(context.Background(), add))

	active, err = sg.IsActiveSigner(context.Background(), fid, key)
	require.NoError(t, err)
	assert.True(t, active)

	remove := &message.Message{
		Fid: fid, Type: message.TypeSignerRemove, Timestamp: 200,
		Body: &message.SignerBody{SignerKey: key}, Hash: hashWith(2), Signer: []byte("custody"),
	}
	require.NoError(t, sg.Merge(context.Background(), remove))

	active, err = sg.IsActiveSigner(context.Background(), fid, key)
	require.NoError(t, err)
	assert.False(t, active)
}
