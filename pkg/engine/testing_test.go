package engine

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv"
	"github.com/meridianhub/hub/pkg/kv/memdb"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/store"
	"github.com/meridianhub/hub/pkg/trie"
)

// testRig bundles everything a test needs to submit messages through a
// freshly wired Engine, mirroring cmd/hub's own construction order.
type testRig struct {
	eng         *Engine
	bus         *eventbus.Bus
	custodyKey  *secp256k1.PrivateKey
	custodyAddr []byte
}

// newWiredStores builds a fresh in-memory db/bus/Stores triple, the same
// pieces cmd/hub's start command assembles before constructing an Engine.
func newWiredStores(t *testing.T) (kv.RwDB, *eventbus.Bus, Stores) {
	t.Helper()
	db := memdb.New()
	bus := eventbus.New()
	stores := Stores{
		Signer:       store.NewSigner(db, bus, 0),
		Cast:         store.NewCast(db, bus, 0),
		Reaction:     store.NewReaction(db, bus, 0),
		Amp:          store.NewAmp(db, bus, 0),
		Verification: store.NewVerification(db, bus, 0),
		UserData:     store.NewUserData(db, bus, 0),
	}
	return db, bus, stores
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	db, bus, stores := newWiredStores(t)
	eng := New(db, bus, stores, Config{ReactionsEnabled: true})
	r := &testRig{eng: eng, bus: bus}
	r.setCustody(t)
	return r
}

// setCustody generates a fresh secp256k1 custody keypair for the rig.
func (r *testRig) setCustody(t *testing.T) {
	t.Helper()
	key, addr := newCustody(t)
	r.custodyKey, r.custodyAddr = key, addr
}

func newCustody(t *testing.T) (*secp256k1.PrivateKey, []byte) {
	t.Helper()
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate custody key: %v", err)
	}
	return key, message.EthereumAddress(key.PubKey())
}

func (r *testRig) registerFid(t *testing.T, fid []byte) {
	t.Helper()
	ev := &message.IdRegistryEvent{
		Type:        message.IdRegistryRegister,
		BlockNumber: 1,
		LogIndex:    0,
		BlockHash:   []byte("block-1"),
		Fid:         fid,
		To:          r.custodyAddr,
	}
	if err := r.eng.MergeIdRegistryEvent(ctxBg(), ev); err != nil {
		t.Fatalf("register fid: %v", err)
	}
}

func (r *testRig) signEip191(data []byte) []byte {
	hash := message.Hash32(data)
	sig := ecdsa.SignCompact(r.custodyKey, hash, false)
	// SignCompact returns v‖r‖s; verifyEip191 expects r‖s‖v.
	out := make([]byte, 65)
	copy(out[:64], sig[1:])
	out[64] = sig[0] - 27
	return out
}

// addSigner submits a SignerAdd for signerPub, signed by the rig's
// custody key, and returns the submitted message.
func (r *testRig) addSigner(t *testing.T, fid, signerPub []byte) *message.Message {
	t.Helper()
	m := &message.Message{
		Fid:             fid,
		Type:            message.TypeSignerAdd,
		Timestamp:       message.Now(),
		Body:            &message.SignerBody{SignerKey: signerPub},
		HashScheme:      message.HashSchemeBlake3,
		SignatureScheme: message.SignatureSchemeEip191,
		Signer:          r.custodyAddr,
	}
	r.finishEip191(m)
	if err := r.eng.MergeMessage(ctxBg(), m); err != nil {
		t.Fatalf("add signer: %v", err)
	}
	return m
}

func (r *testRig) finishEip191(m *message.Message) {
	m.Hash = message.Hash(m.SignableBytes())
	m.Signature = r.signEip191(m.SignableBytes())
}

// newEd25519Signer generates a fresh Ed25519 keypair for use as a
// delegate signer key.
func newEd25519Signer(t *testing.T) (pub ed25519.PublicKey, priv ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

// signMessage finalizes m's Hash/Signature fields for an Ed25519-signed
// (non-SignerAdd/Remove) message.
func signMessage(m *message.Message, priv ed25519.PrivateKey) {
	m.SignatureScheme = message.SignatureSchemeEd25519
	m.HashScheme = message.HashSchemeBlake3
	m.Hash = message.Hash(m.SignableBytes())
	m.Signature = ed25519.Sign(priv, m.SignableBytes())
}

// waitForObserver blocks until obs has indexed ts, since the observer
// mirrors bus events on its own goroutine asynchronously from Publish.
func waitForObserver(t *testing.T, obs *trie.Observer, ts message.TsHash) {
	t.Helper()
	id := trie.NewSyncID(ts.Timestamp(), ts)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, _, ok := obs.Lookup(id); ok {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("observer never indexed sync-id %s", id)
}

func ctxBg() context.Context { return context.Background() }
