package p2p

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhub/hub/pkg/message"
)

func TestEncodeDecodeMessageRoundTrip(t *testing.T) {
	m := &message.Message{
		Fid:             []byte{1, 2, 3},
		Type:            message.TypeCastAdd,
		Timestamp:       123456,
		Body:            &message.CastBody{Text: "hello"},
		Hash:            make([]byte, message.HashLen),
		HashScheme:      message.HashSchemeBlake3,
		Signature:       []byte("sig"),
		SignatureScheme: message.SignatureSchemeEd25519,
		Signer:          []byte("signer-key"),
	}
	gm := &GossipMessage{Kind: ContentMessage, Message: m, Topics: []string{TopicPrimary}}

	raw := Encode(gm)
	got, err := Decode(raw)
	require.NoError(t, err)

	assert.Equal(t, ContentMessage, got.Kind)
	assert.Equal(t, []string{TopicPrimary}, got.Topics)
	assert.Equal(t, m.Fid, got.Message.Fid)
	assert.Equal(t, m.Type, got.Message.Type)
	assert.Equal(t, "hello", got.Message.Body.(*message.CastBody).Text)
}

func TestEncodeDecodeIdRegistryEventRoundTrip(t *testing.T) {
	ev := &message.IdRegistryEvent{
		Type:            message.IdRegistryTransfer,
		BlockNumber:     42,
		LogIndex:        3,
		BlockHash:       []byte("block"),
		TransactionHash: []byte("tx"),
		Fid:             []byte{7},
		From:            []byte("addr-a"),
		To:              []byte("addr-b"),
	}
	gm := &GossipMessage{Kind: ContentIdRegistryEvent, IdEvent: ev}

	got, err := Decode(Encode(gm))
	require.NoError(t, err)
	assert.Equal(t, ContentIdRegistryEvent, got.Kind)
	assert.Equal(t, ev.BlockNumber, got.IdEvent.BlockNumber)
	assert.Equal(t, ev.To, got.IdEvent.To)
	assert.Equal(t, ev.From, got.IdEvent.From)
}

func TestEncodeDecodeContactInfoRoundTrip(t *testing.T) {
	gm := &GossipMessage{Kind: ContentContactInfo, Contact: &ContactInfo{RPCAddr: "127.0.0.1:2283"}}
	got, err := Decode(Encode(gm))
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:2283", got.Contact.RPCAddr)
}

func TestDecodeRejectsUnknownKind(t *testing.T) {
	gm := &GossipMessage{Kind: ContentContactInfo, Contact: &ContactInfo{RPCAddr: "x"}}
	raw := Encode(gm)
	raw[0] = 99
	_, err := Decode(raw)
	assert.Error(t, err)
}

func TestDecodeRejectsTruncatedInput(t *testing.T) {
	_, err := Decode([]byte{byte(ContentMessage)})
	assert.Error(t, err)
}
