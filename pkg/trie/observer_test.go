package trie

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/message"
)

func TestLeavesUnderReturnsOnlyMatchingSubtree(t *testing.T) {
	tr := New()
	a := syncIDFor(1665182332, 1)
	b := syncIDFor(1665182333, 2)
	other := syncIDFor(2665182332, 3)
	require.NoError(t, tr.Insert(a))
	require.NoError(t, tr.Insert(b))
	require.NoError(t, tr.Insert(other))

	got := tr.LeavesUnder("1")
	ids := make([]string, len(got))
	for i, id := range got {
		ids[i] = string(id)
	}
	sort.Strings(ids)
	assert.ElementsMatch(t, ids, []string{string(a), string(b)})
}

func TestLeavesUnderAbsentPrefix(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Insert(syncIDFor(1665182332, 1)))
	assert.Nil(t, tr.LeavesUnder("9"))
}

func waitUntil(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	stop := time.Now().Add(deadline)
	for time.Now().Before(stop) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

func TestObserverMirrorsMergeAndRevoke(t *testing.T) {
	tr := New()
	bus := eventbus.New()
	obs := NewObserver(tr, bus)
	defer obs.Stop()

	hash := make([]byte, message.HashLen)
	hash[0] = 7
	msg := &message.Message{
		Fid:       []byte{42},
		Type:      message.TypeCastAdd,
		Timestamp: 1665182340,
		Hash:      hash,
	}
	id := NewSyncID(msg.Timestamp, msg.TsHash())

	bus.Publish(eventbus.Event{Type: eventbus.EventMergeMessage, Message: msg})
	waitUntil(t, 2*time.Second, func() bool { return obs.Trie().Exists(id) })

	fid, kind, ok := obs.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, msg.Fid, fid)
	assert.Equal(t, message.TypeCastAdd, kind)

	bus.Publish(eventbus.Event{Type: eventbus.EventRevokeMessage, Message: msg})
	waitUntil(t, 2*time.Second, func() bool { return !obs.Trie().Exists(id) })

	_, _, ok = obs.Lookup(id)
	assert.False(t, ok)
}

func TestObserverMirrorsPrune(t *testing.T) {
	tr := New()
	bus := eventbus.New()
	obs := NewObserver(tr, bus)
	defer obs.Stop()

	hash := make([]byte, message.HashLen)
	hash[0] = 9
	msg := &message.Message{Fid: []byte{1}, Type: message.TypeCastAdd, Timestamp: 1665182341, Hash: hash}
	id := NewSyncID(msg.Timestamp, msg.TsHash())

	bus.Publish(eventbus.Event{Type: eventbus.EventMergeMessage, Message: msg})
	waitUntil(t, 2*time.Second, func() bool { return obs.Trie().Exists(id) })

	bus.Publish(eventbus.Event{Type: eventbus.EventPruneMessage, Message: msg})
	waitUntil(t, 2*time.Second, func() bool { return !obs.Trie().Exists(id) })
}
