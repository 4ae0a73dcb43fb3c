package trie

import (
	"sync"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/message"
)

// Observer mirrors merge/prune/revoke events into a Trie in commit order
// (spec §4.4 step 5, §5 "the trie mirror observes ... in commit order").
// It is the only writer the trie ever sees — spec §5's "the trie ...
// must be mutated only by the sync-engine observer on the event stream".
//
// Alongside the trie it keeps a small side index from sync-id back to the
// (fid, type) that produced it. A sync-id alone (timestamp+tsHash, spec
// §4.5) doesn't carry either, and since this is the only component that
// sees every merge as it happens, it's the natural place to remember it
// for the sync engine's pull-by-sync-id path (spec §6's
// getAllMessagesBySyncIds).
type Observer struct {
	trie *Trie
	ch   <-chan eventbus.Event
	done chan struct{}

	mu    sync.RWMutex
	index map[SyncID]indexEntry
}

type indexEntry struct {
	fid  []byte
	kind message.Type
}

// NewObserver subscribes to the bus's merge/prune/revoke events and
// starts the single goroutine that serializes them into t.
func NewObserver(t *Trie, bus *eventbus.Bus) *Observer {
	ch := bus.Subscribe(eventbus.EventMergeMessage, eventbus.EventPruneMessage, eventbus.EventRevokeMessage)
	o := &Observer{trie: t, ch: ch, done: make(chan struct{}), index: make(map[SyncID]indexEntry)}
	go o.run()
	return o
}

// Trie returns the mirrored trie. Safe to read concurrently with the
// observer goroutine; readers never mutate it.
func (o *Observer) Trie() *Trie { return o.trie }

// Lookup resolves a sync-id back to the fid and message type that
// produced it, if this observer has seen it merged and not since pruned
// or revoked.
func (o *Observer) Lookup(id SyncID) (fid []byte, kind message.Type, ok bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.index[id]
	return e.fid, e.kind, ok
}

func (o *Observer) run() {
	for {
		select {
		case e, ok := <-o.ch:
			if !ok {
				close(o.done)
				return
			}
			if e.Message == nil {
				continue
			}
			id := NewSyncID(e.Message.Timestamp, e.Message.TsHash())
			switch e.Type {
			case eventbus.EventMergeMessage:
				_ = o.trie.Insert(id)
				o.mu.Lock()
				o.index[id] = indexEntry{fid: e.Message.Fid, kind: e.Message.Type}
				o.mu.Unlock()
			case eventbus.EventPruneMessage, eventbus.EventRevokeMessage:
				_ = o.trie.Delete(id)
				o.mu.Lock()
				delete(o.index, id)
				o.mu.Unlock()
			}
		case <-o.done:
			return
		}
	}
}

// Stop ends the observer goroutine. Safe to call once.
func (o *Observer) Stop() { close(o.done) }
