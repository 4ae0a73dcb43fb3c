// Package eventbus is the per-engine (never-global, per SPEC_FULL §9
// "global mutable state") fan-out of lifecycle events to listeners,
// described in spec §4/§6: mergeMessage, pruneMessage, revokeMessage,
// mergeIdRegistryEvent, syncComplete. Dispatch happens after commit, in
// commit order (spec §5), over buffered channels so a slow listener
// cannot stall the committing goroutine indefinitely.
package eventbus

import (
	"time"

	"github.com/meridianhub/hub/pkg/message"
)

type EventType uint8

const (
	EventMergeMessage EventType = iota
	EventPruneMessage
	EventRevokeMessage
	EventMergeIdRegistryEvent
	EventSyncComplete
)

type Event struct {
	Type     EventType
	Message  *message.Message         // set for MergeMessage/PruneMessage/RevokeMessage
	IdEvent  *message.IdRegistryEvent // set for MergeIdRegistryEvent
	Success  bool                     // set for SyncComplete
	Duration time.Duration            // set for SyncComplete
}

// dispatchTimeout bounds how long the bus waits on a single subscriber's
// channel before dropping that delivery, honoring spec §5's "listeners
// ... must not block indefinitely" without requiring listeners to be
// written defensively themselves.
const dispatchTimeout = 250 * time.Millisecond

type subscriber struct {
	types []EventType
	ch    chan Event
}

func wants(types []EventType, t EventType) bool {
	if len(types) == 0 {
		return true
	}
	for _, want := range types {
		if want == t {
			return true
		}
	}
	return false
}

// Bus is an explicit handle passed to whatever constructs it (engine,
// syncengine, rpc server) — never a package-level singleton.
type Bus struct {
	subs []*subscriber
}

func New() *Bus {
	return &Bus{}
}

// Subscribe registers ch to receive events of the given types (or all
// events if types is empty), mirroring the RPC surface's
// subscribe(EventType…) of spec §6. The returned channel is buffered;
// callers should drain it promptly.
func (b *Bus) Subscribe(types ...EventType) <-chan Event {
	ch := make(chan Event, 64)
	b.subs = append(b.subs, &subscriber{types: types, ch: ch})
	return ch
}

// Publish fans e out to every interested subscriber, dropping (not
// blocking on) any subscriber whose channel is full past dispatchTimeout.
func (b *Bus) Publish(e Event) {
	for _, s := range b.subs {
		if !wants(s.types, e.Type) {
			continue
		}
		select {
		case s.ch <- e:
		case <-time.After(dispatchTimeout):
			// Slow listener; drop this delivery rather than stall the
			// committing goroutine. Per spec §5 this is the caller's
			// responsibility to avoid, not ours to enforce harder.
		}
	}
}
