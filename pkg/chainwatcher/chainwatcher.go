// Package chainwatcher feeds on-chain IdRegistry events into the
// identity store (SPEC_FULL §4.7). It is a thin adapter, not a chain
// client: a real log indexer is an external collaborator.
package chainwatcher

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/meridianhub/hub/pkg/message"
)

// ChainEventSource is implemented by whatever indexes IdRegistry contract
// logs; the hub core only ever consumes the channel it returns.
type ChainEventSource interface {
	Events(ctx context.Context) (<-chan *message.IdRegistryEvent, error)
}

// Merger is the identity store's ingestion entry point.
type Merger interface {
	MergeIdRegistryEvent(ctx context.Context, ev *message.IdRegistryEvent) error
}

// Watcher drains a ChainEventSource into a Merger until ctx is canceled,
// logging (not propagating) merge failures — a single malformed or
// conflicting event must not stop the feed, mirroring spec §7's "gossip
// never aborts on a single bad message" applied to the chain feed.
type Watcher struct {
	source ChainEventSource
	merger Merger
	log    *zap.SugaredLogger
}

func New(source ChainEventSource, merger Merger, log *zap.SugaredLogger) *Watcher {
	return &Watcher{source: source, merger: merger, log: log}
}

func (w *Watcher) Run(ctx context.Context) error {
	events, err := w.source.Events(ctx)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := w.merger.MergeIdRegistryEvent(ctx, ev); err != nil {
				w.log.Warnw("dropping id registry event", "fid", ev.Fid, "err", err)
			}
		}
	}
}

// PollingSource is a stub ChainEventSource useful for local development
// and tests: it replays a fixed slice of events at a configurable
// interval rather than reading any real chain (a real log client is out
// of scope per spec §1 Non-goals).
type PollingSource struct {
	Queue    []*message.IdRegistryEvent
	Interval time.Duration
}

func (p *PollingSource) Events(ctx context.Context) (<-chan *message.IdRegistryEvent, error) {
	out := make(chan *message.IdRegistryEvent)
	go func() {
		defer close(out)
		t := time.NewTicker(p.Interval)
		defer t.Stop()
		i := 0
		for i < len(p.Queue) {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				select {
				case out <- p.Queue[i]:
					i++
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
