// Package syncengine implements spec §4.6: pairwise reconciliation of a
// peer's replica against the local merkle trie, driven by a bounded,
// cancellable breadth-first divergence walk.
package syncengine

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/hubcore"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/trie"
)

// Peer is the subset of the RPC surface (spec §6) the sync engine needs
// from a remote hub: snapshot exchange, sync-id enumeration by prefix,
// and message fetch by sync-id. Concrete implementations live in
// pkg/rpc; tests use an in-memory fake.
type Peer interface {
	GetSnapshot(ctx context.Context, prefix string) (trie.Snapshot, error)
	GetTrieNodesByPrefix(ctx context.Context, prefix string) (trie.NodeMetadata, bool, error)
	GetAllSyncIdsByPrefix(ctx context.Context, prefix string) ([]trie.SyncID, error)
	GetAllMessagesBySyncIds(ctx context.Context, ids []trie.SyncID) ([]*message.Message, error)
}

// Merger is the subset of the engine the sync engine needs to apply
// fetched messages (spec §4.6 step 3: "submit each fetched message
// through the engine").
type Merger interface {
	MergeMessage(ctx context.Context, msg *message.Message) error
}

// TopLevelPrefixLen is how many characters of the current farcaster
// time the initial snapshot exchange truncates to (spec §4.6 step 1).
// Farcaster timestamps are 10 decimal digits (spec §4.5); 8 matches the
// example-pack scenarios (S4/S5), which diverge below the 8th digit.
const TopLevelPrefixLen = 8

// Config bounds a single reconciliation (spec §5 "bounded total
// reconciliation time").
type Config struct {
	TotalTimeout time.Duration
	RPCTimeout   time.Duration
	RPCBackoff   backoff.BackOff
}

func DefaultConfig() Config {
	return Config{
		TotalTimeout: 30 * time.Second,
		RPCTimeout:   5 * time.Second,
		RPCBackoff:   backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3),
	}
}

type Engine struct {
	trie   *trie.Trie
	merger Merger
	bus    *eventbus.Bus
	cfg    Config
}

func New(t *trie.Trie, merger Merger, bus *eventbus.Bus, cfg Config) *Engine {
	if cfg.RPCBackoff == nil {
		cfg.RPCBackoff = DefaultConfig().RPCBackoff
	}
	return &Engine{trie: t, merger: merger, bus: bus, cfg: cfg}
}

// Reconcile implements spec §4.6 end to end against a single peer,
// emitting syncComplete(success) on the bus when it finishes or gives up.
func (e *Engine) Reconcile(ctx context.Context, peer Peer, nowPrefix string) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.TotalTimeout)
	defer cancel()

	start := time.Now()
	success := e.reconcile(ctx, peer, nowPrefix) == nil
	e.bus.Publish(eventbus.Event{Type: eventbus.EventSyncComplete, Success: success, Duration: time.Since(start)})
}

func (e *Engine) reconcile(ctx context.Context, peer Peer, nowPrefix string) error {
	if len(nowPrefix) > TopLevelPrefixLen {
		nowPrefix = nowPrefix[:TopLevelPrefixLen]
	}

	var peerSnap trie.Snapshot
	if err := e.withRetry(ctx, func() error {
		var callErr error
		peerSnap, callErr = e.callPeerSnapshot(ctx, peer, nowPrefix)
		return callErr
	}); err != nil {
		return err // unreachable peer: abandon, syncComplete(false)
	}

	divergencePrefix := e.trie.GetDivergencePrefix(nowPrefix, peerSnap.ExcludedHashes)

	g, gctx := errgroup.WithContext(ctx)
	e.walk(gctx, g, peer, divergencePrefix)
	return g.Wait()
}

func (e *Engine) callPeerSnapshot(ctx context.Context, peer Peer, prefix string) (trie.Snapshot, error) {
	rctx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
	defer cancel()
	return peer.GetSnapshot(rctx, prefix)
}

// withRetry retries f per e.cfg.RPCBackoff, treating only `unavailable`
// HubErrors as retryable (spec §7 "sync engine classifies peer errors as
// retryable (network) or terminal (protocol mismatch)").
func (e *Engine) withRetry(ctx context.Context, f func() error) error {
	op := func() error {
		err := f()
		if err == nil {
			return nil
		}
		if hubcore.IsCode(err, hubcore.CodeUnavailable) {
			return err // retryable
		}
		return backoff.Permanent(err)
	}
	return backoff.Retry(op, backoff.WithContext(e.cfg.RPCBackoff, ctx))
}

// walk implements spec §4.6 step 3: breadth-first over subtrees below
// divergencePrefix, comparing child hashes and either descending or, at
// leaves, pulling and merging the missing sync-ids. Each prefix is
// explored as its own errgroup task so independent subtrees fetch
// concurrently; cancellation of ctx (timeout or a terminal error
// elsewhere in the walk) abandons pending fetches without corrupting
// state, since every fetched message still goes through a full engine
// Merge transaction.
func (e *Engine) walk(ctx context.Context, g *errgroup.Group, peer Peer, prefix string) {
	g.Go(func() error {
		local, ok := e.trie.GetTrieNodeMetadata(prefix)
		remote, remoteOK, err := e.callPeerNodeMetadata(ctx, peer, prefix)
		if err != nil {
			return err
		}
		if !remoteOK {
			return nil // peer has nothing under this prefix; nothing to pull
		}
		if ok && local.Hash == remote.Hash {
			return nil // subtrees already agree
		}

		for digit, remoteChild := range remote.Children {
			localChild, haveLocal := childOf(local, ok, digit)
			if haveLocal && localChild.Hash == remoteChild.Hash {
				continue
			}
			childPrefix := prefix + string(hexDigit(digit))
			if remoteChild.NumMessages <= leafFetchThreshold {
				e.fetchAndMerge(ctx, g, peer, childPrefix)
				continue
			}
			e.walk(ctx, g, peer, childPrefix)
		}
		return nil
	})
}

// leafFetchThreshold bounds how large a subtree the walk will fetch
// wholesale by sync-id rather than continue descending into; above it,
// recursing keeps each individual RPC response small.
const leafFetchThreshold = 64

func childOf(md trie.NodeMetadata, ok bool, digit byte) (trie.ChildSummary, bool) {
	if !ok {
		return trie.ChildSummary{}, false
	}
	c, present := md.Children[digit]
	return c, present
}

func hexDigit(d byte) byte {
	const hexDigits = "0123456789abcdef"
	return hexDigits[d]
}

func (e *Engine) callPeerNodeMetadata(ctx context.Context, peer Peer, prefix string) (trie.NodeMetadata, bool, error) {
	rctx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
	defer cancel()
	return peer.GetTrieNodesByPrefix(rctx, prefix)
}

func (e *Engine) fetchAndMerge(ctx context.Context, g *errgroup.Group, peer Peer, prefix string) {
	g.Go(func() error {
		rctx, cancel := context.WithTimeout(ctx, e.cfg.RPCTimeout)
		defer cancel()
		ids, err := peer.GetAllSyncIdsByPrefix(rctx, prefix)
		if err != nil {
			return err
		}
		var missing []trie.SyncID
		for _, id := range ids {
			if !e.trie.Exists(id) {
				missing = append(missing, id)
			}
		}
		if len(missing) == 0 {
			return nil
		}
		msgs, err := peer.GetAllMessagesBySyncIds(rctx, missing)
		if err != nil {
			return err
		}
		for _, m := range msgs {
			if err := e.merger.MergeMessage(ctx, m); err != nil && !hubcore.IsCode(err, hubcore.CodeValidationFailure) {
				return fmt.Errorf("merging fetched message: %w", err)
			}
		}
		return nil
	})
}
