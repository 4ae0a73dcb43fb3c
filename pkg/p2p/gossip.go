// Package p2p binds the gossip transport described in spec §6 (the
// NETWORK_TOPIC_PRIMARY topic) to github.com/libp2p/go-libp2p-pubsub.
// It does no peer scoring, discovery, or BFT handling — all explicitly
// out of scope per spec §1.
package p2p

import (
	"context"

	"github.com/libp2p/go-libp2p/core/host"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"go.uber.org/zap"

	"github.com/meridianhub/hub/pkg/message"
)

// TopicPrimary is spec §6's NETWORK_TOPIC_PRIMARY.
const TopicPrimary = "farcaster-primary"

// ContentKind discriminates GossipMessage.Content's union per spec §6.
type ContentKind uint8

const (
	ContentMessage ContentKind = iota
	ContentIdRegistryEvent
	ContentContactInfo
)

// ContactInfo advertises a peer's RPC endpoint (spec §6).
type ContactInfo struct {
	RPCAddr string
}

// GossipMessage is spec §6's wire envelope:
// GossipMessage{content: message|idRegistryEvent|contactInfo, topics}.
type GossipMessage struct {
	Kind    ContentKind
	Message *message.Message
	IdEvent *message.IdRegistryEvent
	Contact *ContactInfo
	Topics  []string
}

// Merger is the engine's ingestion surface the gossip binding feeds.
type Merger interface {
	MergeMessage(ctx context.Context, msg *message.Message) error
	MergeIdRegistryEvent(ctx context.Context, ev *message.IdRegistryEvent) error
}

// Gossip wraps a single libp2p-pubsub topic join.
type Gossip struct {
	topic  *pubsub.Topic
	sub    *pubsub.Subscription
	merger Merger
	log    *zap.SugaredLogger
}

// Join subscribes h to TopicPrimary via a gossipsub router.
func Join(ctx context.Context, h host.Host, merger Merger, log *zap.SugaredLogger) (*Gossip, error) {
	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		return nil, err
	}
	topic, err := ps.Join(TopicPrimary)
	if err != nil {
		return nil, err
	}
	sub, err := topic.Subscribe()
	if err != nil {
		return nil, err
	}
	return &Gossip{topic: topic, sub: sub, merger: merger, log: log}, nil
}

// Run drains incoming gossip messages until ctx is canceled. A handler
// error for one message is logged and does not abort the loop (spec §7:
// "gossip never aborts on a single bad message").
func (g *Gossip) Run(ctx context.Context) error {
	for {
		raw, err := g.sub.Next(ctx)
		if err != nil {
			return err
		}
		msg, err := Decode(raw.Data)
		if err != nil {
			g.log.Warnw("dropping malformed gossip message", "err", err)
			continue
		}
		if err := g.handle(ctx, msg); err != nil {
			g.log.Warnw("dropping gossip message", "kind", msg.Kind, "err", err)
		}
	}
}

func (g *Gossip) handle(ctx context.Context, msg *GossipMessage) error {
	switch msg.Kind {
	case ContentMessage:
		return g.merger.MergeMessage(ctx, msg.Message)
	case ContentIdRegistryEvent:
		return g.merger.MergeIdRegistryEvent(ctx, msg.IdEvent)
	default:
		return nil // ContactInfo is ignored; reconciliation peers come only from the configured peer list
	}
}

// Publish broadcasts msg to the topic.
func (g *Gossip) Publish(ctx context.Context, msg *GossipMessage) error {
	return g.topic.Publish(ctx, Encode(msg))
}

func (g *Gossip) Close() error {
	g.sub.Cancel()
	return g.topic.Close()
}
