package commands

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpc_middleware "github.com/grpc-ecosystem/go-grpc-middleware"
	grpc_zap "github.com/grpc-ecosystem/go-grpc-middleware/logging/zap"
	grpc_recovery "github.com/grpc-ecosystem/go-grpc-middleware/recovery"
	"github.com/libp2p/go-libp2p"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/meridianhub/hub/internal/config"
	"github.com/meridianhub/hub/internal/logging"
	"github.com/meridianhub/hub/internal/metrics"
	"github.com/meridianhub/hub/pkg/chainwatcher"
	"github.com/meridianhub/hub/pkg/engine"
	"github.com/meridianhub/hub/pkg/eventbus"
	"github.com/meridianhub/hub/pkg/kv/mdbx"
	"github.com/meridianhub/hub/pkg/message"
	"github.com/meridianhub/hub/pkg/p2p"
	"github.com/meridianhub/hub/pkg/rpc"
	"github.com/meridianhub/hub/pkg/store"
	"github.com/meridianhub/hub/pkg/syncengine"
	"github.com/meridianhub/hub/pkg/trie"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the hub: ingestion, gossip, gRPC, and peer reconciliation",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	log, err := logging.New(logging.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := mdbx.Open(cfg.DataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	bus := eventbus.New()

	stores := engine.Stores{
		Signer:       store.NewSigner(db, bus, cfg.SignerPruneLimit),
		Cast:         store.NewCast(db, bus, cfg.CastPruneLimit),
		Reaction:     store.NewReaction(db, bus, cfg.ReactionPruneLimit),
		Amp:          store.NewAmp(db, bus, cfg.AmpPruneLimit),
		Verification: store.NewVerification(db, bus, cfg.VerificationPruneLimit),
		UserData:     store.NewUserData(db, bus, cfg.UserDataPruneLimit),
	}

	eng := engine.New(db, bus, stores, engine.Config{ReactionsEnabled: cfg.ReactionsEnabled})

	t := trie.New()
	obs := trie.NewObserver(t, bus)
	defer obs.Stop()

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.Subscribe(bus)
	go serveMetrics(cfg.MetricsAddr, reg, log)

	syncSource := engine.NewSyncSource(obs, stores)
	rpcServer := rpc.NewServer(eng, syncSource)
	gs := grpc.NewServer(grpc.UnaryInterceptor(grpc_middleware.ChainUnaryServer(
		grpc_zap.UnaryServerInterceptor(log.Desugar()),
		grpc_recovery.UnaryServerInterceptor(),
	)))
	rpc.Register(gs, rpcServer)
	lis, err := net.Listen("tcp", cfg.RPCAddr)
	if err != nil {
		return err
	}
	go func() {
		if err := gs.Serve(lis); err != nil {
			log.Warnw("rpc server stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()
	log.Infow("rpc listening", "addr", cfg.RPCAddr)

	host, err := libp2p.New(libp2p.ListenAddrStrings(gossipMultiaddr(cfg.GossipAddr)))
	if err != nil {
		return err
	}
	defer host.Close()

	gossip, err := p2p.Join(ctx, host, eng, log)
	if err != nil {
		return err
	}
	defer gossip.Close()
	go func() {
		if err := gossip.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("gossip loop stopped", "err", err)
		}
	}()

	watcher := chainwatcher.New(&chainwatcher.PollingSource{Interval: time.Minute}, eng, log)
	go func() {
		if err := watcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Warnw("chainwatcher stopped", "err", err)
		}
	}()

	syncEng := syncengine.New(t, eng, bus, syncengine.DefaultConfig())
	go runReconciliationLoop(ctx, syncEng, cfg.Peers, log)

	log.Infow("hub started", "datadir", cfg.DataDir, "network", cfg.Network)
	<-ctx.Done()
	log.Infow("shutting down")
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log *zap.SugaredLogger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warnw("metrics server stopped", "err", err)
	}
}

// gossipMultiaddr turns a "host:port" listen address into the multiaddr
// libp2p expects, defaulting the host to all interfaces.
func gossipMultiaddr(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return "/ip4/0.0.0.0/tcp/2282"
	}
	if host == "" || host == "0.0.0.0" {
		host = "0.0.0.0"
	}
	return "/ip4/" + host + "/tcp/" + port
}

// runReconciliationLoop periodically reconciles against every configured
// peer (spec §4.6), on a fixed interval independent of gossip — gossip
// delivers new messages as they're created, reconciliation catches up
// whatever gossip missed.
func runReconciliationLoop(ctx context.Context, syncEng *syncengine.Engine, peers []string, log *zap.SugaredLogger) {
	if len(peers) == 0 {
		return
	}
	t := time.NewTicker(2 * time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			nowPrefix := farcasterTimePrefix(message.Now())
			for _, addr := range peers {
				client, err := rpc.Dial(addr)
				if err != nil {
					log.Warnw("dial peer failed", "addr", addr, "err", err)
					continue
				}
				syncEng.Reconcile(ctx, client, nowPrefix)
				client.Close()
			}
		}
	}
}

func farcasterTimePrefix(ts uint32) string {
	return fmt.Sprintf("%010d", ts)
}
