package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/metrics"
	"github.com/danielpatrickdp/entity-profile/internal/profile"
	"github.com/danielpatrickdp/entity-profile/internal/runner"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
	"github.com/danielpatrickdp/entity-profile/internal/store"
	"github.com/danielpatrickdp/entity-profile/internal/transport"
)

var modelSizeBytes int64

// #region command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a snapshot node with the profile and metrics HTTP endpoints",
	Long: `Starts the gRPC snapshot service for the entity models hosted on this node
and an HTTP listener with:

  GET /detectors/{detector}/entities/{entity}/profile?profiles=state,models
  GET /metrics

Model counters are restored from the local result index on startup.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().Int64Var(&modelSizeBytes, "model-size", 4096, "model size in bytes reported for restored entities")
}
// #endregion command

// #region serve
func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.NewStore(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	cache := snapshot.NewCache(cfg.NodeID)
	if err := restoreCache(ctx, st, cache); err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewCollector(reg)

	peers, closePeers, err := dialPeers(cfg.Peers)
	if err != nil {
		return err
	}
	defer closePeers()
	nodes := append([]transport.Node{transport.Local{Cache: cache}}, peers...)

	r, err := newRunner(st, nodes, m)
	if err != nil {
		return err
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}
	gs := grpc.NewServer()
	transport.NewServer(cache, logger).Register(gs)

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	mux.HandleFunc("GET /detectors/{detector}/entities/{entity}/profile", profileHandler(r))
	hs := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	logger.Info("entity profile node ready",
		zap.String("node_id", cfg.NodeID),
		zap.String("grpc", cfg.ListenAddr),
		zap.String("http", cfg.MetricsAddr),
		zap.Strings("peers", cfg.Peers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gs.Serve(lis)
	})
	g.Go(func() error {
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), 5*time.Second)
		defer cancel()
		gs.GracefulStop()
		return hs.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// restoreCache rebuilds model counters from stored results. A node without a
// result index starts empty.
func restoreCache(ctx context.Context, st *store.Store, cache *snapshot.Cache) error {
	counts, err := st.SampleCounts(ctx)
	if errkind.Is(err, errkind.IndexNotFound) {
		logger.Info("result index hasn't been created, starting with an empty cache")
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore cache: %w", err)
	}
	for _, c := range counts {
		cache.Restore(c.DetectorID, c.EntityValue, c.Samples, modelSizeBytes, time.UnixMilli(c.LastMs))
	}
	logger.Info("restored entity models", zap.Int("entities", len(counts)))
	return nil
}
// #endregion serve

// #region http
func profileHandler(r *runner.Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		facets := profile.NewFacetSet(profile.AllFacets...)
		if list := req.URL.Query().Get("profiles"); list != "" {
			var err error
			if facets, err = profile.ParseFacetSet(list); err != nil {
				writeError(w, errkind.Wrap(errkind.InvalidRequest, err, "profiles"))
				return
			}
		}
		p, err := r.Get(req.Context(), req.PathValue("detector"), req.PathValue("entity"), facets)
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(p)
	}
}

func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch errkind.KindOf(err) {
	case errkind.InvalidRequest:
		code = http.StatusBadRequest
	case errkind.NotFound:
		code = http.StatusNotFound
	case errkind.Transport:
		code = http.StatusBadGateway
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"kind":  string(errkind.KindOf(err)),
	})
}
// #endregion http
