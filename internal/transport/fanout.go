package transport

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/metrics"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
)

// #region fanout-struct
// Fanout scatters one snapshot request to every node and merges the answers.
type Fanout struct {
	nodes   []Node
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewFanout builds a scatter-gather over nodes. A zero timeout leaves the
// caller's deadline in charge. logger and m may be nil.
func NewFanout(nodes []Node, timeout time.Duration, logger *zap.Logger, m *metrics.Collector) *Fanout {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fanout{nodes: nodes, timeout: timeout, logger: logger.Named("fanout"), metrics: m}
}
// #endregion fanout-struct

// #region gather
// GatherSnapshot queries all nodes in parallel. Any node failure fails the
// whole gather with that node's error.
func (f *Fanout) GatherSnapshot(ctx context.Context, req snapshot.Request) (snapshot.Snapshot, error) {
	if len(f.nodes) == 0 {
		return snapshot.Snapshot{}, errkind.New(errkind.Transport, "no snapshot nodes configured")
	}
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	var (
		mu     sync.Mutex
		merged snapshot.Snapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, n := range f.nodes {
		g.Go(func() error {
			s, err := f.callNode(gctx, n, req)
			if err != nil {
				f.metrics.ObserveSnapshotRPC(n.Name(), "error")
				f.logger.Warn("snapshot node failed",
					zap.String("node", n.Name()),
					zap.String("detector_id", req.DetectorID),
					zap.Error(err))
				if errkind.KindOf(err) == errkind.Internal {
					return errkind.Wrap(errkind.Transport, err, "snapshot from "+n.Name())
				}
				return err
			}
			f.metrics.ObserveSnapshotRPC(n.Name(), "ok")
			mu.Lock()
			merged = snapshot.Merge(merged, s)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot.Snapshot{}, err
	}
	return merged, nil
}
// #endregion gather
