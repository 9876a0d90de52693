package main

import (
	"fmt"

	"github.com/danielpatrickdp/entity-profile/internal/audit"
	"github.com/danielpatrickdp/entity-profile/internal/metrics"
	"github.com/danielpatrickdp/entity-profile/internal/runner"
	"github.com/danielpatrickdp/entity-profile/internal/store"
	"github.com/danielpatrickdp/entity-profile/internal/transport"
)

// #region peers
// dialPeers opens a snapshot client per configured peer. The returned close
// func releases every connection that was opened.
func dialPeers(peers []string) ([]transport.Node, func(), error) {
	var clients []*transport.SnapshotClient
	closeAll := func() {
		for _, c := range clients {
			_ = c.Close()
		}
	}
	nodes := make([]transport.Node, 0, len(peers))
	for _, addr := range peers {
		c, err := transport.NewSnapshotClient(addr)
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("dial peer %s: %w", addr, err)
		}
		clients = append(clients, c)
		nodes = append(nodes, c)
	}
	return nodes, closeAll, nil
}
// #endregion peers

// #region runner
// newRunner wires the profile runner over the store, the given snapshot
// nodes and the audit log that lives in the same database.
func newRunner(st *store.Store, nodes []transport.Node, m *metrics.Collector) (*runner.Runner, error) {
	log, err := audit.NewLog(st.DB())
	if err != nil {
		return nil, err
	}
	fan := transport.NewFanout(nodes, cfg.RPCTimeout, logger, m)
	return runner.New(st, fan, st, runner.Config{
		RequiredSamples:    cfg.RequiredSamples,
		CategoryFieldLimit: cfg.CategoryFieldLimit,
	},
		runner.WithLogger(logger),
		runner.WithMetrics(m),
		runner.WithAudit(log),
	), nil
}
// #endregion runner
