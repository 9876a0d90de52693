package transport

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/danielpatrickdp/entity-profile/internal/errkind"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
)

// #region constants

const maxRetries = 2 // max 2 retries = 3 total attempts

const retryBackoff = 50 * time.Millisecond

// #endregion

// #region should-retry

// shouldRetry reports whether a failed snapshot call gets another attempt.
// attempts counts the calls made so far, including the failed one. Only
// transport failures are retried; a node that answered with a typed error
// would answer the same way again.
func shouldRetry(ctx context.Context, err error, attempts int) bool {
	if attempts > maxRetries {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	return errkind.KindOf(err) == errkind.Transport
}

// #endregion

// #region call-node

func (f *Fanout) callNode(ctx context.Context, n Node, req snapshot.Request) (snapshot.Snapshot, error) {
	for attempt := 1; ; attempt++ {
		s, err := n.GetSnapshot(ctx, req)
		if err == nil {
			return s, nil
		}
		if !shouldRetry(ctx, err, attempt) {
			return snapshot.Snapshot{}, err
		}
		f.metrics.ObserveSnapshotRPC(n.Name(), "retry")
		f.logger.Debug("retrying snapshot node",
			zap.String("node", n.Name()),
			zap.Int("attempt", attempt),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return snapshot.Snapshot{}, err
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
}

// #endregion
