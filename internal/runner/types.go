package runner

// #region imports
import (
	"context"

	"github.com/danielpatrickdp/entity-profile/internal/audit"
	"github.com/danielpatrickdp/entity-profile/internal/snapshot"
	"github.com/danielpatrickdp/entity-profile/internal/store"
)

// #endregion

// #region messages

const (
	msgNoFacets           = "profiles to collect are missing or invalid"
	msgNotHighCardinality = "this is not a high cardinality detector"
	msgTooManyCategories  = "we don't support categorical fields more than %d"
	msgDetectorNotFound   = "can't find detector with id: %s"
	msgProfileFailed      = "fail to get profile for detector %s"
	msgFetchFailed        = "fail to fetch profile for entity %s of detector %s"
)

// DefaultCategoryFieldLimit is the maximum number of category fields a detector may declare.
const DefaultCategoryFieldLimit = 2

// #endregion

// #region ports

// DocumentFetcher loads stored detector and job documents.
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, index, id string) (store.Document, error)
}

// SnapshotGatherer runs the scatter-gather request for an entity's model state.
type SnapshotGatherer interface {
	GatherSnapshot(ctx context.Context, req snapshot.Request) (snapshot.Snapshot, error)
}

// SampleSearcher finds the latest completed execution time for an entity.
type SampleSearcher interface {
	LatestSampleTime(ctx context.Context, q store.SampleQuery) (*int64, error)
}

// Recorder persists one entry per terminal delivery.
type Recorder interface {
	Record(ctx context.Context, e audit.Entry) error
}

// #endregion

// #region config

// Config holds the detector-wide limits the runner enforces.
type Config struct {
	RequiredSamples    int64
	CategoryFieldLimit int
}

// #endregion
