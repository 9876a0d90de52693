package store

import "time"

// #region document
// Document is the result of a point lookup. Found is false when the index
// exists but holds no document under the id.
type Document struct {
	Index  string
	ID     string
	Found  bool
	Source []byte
}
// #endregion document

// #region result
// Result is one anomaly result row written for an entity at the end of a
// detector execution.
type Result struct {
	ResultID         string
	DetectorID       string
	EntityField      string
	EntityValue      string
	ExecutionEndTime time.Time
}
// #endregion result

// #region sample-query
// SampleQuery selects the latest execution end time recorded for one entity
// of one detector at or after From.
type SampleQuery struct {
	DetectorID  string
	EntityValue string
	From        time.Time
}
// #endregion sample-query

// #region sample-count
// SampleCount summarizes the stored results of one entity.
type SampleCount struct {
	DetectorID  string
	EntityValue string
	Samples     int64
	LastMs      int64
}
// #endregion sample-count
