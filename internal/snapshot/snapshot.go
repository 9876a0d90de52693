package snapshot

import "github.com/danielpatrickdp/entity-profile/internal/profile"

// #region types

// Request scopes a snapshot lookup to one entity of one detector.
type Request struct {
	DetectorID  string
	EntityValue string
	Facets      profile.FacetSet
}

// Snapshot is the in-memory model state of one entity as reported by the
// node(s) hosting it. Only the fields backing the requested facets are set,
// except TotalUpdates which defaults to zero.
type Snapshot struct {
	TotalUpdates int64
	IsActive     *bool
	LastActiveMs *int64
	ModelProfile *profile.ModelProfile
}

// #endregion types

// #region model-id

// ModelID is the id of the entity model of detectorID for entityValue.
func ModelID(detectorID, entityValue string) string {
	return detectorID + "_entity_" + entityValue
}

// #endregion model-id

// #region merge

// Merge combines the answers of two nodes. A model normally lives on one
// node; when more than one reports it, the highest counters win and the
// model metadata comes from the most recently active copy.
func Merge(a, b Snapshot) Snapshot {
	out := Snapshot{TotalUpdates: max(a.TotalUpdates, b.TotalUpdates)}

	switch {
	case a.IsActive == nil:
		out.IsActive = b.IsActive
	case b.IsActive == nil:
		out.IsActive = a.IsActive
	default:
		v := *a.IsActive || *b.IsActive
		out.IsActive = &v
	}

	aNewer := newer(a.LastActiveMs, b.LastActiveMs)
	if aNewer {
		out.LastActiveMs = a.LastActiveMs
	} else {
		out.LastActiveMs = b.LastActiveMs
	}

	switch {
	case a.ModelProfile == nil:
		out.ModelProfile = b.ModelProfile
	case b.ModelProfile == nil:
		out.ModelProfile = a.ModelProfile
	case aNewer:
		out.ModelProfile = a.ModelProfile
	default:
		out.ModelProfile = b.ModelProfile
	}
	return out
}

// newer reports whether a is at least as recent as b; a set value beats nil.
func newer(a, b *int64) bool {
	if a == nil {
		return b == nil
	}
	if b == nil {
		return true
	}
	return *a >= *b
}

// #endregion merge
