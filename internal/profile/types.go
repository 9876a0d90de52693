package profile

import (
	"fmt"
	"sort"
	"strings"
)

// #region facet

// Facet names one independently resolvable piece of an entity profile.
type Facet string

const (
	FacetState        Facet = "state"
	FacetInitProgress Facet = "init_progress"
	FacetEntityInfo   Facet = "entity_info"
	FacetModels       Facet = "models"
)

// AllFacets lists every facet in display order.
var AllFacets = []Facet{FacetState, FacetInitProgress, FacetEntityInfo, FacetModels}

// ParseFacet maps a name (case-insensitive) to a Facet.
func ParseFacet(name string) (Facet, error) {
	f := Facet(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllFacets {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown profile facet %q", name)
}

// #endregion facet

// #region facet-set

// FacetSet is an unordered set of facets.
type FacetSet map[Facet]struct{}

// NewFacetSet builds a set from the given facets.
func NewFacetSet(facets ...Facet) FacetSet {
	s := make(FacetSet, len(facets))
	for _, f := range facets {
		s[f] = struct{}{}
	}
	return s
}

// ParseFacetSet parses a comma separated facet list such as "state,models".
func ParseFacetSet(list string) (FacetSet, error) {
	s := FacetSet{}
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		f, err := ParseFacet(part)
		if err != nil {
			return nil, err
		}
		s[f] = struct{}{}
	}
	return s, nil
}

// Has reports whether f is in the set.
func (s FacetSet) Has(f Facet) bool {
	_, ok := s[f]
	return ok
}

// Len returns the number of facets.
func (s FacetSet) Len() int {
	return len(s)
}

// StateRelated reports whether STATE or INIT_PROGRESS was requested; the two share one branch.
func (s FacetSet) StateRelated() bool {
	return s.Has(FacetState) || s.Has(FacetInitProgress)
}

func (s FacetSet) String() string {
	names := make([]string, 0, len(s))
	for f := range s {
		names = append(names, string(f))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// #endregion facet-set

// #region entity-state

// EntityState is the lifecycle classification of one entity model.
type EntityState string

const (
	StateUnknown EntityState = "UNKNOWN"
	StateInit    EntityState = "INIT"
	StateRunning EntityState = "RUNNING"
)

// #endregion entity-state

// #region init-progress

// InitProgress reports how far an entity model is through initialization.
type InitProgress struct {
	Percentage           string `json:"percentage"`
	NeededSamples        int64  `json:"needed_shingles"`
	EstimatedMinutesLeft int64  `json:"estimated_minutes_left"`
}

// #endregion init-progress

// #region model-profile

// ModelProfile is the model metadata reported by the node hosting the entity model.
type ModelProfile struct {
	ModelID   string `json:"model_id"`
	NodeID    string `json:"node_id"`
	SizeBytes int64  `json:"model_size_in_bytes"`
}

// #endregion model-profile

// #region request

// Request identifies the entity to profile and the facets to collect.
type Request struct {
	DetectorID  string
	EntityValue string
	Facets      FacetSet
}

// #endregion request
