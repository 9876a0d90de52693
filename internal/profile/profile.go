package profile

import "encoding/json"

// #region entity-profile

// EntityProfile is the aggregated, read-only view of one entity.
// Only the entity identity is always present; every other field is set
// only when the corresponding facet was collected.
type EntityProfile struct {
	categoryField string
	entityValue   string

	state        *EntityState
	initProgress *InitProgress
	modelProfile *ModelProfile
	isActive     *bool
	lastActiveMs *int64
	lastSampleMs *int64
}

// CategoryField returns the grouping field the entity value belongs to.
func (p EntityProfile) CategoryField() string { return p.categoryField }

// EntityValue returns the profiled entity value.
func (p EntityProfile) EntityValue() string { return p.entityValue }

func (p EntityProfile) State() (EntityState, bool) {
	if p.state == nil {
		return "", false
	}
	return *p.state, true
}

func (p EntityProfile) InitProgress() (InitProgress, bool) {
	if p.initProgress == nil {
		return InitProgress{}, false
	}
	return *p.initProgress, true
}

func (p EntityProfile) ModelProfile() (ModelProfile, bool) {
	if p.modelProfile == nil {
		return ModelProfile{}, false
	}
	return *p.modelProfile, true
}

func (p EntityProfile) IsActive() (bool, bool) {
	if p.isActive == nil {
		return false, false
	}
	return *p.isActive, true
}

func (p EntityProfile) LastActiveMs() (int64, bool) {
	if p.lastActiveMs == nil {
		return 0, false
	}
	return *p.lastActiveMs, true
}

func (p EntityProfile) LastSampleMs() (int64, bool) {
	if p.lastSampleMs == nil {
		return 0, false
	}
	return *p.lastSampleMs, true
}

// #endregion entity-profile

// #region json

type profileJSON struct {
	CategoryField string        `json:"category_field"`
	EntityValue   string        `json:"value"`
	State         *EntityState  `json:"state,omitempty"`
	InitProgress  *InitProgress `json:"init_progress,omitempty"`
	ModelProfile  *ModelProfile `json:"model,omitempty"`
	IsActive      *bool         `json:"is_active,omitempty"`
	LastActiveMs  *int64        `json:"last_active_timestamp,omitempty"`
	LastSampleMs  *int64        `json:"last_sample_timestamp,omitempty"`
}

// MarshalJSON renders the populated fields only.
func (p EntityProfile) MarshalJSON() ([]byte, error) {
	return json.Marshal(profileJSON{
		CategoryField: p.categoryField,
		EntityValue:   p.entityValue,
		State:         p.state,
		InitProgress:  p.initProgress,
		ModelProfile:  p.modelProfile,
		IsActive:      p.isActive,
		LastActiveMs:  p.lastActiveMs,
		LastSampleMs:  p.lastSampleMs,
	})
}

// #endregion json

// #region merge

// Merge unions two profile fragments. Fields already set in a win; the
// branches that produce fragments never populate the same field, so the
// result does not depend on argument order in practice.
func Merge(a, b EntityProfile) EntityProfile {
	out := a
	if out.categoryField == "" {
		out.categoryField = b.categoryField
	}
	if out.entityValue == "" {
		out.entityValue = b.entityValue
	}
	if out.state == nil {
		out.state = b.state
	}
	if out.initProgress == nil {
		out.initProgress = b.initProgress
	}
	if out.modelProfile == nil {
		out.modelProfile = b.modelProfile
	}
	if out.isActive == nil {
		out.isActive = b.isActive
	}
	if out.lastActiveMs == nil {
		out.lastActiveMs = b.lastActiveMs
	}
	if out.lastSampleMs == nil {
		out.lastSampleMs = b.lastSampleMs
	}
	return out
}

// #endregion merge
