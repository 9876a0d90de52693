package lifecycle

import (
	"strconv"

	"github.com/danielpatrickdp/entity-profile/internal/profile"
)

// #region constants

// maxInitPercent caps progress while a model is still initializing; 100 means RUNNING.
const maxInitPercent = 99

// DefaultRequiredSamples is the number of model updates before an entity is RUNNING.
const DefaultRequiredSamples = 128

// #endregion constants

// #region estimate

// EstimateProgress computes init progress for an entity that has seen
// updates samples out of requiredSamples. requiredSamples must be > 0.
func EstimateProgress(updates, requiredSamples, intervalMinutes int64) profile.InitProgress {
	if updates < 0 {
		updates = 0
	}
	percent := updates * 100 / requiredSamples
	if percent > maxInitPercent {
		percent = maxInitPercent
	}

	needed := requiredSamples - updates
	if needed < 1 {
		needed = 1
	}

	return profile.InitProgress{
		Percentage:           strconv.FormatInt(percent, 10) + "%",
		NeededSamples:        needed,
		EstimatedMinutesLeft: needed * intervalMinutes,
	}
}

// Complete is the progress reported for a RUNNING entity.
func Complete() profile.InitProgress {
	return profile.InitProgress{Percentage: "100%"}
}

// #endregion estimate
