package lifecycle

import "github.com/danielpatrickdp/entity-profile/internal/profile"

// #region classify

// Classify maps the current model counters of an entity to a lifecycle state.
// Progress is nil for UNKNOWN. Each call recomputes from scratch; there is no
// transition history.
func Classify(totalUpdates int64, jobEnabled bool, requiredSamples, intervalMinutes int64) (profile.EntityState, *profile.InitProgress) {
	switch {
	case totalUpdates <= 0:
		return profile.StateUnknown, nil
	case !jobEnabled:
		// a stopped job is neither initializing nor running
		return profile.StateUnknown, nil
	case totalUpdates >= requiredSamples:
		done := Complete()
		return profile.StateRunning, &done
	default:
		ip := EstimateProgress(totalUpdates, requiredSamples, intervalMinutes)
		return profile.StateInit, &ip
	}
}

// #endregion classify
