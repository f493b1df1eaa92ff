package forecast

import (
	"fmt"

	"fleetcast/internal/cohort"
	"fleetcast/internal/stats"
)

// Policy describes a countermeasure cutoff and an optional end-of-life horizon.
// Both boundaries are strict: only cohorts with MonthIndex > CMStartIndex get CMFactor,
// and only cohorts with MonthIndex > EOLHorizon are cut off.
type Policy struct {
	CMStartIndex int     `json:"cm_start_index"`
	CMFactor     float64 `json:"cm_factor"`
	EOLEnabled   bool    `json:"eol_enabled"`
	EOLHorizon   int     `json:"eol_horizon"`
}

// NeutralPolicy applies no countermeasure and no end-of-life horizon.
func NeutralPolicy() Policy {
	return Policy{CMFactor: 1.0}
}

// Validate rejects a CMFactor outside [0, 1].
func (p Policy) Validate() error {
	if !(p.CMFactor >= 0 && p.CMFactor <= 1) {
		return fmt.Errorf("%w: cm factor must be in [0, 1], got %v", stats.ErrInvalidParameter, p.CMFactor)
	}
	return nil
}

// InterventionFactor is the hazard multiplier for a cohort produced in monthIndex.
func (p Policy) InterventionFactor(monthIndex int) float64 {
	if monthIndex > p.CMStartIndex {
		return p.CMFactor
	}
	return 1.0
}

// BeyondHorizon reports whether a cohort is cut off by the end-of-life horizon.
func (p Policy) BeyondHorizon(monthIndex int) bool {
	return p.EOLEnabled && monthIndex > p.EOLHorizon
}

// Truncate applies the end-of-life horizon to cohorts using mode; it is a no-op when
// end-of-life is disabled.
func (p Policy) Truncate(cohorts []cohort.Cohort, mode cohort.TruncationMode) []cohort.Cohort {
	if !p.EOLEnabled {
		return cohorts
	}
	return cohort.Truncate(cohorts, p.EOLHorizon, mode)
}
