package params

import (
	"fmt"
	"slices"

	"fleetcast/internal/forecast"
	"fleetcast/internal/stats"
)

// Snapshot is the flat, persisted parameter record of one session. It is a value:
// every With* method returns a new Snapshot and leaves the receiver untouched.
type Snapshot struct {
	MovedMonths           int     `json:"movedMonths"`
	Alpha                 float64 `json:"alpha"`
	Beta                  float64 `json:"beta"`
	CalibrationScale      float64 `json:"calibrationScale"`
	CMEffectiveness       float64 `json:"cmEffectiveness"`
	CMStartIndex          int     `json:"cmStartIndex"`
	EOLEnabled            bool    `json:"eolEnabled"`
	EOLHorizonMonths      int     `json:"eolHorizonMonths"`
	SpikeExclusionOffsets []int   `json:"spikeExclusionOffsets"`
	DisplayToggle         bool    `json:"displayToggle"`
}

// Default is the uncalibrated starting point for a new profile.
func Default() Snapshot {
	return Snapshot{
		Alpha:                 60,
		Beta:                  3.5,
		CalibrationScale:      1.0,
		EOLHorizonMonths:      24,
		SpikeExclusionOffsets: []int{},
	}
}

// Validate checks every field the forecast core constrains.
func (s Snapshot) Validate() error {
	if err := s.Hazard().Validate(); err != nil {
		return err
	}
	if err := forecast.ValidateCalibration(s.CalibrationScale); err != nil {
		return err
	}
	if !(s.CMEffectiveness >= 0 && s.CMEffectiveness <= 1) {
		return fmt.Errorf("%w: countermeasure effectiveness must be in [0, 1], got %v", stats.ErrInvalidParameter, s.CMEffectiveness)
	}
	return nil
}

func (s Snapshot) Hazard() stats.HazardParams {
	return stats.HazardParams{Alpha: s.Alpha, Beta: s.Beta}
}

// Policy converts the record into an intervention policy. Effectiveness is the share
// of failures the countermeasure prevents, so the hazard factor is its complement.
func (s Snapshot) Policy() forecast.Policy {
	return forecast.Policy{
		CMStartIndex: s.CMStartIndex,
		CMFactor:     1 - s.CMEffectiveness,
		EOLEnabled:   s.EOLEnabled,
		EOLHorizon:   s.EOLHorizonMonths,
	}
}

func (s Snapshot) Exclusions() stats.ExclusionSet {
	return stats.NewExclusionSet(s.SpikeExclusionOffsets...)
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	next := s
	next.SpikeExclusionOffsets = slices.Clone(s.SpikeExclusionOffsets)
	if next.SpikeExclusionOffsets == nil {
		next.SpikeExclusionOffsets = []int{}
	}
	return next
}

func (s Snapshot) WithHazard(p stats.HazardParams) Snapshot {
	next := s.Clone()
	next.Alpha, next.Beta = p.Alpha, p.Beta
	return next
}

func (s Snapshot) WithCountermeasure(startIndex int, effectiveness float64) Snapshot {
	next := s.Clone()
	next.CMStartIndex, next.CMEffectiveness = startIndex, effectiveness
	return next
}

func (s Snapshot) WithEOL(enabled bool, horizonMonths int) Snapshot {
	next := s.Clone()
	next.EOLEnabled, next.EOLHorizonMonths = enabled, horizonMonths
	return next
}

func (s Snapshot) WithCalibration(scale float64) Snapshot {
	next := s.Clone()
	next.CalibrationScale = scale
	return next
}

func (s Snapshot) WithMovedMonths(months int) Snapshot {
	next := s.Clone()
	next.MovedMonths = months
	return next
}

func (s Snapshot) WithDisplayToggle(on bool) Snapshot {
	next := s.Clone()
	next.DisplayToggle = on
	return next
}

// ToggleSpike flips the exclusion of one baseline offset.
func (s Snapshot) ToggleSpike(offset int) Snapshot {
	next := s.Clone()
	next.SpikeExclusionOffsets = s.Exclusions().Toggle(offset).Offsets()
	return next
}

// Patch is a partial update; nil fields keep their current value.
type Patch struct {
	MovedMonths      *int     `json:"movedMonths,omitempty"`
	Alpha            *float64 `json:"alpha,omitempty"`
	Beta             *float64 `json:"beta,omitempty"`
	CalibrationScale *float64 `json:"calibrationScale,omitempty"`
	CMEffectiveness  *float64 `json:"cmEffectiveness,omitempty"`
	CMStartIndex     *int     `json:"cmStartIndex,omitempty"`
	EOLEnabled       *bool    `json:"eolEnabled,omitempty"`
	EOLHorizonMonths *int     `json:"eolHorizonMonths,omitempty"`
	DisplayToggle    *bool    `json:"displayToggle,omitempty"`
}

// Apply returns a new Snapshot with the patch applied, or an error if the result is invalid.
func (p Patch) Apply(s Snapshot) (Snapshot, error) {
	next := s.Clone()
	if p.MovedMonths != nil {
		next.MovedMonths = *p.MovedMonths
	}
	if p.Alpha != nil {
		next.Alpha = *p.Alpha
	}
	if p.Beta != nil {
		next.Beta = *p.Beta
	}
	if p.CalibrationScale != nil {
		next.CalibrationScale = *p.CalibrationScale
	}
	if p.CMEffectiveness != nil {
		next.CMEffectiveness = *p.CMEffectiveness
	}
	if p.CMStartIndex != nil {
		next.CMStartIndex = *p.CMStartIndex
	}
	if p.EOLEnabled != nil {
		next.EOLEnabled = *p.EOLEnabled
	}
	if p.EOLHorizonMonths != nil {
		next.EOLHorizonMonths = *p.EOLHorizonMonths
	}
	if p.DisplayToggle != nil {
		next.DisplayToggle = *p.DisplayToggle
	}

	if err := next.Validate(); err != nil {
		return s, err
	}
	return next, nil
}
