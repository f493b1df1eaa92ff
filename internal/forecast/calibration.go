package forecast

import (
	"fmt"
	"math"

	"fleetcast/internal/cohort"
	"fleetcast/internal/stats"
)

// Bounds limits a derived calibration factor.
type Bounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DefaultBounds keeps a noisy reference period from producing a runaway correction.
var DefaultBounds = Bounds{Min: 0.2, Max: 5.0}

// Calibration is the outcome of DeriveFactor.
type Calibration struct {
	Factor    float64  `json:"factor"`
	Raw       float64  `json:"raw_ratio"`
	Clamped   bool     `json:"clamped"`
	Observed  float64  `json:"observed_baseline"`
	Reference float64  `json:"reference_forecast"`
	Warnings  []string `json:"warnings,omitempty"`
}

// DeriveFactor aligns model output with an observed baseline: observed/reference,
// clamped to bounds. A non-positive reference degrades to 1.0 with a warning.
func DeriveFactor(observed, reference float64, bounds Bounds) Calibration {
	res := Calibration{Factor: 1.0, Raw: 1.0, Observed: observed, Reference: reference}

	if !(reference > 0) {
		res.Warnings = append(res.Warnings, fmt.Sprintf("Reference forecast is %v; calibration is meaningless and the factor stays at 1.0.", reference))
		return res
	}

	res.Raw = observed / reference
	res.Factor = math.Max(bounds.Min, math.Min(bounds.Max, res.Raw))
	if res.Factor != res.Raw {
		res.Clamped = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("Raw calibration ratio %.3f was clamped to %.3f.", res.Raw, res.Factor))
	}
	return res
}

// ReferenceForecast is the uncalibrated, history-only forecast for the current period
// under a neutral policy.
func ReferenceForecast(history []cohort.Cohort, hp stats.HazardParams) (float64, error) {
	return ExpectedCount(0, history, hp, NeutralPolicy(), 1.0)
}
