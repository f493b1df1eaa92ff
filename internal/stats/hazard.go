package stats

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidParameter is returned when a model parameter is outside its domain.
var ErrInvalidParameter = errors.New("invalid parameter")

// HazardParams holds the Weibull scale (Alpha, in months) and shape (Beta) of the aging curve.
type HazardParams struct {
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
}

// Validate rejects non-positive or non-finite parameters. Clamping is never applied.
func (p HazardParams) Validate() error {
	if !(p.Alpha > 0) || math.IsInf(p.Alpha, 0) {
		return fmt.Errorf("%w: alpha must be > 0, got %v", ErrInvalidParameter, p.Alpha)
	}
	if !(p.Beta > 0) || math.IsInf(p.Beta, 0) {
		return fmt.Errorf("%w: beta must be > 0, got %v", ErrInvalidParameter, p.Beta)
	}
	return nil
}

func (p HazardParams) weibull() distuv.Weibull {
	return distuv.Weibull{K: p.Beta, Lambda: p.Alpha}
}

// HazardPoint is a single sample of the hazard curve.
type HazardPoint struct {
	Age    int     `json:"age"`
	Hazard float64 `json:"hazard"`
}

// CDF returns the probability that a unit has failed by age t (months).
func CDF(t float64, p HazardParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return cdf(t, p.weibull()), nil
}

// MonthlyHazard returns the probability that a unit surviving to age m fails within [m, m+1).
// Ages not yet reached (m < 0) yield 0.
func MonthlyHazard(m int, p HazardParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return monthlyHazard(m, p.weibull()), nil
}

// HazardCurve samples MonthlyHazard for ages 0..maxAge.
func HazardCurve(p HazardParams, maxAge int) ([]HazardPoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if maxAge < 0 {
		return []HazardPoint{}, nil
	}

	w := p.weibull()
	curve := make([]HazardPoint, maxAge+1)
	for age := 0; age <= maxAge; age++ {
		curve[age] = HazardPoint{Age: age, Hazard: monthlyHazard(age, w)}
	}
	return curve, nil
}

// NormalizedHazardCurve scales HazardCurve so that its peak is 1. Only used for plotting.
func NormalizedHazardCurve(p HazardParams, maxAge int) ([]HazardPoint, error) {
	curve, err := HazardCurve(p, maxAge)
	if err != nil {
		return nil, err
	}

	peak := 0.0
	for _, pt := range curve {
		peak = math.Max(peak, pt.Hazard)
	}
	if peak == 0 {
		return curve, nil
	}
	for i := range curve {
		curve[i].Hazard /= peak
	}
	return curve, nil
}

// HazardFunc binds validated parameters so hot loops can skip re-validation.
type HazardFunc func(age int) float64

// NewHazardFunc validates p once and returns the monthly hazard as a closure.
func NewHazardFunc(p HazardParams) (HazardFunc, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	w := p.weibull()
	return func(age int) float64 {
		return monthlyHazard(age, w)
	}, nil
}

func cdf(t float64, w distuv.Weibull) float64 {
	if t <= 0 {
		return 0
	}
	return w.CDF(t)
}

func monthlyHazard(m int, w distuv.Weibull) float64 {
	if m < 0 {
		return 0
	}
	h := cdf(float64(m+1), w) - cdf(float64(m), w)
	return clamp(h, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
