package forecast

import (
	"fmt"
	"math"

	"fleetcast/internal/cohort"
	"fleetcast/internal/stats"
)

// Point is one expected-count sample of a forecast series.
type Point struct {
	Offset   int     `json:"offset"`
	Expected float64 `json:"expected"`
}

// PopulationPoint is one field-population sample.
type PopulationPoint struct {
	Offset     int `json:"offset"`
	Population int `json:"population"`
}

// ExpectedCount returns the calibrated expected number of failures in the month at
// targetOffset. Cohorts that do not exist yet at the target month are skipped and
// cohorts beyond an enabled end-of-life horizon contribute nothing.
func ExpectedCount(targetOffset int, cohorts []cohort.Cohort, hp stats.HazardParams, policy Policy, calibration float64) (float64, error) {
	hazard, err := stats.NewHazardFunc(hp)
	if err != nil {
		return 0, err
	}
	if err := policy.Validate(); err != nil {
		return 0, err
	}
	if err := ValidateCalibration(calibration); err != nil {
		return 0, err
	}
	return expectedCount(targetOffset, cohorts, hazard, policy, calibration), nil
}

func expectedCount(targetOffset int, cohorts []cohort.Cohort, hazard stats.HazardFunc, policy Policy, calibration float64) float64 {
	sum := 0.0
	for _, c := range cohorts {
		ageAtTarget := -c.MonthIndex + targetOffset
		if ageAtTarget < 0 {
			continue
		}
		if policy.BeyondHorizon(c.MonthIndex) {
			continue
		}
		sum += float64(c.UnitCount) * hazard(ageAtTarget) * policy.InterventionFactor(c.MonthIndex)
	}
	return sum * calibration
}

// ValidateCalibration rejects a calibration factor that is not a finite positive number.
func ValidateCalibration(c float64) error {
	if !(c > 0) || math.IsInf(c, 0) {
		return fmt.Errorf("%w: calibration factor must be > 0, got %v", stats.ErrInvalidParameter, c)
	}
	return nil
}

// maxTabulatedAge bounds the lookup table built by tabulate.
const maxTabulatedAge = 1 << 16

// tabulate precomputes hazard for every age a cohort can reach by lastOffset.
// Out-of-table ages fall back to the closure.
func tabulate(hazard stats.HazardFunc, cohorts []cohort.Cohort, lastOffset int) stats.HazardFunc {
	maxAge := -1
	for _, c := range cohorts {
		if age := lastOffset - c.MonthIndex; age >= 0 {
			maxAge = max(maxAge, age)
		}
	}
	maxAge = min(maxAge, maxTabulatedAge)
	if maxAge < 0 {
		return hazard
	}
	table := make([]float64, maxAge+1)
	for age := range table {
		table[age] = hazard(age)
	}
	return func(age int) float64 {
		if age >= 0 && age < len(table) {
			return table[age]
		}
		return hazard(age)
	}
}

// Series evaluates ExpectedCount at count consecutive offsets starting at startOffset.
func Series(startOffset, count int, cohorts []cohort.Cohort, hp stats.HazardParams, policy Policy, calibration float64) ([]Point, error) {
	hazard, err := stats.NewHazardFunc(hp)
	if err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateCalibration(calibration); err != nil {
		return nil, err
	}
	if count < 0 {
		count = 0
	}

	hazard = tabulate(hazard, cohorts, startOffset+count-1)
	points := make([]Point, count)
	for i := range points {
		offset := startOffset + i
		points[i] = Point{
			Offset:   offset,
			Expected: expectedCount(offset, cohorts, hazard, policy, calibration),
		}
	}
	return points, nil
}

// FieldPopulation is the number of units in the field at offset: every cohort produced
// at or before offset, except cohorts beyond an enabled end-of-life horizon.
func FieldPopulation(offset int, cohorts []cohort.Cohort, policy Policy) int {
	total := 0
	for _, c := range cohorts {
		if c.MonthIndex > offset || policy.BeyondHorizon(c.MonthIndex) {
			continue
		}
		total += c.UnitCount
	}
	return total
}

// PopulationSeries evaluates FieldPopulation at count consecutive offsets.
func PopulationSeries(startOffset, count int, cohorts []cohort.Cohort, policy Policy) []PopulationPoint {
	if count < 0 {
		count = 0
	}
	points := make([]PopulationPoint, count)
	for i := range points {
		offset := startOffset + i
		points[i] = PopulationPoint{Offset: offset, Population: FieldPopulation(offset, cohorts, policy)}
	}
	return points
}
