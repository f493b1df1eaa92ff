package cohort

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Cohort is the number of units that entered service in one production month.
// MonthIndex 0 is the most recent observed month, negative values are history and
// positive values are projected months.
type Cohort struct {
	MonthIndex int `json:"month_index" yaml:"month_index" koanf:"month_index"`
	UnitCount  int `json:"unit_count" yaml:"unit_count" koanf:"unit_count"`
}

// Ledger holds the immutable historical cohorts of one session, ordered by MonthIndex.
type Ledger struct {
	history []Cohort
}

// NewLedger validates and copies the historical cohorts.
func NewLedger(history []Cohort) (Ledger, error) {
	sorted := slices.Clone(history)
	slices.SortFunc(sorted, func(a, b Cohort) int {
		return cmp.Compare(a.MonthIndex, b.MonthIndex)
	})

	for i, c := range sorted {
		if c.UnitCount < 0 {
			return Ledger{}, fmt.Errorf("cohort %d has negative unit count %d", c.MonthIndex, c.UnitCount)
		}
		if c.MonthIndex > 0 {
			return Ledger{}, fmt.Errorf("cohort %d is in the future; historical cohorts must have month index <= 0", c.MonthIndex)
		}
		if i > 0 && sorted[i-1].MonthIndex == c.MonthIndex {
			return Ledger{}, fmt.Errorf("duplicate cohort for month index %d", c.MonthIndex)
		}
	}

	return Ledger{history: sorted}, nil
}

// History returns a copy of the historical cohorts.
func (l Ledger) History() []Cohort {
	return slices.Clone(l.history)
}

func (l Ledger) Len() int {
	return len(l.history)
}

// TrailingMean is the mean unit count of the last window historical cohorts.
// A window <= 0 or larger than the history averages the whole history.
func (l Ledger) TrailingMean(window int) float64 {
	if len(l.history) == 0 {
		return 0
	}
	if window <= 0 || window > len(l.history) {
		window = len(l.history)
	}

	tail := l.history[len(l.history)-window:]
	counts := make([]float64, len(tail))
	for i, c := range tail {
		counts[i] = float64(c.UnitCount)
	}
	return stat.Mean(counts, nil)
}

// Project synthesizes cohorts for month indices 1..horizon from the trailing mean and
// a deterministic perturbation. The result is never stored on the ledger.
func (l Ledger) Project(averageWindow, horizon int, perturb Perturbation) []Cohort {
	if horizon <= 0 {
		return []Cohort{}
	}
	if perturb == nil {
		perturb = NoPerturbation
	}

	mean := l.TrailingMean(averageWindow)
	projected := make([]Cohort, 0, horizon)
	for m := 1; m <= horizon; m++ {
		count := math.Round(mean + perturb(m))
		projected = append(projected, Cohort{MonthIndex: m, UnitCount: int(math.Max(0, count))})
	}
	return projected
}

// WithProjection returns history followed by the projected cohorts.
func (l Ledger) WithProjection(averageWindow, horizon int, perturb Perturbation) []Cohort {
	return append(l.History(), l.Project(averageWindow, horizon, perturb)...)
}

// Perturbation is a deterministic, stateless offset applied to the trailing mean for a
// projected month. It is a placeholder for a production forecast, not a model of one.
type Perturbation func(monthIndex int) float64

// NoPerturbation projects the flat trailing mean.
func NoPerturbation(int) float64 { return 0 }

// PeriodicPerturbation returns amplitude*sin(2*pi*m/period). A non-positive period
// yields NoPerturbation.
func PeriodicPerturbation(amplitude, period float64) Perturbation {
	if period <= 0 || amplitude == 0 {
		return NoPerturbation
	}
	return func(m int) float64 {
		return amplitude * math.Sin(2*math.Pi*float64(m)/period)
	}
}

// TruncationMode selects how cohorts beyond an end-of-life horizon are treated.
type TruncationMode int

const (
	// TruncateGeneration drops cohorts beyond the horizon entirely.
	TruncateGeneration TruncationMode = iota
	// TruncateContribution keeps every month bin but zeroes cohorts beyond the horizon,
	// so consumers get a stable axis.
	TruncateContribution
)

func (m TruncationMode) String() string {
	switch m {
	case TruncateGeneration:
		return "generation"
	case TruncateContribution:
		return "contribution"
	default:
		return fmt.Sprintf("TruncationMode(%d)", int(m))
	}
}

// Truncate applies mode to every cohort whose MonthIndex is strictly greater than horizon.
func Truncate(cohorts []Cohort, horizon int, mode TruncationMode) []Cohort {
	out := make([]Cohort, 0, len(cohorts))
	for _, c := range cohorts {
		if c.MonthIndex > horizon {
			if mode == TruncateGeneration {
				continue
			}
			c.UnitCount = 0
		}
		out = append(out, c)
	}
	return out
}
