package forecast

import (
	"errors"
	"math"
	"testing"

	"fleetcast/internal/cohort"
	"fleetcast/internal/stats"
)

var defaultHazard = stats.HazardParams{Alpha: 60, Beta: 3.5}

func fleet() []cohort.Cohort {
	l, _ := cohort.NewLedger([]cohort.Cohort{
		{MonthIndex: -11, UnitCount: 420},
		{MonthIndex: -10, UnitCount: 510},
		{MonthIndex: -9, UnitCount: 480},
		{MonthIndex: -8, UnitCount: 530},
		{MonthIndex: -7, UnitCount: 610},
		{MonthIndex: -6, UnitCount: 500},
		{MonthIndex: -5, UnitCount: 640},
		{MonthIndex: -4, UnitCount: 700},
		{MonthIndex: -3, UnitCount: 690},
		{MonthIndex: -2, UnitCount: 720},
		{MonthIndex: -1, UnitCount: 760},
		{MonthIndex: 0, UnitCount: 800},
	})
	return l.WithProjection(6, 24, cohort.PeriodicPerturbation(40, 12))
}

func TestExpectedCount_SingleNewCohort(t *testing.T) {
	cohorts := []cohort.Cohort{{MonthIndex: 0, UnitCount: 800}}

	got, err := ExpectedCount(0, cohorts, defaultHazard, NeutralPolicy(), 1.0)
	if err != nil {
		t.Fatal(err)
	}

	hazard := 1 - math.Exp(-math.Pow(1.0/60.0, 3.5))
	want := 800 * hazard
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestExpectedCount_CountermeasureBoundaryIsStrict(t *testing.T) {
	older := cohort.Cohort{MonthIndex: -6, UnitCount: 500}
	cutoff := cohort.Cohort{MonthIndex: 0, UnitCount: 800}
	policy := Policy{CMStartIndex: -6, CMFactor: 0.5}

	// The cutoff cohort itself is not strictly after the cutoff.
	olderWith, _ := ExpectedCount(0, []cohort.Cohort{older}, defaultHazard, policy, 1.0)
	olderWithout, _ := ExpectedCount(0, []cohort.Cohort{older}, defaultHazard, NeutralPolicy(), 1.0)
	if olderWith != olderWithout {
		t.Errorf("monthIndex -6 must be unaffected by a cutoff at -6: got %v, want %v", olderWith, olderWithout)
	}

	newerWith, _ := ExpectedCount(0, []cohort.Cohort{cutoff}, defaultHazard, policy, 1.0)
	newerWithout, _ := ExpectedCount(0, []cohort.Cohort{cutoff}, defaultHazard, NeutralPolicy(), 1.0)
	if newerWith != 0.5*newerWithout {
		t.Errorf("monthIndex 0 must be halved: got %v, want %v", newerWith, 0.5*newerWithout)
	}

	both, _ := ExpectedCount(0, []cohort.Cohort{older, cutoff}, defaultHazard, policy, 1.0)
	if math.Abs(both-(olderWithout+0.5*newerWithout)) > 1e-15 {
		t.Errorf("Expected combined %v, got %v", olderWithout+0.5*newerWithout, both)
	}

	if policy.InterventionFactor(-6) != 1.0 || policy.InterventionFactor(-5) != 0.5 {
		t.Errorf("InterventionFactor boundary is wrong: %v at -6, %v at -5", policy.InterventionFactor(-6), policy.InterventionFactor(-5))
	}
}

func TestExpectedCount_LinearInCalibration(t *testing.T) {
	cohorts := fleet()
	policy := Policy{CMStartIndex: 3, CMFactor: 0.7}

	base, err := ExpectedCount(6, cohorts, defaultHazard, policy, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if base <= 0 {
		t.Fatalf("Expected a positive base forecast, got %v", base)
	}

	for _, k := range []float64{0.2, 0.5, 1.7, 3, 5} {
		got, _ := ExpectedCount(6, cohorts, defaultHazard, policy, k)
		if math.Abs(got-k*base) > 1e-12*math.Max(1, k*base) {
			t.Errorf("calibration %v: expected %v, got %v", k, k*base, got)
		}
	}
}

func TestExpectedCount_EmptyCohorts(t *testing.T) {
	for offset := -12; offset <= 36; offset++ {
		got, err := ExpectedCount(offset, nil, defaultHazard, Policy{CMStartIndex: 2, CMFactor: 0.1, EOLEnabled: true}, 2.5)
		if err != nil {
			t.Fatal(err)
		}
		if got != 0 {
			t.Errorf("Expected 0 at offset %d for empty cohorts, got %v", offset, got)
		}
	}

	if pop := FieldPopulation(5, nil, NeutralPolicy()); pop != 0 {
		t.Errorf("Expected 0 population for empty cohorts, got %d", pop)
	}
}

func TestExpectedCount_NeutralCountermeasureIgnoresCutoff(t *testing.T) {
	cohorts := fleet()
	reference, _ := ExpectedCount(12, cohorts, defaultHazard, NeutralPolicy(), 1.0)

	for _, start := range []int{-20, -6, 0, 5, 30} {
		got, _ := ExpectedCount(12, cohorts, defaultHazard, Policy{CMStartIndex: start, CMFactor: 1.0}, 1.0)
		if got != reference {
			t.Errorf("cmStartIndex %d changed a neutral forecast: got %v, want %v", start, got, reference)
		}
	}
}

func TestExpectedCount_SkipsUnbornCohorts(t *testing.T) {
	cohorts := []cohort.Cohort{{MonthIndex: 3, UnitCount: 1000}}
	got, _ := ExpectedCount(2, cohorts, defaultHazard, NeutralPolicy(), 1.0)
	if got != 0 {
		t.Errorf("A cohort produced at +3 must not contribute at +2, got %v", got)
	}

	got, _ = ExpectedCount(3, cohorts, defaultHazard, NeutralPolicy(), 1.0)
	if got <= 0 {
		t.Errorf("A cohort produced at +3 must contribute at +3, got %v", got)
	}
}

func TestExpectedCount_EOLZeroesLateCohorts(t *testing.T) {
	cohorts := fleet()
	policy := Policy{CMFactor: 1.0, EOLEnabled: true, EOLHorizon: 6}

	got, _ := ExpectedCount(18, cohorts, defaultHazard, policy, 1.0)
	truncated, _ := ExpectedCount(18, cohort.Truncate(cohorts, 6, cohort.TruncateGeneration), defaultHazard, NeutralPolicy(), 1.0)
	if got != truncated {
		t.Errorf("Expected EOL forecast %v to match generation-truncated forecast %v", got, truncated)
	}
}

func TestExpectedCount_InvalidParameters(t *testing.T) {
	cohorts := fleet()

	if _, err := ExpectedCount(0, cohorts, stats.HazardParams{Alpha: 0, Beta: 3}, NeutralPolicy(), 1); !errors.Is(err, stats.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for alpha=0, got %v", err)
	}
	if _, err := ExpectedCount(0, cohorts, defaultHazard, Policy{CMFactor: 1.5}, 1); !errors.Is(err, stats.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter for cmFactor=1.5, got %v", err)
	}
	if _, err := Series(0, 3, cohorts, stats.HazardParams{Alpha: 10, Beta: -1}, NeutralPolicy(), 1); !errors.Is(err, stats.ErrInvalidParameter) {
		t.Errorf("Expected ErrInvalidParameter from Series, got %v", err)
	}

	single := []cohort.Cohort{{MonthIndex: -12, UnitCount: 800}}
	for _, c := range []float64{-2, 0, math.NaN(), math.Inf(1)} {
		got, err := ExpectedCount(0, single, defaultHazard, NeutralPolicy(), c)
		if !errors.Is(err, stats.ErrInvalidParameter) {
			t.Errorf("calibration %v: expected ErrInvalidParameter, got %v (value %v)", c, err, got)
		}
		if _, err := Series(0, 3, single, defaultHazard, NeutralPolicy(), c); !errors.Is(err, stats.ErrInvalidParameter) {
			t.Errorf("calibration %v: expected ErrInvalidParameter from Series, got %v", c, err)
		}
	}
}

func TestSeries_MatchesPointwiseExpectedCount(t *testing.T) {
	cohorts := fleet()
	policy := Policy{CMStartIndex: 2, CMFactor: 0.6, EOLEnabled: true, EOLHorizon: 10}

	series, err := Series(-12, 60, cohorts, defaultHazard, policy, 1.3)
	if err != nil {
		t.Fatal(err)
	}
	for _, p := range series {
		want, _ := ExpectedCount(p.Offset, cohorts, defaultHazard, policy, 1.3)
		if math.Abs(p.Expected-want) > 1e-12*math.Max(1, want) {
			t.Errorf("offset %d: series %v, pointwise %v", p.Offset, p.Expected, want)
		}
	}
}

func TestFieldPopulation(t *testing.T) {
	cohorts := []cohort.Cohort{
		{MonthIndex: -2, UnitCount: 100},
		{MonthIndex: -1, UnitCount: 200},
		{MonthIndex: 0, UnitCount: 300},
		{MonthIndex: 1, UnitCount: 400},
		{MonthIndex: 2, UnitCount: 500},
	}

	tests := []struct {
		name   string
		offset int
		policy Policy
		want   int
	}{
		{"PastOnly", -1, NeutralPolicy(), 300},
		{"Now", 0, NeutralPolicy(), 600},
		{"Future", 2, NeutralPolicy(), 1500},
		{"EOLAtHorizon", 1, Policy{CMFactor: 1, EOLEnabled: true, EOLHorizon: 1}, 1000},
		{"EOLBeyondHorizon", 5, Policy{CMFactor: 1, EOLEnabled: true, EOLHorizon: 1}, 1000},
		{"EOLDisabledIgnoresHorizon", 5, Policy{CMFactor: 1, EOLEnabled: false, EOLHorizon: 1}, 1500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FieldPopulation(tt.offset, cohorts, tt.policy); got != tt.want {
				t.Errorf("FieldPopulation(%d) = %d, want %d", tt.offset, got, tt.want)
			}
		})
	}
}

func TestFieldPopulation_StopsGrowingPastHorizon(t *testing.T) {
	cohorts := fleet()
	for _, h := range []int{-3, 0, 4, 12} {
		policy := Policy{CMFactor: 1, EOLEnabled: true, EOLHorizon: h}
		atHorizon := FieldPopulation(h, cohorts, policy)
		for offset := h + 1; offset <= 30; offset++ {
			if got := FieldPopulation(offset, cohorts, policy); got != atHorizon {
				t.Errorf("horizon %d: population at %d is %d, want %d", h, offset, got, atHorizon)
			}
		}
	}
}

func TestSeries_Deterministic(t *testing.T) {
	cohorts := fleet()
	policy := Policy{CMStartIndex: 2, CMFactor: 0.4, EOLEnabled: true, EOLHorizon: 18}

	a, err := Series(-3, 30, cohorts, defaultHazard, policy, 1.3)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Series(-3, 30, cohorts, defaultHazard, policy, 1.3)

	if len(a) != 30 {
		t.Fatalf("Expected 30 points, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("point %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
		want, _ := ExpectedCount(a[i].Offset, cohorts, defaultHazard, policy, 1.3)
		if a[i].Expected != want {
			t.Errorf("point %d: Series gave %v, ExpectedCount gave %v", i, a[i].Expected, want)
		}
	}

	if empty, _ := Series(0, -4, cohorts, defaultHazard, policy, 1); len(empty) != 0 {
		t.Errorf("Expected no points for a negative count, got %d", len(empty))
	}
}

func TestPopulationSeries_ContributionBins(t *testing.T) {
	cohorts := fleet()
	policy := Policy{CMFactor: 1, EOLEnabled: true, EOLHorizon: 6}

	binned := policy.Truncate(cohorts, cohort.TruncateContribution)
	if len(binned) != len(cohorts) {
		t.Fatalf("Contribution truncation must keep every bin: got %d, want %d", len(binned), len(cohorts))
	}

	points := PopulationSeries(0, 24, binned, policy)
	for _, p := range points {
		if p.Population != FieldPopulation(p.Offset, cohorts, policy) {
			t.Errorf("offset %d: binned population %d differs from direct %d", p.Offset, p.Population, FieldPopulation(p.Offset, cohorts, policy))
		}
	}
}
