package cohort

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func history(counts ...int) []Cohort {
	out := make([]Cohort, len(counts))
	for i, c := range counts {
		out[i] = Cohort{MonthIndex: i - len(counts) + 1, UnitCount: c}
	}
	return out
}

func TestNewLedger_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cohorts []Cohort
		wantErr bool
	}{
		{"Empty", nil, false},
		{"Valid", history(100, 200, 300), false},
		{"Duplicate", []Cohort{{MonthIndex: -1, UnitCount: 1}, {MonthIndex: -1, UnitCount: 2}}, true},
		{"NegativeCount", []Cohort{{MonthIndex: 0, UnitCount: -5}}, true},
		{"FutureMonth", []Cohort{{MonthIndex: 2, UnitCount: 5}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLedger(tt.cohorts)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewLedger() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewLedger_SortsAndCopies(t *testing.T) {
	input := []Cohort{{MonthIndex: 0, UnitCount: 3}, {MonthIndex: -2, UnitCount: 1}, {MonthIndex: -1, UnitCount: 2}}
	l, err := NewLedger(input)
	if err != nil {
		t.Fatal(err)
	}
	input[0].UnitCount = 999

	want := []Cohort{{MonthIndex: -2, UnitCount: 1}, {MonthIndex: -1, UnitCount: 2}, {MonthIndex: 0, UnitCount: 3}}
	if diff := cmp.Diff(want, l.History()); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}

	extreme, err := NewLedger([]Cohort{{MonthIndex: 0, UnitCount: 1}, {MonthIndex: math.MinInt, UnitCount: 2}, {MonthIndex: -1, UnitCount: 3}})
	if err != nil {
		t.Fatal(err)
	}
	wantExtreme := []Cohort{{MonthIndex: math.MinInt, UnitCount: 2}, {MonthIndex: -1, UnitCount: 3}, {MonthIndex: 0, UnitCount: 1}}
	if diff := cmp.Diff(wantExtreme, extreme.History()); diff != "" {
		t.Errorf("Extreme month indices sorted wrong (-want +got):\n%s", diff)
	}

	h := l.History()
	h[0].UnitCount = 42
	if l.History()[0].UnitCount != 1 {
		t.Error("History() must return a copy")
	}
}

func TestLedger_TrailingMean(t *testing.T) {
	l, _ := NewLedger(history(100, 200, 300, 400))

	tests := []struct {
		window int
		want   float64
	}{
		{2, 350},
		{4, 250},
		{10, 250},
		{0, 250},
		{-3, 250},
	}
	for _, tt := range tests {
		if got := l.TrailingMean(tt.window); got != tt.want {
			t.Errorf("TrailingMean(%d) = %v, want %v", tt.window, got, tt.want)
		}
	}

	empty, _ := NewLedger(nil)
	if got := empty.TrailingMean(3); got != 0 {
		t.Errorf("Expected 0 for empty ledger, got %v", got)
	}
}

func TestLedger_ProjectDeterministic(t *testing.T) {
	l, _ := NewLedger(history(500, 600, 700, 800))
	perturb := PeriodicPerturbation(50, 12)

	first := l.Project(3, 24, perturb)
	second := l.Project(3, 24, perturb)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Projection is not reproducible (-first +second):\n%s", diff)
	}

	if len(first) != 24 {
		t.Fatalf("Expected 24 projected cohorts, got %d", len(first))
	}
	for i, c := range first {
		if c.MonthIndex != i+1 {
			t.Errorf("Expected month index %d, got %d", i+1, c.MonthIndex)
		}
		want := int(math.Max(0, math.Round(700+50*math.Sin(2*math.Pi*float64(i+1)/12))))
		if c.UnitCount != want {
			t.Errorf("Month %d: expected %d units, got %d", c.MonthIndex, want, c.UnitCount)
		}
	}

	if l.Len() != 4 {
		t.Errorf("Projection must not alter the ledger, got %d cohorts", l.Len())
	}
}

func TestLedger_ProjectClampsAtZero(t *testing.T) {
	l, _ := NewLedger(history(10, 10))
	projected := l.Project(2, 12, PeriodicPerturbation(100, 12))
	for _, c := range projected {
		if c.UnitCount < 0 {
			t.Errorf("Month %d: negative unit count %d", c.MonthIndex, c.UnitCount)
		}
	}
	if projected[8].UnitCount != 0 {
		t.Errorf("Expected trough month 9 to clamp to 0, got %d", projected[8].UnitCount)
	}

	if got := l.Project(2, 0, nil); len(got) != 0 {
		t.Errorf("Expected no cohorts for a zero horizon, got %v", got)
	}
	if got := l.Project(2, 3, nil); got[2].UnitCount != 10 {
		t.Errorf("Expected flat projection with nil perturbation, got %v", got)
	}
}

func TestTruncate_Modes(t *testing.T) {
	cohorts := []Cohort{
		{MonthIndex: -1, UnitCount: 10},
		{MonthIndex: 0, UnitCount: 20},
		{MonthIndex: 1, UnitCount: 30},
		{MonthIndex: 2, UnitCount: 40},
		{MonthIndex: 3, UnitCount: 50},
	}

	generation := Truncate(cohorts, 1, TruncateGeneration)
	wantGen := cohorts[:3]
	if diff := cmp.Diff(wantGen, generation); diff != "" {
		t.Errorf("generation truncation mismatch (-want +got):\n%s", diff)
	}

	contribution := Truncate(cohorts, 1, TruncateContribution)
	wantContrib := []Cohort{
		{MonthIndex: -1, UnitCount: 10},
		{MonthIndex: 0, UnitCount: 20},
		{MonthIndex: 1, UnitCount: 30},
		{MonthIndex: 2, UnitCount: 0},
		{MonthIndex: 3, UnitCount: 0},
	}
	if diff := cmp.Diff(wantContrib, contribution); diff != "" {
		t.Errorf("contribution truncation mismatch (-want +got):\n%s", diff)
	}

	if cohorts[4].UnitCount != 50 {
		t.Error("Truncate must not mutate its input")
	}
}
