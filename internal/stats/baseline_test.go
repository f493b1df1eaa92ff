package stats

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func scenarioWindow() []Observation {
	values := []float64{8, 10, 9, 12, 11, 10, 9, 13, 12, 11, 10, 9}
	window := make([]Observation, len(values))
	for i, v := range values {
		window[i] = Observation{Offset: i - len(values) + 1, Count: v}
	}
	return window
}

func TestFilteredAverage_SpikeExcluded(t *testing.T) {
	window := scenarioWindow()
	spike := window[7]
	if spike.Count != 13 {
		t.Fatalf("fixture drift: expected the spike at index 7 to be 13, got %v", spike.Count)
	}

	res := FilteredAverage(window, NewExclusionSet(spike.Offset))

	sum := 0.0
	for i, o := range window {
		if i != 7 {
			sum += o.Count
		}
	}
	expected := sum / 11

	if math.Abs(res.Average-expected) > 1e-12 {
		t.Errorf("Expected filtered average %v, got %v", expected, res.Average)
	}
	if res.Included != 11 {
		t.Errorf("Expected 11 included observations, got %d", res.Included)
	}
	if diff := cmp.Diff([]int{spike.Offset}, res.Excluded); diff != "" {
		t.Errorf("Excluded offsets mismatch (-want +got):\n%s", diff)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", res.Warnings)
	}
}

func TestFilteredAverage_RecomputedOnToggle(t *testing.T) {
	window := scenarioWindow()
	offset := window[7].Offset

	set := NewExclusionSet()
	full := FilteredAverage(window, set)
	if math.Abs(full.Average-124.0/12.0) > 1e-12 {
		t.Errorf("Expected unfiltered average %v, got %v", 124.0/12.0, full.Average)
	}

	toggled := set.Toggle(offset)
	if set.Contains(offset) {
		t.Error("Toggle must not mutate the original set")
	}
	filtered := FilteredAverage(window, toggled)
	if math.Abs(filtered.Average-111.0/11.0) > 1e-12 {
		t.Errorf("Expected filtered average %v, got %v", 111.0/11.0, filtered.Average)
	}

	restored := FilteredAverage(window, toggled.Toggle(offset))
	if restored.Average != full.Average {
		t.Errorf("Expected toggling twice to restore %v, got %v", full.Average, restored.Average)
	}
}

func TestFilteredAverage_AllExcluded(t *testing.T) {
	window := scenarioWindow()
	offsets := make([]int, len(window))
	for i, o := range window {
		offsets[i] = o.Offset
	}

	res := FilteredAverage(window, NewExclusionSet(offsets...))
	if res.Average != 0 {
		t.Errorf("Expected 0 for a fully excluded window, got %v", res.Average)
	}
	if len(res.Warnings) != 1 {
		t.Errorf("Expected one warning, got %v", res.Warnings)
	}

	empty := FilteredAverage(nil, NewExclusionSet())
	if empty.Average != 0 || len(empty.Warnings) != 1 {
		t.Errorf("Expected 0 with a warning for an empty window, got %+v", empty)
	}
}

func TestExclusionSet_JSON(t *testing.T) {
	set := NewExclusionSet(3, -1, 3, -7)

	data, err := json.Marshal(set)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[-7,-1,3]" {
		t.Errorf("Expected sorted unique offsets, got %s", data)
	}

	var back ExclusionSet
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(set.Offsets(), back.Offsets()); diff != "" {
		t.Errorf("Offsets changed after decoding (-want +got):\n%s", diff)
	}

	if got, _ := json.Marshal(ExclusionSet{}); string(got) != "[]" {
		t.Errorf("Expected empty set to encode as [], got %s", got)
	}
}
