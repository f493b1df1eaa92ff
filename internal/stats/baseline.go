package stats

import (
	"encoding/json"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// Observation is one observed count in the trailing baseline window.
type Observation struct {
	Offset int     `json:"offset" yaml:"offset" koanf:"offset"`
	Count  float64 `json:"observed_count" yaml:"observed_count" koanf:"observed_count"`
}

// ExclusionSet is an operator-curated set of window offsets flagged as spikes.
// It has value semantics: Toggle returns a new set and never alters the receiver.
type ExclusionSet struct {
	offsets []int
}

// NewExclusionSet builds a set from arbitrary offsets; duplicates collapse.
func NewExclusionSet(offsets ...int) ExclusionSet {
	sorted := slices.Clone(offsets)
	slices.Sort(sorted)
	return ExclusionSet{offsets: slices.Compact(sorted)}
}

// Contains reports whether offset is excluded.
func (s ExclusionSet) Contains(offset int) bool {
	_, found := slices.BinarySearch(s.offsets, offset)
	return found
}

// Toggle adds offset when absent and removes it when present.
func (s ExclusionSet) Toggle(offset int) ExclusionSet {
	idx, found := slices.BinarySearch(s.offsets, offset)
	next := slices.Clone(s.offsets)
	if found {
		next = slices.Delete(next, idx, idx+1)
	} else {
		next = slices.Insert(next, idx, offset)
	}
	return ExclusionSet{offsets: next}
}

// Offsets returns the excluded offsets in ascending order.
func (s ExclusionSet) Offsets() []int {
	if s.offsets == nil {
		return []int{}
	}
	return slices.Clone(s.offsets)
}

func (s ExclusionSet) Len() int {
	return len(s.offsets)
}

func (s ExclusionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Offsets())
}

func (s *ExclusionSet) UnmarshalJSON(data []byte) error {
	var offsets []int
	if err := json.Unmarshal(data, &offsets); err != nil {
		return err
	}
	*s = NewExclusionSet(offsets...)
	return nil
}

// BaselineResult is the spike-filtered average over a baseline window.
type BaselineResult struct {
	Average  float64  `json:"average"`
	Included int      `json:"included"`
	Excluded []int    `json:"excluded"`
	Warnings []string `json:"warnings,omitempty"`
}

// FilteredAverage returns the mean of all observations whose offset is not excluded.
// A fully excluded (or empty) window averages 0 and carries a warning.
func FilteredAverage(window []Observation, exclusions ExclusionSet) BaselineResult {
	res := BaselineResult{Excluded: []int{}}

	values := make([]float64, 0, len(window))
	for _, o := range window {
		if exclusions.Contains(o.Offset) {
			res.Excluded = append(res.Excluded, o.Offset)
			continue
		}
		values = append(values, o.Count)
	}

	res.Included = len(values)
	if len(values) == 0 {
		res.Warnings = append(res.Warnings, "Every observation in the baseline window is excluded; the baseline average is 0.")
		return res
	}

	res.Average = stat.Mean(values, nil)
	return res
}
