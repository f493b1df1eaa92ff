package session

import (
	"fleetcast/internal/forecast"
	"fleetcast/internal/params"
	"fleetcast/internal/stats"

	"gonum.org/v1/gonum/floats"
)

// Report is the full view rendered for the current parameters.
type Report struct {
	Fleet      string                     `json:"fleet"`
	Profile    string                     `json:"profile"`
	Params     params.Snapshot            `json:"params"`
	Series     []forecast.Point           `json:"series"`
	Population []forecast.PopulationPoint `json:"population"`
	Baseline   stats.BaselineResult       `json:"baseline"`
	Total      float64                    `json:"total_expected"`
}

// Report evaluates the current snapshot for count months starting at its MovedMonths
// offset. The snapshot is taken once so every part of the report is consistent.
func (s *Session) Report(count int) (Report, error) {
	snap := s.Params()
	return s.ReportFor(snap, count)
}

// ReportFor evaluates an explicit snapshot without touching the session's own state.
func (s *Session) ReportFor(snap params.Snapshot, count int) (Report, error) {
	if err := snap.Validate(); err != nil {
		return Report{}, err
	}
	policy := snap.Policy()

	series, err := s.ForecastSeries(snap.MovedMonths, count, snap.Hazard(), policy, snap.CalibrationScale)
	if err != nil {
		return Report{}, err
	}
	population, err := s.PopulationSeries(snap.MovedMonths, count, policy)
	if err != nil {
		return Report{}, err
	}

	expected := make([]float64, len(series))
	for i, p := range series {
		expected[i] = p.Expected
	}

	return Report{
		Fleet:      s.Fleet,
		Profile:    s.Profile,
		Params:     snap,
		Series:     series,
		Population: population,
		Baseline:   s.BaselineAverage(s.baseline, snap.Exclusions()),
		Total:      floats.Sum(expected),
	}, nil
}

// ToggleSpike flips one baseline offset in the exclusion set and returns the
// recomputed baseline.
func (s *Session) ToggleSpike(offset int) (params.Snapshot, stats.BaselineResult, error) {
	next, err := s.Update(func(cur params.Snapshot) (params.Snapshot, error) {
		return cur.ToggleSpike(offset), nil
	})
	if err != nil {
		return next, stats.BaselineResult{}, err
	}
	return next, s.BaselineAverage(s.baseline, next.Exclusions()), nil
}

// Calibrate derives a factor against observed (or, when nil, the spike-filtered
// baseline average) and stores it as the snapshot's calibration scale. It is the only
// place the scale changes; nothing recalibrates implicitly.
func (s *Session) Calibrate(observed *float64) (forecast.Calibration, params.Snapshot, error) {
	var cal forecast.Calibration
	next, err := s.Update(func(cur params.Snapshot) (params.Snapshot, error) {
		target := 0.0
		if observed != nil {
			target = *observed
		} else {
			target = s.BaselineAverage(s.baseline, cur.Exclusions()).Average
		}

		var err error
		cal, err = s.CalibrationFactor(target, cur.Hazard())
		if err != nil {
			return cur, err
		}
		return cur.WithCalibration(cal.Factor), nil
	})
	return cal, next, err
}
