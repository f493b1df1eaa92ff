package session

import (
	"fmt"
	"slices"
	"sync"

	"fleetcast/internal/cohort"
	"fleetcast/internal/fleet"
	"fleetcast/internal/forecast"
	"fleetcast/internal/params"
	"fleetcast/internal/stats"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"
)

// Options configures a new Session.
type Options struct {
	Profile   string
	Store     *params.Store // nil disables persistence
	Bounds    forecast.Bounds
	CacheSize int
}

type curveKey struct {
	hazard     stats.HazardParams
	maxAge     int
	normalized bool
}

// Session owns one fleet's immutable ledger and baseline window plus the current
// parameter snapshot. Sessions never share state with each other.
type Session struct {
	ID      string
	Profile string
	Fleet   string

	ledger     cohort.Ledger
	baseline   []stats.Observation
	projection fleet.Projection
	bounds     forecast.Bounds
	store      *params.Store
	curves     *lru.Cache[curveKey, []stats.HazardPoint]

	mu   sync.Mutex
	snap params.Snapshot
}

// New builds a session from fleet data and loads the profile's persisted parameters.
func New(data *fleet.Data, opts Options) (*Session, error) {
	ledger, err := data.Ledger()
	if err != nil {
		return nil, err
	}
	if opts.Profile == "" {
		opts.Profile = "default"
	}
	if opts.Bounds == (forecast.Bounds{}) {
		opts.Bounds = forecast.DefaultBounds
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 64
	}

	curves, err := lru.New[curveKey, []stats.HazardPoint](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hazard curve cache: %w", err)
	}

	snap := params.Default()
	if opts.Store != nil {
		loaded, found, err := opts.Store.Load(opts.Profile)
		if err != nil {
			return nil, err
		}
		snap = loaded
		if !found {
			log.Info().Str("profile", opts.Profile).Msg("No stored parameters, starting from defaults")
		}
	}

	s := &Session{
		ID:         uuid.NewString(),
		Profile:    opts.Profile,
		Fleet:      data.Name,
		ledger:     ledger,
		baseline:   slices.Clone(data.Baseline),
		projection: data.Projection,
		bounds:     opts.Bounds,
		store:      opts.Store,
		curves:     curves,
		snap:       snap,
	}

	log.Info().
		Str("session", s.ID).
		Str("fleet", s.Fleet).
		Str("profile", s.Profile).
		Int("cohorts", ledger.Len()).
		Int("baselineMonths", len(s.baseline)).
		Msg("Session opened")
	return s, nil
}

// Params returns the current parameter snapshot. Computations must work on this copy
// so that a concurrent update is never observed half-way.
func (s *Session) Params() params.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.Clone()
}

// Update replaces the snapshot with fn's result and persists it.
func (s *Session) Update(fn func(params.Snapshot) (params.Snapshot, error)) (params.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := fn(s.snap)
	if err != nil {
		return s.snap.Clone(), err
	}
	if err := next.Validate(); err != nil {
		return s.snap.Clone(), err
	}
	if s.store != nil {
		if err := s.store.Save(s.Profile, next); err != nil {
			return s.snap.Clone(), err
		}
	}
	s.snap = next
	return next, nil
}

// History returns the session's historical cohorts.
func (s *Session) History() []cohort.Cohort {
	return s.ledger.History()
}

// Baseline returns the session's trailing observation window.
func (s *Session) Baseline() []stats.Observation {
	return slices.Clone(s.baseline)
}

// Cohorts returns history plus projected cohorts reaching at least lastOffset, with
// the end-of-life horizon applied in mode.
func (s *Session) Cohorts(lastOffset int, policy forecast.Policy, mode cohort.TruncationMode) []cohort.Cohort {
	horizon := max(s.projection.Horizon, lastOffset)
	all := s.ledger.WithProjection(s.projection.AverageWindow, horizon, s.projection.Perturbation())
	return policy.Truncate(all, mode)
}

// MaxMonths bounds month counts, offsets and hazard ages accepted by a session.
const MaxMonths = 600

func checkWindow(startOffset, count int) error {
	if count > MaxMonths {
		return fmt.Errorf("%w: months must be <= %d, got %d", stats.ErrInvalidParameter, MaxMonths, count)
	}
	if startOffset < -MaxMonths || startOffset > MaxMonths {
		return fmt.Errorf("%w: offset must be within [-%d, %d], got %d", stats.ErrInvalidParameter, MaxMonths, MaxMonths, startOffset)
	}
	return nil
}

// ForecastSeries returns expected counts for count months starting at startOffset.
func (s *Session) ForecastSeries(startOffset, count int, hp stats.HazardParams, policy forecast.Policy, calibration float64) ([]forecast.Point, error) {
	if err := checkWindow(startOffset, count); err != nil {
		return nil, err
	}
	cohorts := s.Cohorts(startOffset+count-1, policy, cohort.TruncateGeneration)
	return forecast.Series(startOffset, count, cohorts, hp, policy, calibration)
}

// FieldPopulation returns the number of fielded units at offset.
func (s *Session) FieldPopulation(offset int, policy forecast.Policy) (int, error) {
	if err := checkWindow(offset, 1); err != nil {
		return 0, err
	}
	return forecast.FieldPopulation(offset, s.Cohorts(offset, policy, cohort.TruncateContribution), policy), nil
}

// PopulationSeries returns field population over a fixed set of month bins.
func (s *Session) PopulationSeries(startOffset, count int, policy forecast.Policy) ([]forecast.PopulationPoint, error) {
	if err := checkWindow(startOffset, count); err != nil {
		return nil, err
	}
	cohorts := s.Cohorts(startOffset+count-1, policy, cohort.TruncateContribution)
	return forecast.PopulationSeries(startOffset, count, cohorts, policy), nil
}

// BaselineAverage returns the spike-filtered average of window.
func (s *Session) BaselineAverage(window []stats.Observation, exclusions stats.ExclusionSet) stats.BaselineResult {
	res := stats.FilteredAverage(window, exclusions)
	s.logWarnings("baseline", res.Warnings)
	return res
}

// CalibrationFactor derives the factor that aligns the history-only, uncalibrated
// current-period forecast with observedBaseline.
func (s *Session) CalibrationFactor(observedBaseline float64, hp stats.HazardParams) (forecast.Calibration, error) {
	reference, err := forecast.ReferenceForecast(s.ledger.History(), hp)
	if err != nil {
		return forecast.Calibration{}, err
	}
	res := forecast.DeriveFactor(observedBaseline, reference, s.bounds)
	s.logWarnings("calibration", res.Warnings)
	return res, nil
}

// HazardCurve returns the monthly hazard for ages 0..maxAge, memoized per parameter set.
func (s *Session) HazardCurve(hp stats.HazardParams, maxAge int, normalized bool) ([]stats.HazardPoint, error) {
	if maxAge > MaxMonths {
		return nil, fmt.Errorf("%w: max age must be <= %d, got %d", stats.ErrInvalidParameter, MaxMonths, maxAge)
	}
	key := curveKey{hazard: hp, maxAge: maxAge, normalized: normalized}
	if curve, ok := s.curves.Get(key); ok {
		return slices.Clone(curve), nil
	}

	var curve []stats.HazardPoint
	var err error
	if normalized {
		curve, err = stats.NormalizedHazardCurve(hp, maxAge)
	} else {
		curve, err = stats.HazardCurve(hp, maxAge)
	}
	if err != nil {
		return nil, err
	}

	s.curves.Add(key, curve)
	return slices.Clone(curve), nil
}

func (s *Session) logWarnings(component string, warnings []string) {
	if len(warnings) == 0 {
		return
	}
	log.Warn().
		Str("session", s.ID).
		Str("component", component).
		Strs("warnings", warnings).
		Msg("Degraded result")
}
