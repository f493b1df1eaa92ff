package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"fleetcast/internal/cohort"
	"fleetcast/internal/fleet"
	"fleetcast/internal/forecast"
	"fleetcast/internal/stats"

	"gonum.org/v1/gonum/stat/distuv"
	"gopkg.in/yaml.v3"
)

type GeneratorConfig struct {
	Scenario       string // "steady", "growth" or "spike"
	Months         int    // history length
	BaselineMonths int
	BaseVolume     int
	Hazard         stats.HazardParams
	Calibration    float64 // true model error applied to sampled observations
	Seed           uint64
}

// DefaultConfig is a two-year history with a one-year baseline window.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Scenario:       "steady",
		Months:         24,
		BaselineMonths: 12,
		BaseVolume:     600,
		Hazard:         stats.HazardParams{Alpha: 60, Beta: 3.5},
		Calibration:    1.0,
		Seed:           1,
	}
}

// Generate builds a synthetic fleet. Observed baseline counts are Poisson samples
// around the model's own expected count, so calibrating against them recovers
// roughly cfg.Calibration.
func Generate(cfg GeneratorConfig) (*fleet.Data, error) {
	if cfg.Months <= 0 || cfg.BaseVolume < 0 {
		return nil, fmt.Errorf("months must be > 0 and volume >= 0, got %d and %d", cfg.Months, cfg.BaseVolume)
	}
	if err := cfg.Hazard.Validate(); err != nil {
		return nil, err
	}
	if cfg.Calibration <= 0 {
		cfg.Calibration = 1.0
	}
	if cfg.BaselineMonths <= 0 || cfg.BaselineMonths > cfg.Months {
		cfg.BaselineMonths = cfg.Months
	}

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	history := make([]cohort.Cohort, 0, cfg.Months)
	for i := 0; i < cfg.Months; i++ {
		ratio := float64(i) / float64(cfg.Months)
		volume := float64(cfg.BaseVolume)
		if cfg.Scenario == "growth" {
			volume *= 0.5 + ratio // Ramp 0.5x -> 1.5x
		}
		volume *= 0.9 + rng.Float64()*0.2
		history = append(history, cohort.Cohort{
			MonthIndex: i - (cfg.Months - 1),
			UnitCount:  int(math.Round(volume)),
		})
	}

	spikeAt := 1 // outside the window
	if cfg.Scenario == "spike" {
		spikeAt = -rng.IntN(cfg.BaselineMonths)
	}

	baseline := make([]stats.Observation, 0, cfg.BaselineMonths)
	for offset := -(cfg.BaselineMonths - 1); offset <= 0; offset++ {
		expected, err := forecast.ExpectedCount(offset, history, cfg.Hazard, forecast.NeutralPolicy(), cfg.Calibration)
		if err != nil {
			return nil, err
		}
		count := 0.0
		if expected > 0 {
			count = distuv.Poisson{Lambda: expected, Src: rng}.Rand()
		}
		if cfg.Scenario == "spike" && offset == spikeAt {
			count = count*3 + 20
		}
		baseline = append(baseline, stats.Observation{Offset: offset, Count: count})
	}

	data := &fleet.Data{
		Name:       fmt.Sprintf("mock-%s", cfg.Scenario),
		History:    history,
		Baseline:   baseline,
		Projection: fleet.DefaultProjection(),
	}
	return data, data.Validate()
}

// Save writes data as YAML or JSON depending on the file extension.
func Save(path string, data *fleet.Data) error {
	var out []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		out, err = yaml.Marshal(data)
	case ".json":
		out, err = json.MarshalIndent(data, "", "  ")
	default:
		return fmt.Errorf("unsupported output format: %s", filepath.Ext(path))
	}
	if err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, out, 0644)
}
