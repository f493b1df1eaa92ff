package fleet

import (
	"cmp"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"fleetcast/internal/cohort"
	"fleetcast/internal/stats"
)

// EnvPrefix marks environment variables that override fields of a fleet data file,
// e.g. FLEETCAST_PROJECTION__HORIZON=48.
const EnvPrefix = "FLEETCAST_"

// Projection configures how future cohorts are synthesized.
type Projection struct {
	AverageWindow int     `json:"average_window" yaml:"average_window" koanf:"average_window"`
	Horizon       int     `json:"horizon" yaml:"horizon" koanf:"horizon"`
	Amplitude     float64 `json:"amplitude" yaml:"amplitude" koanf:"amplitude"`
	Period        float64 `json:"period" yaml:"period" koanf:"period"`
}

// DefaultProjection averages the last six months and adds a yearly wave.
func DefaultProjection() Projection {
	return Projection{AverageWindow: 6, Horizon: 36, Amplitude: 40, Period: 12}
}

// Perturbation is the deterministic placeholder used for projected cohort sizes.
func (p Projection) Perturbation() cohort.Perturbation {
	return cohort.PeriodicPerturbation(p.Amplitude, p.Period)
}

// Data is the content of a fleet data file: production history, the trailing
// observed baseline and projection settings.
type Data struct {
	Name       string              `json:"name" yaml:"name" koanf:"name"`
	History    []cohort.Cohort     `json:"history" yaml:"history" koanf:"history"`
	Baseline   []stats.Observation `json:"baseline" yaml:"baseline" koanf:"baseline"`
	Projection Projection          `json:"projection" yaml:"projection" koanf:"projection"`
}

// Load reads a YAML or JSON fleet data file and applies FLEETCAST_ environment overrides.
func Load(path string) (*Data, error) {
	var parser koanf.Parser
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported fleet data format: %s", filepath.Ext(path))
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("failed to load fleet data %s: %w", path, err)
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}

	data := Data{Projection: DefaultProjection()}
	if err := k.UnmarshalWithConf("", &data, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode fleet data %s: %w", path, err)
	}
	if data.Name == "" {
		data.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("fleet data %s: %w", path, err)
	}
	data.Baseline = sortedWindow(data.Baseline)
	return &data, nil
}

// Validate checks the history and the baseline window for duplicates.
func (d *Data) Validate() error {
	if _, err := cohort.NewLedger(d.History); err != nil {
		return err
	}
	seen := make(map[int]bool, len(d.Baseline))
	for _, o := range d.Baseline {
		if seen[o.Offset] {
			return fmt.Errorf("duplicate baseline offset %d", o.Offset)
		}
		if o.Count < 0 {
			return fmt.Errorf("baseline offset %d has negative count %v", o.Offset, o.Count)
		}
		seen[o.Offset] = true
	}
	if d.Projection.Horizon < 0 {
		return fmt.Errorf("projection horizon must be >= 0, got %d", d.Projection.Horizon)
	}
	return nil
}

// Ledger builds the session's immutable cohort ledger.
func (d *Data) Ledger() (cohort.Ledger, error) {
	return cohort.NewLedger(d.History)
}

func sortedWindow(window []stats.Observation) []stats.Observation {
	out := slices.Clone(window)
	slices.SortFunc(out, func(a, b stats.Observation) int {
		return cmp.Compare(a.Offset, b.Offset)
	})
	return out
}
