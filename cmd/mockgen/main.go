package main

import (
	"flag"
	"fmt"
	"os"

	"fleetcast/cmd/mockgen/engine"
)

func main() {
	def := engine.DefaultConfig()

	scenario := flag.String("scenario", def.Scenario, "Scenario to generate: steady, growth, spike")
	out := flag.String("out", "./data/fleet.yaml", "Output file (.yaml or .json)")
	months := flag.Int("months", def.Months, "Number of historical production months")
	baseline := flag.Int("baseline", def.BaselineMonths, "Number of observed baseline months")
	volume := flag.Int("volume", def.BaseVolume, "Average units produced per month")
	alpha := flag.Float64("alpha", def.Hazard.Alpha, "Weibull scale used to sample observations")
	beta := flag.Float64("beta", def.Hazard.Beta, "Weibull shape used to sample observations")
	calibration := flag.Float64("calibration", def.Calibration, "True multiplier between model and observations")
	seed := flag.Uint64("seed", def.Seed, "Random seed")
	flag.Parse()

	cfg := def
	cfg.Scenario = *scenario
	cfg.Months = *months
	cfg.BaselineMonths = *baseline
	cfg.BaseVolume = *volume
	cfg.Hazard.Alpha = *alpha
	cfg.Hazard.Beta = *beta
	cfg.Calibration = *calibration
	cfg.Seed = *seed

	fmt.Printf("Generating scenario '%s' (%d months, %d units/month) to %s...\n", cfg.Scenario, cfg.Months, cfg.BaseVolume, *out)

	data, err := engine.Generate(cfg)
	if err != nil {
		fmt.Printf("Failed to generate mock data: %v\n", err)
		os.Exit(1)
	}
	if err := engine.Save(*out, data); err != nil {
		fmt.Printf("Failed to save mock data: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Done.")
}
