package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"fleetcast/internal/config"
	"fleetcast/internal/fleet"
	"fleetcast/internal/logging"
	"fleetcast/internal/mcp"
	"fleetcast/internal/params"
	"fleetcast/internal/session"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	// Version, Commit, and BuildDate are set at build time via ldflags.
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"

	verbose  bool
	dataFile string
	profile  string
	cfg      *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "fleetcast",
	Short: "fleetcast forecasts field failures of a cohort-structured fleet",
	Long: `Estimates expected failure counts per month for a fleet grouped into monthly
production cohorts, using a Weibull aging curve with countermeasure, end-of-life and
calibration what-ifs. Without a subcommand it runs the MCP server on stdio.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Init(verbose)

		var err error
		cfg, err = config.Load()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load configuration")
		}
		if dataFile != "" {
			cfg.FleetDataFile = dataFile
		}
		if profile != "" {
			cfg.Profile = profile
		}

		log.Info().
			Str("version", Version).
			Str("commit", Commit).
			Str("buildDate", BuildDate).
			Msg("fleetcast starting")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&dataFile, "data", "d", "", "fleet data file (overrides FLEET_DATA_FILE)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "parameter profile (overrides PROFILE)")

	rootCmd.AddCommand(serveCmd, forecastCmd, chartCmd, sweepCmd)
}

func serve(ctx context.Context) error {
	return mcp.NewServer(cfg).Serve(ctx)
}

// checkMonths validates a --months flag before any work is done.
func checkMonths(months int) error {
	if months <= 0 || months > session.MaxMonths {
		return fmt.Errorf("--months must be between 1 and %d, got %d", session.MaxMonths, months)
	}
	return nil
}

// openSession loads the configured fleet file into a session bound to profileName.
func openSession(c *config.AppConfig, profileName string) (*session.Session, error) {
	if c.FleetDataFile == "" {
		return nil, fmt.Errorf("no fleet data file: pass --data or set FLEET_DATA_FILE")
	}
	data, err := fleet.Load(c.FleetDataFile)
	if err != nil {
		return nil, err
	}
	return session.New(data, session.Options{
		Profile:   profileName,
		Store:     params.NewStore(c.ParamsDir),
		Bounds:    c.CalibrationBounds,
		CacheSize: c.HazardCacheSize,
	})
}
