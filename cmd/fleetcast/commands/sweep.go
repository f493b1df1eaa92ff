package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"fleetcast/internal/config"
	"fleetcast/internal/params"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	sweepProfiles []string
	sweepMonths   int
	sweepParallel int
)

// SweepRow summarizes one profile's forecast.
type SweepRow struct {
	Profile     string
	Total       float64
	Peak        float64
	PeakOffset  int
	Calibration float64
	Baseline    float64
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Compare the forecasts of several stored profiles",
	RunE: func(cmd *cobra.Command, args []string) error {
		profiles := sweepProfiles
		if len(profiles) == 0 {
			var err error
			profiles, err = params.NewStore(cfg.ParamsDir).Profiles()
			if err != nil {
				return err
			}
		}
		if len(profiles) == 0 {
			return fmt.Errorf("no stored profiles in %s", cfg.ParamsDir)
		}

		rows, err := runSweep(cmd.Context(), cfg, profiles, sweepMonths, sweepParallel)
		if err != nil {
			return err
		}
		return writeSweep(cmd.OutOrStdout(), rows)
	},
}

// runSweep evaluates every profile in its own session. Rows keep the order of profiles.
func runSweep(ctx context.Context, c *config.AppConfig, profiles []string, months, parallel int) ([]SweepRow, error) {
	if err := checkMonths(months); err != nil {
		return nil, err
	}
	rows := make([]SweepRow, len(profiles))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}

	for i, name := range profiles {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sess, err := openSession(c, name)
			if err != nil {
				return fmt.Errorf("profile %s: %w", name, err)
			}
			report, err := sess.Report(months)
			if err != nil {
				return fmt.Errorf("profile %s: %w", name, err)
			}

			row := SweepRow{
				Profile:     name,
				Total:       report.Total,
				Calibration: report.Params.CalibrationScale,
				Baseline:    report.Baseline.Average,
			}
			for j, p := range report.Series {
				if j == 0 || p.Expected > row.Peak {
					row.Peak, row.PeakOffset = p.Expected, p.Offset
				}
			}
			rows[i] = row

			log.Debug().Str("profile", name).Float64("total", row.Total).Msg("Profile evaluated")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return rows, nil
}

func writeSweep(w io.Writer, rows []SweepRow) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PROFILE\tTOTAL\tPEAK\tPEAK AT\tCALIBRATION\tBASELINE")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%.1f\t%.2f\t%+d\t%.3f\t%.2f\n", r.Profile, r.Total, r.Peak, r.PeakOffset, r.Calibration, r.Baseline)
	}
	return tw.Flush()
}

func init() {
	sweepCmd.Flags().StringSliceVar(&sweepProfiles, "profiles", nil, "profiles to compare (defaults to every stored profile)")
	sweepCmd.Flags().IntVarP(&sweepMonths, "months", "m", 36, "number of monthly bins (at most 600)")
	sweepCmd.Flags().IntVar(&sweepParallel, "parallel", 4, "maximum profiles evaluated at once (0 = unlimited)")
}
