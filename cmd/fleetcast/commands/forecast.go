package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"fleetcast/internal/session"

	"github.com/spf13/cobra"
)

var (
	forecastMonths int
	forecastStart  int
	forecastOutput string
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Print the forecast report for the stored parameters as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkMonths(forecastMonths); err != nil {
			return err
		}
		sess, err := openSession(cfg, cfg.Profile)
		if err != nil {
			return err
		}

		snap := sess.Params()
		if cmd.Flags().Changed("start") {
			snap = snap.WithMovedMonths(forecastStart)
		}
		report, err := sess.ReportFor(snap, forecastMonths)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if forecastOutput != "" {
			f, err := os.Create(forecastOutput)
			if err != nil {
				return fmt.Errorf("failed to create output file: %w", err)
			}
			defer f.Close()
			out = f
		}
		return writeReport(out, report)
	},
}

func writeReport(w io.Writer, report session.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func init() {
	forecastCmd.Flags().IntVarP(&forecastMonths, "months", "m", 36, "number of monthly bins (at most 600)")
	forecastCmd.Flags().IntVar(&forecastStart, "start", 0, "first month offset (defaults to the stored movedMonths)")
	forecastCmd.Flags().StringVarP(&forecastOutput, "output", "o", "", "write the report to a file instead of stdout")
}
