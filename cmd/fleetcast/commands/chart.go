package commands

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"fleetcast/internal/session"
	"fleetcast/internal/visuals"

	"github.com/pkg/browser"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	chartMonths int
	chartOutput string
	chartOpen   bool
)

var chartPage = template.Must(template.New("chart").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Fleet}} / {{.Profile}}</title>
<script type="module">
import mermaid from "https://cdn.jsdelivr.net/npm/mermaid@11/dist/mermaid.esm.min.mjs";
mermaid.initialize({ startOnLoad: true });
</script>
</head>
<body>
<h1>{{.Fleet}}</h1>
<p>Profile {{.Profile}}: alpha {{.Params.Alpha}}, beta {{.Params.Beta}}, calibration {{printf "%.3f" .Params.CalibrationScale}}, expected total {{printf "%.1f" .Total}}.</p>
{{range .Charts}}<pre class="mermaid">
{{.}}
</pre>
{{end}}</body>
</html>
`))

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Render the forecast as an HTML page with mermaid charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkMonths(chartMonths); err != nil {
			return err
		}
		sess, err := openSession(cfg, cfg.Profile)
		if err != nil {
			return err
		}
		report, err := sess.Report(chartMonths)
		if err != nil {
			return err
		}

		page, err := renderChartPage(report, sess)
		if err != nil {
			return err
		}

		path := chartOutput
		if path == "" {
			path = filepath.Join(cfg.DataPath, "charts", sess.Profile+".html")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return fmt.Errorf("failed to create chart directory: %w", err)
		}
		if err := os.WriteFile(path, page, 0644); err != nil {
			return fmt.Errorf("failed to write chart: %w", err)
		}
		log.Info().Str("path", path).Msg("Chart written")
		fmt.Fprintln(cmd.OutOrStdout(), path)

		if chartOpen {
			return browser.OpenFile(path)
		}
		return nil
	},
}

func renderChartPage(report session.Report, sess *session.Session) ([]byte, error) {
	var charts []string
	for _, c := range []string{
		visuals.GenerateForecastChart(report.Series, report.Baseline.Average),
		visuals.GeneratePopulationChart(report.Population),
		visuals.GenerateBaselineChart(sess.Baseline(), report.Params.Exclusions()),
	} {
		if c != "" {
			charts = append(charts, mermaidBody(c))
		}
	}

	var buf bytes.Buffer
	err := chartPage.Execute(&buf, struct {
		session.Report
		Charts []string
	}{report, charts})
	if err != nil {
		return nil, fmt.Errorf("failed to render chart page: %w", err)
	}
	return buf.Bytes(), nil
}

// mermaidBody strips the markdown fence so the chart can be embedded in HTML.
func mermaidBody(chart string) string {
	chart = strings.TrimPrefix(chart, "```mermaid\n")
	return strings.TrimSuffix(chart, "```")
}

func init() {
	chartCmd.Flags().IntVarP(&chartMonths, "months", "m", 36, "number of monthly bins (at most 600)")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "HTML file to write (defaults to DATA_PATH/charts/<profile>.html)")
	chartCmd.Flags().BoolVar(&chartOpen, "open", false, "open the page in the default browser")
}
