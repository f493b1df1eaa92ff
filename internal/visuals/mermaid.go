package visuals

import (
	"fmt"
	"math"
	"strings"

	"fleetcast/internal/forecast"
	"fleetcast/internal/stats"
)

// Mermaid's xychart starts overlapping labels at around 60 points.
const maxPoints = 60

func subsampleRate(n int) int {
	if n > maxPoints {
		return int(math.Ceil(float64(n) / maxPoints))
	}
	return 1
}

func offsetLabel(offset int) string {
	return fmt.Sprintf("\"%+d\"", offset)
}

// GenerateForecastChart creates a Mermaid xychart-beta of expected failures per month,
// with the baseline average drawn as a flat reference line when it is positive.
func GenerateForecastChart(series []forecast.Point, baselineAverage float64) string {
	if len(series) == 0 {
		return ""
	}

	maxY := baselineAverage
	for _, p := range series {
		maxY = math.Max(maxY, p.Expected)
	}
	prec := valuePrecision(maxY)

	var labels []string
	var values []string
	var baselines []string

	rate := subsampleRate(len(series))
	for i, p := range series {
		if i%rate != 0 && i != len(series)-1 {
			continue
		}
		labels = append(labels, offsetLabel(p.Offset))
		values = append(values, fmt.Sprintf("%.*f", prec, p.Expected))
		baselines = append(baselines, fmt.Sprintf("%.*f", prec, baselineAverage))
	}

	yMax := fmt.Sprintf("%d", int(math.Max(1, math.Ceil(maxY*1.2))))
	if maxY > 0 && maxY < 1 {
		yMax = fmt.Sprintf("%.*f", prec, maxY*1.2)
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Expected Field Failures per Month\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Failures\" 0 --> %s\n", yMax))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	if baselineAverage > 0 {
		sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(baselines, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

// GeneratePopulationChart creates a Mermaid bar chart of fielded units per month.
func GeneratePopulationChart(series []forecast.PopulationPoint) string {
	if len(series) == 0 {
		return ""
	}

	var labels []string
	var values []string
	maxVal := 0

	rate := subsampleRate(len(series))
	for i, p := range series {
		if p.Population > maxVal {
			maxVal = p.Population
		}
		if i%rate != 0 && i != len(series)-1 {
			continue
		}
		labels = append(labels, offsetLabel(p.Offset))
		values = append(values, fmt.Sprintf("%d", p.Population))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Field Population\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Units\" 0 --> %d\n", maxVal+int(math.Max(1, float64(maxVal)*0.1))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateHazardChart creates a Mermaid line chart of the monthly hazard by age.
// Values are plotted per mille so that small hazards stay readable.
func GenerateHazardChart(curve []stats.HazardPoint, normalized bool) string {
	if len(curve) == 0 {
		return ""
	}

	scale, axis := 1000.0, "Hazard (per mille)"
	if normalized {
		scale, axis = 1.0, "Relative Hazard"
	}

	maxY := 0.0
	for _, p := range curve {
		maxY = math.Max(maxY, p.Hazard*scale)
	}
	prec := max(4, valuePrecision(maxY))

	var labels []string
	var values []string

	rate := subsampleRate(len(curve))
	for i, p := range curve {
		if i%rate != 0 && i != len(curve)-1 {
			continue
		}
		labels = append(labels, fmt.Sprintf("\"%d\"", p.Age))
		values = append(values, fmt.Sprintf("%.*f", prec, p.Hazard*scale))
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Hazard by Age (Months)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"%s\" 0 --> %s\n", axis, formatAxisMax(maxY)))
	sb.WriteString(fmt.Sprintf("    line [%s]\n", strings.Join(values, ", ")))
	sb.WriteString("```")
	return sb.String()
}

// GenerateBaselineChart creates a Mermaid bar chart of the observation window.
// Excluded spike months are plotted in a second series so they stand apart.
func GenerateBaselineChart(window []stats.Observation, exclusions stats.ExclusionSet) string {
	if len(window) == 0 {
		return ""
	}

	var labels []string
	var included []string
	var excluded []string
	maxVal := 0.0

	for _, o := range window {
		labels = append(labels, offsetLabel(o.Offset))
		if exclusions.Contains(o.Offset) {
			included = append(included, "0")
			excluded = append(excluded, fmt.Sprintf("%.1f", o.Count))
		} else {
			included = append(included, fmt.Sprintf("%.1f", o.Count))
			excluded = append(excluded, "0")
		}
		if o.Count > maxVal {
			maxVal = o.Count
		}
	}

	var sb strings.Builder
	sb.WriteString("```mermaid\n")
	sb.WriteString("xychart-beta\n")
	sb.WriteString("    title \"Observed Failures (Baseline Window)\"\n")
	sb.WriteString(fmt.Sprintf("    x-axis [%s]\n", strings.Join(labels, ", ")))
	sb.WriteString(fmt.Sprintf("    y-axis \"Failures\" 0 --> %d\n", int(math.Max(1, math.Ceil(maxVal*1.2)))))
	sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(included, ", ")))
	if exclusions.Len() > 0 {
		sb.WriteString(fmt.Sprintf("    bar [%s]\n", strings.Join(excluded, ", ")))
	}
	sb.WriteString("```")
	return sb.String()
}

func formatAxisMax(v float64) string {
	if v <= 0 {
		return "1"
	}
	if v < 10 {
		return fmt.Sprintf("%.*f", valuePrecision(v), v*1.2)
	}
	return fmt.Sprintf("%d", int(math.Ceil(v*1.2)))
}

// valuePrecision keeps two significant digits for values below one.
func valuePrecision(maxY float64) int {
	if !(maxY > 0) || maxY >= 1 {
		return 2
	}
	return min(8, int(math.Ceil(-math.Log10(maxY)))+2)
}
