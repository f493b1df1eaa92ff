package mcp

import (
	"fleetcast/internal/forecast"
	"fleetcast/internal/params"
	"fleetcast/internal/stats"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const defaultMonths = 36

type SessionInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
}

type OpenSessionInput struct {
	FleetFile string `json:"fleet_file,omitempty" jsonschema:"Fleet data file (YAML or JSON). Defaults to FLEET_DATA_FILE."`
	Profile   string `json:"profile,omitempty" jsonschema:"Parameter profile to load and persist into. Defaults to PROFILE."`
}

type SessionInfo struct {
	SessionID      string          `json:"session_id"`
	Fleet          string          `json:"fleet"`
	Profile        string          `json:"profile"`
	Cohorts        int             `json:"historical_cohorts"`
	BaselineMonths int             `json:"baseline_months"`
	Params         params.Snapshot `json:"params"`
}

type CloseSessionOutput struct {
	SessionID string `json:"session_id"`
	Remaining int    `json:"remaining_sessions"`
}

type ParamsOutput struct {
	SessionID string          `json:"session_id"`
	Params    params.Snapshot `json:"params"`
}

type SetParametersInput struct {
	SessionID string       `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
	Changes   params.Patch `json:"changes" jsonschema:"Fields to change. Omitted fields keep their value."`
}

type ToggleSpikeInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
	Offset    int    `json:"offset" jsonschema:"Baseline window offset to include or exclude."`
}

type BaselineOutput struct {
	Params   params.Snapshot      `json:"params"`
	Baseline stats.BaselineResult `json:"baseline"`
	Chart    string               `json:"chart,omitempty"`
}

type ForecastInput struct {
	SessionID   string `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
	StartOffset *int   `json:"start_offset,omitempty" jsonschema:"First month offset, within ±600. Defaults to the stored movedMonths."`
	Months      int    `json:"months,omitempty" jsonschema:"Number of monthly bins, at most 600. Defaults to 36."`
}

type ForecastOutput struct {
	Fleet      string                     `json:"fleet"`
	Params     params.Snapshot            `json:"params"`
	Series     []forecast.Point           `json:"series"`
	Population []forecast.PopulationPoint `json:"population"`
	Baseline   stats.BaselineResult       `json:"baseline"`
	Total      float64                    `json:"total_expected"`
	Charts     []string                   `json:"charts,omitempty"`
}

type PopulationInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
	Offset    int    `json:"offset" jsonschema:"Month offset at which to count fielded units, within ±600."`
}

type PopulationOutput struct {
	Offset     int `json:"offset"`
	Population int `json:"population"`
}

type CalibrateInput struct {
	SessionID string   `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
	Observed  *float64 `json:"observed,omitempty" jsonschema:"Observed baseline to align with. Defaults to the spike-filtered baseline average."`
}

type CalibrateOutput struct {
	Calibration forecast.Calibration `json:"calibration"`
	Params      params.Snapshot      `json:"params"`
}

type HazardCurveInput struct {
	SessionID  string   `json:"session_id,omitempty" jsonschema:"Session returned by open_session. May be omitted when exactly one session is open."`
	MaxAge     int      `json:"max_age,omitempty" jsonschema:"Oldest age in months, at most 600. Defaults to 36."`
	Normalized bool     `json:"normalized,omitempty" jsonschema:"Divide every value by the curve's peak."`
	Alpha      *float64 `json:"alpha,omitempty" jsonschema:"Weibull scale override. Defaults to the session's alpha."`
	Beta       *float64 `json:"beta,omitempty" jsonschema:"Weibull shape override. Defaults to the session's beta."`
}

type HazardCurveOutput struct {
	Hazard stats.HazardParams  `json:"hazard"`
	Curve  []stats.HazardPoint `json:"curve"`
	Chart  string              `json:"chart,omitempty"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "open_session",
		Description: "Load a fleet data file and open an analysis session on it. " +
			"Parameters are restored from the named profile. Every other tool addresses the returned session_id.",
	}, s.handleOpenSession)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "close_session",
		Description: "Close a session and release its in-memory state. Parameters already saved to the profile are kept.",
	}, s.handleCloseSession)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "get_parameters",
		Description: "Return the session's current parameter record (hazard shape, countermeasure, end-of-life, calibration, spike exclusions).",
	}, s.handleGetParameters)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "set_parameters",
		Description: "Change one or more parameters. The whole record is validated before it is stored; " +
			"an invalid change is rejected and nothing is modified.",
	}, s.handleSetParameters)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "toggle_spike",
		Description: "Exclude a baseline month as a spike, or include it again if already excluded. Returns the recomputed baseline average.",
	}, s.handleToggleSpike)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "forecast_series",
		Description: "Expected failure counts and field population per month for the current parameters. " +
			"STRICT GUARDRAIL: projected cohort sizes are a placeholder; do NOT present the output as a production forecast.",
	}, s.handleForecastSeries)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "field_population",
		Description: "Number of units in the field at a month offset under the current end-of-life setting.",
	}, s.handleFieldPopulation)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "baseline_average",
		Description: "Average of the observed baseline window with spike months excluded.",
	}, s.handleBaselineAverage)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "calibrate",
		Description: "Derive a calibration factor aligning the model's current-period forecast with an observed baseline and store it. " +
			"This is the only way the calibration scale changes.",
	}, s.handleCalibrate)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "hazard_curve",
		Description: "Monthly hazard by age for the session's (or overridden) Weibull parameters.",
	}, s.handleHazardCurve)
}
