package mcp

import (
	"context"

	"fleetcast/internal/visuals"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"
)

func (s *Server) handleOpenSession(ctx context.Context, req *mcp.CallToolRequest, in OpenSessionInput) (*mcp.CallToolResult, SessionInfo, error) {
	sess, err := s.openSession(in.FleetFile, in.Profile)
	if err != nil {
		return nil, SessionInfo{}, err
	}
	return nil, SessionInfo{
		SessionID:      sess.ID,
		Fleet:          sess.Fleet,
		Profile:        sess.Profile,
		Cohorts:        len(sess.History()),
		BaselineMonths: len(sess.Baseline()),
		Params:         sess.Params(),
	}, nil
}

func (s *Server) handleCloseSession(ctx context.Context, req *mcp.CallToolRequest, in SessionInput) (*mcp.CallToolResult, CloseSessionOutput, error) {
	sess, remaining, err := s.closeSession(in.SessionID)
	if err != nil {
		return nil, CloseSessionOutput{}, err
	}
	log.Info().Str("session", sess.ID).Int("remaining", remaining).Msg("Session closed")
	return nil, CloseSessionOutput{SessionID: sess.ID, Remaining: remaining}, nil
}

func (s *Server) handleGetParameters(ctx context.Context, req *mcp.CallToolRequest, in SessionInput) (*mcp.CallToolResult, ParamsOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, ParamsOutput{}, err
	}
	return nil, ParamsOutput{SessionID: sess.ID, Params: sess.Params()}, nil
}

func (s *Server) handleSetParameters(ctx context.Context, req *mcp.CallToolRequest, in SetParametersInput) (*mcp.CallToolResult, ParamsOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, ParamsOutput{}, err
	}
	snap, err := sess.Update(in.Changes.Apply)
	if err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("Parameter change rejected")
		return nil, ParamsOutput{}, err
	}
	return nil, ParamsOutput{SessionID: sess.ID, Params: snap}, nil
}

func (s *Server) handleToggleSpike(ctx context.Context, req *mcp.CallToolRequest, in ToggleSpikeInput) (*mcp.CallToolResult, BaselineOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, BaselineOutput{}, err
	}
	snap, res, err := sess.ToggleSpike(in.Offset)
	if err != nil {
		return nil, BaselineOutput{}, err
	}

	out := BaselineOutput{Params: snap, Baseline: res}
	if s.cfg.EnableMermaidCharts {
		out.Chart = visuals.GenerateBaselineChart(sess.Baseline(), snap.Exclusions())
	}
	return nil, out, nil
}

func (s *Server) handleBaselineAverage(ctx context.Context, req *mcp.CallToolRequest, in SessionInput) (*mcp.CallToolResult, BaselineOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, BaselineOutput{}, err
	}
	snap := sess.Params()

	out := BaselineOutput{Params: snap, Baseline: sess.BaselineAverage(sess.Baseline(), snap.Exclusions())}
	if s.cfg.EnableMermaidCharts {
		out.Chart = visuals.GenerateBaselineChart(sess.Baseline(), snap.Exclusions())
	}
	return nil, out, nil
}

func (s *Server) handleForecastSeries(ctx context.Context, req *mcp.CallToolRequest, in ForecastInput) (*mcp.CallToolResult, ForecastOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, ForecastOutput{}, err
	}

	months := in.Months
	if months <= 0 {
		months = defaultMonths
	}
	snap := sess.Params()
	if in.StartOffset != nil {
		snap = snap.WithMovedMonths(*in.StartOffset)
	}

	report, err := sess.ReportFor(snap, months)
	if err != nil {
		return nil, ForecastOutput{}, err
	}

	out := ForecastOutput{
		Fleet:      report.Fleet,
		Params:     report.Params,
		Series:     report.Series,
		Population: report.Population,
		Baseline:   report.Baseline,
		Total:      report.Total,
	}
	if s.cfg.EnableMermaidCharts {
		out.Charts = []string{
			visuals.GenerateForecastChart(report.Series, report.Baseline.Average),
			visuals.GeneratePopulationChart(report.Population),
		}
	}
	return nil, out, nil
}

func (s *Server) handleFieldPopulation(ctx context.Context, req *mcp.CallToolRequest, in PopulationInput) (*mcp.CallToolResult, PopulationOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, PopulationOutput{}, err
	}
	population, err := sess.FieldPopulation(in.Offset, sess.Params().Policy())
	if err != nil {
		return nil, PopulationOutput{}, err
	}
	return nil, PopulationOutput{Offset: in.Offset, Population: population}, nil
}

func (s *Server) handleCalibrate(ctx context.Context, req *mcp.CallToolRequest, in CalibrateInput) (*mcp.CallToolResult, CalibrateOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, CalibrateOutput{}, err
	}
	cal, snap, err := sess.Calibrate(in.Observed)
	if err != nil {
		return nil, CalibrateOutput{}, err
	}
	return nil, CalibrateOutput{Calibration: cal, Params: snap}, nil
}

func (s *Server) handleHazardCurve(ctx context.Context, req *mcp.CallToolRequest, in HazardCurveInput) (*mcp.CallToolResult, HazardCurveOutput, error) {
	sess, err := s.lookup(in.SessionID)
	if err != nil {
		return nil, HazardCurveOutput{}, err
	}

	hp := sess.Params().Hazard()
	if in.Alpha != nil {
		hp.Alpha = *in.Alpha
	}
	if in.Beta != nil {
		hp.Beta = *in.Beta
	}
	maxAge := in.MaxAge
	if maxAge <= 0 {
		maxAge = defaultMonths
	}

	curve, err := sess.HazardCurve(hp, maxAge, in.Normalized)
	if err != nil {
		return nil, HazardCurveOutput{}, err
	}

	out := HazardCurveOutput{Hazard: hp, Curve: curve}
	if s.cfg.EnableMermaidCharts {
		out.Chart = visuals.GenerateHazardChart(curve, in.Normalized)
	}
	return nil, out, nil
}
