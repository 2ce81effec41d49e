package tool

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/engine"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/gaps"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
)

// RadarTool 运行竞品雷达流水线
type RadarTool struct {
	cfg *config.Config
}

// NewRadarTool 创建雷达工具
func NewRadarTool(cfg *config.Config) *RadarTool {
	return &RadarTool{cfg: cfg}
}

// Name implements Tool
func (t *RadarTool) Name() string { return "radar" }

// Description implements Tool
func (t *RadarTool) Description() string {
	return "Competitor radar: collect news, score competitors, analyze gaps and build the monthly deck. " +
		"Params: periodo (YYYY-MM), notas_globales, from, to."
}

// Run implements Tool
func (t *RadarTool) Run(ctx context.Context, req Request) (Artifact, error) {
	cfg, err := t.cfg.WithRun(req.Param("periodo", ""), req.Param("notas_globales", ""))
	if err != nil {
		return Artifact{}, &ParamError{Param: "periodo", Reason: "is invalid", Err: err}
	}

	opts := engine.RunOptions{
		ProgressCallback: func(status string, progress int) {
			logger.Log.Debugf("[%s] radar %s: %s (%d%%)", req.Session.Username, cfg.Periodo, status, progress)
		},
	}
	if v := req.Param("from", ""); v != "" {
		if opts.From, err = engine.ParseStage(v); err != nil {
			return Artifact{}, &ParamError{Param: "from", Reason: "is invalid", Err: err}
		}
	}
	if v := req.Param("to", ""); v != "" {
		if opts.To, err = engine.ParseStage(v); err != nil {
			return Artifact{}, &ParamError{Param: "to", Reason: "is invalid", Err: err}
		}
	}

	e, err := engine.NewEngine(ctx, cfg)
	if err != nil {
		return Artifact{}, err
	}
	defer e.Close()

	logger.Log.Infof("用户 [%s] 运行竞品雷达，周期 %s", req.Session.Username, cfg.Periodo)
	res, err := e.Run(ctx, opts)
	if err != nil {
		return Artifact{}, err
	}
	if res.ReportPath == "" {
		return Artifact{Tool: t.Name(), Summary: fmt.Sprintf("period %s: stages %v finished, no report built", res.Period, res.Stages)}, nil
	}

	art := Artifact{
		Tool:    t.Name(),
		Name:    filepath.Base(res.ReportPath),
		Path:    res.ReportPath,
		Summary: radarSummary(res),
	}
	if res.PDFPath != "" {
		art.Extra = append(art.Extra, filepath.Base(res.PDFPath))
	}
	return art, nil
}

func radarSummary(res engine.Result) string {
	switch gaps.StatusOf(res.Gaps) {
	case gaps.NoData:
		return fmt.Sprintf("period %s: no gap data for the focal organization", res.Period)
	case gaps.Aligned:
		return fmt.Sprintf("period %s: aligned with the leader on every axis", res.Period)
	}
	top := gaps.Positive(res.Gaps)[0]
	return fmt.Sprintf("period %s: largest gap %s (%.2f behind %s)", res.Period, top.Axis, top.Gap, top.Leader)
}
