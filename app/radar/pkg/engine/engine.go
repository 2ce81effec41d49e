package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/archive"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/chart"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/collector"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/enrich"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/gaps"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/narrative"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/report"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/scoring"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search/factory"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// Stage 流水线阶段
type Stage string

// 阶段按执行顺序排列
const (
	StageCollect Stage = "collect"
	StageEnrich  Stage = "enrich"
	StageScore   Stage = "score"
	StageGaps    Stage = "gaps"
	StageCharts  Stage = "charts"
	StageReport  Stage = "report"
)

// Stages 全部阶段，按执行顺序
var Stages = []Stage{StageCollect, StageEnrich, StageScore, StageGaps, StageCharts, StageReport}

// ParseStage 解析阶段名
func ParseStage(s string) (Stage, error) {
	for _, st := range Stages {
		if string(st) == strings.ToLower(strings.TrimSpace(s)) {
			return st, nil
		}
	}
	names := make([]string, len(Stages))
	for i, st := range Stages {
		names[i] = string(st)
	}
	return "", fmt.Errorf("unknown stage %q (expected one of %s)", s, strings.Join(names, ", "))
}

func indexOf(s Stage) int {
	for i, st := range Stages {
		if st == s {
			return i
		}
	}
	return -1
}

// StageError 某个阶段失败，后续阶段不再执行
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// RunOptions 运行选项
type RunOptions struct {
	// From/To 为空时分别表示第一个和最后一个阶段
	From             Stage
	To               Stage
	ProgressCallback func(status string, progress int)
}

// Result 一次运行的结果
type Result struct {
	RunID      string
	Period     model.Period
	Stages     []Stage
	ReportPath string
	PDFPath    string
	Gaps       []model.GapRow
}

// Engine 流水线编排。阶段之间只通过文件交换数据。
type Engine struct {
	cfg       *config.Config
	store     *store.Store
	collector *collector.Collector
	enricher  *enrich.Enricher
	writer    *narrative.Writer
	assembler *report.Assembler
	archiver  *archive.Archiver
	pdf       Exporter
	now       func() time.Time
}

// NewEngine 按配置创建引擎
func NewEngine(ctx context.Context, cfg *config.Config) (*Engine, error) {
	gen, err := llm.New(ctx, cfg.LLM, cfg.Concurrency, cfg.UseLLM)
	if err != nil {
		return nil, err
	}

	searcher, err := factory.NewSearcher(cfg.Search)
	if err != nil {
		return nil, fmt.Errorf("搜索客户端初始化失败: %w", err)
	}

	st := store.NewFromConfig(cfg)
	e := &Engine{
		cfg:       cfg,
		store:     st,
		collector: collector.NewFromConfig(cfg, searcher),
		enricher:  enrich.NewFromConfig(cfg, gen),
		writer:    narrative.NewWriter(gen),
		assembler: report.NewFromConfig(cfg, st),
		now:       time.Now,
	}
	if cfg.PDF.UseLibreOffice {
		e.pdf = NewLibreOffice(cfg.PDF.LibreOfficePath)
	}

	if cfg.DB.Host != "" {
		a, err := archive.Open(ctx, cfg.DB)
		if err != nil {
			logger.Log.Errorf("无法连接归档数据库: %v. 运行结果只写入文件。", err)
		} else {
			e.archiver = a
			logger.Log.Info("已成功连接到归档数据库")
		}
	} else {
		logger.Log.Debug("未配置数据库信息，跳过归档")
	}
	return e, nil
}

// Store 返回引擎使用的存储
func (e *Engine) Store() *store.Store {
	return e.store
}

// Close 释放数据库连接
func (e *Engine) Close() error {
	return e.archiver.Close()
}

// Period 当前运行周期
func (e *Engine) Period() model.Period {
	return e.cfg.Period()
}

// Run 顺序执行 [From, To] 区间内的阶段。不重试，第一个失败的阶段终止整个运行。
func (e *Engine) Run(ctx context.Context, opts RunOptions) (Result, error) {
	stages, err := selectStages(opts.From, opts.To)
	if err != nil {
		return Result{}, err
	}

	p := e.Period()
	res := Result{RunID: uuid.NewString(), Period: p, Stages: stages}

	release, err := e.store.AcquireLock(p)
	if err != nil {
		return res, err
	}
	defer release()

	started := e.now()
	logger.Log.Infof("开始运行 [%s] 周期 %s，阶段 %s → %s", res.RunID, p, stages[0], stages[len(stages)-1])
	progress(opts, "starting", 0)

	for i, stage := range stages {
		if err := ctx.Err(); err != nil {
			return res, &StageError{Stage: stage, Err: err}
		}
		progress(opts, fmt.Sprintf("running stage: %s", stage), i*100/len(stages))

		t0 := e.now()
		if err := e.runStage(ctx, stage, &res); err != nil {
			logger.Log.Errorf("阶段 [%s] 失败: %v", stage, err)
			return res, &StageError{Stage: stage, Err: err}
		}
		logger.Log.Infof("阶段 [%s] 完成，耗时 %s", stage, e.now().Sub(t0).Round(time.Millisecond))
	}

	if res.ReportPath != "" {
		e.afterReport(ctx, &res, started)
	}

	progress(opts, "completed", 100)
	logger.Log.Infof("运行 [%s] 完成", res.RunID)
	return res, nil
}

// RunStage 单独执行一个阶段，依赖已有的中间文件
func (e *Engine) RunStage(ctx context.Context, stage Stage) (Result, error) {
	return e.Run(ctx, RunOptions{From: stage, To: stage})
}

func selectStages(from, to Stage) ([]Stage, error) {
	if from == "" {
		from = Stages[0]
	}
	if to == "" {
		to = Stages[len(Stages)-1]
	}
	i, j := indexOf(from), indexOf(to)
	if i < 0 {
		return nil, fmt.Errorf("unknown stage %q", from)
	}
	if j < 0 {
		return nil, fmt.Errorf("unknown stage %q", to)
	}
	if i > j {
		return nil, fmt.Errorf("stage %s comes after %s", from, to)
	}
	return Stages[i : j+1], nil
}

func progress(opts RunOptions, status string, pct int) {
	if opts.ProgressCallback != nil {
		opts.ProgressCallback(status, pct)
	}
}

func (e *Engine) runStage(ctx context.Context, stage Stage, res *Result) error {
	p := res.Period
	switch stage {
	case StageCollect:
		return e.collect(ctx, p)
	case StageEnrich:
		return e.enrich(ctx, p)
	case StageScore:
		return e.score(p)
	case StageGaps:
		gs, err := e.gaps(p)
		if err != nil {
			return err
		}
		res.Gaps = gs
		return nil
	case StageCharts:
		return e.charts(p)
	case StageReport:
		path, gs, err := e.report(ctx, p)
		if err != nil {
			return err
		}
		res.ReportPath, res.Gaps = path, gs
		return nil
	default:
		return fmt.Errorf("unknown stage %q", stage)
	}
}

func (e *Engine) collect(ctx context.Context, p model.Period) error {
	items, err := e.collector.Collect(ctx, p, e.cfg.Competitors, e.cfg.NewsSources)
	if err != nil {
		return err
	}
	warnings := 0
	for _, h := range items {
		if h.IsWarning() {
			warnings++
		}
	}
	if err := e.store.WriteNews(p, items); err != nil {
		return err
	}
	logger.Log.Infof("新闻采集完成: %d 条 (其中 %d 条抓取失败占位) → %s", len(items), warnings, e.store.NewsPath(p))
	return nil
}

func (e *Engine) enrich(ctx context.Context, p model.Period) error {
	if !e.cfg.Enrich.Enabled {
		logger.Log.Info("未启用新闻正文补全，跳过")
		return nil
	}
	items, err := e.store.ReadNews(p)
	if err != nil {
		return err
	}
	enriched, err := e.enricher.Enrich(ctx, items)
	if err != nil {
		return err
	}
	return e.store.WriteEnriched(p, enriched)
}

func (e *Engine) score(p model.Period) error {
	in := scoring.Input{OverridePath: e.store.ManualScoresPath()}

	override, ok, err := e.store.ReadManualScores()
	if err != nil {
		return fmt.Errorf("read manual scores %s: %w", e.store.ManualScoresPath(), err)
	}
	if ok {
		in.Override = &override
	} else {
		if in.Headlines, err = e.store.ReadNews(p); err != nil {
			return err
		}
		prior, found, err := e.store.ReadScoresIfExists(p.Prev())
		if err != nil {
			return err
		}
		if found {
			in.Prior = prior
		} else {
			logger.Log.Infof("未找到上期 (%s) 得分表，不做平滑", p.Prev())
		}
	}

	builder := scoring.NewBuilder(e.cfg.Axes, e.cfg.Competitors, scoring.NewSignalTable(e.cfg.AxisSignals))
	res, err := builder.Build(in)
	if err != nil {
		return err
	}
	return e.store.WriteScores(p, e.cfg.Axes, res.Rows)
}

func (e *Engine) gaps(p model.Period) ([]model.GapRow, error) {
	rows, err := e.store.ReadScores(p)
	if err != nil {
		return nil, err
	}
	gs := gaps.Analyze(rows, e.cfg.Axes, e.cfg.Focal)
	switch gaps.StatusOf(gs) {
	case gaps.NoData:
		logger.Log.Warnf("得分表中没有焦点企业 [%s]，无法计算差距", e.cfg.Focal)
	case gaps.Aligned:
		logger.Log.Infof("[%s] 在所有维度上与领先者持平", e.cfg.Focal)
	default:
		for _, g := range gaps.Positive(gs) {
			logger.Log.Infof("差距 %s: %.2f (领先者 %s)", g.Axis, g.Gap, g.Leader)
		}
	}
	return gs, nil
}

func (e *Engine) charts(p model.Period) error {
	rows, err := e.store.ReadScores(p)
	if err != nil {
		var missing *store.MissingArtifactError
		if !errors.As(err, &missing) {
			return err
		}
		// 没有得分表时仍输出占位图，报告阶段可以继续
		logger.Log.Warnf("缺少得分表，图表使用占位图: %v", err)
		rows = nil
	}
	return chart.RenderPeriod(e.store, chart.Input{
		Period: p,
		Focal:  e.cfg.Focal,
		Axes:   e.cfg.Axes,
		Rows:   rows,
		Gaps:   gaps.Analyze(rows, e.cfg.Axes, e.cfg.Focal),
	})
}

func (e *Engine) report(ctx context.Context, p model.Period) (string, []model.GapRow, error) {
	rows, err := e.store.ReadScores(p)
	if err != nil {
		return "", nil, err
	}
	prev, hasPrev, err := e.store.ReadScoresIfExists(p.Prev())
	if err != nil {
		return "", nil, err
	}
	news, err := e.store.ReadReportNews(p)
	if err != nil {
		return "", nil, err
	}

	gs := gaps.Analyze(rows, e.cfg.Axes, e.cfg.Focal)
	texts := e.writer.Compose(ctx, narrative.Input{
		Period:          p,
		Focal:           e.cfg.Focal,
		Axes:            e.cfg.Axes,
		Rows:            rows,
		Prev:            prev,
		HasPrev:         hasPrev,
		Gaps:            gs,
		News:            news,
		GlobalNotes:     e.cfg.NotasGlobales,
		CompetitorNotes: e.cfg.CompetitorNotes,
	})

	path, err := e.assembler.Build(p, texts)
	if err != nil {
		return "", nil, err
	}
	return path, gs, nil
}

// afterReport 导出 PDF 并归档。两者失败都只记录日志。
func (e *Engine) afterReport(ctx context.Context, res *Result, started time.Time) {
	if e.pdf != nil {
		pdf, err := e.pdf.Export(ctx, res.ReportPath)
		if err != nil {
			logger.Log.Warnf("PDF 导出失败，仅保留 PPTX: %v", err)
		} else {
			res.PDFPath = pdf
			logger.Log.Infof("PDF 已导出: %s", pdf)
		}
	}

	if e.archiver == nil {
		return
	}
	run := archive.Run{
		ID:         res.RunID,
		Period:     res.Period,
		Focal:      e.cfg.Focal,
		Source:     scoring.SourceHeuristic,
		ReportPath: res.ReportPath,
		PDFPath:    res.PDFPath,
		StartedAt:  started,
		FinishedAt: e.now(),
	}
	if store.Exists(e.store.ManualScoresPath()) {
		run.Source = scoring.SourceManual
	}
	var err error
	if run.Scores, err = e.store.ReadScores(res.Period); err == nil {
		run.Headlines, err = e.store.ReadNews(res.Period)
		var missing *store.MissingArtifactError
		if errors.As(err, &missing) {
			err = nil
		}
	}
	if err == nil {
		err = e.archiver.Save(ctx, run)
	}
	if err != nil {
		logger.Log.Errorf("归档运行 [%s] 失败: %v", res.RunID, err)
		return
	}
	logger.Log.Infof("运行 [%s] 已归档", res.RunID)
}
