package engine

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/report"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

const settings = `
periodo: "2025-03"
focal: UBIMIA
competitors: [Acme, UBIMIA, Globex]
axes:
  - {name: Integrations, weight: 0.5}
  - {name: Pricing/Value, weight: 0.3}
  - {name: Security/Compliance, weight: 0.2}
topic_keywords:
  Integrations: [integration, api]
  Pricing/Value: [pricing, plan]
use_llm: false
notas_globales: "Pricing pressure in LATAM."
paths:
  data_dir: %q
  reports_dir: %q
  template: %q
`

type fixture struct {
	engine *Engine
	store  *store.Store
	period model.Period
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "templates", "radar_template.pptx")
	require.NoError(t, report.SaveDefaultTemplate(tpl))

	cfg, err := config.Parse([]byte(fmt.Sprintf(settings,
		filepath.Join(dir, "data"), filepath.Join(dir, "reports"), tpl)))
	require.NoError(t, err)

	e, err := NewEngine(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })

	return fixture{engine: e, store: e.Store(), period: cfg.Period()}
}

func headline(competitor, topic string, i int) model.Headline {
	return model.Headline{
		Date:       fmt.Sprintf("2025-03-%02d", i+1),
		Competitor: competitor,
		Title:      fmt.Sprintf("%s announces %s update number %d for customers", competitor, topic, i),
		Source:     "example.com",
		URL:        fmt.Sprintf("https://example.com/%s/%d", competitor, i),
		Topic:      topic,
		Impact:     model.ImpactLow,
	}
}

func seedNews(t *testing.T, f fixture) {
	t.Helper()
	var items []model.Headline
	for i := 0; i < 3; i++ {
		items = append(items, headline("Acme", "Integrations", i))
	}
	for i := 3; i < 5; i++ {
		items = append(items, headline("Acme", "Pricing/Value", i))
	}
	items = append(items, headline("UBIMIA", "Integrations", 5))
	require.NoError(t, f.store.WriteNews(f.period, items))
}

func TestRunFromScore(t *testing.T) {
	f := newFixture(t)
	seedNews(t, f)

	var statuses []string
	var last int
	res, err := f.engine.Run(context.Background(), RunOptions{
		From: StageScore,
		ProgressCallback: func(status string, progress int) {
			statuses = append(statuses, status)
			last = progress
		},
	})
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, []Stage{StageScore, StageGaps, StageCharts, StageReport}, res.Stages)
	assert.Equal(t, "radar_report_v3_2025-03_r1.pptx", filepath.Base(res.ReportPath))
	assert.True(t, store.Exists(res.ReportPath))
	assert.Empty(t, res.PDFPath)

	for _, path := range []string{
		f.store.ScoresPath(f.period),
		f.store.RadarChartPath(f.period),
		f.store.GapsChartPath(f.period),
		f.store.HistoryChartPath(f.period),
	} {
		assert.True(t, store.Exists(path), path)
	}

	require.Len(t, res.Gaps, 3)
	assert.Equal(t, "Pricing/Value", res.Gaps[0].Axis)
	assert.Equal(t, "Acme", res.Gaps[0].Leader)
	assert.InDelta(t, 0.5493, res.Gaps[0].Gap, 1e-3)

	assert.Equal(t, "starting", statuses[0])
	assert.Equal(t, "completed", statuses[len(statuses)-1])
	assert.Equal(t, 100, last)

	release, err := f.store.AcquireLock(f.period)
	require.NoError(t, err, "lock is released after the run")
	release()
}

func TestRunFullPipelineOffline(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.Run(context.Background(), RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, Stages, res.Stages)
	assert.True(t, store.Exists(f.store.NewsPath(f.period)))
	assert.False(t, store.Exists(f.store.EnrichedPath(f.period)), "enrich is disabled")
	assert.True(t, store.Exists(res.ReportPath))

	rows, err := f.store.ReadScores(f.period)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	for _, r := range rows {
		assert.Equal(t, 50.0, r.Composite, "no news means every competitor ties")
	}
	assert.Len(t, res.Gaps, 3)
}

func TestRunStageMissingInput(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.RunStage(context.Background(), StageScore)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageScore, stageErr.Stage)

	var missing *store.MissingArtifactError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, f.store.NewsPath(f.period), missing.Path)
	assert.False(t, store.Exists(f.store.ScoresPath(f.period)))
}

func TestRunStopsAtFirstFailure(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.Run(context.Background(), RunOptions{From: StageGaps})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageGaps, stageErr.Stage)
	assert.False(t, store.Exists(f.store.RadarChartPath(f.period)), "later stages did not run")
}

func TestChartsWithoutScoresRenderPlaceholders(t *testing.T) {
	f := newFixture(t)

	res, err := f.engine.RunStage(context.Background(), StageCharts)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageCharts}, res.Stages)
	assert.False(t, store.Exists(f.store.ScoresPath(f.period)))
	for _, path := range []string{
		f.store.RadarChartPath(f.period),
		f.store.GapsChartPath(f.period),
		f.store.HistoryChartPath(f.period),
	} {
		assert.True(t, store.Exists(path), path)
	}
}

func TestRunRefusesLockedPeriod(t *testing.T) {
	f := newFixture(t)
	release, err := f.store.AcquireLock(f.period)
	require.NoError(t, err)
	defer release()

	_, err = f.engine.Run(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, store.ErrLocked)
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.engine.Run(ctx, RunOptions{})
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageCollect, stageErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)
}

type fakeExporter struct {
	err error
}

func (f fakeExporter) Export(_ context.Context, pptxPath string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return pptxPath + ".pdf", nil
}

func TestPDFExport(t *testing.T) {
	f := newFixture(t)
	seedNews(t, f)

	f.engine.pdf = fakeExporter{}
	res, err := f.engine.Run(context.Background(), RunOptions{From: StageScore})
	require.NoError(t, err)
	assert.Equal(t, res.ReportPath+".pdf", res.PDFPath)

	f.engine.pdf = fakeExporter{err: errors.New("soffice: not found")}
	res, err = f.engine.Run(context.Background(), RunOptions{From: StageReport})
	require.NoError(t, err, "export failures never fail the run")
	assert.Empty(t, res.PDFPath)
	assert.Equal(t, "radar_report_v3_2025-03_r2.pptx", filepath.Base(res.ReportPath))
}

func TestSelectStages(t *testing.T) {
	got, err := selectStages(StageGaps, StageCharts)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageGaps, StageCharts}, got)

	_, err = selectStages(StageReport, StageScore)
	assert.Error(t, err)

	_, err = selectStages("publish", "")
	assert.Error(t, err)
}

func TestParseStage(t *testing.T) {
	s, err := ParseStage(" Report ")
	require.NoError(t, err)
	assert.Equal(t, StageReport, s)

	_, err = ParseStage("deploy")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collect, enrich, score, gaps, charts, report")
}
