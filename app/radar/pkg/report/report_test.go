package report

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/narrative"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/pptx"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

var reportCfg = config.ReportConfig{
	Version:      "v3",
	NewsPerSlide: 12,
	Font:         "Space Grotesk",
	Brand:        config.BrandConfig{QuantumBlue: "0B1F3A", MintSignal: "3EF2C4"},
}

type fixture struct {
	dir      string
	store    *store.Store
	template string
	period   model.Period
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	tpl := filepath.Join(dir, "templates", "radar_template.pptx")
	require.NoError(t, SaveDefaultTemplate(tpl))

	p, err := model.ParsePeriod("2025-03")
	require.NoError(t, err)
	return fixture{
		dir:      dir,
		store:    store.New(filepath.Join(dir, "data"), filepath.Join(dir, "reports"), ""),
		template: tpl,
		period:   p,
	}
}

func writePNG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, store.WriteFileAtomic(path, func(w io.Writer) error {
		return png.Encode(w, image.NewRGBA(image.Rect(0, 0, 40, 20)))
	}))
}

func texts(news int) narrative.Texts {
	lines := make([]string, news)
	for i := range lines {
		lines[i] = fmt.Sprintf("- 2025-03-%02d · Acme: headline %d (acme.com)", i%28+1, i+1)
	}
	return narrative.Texts{
		Period:              "2025-03",
		ExecutiveSummary:    "Acme leads the period.",
		GlobalNotes:         "Pricing pressure in LATAM.",
		RadarExplanation:    narrative.RadarExplanation,
		AxesDescription:     "Integrations · Pricing/Value",
		Ranking:             "1. Acme: 100.0\n2. UBIMIA: 37.5",
		PerformanceAnalysis: "Acme tops the ranking.",
		Deltas:              narrative.NoPreviousHistory,
		PrioritiesText:      narrative.PrioritiesText(narrative.FallbackPriorities),
		HistoryText:         narrative.NotEnoughHistory,
		News:                lines,
	}
}

func allTexts(t *testing.T, d *pptx.Deck) [][]string {
	t.Helper()
	out := make([][]string, d.SlideCount())
	for i := range out {
		ts, err := d.Texts(i)
		require.NoError(t, err)
		out[i] = ts
	}
	return out
}

func TestBuildFillsTemplate(t *testing.T) {
	f := newFixture(t)
	writePNG(t, f.store.RadarChartPath(f.period))
	writePNG(t, f.store.GapsChartPath(f.period))
	writePNG(t, f.store.HistoryChartPath(f.period))

	a := New(f.template, reportCfg, f.store)
	out, err := a.Build(f.period, texts(25))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.dir, "reports", "radar_report_v3_2025-03_r1.pptx"), out)

	d, err := pptx.Open(out)
	require.NoError(t, err)
	require.Equal(t, 8, d.SlideCount(), "25 news items need two extra slides")

	slides := allTexts(t, d)
	for i, ts := range slides {
		for _, s := range ts {
			assert.NotContains(t, s, "{{", "slide %d still has a token", i+1)
		}
	}

	assert.Contains(t, slides[0], "2025-03")
	assert.Contains(t, slides[0], "Acme leads the period.")
	assert.Contains(t, slides[2], "2. UBIMIA: 37.5")
	assert.Contains(t, slides[3], "• "+narrative.FallbackPriorities[2])
	assert.NotContains(t, slides[4], narrative.NotEnoughHistory, "history chart replaces the fallback text")

	assert.Len(t, filterPrefix(slides[5], "- "), 12)
	assert.Len(t, slides[6], 12)
	assert.Equal(t, []string{"- 2025-03-25 · Acme: headline 25 (acme.com)"}, slides[7])
}

func filterPrefix(ss []string, prefix string) []string {
	var out []string
	for _, s := range ss {
		if strings.HasPrefix(s, prefix) {
			out = append(out, s)
		}
	}
	return out
}

func TestBuildWithoutChartsOrNews(t *testing.T) {
	f := newFixture(t)
	a := New(f.template, reportCfg, f.store)

	out, err := a.Build(f.period, texts(0))
	require.NoError(t, err)

	d, err := pptx.Open(out)
	require.NoError(t, err)
	require.Equal(t, MinSlides, d.SlideCount())

	slides := allTexts(t, d)
	assert.Contains(t, slides[4], narrative.NotEnoughHistory)
	assert.Contains(t, slides[5], narrative.NoNews)
}

func TestBuildNeverOverwrites(t *testing.T) {
	f := newFixture(t)
	a := New(f.template, reportCfg, f.store)

	first, err := a.Build(f.period, texts(1))
	require.NoError(t, err)
	second, err := a.Build(f.period, texts(1))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "_r2.pptx"))
	assert.True(t, store.Exists(first))
}

func TestBuildTemplateErrors(t *testing.T) {
	f := newFixture(t)

	_, err := New(filepath.Join(f.dir, "missing.pptx"), reportCfg, f.store).Build(f.period, texts(0))
	var tplErr *TemplateError
	require.ErrorAs(t, err, &tplErr)
	assert.Contains(t, err.Error(), "missing.pptx")
	assert.Contains(t, err.Error(), "file not found")

	short := filepath.Join(f.dir, "short.pptx")
	require.NoError(t, store.WriteFileAtomic(short, func(w io.Writer) error {
		return pptx.WriteSkeleton(w, DefaultLayout()[:2])
	}))
	_, err = New(short, reportCfg, f.store).Build(f.period, texts(0))
	require.ErrorAs(t, err, &tplErr)
	assert.Contains(t, err.Error(), "has 2 slides")

	list, err := f.store.ListReports()
	require.NoError(t, err)
	assert.Empty(t, list, "failed builds leave no report behind")
}
