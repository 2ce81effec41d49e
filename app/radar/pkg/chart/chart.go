package chart

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/gaps"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// 各图尺寸
var (
	RadarSize   = [2]vg.Length{7 * vg.Inch, 7 * vg.Inch}
	GapsSize    = [2]vg.Length{10 * vg.Inch, 6 * vg.Inch}
	HistorySize = [2]vg.Length{10 * vg.Inch, 5 * vg.Inch}
)

// HistoryPeriods 历史趋势图最多展示的周期数
const HistoryPeriods = 3

const singlePeriodOffset = 0.05

// Save 以 PNG 格式原子写入
func Save(p *plot.Plot, path string, size [2]vg.Length) error {
	wt, err := p.WriterTo(size[0], size[1], "png")
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	return store.WriteFileAtomic(path, func(w io.Writer) error {
		_, err := wt.WriteTo(w)
		return err
	})
}

// Placeholder 无数据时的占位图
func Placeholder(title, message string) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.HideAxes()

	labels, err := plotter.NewLabels(plotter.XYLabels{
		XYs:    plotter.XYs{{X: 0.5, Y: 0.5}},
		Labels: []string{message},
	})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	return p, nil
}

// Radar 雷达图：1..5 刻度环，每个竞品一个多边形
func Radar(rows []model.ScoreRow, axes []model.Axis) (*plot.Plot, error) {
	const title = "Competitive radar"
	if len(rows) == 0 || len(axes) < 3 {
		return Placeholder(title, "Not enough data for the radar chart.")
	}

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Legend.Top = true

	n := len(axes)
	point := func(i int, v float64) plotter.XY {
		angle := math.Pi/2 - 2*math.Pi*float64(i)/float64(n)
		r := v / model.ScoreMax
		return plotter.XY{X: r * math.Cos(angle), Y: r * math.Sin(angle)}
	}

	grid := color.Gray{Y: 200}
	for ring := 1; ring <= int(model.ScoreMax); ring++ {
		xys := make(plotter.XYs, n+1)
		for i := 0; i <= n; i++ {
			xys[i] = point(i%n, float64(ring))
		}
		l, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		l.Color = grid
		p.Add(l)
	}
	for i := 0; i < n; i++ {
		l, err := plotter.NewLine(plotter.XYs{{}, point(i, model.ScoreMax)})
		if err != nil {
			return nil, err
		}
		l.Color = grid
		p.Add(l)
	}

	for j, row := range rows {
		xys := make(plotter.XYs, n)
		for i, a := range axes {
			v, ok := row.Score(a.Name)
			if !ok {
				v = model.ScoreMin
			}
			xys[i] = point(i, v)
		}
		poly, err := plotter.NewPolygon(xys)
		if err != nil {
			return nil, fmt.Errorf("radar polygon for %s: %w", row.Competitor, err)
		}
		c := plotutil.Color(j)
		poly.Color = withAlpha(c, 40)
		poly.LineStyle.Color = c
		poly.LineStyle.Width = vg.Points(1.5)
		p.Add(poly)
		p.Legend.Add(row.Competitor, poly)
	}

	names := model.AxisNames(axes)
	xys := make(plotter.XYs, n)
	for i := range axes {
		xys[i] = point(i, model.ScoreMax*1.15)
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: names})
	if err != nil {
		return nil, err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].XAlign = draw.XCenter
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)

	p.X.Min, p.X.Max = -1.4, 1.4
	p.Y.Min, p.Y.Max = -1.3, 1.4
	return p, nil
}

// Gaps 差距柱状图，差距最大的维度在最上方
func Gaps(gs []model.GapRow, focal string) (*plot.Plot, error) {
	title := fmt.Sprintf("%s gaps versus the leader by axis", focal)
	switch gaps.StatusOf(gs) {
	case gaps.NoData:
		return Placeholder(title, "Gaps versus the leader could not be computed.")
	case gaps.Aligned:
		return Placeholder(title, fmt.Sprintf("%s is aligned with the leader on every axis (gaps = 0).", focal))
	}

	n := len(gs)
	values := make(plotter.Values, n)
	names := make([]string, n)
	maxGap := 0.0
	for i, g := range gs {
		values[n-1-i] = g.Gap
		names[n-1-i] = g.Axis
		maxGap = math.Max(maxGap, g.Gap)
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Gap versus leader (points on the 1-5 scale)"

	bars, err := plotter.NewBarChart(values, vg.Points(18))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(names...)
	p.X.Min, p.X.Max = 0, maxGap*1.1
	return p, nil
}

// History 最近几期综合分趋势。只有一期时用带横向偏移的散点并标注名称。
func History(series []store.PeriodScores) (*plot.Plot, error) {
	const title = "Historical competitive performance"
	if len(series) > HistoryPeriods {
		series = series[len(series)-HistoryPeriods:]
	}
	if len(series) == 0 {
		return Placeholder(title, "Not enough history yet.")
	}

	periods := make([]string, len(series))
	for i, s := range series {
		periods[i] = s.Period.String()
	}
	names := competitorsOf(series)

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Period"
	p.Y.Label.Text = "Composite score (0-100)"
	p.Add(plotter.NewGrid())
	p.Legend.Top = true
	p.NominalX(periods...)

	if len(series) == 1 {
		if err := addSinglePeriod(p, series[0], names); err != nil {
			return nil, err
		}
		p.X.Min, p.X.Max = -0.5, 0.5
	} else {
		for j, name := range names {
			var xys plotter.XYs
			for i, s := range series {
				if r, ok := model.FindRow(s.Rows, name); ok {
					xys = append(xys, plotter.XY{X: float64(i), Y: r.Composite})
				}
			}
			if len(xys) == 0 {
				continue
			}
			line, points, err := plotter.NewLinePoints(xys)
			if err != nil {
				return nil, fmt.Errorf("history line for %s: %w", name, err)
			}
			c := plotutil.Color(j)
			line.Color = c
			points.GlyphStyle.Color = c
			points.GlyphStyle.Shape = draw.CircleGlyph{}
			p.Add(line, points)
			p.Legend.Add(name, line, points)
		}
		p.X.Min, p.X.Max = -0.3, float64(len(series)-1)+0.3
	}

	p.Y.Min, p.Y.Max = -5, 105
	return p, nil
}

func addSinglePeriod(p *plot.Plot, s store.PeriodScores, names []string) error {
	n := len(names)
	var labelXYs plotter.XYs
	var labelText []string
	for j, name := range names {
		r, ok := model.FindRow(s.Rows, name)
		if !ok {
			continue
		}
		x := (float64(j) - float64(n-1)/2) * singlePeriodOffset
		sc, err := plotter.NewScatter(plotter.XYs{{X: x, Y: r.Composite}})
		if err != nil {
			return fmt.Errorf("history point for %s: %w", name, err)
		}
		sc.GlyphStyle.Color = plotutil.Color(j)
		sc.GlyphStyle.Shape = draw.CircleGlyph{}
		sc.GlyphStyle.Radius = vg.Points(4)
		p.Add(sc)
		p.Legend.Add(name, sc)

		labelXYs = append(labelXYs, plotter.XY{X: x + 0.01, Y: r.Composite})
		labelText = append(labelText, name)
	}
	if len(labelXYs) == 0 {
		return nil
	}
	labels, err := plotter.NewLabels(plotter.XYLabels{XYs: labelXYs, Labels: labelText})
	if err != nil {
		return err
	}
	for i := range labels.TextStyle {
		labels.TextStyle[i].Font.Size = vg.Points(8)
		labels.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(labels)
	return nil
}

// competitorsOf 按最近一期的顺序列出竞品，更早周期独有的竞品排在后面
func competitorsOf(series []store.PeriodScores) []string {
	seen := map[string]bool{}
	var out []string
	for i := len(series) - 1; i >= 0; i-- {
		for _, r := range series[i].Rows {
			if !seen[r.Competitor] {
				seen[r.Competitor] = true
				out = append(out, r.Competitor)
			}
		}
	}
	return out
}

func withAlpha(c color.Color, a uint8) color.Color {
	r, g, b, _ := c.RGBA()
	return color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: a}
}
