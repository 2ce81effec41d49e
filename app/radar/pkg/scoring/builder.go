package scoring

import (
	"math"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/store"
)

// 得分来源
const (
	SourceHeuristic = "heuristic"
	SourceManual    = "manual"
)

// Builder 评分构建器
type Builder struct {
	axes        []model.Axis
	competitors []string
	signals     SignalTable
}

// NewBuilder 创建评分构建器
func NewBuilder(axes []model.Axis, competitors []string, signals SignalTable) *Builder {
	if signals == nil {
		signals = NewSignalTable(nil)
	}
	return &Builder{axes: axes, competitors: competitors, signals: signals}
}

// Input 评分输入
type Input struct {
	Headlines []model.Headline
	// Prior 上一期得分表，nil 表示没有上期
	Prior []model.ScoreRow
	// Override 手工评分表，nil 表示没有手工评分
	Override     *store.Table
	OverridePath string
}

// Result 评分结果
type Result struct {
	Rows     []model.ScoreRow
	Source   string
	Smoothed int // 发生平滑的 (竞品, 维度) 数
}

// Build 生成当期得分表。手工评分存在时完全覆盖启发式结果，也不做平滑。
func (b *Builder) Build(in Input) (Result, error) {
	if in.Override != nil {
		rows, err := ParseOverride(*in.Override, in.OverridePath, b.axes, b.competitors)
		if err != nil {
			return Result{}, err
		}
		ApplyComposite(rows, b.axes)
		logger.Log.Infof("使用手工评分: %d 个竞品", len(rows))
		return Result{Rows: rows, Source: SourceManual}, nil
	}

	prior := make(map[string]model.ScoreRow, len(in.Prior))
	for _, r := range in.Prior {
		prior[r.Competitor] = r
	}

	res := Result{Source: SourceHeuristic}
	for _, f := range BuildFeatures(in.Headlines, b.competitors) {
		row := model.ScoreRow{Competitor: f.Competitor, Scores: make(map[string]float64, len(b.axes))}
		p, hasPrior := prior[f.Competitor]
		for _, a := range b.axes {
			score := HeuristicScore(f, b.signals.For(a.Name))
			if hasPrior {
				if pv, ok := p.Score(a.Name); ok {
					score = Smooth(score, pv)
					res.Smoothed++
				}
			}
			row.Scores[a.Name] = score
		}
		res.Rows = append(res.Rows, row)
	}

	ApplyComposite(res.Rows, b.axes)
	logger.Log.Infof("启发式评分完成: %d 个竞品, %d 项与上期平滑", len(res.Rows), res.Smoothed)
	return res, nil
}

// RawComposite 加权平均：Σ(score·w) / max(Σw, 1e-6)
func RawComposite(row model.ScoreRow, axes []model.Axis) float64 {
	var sum, weights float64
	for _, a := range axes {
		sum += row.Scores[a.Name] * a.Weight
		weights += a.Weight
	}
	return sum / math.Max(weights, 1e-6)
}

// Normalize 在竞品集合内做 min-max 归一到 0-100；全部相等时都为 50
func Normalize(raw []float64) []float64 {
	out := make([]float64, len(raw))
	if len(raw) == 0 {
		return out
	}

	lo, hi := raw[0], raw[0]
	for _, v := range raw[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}

	for i, v := range raw {
		if hi == lo {
			out[i] = 50
			continue
		}
		out[i] = (v - lo) / (hi - lo) * 100
	}
	return out
}

// ApplyComposite 计算并写入综合分
func ApplyComposite(rows []model.ScoreRow, axes []model.Axis) {
	raw := make([]float64, len(rows))
	for i, r := range rows {
		raw[i] = RawComposite(r, axes)
	}
	for i, v := range Normalize(raw) {
		rows[i].Composite = v
	}
}
