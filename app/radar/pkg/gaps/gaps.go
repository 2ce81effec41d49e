package gaps

import (
	"math"
	"sort"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// Status 差距分析结果的状态
type Status int

const (
	// NoData 得分表为空或焦点企业不在表中
	NoData Status = iota
	// Aligned 焦点企业在所有维度上都与领先者持平
	Aligned
	// Behind 至少一个维度落后
	Behind
)

func (s Status) String() string {
	switch s {
	case Aligned:
		return "aligned"
	case Behind:
		return "behind"
	default:
		return "no_data"
	}
}

// Analyze 计算焦点企业在每个维度上与领先者的差距，按差距降序排列，
// 差距相同的维度保持配置顺序。焦点企业没有得分的维度被跳过。
// 无法计算时返回空结果而不是错误。
func Analyze(rows []model.ScoreRow, axes []model.Axis, focal string) []model.GapRow {
	focalRow, ok := model.FindRow(rows, focal)
	if len(rows) == 0 || !ok {
		return nil
	}

	out := make([]model.GapRow, 0, len(axes))
	for _, a := range axes {
		leader, best := "", math.Inf(-1)
		for _, r := range rows {
			v, ok := r.Score(a.Name)
			if ok && v > best {
				leader, best = r.Competitor, v
			}
		}
		if leader == "" {
			continue
		}
		// 焦点企业缺少该维度得分时不计算差距
		fv, ok := focalRow.Score(a.Name)
		if !ok {
			continue
		}
		out = append(out, model.GapRow{Axis: a.Name, Gap: math.Max(0, best-fv), Leader: leader})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Gap > out[j].Gap })
	return out
}

// StatusOf 判断差距列表的状态
func StatusOf(gs []model.GapRow) Status {
	if len(gs) == 0 {
		return NoData
	}
	for _, g := range gs {
		if g.Gap > 0 {
			return Behind
		}
	}
	return Aligned
}

// Positive 只保留大于 0 的差距
func Positive(gs []model.GapRow) []model.GapRow {
	var out []model.GapRow
	for _, g := range gs {
		if g.Gap > 0 {
			out = append(out, g)
		}
	}
	return out
}
