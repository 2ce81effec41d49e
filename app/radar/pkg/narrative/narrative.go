package narrative

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// 固定文案
const (
	NoScores          = "No score data for the period."
	NoPreviousHistory = "No history for the previous month."
	NoNews            = "No relevant news in the period."
	NotEnoughHistory  = "Not enough history yet."
	Missing           = "-"
	PrioritiesTitle   = "Top 3 priorities"

	RadarExplanation = "Goal: compare key capabilities across competitors.\n" +
		"Scale 1-5 per axis, weighted.\n" +
		"Reading: large and balanced shapes indicate strength.\n" +
		"Gaps point to priority opportunity areas."
)

// PriorityTemplates 维度 -> 改进建议
var PriorityTemplates = map[string]string{
	"Integrations":        "Expand the integrations catalog (priority APIs/partners) and strengthen critical connectors.",
	"Implementation":      "Reduce deployment times and standardize playbooks.",
	"AI/Automation":       "Accelerate automation features with clear metrics.",
	"Security/Compliance": "Reinforce certifications and the communication of controls.",
	"Pricing/Value":       "Optimize packaging and commercial terms.",
	"Support/SLAs":        "Strengthen response times and SLA adherence.",
	"Market Traction":     "Increase visibility and acquisition in target accounts.",
}

// FallbackPriorities 差距不足 3 个时补齐
var FallbackPriorities = []string{
	"Consolidate the cross-cutting value proposition.",
	"Deepen high-impact integrations.",
	"Communicate technical progress to the market.",
}

// Ranked 按综合分降序排列，同分保持原顺序
func Ranked(rows []model.ScoreRow) []model.ScoreRow {
	out := make([]model.ScoreRow, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Composite > out[j].Composite })
	return out
}

// Ranking 排名文本，每行 "名次. 竞品: 综合分"
func Ranking(ranked []model.ScoreRow) string {
	if len(ranked) == 0 {
		return NoScores
	}
	lines := make([]string, len(ranked))
	for i, r := range ranked {
		lines[i] = fmt.Sprintf("%d. %s: %.1f", i+1, r.Competitor, r.Composite)
	}
	return strings.Join(lines, "\n")
}

// ExecutiveSummary 执行摘要：领先者、分差、样本量，以及焦点企业的强项与弱项
func ExecutiveSummary(ranked []model.ScoreRow, axes []model.Axis, focal string, newsCount int) string {
	if len(ranked) == 0 {
		return NoScores
	}
	leader := ranked[0]
	spread := leader.Composite - ranked[len(ranked)-1].Composite

	strengths, weaknesses := Missing, Missing
	if row, ok := model.FindRow(ranked, focal); ok {
		strengths = strings.Join(extremes(row, axes, 2, true), ", ")
		weaknesses = strings.Join(extremes(row, axes, 2, false), ", ")
	}

	return fmt.Sprintf(
		"%s leads the period with %.1f points (spread %.1f). "+
			"%d competitors and %d relevant news items were analyzed. "+
			"For %s, main strengths: %s; improvement areas: %s.",
		leader.Competitor, leader.Composite, spread,
		len(ranked), newsCount,
		focal, strengths, weaknesses,
	)
}

// extremes 得分最高（或最低）的 n 个维度，同分按配置顺序
func extremes(row model.ScoreRow, axes []model.Axis, n int, highest bool) []string {
	type pair struct {
		name  string
		score float64
	}
	var ps []pair
	for _, a := range axes {
		if v, ok := row.Score(a.Name); ok {
			ps = append(ps, pair{a.Name, v})
		}
	}
	sort.SliceStable(ps, func(i, j int) bool {
		if highest {
			return ps[i].score > ps[j].score
		}
		return ps[i].score < ps[j].score
	})
	if len(ps) > n {
		ps = ps[:n]
	}
	if len(ps) == 0 {
		return []string{Missing}
	}
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.name
	}
	return out
}

// PerformanceAnalysis 绩效分析：中位数与四分位区间
func PerformanceAnalysis(ranked []model.ScoreRow) string {
	if len(ranked) == 0 {
		return NoScores
	}
	values := make([]float64, len(ranked))
	for i, r := range ranked {
		values[i] = r.Composite
	}
	leader := ranked[0]

	return fmt.Sprintf(
		"%s tops the ranking with %.1f points, above the sector median (%.1f). "+
			"Performance is concentrated between %.1f and %.1f points, which suggests a stable competitive environment. "+
			"The period's results confirm consistent positions and clear gaps between leaders and challengers.",
		leader.Competitor, leader.Composite, Quantile(values, 0.5),
		Quantile(values, 0.25), Quantile(values, 0.75),
	)
}

// Quantile 线性插值分位数
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}

// Priorities 取差距最大的 3 个维度生成建议，不足时用固定建议补齐
func Priorities(gs []model.GapRow) []string {
	out := make([]string, 0, 3)
	for _, g := range gs {
		if len(out) == 3 {
			break
		}
		if g.Gap <= 0 {
			continue
		}
		txt, ok := PriorityTemplates[g.Axis]
		if !ok {
			txt = fmt.Sprintf("Improve performance on %s.", g.Axis)
		}
		out = append(out, txt)
	}
	for _, fb := range FallbackPriorities {
		if len(out) == 3 {
			break
		}
		out = append(out, fb)
	}
	return out
}

// PrioritiesText 幻灯片上的优先事项文本
func PrioritiesText(items []string) string {
	var sb strings.Builder
	sb.WriteString(PrioritiesTitle)
	for _, it := range items {
		sb.WriteString("\n• ")
		sb.WriteString(it)
	}
	return sb.String()
}

// Deltas 综合分环比变化。hasPrev 为 false 表示上期没有得分表。
func Deltas(ranked, prev []model.ScoreRow, hasPrev bool) string {
	if !hasPrev {
		return NoPreviousHistory
	}
	if len(ranked) == 0 {
		return NoScores
	}
	lines := make([]string, len(ranked))
	for i, r := range ranked {
		p, ok := model.FindRow(prev, r.Competitor)
		if !ok {
			lines[i] = fmt.Sprintf("%s: n/a", r.Competitor)
			continue
		}
		d := math.Round((r.Composite-p.Composite)*10) / 10
		if d == 0 {
			d = 0 // 去掉 -0
		}
		lines[i] = fmt.Sprintf("%s: %+.1f", r.Competitor, d)
	}
	return strings.Join(lines, "\n")
}

// AxesDescription 维度说明，每行最多 4 个
func AxesDescription(axes []model.Axis) string {
	names := model.AxisNames(axes)
	var lines []string
	for i := 0; i < len(names); i += 4 {
		end := min(i+4, len(names))
		lines = append(lines, strings.Join(names[i:end], " · "))
	}
	return strings.Join(lines, "\n")
}

// CleanNews 过滤聚合源与抓取失败占位，并按 竞品+标题 去重
func CleanNews(items []model.EnrichedHeadline) []model.EnrichedHeadline {
	seen := make(map[string]bool, len(items))
	var out []model.EnrichedHeadline
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Source), "google") || it.IsWarning() {
			continue
		}
		key := it.Competitor + "||" + it.Title
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, it)
	}
	return out
}

// NewsLines 新闻列表，每条一行
func NewsLines(items []model.EnrichedHeadline) []string {
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = fmt.Sprintf("- %s · %s: %s (%s)", it.Date, it.Competitor, it.Title, it.Source)
	}
	return lines
}

// Paginate 按每页 n 条切分
func Paginate(lines []string, n int) [][]string {
	if n <= 0 {
		n = len(lines)
	}
	var out [][]string
	for i := 0; i < len(lines); i += n {
		out = append(out, lines[i:min(i+n, len(lines))])
	}
	return out
}
