package model

import "strings"

// 评分刻度
const (
	ScoreMin     = 1.0
	ScoreMax     = 5.0
	ScoreNeutral = 3.0
)

// TopicGeneral 未命中任何关键词时的默认主题
const TopicGeneral = "General"

// WarnPrefix 抓取失败时占位新闻的标题前缀
const WarnPrefix = "[WARN]"

// 新闻影响等级
const (
	ImpactHigh   = "High"
	ImpactMedium = "Medium"
	ImpactLow    = "Low"
)

// Axis 评估维度及其权重
type Axis struct {
	Name   string  `yaml:"name" json:"name"`
	Weight float64 `yaml:"weight" json:"weight"`
}

// AxisNames 返回维度名称（保持配置顺序）
func AxisNames(axes []Axis) []string {
	names := make([]string, len(axes))
	for i, a := range axes {
		names[i] = a.Name
	}
	return names
}

// TopicRule 主题分类规则：命中任一关键词即归入该主题
type TopicRule struct {
	Topic    string
	Keywords []string
}

// Headline 采集到的单条新闻
type Headline struct {
	Date       string `json:"date"`
	Competitor string `json:"competitor"`
	Title      string `json:"title"`
	Source     string `json:"source"`
	URL        string `json:"url"`
	Topic      string `json:"topic"`
	Impact     string `json:"impact"`
}

// IsWarning 是否为抓取失败的占位新闻
func (h Headline) IsWarning() bool {
	return strings.HasPrefix(strings.ToUpper(h.Title), WarnPrefix)
}

// EnrichedHeadline 附带正文摘要的新闻
type EnrichedHeadline struct {
	Headline
	Summary string `json:"summary"`
}

// ScoreRow 某竞品在某期的各维度得分与综合分
type ScoreRow struct {
	Competitor string             `json:"competitor"`
	Scores     map[string]float64 `json:"scores"`
	Composite  float64            `json:"weighted_composite"`
}

// Score 返回指定维度得分
func (r ScoreRow) Score(axis string) (float64, bool) {
	v, ok := r.Scores[axis]
	return v, ok
}

// FindRow 按竞品名查找得分行
func FindRow(rows []ScoreRow, competitor string) (ScoreRow, bool) {
	for _, r := range rows {
		if r.Competitor == competitor {
			return r, true
		}
	}
	return ScoreRow{}, false
}

// GapRow 焦点企业与维度领先者之间的差距
type GapRow struct {
	Axis   string  `json:"axis"`
	Gap    float64 `json:"gap"`
	Leader string  `json:"leader"`
}

// Clip 将得分限制在 [ScoreMin, ScoreMax]
func Clip(v float64) float64 {
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}
