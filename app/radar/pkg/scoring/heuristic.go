package scoring

import (
	"math"
	"sort"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// Signals 维度的信号权重表：信号（主题名或 total）-> 权重
type Signals map[string]float64

// DefaultSignals 默认的维度信号表
var DefaultSignals = map[string]Signals{
	"Integrations":        {"Integrations": 0.6, "Product": 0.2},
	"Implementation":      {"Implementation": 0.5, "Product": 0.2},
	"AI/Automation":       {"AI/Automation": 0.7, "Product": 0.2},
	"Security/Compliance": {"Security/Compliance": 0.7, SignalTotal: 0.3},
	"Pricing/Value":       {"Pricing/Value": 0.5, "Finance/Capital": 0.2},
	"Support/SLAs":        {SignalTotal: 0.4, "Product": 0.3},
	"Market Traction":     {"Partnerships/Expansion": 0.5, "Finance/Capital": 0.4, SignalTotal: 0.2},
}

// fallbackSignals 未知维度只看新闻总量
var fallbackSignals = Signals{SignalTotal: 0.4}

// SignalTable 维度信号表，配置中的 axis_signals 覆盖默认值
type SignalTable map[string]Signals

// NewSignalTable 合并默认表与覆盖项
func NewSignalTable(overrides map[string]map[string]float64) SignalTable {
	t := make(SignalTable, len(DefaultSignals)+len(overrides))
	for axis, s := range DefaultSignals {
		t[axis] = s
	}
	for axis, s := range overrides {
		t[axis] = Signals(s)
	}
	return t
}

// For 返回维度的信号权重
func (t SignalTable) For(axis string) Signals {
	if s, ok := t[axis]; ok {
		return s
	}
	return fallbackSignals
}

// HeuristicScore 3.0 + Σ w·log1p(count)，再截断到 [1, 5]
func HeuristicScore(f Features, signals Signals) float64 {
	// 固定求和顺序，保证浮点结果可复现
	names := make([]string, 0, len(signals))
	for name := range signals {
		names = append(names, name)
	}
	sort.Strings(names)

	score := model.ScoreNeutral
	for _, name := range names {
		score += signals[name] * math.Log1p(float64(f.Count(name)))
	}
	return model.Clip(score)
}

// Smooth 与上期得分混合：0.7·当期 + 0.3·上期，再截断
func Smooth(current, prior float64) float64 {
	return model.Clip(0.7*current + 0.3*prior)
}
