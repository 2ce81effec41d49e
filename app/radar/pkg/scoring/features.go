package scoring

import (
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// SignalTotal 代表该竞品当期全部已分类新闻数量的信号名
const SignalTotal = "total"

// Features 单个竞品的新闻计数特征
type Features struct {
	Competitor string
	Counts     map[string]int // 主题 -> 新闻数
	Total      int            // 非 General 新闻总数
}

// Count 返回信号计数，total 为总量
func (f Features) Count(signal string) int {
	if signal == SignalTotal {
		return f.Total
	}
	return f.Counts[signal]
}

// BuildFeatures 按竞品统计各主题新闻数量。
// 每个竞品都有一行，即使当期没有任何新闻；General 与占位新闻不计入总量。
func BuildFeatures(headlines []model.Headline, competitors []string) []Features {
	byName := make(map[string]*Features, len(competitors))
	out := make([]Features, len(competitors))
	for i, c := range competitors {
		out[i] = Features{Competitor: c, Counts: map[string]int{}}
		byName[c] = &out[i]
	}

	for _, h := range headlines {
		f, ok := byName[h.Competitor]
		if !ok || h.IsWarning() || h.Topic == "" || h.Topic == model.TopicGeneral {
			continue
		}
		f.Counts[h.Topic]++
		f.Total++
	}
	return out
}
