package collector

import (
	"strings"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// Classifier 关键词主题分类器
type Classifier struct {
	rules      []model.TopicRule
	highImpact map[string]bool
}

// NewClassifier 创建分类器。规则顺序即优先级。
func NewClassifier(rules []model.TopicRule, highImpactTopics []string) *Classifier {
	lowered := make([]model.TopicRule, len(rules))
	for i, r := range rules {
		kws := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
				kws = append(kws, k)
			}
		}
		lowered[i] = model.TopicRule{Topic: r.Topic, Keywords: kws}
	}

	hi := make(map[string]bool, len(highImpactTopics))
	for _, t := range highImpactTopics {
		hi[t] = true
	}
	return &Classifier{rules: lowered, highImpact: hi}
}

// Classify 返回第一个命中的主题及其影响等级，未命中为 General
func (c *Classifier) Classify(title string) (topic, impact string) {
	t := strings.ToLower(title)
	topic = model.TopicGeneral
	for _, r := range c.rules {
		if matchesAny(t, r.Keywords) {
			topic = r.Topic
			break
		}
	}

	impact = model.ImpactMedium
	if c.highImpact[topic] {
		impact = model.ImpactHigh
	}
	return topic, impact
}

func matchesAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
