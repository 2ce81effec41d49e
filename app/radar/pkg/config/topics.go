package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

// TopicRules 主题关键词表。分类时按文件中的书写顺序取第一个命中的主题，
// 因此不能直接解码成 map。
type TopicRules []model.TopicRule

// UnmarshalYAML 保留映射的键顺序
func (r *TopicRules) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("topic_keywords: line %d: expected a mapping of topic -> keyword list", node.Line)
	}

	rules := make(TopicRules, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]

		var keywords []string
		if err := val.Decode(&keywords); err != nil {
			return fmt.Errorf("topic_keywords.%s: line %d: %w", key.Value, val.Line, err)
		}
		rules = append(rules, model.TopicRule{Topic: key.Value, Keywords: keywords})
	}

	*r = rules
	return nil
}

// Topics 返回主题名称（保持顺序）
func (r TopicRules) Topics() []string {
	out := make([]string, len(r))
	for i, rule := range r {
		out[i] = rule.Topic
	}
	return out
}
