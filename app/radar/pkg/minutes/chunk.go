package minutes

import (
	"math"
	"strings"
)

// 分块默认值（估算 token 数）
const (
	TargetTokens = 1800
	MaxTokens    = 2200
)

// EstimateTokens 粗略估算 token 数：ceil(词数 × 1.3)
func EstimateTokens(s string) int {
	return int(math.Ceil(float64(len(strings.Fields(s))) * 1.3))
}

// Chunk 按行把文本打包成块。加入下一行会超过 target 时另起一块；
// 块超过 limit 时立即封块。单行本身超过 limit 时独占一块。
func Chunk(text string, target, limit int) []string {
	if target <= 0 {
		target = TargetTokens
	}
	if limit < target {
		limit = target
	}

	var (
		parts  []string
		buf    []string
		tokens int
	)
	flush := func() {
		if block := strings.Join(buf, "\n"); strings.TrimSpace(block) != "" {
			parts = append(parts, block)
		}
		buf, tokens = nil, 0
	}

	for _, para := range strings.Split(text, "\n") {
		t := EstimateTokens(para)
		if tokens+t > target && len(buf) > 0 {
			flush()
		}
		buf = append(buf, para)
		tokens += t
		if tokens > limit {
			flush()
		}
	}
	flush()
	return parts
}
