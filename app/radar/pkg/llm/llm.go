package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
)

// Request 文本生成请求：有界的提示词 + 期望输出的字段集合 + 兜底内容
type Request struct {
	System   string
	Prompt   string
	Fields   []string
	Fallback map[string]string
}

// Response 文本生成结果。FromModel 为 false 表示使用了兜底内容。
type Response struct {
	Fields    map[string]string
	FromModel bool
}

// Get 返回字段值
func (r Response) Get(name string) string {
	return r.Fields[name]
}

// Generator 文本生成协作方。永远不返回错误：失败时给出兜底内容。
type Generator interface {
	Complete(ctx context.Context, req Request) Response
}

// Fallback 未启用 LLM 或没有凭证时使用，直接返回兜底内容
type Fallback struct{}

// Complete implements Generator
func (Fallback) Complete(_ context.Context, req Request) Response {
	return fallbackOf(req)
}

func fallbackOf(req Request) Response {
	out := make(map[string]string, len(req.Fields))
	for _, f := range req.Fields {
		out[f] = req.Fallback[f]
	}
	return Response{Fields: out}
}

type chatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// Client 基于 eino ChatModel 的实现，带限流与 429 重试
type Client struct {
	cm             chatModel
	limiter        *rate.Limiter
	maxPromptChars int
	maxRetries     int
	baseDelay      time.Duration
}

// New 按配置创建文本生成器。未启用或缺少 API Key 时返回 Fallback，这是正常分支。
func New(ctx context.Context, cfg config.LLMConfig, conc config.ConcurrencyConfig, enabled bool) (Generator, error) {
	if !enabled {
		logger.Log.Info("未启用 LLM，叙述文本使用模板")
		return Fallback{}, nil
	}
	if cfg.APIKey == "" {
		logger.Log.Warn("已启用 LLM 但未配置 API Key，叙述文本使用模板")
		return Fallback{}, nil
	}

	cm, err := openai.NewChatModel(ctx, &openai.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM 初始化失败: %w", err)
	}

	limiter := rate.NewLimiter(rate.Limit(float64(conc.RPM)/60.0), conc.QPS)
	return NewClient(cm, limiter, cfg.MaxPromptChars), nil
}

// NewClient 包装任意 ChatModel
func NewClient(cm chatModel, limiter *rate.Limiter, maxPromptChars int) *Client {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	if maxPromptChars <= 0 {
		maxPromptChars = 12000
	}
	return &Client{
		cm:             cm,
		limiter:        limiter,
		maxPromptChars: maxPromptChars,
		maxRetries:     3,
		baseDelay:      2 * time.Second,
	}
}

// Complete implements Generator
func (c *Client) Complete(ctx context.Context, req Request) Response {
	fields, err := c.generate(ctx, req)
	if err != nil {
		logger.Log.Warnf("LLM 调用失败，使用兜底内容: %v", err)
		return fallbackOf(req)
	}
	return Response{Fields: fields, FromModel: true}
}

func (c *Client) generate(ctx context.Context, req Request) (map[string]string, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt(req)},
		{Role: schema.User, Content: truncate(req.Prompt, c.maxPromptChars)},
	}

	var lastErr error
	for i := 0; i <= c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		resp, err := c.cm.Generate(ctx, messages)
		if err != nil {
			if !isRateLimited(err) {
				return nil, err
			}
			lastErr = err
			if i < c.maxRetries {
				if err := sleep(ctx, c.baseDelay*time.Duration(1<<i)); err != nil {
					return nil, err
				}
			}
			continue
		}

		fields, err := parseFields(resp.Content, req.Fields)
		if err != nil {
			lastErr = err
			continue
		}
		return fields, nil
	}
	return nil, fmt.Errorf("failed after retries: %w", lastErr)
}

func systemPrompt(req Request) string {
	var sb strings.Builder
	if req.System != "" {
		sb.WriteString(req.System)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Respond with a single JSON object and nothing else. Required keys: %s.", strings.Join(req.Fields, ", "))
	return sb.String()
}

func isRateLimited(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") || strings.Contains(msg, "too many requests")
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// parseFields 去掉 ```json 包裹后解析 JSON，所有字段都必须存在
func parseFields(content string, fields []string) (map[string]string, error) {
	clean := strings.TrimSpace(content)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	clean = strings.TrimSpace(clean)
	if start, end := strings.Index(clean, "{"), strings.LastIndex(clean, "}"); start >= 0 && end > start {
		clean = clean[start : end+1]
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	out := make(map[string]string, len(fields))
	for _, f := range fields {
		v, ok := raw[f]
		if !ok || v == nil {
			return nil, fmt.Errorf("missing field %q", f)
		}
		s, err := stringify(v)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		out[f] = s
	}
	return out, nil
}

func stringify(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case float64, bool:
		return fmt.Sprint(t), nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			s, err := stringify(item)
			if err != nil {
				return "", err
			}
			if s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", errors.New("unsupported value type")
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
