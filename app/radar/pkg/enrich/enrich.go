package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/narrative"
)

const (
	fallbackSummaryChars = 280
	maxBodyBytes         = 5 << 20
)

// Options 补全参数
type Options struct {
	MaxItems  int
	MaxChars  int
	Timeout   time.Duration
	Delay     time.Duration
	UserAgent string
}

// Enricher 抓取新闻正文并生成摘要
type Enricher struct {
	opts    Options
	client  *http.Client
	limiter *rate.Limiter
	gen     llm.Generator
}

// New 创建 Enricher
func New(opts Options, gen llm.Generator) *Enricher {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 20
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = 5000
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if gen == nil {
		gen = llm.Fallback{}
	}
	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}
	return &Enricher{
		opts:    opts,
		client:  &http.Client{Timeout: opts.Timeout},
		limiter: rate.NewLimiter(limit, 1),
		gen:     gen,
	}
}

// NewFromConfig 按配置创建 Enricher
func NewFromConfig(cfg *config.Config, gen llm.Generator) *Enricher {
	return New(Options{
		MaxItems:  cfg.Enrich.MaxItems,
		MaxChars:  cfg.Enrich.MaxChars,
		Timeout:   time.Duration(cfg.Collector.TimeoutSeconds) * time.Second,
		Delay:     time.Duration(cfg.Collector.DelayMillis) * time.Millisecond,
		UserAgent: cfg.Collector.UserAgent,
	}, gen)
}

// Enrich 对清洗后的前 MaxItems 条新闻补全摘要。
// 单条抓取失败只记录日志，摘要留空；只有 ctx 取消才返回错误。
func (e *Enricher) Enrich(ctx context.Context, items []model.Headline) ([]model.EnrichedHeadline, error) {
	in := make([]model.EnrichedHeadline, len(items))
	for i, h := range items {
		in[i] = model.EnrichedHeadline{Headline: h}
	}
	out := narrative.CleanNews(in)

	n := min(e.opts.MaxItems, len(out))
	logger.Log.Infof("开始补全新闻正文，共 %d 条，处理前 %d 条", len(out), n)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		h := &out[i]
		if h.URL == "" {
			continue
		}

		text, err := e.extract(ctx, h.URL)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Log.Warnf("抓取正文失败 [%s]: %v", h.URL, err)
			continue
		}
		if text == "" {
			continue
		}

		summary, impact := e.summarize(ctx, h.Headline, text)
		h.Summary = summary
		if impact != "" {
			h.Impact = impact
		}
	}
	return out, nil
}

func (e *Enricher) extract(ctx context.Context, pageURL string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", err
	}

	u, err := url.Parse(pageURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	if e.opts.UserAgent != "" {
		req.Header.Set("User-Agent", e.opts.UserAgent)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(io.LimitReader(resp.Body, maxBodyBytes), u)
	if err != nil {
		return "", fmt.Errorf("readability: %w", err)
	}
	return truncate(strings.Join(strings.Fields(article.TextContent), " "), e.opts.MaxChars), nil
}

func (e *Enricher) summarize(ctx context.Context, h model.Headline, text string) (summary, impact string) {
	resp := e.gen.Complete(ctx, llm.Request{
		System: "You summarize competitor news for a monthly competitive intelligence report.",
		Prompt: fmt.Sprintf(
			"Competitor: %s\nHeadline: %s\nTopic: %s\n\nArticle:\n%s\n\n"+
				"Return a two-sentence business summary and the impact for our market position (High, Medium or Low).",
			h.Competitor, h.Title, h.Topic, text),
		Fields: []string{"summary", "impact"},
		Fallback: map[string]string{
			"summary": truncate(text, fallbackSummaryChars),
			"impact":  h.Impact,
		},
	})
	return resp.Get("summary"), normalizeImpact(resp.Get("impact"))
}

func normalizeImpact(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "high":
		return model.ImpactHigh
	case "medium":
		return model.ImpactMedium
	case "low":
		return model.ImpactLow
	default:
		return ""
	}
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
