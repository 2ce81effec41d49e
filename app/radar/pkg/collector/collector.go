package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/logger"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search"
)

const maxPageBytes = 5 << 20

// Options 采集参数
type Options struct {
	Timeout          time.Duration
	Delay            time.Duration
	MinTitleLength   int
	MaxCandidates    int
	UserAgent        string
	HighImpactTopics []string
	SearchMaxResults int
}

// Collector 新闻采集器。逐个来源串行抓取，两次请求之间至少间隔 Delay。
type Collector struct {
	opts       Options
	classifier *Classifier
	client     *http.Client
	limiter    *rate.Limiter
	searcher   search.Searcher
	now        func() time.Time
}

// New 创建采集器，searcher 可为 nil
func New(opts Options, rules []model.TopicRule, searcher search.Searcher) *Collector {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.MinTitleLength <= 0 {
		opts.MinTitleLength = 30
	}
	if opts.MaxCandidates <= 0 {
		opts.MaxCandidates = 30
	}

	limit := rate.Inf
	if opts.Delay > 0 {
		limit = rate.Every(opts.Delay)
	}

	return &Collector{
		opts:       opts,
		classifier: NewClassifier(rules, opts.HighImpactTopics),
		client:     &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		searcher:   searcher,
		now:        time.Now,
	}
}

// NewFromConfig 按配置创建采集器
func NewFromConfig(cfg *config.Config, searcher search.Searcher) *Collector {
	return New(Options{
		Timeout:          time.Duration(cfg.Collector.TimeoutSeconds) * time.Second,
		Delay:            time.Duration(cfg.Collector.DelayMillis) * time.Millisecond,
		MinTitleLength:   cfg.Collector.MinTitleLength,
		MaxCandidates:    cfg.Collector.MaxCandidates,
		UserAgent:        cfg.Collector.UserAgent,
		HighImpactTopics: cfg.HighImpactTopics,
		SearchMaxResults: cfg.Search.MaxResults,
	}, cfg.TopicKeywords, searcher)
}

// SetClock 替换时钟（测试用）
func (c *Collector) SetClock(now func() time.Time) {
	c.now = now
}

// Collect 采集所有竞品的新闻。单个来源失败只会产生一条 [WARN] 占位新闻；
// 只有 ctx 被取消时才返回错误。
func (c *Collector) Collect(ctx context.Context, period model.Period, competitors []string, sources map[string][]string) ([]model.Headline, error) {
	var out []model.Headline

	for _, competitor := range competitors {
		urls := sources[competitor]
		if len(urls) == 0 {
			if c.searcher == nil {
				logger.Log.Infof("竞品 [%s] 未配置新闻源，跳过", competitor)
				continue
			}
			items, err := c.searchCompetitor(ctx, period, competitor)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				logger.Log.Warnf("竞品 [%s] 搜索兜底失败: %v", competitor, err)
				out = append(out, c.warning(competitor, "search:"+c.searcher.Name(), err))
				continue
			}
			out = append(out, items...)
			continue
		}

		for _, src := range urls {
			items, err := c.collectSource(ctx, competitor, src)
			if err != nil {
				if ctx.Err() != nil {
					return out, ctx.Err()
				}
				logger.Log.Warnf("抓取新闻源失败 [%s] %s: %v", competitor, src, err)
				out = append(out, c.warning(competitor, src, err))
				continue
			}
			logger.Log.Infof("新闻源 [%s] %s: %d 条", competitor, src, len(items))
			out = append(out, items...)
		}
	}
	return out, nil
}

func (c *Collector) collectSource(ctx context.Context, competitor, src string) ([]model.Headline, error) {
	base, err := url.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}

	doc, err := c.fetch(ctx, src)
	if err != nil {
		return nil, err
	}

	cands := extractCandidates(doc, base, c.opts.MinTitleLength)
	if len(cands) > c.opts.MaxCandidates {
		cands = cands[:c.opts.MaxCandidates]
	}

	date := c.now().Format(time.DateOnly)
	seen := make(map[candidate]bool, len(cands))
	var out []model.Headline
	for _, cand := range cands {
		if seen[cand] {
			continue
		}
		seen[cand] = true

		link := cand.link
		if link == "" {
			link = src
		}
		topic, impact := c.classifier.Classify(cand.title)
		out = append(out, model.Headline{
			Date:       date,
			Competitor: competitor,
			Title:      cand.title,
			Source:     hostOf(link, src),
			URL:        link,
			Topic:      topic,
			Impact:     impact,
		})
	}
	return out, nil
}

func (c *Collector) fetch(ctx context.Context, src string) (*goquery.Document, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if c.opts.UserAgent != "" {
		req.Header.Set("User-Agent", c.opts.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (c *Collector) searchCompetitor(ctx context.Context, period model.Period, competitor string) ([]model.Headline, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	start, end := period.Bounds()
	resp, err := c.searcher.Search(ctx, &search.Request{
		Query:      competitor,
		Topic:      "news",
		MaxResults: c.opts.SearchMaxResults,
		StartDate:  start,
		EndDate:    end,
	})
	if err != nil {
		return nil, err
	}

	date := c.now().Format(time.DateOnly)
	seen := map[candidate]bool{}
	var out []model.Headline
	for _, r := range resp.Results {
		cand := candidate{title: normalizeText(r.Title), link: strings.TrimSpace(r.URL)}
		if utf8.RuneCountInString(cand.title) <= c.opts.MinTitleLength || cand.link == "" || seen[cand] {
			continue
		}
		seen[cand] = true

		topic, impact := c.classifier.Classify(cand.title)
		out = append(out, model.Headline{
			Date:       date,
			Competitor: competitor,
			Title:      cand.title,
			Source:     hostOf(cand.link, ""),
			URL:        cand.link,
			Topic:      topic,
			Impact:     impact,
		})
	}
	logger.Log.Infof("竞品 [%s] 通过 %s 搜索到 %d 条新闻", competitor, c.searcher.Name(), len(out))
	return out, nil
}

func (c *Collector) warning(competitor, src string, err error) model.Headline {
	return model.Headline{
		Date:       c.now().Format(time.DateOnly),
		Competitor: competitor,
		Title:      fmt.Sprintf("%s could not read %s: %v", model.WarnPrefix, src, err),
		Source:     hostOf(src, ""),
		URL:        src,
		Topic:      model.TopicGeneral,
		Impact:     model.ImpactLow,
	}
}

type candidate struct {
	title string
	link  string
}

// extractCandidates 先取足够长的链接文本，再取无链接的 h3/h2 标题
func extractCandidates(doc *goquery.Document, base *url.URL, minLen int) []candidate {
	var out []candidate

	doc.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if utf8.RuneCountInString(text) <= minLen || href == "" || strings.HasPrefix(href, "#") {
			return
		}
		out = append(out, candidate{title: text, link: resolve(base, href)})
	})

	doc.Find("h3, h2").Each(func(_ int, s *goquery.Selection) {
		text := normalizeText(s.Text())
		if utf8.RuneCountInString(text) > minLen {
			out = append(out, candidate{title: text})
		}
	})
	return out
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func hostOf(link, fallback string) string {
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		return u.Host
	}
	if u, err := url.Parse(fallback); err == nil && u.Host != "" {
		return u.Host
	}
	return ""
}
