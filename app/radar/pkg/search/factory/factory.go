package factory

import (
	"fmt"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search/searxng"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search/tavily"
)

// NewSearcher 根据配置创建搜索兜底实例；未配置 provider 时返回 nil
func NewSearcher(cfg config.SearchConfig) (search.Searcher, error) {
	switch cfg.Provider {
	case "":
		return nil, nil

	case "tavily":
		if cfg.Tavily.APIKey == "" {
			return nil, fmt.Errorf("search.tavily.api_key is missing (or set TAVILY_API_KEY)")
		}
		return tavily.NewClient(cfg.Tavily.APIKey, cfg.Tavily.BaseURL), nil

	case "searxng":
		if cfg.SearXNG.BaseURL == "" {
			return nil, fmt.Errorf("search.searxng.base_url is missing")
		}
		return searxng.NewClient(cfg.SearXNG.BaseURL, cfg.SearXNG.Timeout), nil

	default:
		return nil, fmt.Errorf("unknown search provider: %s", cfg.Provider)
	}
}
