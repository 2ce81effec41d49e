package search

import "context"

// Searcher 搜索兜底接口：竞品未配置新闻源时用它找当期新闻
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
	Name() string
}

// Request 通用搜索请求
type Request struct {
	Query      string
	Topic      string // "news" or "general"
	MaxResults int
	StartDate  string // YYYY-MM-DD
	EndDate    string // YYYY-MM-DD
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	PublishedDate string
}
