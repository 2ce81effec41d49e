package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search"
)

var testRules = []model.TopicRule{
	{Topic: "Security/Compliance", Keywords: []string{"ISO 27001", "soc 2"}},
	{Topic: "Integrations", Keywords: []string{"integration", "api"}},
	{Topic: "Partnerships/Expansion", Keywords: []string{"partner", "expands"}},
}

const newsPage = `<html><body>
<a href="#top">Skip to the main content of this page please</a>
<a href="/blog/1">Acme ships a native SAP integration for retailers</a>
<a href="/blog/1">Acme ships a native SAP integration for retailers</a>
<a href="https://press.example/2">Acme partners with Initech to expand into Mexico</a>
<a href="/short">Read more</a>
<a href="">An anchor without href should never be collected</a>
<h2>Acme completes its SOC 2 Type II audit this quarter</h2>
<h3>Tiny</h3>
</body></html>`

func fixedClock() time.Time { return time.Date(2025, 11, 5, 12, 0, 0, 0, time.UTC) }

func newTestCollector(searcher search.Searcher) *Collector {
	c := New(Options{
		Timeout:          2 * time.Second,
		MinTitleLength:   30,
		MaxCandidates:    30,
		UserAgent:        "radar-test",
		HighImpactTopics: []string{"Partnerships/Expansion"},
	}, testRules, searcher)
	c.SetClock(fixedClock)
	return c
}

func TestCollectExtractsAndClassifies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "radar-test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(newsPage))
	}))
	defer srv.Close()

	c := newTestCollector(nil)
	got, err := c.Collect(context.Background(), model.Period{Year: 2025, Month: 11}, []string{"Acme"}, map[string][]string{"Acme": {srv.URL + "/news"}})
	require.NoError(t, err)
	require.Len(t, got, 3, "duplicate (title, link) collapses, short and fragment links are dropped")

	assert.Equal(t, "Acme ships a native SAP integration for retailers", got[0].Title)
	assert.Equal(t, srv.URL+"/blog/1", got[0].URL)
	assert.Equal(t, "Integrations", got[0].Topic)
	assert.Equal(t, model.ImpactMedium, got[0].Impact)
	assert.Equal(t, "2025-11-05", got[0].Date)

	assert.Equal(t, "Partnerships/Expansion", got[1].Topic)
	assert.Equal(t, model.ImpactHigh, got[1].Impact)
	assert.Equal(t, "press.example", got[1].Source)

	// 标题没有链接时回落到页面地址
	assert.Equal(t, "Security/Compliance", got[2].Topic)
	assert.Equal(t, srv.URL+"/news", got[2].URL)
	assert.Equal(t, strings.TrimPrefix(srv.URL, "http://"), got[2].Source)
}

func TestCollectIsolatesFailingSource(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/down" {
			http.Error(w, "nope", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(newsPage))
	}))
	defer srv.Close()

	c := newTestCollector(nil)
	got, err := c.Collect(context.Background(), model.Period{Year: 2025, Month: 11},
		[]string{"Globex", "Acme", "Initech"},
		map[string][]string{
			"Globex": {srv.URL + "/down"},
			"Acme":   {srv.URL + "/news"},
		})
	require.NoError(t, err)
	require.Len(t, got, 4)

	warn := got[0]
	assert.True(t, warn.IsWarning())
	assert.Equal(t, "Globex", warn.Competitor)
	assert.Contains(t, warn.Title, "status 503")
	assert.Equal(t, model.TopicGeneral, warn.Topic)
	assert.Equal(t, model.ImpactLow, warn.Impact)

	for _, h := range got[1:] {
		assert.Equal(t, "Acme", h.Competitor)
	}
}

func TestCollectCapsCandidates(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&sb, `<a href="/n/%d">Headline number %02d about a product launch event</a>`, i, i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body>" + sb.String() + "</body></html>"))
	}))
	defer srv.Close()

	got, err := newTestCollector(nil).Collect(context.Background(), model.Period{Year: 2025, Month: 11}, []string{"Acme"}, map[string][]string{"Acme": {srv.URL}})
	require.NoError(t, err)
	assert.Len(t, got, 30)
}

type stubSearcher struct {
	resp *search.Response
	err  error
	req  *search.Request
}

func (s *stubSearcher) Name() string { return "stub" }

func (s *stubSearcher) Search(_ context.Context, req *search.Request) (*search.Response, error) {
	s.req = req
	return s.resp, s.err
}

func TestCollectSearchFallback(t *testing.T) {
	t.Parallel()

	s := &stubSearcher{resp: &search.Response{Results: []search.Result{
		{Title: "Globex expands its API integration marketplace", URL: "https://news.example/g1"},
		{Title: "Globex expands its API integration marketplace", URL: "https://news.example/g1"},
		{Title: "too short", URL: "https://news.example/g2"},
	}}}

	got, err := newTestCollector(s).Collect(context.Background(), model.Period{Year: 2025, Month: 2}, []string{"Globex"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Integrations", got[0].Topic, "first matching rule wins over later ones")
	assert.Equal(t, "news.example", got[0].Source)

	require.NotNil(t, s.req)
	assert.Equal(t, "Globex", s.req.Query)
	assert.Equal(t, "2025-02-01", s.req.StartDate)
	assert.Equal(t, "2025-02-28", s.req.EndDate)
}

func TestCollectSearchFailureBecomesWarning(t *testing.T) {
	t.Parallel()

	s := &stubSearcher{err: errors.New("quota exceeded")}
	got, err := newTestCollector(s).Collect(context.Background(), model.Period{Year: 2025, Month: 11}, []string{"Globex"}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].IsWarning())
	assert.Contains(t, got[0].Title, "search:stub")
}

func TestCollectCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestCollector(nil).Collect(ctx, model.Period{Year: 2025, Month: 11}, []string{"Acme"}, map[string][]string{"Acme": {"http://127.0.0.1:1/"}})
	require.ErrorIs(t, err, context.Canceled)
}

func TestClassifier(t *testing.T) {
	c := NewClassifier(testRules, []string{"Partnerships/Expansion"})

	topic, impact := c.Classify("Acme obtains ISO 27001 and new API")
	assert.Equal(t, "Security/Compliance", topic)
	assert.Equal(t, model.ImpactMedium, impact)

	topic, _ = c.Classify("Quarterly results announced")
	assert.Equal(t, model.TopicGeneral, topic)
}
