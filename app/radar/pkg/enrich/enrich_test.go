package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/llm"
	"github.com/iWorld-y/competitor_radar/app/radar/pkg/model"
)

func articlePage() string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>Acme partners with Initech</title></head><body>")
	sb.WriteString("<nav><a href='/'>Home</a> <a href='/about'>About</a></nav><article><h1>Acme partners with Initech</h1>")
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&sb, "<p>Acme announced a strategic partnership with Initech to expand into the LATAM market, "+
			"bringing its integration platform to hundreds of mid-size retailers over the next year. Paragraph %d adds detail "+
			"about pricing, onboarding timelines and the joint go-to-market plan agreed by both companies.</p>", i)
	}
	sb.WriteString("</article><footer>Copyright</footer></body></html>")
	return sb.String()
}

func newServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/article", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(articlePage()))
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		http.NotFound(w, r)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestEnrichFallbackSummary(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)

	items := []model.Headline{
		{Competitor: "Acme", Title: "Acme partners with Initech", Source: srv.URL, URL: srv.URL + "/article", Impact: model.ImpactMedium},
		{Competitor: "Acme", Title: "Acme partners with Initech", Source: srv.URL, URL: srv.URL + "/article"},
		{Competitor: "Globex", Title: "Globex page gone", Source: srv.URL, URL: srv.URL + "/gone", Impact: model.ImpactLow},
		{Competitor: "Globex", Title: "Globex via aggregator", Source: "https://news.google.com", URL: srv.URL + "/article"},
	}

	got, err := New(Options{}, nil).Enrich(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, got, 2, "duplicates and aggregator items are dropped")

	assert.Len(t, []rune(got[0].Summary), fallbackSummaryChars)
	assert.Equal(t, model.ImpactMedium, got[0].Impact)

	assert.Empty(t, got[1].Summary, "fetch failures keep the headline without summary")
	assert.Equal(t, model.ImpactLow, got[1].Impact)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

type captureGen struct {
	prompts []string
}

func (c *captureGen) Complete(_ context.Context, req llm.Request) llm.Response {
	c.prompts = append(c.prompts, req.Prompt)
	return llm.Response{FromModel: true, Fields: map[string]string{"summary": "Acme expands to LATAM.", "impact": " high "}}
}

func TestEnrichWithModelRespectsMaxItems(t *testing.T) {
	var hits int32
	srv := newServer(t, &hits)

	items := []model.Headline{
		{Competitor: "Acme", Title: "First", Source: srv.URL, URL: srv.URL + "/article", Impact: model.ImpactLow},
		{Competitor: "Acme", Title: "Second", Source: srv.URL, URL: srv.URL + "/article"},
	}
	gen := &captureGen{}
	got, err := New(Options{MaxItems: 1, MaxChars: 300}, gen).Enrich(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "Acme expands to LATAM.", got[0].Summary)
	assert.Equal(t, model.ImpactHigh, got[0].Impact)
	assert.Empty(t, got[1].Summary)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "strategic partnership with Initech")
}

func TestEnrichCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{}, nil).Enrich(ctx, []model.Headline{{Competitor: "Acme", Title: "x", URL: "http://127.0.0.1:1/"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeImpact(t *testing.T) {
	assert.Equal(t, model.ImpactMedium, normalizeImpact("Medium"))
	assert.Equal(t, "", normalizeImpact("critical"))
}
