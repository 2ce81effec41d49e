package searxng

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/search"
)

func TestClientSearch(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "Acme", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "news", r.URL.Query().Get("categories"))
		assert.Equal(t, "month", r.URL.Query().Get("time_range"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"query":"Acme","results":[
			{"title":"Acme raises a Series B to expand in LATAM","url":"https://news.example/1","publishedDate":"2025-11-02"},
			{"title":"Acme opens Bogota office","url":"https://news.example/2"},
			{"title":"third","url":"https://news.example/3"}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, 5)
	resp, err := c.Search(context.Background(), &search.Request{Query: "Acme", Topic: "news", MaxResults: 2, StartDate: "2025-11-01"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "https://news.example/1", resp.Results[0].URL)
	assert.Equal(t, "2025-11-02", resp.Results[0].PublishedDate)
}

func TestClientSearchStatusError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Search(context.Background(), &search.Request{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
