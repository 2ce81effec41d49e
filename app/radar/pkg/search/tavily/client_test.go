package tavily

import (
	"context"
	"encoding/json"
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
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tvly-key", r.Header.Get("Authorization"))

		var body searchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Acme", body.Query)
		assert.Equal(t, "news", body.Topic)
		assert.Equal(t, 5, body.MaxResults)
		assert.Equal(t, "2025-11-01", body.StartDate)
		assert.Equal(t, "2025-11-30", body.EndDate)

		_, _ = w.Write([]byte(`{"query":"Acme","results":[{"title":"Acme partners with Initech on payments","url":"https://news.example/a","content":"...","score":0.9}]}`))
	}))
	defer srv.Close()

	c := NewClient("tvly-key", srv.URL)
	resp, err := c.Search(context.Background(), &search.Request{Query: "Acme", StartDate: "2025-11-01", EndDate: "2025-11-30"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Acme partners with Initech on payments", resp.Results[0].Title)
}

func TestClientSearchError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"invalid key"}`))
	}))
	defer srv.Close()

	_, err := NewClient("bad", srv.URL).Search(context.Background(), &search.Request{Query: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
