package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iWorld-y/competitor_radar/app/radar/pkg/config"
)

func TestNewSearcher(t *testing.T) {
	s, err := NewSearcher(config.SearchConfig{})
	require.NoError(t, err)
	assert.Nil(t, s, "no provider disables the fallback")

	s, err = NewSearcher(config.SearchConfig{Provider: "tavily", Tavily: config.TavilyConfig{APIKey: "k"}})
	require.NoError(t, err)
	assert.Equal(t, "tavily", s.Name())

	s, err = NewSearcher(config.SearchConfig{Provider: "searxng", SearXNG: config.SearXNGConfig{BaseURL: "http://localhost:8888"}})
	require.NoError(t, err)
	assert.Equal(t, "searxng", s.Name())

	_, err = NewSearcher(config.SearchConfig{Provider: "tavily"})
	assert.ErrorContains(t, err, "api_key")

	_, err = NewSearcher(config.SearchConfig{Provider: "searxng"})
	assert.ErrorContains(t, err, "base_url")

	_, err = NewSearcher(config.SearchConfig{Provider: "bing"})
	assert.ErrorContains(t, err, "unknown search provider")
}
