package collector

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentRadar/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestHackerNewsCollect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "crypto" {
			// Overlaps with the front page on objectID 100.
			w.Write([]byte(`{"hits":[
				{"objectID":"100","title":"Bitcoin hits new ATH","author":"pg","points":320,"url":"https://example.com/btc","created_at":"2025-11-08T10:00:00Z"},
				{"objectID":"300","title":"Stablecoin regulation draft","author":"dang","points":75,"created_at":"2025-11-08T09:00:00Z"}
			]}`))
			return
		}
		w.Write([]byte(`{"hits":[
			{"objectID":"100","title":"Bitcoin hits new ATH","author":"pg","points":320,"url":"https://example.com/btc","created_at":"2025-11-08T10:00:00Z"},
			{"objectID":"200","title":"Show HN: tiny project","author":"someone","points":12,"created_at":"2025-11-08T08:00:00Z"}
		]}`))
	}))
	defer server.Close()

	cfg := config.HackerNewsConfig{
		APIBase:     server.URL,
		MinScore:    50,
		HitsPerPage: 50,
		Keywords:    []string{"crypto"},
	}

	hn := NewHackerNews(server.Client(), cfg, discardLogger())
	records, err := hn.Collect(context.Background())
	require.NoError(t, err)

	// objectID 200 filtered by score, 100 deduped across queries.
	require.Len(t, records, 2)

	assert.Equal(t, "hn_100", records[0].SourceID)
	assert.Equal(t, "hackernews", records[0].Source)
	assert.Equal(t, 320, records[0].EngagementScore)
	assert.Contains(t, records[0].Tags, "crypto")
	require.NotNil(t, records[0].PublishedAt)

	assert.Equal(t, "hn_300", records[1].SourceID)
	// No native URL: falls back to the item page.
	assert.Equal(t, "https://news.ycombinator.com/item?id=300", records[1].URL)
	// Keyword searches carry the query as a tag.
	assert.Contains(t, records[1].Tags, "crypto")
}

func TestHackerNewsTransportFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer server.Close()

	cfg := config.HackerNewsConfig{APIBase: server.URL, MinScore: 50, HitsPerPage: 50}
	hn := NewHackerNews(server.Client(), cfg, discardLogger())

	records, err := hn.Collect(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}
