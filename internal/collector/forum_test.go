package collector

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentRadar/internal/config"
)

func TestForumCollect(t *testing.T) {
	t.Parallel()

	status := map[string]any{
		"id":          987654,
		"title":       "",
		"text":        "<p>恒生指数大涨 — semiconductors lead the rally &amp; volume spikes</p>",
		"reply_count": 42,
		"created_at":  1762600000000,
		"user":        map[string]any{"id": 555, "screen_name": "trader_zhang"},
	}
	wrapped, err := json.Marshal(status)
	require.NoError(t, err)
	// The timeline API double-encodes each status as a JSON string.
	inner, err := json.Marshal(string(wrapped))
	require.NoError(t, err)

	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{"list":[{"data":` + string(inner) + `}]}`))
	}))
	defer server.Close()

	cfg := config.ForumConfig{
		BaseURL: server.URL,
		Categories: []config.CategoryConfig{
			{Name: "hot", ID: 111},
			{Name: "stocks", ID: 114},
		},
		Count: 20,
	}

	f := NewForum(server.Client(), cfg, discardLogger())
	records, err := f.Collect(context.Background())
	require.NoError(t, err)

	// Both categories return the same post; the run self-dedups.
	assert.Equal(t, 2, calls)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "forum", rec.Source)
	assert.Equal(t, "forum_987654", rec.SourceID)
	assert.Equal(t, "trader_zhang", rec.Author)
	// HTML stripped, entities unescaped.
	assert.NotContains(t, rec.Body, "<p>")
	assert.Contains(t, rec.Body, "semiconductors lead the rally & volume spikes")
	// Empty upstream title falls back to the body prefix.
	assert.Contains(t, rec.Title, "恒生指数大涨")
	assert.Equal(t, 42, rec.EngagementScore)
	assert.Contains(t, rec.URL, "/555/987654")
	require.NotNil(t, rec.PublishedAt)
}

func TestForumMalformedStatusDropped(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"list":[{"data":"not json"},{"data":{"id":0}},{"data":{"id":7,"text":"bought more <b>NVDA</b>","user":{"id":1,"screen_name":"kol"}}}]}`))
	}))
	defer server.Close()

	cfg := config.ForumConfig{
		BaseURL:    server.URL,
		Categories: []config.CategoryConfig{{Name: "hot", ID: 111}},
		Count:      20,
	}

	f := NewForum(server.Client(), cfg, discardLogger())
	records, err := f.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "forum_7", records[0].SourceID)
	assert.Equal(t, "bought more NVDA", records[0].Body)
}
