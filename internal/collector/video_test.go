package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentRadar/internal/config"
)

const sampleAtom = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns:yt="http://www.youtube.com/xml/schemas/2015"
      xmlns:media="http://search.yahoo.com/mrss/"
      xmlns="http://www.w3.org/2005/Atom">
  <title>Channel uploads</title>
  <entry>
    <yt:videoId>dQw4w9WgXcQ</yt:videoId>
    <title>Claude agents deep dive</title>
    <link rel="alternate" href="https://www.youtube.com/watch?v=dQw4w9WgXcQ"/>
    <published>2025-11-08T12:00:00+00:00</published>
    <media:group>
      <media:description>How agentic workflows change trading research.</media:description>
    </media:group>
  </entry>
</feed>`

func TestVideoCollect(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "UC123", r.URL.Query().Get("channel_id"))
		w.Write([]byte(sampleAtom))
	}))
	defer server.Close()

	channels := []config.ChannelConfig{
		{Name: "Eric Tech", ChannelID: "UC123", Topics: []string{"ai", "tech"}},
	}

	v := NewVideo(server.Client(), channels, discardLogger())
	v.feedURL = server.URL + "/feeds/videos.xml?channel_id=%s"

	records, err := v.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "video", rec.Source)
	assert.Equal(t, "video_dQw4w9WgXcQ", rec.SourceID)
	assert.Equal(t, "Eric Tech", rec.Author)
	assert.Equal(t, "https://www.youtube.com/watch?v=dQw4w9WgXcQ", rec.URL)
	assert.Contains(t, rec.Body, "agentic workflows")
	// Channel topics plus title inference ("claude" -> ai) without duplicates.
	assert.Equal(t, []string{"ai", "tech"}, rec.Tags)
	require.NotNil(t, rec.PublishedAt)
}
