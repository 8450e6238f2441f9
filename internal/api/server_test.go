package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ContentRadar/internal/collector"
	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ingest"
	"ContentRadar/internal/ports"
	"ContentRadar/internal/signals"
	"ContentRadar/internal/storage"
	"ContentRadar/internal/tagging"
)

type stubCollector struct {
	name    string
	records []domain.ContentRecord
}

func (s *stubCollector) Name() string { return s.name }

func (s *stubCollector) Collect(context.Context) ([]domain.ContentRecord, error) {
	return s.records, nil
}

var _ ports.Collector = (*stubCollector)(nil)

func testServer(t *testing.T, collectors ...ports.Collector) (*httptest.Server, *storage.Store) {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "radar.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Ensure(context.Background(), db))

	store := storage.NewStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tagger := tagging.NewKeywordTagger(5)

	registry := collector.NewRegistry()
	for _, c := range collectors {
		registry.Register(c)
	}

	server := NewServer(config.Config{}, logger, store, registry,
		ingest.NewCoordinator(store, tagger, logger),
		signals.NewAggregator(store, signals.DefaultPolicy()), nil)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func getJSON(t *testing.T, url string, out any) {
	t.Helper()

	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	ts, _ := testServer(t)
	var payload map[string]string
	getJSON(t, ts.URL+"/api/health", &payload)
	assert.Equal(t, "ok", payload["status"])
}

func TestLatestTruncatesBodies(t *testing.T) {
	t.Parallel()

	ts, store := testServer(t)
	longBody := strings.Repeat("x", 900)
	_, err := store.Insert(context.Background(), &domain.ContentRecord{
		Source: "forum", SourceID: "forum_1", Title: "long post", Body: longBody,
	})
	require.NoError(t, err)

	var records []domain.ContentRecord
	getJSON(t, ts.URL+"/api/articles/latest", &records)
	require.Len(t, records, 1)
	assert.Len(t, records[0].Body, 500)
}

func TestSearchRequiresQuery(t *testing.T) {
	t.Parallel()

	ts, _ := testServer(t)
	resp, err := http.Get(ts.URL + "/api/articles/search")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCollectEndpoint(t *testing.T) {
	t.Parallel()

	stub := &stubCollector{name: "hackernews", records: []domain.ContentRecord{
		{SourceID: "hn_1", Title: "Bitcoin rally continues"},
	}}
	ts, store := testServer(t, stub)

	resp, err := http.Post(ts.URL+"/api/collect/hackernews", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary ingest.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	assert.Equal(t, 1, summary.Saved)

	stored, err := store.Query(context.Background(), domain.RecordFilter{})
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Contains(t, stored[0].Tags, "crypto")

	resp, err = http.Post(ts.URL+"/api/collect/nonexistent", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClassifyWithoutReasoner(t *testing.T) {
	t.Parallel()

	ts, _ := testServer(t)
	resp, err := http.Post(ts.URL+"/api/classify", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestDigestGroupsBySource(t *testing.T) {
	t.Parallel()

	ts, store := testServer(t)
	ctx := context.Background()
	now := time.Now().UTC()
	older := now.Add(-2 * time.Hour)

	for _, rec := range []domain.ContentRecord{
		{Source: "hackernews", SourceID: "hn_a", Title: "low score", EngagementScore: 5, Tags: []string{"ai"}},
		{Source: "hackernews", SourceID: "hn_b", Title: "high score", EngagementScore: 500, Tags: []string{"ai"}},
		{Source: "newsletter", SourceID: "nl_a", Title: "old issue", PublishedAt: &older, Tags: []string{"macro"}},
		{Source: "newsletter", SourceID: "nl_b", Title: "fresh issue", PublishedAt: &now},
	} {
		_, err := store.Insert(ctx, &rec)
		require.NoError(t, err)
	}

	var digest digestResponse
	getJSON(t, ts.URL+"/api/articles/digest", &digest)

	require.Len(t, digest.Sources, 2)
	// Link-aggregator posts rank by engagement, newsletters by recency.
	assert.Equal(t, "high score", digest.Sources["hackernews"].Articles[0].Title)
	assert.Equal(t, "fresh issue", digest.Sources["newsletter"].Articles[0].Title)

	require.NotEmpty(t, digest.TopTags)
	assert.Equal(t, tagCount{Tag: "ai", Count: 2}, digest.TopTags[0])
}

func TestSignalsEndpoint(t *testing.T) {
	t.Parallel()

	ts, store := testServer(t)
	ctx := context.Background()

	rec := domain.ContentRecord{Source: "forum", SourceID: "forum_9", Title: "hot take", Tags: []string{"crypto"}}
	_, err := store.Insert(ctx, &rec)
	require.NoError(t, err)
	require.NoError(t, store.UpdateLabels(ctx, rec.ID, 5, []string{"btc-breakout"}))

	var report signals.Report
	getJSON(t, ts.URL+"/api/articles/signals?hours=24&compare_hours=24&min_relevance=3", &report)

	assert.Equal(t, 1, report.ArticleCount)
	assert.Equal(t, 1, report.HighRelevanceCount)
	require.Len(t, report.TopArticles, 1)
	require.Len(t, report.NarrativeMomentum, 1)
	assert.Equal(t, "btc-breakout", report.NarrativeMomentum[0].NarrativeTag)
}
