package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

// hnTitleTags maps inferred tags to title keywords, checked by substring.
var hnTitleTags = []tagRule{
	{"ai", []string{"ai", "artificial intelligence", "llm", "gpt", "machine learning", "deep learning"}},
	{"crypto", []string{"crypto", "bitcoin", "ethereum", "blockchain", "web3"}},
	{"trading", []string{"trading", "market", "stock", "hedge fund"}},
	{"chips", []string{"chip", "semiconductor", "nvidia", "gpu", "tsmc"}},
}

// HackerNews collects top stories and keyword-matched stories from the
// Algolia search API.
type HackerNews struct {
	client *http.Client
	cfg    config.HackerNewsConfig
	logger *slog.Logger
}

var _ ports.Collector = (*HackerNews)(nil)

// NewHackerNews wires an HTTP client; nil selects a 15s-timeout default.
func NewHackerNews(client *http.Client, cfg config.HackerNewsConfig, logger *slog.Logger) *HackerNews {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HackerNews{client: client, cfg: cfg, logger: logger}
}

// Name identifies the source tag inside the registry.
func (h *HackerNews) Name() string {
	return "hackernews"
}

// Collect fetches the front page plus one search per configured keyword,
// self-deduping overlap within the run. A failed upstream call shortens
// the result instead of aborting it.
func (h *HackerNews) Collect(ctx context.Context) ([]domain.ContentRecord, error) {
	seen := seenSet{}
	var records []domain.ContentRecord

	top := h.fetchStories(ctx, "")
	for _, rec := range top {
		if seen.add(rec.SourceID) {
			records = append(records, rec)
		}
	}
	h.logger.Debug("fetched top stories", "count", len(records), "min_score", h.cfg.MinScore)

	for _, keyword := range h.cfg.Keywords {
		results := h.fetchStories(ctx, keyword)
		added := 0
		for _, rec := range results {
			if seen.add(rec.SourceID) {
				records = append(records, rec)
				added++
			}
		}
		h.logger.Debug("fetched keyword stories", "keyword", keyword, "new", added)
	}

	return records, nil
}

type hnResponse struct {
	Hits []hnHit `json:"hits"`
}

type hnHit struct {
	ObjectID    string `json:"objectID"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	URL         string `json:"url"`
	Points      int    `json:"points"`
	StoryText   string `json:"story_text"`
	CommentText string `json:"comment_text"`
	CreatedAt   string `json:"created_at"`
}

func (h *HackerNews) fetchStories(ctx context.Context, query string) []domain.ContentRecord {
	params := url.Values{}
	params.Set("tags", "story")
	params.Set("hitsPerPage", strconv.Itoa(h.cfg.HitsPerPage))
	if query != "" {
		params.Set("query", query)
	}

	endpoint := fmt.Sprintf("%s/search?%s", strings.TrimSuffix(h.cfg.APIBase, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		h.logger.Error("build request", "error", err)
		return nil
	}

	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Error("search request failed", "query", query, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		h.logger.Error("search returned non-OK status", "query", query, "status", resp.Status)
		return nil
	}

	var payload hnResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		h.logger.Error("decode search response", "query", query, "error", err)
		return nil
	}

	var records []domain.ContentRecord
	for _, hit := range payload.Hits {
		if hit.Points < h.cfg.MinScore {
			continue
		}

		storyURL := hit.URL
		if storyURL == "" {
			storyURL = "https://news.ycombinator.com/item?id=" + hit.ObjectID
		}

		body := hit.StoryText
		if body == "" {
			body = hit.CommentText
		}

		records = append(records, domain.ContentRecord{
			Source:          h.Name(),
			SourceID:        "hn_" + hit.ObjectID,
			Author:          hit.Author,
			Title:           hit.Title,
			Body:            body,
			URL:             storyURL,
			Tags:            inferHNTags(hit.Title, query),
			EngagementScore: hit.Points,
			PublishedAt:     parseTimestamp(hit.CreatedAt, time.RFC3339, "2006-01-02T15:04:05Z"),
		})
	}

	return records
}

func inferHNTags(title, query string) []string {
	tags := matchTitleTags(title, hnTitleTags)
	if query != "" {
		tags = append(tags, strings.ToLower(query))
	}
	return domain.MergeTags(tags)
}
