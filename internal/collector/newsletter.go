package collector

import (
	"context"
	"encoding/xml"
	"log/slog"
	"net/http"
	"time"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

var newsletterTitleTags = []tagRule{
	{"ai", []string{"ai", "artificial intelligence", "llm", "gpt"}},
	{"crypto", []string{"crypto", "bitcoin", "ethereum"}},
	{"trading", []string{"trading", "market"}},
}

// rssDocument covers the RSS 2.0 shape newsletter feeds publish.
type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	Description string `xml:"description"`
	Encoded     string `xml:"encoded"` // content:encoded, full post body
	PubDate     string `xml:"pubDate"`
}

// Newsletter collects posts from configured newsletter RSS feeds.
type Newsletter struct {
	client *http.Client
	feeds  []config.FeedConfig
	logger *slog.Logger
}

var _ ports.Collector = (*Newsletter)(nil)

// NewNewsletter wires an HTTP client; nil selects a 20s-timeout default.
func NewNewsletter(client *http.Client, feeds []config.FeedConfig, logger *slog.Logger) *Newsletter {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Newsletter{client: client, feeds: feeds, logger: logger}
}

// Name identifies the source tag inside the registry.
func (n *Newsletter) Name() string {
	return "newsletter"
}

// Collect walks every configured feed; one feed's outage shortens the
// result without blocking the others.
func (n *Newsletter) Collect(ctx context.Context) ([]domain.ContentRecord, error) {
	seen := seenSet{}
	var records []domain.ContentRecord

	for _, feed := range n.feeds {
		entries := n.fetchFeed(ctx, feed)
		for _, rec := range entries {
			if seen.add(rec.SourceID) {
				records = append(records, rec)
			}
		}
		n.logger.Debug("fetched feed", "feed", feed.Name, "entries", len(entries))
	}

	return records, nil
}

func (n *Newsletter) fetchFeed(ctx context.Context, feed config.FeedConfig) []domain.ContentRecord {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		n.logger.Error("build feed request", "feed", feed.Name, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", "ContentRadar/1.0")

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Error("feed request failed", "feed", feed.Name, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.logger.Error("feed returned non-OK status", "feed", feed.Name, "status", resp.Status)
		return nil
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		n.logger.Error("parse feed", "feed", feed.Name, "error", err)
		return nil
	}

	var records []domain.ContentRecord
	for _, item := range doc.Channel.Items {
		if item.Link == "" {
			continue
		}

		body := item.Encoded
		if body == "" {
			body = item.Description
		}

		tags := append([]string{}, feed.Topics...)
		tags = append(tags, matchTitleTags(item.Title, newsletterTitleTags)...)

		records = append(records, domain.ContentRecord{
			Source:      n.Name(),
			SourceID:    "newsletter_" + shortHash(item.Link),
			Author:      feed.Name,
			Title:       item.Title,
			Body:        body,
			URL:         item.Link,
			Tags:        domain.MergeTags(tags),
			PublishedAt: parseTimestamp(item.PubDate, time.RFC1123Z, time.RFC1123, time.RFC3339),
		})
	}

	return records
}
