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

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

const forumUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Forum collects posts from a financial-forum category timeline API. Post
// bodies arrive as HTML fragments and are flattened to text.
type Forum struct {
	client  *http.Client
	cfg     config.ForumConfig
	limiter *rate.Limiter // upstream politeness: min 1s between calls
	logger  *slog.Logger
}

var _ ports.Collector = (*Forum)(nil)

// NewForum wires an HTTP client; nil selects a 15s-timeout default.
func NewForum(client *http.Client, cfg config.ForumConfig, logger *slog.Logger) *Forum {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Forum{
		client:  client,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

// Name identifies the source tag inside the registry.
func (f *Forum) Name() string {
	return "forum"
}

// Collect walks the configured category timelines. Categories overlap
// upstream (hot posts appear in topical categories too), so results
// self-dedup within the run.
func (f *Forum) Collect(ctx context.Context) ([]domain.ContentRecord, error) {
	seen := seenSet{}
	var records []domain.ContentRecord

	for _, category := range f.cfg.Categories {
		if err := f.limiter.Wait(ctx); err != nil {
			return records, nil
		}

		posts := f.fetchTimeline(ctx, category)
		added := 0
		for _, rec := range posts {
			if seen.add(rec.SourceID) {
				records = append(records, rec)
				added++
			}
		}
		f.logger.Debug("fetched category timeline", "category", category.Name, "new", added)
	}

	return records, nil
}

// timelineResponse wraps each status as a JSON string under "data".
type timelineResponse struct {
	List []struct {
		Data json.RawMessage `json:"data"`
	} `json:"list"`
}

type forumStatus struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Text        string `json:"text"`
	Description string `json:"description"`
	ReplyCount  int    `json:"reply_count"`
	CreatedAt   int64  `json:"created_at"` // milliseconds
	UserID      int64  `json:"user_id"`
	User        struct {
		ID         int64  `json:"id"`
		ScreenName string `json:"screen_name"`
	} `json:"user"`
}

func (f *Forum) fetchTimeline(ctx context.Context, category config.CategoryConfig) []domain.ContentRecord {
	params := url.Values{}
	params.Set("since_id", "-1")
	params.Set("max_id", "-1")
	params.Set("count", strconv.Itoa(f.cfg.Count))
	params.Set("category", strconv.Itoa(category.ID))

	endpoint := fmt.Sprintf("%s/v4/statuses/public_timeline_by_category.json?%s",
		strings.TrimSuffix(f.cfg.BaseURL, "/"), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		f.logger.Error("build timeline request", "category", category.Name, "error", err)
		return nil
	}
	req.Header.Set("User-Agent", forumUserAgent)
	req.Header.Set("Accept", "application/json")
	if f.cfg.Cookie != "" {
		req.Header.Set("Cookie", f.cfg.Cookie)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Error("timeline request failed", "category", category.Name, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Error("timeline returned non-OK status", "category", category.Name, "status", resp.Status)
		return nil
	}

	var payload timelineResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		f.logger.Error("decode timeline response", "category", category.Name, "error", err)
		return nil
	}

	var records []domain.ContentRecord
	for _, item := range payload.List {
		status, ok := decodeStatus(item.Data)
		if !ok {
			continue
		}
		if rec, ok := f.normalizeStatus(status); ok {
			records = append(records, rec)
		}
	}

	return records
}

// decodeStatus handles both encodings the timeline uses: a status object,
// or the same object serialized as a JSON string.
func decodeStatus(raw json.RawMessage) (forumStatus, bool) {
	var status forumStatus
	if err := json.Unmarshal(raw, &status); err == nil && status.ID != 0 {
		return status, true
	}

	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return forumStatus{}, false
	}
	if err := json.Unmarshal([]byte(wrapped), &status); err != nil || status.ID == 0 {
		return forumStatus{}, false
	}
	return status, true
}

func (f *Forum) normalizeStatus(status forumStatus) (domain.ContentRecord, bool) {
	text := status.Text
	if text == "" {
		text = status.Description
	}
	text = htmlToText(text)
	if text == "" {
		return domain.ContentRecord{}, false
	}

	title := strings.TrimSpace(status.Title)
	if title == "" {
		title = truncateRunes(text, 100)
	}

	userID := status.User.ID
	if userID == 0 {
		userID = status.UserID
	}

	var publishedAt *time.Time
	if status.CreatedAt > 0 {
		t := time.UnixMilli(status.CreatedAt).UTC()
		publishedAt = &t
	}

	return domain.ContentRecord{
		Source:          f.Name(),
		SourceID:        fmt.Sprintf("forum_%d", status.ID),
		Author:          status.User.ScreenName,
		Title:           title,
		Body:            text,
		URL:             fmt.Sprintf("%s/%d/%d", strings.TrimSuffix(f.cfg.BaseURL, "/"), userID, status.ID),
		EngagementScore: status.ReplyCount,
		PublishedAt:     publishedAt,
	}, true
}

// htmlToText flattens an HTML fragment to plain text, unescaping entities.
// Unparseable input falls back to the raw string.
func htmlToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.TrimSpace(doc.Text())
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
