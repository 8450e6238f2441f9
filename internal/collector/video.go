package collector

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

// videoFeedURL is the keyless Atom endpoint exposed per channel.
const videoFeedURL = "https://www.youtube.com/feeds/videos.xml?channel_id=%s"

var videoTitleTags = []tagRule{
	{"ai", []string{"ai", "artificial intelligence", "llm", "gpt", "claude", "gemini"}},
	{"crypto", []string{"crypto", "bitcoin", "ethereum", "web3"}},
	{"trading", []string{"trading", "market", "投资"}},
}

// atomDocument covers the channel Atom shape, including the yt:videoId and
// media:group extensions.
type atomDocument struct {
	XMLName xml.Name    `xml:"feed"`
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	VideoID   string `xml:"videoId"`
	Title     string `xml:"title"`
	Published string `xml:"published"`
	Link      struct {
		Href string `xml:"href,attr"`
	} `xml:"link"`
	Group struct {
		Description string `xml:"description"`
	} `xml:"group"`
}

// Video collects recent uploads from configured channel Atom feeds.
type Video struct {
	client   *http.Client
	feedURL  string
	channels []config.ChannelConfig
	logger   *slog.Logger
}

var _ ports.Collector = (*Video)(nil)

// NewVideo wires an HTTP client; nil selects a 20s-timeout default.
func NewVideo(client *http.Client, channels []config.ChannelConfig, logger *slog.Logger) *Video {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &Video{client: client, feedURL: videoFeedURL, channels: channels, logger: logger}
}

// Name identifies the source tag inside the registry.
func (v *Video) Name() string {
	return "video"
}

// Collect walks every configured channel feed, isolating failures per
// channel.
func (v *Video) Collect(ctx context.Context) ([]domain.ContentRecord, error) {
	seen := seenSet{}
	var records []domain.ContentRecord

	for _, channel := range v.channels {
		entries := v.fetchChannel(ctx, channel)
		for _, rec := range entries {
			if seen.add(rec.SourceID) {
				records = append(records, rec)
			}
		}
		v.logger.Debug("fetched channel", "channel", channel.Name, "videos", len(entries))
	}

	return records, nil
}

func (v *Video) fetchChannel(ctx context.Context, channel config.ChannelConfig) []domain.ContentRecord {
	endpoint := fmt.Sprintf(v.feedURL, channel.ChannelID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		v.logger.Error("build channel request", "channel", channel.Name, "error", err)
		return nil
	}

	resp, err := v.client.Do(req)
	if err != nil {
		v.logger.Error("channel request failed", "channel", channel.Name, "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Error("channel returned non-OK status", "channel", channel.Name, "status", resp.Status)
		return nil
	}

	var doc atomDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		v.logger.Error("parse channel feed", "channel", channel.Name, "error", err)
		return nil
	}

	var records []domain.ContentRecord
	for _, entry := range doc.Entries {
		videoID := entry.VideoID
		watchURL := entry.Link.Href
		if videoID == "" {
			if watchURL == "" {
				continue
			}
			videoID = shortHash(watchURL)
		}
		if watchURL == "" {
			watchURL = "https://www.youtube.com/watch?v=" + videoID
		}

		tags := append([]string{}, channel.Topics...)
		tags = append(tags, matchTitleTags(entry.Title, videoTitleTags)...)

		records = append(records, domain.ContentRecord{
			Source:      v.Name(),
			SourceID:    "video_" + videoID,
			Author:      channel.Name,
			Title:       entry.Title,
			Body:        entry.Group.Description,
			URL:         watchURL,
			Tags:        domain.MergeTags(tags),
			PublishedAt: parseTimestamp(entry.Published, time.RFC3339),
		})
	}

	return records
}
