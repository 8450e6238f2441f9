package collector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

// Social collects posts from followed accounts through an external CLI
// that prints JSON. A missing binary disables the source without failing
// the run.
type Social struct {
	cfg     config.SocialConfig
	cmdPath string
	logger  *slog.Logger
}

var _ ports.Collector = (*Social)(nil)

// NewSocial resolves the CLI binary once at construction.
func NewSocial(cfg config.SocialConfig, logger *slog.Logger) *Social {
	path, err := exec.LookPath(cfg.Command)
	if err != nil {
		logger.Warn("social CLI not found, source disabled", "command", cfg.Command)
		path = ""
	}
	return &Social{cfg: cfg, cmdPath: path, logger: logger}
}

// Name identifies the source tag inside the registry.
func (s *Social) Name() string {
	return "social"
}

// Collect fetches recent posts per followed account. Per-account failures
// (timeout, bad exit, malformed output) shorten the result only.
func (s *Social) Collect(ctx context.Context) ([]domain.ContentRecord, error) {
	if s.cmdPath == "" {
		s.logger.Info("social CLI unavailable, skipping collection")
		return nil, nil
	}

	seen := seenSet{}
	var records []domain.ContentRecord

	for _, account := range s.cfg.Accounts {
		posts := s.fetchAccount(ctx, account)
		for _, rec := range posts {
			if seen.add(rec.SourceID) {
				records = append(records, rec)
			}
		}
		s.logger.Debug("fetched account", "account", account, "posts", len(posts))
	}

	return records, nil
}

type socialPost struct {
	ID            json.Number `json:"id"`
	IDStr         string      `json:"id_str"`
	Text          string      `json:"text"`
	FullText      string      `json:"full_text"`
	CreatedAt     string      `json:"created_at"`
	FavoriteCount int         `json:"favorite_count"`
	LikeCount     int         `json:"like_count"`
}

func (s *Social) fetchAccount(ctx context.Context, account string) []domain.ContentRecord {
	timeout := time.Duration(s.cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(callCtx, s.cmdPath,
		"user-tweets", account, "-n", strconv.Itoa(s.cfg.PerAccount), "--json")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		s.logger.Warn("social CLI failed", "account", account, "error", err,
			"stderr", truncateRunes(stderr.String(), 200))
		return nil
	}

	posts, err := decodeSocialPosts(stdout.Bytes())
	if err != nil {
		s.logger.Warn("parse social CLI output", "account", account, "error", err)
		return nil
	}

	var records []domain.ContentRecord
	for _, post := range posts {
		postID := post.IDStr
		if postID == "" {
			postID = post.ID.String()
		}
		if postID == "" {
			continue
		}

		text := post.Text
		if text == "" {
			text = post.FullText
		}

		engagement := post.FavoriteCount
		if engagement == 0 {
			engagement = post.LikeCount
		}

		records = append(records, domain.ContentRecord{
			Source:          s.Name(),
			SourceID:        "social_" + postID,
			Author:          account,
			Body:            text,
			URL:             fmt.Sprintf("https://x.com/%s/status/%s", account, postID),
			EngagementScore: engagement,
			PublishedAt:     parseTimestamp(post.CreatedAt, time.RubyDate, time.RFC3339),
		})
	}

	return records
}

// decodeSocialPosts accepts both output shapes the CLI has produced over
// time: a bare JSON array, or an object wrapping it under data/tweets.
func decodeSocialPosts(raw []byte) ([]socialPost, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}

	var posts []socialPost
	if err := json.Unmarshal(raw, &posts); err == nil {
		return posts, nil
	}

	var wrapped struct {
		Data   []socialPost `json:"data"`
		Tweets []socialPost `json:"tweets"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, err
	}
	if len(wrapped.Data) > 0 {
		return wrapped.Data, nil
	}
	return wrapped.Tweets, nil
}
