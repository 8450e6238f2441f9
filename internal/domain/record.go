package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// ContentRecord is the normalized shape every source payload is mapped into.
// The store assigns ID; SourceID is the dedup key (empty when the upstream
// has no stable identifier, in which case dedup is best-effort).
type ContentRecord struct {
	ID              int64      `json:"id"`
	Source          string     `json:"source"`
	SourceID        string     `json:"source_id"`
	Author          string     `json:"author"`
	Title           string     `json:"title"`
	Body            string     `json:"body"`
	URL             string     `json:"url"`
	Tags            []string   `json:"tags"`
	EngagementScore int        `json:"engagement_score"`
	RelevanceScore  *int       `json:"relevance_score"`
	NarrativeTags   []string   `json:"narrative_tags"`
	PublishedAt     *time.Time `json:"published_at"`
	CollectedAt     time.Time  `json:"collected_at"`
}

// Scored reports whether the external classifier has labeled this record.
func (r *ContentRecord) Scored() bool {
	return r.RelevanceScore != nil
}

// EncodeTags serializes a tag list as a JSON array for storage.
func EncodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	raw, err := json.Marshal(tags)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

// DecodeTags parses a stored JSON tag list. Malformed input yields an
// empty list, never an error.
func DecodeTags(raw string) []string {
	if raw == "" {
		return []string{}
	}
	var parsed []string
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return []string{}
	}
	tags := make([]string, 0, len(parsed))
	for _, t := range parsed {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// MergeTags unions tag lists preserving first-seen order. Tags are
// lowercased and blank entries dropped.
func MergeTags(lists ...[]string) []string {
	merged := make([]string, 0)
	seen := map[string]struct{}{}
	for _, list := range lists {
		for _, t := range list {
			t = strings.ToLower(strings.TrimSpace(t))
			if t == "" {
				continue
			}
			if _, ok := seen[t]; ok {
				continue
			}
			seen[t] = struct{}{}
			merged = append(merged, t)
		}
	}
	return merged
}
