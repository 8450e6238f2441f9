package signals

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

const topListLimit = 20

// Policy holds the momentum labeling thresholds. These are editorial
// choices, not math, so they stay configurable.
type Policy struct {
	AccelerateAbove  float64
	DecelerateBelow  float64
	NewTopicMomentum float64
}

// DefaultPolicy mirrors the standard thresholds.
func DefaultPolicy() Policy {
	return Policy{AccelerateAbove: 0.2, DecelerateBelow: -0.2, NewTopicMomentum: 1.0}
}

// PolicyFromConfig maps configured thresholds, falling back to defaults
// for unset values.
func PolicyFromConfig(cfg config.SignalsConfig) Policy {
	policy := DefaultPolicy()
	if cfg.AccelerateAbove != 0 {
		policy.AccelerateAbove = cfg.AccelerateAbove
	}
	if cfg.DecelerateBelow != 0 {
		policy.DecelerateBelow = cfg.DecelerateBelow
	}
	if cfg.NewTopicMomentum != 0 {
		policy.NewTopicMomentum = cfg.NewTopicMomentum
	}
	return policy
}

// TopicHeat is one tag's period-over-period frequency change.
type TopicHeat struct {
	Tag           string  `json:"tag"`
	CurrentCount  int     `json:"current_count"`
	PreviousCount int     `json:"previous_count"`
	Momentum      float64 `json:"momentum"`
	MomentumLabel string  `json:"momentum_label"`
}

// NarrativeCluster groups current-window records sharing a narrative tag.
type NarrativeCluster struct {
	NarrativeTag string   `json:"narrative_tag"`
	Count        int      `json:"count"`
	AvgRelevance *float64 `json:"avg_relevance"`
	Sources      []string `json:"sources"`
}

// SourceActivity is per-source volume and mean relevance in the current window.
type SourceActivity struct {
	Source       string   `json:"source"`
	Count        int      `json:"count"`
	AvgRelevance *float64 `json:"avg_relevance"`
}

// Report is the aggregated signal dashboard for one window pair.
type Report struct {
	Period                string                 `json:"period"`
	ArticleCount          int                    `json:"article_count"`
	HighRelevanceCount    int                    `json:"high_relevance_count"`
	TopicHeat             []TopicHeat            `json:"topic_heat"`
	NarrativeMomentum     []NarrativeCluster     `json:"narrative_momentum"`
	RelevanceDistribution map[string]int         `json:"relevance_distribution"`
	SourceActivity        []SourceActivity       `json:"source_activity"`
	TopArticles           []domain.ContentRecord `json:"top_articles"`
}

// Aggregator reads two adjacent collection windows and computes the signal
// report. It only reads, so it is safe to call concurrently.
type Aggregator struct {
	store  ports.RecordRepository
	policy Policy
}

// NewAggregator wires the repository and labeling policy.
func NewAggregator(store ports.RecordRepository, policy Policy) *Aggregator {
	return &Aggregator{store: store, policy: policy}
}

// Signals fetches the current window (last `hours`) and the previous window
// (the `compareHours` preceding it) and aggregates them. source narrows both
// windows to one collector; minRelevance is the top-article floor.
func (a *Aggregator) Signals(ctx context.Context, hours, compareHours, minRelevance int, source string) (Report, error) {
	now := time.Now().UTC()
	currentStart := now.Add(-time.Duration(hours) * time.Hour)
	prevStart := currentStart.Add(-time.Duration(compareHours) * time.Hour)

	current, err := a.store.Query(ctx, domain.RecordFilter{
		Source:         source,
		CollectedSince: currentStart,
	})
	if err != nil {
		return Report{}, fmt.Errorf("query current window: %w", err)
	}

	previous, err := a.store.Query(ctx, domain.RecordFilter{
		Source:          source,
		CollectedSince:  prevStart,
		CollectedBefore: currentStart,
	})
	if err != nil {
		return Report{}, fmt.Errorf("query previous window: %w", err)
	}

	report := Compute(current, previous, minRelevance, a.policy)
	report.Period = fmt.Sprintf("last %dh", hours)
	return report, nil
}

// Compute aggregates two already-fetched windows. Pure over its inputs:
// unscored records count toward volume but never toward relevance averages.
func Compute(current, previous []domain.ContentRecord, minRelevance int, policy Policy) Report {
	return Report{
		ArticleCount:          len(current),
		HighRelevanceCount:    highRelevanceCount(current),
		TopicHeat:             topicHeat(current, previous, policy),
		NarrativeMomentum:     narrativeClusters(current),
		RelevanceDistribution: relevanceDistribution(current),
		SourceActivity:        sourceActivity(current),
		TopArticles:           topArticles(current, minRelevance),
	}
}

func topicHeat(current, previous []domain.ContentRecord, policy Policy) []TopicHeat {
	currentCounts := tagCounts(current)
	previousCounts := tagCounts(previous)

	seen := make(map[string]bool, len(currentCounts)+len(previousCounts))
	var heat []TopicHeat
	for _, counts := range []map[string]int{currentCounts, previousCounts} {
		for tag := range counts {
			if seen[tag] {
				continue
			}
			seen[tag] = true

			cur := currentCounts[tag]
			prev := previousCounts[tag]
			var momentum float64
			switch {
			case prev > 0:
				momentum = round2(float64(cur-prev) / float64(prev))
			case cur > 0:
				momentum = policy.NewTopicMomentum // new topic
			}

			label := "stable"
			if momentum > policy.AccelerateAbove {
				label = "accelerating"
			} else if momentum < policy.DecelerateBelow {
				label = "decelerating"
			}

			heat = append(heat, TopicHeat{
				Tag:           tag,
				CurrentCount:  cur,
				PreviousCount: prev,
				Momentum:      momentum,
				MomentumLabel: label,
			})
		}
	}

	sort.Slice(heat, func(i, j int) bool {
		if heat[i].CurrentCount != heat[j].CurrentCount {
			return heat[i].CurrentCount > heat[j].CurrentCount
		}
		return heat[i].Tag < heat[j].Tag
	})
	return truncateHeat(heat)
}

func tagCounts(records []domain.ContentRecord) map[string]int {
	counts := make(map[string]int)
	for _, rec := range records {
		for _, tag := range rec.Tags {
			counts[tag]++
		}
	}
	return counts
}

func narrativeClusters(current []domain.ContentRecord) []NarrativeCluster {
	type accum struct {
		count          int
		totalRelevance int
		scoredCount    int
		sources        map[string]bool
	}

	groups := make(map[string]*accum)
	for _, rec := range current {
		for _, nt := range rec.NarrativeTags {
			group, ok := groups[nt]
			if !ok {
				group = &accum{sources: make(map[string]bool)}
				groups[nt] = group
			}
			group.count++
			group.sources[rec.Source] = true
			if rec.RelevanceScore != nil {
				group.totalRelevance += *rec.RelevanceScore
				group.scoredCount++
			}
		}
	}

	clusters := make([]NarrativeCluster, 0, len(groups))
	for nt, group := range groups {
		var avg *float64
		if group.scoredCount > 0 {
			v := round1(float64(group.totalRelevance) / float64(group.scoredCount))
			avg = &v
		}
		sources := make([]string, 0, len(group.sources))
		for src := range group.sources {
			sources = append(sources, src)
		}
		sort.Strings(sources)
		clusters = append(clusters, NarrativeCluster{
			NarrativeTag: nt,
			Count:        group.count,
			AvgRelevance: avg,
			Sources:      sources,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Count != clusters[j].Count {
			return clusters[i].Count > clusters[j].Count
		}
		return clusters[i].NarrativeTag < clusters[j].NarrativeTag
	})
	if len(clusters) > topListLimit {
		clusters = clusters[:topListLimit]
	}
	return clusters
}

func relevanceDistribution(current []domain.ContentRecord) map[string]int {
	dist := map[string]int{"1": 0, "2": 0, "3": 0, "4": 0, "5": 0, "unscored": 0}
	for _, rec := range current {
		if rec.RelevanceScore != nil && *rec.RelevanceScore >= 1 && *rec.RelevanceScore <= 5 {
			dist[fmt.Sprint(*rec.RelevanceScore)]++
		} else {
			dist["unscored"]++
		}
	}
	return dist
}

func sourceActivity(current []domain.ContentRecord) []SourceActivity {
	type accum struct {
		count          int
		totalRelevance int
		scoredCount    int
	}

	groups := make(map[string]*accum)
	for _, rec := range current {
		group, ok := groups[rec.Source]
		if !ok {
			group = &accum{}
			groups[rec.Source] = group
		}
		group.count++
		if rec.RelevanceScore != nil {
			group.totalRelevance += *rec.RelevanceScore
			group.scoredCount++
		}
	}

	activity := make([]SourceActivity, 0, len(groups))
	for src, group := range groups {
		var avg *float64
		if group.scoredCount > 0 {
			v := round1(float64(group.totalRelevance) / float64(group.scoredCount))
			avg = &v
		}
		activity = append(activity, SourceActivity{Source: src, Count: group.count, AvgRelevance: avg})
	}

	sort.Slice(activity, func(i, j int) bool {
		if activity[i].Count != activity[j].Count {
			return activity[i].Count > activity[j].Count
		}
		return activity[i].Source < activity[j].Source
	})
	return activity
}

func highRelevanceCount(current []domain.ContentRecord) int {
	count := 0
	for _, rec := range current {
		if rec.RelevanceScore != nil && *rec.RelevanceScore >= 4 {
			count++
		}
	}
	return count
}

func topArticles(current []domain.ContentRecord, minRelevance int) []domain.ContentRecord {
	if minRelevance < 1 {
		minRelevance = 1
	}

	var relevant []domain.ContentRecord
	for _, rec := range current {
		if rec.RelevanceScore != nil && *rec.RelevanceScore >= minRelevance {
			relevant = append(relevant, rec)
		}
	}

	sort.SliceStable(relevant, func(i, j int) bool {
		return *relevant[i].RelevanceScore > *relevant[j].RelevanceScore
	})
	if len(relevant) > topListLimit {
		relevant = relevant[:topListLimit]
	}
	return relevant
}

func truncateHeat(heat []TopicHeat) []TopicHeat {
	if len(heat) > topListLimit {
		heat = heat[:topListLimit]
	}
	return heat
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
