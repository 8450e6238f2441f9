package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"ContentRadar/internal/config"
	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

const maxNarrativeTags = 5

// Label is one validated classification result.
type Label struct {
	ID            int64
	Relevance     int
	NarrativeTags []string
}

// Classifier batches records to an external reasoning service, enforcing a
// minimum inter-call interval and a session spend ceiling. Calls are
// serialized; the budget counter must never be raced.
type Classifier struct {
	reasoner ports.Reasoner
	cfg      config.ClassifierConfig
	logger   *slog.Logger

	mu          sync.Mutex
	limiter     *rate.Limiter
	sessionCost float64
	batches     int
}

// NewClassifier wires the reasoning backend with the configured pacing.
func NewClassifier(reasoner ports.Reasoner, cfg config.ClassifierConfig, logger *slog.Logger) *Classifier {
	interval := time.Duration(cfg.MinIntervalSeconds * float64(time.Second))
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &Classifier{
		reasoner: reasoner,
		cfg:      cfg,
		logger:   logger,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Classify scores one batch. An empty result from a non-empty batch means
// the caller should stop: either the budget is exhausted or the response
// was unusable. Neither is an error.
func (c *Classifier) Classify(ctx context.Context, batch []domain.ContentRecord) ([]Label, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfg.Budget > 0 && c.sessionCost >= c.cfg.Budget {
		c.logger.Warn("session budget reached, skipping batch",
			"cost", c.sessionCost, "budget", c.cfg.Budget)
		return nil, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	prompt := buildPrompt(batch)
	response, usage, err := c.reasoner.Submit(ctx, prompt)
	if err != nil {
		c.logger.Error("reasoner call failed", "batch_size", len(batch), "error", err)
		return nil, nil
	}

	c.sessionCost += c.estimateCost(prompt, response, usage)
	c.batches++

	entries, err := extractJSONArray(response)
	if err != nil {
		c.logger.Error("unusable reasoner response", "error", err)
		return nil, nil
	}

	return c.validate(entries, batch), nil
}

// SessionCost reports the cumulative estimated spend for this session.
func (c *Classifier) SessionCost() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionCost
}

// BatchesProcessed reports how many reasoner calls completed.
func (c *Classifier) BatchesProcessed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.batches
}

// estimateCost prices reported token usage; when the service reports none,
// it falls back to a chars/4 token heuristic.
func (c *Classifier) estimateCost(prompt, response string, usage ports.TokenUsage) float64 {
	promptTokens := usage.PromptTokens
	completionTokens := usage.CompletionTokens
	if promptTokens == 0 && completionTokens == 0 {
		promptTokens = len(prompt) / 4
		completionTokens = len(response) / 4
	}
	return float64(promptTokens)*c.cfg.PromptPricePerMTok/1e6 +
		float64(completionTokens)*c.cfg.CompletionPricePerMTok/1e6
}

// rawLabel decodes one response entry strictly: a fractional or string
// relevance_score fails the unmarshal and drops the entry.
type rawLabel struct {
	ID            *int64            `json:"id"`
	Relevance     *int              `json:"relevance_score"`
	NarrativeTags []json.RawMessage `json:"narrative_tags"`
}

func (c *Classifier) validate(entries []json.RawMessage, batch []domain.ContentRecord) []Label {
	requested := make(map[int64]bool, len(batch))
	for _, rec := range batch {
		requested[rec.ID] = true
	}

	var labels []Label
	for _, entry := range entries {
		var raw rawLabel
		if err := json.Unmarshal(entry, &raw); err != nil {
			c.logger.Debug("dropping malformed entry", "error", err)
			continue
		}
		if raw.ID == nil || raw.Relevance == nil {
			continue
		}
		if !requested[*raw.ID] {
			c.logger.Debug("dropping entry for unrequested id", "id", *raw.ID)
			continue
		}
		if *raw.Relevance < 1 || *raw.Relevance > 5 {
			c.logger.Debug("dropping out-of-range relevance", "id", *raw.ID, "score", *raw.Relevance)
			continue
		}

		tags := raw.NarrativeTags
		if len(tags) > maxNarrativeTags {
			tags = tags[:maxNarrativeTags]
		}
		coerced := make([]string, 0, len(tags))
		for _, t := range tags {
			coerced = append(coerced, coerceString(t))
		}

		labels = append(labels, Label{ID: *raw.ID, Relevance: *raw.Relevance, NarrativeTags: coerced})
	}
	return labels
}

// coerceString renders a JSON value as a plain string, unquoting strings
// and stringifying everything else.
func coerceString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}

// RunSummary reports a classification run's outcome.
type RunSummary struct {
	Fetched int     `json:"fetched"`
	Scored  int     `json:"scored"`
	Batches int     `json:"batches"`
	Cost    float64 `json:"cost"`
}

// Run scores up to limit unscored records in batches, writing labels back
// atomically per record. It stops early when a non-empty batch yields an
// empty result (budget exhaustion or an unusable response).
func Run(ctx context.Context, store ports.RecordRepository, classifier *Classifier, limit, batchSize int, logger *slog.Logger) (RunSummary, error) {
	if batchSize <= 0 {
		batchSize = 10
	}

	records, err := store.Unscored(ctx, limit)
	if err != nil {
		return RunSummary{}, fmt.Errorf("fetch unscored records: %w", err)
	}

	summary := RunSummary{Fetched: len(records)}
	logger.Info("classification run starting", "unscored", len(records), "batch_size", batchSize)

	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))
		batch := records[start:end]

		labels, err := classifier.Classify(ctx, batch)
		if err != nil {
			return summary, err
		}
		if len(labels) == 0 {
			logger.Warn("empty result for non-empty batch, stopping run",
				"batch", start/batchSize+1)
			break
		}

		for _, label := range labels {
			if err := store.UpdateLabels(ctx, label.ID, label.Relevance, label.NarrativeTags); err != nil {
				return summary, fmt.Errorf("update labels for record %d: %w", label.ID, err)
			}
			summary.Scored++
		}

		logger.Info("batch scored", "batch", start/batchSize+1,
			"accepted", len(labels), "of", len(batch),
			"session_cost", classifier.SessionCost())
	}

	summary.Batches = classifier.BatchesProcessed()
	summary.Cost = classifier.SessionCost()
	logger.Info("classification run complete", "scored", summary.Scored,
		"batches", summary.Batches, "cost", summary.Cost)
	return summary, nil
}
