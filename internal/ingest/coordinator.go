package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
	"ContentRadar/internal/tagging"
)

// Summary reports the outcome of one ingestion run.
type Summary struct {
	Source  string `json:"source"`
	Fetched int    `json:"fetched"`
	Saved   int    `json:"saved"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// Coordinator drives a collector and persists its output with per-item
// dedup and failure isolation.
type Coordinator struct {
	store  ports.RecordRepository
	tagger *tagging.KeywordTagger
	logger *slog.Logger
}

// NewCoordinator wires the persistence and tagging dependencies.
func NewCoordinator(store ports.RecordRepository, tagger *tagging.KeywordTagger, logger *slog.Logger) *Coordinator {
	return &Coordinator{store: store, tagger: tagger, logger: logger}
}

// Run collects from one source and stores the results. Collector-declared
// tags come first, keyword-inferred tags after, deduplicated in first-seen
// order. A single item's persistence failure is logged and skipped; only
// an unreachable store aborts the run. Zero collected items is not an
// error.
func (c *Coordinator) Run(ctx context.Context, collector ports.Collector) (Summary, error) {
	summary := Summary{Source: collector.Name()}

	records, err := collector.Collect(ctx)
	if err != nil {
		c.logger.Error("collection failed", "source", collector.Name(), "error", err)
		return summary, fmt.Errorf("collect %s: %w", collector.Name(), err)
	}

	summary.Fetched = len(records)
	if len(records) == 0 {
		c.logger.Info("no records collected", "source", collector.Name())
		return summary, nil
	}

	for i := range records {
		rec := &records[i]
		if rec.Source == "" {
			rec.Source = collector.Name()
		}
		rec.Tags = domain.MergeTags(rec.Tags, c.tagger.Score(rec.Title, rec.Body))

		result, err := c.store.Insert(ctx, rec)
		if err != nil {
			summary.Failed++
			c.logger.Warn("persist record failed", "source", rec.Source,
				"source_id", rec.SourceID, "error", err)
			continue
		}
		switch result {
		case ports.Inserted:
			summary.Saved++
		case ports.DuplicateSkipped:
			summary.Skipped++
			c.logger.Debug("duplicate skipped", "source_id", rec.SourceID)
		}
	}

	c.logger.Info("ingestion run complete", "source", collector.Name(),
		"fetched", summary.Fetched, "saved", summary.Saved,
		"skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}
