package ports

import (
	"context"

	"ContentRadar/internal/domain"
)

// InsertResult reports the outcome of a single insert-or-skip attempt.
type InsertResult int

const (
	Inserted InsertResult = iota
	DuplicateSkipped
)

// Collector fetches raw items from one upstream source and maps them into
// normalized records. Collect has no persistence side effects. A transport
// failure inside the source must surface as a shorter (possibly empty)
// result, not as an error that would block sibling sources.
type Collector interface {
	Name() string
	Collect(ctx context.Context) ([]domain.ContentRecord, error)
}

// RecordRepository persists normalized records and owns the uniqueness
// invariant on source_id.
type RecordRepository interface {
	Insert(ctx context.Context, rec *domain.ContentRecord) (InsertResult, error)
	Query(ctx context.Context, filter domain.RecordFilter) ([]domain.ContentRecord, error)
	Unscored(ctx context.Context, limit int) ([]domain.ContentRecord, error)
	UpdateLabels(ctx context.Context, id int64, relevance int, narrativeTags []string) error
	SourceStats(ctx context.Context) ([]domain.SourceStats, error)
}

// TokenUsage is the token accounting a reasoning service reports per call.
// Zero values mean the service did not report usage.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// Reasoner submits a prompt to an external structured-reasoning service
// and returns its raw text response within a bounded timeout.
type Reasoner interface {
	Submit(ctx context.Context, prompt string) (string, TokenUsage, error)
}
