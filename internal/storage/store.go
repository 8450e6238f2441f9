package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"ContentRadar/internal/domain"
	"ContentRadar/internal/ports"
)

var recordColumns = []string{
	"id", "source", "source_id", "author", "title", "body", "url",
	"tags", "engagement_score", "relevance_score", "narrative_tags",
	"published_at", "collected_at",
}

// Store persists normalized content records in SQLite. It owns the
// source_id uniqueness invariant; everything else operates on copies.
type Store struct {
	db *sql.DB
}

var _ ports.RecordRepository = (*Store)(nil)

// NewStore wires an opened database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Insert attempts a unique-constrained insert keyed on source_id. A
// uniqueness violation is not an error: the single statement is its own
// transaction, so a duplicate never rolls back sibling inserts, and the
// outcome is reported as DuplicateSkipped. CollectedAt is set at
// persistence time unless the caller pre-set it (tests, backfills).
func (s *Store) Insert(ctx context.Context, rec *domain.ContentRecord) (ports.InsertResult, error) {
	if rec.CollectedAt.IsZero() {
		rec.CollectedAt = time.Now().UTC()
	}

	var sourceID any
	if rec.SourceID != "" {
		sourceID = rec.SourceID
	}

	var publishedAt any
	if rec.PublishedAt != nil {
		publishedAt = rec.PublishedAt.UTC().Unix()
	}

	res, err := sq.Insert("records").
		Options("OR IGNORE").
		Columns("source", "source_id", "author", "title", "body", "url",
			"tags", "engagement_score", "published_at", "collected_at").
		Values(rec.Source, sourceID, rec.Author, rec.Title, rec.Body, rec.URL,
			domain.EncodeTags(rec.Tags), rec.EngagementScore, publishedAt,
			rec.CollectedAt.UTC().Unix()).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ports.DuplicateSkipped, nil
	}

	if id, err := res.LastInsertId(); err == nil {
		rec.ID = id
	}
	return ports.Inserted, nil
}

// Query returns records matching the filter, newest first unless the
// filter orders by engagement.
func (s *Store) Query(ctx context.Context, filter domain.RecordFilter) ([]domain.ContentRecord, error) {
	query := sq.Select(recordColumns...).From("records")

	if filter.Source != "" {
		query = query.Where(sq.Eq{"source": filter.Source})
	}
	if filter.MinRelevance > 0 {
		query = query.Where(sq.GtOrEq{"relevance_score": filter.MinRelevance})
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where(sq.Or{sq.Like{"title": pattern}, sq.Like{"body": pattern}})
	}
	if !filter.CollectedSince.IsZero() {
		query = query.Where(sq.GtOrEq{"collected_at": filter.CollectedSince.UTC().Unix()})
	}
	if !filter.CollectedBefore.IsZero() {
		query = query.Where(sq.Lt{"collected_at": filter.CollectedBefore.UTC().Unix()})
	}

	switch filter.OrderBy {
	case domain.OrderByEngagement:
		query = query.OrderBy("engagement_score DESC", "collected_at DESC")
	default:
		query = query.OrderBy("collected_at DESC", "id DESC")
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// Unscored returns up to limit records the external classifier has not
// labeled yet, newest first.
func (s *Store) Unscored(ctx context.Context, limit int) ([]domain.ContentRecord, error) {
	query := sq.Select(recordColumns...).
		From("records").
		Where("relevance_score IS NULL").
		OrderBy("collected_at DESC", "id DESC")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	rows, err := query.RunWith(s.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query unscored: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// UpdateLabels applies classifier output as a single atomic write so a
// concurrent reader never observes a half-labeled record. It is idempotent
// and touches no other fields.
func (s *Store) UpdateLabels(ctx context.Context, id int64, relevance int, narrativeTags []string) error {
	_, err := sq.Update("records").
		Set("relevance_score", relevance).
		Set("narrative_tags", domain.EncodeTags(narrativeTags)).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update labels for record %d: %w", id, err)
	}
	return nil
}

// UpdateTags replaces a record's topic tags. Used by tag backfills after
// the keyword rule table changes.
func (s *Store) UpdateTags(ctx context.Context, id int64, tags []string) error {
	_, err := sq.Update("records").
		Set("tags", domain.EncodeTags(tags)).
		Where(sq.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("update tags for record %d: %w", id, err)
	}
	return nil
}

// SourceStats reports per-source volume and freshness.
func (s *Store) SourceStats(ctx context.Context) ([]domain.SourceStats, error) {
	cutoff := time.Now().UTC().Add(-24 * time.Hour).Unix()

	rows, err := sq.Select("source", "COUNT(id)", "MAX(collected_at)", "MAX(published_at)").
		Column(sq.Expr("SUM(CASE WHEN collected_at >= ? THEN 1 ELSE 0 END)", cutoff)).
		From("records").
		GroupBy("source").
		OrderBy("COUNT(id) DESC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("query source stats: %w", err)
	}
	defer rows.Close()

	var stats []domain.SourceStats
	for rows.Next() {
		var (
			st            domain.SourceStats
			lastCollected sql.NullInt64
			lastPublished sql.NullInt64
			last24h       sql.NullInt64
		)
		if err := rows.Scan(&st.Source, &st.Count, &lastCollected, &lastPublished, &last24h); err != nil {
			return nil, fmt.Errorf("scan source stats: %w", err)
		}
		if lastCollected.Valid {
			t := time.Unix(lastCollected.Int64, 0).UTC()
			st.LastCollectedAt = &t
		}
		if lastPublished.Valid {
			t := time.Unix(lastPublished.Int64, 0).UTC()
			st.LatestPublishedAt = &t
		}
		st.CountLast24h = int(last24h.Int64)
		stats = append(stats, st)
	}

	return stats, rows.Err()
}

func scanRecords(rows *sql.Rows) ([]domain.ContentRecord, error) {
	var records []domain.ContentRecord
	for rows.Next() {
		var (
			rec           domain.ContentRecord
			sourceID      sql.NullString
			tags          string
			relevance     sql.NullInt64
			narrativeTags sql.NullString
			publishedAt   sql.NullInt64
			collectedAt   int64
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &sourceID, &rec.Author,
			&rec.Title, &rec.Body, &rec.URL, &tags, &rec.EngagementScore,
			&relevance, &narrativeTags, &publishedAt, &collectedAt); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}

		rec.SourceID = sourceID.String
		rec.Tags = domain.DecodeTags(tags)
		rec.NarrativeTags = domain.DecodeTags(narrativeTags.String)
		if relevance.Valid {
			score := int(relevance.Int64)
			rec.RelevanceScore = &score
		}
		if publishedAt.Valid {
			t := time.Unix(publishedAt.Int64, 0).UTC()
			rec.PublishedAt = &t
		}
		rec.CollectedAt = time.Unix(collectedAt, 0).UTC()

		records = append(records, rec)
	}
	return records, rows.Err()
}
