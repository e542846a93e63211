package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// RecordStore persists news and event rows in Postgres. The saver's
// duplicate check and the insert run as separate statements; a unique index
// on (destination_id, lower(title)) is the backstop for overlapping jobs.
type RecordStore struct {
	pool dbConn
}

// NewRecordStore constructs a RecordStore from an existing pool.
func NewRecordStore(pool dbConn) (*RecordStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &RecordStore{pool: pool}, nil
}

// ListNews returns the stored news rows for one destination.
func (s *RecordStore) ListNews(ctx context.Context, destinationID string) ([]collector.NewsRecord, error) {
	query := `SELECT id, destination_id, title, summary, url, source_name, published_date, created_at
FROM destination_news WHERE destination_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, destinationID)
	if err != nil {
		return nil, fmt.Errorf("list news: %w", err)
	}
	defer rows.Close()

	var out []collector.NewsRecord
	for rows.Next() {
		rec, err := scanNews(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate news: %w", err)
	}
	return out, nil
}

// InsertNews writes one news row.
func (s *RecordStore) InsertNews(ctx context.Context, rec collector.NewsRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("news record id is required")
	}
	query := `INSERT INTO destination_news (id, destination_id, title, summary, url, source_name, published_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.DestinationID, rec.Title, rec.Summary, rec.URL, rec.SourceName, rec.PublishedDate, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert news: %w", err)
	}
	return nil
}

// ListEvents returns the stored event rows for one destination.
func (s *RecordStore) ListEvents(ctx context.Context, destinationID string) ([]collector.EventRecord, error) {
	query := `SELECT id, destination_id, title, description, url, source_name, start_date, end_date, created_at
FROM destination_events WHERE destination_id = $1 ORDER BY created_at`
	rows, err := s.pool.Query(ctx, query, destinationID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var out []collector.EventRecord
	for rows.Next() {
		rec, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// InsertEvent writes one event row.
func (s *RecordStore) InsertEvent(ctx context.Context, rec collector.EventRecord) error {
	if rec.ID == "" {
		return fmt.Errorf("event record id is required")
	}
	query := `INSERT INTO destination_events (id, destination_id, title, description, url, source_name, start_date, end_date, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.DestinationID, rec.Title, rec.Description, rec.URL, rec.SourceName, rec.StartDate, rec.EndDate, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func scanNews(row pgx.Row) (collector.NewsRecord, error) {
	var rec collector.NewsRecord
	err := row.Scan(
		&rec.ID, &rec.DestinationID, &rec.Title, &rec.Summary, &rec.URL, &rec.SourceName, &rec.PublishedDate, &rec.CreatedAt,
	)
	if err != nil {
		return collector.NewsRecord{}, fmt.Errorf("scan news: %w", err)
	}
	return rec, nil
}

func scanEvent(row pgx.Row) (collector.EventRecord, error) {
	var rec collector.EventRecord
	err := row.Scan(
		&rec.ID, &rec.DestinationID, &rec.Title, &rec.Description, &rec.URL, &rec.SourceName, &rec.StartDate, &rec.EndDate, &rec.CreatedAt,
	)
	if err != nil {
		return collector.EventRecord{}, fmt.Errorf("scan event: %w", err)
	}
	return rec, nil
}
