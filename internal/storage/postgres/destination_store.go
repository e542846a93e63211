package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rootsofthevalley/content-collector/internal/collector"
)

// DestinationStore reads and touches tracked destinations in Postgres.
type DestinationStore struct {
	pool dbConn
}

// NewDestinationStore constructs a DestinationStore from an existing pool.
func NewDestinationStore(pool dbConn) (*DestinationStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &DestinationStore{pool: pool}, nil
}

const destinationColumns = `id, name, kind, activities, website_url, events_page_url, news_page_url, last_collection`

// GetDestination loads one destination by id.
func (s *DestinationStore) GetDestination(ctx context.Context, id string) (collector.Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations WHERE id = $1`
	return scanDestination(s.pool.QueryRow(ctx, query, id))
}

// ListDestinations returns every tracked destination in id order.
func (s *DestinationStore) ListDestinations(ctx context.Context) ([]collector.Destination, error) {
	query := `SELECT ` + destinationColumns + ` FROM destinations ORDER BY id`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}
	defer rows.Close()
	return collectDestinations(rows)
}

// MissingDestinations returns the subset of ids with no stored row.
func (s *DestinationStore) MissingDestinations(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT id FROM destinations WHERE id = ANY($1)`
	rows, err := s.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("check destinations: %w", err)
	}
	defer rows.Close()

	found := make(map[string]struct{}, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan destination id: %w", err)
		}
		found[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate destination ids: %w", err)
	}

	var missing []string
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

// TouchLastCollection stamps the destination's last collection time.
func (s *DestinationStore) TouchLastCollection(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE destinations SET last_collection = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, at)
	if err != nil {
		return fmt.Errorf("touch last collection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("destination %s not found", id)
	}
	return nil
}

// StaleDestinations lists destinations never collected or collected before
// the cutoff, in id order.
func (s *DestinationStore) StaleDestinations(ctx context.Context, cutoff time.Time) ([]collector.Destination, error) {
	query := `SELECT ` + destinationColumns + `
FROM destinations
WHERE last_collection IS NULL OR last_collection < $1
ORDER BY id`
	rows, err := s.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale destinations: %w", err)
	}
	defer rows.Close()
	return collectDestinations(rows)
}

func collectDestinations(rows pgx.Rows) ([]collector.Destination, error) {
	var out []collector.Destination
	for rows.Next() {
		dest, err := scanDestination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, dest)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate destinations: %w", err)
	}
	return out, nil
}

func scanDestination(row pgx.Row) (collector.Destination, error) {
	var dest collector.Destination
	err := row.Scan(
		&dest.ID,
		&dest.Name,
		&dest.Kind,
		&dest.Activities,
		&dest.WebsiteURL,
		&dest.EventsPageURL,
		&dest.NewsPageURL,
		&dest.LastCollection,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return collector.Destination{}, fmt.Errorf("destination not found: %w", err)
	}
	if err != nil {
		return collector.Destination{}, fmt.Errorf("scan destination: %w", err)
	}
	return dest, nil
}
