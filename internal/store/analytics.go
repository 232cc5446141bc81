package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "accelerator-admin/internal/common/errors"
)

// Tables outside the application set that analytics reads from.
const (
	TableStartups  = "startups"
	TableInvestors = "investors"
	TableDeals     = "deals"
)

// AnalyticsStore runs count and category queries. Table and column names come
// from code, never from requests.
type AnalyticsStore struct {
	db *sql.DB
}

func NewAnalyticsStore(db *sql.DB) *AnalyticsStore {
	return &AnalyticsStore{db: db}
}

// CountCreatedBetween counts rows with from <= created_at < to.
func (s *AnalyticsStore) CountCreatedBetween(ctx context.Context, table string, from, to time.Time) (int, error) {
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE created_at >= $1 AND created_at < $2", pq.QuoteIdentifier(table))

	var n int
	if err := s.db.QueryRowContext(ctx, query, from, to).Scan(&n); err != nil {
		return 0, apperrors.NewUpstreamFailureError(table, err)
	}
	return n, nil
}

// Categories returns one entry per row; NULL values are returned as nil.
func (s *AnalyticsStore) Categories(ctx context.Context, table, column string) ([]*string, error) {
	query := fmt.Sprintf("SELECT %s FROM %s", pq.QuoteIdentifier(column), pq.QuoteIdentifier(table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewUpstreamFailureError(table, err)
	}
	defer rows.Close()

	var out []*string
	for rows.Next() {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return nil, apperrors.NewUpstreamFailureError(table, err)
		}
		if v.Valid {
			val := v.String
			out = append(out, &val)
		} else {
			out = append(out, nil)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewUpstreamFailureError(table, err)
	}
	return out, nil
}
