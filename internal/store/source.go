// Package store reads and writes the six application tables and runs the
// count queries behind the analytics endpoints.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	apperrors "accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/engine/normalizer"
	"accelerator-admin/internal/models"
)

const previousStatusColumn = "previous_status"

// SourceStore runs queries against one table per source type.
type SourceStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewSourceStore(db *sql.DB, log logger.Logger) *SourceStore {
	return &SourceStore{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "source-store"}),
	}
}

func describe(st models.SourceType) (normalizer.SourceDescriptor, error) {
	desc, ok := normalizer.Describe(st)
	if !ok {
		return normalizer.SourceDescriptor{}, apperrors.NewInvalidArgumentError("type", fmt.Sprintf("unknown source type %q", st))
	}
	return desc, nil
}

func quotedColumns(prefix string, cols []string) string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = prefix + pq.QuoteIdentifier(c)
	}
	return strings.Join(out, ", ")
}

// List returns every row of the source table, newest first.
func (s *SourceStore) List(ctx context.Context, st models.SourceType) ([]normalizer.Raw, error) {
	desc, err := describe(st)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC",
		quotedColumns("", desc.Columns()), pq.QuoteIdentifier(desc.Table))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewUpstreamFailureError(desc.Table, err)
	}
	defer rows.Close()

	raws, err := scanRaws(rows)
	if err != nil {
		return nil, apperrors.NewUpstreamFailureError(desc.Table, err)
	}
	return raws, nil
}

// UpdateStatus writes a status change to one row and returns the updated row
// together with the status it had before. The previous status is read under a
// row lock in the same statement.
func (s *SourceStore) UpdateStatus(ctx context.Context, st models.SourceType, id string, update models.StatusUpdate) (normalizer.Raw, models.Status, error) {
	desc, err := describe(st)
	if err != nil {
		return nil, "", err
	}

	table := pq.QuoteIdentifier(desc.Table)
	query := fmt.Sprintf(`UPDATE %[1]s SET status = $2, reviewed_by = $3, reviewed_at = $4, admin_notes = $5
FROM (SELECT id, status AS %[2]s FROM %[1]s WHERE id = $1 FOR UPDATE) prev
WHERE %[1]s.id = prev.id
RETURNING %[3]s, prev.%[2]s`,
		table, previousStatusColumn, quotedColumns(table+".", desc.Columns()))

	var notes interface{}
	if update.AdminNotes != nil {
		notes = *update.AdminNotes
	}

	rows, err := s.db.QueryContext(ctx, query, id, string(update.Status), update.ReviewedBy, update.ReviewedAt, notes)
	if err != nil {
		return nil, "", s.updateError(desc.Table, st, id, err)
	}
	defer rows.Close()

	raws, err := scanRaws(rows)
	if err != nil {
		return nil, "", s.updateError(desc.Table, st, id, err)
	}
	if len(raws) == 0 {
		return nil, "", apperrors.NewNotFoundError(string(st)+" application", id)
	}

	raw := raws[0]
	previous := models.NormalizeStatus(textValue(raw[previousStatusColumn]))
	delete(raw, previousStatusColumn)

	s.logger.Debug("status updated", map[string]interface{}{
		"table":          desc.Table,
		"id":             id,
		"previousStatus": string(previous),
		"status":         string(update.Status),
	})
	return raw, previous, nil
}

// invalidTextRepresentation is raised when id cannot be cast to a uuid column.
const invalidTextRepresentation pq.ErrorCode = "22P02"

// updateError maps a failed update to an app error. An id the column type
// rejects cannot match a row, so it reads as not found.
func (s *SourceStore) updateError(table string, st models.SourceType, id string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == invalidTextRepresentation {
		s.logger.Debug("id rejected by column type", map[string]interface{}{
			"table": table,
			"id":    id,
		})
		return apperrors.NewNotFoundError(string(st)+" application", id)
	}
	return apperrors.NewUpstreamFailureError(table, err)
}

func scanRaws(rows *sql.Rows) ([]normalizer.Raw, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []normalizer.Raw
	for rows.Next() {
		values := make([]interface{}, len(cols))
		ptrs := make([]interface{}, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		raw := make(normalizer.Raw, len(cols))
		for i, c := range cols {
			raw[c] = values[i]
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

func textValue(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return ""
	}
}
