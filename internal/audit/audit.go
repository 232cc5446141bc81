// Package audit records status transitions in Postgres and, optionally, in an
// Elasticsearch index.
package audit

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"

	apperrors "accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/models"
)

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

// PostgresSink appends to the audit_log table.
type PostgresSink struct {
	db *sql.DB
}

func NewPostgresSink(db *sql.DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Record(ctx context.Context, entry models.AuditEntry) error {
	details, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewAuditWriteFailedError("postgres", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_log (event_type, resource_type, resource_id, details, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		models.AuditEventStatusChanged,
		string(entry.SourceType)+"_application",
		entry.RecordID,
		details,
		entry.OccurredAt,
	)
	if err != nil {
		return apperrors.NewAuditWriteFailedError("postgres", err)
	}
	return nil
}

// ElasticsearchSink indexes each entry as a document keyed by its id.
type ElasticsearchSink struct {
	client *elasticsearch.Client
	index  string
}

func NewElasticsearchSink(client *elasticsearch.Client, index string) *ElasticsearchSink {
	return &ElasticsearchSink{client: client, index: index}
}

func (s *ElasticsearchSink) Record(ctx context.Context, entry models.AuditEntry) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return apperrors.NewAuditWriteFailedError("elasticsearch", err)
	}

	res, err := s.client.Index(
		s.index,
		bytes.NewReader(body),
		s.client.Index.WithDocumentID(entry.ID),
		s.client.Index.WithContext(ctx),
	)
	if err != nil {
		return apperrors.NewAuditWriteFailedError("elasticsearch", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return apperrors.NewAuditWriteFailedError("elasticsearch", fmt.Errorf("index %s: %s", s.index, res.Status()))
	}
	return nil
}

// MultiSink writes to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, entry models.AuditEntry) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
