// Package transition applies admin status changes to application records.
package transition

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"accelerator-admin/internal/cache"
	"accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/common/metrics"
	"accelerator-admin/internal/engine/normalizer"
	"accelerator-admin/internal/models"
)

// Store writes one status change and returns the updated row with the
// status it replaced.
type Store interface {
	UpdateStatus(ctx context.Context, st models.SourceType, id string, update models.StatusUpdate) (normalizer.Raw, models.Status, error)
}

// AuditSink records applied transitions.
type AuditSink interface {
	Record(ctx context.Context, entry models.AuditEntry) error
}

type Notifier interface {
	Notify(ctx context.Context, req models.NotificationRequest) error
}

// Invalidator drops cached reads affected by a transition.
type Invalidator interface {
	Invalidate(ctx context.Context, names ...string) error
}

// Request is one status change as submitted by an admin.
type Request struct {
	RecordID   string
	SourceType string
	NewStatus  string
	AdminID    string
	Notes      *string
	SendEmail  bool
}

type Config struct {
	// NotifyTimeout bounds each background notification dispatch.
	NotifyTimeout time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// Authority validates and applies transitions. Audit and notification
// failures never undo an applied change.
type Authority struct {
	config   Config
	store    Store
	audit    AuditSink
	notifier Notifier
	cache    Invalidator
	logger   logger.Logger

	inflight sync.WaitGroup
}

func New(config Config, store Store, audit AuditSink, notifier Notifier, cache Invalidator, log logger.Logger) *Authority {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.NotifyTimeout <= 0 {
		config.NotifyTimeout = 10 * time.Second
	}
	return &Authority{
		config:   config,
		store:    store,
		audit:    audit,
		notifier: notifier,
		cache:    cache,
		logger:   log.WithFields(map[string]interface{}{"component": "transition"}),
	}
}

// Transition validates req, writes the new status and returns the updated
// record.
func (a *Authority) Transition(ctx context.Context, req Request) (*models.ApplicationRecord, error) {
	if strings.TrimSpace(req.AdminID) == "" {
		return nil, errors.NewUnauthenticatedError("no acting admin on request")
	}
	recordID := strings.TrimSpace(req.RecordID)
	if recordID == "" {
		return nil, errors.NewInvalidArgumentError("id", "record id is required")
	}
	st, ok := models.ParseSourceType(req.SourceType)
	if !ok {
		return nil, errors.NewInvalidArgumentError("type", "unknown application type "+quote(req.SourceType))
	}
	status, ok := models.ParseStatus(req.NewStatus)
	if !ok {
		return nil, errors.NewInvalidArgumentError("status", "unknown status "+quote(req.NewStatus))
	}

	update := models.StatusUpdate{
		Status:     status,
		ReviewedBy: req.AdminID,
		ReviewedAt: a.config.Now().UTC(),
		AdminNotes: req.Notes,
	}

	raw, previous, err := a.store.UpdateStatus(ctx, st, recordID, update)
	if err != nil {
		switch errors.KindOf(err) {
		case errors.ErrCodeNotFound, errors.ErrCodeInvalidArgument, errors.ErrCodeUpstreamFailure:
			return nil, err
		default:
			return nil, errors.NewUpstreamFailureError(string(st)+" store", err)
		}
	}

	rec := normalizer.Normalize(raw, st)
	metrics.StatusTransitions.WithLabelValues(string(st), string(status)).Inc()

	a.logger.Info("application status changed", map[string]interface{}{
		"recordId":       rec.ID,
		"sourceType":     string(st),
		"previousStatus": string(previous),
		"status":         string(status),
		"adminId":        req.AdminID,
	})

	a.recordAudit(ctx, models.AuditEntry{
		ID:             uuid.New().String(),
		RecordID:       rec.ID,
		SourceType:     st,
		PreviousStatus: previous,
		NewStatus:      status,
		ActorID:        req.AdminID,
		Notes:          req.Notes,
		OccurredAt:     update.ReviewedAt,
	})

	if a.cache != nil {
		if err := a.cache.Invalidate(ctx, cache.KeyApplicationStats); err != nil {
			a.logger.Warn("stats cache invalidation failed", map[string]interface{}{"error": err.Error()})
		}
	}

	if req.SendEmail && a.notifier != nil {
		a.dispatch(ctx, notificationFor(rec, req, update.ReviewedAt))
	}

	return &rec, nil
}

// Wait blocks until every background notification has finished.
func (a *Authority) Wait() {
	a.inflight.Wait()
}

func (a *Authority) recordAudit(ctx context.Context, entry models.AuditEntry) {
	if a.audit == nil {
		return
	}
	if err := a.audit.Record(ctx, entry); err != nil {
		a.logger.Warn("audit log insert failed", map[string]interface{}{
			"error":    err.Error(),
			"recordId": entry.RecordID,
		})
	}
}

func (a *Authority) dispatch(ctx context.Context, req models.NotificationRequest) {
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()

		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.config.NotifyTimeout)
		defer cancel()

		if err := a.notifier.Notify(nctx, req); err != nil {
			a.logger.Error("notification dispatch failed", map[string]interface{}{
				"error":          err.Error(),
				"notificationId": req.NotificationID,
				"recordId":       req.RecordID,
			})
		}
	}()
}

func notificationFor(rec models.ApplicationRecord, req Request, at time.Time) models.NotificationRequest {
	n := models.NotificationRequest{
		NotificationID: uuid.New().String(),
		RecordID:       rec.ID,
		SourceType:     rec.SourceType,
		DisplayName:    rec.DisplayName,
		ContactName:    rec.ContactName,
		Email:          rec.ContactEmail,
		Phone:          rec.ContactPhone,
		Status:         rec.Status,
		RequestedBy:    req.AdminID,
		RequestedAt:    at,
	}
	if req.Notes != nil {
		n.AdminNotes = *req.Notes
	}
	return n
}

func quote(s string) string {
	return "\"" + s + "\""
}
