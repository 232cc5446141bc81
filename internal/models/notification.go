// internal/models/notification.go
package models

import "time"

// NotificationRequest is handed off after a status change when the admin
// asked for the applicant to be told.
type NotificationRequest struct {
	NotificationID string     `json:"notificationId"`
	RecordID       string     `json:"recordId"`
	SourceType     SourceType `json:"sourceType"`
	DisplayName    string     `json:"displayName"`
	ContactName    string     `json:"contactName"`
	Email          string     `json:"email,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	Status         Status     `json:"status"`
	AdminNotes     string     `json:"adminNotes,omitempty"`
	RequestedBy    string     `json:"requestedBy"`
	RequestedAt    time.Time  `json:"requestedAt"`
}

type NotificationTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// Delivery statuses
const (
	NotificationSent     = "sent"
	NotificationFailed   = "failed"
	NotificationDisabled = "disabled"
)

// AuditEntry records one status transition.
type AuditEntry struct {
	ID             string     `json:"id"`
	RecordID       string     `json:"recordId"`
	SourceType     SourceType `json:"sourceType"`
	PreviousStatus Status     `json:"previousStatus"`
	NewStatus      Status     `json:"newStatus"`
	ActorID        string     `json:"actorId"`
	Notes          *string    `json:"notes,omitempty"`
	OccurredAt     time.Time  `json:"occurredAt"`
}

// AuditEventStatusChanged is the audit_log event type for transitions.
const AuditEventStatusChanged = "application.status_changed"
