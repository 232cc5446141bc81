// internal/models/application.go
package models

import (
	"strings"
	"time"
)

// SourceType identifies which application table a record came from.
type SourceType string

const (
	SourceIncubation  SourceType = "incubation"
	SourceInvestment  SourceType = "investment"
	SourceProgram     SourceType = "program"
	SourceMentor      SourceType = "mentor"
	SourceGrant       SourceType = "grant"
	SourcePartnership SourceType = "partnership"
)

// AllSourceTypes lists every source in display order.
var AllSourceTypes = []SourceType{
	SourceIncubation,
	SourceInvestment,
	SourceProgram,
	SourceMentor,
	SourceGrant,
	SourcePartnership,
}

// ParseSourceType resolves s to a known source type.
func ParseSourceType(s string) (SourceType, bool) {
	candidate := SourceType(strings.ToLower(strings.TrimSpace(s)))
	for _, st := range AllSourceTypes {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

// Status is the review state of an application.
type Status string

const (
	StatusPending     Status = "pending"
	StatusUnderReview Status = "under review"
	StatusApproved    Status = "approved"
	StatusRejected    Status = "rejected"
	StatusWaitlisted  Status = "waitlisted"
)

// AllStatuses lists the writable statuses.
var AllStatuses = []Status{
	StatusPending,
	StatusUnderReview,
	StatusApproved,
	StatusRejected,
	StatusWaitlisted,
}

var statusAliases = map[string]Status{
	"pending":      StatusPending,
	"under review": StatusUnderReview,
	"under_review": StatusUnderReview,
	"under-review": StatusUnderReview,
	"underreview":  StatusUnderReview,
	"approved":     StatusApproved,
	"rejected":     StatusRejected,
	"waitlisted":   StatusWaitlisted,
}

// ParseStatus maps user input onto the closed status vocabulary.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// NormalizeStatus never fails: stored values outside the vocabulary are kept
// lower-cased so they still show up in listings and counts.
func NormalizeStatus(s string) Status {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return StatusPending
	}
	if st, ok := ParseStatus(trimmed); ok {
		return st
	}
	return Status(strings.ToLower(trimmed))
}

// IsKnown reports whether the status belongs to the closed vocabulary.
func (s Status) IsKnown() bool {
	for _, known := range AllStatuses {
		if known == s {
			return true
		}
	}
	return false
}

// ApplicationRecord is the normalized view over every application table.
type ApplicationRecord struct {
	ID           string     `json:"id"`
	SourceType   SourceType `json:"type"`
	DisplayName  string     `json:"displayName"`
	ContactName  string     `json:"contactName"`
	ContactEmail string     `json:"contactEmail,omitempty"`
	ContactPhone string     `json:"-"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"createdAt"`
	ReviewedBy   *string    `json:"reviewedBy,omitempty"`
	ReviewedAt   *time.Time `json:"reviewedAt,omitempty"`
	AdminNotes   *string    `json:"adminNotes,omitempty"`
}

// Key returns the composite identity of the record.
func (r ApplicationRecord) Key() string {
	return string(r.SourceType) + ":" + r.ID
}

// ApplicationStats is the payload of the application-stats endpoint.
type ApplicationStats struct {
	TotalApplications int                `json:"totalApplications"`
	Pending           int                `json:"pending"`
	Approved          int                `json:"approved"`
	UnderReview       int                `json:"underReview"`
	Rejected          int                `json:"rejected"`
	Waitlisted        int                `json:"waitlisted"`
	ByType            map[SourceType]int `json:"byType"`
}

// StatusUpdate carries the fields written by a status transition.
type StatusUpdate struct {
	Status     Status
	ReviewedBy string
	ReviewedAt time.Time
	AdminNotes *string
}
