// Package normalizer maps raw rows from the six application tables onto
// models.ApplicationRecord. Every function here is total: unexpected shapes
// degrade to default labels instead of failing.
package normalizer

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"accelerator-admin/internal/models"
)

// Raw is one row keyed by column name.
type Raw map[string]interface{}

// Normalize converts one raw row of the given source type.
func Normalize(raw Raw, sourceType models.SourceType) models.ApplicationRecord {
	desc, ok := Describe(sourceType)
	if !ok {
		desc = SourceDescriptor{
			Type:           sourceType,
			DefaultDisplay: "Application",
			DefaultContact: NotAvailable,
		}
	}

	rec := models.ApplicationRecord{
		ID:         text(raw["id"]),
		SourceType: sourceType,
		Status:     models.NormalizeStatus(text(raw["status"])),
	}

	if t, ok := timestamp(raw["created_at"]); ok {
		rec.CreatedAt = t
	}

	var contact string
	if desc.JoinNames {
		parts := make([]string, 0, len(desc.ContactFields))
		for _, f := range desc.ContactFields {
			parts = append(parts, text(raw[f]))
		}
		contact = strings.TrimSpace(strings.Join(parts, " "))
	} else {
		contact = firstNonEmpty(raw, desc.ContactFields)
	}

	display := firstNonEmpty(raw, desc.DisplayFields)
	if display == "" && desc.JoinNames {
		display = contact
	}

	rec.DisplayName = orDefault(display, desc.DefaultDisplay)
	rec.ContactName = orDefault(contact, desc.DefaultContact)

	if desc.EmailField != "" {
		rec.ContactEmail = text(raw[desc.EmailField])
	}
	if desc.PhoneField != "" {
		rec.ContactPhone = text(raw[desc.PhoneField])
	}

	if v := text(raw["reviewed_by"]); v != "" {
		rec.ReviewedBy = &v
	}
	if t, ok := timestamp(raw["reviewed_at"]); ok {
		rec.ReviewedAt = &t
	}
	if v, ok := optionalText(raw["admin_notes"]); ok {
		rec.AdminNotes = &v
	}

	return rec
}

// NormalizeAll maps a batch of rows from one source.
func NormalizeAll(raws []Raw, sourceType models.SourceType) []models.ApplicationRecord {
	out := make([]models.ApplicationRecord, 0, len(raws))
	for _, raw := range raws {
		out = append(out, Normalize(raw, sourceType))
	}
	return out
}

func firstNonEmpty(raw Raw, fields []string) string {
	for _, f := range fields {
		if v := strings.TrimSpace(text(raw[f])); v != "" {
			return v
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func optionalText(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case *string:
		if val == nil {
			return "", false
		}
		return *val, true
	case sql.NullString:
		return val.String, val.Valid
	default:
		return text(v), true
	}
}

func text(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case *string:
		if val == nil {
			return ""
		}
		return *val
	case sql.NullString:
		if !val.Valid {
			return ""
		}
		return val.String
	case fmt.Stringer:
		return val.String()
	case int, int32, int64, float64:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

func timestamp(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val.UTC(), !val.IsZero()
	case *time.Time:
		if val == nil {
			return time.Time{}, false
		}
		return val.UTC(), !val.IsZero()
	case sql.NullTime:
		return val.Time.UTC(), val.Valid
	case string, []byte:
		s := text(val)
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999-07", "2006-01-02 15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC(), true
			}
		}
	}
	return time.Time{}, false
}
