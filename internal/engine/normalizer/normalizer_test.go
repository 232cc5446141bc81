package normalizer

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelerator-admin/internal/models"
)

func TestNormalize_EmptyRecordUsesDefaults(t *testing.T) {
	for _, st := range models.AllSourceTypes {
		t.Run(string(st), func(t *testing.T) {
			var rec models.ApplicationRecord
			require.NotPanics(t, func() {
				rec = Normalize(Raw{}, st)
			})

			assert.Equal(t, st, rec.SourceType)
			assert.NotEmpty(t, rec.DisplayName)
			assert.NotEmpty(t, rec.ContactName)
			assert.Equal(t, models.StatusPending, rec.Status)
			assert.Nil(t, rec.ReviewedBy)
			assert.Nil(t, rec.ReviewedAt)
			assert.Nil(t, rec.AdminNotes)
		})
	}
}

func TestNormalize_DefaultLabels(t *testing.T) {
	tests := []struct {
		sourceType  models.SourceType
		wantDisplay string
	}{
		{models.SourceIncubation, "Incubation Application"},
		{models.SourceInvestment, "Investment Application"},
		{models.SourceProgram, "Program Application"},
		{models.SourceMentor, "Mentor Application"},
		{models.SourceGrant, "Grant Application"},
		{models.SourcePartnership, "Partnership Application"},
	}

	for _, tt := range tests {
		rec := Normalize(Raw{"startup_name": "   "}, tt.sourceType)
		assert.Equal(t, tt.wantDisplay, rec.DisplayName, tt.sourceType)
		assert.Equal(t, NotAvailable, rec.ContactName, tt.sourceType)
	}
}

func TestNormalize_FallbackChains(t *testing.T) {
	tests := []struct {
		name        string
		sourceType  models.SourceType
		raw         Raw
		wantDisplay string
		wantContact string
	}{
		{
			name:        "incubation",
			sourceType:  models.SourceIncubation,
			raw:         Raw{"startup_name": "Acme", "founder_name": "Ada"},
			wantDisplay: "Acme",
			wantContact: "Ada",
		},
		{
			name:        "investment",
			sourceType:  models.SourceInvestment,
			raw:         Raw{"startup_name": []byte("Orbit"), "founder_name": "Lin"},
			wantDisplay: "Orbit",
			wantContact: "Lin",
		},
		{
			name:        "grant without founder",
			sourceType:  models.SourceGrant,
			raw:         Raw{"startup_name": "Seedling"},
			wantDisplay: "Seedling",
			wantContact: NotAvailable,
		},
		{
			name:        "program",
			sourceType:  models.SourceProgram,
			raw:         Raw{"program_name": "Launchpad", "founder_name": "Kai"},
			wantDisplay: "Launchpad",
			wantContact: "Kai",
		},
		{
			name:        "mentor full name",
			sourceType:  models.SourceMentor,
			raw:         Raw{"first_name": "Grace", "last_name": "Hopper"},
			wantDisplay: "Grace Hopper",
			wantContact: "Grace Hopper",
		},
		{
			name:        "mentor first name only is trimmed",
			sourceType:  models.SourceMentor,
			raw:         Raw{"first_name": "Grace", "last_name": nil},
			wantDisplay: "Grace",
			wantContact: "Grace",
		},
		{
			name:        "partnership",
			sourceType:  models.SourcePartnership,
			raw:         Raw{"company_name": "Globex", "contact_name": sql.NullString{String: "Hank", Valid: true}},
			wantDisplay: "Globex",
			wantContact: "Hank",
		},
		{
			name:        "unexpected value types degrade",
			sourceType:  models.SourceIncubation,
			raw:         Raw{"startup_name": []int{1, 2}, "founder_name": map[string]string{}},
			wantDisplay: "Incubation Application",
			wantContact: NotAvailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := Normalize(tt.raw, tt.sourceType)
			assert.Equal(t, tt.wantDisplay, rec.DisplayName)
			assert.Equal(t, tt.wantContact, rec.ContactName)
		})
	}
}

func TestNormalize_ReviewFieldsAndTimestamps(t *testing.T) {
	created := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	reviewed := created.Add(48 * time.Hour)

	rec := Normalize(Raw{
		"id":            "app-7",
		"status":        "Under_Review",
		"created_at":    created,
		"reviewed_by":   "admin-1",
		"reviewed_at":   reviewed.Format(time.RFC3339),
		"admin_notes":   "",
		"contact_email": "ops@globex.test",
	}, models.SourcePartnership)

	assert.Equal(t, "app-7", rec.ID)
	assert.Equal(t, models.StatusUnderReview, rec.Status)
	assert.Equal(t, created, rec.CreatedAt)
	require.NotNil(t, rec.ReviewedBy)
	assert.Equal(t, "admin-1", *rec.ReviewedBy)
	require.NotNil(t, rec.ReviewedAt)
	assert.True(t, reviewed.Equal(*rec.ReviewedAt))
	require.NotNil(t, rec.AdminNotes)
	assert.Equal(t, "", *rec.AdminNotes)
	assert.Equal(t, "ops@globex.test", rec.ContactEmail)
}

func TestNormalize_UnknownStatusIsKept(t *testing.T) {
	rec := Normalize(Raw{"status": "  On Hold "}, models.SourceGrant)
	assert.Equal(t, models.Status("on hold"), rec.Status)
	assert.False(t, rec.Status.IsKnown())
}

func TestNormalizeAll(t *testing.T) {
	recs := NormalizeAll([]Raw{{"id": "1"}, {"id": "2"}}, models.SourceProgram)
	require.Len(t, recs, 2)
	assert.Equal(t, "1", recs[0].ID)
	assert.Equal(t, models.SourceProgram, recs[1].SourceType)

	assert.Empty(t, NormalizeAll(nil, models.SourceProgram))
}

func TestDescriptors(t *testing.T) {
	descs := Descriptors()
	require.Len(t, descs, len(models.AllSourceTypes))

	tables := map[string]bool{}
	for i, d := range descs {
		assert.Equal(t, models.AllSourceTypes[i], d.Type)
		assert.NotEmpty(t, d.Table)
		assert.False(t, tables[d.Table], "duplicate table %s", d.Table)
		tables[d.Table] = true
		assert.Equal(t, []string{"id", "status", "created_at", "reviewed_by", "reviewed_at", "admin_notes"}, d.Columns()[:6])
	}

	mentor, ok := Describe(models.SourceMentor)
	require.True(t, ok)
	assert.Contains(t, mentor.Columns(), "first_name")
	assert.Contains(t, mentor.Columns(), "last_name")

	_, ok = Describe("hackathon")
	assert.False(t, ok)
}
