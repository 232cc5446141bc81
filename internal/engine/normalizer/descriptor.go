package normalizer

import "accelerator-admin/internal/models"

// NotAvailable is the contact label used when no naming field is present.
const NotAvailable = "N/A"

// SourceDescriptor tells the normalizer and the store how one application
// table is shaped.
type SourceDescriptor struct {
	Type  models.SourceType
	Table string

	// DisplayFields and ContactFields are tried in order; the first non-empty
	// value wins. When JoinNames is set the two fields of ContactFields are
	// concatenated instead.
	DisplayFields []string
	ContactFields []string
	JoinNames     bool

	EmailField string
	PhoneField string

	DefaultDisplay string
	DefaultContact string
}

// Columns returns the column list the store selects for this source.
func (d SourceDescriptor) Columns() []string {
	cols := []string{"id", "status", "created_at", "reviewed_by", "reviewed_at", "admin_notes"}
	seen := map[string]bool{}
	for _, c := range cols {
		seen[c] = true
	}
	add := func(fields ...string) {
		for _, f := range fields {
			if f != "" && !seen[f] {
				seen[f] = true
				cols = append(cols, f)
			}
		}
	}
	add(d.DisplayFields...)
	add(d.ContactFields...)
	add(d.EmailField, d.PhoneField)
	return cols
}

var descriptors = map[models.SourceType]SourceDescriptor{
	models.SourceIncubation: {
		Type:           models.SourceIncubation,
		Table:          "incubation_applications",
		DisplayFields:  []string{"startup_name"},
		ContactFields:  []string{"founder_name"},
		EmailField:     "email",
		PhoneField:     "phone",
		DefaultDisplay: "Incubation Application",
		DefaultContact: NotAvailable,
	},
	models.SourceInvestment: {
		Type:           models.SourceInvestment,
		Table:          "investment_applications",
		DisplayFields:  []string{"startup_name"},
		ContactFields:  []string{"founder_name"},
		EmailField:     "email",
		PhoneField:     "phone",
		DefaultDisplay: "Investment Application",
		DefaultContact: NotAvailable,
	},
	models.SourceProgram: {
		Type:           models.SourceProgram,
		Table:          "program_applications",
		DisplayFields:  []string{"program_name"},
		ContactFields:  []string{"founder_name"},
		EmailField:     "email",
		PhoneField:     "phone",
		DefaultDisplay: "Program Application",
		DefaultContact: NotAvailable,
	},
	models.SourceMentor: {
		Type:           models.SourceMentor,
		Table:          "mentor_applications",
		ContactFields:  []string{"first_name", "last_name"},
		JoinNames:      true,
		EmailField:     "email",
		PhoneField:     "phone",
		DefaultDisplay: "Mentor Application",
		DefaultContact: NotAvailable,
	},
	models.SourceGrant: {
		Type:           models.SourceGrant,
		Table:          "grant_applications",
		DisplayFields:  []string{"startup_name"},
		ContactFields:  []string{"founder_name"},
		EmailField:     "email",
		PhoneField:     "phone",
		DefaultDisplay: "Grant Application",
		DefaultContact: NotAvailable,
	},
	models.SourcePartnership: {
		Type:           models.SourcePartnership,
		Table:          "partnership_applications",
		DisplayFields:  []string{"company_name"},
		ContactFields:  []string{"contact_name"},
		EmailField:     "contact_email",
		PhoneField:     "contact_phone",
		DefaultDisplay: "Partnership Application",
		DefaultContact: NotAvailable,
	},
}

// Describe returns the descriptor for a source type.
func Describe(st models.SourceType) (SourceDescriptor, bool) {
	d, ok := descriptors[st]
	return d, ok
}

// Descriptors returns every descriptor in models.AllSourceTypes order.
func Descriptors() []SourceDescriptor {
	out := make([]SourceDescriptor, 0, len(models.AllSourceTypes))
	for _, st := range models.AllSourceTypes {
		out = append(out, descriptors[st])
	}
	return out
}
