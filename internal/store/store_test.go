package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/engine/aggregator"
	"accelerator-admin/internal/engine/normalizer"
	"accelerator-admin/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func descriptorRows(t *testing.T, st models.SourceType, statuses ...string) *sqlmock.Rows {
	t.Helper()
	desc, ok := normalizer.Describe(st)
	require.True(t, ok)

	cols := desc.Columns()
	rows := sqlmock.NewRows(cols)
	for i, status := range statuses {
		values := make([]driver.Value, len(cols))
		for j, c := range cols {
			switch c {
			case "id":
				values[j] = fmt.Sprintf("%s-%d", st, i)
			case "status":
				values[j] = status
			case "created_at":
				values[j] = baseTime.Add(time.Duration(i) * time.Hour)
			default:
				values[j] = nil
			}
		}
		rows.AddRow(values...)
	}
	return rows
}

type fakeLister struct {
	mu    sync.Mutex
	rows  map[models.SourceType][]normalizer.Raw
	errs  map[models.SourceType]error
	calls []models.SourceType
}

func (f *fakeLister) List(ctx context.Context, st models.SourceType) ([]normalizer.Raw, error) {
	f.mu.Lock()
	f.calls = append(f.calls, st)
	f.mu.Unlock()
	if err := f.errs[st]; err != nil {
		return nil, err
	}
	return f.rows[st], nil
}

func rawsWithStatuses(st models.SourceType, statuses ...string) []normalizer.Raw {
	out := make([]normalizer.Raw, 0, len(statuses))
	for i, s := range statuses {
		out = append(out, normalizer.Raw{
			"id":         fmt.Sprintf("%s-%d", st, i),
			"status":     s,
			"created_at": baseTime.Add(time.Duration(i) * time.Minute),
		})
	}
	return out
}

// sixSources has 3,2,1,0,4,2 records with five pending.
func sixSources() map[models.SourceType][]normalizer.Raw {
	return map[models.SourceType][]normalizer.Raw{
		models.SourceIncubation:  rawsWithStatuses(models.SourceIncubation, "pending", "approved", "under review"),
		models.SourceInvestment:  rawsWithStatuses(models.SourceInvestment, "Pending", "rejected"),
		models.SourceProgram:     rawsWithStatuses(models.SourceProgram, "approved"),
		models.SourceMentor:      nil,
		models.SourceGrant:       rawsWithStatuses(models.SourceGrant, "pending", "", "waitlisted", "approved"),
		models.SourcePartnership: rawsWithStatuses(models.SourcePartnership, "pending", "under_review"),
	}
}

// ==========================
// SourceStore
// ==========================

func TestSourceStore_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT "id", "status", .+ FROM "mentor_applications" ORDER BY created_at DESC`).
		WillReturnRows(descriptorRows(t, models.SourceMentor, "pending", "approved"))

	s := NewSourceStore(db, logger.NewTestLogger(t))
	raws, err := s.List(context.Background(), models.SourceMentor)

	require.NoError(t, err)
	require.Len(t, raws, 2)
	assert.Equal(t, "mentor-0", raws[0]["id"])
	assert.Equal(t, "approved", raws[1]["status"])
	assert.Contains(t, raws[0], "first_name")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceStore_List_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM "grant_applications"`).WillReturnError(errors.New("connection reset"))

	s := NewSourceStore(db, logger.NewTestLogger(t))
	_, err = s.List(context.Background(), models.SourceGrant)

	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceStore_List_UnknownType(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := NewSourceStore(db, logger.NewTestLogger(t))
	_, err = s.List(context.Background(), models.SourceType("startup"))
	assert.Equal(t, apperrors.ErrCodeInvalidArgument, apperrors.KindOf(err))
}

func TestSourceStore_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	notes := "strong traction"
	update := models.StatusUpdate{
		Status:     models.StatusApproved,
		ReviewedBy: "admin-1",
		ReviewedAt: baseTime,
		AdminNotes: &notes,
	}

	desc, _ := normalizer.Describe(models.SourceGrant)
	cols := append(desc.Columns(), "previous_status")
	values := make([]driver.Value, len(cols))
	for i, c := range cols {
		switch c {
		case "id":
			values[i] = "g-1"
		case "status":
			values[i] = "approved"
		case "reviewed_by":
			values[i] = "admin-1"
		case "reviewed_at":
			values[i] = baseTime
		case "admin_notes":
			values[i] = notes
		case "startup_name":
			values[i] = "Acme"
		case "previous_status":
			values[i] = []byte("rejected")
		}
	}

	mock.ExpectQuery(`UPDATE "grant_applications" SET status = \$2, reviewed_by = \$3, reviewed_at = \$4, admin_notes = \$5`).
		WithArgs("g-1", "approved", "admin-1", baseTime, notes).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(values...))

	s := NewSourceStore(db, logger.NewTestLogger(t))
	raw, previous, err := s.UpdateStatus(context.Background(), models.SourceGrant, "g-1", update)

	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, previous)
	assert.NotContains(t, raw, "previous_status")

	rec := normalizer.Normalize(raw, models.SourceGrant)
	assert.Equal(t, models.StatusApproved, rec.Status)
	assert.Equal(t, "Acme", rec.DisplayName)
	require.NotNil(t, rec.ReviewedBy)
	assert.Equal(t, "admin-1", *rec.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceStore_UpdateStatus_NilNotesWritesNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	desc, _ := normalizer.Describe(models.SourceProgram)
	mock.ExpectQuery(`UPDATE "program_applications"`).
		WithArgs("p-1", "under review", "admin-1", baseTime, nil).
		WillReturnRows(sqlmock.NewRows(append(desc.Columns(), "previous_status")))

	s := NewSourceStore(db, logger.NewTestLogger(t))
	_, _, err = s.UpdateStatus(context.Background(), models.SourceProgram, "p-1", models.StatusUpdate{
		Status:     models.StatusUnderReview,
		ReviewedBy: "admin-1",
		ReviewedAt: baseTime,
	})

	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceStore_UpdateStatus_StoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE "incubation_applications"`).WillReturnError(errors.New("deadlock detected"))

	s := NewSourceStore(db, logger.NewTestLogger(t))
	_, _, err = s.UpdateStatus(context.Background(), models.SourceIncubation, "i-1", models.StatusUpdate{
		Status: models.StatusPending, ReviewedBy: "admin-1", ReviewedAt: baseTime,
	})

	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSourceStore_UpdateStatus_MalformedIDIsNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE "grant_applications"`).
		WillReturnError(&pq.Error{Code: "22P02", Message: `invalid input syntax for type uuid: "not-a-uuid"`})

	s := NewSourceStore(db, logger.NewTestLogger(t))
	_, _, err = s.UpdateStatus(context.Background(), models.SourceGrant, "not-a-uuid", models.StatusUpdate{
		Status: models.StatusApproved, ReviewedBy: "admin-1", ReviewedAt: baseTime,
	})

	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Fetcher
// ==========================

func TestFetcher_FetchAll_JoinsSixSources(t *testing.T) {
	lister := &fakeLister{rows: sixSources()}
	f := NewFetcher(lister, time.Second, logger.NewTestLogger(t))

	records, err := f.FetchAll(context.Background(), FetchOptions{})
	require.NoError(t, err)

	assert.Len(t, records, 12)
	assert.Len(t, lister.calls, len(models.AllSourceTypes))

	stats := aggregator.Stats(records)
	assert.Equal(t, 12, stats.TotalApplications)
	assert.Equal(t, 5, stats.Pending)
	assert.Equal(t, 3, stats.Approved)
	assert.Equal(t, 2, stats.UnderReview)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 1, stats.Waitlisted)
	assert.Equal(t, 0, stats.ByType[models.SourceMentor])
	assert.Equal(t, 4, stats.ByType[models.SourceGrant])

	for i := 1; i < len(records); i++ {
		assert.False(t, records[i].CreatedAt.After(records[i-1].CreatedAt), "records must be newest first")
	}
}

func TestFetcher_FetchAll_StrictFailsOnAnySource(t *testing.T) {
	lister := &fakeLister{
		rows: sixSources(),
		errs: map[models.SourceType]error{models.SourceProgram: errors.New("relation does not exist")},
	}
	f := NewFetcher(lister, time.Second, logger.NewTestLogger(t))

	records, err := f.FetchAll(context.Background(), FetchOptions{})
	assert.Nil(t, records)
	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))
}

func TestFetcher_FetchAll_ResilientSkipsFailedSource(t *testing.T) {
	lister := &fakeLister{
		rows: sixSources(),
		errs: map[models.SourceType]error{models.SourceGrant: errors.New("timeout")},
	}
	f := NewFetcher(lister, time.Second, logger.NewTestLogger(t))

	records, err := f.FetchAll(context.Background(), FetchOptions{Resilient: true})
	require.NoError(t, err)
	assert.Len(t, records, 8)
	for _, r := range records {
		assert.NotEqual(t, models.SourceGrant, r.SourceType)
	}
}

func TestFetcher_FetchAll_WithSourceStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)

	counts := map[models.SourceType]int{
		models.SourceIncubation:  1,
		models.SourceInvestment:  0,
		models.SourceProgram:     2,
		models.SourceMentor:      1,
		models.SourceGrant:       0,
		models.SourcePartnership: 1,
	}
	for _, desc := range normalizer.Descriptors() {
		statuses := make([]string, counts[desc.Type])
		for i := range statuses {
			statuses[i] = "pending"
		}
		mock.ExpectQuery(fmt.Sprintf(`FROM "%s" ORDER BY`, desc.Table)).
			WillReturnRows(descriptorRows(t, desc.Type, statuses...))
	}

	f := NewFetcher(NewSourceStore(db, logger.NewTestLogger(t)), time.Second, logger.NewTestLogger(t))
	records, err := f.FetchAll(context.Background(), FetchOptions{})

	require.NoError(t, err)
	assert.Len(t, records, 5)
	for _, r := range records {
		assert.NotEmpty(t, r.DisplayName)
		assert.NotEmpty(t, r.ContactName)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// AnalyticsStore
// ==========================

func TestAnalyticsStore_CountCreatedBetween(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "startups" WHERE created_at >= \$1 AND created_at < \$2`).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(17))

	n, err := NewAnalyticsStore(db).CountCreatedBetween(context.Background(), TableStartups, from, to)
	require.NoError(t, err)
	assert.Equal(t, 17, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsStore_Categories(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT "stage" FROM "deals"`).
		WillReturnRows(sqlmock.NewRows([]string{"stage"}).AddRow("seed").AddRow(nil).AddRow("series a"))

	got, err := NewAnalyticsStore(db).Categories(context.Background(), TableDeals, "stage")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "seed", *got[0])
	assert.Nil(t, got[1])
	assert.Equal(t, "series a", *got[2])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAnalyticsStore_Errors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM "investors"`).WillReturnError(errors.New("boom"))
	mock.ExpectQuery(`FROM "startups"`).WillReturnError(errors.New("boom"))

	s := NewAnalyticsStore(db)
	_, err = s.CountCreatedBetween(context.Background(), TableInvestors, baseTime, baseTime)
	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))

	_, err = s.Categories(context.Background(), TableStartups, "sector")
	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}
