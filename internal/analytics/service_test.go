package analytics

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accelerator-admin/internal/cache"
	apperrors "accelerator-admin/internal/common/errors"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/engine/aggregator"
	"accelerator-admin/internal/models"
	"accelerator-admin/internal/store"
)

// ==========================
// Fakes
// ==========================

var now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

type countKey struct {
	table string
	from  time.Time
}

type fakeCounter struct {
	counts     map[countKey]int
	categories map[string][]*string
	err        error
}

func (f *fakeCounter) CountCreatedBetween(ctx context.Context, table string, from, to time.Time) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[countKey{table, from}], nil
}

func (f *fakeCounter) Categories(ctx context.Context, table, column string) ([]*string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.categories[table+"."+column], nil
}

type fakeFetcher struct {
	mu      sync.Mutex
	records []models.ApplicationRecord
	err     error
	calls   int
	opts    store.FetchOptions
}

func (f *fakeFetcher) FetchAll(ctx context.Context, opts store.FetchOptions) ([]models.ApplicationRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.opts = opts
	return f.records, f.err
}

func newService(t *testing.T, cfg Config, counter Counter, fetcher RecordFetcher, c *cache.Cache) *Service {
	cfg.Now = func() time.Time { return now }
	return NewService(cfg, counter, fetcher, c, logger.NewTestLogger(t))
}

func strPtr(s string) *string { return &s }

var (
	janStart = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	decStart = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
)

// ==========================
// Growth metrics
// ==========================

func TestGrowthMetrics(t *testing.T) {
	counter := &fakeCounter{counts: map[countKey]int{
		{store.TableStartups, janStart}:        15,
		{store.TableStartups, decStart}:        10,
		{store.TableInvestors, janStart}:       3,
		{store.TableInvestors, decStart}:       0,
		{store.TableDeals, janStart}:           0,
		{store.TableDeals, decStart}:           0,
		{"incubation_applications", janStart}:  4,
		{"grant_applications", janStart}:       2,
		{"partnership_applications", decStart}: 3,
		{"mentor_applications", decStart}:      1,
	}}

	s := newService(t, Config{}, counter, &fakeFetcher{}, nil)
	got, err := s.GrowthMetrics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []models.GrowthMetric{
		{MetricName: MetricStartups, CurrentPeriodCount: 15, PreviousPeriodCount: 10, GrowthRatePercent: 50},
		{MetricName: MetricInvestors, CurrentPeriodCount: 3, PreviousPeriodCount: 0, GrowthRatePercent: 100},
		{MetricName: MetricDeals, CurrentPeriodCount: 0, PreviousPeriodCount: 0, GrowthRatePercent: 0},
		{MetricName: MetricApplications, CurrentPeriodCount: 6, PreviousPeriodCount: 4, GrowthRatePercent: 50},
	}, got)
}

func TestGrowthMetrics_Error(t *testing.T) {
	counter := &fakeCounter{err: apperrors.NewUpstreamFailureError("startups", errors.New("down"))}
	s := newService(t, Config{}, counter, &fakeFetcher{}, nil)

	_, err := s.GrowthMetrics(context.Background())
	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))
}

// ==========================
// Distributions
// ==========================

func TestSectorDistribution(t *testing.T) {
	counter := &fakeCounter{categories: map[string][]*string{
		"startups.sector": {strPtr("Fintech"), strPtr("Fintech"), nil, strPtr("Healthtech")},
	}}
	s := newService(t, Config{SampleFallback: true}, counter, &fakeFetcher{}, nil)

	d, err := s.SectorDistribution(context.Background())
	require.NoError(t, err)
	assert.False(t, d.IsSampleData)
	assert.Equal(t, 3, d.Total)
	require.Len(t, d.Items, 2)
	assert.Equal(t, models.DistributionItem{Category: "Fintech", Count: 2, Percentage: 67}, d.Items[0])
}

func TestInvestmentStages_SampleFallback(t *testing.T) {
	counter := &fakeCounter{categories: map[string][]*string{
		"deals.stage": {nil, nil},
	}}

	s := newService(t, Config{SampleFallback: true}, counter, &fakeFetcher{}, nil)
	d, err := s.InvestmentStages(context.Background())
	require.NoError(t, err)
	assert.True(t, d.IsSampleData)
	assert.Equal(t, SampleStages, d.Items)

	s = newService(t, Config{SampleFallback: false}, counter, &fakeFetcher{}, nil)
	d, err = s.InvestmentStages(context.Background())
	require.NoError(t, err)
	assert.False(t, d.IsSampleData)
	assert.Empty(t, d.Items)
	assert.Equal(t, 0, d.Total)
}

func TestSampleDataSumsToHundred(t *testing.T) {
	for _, sample := range [][]models.DistributionItem{SampleSectors, SampleStages} {
		sum := 0
		for _, it := range sample {
			sum += it.Percentage
		}
		assert.Equal(t, 100, sum)
	}
}

// ==========================
// Monthly stats
// ==========================

func TestMonthlyStats(t *testing.T) {
	nov := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	counter := &fakeCounter{counts: map[countKey]int{
		{store.TableStartups, janStart}:  2,
		{store.TableDeals, decStart}:     5,
		{"program_applications", nov}:    7,
		{"investment_applications", nov}: 1,
	}}

	s := newService(t, Config{MonthlyWindow: 6}, counter, &fakeFetcher{}, nil)
	got, err := s.MonthlyStats(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 6)
	assert.Equal(t, "Aug 2025", got[0].Month)
	assert.Equal(t, models.MonthlyStat{Month: "Nov 2025", Applications: 8}, got[3])
	assert.Equal(t, models.MonthlyStat{Month: "Dec 2025", Deals: 5}, got[4])
	assert.Equal(t, models.MonthlyStat{Month: "Jan 2026", Startups: 2}, got[5])
}

// ==========================
// Applications & stats
// ==========================

func TestApplications_FiltersAndPaginates(t *testing.T) {
	fetcher := &fakeFetcher{records: []models.ApplicationRecord{
		{ID: "1", SourceType: models.SourceGrant, Status: models.StatusPending, DisplayName: "Acme"},
		{ID: "2", SourceType: models.SourceGrant, Status: models.StatusApproved, DisplayName: "Acme Two"},
		{ID: "3", SourceType: models.SourceMentor, Status: models.StatusPending, DisplayName: "Grace"},
	}}
	s := newService(t, Config{Resilient: true}, &fakeCounter{}, fetcher, nil)

	got, err := s.Applications(context.Background(), aggregator.Criteria{Search: "acme"}, 1, 1)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "1", got.Items[0].ID)
	assert.Equal(t, models.Pagination{Page: 1, Limit: 1, Total: 2, TotalPages: 2}, got.Pagination)
	assert.True(t, fetcher.opts.Resilient)
}

func TestApplicationStats_Cached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fetcher := &fakeFetcher{records: []models.ApplicationRecord{
		{ID: "1", SourceType: models.SourceGrant, Status: models.StatusPending},
		{ID: "2", SourceType: models.SourceProgram, Status: models.StatusApproved},
	}}
	c := cache.New(client, "admin:", logger.NewTestLogger(t))
	s := newService(t, Config{CacheTTL: time.Minute}, &fakeCounter{}, fetcher, c)

	first, err := s.ApplicationStats(context.Background())
	require.NoError(t, err)
	second, err := s.ApplicationStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, first.TotalApplications)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, fetcher.calls)
	assert.True(t, mr.Exists("admin:"+cache.KeyApplicationStats))

	require.NoError(t, c.Invalidate(context.Background(), cache.KeyApplicationStats))
	_, err = s.ApplicationStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)
}

func TestApplicationStats_FetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: apperrors.NewUpstreamFailureError("application sources", errors.New("down"))}
	s := newService(t, Config{}, &fakeCounter{}, fetcher, nil)

	_, err := s.ApplicationStats(context.Background())
	assert.Equal(t, apperrors.ErrCodeUpstreamFailure, apperrors.KindOf(err))
}
