// Package analytics serves the admin dashboard reads: application stats,
// listings, growth metrics, distributions and the monthly report.
package analytics

import (
	"context"
	"time"

	"accelerator-admin/internal/cache"
	"accelerator-admin/internal/common/logger"
	"accelerator-admin/internal/engine/aggregator"
	"accelerator-admin/internal/engine/normalizer"
	"accelerator-admin/internal/models"
	"accelerator-admin/internal/store"
)

// Metric names reported by GrowthMetrics, in response order.
const (
	MetricStartups     = "startups"
	MetricInvestors    = "investors"
	MetricDeals        = "deals"
	MetricApplications = "applications"
)

// SampleSectors and SampleStages are returned, flagged as sample data, when
// no categorized rows exist and the fallback is enabled.
var (
	SampleSectors = []models.DistributionItem{
		{Category: "Fintech", Count: 25, Percentage: 25},
		{Category: "Healthtech", Count: 20, Percentage: 20},
		{Category: "Edtech", Count: 15, Percentage: 15},
		{Category: "AI/ML", Count: 15, Percentage: 15},
		{Category: "E-commerce", Count: 10, Percentage: 10},
		{Category: "Cleantech", Count: 10, Percentage: 10},
		{Category: "Other", Count: 5, Percentage: 5},
	}
	SampleStages = []models.DistributionItem{
		{Category: "Pre-seed", Count: 30, Percentage: 30},
		{Category: "Seed", Count: 35, Percentage: 35},
		{Category: "Series A", Count: 20, Percentage: 20},
		{Category: "Series B", Count: 10, Percentage: 10},
		{Category: "Series C+", Count: 5, Percentage: 5},
	}
)

// Counter runs the count and category queries.
type Counter interface {
	CountCreatedBetween(ctx context.Context, table string, from, to time.Time) (int, error)
	Categories(ctx context.Context, table, column string) ([]*string, error)
}

// RecordFetcher returns every normalized application record.
type RecordFetcher interface {
	FetchAll(ctx context.Context, opts store.FetchOptions) ([]models.ApplicationRecord, error)
}

type Config struct {
	SampleFallback bool
	Resilient      bool
	CacheTTL       time.Duration
	MonthlyWindow  int
	// Now defaults to time.Now.
	Now func() time.Time
}

type Service struct {
	config  Config
	counter Counter
	fetcher RecordFetcher
	cache   *cache.Cache
	logger  logger.Logger
}

func NewService(config Config, counter Counter, fetcher RecordFetcher, c *cache.Cache, log logger.Logger) *Service {
	if config.Now == nil {
		config.Now = time.Now
	}
	if config.MonthlyWindow < 1 {
		config.MonthlyWindow = 6
	}
	return &Service{
		config:  config,
		counter: counter,
		fetcher: fetcher,
		cache:   c,
		logger:  log.WithFields(map[string]interface{}{"component": "analytics"}),
	}
}

// Listing is one filtered page of applications.
type Listing struct {
	Items      []models.ApplicationRecord
	Pagination models.Pagination
}

// Applications filters every record by c and returns the requested page.
func (s *Service) Applications(ctx context.Context, c aggregator.Criteria, page, limit int) (*Listing, error) {
	records, err := s.fetcher.FetchAll(ctx, store.FetchOptions{Resilient: s.config.Resilient})
	if err != nil {
		return nil, err
	}
	items, p := aggregator.Paginate(aggregator.Filter(records, c), page, limit)
	return &Listing{Items: items, Pagination: p}, nil
}

func (s *Service) ApplicationStats(ctx context.Context) (models.ApplicationStats, error) {
	return cache.Remember(ctx, s.cache, cache.KeyApplicationStats, s.config.CacheTTL, func(ctx context.Context) (models.ApplicationStats, error) {
		records, err := s.fetcher.FetchAll(ctx, store.FetchOptions{Resilient: s.config.Resilient})
		if err != nil {
			return models.ApplicationStats{}, err
		}
		return aggregator.Stats(records), nil
	})
}

// GrowthMetrics compares the current calendar month with the previous one.
func (s *Service) GrowthMetrics(ctx context.Context) ([]models.GrowthMetric, error) {
	return cache.Remember(ctx, s.cache, cache.KeyGrowthMetrics, s.config.CacheTTL, func(ctx context.Context) ([]models.GrowthMetric, error) {
		current, previous := aggregator.MonthBoundaries(s.config.Now())

		metrics := []struct {
			name   string
			tables []string
		}{
			{MetricStartups, []string{store.TableStartups}},
			{MetricInvestors, []string{store.TableInvestors}},
			{MetricDeals, []string{store.TableDeals}},
			{MetricApplications, applicationTables()},
		}

		out := make([]models.GrowthMetric, 0, len(metrics))
		for _, m := range metrics {
			cur, err := s.countAll(ctx, m.tables, current)
			if err != nil {
				return nil, err
			}
			prev, err := s.countAll(ctx, m.tables, previous)
			if err != nil {
				return nil, err
			}
			out = append(out, aggregator.NewGrowthMetric(m.name, cur, prev))
		}
		return out, nil
	})
}

func (s *Service) SectorDistribution(ctx context.Context) (models.Distribution, error) {
	return s.distribution(ctx, cache.KeySectorDistribution, store.TableStartups, "sector", SampleSectors)
}

func (s *Service) InvestmentStages(ctx context.Context) (models.Distribution, error) {
	return s.distribution(ctx, cache.KeyInvestmentStages, store.TableDeals, "stage", SampleStages)
}

// MonthlyStats returns new startups, applications and deals per calendar
// month, oldest first.
func (s *Service) MonthlyStats(ctx context.Context) ([]models.MonthlyStat, error) {
	return cache.Remember(ctx, s.cache, cache.KeyMonthlyStats, s.config.CacheTTL, func(ctx context.Context) ([]models.MonthlyStat, error) {
		windows := aggregator.MonthWindows(s.config.Now(), s.config.MonthlyWindow)
		out := make([]models.MonthlyStat, 0, len(windows))
		for _, w := range windows {
			startups, err := s.countAll(ctx, []string{store.TableStartups}, w)
			if err != nil {
				return nil, err
			}
			applications, err := s.countAll(ctx, applicationTables(), w)
			if err != nil {
				return nil, err
			}
			deals, err := s.countAll(ctx, []string{store.TableDeals}, w)
			if err != nil {
				return nil, err
			}
			out = append(out, models.MonthlyStat{
				Month:        w.Label,
				Startups:     startups,
				Applications: applications,
				Deals:        deals,
			})
		}
		return out, nil
	})
}

func (s *Service) distribution(ctx context.Context, key, table, column string, sample []models.DistributionItem) (models.Distribution, error) {
	return cache.Remember(ctx, s.cache, key, s.config.CacheTTL, func(ctx context.Context) (models.Distribution, error) {
		categories, err := s.counter.Categories(ctx, table, column)
		if err != nil {
			return models.Distribution{}, err
		}
		var fallback []models.DistributionItem
		if s.config.SampleFallback {
			fallback = sample
		}
		d := aggregator.Distribute(categories, fallback)
		if d.IsSampleData {
			s.logger.Warn("no categorized rows, returning sample data", map[string]interface{}{
				"table":  table,
				"column": column,
			})
		}
		return d, nil
	})
}

func (s *Service) countAll(ctx context.Context, tables []string, w aggregator.Window) (int, error) {
	total := 0
	for _, t := range tables {
		n, err := s.counter.CountCreatedBetween(ctx, t, w.From, w.To)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func applicationTables() []string {
	descs := normalizer.Descriptors()
	out := make([]string, len(descs))
	for i, d := range descs {
		out[i] = d.Table
	}
	return out
}
