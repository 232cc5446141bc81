// Package aggregator computes counts, filtered pages, growth rates and
// category distributions over normalized application records. Nothing here
// performs I/O or returns an error.
package aggregator

import (
	"math"
	"sort"
	"strings"

	"accelerator-admin/internal/models"
)

// FilterAll disables a filter when used as its value.
const FilterAll = "all"

const (
	DefaultLimit = 10
	MaxLimit     = 100
	TopN         = 10
)

// Criteria selects records. Empty or "all" fields do not filter.
type Criteria struct {
	Search     string
	Status     string
	SourceType string
}

// CountByStatus tallies records per status.
func CountByStatus(records []models.ApplicationRecord) map[models.Status]int {
	counts := make(map[models.Status]int)
	for _, r := range records {
		counts[r.Status]++
	}
	return counts
}

// CountByType tallies records per source type.
func CountByType(records []models.ApplicationRecord) map[models.SourceType]int {
	counts := make(map[models.SourceType]int, len(models.AllSourceTypes))
	for _, st := range models.AllSourceTypes {
		counts[st] = 0
	}
	for _, r := range records {
		counts[r.SourceType]++
	}
	return counts
}

// Stats summarizes records for the application-stats endpoint.
func Stats(records []models.ApplicationRecord) models.ApplicationStats {
	byStatus := CountByStatus(records)
	return models.ApplicationStats{
		TotalApplications: len(records),
		Pending:           byStatus[models.StatusPending],
		Approved:          byStatus[models.StatusApproved],
		UnderReview:       byStatus[models.StatusUnderReview],
		Rejected:          byStatus[models.StatusRejected],
		Waitlisted:        byStatus[models.StatusWaitlisted],
		ByType:            CountByType(records),
	}
}

func isAll(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, FilterAll)
}

// Filter returns the records matching every set criterion, preserving order.
func Filter(records []models.ApplicationRecord, c Criteria) []models.ApplicationRecord {
	search := strings.ToLower(strings.TrimSpace(c.Search))

	var wantStatus string
	if !isAll(c.Status) {
		if st, ok := models.ParseStatus(c.Status); ok {
			wantStatus = string(st)
		} else {
			wantStatus = strings.ToLower(strings.TrimSpace(c.Status))
		}
	}

	out := make([]models.ApplicationRecord, 0, len(records))
	for _, r := range records {
		if search != "" &&
			!strings.Contains(strings.ToLower(r.DisplayName), search) &&
			!strings.Contains(strings.ToLower(r.ContactName), search) {
			continue
		}
		if wantStatus != "" && !strings.EqualFold(string(r.Status), wantStatus) {
			continue
		}
		if !isAll(c.SourceType) && string(r.SourceType) != strings.TrimSpace(c.SourceType) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// ClampPage normalizes page and limit the way Paginate does.
func ClampPage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return page, limit
}

// Paginate returns the 1-based page of records. A page past the end yields an
// empty, non-nil slice.
func Paginate(records []models.ApplicationRecord, page, limit int) ([]models.ApplicationRecord, models.Pagination) {
	page, limit = ClampPage(page, limit)
	total := len(records)

	p := models.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}

	// Checked before multiplying: (page-1)*limit overflows for huge pages.
	if page > p.TotalPages {
		return []models.ApplicationRecord{}, p
	}
	start := (page - 1) * limit
	end := start + limit
	if end > total {
		end = total
	}

	pageItems := make([]models.ApplicationRecord, end-start)
	copy(pageItems, records[start:end])
	return pageItems, p
}

// SortNewestFirst orders records by creation time descending, breaking ties
// by source type and id so pages are stable.
func SortNewestFirst(records []models.ApplicationRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.SourceType != b.SourceType {
			return a.SourceType < b.SourceType
		}
		return a.ID < b.ID
	})
}

// GrowthRate is the month-over-month change in percent, rounded to one decimal.
func GrowthRate(current, previous int) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	rate := float64(current-previous) / float64(previous) * 100
	return math.Round(rate*10) / 10
}

func NewGrowthMetric(name string, current, previous int) models.GrowthMetric {
	return models.GrowthMetric{
		MetricName:          name,
		CurrentPeriodCount:  current,
		PreviousPeriodCount: previous,
		GrowthRatePercent:   GrowthRate(current, previous),
	}
}

// Distribute counts category values. Nil and blank values are excluded from
// both counts and the percentage base. With no categorized values the
// fallback is returned flagged as sample data. Percentages use the largest
// remainder so they sum to 100; each may differ from round(count/total*100)
// by one point.
func Distribute(categories []*string, fallback []models.DistributionItem) models.Distribution {
	counts := make(map[string]int)
	total := 0
	for _, c := range categories {
		if c == nil {
			continue
		}
		v := strings.TrimSpace(*c)
		if v == "" {
			continue
		}
		counts[v]++
		total++
	}

	if total == 0 {
		if len(fallback) == 0 {
			return models.Distribution{Items: []models.DistributionItem{}}
		}
		items := make([]models.DistributionItem, len(fallback))
		copy(items, fallback)
		sum := 0
		for _, it := range items {
			sum += it.Count
		}
		return models.Distribution{Items: items, Total: sum, IsSampleData: true}
	}

	items := make([]models.DistributionItem, 0, len(counts))
	for category, count := range counts {
		items = append(items, models.DistributionItem{Category: category, Count: count})
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Count != items[j].Count {
			return items[i].Count > items[j].Count
		}
		return items[i].Category < items[j].Category
	})
	apportion(items, total)
	if len(items) > TopN {
		items = items[:TopN]
	}

	return models.Distribution{Items: items, Total: total}
}

// apportion assigns whole percentages with the largest-remainder method so
// that the full list sums to exactly 100. Each value stays within one point
// of count/total*100 rounded.
func apportion(items []models.DistributionItem, total int) {
	type share struct {
		idx  int
		frac float64
	}
	shares := make([]share, len(items))
	assigned := 0
	for i := range items {
		exact := float64(items[i].Count) / float64(total) * 100
		floor := math.Floor(exact)
		items[i].Percentage = int(floor)
		assigned += int(floor)
		shares[i] = share{idx: i, frac: exact - floor}
	}

	sort.SliceStable(shares, func(i, j int) bool {
		return shares[i].frac > shares[j].frac
	})
	for k := 0; k < 100-assigned && k < len(shares); k++ {
		items[shares[k].idx].Percentage++
	}
}
