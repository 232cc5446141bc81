// internal/models/analytics.go
package models

// GrowthMetric compares the current calendar month with the previous one.
type GrowthMetric struct {
	MetricName          string  `json:"metricName"`
	CurrentPeriodCount  int     `json:"currentPeriodCount"`
	PreviousPeriodCount int     `json:"previousPeriodCount"`
	GrowthRatePercent   float64 `json:"growthRatePercent"`
}

type DistributionItem struct {
	Category   string `json:"category"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// Distribution is a top-N category breakdown. IsSampleData marks placeholder
// items returned when no categorized rows exist.
type Distribution struct {
	Items        []DistributionItem `json:"items"`
	Total        int                `json:"total"`
	IsSampleData bool               `json:"isSampleData"`
}

type MonthlyStat struct {
	Month        string `json:"month"`
	Startups     int    `json:"startups"`
	Applications int    `json:"applications"`
	Deals        int    `json:"deals"`
}

// Pagination describes one page of a filtered listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}
