package model

import (
	"sort"
)

// AnalyticsSnapshot is an aggregate view of enrichment activity.
type AnalyticsSnapshot struct {
	TotalContacts      int                `json:"totalContacts" yaml:"totalContacts"`
	TotalEnrichments   int                `json:"totalEnrichments" yaml:"totalEnrichments"`
	SuccessRate        float64            `json:"successRate" yaml:"successRate"`
	AverageConfidence  float64            `json:"averageConfidence" yaml:"averageConfidence"`
	PlatformBreakdown  map[string]int     `json:"platformBreakdown" yaml:"platformBreakdown"`
	DailyEnrichments   []DailyPoint       `json:"dailyEnrichments" yaml:"dailyEnrichments"`
	PerformanceMetrics PerformanceMetrics `json:"performanceMetrics" yaml:"performanceMetrics"`
	CustomMetrics      map[string]float64 `json:"customMetrics,omitempty" yaml:"customMetrics"`
}

// DailyPoint is the enrichment count for one day (YYYY-MM-DD).
type DailyPoint struct {
	Date  string `json:"date" yaml:"date"`
	Count int    `json:"count" yaml:"count"`
}

// PerformanceMetrics holds pipeline health figures.
type PerformanceMetrics struct {
	AverageProcessingTime float64 `json:"averageProcessingTime" yaml:"averageProcessingTime"`
	CacheHitRate          float64 `json:"cacheHitRate" yaml:"cacheHitRate"`
	ErrorRate             float64 `json:"errorRate" yaml:"errorRate"`
}

// TopPlatforms derives the platform ranking from PlatformBreakdown.
// Percentages are shares of the breakdown total, not TotalContacts, so a
// non-empty ranking always sums to 100 and an empty breakdown yields no rows
// whatever TotalContacts says.
func (a AnalyticsSnapshot) TopPlatforms() []PlatformShare {
	total := 0
	for _, n := range a.PlatformBreakdown {
		if n > 0 {
			total += n
		}
	}
	return rankPlatforms(a.PlatformBreakdown, total)
}

// SortedDaily returns a copy of the daily points ordered by date.
func (a AnalyticsSnapshot) SortedDaily() []DailyPoint {
	out := make([]DailyPoint, len(a.DailyEnrichments))
	copy(out, a.DailyEnrichments)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// CustomMetricNames returns the custom metric keys in sorted order.
func (a AnalyticsSnapshot) CustomMetricNames() []string {
	names := make([]string, 0, len(a.CustomMetrics))
	for k := range a.CustomMetrics {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// rankPlatforms orders counts by count desc, then name. Non-positive counts
// and a non-positive denominator yield no rows.
func rankPlatforms(counts map[string]int, denominator int) []PlatformShare {
	if denominator <= 0 {
		return nil
	}
	out := make([]PlatformShare, 0, len(counts))
	for platform, n := range counts {
		if n <= 0 {
			continue
		}
		out = append(out, PlatformShare{
			Platform:   platform,
			Count:      n,
			Percentage: float64(n) / float64(denominator) * 100,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Platform < out[j].Platform
	})
	return out
}
