// Package quality merges scanner output with advisory-service findings into
// a ReviewSummary and renders the approval verdict.
package quality

import (
	"fmt"
	"time"

	"github.com/joescharf/cq/internal/analysis"
	"github.com/joescharf/cq/internal/models"
)

// Overall-score weights for the three sub-scores.
const (
	weightMaintainability = 0.3
	weightSecurity        = 0.4
	weightPerformance     = 0.3
)

// Per-severity deductions applied for each externally supplied finding.
var findingDeductions = map[models.Severity]float64{
	models.SeverityCritical: 20,
	models.SeverityHigh:     10,
	models.SeverityMedium:   5,
	models.SeverityLow:      2,
}

// timeNow is replaceable in tests so summaries are reproducible.
var timeNow = time.Now

// Aggregate merges one analysis result with advisory-service findings into
// an immutable ReviewSummary, computing the overall score and verdict.
func Aggregate(result *analysis.Result, external []models.ReviewFinding, files []string, commitID string) *models.ReviewSummary {
	m := result.Metrics

	overall := m.MaintainabilityIndex*weightMaintainability +
		m.SecurityScore*weightSecurity +
		m.PerformanceScore*weightPerformance
	for _, f := range external {
		overall -= findingDeductions[f.Severity]
	}
	overall = clamp(overall, 0, 100)

	summary := &models.ReviewSummary{
		Timestamp:          timeNow().UTC(),
		CommitID:           commitID,
		FilesReviewed:      files,
		SecurityIssues:     result.SecurityIssues,
		PerformanceMetrics: result.PerformanceIssues,
		OverallScore:       overall,
		Metrics:            m,
	}

	// Bucket external findings by category; security and performance
	// findings fold into the scanner buckets, style keeps its own.
	for _, f := range external {
		switch f.Category {
		case models.CategorySecurity:
			summary.SecurityIssues = append(summary.SecurityIssues, models.SecurityIssue{
				Severity:       f.Severity,
				Category:       string(f.Category),
				Description:    f.Description,
				Location:       findingLocation(f),
				Recommendation: f.Suggestion,
			})
		case models.CategoryPerformance:
			summary.PerformanceMetrics = append(summary.PerformanceMetrics, models.PerformanceMetric{
				Category:       string(f.Category),
				Unit:           f.Type,
				Status:         severityToStatus(f.Severity),
				Recommendation: f.Suggestion,
				Location:       findingLocation(f),
			})
		default:
			summary.StyleViolations = append(summary.StyleViolations, f)
		}
		if f.Suggestion != "" {
			summary.Recommendations = append(summary.Recommendations, f.Suggestion)
		}
	}

	summary.TotalFindings = len(summary.SecurityIssues) + len(summary.PerformanceMetrics) + len(summary.StyleViolations)
	summary.ApprovalStatus = Decide(m, external, result.SecurityIssues)

	return summary
}

func findingLocation(f models.ReviewFinding) string {
	if f.FilePath == "" {
		return ""
	}
	if f.LineNumber > 0 {
		return fmt.Sprintf("%s:%d", f.FilePath, f.LineNumber)
	}
	return f.FilePath
}

func severityToStatus(s models.Severity) models.MetricStatus {
	switch s {
	case models.SeverityCritical:
		return models.MetricStatusCritical
	case models.SeverityHigh:
		return models.MetricStatusError
	case models.SeverityMedium:
		return models.MetricStatusWarning
	}
	return models.MetricStatusInfo
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
