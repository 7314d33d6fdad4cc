package quality

import "github.com/joescharf/cq/internal/models"

// Decide applies the approval rule set in priority order, first match wins:
//
//  1. any critical finding rejects
//  2. security score below 70 rejects
//  3. more than 3 high/critical findings needs revision
//  4. maintainability below 60 needs revision
//  5. security >= 80, maintainability >= 70, performance >= 75 approves
//  6. otherwise needs revision
//
// Rules 1 and 2 are hard vetoes checked before the approval rule, so a
// high-maintainability artifact with one critical finding is still rejected.
func Decide(m *models.CodeMetrics, external []models.ReviewFinding, issues []models.SecurityIssue) models.ApprovalStatus {
	critical := 0
	severe := 0
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			critical++
			severe++
		case models.SeverityHigh:
			severe++
		}
	}
	for _, f := range external {
		switch f.Severity {
		case models.SeverityCritical:
			critical++
			severe++
		case models.SeverityHigh:
			severe++
		}
	}

	switch {
	case critical > 0:
		return models.StatusRejected
	case m.SecurityScore < 70:
		return models.StatusRejected
	case severe > 3:
		return models.StatusNeedsRevision
	case m.MaintainabilityIndex < 60:
		return models.StatusNeedsRevision
	case m.SecurityScore >= 80 && m.MaintainabilityIndex >= 70 && m.PerformanceScore >= 75:
		return models.StatusApproved
	default:
		return models.StatusNeedsRevision
	}
}
