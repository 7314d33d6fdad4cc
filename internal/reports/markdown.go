package reports

import (
	"fmt"
	"sort"
	"strings"

	"github.com/joescharf/cq/internal/models"
)

// RenderReviewSummary formats a review summary as Markdown. Pure and
// stateless; it consumes the summary exactly as persisted.
func RenderReviewSummary(s *models.ReviewSummary) string {
	var sb strings.Builder

	sb.WriteString("# Code Review Report\n\n")
	fmt.Fprintf(&sb, "- Date: %s\n", s.Timestamp.Format("2006-01-02 15:04:05 MST"))
	if s.CommitID != "" {
		fmt.Fprintf(&sb, "- Commit: %s\n", s.CommitID)
	}
	if s.Branch != "" {
		branch := s.Branch
		if s.DirtyWorkTree {
			branch += " (dirty)"
		}
		fmt.Fprintf(&sb, "- Branch: %s\n", branch)
	}
	fmt.Fprintf(&sb, "- Files reviewed: %s\n", strings.Join(s.FilesReviewed, ", "))
	fmt.Fprintf(&sb, "- Overall score: %.1f/100\n", s.OverallScore)
	fmt.Fprintf(&sb, "- Verdict: **%s**\n", s.ApprovalStatus)
	fmt.Fprintf(&sb, "- Total findings: %d\n", s.TotalFindings)

	if m := s.Metrics; m != nil {
		sb.WriteString("\n## Metrics\n\n")
		sb.WriteString("| Metric | Value |\n|--------|-------|\n")
		fmt.Fprintf(&sb, "| Lines of code | %d |\n", m.LinesOfCode)
		fmt.Fprintf(&sb, "| Comment lines | %d |\n", m.CommentLines)
		fmt.Fprintf(&sb, "| Total complexity | %d |\n", m.TotalComplexity())
		fmt.Fprintf(&sb, "| Maintainability | %.1f |\n", m.MaintainabilityIndex)
		fmt.Fprintf(&sb, "| Security | %.1f |\n", m.SecurityScore)
		fmt.Fprintf(&sb, "| Performance | %.1f |\n", m.PerformanceScore)
	}

	if len(s.SecurityIssues) > 0 {
		sb.WriteString("\n## Security Issues\n\n")
		for _, issue := range s.SecurityIssues {
			fmt.Fprintf(&sb, "- [%s] %s", strings.ToUpper(string(issue.Severity)), issue.Description)
			if issue.CWEID != "" {
				fmt.Fprintf(&sb, " (%s)", issue.CWEID)
			}
			if issue.Location != "" {
				fmt.Fprintf(&sb, " at %s", issue.Location)
			}
			sb.WriteString("\n")
			if issue.Recommendation != "" {
				fmt.Fprintf(&sb, "  - Recommendation: %s\n", issue.Recommendation)
			}
		}
	}

	if len(s.PerformanceMetrics) > 0 {
		sb.WriteString("\n## Performance Findings\n\n")
		for _, pm := range s.PerformanceMetrics {
			fmt.Fprintf(&sb, "- [%s] %s: %.0f (threshold %.0f)", strings.ToUpper(string(pm.Status)), pm.Unit, pm.Value, pm.Threshold)
			if pm.Location != "" {
				fmt.Fprintf(&sb, " at %s", pm.Location)
			}
			sb.WriteString("\n")
		}
	}

	if len(s.StyleViolations) > 0 {
		sb.WriteString("\n## Style Violations\n\n")
		for _, f := range s.StyleViolations {
			fmt.Fprintf(&sb, "- [%s] %s", strings.ToUpper(string(f.Severity)), f.Description)
			if f.FilePath != "" {
				fmt.Fprintf(&sb, " (%s:%d)", f.FilePath, f.LineNumber)
			}
			sb.WriteString("\n")
		}
	}

	if len(s.Recommendations) > 0 {
		sb.WriteString("\n## Recommendations\n\n")
		for _, r := range s.Recommendations {
			fmt.Fprintf(&sb, "- %s\n", r)
		}
	}

	return sb.String()
}

// RenderCheckpoint formats a checkpoint validation as Markdown.
func RenderCheckpoint(cp *models.Checkpoint) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "# Checkpoint %s\n\n", cp.ID)
	fmt.Fprintf(&sb, "- Stage: %s\n", cp.Stage)
	fmt.Fprintf(&sb, "- Status: **%s**\n", cp.Status)
	fmt.Fprintf(&sb, "- Created: %s\n", cp.Timestamp.Format("2006-01-02 15:04:05 MST"))

	if len(cp.ApprovedBy) > 0 {
		roles := make([]string, len(cp.ApprovedBy))
		for i, r := range cp.ApprovedBy {
			roles[i] = string(r)
		}
		fmt.Fprintf(&sb, "- Approved by: %s\n", strings.Join(roles, ", "))
	}

	if vr := cp.ValidationResult; vr != nil {
		sb.WriteString("\n## Primary Validation\n\n")
		fmt.Fprintf(&sb, "- Approved: %t\n", vr.IsApproved)
		for _, issue := range vr.Issues {
			fmt.Fprintf(&sb, "- Issue: %s\n", issue)
		}
		for _, s := range vr.Suggestions {
			fmt.Fprintf(&sb, "- Suggestion: %s\n", s)
		}
	}

	if len(cp.CrossValidationResults) > 0 {
		sb.WriteString("\n## Cross-Validation\n")
		for _, entry := range sortedCrossValidation(cp.CrossValidationResults) {
			fmt.Fprintf(&sb, "\n### %s\n\n", entry.role)
			if len(entry.feedback.Concerns) == 0 {
				sb.WriteString("No concerns.\n")
			}
			for _, c := range entry.feedback.Concerns {
				fmt.Fprintf(&sb, "- Concern: %s\n", c)
			}
			for _, s := range entry.feedback.Suggestions {
				fmt.Fprintf(&sb, "- Suggestion: %s\n", s)
			}
		}
	}

	if len(cp.BlockingIssues) > 0 {
		sb.WriteString("\n## Blocking Issues\n\n")
		for _, issue := range cp.BlockingIssues {
			fmt.Fprintf(&sb, "- %s\n", issue)
		}
	}

	return sb.String()
}

type crossEntry struct {
	role     models.Role
	feedback models.RoleFeedback
}

func sortedCrossValidation(m map[models.Role]models.RoleFeedback) []crossEntry {
	entries := make([]crossEntry, 0, len(m))
	for role, feedback := range m {
		entries = append(entries, crossEntry{role, feedback})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].role < entries[j].role })
	return entries
}
