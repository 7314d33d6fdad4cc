package models

import "time"

// ApprovalStatus is the terminal verdict of a review pass.
type ApprovalStatus string

const (
	StatusApproved      ApprovalStatus = "approved"
	StatusNeedsRevision ApprovalStatus = "needs_revision"
	StatusRejected      ApprovalStatus = "rejected"
)

// ReviewSummary aggregates one full review pass over an artifact. It is
// immutable once emitted and persisted to the report store as-is.
type ReviewSummary struct {
	Timestamp          time.Time           `json:"timestamp"`
	CommitID           string              `json:"commit_id,omitempty"`
	Branch             string              `json:"branch,omitempty"`
	DirtyWorkTree      bool                `json:"dirty_work_tree,omitempty"`
	FilesReviewed      []string            `json:"files_reviewed"`
	TotalFindings      int                 `json:"total_findings"`
	SecurityIssues     []SecurityIssue     `json:"security_issues"`
	PerformanceMetrics []PerformanceMetric `json:"performance_metrics"`
	StyleViolations    []ReviewFinding     `json:"style_violations"`
	OverallScore       float64             `json:"overall_score"`
	Recommendations    []string            `json:"recommendations"`
	ApprovalStatus     ApprovalStatus      `json:"approval_status"`
	ReviewerComments   []string            `json:"reviewer_comments,omitempty"`
	Metrics            *CodeMetrics        `json:"metrics,omitempty"`
}
