package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/joescharf/cq/internal/models"
)

func metrics(sec, maint, perf float64) *models.CodeMetrics {
	return &models.CodeMetrics{
		SecurityScore:        sec,
		MaintainabilityIndex: maint,
		PerformanceScore:     perf,
	}
}

func TestDecide_RuleOrder(t *testing.T) {
	tests := []struct {
		name     string
		metrics  *models.CodeMetrics
		external []models.ReviewFinding
		issues   []models.SecurityIssue
		want     models.ApprovalStatus
	}{
		{
			name:    "critical finding rejects despite perfect scores",
			metrics: metrics(100, 100, 100),
			issues:  []models.SecurityIssue{{Severity: models.SeverityCritical}},
			want:    models.StatusRejected,
		},
		{
			name:     "critical external finding rejects",
			metrics:  metrics(100, 100, 100),
			external: []models.ReviewFinding{{Severity: models.SeverityCritical}},
			want:     models.StatusRejected,
		},
		{
			name:    "security below 70 rejects",
			metrics: metrics(69.9, 100, 100),
			want:    models.StatusRejected,
		},
		{
			name:    "security exactly 70 does not reject",
			metrics: metrics(70, 100, 100),
			want:    models.StatusNeedsRevision, // fails the approval rule's >= 80
		},
		{
			name:    "more than three severe findings needs revision",
			metrics: metrics(85, 85, 85),
			issues: []models.SecurityIssue{
				{Severity: models.SeverityHigh},
				{Severity: models.SeverityHigh},
			},
			external: []models.ReviewFinding{
				{Severity: models.SeverityHigh},
				{Severity: models.SeverityHigh},
			},
			want: models.StatusNeedsRevision,
		},
		{
			name:    "exactly three severe findings can still approve",
			metrics: metrics(85, 85, 85),
			issues: []models.SecurityIssue{
				{Severity: models.SeverityHigh},
				{Severity: models.SeverityHigh},
				{Severity: models.SeverityHigh},
			},
			want: models.StatusApproved,
		},
		{
			name:    "maintainability below 60 needs revision",
			metrics: metrics(90, 59.9, 90),
			want:    models.StatusNeedsRevision,
		},
		{
			name:    "approval thresholds met exactly",
			metrics: metrics(80, 70, 75),
			want:    models.StatusApproved,
		},
		{
			name:    "performance just below threshold needs revision",
			metrics: metrics(80, 70, 74.9),
			want:    models.StatusNeedsRevision,
		},
		{
			name:    "middling scores need revision",
			metrics: metrics(75, 65, 80),
			want:    models.StatusNeedsRevision,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.metrics, tt.external, tt.issues)
			assert.Equal(t, tt.want, got)
		})
	}
}
