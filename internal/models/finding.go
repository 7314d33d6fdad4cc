package models

// Severity classifies how serious a finding is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// MetricStatus classifies a performance finding.
type MetricStatus string

const (
	MetricStatusInfo     MetricStatus = "info"
	MetricStatusWarning  MetricStatus = "warning"
	MetricStatusError    MetricStatus = "error"
	MetricStatusCritical MetricStatus = "critical"
)

// FindingCategory buckets findings when building a ReviewSummary.
type FindingCategory string

const (
	CategorySecurity    FindingCategory = "security"
	CategoryPerformance FindingCategory = "performance"
	CategoryStyle       FindingCategory = "style"
)

// SecurityIssue is a single security risk detected in an artifact.
type SecurityIssue struct {
	Severity       Severity `json:"severity"`
	Category       string   `json:"category"`
	Description    string   `json:"description"`
	Location       string   `json:"location"` // file:line
	Recommendation string   `json:"recommendation"`
	CWEID          string   `json:"cwe_id,omitempty"`
	CVSSScore      float64  `json:"cvss_score,omitempty"`
}

// PerformanceMetric is a single inefficiency finding with its measured value
// against the pattern's threshold.
type PerformanceMetric struct {
	Category       string       `json:"category"`
	Value          float64      `json:"value"`
	Unit           string       `json:"unit"`
	Threshold      float64      `json:"threshold"`
	Status         MetricStatus `json:"status"`
	Recommendation string       `json:"recommendation,omitempty"`
	Location       string       `json:"location,omitempty"`
}

// ReviewFinding is the generalized finding shape used when merging
// advisory-service output with scanner output.
type ReviewFinding struct {
	Type        string          `json:"type"`
	Severity    Severity        `json:"severity"`
	FilePath    string          `json:"file_path"`
	LineNumber  int             `json:"line_number"`
	CodeSnippet string          `json:"code_snippet,omitempty"`
	Description string          `json:"description"`
	Suggestion  string          `json:"suggestion,omitempty"`
	Category    FindingCategory `json:"category"`
}
