package models

// CodeMetrics holds the objective metrics computed for one analyzed artifact.
// It is created once per analysis run and not mutated afterwards.
type CodeMetrics struct {
	LinesOfCode          int            `json:"lines_of_code"`
	CommentLines         int            `json:"comment_lines"`
	Complexity           map[string]int `json:"complexity"`   // per function/method symbol
	Dependencies         []string       `json:"dependencies"` // sorted, unique import paths
	MaintainabilityIndex float64        `json:"maintainability_index"` // 0-100
	SecurityScore        float64        `json:"security_score"`        // 0-100
	PerformanceScore     float64        `json:"performance_score"`     // 0-100
}

// TotalComplexity sums the per-symbol cyclomatic complexities.
func (m *CodeMetrics) TotalComplexity() int {
	total := 0
	for _, c := range m.Complexity {
		total += c
	}
	return total
}
