package analysis

import (
	"fmt"
	"go/ast"
	"go/token"

	"github.com/joescharf/cq/internal/models"
)

// Per-status deductions from the starting score of 100.
var performanceDeductions = map[models.MetricStatus]float64{
	models.MetricStatusInfo:     2,
	models.MetricStatusWarning:  5,
	models.MetricStatusError:    15,
	models.MetricStatusCritical: 30,
}

// Composite literals larger than this are flagged as inlined datasets.
const largeLiteralThreshold = 1000

var loopQueryCallees = map[string]bool{
	"Query":           true,
	"QueryRow":        true,
	"QueryContext":    true,
	"QueryRowContext": true,
	"Exec":            true,
	"ExecContext":     true,
	"Find":            true,
	"FindOne":         true,
	"Get":             true,
	"All":             true,
}

// ScanPerformance walks the tree once matching the inefficiency-pattern
// catalogue: nested loops, oversized literals, queries issued inside loop
// bodies, and deferred calls accumulating per iteration.
func ScanPerformance(src *Source) []models.PerformanceMetric {
	var findings []models.PerformanceMetric

	// End offsets of the loops enclosing the node currently being visited.
	// ast.Inspect visits in source order, so loops whose extent has passed
	// can be popped by position.
	var loopEnds []token.Pos

	location := func(pos token.Pos) string {
		p := src.Fset.Position(pos)
		return fmt.Sprintf("%s:%d", src.Filename, p.Line)
	}

	ast.Inspect(src.File, func(n ast.Node) bool {
		if n == nil {
			return true
		}
		for len(loopEnds) > 0 && n.Pos() >= loopEnds[len(loopEnds)-1] {
			loopEnds = loopEnds[:len(loopEnds)-1]
		}
		depth := len(loopEnds)

		switch node := n.(type) {
		case *ast.ForStmt, *ast.RangeStmt:
			if depth > 0 {
				findings = append(findings, models.PerformanceMetric{
					Category:       "algorithm",
					Value:          float64(depth + 1),
					Unit:           "nested_loops",
					Threshold:      1,
					Status:         models.MetricStatusWarning,
					Recommendation: "Consider restructuring to avoid nested iteration",
					Location:       location(n.Pos()),
				})
			}
			loopEnds = append(loopEnds, n.End())

		case *ast.CompositeLit:
			if len(node.Elts) > largeLiteralThreshold {
				findings = append(findings, models.PerformanceMetric{
					Category:       "memory",
					Value:          float64(len(node.Elts)),
					Unit:           "elements",
					Threshold:      largeLiteralThreshold,
					Status:         models.MetricStatusWarning,
					Recommendation: "Load large datasets from storage instead of inlining them",
					Location:       location(n.Pos()),
				})
			}

		case *ast.CallExpr:
			if depth > 0 {
				if name, _ := calleeName(node); loopQueryCallees[name] {
					findings = append(findings, models.PerformanceMetric{
						Category:       "database",
						Value:          1,
						Unit:           "query_in_loop",
						Threshold:      0,
						Status:         models.MetricStatusWarning,
						Recommendation: "Batch the query outside the loop or use a single bulk operation",
						Location:       location(n.Pos()),
					})
				}
			}

		case *ast.DeferStmt:
			if depth > 0 {
				findings = append(findings, models.PerformanceMetric{
					Category:       "resources",
					Value:          1,
					Unit:           "defer_in_loop",
					Threshold:      0,
					Status:         models.MetricStatusInfo,
					Recommendation: "Deferred calls inside a loop run only at function exit; release resources per iteration",
					Location:       location(n.Pos()),
				})
			}
		}
		return true
	})

	return findings
}

// PerformanceScore derives the 0-100 score: start at 100, deduct per
// finding status, floor at 0.
func PerformanceScore(findings []models.PerformanceMetric) float64 {
	score := 100.0
	for _, f := range findings {
		score -= performanceDeductions[f.Status]
	}
	if score < 0 {
		return 0
	}
	return score
}
