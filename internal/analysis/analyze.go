package analysis

import (
	"sync"

	"github.com/joescharf/cq/internal/models"
)

// Result bundles everything one analysis run produces for a single artifact.
type Result struct {
	Metrics           *models.CodeMetrics
	SecurityIssues    []models.SecurityIssue
	PerformanceIssues []models.PerformanceMetric
}

// Analyze parses the artifact once and runs the three scorers over the same
// tree. The scanners are pure functions of the parsed source, so they run
// concurrently and join before the scores are folded into the metrics.
func Analyze(filename, src string) (*Result, error) {
	parsed, err := Parse(filename, src)
	if err != nil {
		return nil, err
	}

	metrics := Extract(parsed)

	var (
		wg       sync.WaitGroup
		security []models.SecurityIssue
		perf     []models.PerformanceMetric
		maint    float64
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		security = ScanSecurity(parsed)
	}()
	go func() {
		defer wg.Done()
		perf = ScanPerformance(parsed)
	}()
	go func() {
		defer wg.Done()
		maint = MaintainabilityIndex(metrics.LinesOfCode, metrics.CommentLines, metrics.TotalComplexity())
	}()
	wg.Wait()

	metrics.SecurityScore = SecurityScore(security)
	metrics.PerformanceScore = PerformanceScore(perf)
	metrics.MaintainabilityIndex = maint

	return &Result{
		Metrics:           metrics,
		SecurityIssues:    security,
		PerformanceIssues: perf,
	}, nil
}
